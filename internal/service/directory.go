package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/appointment"
)

var (
	ErrUserNotFound            = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrNoPractitionerAvailable = fmt.Errorf("no practitioner available, please contact administration: %w", domain.ErrNoPractitionerAvailable)
)

// Directory resolves user identity and role. Lookups return ErrUserNotFound
// when nothing matches.
type Directory interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindFirstByRole(ctx context.Context, role domain.Role) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// UsernamesByID leaves unknown ids out of the result.
	UsernamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	Create(ctx context.Context, u *domain.User) error
}

// PractitionerAssigner picks the practitioner a new appointment is booked with.
type PractitionerAssigner interface {
	Assign(ctx context.Context, patient *domain.User, cmd *appointment.CreateAppointmentCommand) (uuid.UUID, error)
}

// FirstPractitionerAssigner books every appointment with the first practitioner
// the directory returns. There is no load balancing and no overlap check.
type FirstPractitionerAssigner struct {
	directory Directory
}

func NewFirstPractitionerAssigner(directory Directory) *FirstPractitionerAssigner {
	return &FirstPractitionerAssigner{directory: directory}
}

func (a *FirstPractitionerAssigner) Assign(ctx context.Context, _ *domain.User, _ *appointment.CreateAppointmentCommand) (uuid.UUID, error) {
	p, err := a.directory.FindFirstByRole(ctx, domain.RolePractitioner)
	if errors.Is(err, ErrUserNotFound) {
		return uuid.Nil, ErrNoPractitionerAvailable
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolving default practitioner: %w", err)
	}
	return p.ID, nil
}
