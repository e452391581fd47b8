package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error

	// GetByID returns ErrAppointmentNotFound if no such appointment exists.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListByPatient and ListByPractitioner order by scheduled time, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*Appointment, error)

	// Transition loads the appointment under a row lock, hands it to fn and
	// persists it in the same transaction. Nothing is written when fn fails.
	Transition(ctx context.Context, id uuid.UUID, fn func(a *Appointment) error) (*Appointment, error)
}
