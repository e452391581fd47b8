package appointment

import (
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
)

var (
	ErrAppointmentNotFound     = fmt.Errorf("appointment %w", domain.ErrNotFound)
	ErrNotParty                = fmt.Errorf("caller is not a party to this appointment: %w", domain.ErrNotAuthorized)
	ErrInvalidStatusTransition = fmt.Errorf("invalid appointment status transition: %w", domain.ErrInvalidState)
	ErrScheduledInPast         = errors.New("appointment date must be in the future")
)

// TransitionError names the status an appointment was in and the action that
// was refused.
type TransitionError struct {
	From   Status
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s appointment in status %s", e.Action, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStatusTransition || target == domain.ErrInvalidState
}
