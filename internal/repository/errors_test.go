package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/service"
)

func TestStorageError(t *testing.T) {
	pg := func(code string) error {
		return &pgconn.PgError{Code: code, Message: "sqlstate " + code}
	}

	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"serialization failure", pg(sqlstateSerializationFailure), domain.ErrConflict},
		{"deadlock", pg(sqlstateDeadlockDetected), domain.ErrConflict},
		{"lock timeout", pg(sqlstateLockNotAvailable), domain.ErrConflict},
		{"wrapped lock timeout", fmt.Errorf("saving: %w", pg(sqlstateLockNotAvailable)), domain.ErrConflict},
		{"other sqlstate", pg("08006"), domain.ErrUnavailable},
		{"plain driver error", errors.New("connection refused"), domain.ErrUnavailable},
		{"not found passes through", appointment.ErrAppointmentNotFound, appointment.ErrAppointmentNotFound},
		{"transition passes through", &appointment.TransitionError{From: appointment.StatusCompleted, Action: appointment.ActionAccept}, domain.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storageError(tt.err)
			if !errors.Is(got, tt.kind) {
				t.Fatalf("storageError(%v) = %v, want kind %v", tt.err, got, tt.kind)
			}
			if tt.kind != domain.ErrUnavailable && errors.Is(got, domain.ErrUnavailable) {
				t.Errorf("%v also reported as unavailable", got)
			}
		})
	}
}

func TestStorageError_StringTooLong(t *testing.T) {
	err := storageError(&pgconn.PgError{Code: sqlstateStringTooLong, Message: "value too long for type character varying(5)"})

	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %T %v, want *service.ValidationError", err, err)
	}
	if len(verr.Fields) != 1 {
		t.Errorf("fields = %q", verr.Fields)
	}
}

func TestStorageError_Nil(t *testing.T) {
	if err := storageError(nil); err != nil {
		t.Errorf("storageError(nil) = %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	ok := &appointment.Appointment{ID: uuid.New(), Status: appointment.StatusConfirmed}
	if err := checkStatus(ok); err != nil {
		t.Errorf("known status rejected: %v", err)
	}

	bad := &appointment.Appointment{ID: uuid.New(), Status: "ARCHIVED"}
	if err := checkStatus(bad); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("unknown status: got %v, want unavailable", err)
	}
}
