package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
)

var tracer = otel.Tracer("github.com/dmehra2102/prod-golang-projects/medbook/internal/service")

type AppointmentService struct {
	repo     appointment.Repository
	assigner PractitionerAssigner
	metrics  *metrics.Collector
	log      *zap.Logger
	now      func() time.Time
}

func NewAppointmentService(
	repo appointment.Repository,
	assigner PractitionerAssigner,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{repo: repo, assigner: assigner, metrics: m, log: log, now: time.Now}
}

// CreateAppointment books cmd for patient with the assigned practitioner. The
// requested time is expected to have been validated by the caller.
func (s *AppointmentService) CreateAppointment(ctx context.Context, cmd *appointment.CreateAppointmentCommand, patient *domain.User) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.CreateAppointment")
	defer span.End()

	practitionerID, err := s.assigner.Assign(ctx, patient, cmd)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	a := &appointment.Appointment{
		CreatedAt:      s.now(),
		PatientID:      patient.ID,
		PractitionerID: practitionerID,
		ScheduledAt:    cmd.ScheduledAt,
		Reason:         cmd.Reason,
		Status:         appointment.StatusScheduled,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.log.Error("failed to create appointment", zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("creating appointment: %w", err)
	}

	s.metrics.AppointmentsCreatedTotal.Inc()
	span.SetAttributes(attribute.String("appointment.id", a.ID.String()))
	s.log.Info("appointment created",
		zap.String("appointment_id", a.ID.String()),
		zap.String("patient_id", patient.ID.String()),
		zap.String("practitioner_id", practitionerID.String()),
	)

	return a, nil
}

// GetAppointment returns the appointment when caller is one of its parties.
func (s *AppointmentService) GetAppointment(ctx context.Context, id uuid.UUID, caller *domain.User) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.IsParty(caller.ID, a) == appointment.PartyNone {
		return nil, appointment.ErrNotParty
	}
	return a, nil
}

func (s *AppointmentService) ListForPatient(ctx context.Context, patient *domain.User) ([]*appointment.Appointment, error) {
	return s.repo.ListByPatient(ctx, patient.ID)
}

func (s *AppointmentService) ListForPractitioner(ctx context.Context, practitioner *domain.User) ([]*appointment.Appointment, error) {
	return s.repo.ListByPractitioner(ctx, practitioner.ID)
}

func (s *AppointmentService) CancelAppointment(ctx context.Context, id uuid.UUID, patient *domain.User) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.ActionCancel, patient, func(a *appointment.Appointment) error {
		return a.Cancel(patient.ID)
	})
}

func (s *AppointmentService) RescheduleAppointment(ctx context.Context, id uuid.UUID, cmd *appointment.RescheduleAppointmentCommand, patient *domain.User) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.ActionReschedule, patient, func(a *appointment.Appointment) error {
		return a.Reschedule(patient.ID, cmd)
	})
}

func (s *AppointmentService) AcceptAppointment(ctx context.Context, id uuid.UUID, practitioner *domain.User) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.ActionAccept, practitioner, func(a *appointment.Appointment) error {
		return a.Accept(practitioner.ID)
	})
}

func (s *AppointmentService) RejectAppointment(ctx context.Context, id uuid.UUID, practitioner *domain.User) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.ActionReject, practitioner, func(a *appointment.Appointment) error {
		return a.Reject(practitioner.ID)
	})
}

func (s *AppointmentService) CompleteAppointment(ctx context.Context, id uuid.UUID, practitioner *domain.User) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.ActionComplete, practitioner, func(a *appointment.Appointment) error {
		return a.Complete(practitioner.ID)
	})
}

func (s *AppointmentService) transition(
	ctx context.Context,
	id uuid.UUID,
	action appointment.Action,
	caller *domain.User,
	apply func(a *appointment.Appointment) error,
) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService."+string(action))
	defer span.End()
	span.SetAttributes(
		attribute.String("appointment.id", id.String()),
		attribute.String("appointment.action", string(action)),
	)

	a, err := s.repo.Transition(ctx, id, apply)
	if err != nil {
		s.metrics.TransitionsRefused.WithLabelValues(string(action), refusalReason(err)).Inc()
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, domain.ErrUnavailable) {
			s.log.Error("appointment transition failed",
				zap.String("appointment_id", id.String()),
				zap.String("action", string(action)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.metrics.AppointmentTransitions.WithLabelValues(string(action), string(a.Status)).Inc()
	s.log.Info("appointment transitioned",
		zap.String("appointment_id", id.String()),
		zap.String("action", string(action)),
		zap.String("status", string(a.Status)),
		zap.String("caller_id", caller.ID.String()),
	)

	return a, nil
}

func refusalReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	}
	return "error"
}
