package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	mr "github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
)

type PatientRecordService struct {
	repo      mr.Repository
	directory Directory
	metrics   *metrics.Collector
	log       *zap.Logger
	now       func() time.Time
}

func NewPatientRecordService(repo mr.Repository, directory Directory, m *metrics.Collector, log *zap.Logger) *PatientRecordService {
	return &PatientRecordService{repo: repo, directory: directory, metrics: m, log: log, now: time.Now}
}

// CreateRecord opens the file of patientID. A patient has at most one record;
// the existence check here is backed by a unique index in storage, so a
// concurrent duplicate also ends in ErrRecordAlreadyExists.
func (s *PatientRecordService) CreateRecord(ctx context.Context, patientID uuid.UUID, practitionerID *uuid.UUID, draft *mr.Draft) (*mr.PatientRecord, error) {
	ctx, span := tracer.Start(ctx, "PatientRecordService.CreateRecord")
	defer span.End()
	span.SetAttributes(attribute.String("patient.id", patientID.String()))

	exists, err := s.repo.ExistsByPatientID(ctx, patientID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("checking existing record: %w", err)
	}
	if exists {
		return nil, mr.ErrRecordAlreadyExists
	}

	if err := s.resolve(ctx, patientID, (*domain.User).IsPatient, mr.ErrPatientNotFound); err != nil {
		return nil, err
	}
	if practitionerID != nil {
		if err := s.resolve(ctx, *practitionerID, (*domain.User).IsPractitioner, mr.ErrPractitionerNotFound); err != nil {
			return nil, err
		}
	}

	record := mr.NewRecord(patientID, practitionerID, draft, s.now())
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, mr.ErrRecordAlreadyExists
		}
		s.log.Error("failed to create patient record", zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("creating patient record: %w", err)
	}

	s.metrics.PatientRecordsCreatedTotal.Inc()
	s.log.Info("patient record created",
		zap.String("record_id", record.ID.String()),
		zap.String("patient_id", patientID.String()),
	)

	return record, nil
}

// UpdateRecord merges patch into the patient's record. Only set fields are
// written. A non-nil practitionerID replaces the current assignment.
func (s *PatientRecordService) UpdateRecord(ctx context.Context, patientID uuid.UUID, practitionerID *uuid.UUID, patch *mr.Patch) (*mr.PatientRecord, error) {
	ctx, span := tracer.Start(ctx, "PatientRecordService.UpdateRecord")
	defer span.End()
	span.SetAttributes(attribute.String("patient.id", patientID.String()))

	if practitionerID != nil {
		if err := s.resolve(ctx, *practitionerID, (*domain.User).IsPractitioner, mr.ErrPractitionerNotFound); err != nil {
			return nil, err
		}
	}

	now := s.now()
	record, err := s.repo.UpdateByPatientID(ctx, patientID, func(r *mr.PatientRecord) error {
		r.Merge(patch, now)
		if practitionerID != nil {
			r.AssignPractitioner(*practitionerID, now)
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.metrics.PatientRecordsUpdatedTotal.Inc()
	s.log.Info("patient record updated",
		zap.String("record_id", record.ID.String()),
		zap.String("patient_id", patientID.String()),
	)

	return record, nil
}

// GetByPatientID returns nil without error when the patient has no record.
func (s *PatientRecordService) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*mr.PatientRecord, error) {
	return absentAsNil(s.repo.GetByPatientID(ctx, patientID))
}

// GetByUsername returns nil without error when the patient has no record.
func (s *PatientRecordService) GetByUsername(ctx context.Context, username string) (*mr.PatientRecord, error) {
	return absentAsNil(s.repo.GetByPatientUsername(ctx, username))
}

func (s *PatientRecordService) ListAll(ctx context.Context) ([]*mr.PatientRecord, error) {
	return s.repo.List(ctx)
}

func (s *PatientRecordService) Exists(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return s.repo.ExistsByPatientID(ctx, patientID)
}

// resolve returns notFound unless userID names an existing user for which
// hasRole holds.
func (s *PatientRecordService) resolve(ctx context.Context, userID uuid.UUID, hasRole func(*domain.User) bool, notFound error) error {
	u, err := s.directory.FindByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("resolving user %s: %w", userID, err)
	}
	if !hasRole(u) {
		return notFound
	}
	return nil
}

func absentAsNil(r *mr.PatientRecord, err error) (*mr.PatientRecord, error) {
	if errors.Is(err, mr.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}
