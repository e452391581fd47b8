package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
)

const appointmentsTable = "appointments"

type AppointmentRepository struct {
	db      *gorm.DB
	metrics *metrics.Collector
}

var _ appointment.Repository = (*AppointmentRepository)(nil)

func NewAppointmentRepository(db *gorm.DB, m *metrics.Collector) *AppointmentRepository {
	return &AppointmentRepository{db: db, metrics: m}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	defer r.metrics.ObserveQuery("create", appointmentsTable, time.Now())

	return storageError(r.db.WithContext(ctx).Create(a).Error)
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	defer r.metrics.ObserveQuery("get_by_id", appointmentsTable, time.Now())

	var a appointment.Appointment
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	if err := checkStatus(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	defer r.metrics.ObserveQuery("list_by_patient", appointmentsTable, time.Now())
	return r.listBy(ctx, "patient_id", patientID)
}

func (r *AppointmentRepository) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*appointment.Appointment, error) {
	defer r.metrics.ObserveQuery("list_by_practitioner", appointmentsTable, time.Now())
	return r.listBy(ctx, "practitioner_id", practitionerID)
}

func (r *AppointmentRepository) listBy(ctx context.Context, column string, id uuid.UUID) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: id}).
		Order("scheduled_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, storageError(err)
	}
	for _, a := range out {
		if err := checkStatus(a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Transition runs load, fn and save inside one transaction holding a row lock,
// so two concurrent transitions on the same appointment serialise. A writer
// that cannot get the lock within lockTimeout gets ErrConflict.
func (r *AppointmentRepository) Transition(ctx context.Context, id uuid.UUID, fn func(a *appointment.Appointment) error) (*appointment.Appointment, error) {
	defer r.metrics.ObserveQuery("transition", appointmentsTable, time.Now())

	var a appointment.Appointment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockForUpdate(tx)
		if err != nil {
			return err
		}
		err = locked.Where("id = ?", id).Take(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appointment.ErrAppointmentNotFound
		}
		if err != nil {
			return err
		}
		if err := checkStatus(&a); err != nil {
			return err
		}

		if err := fn(&a); err != nil {
			return err
		}

		return tx.Save(&a).Error
	})
	if err != nil {
		return nil, storageError(err)
	}
	return &a, nil
}
