package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	mr "github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
)

const patientRecordsTable = "patient_records"

type PatientRecordRepository struct {
	db      *gorm.DB
	metrics *metrics.Collector
}

var _ mr.Repository = (*PatientRecordRepository)(nil)

func NewPatientRecordRepository(db *gorm.DB, m *metrics.Collector) *PatientRecordRepository {
	return &PatientRecordRepository{db: db, metrics: m}
}

// Create relies on the unique index on patient_id; a duplicate insert comes
// back as ErrRecordAlreadyExists.
func (r *PatientRecordRepository) Create(ctx context.Context, rec *mr.PatientRecord) error {
	defer r.metrics.ObserveQuery("create", patientRecordsTable, time.Now())

	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return mr.ErrRecordAlreadyExists
		}
		return storageError(err)
	}
	return nil
}

func (r *PatientRecordRepository) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*mr.PatientRecord, error) {
	defer r.metrics.ObserveQuery("get_by_patient_id", patientRecordsTable, time.Now())

	var rec mr.PatientRecord
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Take(&rec).Error
	return recordOrErr(&rec, err)
}

func (r *PatientRecordRepository) GetByPatientUsername(ctx context.Context, username string) (*mr.PatientRecord, error) {
	defer r.metrics.ObserveQuery("get_by_patient_username", patientRecordsTable, time.Now())

	var rec mr.PatientRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN auth.users u ON u.id = clinical.patient_records.patient_id").
		Where("u.username = ?", username).
		Take(&rec).Error
	return recordOrErr(&rec, err)
}

func (r *PatientRecordRepository) ExistsByPatientID(ctx context.Context, patientID uuid.UUID) (bool, error) {
	defer r.metrics.ObserveQuery("exists_by_patient_id", patientRecordsTable, time.Now())

	var n int64
	if err := r.db.WithContext(ctx).Model(&mr.PatientRecord{}).Where("patient_id = ?", patientID).Count(&n).Error; err != nil {
		return false, storageError(err)
	}
	return n > 0, nil
}

func (r *PatientRecordRepository) List(ctx context.Context) ([]*mr.PatientRecord, error) {
	defer r.metrics.ObserveQuery("list", patientRecordsTable, time.Now())

	var out []*mr.PatientRecord
	if err := r.db.WithContext(ctx).Order("last_name, first_name").Find(&out).Error; err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

func (r *PatientRecordRepository) UpdateByPatientID(ctx context.Context, patientID uuid.UUID, fn func(rec *mr.PatientRecord) error) (*mr.PatientRecord, error) {
	defer r.metrics.ObserveQuery("update_by_patient_id", patientRecordsTable, time.Now())

	var rec mr.PatientRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockForUpdate(tx)
		if err != nil {
			return err
		}
		err = locked.Where("patient_id = ?", patientID).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return mr.ErrRecordNotFound
		}
		if err != nil {
			return err
		}

		if err := fn(&rec); err != nil {
			return err
		}

		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, storageError(err)
	}
	return &rec, nil
}

func recordOrErr(rec *mr.PatientRecord, err error) (*mr.PatientRecord, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, mr.ErrRecordNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return rec, nil
}
