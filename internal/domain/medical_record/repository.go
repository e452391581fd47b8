package medical_record

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrRecordAlreadyExists when the patient already has a record.
	Create(ctx context.Context, r *PatientRecord) error

	// GetByPatientID and GetByPatientUsername return ErrRecordNotFound when absent.
	GetByPatientID(ctx context.Context, patientID uuid.UUID) (*PatientRecord, error)
	GetByPatientUsername(ctx context.Context, username string) (*PatientRecord, error)

	ExistsByPatientID(ctx context.Context, patientID uuid.UUID) (bool, error)
	List(ctx context.Context) ([]*PatientRecord, error)

	// UpdateByPatientID locks the patient's record, hands it to fn and saves it
	// in one transaction. Nothing is written when fn fails.
	UpdateByPatientID(ctx context.Context, patientID uuid.UUID, fn func(r *PatientRecord) error) (*PatientRecord, error)
}
