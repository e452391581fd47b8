package medical_record

import (
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
)

var (
	ErrRecordNotFound       = fmt.Errorf("patient record %w", domain.ErrNotFound)
	ErrRecordAlreadyExists  = fmt.Errorf("patient record %w for this patient", domain.ErrAlreadyExists)
	ErrPatientNotFound      = fmt.Errorf("patient %w", domain.ErrNotFound)
	ErrPractitionerNotFound = fmt.Errorf("practitioner %w", domain.ErrNotFound)
)
