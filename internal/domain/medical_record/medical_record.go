package medical_record

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
)

// PatientRecord is the medical and dental file of exactly one patient.
type PatientRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;<-:create"`
	LastUpdated time.Time `gorm:"column:last_updated;not null"`

	PatientID      uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;uniqueIndex;<-:create"`
	PractitionerID *uuid.UUID `gorm:"column:practitioner_id;type:uuid;index"`

	// Demographics
	FirstName   string     `gorm:"column:first_name;type:varchar(100)"`
	LastName    string     `gorm:"column:last_name;type:varchar(100)"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth;type:date"`
	Gender      string     `gorm:"column:gender;type:varchar(20)"`
	Phone       string     `gorm:"column:phone;type:varchar(30)"`
	Email       string     `gorm:"column:email;type:varchar(255)"`
	Address     string     `gorm:"column:address;type:text"`

	// Medical
	BloodType            string `gorm:"column:blood_type;type:varchar(5)"`
	Allergies            string `gorm:"column:allergies;type:text"`
	CurrentMedications   string `gorm:"column:current_medications;type:text"`
	MedicalHistory       string `gorm:"column:medical_history;type:text"`
	FamilyMedicalHistory string `gorm:"column:family_medical_history;type:text"`

	// Dental
	DentalHistory       string `gorm:"column:dental_history;type:text"`
	CurrentDentalIssues string `gorm:"column:current_dental_issues;type:text"`
	PreviousTreatments  string `gorm:"column:previous_treatments;type:text"`
	DentalNotes         string `gorm:"column:dental_notes;type:text"`

	// Written by the practitioner during consultations.
	ConsultationNotes string `gorm:"column:consultation_notes;type:text"`
}

func (PatientRecord) TableName() string {
	return "clinical.patient_records"
}

// Draft carries the initial field values of a new record.
type Draft struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Gender      string
	Phone       string
	Email       string
	Address     string

	BloodType            string
	Allergies            string
	CurrentMedications   string
	MedicalHistory       string
	FamilyMedicalHistory string

	DentalHistory       string
	CurrentDentalIssues string
	PreviousTreatments  string
	DentalNotes         string

	ConsultationNotes string
}

// NewRecord binds a draft to a patient. Both timestamps are set to now.
func NewRecord(patientID uuid.UUID, practitionerID *uuid.UUID, d *Draft, now time.Time) *PatientRecord {
	return &PatientRecord{
		CreatedAt:      now,
		LastUpdated:    now,
		PatientID:      patientID,
		PractitionerID: practitionerID,

		FirstName:   d.FirstName,
		LastName:    d.LastName,
		DateOfBirth: d.DateOfBirth,
		Gender:      d.Gender,
		Phone:       d.Phone,
		Email:       d.Email,
		Address:     d.Address,

		BloodType:            d.BloodType,
		Allergies:            d.Allergies,
		CurrentMedications:   d.CurrentMedications,
		MedicalHistory:       d.MedicalHistory,
		FamilyMedicalHistory: d.FamilyMedicalHistory,

		DentalHistory:       d.DentalHistory,
		CurrentDentalIssues: d.CurrentDentalIssues,
		PreviousTreatments:  d.PreviousTreatments,
		DentalNotes:         d.DentalNotes,

		ConsultationNotes: d.ConsultationNotes,
	}
}

// Patch holds the fields a caller wants to change. Unset fields are left
// alone; a set field with the zero value clears the stored one.
type Patch struct {
	FirstName   domain.Optional[string]     `json:"firstName"`
	LastName    domain.Optional[string]     `json:"lastName"`
	DateOfBirth domain.Optional[*time.Time] `json:"dateOfBirth"`
	Gender      domain.Optional[string]     `json:"gender"`
	Phone       domain.Optional[string]     `json:"phone"`
	Email       domain.Optional[string]     `json:"email"`
	Address     domain.Optional[string]     `json:"address"`

	BloodType            domain.Optional[string] `json:"bloodType"`
	Allergies            domain.Optional[string] `json:"allergies"`
	CurrentMedications   domain.Optional[string] `json:"currentMedications"`
	MedicalHistory       domain.Optional[string] `json:"medicalHistory"`
	FamilyMedicalHistory domain.Optional[string] `json:"familyMedicalHistory"`

	DentalHistory       domain.Optional[string] `json:"dentalHistory"`
	CurrentDentalIssues domain.Optional[string] `json:"currentDentalIssues"`
	PreviousTreatments  domain.Optional[string] `json:"previousTreatments"`
	DentalNotes         domain.Optional[string] `json:"dentalNotes"`

	ConsultationNotes domain.Optional[string] `json:"consultationNotes"`
}

// IsEmpty reports whether the patch would leave every field unchanged.
func (p *Patch) IsEmpty() bool {
	return !(p.FirstName.Set || p.LastName.Set || p.DateOfBirth.Set || p.Gender.Set ||
		p.Phone.Set || p.Email.Set || p.Address.Set ||
		p.BloodType.Set || p.Allergies.Set || p.CurrentMedications.Set ||
		p.MedicalHistory.Set || p.FamilyMedicalHistory.Set ||
		p.DentalHistory.Set || p.CurrentDentalIssues.Set || p.PreviousTreatments.Set ||
		p.DentalNotes.Set || p.ConsultationNotes.Set)
}

// Merge applies every set field of p and refreshes LastUpdated. Identity,
// ownership and CreatedAt are never touched.
func (r *PatientRecord) Merge(p *Patch, now time.Time) {
	p.FirstName.ApplyTo(&r.FirstName)
	p.LastName.ApplyTo(&r.LastName)
	p.DateOfBirth.ApplyTo(&r.DateOfBirth)
	p.Gender.ApplyTo(&r.Gender)
	p.Phone.ApplyTo(&r.Phone)
	p.Email.ApplyTo(&r.Email)
	p.Address.ApplyTo(&r.Address)

	p.BloodType.ApplyTo(&r.BloodType)
	p.Allergies.ApplyTo(&r.Allergies)
	p.CurrentMedications.ApplyTo(&r.CurrentMedications)
	p.MedicalHistory.ApplyTo(&r.MedicalHistory)
	p.FamilyMedicalHistory.ApplyTo(&r.FamilyMedicalHistory)

	p.DentalHistory.ApplyTo(&r.DentalHistory)
	p.CurrentDentalIssues.ApplyTo(&r.CurrentDentalIssues)
	p.PreviousTreatments.ApplyTo(&r.PreviousTreatments)
	p.DentalNotes.ApplyTo(&r.DentalNotes)

	p.ConsultationNotes.ApplyTo(&r.ConsultationNotes)

	r.LastUpdated = now
}

// AssignPractitioner replaces any previous assignment.
func (r *PatientRecord) AssignPractitioner(practitionerID uuid.UUID, now time.Time) {
	r.PractitionerID = &practitionerID
	r.LastUpdated = now
}
