package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	mr "github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/service"
)

const dateLayout = "2006-01-02"

type PatientRecordHandler struct {
	records   *service.PatientRecordService
	usernames *service.UsernameResolver
}

func NewPatientRecordHandler(records *service.PatientRecordService, usernames *service.UsernameResolver) *PatientRecordHandler {
	return &PatientRecordHandler{records: records, usernames: usernames}
}

type createPatientRecordRequest struct {
	PatientID   uuid.UUID `json:"patientId"`
	FirstName   string    `json:"firstName" binding:"max=100"`
	LastName    string    `json:"lastName" binding:"max=100"`
	DateOfBirth string    `json:"dateOfBirth"`
	Gender      string    `json:"gender" binding:"max=20"`
	Phone       string    `json:"phone" binding:"max=30"`
	Email       string    `json:"email" binding:"omitempty,email,max=255"`
	Address     string    `json:"address"`

	BloodType            string `json:"bloodType" binding:"max=5"`
	Allergies            string `json:"allergies"`
	CurrentMedications   string `json:"currentMedications"`
	MedicalHistory       string `json:"medicalHistory"`
	FamilyMedicalHistory string `json:"familyMedicalHistory"`

	DentalHistory       string `json:"dentalHistory"`
	CurrentDentalIssues string `json:"currentDentalIssues"`
	PreviousTreatments  string `json:"previousTreatments"`
	DentalNotes         string `json:"dentalNotes"`

	ConsultationNotes string `json:"consultationNotes"`
}

func (r *createPatientRecordRequest) toDraft() (*mr.Draft, error) {
	var fields []string
	if r.PatientID == uuid.Nil {
		fields = append(fields, "patientId: required")
	}
	dob, err := parseDate(r.DateOfBirth)
	if err != nil {
		fields = append(fields, "dateOfBirth: must be formatted as YYYY-MM-DD")
	}
	if len(fields) > 0 {
		return nil, &service.ValidationError{Fields: fields}
	}

	return &mr.Draft{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: dob,
		Gender:      r.Gender,
		Phone:       r.Phone,
		Email:       r.Email,
		Address:     r.Address,

		BloodType:            r.BloodType,
		Allergies:            r.Allergies,
		CurrentMedications:   r.CurrentMedications,
		MedicalHistory:       r.MedicalHistory,
		FamilyMedicalHistory: r.FamilyMedicalHistory,

		DentalHistory:       r.DentalHistory,
		CurrentDentalIssues: r.CurrentDentalIssues,
		PreviousTreatments:  r.PreviousTreatments,
		DentalNotes:         r.DentalNotes,

		ConsultationNotes: r.ConsultationNotes,
	}, nil
}

// updatePatientRecordRequest decodes into mr.Patch directly. Its own
// DateOfBirth shadows the embedded one so the wire format stays YYYY-MM-DD.
type updatePatientRecordRequest struct {
	mr.Patch
	DateOfBirth domain.Optional[string] `json:"dateOfBirth"`
}

// patchLimits carries the bounded fields of an update through the same
// rules createPatientRecordRequest binds with. Unset fields are empty and pass.
type patchLimits struct {
	FirstName string `json:"firstName" binding:"max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
	Gender    string `json:"gender" binding:"max=20"`
	Phone     string `json:"phone" binding:"max=30"`
	Email     string `json:"email" binding:"omitempty,email,max=255"`
	BloodType string `json:"bloodType" binding:"max=5"`
}

func (r *updatePatientRecordRequest) toPatch() (*mr.Patch, error) {
	p := r.Patch
	var fields []string
	if r.DateOfBirth.Set {
		dob, err := parseDate(r.DateOfBirth.Value)
		if err != nil {
			fields = append(fields, "dateOfBirth: must be formatted as YYYY-MM-DD")
		}
		p.DateOfBirth = domain.Some(dob)
	}

	limits := patchLimits{
		FirstName: p.FirstName.Value,
		LastName:  p.LastName.Value,
		Gender:    p.Gender.Value,
		Phone:     p.Phone.Value,
		Email:     p.Email.Value,
		BloodType: p.BloodType.Value,
	}
	if err := binding.Validator.ValidateStruct(&limits); err != nil {
		fields = append(fields, fieldErrors(&limits, err)...)
	}

	if len(fields) == 0 && p.IsEmpty() {
		fields = append(fields, "at least one field must be supplied")
	}
	if len(fields) > 0 {
		return nil, &service.ValidationError{Fields: fields}
	}
	return &p, nil
}

type patientRecordResponse struct {
	ID                   uuid.UUID  `json:"id"`
	PatientID            uuid.UUID  `json:"patientId"`
	PatientUsername      string     `json:"patientUsername"`
	PractitionerID       *uuid.UUID `json:"practitionerId"`
	PractitionerUsername *string    `json:"practitionerUsername"`

	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	DateOfBirth *string `json:"dateOfBirth"`
	Gender      string  `json:"gender"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Address     string  `json:"address"`

	BloodType            string `json:"bloodType"`
	Allergies            string `json:"allergies"`
	CurrentMedications   string `json:"currentMedications"`
	MedicalHistory       string `json:"medicalHistory"`
	FamilyMedicalHistory string `json:"familyMedicalHistory"`

	DentalHistory       string `json:"dentalHistory"`
	CurrentDentalIssues string `json:"currentDentalIssues"`
	PreviousTreatments  string `json:"previousTreatments"`
	DentalNotes         string `json:"dentalNotes"`

	ConsultationNotes string `json:"consultationNotes"`

	LastUpdated time.Time `json:"lastUpdated"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toPatientRecordResponse(r *mr.PatientRecord, names map[uuid.UUID]string) patientRecordResponse {
	resp := patientRecordResponse{
		ID:              r.ID,
		PatientID:       r.PatientID,
		PatientUsername: names[r.PatientID],
		PractitionerID:  r.PractitionerID,

		FirstName: r.FirstName,
		LastName:  r.LastName,
		Gender:    r.Gender,
		Phone:     r.Phone,
		Email:     r.Email,
		Address:   r.Address,

		BloodType:            r.BloodType,
		Allergies:            r.Allergies,
		CurrentMedications:   r.CurrentMedications,
		MedicalHistory:       r.MedicalHistory,
		FamilyMedicalHistory: r.FamilyMedicalHistory,

		DentalHistory:       r.DentalHistory,
		CurrentDentalIssues: r.CurrentDentalIssues,
		PreviousTreatments:  r.PreviousTreatments,
		DentalNotes:         r.DentalNotes,

		ConsultationNotes: r.ConsultationNotes,

		LastUpdated: r.LastUpdated,
		CreatedAt:   r.CreatedAt,
	}
	if r.PractitionerID != nil {
		name := names[*r.PractitionerID]
		resp.PractitionerUsername = &name
	}
	if r.DateOfBirth != nil {
		s := r.DateOfBirth.Format(dateLayout)
		resp.DateOfBirth = &s
	}
	return resp
}

// render resolves the usernames of every party in records with one lookup.
func (h *PatientRecordHandler) render(ctx context.Context, records ...*mr.PatientRecord) []patientRecordResponse {
	ids := make([]uuid.UUID, 0, 2*len(records))
	for _, r := range records {
		ids = append(ids, r.PatientID)
		if r.PractitionerID != nil {
			ids = append(ids, *r.PractitionerID)
		}
	}
	names := h.usernames.Usernames(ctx, ids...)

	out := make([]patientRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toPatientRecordResponse(r, names))
	}
	return out
}

// parseDate treats an empty string as no date.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetMine handles GET /patient-records/me.
func (h *PatientRecordHandler) GetMine(c *gin.Context) {
	patient, ok := caller(c)
	if !ok {
		return
	}

	record, err := h.records.GetByUsername(c.Request.Context(), patient.Username)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if record == nil {
		respondError(c, http.StatusNotFound, "no patient record on file")
		return
	}
	respondOK(c, h.render(c.Request.Context(), record)[0])
}

func (h *PatientRecordHandler) List(c *gin.Context) {
	records, err := h.records.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, h.render(c.Request.Context(), records...))
}

func (h *PatientRecordHandler) GetByPatient(c *gin.Context) {
	patientID, ok := parseUUID(c, "patientId")
	if !ok {
		return
	}

	record, err := h.records.GetByPatientID(c.Request.Context(), patientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if record == nil {
		respondError(c, http.StatusNotFound, "no patient record on file")
		return
	}
	respondOK(c, h.render(c.Request.Context(), record)[0])
}

// Create handles POST /patient-records. The calling practitioner is assigned
// to the new record.
func (h *PatientRecordHandler) Create(c *gin.Context) {
	practitioner, ok := caller(c)
	if !ok {
		return
	}

	var req createPatientRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	record, err := h.records.CreateRecord(c.Request.Context(), req.PatientID, &practitioner.ID, draft)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, h.render(c.Request.Context(), record)[0])
}

// Update handles PUT /patient-records/patient/:patientId. Keys absent from
// the body are left unchanged; null or "" clears the field. The caller
// becomes the assigned practitioner.
func (h *PatientRecordHandler) Update(c *gin.Context) {
	practitioner, ok := caller(c)
	if !ok {
		return
	}
	patientID, ok := parseUUID(c, "patientId")
	if !ok {
		return
	}

	var req updatePatientRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	record, err := h.records.UpdateRecord(c.Request.Context(), patientID, &practitioner.ID, patch)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.render(c.Request.Context(), record)[0])
}

func (h *PatientRecordHandler) Exists(c *gin.Context) {
	patientID, ok := parseUUID(c, "patientId")
	if !ok {
		return
	}

	exists, err := h.records.Exists(c.Request.Context(), patientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, exists)
}
