package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/service"
)

type AppointmentHandler struct {
	appointments *service.AppointmentService
	usernames    *service.UsernameResolver
	now          func() time.Time
}

func NewAppointmentHandler(appointments *service.AppointmentService, usernames *service.UsernameResolver) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, usernames: usernames, now: time.Now}
}

type appointmentRequest struct {
	AppointmentDate time.Time `json:"appointmentDate" binding:"required"`
	Reason          string    `json:"reason" binding:"max=500"`
}

type appointmentResponse struct {
	ID                   uuid.UUID `json:"id"`
	PatientID            uuid.UUID `json:"patientId"`
	PatientUsername      string    `json:"patientUsername"`
	PractitionerID       uuid.UUID `json:"practitionerId"`
	PractitionerUsername string    `json:"practitionerUsername"`
	AppointmentDate      time.Time `json:"appointmentDate"`
	Reason               string    `json:"reason"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func toAppointmentResponse(a *appointment.Appointment, names map[uuid.UUID]string) appointmentResponse {
	return appointmentResponse{
		ID:                   a.ID,
		PatientID:            a.PatientID,
		PatientUsername:      names[a.PatientID],
		PractitionerID:       a.PractitionerID,
		PractitionerUsername: names[a.PractitionerID],
		AppointmentDate:      a.ScheduledAt,
		Reason:               a.Reason,
		Status:               string(a.Status),
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

// render resolves the usernames of every party in list with one lookup.
func (h *AppointmentHandler) render(ctx context.Context, list ...*appointment.Appointment) []appointmentResponse {
	ids := make([]uuid.UUID, 0, 2*len(list))
	for _, a := range list {
		ids = append(ids, a.PatientID, a.PractitionerID)
	}
	names := h.usernames.Usernames(ctx, ids...)

	out := make([]appointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a, names))
	}
	return out
}

func (h *AppointmentHandler) renderOne(ctx context.Context, a *appointment.Appointment) appointmentResponse {
	return h.render(ctx, a)[0]
}

// validate rejects times that are not strictly after now.
func (r *appointmentRequest) validate(now time.Time) error {
	if !r.AppointmentDate.After(now) {
		return &service.ValidationError{Fields: []string{"appointmentDate: " + appointment.ErrScheduledInPast.Error()}}
	}
	return nil
}

// Create handles POST /appointments.
func (h *AppointmentHandler) Create(c *gin.Context) {
	patient, ok := caller(c)
	if !ok {
		return
	}

	var req appointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.validate(h.now()); err != nil {
		respondServiceError(c, err)
		return
	}

	a, err := h.appointments.CreateAppointment(c.Request.Context(), &appointment.CreateAppointmentCommand{
		ScheduledAt: req.AppointmentDate,
		Reason:      req.Reason,
	}, patient)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, h.renderOne(c.Request.Context(), a))
}

// ListMine handles GET /appointments for the calling patient.
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	patient, ok := caller(c)
	if !ok {
		return
	}

	list, err := h.appointments.ListForPatient(c.Request.Context(), patient)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.render(c.Request.Context(), list...))
}

// ListForPractitioner handles GET /appointments/practitioner.
func (h *AppointmentHandler) ListForPractitioner(c *gin.Context) {
	practitioner, ok := caller(c)
	if !ok {
		return
	}

	list, err := h.appointments.ListForPractitioner(c.Request.Context(), practitioner)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.render(c.Request.Context(), list...))
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.appointments.GetAppointment(c.Request.Context(), id, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.renderOne(c.Request.Context(), a))
}

// Cancel handles DELETE /appointments/:id. The appointment is kept with
// status CANCELLED.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	h.transition(c, h.appointments.CancelAppointment)
}

func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	patient, ok := caller(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req appointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.validate(h.now()); err != nil {
		respondServiceError(c, err)
		return
	}

	a, err := h.appointments.RescheduleAppointment(c.Request.Context(), id, &appointment.RescheduleAppointmentCommand{
		ScheduledAt: req.AppointmentDate,
		Reason:      req.Reason,
	}, patient)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.renderOne(c.Request.Context(), a))
}

func (h *AppointmentHandler) Accept(c *gin.Context) {
	h.transition(c, h.appointments.AcceptAppointment)
}

func (h *AppointmentHandler) Reject(c *gin.Context) {
	h.transition(c, h.appointments.RejectAppointment)
}

func (h *AppointmentHandler) Complete(c *gin.Context) {
	h.transition(c, h.appointments.CompleteAppointment)
}

type transitionFunc func(ctx context.Context, id uuid.UUID, user *domain.User) (*appointment.Appointment, error)

func (h *AppointmentHandler) transition(c *gin.Context, apply transitionFunc) {
	user, ok := caller(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := apply(c.Request.Context(), id, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.renderOne(c.Request.Context(), a))
}
