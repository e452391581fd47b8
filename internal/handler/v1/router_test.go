package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/prod-golang-projects/medbook/config"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct-horse"

type testServer struct {
	t      *testing.T
	router http.Handler
	users  map[string]*domain.User
}

func newTestServer(t *testing.T, ready func(ctx context.Context) error) *testServer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}

	users := map[string]*domain.User{}
	dir := &memDirectory{}
	for _, u := range []struct {
		name string
		role domain.Role
	}{
		{"drhouse", domain.RolePractitioner},
		{"drwilson", domain.RolePractitioner},
		{"alice", domain.RolePatient},
		{"bob", domain.RolePatient},
	} {
		user := &domain.User{ID: uuid.New(), Username: u.name, PasswordHash: string(hash), Role: u.role}
		dir.users = append(dir.users, user)
		users[u.name] = user
	}

	log := zap.NewNop()
	m := metrics.NewCollector("medbook-test", prometheus.NewRegistry())
	jwt := auth.NewJWTManager(config.JWTConfig{
		Secret:          "handler-test-secret-handler-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "medbook-test",
	})

	authSvc := service.NewAuthService(dir, jwt, m, log)
	apptSvc := service.NewAppointmentService(newMemAppointments(), service.NewFirstPractitionerAssigner(dir), m, log)
	recordSvc := service.NewPatientRecordService(newMemRecords(dir), dir, m, log)
	usernames := service.NewUsernameResolver(dir, log)

	router := NewRouter(RouterDeps{
		Auth:          NewAuthHandler(authSvc),
		Appointments:  NewAppointmentHandler(apptSvc, usernames),
		PatientRecord: NewPatientRecordHandler(recordSvc, usernames),
		Authenticator: authSvc,
		Metrics:       m,
		Log:           log,
		Ready:         ready,
	})

	return &testServer{t: t, router: router, users: users}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(username string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": testPassword})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body)
	}
	return decodeData[struct {
		AccessToken string `json:"access_token"`
	}](s.t, rec).AccessToken
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp APIResponse[T]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return resp.Data
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body)
	}
}

func TestRouter_HealthAndReady(t *testing.T) {
	s := newTestServer(t, nil)
	expectStatus(t, s.do(http.MethodGet, "/health", "", nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, "/ready", "", nil), http.StatusOK)

	down := newTestServer(t, func(context.Context) error { return errors.New("db down") })
	expectStatus(t, down.do(http.MethodGet, "/ready", "", nil), http.StatusServiceUnavailable)
}

func TestRouter_Auth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": testPassword})
	expectStatus(t, rec, http.StatusOK)
	tokens := decodeData[struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		Role         string `json:"role"`
	}](t, rec)
	if tokens.Role != string(domain.RolePatient) {
		t.Errorf("role = %q", tokens.Role)
	}

	rec = s.do(http.MethodGet, "/api/v1/auth/me", tokens.AccessToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if me := decodeData[userResponse](t, rec); me.Username != "alice" || me.ID != s.users["alice"].ID.String() {
		t.Errorf("me = %+v", me)
	}

	rec = s.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": tokens.AccessToken})
	expectStatus(t, rec, http.StatusUnauthorized)

	expectStatus(t, s.do(http.MethodGet, "/api/v1/appointments", "", nil), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodGet, "/api/v1/appointments", "not-a-jwt", nil), http.StatusUnauthorized)
}

func TestRouter_AppointmentLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.login("alice")
	bob := s.login("bob")
	house := s.login("drhouse")
	wilson := s.login("drwilson")

	future := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)

	rec := s.do(http.MethodPost, "/api/v1/appointments", alice, map[string]any{
		"appointmentDate": time.Now().Add(-time.Hour),
		"reason":          "checkup",
	})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(http.MethodPost, "/api/v1/appointments", alice, map[string]any{"reason": "no date"})
	expectStatus(t, rec, http.StatusBadRequest)

	// Practitioners cannot book.
	rec = s.do(http.MethodPost, "/api/v1/appointments", house, map[string]any{"appointmentDate": future})
	expectStatus(t, rec, http.StatusForbidden)

	rec = s.do(http.MethodPost, "/api/v1/appointments", alice, map[string]any{
		"appointmentDate": future,
		"reason":          "checkup",
	})
	expectStatus(t, rec, http.StatusCreated)
	created := decodeData[appointmentResponse](t, rec)
	if created.Status != "SCHEDULED" || created.Reason != "checkup" {
		t.Errorf("created = %+v", created)
	}
	if created.PatientID != s.users["alice"].ID || created.PractitionerID != s.users["drhouse"].ID {
		t.Errorf("parties = %s / %s", created.PatientID, created.PractitionerID)
	}
	if created.PatientUsername != "alice" || created.PractitionerUsername != "drhouse" {
		t.Errorf("usernames = %q / %q", created.PatientUsername, created.PractitionerUsername)
	}
	if !created.AppointmentDate.Equal(future) {
		t.Errorf("appointmentDate = %v, want %v", created.AppointmentDate, future)
	}
	path := "/api/v1/appointments/" + created.ID.String()

	rec = s.do(http.MethodGet, "/api/v1/appointments/practitioner", house, nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeData[[]appointmentResponse](t, rec); len(list) != 1 || list[0].ID != created.ID || list[0].PatientUsername != "alice" {
		t.Errorf("practitioner list = %+v", list)
	}

	rec = s.do(http.MethodGet, "/api/v1/appointments", bob, nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeData[[]appointmentResponse](t, rec); len(list) != 0 {
		t.Errorf("bob sees %d appointments", len(list))
	}

	expectStatus(t, s.do(http.MethodGet, path, alice, nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, path, house, nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, path, bob, nil), http.StatusForbidden)

	// Role gate, then party check.
	expectStatus(t, s.do(http.MethodPut, path+"/accept", alice, nil), http.StatusForbidden)
	expectStatus(t, s.do(http.MethodPut, path+"/accept", wilson, nil), http.StatusForbidden)

	rec = s.do(http.MethodPut, path+"/accept", house, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeData[appointmentResponse](t, rec).Status; got != "CONFIRMED" {
		t.Errorf("after accept = %s", got)
	}

	rec = s.do(http.MethodPut, path+"/complete", house, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeData[appointmentResponse](t, rec).Status; got != "COMPLETED" {
		t.Errorf("after complete = %s", got)
	}

	expectStatus(t, s.do(http.MethodPut, path+"/accept", house, nil), http.StatusConflict)
	expectStatus(t, s.do(http.MethodDelete, path, alice, nil), http.StatusConflict)

	expectStatus(t, s.do(http.MethodGet, "/api/v1/appointments/not-a-uuid", alice, nil), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodGet, "/api/v1/appointments/"+uuid.NewString(), alice, nil), http.StatusNotFound)
}

func TestRouter_RescheduleAndCancel(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.login("alice")
	house := s.login("drhouse")

	rec := s.do(http.MethodPost, "/api/v1/appointments", alice, map[string]any{
		"appointmentDate": time.Now().Add(24 * time.Hour),
		"reason":          "toothache",
	})
	expectStatus(t, rec, http.StatusCreated)
	path := "/api/v1/appointments/" + decodeData[appointmentResponse](t, rec).ID.String()

	later := time.Now().Add(96 * time.Hour).UTC().Truncate(time.Second)
	rec = s.do(http.MethodPut, path+"/reschedule", alice, map[string]any{"appointmentDate": later})
	expectStatus(t, rec, http.StatusOK)
	moved := decodeData[appointmentResponse](t, rec)
	if moved.Status != "RESCHEDULED" || moved.Reason != "toothache" || !moved.AppointmentDate.Equal(later) {
		t.Errorf("rescheduled = %+v", moved)
	}

	rec = s.do(http.MethodPut, path+"/reschedule", alice, map[string]any{"appointmentDate": time.Now().Add(-time.Minute)})
	expectStatus(t, rec, http.StatusBadRequest)

	expectStatus(t, s.do(http.MethodPut, path+"/accept", house, nil), http.StatusConflict)

	rec = s.do(http.MethodDelete, path, alice, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeData[appointmentResponse](t, rec).Status; got != "CANCELLED" {
		t.Errorf("after cancel = %s", got)
	}

	// The cancelled appointment is still listed.
	rec = s.do(http.MethodGet, "/api/v1/appointments", alice, nil)
	if list := decodeData[[]appointmentResponse](t, rec); len(list) != 1 || list[0].Status != "CANCELLED" {
		t.Errorf("list after cancel = %+v", list)
	}
}

func TestRouter_PatientRecords(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.login("alice")
	bob := s.login("bob")
	house := s.login("drhouse")
	wilson := s.login("drwilson")
	aliceID := s.users["alice"].ID.String()
	recordPath := "/api/v1/patient-records/patient/" + aliceID

	expectStatus(t, s.do(http.MethodGet, "/api/v1/patient-records/me", alice, nil), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodGet, recordPath, house, nil), http.StatusNotFound)

	rec := s.do(http.MethodGet, recordPath+"/exists", house, nil)
	expectStatus(t, rec, http.StatusOK)
	if decodeData[bool](t, rec) {
		t.Error("exists before create")
	}

	body := map[string]any{
		"patientId":   aliceID,
		"firstName":   "Alice",
		"lastName":    "Liddell",
		"dateOfBirth": "1990-05-01",
		"allergies":   "pollen",
		"phone":       "555-0100",
	}

	expectStatus(t, s.do(http.MethodPost, "/api/v1/patient-records", alice, body), http.StatusForbidden)

	badDate := map[string]any{"patientId": aliceID, "dateOfBirth": "01/05/1990"}
	expectStatus(t, s.do(http.MethodPost, "/api/v1/patient-records", house, badDate), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPost, "/api/v1/patient-records", house, map[string]any{"firstName": "x"}), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPost, "/api/v1/patient-records", house, map[string]any{"patientId": uuid.NewString()}), http.StatusNotFound)
	// A practitioner cannot be the subject of a patient record.
	expectStatus(t, s.do(http.MethodPost, "/api/v1/patient-records", house, map[string]any{"patientId": s.users["drwilson"].ID}), http.StatusNotFound)

	rec = s.do(http.MethodPost, "/api/v1/patient-records", house, body)
	expectStatus(t, rec, http.StatusCreated)
	created := decodeData[patientRecordResponse](t, rec)
	if created.FirstName != "Alice" || created.DateOfBirth == nil || *created.DateOfBirth != "1990-05-01" {
		t.Errorf("created = %+v", created)
	}
	if created.PractitionerID == nil || *created.PractitionerID != s.users["drhouse"].ID {
		t.Errorf("practitioner = %v", created.PractitionerID)
	}
	if created.PatientUsername != "alice" || created.PractitionerUsername == nil || *created.PractitionerUsername != "drhouse" {
		t.Errorf("usernames = %q / %v", created.PatientUsername, created.PractitionerUsername)
	}

	body["firstName"] = "Overwritten"
	expectStatus(t, s.do(http.MethodPost, "/api/v1/patient-records", wilson, body), http.StatusConflict)

	rec = s.do(http.MethodGet, "/api/v1/patient-records/me", alice, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeData[patientRecordResponse](t, rec); got.FirstName != "Alice" {
		t.Errorf("duplicate create changed the record: %+v", got)
	}
	expectStatus(t, s.do(http.MethodGet, "/api/v1/patient-records/me", bob, nil), http.StatusNotFound)

	// Absent keys stay, null and "" clear.
	rec = s.do(http.MethodPut, recordPath, wilson, `{"allergies": null, "phone": "", "dentalNotes": "filling on 36"}`)
	expectStatus(t, rec, http.StatusOK)
	updated := decodeData[patientRecordResponse](t, rec)
	if updated.FirstName != "Alice" || updated.LastName != "Liddell" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if updated.Allergies != "" || updated.Phone != "" || updated.DentalNotes != "filling on 36" {
		t.Errorf("merge result: %+v", updated)
	}
	if updated.DateOfBirth == nil || *updated.DateOfBirth != "1990-05-01" {
		t.Errorf("dateOfBirth changed: %v", updated.DateOfBirth)
	}
	if updated.PractitionerID == nil || *updated.PractitionerID != s.users["drwilson"].ID {
		t.Errorf("practitioner after update = %v", updated.PractitionerID)
	}
	if updated.PractitionerUsername == nil || *updated.PractitionerUsername != "drwilson" {
		t.Errorf("practitioner username after update = %v", updated.PractitionerUsername)
	}
	if updated.ID != created.ID || updated.PatientID != created.PatientID {
		t.Errorf("identity changed: %s/%s", updated.ID, updated.PatientID)
	}

	rec = s.do(http.MethodPut, recordPath, house, `{"dateOfBirth": ""}`)
	expectStatus(t, rec, http.StatusOK)
	if dob := decodeData[patientRecordResponse](t, rec).DateOfBirth; dob != nil {
		t.Errorf("dateOfBirth not cleared: %s", *dob)
	}

	expectStatus(t, s.do(http.MethodPut, recordPath, house, `{"dateOfBirth": "yesterday"}`), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPut, "/api/v1/patient-records/patient/"+s.users["bob"].ID.String(), house, `{"phone": "1"}`), http.StatusNotFound)

	rec = s.do(http.MethodGet, "/api/v1/patient-records", house, nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeData[[]patientRecordResponse](t, rec); len(list) != 1 {
		t.Errorf("list = %d records", len(list))
	}
	expectStatus(t, s.do(http.MethodGet, "/api/v1/patient-records", alice, nil), http.StatusForbidden)

	rec = s.do(http.MethodGet, recordPath+"/exists", house, nil)
	if !decodeData[bool](t, rec) {
		t.Error("exists after create = false")
	}
}

func TestRouter_PatientRecordUpdateValidation(t *testing.T) {
	s := newTestServer(t, nil)
	house := s.login("drhouse")
	aliceID := s.users["alice"].ID.String()
	recordPath := "/api/v1/patient-records/patient/" + aliceID

	rec := s.do(http.MethodPost, "/api/v1/patient-records", house, map[string]any{
		"patientId": aliceID,
		"bloodType": "O+",
		"email":     "alice@example.com",
	})
	expectStatus(t, rec, http.StatusCreated)

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"over-long and malformed", `{"bloodType": "ABCDEFGH", "email": "not-an-email"}`, []string{"bloodType", "email"}},
		{"over-long name", `{"firstName": "` + strings.Repeat("x", 101) + `"}`, []string{"firstName"}},
		{"over-long phone", `{"phone": "` + strings.Repeat("9", 31) + `"}`, []string{"phone"}},
		{"empty body", `{}`, []string{"at least one field"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPut, recordPath, house, tt.body)
			expectStatus(t, rec, http.StatusBadRequest)

			var resp ValidationErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode %s: %v", rec.Body, err)
			}
			joined := strings.Join(resp.Fields, "; ")
			for _, f := range tt.fields {
				if !strings.Contains(joined, f) {
					t.Errorf("fields %q do not mention %q", resp.Fields, f)
				}
			}
		})
	}

	rec = s.do(http.MethodGet, recordPath, house, nil)
	expectStatus(t, rec, http.StatusOK)
	got := decodeData[patientRecordResponse](t, rec)
	if got.BloodType != "O+" || got.Email != "alice@example.com" || got.FirstName != "" {
		t.Errorf("rejected updates were applied: %+v", got)
	}

	// Clearing the email with null or "" stays valid.
	rec = s.do(http.MethodPut, recordPath, house, `{"email": null, "bloodType": "AB-"}`)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeData[patientRecordResponse](t, rec); got.Email != "" || got.BloodType != "AB-" {
		t.Errorf("after valid update: %+v", got)
	}
}
