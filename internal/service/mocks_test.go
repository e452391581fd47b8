package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/appointment"
	mr "github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
)

// -- Mock Directory --

type mockDirectory struct {
	mu    sync.Mutex
	users []*domain.User
	err   error
	// batchLookups counts UsernamesByID calls.
	batchLookups int
}

func newMockDirectory(users ...*domain.User) *mockDirectory {
	return &mockDirectory{users: users}
}

func (m *mockDirectory) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockDirectory) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockDirectory) FindFirstByRole(_ context.Context, role domain.Role) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Role == role {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockDirectory) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	if err == ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *mockDirectory) UsernamesByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchLookups++
	if m.err != nil {
		return nil, m.err
	}
	names := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		for _, u := range m.users {
			if u.ID == id {
				names[id] = u.Username
			}
		}
	}
	return names, nil
}

func (m *mockDirectory) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users = append(m.users, u)
	return nil
}

// -- Mock Appointment Repository --

type mockAppointmentRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*appointment.Appointment
	saves int
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appts: make(map[uuid.UUID]*appointment.Appointment)}
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *appointment.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) list(match func(a *appointment.Appointment) bool) []*appointment.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range m.appts {
		if match(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out
}

func (m *mockAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	return m.list(func(a *appointment.Appointment) bool { return a.PatientID == patientID }), nil
}

func (m *mockAppointmentRepo) ListByPractitioner(_ context.Context, practitionerID uuid.UUID) ([]*appointment.Appointment, error) {
	return m.list(func(a *appointment.Appointment) bool { return a.PractitionerID == practitionerID }), nil
}

// Transition holds the lock for the whole read-modify-write, like the row
// lock in the gorm repository.
func (m *mockAppointmentRepo) Transition(_ context.Context, id uuid.UUID, fn func(a *appointment.Appointment) error) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	work := *stored
	if err := fn(&work); err != nil {
		return nil, err
	}
	work.UpdatedAt = time.Now()
	m.appts[id] = &work
	m.saves++
	out := work
	return &out, nil
}

// -- Mock Patient Record Repository --

type mockRecordRepo struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*mr.PatientRecord // by patient id
	directory *mockDirectory
	// createHook runs before the uniqueness check in Create.
	createHook func()
}

func newMockRecordRepo(directory *mockDirectory) *mockRecordRepo {
	return &mockRecordRepo{records: make(map[uuid.UUID]*mr.PatientRecord), directory: directory}
}

func (m *mockRecordRepo) Create(_ context.Context, r *mr.PatientRecord) error {
	if m.createHook != nil {
		m.createHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.PatientID]; ok {
		return mr.ErrRecordAlreadyExists
	}
	r.ID = uuid.New()
	cp := *r
	m.records[r.PatientID] = &cp
	return nil
}

func (m *mockRecordRepo) GetByPatientID(_ context.Context, patientID uuid.UUID) (*mr.PatientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[patientID]
	if !ok {
		return nil, mr.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRecordRepo) GetByPatientUsername(ctx context.Context, username string) (*mr.PatientRecord, error) {
	u, err := m.directory.FindByUsername(ctx, username)
	if err != nil {
		return nil, mr.ErrRecordNotFound
	}
	return m.GetByPatientID(ctx, u.ID)
}

func (m *mockRecordRepo) ExistsByPatientID(_ context.Context, patientID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[patientID]
	return ok, nil
}

func (m *mockRecordRepo) List(_ context.Context) ([]*mr.PatientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*mr.PatientRecord, 0, len(m.records))
	for _, r := range m.records {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRecordRepo) UpdateByPatientID(_ context.Context, patientID uuid.UUID, fn func(r *mr.PatientRecord) error) (*mr.PatientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[patientID]
	if !ok {
		return nil, mr.ErrRecordNotFound
	}
	work := *stored
	if err := fn(&work); err != nil {
		return nil, err
	}
	m.records[patientID] = &work
	out := work
	return &out, nil
}

// -- Fixtures --

func newUser(username string, role domain.Role) *domain.User {
	return &domain.User{ID: uuid.New(), Username: username, Role: role}
}

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollector("medbook-test", prometheus.NewRegistry())
}

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}
