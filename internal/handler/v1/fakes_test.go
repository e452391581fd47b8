package v1

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/appointment"
	mr "github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/service"
)

type memDirectory struct {
	mu    sync.Mutex
	users []*domain.User
}

func (d *memDirectory) find(match func(u *domain.User) bool) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, service.ErrUserNotFound
}

func (d *memDirectory) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return d.find(func(u *domain.User) bool { return u.Username == username })
}

func (d *memDirectory) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return d.find(func(u *domain.User) bool { return u.ID == id })
}

func (d *memDirectory) FindFirstByRole(_ context.Context, role domain.Role) (*domain.User, error) {
	return d.find(func(u *domain.User) bool { return u.Role == role })
}

func (d *memDirectory) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := d.FindByUsername(ctx, username)
	return err == nil, nil
}

func (d *memDirectory) UsernamesByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		for _, u := range d.users {
			if u.ID == id {
				out[id] = u.Username
			}
		}
	}
	return out, nil
}

func (d *memDirectory) Create(_ context.Context, u *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	d.users = append(d.users, u)
	return nil
}

type memAppointments struct {
	mu    sync.Mutex
	appts map[uuid.UUID]appointment.Appointment
}

func newMemAppointments() *memAppointments {
	return &memAppointments{appts: make(map[uuid.UUID]appointment.Appointment)}
}

func (m *memAppointments) Create(_ context.Context, a *appointment.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.UpdatedAt = a.CreatedAt
	m.appts[a.ID] = *a
	return nil
}

func (m *memAppointments) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memAppointments) list(match func(a appointment.Appointment) bool) []*appointment.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range m.appts {
		if match(a) {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out
}

func (m *memAppointments) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	return m.list(func(a appointment.Appointment) bool { return a.PatientID == patientID }), nil
}

func (m *memAppointments) ListByPractitioner(_ context.Context, practitionerID uuid.UUID) ([]*appointment.Appointment, error) {
	return m.list(func(a appointment.Appointment) bool { return a.PractitionerID == practitionerID }), nil
}

func (m *memAppointments) Transition(_ context.Context, id uuid.UUID, fn func(a *appointment.Appointment) error) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err := fn(&a); err != nil {
		return nil, err
	}
	a.UpdatedAt = time.Now()
	m.appts[id] = a
	return &a, nil
}

type memRecords struct {
	mu        sync.Mutex
	records   map[uuid.UUID]mr.PatientRecord
	directory *memDirectory
}

func newMemRecords(d *memDirectory) *memRecords {
	return &memRecords{records: make(map[uuid.UUID]mr.PatientRecord), directory: d}
}

func (m *memRecords) Create(_ context.Context, r *mr.PatientRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.PatientID]; ok {
		return mr.ErrRecordAlreadyExists
	}
	r.ID = uuid.New()
	m.records[r.PatientID] = *r
	return nil
}

func (m *memRecords) GetByPatientID(_ context.Context, patientID uuid.UUID) (*mr.PatientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[patientID]
	if !ok {
		return nil, mr.ErrRecordNotFound
	}
	return &r, nil
}

func (m *memRecords) GetByPatientUsername(ctx context.Context, username string) (*mr.PatientRecord, error) {
	u, err := m.directory.FindByUsername(ctx, username)
	if err != nil {
		return nil, mr.ErrRecordNotFound
	}
	return m.GetByPatientID(ctx, u.ID)
}

func (m *memRecords) ExistsByPatientID(_ context.Context, patientID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[patientID]
	return ok, nil
}

func (m *memRecords) List(_ context.Context) ([]*mr.PatientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*mr.PatientRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, &r)
	}
	return out, nil
}

func (m *memRecords) UpdateByPatientID(_ context.Context, patientID uuid.UUID, fn func(r *mr.PatientRecord) error) (*mr.PatientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[patientID]
	if !ok {
		return nil, mr.ErrRecordNotFound
	}
	if err := fn(&r); err != nil {
		return nil, err
	}
	m.records[patientID] = r
	return &r, nil
}
