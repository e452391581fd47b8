package appointment

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// State transitions possibilities:
//
//	scheduled → confirmed → completed      (practitioner)
//	scheduled → rejected                   (practitioner)
//	any but cancelled/completed → cancelled   (patient)
//	any but cancelled/completed → rescheduled (patient)
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusRejected    Status = "REJECTED"
	StatusCancelled   Status = "CANCELLED"
	StatusCompleted   Status = "COMPLETED"
	StatusRescheduled Status = "RESCHEDULED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusRejected, StatusCancelled, StatusCompleted, StatusRescheduled:
		return true
	}
	return false
}

type Action string

const (
	ActionAccept     Action = "accept"
	ActionReject     Action = "reject"
	ActionComplete   Action = "complete"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
)

// Party is the role a user plays on a specific appointment.
type Party int

const (
	PartyNone Party = iota
	PartyPatient
	PartyPractitioner
)

func (p Party) String() string {
	switch p {
	case PartyPatient:
		return "patient"
	case PartyPractitioner:
		return "practitioner"
	}
	return "none"
}

type rule struct {
	actor Party
	from  []Status
	to    Status
}

// Patients may withdraw or move anything that has not been cancelled or completed.
var patientOpen = []Status{StatusScheduled, StatusConfirmed, StatusRejected, StatusRescheduled}

var transitions = map[Action]rule{
	ActionAccept:     {actor: PartyPractitioner, from: []Status{StatusScheduled}, to: StatusConfirmed},
	ActionReject:     {actor: PartyPractitioner, from: []Status{StatusScheduled}, to: StatusRejected},
	ActionComplete:   {actor: PartyPractitioner, from: []Status{StatusConfirmed}, to: StatusCompleted},
	ActionCancel:     {actor: PartyPatient, from: patientOpen, to: StatusCancelled},
	ActionReschedule: {actor: PartyPatient, from: patientOpen, to: StatusRescheduled},
}

// NextStatus returns the status reached by applying action from status.
func NextStatus(from Status, action Action) (Status, bool) {
	r, ok := transitions[action]
	if !ok || !slices.Contains(r.from, from) {
		return from, false
	}
	return r.to, true
}

// ActorFor returns the party allowed to perform action.
func ActorFor(action Action) Party {
	return transitions[action].actor
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index;<-:create"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID      uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index;<-:create"`
	PractitionerID uuid.UUID `gorm:"column:practitioner_id;type:uuid;not null;index;<-:create"`

	ScheduledAt time.Time `gorm:"column:scheduled_at;not null;index"`
	Reason      string    `gorm:"column:reason;type:varchar(500)"`
	Status      Status    `gorm:"column:status;type:varchar(30);not null;default:'SCHEDULED';index"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

// IsParty reports which side of the appointment userID is bound to.
func IsParty(userID uuid.UUID, a *Appointment) Party {
	switch userID {
	case a.PatientID:
		return PartyPatient
	case a.PractitionerID:
		return PartyPractitioner
	}
	return PartyNone
}

// authorize checks identity first, then the transition table.
func (a *Appointment) authorize(actorID uuid.UUID, action Action) (Status, error) {
	if IsParty(actorID, a) != ActorFor(action) {
		return a.Status, ErrNotParty
	}
	next, ok := NextStatus(a.Status, action)
	if !ok {
		return a.Status, &TransitionError{From: a.Status, Action: action}
	}
	return next, nil
}

func (a *Appointment) transition(actorID uuid.UUID, action Action) error {
	next, err := a.authorize(actorID, action)
	if err != nil {
		return err
	}
	a.Status = next
	return nil
}

func (a *Appointment) Accept(practitionerID uuid.UUID) error {
	return a.transition(practitionerID, ActionAccept)
}

func (a *Appointment) Reject(practitionerID uuid.UUID) error {
	return a.transition(practitionerID, ActionReject)
}

func (a *Appointment) Complete(practitionerID uuid.UUID) error {
	return a.transition(practitionerID, ActionComplete)
}

func (a *Appointment) Cancel(patientID uuid.UUID) error {
	return a.transition(patientID, ActionCancel)
}

// Reschedule moves the appointment to cmd.ScheduledAt. The reason is only
// replaced when a non-empty one is supplied.
func (a *Appointment) Reschedule(patientID uuid.UUID, cmd *RescheduleAppointmentCommand) error {
	next, err := a.authorize(patientID, ActionReschedule)
	if err != nil {
		return err
	}
	a.ScheduledAt = cmd.ScheduledAt
	if cmd.Reason != "" {
		a.Reason = cmd.Reason
	}
	a.Status = next
	return nil
}

type CreateAppointmentCommand struct {
	ScheduledAt time.Time
	Reason      string
}

type RescheduleAppointmentCommand struct {
	ScheduledAt time.Time
	Reason      string
}
