package event

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
)

const StatusCancelled = "cancelled"

type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      null.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"` // 0: unlimited
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Name        string     `json:"name" validate:"required,notblank,max=200"`
	Type        string     `json:"type" validate:"max=50"`
	Description string     `json:"description" validate:"max=5000"`
	Location    string     `json:"location" validate:"max=200"`
	StartsAt    *time.Time `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    int        `json:"capacity" validate:"min=0"`
	Status      string     `json:"status" validate:"max=50"`
}

func (ne *NewEvent) Clean() {
	ne.Name = core.CleanString(ne.Name)
	ne.Type = core.CleanString(ne.Type)
	ne.Description = core.CleanString(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	ne.Status = core.CleanString(ne.Status)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
type UpdateEvent struct {
	Name        *string    `json:"name"`
	Type        *string    `json:"type"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"` // zero time clears it
	Capacity    *int       `json:"capacity"`
	Status      *string    `json:"status"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := core.CleanString(*s)
	return &v
}

func (ue UpdateEvent) apply(evt Event) (Event, activity.ChangeSet) {
	var cs activity.ChangeSet
	cs.SetString("name", &evt.Name, trimmed(ue.Name))
	cs.SetString("type", &evt.Type, trimmed(ue.Type))
	cs.SetString("description", &evt.Description, trimmed(ue.Description))
	cs.SetString("location", &evt.Location, trimmed(ue.Location))
	if ue.StartsAt != nil && !ue.StartsAt.IsZero() {
		cs.SetTime("starts_at", &evt.StartsAt, ue.StartsAt)
	}
	cs.SetNullTime("ends_at", &evt.EndsAt, ue.EndsAt)
	cs.SetInt("capacity", &evt.Capacity, ue.Capacity)
	cs.SetString("status", &evt.Status, trimmed(ue.Status))
	return evt, cs
}

func (evt Event) validate() error {
	if evt.EndsAt.Valid && evt.EndsAt.Time.Before(evt.StartsAt) {
		return core.NewFieldError("ends_at", "the end must not precede the start")
	}
	return nil
}

type editableEvent struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Location    string `json:"location" validate:"max=200"`
	Capacity    int    `json:"capacity" validate:"min=0"`
}

func (evt Event) editable() editableEvent {
	return editableEvent{Name: evt.Name, Description: evt.Description, Location: evt.Location, Capacity: evt.Capacity}
}

type QueryFilter struct {
	Search       string // name or location
	Statuses     []string
	Type         string
	StartsAfter  time.Time
	StartsBefore time.Time
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Type = core.CleanString(qf.Type)
}

type Registration struct {
	ID                string    `json:"id"`
	EventID           string    `json:"event_id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Status            string    `json:"status"`
	Source            string    `json:"source"`
	InterestedCountry string    `json:"interested_country"`
	Notes             string    `json:"notes"`
	LeadID            string    `json:"lead_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (reg Registration) FullName() string {
	return strings.TrimSpace(reg.FirstName + " " + reg.LastName)
}

// NewRegistration contains information needed to register someone to an Event.
type NewRegistration struct {
	EventID           string `json:"event_id" validate:"required,uuid"`
	FirstName         string `json:"first_name" validate:"required,notblank,max=100"`
	LastName          string `json:"last_name" validate:"max=100"`
	Email             string `json:"email" validate:"omitempty,email,max=254"`
	Phone             string `json:"phone" validate:"omitempty,phone"`
	Status            string `json:"status" validate:"max=50"`
	Source            string `json:"source" validate:"max=50"`
	InterestedCountry string `json:"interested_country" validate:"max=100"`
	Notes             string `json:"notes" validate:"max=5000"`
}

func (nr *NewRegistration) Clean() {
	nr.EventID = core.CleanString(nr.EventID)
	nr.FirstName = core.CleanString(nr.FirstName)
	nr.LastName = core.CleanString(nr.LastName)
	nr.Email = core.CleanEmail(nr.Email)
	nr.Phone = core.CleanPhone(nr.Phone)
	nr.Status = core.CleanString(nr.Status)
	nr.Source = core.CleanString(nr.Source)
	nr.InterestedCountry = core.CleanString(nr.InterestedCountry)
	nr.Notes = core.CleanString(nr.Notes)
}

// UpdateRegistration defines what information may be provided to modify an existing Registration.
type UpdateRegistration struct {
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	Status            *string `json:"status"`
	Source            *string `json:"source"`
	InterestedCountry *string `json:"interested_country"`
	Notes             *string `json:"notes"`
}

func (ur UpdateRegistration) apply(reg Registration) (Registration, activity.ChangeSet) {
	var cs activity.ChangeSet
	email, phone := ur.Email, ur.Phone
	if email != nil {
		email = core.StringPtr(core.CleanEmail(*email))
	}
	if phone != nil {
		phone = core.StringPtr(core.CleanPhone(*phone))
	}
	cs.SetString("first_name", &reg.FirstName, trimmed(ur.FirstName))
	cs.SetString("last_name", &reg.LastName, trimmed(ur.LastName))
	cs.SetString("email", &reg.Email, email)
	cs.SetString("phone", &reg.Phone, phone)
	cs.SetString("status", &reg.Status, trimmed(ur.Status))
	cs.SetString("source", &reg.Source, trimmed(ur.Source))
	cs.SetString("interested_country", &reg.InterestedCountry, trimmed(ur.InterestedCountry))
	cs.SetString("notes", &reg.Notes, trimmed(ur.Notes))
	return reg, cs
}

func (reg Registration) toNew() NewRegistration {
	return NewRegistration{
		EventID:           reg.EventID,
		FirstName:         reg.FirstName,
		LastName:          reg.LastName,
		Email:             reg.Email,
		Phone:             reg.Phone,
		Status:            reg.Status,
		Source:            reg.Source,
		InterestedCountry: reg.InterestedCountry,
		Notes:             reg.Notes,
	}
}

type RegistrationFilter struct {
	EventID   string
	Search    string
	Statuses  []string
	Converted *bool
}

func (rf *RegistrationFilter) Clean() {
	rf.EventID = core.CleanString(rf.EventID)
	rf.Search = core.CleanString(rf.Search)
}

// Duplicates lists the registrations of an event sharing an email or a phone with a candidate registration.
type Duplicates struct {
	Email []string `json:"email"`
	Phone []string `json:"phone"`
}
