package lead

import (
	"strings"
	"time"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
)

// Statuses set by the service itself; the others come from the "lead.status" dropdown.
const (
	StatusNew       = "new"
	StatusConverted = "converted"
	StatusLost      = "lost"

	SourceEvent = "event"
)

type Lead struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Source            string    `json:"source"`
	Status            string    `json:"status"`
	InterestedCountry string    `json:"interested_country"`
	InterestedProgram string    `json:"interested_program"`
	StudyLevel        string    `json:"study_level"`
	Intake            string    `json:"intake"`
	Notes             string    `json:"notes"`
	AssignedTo        string    `json:"assigned_to"`
	StudentID         string    `json:"student_id"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at"` // UTC
}

func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

func (l Lead) IsConverted() bool {
	return l.StudentID != ""
}

// NewLead contains information needed to create a new Lead.
type NewLead struct {
	FirstName         string `json:"first_name" validate:"required,notblank,max=100"`
	LastName          string `json:"last_name" validate:"max=100"`
	Email             string `json:"email" validate:"omitempty,email,max=254"`
	Phone             string `json:"phone" validate:"omitempty,phone"`
	Source            string `json:"source" validate:"max=50"`
	Status            string `json:"status" validate:"max=50"`
	InterestedCountry string `json:"interested_country" validate:"max=100"`
	InterestedProgram string `json:"interested_program" validate:"max=200"`
	StudyLevel        string `json:"study_level" validate:"max=50"`
	Intake            string `json:"intake" validate:"max=50"`
	Notes             string `json:"notes" validate:"max=5000"`
	AssignedTo        string `json:"assigned_to" validate:"omitempty,uuid"`
}

func (nl *NewLead) Clean() {
	nl.FirstName = core.CleanString(nl.FirstName)
	nl.LastName = core.CleanString(nl.LastName)
	nl.Email = core.CleanEmail(nl.Email)
	nl.Phone = core.CleanPhone(nl.Phone)
	nl.Source = core.CleanString(nl.Source)
	nl.Status = core.CleanString(nl.Status)
	nl.InterestedCountry = core.CleanString(nl.InterestedCountry)
	nl.InterestedProgram = core.CleanString(nl.InterestedProgram)
	nl.StudyLevel = core.CleanString(nl.StudyLevel)
	nl.Intake = core.CleanString(nl.Intake)
	nl.Notes = core.CleanString(nl.Notes)
	nl.AssignedTo = core.CleanString(nl.AssignedTo)
}

// UpdateLead defines what information may be provided to modify an existing Lead.
// Nil fields are left untouched.
type UpdateLead struct {
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	Source            *string `json:"source"`
	Status            *string `json:"status"`
	InterestedCountry *string `json:"interested_country"`
	InterestedProgram *string `json:"interested_program"`
	StudyLevel        *string `json:"study_level"`
	Intake            *string `json:"intake"`
	Notes             *string `json:"notes"`
	AssignedTo        *string `json:"assigned_to"`
}

// apply applies ul to a copy of l.
func (ul UpdateLead) apply(l Lead) (Lead, activity.ChangeSet) {
	var cs activity.ChangeSet
	clean := func(s *string, fn func(string) string) *string {
		if s == nil {
			return nil
		}
		v := fn(*s)
		return &v
	}
	trim := func(s string) string { return core.CleanString(s) }

	cs.SetString("first_name", &l.FirstName, clean(ul.FirstName, trim))
	cs.SetString("last_name", &l.LastName, clean(ul.LastName, trim))
	cs.SetString("email", &l.Email, clean(ul.Email, core.CleanEmail))
	cs.SetString("phone", &l.Phone, clean(ul.Phone, core.CleanPhone))
	cs.SetString("source", &l.Source, clean(ul.Source, trim))
	cs.SetString("status", &l.Status, clean(ul.Status, trim))
	cs.SetString("interested_country", &l.InterestedCountry, clean(ul.InterestedCountry, trim))
	cs.SetString("interested_program", &l.InterestedProgram, clean(ul.InterestedProgram, trim))
	cs.SetString("study_level", &l.StudyLevel, clean(ul.StudyLevel, trim))
	cs.SetString("intake", &l.Intake, clean(ul.Intake, trim))
	cs.SetString("notes", &l.Notes, clean(ul.Notes, trim))
	cs.SetString("assigned_to", &l.AssignedTo, clean(ul.AssignedTo, trim))
	return l, cs
}

func (l Lead) toNew() NewLead {
	return NewLead{
		FirstName:         l.FirstName,
		LastName:          l.LastName,
		Email:             l.Email,
		Phone:             l.Phone,
		Source:            l.Source,
		Status:            l.Status,
		InterestedCountry: l.InterestedCountry,
		InterestedProgram: l.InterestedProgram,
		StudyLevel:        l.StudyLevel,
		Intake:            l.Intake,
		Notes:             l.Notes,
		AssignedTo:        l.AssignedTo,
	}
}

// ConvertLead holds the student fields not found on a Lead, needed to convert it.
// LastName and Email override the lead's values, which a student requires.
type ConvertLead struct {
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	DateOfBirth      string `json:"date_of_birth"`
	Nationality      string `json:"nationality"`
	PassportNumber   string `json:"passport_number"`
	Address          string `json:"address"`
	EducationLevel   string `json:"education_level"`
	PreferredCountry string `json:"preferred_country"`
	AssignedTo       string `json:"assigned_to"`
}

type QueryFilter struct {
	Search      string
	Statuses    []string
	Source      string
	AssignedTo  string
	Converted   *bool
	CreatedFrom time.Time
	CreatedTo   time.Time

	// VisibleTo restricts the results to leads assigned to or created by this user.
	VisibleTo string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Source = core.CleanString(qf.Source)
	qf.AssignedTo = core.CleanString(qf.AssignedTo)
}

// Duplicates lists the leads sharing an email or a phone with a candidate lead.
type Duplicates struct {
	Email []string `json:"email"`
	Phone []string `json:"phone"`
}

func (d Duplicates) Any() bool {
	return len(d.Email) > 0 || len(d.Phone) > 0
}
