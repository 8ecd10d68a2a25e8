package application

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
)

const StatusSubmitted = "submitted"

type Application struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	University     string    `json:"university"`
	Program        string    `json:"program"`
	Country        string    `json:"country"`
	Intake         string    `json:"intake"`
	Status         string    `json:"status"`
	ApplicationFee float64   `json:"application_fee"`
	SubmittedAt    null.Time `json:"submitted_at"`
	Notes          string    `json:"notes"`
	AssignedTo     string    `json:"assigned_to"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewApplication contains information needed to create a new Application.
type NewApplication struct {
	StudentID      string     `json:"student_id" validate:"required,uuid"`
	University     string     `json:"university" validate:"required,notblank,max=200"`
	Program        string     `json:"program" validate:"required,notblank,max=200"`
	Country        string     `json:"country" validate:"max=100"`
	Intake         string     `json:"intake" validate:"max=50"`
	Status         string     `json:"status" validate:"max=50"`
	ApplicationFee float64    `json:"application_fee" validate:"min=0"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	Notes          string     `json:"notes" validate:"max=5000"`
}

func (na *NewApplication) Clean() {
	na.StudentID = core.CleanString(na.StudentID)
	na.University = core.CleanString(na.University)
	na.Program = core.CleanString(na.Program)
	na.Country = core.CleanString(na.Country)
	na.Intake = core.CleanString(na.Intake)
	na.Status = core.CleanString(na.Status)
	na.Notes = core.CleanString(na.Notes)
}

// UpdateApplication defines what information may be provided to modify an existing Application.
// The student of an application cannot change.
type UpdateApplication struct {
	University     *string    `json:"university"`
	Program        *string    `json:"program"`
	Country        *string    `json:"country"`
	Intake         *string    `json:"intake"`
	Status         *string    `json:"status"`
	ApplicationFee *float64   `json:"application_fee"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	Notes          *string    `json:"notes"`
	AssignedTo     *string    `json:"assigned_to"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := core.CleanString(*s)
	return &v
}

func (ua UpdateApplication) apply(app Application) (Application, activity.ChangeSet) {
	var cs activity.ChangeSet
	cs.SetString("university", &app.University, trimmed(ua.University))
	cs.SetString("program", &app.Program, trimmed(ua.Program))
	cs.SetString("country", &app.Country, trimmed(ua.Country))
	cs.SetString("intake", &app.Intake, trimmed(ua.Intake))
	cs.SetString("status", &app.Status, trimmed(ua.Status))
	cs.SetFloat("application_fee", &app.ApplicationFee, ua.ApplicationFee)
	cs.SetNullTime("submitted_at", &app.SubmittedAt, ua.SubmittedAt)
	cs.SetString("notes", &app.Notes, trimmed(ua.Notes))
	cs.SetString("assigned_to", &app.AssignedTo, trimmed(ua.AssignedTo))
	return app, cs
}

// editable holds the validated attributes of an Application, checked after a partial update.
type editable struct {
	University     string  `json:"university" validate:"required,notblank,max=200"`
	Program        string  `json:"program" validate:"required,notblank,max=200"`
	Country        string  `json:"country" validate:"max=100"`
	Intake         string  `json:"intake" validate:"max=50"`
	ApplicationFee float64 `json:"application_fee" validate:"min=0"`
	Notes          string  `json:"notes" validate:"max=5000"`
	AssignedTo     string  `json:"assigned_to" validate:"omitempty,uuid"`
}

func (app Application) editable() editable {
	return editable{
		University:     app.University,
		Program:        app.Program,
		Country:        app.Country,
		Intake:         app.Intake,
		ApplicationFee: app.ApplicationFee,
		Notes:          app.Notes,
		AssignedTo:     app.AssignedTo,
	}
}

type QueryFilter struct {
	Search      string // university or program
	Statuses    []string
	StudentID   string
	AssignedTo  string
	Country     string
	CreatedFrom time.Time
	CreatedTo   time.Time

	// VisibleTo restricts the results to applications assigned to this user.
	VisibleTo string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.AssignedTo = core.CleanString(qf.AssignedTo)
	qf.Country = core.CleanString(qf.Country)
}
