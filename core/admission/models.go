package admission

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
)

// Visa statuses stamping the visa dates.
const (
	VisaApplied  = "applied"
	VisaApproved = "approved"
	VisaRejected = "rejected"
)

type Admission struct {
	ID             string    `json:"id"`
	ApplicationID  string    `json:"application_id"`
	StudentID      string    `json:"student_id"`
	University     string    `json:"university"`
	Program        string    `json:"program"`
	Status         string    `json:"status"`
	DecisionDate   string    `json:"decision_date"` // YYYY-MM-DD
	TuitionFee     float64   `json:"tuition_fee"`
	DepositPaid    float64   `json:"deposit_paid"`
	VisaStatus     string    `json:"visa_status"`
	VisaAppliedAt  null.Time `json:"visa_applied_at"`
	VisaDecisionAt null.Time `json:"visa_decision_at"`
	VisaNotes      string    `json:"visa_notes"`
	Notes          string    `json:"notes"`
	AssignedTo     string    `json:"assigned_to"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewAdmission contains information needed to create a new Admission.
// University and Program default to the application's.
type NewAdmission struct {
	ApplicationID string  `json:"application_id" validate:"required,uuid"`
	University    string  `json:"university" validate:"max=200"`
	Program       string  `json:"program" validate:"max=200"`
	Status        string  `json:"status" validate:"max=50"`
	DecisionDate  string  `json:"decision_date" validate:"omitempty,datetime=2006-01-02"`
	TuitionFee    float64 `json:"tuition_fee" validate:"min=0"`
	DepositPaid   float64 `json:"deposit_paid" validate:"min=0"`
	VisaStatus    string  `json:"visa_status" validate:"max=50"`
	VisaNotes     string  `json:"visa_notes" validate:"max=5000"`
	Notes         string  `json:"notes" validate:"max=5000"`
}

func (na *NewAdmission) Clean() {
	na.ApplicationID = core.CleanString(na.ApplicationID)
	na.University = core.CleanString(na.University)
	na.Program = core.CleanString(na.Program)
	na.Status = core.CleanString(na.Status)
	na.DecisionDate = core.CleanString(na.DecisionDate)
	na.VisaStatus = core.CleanString(na.VisaStatus)
	na.VisaNotes = core.CleanString(na.VisaNotes)
	na.Notes = core.CleanString(na.Notes)
}

// UpdateAdmission defines what information may be provided to modify an existing Admission.
type UpdateAdmission struct {
	University   *string  `json:"university"`
	Program      *string  `json:"program"`
	Status       *string  `json:"status"`
	DecisionDate *string  `json:"decision_date"`
	TuitionFee   *float64 `json:"tuition_fee"`
	DepositPaid  *float64 `json:"deposit_paid"`
	VisaStatus   *string  `json:"visa_status"`
	VisaNotes    *string  `json:"visa_notes"`
	Notes        *string  `json:"notes"`
	AssignedTo   *string  `json:"assigned_to"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := core.CleanString(*s)
	return &v
}

func (ua UpdateAdmission) apply(adm Admission) (Admission, activity.ChangeSet) {
	var cs activity.ChangeSet
	cs.SetString("university", &adm.University, trimmed(ua.University))
	cs.SetString("program", &adm.Program, trimmed(ua.Program))
	cs.SetString("status", &adm.Status, trimmed(ua.Status))
	cs.SetString("decision_date", &adm.DecisionDate, trimmed(ua.DecisionDate))
	cs.SetFloat("tuition_fee", &adm.TuitionFee, ua.TuitionFee)
	cs.SetFloat("deposit_paid", &adm.DepositPaid, ua.DepositPaid)
	cs.SetString("visa_status", &adm.VisaStatus, trimmed(ua.VisaStatus))
	cs.SetString("visa_notes", &adm.VisaNotes, trimmed(ua.VisaNotes))
	cs.SetString("notes", &adm.Notes, trimmed(ua.Notes))
	cs.SetString("assigned_to", &adm.AssignedTo, trimmed(ua.AssignedTo))
	return adm, cs
}

type editable struct {
	University   string  `json:"university" validate:"max=200"`
	Program      string  `json:"program" validate:"max=200"`
	DecisionDate string  `json:"decision_date" validate:"omitempty,datetime=2006-01-02"`
	TuitionFee   float64 `json:"tuition_fee" validate:"min=0"`
	DepositPaid  float64 `json:"deposit_paid" validate:"min=0"`
	VisaNotes    string  `json:"visa_notes" validate:"max=5000"`
	Notes        string  `json:"notes" validate:"max=5000"`
	AssignedTo   string  `json:"assigned_to" validate:"omitempty,uuid"`
}

func (adm Admission) editable() editable {
	return editable{
		University:   adm.University,
		Program:      adm.Program,
		DecisionDate: adm.DecisionDate,
		TuitionFee:   adm.TuitionFee,
		DepositPaid:  adm.DepositPaid,
		VisaNotes:    adm.VisaNotes,
		Notes:        adm.Notes,
		AssignedTo:   adm.AssignedTo,
	}
}

// stampVisaDates sets the visa dates matching the current visa status, when not already set.
func (adm *Admission) stampVisaDates(cs *activity.ChangeSet, now time.Time) {
	switch adm.VisaStatus {
	case VisaApplied:
		if !adm.VisaAppliedAt.Valid {
			cs.SetNullTime("visa_applied_at", &adm.VisaAppliedAt, &now)
		}
	case VisaApproved, VisaRejected:
		if !adm.VisaDecisionAt.Valid {
			cs.SetNullTime("visa_decision_at", &adm.VisaDecisionAt, &now)
		}
	}
}

type QueryFilter struct {
	Search        string // university or program
	Statuses      []string
	VisaStatuses  []string
	ApplicationID string
	StudentID     string
	AssignedTo    string
	CreatedFrom   time.Time
	CreatedTo     time.Time

	// VisibleTo restricts the results to admissions assigned to this user.
	VisibleTo string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ApplicationID = core.CleanString(qf.ApplicationID)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.AssignedTo = core.CleanString(qf.AssignedTo)
}
