package student

import (
	"strings"
	"time"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
)

type Student struct {
	ID               string    `json:"id"`
	LeadID           string    `json:"lead_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	DateOfBirth      string    `json:"date_of_birth"` // YYYY-MM-DD
	Nationality      string    `json:"nationality"`
	PassportNumber   string    `json:"passport_number"`
	Address          string    `json:"address"`
	EducationLevel   string    `json:"education_level"`
	EnglishTest      string    `json:"english_test"`
	EnglishScore     string    `json:"english_score"`
	PreferredCountry string    `json:"preferred_country"`
	Status           string    `json:"status"`
	ProfilePicture   string    `json:"profile_picture"`
	AssignedTo       string    `json:"assigned_to"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	LeadID           string `json:"lead_id" validate:"omitempty,uuid"`
	FirstName        string `json:"first_name" validate:"required,notblank,max=100"`
	LastName         string `json:"last_name" validate:"required,notblank,max=100"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Phone            string `json:"phone" validate:"omitempty,phone"`
	DateOfBirth      string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Nationality      string `json:"nationality" validate:"max=100"`
	PassportNumber   string `json:"passport_number" validate:"max=50"`
	Address          string `json:"address" validate:"max=500"`
	EducationLevel   string `json:"education_level" validate:"max=50"`
	EnglishTest      string `json:"english_test" validate:"max=50"`
	EnglishScore     string `json:"english_score" validate:"max=20"`
	PreferredCountry string `json:"preferred_country" validate:"max=100"`
	Status           string `json:"status" validate:"max=50"`
	AssignedTo       string `json:"assigned_to" validate:"omitempty,uuid"`
	Notes            string `json:"notes" validate:"max=5000"`
}

func (ns *NewStudent) Clean() {
	ns.LeadID = core.CleanString(ns.LeadID)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanEmail(ns.Email)
	ns.Phone = core.CleanPhone(ns.Phone)
	ns.DateOfBirth = core.CleanString(ns.DateOfBirth)
	ns.Nationality = core.CleanString(ns.Nationality)
	ns.PassportNumber = core.CleanString(ns.PassportNumber)
	ns.Address = core.CleanString(ns.Address)
	ns.EducationLevel = core.CleanString(ns.EducationLevel)
	ns.EnglishTest = core.CleanString(ns.EnglishTest)
	ns.EnglishScore = core.CleanString(ns.EnglishScore)
	ns.PreferredCountry = core.CleanString(ns.PreferredCountry)
	ns.Status = core.CleanString(ns.Status)
	ns.AssignedTo = core.CleanString(ns.AssignedTo)
	ns.Notes = core.CleanString(ns.Notes)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left untouched.
type UpdateStudent struct {
	FirstName        *string `json:"first_name"`
	LastName         *string `json:"last_name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	DateOfBirth      *string `json:"date_of_birth"`
	Nationality      *string `json:"nationality"`
	PassportNumber   *string `json:"passport_number"`
	Address          *string `json:"address"`
	EducationLevel   *string `json:"education_level"`
	EnglishTest      *string `json:"english_test"`
	EnglishScore     *string `json:"english_score"`
	PreferredCountry *string `json:"preferred_country"`
	Status           *string `json:"status"`
	AssignedTo       *string `json:"assigned_to"`
	Notes            *string `json:"notes"`
}

func cleaned(s *string, fn func(string) string) *string {
	if s == nil {
		return nil
	}
	v := fn(*s)
	return &v
}

func trim(s string) string { return core.CleanString(s) }

func (us UpdateStudent) apply(s Student) (Student, activity.ChangeSet) {
	var cs activity.ChangeSet
	cs.SetString("first_name", &s.FirstName, cleaned(us.FirstName, trim))
	cs.SetString("last_name", &s.LastName, cleaned(us.LastName, trim))
	cs.SetString("email", &s.Email, cleaned(us.Email, core.CleanEmail))
	cs.SetString("phone", &s.Phone, cleaned(us.Phone, core.CleanPhone))
	cs.SetString("date_of_birth", &s.DateOfBirth, cleaned(us.DateOfBirth, trim))
	cs.SetString("nationality", &s.Nationality, cleaned(us.Nationality, trim))
	cs.SetString("passport_number", &s.PassportNumber, cleaned(us.PassportNumber, trim))
	cs.SetString("address", &s.Address, cleaned(us.Address, trim))
	cs.SetString("education_level", &s.EducationLevel, cleaned(us.EducationLevel, trim))
	cs.SetString("english_test", &s.EnglishTest, cleaned(us.EnglishTest, trim))
	cs.SetString("english_score", &s.EnglishScore, cleaned(us.EnglishScore, trim))
	cs.SetString("preferred_country", &s.PreferredCountry, cleaned(us.PreferredCountry, trim))
	cs.SetString("status", &s.Status, cleaned(us.Status, trim))
	cs.SetString("assigned_to", &s.AssignedTo, cleaned(us.AssignedTo, trim))
	cs.SetString("notes", &s.Notes, cleaned(us.Notes, trim))
	return s, cs
}

func (s Student) toNew() NewStudent {
	return NewStudent{
		LeadID:           s.LeadID,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		Email:            s.Email,
		Phone:            s.Phone,
		DateOfBirth:      s.DateOfBirth,
		Nationality:      s.Nationality,
		PassportNumber:   s.PassportNumber,
		Address:          s.Address,
		EducationLevel:   s.EducationLevel,
		EnglishTest:      s.EnglishTest,
		EnglishScore:     s.EnglishScore,
		PreferredCountry: s.PreferredCountry,
		Status:           s.Status,
		AssignedTo:       s.AssignedTo,
		Notes:            s.Notes,
	}
}

type QueryFilter struct {
	Search      string
	Statuses    []string
	AssignedTo  string
	LeadID      string
	CreatedFrom time.Time
	CreatedTo   time.Time

	// VisibleTo restricts the results to students assigned to this user.
	VisibleTo string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.AssignedTo = core.CleanString(qf.AssignedTo)
	qf.LeadID = core.CleanString(qf.LeadID)
}

// Duplicates lists the students sharing an email or a phone with a candidate student.
type Duplicates struct {
	Email []string `json:"email"`
	Phone []string `json:"phone"`
}

func (d Duplicates) Any() bool {
	return len(d.Email) > 0 || len(d.Phone) > 0
}
