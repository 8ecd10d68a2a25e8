package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/student"
	"github.com/trezcool/pathway/storage/database"
)

var studentColumns = []string{
	"id", "lead_id", "first_name", "last_name", "email", "phone", "date_of_birth", "nationality", "passport_number",
	"address", "education_level", "english_test", "english_score", "preferred_country", "status", "profile_picture",
	"assigned_to", "notes", "created_at", "updated_at",
}

type studentRow struct {
	ID               string      `db:"id"`
	LeadID           null.String `db:"lead_id"`
	FirstName        string      `db:"first_name"`
	LastName         string      `db:"last_name"`
	Email            string      `db:"email"`
	Phone            string      `db:"phone"`
	DateOfBirth      string      `db:"date_of_birth"`
	Nationality      string      `db:"nationality"`
	PassportNumber   string      `db:"passport_number"`
	Address          string      `db:"address"`
	EducationLevel   string      `db:"education_level"`
	EnglishTest      string      `db:"english_test"`
	EnglishScore     string      `db:"english_score"`
	PreferredCountry string      `db:"preferred_country"`
	Status           string      `db:"status"`
	ProfilePicture   string      `db:"profile_picture"`
	AssignedTo       null.String `db:"assigned_to"`
	Notes            string      `db:"notes"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func toStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:               s.ID,
		LeadID:           nullString(s.LeadID),
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
		ProfilePicture:   s.ProfilePicture,
		AssignedTo:       nullString(s.AssignedTo),
		Notes:            s.Notes,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:               r.ID,
		LeadID:           r.LeadID.String,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Phone:            r.Phone,
		DateOfBirth:      r.DateOfBirth,
		Nationality:      r.Nationality,
		PassportNumber:   r.PassportNumber,
		Address:          r.Address,
		EducationLevel:   r.EducationLevel,
		EnglishTest:      r.EnglishTest,
		EnglishScore:     r.EnglishScore,
		PreferredCountry: r.PreferredCountry,
		Status:           r.Status,
		ProfilePicture:   r.ProfilePicture,
		AssignedTo:       r.AssignedTo.String,
		Notes:            r.Notes,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func mapStudentErr(err error) error {
	return database.MapUniqueViolation(err, map[string]error{
		"_email_key": student.ErrEmailExists,
		"_phone_key": student.ErrPhoneExists,
	})
}

func (repo *studentRepository) Create(ctx context.Context, s student.Student) (student.Student, error) {
	if s.ID == "" {
		s.ID = newID()
	}
	if _, err := namedExec(ctx, repo.db, insertQuery("students", studentColumns), toStudentRow(s)); err != nil {
		return student.Student{}, errors.Wrap(mapStudentErr(err), "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) Get(ctx context.Context, id string) (student.Student, error) {
	if !isUUID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var r studentRow
	if err := get(ctx, repo.db, &r, psql.Select(studentColumns...).From("students").Where(sq.Eq{"id": id})); err != nil {
		return student.Student{}, trapNoRows(err, student.ErrNotFound, "selecting student")
	}
	return r.toStudent(), nil
}

func (repo *studentRepository) Update(ctx context.Context, s student.Student) (student.Student, error) {
	if !isUUID(s.ID) {
		return student.Student{}, student.ErrNotFound
	}
	res, err := namedExec(ctx, repo.db, updateQuery("students", studentColumns), toStudentRow(s))
	if err != nil {
		return student.Student{}, errors.Wrap(mapStudentErr(err), "updating student")
	}
	if err = checkUpdated(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) Query(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]student.Student, error) {
	b := psql.Select(studentColumns...).From("students")
	if filter.Search != "" {
		b = b.Where(search(filter.Search, "first_name", "last_name", "email", "phone"))
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	b, ok := whereUUIDs(b, "assigned_to", filter.AssignedTo, "lead_id", filter.LeadID, "assigned_to", filter.VisibleTo)
	if !ok {
		return []student.Student{}, nil
	}
	b = orderPage(createdRange(b, filter.CreatedFrom, filter.CreatedTo), ordering, page)

	var rows []studentRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) FindDuplicates(ctx context.Context, email, phone, excludedID string) (student.Duplicates, error) {
	emails, phones, err := duplicates(ctx, repo.db, "students", nil, email, phone, excludedID)
	if err != nil {
		return student.Duplicates{}, errors.Wrap(err, "finding duplicate students")
	}
	return student.Duplicates{Email: emails, Phone: phones}, nil
}
