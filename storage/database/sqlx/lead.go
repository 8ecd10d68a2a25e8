package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/storage/database"
)

var leadColumns = []string{
	"id", "first_name", "last_name", "email", "phone", "source", "status", "interested_country", "interested_program",
	"study_level", "intake", "notes", "assigned_to", "student_id", "created_by", "created_at", "updated_at",
}

type leadRow struct {
	ID                string      `db:"id"`
	FirstName         string      `db:"first_name"`
	LastName          string      `db:"last_name"`
	Email             string      `db:"email"`
	Phone             string      `db:"phone"`
	Source            string      `db:"source"`
	Status            string      `db:"status"`
	InterestedCountry string      `db:"interested_country"`
	InterestedProgram string      `db:"interested_program"`
	StudyLevel        string      `db:"study_level"`
	Intake            string      `db:"intake"`
	Notes             string      `db:"notes"`
	AssignedTo        null.String `db:"assigned_to"`
	StudentID         null.String `db:"student_id"`
	CreatedBy         null.String `db:"created_by"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

func toLeadRow(l lead.Lead) leadRow {
	return leadRow{
		ID:                l.ID,
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
		AssignedTo:        nullString(l.AssignedTo),
		StudentID:         nullString(l.StudentID),
		CreatedBy:         nullString(l.CreatedBy),
		CreatedAt:         l.CreatedAt.UTC(),
		UpdatedAt:         l.UpdatedAt.UTC(),
	}
}

func (r leadRow) toLead() lead.Lead {
	return lead.Lead{
		ID:                r.ID,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Email:             r.Email,
		Phone:             r.Phone,
		Source:            r.Source,
		Status:            r.Status,
		InterestedCountry: r.InterestedCountry,
		InterestedProgram: r.InterestedProgram,
		StudyLevel:        r.StudyLevel,
		Intake:            r.Intake,
		Notes:             r.Notes,
		AssignedTo:        r.AssignedTo.String,
		StudentID:         r.StudentID.String,
		CreatedBy:         r.CreatedBy.String,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

type leadRepository struct {
	db *sqlx.DB
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db *sqlx.DB) lead.Repository {
	return &leadRepository{db: db}
}

func mapLeadErr(err error) error {
	return database.MapUniqueViolation(err, map[string]error{
		"_email_key": lead.ErrEmailExists,
		"_phone_key": lead.ErrPhoneExists,
	})
}

func (repo *leadRepository) Create(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	if l.ID == "" {
		l.ID = newID()
	}
	if _, err := namedExec(ctx, repo.db, insertQuery("leads", leadColumns), toLeadRow(l)); err != nil {
		return lead.Lead{}, errors.Wrap(mapLeadErr(err), "inserting lead")
	}
	return l, nil
}

func (repo *leadRepository) Get(ctx context.Context, id string) (lead.Lead, error) {
	if !isUUID(id) {
		return lead.Lead{}, lead.ErrNotFound
	}
	var r leadRow
	if err := get(ctx, repo.db, &r, psql.Select(leadColumns...).From("leads").Where(sq.Eq{"id": id})); err != nil {
		return lead.Lead{}, trapNoRows(err, lead.ErrNotFound, "selecting lead")
	}
	return r.toLead(), nil
}

func (repo *leadRepository) Update(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	if !isUUID(l.ID) {
		return lead.Lead{}, lead.ErrNotFound
	}
	res, err := namedExec(ctx, repo.db, updateQuery("leads", leadColumns), toLeadRow(l))
	if err != nil {
		return lead.Lead{}, errors.Wrap(mapLeadErr(err), "updating lead")
	}
	if err = checkUpdated(res, lead.ErrNotFound); err != nil {
		return lead.Lead{}, err
	}
	return l, nil
}

func (repo *leadRepository) Query(ctx context.Context, filter lead.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]lead.Lead, error) {
	b := psql.Select(leadColumns...).From("leads")
	if filter.Search != "" {
		b = b.Where(search(filter.Search, "first_name", "last_name", "email", "phone"))
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.Source != "" {
		b = b.Where(sq.Eq{"source": filter.Source})
	}
	b, ok := whereUUIDs(b, "assigned_to", filter.AssignedTo)
	if !ok {
		return []lead.Lead{}, nil
	}
	if filter.Converted != nil {
		if *filter.Converted {
			b = b.Where(sq.NotEq{"student_id": nil})
		} else {
			b = b.Where(sq.Eq{"student_id": nil})
		}
	}
	if filter.VisibleTo != "" {
		b = b.Where(sq.Or{sq.Eq{"assigned_to": filter.VisibleTo}, sq.Eq{"created_by": filter.VisibleTo}})
	}
	b = orderPage(createdRange(b, filter.CreatedFrom, filter.CreatedTo), ordering, page)

	var rows []leadRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting leads")
	}
	leads := make([]lead.Lead, 0, len(rows))
	for _, r := range rows {
		leads = append(leads, r.toLead())
	}
	return leads, nil
}

func (repo *leadRepository) FindDuplicates(ctx context.Context, email, phone, excludedID string) (lead.Duplicates, error) {
	emails, phones, err := duplicates(ctx, repo.db, "leads", nil, email, phone, excludedID)
	if err != nil {
		return lead.Duplicates{}, errors.Wrap(err, "finding duplicate leads")
	}
	return lead.Duplicates{Email: emails, Phone: phones}, nil
}
