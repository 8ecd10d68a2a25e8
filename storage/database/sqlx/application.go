package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/application"
)

var applicationColumns = []string{
	"id", "student_id", "university", "program", "country", "intake", "status", "application_fee", "submitted_at",
	"notes", "assigned_to", "created_at", "updated_at",
}

type applicationRow struct {
	ID             string      `db:"id"`
	StudentID      string      `db:"student_id"`
	University     string      `db:"university"`
	Program        string      `db:"program"`
	Country        string      `db:"country"`
	Intake         string      `db:"intake"`
	Status         string      `db:"status"`
	ApplicationFee float64     `db:"application_fee"`
	SubmittedAt    null.Time   `db:"submitted_at"`
	Notes          string      `db:"notes"`
	AssignedTo     null.String `db:"assigned_to"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func toApplicationRow(app application.Application) applicationRow {
	return applicationRow{
		ID:             app.ID,
		StudentID:      app.StudentID,
		University:     app.University,
		Program:        app.Program,
		Country:        app.Country,
		Intake:         app.Intake,
		Status:         app.Status,
		ApplicationFee: app.ApplicationFee,
		SubmittedAt:    app.SubmittedAt,
		Notes:          app.Notes,
		AssignedTo:     nullString(app.AssignedTo),
		CreatedAt:      app.CreatedAt.UTC(),
		UpdatedAt:      app.UpdatedAt.UTC(),
	}
}

func (r applicationRow) toApplication() application.Application {
	return application.Application{
		ID:             r.ID,
		StudentID:      r.StudentID,
		University:     r.University,
		Program:        r.Program,
		Country:        r.Country,
		Intake:         r.Intake,
		Status:         r.Status,
		ApplicationFee: r.ApplicationFee,
		SubmittedAt:    utcNullTime(r.SubmittedAt),
		Notes:          r.Notes,
		AssignedTo:     r.AssignedTo.String,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *sqlx.DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) Create(ctx context.Context, app application.Application) (application.Application, error) {
	if app.ID == "" {
		app.ID = newID()
	}
	if _, err := namedExec(ctx, repo.db, insertQuery("applications", applicationColumns), toApplicationRow(app)); err != nil {
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo *applicationRepository) Get(ctx context.Context, id string) (application.Application, error) {
	if !isUUID(id) {
		return application.Application{}, application.ErrNotFound
	}
	var r applicationRow
	b := psql.Select(applicationColumns...).From("applications").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &r, b); err != nil {
		return application.Application{}, trapNoRows(err, application.ErrNotFound, "selecting application")
	}
	return r.toApplication(), nil
}

func (repo *applicationRepository) Update(ctx context.Context, app application.Application) (application.Application, error) {
	if !isUUID(app.ID) {
		return application.Application{}, application.ErrNotFound
	}
	res, err := namedExec(ctx, repo.db, updateQuery("applications", applicationColumns), toApplicationRow(app))
	if err != nil {
		return application.Application{}, errors.Wrap(err, "updating application")
	}
	if err = checkUpdated(res, application.ErrNotFound); err != nil {
		return application.Application{}, err
	}
	return app, nil
}

func (repo *applicationRepository) Query(ctx context.Context, filter application.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]application.Application, error) {
	b := psql.Select(applicationColumns...).From("applications")
	if filter.Search != "" {
		b = b.Where(search(filter.Search, "university", "program"))
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.Country != "" {
		b = b.Where(sq.ILike{"country": filter.Country})
	}
	b, ok := whereUUIDs(b, "student_id", filter.StudentID, "assigned_to", filter.AssignedTo, "assigned_to", filter.VisibleTo)
	if !ok {
		return []application.Application{}, nil
	}
	b = orderPage(createdRange(b, filter.CreatedFrom, filter.CreatedTo), ordering, page)

	var rows []applicationRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting applications")
	}
	apps := make([]application.Application, 0, len(rows))
	for _, r := range rows {
		apps = append(apps, r.toApplication())
	}
	return apps, nil
}
