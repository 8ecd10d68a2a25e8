package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core/dropdown"
	"github.com/trezcool/pathway/storage/database"
)

var dropdownColumns = []string{"id", "module", "field", "key", "label", "sort_order", "color", "is_active", "created_at", "updated_at"}

type dropdownRow struct {
	ID        string    `db:"id"`
	Module    string    `db:"module"`
	Field     string    `db:"field"`
	Key       string    `db:"key"`
	Label     string    `db:"label"`
	SortOrder int       `db:"sort_order"`
	Color     string    `db:"color"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r dropdownRow) toOption() dropdown.Option {
	opt := dropdown.Option(r)
	opt.CreatedAt = r.CreatedAt.UTC()
	opt.UpdatedAt = r.UpdatedAt.UTC()
	return opt
}

type dropdownRepository struct {
	db *sqlx.DB
}

var _ dropdown.Repository = (*dropdownRepository)(nil) // interface compliance check

func NewDropdownRepository(db *sqlx.DB) dropdown.Repository {
	return &dropdownRepository{db: db}
}

func (repo *dropdownRepository) Create(ctx context.Context, opt dropdown.Option) (dropdown.Option, error) {
	if opt.ID == "" {
		opt.ID = newID()
	}
	if _, err := namedExec(ctx, repo.db, insertQuery("dropdown_options", dropdownColumns), dropdownRow(opt)); err != nil {
		err = database.MapUniqueViolation(err, map[string]error{"_key": dropdown.ErrKeyExists})
		return dropdown.Option{}, errors.Wrap(err, "inserting option")
	}
	return opt, nil
}

func (repo *dropdownRepository) Get(ctx context.Context, id string) (dropdown.Option, error) {
	if !isUUID(id) {
		return dropdown.Option{}, dropdown.ErrNotFound
	}
	var r dropdownRow
	if err := get(ctx, repo.db, &r, psql.Select(dropdownColumns...).From("dropdown_options").Where(sq.Eq{"id": id})); err != nil {
		return dropdown.Option{}, trapNoRows(err, dropdown.ErrNotFound, "selecting option")
	}
	return r.toOption(), nil
}

func (repo *dropdownRepository) Update(ctx context.Context, opt dropdown.Option) (dropdown.Option, error) {
	if !isUUID(opt.ID) {
		return dropdown.Option{}, dropdown.ErrNotFound
	}
	res, err := namedExec(ctx, repo.db, updateQuery("dropdown_options", dropdownColumns), dropdownRow(opt))
	if err != nil {
		return dropdown.Option{}, errors.Wrap(err, "updating option")
	}
	if err = checkUpdated(res, dropdown.ErrNotFound); err != nil {
		return dropdown.Option{}, err
	}
	return opt, nil
}

func (repo *dropdownRepository) QueryModule(ctx context.Context, module string, includeInactive bool) ([]dropdown.Option, error) {
	b := psql.Select(dropdownColumns...).From("dropdown_options").Where(sq.Eq{"module": module})
	if !includeInactive {
		b = b.Where(sq.Eq{"is_active": true})
	}
	var rows []dropdownRow
	if err := selectAll(ctx, repo.db, &rows, b.OrderBy("field", "sort_order", "label")); err != nil {
		return nil, errors.Wrap(err, "selecting options")
	}
	opts := make([]dropdown.Option, 0, len(rows))
	for _, r := range rows {
		opts = append(opts, r.toOption())
	}
	return opts, nil
}
