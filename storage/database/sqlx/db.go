// Package sqlxrepos implements the core repositories on Postgres with jmoiron/sqlx & Masterminds/squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type txKey struct{}

// Transactor implements core.Transactor; the *sqlx.Tx travels in the context.
type Transactor struct {
	db *sqlx.DB
}

var _ core.Transactor = (*Transactor)(nil) // interface compliance check

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// executor returns the transaction carried by ctx, or db.
func executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

func get(ctx context.Context, db *sqlx.DB, dest interface{}, b sq.SelectBuilder) error {
	q, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, executor(ctx, db), dest, q, args...)
}

func selectAll(ctx context.Context, db *sqlx.DB, dest interface{}, b sq.SelectBuilder) error {
	q, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, executor(ctx, db), dest, q, args...)
}

func namedExec(ctx context.Context, db *sqlx.DB, q string, arg interface{}) (sql.Result, error) {
	return sqlx.NamedExecContext(ctx, executor(ctx, db), q, arg)
}

// insertQuery builds "INSERT INTO table (cols) VALUES (:cols)".
func insertQuery(table string, cols []string) string {
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (:" + strings.Join(cols, ", :") + ")"
}

// updateQuery builds "UPDATE table SET col = :col, ... WHERE id = :id".
func updateQuery(table string, cols []string) string {
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "id" {
			continue
		}
		sets = append(sets, c+" = :"+c)
	}
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE id = :id"
}

// checkUpdated returns notFound when res affected no row.
func checkUpdated(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// trapNoRows maps sql.ErrNoRows to notFound.
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func newID() string {
	return uuid.NewString()
}

// isUUID guards UUID columns against malformed IDs, which Postgres would reject with an error.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

func search(term string, cols ...string) sq.Or {
	like := "%" + term + "%"
	or := make(sq.Or, 0, len(cols))
	for _, c := range cols {
		or = append(or, sq.ILike{c: like})
	}
	return or
}

func orderPage(b sq.SelectBuilder, ordering []core.DBOrdering, page core.Page) sq.SelectBuilder {
	if len(ordering) == 0 {
		b = b.OrderBy("created_at DESC")
	}
	for _, ord := range ordering {
		b = b.OrderBy(ord.String())
	}
	b = b.OrderBy("id")
	if page.Limit > 0 {
		b = b.Limit(uint64(page.Limit))
	}
	if page.Offset > 0 {
		b = b.Offset(uint64(page.Offset))
	}
	return b
}

func createdRange(b sq.SelectBuilder, from, to time.Time) sq.SelectBuilder {
	if !from.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": from.UTC()})
	}
	if !to.IsZero() {
		b = b.Where(sq.LtOrEq{"created_at": to.UTC()})
	}
	return b
}

// duplicates returns the IDs of the rows of table using email or phone (within scope), other than excludedID.
func duplicates(ctx context.Context, db *sqlx.DB, table string, scope sq.Eq, email, phone, excludedID string) (emailIDs, phoneIDs []string, err error) {
	match := func(col, value string) ([]string, error) {
		if value == "" {
			return nil, nil
		}
		b := psql.Select("id").From(table).Where(sq.Eq{col: value})
		if len(scope) > 0 {
			b = b.Where(scope)
		}
		if excludedID != "" && isUUID(excludedID) {
			b = b.Where(sq.NotEq{"id": excludedID})
		}
		var ids []string
		if err := selectAll(ctx, db, &ids, b.OrderBy("created_at")); err != nil {
			return nil, errors.Wrapf(err, "matching %s", col)
		}
		return ids, nil
	}
	if emailIDs, err = match("email", email); err != nil {
		return nil, nil, err
	}
	phoneIDs, err = match("phone", phone)
	return emailIDs, phoneIDs, err
}

// whereUUIDs adds "col = id" for each (col, id) pair with a non-empty id.
// ok is false when an id is malformed, since nothing can match it.
func whereUUIDs(b sq.SelectBuilder, colIDs ...string) (_ sq.SelectBuilder, ok bool) {
	for i := 0; i+1 < len(colIDs); i += 2 {
		col, id := colIDs[i], colIDs[i+1]
		if id == "" {
			continue
		}
		if !isUUID(id) {
			return b, false
		}
		b = b.Where(sq.Eq{col: id})
	}
	return b, true
}
