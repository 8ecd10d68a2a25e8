package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/storage/database"
)

var userColumns = []string{"id", "name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login"}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	roles := pq.StringArray(usr.Roles)
	if roles == nil {
		roles = pq.StringArray{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     nullString(usr.Username),
		Email:        nullString(usr.Email),
		IsActive:     usr.IsActive,
		Roles:        roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    nullTime(usr.LastLogin),
	}
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func mapUserErr(err error) error {
	return database.MapUniqueViolation(err, map[string]error{
		"_username_key": user.ErrUsernameExists,
		"_email_key":    user.ErrEmailExists,
	})
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	check := func(col, value string, exists error) error {
		if value == "" {
			return nil
		}
		b := psql.Select("count(*)").From("users").Where(sq.Eq{col: value})
		var excluded []string
		for _, usr := range excludedUsers {
			if isUUID(usr.ID) {
				excluded = append(excluded, usr.ID)
			}
		}
		if len(excluded) > 0 {
			b = b.Where(sq.NotEq{"id": excluded})
		}
		var count int
		if err := get(ctx, repo.db, &count, b); err != nil {
			return errors.Wrapf(err, "checking %s uniqueness", col)
		}
		if count > 0 {
			return exists
		}
		return nil
	}
	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) Create(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = newID()
	}
	if _, err := namedExec(ctx, repo.db, insertQuery("users", userColumns), toUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(mapUserErr(err), "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	b := psql.Select(userColumns...).From("users")
	if filter != nil {
		if filter.Search != "" {
			b = b.Where(search(filter.Search, "name", "username", "email"))
		}
		if len(filter.Roles) > 0 {
			or := make(sq.Or, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				or = append(or, sq.Expr("EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ?)", role+"%"))
			}
			b = b.Where(or)
		}
		if filter.IsActive != nil {
			b = b.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		b = createdRange(b, filter.CreatedFrom, filter.CreatedTo)
	}
	b = orderPage(b, ordering, core.Page{})

	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) Get(ctx context.Context, filter user.GetFilter) (user.User, error) {
	b := psql.Select(userColumns...).From("users")
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		b = b.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != "":
		b = b.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	if err := get(ctx, repo.db, &r, b.Limit(1)); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "selecting user")
	}
	return r.toUser(), nil
}

func (repo *userRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	if !isUUID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	res, err := namedExec(ctx, repo.db, updateQuery("users", userColumns), toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(mapUserErr(err), "updating user")
	}
	if err = checkUpdated(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) Delete(ctx context.Context, ids ...string) error {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	q, args, err := psql.Delete("users").Where(sq.Eq{"id": valid}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = executor(ctx, repo.db).ExecContext(ctx, q, args...)
	return errors.Wrap(err, "deleting users")
}
