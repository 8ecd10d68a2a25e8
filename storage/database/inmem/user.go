package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func copyUser(usr user.User) user.User {
	usr.Roles = append([]string{}, usr.Roles...)
	usr.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	return usr
}

func (repo *userRepository) checkUniqueness(username, email string, excludedIDs ...string) error {
	for _, usr := range repo.db.users {
		if core.StringsContain(excludedIDs, usr.ID) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded = append(excluded, usr.ID)
	}
	return repo.checkUniqueness(username, email, excluded...)
}

func (repo *userRepository) Create(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lockWrite(ctx)()

	if err := repo.checkUniqueness(usr.Username, usr.Email); err != nil {
		return user.User{}, err
	}
	if usr.ID == "" {
		usr.ID = newID()
	}
	repo.db.users[usr.ID] = copyUser(usr)
	return usr, nil
}

func userField(usr user.User, field string) interface{} {
	switch field {
	case "id":
		return usr.ID
	case "name":
		return usr.Name
	case "username":
		return usr.Username
	case "email":
		return usr.Email
	case "is_active":
		return usr.IsActive
	case "updated_at":
		return usr.UpdatedAt
	case "last_login":
		return usr.LastLogin
	default:
		return usr.CreatedAt
	}
}

func hasAnyRolePrefix(roles, prefixes []string) bool {
	for _, prefix := range prefixes {
		for _, role := range roles {
			if strings.HasPrefix(role, prefix) {
				return true
			}
		}
	}
	return false
}

func (repo *userRepository) Query(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil {
			if !matches(filter.Search, usr.Name, usr.Username, usr.Email) ||
				(len(filter.Roles) > 0 && !hasAnyRolePrefix(usr.Roles, filter.Roles)) ||
				(filter.IsActive != nil && usr.IsActive != *filter.IsActive) ||
				!inRange(usr.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
				continue
			}
		}
		users = append(users, copyUser(usr))
	}
	sortRecords(users, ordering, userField)
	return users, nil
}

func (repo *userRepository) Get(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return copyUser(usr), nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		switch {
		case filter.Username != "" && usr.Username == filter.Username,
			filter.Email != "" && usr.Email == filter.Email,
			filter.UsernameOrEmail != "" && (usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail):
			return copyUser(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lockWrite(ctx)()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUniqueness(usr.Username, usr.Email, usr.ID); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = copyUser(usr)
	return usr, nil
}

func (repo *userRepository) Delete(ctx context.Context, ids ...string) error {
	defer repo.db.lockWrite(ctx)()

	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}
