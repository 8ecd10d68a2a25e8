package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func studentContacts(s student.Student) (string, string, string, time.Time) {
	return s.ID, s.Email, s.Phone, s.CreatedAt
}

func (repo *studentRepository) checkUnique(s student.Student) error {
	emails, phones := duplicates(repo.db.students, s.Email, s.Phone, s.ID, studentContacts)
	switch {
	case len(emails) > 0:
		return student.ErrEmailExists
	case len(phones) > 0:
		return student.ErrPhoneExists
	}
	return nil
}

func (repo *studentRepository) Create(ctx context.Context, s student.Student) (student.Student, error) {
	defer repo.db.lockWrite(ctx)()

	if s.ID == "" {
		s.ID = newID()
	}
	if err := repo.checkUnique(s); err != nil {
		return student.Student{}, err
	}
	repo.db.students[s.ID] = s
	return s, nil
}

func (repo *studentRepository) Get(_ context.Context, id string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) Update(ctx context.Context, s student.Student) (student.Student, error) {
	defer repo.db.lockWrite(ctx)()

	if _, ok := repo.db.students[s.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if err := repo.checkUnique(s); err != nil {
		return student.Student{}, err
	}
	repo.db.students[s.ID] = s
	return s, nil
}

func studentField(s student.Student, field string) interface{} {
	switch field {
	case "id":
		return s.ID
	case "first_name":
		return s.FirstName
	case "last_name":
		return s.LastName
	case "email":
		return s.Email
	case "status":
		return s.Status
	case "nationality":
		return s.Nationality
	case "preferred_country":
		return s.PreferredCountry
	case "updated_at":
		return s.UpdatedAt
	default:
		return s.CreatedAt
	}
}

func (repo *studentRepository) Query(_ context.Context, filter student.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.students {
		if !matches(filter.Search, s.FirstName, s.LastName, s.Email, s.Phone) ||
			!oneOf(s.Status, filter.Statuses) ||
			!eqIfSet(s.AssignedTo, filter.AssignedTo) ||
			!eqIfSet(s.LeadID, filter.LeadID) ||
			!eqIfSet(s.AssignedTo, filter.VisibleTo) ||
			!inRange(s.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		students = append(students, s)
	}
	sortRecords(students, ordering, studentField)
	return paginate(students, page), nil
}

func (repo *studentRepository) FindDuplicates(_ context.Context, email, phone, excludedID string) (student.Duplicates, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	emails, phones := duplicates(repo.db.students, email, phone, excludedID, studentContacts)
	return student.Duplicates{Email: emails, Phone: phones}, nil
}
