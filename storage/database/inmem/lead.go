package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/lead"
)

type leadRepository struct {
	db *DB
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db *DB) lead.Repository {
	return &leadRepository{db: db}
}

func leadContacts(l lead.Lead) (string, string, string, time.Time) {
	return l.ID, l.Email, l.Phone, l.CreatedAt
}

// checkUnique mimics the partial unique indexes on email & phone.
func (repo *leadRepository) checkUnique(l lead.Lead) error {
	emails, phones := duplicates(repo.db.leads, l.Email, l.Phone, l.ID, leadContacts)
	switch {
	case len(emails) > 0:
		return lead.ErrEmailExists
	case len(phones) > 0:
		return lead.ErrPhoneExists
	}
	return nil
}

func (repo *leadRepository) Create(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	defer repo.db.lockWrite(ctx)()

	if l.ID == "" {
		l.ID = newID()
	}
	if err := repo.checkUnique(l); err != nil {
		return lead.Lead{}, err
	}
	repo.db.leads[l.ID] = l
	return l, nil
}

func (repo *leadRepository) Get(_ context.Context, id string) (lead.Lead, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if l, ok := repo.db.leads[id]; ok {
		return l, nil
	}
	return lead.Lead{}, lead.ErrNotFound
}

func (repo *leadRepository) Update(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	defer repo.db.lockWrite(ctx)()

	if _, ok := repo.db.leads[l.ID]; !ok {
		return lead.Lead{}, lead.ErrNotFound
	}
	if err := repo.checkUnique(l); err != nil {
		return lead.Lead{}, err
	}
	repo.db.leads[l.ID] = l
	return l, nil
}

func leadField(l lead.Lead, field string) interface{} {
	switch field {
	case "id":
		return l.ID
	case "first_name":
		return l.FirstName
	case "last_name":
		return l.LastName
	case "email":
		return l.Email
	case "status":
		return l.Status
	case "source":
		return l.Source
	case "updated_at":
		return l.UpdatedAt
	default:
		return l.CreatedAt
	}
}

func (repo *leadRepository) Query(_ context.Context, filter lead.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]lead.Lead, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	leads := make([]lead.Lead, 0)
	for _, l := range repo.db.leads {
		if !matches(filter.Search, l.FirstName, l.LastName, l.Email, l.Phone) ||
			!oneOf(l.Status, filter.Statuses) ||
			!eqIfSet(l.Source, filter.Source) ||
			!eqIfSet(l.AssignedTo, filter.AssignedTo) ||
			(filter.Converted != nil && l.IsConverted() != *filter.Converted) ||
			(filter.VisibleTo != "" && l.AssignedTo != filter.VisibleTo && l.CreatedBy != filter.VisibleTo) ||
			!inRange(l.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		leads = append(leads, l)
	}
	sortRecords(leads, ordering, leadField)
	return paginate(leads, page), nil
}

func (repo *leadRepository) FindDuplicates(_ context.Context, email, phone, excludedID string) (lead.Duplicates, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	emails, phones := duplicates(repo.db.leads, email, phone, excludedID, leadContacts)
	return lead.Duplicates{Email: emails, Phone: phones}, nil
}
