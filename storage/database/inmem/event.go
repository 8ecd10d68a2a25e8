package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) Create(ctx context.Context, evt event.Event) (event.Event, error) {
	defer repo.db.lockWrite(ctx)()

	if evt.ID == "" {
		evt.ID = newID()
	}
	repo.db.events[evt.ID] = evt
	return evt, nil
}

func (repo *eventRepository) Get(_ context.Context, id string) (event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if evt, ok := repo.db.events[id]; ok {
		return evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) Update(ctx context.Context, evt event.Event) (event.Event, error) {
	defer repo.db.lockWrite(ctx)()

	if _, ok := repo.db.events[evt.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.events[evt.ID] = evt
	return evt, nil
}

func eventField(evt event.Event, field string) interface{} {
	switch field {
	case "id":
		return evt.ID
	case "name":
		return evt.Name
	case "type":
		return evt.Type
	case "status":
		return evt.Status
	case "starts_at":
		return evt.StartsAt
	case "updated_at":
		return evt.UpdatedAt
	default:
		return evt.CreatedAt
	}
}

func (repo *eventRepository) Query(_ context.Context, filter event.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	evts := make([]event.Event, 0)
	for _, evt := range repo.db.events {
		if !matches(filter.Search, evt.Name, evt.Location) ||
			!oneOf(evt.Status, filter.Statuses) ||
			!eqIfSet(evt.Type, filter.Type) ||
			!inRange(evt.StartsAt, filter.StartsAfter, filter.StartsBefore) {
			continue
		}
		evts = append(evts, evt)
	}
	sortRecords(evts, ordering, eventField)
	return paginate(evts, page), nil
}

type registrationRepository struct {
	db *DB
}

var _ event.RegistrationRepository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *DB) event.RegistrationRepository {
	return &registrationRepository{db: db}
}

func registrationContacts(reg event.Registration) (string, string, string, time.Time) {
	return reg.ID, reg.Email, reg.Phone, reg.CreatedAt
}

// ofEvent returns the registrations of an event, keyed by ID.
func (repo *registrationRepository) ofEvent(eventID string) map[string]event.Registration {
	regs := make(map[string]event.Registration)
	for id, reg := range repo.db.registrations {
		if reg.EventID == eventID {
			regs[id] = reg
		}
	}
	return regs
}

func (repo *registrationRepository) checkUnique(reg event.Registration) error {
	emails, phones := duplicates(repo.ofEvent(reg.EventID), reg.Email, reg.Phone, reg.ID, registrationContacts)
	switch {
	case len(emails) > 0:
		return event.ErrEmailRegistered
	case len(phones) > 0:
		return event.ErrPhoneRegistered
	}
	return nil
}

func (repo *registrationRepository) Create(ctx context.Context, reg event.Registration) (event.Registration, error) {
	defer repo.db.lockWrite(ctx)()

	if reg.ID == "" {
		reg.ID = newID()
	}
	if err := repo.checkUnique(reg); err != nil {
		return event.Registration{}, err
	}
	repo.db.registrations[reg.ID] = reg
	return reg, nil
}

func (repo *registrationRepository) Get(_ context.Context, id string) (event.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if reg, ok := repo.db.registrations[id]; ok {
		return reg, nil
	}
	return event.Registration{}, event.ErrRegistrationNotFound
}

func (repo *registrationRepository) Update(ctx context.Context, reg event.Registration) (event.Registration, error) {
	defer repo.db.lockWrite(ctx)()

	if _, ok := repo.db.registrations[reg.ID]; !ok {
		return event.Registration{}, event.ErrRegistrationNotFound
	}
	if err := repo.checkUnique(reg); err != nil {
		return event.Registration{}, err
	}
	repo.db.registrations[reg.ID] = reg
	return reg, nil
}

func registrationField(reg event.Registration, field string) interface{} {
	switch field {
	case "id":
		return reg.ID
	case "first_name":
		return reg.FirstName
	case "last_name":
		return reg.LastName
	case "email":
		return reg.Email
	case "status":
		return reg.Status
	case "updated_at":
		return reg.UpdatedAt
	default:
		return reg.CreatedAt
	}
}

func (repo *registrationRepository) Query(_ context.Context, filter event.RegistrationFilter, ordering []core.DBOrdering, page core.Page) ([]event.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	regs := make([]event.Registration, 0)
	for _, reg := range repo.db.registrations {
		if !eqIfSet(reg.EventID, filter.EventID) ||
			!matches(filter.Search, reg.FirstName, reg.LastName, reg.Email, reg.Phone) ||
			!oneOf(reg.Status, filter.Statuses) ||
			(filter.Converted != nil && (reg.LeadID != "") != *filter.Converted) {
			continue
		}
		regs = append(regs, reg)
	}
	sortRecords(regs, ordering, registrationField)
	return paginate(regs, page), nil
}

func (repo *registrationRepository) ListByEvent(_ context.Context, eventID string) ([]event.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	regs := make([]event.Registration, 0)
	for _, reg := range repo.ofEvent(eventID) {
		regs = append(regs, reg)
	}
	sortRecords(regs, []core.DBOrdering{{Field: "created_at", Ascending: true}}, registrationField)
	return regs, nil
}

func (repo *registrationRepository) FindDuplicates(_ context.Context, eventID, email, phone, excludedID string) (event.Duplicates, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	emails, phones := duplicates(repo.ofEvent(eventID), email, phone, excludedID, registrationContacts)
	return event.Duplicates{Email: emails, Phone: phones}, nil
}
