package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/event"
	"github.com/trezcool/pathway/storage/database"
)

var eventColumns = []string{
	"id", "name", "type", "description", "location", "starts_at", "ends_at", "capacity", "status", "created_by",
	"created_at", "updated_at",
}

type eventRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Type        string      `db:"type"`
	Description string      `db:"description"`
	Location    string      `db:"location"`
	StartsAt    time.Time   `db:"starts_at"`
	EndsAt      null.Time   `db:"ends_at"`
	Capacity    int         `db:"capacity"`
	Status      string      `db:"status"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toEventRow(evt event.Event) eventRow {
	return eventRow{
		ID:          evt.ID,
		Name:        evt.Name,
		Type:        evt.Type,
		Description: evt.Description,
		Location:    evt.Location,
		StartsAt:    evt.StartsAt.UTC(),
		EndsAt:      evt.EndsAt,
		Capacity:    evt.Capacity,
		Status:      evt.Status,
		CreatedBy:   nullString(evt.CreatedBy),
		CreatedAt:   evt.CreatedAt.UTC(),
		UpdatedAt:   evt.UpdatedAt.UTC(),
	}
}

func (r eventRow) toEvent() event.Event {
	return event.Event{
		ID:          r.ID,
		Name:        r.Name,
		Type:        r.Type,
		Description: r.Description,
		Location:    r.Location,
		StartsAt:    r.StartsAt.UTC(),
		EndsAt:      utcNullTime(r.EndsAt),
		Capacity:    r.Capacity,
		Status:      r.Status,
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) Create(ctx context.Context, evt event.Event) (event.Event, error) {
	if evt.ID == "" {
		evt.ID = newID()
	}
	if _, err := namedExec(ctx, repo.db, insertQuery("events", eventColumns), toEventRow(evt)); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return evt, nil
}

func (repo *eventRepository) Get(ctx context.Context, id string) (event.Event, error) {
	if !isUUID(id) {
		return event.Event{}, event.ErrNotFound
	}
	var r eventRow
	if err := get(ctx, repo.db, &r, psql.Select(eventColumns...).From("events").Where(sq.Eq{"id": id})); err != nil {
		return event.Event{}, trapNoRows(err, event.ErrNotFound, "selecting event")
	}
	return r.toEvent(), nil
}

func (repo *eventRepository) Update(ctx context.Context, evt event.Event) (event.Event, error) {
	if !isUUID(evt.ID) {
		return event.Event{}, event.ErrNotFound
	}
	res, err := namedExec(ctx, repo.db, updateQuery("events", eventColumns), toEventRow(evt))
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if err = checkUpdated(res, event.ErrNotFound); err != nil {
		return event.Event{}, err
	}
	return evt, nil
}

func (repo *eventRepository) Query(ctx context.Context, filter event.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]event.Event, error) {
	b := psql.Select(eventColumns...).From("events")
	if filter.Search != "" {
		b = b.Where(search(filter.Search, "name", "location"))
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.Type != "" {
		b = b.Where(sq.Eq{"type": filter.Type})
	}
	if !filter.StartsAfter.IsZero() {
		b = b.Where(sq.GtOrEq{"starts_at": filter.StartsAfter.UTC()})
	}
	if !filter.StartsBefore.IsZero() {
		b = b.Where(sq.LtOrEq{"starts_at": filter.StartsBefore.UTC()})
	}
	b = orderPage(b, ordering, page)

	var rows []eventRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting events")
	}
	evts := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		evts = append(evts, r.toEvent())
	}
	return evts, nil
}

var registrationColumns = []string{
	"id", "event_id", "first_name", "last_name", "email", "phone", "status", "source", "interested_country", "notes",
	"lead_id", "created_at", "updated_at",
}

type registrationRow struct {
	ID                string      `db:"id"`
	EventID           string      `db:"event_id"`
	FirstName         string      `db:"first_name"`
	LastName          string      `db:"last_name"`
	Email             string      `db:"email"`
	Phone             string      `db:"phone"`
	Status            string      `db:"status"`
	Source            string      `db:"source"`
	InterestedCountry string      `db:"interested_country"`
	Notes             string      `db:"notes"`
	LeadID            null.String `db:"lead_id"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

func toRegistrationRow(reg event.Registration) registrationRow {
	return registrationRow{
		ID:                reg.ID,
		EventID:           reg.EventID,
		FirstName:         reg.FirstName,
		LastName:          reg.LastName,
		Email:             reg.Email,
		Phone:             reg.Phone,
		Status:            reg.Status,
		Source:            reg.Source,
		InterestedCountry: reg.InterestedCountry,
		Notes:             reg.Notes,
		LeadID:            nullString(reg.LeadID),
		CreatedAt:         reg.CreatedAt.UTC(),
		UpdatedAt:         reg.UpdatedAt.UTC(),
	}
}

func (r registrationRow) toRegistration() event.Registration {
	return event.Registration{
		ID:                r.ID,
		EventID:           r.EventID,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Email:             r.Email,
		Phone:             r.Phone,
		Status:            r.Status,
		Source:            r.Source,
		InterestedCountry: r.InterestedCountry,
		Notes:             r.Notes,
		LeadID:            r.LeadID.String,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

type registrationRepository struct {
	db *sqlx.DB
}

var _ event.RegistrationRepository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *sqlx.DB) event.RegistrationRepository {
	return &registrationRepository{db: db}
}

func mapRegistrationErr(err error) error {
	return database.MapUniqueViolation(err, map[string]error{
		"_email_key": event.ErrEmailRegistered,
		"_phone_key": event.ErrPhoneRegistered,
	})
}

func (repo *registrationRepository) Create(ctx context.Context, reg event.Registration) (event.Registration, error) {
	if reg.ID == "" {
		reg.ID = newID()
	}
	q := insertQuery("event_registrations", registrationColumns)
	if _, err := namedExec(ctx, repo.db, q, toRegistrationRow(reg)); err != nil {
		return event.Registration{}, errors.Wrap(mapRegistrationErr(err), "inserting registration")
	}
	return reg, nil
}

func (repo *registrationRepository) Get(ctx context.Context, id string) (event.Registration, error) {
	if !isUUID(id) {
		return event.Registration{}, event.ErrRegistrationNotFound
	}
	var r registrationRow
	b := psql.Select(registrationColumns...).From("event_registrations").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &r, b); err != nil {
		return event.Registration{}, trapNoRows(err, event.ErrRegistrationNotFound, "selecting registration")
	}
	return r.toRegistration(), nil
}

func (repo *registrationRepository) Update(ctx context.Context, reg event.Registration) (event.Registration, error) {
	if !isUUID(reg.ID) {
		return event.Registration{}, event.ErrRegistrationNotFound
	}
	res, err := namedExec(ctx, repo.db, updateQuery("event_registrations", registrationColumns), toRegistrationRow(reg))
	if err != nil {
		return event.Registration{}, errors.Wrap(mapRegistrationErr(err), "updating registration")
	}
	if err = checkUpdated(res, event.ErrRegistrationNotFound); err != nil {
		return event.Registration{}, err
	}
	return reg, nil
}

func (repo *registrationRepository) Query(ctx context.Context, filter event.RegistrationFilter, ordering []core.DBOrdering, page core.Page) ([]event.Registration, error) {
	b := psql.Select(registrationColumns...).From("event_registrations")
	b, ok := whereUUIDs(b, "event_id", filter.EventID)
	if !ok {
		return []event.Registration{}, nil
	}
	if filter.Search != "" {
		b = b.Where(search(filter.Search, "first_name", "last_name", "email", "phone"))
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.Converted != nil {
		if *filter.Converted {
			b = b.Where(sq.NotEq{"lead_id": nil})
		} else {
			b = b.Where(sq.Eq{"lead_id": nil})
		}
	}
	return repo.selectRegistrations(ctx, orderPage(b, ordering, page))
}

func (repo *registrationRepository) ListByEvent(ctx context.Context, eventID string) ([]event.Registration, error) {
	if !isUUID(eventID) {
		return []event.Registration{}, nil
	}
	b := psql.Select(registrationColumns...).From("event_registrations").
		Where(sq.Eq{"event_id": eventID}).
		OrderBy("created_at", "id")
	return repo.selectRegistrations(ctx, b)
}

func (repo *registrationRepository) selectRegistrations(ctx context.Context, b sq.SelectBuilder) ([]event.Registration, error) {
	var rows []registrationRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting registrations")
	}
	regs := make([]event.Registration, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, r.toRegistration())
	}
	return regs, nil
}

func (repo *registrationRepository) FindDuplicates(ctx context.Context, eventID, email, phone, excludedID string) (event.Duplicates, error) {
	if !isUUID(eventID) {
		return event.Duplicates{}, nil
	}
	emails, phones, err := duplicates(ctx, repo.db, "event_registrations", sq.Eq{"event_id": eventID}, email, phone, excludedID)
	if err != nil {
		return event.Duplicates{}, errors.Wrap(err, "finding duplicate registrations")
	}
	return event.Duplicates{Email: emails, Phone: phones}, nil
}
