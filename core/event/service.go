package event

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/dropdown"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("event not found")
)

type (
	Repository interface {
		Create(ctx context.Context, evt Event) (Event, error)
		Get(ctx context.Context, id string) (Event, error)
		Update(ctx context.Context, evt Event) (Event, error)
		// Query applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on the name or the location.
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Event, error)
	}

	// Service manages events. Events are visible to every user allowed to read the events module.
	Service struct {
		repo       Repository
		tx         core.Transactor
		activities *activity.Service
		dropdowns  *dropdown.Service
		validate   *validator.Validate
	}
)

// OrderingFields are the fields an Event query can be ordered by.
var OrderingFields = []string{"name", "type", "status", "starts_at", "created_at", "updated_at"}

func NewService(repo Repository, tx core.Transactor, activities *activity.Service, dropdowns *dropdown.Service, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(activities, "activities"),
		vala.IsNotNil(dropdowns, "dropdowns"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	svc := &Service{
		repo:       repo,
		tx:         tx,
		activities: activities,
		dropdowns:  dropdowns,
		validate:   validate,
	}
	activities.RegisterEntity(activity.EntityEvent, svc.Lookup)
	return svc
}

func (svc *Service) resolver(ctx context.Context) (dropdown.Resolver, error) {
	r, err := svc.dropdowns.Resolver(ctx, dropdown.ModuleEvent)
	return r, errors.Wrap(err, "loading event dropdowns")
}

func (svc *Service) Create(ctx context.Context, actor access.Actor, ne NewEvent) (Event, error) {
	ne.Clean()
	if err := svc.validate.Struct(ne); err != nil {
		return Event{}, err
	}

	r, err := svc.resolver(ctx)
	if err != nil {
		return Event{}, err
	}
	if ne.Status, err = dropdown.NormalizeWith(r, dropdown.FieldStatus, ne.Status); err != nil {
		return Event{}, err
	}
	if ne.Type, err = dropdown.NormalizeOptional(r, dropdown.FieldType, ne.Type); err != nil {
		return Event{}, err
	}

	now := time.Now().UTC()
	evt := Event{
		Name:        ne.Name,
		Type:        ne.Type,
		Description: ne.Description,
		Location:    ne.Location,
		StartsAt:    ne.StartsAt.UTC(),
		Capacity:    ne.Capacity,
		Status:      ne.Status,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ne.EndsAt != nil && !ne.EndsAt.IsZero() {
		evt.EndsAt = null.TimeFrom(ne.EndsAt.UTC())
	}
	if err = evt.validate(); err != nil {
		return Event{}, err
	}

	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if evt, err = svc.repo.Create(ctx, evt); err != nil {
			return errors.Wrap(err, "creating event")
		}
		return svc.activities.RecordCreated(ctx, actor, activity.EntityEvent, evt.ID, fmt.Sprintf("Event %s created", evt.Name))
	})
	if err != nil {
		return Event{}, err
	}
	return evt, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Event, error) {
	return svc.repo.Get(ctx, id)
}

// Lookup implements activity.EntityLookup.
func (svc *Service) Lookup(ctx context.Context, _ access.Actor, id string) error {
	_, err := svc.repo.Get(ctx, id)
	return err
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Event, error) {
	filter.Clean()
	return svc.repo.Query(ctx, filter, core.FilterOrdering(ordering, OrderingFields...), page.Clean())
}

// Upcoming returns the events starting within the next `within`, except the cancelled ones, soonest first.
func (svc *Service) Upcoming(ctx context.Context, within time.Duration, limit int) ([]Event, error) {
	now := time.Now().UTC()
	evts, err := svc.repo.Query(
		ctx,
		QueryFilter{StartsAfter: now, StartsBefore: now.Add(within)},
		[]core.DBOrdering{{Field: "starts_at", Ascending: true}},
		core.Page{Limit: core.MaxPageSize},
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying upcoming events")
	}
	upcoming := make([]Event, 0, len(evts))
	for _, evt := range evts {
		if evt.Status == StatusCancelled {
			continue
		}
		if upcoming = append(upcoming, evt); len(upcoming) == limit {
			break
		}
	}
	return upcoming, nil
}

func (svc *Service) normalizeUpdate(ctx context.Context, ue *UpdateEvent) error {
	if ue.Status == nil && ue.Type == nil {
		return nil
	}
	r, err := svc.resolver(ctx)
	if err != nil {
		return err
	}
	if ue.Status != nil {
		if core.CleanString(*ue.Status) == "" {
			return core.NewFieldError("status", "this field is required")
		}
		key, err := dropdown.NormalizeWith(r, dropdown.FieldStatus, *ue.Status)
		if err != nil {
			return err
		}
		ue.Status = &key
	}
	if ue.Type != nil {
		key, err := dropdown.NormalizeOptional(r, dropdown.FieldType, *ue.Type)
		if err != nil {
			return err
		}
		ue.Type = &key
	}
	return nil
}

func (svc *Service) Update(ctx context.Context, actor access.Actor, id string, ue UpdateEvent) (Event, error) {
	orig, err := svc.Get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if err = svc.normalizeUpdate(ctx, &ue); err != nil {
		return Event{}, err
	}

	evt, changes := ue.apply(orig)
	if len(changes) == 0 {
		return orig, nil
	}
	if err = svc.validate.Struct(evt.editable()); err != nil {
		return Event{}, err
	}
	if err = evt.validate(); err != nil {
		return Event{}, err
	}

	evt.UpdatedAt = time.Now().UTC()
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if evt, err = svc.repo.Update(ctx, evt); err != nil {
			return errors.Wrap(err, "updating event")
		}
		return svc.activities.RecordChanges(ctx, actor, activity.EntityEvent, evt.ID, changes)
	})
	if err != nil {
		return Event{}, err
	}
	return evt, nil
}

// ChangeStatus sets the status of an event. Setting the current status is a no-op.
func (svc *Service) ChangeStatus(ctx context.Context, actor access.Actor, id, status string) (Event, error) {
	return svc.Update(ctx, actor, id, UpdateEvent{Status: &status})
}
