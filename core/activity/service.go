package activity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/dropdown"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("activity not found")
	ErrClientRefExists   = errors.New("an activity with this client_ref already exists")
	ErrUnknownEntityType = core.NewValidationError(errors.New("unknown entity type"))
	ErrEntityNotFound    = core.NewNotFoundError("not found")
)

type (
	Repository interface {
		// Create returns ErrClientRefExists if an activity of the same entity already uses act.ClientRef.
		Create(ctx context.Context, act Activity) (Activity, error)
		GetByClientRef(ctx context.Context, et EntityType, entityID, clientRef string) (Activity, error)
		// Query returns the matching activities, newest first.
		Query(ctx context.Context, filter QueryFilter, page core.Page) ([]Activity, error)
	}

	// EntityLookup returns a core.NotFoundError if the entity does not exist or if actor cannot see it.
	EntityLookup func(ctx context.Context, actor access.Actor, id string) error

	Service struct {
		repo      Repository
		dropdowns *dropdown.Service
		validate  *validator.Validate

		mu      sync.RWMutex
		lookups map[EntityType]EntityLookup
	}
)

func NewService(repo Repository, dropdowns *dropdown.Service, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(dropdowns, "dropdowns"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	return &Service{
		repo:      repo,
		dropdowns: dropdowns,
		validate:  validate,
		lookups:   make(map[EntityType]EntityLookup),
	}
}

// RegisterEntity registers the lookup used to check that an entity exists & is visible before reading/commenting its feed.
func (svc *Service) RegisterEntity(et EntityType, lookup EntityLookup) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.lookups[et] = lookup
}

func (svc *Service) checkEntity(ctx context.Context, actor access.Actor, et EntityType, id string) error {
	svc.mu.RLock()
	lookup, ok := svc.lookups[et]
	svc.mu.RUnlock()
	if !ok {
		return ErrUnknownEntityType
	}
	if err := lookup(ctx, actor, id); err != nil {
		if core.IsNotFound(err) {
			return ErrEntityNotFound
		}
		return errors.Wrap(err, "looking up entity")
	}
	return nil
}

// List returns the feed of an entity, newest first, with dropdown values resolved to labels.
func (svc *Service) List(ctx context.Context, actor access.Actor, et EntityType, id string, page core.Page) ([]Activity, error) {
	if err := svc.checkEntity(ctx, actor, et, id); err != nil {
		return nil, err
	}
	acts, err := svc.repo.Query(ctx, QueryFilter{EntityType: et, EntityID: id}, page.Clean())
	if err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	return svc.resolveLabels(ctx, acts)
}

// Recent returns the latest activities performed by actor.
func (svc *Service) Recent(ctx context.Context, actor access.Actor, limit int) ([]Activity, error) {
	acts, err := svc.repo.Query(ctx, QueryFilter{UserID: actor.ID}, core.Page{Limit: limit}.Clean())
	if err != nil {
		return nil, errors.Wrap(err, "querying recent activities")
	}
	return svc.resolveLabels(ctx, acts)
}

func (svc *Service) resolveLabels(ctx context.Context, acts []Activity) ([]Activity, error) {
	resolvers := make(map[string]dropdown.Resolver)
	for i := range acts {
		act := &acts[i]
		if act.Field == "" {
			continue
		}
		module, field := act.EntityType.dropdownModule(), act.Field
		if m, f, ok := strings.Cut(act.Field, "."); ok { // change of a related record
			module, field = m, f
		}
		r, ok := resolvers[module]
		if !ok {
			var err error
			if r, err = svc.dropdowns.Resolver(ctx, module); err != nil {
				return nil, errors.Wrap(err, "loading dropdown resolver")
			}
			resolvers[module] = r
		}
		if r.Has(field) {
			act.OldLabel = r.Label(field, act.OldValue)
			act.NewLabel = r.Label(field, act.NewValue)
		}
	}
	return acts, nil
}

// Comment adds a comment to an entity's feed.
// Posting the same ClientRef twice returns the existing activity and created == false.
func (svc *Service) Comment(ctx context.Context, actor access.Actor, et EntityType, id string, nc NewComment) (act Activity, created bool, err error) {
	nc.Clean()
	if err = svc.validate.Struct(nc); err != nil {
		return Activity{}, false, err
	}
	if err = svc.checkEntity(ctx, actor, et, id); err != nil {
		return Activity{}, false, err
	}

	if nc.ClientRef != "" {
		act, err = svc.repo.GetByClientRef(ctx, et, id, nc.ClientRef)
		if err == nil {
			return act, false, nil
		} else if !core.IsNotFound(err) {
			return Activity{}, false, errors.Wrap(err, "finding activity by client_ref")
		}
	}

	act, err = svc.repo.Create(ctx, Activity{
		EntityType: et,
		EntityID:   id,
		Type:       TypeComment,
		Content:    nc.Content,
		UserID:     actor.ID,
		UserName:   actor.Name,
		ClientRef:  nc.ClientRef,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrClientRefExists { // lost a race with a retry
			act, err = svc.repo.GetByClientRef(ctx, et, id, nc.ClientRef)
			return act, false, errors.Wrap(err, "finding activity by client_ref")
		}
		return Activity{}, false, errors.Wrap(err, "creating comment")
	}
	return act, true, nil
}

func (svc *Service) record(ctx context.Context, actor access.Actor, act Activity) error {
	act.UserID = actor.ID
	act.UserName = actor.Name
	act.CreatedAt = time.Now().UTC()
	if _, err := svc.repo.Create(ctx, act); err != nil {
		return errors.Wrap(err, fmt.Sprintf("recording %s activity", act.Type))
	}
	return nil
}

func (svc *Service) RecordCreated(ctx context.Context, actor access.Actor, et EntityType, id, content string) error {
	return svc.record(ctx, actor, Activity{EntityType: et, EntityID: id, Type: TypeCreated, Content: content})
}

func (svc *Service) RecordConverted(ctx context.Context, actor access.Actor, et EntityType, id, content string) error {
	return svc.record(ctx, actor, Activity{EntityType: et, EntityID: id, Type: TypeConverted, Content: content})
}

// RecordChanges logs one activity per change; "status" changes are logged as TypeStatusChange.
func (svc *Service) RecordChanges(ctx context.Context, actor access.Actor, et EntityType, id string, changes ChangeSet) error {
	return svc.recordChanges(ctx, actor, et, id, "", "", changes)
}

// RecordRelatedChanges logs the changes of a record without a feed of its own (e.g. an event registration)
// onto its parent's feed. Fields are stored as "<module>.<field>" and content names the changed record.
func (svc *Service) RecordRelatedChanges(ctx context.Context, actor access.Actor, et EntityType, id, module, content string, changes ChangeSet) error {
	return svc.recordChanges(ctx, actor, et, id, module, content, changes)
}

func (svc *Service) recordChanges(ctx context.Context, actor access.Actor, et EntityType, id, module, content string, changes ChangeSet) error {
	for _, c := range changes {
		typ := TypeFieldChange
		if c.Field == dropdown.FieldStatus {
			typ = TypeStatusChange
		}
		field := c.Field
		if module != "" {
			field = module + "." + field
		}
		err := svc.record(ctx, actor, Activity{
			EntityType: et,
			EntityID:   id,
			Type:       typ,
			Content:    content,
			Field:      field,
			OldValue:   c.Old,
			NewValue:   c.New,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
