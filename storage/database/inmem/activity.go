package inmemdb

import (
	"context"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) findByClientRef(et activity.EntityType, entityID, clientRef string) (activity.Activity, bool) {
	if clientRef == "" {
		return activity.Activity{}, false
	}
	for _, act := range repo.db.activities {
		if act.EntityType == et && act.EntityID == entityID && act.ClientRef == clientRef {
			return act, true
		}
	}
	return activity.Activity{}, false
}

func (repo *activityRepository) Create(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	defer repo.db.lockWrite(ctx)()

	if _, exists := repo.findByClientRef(act.EntityType, act.EntityID, act.ClientRef); exists {
		return activity.Activity{}, activity.ErrClientRefExists
	}
	if act.ID == "" {
		act.ID = newID()
	}
	repo.db.activities[act.ID] = act
	return act, nil
}

func (repo *activityRepository) GetByClientRef(_ context.Context, et activity.EntityType, entityID, clientRef string) (activity.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if act, ok := repo.findByClientRef(et, entityID, clientRef); ok {
		return act, nil
	}
	return activity.Activity{}, activity.ErrNotFound
}

func activityField(act activity.Activity, field string) interface{} {
	if field == "id" {
		return act.ID
	}
	return act.CreatedAt
}

func (repo *activityRepository) Query(_ context.Context, filter activity.QueryFilter, page core.Page) ([]activity.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	acts := make([]activity.Activity, 0)
	for _, act := range repo.db.activities {
		if (filter.EntityType != "" && act.EntityType != filter.EntityType) ||
			!eqIfSet(act.EntityID, filter.EntityID) ||
			!eqIfSet(act.UserID, filter.UserID) {
			continue
		}
		acts = append(acts, act)
	}
	sortRecords(acts, nil, activityField)
	return paginate(acts, page), nil
}
