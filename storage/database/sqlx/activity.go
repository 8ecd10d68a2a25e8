package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/storage/database"
)

var activityColumns = []string{
	"id", "entity_type", "entity_id", "type", "content", "field", "old_value", "new_value", "user_id", "user_name",
	"client_ref", "created_at",
}

type activityRow struct {
	ID         string      `db:"id"`
	EntityType string      `db:"entity_type"`
	EntityID   string      `db:"entity_id"`
	Type       string      `db:"type"`
	Content    string      `db:"content"`
	Field      string      `db:"field"`
	OldValue   string      `db:"old_value"`
	NewValue   string      `db:"new_value"`
	UserID     null.String `db:"user_id"`
	UserName   string      `db:"user_name"`
	ClientRef  string      `db:"client_ref"`
	CreatedAt  time.Time   `db:"created_at"`
}

func toActivityRow(act activity.Activity) activityRow {
	return activityRow{
		ID:         act.ID,
		EntityType: string(act.EntityType),
		EntityID:   act.EntityID,
		Type:       string(act.Type),
		Content:    act.Content,
		Field:      act.Field,
		OldValue:   act.OldValue,
		NewValue:   act.NewValue,
		UserID:     nullString(act.UserID),
		UserName:   act.UserName,
		ClientRef:  act.ClientRef,
		CreatedAt:  act.CreatedAt.UTC(),
	}
}

func (r activityRow) toActivity() activity.Activity {
	return activity.Activity{
		ID:         r.ID,
		EntityType: activity.EntityType(r.EntityType),
		EntityID:   r.EntityID,
		Type:       activity.Type(r.Type),
		Content:    r.Content,
		Field:      r.Field,
		OldValue:   r.OldValue,
		NewValue:   r.NewValue,
		UserID:     r.UserID.String,
		UserName:   r.UserName,
		ClientRef:  r.ClientRef,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) Create(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	if act.ID == "" {
		act.ID = newID()
	}
	if _, err := namedExec(ctx, repo.db, insertQuery("activities", activityColumns), toActivityRow(act)); err != nil {
		err = database.MapUniqueViolation(err, map[string]error{"_client_ref_key": activity.ErrClientRefExists})
		return activity.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return act, nil
}

func (repo *activityRepository) GetByClientRef(ctx context.Context, et activity.EntityType, entityID, clientRef string) (activity.Activity, error) {
	if !isUUID(entityID) || clientRef == "" {
		return activity.Activity{}, activity.ErrNotFound
	}
	b := psql.Select(activityColumns...).From("activities").Where(sq.Eq{
		"entity_type": string(et),
		"entity_id":   entityID,
		"client_ref":  clientRef,
	})
	var r activityRow
	if err := get(ctx, repo.db, &r, b); err != nil {
		return activity.Activity{}, trapNoRows(err, activity.ErrNotFound, "selecting activity")
	}
	return r.toActivity(), nil
}

func (repo *activityRepository) Query(ctx context.Context, filter activity.QueryFilter, page core.Page) ([]activity.Activity, error) {
	b := psql.Select(activityColumns...).From("activities")
	if filter.EntityType != "" {
		b = b.Where(sq.Eq{"entity_type": string(filter.EntityType)})
	}
	b, ok := whereUUIDs(b, "entity_id", filter.EntityID, "user_id", filter.UserID)
	if !ok {
		return []activity.Activity{}, nil
	}
	b = orderPage(b, nil, page) // newest first

	var rows []activityRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting activities")
	}
	acts := make([]activity.Activity, 0, len(rows))
	for _, r := range rows {
		acts = append(acts, r.toActivity())
	}
	return acts, nil
}
