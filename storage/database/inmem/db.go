// Package inmemdb implements the core repositories in memory, for tests and local runs without Postgres.
package inmemdb

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/admission"
	"github.com/trezcool/pathway/core/application"
	"github.com/trezcool/pathway/core/dropdown"
	"github.com/trezcool/pathway/core/event"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/core/student"
	"github.com/trezcool/pathway/core/user"
)

type (
	tables struct {
		users         map[string]user.User
		leads         map[string]lead.Lead
		students      map[string]student.Student
		applications  map[string]application.Application
		admissions    map[string]admission.Admission
		events        map[string]event.Event
		registrations map[string]event.Registration
		activities    map[string]activity.Activity
		dropdowns     map[string]dropdown.Option
	}

	DB struct {
		mutex sync.RWMutex
		tables

		txMutex sync.Mutex
	}

	txKey struct{}
)

func Open() *DB {
	return &DB{
		tables: tables{
			users:         make(map[string]user.User),
			leads:         make(map[string]lead.Lead),
			students:      make(map[string]student.Student),
			applications:  make(map[string]application.Application),
			admissions:    make(map[string]admission.Admission),
			events:        make(map[string]event.Event),
			registrations: make(map[string]event.Registration),
			activities:    make(map[string]activity.Activity),
			dropdowns:     make(map[string]dropdown.Option),
		},
	}
}

func (t tables) clone() tables {
	return tables{
		users:         maps.Clone(t.users),
		leads:         maps.Clone(t.leads),
		students:      maps.Clone(t.students),
		applications:  maps.Clone(t.applications),
		admissions:    maps.Clone(t.admissions),
		events:        maps.Clone(t.events),
		registrations: maps.Clone(t.registrations),
		activities:    maps.Clone(t.activities),
		dropdowns:     maps.Clone(t.dropdowns),
	}
}

// Transactor implements core.Transactor.
// Transactions are serialized with the writes made outside them; a failed one restores the tables as they were when it began.
type Transactor struct {
	db *DB
}

var _ core.Transactor = (*Transactor)(nil) // interface compliance check

func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.db.txMutex.Lock()
	defer t.db.txMutex.Unlock()

	t.db.mutex.RLock()
	snapshot := t.db.tables.clone()
	t.db.mutex.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.db.mutex.Lock()
		t.db.tables = snapshot
		t.db.mutex.Unlock()
		return err
	}
	return nil
}

// lockWrite locks the tables for a write and returns the unlock func.
// Outside a transaction, the write also waits for the running transaction so a rollback cannot discard it.
func (db *DB) lockWrite(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		db.mutex.Lock()
		return db.mutex.Unlock
	}
	db.txMutex.Lock()
	db.mutex.Lock()
	return func() {
		db.mutex.Unlock()
		db.txMutex.Unlock()
	}
}

// Truncate empties every table.
func (db *DB) Truncate() {
	fresh := Open()
	db.mutex.Lock()
	db.tables = fresh.tables
	db.mutex.Unlock()
}

func newID() string {
	return uuid.NewString()
}

// matches does a case-insensitive search of term in any of values.
func matches(term string, values ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func oneOf(value string, allowed []string) bool {
	return len(allowed) == 0 || core.StringsContain(allowed, value)
}

func eqIfSet(value, want string) bool {
	return want == "" || value == want
}

// fieldGetter returns the value of a record's column: string, int, float64, bool or time.Time.
type fieldGetter[T any] func(rec T, field string) interface{}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(strings.ToLower(av), strings.ToLower(b.(string)))
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case bool:
		bv := b.(bool)
		switch {
		case !av && bv:
			return -1
		case av && !bv:
			return 1
		}
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	return 0
}

// sortRecords orders recs like the SQL repositories do: by ordering (default "created_at DESC") then by id.
func sortRecords[T any](recs []T, ordering []core.DBOrdering, get fieldGetter[T]) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareValues(get(recs[i], ord.Field), get(recs[j], ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return get(recs[i], "id").(string) < get(recs[j], "id").(string)
	})
}

func paginate[T any](recs []T, page core.Page) []T {
	if page.Offset >= len(recs) {
		return []T{}
	}
	recs = recs[page.Offset:]
	if page.Limit > 0 && page.Limit < len(recs) {
		recs = recs[:page.Limit]
	}
	return recs
}

// duplicates returns the IDs of recs (oldest first) using email or phone, other than excludedID.
func duplicates[T any](recs map[string]T, email, phone, excludedID string, fields func(T) (id, email, phone string, createdAt time.Time)) (emailIDs, phoneIDs []string) {
	type hit struct {
		id string
		at time.Time
	}
	var emailHits, phoneHits []hit
	for _, rec := range recs {
		id, e, p, at := fields(rec)
		if id == excludedID {
			continue
		}
		if email != "" && e == email {
			emailHits = append(emailHits, hit{id, at})
		}
		if phone != "" && p == phone {
			phoneHits = append(phoneHits, hit{id, at})
		}
	}
	ids := func(hits []hit) []string {
		sort.Slice(hits, func(i, j int) bool { return hits[i].at.Before(hits[j].at) })
		var out []string
		for _, h := range hits {
			out = append(out, h.id)
		}
		return out
	}
	return ids(emailHits), ids(phoneHits)
}
