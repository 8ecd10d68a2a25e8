package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/pathway/core/dropdown"
)

type dropdownRepository struct {
	db *DB
}

var _ dropdown.Repository = (*dropdownRepository)(nil) // interface compliance check

func NewDropdownRepository(db *DB) dropdown.Repository {
	return &dropdownRepository{db: db}
}

func (repo *dropdownRepository) Create(ctx context.Context, opt dropdown.Option) (dropdown.Option, error) {
	defer repo.db.lockWrite(ctx)()

	for _, o := range repo.db.dropdowns {
		if o.Module == opt.Module && o.Field == opt.Field && o.Key == opt.Key {
			return dropdown.Option{}, dropdown.ErrKeyExists
		}
	}
	if opt.ID == "" {
		opt.ID = newID()
	}
	repo.db.dropdowns[opt.ID] = opt
	return opt, nil
}

func (repo *dropdownRepository) Get(_ context.Context, id string) (dropdown.Option, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if opt, ok := repo.db.dropdowns[id]; ok {
		return opt, nil
	}
	return dropdown.Option{}, dropdown.ErrNotFound
}

func (repo *dropdownRepository) Update(ctx context.Context, opt dropdown.Option) (dropdown.Option, error) {
	defer repo.db.lockWrite(ctx)()

	if _, ok := repo.db.dropdowns[opt.ID]; !ok {
		return dropdown.Option{}, dropdown.ErrNotFound
	}
	repo.db.dropdowns[opt.ID] = opt
	return opt, nil
}

func (repo *dropdownRepository) QueryModule(_ context.Context, module string, includeInactive bool) ([]dropdown.Option, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	opts := make([]dropdown.Option, 0)
	for _, opt := range repo.db.dropdowns {
		if opt.Module == module && (includeInactive || opt.IsActive) {
			opts = append(opts, opt)
		}
	}
	sort.Slice(opts, func(i, j int) bool {
		a, b := opts[i], opts[j]
		switch {
		case a.Field != b.Field:
			return a.Field < b.Field
		case a.SortOrder != b.SortOrder:
			return a.SortOrder < b.SortOrder
		default:
			return a.Label < b.Label
		}
	})
	return opts, nil
}
