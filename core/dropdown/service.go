package dropdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/pathway/core"
	appfs "github.com/trezcool/pathway/fs"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("dropdown option not found")
	ErrModuleNotFound = core.NewNotFoundError("dropdown module not found")
	ErrKeyExists      = errors.New("an option with this key already exists")

	seedsPath = "assets/dropdowns.yaml"
)

type (
	Repository interface {
		Create(ctx context.Context, opt Option) (Option, error)
		Get(ctx context.Context, id string) (Option, error)
		Update(ctx context.Context, opt Option) (Option, error)
		// QueryModule returns the options of a module ordered by field, sort_order, label.
		QueryModule(ctx context.Context, module string, includeInactive bool) ([]Option, error)
	}

	Service struct {
		repo     Repository
		cache    core.Cache
		cacheTTL time.Duration
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(repo Repository, cache core.Cache, validate *validator.Validate, logger core.Logger, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(cache, "cache"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: conf.Redis.TTL,
		validate: validate,
		logger:   logger,
	}
}

func cacheKey(module string) string {
	return "dropdowns:module:" + module
}

func isKnownModule(module string) bool {
	return core.StringsContain(Modules, module)
}

// Module returns the active options of a module, falling back to the default options
// for fields that have none configured.
func (svc *Service) Module(ctx context.Context, module string) (ModuleOptions, error) {
	if !isKnownModule(module) {
		return ModuleOptions{}, ErrModuleNotFound
	}

	var mod ModuleOptions
	if err := svc.cache.Get(ctx, cacheKey(module), &mod); err == nil {
		return mod, nil
	} else if err != core.ErrCacheMiss {
		svc.logger.Warn(fmt.Sprintf("reading dropdown cache: %v", err), err)
	}

	opts, err := svc.repo.QueryModule(ctx, module, false)
	if err != nil {
		return ModuleOptions{}, errors.Wrap(err, "querying module options")
	}
	mod = ModuleOptions{Module: module, Fields: groupByField(opts)}
	for field, defaults := range defaultSeeds()[module] {
		if _, ok := mod.Fields[field]; !ok {
			mod.Fields[field] = seedOptions(module, field, defaults)
		}
	}

	if err = svc.cache.Set(ctx, cacheKey(module), mod, svc.cacheTTL); err != nil {
		svc.logger.Warn(fmt.Sprintf("writing dropdown cache: %v", err), err)
	}
	return mod, nil
}

// AllOptions returns every option of a module, including the inactive ones (settings screen).
func (svc *Service) AllOptions(ctx context.Context, module string) ([]Option, error) {
	if !isKnownModule(module) {
		return nil, ErrModuleNotFound
	}
	return svc.repo.QueryModule(ctx, module, true)
}

func (svc *Service) Resolver(ctx context.Context, module string) (Resolver, error) {
	mod, err := svc.Module(ctx, module)
	if err != nil {
		return Resolver{}, err
	}
	return NewResolver(mod.Fields), nil
}

// Normalize resolves value to an option key of module.field.
// An empty value resolves to the default (first) option; an unknown value is a validation error on field.
func (svc *Service) Normalize(ctx context.Context, module, field, value string) (string, error) {
	r, err := svc.Resolver(ctx, module)
	if err != nil {
		return "", err
	}
	return NormalizeWith(r, field, value)
}

// NormalizeWith is Normalize on an already loaded Resolver.
func NormalizeWith(r Resolver, field, value string) (string, error) {
	value = core.CleanString(value)
	if value == "" {
		if def := r.Default(field); def != "" {
			return def, nil
		}
		return "", core.NewFieldError(field, "this field is required")
	}
	if !r.Has(field) {
		return value, nil
	}
	key, ok := r.Key(field, value)
	if !ok {
		return "", core.NewFieldError(field, fmt.Sprintf("%q is not a valid choice", value))
	}
	return key, nil
}

// NormalizeOptional is NormalizeWith for fields that may stay empty.
func NormalizeOptional(r Resolver, field, value string) (string, error) {
	if core.CleanString(value) == "" {
		return "", nil
	}
	return NormalizeWith(r, field, value)
}

func (svc *Service) Create(ctx context.Context, no NewOption) (Option, error) {
	no.Clean()
	if err := svc.validate.Struct(no); err != nil {
		return Option{}, err
	}

	now := time.Now().UTC()
	opt, err := svc.repo.Create(ctx, Option{
		Module:    no.Module,
		Field:     no.Field,
		Key:       no.Key,
		Label:     no.Label,
		SortOrder: no.SortOrder,
		Color:     no.Color,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Cause(err) == ErrKeyExists {
			return Option{}, core.NewValidationError(err, core.FieldError{Field: "key", Error: err.Error()})
		}
		return Option{}, errors.Wrap(err, "creating option")
	}
	svc.invalidate(ctx, opt.Module)
	return opt, nil
}

func (svc *Service) Update(ctx context.Context, id string, uo UpdateOption) (Option, error) {
	if err := svc.validate.Struct(uo); err != nil {
		return Option{}, err
	}
	opt, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Option{}, err
	}
	if uo.Label != nil {
		opt.Label = core.CleanString(*uo.Label)
	}
	if uo.SortOrder != nil {
		opt.SortOrder = *uo.SortOrder
	}
	if uo.Color != nil {
		opt.Color = core.CleanString(*uo.Color)
	}
	if uo.IsActive != nil {
		opt.IsActive = *uo.IsActive
	}
	opt.UpdatedAt = time.Now().UTC()

	if opt, err = svc.repo.Update(ctx, opt); err != nil {
		return Option{}, errors.Wrap(err, "updating option")
	}
	svc.invalidate(ctx, opt.Module)
	return opt, nil
}

// Seed creates the seed options missing from the database. Existing options are left untouched.
func (svc *Service) Seed(ctx context.Context, seeds Seeds) (int, error) {
	var created int
	for _, module := range sortedKeys(seeds) {
		if !isKnownModule(module) {
			return created, errors.Errorf("unknown dropdown module %q", module)
		}
		existing, err := svc.repo.QueryModule(ctx, module, true)
		if err != nil {
			return created, errors.Wrap(err, "querying module options")
		}
		have := make(map[string]bool, len(existing))
		for _, opt := range existing {
			have[opt.Field+"."+opt.Key] = true
		}

		fields := seeds[module]
		for _, field := range sortedKeys(fields) {
			for _, opt := range seedOptions(module, field, fields[field]) {
				if have[field+"."+opt.Key] {
					continue
				}
				if _, err = svc.repo.Create(ctx, opt); err != nil {
					return created, errors.Wrapf(err, "creating option %s.%s.%s", module, field, opt.Key)
				}
				created++
			}
		}
		svc.invalidate(ctx, module)
	}
	return created, nil
}

func (svc *Service) invalidate(ctx context.Context, module string) {
	if err := svc.cache.Delete(ctx, cacheKey(module)); err != nil {
		svc.logger.Warn(fmt.Sprintf("invalidating dropdown cache: %v", err), err)
	}
}

var (
	defaults     Seeds
	defaultsOnce sync.Once
)

// defaultSeeds returns the options shipped in assets/dropdowns.yaml.
func defaultSeeds() Seeds {
	defaultsOnce.Do(func() {
		seeds, err := LoadSeeds(nil)
		if err != nil {
			panic(errors.Wrap(err, "loading default dropdown options"))
		}
		defaults = seeds
	})
	return defaults
}

// LoadSeeds parses a seed file. A nil data loads the embedded default seeds.
func LoadSeeds(data []byte) (Seeds, error) {
	if data == nil {
		var err error
		if data, err = appfs.FS.ReadFile(seedsPath); err != nil {
			return nil, errors.Wrap(err, "reading seeds")
		}
	}
	var seeds Seeds
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, errors.Wrap(err, "parsing seeds")
	}
	return seeds, nil
}

func seedOptions(module, field string, seeds []SeedOption) []Option {
	now := time.Now().UTC()
	opts := make([]Option, 0, len(seeds))
	for i, s := range seeds {
		opts = append(opts, Option{
			Module:    module,
			Field:     field,
			Key:       s.Key,
			Label:     s.Label,
			SortOrder: (i + 1) * 10,
			Color:     s.Color,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return opts
}

func groupByField(opts []Option) map[string][]Option {
	fields := make(map[string][]Option)
	for _, opt := range opts {
		fields[opt.Field] = append(fields[opt.Field], opt)
	}
	for _, fopts := range fields {
		SortOptions(fopts)
	}
	return fields
}

// SortOptions orders options by sort_order then label.
func SortOptions(opts []Option) {
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].SortOrder != opts[j].SortOrder {
			return opts[i].SortOrder < opts[j].SortOrder
		}
		return opts[i].Label < opts[j].Label
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
