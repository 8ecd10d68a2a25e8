package dropdown_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/dropdown"
	"github.com/trezcool/pathway/testutil"
)

func TestService_Module(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Dropdowns
	ctx := context.Background()

	mod, err := svc.Module(ctx, dropdown.ModuleLead)
	require.NoError(t, err)
	require.NotEmpty(t, mod.Fields[dropdown.FieldStatus])
	assert.Equal(t, "new", mod.Fields[dropdown.FieldStatus][0].Key)

	_, err = svc.Module(ctx, "course")
	assert.ErrorIs(t, err, dropdown.ErrModuleNotFound)
}

func TestService_CreateUpdate(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Dropdowns
	ctx := context.Background()

	t.Run("invalid", func(t *testing.T) {
		_, err := svc.Create(ctx, dropdown.NewOption{Module: "course", Field: "status", Key: "open", Label: "Open"})
		assert.Error(t, err)
		_, err = svc.Create(ctx, dropdown.NewOption{Module: "lead", Field: "source", Key: "has space", Label: "Open"})
		assert.Error(t, err)
		_, err = svc.Create(ctx, dropdown.NewOption{Module: "lead", Field: "source", Key: "radio", Label: "Radio", Color: "blue"})
		assert.Error(t, err)
	})

	t.Run("key taken", func(t *testing.T) {
		_, err := svc.Create(ctx, dropdown.NewOption{Module: "lead", Field: "source", Key: "Walk_In", Label: "Walk in"})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "key", vErr.Fields[0].Field)
	})

	opt, err := svc.Create(ctx, dropdown.NewOption{Module: " Lead ", Field: "source", Key: "Radio", Label: "Radio", SortOrder: 1})
	require.NoError(t, err)
	assert.Equal(t, "lead", opt.Module)
	assert.Equal(t, "radio", opt.Key)
	assert.True(t, opt.IsActive)

	r, err := svc.Resolver(ctx, dropdown.ModuleLead)
	require.NoError(t, err)
	assert.Equal(t, "radio", r.Options(dropdown.FieldSource)[0].Key, "the cache is invalidated, options are sorted")

	t.Run("deactivate", func(t *testing.T) {
		inactive := false
		label := "Radio ads"
		got, err := svc.Update(ctx, opt.ID, dropdown.UpdateOption{Label: &label, IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, "Radio ads", got.Label)
		assert.Equal(t, "radio", got.Key)

		_, err = svc.Normalize(ctx, dropdown.ModuleLead, dropdown.FieldSource, "radio")
		assert.Error(t, err, "inactive options cannot be selected")

		all, err := svc.AllOptions(ctx, dropdown.ModuleLead)
		require.NoError(t, err)
		var found bool
		for _, o := range all {
			found = found || o.ID == opt.ID
		}
		assert.True(t, found, "the settings screen lists inactive options")
	})

	t.Run("not found", func(t *testing.T) {
		label := "x"
		_, err := svc.Update(ctx, "5cf37266-3473-4006-984f-9325122678b7", dropdown.UpdateOption{Label: &label})
		assert.True(t, core.IsNotFound(err))
	})
}

func TestService_Seed(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Dropdowns
	ctx := context.Background()

	seeds, err := dropdown.LoadSeeds(nil)
	require.NoError(t, err)
	n, err := svc.Seed(ctx, seeds)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding is idempotent")

	seeds, err = dropdown.LoadSeeds([]byte("event:\n  type:\n    - {key: expo, label: Expo}\n    - {key: fair, label: Fair}\n"))
	require.NoError(t, err)
	n, err = svc.Seed(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := svc.Resolver(ctx, dropdown.ModuleEvent)
	require.NoError(t, err)
	assert.Equal(t, "Education Fair", r.Label(dropdown.FieldType, "fair"), "existing options are left untouched")
	assert.Equal(t, "Expo", r.Label(dropdown.FieldType, "expo"))
}
