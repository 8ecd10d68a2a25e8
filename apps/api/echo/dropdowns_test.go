package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core/dropdown"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/core/user"
)

func Test_dropdownApi(t *testing.T) {
	app := setup(t)
	_, counsellor := app.user(t, "counsel", user.RoleCounsellor)
	_, manager := app.user(t, "manager", user.RoleManager)

	t.Run("modules", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/dropdowns", counsellor, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, dropdown.Modules, decode[map[string][]string](t, rec)["modules"])
	})

	t.Run("module options", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/dropdowns/module/lead", counsellor, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		opts := decode[dropdown.ModuleOptions](t, rec)
		assert.Equal(t, dropdown.ModuleLead, opts.Module)
		require.NotEmpty(t, opts.Fields[dropdown.FieldStatus])
		assert.Equal(t, "new", opts.Fields[dropdown.FieldStatus][0].Key)
	})

	newOption := dropdown.NewOption{Module: "lead", Field: "source", Key: "tiktok", Label: "TikTok", SortOrder: 100}
	app.run(t, []httpTest{
		{name: "unknown module", path: "/api/dropdowns/module/planet", token: counsellor, wantCode: http.StatusNotFound},
		{
			name: "counsellor cannot edit", method: http.MethodPost, path: "/api/dropdowns", token: counsellor,
			body: newOption, wantCode: http.StatusForbidden,
		},
		{
			name: "bad color", method: http.MethodPost, path: "/api/dropdowns", token: manager,
			body:     dropdown.NewOption{Module: "lead", Field: "source", Key: "x", Label: "X", Color: "blue"},
			wantCode: http.StatusBadRequest,
		},
	})

	var opt dropdown.Option
	t.Run("create", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/dropdowns", manager, newOption)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		opt = decode[dropdown.Option](t, rec)
		assert.Equal(t, "tiktok", opt.Key)

		// new options are usable right away
		l := createLead(t, app, counsellor, lead.NewLead{FirstName: "Tik", Email: "tik@mail.io", Source: "TikTok"})
		assert.Equal(t, "tiktok", l.Source)
	})

	t.Run("deactivate", func(t *testing.T) {
		inactive := false
		rec := app.do(t, http.MethodPut, "/api/dropdowns/"+opt.ID, manager, dropdown.UpdateOption{IsActive: &inactive})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = app.do(t, http.MethodPost, "/api/leads", counsellor, lead.NewLead{FirstName: "Tok", Email: "tok@mail.io", Source: "tiktok"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
