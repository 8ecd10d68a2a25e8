package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/pathway/apps/api/echo"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/testutil"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	app.user(t, "counsel", user.RoleCounsellor)
	testutil.CreateUser(t, app.env.Users, "Gone", "gone", "gone@test.io", "gone-Pa55w0rd!", nil, false)

	app.run(t, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/api/users/login", body: map[string]string{},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"username": "this field is required", "password": "this field is required"},
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/users/login",
			body:     echoapi.LoginRequest{Username: "counsel", Password: "nope"},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: "authentication failed"},
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/api/users/login",
			body:     echoapi.LoginRequest{Username: "ghost", Password: "ghost-Pa55w0rd!"},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: "authentication failed"},
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/api/users/login",
			body:     echoapi.LoginRequest{Username: "gone", Password: "gone-Pa55w0rd!"},
			wantCode: http.StatusForbidden, wantData: httpErr{Error: "account deactivated"},
		},
	})

	t.Run("by username or email", func(t *testing.T) {
		for _, uname := range []string{"counsel", "COUNSEL@test.io"} {
			rec := app.do(t, http.MethodPost, "/api/users/login", "", echoapi.LoginRequest{Username: uname, Password: "counsel-Pa55w0rd!"})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decode[echoapi.LoginResponse](t, rec)
			assert.NotEmpty(t, resp.Token)

			// the token opens the authenticated API
			rec = app.do(t, http.MethodGet, "/api/navigation", resp.Token, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestServer_authentication(t *testing.T) {
	app := setup(t)
	usr, token := app.user(t, "counsel", user.RoleCounsellor)

	app.run(t, []httpTest{
		{name: "missing token", path: "/api/leads", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{name: "invalid token", path: "/api/leads", token: "not.a.jwt", wantCode: http.StatusUnauthorized},
		{name: "valid token", path: "/api/leads", token: token, wantData: []interface{}{}},
	})

	t.Run("deactivated after login", func(t *testing.T) {
		usr.IsActive = false
		_, err := app.env.Users.Update(ctxBg, usr)
		require.NoError(t, err)

		rec := app.do(t, http.MethodGet, "/api/leads", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("deleted after login", func(t *testing.T) {
		require.NoError(t, app.env.Users.Delete(ctxBg, usr.ID))

		rec := app.do(t, http.MethodGet, "/api/leads", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestServer_modulePermissions(t *testing.T) {
	app := setup(t)
	_, frontDesk := app.user(t, "desk", user.RoleFrontDesk)
	_, counsellor := app.user(t, "counsel", user.RoleCounsellor)
	_, nobody := app.user(t, "nobody")
	forbidden := httpErr{Error: "permission denied"}

	app.run(t, []httpTest{
		{name: "front desk reads leads", path: "/api/leads", token: frontDesk},
		{name: "front desk cannot read students", path: "/api/students", token: frontDesk, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "front desk cannot read applications", path: "/api/applications", token: frontDesk, wantCode: http.StatusForbidden},
		{name: "front desk cannot read admissions", path: "/api/admissions", token: frontDesk, wantCode: http.StatusForbidden},
		{name: "front desk reads registrations", path: "/api/event-registrations", token: frontDesk},
		{name: "counsellor reads events", path: "/api/events", token: counsellor},
		{
			name: "counsellor cannot create events", method: http.MethodPost, path: "/api/events", token: counsellor,
			body: map[string]string{"name": "Fair"}, wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "no role, no leads", path: "/api/leads", token: nobody, wantCode: http.StatusForbidden},
		{name: "no role, no dashboard", path: "/api/dashboard", token: nobody, wantCode: http.StatusForbidden},
		{name: "users need users read", path: "/api/users", token: counsellor, wantCode: http.StatusForbidden},
	})
}
