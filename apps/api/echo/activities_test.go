package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/core/user"
)

func Test_activityApi(t *testing.T) {
	app := setup(t)
	_, token := app.user(t, "counsel", user.RoleCounsellor)
	_, otherToken := app.user(t, "counsel2", user.RoleCounsellor)
	_, deskToken := app.user(t, "desk", user.RoleFrontDesk)
	l := createLead(t, app, token, lead.NewLead{FirstName: "Imani", Phone: "+243810000009"})
	path := "/api/activities/lead/" + l.ID

	var first activity.Activity
	t.Run("comment", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, path, token, activity.NewComment{Content: " Called back ", ClientRef: "tab-1:42"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		first = decode[activity.Activity](t, rec)
		assert.Equal(t, activity.TypeComment, first.Type)
		assert.Equal(t, "Called back", first.Content)
		assert.Equal(t, "counsel", first.UserName)
	})

	t.Run("replayed client_ref", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, path, token, activity.NewComment{Content: "Called back", ClientRef: "tab-1:42"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, first.ID, decode[activity.Activity](t, rec).ID)
	})

	t.Run("status change shows labels", func(t *testing.T) {
		rec := app.do(t, http.MethodPatch, "/api/leads/"+l.ID+"/status", token, map[string]string{"status": "qualified"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = app.do(t, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		acts := decode[[]activity.Activity](t, rec)
		require.Len(t, acts, 3) // created, comment, status change

		var change *activity.Activity
		for i := range acts {
			if acts[i].Type == activity.TypeStatusChange {
				change = &acts[i]
			}
		}
		require.NotNil(t, change)
		assert.Equal(t, "new", change.OldValue)
		assert.Equal(t, "qualified", change.NewValue)
		assert.Equal(t, "New", change.OldLabel)
		assert.Equal(t, "Qualified", change.NewLabel)
	})

	t.Run("pagination", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, path+"?limit=1&offset=1", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]activity.Activity](t, rec), 1)
	})

	app.run(t, []httpTest{
		{name: "unknown entity type", path: "/api/activities/planet/" + l.ID, token: token, wantCode: http.StatusBadRequest},
		{name: "invisible entity", path: path, token: otherToken, wantCode: http.StatusNotFound},
		{name: "no module permission", path: "/api/activities/student/" + l.ID, token: deskToken, wantCode: http.StatusForbidden},
		{
			name: "empty comment", method: http.MethodPost, path: path, token: token,
			body: activity.NewComment{Content: "   "}, wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown entity", method: http.MethodPost, path: "/api/activities/lead/00000000-0000-0000-0000-000000000000", token: token,
			body: activity.NewComment{Content: "hello"}, wantCode: http.StatusNotFound,
		},
	})
}
