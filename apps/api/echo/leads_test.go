package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/pathway/apps/api/echo"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/core/user"
)

func createLead(t *testing.T, app *testApp, token string, nl lead.NewLead) lead.Lead {
	rec := app.do(t, http.MethodPost, "/api/leads", token, nl)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[lead.Lead](t, rec)
}

func Test_leadApi_create(t *testing.T) {
	app := setup(t)
	desk, token := app.user(t, "desk", user.RoleFrontDesk)

	t.Run("defaults and normalization", func(t *testing.T) {
		l := createLead(t, app, token, lead.NewLead{
			FirstName:  "  Amani ",
			Email:      "Amani@Mail.io",
			Phone:      "+243 81 000-0001",
			Source:     "Walk-in",
			StudyLevel: "MASTER",
		})
		assert.NotEmpty(t, l.ID)
		assert.Equal(t, "Amani", l.FirstName)
		assert.Equal(t, "amani@mail.io", l.Email)
		assert.Equal(t, "+243810000001", l.Phone)
		assert.Equal(t, lead.StatusNew, l.Status)
		assert.Equal(t, "walk_in", l.Source)
		assert.Equal(t, "master", l.StudyLevel)
		assert.Equal(t, desk.ID, l.CreatedBy)
	})

	app.run(t, []httpTest{
		{
			name: "email or phone required", method: http.MethodPost, path: "/api/leads", token: token,
			body: lead.NewLead{FirstName: "Nobody"}, wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate email", method: http.MethodPost, path: "/api/leads", token: token,
			body: lead.NewLead{FirstName: "Twin", Email: "amani@mail.io"}, wantCode: http.StatusBadRequest,
			wantData: map[string]string{"email": lead.ErrEmailExists.Error()},
		},
		{
			name: "duplicate phone", method: http.MethodPost, path: "/api/leads", token: token,
			body: lead.NewLead{FirstName: "Twin", Phone: "+243810000001"}, wantCode: http.StatusBadRequest,
			wantData: map[string]string{"phone": lead.ErrPhoneExists.Error()},
		},
		{
			name: "unknown status", method: http.MethodPost, path: "/api/leads", token: token,
			body: lead.NewLead{FirstName: "Odd", Email: "odd@mail.io", Status: "sleeping"}, wantCode: http.StatusBadRequest,
			wantData: map[string]string{"status": `"sleeping" is not a valid choice`},
		},
		{
			name: "converted is not settable", method: http.MethodPost, path: "/api/leads", token: token,
			body: lead.NewLead{FirstName: "Odd", Email: "odd@mail.io", Status: "converted"}, wantCode: http.StatusBadRequest,
		},
		{
			name: "malformed body", method: http.MethodPost, path: "/api/leads", token: token,
			body: "not an object", wantCode: http.StatusBadRequest, wantData: httpErr{Error: "malformed JSON body"},
		},
	})

	t.Run("check duplicate", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/leads/check-duplicate?email=AMANI@mail.io&phone=000000000", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[map[string]interface{}](t, rec)
		assert.Equal(t, true, resp["duplicate"])
		assert.Len(t, resp["email"], 1)
		assert.Len(t, resp["phone"], 0)
	})
}

func Test_leadApi_visibility(t *testing.T) {
	app := setup(t)
	c1, c1Token := app.user(t, "counsel1", user.RoleCounsellor)
	_, c2Token := app.user(t, "counsel2", user.RoleCounsellor)
	_, mgrToken := app.user(t, "manager", user.RoleManager)

	own := createLead(t, app, c1Token, lead.NewLead{FirstName: "Own", Email: "own@mail.io"})
	assigned := createLead(t, app, mgrToken, lead.NewLead{FirstName: "Assigned", Email: "assigned@mail.io", AssignedTo: c1.ID})
	other := createLead(t, app, mgrToken, lead.NewLead{FirstName: "Other", Email: "other@mail.io"})

	t.Run("counsellor sees own and assigned leads", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/leads?ordering=first_name", c1Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		leads := decode[[]lead.Lead](t, rec)
		require.Len(t, leads, 2)
		assert.Equal(t, assigned.ID, leads[0].ID)
		assert.Equal(t, own.ID, leads[1].ID)
	})

	t.Run("manager sees all", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/leads", mgrToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]lead.Lead](t, rec), 3)
	})

	app.run(t, []httpTest{
		{name: "hidden lead is not found", path: "/api/leads/" + other.ID, token: c1Token, wantCode: http.StatusNotFound},
		{name: "other counsellor", path: "/api/leads/" + own.ID, token: c2Token, wantCode: http.StatusNotFound},
		{name: "own lead", path: "/api/leads/" + own.ID, token: c1Token, wantData: own},
		{
			name: "hidden lead cannot be updated", method: http.MethodPut, path: "/api/leads/" + other.ID, token: c1Token,
			body: map[string]string{"notes": "mine now"}, wantCode: http.StatusNotFound,
		},
		{name: "filter by status", path: "/api/leads?status=contacted", token: mgrToken, wantData: []interface{}{}},
		{name: "bad converted filter", path: "/api/leads?converted=maybe", token: mgrToken, wantCode: http.StatusBadRequest},
	})
}

func Test_leadApi_updateAndStatus(t *testing.T) {
	app := setup(t)
	_, token := app.user(t, "counsel", user.RoleCounsellor)
	l := createLead(t, app, token, lead.NewLead{FirstName: "Baraka", Email: "baraka@mail.io"})

	t.Run("update", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/api/leads/"+l.ID, token, map[string]string{"last_name": "Mwamba", "intake": "Sept 2027"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[lead.Lead](t, rec)
		assert.Equal(t, "Mwamba", got.LastName)
		assert.Equal(t, "Sept 2027", got.Intake)
		assert.Equal(t, l.Email, got.Email)
	})

	t.Run("status by label", func(t *testing.T) {
		rec := app.do(t, http.MethodPatch, "/api/leads/"+l.ID+"/status", token, map[string]string{"status": "Follow Up"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "follow_up", decode[lead.Lead](t, rec).Status)
	})

	app.run(t, []httpTest{
		{
			name: "status required", method: http.MethodPatch, path: "/api/leads/" + l.ID + "/status", token: token,
			body: map[string]string{}, wantCode: http.StatusBadRequest, wantData: map[string]string{"status": "this field is required"},
		},
		{
			name: "unknown status", method: http.MethodPatch, path: "/api/leads/" + l.ID + "/status", token: token,
			body: map[string]string{"status": "asleep"}, wantCode: http.StatusBadRequest,
		},
		{name: "unknown lead", method: http.MethodPatch, path: "/api/leads/00000000-0000-0000-0000-000000000000/status", token: token,
			body: map[string]string{"status": "lost"}, wantCode: http.StatusNotFound},
	})
}

func Test_leadApi_convert(t *testing.T) {
	app := setup(t)
	counsel, token := app.user(t, "counsel", user.RoleCounsellor)
	_, deskToken := app.user(t, "desk", user.RoleFrontDesk)
	l := createLead(t, app, deskToken, lead.NewLead{FirstName: "Neema", Email: "neema@mail.io", InterestedCountry: "Canada", AssignedTo: counsel.ID})

	t.Run("front desk cannot convert", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/leads/"+l.ID+"/convert", deskToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("convert", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/leads/"+l.ID+"/convert", token, lead.ConvertLead{LastName: "Kabila", Nationality: "Congolese"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		resp := decode[echoapi.ConvertLeadResponse](t, rec)
		assert.Equal(t, lead.StatusConverted, resp.Lead.Status)
		assert.Equal(t, resp.Student.ID, resp.Lead.StudentID)
		assert.Equal(t, l.ID, resp.Student.LeadID)
		assert.Equal(t, "Canada", resp.Student.PreferredCountry)
		assert.Equal(t, "Congolese", resp.Student.Nationality)
		assert.Equal(t, counsel.ID, resp.Student.AssignedTo)

		rec = app.do(t, http.MethodGet, "/api/students/"+resp.Student.ID, token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("convert twice", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/leads/"+l.ID+"/convert", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, string(marshal(t, httpErr{Error: lead.ErrAlreadyConverted.Error()})), rec.Body.String())
	})
}
