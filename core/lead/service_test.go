package lead_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/core/student"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/testutil"
)

func fieldErrors(t *testing.T, err error) []string {
	t.Helper()
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	fields := make([]string, 0, len(vErr.Fields))
	for _, f := range vErr.Fields {
		fields = append(fields, f.Field)
	}
	return fields
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Leads
	ctx := context.Background()
	desk := testutil.CreateActor(t, env.Users, "desk", user.RoleFrontDesk)

	l, err := svc.Create(ctx, desk, lead.NewLead{
		FirstName:  " Amani ",
		Email:      "Amani@Mail.io",
		Phone:      "+243 810-000-001",
		Source:     "Walk-in",
		StudyLevel: "master",
	})
	require.NoError(t, err)
	assert.Equal(t, "Amani", l.FirstName)
	assert.Equal(t, "amani@mail.io", l.Email)
	assert.Equal(t, "+243810000001", l.Phone)
	assert.Equal(t, lead.StatusNew, l.Status, "defaults to the first status option")
	assert.Equal(t, "walk_in", l.Source, "labels resolve to keys")
	assert.Equal(t, desk.ID, l.CreatedBy)

	acts, err := env.Services.Activities.List(ctx, desk, activity.EntityLead, l.ID, core.Page{})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, activity.TypeCreated, acts[0].Type)

	t.Run("email or phone required", func(t *testing.T) {
		_, err := svc.Create(ctx, desk, lead.NewLead{FirstName: "Beni"})
		assert.Error(t, err)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := svc.Create(ctx, desk, lead.NewLead{FirstName: "Beni", Email: "beni@mail.io", Source: "tiktok"})
		assert.Equal(t, []string{"source"}, fieldErrors(t, err))
	})

	t.Run("converted status refused", func(t *testing.T) {
		_, err := svc.Create(ctx, desk, lead.NewLead{FirstName: "Beni", Email: "beni@mail.io", Status: lead.StatusConverted})
		assert.Equal(t, []string{"status"}, fieldErrors(t, err))
	})

	t.Run("duplicates", func(t *testing.T) {
		_, err := svc.Create(ctx, desk, lead.NewLead{FirstName: "Copy", Email: "amani@mail.io", Phone: "+243810000001"})
		assert.Equal(t, []string{"email", "phone"}, fieldErrors(t, err))

		dups, err := svc.Duplicates(ctx, "AMANI@mail.io", "")
		require.NoError(t, err)
		assert.Equal(t, []string{l.ID}, dups.Email)
		assert.Empty(t, dups.Phone)
	})
}

func TestService_Visibility(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Leads
	ctx := context.Background()

	admin := testutil.CreateActor(t, env.Users, "admin", user.RoleAdmin)
	manager := testutil.CreateActor(t, env.Users, "manager", user.RoleManager)
	alice := testutil.CreateActor(t, env.Users, "alice", user.RoleCounsellor)
	bob := testutil.CreateActor(t, env.Users, "bob", user.RoleCounsellor)

	assigned, err := svc.Create(ctx, admin, lead.NewLead{FirstName: "Assigned", Email: "a@mail.io", AssignedTo: alice.ID})
	require.NoError(t, err)
	own, err := svc.Create(ctx, bob, lead.NewLead{FirstName: "Own", Email: "b@mail.io"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, lead.NewLead{FirstName: "Nobody", Email: "c@mail.io"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   access.Actor
		wantLen int
	}{
		{name: "admin sees all", actor: admin, wantLen: 3},
		{name: "manager sees all", actor: manager, wantLen: 3},
		{name: "assigned counsellor", actor: alice, wantLen: 1},
		{name: "creator", actor: bob, wantLen: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads, err := svc.Query(ctx, tt.actor, lead.QueryFilter{}, nil, core.Page{})
			require.NoError(t, err)
			assert.Len(t, leads, tt.wantLen)
		})
	}

	_, err = svc.Get(ctx, alice, own.ID)
	assert.ErrorIs(t, err, lead.ErrNotFound)
	_, err = svc.Get(ctx, bob, assigned.ID)
	assert.ErrorIs(t, err, lead.ErrNotFound)
	_, err = svc.Get(ctx, alice, assigned.ID)
	assert.NoError(t, err)
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Leads
	ctx := context.Background()
	admin := testutil.CreateActor(t, env.Users, "admin", user.RoleAdmin)

	l, err := svc.Create(ctx, admin, lead.NewLead{FirstName: "Amani", Email: "amani@mail.io"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, admin, lead.NewLead{FirstName: "Beni", Phone: "+243810000002"})
	require.NoError(t, err)

	t.Run("no changes", func(t *testing.T) {
		got, err := svc.Update(ctx, admin, l.ID, lead.UpdateLead{FirstName: core.StringPtr("Amani")})
		require.NoError(t, err)
		assert.Equal(t, l.UpdatedAt, got.UpdatedAt)
	})

	t.Run("fields and status", func(t *testing.T) {
		got, err := svc.Update(ctx, admin, l.ID, lead.UpdateLead{
			LastName: core.StringPtr("Kabila"),
			Status:   core.StringPtr("Contacted"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Kabila", got.LastName)
		assert.Equal(t, "contacted", got.Status)

		acts, err := env.Services.Activities.List(ctx, admin, activity.EntityLead, l.ID, core.Page{})
		require.NoError(t, err)
		types := make(map[activity.Type]activity.Activity)
		for _, act := range acts {
			types[act.Type] = act
		}
		require.Contains(t, types, activity.TypeStatusChange)
		assert.Equal(t, "New", types[activity.TypeStatusChange].OldLabel)
		assert.Equal(t, "Contacted", types[activity.TypeStatusChange].NewLabel)
		require.Contains(t, types, activity.TypeFieldChange)
		assert.Equal(t, "last_name", types[activity.TypeFieldChange].Field)
	})

	t.Run("blank status", func(t *testing.T) {
		_, err := svc.ChangeStatus(ctx, admin, l.ID, " ")
		assert.Equal(t, []string{"status"}, fieldErrors(t, err))
	})

	t.Run("converted status refused", func(t *testing.T) {
		_, err := svc.ChangeStatus(ctx, admin, l.ID, lead.StatusConverted)
		assert.Equal(t, []string{"status"}, fieldErrors(t, err))
	})

	t.Run("phone taken", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, l.ID, lead.UpdateLead{Phone: core.StringPtr(other.Phone)})
		assert.Equal(t, []string{"phone"}, fieldErrors(t, err))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.ChangeStatus(ctx, admin, "5cf37266-3473-4006-984f-9325122678b7", "lost")
		assert.True(t, core.IsNotFound(err))
	})
}

func TestService_Convert(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Leads
	ctx := context.Background()
	counsellor := testutil.CreateActor(t, env.Users, "counsellor", user.RoleCounsellor)

	l, err := svc.Create(ctx, counsellor, lead.NewLead{
		FirstName:         "Amani",
		Phone:             "+243810000001",
		InterestedCountry: "Canada",
		Notes:             "Met at the fair",
	})
	require.NoError(t, err)

	t.Run("student fields missing", func(t *testing.T) {
		_, _, err := svc.Convert(ctx, counsellor, l.ID, lead.ConvertLead{})
		var vErrs validator.ValidationErrors
		require.ErrorAs(t, err, &vErrs)
		fields := make([]string, 0, len(vErrs))
		for _, fe := range vErrs {
			fields = append(fields, fe.Field())
		}
		assert.ElementsMatch(t, []string{"last_name", "email"}, fields)

		got, err := svc.Get(ctx, counsellor, l.ID)
		require.NoError(t, err)
		assert.False(t, got.IsConverted(), "nothing is saved when the student is invalid")
	})

	t.Run("convert", func(t *testing.T) {
		got, st, err := svc.Convert(ctx, counsellor, l.ID, lead.ConvertLead{LastName: "Kabila", Email: "amani@mail.io"})
		require.NoError(t, err)
		assert.Equal(t, lead.StatusConverted, got.Status)
		assert.Equal(t, st.ID, got.StudentID)
		assert.Equal(t, l.ID, st.LeadID)
		assert.Equal(t, "Canada", st.PreferredCountry)
		assert.Equal(t, counsellor.ID, st.AssignedTo)
		assert.Equal(t, "Met at the fair", st.Notes)

		students, err := env.Services.Students.Query(ctx, counsellor, student.QueryFilter{LeadID: l.ID}, nil, core.Page{})
		require.NoError(t, err)
		assert.Len(t, students, 1)

		acts, err := env.Services.Activities.List(ctx, counsellor, activity.EntityLead, l.ID, core.Page{})
		require.NoError(t, err)
		var converted int
		for _, act := range acts {
			if act.Type == activity.TypeConverted {
				converted++
			}
		}
		assert.Equal(t, 1, converted)
	})

	t.Run("already converted", func(t *testing.T) {
		_, _, err := svc.Convert(ctx, counsellor, l.ID, lead.ConvertLead{LastName: "Kabila", Email: "amani2@mail.io"})
		assert.ErrorIs(t, err, lead.ErrAlreadyConverted)
	})
}

// editedRepository edits the lead once, right after the first read, as another request would.
type editedRepository struct {
	lead.Repository
	edit func(ctx context.Context, l lead.Lead)
}

func (repo *editedRepository) Get(ctx context.Context, id string) (lead.Lead, error) {
	l, err := repo.Repository.Get(ctx, id)
	if err == nil && repo.edit != nil {
		edit := repo.edit
		repo.edit = nil
		edit(ctx, l)
	}
	return l, err
}

func TestService_Convert_concurrentEdit(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	admin := testutil.CreateActor(t, env.Users, "admin", user.RoleAdmin)

	var (
		leads lead.Repository
		tx    core.Transactor
	)
	require.NoError(t, env.Container.Invoke(func(r lead.Repository, trx core.Transactor) { leads, tx = r, trx }))

	l, err := env.Services.Leads.Create(ctx, admin, lead.NewLead{FirstName: "Amani", Email: "amani@mail.io", Notes: "first call"})
	require.NoError(t, err)

	repo := &editedRepository{
		Repository: leads,
		edit: func(ctx context.Context, stale lead.Lead) {
			stale.Notes = "second call"
			stale.InterestedCountry = "Canada"
			_, err := leads.Update(ctx, stale)
			require.NoError(t, err)
		},
	}
	svc := lead.NewService(repo, tx, env.Services.Students, env.Services.Activities, env.Services.Dropdowns, env.Validate)

	got, st, err := svc.Convert(ctx, admin, l.ID, lead.ConvertLead{LastName: "Kabila"})
	require.NoError(t, err)
	assert.Equal(t, lead.StatusConverted, got.Status)
	assert.Equal(t, "second call", got.Notes, "the edit is not overwritten")
	assert.Equal(t, "Canada", got.InterestedCountry)
	assert.Equal(t, "second call", st.Notes)
	assert.Equal(t, "Canada", st.PreferredCountry)
}
