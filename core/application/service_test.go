package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/application"
	"github.com/trezcool/pathway/core/student"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/testutil"
)

func TestService(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Applications
	ctx := context.Background()

	manager := testutil.CreateActor(t, env.Users, "manager", user.RoleManager)
	alice := testutil.CreateActor(t, env.Users, "alice", user.RoleCounsellor)
	bob := testutil.CreateActor(t, env.Users, "bob", user.RoleCounsellor)

	st, err := env.Services.Students.Create(ctx, manager, student.NewStudent{
		FirstName: "Amani", LastName: "Kabila", Email: "amani@mail.io", AssignedTo: alice.ID,
	})
	require.NoError(t, err)

	t.Run("student not visible", func(t *testing.T) {
		_, err := svc.Create(ctx, bob, application.NewApplication{StudentID: st.ID, University: "UCT", Program: "MBA"})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "student_id", vErr.Fields[0].Field)
	})

	t.Run("required fields", func(t *testing.T) {
		_, err := svc.Create(ctx, alice, application.NewApplication{StudentID: st.ID})
		assert.Error(t, err)
	})

	app, err := svc.Create(ctx, alice, application.NewApplication{StudentID: st.ID, University: "UCT", Program: "MBA", ApplicationFee: 50})
	require.NoError(t, err)
	assert.Equal(t, "draft", app.Status)
	assert.Equal(t, alice.ID, app.AssignedTo, "inherits the student's counsellor")
	assert.False(t, app.SubmittedAt.Valid)

	stActs, err := env.Services.Activities.List(ctx, alice, activity.EntityStudent, st.ID, core.Page{})
	require.NoError(t, err)
	assert.Len(t, stActs, 2, "student created + application created")

	t.Run("submitting stamps the date once", func(t *testing.T) {
		got, err := svc.ChangeStatus(ctx, alice, app.ID, "Submitted")
		require.NoError(t, err)
		assert.Equal(t, application.StatusSubmitted, got.Status)
		require.True(t, got.SubmittedAt.Valid)
		submitted := got.SubmittedAt.Time

		_, err = svc.ChangeStatus(ctx, alice, app.ID, "under_review")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
		got, err = svc.ChangeStatus(ctx, alice, app.ID, "submitted")
		require.NoError(t, err)
		assert.True(t, submitted.Equal(got.SubmittedAt.Time))
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.ChangeStatus(ctx, alice, app.ID, "lol")
		assert.Error(t, err)
	})

	t.Run("visibility", func(t *testing.T) {
		_, err := svc.Get(ctx, bob, app.ID)
		assert.ErrorIs(t, err, application.ErrNotFound)

		apps, err := svc.Query(ctx, bob, application.QueryFilter{}, nil, core.Page{})
		require.NoError(t, err)
		assert.Empty(t, apps)

		apps, err = svc.Query(ctx, manager, application.QueryFilter{StudentID: st.ID}, nil, core.Page{})
		require.NoError(t, err)
		assert.Len(t, apps, 1)
	})
}
