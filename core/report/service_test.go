package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/event"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/core/report"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/testutil"
)

func countOf(counts []report.StatusCount, status string) int {
	for _, c := range counts {
		if c.Status == status {
			return c.Count
		}
	}
	return -1
}

func TestService_Dashboard(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Reports
	ctx := context.Background()

	manager := testutil.CreateActor(t, env.Users, "manager", user.RoleManager)
	alice := testutil.CreateActor(t, env.Users, "alice", user.RoleCounsellor)
	desk := testutil.CreateActor(t, env.Users, "desk", user.RoleFrontDesk)

	_, err := env.Services.Leads.Create(ctx, alice, lead.NewLead{FirstName: "A", Email: "a@mail.io"})
	require.NoError(t, err)
	l, err := env.Services.Leads.Create(ctx, manager, lead.NewLead{FirstName: "B", Email: "b@mail.io"})
	require.NoError(t, err)
	_, err = env.Services.Leads.ChangeStatus(ctx, manager, l.ID, "lost")
	require.NoError(t, err)

	starts := time.Now().Add(48 * time.Hour)
	_, err = env.Services.Events.Create(ctx, access.System, event.NewEvent{Name: "Fair", StartsAt: &starts})
	require.NoError(t, err)

	t.Run("manager sees all", func(t *testing.T) {
		dash, err := svc.Dashboard(ctx, manager)
		require.NoError(t, err)
		require.NotEmpty(t, dash.Leads)
		assert.Equal(t, "new", dash.Leads[0].Status, "in dropdown order")
		assert.Equal(t, "New", dash.Leads[0].Label)
		assert.Equal(t, 1, countOf(dash.Leads, "new"))
		assert.Equal(t, 1, countOf(dash.Leads, "lost"))
		assert.Equal(t, 0, countOf(dash.Leads, "contacted"))
		assert.Equal(t, 0, countOf(dash.Applications, "draft"))
		assert.Len(t, dash.UpcomingEvents, 1)
		assert.NotEmpty(t, dash.RecentActivities)
	})

	t.Run("counsellor sees own", func(t *testing.T) {
		dash, err := svc.Dashboard(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 1, countOf(dash.Leads, "new"))
		assert.Equal(t, 0, countOf(dash.Leads, "lost"))
	})

	t.Run("front desk has no pipeline", func(t *testing.T) {
		dash, err := svc.Dashboard(ctx, desk)
		require.NoError(t, err)
		assert.NotEmpty(t, dash.Leads)
		assert.Nil(t, dash.Applications)
		assert.Nil(t, dash.Admissions)
		assert.Len(t, dash.UpcomingEvents, 1)
		assert.Empty(t, dash.RecentActivities)
	})
}
