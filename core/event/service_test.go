package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/event"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/testutil"
)

func createEvent(t *testing.T, env *testutil.Env, ne event.NewEvent) event.Event {
	t.Helper()
	if ne.StartsAt == nil {
		starts := time.Now().Add(72 * time.Hour)
		ne.StartsAt = &starts
	}
	evt, err := env.Services.Events.Create(context.Background(), access.System, ne)
	require.NoError(t, err)
	return evt
}

func TestService(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Events
	ctx := context.Background()
	desk := testutil.CreateActor(t, env.Users, "desk", user.RoleFrontDesk)

	starts := time.Now().Add(24 * time.Hour)
	ends := starts.Add(-time.Hour)

	t.Run("create", func(t *testing.T) {
		evt, err := svc.Create(ctx, desk, event.NewEvent{Name: "Fair", Type: "Education Fair", StartsAt: &starts, Capacity: 100})
		require.NoError(t, err)
		assert.Equal(t, "fair", evt.Type)
		assert.Equal(t, "planned", evt.Status)
		assert.Equal(t, desk.ID, evt.CreatedBy)
		assert.False(t, evt.EndsAt.Valid)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := svc.Create(ctx, desk, event.NewEvent{Name: "Fair", StartsAt: &starts, EndsAt: &ends})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "ends_at", vErr.Fields[0].Field)
	})

	t.Run("start required", func(t *testing.T) {
		_, err := svc.Create(ctx, desk, event.NewEvent{Name: "Fair"})
		assert.Error(t, err)
	})

	t.Run("update and upcoming", func(t *testing.T) {
		soon := createEvent(t, env, event.NewEvent{Name: "Seminar", StartsAt: &starts})
		later := time.Now().Add(60 * 24 * time.Hour)
		createEvent(t, env, event.NewEvent{Name: "Far away", StartsAt: &later})

		capacity := 20
		got, err := svc.Update(ctx, desk, soon.ID, event.UpdateEvent{Location: core.StringPtr("Kinshasa"), Capacity: &capacity})
		require.NoError(t, err)
		assert.Equal(t, "Kinshasa", got.Location)
		assert.Equal(t, 20, got.Capacity)

		upcoming, err := svc.Upcoming(ctx, 7*24*time.Hour, 10)
		require.NoError(t, err)
		names := make([]string, 0, len(upcoming))
		for _, evt := range upcoming {
			names = append(names, evt.Name)
		}
		assert.Contains(t, names, "Seminar")
		assert.NotContains(t, names, "Far away")

		_, err = svc.ChangeStatus(ctx, desk, soon.ID, "Cancelled")
		require.NoError(t, err)
		upcoming, err = svc.Upcoming(ctx, 7*24*time.Hour, 10)
		require.NoError(t, err)
		for _, evt := range upcoming {
			assert.NotEqual(t, soon.ID, evt.ID, "cancelled events are not upcoming")
		}
	})
}

func TestRegistrationService(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Registrations
	ctx := context.Background()
	desk := testutil.CreateActor(t, env.Users, "desk", user.RoleFrontDesk)

	evt := createEvent(t, env, event.NewEvent{Name: "Fair", Capacity: 2, Location: "Kinshasa"})

	reg, err := svc.Create(ctx, desk, event.NewRegistration{EventID: evt.ID, FirstName: "Amani", Email: "Amani@mail.io"})
	require.NoError(t, err)
	assert.Equal(t, "registered", reg.Status)
	assert.Equal(t, "amani@mail.io", reg.Email)

	sent := env.Mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "amani@mail.io", sent[0].To[0].Address)

	t.Run("email or phone required", func(t *testing.T) {
		_, err := svc.Create(ctx, desk, event.NewRegistration{EventID: evt.ID, FirstName: "Beni"})
		assert.Error(t, err)
	})

	t.Run("already registered", func(t *testing.T) {
		_, err := svc.Create(ctx, desk, event.NewRegistration{EventID: evt.ID, FirstName: "Copy", Email: "amani@mail.io"})
		assert.ErrorIs(t, err, event.ErrEmailRegistered)
	})

	t.Run("capacity", func(t *testing.T) {
		_, err := svc.Create(ctx, desk, event.NewRegistration{EventID: evt.ID, FirstName: "Beni", Phone: "+243810000002"})
		require.NoError(t, err)
		_, err = svc.Create(ctx, desk, event.NewRegistration{EventID: evt.ID, FirstName: "Chris", Phone: "+243810000003"})
		assert.ErrorIs(t, err, event.ErrEventFull)
	})

	t.Run("status", func(t *testing.T) {
		got, err := svc.ChangeStatus(ctx, desk, reg.ID, "No Show")
		require.NoError(t, err)
		assert.Equal(t, "no_show", got.Status)

		_, err = svc.Update(ctx, desk, reg.ID, event.UpdateRegistration{LastName: core.StringPtr("Kabila")})
		require.NoError(t, err)

		acts, err := env.Services.Activities.List(ctx, access.System, activity.EntityEvent, evt.ID, core.Page{})
		require.NoError(t, err)
		types := make(map[activity.Type]activity.Activity)
		for _, act := range acts {
			types[act.Type] = act
		}
		require.Contains(t, types, activity.TypeStatusChange)
		status := types[activity.TypeStatusChange]
		assert.Equal(t, "registration.status", status.Field)
		assert.Equal(t, "registration of Amani", status.Content)
		assert.Equal(t, desk.ID, status.UserID)
		assert.Equal(t, "Registered", status.OldLabel, "labels come from the registration options")
		assert.Equal(t, "No Show", status.NewLabel)
		require.Contains(t, types, activity.TypeFieldChange)
		assert.Equal(t, "registration.last_name", types[activity.TypeFieldChange].Field)
		assert.Equal(t, "registration of Amani Kabila", types[activity.TypeFieldChange].Content)

		_, err = svc.ChangeStatus(ctx, desk, reg.ID, "no_show")
		require.NoError(t, err)
		again, err := env.Services.Activities.List(ctx, access.System, activity.EntityEvent, evt.ID, core.Page{})
		require.NoError(t, err)
		assert.Len(t, again, len(acts), "same status is not logged")
	})

	t.Run("convert to lead", func(t *testing.T) {
		got, l, err := svc.ConvertToLead(ctx, desk, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, l.ID, got.LeadID)
		assert.Equal(t, lead.SourceEvent, l.Source)
		assert.Equal(t, "amani@mail.io", l.Email)
		assert.Equal(t, "Registered to Fair", l.Notes)

		_, _, err = svc.ConvertToLead(ctx, desk, reg.ID)
		assert.ErrorIs(t, err, event.ErrAlreadyConverted)

		converted := true
		regs, err := svc.Query(ctx, event.RegistrationFilter{EventID: evt.ID, Converted: &converted}, nil, core.Page{})
		require.NoError(t, err)
		assert.Len(t, regs, 1)
	})
}
