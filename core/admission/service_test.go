package admission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/admission"
	"github.com/trezcool/pathway/core/application"
	"github.com/trezcool/pathway/core/student"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/testutil"
)

func TestService(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Admissions
	ctx := context.Background()

	alice := testutil.CreateActor(t, env.Users, "alice", user.RoleCounsellor)
	bob := testutil.CreateActor(t, env.Users, "bob", user.RoleCounsellor)

	st, err := env.Services.Students.Create(ctx, alice, student.NewStudent{FirstName: "Amani", LastName: "Kabila", Email: "amani@mail.io"})
	require.NoError(t, err)
	app, err := env.Services.Applications.Create(ctx, alice, application.NewApplication{StudentID: st.ID, University: "UCT", Program: "MBA"})
	require.NoError(t, err)

	t.Run("application not visible", func(t *testing.T) {
		_, err := svc.Create(ctx, bob, admission.NewAdmission{ApplicationID: app.ID})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "application_id", vErr.Fields[0].Field)
	})

	t.Run("invalid decision date", func(t *testing.T) {
		_, err := svc.Create(ctx, alice, admission.NewAdmission{ApplicationID: app.ID, DecisionDate: "2024/01/01"})
		assert.Error(t, err)
	})

	adm, err := svc.Create(ctx, alice, admission.NewAdmission{ApplicationID: app.ID, TuitionFee: 12000})
	require.NoError(t, err)
	assert.Equal(t, "conditional_offer", adm.Status)
	assert.Equal(t, "not_started", adm.VisaStatus)
	assert.Equal(t, "UCT", adm.University, "defaults to the application's")
	assert.Equal(t, "MBA", adm.Program)
	assert.Equal(t, st.ID, adm.StudentID)
	assert.Equal(t, alice.ID, adm.AssignedTo)
	assert.False(t, adm.VisaAppliedAt.Valid)

	t.Run("visa workflow", func(t *testing.T) {
		got, err := svc.ChangeVisaStatus(ctx, alice, adm.ID, "Applied")
		require.NoError(t, err)
		assert.Equal(t, admission.VisaApplied, got.VisaStatus)
		assert.True(t, got.VisaAppliedAt.Valid)
		assert.False(t, got.VisaDecisionAt.Valid)

		got, err = svc.ChangeVisaStatus(ctx, alice, adm.ID, admission.VisaApproved)
		require.NoError(t, err)
		assert.True(t, got.VisaDecisionAt.Valid)

		_, err = svc.ChangeVisaStatus(ctx, alice, adm.ID, "")
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "visa_status", vErr.Fields[0].Field)
	})

	t.Run("status", func(t *testing.T) {
		got, err := svc.ChangeStatus(ctx, alice, adm.ID, "deposit paid")
		require.NoError(t, err)
		assert.Equal(t, "deposit_paid", got.Status)

		_, err = svc.ChangeStatus(ctx, bob, adm.ID, "accepted")
		assert.ErrorIs(t, err, admission.ErrNotFound)
	})

	t.Run("query", func(t *testing.T) {
		adms, err := svc.Query(ctx, alice, admission.QueryFilter{VisaStatuses: []string{admission.VisaApproved}}, nil, core.Page{})
		require.NoError(t, err)
		assert.Len(t, adms, 1)

		adms, err = svc.Query(ctx, bob, admission.QueryFilter{}, nil, core.Page{})
		require.NoError(t, err)
		assert.Empty(t, adms)
	})
}
