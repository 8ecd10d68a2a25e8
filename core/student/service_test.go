package student_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/student"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/testutil"
)

func newStudent(email string) student.NewStudent {
	return student.NewStudent{FirstName: "Amani", LastName: "Kabila", Email: email}
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Students
	ctx := context.Background()

	admin := testutil.CreateActor(t, env.Users, "admin", user.RoleAdmin)
	counsellor := testutil.CreateActor(t, env.Users, "counsellor", user.RoleCounsellor)

	tests := []struct {
		name       string
		actor      access.Actor
		ns         student.NewStudent
		wantErr    bool
		wantStatus string
		wantAssign string
	}{
		{name: "defaults", actor: admin, ns: newStudent("a@mail.io"), wantStatus: "active"},
		{name: "counsellor self assigned", actor: counsellor, ns: newStudent("b@mail.io"), wantStatus: "active", wantAssign: counsellor.ID},
		{name: "status label", actor: admin, ns: student.NewStudent{FirstName: "X", LastName: "Y", Email: "c@mail.io", Status: "on hold"}, wantStatus: "on_hold"},
		{name: "last name required", actor: admin, ns: student.NewStudent{FirstName: "X", Email: "d@mail.io"}, wantErr: true},
		{name: "invalid birth date", actor: admin, ns: student.NewStudent{FirstName: "X", LastName: "Y", Email: "e@mail.io", DateOfBirth: "01/02/2000"}, wantErr: true},
		{name: "unknown status", actor: admin, ns: student.NewStudent{FirstName: "X", LastName: "Y", Email: "f@mail.io", Status: "lol"}, wantErr: true},
		{name: "email taken", actor: admin, ns: newStudent("A@mail.io"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := svc.Create(ctx, tt.actor, tt.ns)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, s.Status)
			assert.Equal(t, tt.wantAssign, s.AssignedTo)
		})
	}
}

func TestService_UpdateAndVisibility(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Students
	ctx := context.Background()

	manager := testutil.CreateActor(t, env.Users, "manager", user.RoleManager)
	alice := testutil.CreateActor(t, env.Users, "alice", user.RoleCounsellor)
	bob := testutil.CreateActor(t, env.Users, "bob", user.RoleCounsellor)

	s, err := svc.Create(ctx, manager, student.NewStudent{FirstName: "Amani", LastName: "Kabila", Email: "a@mail.io", AssignedTo: alice.ID})
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, s.ID)
	assert.ErrorIs(t, err, student.ErrNotFound)
	_, err = svc.Update(ctx, bob, s.ID, student.UpdateStudent{Nationality: core.StringPtr("Congolese")})
	assert.ErrorIs(t, err, student.ErrNotFound)

	got, err := svc.Update(ctx, alice, s.ID, student.UpdateStudent{Nationality: core.StringPtr("Congolese")})
	require.NoError(t, err)
	assert.Equal(t, "Congolese", got.Nationality)

	got, err = svc.ChangeStatus(ctx, alice, s.ID, "Enrolled")
	require.NoError(t, err)
	assert.Equal(t, "enrolled", got.Status)

	got, err = svc.SetProfilePicture(ctx, alice, s.ID, "/media/profile-pictures/a.png")
	require.NoError(t, err)
	assert.Equal(t, "/media/profile-pictures/a.png", got.ProfilePicture)

	acts, err := env.Services.Activities.List(ctx, alice, activity.EntityStudent, s.ID, core.Page{})
	require.NoError(t, err)
	fields := make(map[string]bool)
	for _, act := range acts {
		fields[act.Field] = true
	}
	assert.True(t, fields["nationality"])
	assert.True(t, fields["status"])
	assert.True(t, fields["profile_picture"])

	for _, tt := range []struct {
		name    string
		actor   access.Actor
		filter  student.QueryFilter
		wantLen int
	}{
		{name: "assigned", actor: alice, wantLen: 1},
		{name: "not assigned", actor: bob, wantLen: 0},
		{name: "status filter", actor: manager, filter: student.QueryFilter{Statuses: []string{"active"}}, wantLen: 0},
		{name: "search", actor: manager, filter: student.QueryFilter{Search: "kabi"}, wantLen: 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			students, err := svc.Query(ctx, tt.actor, tt.filter, nil, core.Page{})
			require.NoError(t, err)
			assert.Len(t, students, tt.wantLen)
		})
	}
}
