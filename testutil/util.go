// Package testutil wires the services over the in-memory database for tests.
package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"
	"go.uber.org/dig"

	"github.com/trezcool/pathway/apps/di"
	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/dropdown"
	"github.com/trezcool/pathway/core/user"
	emailsvc "github.com/trezcool/pathway/services/email"
	logsvc "github.com/trezcool/pathway/services/logger"
	inmemdb "github.com/trezcool/pathway/storage/database/inmem"
)

// Env is a fully wired application over an in-memory database, with seeded dropdowns.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Container  *dig.Container
	Services   di.Services
	Mailer     *emailsvc.ConsoleService
	Users      user.Repository
	Validate   *validator.Validate
	Translator ut.Translator
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	conf.MediaDir = t.TempDir()
	env := &Env{
		Conf:   conf,
		DB:     inmemdb.Open(),
		Mailer: emailsvc.NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(io.Discard, conf)),
	}
	env.Users = inmemdb.NewUserRepository(env.DB)
	env.Container = di.New(conf, di.Options{
		InMem:        true,
		InMemDB:      env.DB,
		LogOutput:    io.Discard,
		EmailService: env.Mailer,
	})
	if err := di.Init(env.Container, false); err != nil {
		t.Fatalf("di.Init() failed: %v", err)
	}
	err := env.Container.Invoke(func(svcs di.Services, validate *validator.Validate, translator ut.Translator) {
		env.Services = svcs
		env.Validate = validate
		env.Translator = translator
	})
	if err != nil {
		t.Fatalf("resolving services failed: %v", err)
	}

	seeds, err := dropdown.LoadSeeds(nil)
	if err != nil {
		t.Fatalf("dropdown.LoadSeeds() failed: %v", err)
	}
	if _, err = env.Services.Dropdowns.Seed(context.Background(), seeds); err != nil {
		t.Fatalf("seeding dropdowns failed: %v", err)
	}
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.Create(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// CreateActor creates an active user with roles and returns it as an actor.
func CreateActor(t *testing.T, repo user.Repository, uname string, roles ...string) access.Actor {
	t.Helper()
	usr := CreateUser(t, repo, uname, uname, uname+"@test.io", "", roles, true)
	return access.ActorFromUser(usr)
}
