// Package di builds the dependency graph shared by the API server and the admin CLI.
package di

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/admission"
	"github.com/trezcool/pathway/core/application"
	"github.com/trezcool/pathway/core/dropdown"
	"github.com/trezcool/pathway/core/event"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/core/media"
	"github.com/trezcool/pathway/core/report"
	"github.com/trezcool/pathway/core/student"
	"github.com/trezcool/pathway/core/user"
	cachesvc "github.com/trezcool/pathway/services/cache"
	emailsvc "github.com/trezcool/pathway/services/email"
	logsvc "github.com/trezcool/pathway/services/logger"
	storagesvc "github.com/trezcool/pathway/services/storage"
	"github.com/trezcool/pathway/storage/database"
	inmemdb "github.com/trezcool/pathway/storage/database/inmem"
	boiledrepos "github.com/trezcool/pathway/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/pathway/storage/database/sqlx"
)

type Options struct {
	// InMem backs the repositories with an in-memory database instead of Postgres.
	InMem bool
	// InMemDB is used when InMem is set; a fresh one is opened when nil.
	InMemDB *inmemdb.DB
	// LogOutput defaults to stdout.
	LogOutput io.Writer
	// EmailService overrides the configured email service (tests).
	EmailService core.EmailService
	// SkipMigrations does not create nor migrate the Postgres database on start.
	SkipMigrations bool
}

// Repositories are the storage implementations of the service repositories.
type Repositories struct {
	dig.Out

	Tx            core.Transactor
	Users         user.Repository
	Leads         lead.Repository
	Students      student.Repository
	Applications  application.Repository
	Admissions    admission.Repository
	Events        event.Repository
	Registrations event.RegistrationRepository
	Activities    activity.Repository
	Dropdowns     dropdown.Repository
	Reports       report.Repository
}

func postgresRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Tx:            sqlxrepos.NewTransactor(db),
		Users:         sqlxrepos.NewUserRepository(db),
		Leads:         sqlxrepos.NewLeadRepository(db),
		Students:      sqlxrepos.NewStudentRepository(db),
		Applications:  sqlxrepos.NewApplicationRepository(db),
		Admissions:    sqlxrepos.NewAdmissionRepository(db),
		Events:        sqlxrepos.NewEventRepository(db),
		Registrations: sqlxrepos.NewRegistrationRepository(db),
		Activities:    sqlxrepos.NewActivityRepository(db),
		Dropdowns:     sqlxrepos.NewDropdownRepository(db),
		Reports:       boiledrepos.NewReportRepository(db),
	}
}

func inmemRepositories(db *inmemdb.DB) Repositories {
	return Repositories{
		Tx:            inmemdb.NewTransactor(db),
		Users:         inmemdb.NewUserRepository(db),
		Leads:         inmemdb.NewLeadRepository(db),
		Students:      inmemdb.NewStudentRepository(db),
		Applications:  inmemdb.NewApplicationRepository(db),
		Admissions:    inmemdb.NewAdmissionRepository(db),
		Events:        inmemdb.NewEventRepository(db),
		Registrations: inmemdb.NewRegistrationRepository(db),
		Activities:    inmemdb.NewActivityRepository(db),
		Dropdowns:     inmemdb.NewDropdownRepository(db),
		Reports:       inmemdb.NewReportRepository(db),
	}
}

// Services are the domain services, as injected into the API and the CLI.
type Services struct {
	dig.In

	Users         *user.Service
	Leads         *lead.Service
	Students      *student.Service
	Applications  *application.Service
	Admissions    *admission.Service
	Events        *event.Service
	Registrations *event.RegistrationService
	Activities    *activity.Service
	Dropdowns     *dropdown.Service
	Reports       *report.Service
	Media         *media.Service
}

func newLogger(opts Options) func(conf *core.Config) core.Logger {
	return func(conf *core.Config) core.Logger {
		out := opts.LogOutput
		if out == nil {
			out = os.Stdout
		}
		return logsvc.NewRollbarLogger(out, conf)
	}
}

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	lead.InitValidators(validate, translator)
	event.InitValidators(validate, translator)
	return validate, translator
}

func newCache(conf *core.Config, logger core.Logger) core.Cache {
	if !conf.Redis.Enabled() {
		return cachesvc.NewMemoryCache()
	}
	rc := cachesvc.NewRedisCache(conf)
	if err := rc.Ping(context.Background()); err != nil {
		logger.Warn(fmt.Sprintf("redis unavailable, caching in memory: %v", err), err)
		return cachesvc.NewMemoryCache()
	}
	return rc
}

func newEmailService(opts Options) func(conf *core.Config, logger core.Logger) core.EmailService {
	return func(conf *core.Config, logger core.Logger) core.EmailService {
		if opts.EmailService != nil {
			return opts.EmailService
		}
		return emailsvc.NewService(conf, logger)
	}
}

func newFileStorage(conf *core.Config) core.FileStorage {
	return storagesvc.NewDiskStorage(conf)
}

func newPostgres(opts Options) func(conf *core.Config) (*sqlx.DB, error) {
	return func(conf *core.Config) (*sqlx.DB, error) {
		ctx := context.Background()
		if !opts.SkipMigrations {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(ctx, db); err != nil {
			return nil, err
		}
		if !opts.SkipMigrations {
			if err = database.Migrate(db.DB); err != nil {
				return nil, err
			}
		}
		return db, nil
	}
}

// New returns a new dependency injection dig.Container. conf is provided as is.
func New(conf *core.Config, opts Options) *dig.Container {
	c := dig.New()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(newLogger(opts)))
	must(c.Provide(newValidator))
	must(c.Provide(newCache))
	must(c.Provide(newEmailService(opts)))
	must(c.Provide(newFileStorage))

	if opts.InMem {
		memDB := opts.InMemDB
		if memDB == nil {
			memDB = inmemdb.Open()
		}
		must(c.Provide(func() *inmemdb.DB { return memDB }))
		must(c.Provide(inmemRepositories))
	} else {
		must(c.Provide(newPostgres(opts)))
		must(c.Provide(postgresRepositories))
	}

	must(c.Provide(dropdown.NewService))
	must(c.Provide(activity.NewService))
	must(c.Provide(user.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(lead.NewService))
	must(c.Provide(application.NewService))
	must(c.Provide(admission.NewService))
	must(c.Provide(event.NewService))
	must(c.Provide(event.NewRegistrationService))
	must(c.Provide(report.NewService))
	must(c.Provide(media.NewService))

	return c
}

// Init loads the assets the services rely on.
func Init(c *dig.Container, strictTemplates bool) error {
	return c.Invoke(func(logger core.Logger) {
		core.ParseEmailTemplates(logger, strictTemplates)
		user.LoadCommonPasswords(logger)
	})
}

// must panics if a provider could not be registered, which is a programming error.
func must(err error) {
	if err != nil {
		panic(errors.Wrap(err, "failed to provide dependency"))
	}
}
