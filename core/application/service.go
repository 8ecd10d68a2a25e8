package application

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/dropdown"
	"github.com/trezcool/pathway/core/student"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("application not found")
)

type (
	Repository interface {
		Create(ctx context.Context, app Application) (Application, error)
		Get(ctx context.Context, id string) (Application, error)
		Update(ctx context.Context, app Application) (Application, error)
		// Query applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on the university or the program.
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Application, error)
	}

	Service struct {
		repo       Repository
		tx         core.Transactor
		students   *student.Service
		activities *activity.Service
		dropdowns  *dropdown.Service
		validate   *validator.Validate
	}
)

// OrderingFields are the fields an Application query can be ordered by.
var OrderingFields = []string{"university", "program", "country", "status", "submitted_at", "created_at", "updated_at"}

func NewService(
	repo Repository,
	tx core.Transactor,
	students *student.Service,
	activities *activity.Service,
	dropdowns *dropdown.Service,
	validate *validator.Validate,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(activities, "activities"),
		vala.IsNotNil(dropdowns, "dropdowns"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	svc := &Service{
		repo:       repo,
		tx:         tx,
		students:   students,
		activities: activities,
		dropdowns:  dropdowns,
		validate:   validate,
	}
	activities.RegisterEntity(activity.EntityApplication, svc.Lookup)
	return svc
}

func (svc *Service) normalizeStatus(ctx context.Context, status string) (string, error) {
	r, err := svc.dropdowns.Resolver(ctx, dropdown.ModuleApplication)
	if err != nil {
		return "", errors.Wrap(err, "loading application dropdowns")
	}
	return dropdown.NormalizeWith(r, dropdown.FieldStatus, status)
}

// Create adds an application to a student visible to actor. The application is assigned to the student's counsellor.
func (svc *Service) Create(ctx context.Context, actor access.Actor, na NewApplication) (Application, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Application{}, err
	}

	st, err := svc.students.Get(ctx, actor, na.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Application{}, core.NewFieldError("student_id", "student not found")
		}
		return Application{}, errors.Wrap(err, "finding student")
	}
	if na.Status, err = svc.normalizeStatus(ctx, na.Status); err != nil {
		return Application{}, err
	}

	now := time.Now().UTC()
	app := Application{
		StudentID:      st.ID,
		University:     na.University,
		Program:        na.Program,
		Country:        na.Country,
		Intake:         na.Intake,
		Status:         na.Status,
		ApplicationFee: na.ApplicationFee,
		Notes:          na.Notes,
		AssignedTo:     st.AssignedTo,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if na.SubmittedAt != nil && !na.SubmittedAt.IsZero() {
		app.SubmittedAt = null.TimeFrom(na.SubmittedAt.UTC())
	} else if app.Status == StatusSubmitted {
		app.SubmittedAt = null.TimeFrom(now)
	}

	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if app, err = svc.repo.Create(ctx, app); err != nil {
			return errors.Wrap(err, "creating application")
		}
		content := fmt.Sprintf("Application to %s (%s) created", app.University, app.Program)
		if err = svc.activities.RecordCreated(ctx, actor, activity.EntityApplication, app.ID, content); err != nil {
			return err
		}
		return svc.activities.RecordCreated(ctx, actor, activity.EntityStudent, st.ID, content)
	})
	if err != nil {
		return Application{}, err
	}
	return app, nil
}

// Get returns ErrNotFound if the application does not exist or if actor cannot see it.
func (svc *Service) Get(ctx context.Context, actor access.Actor, id string) (Application, error) {
	app, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !actor.CanSeeAssigned(app.AssignedTo) {
		return Application{}, ErrNotFound
	}
	return app, nil
}

// Lookup implements activity.EntityLookup.
func (svc *Service) Lookup(ctx context.Context, actor access.Actor, id string) error {
	_, err := svc.Get(ctx, actor, id)
	return err
}

func (svc *Service) Query(ctx context.Context, actor access.Actor, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Application, error) {
	filter.Clean()
	if !actor.SeesAll() {
		filter.VisibleTo = actor.ID
	}
	return svc.repo.Query(ctx, filter, core.FilterOrdering(ordering, OrderingFields...), page.Clean())
}

func (svc *Service) Update(ctx context.Context, actor access.Actor, id string, ua UpdateApplication) (Application, error) {
	orig, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Application{}, err
	}
	if ua.Status != nil {
		if core.CleanString(*ua.Status) == "" {
			return Application{}, core.NewFieldError("status", "this field is required")
		}
		key, err := svc.normalizeStatus(ctx, *ua.Status)
		if err != nil {
			return Application{}, err
		}
		ua.Status = &key
	}

	app, changes := ua.apply(orig)
	if changes.Has("status") && app.Status == StatusSubmitted && !app.SubmittedAt.Valid {
		now := time.Now().UTC()
		changes.SetNullTime("submitted_at", &app.SubmittedAt, &now)
	}
	if len(changes) == 0 {
		return orig, nil
	}
	if err = svc.validate.Struct(app.editable()); err != nil {
		return Application{}, err
	}

	app.UpdatedAt = time.Now().UTC()
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if app, err = svc.repo.Update(ctx, app); err != nil {
			return errors.Wrap(err, "updating application")
		}
		return svc.activities.RecordChanges(ctx, actor, activity.EntityApplication, app.ID, changes)
	})
	if err != nil {
		return Application{}, err
	}
	return app, nil
}

// ChangeStatus sets the status of an application; moving to "submitted" stamps SubmittedAt once.
func (svc *Service) ChangeStatus(ctx context.Context, actor access.Actor, id, status string) (Application, error) {
	return svc.Update(ctx, actor, id, UpdateApplication{Status: &status})
}
