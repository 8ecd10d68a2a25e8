package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/application"
	"github.com/trezcool/pathway/core/dropdown"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("admission not found")
)

type (
	Repository interface {
		Create(ctx context.Context, adm Admission) (Admission, error)
		Get(ctx context.Context, id string) (Admission, error)
		Update(ctx context.Context, adm Admission) (Admission, error)
		// Query applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on the university or the program.
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Admission, error)
	}

	Service struct {
		repo         Repository
		tx           core.Transactor
		applications *application.Service
		activities   *activity.Service
		dropdowns    *dropdown.Service
		validate     *validator.Validate
	}
)

// OrderingFields are the fields an Admission query can be ordered by.
var OrderingFields = []string{"university", "program", "status", "visa_status", "decision_date", "created_at", "updated_at"}

func NewService(
	repo Repository,
	tx core.Transactor,
	applications *application.Service,
	activities *activity.Service,
	dropdowns *dropdown.Service,
	validate *validator.Validate,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(applications, "applications"),
		vala.IsNotNil(activities, "activities"),
		vala.IsNotNil(dropdowns, "dropdowns"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	svc := &Service{
		repo:         repo,
		tx:           tx,
		applications: applications,
		activities:   activities,
		dropdowns:    dropdowns,
		validate:     validate,
	}
	activities.RegisterEntity(activity.EntityAdmission, svc.Lookup)
	return svc
}

func (svc *Service) resolver(ctx context.Context) (dropdown.Resolver, error) {
	r, err := svc.dropdowns.Resolver(ctx, dropdown.ModuleAdmission)
	return r, errors.Wrap(err, "loading admission dropdowns")
}

// Create records the admission of an application visible to actor.
// The student, university, program and counsellor are copied from the application.
func (svc *Service) Create(ctx context.Context, actor access.Actor, na NewAdmission) (Admission, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Admission{}, err
	}

	app, err := svc.applications.Get(ctx, actor, na.ApplicationID)
	if err != nil {
		if core.IsNotFound(err) {
			return Admission{}, core.NewFieldError("application_id", "application not found")
		}
		return Admission{}, errors.Wrap(err, "finding application")
	}

	r, err := svc.resolver(ctx)
	if err != nil {
		return Admission{}, err
	}
	if na.Status, err = dropdown.NormalizeWith(r, dropdown.FieldStatus, na.Status); err != nil {
		return Admission{}, err
	}
	if na.VisaStatus, err = dropdown.NormalizeWith(r, dropdown.FieldVisaStatus, na.VisaStatus); err != nil {
		return Admission{}, err
	}

	now := time.Now().UTC()
	adm := Admission{
		ApplicationID: app.ID,
		StudentID:     app.StudentID,
		University:    na.University,
		Program:       na.Program,
		Status:        na.Status,
		DecisionDate:  na.DecisionDate,
		TuitionFee:    na.TuitionFee,
		DepositPaid:   na.DepositPaid,
		VisaStatus:    na.VisaStatus,
		VisaNotes:     na.VisaNotes,
		Notes:         na.Notes,
		AssignedTo:    app.AssignedTo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if adm.University == "" {
		adm.University = app.University
	}
	if adm.Program == "" {
		adm.Program = app.Program
	}
	var ignored activity.ChangeSet
	adm.stampVisaDates(&ignored, now)

	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if adm, err = svc.repo.Create(ctx, adm); err != nil {
			return errors.Wrap(err, "creating admission")
		}
		content := fmt.Sprintf("Admission to %s (%s) created", adm.University, adm.Program)
		if err = svc.activities.RecordCreated(ctx, actor, activity.EntityAdmission, adm.ID, content); err != nil {
			return err
		}
		return svc.activities.RecordCreated(ctx, actor, activity.EntityApplication, app.ID, content)
	})
	if err != nil {
		return Admission{}, err
	}
	return adm, nil
}

// Get returns ErrNotFound if the admission does not exist or if actor cannot see it.
func (svc *Service) Get(ctx context.Context, actor access.Actor, id string) (Admission, error) {
	adm, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Admission{}, err
	}
	if !actor.CanSeeAssigned(adm.AssignedTo) {
		return Admission{}, ErrNotFound
	}
	return adm, nil
}

// Lookup implements activity.EntityLookup.
func (svc *Service) Lookup(ctx context.Context, actor access.Actor, id string) error {
	_, err := svc.Get(ctx, actor, id)
	return err
}

func (svc *Service) Query(ctx context.Context, actor access.Actor, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Admission, error) {
	filter.Clean()
	if !actor.SeesAll() {
		filter.VisibleTo = actor.ID
	}
	return svc.repo.Query(ctx, filter, core.FilterOrdering(ordering, OrderingFields...), page.Clean())
}

func (svc *Service) normalizeUpdate(ctx context.Context, ua *UpdateAdmission) error {
	if ua.Status == nil && ua.VisaStatus == nil {
		return nil
	}
	r, err := svc.resolver(ctx)
	if err != nil {
		return err
	}
	for field, val := range map[string]**string{
		dropdown.FieldStatus:     &ua.Status,
		dropdown.FieldVisaStatus: &ua.VisaStatus,
	} {
		if *val == nil {
			continue
		}
		if core.CleanString(**val) == "" {
			return core.NewFieldError(field, "this field is required")
		}
		key, err := dropdown.NormalizeWith(r, field, **val)
		if err != nil {
			return err
		}
		*val = &key
	}
	return nil
}

func (svc *Service) Update(ctx context.Context, actor access.Actor, id string, ua UpdateAdmission) (Admission, error) {
	orig, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Admission{}, err
	}
	if err = svc.normalizeUpdate(ctx, &ua); err != nil {
		return Admission{}, err
	}

	adm, changes := ua.apply(orig)
	if len(changes) == 0 {
		return orig, nil
	}
	if changes.Has(dropdown.FieldVisaStatus) {
		adm.stampVisaDates(&changes, time.Now().UTC())
	}
	if err = svc.validate.Struct(adm.editable()); err != nil {
		return Admission{}, err
	}

	adm.UpdatedAt = time.Now().UTC()
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if adm, err = svc.repo.Update(ctx, adm); err != nil {
			return errors.Wrap(err, "updating admission")
		}
		return svc.activities.RecordChanges(ctx, actor, activity.EntityAdmission, adm.ID, changes)
	})
	if err != nil {
		return Admission{}, err
	}
	return adm, nil
}

// ChangeStatus sets the status of an admission. Setting the current status is a no-op.
func (svc *Service) ChangeStatus(ctx context.Context, actor access.Actor, id, status string) (Admission, error) {
	return svc.Update(ctx, actor, id, UpdateAdmission{Status: &status})
}

// ChangeVisaStatus sets the visa status; moving to applied (or approved/rejected) stamps the applied (or decision) date once.
func (svc *Service) ChangeVisaStatus(ctx context.Context, actor access.Actor, id, visaStatus string) (Admission, error) {
	return svc.Update(ctx, actor, id, UpdateAdmission{VisaStatus: &visaStatus})
}
