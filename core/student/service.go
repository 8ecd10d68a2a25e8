package student

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
	"github.com/trezcool/pathway/core/dropdown"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("student not found")
	ErrEmailExists = errors.New("a student with this email already exists")
	ErrPhoneExists = errors.New("a student with this phone already exists")
)

type (
	Repository interface {
		// Create returns ErrEmailExists or ErrPhoneExists when a unique index rejects the student.
		Create(ctx context.Context, s Student) (Student, error)
		Get(ctx context.Context, id string) (Student, error)
		// Update returns ErrEmailExists or ErrPhoneExists when a unique index rejects the student.
		Update(ctx context.Context, s Student) (Student, error)
		// Query applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of the names, the email or the phone.
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Student, error)
		// FindDuplicates returns the IDs of the students using email or phone, other than excludedID.
		FindDuplicates(ctx context.Context, email, phone, excludedID string) (Duplicates, error)
	}

	Service struct {
		repo       Repository
		tx         core.Transactor
		activities *activity.Service
		dropdowns  *dropdown.Service
		validate   *validator.Validate
	}
)

// OrderingFields are the fields a Student query can be ordered by.
var OrderingFields = []string{"first_name", "last_name", "email", "status", "nationality", "created_at", "updated_at"}

func NewService(repo Repository, tx core.Transactor, activities *activity.Service, dropdowns *dropdown.Service, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(activities, "activities"),
		vala.IsNotNil(dropdowns, "dropdowns"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	svc := &Service{
		repo:       repo,
		tx:         tx,
		activities: activities,
		dropdowns:  dropdowns,
		validate:   validate,
	}
	activities.RegisterEntity(activity.EntityStudent, svc.Lookup)
	return svc
}

func uniquenessError(err error) error {
	switch errors.Cause(err) {
	case ErrEmailExists:
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	case ErrPhoneExists:
		return core.NewValidationError(ErrPhoneExists, core.FieldError{Field: "phone", Error: ErrPhoneExists.Error()})
	}
	return nil
}

func (svc *Service) checkDuplicates(ctx context.Context, email, phone, excludedID string) error {
	dups, err := svc.repo.FindDuplicates(ctx, email, phone, excludedID)
	if err != nil {
		return errors.Wrap(err, "finding duplicate students")
	}
	vErr := &core.ValidationError{}
	if len(dups.Email) > 0 {
		vErr.Err = ErrEmailExists
		vErr.Fields = append(vErr.Fields, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	if len(dups.Phone) > 0 {
		if vErr.Err == nil {
			vErr.Err = ErrPhoneExists
		}
		vErr.Fields = append(vErr.Fields, core.FieldError{Field: "phone", Error: ErrPhoneExists.Error()})
	}
	if vErr.Err != nil {
		return vErr
	}
	return nil
}

func (svc *Service) resolver(ctx context.Context) (dropdown.Resolver, error) {
	r, err := svc.dropdowns.Resolver(ctx, dropdown.ModuleStudent)
	return r, errors.Wrap(err, "loading student dropdowns")
}

func (svc *Service) Create(ctx context.Context, actor access.Actor, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}

	r, err := svc.resolver(ctx)
	if err != nil {
		return Student{}, err
	}
	if ns.Status, err = dropdown.NormalizeWith(r, dropdown.FieldStatus, ns.Status); err != nil {
		return Student{}, err
	}
	if ns.EducationLevel, err = dropdown.NormalizeOptional(r, dropdown.FieldEducationLevel, ns.EducationLevel); err != nil {
		return Student{}, err
	}
	if err = svc.checkDuplicates(ctx, ns.Email, ns.Phone, ""); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	s := Student{
		LeadID:           ns.LeadID,
		FirstName:        ns.FirstName,
		LastName:         ns.LastName,
		Email:            ns.Email,
		Phone:            ns.Phone,
		DateOfBirth:      ns.DateOfBirth,
		Nationality:      ns.Nationality,
		PassportNumber:   ns.PassportNumber,
		Address:          ns.Address,
		EducationLevel:   ns.EducationLevel,
		EnglishTest:      ns.EnglishTest,
		EnglishScore:     ns.EnglishScore,
		PreferredCountry: ns.PreferredCountry,
		Status:           ns.Status,
		AssignedTo:       ns.AssignedTo,
		Notes:            ns.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if s.AssignedTo == "" && !actor.SeesAll() {
		// keep the record visible to its creator
		s.AssignedTo = actor.ID
	}

	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if s, err = svc.repo.Create(ctx, s); err != nil {
			if vErr := uniquenessError(err); vErr != nil {
				return vErr
			}
			return errors.Wrap(err, "creating student")
		}
		return svc.activities.RecordCreated(ctx, actor, activity.EntityStudent, s.ID, fmt.Sprintf("Student %s created", s.FullName()))
	})
	if err != nil {
		return Student{}, err
	}
	return s, nil
}

// Get returns ErrNotFound if the student does not exist or if actor cannot see it.
func (svc *Service) Get(ctx context.Context, actor access.Actor, id string) (Student, error) {
	s, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if !actor.CanSeeAssigned(s.AssignedTo) {
		return Student{}, ErrNotFound
	}
	return s, nil
}

// Lookup implements activity.EntityLookup.
func (svc *Service) Lookup(ctx context.Context, actor access.Actor, id string) error {
	_, err := svc.Get(ctx, actor, id)
	return err
}

func (svc *Service) Query(ctx context.Context, actor access.Actor, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Student, error) {
	filter.Clean()
	if !actor.SeesAll() {
		filter.VisibleTo = actor.ID
	}
	return svc.repo.Query(ctx, filter, core.FilterOrdering(ordering, OrderingFields...), page.Clean())
}

func (svc *Service) normalizeUpdate(ctx context.Context, us *UpdateStudent) error {
	if us.Status == nil && us.EducationLevel == nil {
		return nil
	}
	r, err := svc.resolver(ctx)
	if err != nil {
		return err
	}
	if us.Status != nil {
		if core.CleanString(*us.Status) == "" {
			return core.NewFieldError("status", "this field is required")
		}
		key, err := dropdown.NormalizeWith(r, dropdown.FieldStatus, *us.Status)
		if err != nil {
			return err
		}
		us.Status = &key
	}
	if us.EducationLevel != nil {
		key, err := dropdown.NormalizeOptional(r, dropdown.FieldEducationLevel, *us.EducationLevel)
		if err != nil {
			return err
		}
		us.EducationLevel = &key
	}
	return nil
}

func (svc *Service) Update(ctx context.Context, actor access.Actor, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Student{}, err
	}
	if err = svc.normalizeUpdate(ctx, &us); err != nil {
		return Student{}, err
	}

	s, changes := us.apply(orig)
	if len(changes) == 0 {
		return orig, nil
	}
	if err = svc.validate.Struct(s.toNew()); err != nil {
		return Student{}, err
	}
	if changes.Has("email") || changes.Has("phone") {
		if err = svc.checkDuplicates(ctx, s.Email, s.Phone, s.ID); err != nil {
			return Student{}, err
		}
	}
	return svc.save(ctx, actor, s, changes)
}

func (svc *Service) save(ctx context.Context, actor access.Actor, s Student, changes activity.ChangeSet) (Student, error) {
	s.UpdatedAt = time.Now().UTC()
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if s, err = svc.repo.Update(ctx, s); err != nil {
			if vErr := uniquenessError(err); vErr != nil {
				return vErr
			}
			return errors.Wrap(err, "updating student")
		}
		return svc.activities.RecordChanges(ctx, actor, activity.EntityStudent, s.ID, changes)
	})
	if err != nil {
		return Student{}, err
	}
	return s, nil
}

// ChangeStatus sets the status of a student. Setting the current status is a no-op.
func (svc *Service) ChangeStatus(ctx context.Context, actor access.Actor, id, status string) (Student, error) {
	return svc.Update(ctx, actor, id, UpdateStudent{Status: &status})
}

func (svc *Service) SetProfilePicture(ctx context.Context, actor access.Actor, id, url string) (Student, error) {
	s, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Student{}, err
	}
	var changes activity.ChangeSet
	changes.SetString("profile_picture", &s.ProfilePicture, &url)
	if len(changes) == 0 {
		return s, nil
	}
	return svc.save(ctx, actor, s, changes)
}
