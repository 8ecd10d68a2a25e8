package lead

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
	"github.com/trezcool/pathway/core/student"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("lead not found")
	ErrEmailExists      = errors.New("a lead with this email already exists")
	ErrPhoneExists      = errors.New("a lead with this phone already exists")
	ErrAlreadyConverted = errors.New("this lead has already been converted")
)

type (
	Repository interface {
		// Create returns ErrEmailExists or ErrPhoneExists when a unique index rejects the lead.
		Create(ctx context.Context, l Lead) (Lead, error)
		Get(ctx context.Context, id string) (Lead, error)
		// Update returns ErrEmailExists or ErrPhoneExists when a unique index rejects the lead.
		Update(ctx context.Context, l Lead) (Lead, error)
		// Query applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of the names, the email or the phone.
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Lead, error)
		// FindDuplicates returns the IDs of the leads using email or phone, other than excludedID.
		FindDuplicates(ctx context.Context, email, phone, excludedID string) (Duplicates, error)
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

// OrderingFields are the fields a Lead query can be ordered by.
var OrderingFields = []string{"first_name", "last_name", "email", "status", "source", "created_at", "updated_at"}

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
	activities.RegisterEntity(activity.EntityLead, svc.Lookup)
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

// Duplicates returns the leads already using email or phone.
func (svc *Service) Duplicates(ctx context.Context, email, phone string) (Duplicates, error) {
	email, phone = core.CleanEmail(email), core.CleanPhone(phone)
	if email == "" && phone == "" {
		return Duplicates{}, nil
	}
	dups, err := svc.repo.FindDuplicates(ctx, email, phone, "")
	return dups, errors.Wrap(err, "finding duplicate leads")
}

func (svc *Service) checkDuplicates(ctx context.Context, email, phone, excludedID string) error {
	dups, err := svc.repo.FindDuplicates(ctx, email, phone, excludedID)
	if err != nil {
		return errors.Wrap(err, "finding duplicate leads")
	}
	if !dups.Any() {
		return nil
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
	return vErr
}

// normalize resolves the dropdown backed fields of l to option keys.
func (svc *Service) normalize(ctx context.Context, l *Lead) error {
	r, err := svc.dropdowns.Resolver(ctx, dropdown.ModuleLead)
	if err != nil {
		return errors.Wrap(err, "loading lead dropdowns")
	}
	if l.Status, err = dropdown.NormalizeWith(r, dropdown.FieldStatus, l.Status); err != nil {
		return err
	}
	if l.Source, err = dropdown.NormalizeOptional(r, dropdown.FieldSource, l.Source); err != nil {
		return err
	}
	l.StudyLevel, err = dropdown.NormalizeOptional(r, dropdown.FieldStudyLevel, l.StudyLevel)
	return err
}

func (svc *Service) normalizeUpdate(ctx context.Context, ul *UpdateLead) error {
	if ul.Status == nil && ul.Source == nil && ul.StudyLevel == nil {
		return nil
	}
	r, err := svc.dropdowns.Resolver(ctx, dropdown.ModuleLead)
	if err != nil {
		return errors.Wrap(err, "loading lead dropdowns")
	}
	if ul.Status != nil {
		if core.CleanString(*ul.Status) == "" {
			return core.NewFieldError("status", "this field is required")
		}
		key, err := dropdown.NormalizeWith(r, dropdown.FieldStatus, *ul.Status)
		if err != nil {
			return err
		}
		ul.Status = &key
	}
	if ul.Source != nil {
		key, err := dropdown.NormalizeOptional(r, dropdown.FieldSource, *ul.Source)
		if err != nil {
			return err
		}
		ul.Source = &key
	}
	if ul.StudyLevel != nil {
		key, err := dropdown.NormalizeOptional(r, dropdown.FieldStudyLevel, *ul.StudyLevel)
		if err != nil {
			return err
		}
		ul.StudyLevel = &key
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, actor access.Actor, nl NewLead) (Lead, error) {
	nl.Clean()
	if err := svc.validate.Struct(nl); err != nil {
		return Lead{}, err
	}

	now := time.Now().UTC()
	l := Lead{
		FirstName:         nl.FirstName,
		LastName:          nl.LastName,
		Email:             nl.Email,
		Phone:             nl.Phone,
		Source:            nl.Source,
		Status:            nl.Status,
		InterestedCountry: nl.InterestedCountry,
		InterestedProgram: nl.InterestedProgram,
		StudyLevel:        nl.StudyLevel,
		Intake:            nl.Intake,
		Notes:             nl.Notes,
		AssignedTo:        nl.AssignedTo,
		CreatedBy:         actor.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := svc.normalize(ctx, &l); err != nil {
		return Lead{}, err
	}
	if l.Status == StatusConverted {
		return Lead{}, core.NewFieldError("status", "a lead can only be converted through the convert action")
	}
	if err := svc.checkDuplicates(ctx, l.Email, l.Phone, ""); err != nil {
		return Lead{}, err
	}

	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if l, err = svc.repo.Create(ctx, l); err != nil {
			if vErr := uniquenessError(err); vErr != nil {
				return vErr
			}
			return errors.Wrap(err, "creating lead")
		}
		return svc.activities.RecordCreated(ctx, actor, activity.EntityLead, l.ID, fmt.Sprintf("Lead %s created", l.FullName()))
	})
	if err != nil {
		return Lead{}, err
	}
	return l, nil
}

// Get returns ErrNotFound if the lead does not exist or if actor cannot see it.
func (svc *Service) Get(ctx context.Context, actor access.Actor, id string) (Lead, error) {
	l, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if !actor.CanSeeAssigned(l.AssignedTo, l.CreatedBy) {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

// Lookup implements activity.EntityLookup.
func (svc *Service) Lookup(ctx context.Context, actor access.Actor, id string) error {
	_, err := svc.Get(ctx, actor, id)
	return err
}

func (svc *Service) Query(ctx context.Context, actor access.Actor, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Lead, error) {
	filter.Clean()
	if !actor.SeesAll() {
		filter.VisibleTo = actor.ID
	}
	return svc.repo.Query(ctx, filter, core.FilterOrdering(ordering, OrderingFields...), page.Clean())
}

func (svc *Service) Update(ctx context.Context, actor access.Actor, id string, ul UpdateLead) (Lead, error) {
	orig, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Lead{}, err
	}
	if err = svc.normalizeUpdate(ctx, &ul); err != nil {
		return Lead{}, err
	}

	l, changes := ul.apply(orig)
	if len(changes) == 0 {
		return orig, nil
	}
	if err = svc.validate.Struct(l.toNew()); err != nil {
		return Lead{}, err
	}
	if changes.Has("status") && l.Status == StatusConverted && !l.IsConverted() {
		return Lead{}, core.NewFieldError("status", "a lead can only be converted through the convert action")
	}
	if changes.Has("email") || changes.Has("phone") {
		if err = svc.checkDuplicates(ctx, l.Email, l.Phone, l.ID); err != nil {
			return Lead{}, err
		}
	}

	l.UpdatedAt = time.Now().UTC()
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if l, err = svc.repo.Update(ctx, l); err != nil {
			if vErr := uniquenessError(err); vErr != nil {
				return vErr
			}
			return errors.Wrap(err, "updating lead")
		}
		return svc.activities.RecordChanges(ctx, actor, activity.EntityLead, l.ID, changes)
	})
	if err != nil {
		return Lead{}, err
	}
	return l, nil
}

// ChangeStatus sets the status of a lead. Setting the current status is a no-op.
func (svc *Service) ChangeStatus(ctx context.Context, actor access.Actor, id, status string) (Lead, error) {
	return svc.Update(ctx, actor, id, UpdateLead{Status: &status})
}

// Convert creates a student from a lead and marks the lead as converted, in a single transaction.
func (svc *Service) Convert(ctx context.Context, actor access.Actor, id string, cl ConvertLead) (Lead, student.Student, error) {
	l, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Lead{}, student.Student{}, err
	}
	if l.IsConverted() {
		return Lead{}, student.Student{}, core.NewValidationError(ErrAlreadyConverted)
	}

	var st student.Student
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// re-read inside the transaction: concurrent edits and conversions are seen
		cur, err := svc.repo.Get(ctx, l.ID)
		if err != nil {
			return errors.Wrap(err, "finding lead")
		}
		if cur.IsConverted() {
			return core.NewValidationError(ErrAlreadyConverted)
		}
		if st, err = svc.students.Create(ctx, actor, cl.newStudent(cur, actor)); err != nil {
			return err
		}

		orig := cur
		cur.Status = StatusConverted
		cur.StudentID = st.ID
		cur.UpdatedAt = time.Now().UTC()
		if l, err = svc.repo.Update(ctx, cur); err != nil {
			return errors.Wrap(err, "updating lead")
		}

		var changes activity.ChangeSet
		changes.SetString("status", &orig.Status, &l.Status)
		if err = svc.activities.RecordChanges(ctx, actor, activity.EntityLead, l.ID, changes); err != nil {
			return err
		}
		return svc.activities.RecordConverted(ctx, actor, activity.EntityLead, l.ID, fmt.Sprintf("Converted to student %s", st.FullName()))
	})
	if err != nil {
		return Lead{}, student.Student{}, err
	}
	return l, st, nil
}

// newStudent merges the conversion data with the lead; conversion data wins.
func (cl ConvertLead) newStudent(l Lead, actor access.Actor) student.NewStudent {
	return student.NewStudent{
		LeadID:           l.ID,
		FirstName:        l.FirstName,
		LastName:         firstNonEmpty(cl.LastName, l.LastName),
		Email:            firstNonEmpty(cl.Email, l.Email),
		Phone:            l.Phone,
		DateOfBirth:      cl.DateOfBirth,
		Nationality:      cl.Nationality,
		PassportNumber:   cl.PassportNumber,
		Address:          cl.Address,
		EducationLevel:   cl.EducationLevel,
		PreferredCountry: firstNonEmpty(cl.PreferredCountry, l.InterestedCountry),
		AssignedTo:       firstNonEmpty(cl.AssignedTo, l.AssignedTo, actor.ID),
		Notes:            l.Notes,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = core.CleanString(v); v != "" {
			return v
		}
	}
	return ""
}
