package event

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/dropdown"
	"github.com/trezcool/pathway/core/lead"
)

var (
	// errors
	ErrRegistrationNotFound = core.NewNotFoundError("registration not found")
	ErrEmailRegistered      = errors.New("this email is already registered to the event")
	ErrPhoneRegistered      = errors.New("this phone is already registered to the event")
	ErrAlreadyConverted     = errors.New("this registration has already been converted to a lead")
	ErrEventFull            = errors.New("the event is full")
)

type (
	RegistrationRepository interface {
		// Create returns ErrEmailRegistered or ErrPhoneRegistered when a unique index rejects the registration.
		Create(ctx context.Context, reg Registration) (Registration, error)
		Get(ctx context.Context, id string) (Registration, error)
		// Update returns ErrEmailRegistered or ErrPhoneRegistered when a unique index rejects the registration.
		Update(ctx context.Context, reg Registration) (Registration, error)
		// Query applies AND operation on available RegistrationFilter fields.
		// RegistrationFilter.Search does a case-insensitive match on one of the names, the email or the phone.
		Query(ctx context.Context, filter RegistrationFilter, ordering []core.DBOrdering, page core.Page) ([]Registration, error)
		// ListByEvent returns every registration of an event.
		ListByEvent(ctx context.Context, eventID string) ([]Registration, error)
		// FindDuplicates returns the IDs of the event's registrations using email or phone, other than excludedID.
		FindDuplicates(ctx context.Context, eventID, email, phone, excludedID string) (Duplicates, error)
	}

	RegistrationService struct {
		repo       RegistrationRepository
		tx         core.Transactor
		events     *Service
		leads      *lead.Service
		activities *activity.Service
		dropdowns  *dropdown.Service
		mailSvc    core.EmailService
		validate   *validator.Validate
		translator ut.Translator
		conf       *core.Config
	}
)

// RegistrationOrderingFields are the fields a Registration query can be ordered by.
var RegistrationOrderingFields = []string{"first_name", "last_name", "email", "status", "created_at", "updated_at"}

func NewRegistrationService(
	repo RegistrationRepository,
	tx core.Transactor,
	events *Service,
	leads *lead.Service,
	activities *activity.Service,
	dropdowns *dropdown.Service,
	mailSvc core.EmailService,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *RegistrationService {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(events, "events"),
		vala.IsNotNil(leads, "leads"),
		vala.IsNotNil(activities, "activities"),
		vala.IsNotNil(dropdowns, "dropdowns"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(translator, "translator"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &RegistrationService{
		repo:       repo,
		tx:         tx,
		events:     events,
		leads:      leads,
		activities: activities,
		dropdowns:  dropdowns,
		mailSvc:    mailSvc,
		validate:   validate,
		translator: translator,
		conf:       conf,
	}
}

func registeredError(err error) error {
	switch errors.Cause(err) {
	case ErrEmailRegistered:
		return core.NewValidationError(ErrEmailRegistered, core.FieldError{Field: "email", Error: ErrEmailRegistered.Error()})
	case ErrPhoneRegistered:
		return core.NewValidationError(ErrPhoneRegistered, core.FieldError{Field: "phone", Error: ErrPhoneRegistered.Error()})
	}
	return nil
}

func (svc *RegistrationService) checkDuplicates(ctx context.Context, eventID, email, phone, excludedID string) error {
	dups, err := svc.repo.FindDuplicates(ctx, eventID, email, phone, excludedID)
	if err != nil {
		return errors.Wrap(err, "finding duplicate registrations")
	}
	vErr := &core.ValidationError{}
	if len(dups.Email) > 0 {
		vErr.Err = ErrEmailRegistered
		vErr.Fields = append(vErr.Fields, core.FieldError{Field: "email", Error: ErrEmailRegistered.Error()})
	}
	if len(dups.Phone) > 0 {
		if vErr.Err == nil {
			vErr.Err = ErrPhoneRegistered
		}
		vErr.Fields = append(vErr.Fields, core.FieldError{Field: "phone", Error: ErrPhoneRegistered.Error()})
	}
	if vErr.Err != nil {
		return vErr
	}
	return nil
}

func (svc *RegistrationService) resolver(ctx context.Context) (dropdown.Resolver, error) {
	r, err := svc.dropdowns.Resolver(ctx, dropdown.ModuleRegistration)
	return r, errors.Wrap(err, "loading registration dropdowns")
}

func (svc *RegistrationService) getEvent(ctx context.Context, id string) (Event, error) {
	evt, err := svc.events.Get(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Event{}, core.NewFieldError("event_id", "event not found")
		}
		return Event{}, errors.Wrap(err, "finding event")
	}
	return evt, nil
}

// checkCapacity fails if adding `adding` registrations would exceed the capacity of evt.
func (svc *RegistrationService) checkCapacity(ctx context.Context, evt Event, adding int) error {
	if evt.Capacity <= 0 {
		return nil
	}
	regs, err := svc.repo.ListByEvent(ctx, evt.ID)
	if err != nil {
		return errors.Wrap(err, "listing registrations")
	}
	if len(regs)+adding > evt.Capacity {
		return core.NewValidationError(ErrEventFull)
	}
	return nil
}

func (svc *RegistrationService) Create(ctx context.Context, actor access.Actor, nr NewRegistration) (Registration, error) {
	nr.Clean()
	if err := svc.validate.Struct(nr); err != nil {
		return Registration{}, err
	}
	evt, err := svc.getEvent(ctx, nr.EventID)
	if err != nil {
		return Registration{}, err
	}
	r, err := svc.resolver(ctx)
	if err != nil {
		return Registration{}, err
	}
	if nr.Status, err = dropdown.NormalizeWith(r, dropdown.FieldStatus, nr.Status); err != nil {
		return Registration{}, err
	}
	if err = svc.checkDuplicates(ctx, evt.ID, nr.Email, nr.Phone, ""); err != nil {
		return Registration{}, err
	}

	var reg Registration
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := svc.checkCapacity(ctx, evt, 1); err != nil {
			return err
		}
		var err error
		if reg, err = svc.create(ctx, evt, nr); err != nil {
			return err
		}
		return svc.activities.RecordCreated(ctx, actor, activity.EntityEvent, evt.ID, fmt.Sprintf("%s registered", reg.FullName()))
	})
	if err != nil {
		return Registration{}, err
	}
	svc.sendConfirmation(evt, reg)
	return reg, nil
}

// create inserts an already validated & normalized registration.
func (svc *RegistrationService) create(ctx context.Context, evt Event, nr NewRegistration) (Registration, error) {
	now := time.Now().UTC()
	reg, err := svc.repo.Create(ctx, Registration{
		EventID:           evt.ID,
		FirstName:         nr.FirstName,
		LastName:          nr.LastName,
		Email:             nr.Email,
		Phone:             nr.Phone,
		Status:            nr.Status,
		Source:            nr.Source,
		InterestedCountry: nr.InterestedCountry,
		Notes:             nr.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if vErr := registeredError(err); vErr != nil {
			return Registration{}, vErr
		}
		return Registration{}, errors.Wrap(err, "creating registration")
	}
	return reg, nil
}

func (svc *RegistrationService) sendConfirmation(evt Event, reg Registration) {
	if reg.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: reg.FullName(), Address: reg.Email}},
		Subject:      fmt.Sprintf("Registration confirmed: %s", evt.Name),
		TemplateName: "event_registration",
		TemplateData: struct {
			Name      string
			EventName string
			StartsAt  string
			Location  string
		}{
			Name:      reg.FullName(),
			EventName: evt.Name,
			StartsAt:  evt.StartsAt.Format("Monday 2 January 2006, 15:04 MST"),
			Location:  evt.Location,
		},
		FrontendBaseURL: svc.conf.FrontendBaseURL,
	})
}

func (svc *RegistrationService) Get(ctx context.Context, id string) (Registration, error) {
	return svc.repo.Get(ctx, id)
}

func (svc *RegistrationService) Query(ctx context.Context, filter RegistrationFilter, ordering []core.DBOrdering, page core.Page) ([]Registration, error) {
	filter.Clean()
	return svc.repo.Query(ctx, filter, core.FilterOrdering(ordering, RegistrationOrderingFields...), page.Clean())
}

// Update modifies a registration. Its changes are logged on the event's feed.
func (svc *RegistrationService) Update(ctx context.Context, actor access.Actor, id string, ur UpdateRegistration) (Registration, error) {
	orig, err := svc.Get(ctx, id)
	if err != nil {
		return Registration{}, err
	}
	if ur.Status != nil {
		if core.CleanString(*ur.Status) == "" {
			return Registration{}, core.NewFieldError("status", "this field is required")
		}
		r, err := svc.resolver(ctx)
		if err != nil {
			return Registration{}, err
		}
		key, err := dropdown.NormalizeWith(r, dropdown.FieldStatus, *ur.Status)
		if err != nil {
			return Registration{}, err
		}
		ur.Status = &key
	}

	reg, changes := ur.apply(orig)
	if len(changes) == 0 {
		return orig, nil
	}
	if err = svc.validate.Struct(reg.toNew()); err != nil {
		return Registration{}, err
	}
	if changes.Has("email") || changes.Has("phone") {
		if err = svc.checkDuplicates(ctx, reg.EventID, reg.Email, reg.Phone, reg.ID); err != nil {
			return Registration{}, err
		}
	}

	reg.UpdatedAt = time.Now().UTC()
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if reg, err = svc.repo.Update(ctx, reg); err != nil {
			if vErr := registeredError(err); vErr != nil {
				return vErr
			}
			return errors.Wrap(err, "updating registration")
		}
		content := fmt.Sprintf("registration of %s", reg.FullName())
		return svc.activities.RecordRelatedChanges(ctx, actor, activity.EntityEvent, reg.EventID, dropdown.ModuleRegistration, content, changes)
	})
	if err != nil {
		return Registration{}, err
	}
	return reg, nil
}

// ChangeStatus sets the status of a registration (attended, no_show, ...).
func (svc *RegistrationService) ChangeStatus(ctx context.Context, actor access.Actor, id, status string) (Registration, error) {
	return svc.Update(ctx, actor, id, UpdateRegistration{Status: &status})
}

// ConvertToLead creates a lead with the "event" source from a registration, and links them.
func (svc *RegistrationService) ConvertToLead(ctx context.Context, actor access.Actor, id string) (Registration, lead.Lead, error) {
	reg, err := svc.Get(ctx, id)
	if err != nil {
		return Registration{}, lead.Lead{}, err
	}
	if reg.LeadID != "" {
		return Registration{}, lead.Lead{}, core.NewValidationError(ErrAlreadyConverted)
	}
	evt, err := svc.events.Get(ctx, reg.EventID)
	if err != nil {
		return Registration{}, lead.Lead{}, errors.Wrap(err, "finding event")
	}

	var l lead.Lead
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		l, err = svc.leads.Create(ctx, actor, lead.NewLead{
			FirstName:         reg.FirstName,
			LastName:          reg.LastName,
			Email:             reg.Email,
			Phone:             reg.Phone,
			Source:            lead.SourceEvent,
			InterestedCountry: reg.InterestedCountry,
			Notes:             joinNotes(fmt.Sprintf("Registered to %s", evt.Name), reg.Notes),
		})
		if err != nil {
			return err
		}
		reg.LeadID = l.ID
		reg.UpdatedAt = time.Now().UTC()
		if reg, err = svc.repo.Update(ctx, reg); err != nil {
			return errors.Wrap(err, "updating registration")
		}
		return svc.activities.RecordConverted(ctx, actor, activity.EntityEvent, evt.ID, fmt.Sprintf("%s converted to lead", reg.FullName()))
	})
	if err != nil {
		return Registration{}, lead.Lead{}, err
	}
	return reg, l, nil
}

func joinNotes(notes ...string) string {
	var joined string
	for _, n := range notes {
		if n == "" {
			continue
		}
		if joined != "" {
			joined += "\n"
		}
		joined += n
	}
	return joined
}
