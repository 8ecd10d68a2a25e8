package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/admission"
	"github.com/trezcool/pathway/core/application"
)

type applicationRepository struct {
	db *DB
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) Create(ctx context.Context, app application.Application) (application.Application, error) {
	defer repo.db.lockWrite(ctx)()

	if app.ID == "" {
		app.ID = newID()
	}
	repo.db.applications[app.ID] = app
	return app, nil
}

func (repo *applicationRepository) Get(_ context.Context, id string) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if app, ok := repo.db.applications[id]; ok {
		return app, nil
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) Update(ctx context.Context, app application.Application) (application.Application, error) {
	defer repo.db.lockWrite(ctx)()

	if _, ok := repo.db.applications[app.ID]; !ok {
		return application.Application{}, application.ErrNotFound
	}
	repo.db.applications[app.ID] = app
	return app, nil
}

func applicationField(app application.Application, field string) interface{} {
	switch field {
	case "id":
		return app.ID
	case "university":
		return app.University
	case "program":
		return app.Program
	case "country":
		return app.Country
	case "status":
		return app.Status
	case "submitted_at":
		return app.SubmittedAt.Time
	case "updated_at":
		return app.UpdatedAt
	default:
		return app.CreatedAt
	}
}

func (repo *applicationRepository) Query(_ context.Context, filter application.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	apps := make([]application.Application, 0)
	for _, app := range repo.db.applications {
		if !matches(filter.Search, app.University, app.Program) ||
			!oneOf(app.Status, filter.Statuses) ||
			(filter.Country != "" && !strings.EqualFold(app.Country, filter.Country)) ||
			!eqIfSet(app.StudentID, filter.StudentID) ||
			!eqIfSet(app.AssignedTo, filter.AssignedTo) ||
			!eqIfSet(app.AssignedTo, filter.VisibleTo) ||
			!inRange(app.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		apps = append(apps, app)
	}
	sortRecords(apps, ordering, applicationField)
	return paginate(apps, page), nil
}

type admissionRepository struct {
	db *DB
}

var _ admission.Repository = (*admissionRepository)(nil) // interface compliance check

func NewAdmissionRepository(db *DB) admission.Repository {
	return &admissionRepository{db: db}
}

func (repo *admissionRepository) Create(ctx context.Context, adm admission.Admission) (admission.Admission, error) {
	defer repo.db.lockWrite(ctx)()

	if adm.ID == "" {
		adm.ID = newID()
	}
	repo.db.admissions[adm.ID] = adm
	return adm, nil
}

func (repo *admissionRepository) Get(_ context.Context, id string) (admission.Admission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if adm, ok := repo.db.admissions[id]; ok {
		return adm, nil
	}
	return admission.Admission{}, admission.ErrNotFound
}

func (repo *admissionRepository) Update(ctx context.Context, adm admission.Admission) (admission.Admission, error) {
	defer repo.db.lockWrite(ctx)()

	if _, ok := repo.db.admissions[adm.ID]; !ok {
		return admission.Admission{}, admission.ErrNotFound
	}
	repo.db.admissions[adm.ID] = adm
	return adm, nil
}

func admissionField(adm admission.Admission, field string) interface{} {
	switch field {
	case "id":
		return adm.ID
	case "university":
		return adm.University
	case "program":
		return adm.Program
	case "status":
		return adm.Status
	case "visa_status":
		return adm.VisaStatus
	case "decision_date":
		return adm.DecisionDate
	case "updated_at":
		return adm.UpdatedAt
	default:
		return adm.CreatedAt
	}
}

func (repo *admissionRepository) Query(_ context.Context, filter admission.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]admission.Admission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	adms := make([]admission.Admission, 0)
	for _, adm := range repo.db.admissions {
		if !matches(filter.Search, adm.University, adm.Program) ||
			!oneOf(adm.Status, filter.Statuses) ||
			!oneOf(adm.VisaStatus, filter.VisaStatuses) ||
			!eqIfSet(adm.ApplicationID, filter.ApplicationID) ||
			!eqIfSet(adm.StudentID, filter.StudentID) ||
			!eqIfSet(adm.AssignedTo, filter.AssignedTo) ||
			!eqIfSet(adm.AssignedTo, filter.VisibleTo) ||
			!inRange(adm.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		adms = append(adms, adm)
	}
	sortRecords(adms, ordering, admissionField)
	return paginate(adms, page), nil
}
