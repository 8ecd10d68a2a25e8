package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core/admission"
	"github.com/trezcool/pathway/core/application"
)

type applicationApi struct {
	svc *application.Service
}

func registerApplicationAPI(g *echo.Group, s *Server) {
	api := applicationApi{svc: s.svcs.Applications}

	g.GET("", api.query)
	resource[application.Application, application.NewApplication, application.UpdateApplication]{
		name:         "application",
		get:          api.svc.Get,
		create:       api.svc.Create,
		update:       api.svc.Update,
		changeStatus: api.svc.ChangeStatus,
	}.register(g)
}

func (api *applicationApi) query(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	q := newQueryParams(ctx)
	filter := application.QueryFilter{
		Search:      q.String("search"),
		Statuses:    q.Strings("status"),
		StudentID:   q.String("student_id"),
		AssignedTo:  q.String("assigned_to"),
		Country:     q.String("country"),
		CreatedFrom: q.Time("created_from"),
		CreatedTo:   q.Time("created_to", true),
	}
	page := q.Page()
	if err = q.Err(); err != nil {
		return err
	}

	apps, err := api.svc.Query(ctx.Request().Context(), actor, filter, q.Ordering(), page)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	return ctx.JSON(http.StatusOK, listOf(apps))
}

type admissionApi struct {
	svc *admission.Service
}

func registerAdmissionAPI(g *echo.Group, s *Server) {
	api := admissionApi{svc: s.svcs.Admissions}
	res := resource[admission.Admission, admission.NewAdmission, admission.UpdateAdmission]{
		name:         "admission",
		get:          api.svc.Get,
		create:       api.svc.Create,
		update:       api.svc.Update,
		changeStatus: api.svc.ChangeStatus,
	}

	g.GET("", api.query)
	res.register(g)
	g.PATCH("/:id/visa-status", res.handleStatus("visa_status", api.svc.ChangeVisaStatus))
}

func (api *admissionApi) query(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	q := newQueryParams(ctx)
	filter := admission.QueryFilter{
		Search:        q.String("search"),
		Statuses:      q.Strings("status"),
		VisaStatuses:  q.Strings("visa_status"),
		ApplicationID: q.String("application_id"),
		StudentID:     q.String("student_id"),
		AssignedTo:    q.String("assigned_to"),
		CreatedFrom:   q.Time("created_from"),
		CreatedTo:     q.Time("created_to", true),
	}
	page := q.Page()
	if err = q.Err(); err != nil {
		return err
	}

	admissions, err := api.svc.Query(ctx.Request().Context(), actor, filter, q.Ordering(), page)
	if err != nil {
		return errors.Wrap(err, "querying admissions")
	}
	return ctx.JSON(http.StatusOK, listOf(admissions))
}
