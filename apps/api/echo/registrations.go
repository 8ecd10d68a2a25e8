package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/event"
	"github.com/trezcool/pathway/core/lead"
)

type registrationApi struct {
	svc *event.RegistrationService
}

func registerRegistrationAPI(g *echo.Group, s *Server) {
	api := registrationApi{svc: s.svcs.Registrations}

	g.GET("", api.query)
	resource[event.Registration, event.NewRegistration, event.UpdateRegistration]{
		name: "registration",
		get: func(ctx context.Context, _ access.Actor, id string) (event.Registration, error) {
			return api.svc.Get(ctx, id)
		},
		create:       api.svc.Create,
		update:       api.svc.Update,
		changeStatus: api.svc.ChangeStatus,
	}.register(g)
	g.POST("/:id/convert", api.convert, requirePermission(access.ModuleLeads, access.Write))
}

func (api *registrationApi) query(ctx echo.Context) error {
	q := newQueryParams(ctx)
	filter := event.RegistrationFilter{
		EventID:   q.String("event_id"),
		Search:    q.String("search"),
		Statuses:  q.Strings("status"),
		Converted: q.Bool("converted"),
	}
	page := q.Page()
	if err := q.Err(); err != nil {
		return err
	}

	regs, err := api.svc.Query(ctx.Request().Context(), filter, q.Ordering(), page)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	return ctx.JSON(http.StatusOK, listOf(regs))
}

type ConvertRegistrationResponse struct {
	Registration event.Registration `json:"registration"`
	Lead         lead.Lead          `json:"lead"`
}

func (api *registrationApi) convert(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	reg, l, err := api.svc.ConvertToLead(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "converting registration")
	}
	return ctx.JSON(http.StatusCreated, ConvertRegistrationResponse{Registration: reg, Lead: l})
}
