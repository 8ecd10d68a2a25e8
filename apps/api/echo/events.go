package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/event"
)

type eventApi struct {
	svc           *event.Service
	registrations *event.RegistrationService
}

func registerEventAPI(g *echo.Group, s *Server) {
	api := eventApi{svc: s.svcs.Events, registrations: s.svcs.Registrations}
	res := resource[event.Event, event.NewEvent, event.UpdateEvent]{
		name: "event",
		get: func(ctx context.Context, _ access.Actor, id string) (event.Event, error) {
			return api.svc.Get(ctx, id)
		},
		create:       api.svc.Create,
		update:       api.svc.Update,
		changeStatus: api.svc.ChangeStatus,
	}

	events := g.Group("", requireModule(access.ModuleEvents))
	events.GET("", api.query)
	res.register(events)

	registrations := g.Group("/:id/registrations", requirePermission(access.ModuleEvents, access.Read))
	registrations.GET("", api.listRegistrations, requirePermission(access.ModuleRegistrations, access.Read))
	registrations.POST("/import", api.importRegistrations, requirePermission(access.ModuleRegistrations, access.Write))
}

func (api *eventApi) query(ctx echo.Context) error {
	q := newQueryParams(ctx)
	filter := event.QueryFilter{
		Search:       q.String("search"),
		Statuses:     q.Strings("status"),
		Type:         q.String("type"),
		StartsAfter:  q.Time("starts_after"),
		StartsBefore: q.Time("starts_before", true),
	}
	page := q.Page()
	if err := q.Err(); err != nil {
		return err
	}

	events, err := api.svc.Query(ctx.Request().Context(), filter, q.Ordering(), page)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, listOf(events))
}

func (api *eventApi) listRegistrations(ctx echo.Context) error {
	eventID := ctx.Param("id")
	if _, err := api.svc.Get(ctx.Request().Context(), eventID); err != nil {
		return errors.Wrap(err, "finding event")
	}
	q := newQueryParams(ctx)
	filter := event.RegistrationFilter{
		EventID:   eventID,
		Search:    q.String("search"),
		Statuses:  q.Strings("status"),
		Converted: q.Bool("converted"),
	}
	page := q.Page()
	if err := q.Err(); err != nil {
		return err
	}

	regs, err := api.registrations.Query(ctx.Request().Context(), filter, q.Ordering(), page)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	return ctx.JSON(http.StatusOK, listOf(regs))
}

// importRegistrations reads a multipart "file" (.csv or .xlsx). Any invalid row rejects the whole file with a 400
// carrying the report; `?dry_run=true` (or a dry_run form value) only validates.
func (api *eventApi) importRegistrations(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	dryRun := false
	if raw := ctx.FormValue("dry_run"); raw != "" {
		if dryRun, err = strconv.ParseBool(raw); err != nil {
			return core.NewFieldError("dry_run", "enter true or false")
		}
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", "this field is required")
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	rep, err := api.registrations.Import(ctx.Request().Context(), actor, ctx.Param("id"), fh.Filename, file, dryRun)
	if err != nil {
		return errors.Wrap(err, "importing registrations")
	}
	switch {
	case rep.HasErrors():
		return ctx.JSON(http.StatusBadRequest, rep)
	case dryRun:
		return ctx.JSON(http.StatusOK, rep)
	default:
		return ctx.JSON(http.StatusCreated, rep)
	}
}
