package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
)

var entityModules = map[activity.EntityType]access.Module{
	activity.EntityLead:        access.ModuleLeads,
	activity.EntityStudent:     access.ModuleStudents,
	activity.EntityApplication: access.ModuleApplications,
	activity.EntityAdmission:   access.ModuleAdmissions,
	activity.EntityEvent:       access.ModuleEvents,
}

type activityApi struct {
	svc *activity.Service
}

func registerActivityAPI(g *echo.Group, s *Server) {
	api := activityApi{svc: s.svcs.Activities}

	g.GET("/:type/:id", api.list)
	g.POST("/:type/:id", api.comment)
}

// entity resolves the `:type` param and checks the actor's permission on the module of that entity type.
func (api *activityApi) entity(ctx echo.Context, perm access.Permission) (access.Actor, activity.EntityType, error) {
	actor, err := getActor(ctx)
	if err != nil {
		return access.Actor{}, "", err
	}
	et, ok := activity.ParseEntityType(ctx.Param("type"))
	if !ok {
		return access.Actor{}, "", echo.NewHTTPError(http.StatusBadRequest, "unknown entity type")
	}
	if !actor.Can(entityModules[et], perm) {
		return access.Actor{}, "", errPermissionDenied
	}
	return actor, et, nil
}

func (api *activityApi) list(ctx echo.Context) error {
	actor, et, err := api.entity(ctx, access.Read)
	if err != nil {
		return err
	}
	q := newQueryParams(ctx)
	page := q.Page()
	if err = q.Err(); err != nil {
		return err
	}

	acts, err := api.svc.List(ctx.Request().Context(), actor, et, ctx.Param("id"), page)
	if err != nil {
		return errors.Wrap(err, "listing activities")
	}
	return ctx.JSON(http.StatusOK, listOf(acts))
}

// comment is idempotent on client_ref: a replay answers 200 with the original activity.
func (api *activityApi) comment(ctx echo.Context) error {
	actor, et, err := api.entity(ctx, access.Write)
	if err != nil {
		return err
	}
	var data activity.NewComment
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	act, created, err := api.svc.Comment(ctx.Request().Context(), actor, et, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "commenting")
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return ctx.JSON(status, act)
}
