package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core/access"
)

// resource serves the detail endpoints shared by the CRM records: retrieve, create, partial update and status PATCH.
type resource[T, New, Update any] struct {
	name         string
	get          func(ctx context.Context, actor access.Actor, id string) (T, error)
	create       func(ctx context.Context, actor access.Actor, data New) (T, error)
	update       func(ctx context.Context, actor access.Actor, id string, data Update) (T, error)
	changeStatus func(ctx context.Context, actor access.Actor, id, status string) (T, error)
}

func (r resource[T, New, Update]) register(g *echo.Group) {
	g.POST("", r.handleCreate)
	g.GET("/:id", r.handleRetrieve)
	g.PUT("/:id", r.handleUpdate)
	g.PATCH("/:id/status", r.handleStatus("status", r.changeStatus))
}

func (r resource[T, New, Update]) handleRetrieve(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	obj, err := r.get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding "+r.name)
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (r resource[T, New, Update]) handleCreate(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data New
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}
	obj, err := r.create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating "+r.name)
	}
	return ctx.JSON(http.StatusCreated, obj)
}

func (r resource[T, New, Update]) handleUpdate(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data Update
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}
	obj, err := r.update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating "+r.name)
	}
	return ctx.JSON(http.StatusOK, obj)
}

// handleStatus serves a single field PATCH, e.g. `{"status": "approved"}`.
func (r resource[T, New, Update]) handleStatus(
	field string,
	change func(ctx context.Context, actor access.Actor, id, value string) (T, error),
) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getActor(ctx)
		if err != nil {
			return err
		}
		value, err := bindStatus(ctx, field)
		if err != nil {
			return err
		}
		obj, err := change(ctx.Request().Context(), actor, ctx.Param("id"), value)
		if err != nil {
			return errors.Wrapf(err, "changing %s %s", r.name, field)
		}
		return ctx.JSON(http.StatusOK, obj)
	}
}
