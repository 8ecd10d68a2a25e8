package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/dropdown"
)

type dropdownApi struct {
	svc *dropdown.Service
}

// registerDropdownAPI: options are readable by any authenticated user since every form renders them;
// editing them is a settings concern.
func registerDropdownAPI(g *echo.Group, s *Server) {
	api := dropdownApi{svc: s.svcs.Dropdowns}
	settings := requirePermission(access.ModuleSettings, access.Write)

	g.GET("", api.modules)
	g.GET("/module/:name", api.module)
	g.POST("", api.create, settings)
	g.PUT("/:id", api.update, settings)
}

func (api *dropdownApi) modules(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"modules": dropdown.Modules})
}

func (api *dropdownApi) module(ctx echo.Context) error {
	opts, err := api.svc.Module(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "listing dropdown options")
	}
	return ctx.JSON(http.StatusOK, opts)
}

func (api *dropdownApi) create(ctx echo.Context) error {
	var data dropdown.NewOption
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	opt, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating dropdown option")
	}
	return ctx.JSON(http.StatusCreated, opt)
}

func (api *dropdownApi) update(ctx echo.Context) error {
	var data dropdown.UpdateOption
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	opt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating dropdown option")
	}
	return ctx.JSON(http.StatusOK, opt)
}
