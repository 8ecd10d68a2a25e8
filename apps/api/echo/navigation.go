package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/report"
)

type navigationApi struct {
	reports *report.Service
}

func registerNavigationAPI(g *echo.Group, s *Server) {
	api := navigationApi{reports: s.svcs.Reports}

	g.GET("/navigation", api.navigation)
	g.GET("/dashboard", api.dashboard, requirePermission(access.ModuleDashboard, access.Read))
}

func (api *navigationApi) navigation(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, access.NavigationFor(actor))
}

func (api *navigationApi) dashboard(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	dash, err := api.reports.Dashboard(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
