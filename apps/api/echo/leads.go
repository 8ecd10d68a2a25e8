package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/lead"
	"github.com/trezcool/pathway/core/student"
)

type leadApi struct {
	svc *lead.Service
}

func registerLeadAPI(g *echo.Group, s *Server) {
	api := leadApi{svc: s.svcs.Leads}

	g.GET("", api.query)
	g.GET("/check-duplicate", api.checkDuplicate)
	resource[lead.Lead, lead.NewLead, lead.UpdateLead]{
		name:         "lead",
		get:          api.svc.Get,
		create:       api.svc.Create,
		update:       api.svc.Update,
		changeStatus: api.svc.ChangeStatus,
	}.register(g)
	g.POST("/:id/convert", api.convert, requirePermission(access.ModuleStudents, access.Write))
}

// bindStatus reads `{"<field>": "<value>"}`, the body of the single field PATCH endpoints.
func bindStatus(ctx echo.Context, field string) (string, error) {
	var data map[string]string
	if err := bindJSON(ctx, &data); err != nil {
		return "", err
	}
	value := core.CleanString(data[field])
	if value == "" {
		return "", core.NewFieldError(field, "this field is required")
	}
	return value, nil
}

func (api *leadApi) query(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	q := newQueryParams(ctx)
	filter := lead.QueryFilter{
		Search:      q.String("search"),
		Statuses:    q.Strings("status"),
		Source:      q.String("source"),
		AssignedTo:  q.String("assigned_to"),
		Converted:   q.Bool("converted"),
		CreatedFrom: q.Time("created_from"),
		CreatedTo:   q.Time("created_to", true),
	}
	page := q.Page()
	if err = q.Err(); err != nil {
		return err
	}

	leads, err := api.svc.Query(ctx.Request().Context(), actor, filter, q.Ordering(), page)
	if err != nil {
		return errors.Wrap(err, "querying leads")
	}
	return ctx.JSON(http.StatusOK, listOf(leads))
}

func (api *leadApi) checkDuplicate(ctx echo.Context) error {
	q := newQueryParams(ctx)
	dups, err := api.svc.Duplicates(ctx.Request().Context(), q.String("email"), q.String("phone"))
	if err != nil {
		return errors.Wrap(err, "finding duplicate leads")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"duplicate": dups.Any(),
		"email":     listOf(dups.Email),
		"phone":     listOf(dups.Phone),
	})
}

type ConvertLeadResponse struct {
	Lead    lead.Lead       `json:"lead"`
	Student student.Student `json:"student"`
}

func (api *leadApi) convert(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data lead.ConvertLead
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}
	l, s, err := api.svc.Convert(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "converting lead")
	}
	return ctx.JSON(http.StatusCreated, ConvertLeadResponse{Lead: l, Student: s})
}
