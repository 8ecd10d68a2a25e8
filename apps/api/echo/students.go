package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core/student"
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, s *Server) {
	api := studentApi{svc: s.svcs.Students}

	g.GET("", api.query)
	resource[student.Student, student.NewStudent, student.UpdateStudent]{
		name:         "student",
		get:          api.svc.Get,
		create:       api.svc.Create,
		update:       api.svc.Update,
		changeStatus: api.svc.ChangeStatus,
	}.register(g)
}

func (api *studentApi) query(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	q := newQueryParams(ctx)
	filter := student.QueryFilter{
		Search:      q.String("search"),
		Statuses:    q.Strings("status"),
		AssignedTo:  q.String("assigned_to"),
		LeadID:      q.String("lead_id"),
		CreatedFrom: q.Time("created_from"),
		CreatedTo:   q.Time("created_to", true),
	}
	page := q.Page()
	if err = q.Err(); err != nil {
		return err
	}

	students, err := api.svc.Query(ctx.Request().Context(), actor, filter, q.Ordering(), page)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, listOf(students))
}
