package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/media"
)

type uploadApi struct {
	svc *media.Service
}

func registerUploadAPI(g *echo.Group, s *Server) {
	api := uploadApi{svc: s.svcs.Media}

	g.POST("/profile-picture", api.profilePicture)
}

// profilePicture stores a multipart "file"; with a student_id form value it becomes that student's picture.
func (api *uploadApi) profilePicture(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	studentID := ctx.FormValue("student_id")
	if studentID != "" && !actor.Can(access.ModuleStudents, access.Write) {
		return errPermissionDenied
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

	url, err := api.svc.UploadProfilePicture(ctx.Request().Context(), actor, file, studentID)
	if err != nil {
		return errors.Wrap(err, "uploading profile picture")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"url": url})
}
