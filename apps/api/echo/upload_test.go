package echoapi_test

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core/student"
	"github.com/trezcool/pathway/core/user"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func Test_uploadApi_profilePicture(t *testing.T) {
	app := setup(t)
	_, token := app.user(t, "counsel", user.RoleCounsellor)
	_, deskToken := app.user(t, "desk", user.RoleFrontDesk)
	_, otherToken := app.user(t, "counsel2", user.RoleCounsellor)
	path := "/api/upload/profile-picture"
	picture := formFile{field: "file", name: "me.png", content: pngHeader}

	rec := app.do(t, http.MethodPost, "/api/students", token, student.NewStudent{FirstName: "Pendo", LastName: "Ilunga", Email: "pendo@mail.io"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st := decode[student.Student](t, rec)

	t.Run("standalone", func(t *testing.T) {
		rec := app.upload(t, path, deskToken, picture, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		url := decode[map[string]string](t, rec)["url"]
		assert.True(t, strings.HasPrefix(url, "/media/profile-pictures/"), url)
		assert.True(t, strings.HasSuffix(url, ".png"), url)

		_, err := os.Stat(filepath.Join(app.env.Conf.MediaDir, strings.TrimPrefix(url, "/media/")))
		assert.NoError(t, err)
	})

	t.Run("student picture", func(t *testing.T) {
		rec := app.upload(t, path, token, picture, map[string]string{"student_id": st.ID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		url := decode[map[string]string](t, rec)["url"]

		rec = app.do(t, http.MethodGet, "/api/students/"+st.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, url, decode[student.Student](t, rec).ProfilePicture)
	})

	t.Run("front desk cannot set student pictures", func(t *testing.T) {
		rec := app.upload(t, path, deskToken, picture, map[string]string{"student_id": st.ID})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("hidden student", func(t *testing.T) {
		rec := app.upload(t, path, otherToken, picture, map[string]string{"student_id": st.ID})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("not an image", func(t *testing.T) {
		rec := app.upload(t, path, token, formFile{field: "file", name: "me.png", content: []byte("hello")}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unsupported image type")
	})

	t.Run("missing file", func(t *testing.T) {
		rec := app.upload(t, path, token, formFile{field: "picture", name: "me.png", content: pngHeader}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"file": "this field is required"}`, rec.Body.String())
	})
}
