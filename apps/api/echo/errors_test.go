package echoapi

import (
	"net/http"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
)

func Test_errorStatus(t *testing.T) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	vErr := validate.Struct(struct {
		FirstName string `json:"first_name" validate:"required"`
	}{})
	require.Error(t, vErr)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody interface{}
		wantOK   bool
	}{
		{name: "http error", err: errPermissionDenied, wantCode: http.StatusForbidden, wantBody: "permission denied", wantOK: true},
		{name: "missing jwt", err: middleware.ErrJWTMissing, wantCode: http.StatusUnauthorized, wantBody: middleware.ErrJWTMissing.Message, wantOK: true},
		{
			name:     "wrapped http error",
			err:      &echo.HTTPError{Code: http.StatusBadRequest, Message: "bad request", Internal: errNotFound},
			wantCode: http.StatusNotFound, wantBody: "not found", wantOK: true,
		},
		{
			name:     "validator errors",
			err:      errors.Wrap(vErr, "validating"),
			wantCode: http.StatusBadRequest, wantBody: map[string]string{"first_name": "this field is required"}, wantOK: true,
		},
		{
			name:     "field errors",
			err:      core.NewFieldError("status", "unknown status"),
			wantCode: http.StatusBadRequest, wantBody: map[string]string{"status": "unknown status"}, wantOK: true,
		},
		{
			name:     "validation error without fields",
			err:      core.NewValidationError(errors.New("this lead has already been converted")),
			wantCode: http.StatusBadRequest, wantBody: "this lead has already been converted", wantOK: true,
		},
		{
			name:     "not found",
			err:      errors.Wrap(core.NewNotFoundError("lead not found"), "finding lead"),
			wantCode: http.StatusNotFound, wantBody: "lead not found", wantOK: true,
		},
		{
			name:     "unexpected",
			err:      errors.New("connection refused"),
			wantCode: http.StatusInternalServerError, wantBody: "Internal Server Error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body, ok := errorStatus(tt.err, translator)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
