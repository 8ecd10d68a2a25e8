package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/user"
)

var (
	errNotAuthenticated     = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errPermissionDenied     = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errNotFound             = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// fieldErrors maps each invalid field to its first translated message.
func fieldErrors(vErrs validator.ValidationErrors, translator ut.Translator) map[string]string {
	fields := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fe.Translate(translator)
		}
	}
	return fields
}

// errorStatus maps a domain error to its status & body; ok is false for unexpected (500) errors.
func errorStatus(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if cause == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, cause.Message, true
		}
		if inner, isHTTP := cause.Internal.(*echo.HTTPError); isHTTP {
			cause = inner
		}
		return cause.Code, cause.Message, true
	case validator.ValidationErrors:
		return http.StatusBadRequest, fieldErrors(cause, translator), true
	case *core.ValidationError:
		if len(cause.Fields) == 0 {
			return http.StatusBadRequest, cause.Error(), true
		}
		fields := make(map[string]string, len(cause.Fields))
		for _, fe := range cause.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, fields, true
	case *core.NotFoundError:
		return http.StatusNotFound, cause.Error(), true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// newAppHTTPErrorHandler renders errors as JSON: {"field": "message"} for validation errors, {"error": "message"} otherwise.
// Unexpected errors are reported with the caller's identity; a core shutdown error also triggers signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := errorStatus(err, translator)
		if !ok {
			var caller user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				caller = user.User{ID: claims.Subject, Username: claims.Username, Email: claims.Email}
			}
			req := ctx.Request()
			logger.Error("unhandled API error", errors.WithStack(err), caller, map[string]interface{}{
				"method": req.Method,
				"path":   req.URL.Path,
			})
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				body = err.Error()
			}
		}
		if msg, isStr := body.(string); isStr {
			body = echo.Map{"error": msg}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
