package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/pathway/core/access"
)

// requiredPermission is Read for safe methods, Write otherwise.
func requiredPermission(method string) access.Permission {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return access.Read
	default:
		return access.Write
	}
}

// requireModule rejects callers lacking the permission the request method needs on module.
func requireModule(module access.Module) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, err := getActor(ctx)
			if err != nil {
				return err
			}
			if !actor.Can(module, requiredPermission(ctx.Request().Method)) {
				return errPermissionDenied
			}
			return next(ctx)
		}
	}
}

// requirePermission rejects callers lacking perm on module, whatever the method.
func requirePermission(module access.Module, perm access.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, err := getActor(ctx)
			if err != nil {
				return err
			}
			if !actor.Can(module, perm) {
				return errPermissionDenied
			}
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if !usr.IsAdmin() {
				return errPermissionDenied
			}
			return next(ctx)
		}
	}
}
