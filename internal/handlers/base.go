package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// bindAndValidate decodes the request body into req and runs its validate tags
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return validate.Struct(req)
}

// requireParam returns a path parameter or a 400 error
func requireParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "missing "+name)
	}
	return value, nil
}

// queryInt parses an optional integer query parameter
func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be an integer", name)
	}
	return value, nil
}

// inject resolves a collaborator from the request's dependency container
func inject[T any](c echo.Context, logger ectologger.Logger) (context.Context, T, error) {
	ctx, dep, err := ectoinject.GetContext[T](c.Request().Context())
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Dependency unavailable")
		return ctx, dep, httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	return ctx, dep, nil
}
