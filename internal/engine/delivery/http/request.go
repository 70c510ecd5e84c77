package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"apexpulse/internal/engine/service"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// bindRequest binds and validates req.
func bindRequest(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.New("invalid request payload")
	}
	return validateRequest(req)
}

// validateRequest fills struct defaults and validates req.
func validateRequest(req interface{}) error {
	if err := defaults.Set(req); err != nil {
		return err
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid field %s: %s", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrCredentialsMissing):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrOwnerNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// splitSymbols accepts both repeated and comma-separated symbols parameters.
func splitSymbols(values []string) []string {
	var out []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, strings.ToUpper(s))
			}
		}
	}
	return out
}
