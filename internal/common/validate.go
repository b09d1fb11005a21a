package common

import (
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs validator tags over a request payload and maps
// the first failure to a field-annotated 400 AppError.
func ValidateStruct(v any) *AppError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return &AppError{
			Code:       "BAD_REQUEST",
			Message:    "invalid request payload",
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
			Details: map[string]any{
				"field": strings.ToLower(first.Field()),
				"rule":  first.Tag(),
			},
		}
	}
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    "invalid request payload",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}
