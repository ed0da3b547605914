package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a caller error detected before any work starts.
type ValidationError struct {
	Message string
	Fields  []string
	Cause   error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid request: %s: %s", e.Message, strings.Join(e.Fields, "; "))
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func newValidationError(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Message: err.Error(), Cause: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s fails %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			fields = append(fields, fmt.Sprintf("%s fails %s", fe.Namespace(), fe.Tag()))
		}
	}
	return &ValidationError{Message: "field validation failed", Fields: fields, Cause: err}
}
