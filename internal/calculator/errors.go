package calculator

import (
	"errors"
	"strings"
)

// ErrInvalidParameters is matched by every validation failure
var ErrInvalidParameters = errors.New("invalid deposit parameters")

// FieldError describes why a single input field was rejected
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every rejected field of a submission
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return ErrInvalidParameters.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrInvalidParameters) match
func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidParameters
}

// Field returns the error for the given field, if any
func (v ValidationErrors) Field(name string) (FieldError, bool) {
	for _, fe := range v {
		if fe.Field == name {
			return fe, true
		}
	}
	return FieldError{}, false
}
