package controllers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validation constants
const (
	MaxFormFields    = 200
	MaxFieldValueLen = 4096
)

// RequestValidator handles input validation for the dispatch endpoint
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(),
	}
}

// ValidateDispatch rejects malformed click payloads before dispatch. Action
// type is deliberately not restricted here: an unknown type is a valid
// payload that dispatches to a no-op.
func (rv *RequestValidator) ValidateDispatch(payload *DispatchPayload) error {
	if err := rv.validate.Struct(payload); err != nil {
		return fmt.Errorf("invalid dispatch payload: %w", err)
	}
	if len(payload.Fields) > MaxFormFields {
		return fmt.Errorf("too many form fields: %d (max %d)", len(payload.Fields), MaxFormFields)
	}
	for _, f := range payload.Fields {
		if len(f.Value) > MaxFieldValueLen {
			return fmt.Errorf("form field %q exceeds %d bytes", f.Name, MaxFieldValueLen)
		}
	}
	return nil
}
