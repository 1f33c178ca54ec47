// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

// Package validation provides struct validation using
// go-playground/validator v10, for the request shapes internal/api
// decodes off the wire before handing them to the Ingest Coordinator or
// Aggregator.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the singleton validator instance, built once
// with validator.WithRequiredStructEnabled so zero-valued required
// fields are rejected.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError is one struct field's validation failure.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Value   interface{}
	Message string
}

func (e FieldError) Error() string { return e.Message }

// RequestValidationError collects every FieldError from one failed
// validation pass.
type RequestValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (ve *RequestValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		messages = append(messages, e.Message)
	}
	return strings.Join(messages, "; ")
}

// ValidateStruct validates s with the singleton validator. It returns
// nil when validation passes, or a *RequestValidationError describing
// every failed field.
func ValidateStruct(s interface{}) *RequestValidationError {
	v := GetValidator()

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{Errors: []FieldError{{
			Field:   "unknown",
			Tag:     "unknown",
			Message: err.Error(),
		}}}
	}

	fieldErrors := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fieldErrors[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag()),
		}
	}

	return &RequestValidationError{Errors: fieldErrors}
}
