// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package validation

import "testing"

type testPayload struct {
	Name  string `validate:"required"`
	Count int    `validate:"required"`
}

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 != v2 {
		t.Error("GetValidator should return the same instance across calls")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	err := ValidateStruct(testPayload{Name: "a", Count: 1})
	if err != nil {
		t.Errorf("expected nil for a valid struct, got %v", err)
	}
}

func TestValidateStruct_MissingRequired(t *testing.T) {
	err := ValidateStruct(testPayload{Name: "", Count: 0})
	if err == nil {
		t.Fatal("expected a validation error for missing required fields")
	}
	if len(err.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %d: %v", len(err.Errors), err.Errors)
	}
}

func TestRequestValidationError_Error(t *testing.T) {
	ve := &RequestValidationError{Errors: []FieldError{
		{Field: "Name", Tag: "required", Message: "Name failed validation: required"},
	}}
	if ve.Error() == "" {
		t.Error("Error() should not be empty when Errors is non-empty")
	}

	empty := &RequestValidationError{}
	if empty.Error() != "validation failed" {
		t.Errorf("expected default message for empty Errors, got %q", empty.Error())
	}
}
