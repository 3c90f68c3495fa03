package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestRegistrationValidate(t *testing.T) {
	valid := Registration{Email: "ann@example.com", Username: "ann_lee", Password: "Passw0rd"}
	tests := []struct {
		name  string
		edit  func(*Registration)
		field string
	}{
		{"valid", func(*Registration) {}, ""},
		{"bad email", func(r *Registration) { r.Email = "not-an-email" }, "email"},
		{"display name email", func(r *Registration) { r.Email = "Ann <ann@example.com>" }, "email"},
		{"short username", func(r *Registration) { r.Username = "an" }, "username"},
		{"long username", func(r *Registration) { r.Username = "abcdefghijklmnopqrstu" }, "username"},
		{"username punctuation", func(r *Registration) { r.Username = "ann-lee" }, "username"},
		{"reserved username", func(r *Registration) { r.Username = "Admin" }, "username"},
		{"short password", func(r *Registration) { r.Password = "Pa0" }, "password"},
		{"no upper", func(r *Registration) { r.Password = "passw0rd" }, "password"},
		{"no lower", func(r *Registration) { r.Password = "PASSW0RD" }, "password"},
		{"no digit", func(r *Registration) { r.Password = "Password" }, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := valid
			tt.edit(&reg)
			err := reg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want a ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field: got %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestConfirmPassword(t *testing.T) {
	tests := []struct {
		password, confirmation string
		ok                     bool
	}{
		{"Passw0rd", "Passw0rd", true},
		{"Passw0rd", "Passw0rd ", false},
		{"Passw0rd", "passw0rd", false},
		{"Passw0rd", "", false},
	}
	for _, tt := range tests {
		err := ConfirmPassword(tt.password, tt.confirmation)
		if tt.ok {
			if err != nil {
				t.Errorf("ConfirmPassword(%q, %q): unexpected error %v", tt.password, tt.confirmation, err)
			}
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "confirm_password" {
			t.Errorf("ConfirmPassword(%q, %q): got %v", tt.password, tt.confirmation, err)
		}
	}
}

func TestIsValidationError(t *testing.T) {
	verr := &ValidationError{Field: "email", Message: "bad"}
	if !IsValidationError(verr) {
		t.Error("bare ValidationError not recognised")
	}
	if !IsValidationError(fmt.Errorf("registering: %w", verr)) {
		t.Error("wrapped ValidationError not recognised")
	}
	if IsValidationError(errors.New("boom")) || IsValidationError(nil) {
		t.Error("non-validation error recognised")
	}
}
