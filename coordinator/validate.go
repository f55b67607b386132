// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"net/mail"
	"strings"

	"github.com/danielhkuo/cla-access/models"
)

// Field names used in validation errors
const (
	FieldUserEmail   = "user_email"
	FieldManagerMode = "manager_mode"
	FieldManager     = "manager"
)

const (
	msgEmailRequired  = "*Email Authorize Field is required"
	msgEmailInvalid   = "*Email Authorize Field is invalid"
	msgModeRequired   = "*Selecting an Option for Entering a CLA Manager is required"
	msgManagerUnknown = "*Selected CLA Manager is not on the signature access list"
)

// ValidationError is returned by Submit when the form is not submittable.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "invalid request form: " + strings.Join(msgs, "; ")
}

// ValidEmail reports whether s is a bare addr-spec such as "a@example.com".
// Display-name forms ("Alice <a@example.com>") are rejected.
func ValidEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s, "@")
}

// validateForm returns one error per violated rule.
func validateForm(form models.RequestForm, managers []models.Manager) []models.FieldError {
	var errs []models.FieldError
	switch {
	case form.UserEmail == "":
		errs = append(errs, models.FieldError{Field: FieldUserEmail, Message: msgEmailRequired})
	case !ValidEmail(form.UserEmail):
		errs = append(errs, models.FieldError{Field: FieldUserEmail, Message: msgEmailInvalid})
	}
	if !form.ManagerMode.Valid() {
		errs = append(errs, models.FieldError{Field: FieldManagerMode, Message: msgModeRequired})
	}
	if form.ManagerMode == models.ManagerModeSelectExisting && form.ManagerID != "" {
		if _, ok := findManager(managers, form.ManagerID); !ok {
			errs = append(errs, models.FieldError{Field: FieldManager, Message: msgManagerUnknown})
		}
	}
	return errs
}
