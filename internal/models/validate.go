package models

import (
	"strings"
	"unicode/utf8"
)

// Length limits for task fields.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MinPasswordLength    = 8
)

// ValidationError is a client-side input error caught before any request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// NewTaskCreate trims the inputs, validates them and builds the request.
// An empty description is omitted.
func NewTaskCreate(title, description string) (TaskCreate, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	if err := validateTitle(title); err != nil {
		return TaskCreate{}, err
	}
	if err := validateDescription(description); err != nil {
		return TaskCreate{}, err
	}

	tc := TaskCreate{Title: title}
	if description != "" {
		tc.Description = StringPtr(description)
	}
	return tc, nil
}

// Validate checks a TaskCreate built by hand.
func (tc TaskCreate) Validate() error {
	if err := validateTitle(strings.TrimSpace(tc.Title)); err != nil {
		return err
	}
	if tc.Description != nil {
		return validateDescription(*tc.Description)
	}
	return nil
}

// Validate checks only the fields that are set.
func (tu TaskUpdate) Validate() error {
	if tu.Title != nil {
		if err := validateTitle(strings.TrimSpace(*tu.Title)); err != nil {
			return err
		}
	}
	if tu.Description != nil {
		return validateDescription(*tu.Description)
	}
	return nil
}

// Validate checks the login form.
func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return invalid("email", "Email is required")
	}
	if r.Password == "" {
		return invalid("password", "Password is required")
	}
	return nil
}

// Validate checks the registration form.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalid("name", "Name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return invalid("email", "Email is required")
	}
	if r.Password == "" {
		return invalid("password", "Password is required")
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return invalid("password", "Password must be at least 8 characters")
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return invalid("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return invalid("title", "Title must be 200 characters or less")
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return invalid("description", "Description must be 2000 characters or less")
	}
	return nil
}
