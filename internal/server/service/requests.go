package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RememberRequest creates a node.
type RememberRequest struct {
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags,omitempty"`
	Links   []string `json:"links,omitempty"`
	Source  string   `json:"source,omitempty"`
}

// RecallRequest searches nodes by query and/or tags. Limit defaults to 10.
type RecallRequest struct {
	Query string   `json:"query,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	Limit *int     `json:"limit,omitempty" validate:"omitempty,gte=0"`
}

// ConnectionsRequest traverses links from a node. Depth defaults to 1.
type ConnectionsRequest struct {
	NodeID string `json:"node_id" validate:"required"`
	Depth  *int   `json:"depth,omitempty" validate:"omitempty,gte=0"`
}

// ForgetRequest deletes a node.
type ForgetRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// UpdateRequest replaces the given fields of a node.
type UpdateRequest struct {
	NodeID  string    `json:"node_id" validate:"required"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
	Links   *[]string `json:"links,omitempty"`
}

// ErrQueryOrTagsRequired rejects a recall with neither query nor tags.
var ErrQueryOrTagsRequired = &ValidationError{Message: "At least one of query or tags is required"}

// ValidationError reports a malformed request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateRequest validates a struct based on its validation tags
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Message: err.Error()}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return &ValidationError{Message: strings.Join(msgs, "; ")}
}

// formatFieldError formats a single field validation error
func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
