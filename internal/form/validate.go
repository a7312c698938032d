// internal/form/validate.go
//
// Forms subsystem: field-level and form-level validation.
//
// Context
//   Two entry points share one rule table.  ValidateField checks a single
//   input in isolation, the way blur and input events need it.  CheckForm
//   checks every input of a Snapshot and never short-circuits, so each
//   failing field gets its own message even when an earlier one also failed.
//
//   Both are pure.  The Controller layers the render-surface side effects on
//   top (see controller.go).  Validation failures are values, never panics,
//   and never escape the form boundary as transport errors.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"strings"
)

// -----------------------------------------------------------------------------
// Result and error types
// -----------------------------------------------------------------------------

// ValidationResult is the outcome of checking one field.  Message is empty
// when Valid is true.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// FieldError describes a single validation failure so the surface can render
// a field-level annotation.
type FieldError struct {
	Name    FieldName
	Message string
}

// ValidationError wraps []FieldError and satisfies the error interface.  It
// lets callers tell user input errors apart from transport failures.
type ValidationError struct{ Fields []FieldError }

func (ve *ValidationError) Error() string {
	names := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		names = append(names, string(f.Name))
	}
	return "form validation failed: " + strings.Join(names, ", ")
}

// Is makes errors.Is(err, ErrInvalid) true for every ValidationError.
func (ve *ValidationError) Is(target error) bool { return target == ErrInvalid }

// IsValidationError reports whether err came from a failed form validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// -----------------------------------------------------------------------------
// Validator
// -----------------------------------------------------------------------------

// Validator checks contact form input against a rule table.  It is safe for
// concurrent use; the rule table is read-only after construction.
type Validator struct {
	rules *Rules
}

// NewValidator returns a Validator over rs.  A nil rs means DefaultRules.
func NewValidator(rs *Rules) *Validator {
	if rs == nil {
		rs = DefaultRules()
	}
	return &Validator{rules: rs}
}

// ValidateField checks one field against its own rule.
func (v *Validator) ValidateField(f FormField) ValidationResult {
	return v.rules.Check(f)
}

// CheckForm checks every field of s and returns one FieldError per failing
// field, in render order.  A nil slice means the snapshot is valid.
func (v *Validator) CheckForm(s Snapshot) []FieldError {
	var errs []FieldError
	for _, name := range Fields {
		if res := v.rules.Check(s.Field(name)); !res.Valid {
			errs = append(errs, FieldError{Name: name, Message: res.Message})
		}
	}
	return errs
}

// ValidateForm reports whether all four field rules pass against s.
func (v *Validator) ValidateForm(s Snapshot) bool { return len(v.CheckForm(s)) == 0 }

// defaultValidator backs the package-level helpers.
var defaultValidator = NewValidator(nil)

// ValidateField checks f against the default rules.
func ValidateField(f FormField) ValidationResult { return defaultValidator.ValidateField(f) }

// ValidateForm checks s against the default rules.
func ValidateForm(s Snapshot) bool { return defaultValidator.ValidateForm(s) }
