// internal/form/field.go
//
// Forms subsystem: contact form data model.
//
// Context
//   The contact form has exactly four inputs.  A FormField is the live value
//   of one input, a Snapshot is the immutable copy captured at submit time,
//   and Validity tracks what the last validation pass concluded about a field.
//   Validity is recomputed from scratch on every pass; nothing incremental is
//   carried between passes.
//
//------------------------------------------------------------------------------

package form

import (
	"net/url"
	"strings"
)

// FieldName identifies one contact form input.
type FieldName string

const (
	NameField    FieldName = "name"
	EmailField   FieldName = "email"
	SubjectField FieldName = "subject"
	MessageField FieldName = "message"
)

// Fields lists every input in render order.
var Fields = []FieldName{NameField, EmailField, SubjectField, MessageField}

// Known reports whether n is one of the four contact form inputs.
func (n FieldName) Known() bool {
	for _, f := range Fields {
		if f == n {
			return true
		}
	}
	return false
}

// Validity is the state of a field after its most recent validation pass.
type Validity int

const (
	Untouched Validity = iota
	Valid
	Invalid
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "untouched"
	}
}

// FormField is the current value of one input.
type FormField struct {
	Name  FieldName
	Value string
}

// Snapshot is the set of field values captured when the user submits.  It is
// passed by value and never mutated after capture.
type Snapshot struct {
	Name    string `json:"name"    db:"name"`
	Email   string `json:"email"   db:"email"`
	Subject string `json:"subject" db:"subject"`
	Message string `json:"message" db:"message"`
}

// Value returns the snapshot's value for field n, or "" for unknown names.
func (s Snapshot) Value(n FieldName) string {
	switch n {
	case NameField:
		return s.Name
	case EmailField:
		return s.Email
	case SubjectField:
		return s.Subject
	case MessageField:
		return s.Message
	default:
		return ""
	}
}

// Field returns field n of the snapshot as a FormField.
func (s Snapshot) Field(n FieldName) FormField { return FormField{Name: n, Value: s.Value(n)} }

// SnapshotFromValues captures the four fields from posted form data.  Missing
// keys become empty strings.
func SnapshotFromValues(v url.Values) Snapshot {
	return Snapshot{
		Name:    v.Get(string(NameField)),
		Email:   v.Get(string(EmailField)),
		Subject: v.Get(string(SubjectField)),
		Message: v.Get(string(MessageField)),
	}
}

// Values converts the snapshot back into url.Values, e.g. for prefill.
func (s Snapshot) Values() url.Values {
	out := make(url.Values, len(Fields))
	for _, f := range Fields {
		out.Set(string(f), s.Value(f))
	}
	return out
}

// Empty reports whether every field is blank after trimming.
func (s Snapshot) Empty() bool {
	for _, f := range Fields {
		if strings.TrimSpace(s.Value(f)) != "" {
			return false
		}
	}
	return true
}
