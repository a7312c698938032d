// internal/form/rules.go
//
// Forms subsystem: per-field rules.
//
// Context
//   Each contact field has one rule: trimmed length bounds, a structural
//   pattern, or both.  The upper bounds match the storage column widths.  DefaultRules carries the shipped thresholds and
//   English messages.  LoadRules overlays a YAML file on those defaults so a
//   site can localize messages (or tighten thresholds) without a rebuild.
//
// Workflow
//   •  Rules.Check evaluates one FormField and returns a ValidationResult.
//   •  LoadRules parses YAML, validates every entry, and returns a fresh
//      table.  It NEVER mutates the defaults.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// emailPattern is a structural check only: local@domain.tld with no spaces
// or extra @ signs in any part.  It is not RFC 5322 validation.  RE2's \s is
// ASCII-only, so Unicode separators (NBSP, ideographic space) and the BOM are
// excluded explicitly.
const emailPattern = `^[^\s\p{Z}\x{FEFF}@]+@[^\s\p{Z}\x{FEFF}@]+\.[^\s\p{Z}\x{FEFF}@]+$`

// Upper bounds in runes.
const (
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MaxSubjectLength = 200
	MaxMessageLength = 5000
)

// Rule describes the constraint attached to one field.
type Rule struct {
	Field      FieldName `yaml:"field"`     // Required.
	MinLength  int       `yaml:"minlength"` // Trimmed rune count, 0 means unset.
	MaxLength  int       `yaml:"maxlength"` // Trimmed rune count, 0 means unset.
	Pattern    string    `yaml:"pattern"`   // Regex matched against the trimmed value.
	Message    string    `yaml:"error"`     // User-facing message on failure.
	MaxMessage string    `yaml:"max_error"` // Message when MaxLength is exceeded.

	re *regexp.Regexp
}

// Rules maps each field to its rule.  The zero value is not usable; build one
// with DefaultRules or LoadRules.
type Rules struct {
	byField map[FieldName]Rule
}

// rulesFile mirrors the YAML document accepted by LoadRules.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules returns the shipped rule table.
func DefaultRules() *Rules {
	return &Rules{byField: map[FieldName]Rule{
		NameField: {
			Field:      NameField,
			MinLength:  2,
			MaxLength:  MaxNameLength,
			Message:    "Name must be at least 2 characters.",
			MaxMessage: "Name must be at most 100 characters.",
		},
		EmailField: {
			Field:      EmailField,
			MaxLength:  MaxEmailLength,
			Pattern:    emailPattern,
			Message:    "Please enter a valid email.",
			MaxMessage: "Email must be at most 254 characters.",
			re:         regexp.MustCompile(emailPattern),
		},
		SubjectField: {
			Field:      SubjectField,
			MinLength:  3,
			MaxLength:  MaxSubjectLength,
			Message:    "Subject must be at least 3 characters.",
			MaxMessage: "Subject must be at most 200 characters.",
		},
		MessageField: {
			Field:      MessageField,
			MinLength:  10,
			MaxLength:  MaxMessageLength,
			Message:    "Message must be at least 10 characters.",
			MaxMessage: "Message must be at most 5000 characters.",
		},
	}}
}

// LoadRules reads a YAML rules file and overlays it on DefaultRules.  Only the
// keys present in an entry replace the default; e.g. an entry carrying just
// "field" and "error" swaps the message and keeps the threshold.
//
//	rules:
//	  - field: name
//	    error: "El nombre debe tener al menos 2 caracteres"
func LoadRules(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	return ParseRules(raw, path)
}

// ParseRules is LoadRules without the file read.  name is only used in error
// messages.
func ParseRules(raw []byte, name string) (*Rules, error) {
	var rf rulesFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", name, err)
	}

	out := DefaultRules()
	seen := make(map[FieldName]struct{}, len(rf.Rules))
	for _, r := range rf.Rules {
		if !r.Field.Known() {
			return nil, fmt.Errorf("rules %s: unknown field %q", name, r.Field)
		}
		if _, dup := seen[r.Field]; dup {
			return nil, fmt.Errorf("rules %s: duplicate rule for field %q", name, r.Field)
		}
		seen[r.Field] = struct{}{}

		if r.MinLength < 0 || r.MaxLength < 0 {
			return nil, fmt.Errorf("rules %s: field %q lengths cannot be negative", name, r.Field)
		}

		merged := out.byField[r.Field]
		if r.MinLength > 0 {
			merged.MinLength = r.MinLength
		}
		if r.MaxLength > 0 {
			merged.MaxLength = r.MaxLength
		}
		if merged.MaxLength > 0 && merged.MinLength > merged.MaxLength {
			return nil, fmt.Errorf("rules %s: field %q minlength %d exceeds maxlength %d",
				name, r.Field, merged.MinLength, merged.MaxLength)
		}
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rules %s: field %q invalid regex pattern: %v", name, r.Field, err)
			}
			merged.Pattern, merged.re = r.Pattern, re
		}
		if r.Message != "" {
			merged.Message = r.Message
		}
		if r.MaxMessage != "" {
			merged.MaxMessage = r.MaxMessage
		}
		out.byField[r.Field] = merged
	}
	return out, nil
}

// Rule returns the rule for field n.  ok is false for unknown fields.
func (rs *Rules) Rule(n FieldName) (Rule, bool) {
	r, ok := rs.byField[n]
	return r, ok
}

// Check evaluates f against its rule.  Fields without a rule always pass.
func (rs *Rules) Check(f FormField) ValidationResult {
	r, ok := rs.byField[f.Name]
	if !ok {
		return ValidationResult{Valid: true}
	}

	// Every rule sees the trimmed value, the email pattern included, so
	// " a@b.co" passes even though a raw regex test would reject it.
	val := strings.TrimSpace(f.Value)
	n := utf8.RuneCountInString(val)
	if r.MinLength > 0 && n < r.MinLength {
		return ValidationResult{Message: r.Message}
	}
	if r.MaxLength > 0 && n > r.MaxLength {
		msg := r.MaxMessage
		if msg == "" {
			msg = fmt.Sprintf("Must be at most %d characters.", r.MaxLength)
		}
		return ValidationResult{Message: msg}
	}
	if r.re != nil && !r.re.MatchString(val) {
		return ValidationResult{Message: r.Message}
	}
	return ValidationResult{Valid: true}
}
