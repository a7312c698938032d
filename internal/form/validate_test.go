package form

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateField(t *testing.T) {
	cases := []struct {
		name  string
		field FormField
		valid bool
		msg   string
	}{
		{"name too short", FormField{NameField, "A"}, false, "Name must be at least 2 characters."},
		{"name padded single char", FormField{NameField, "  A  "}, false, "Name must be at least 2 characters."},
		{"name two chars", FormField{NameField, "Al"}, true, ""},
		{"name counts runes", FormField{NameField, "Ñ"}, false, "Name must be at least 2 characters."},
		{"name two runes", FormField{NameField, "Ñu"}, true, ""},
		{"email valid", FormField{EmailField, "a@b.co"}, true, ""},
		// Surrounding whitespace is trimmed before matching, unlike a raw
		// browser regex test, so pasted addresses with a trailing space pass.
		{"email surrounding whitespace trimmed before match", FormField{EmailField, "  a@b.co  "}, true, ""},
		{"email nbsp in local part", FormField{EmailField, "ann\u00a0lee@example.com"}, false, "Please enter a valid email."},
		{"email em space in domain", FormField{EmailField, "ann@exa\u2003mple.com"}, false, "Please enter a valid email."},
		{"email ideographic space", FormField{EmailField, "ann@example\u3000.com"}, false, "Please enter a valid email."},
		{"email byte order mark", FormField{EmailField, "\ufeffann@example.com"}, false, "Please enter a valid email."},
		{"email unicode letters ok", FormField{EmailField, "josé@ejemplo.es"}, true, ""},
		{"email too long", FormField{EmailField, strings.Repeat("a", 250) + "@b.co"}, false, "Email must be at most 254 characters."},
		{"email no at", FormField{EmailField, "abc"}, false, "Please enter a valid email."},
		{"email no tld", FormField{EmailField, "a@b"}, false, "Please enter a valid email."},
		{"email inner space", FormField{EmailField, "a b@c.de"}, false, "Please enter a valid email."},
		{"email two ats", FormField{EmailField, "a@@b.co"}, false, "Please enter a valid email."},
		{"email empty", FormField{EmailField, ""}, false, "Please enter a valid email."},
		{"subject short", FormField{SubjectField, "Hi"}, false, "Subject must be at least 3 characters."},
		{"subject ok", FormField{SubjectField, "Hey"}, true, ""},
		{"subject at max", FormField{SubjectField, strings.Repeat("s", MaxSubjectLength)}, true, ""},
		{"subject over max", FormField{SubjectField, strings.Repeat("s", 300)}, false, "Subject must be at most 200 characters."},
		{"name over max", FormField{NameField, strings.Repeat("ñ", MaxNameLength+1)}, false, "Name must be at most 100 characters."},
		{"message nine", FormField{MessageField, "123456789"}, false, "Message must be at least 10 characters."},
		{"message ten", FormField{MessageField, "1234567890"}, true, ""},
		{"message over max", FormField{MessageField, strings.Repeat("m", MaxMessageLength+1)}, false, "Message must be at most 5000 characters."},
		{"message whitespace only", FormField{MessageField, "            "}, false, "Message must be at least 10 characters."},
		{"unknown field", FormField{"phone", ""}, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateField(tc.field)
			want := ValidationResult{Valid: tc.valid, Message: tc.msg}
			if got != want {
				t.Fatalf("ValidateField(%+v) = %+v, want %+v", tc.field, got, want)
			}
			if again := ValidateField(tc.field); again != got {
				t.Fatalf("second call = %+v, first = %+v", again, got)
			}
		})
	}
}

func TestCheckFormNoShortCircuit(t *testing.T) {
	errs := NewValidator(nil).CheckForm(Snapshot{})
	want := []FieldError{
		{NameField, "Name must be at least 2 characters."},
		{EmailField, "Please enter a valid email."},
		{SubjectField, "Subject must be at least 3 characters."},
		{MessageField, "Message must be at least 10 characters."},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Errorf("CheckForm (-want +got):\n%s", diff)
	}
	if ValidateForm(Snapshot{}) {
		t.Error("empty snapshot valid")
	}
	ok := Snapshot{Name: "Ann", Email: "ann@example.com", Subject: "Hello", Message: "Tell me more please"}
	if !ValidateForm(ok) {
		t.Error("valid snapshot rejected")
	}
}

func TestValidationErrorMatchesErrInvalid(t *testing.T) {
	var err error = &ValidationError{Fields: []FieldError{{NameField, "x"}, {EmailField, "y"}}}
	if !errors.Is(err, ErrInvalid) {
		t.Error("errors.Is(ErrInvalid) = false")
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError = false")
	}
	if IsValidationError(ErrBusy) {
		t.Error("ErrBusy treated as validation error")
	}
	if got := err.Error(); !strings.Contains(got, "name, email") {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseRulesOverlay(t *testing.T) {
	rs, err := ParseRules([]byte(`
rules:
  - field: name
    error: "El nombre es muy corto"
  - field: message
    minlength: 20
`), "test")
	if err != nil {
		t.Fatal(err)
	}

	v := NewValidator(rs)
	if got := v.ValidateField(FormField{NameField, "A"}); got.Message != "El nombre es muy corto" {
		t.Errorf("name message = %q", got.Message)
	}
	if got := v.ValidateField(FormField{NameField, "Al"}); !got.Valid {
		t.Error("name threshold changed")
	}
	if got := v.ValidateField(FormField{MessageField, "fifteen chars.."}); got.Valid {
		t.Error("message minlength override ignored")
	}
	if got := v.ValidateField(FormField{MessageField, "fifteen chars.."}); got.Message != "Message must be at least 10 characters." {
		t.Errorf("message text = %q, want default", got.Message)
	}

	if got := v.ValidateField(FormField{SubjectField, strings.Repeat("s", 201)}); got.Message != "Subject must be at most 200 characters." {
		t.Errorf("subject max message = %q", got.Message)
	}
	rs2, err := ParseRules([]byte("rules:\n  - field: subject\n    maxlength: 5\n    max_error: corto\n"), "test")
	if err != nil {
		t.Fatal(err)
	}
	if got := NewValidator(rs2).ValidateField(FormField{SubjectField, "abcdef"}); got.Message != "corto" {
		t.Errorf("maxlength override = %q", got.Message)
	}

	// Defaults are untouched.
	if got := ValidateField(FormField{NameField, "A"}); got.Message != "Name must be at least 2 characters." {
		t.Errorf("default mutated: %q", got.Message)
	}
}

func TestParseRulesErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field": "rules:\n  - field: phone\n    error: x\n",
		"duplicate":     "rules:\n  - field: name\n  - field: name\n",
		"negative":      "rules:\n  - field: name\n    minlength: -1\n",
		"negative max":  "rules:\n  - field: name\n    maxlength: -1\n",
		"min over max":  "rules:\n  - field: subject\n    minlength: 300\n",
		"bad regex":     "rules:\n  - field: email\n    pattern: \"(\"\n",
		"bad yaml":      "rules: [\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRules([]byte(raw), name); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadRulesShippedSpanish(t *testing.T) {
	rs, err := LoadRules(filepath.Join("..", "..", "conf", "rules.es.yaml"))
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	for _, n := range Fields {
		r, ok := rs.Rule(n)
		if !ok || r.Message == "" {
			t.Fatalf("rule %s missing", n)
		}
		def, _ := DefaultRules().Rule(n)
		if r.Message == def.Message {
			t.Errorf("%s message not localized", n)
		}
		if r.MaxMessage == def.MaxMessage {
			t.Errorf("%s max message not localized", n)
		}
		if r.MinLength != def.MinLength || r.MaxLength != def.MaxLength || r.Pattern != def.Pattern {
			t.Errorf("%s threshold changed", n)
		}
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}
