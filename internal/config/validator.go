// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` calls `validateStruct` right after it unmarshals and defaults the
// merged Koanf tree.  Any tag mismatch aborts startup, so the binary never
// runs with partial or malformed configuration.
//
// Tag rules cover single fields.  The struct-level rule registered below
// covers the cross-field case: each enabled backend must have the settings
// it needs.

package config

import (
	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(contactRules, Contact{})
	return val
}

// contactRules rejects enabled backends that lack their settings.  The
// Database check happens in validateStruct because it spans sections.
func contactRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(Contact)
	if c.Enabled("webhook") && c.Webhook.URL == "" {
		sl.ReportError(c.Webhook.URL, "Webhook.URL", "URL", "required_for_webhook", "")
	}
	if c.Enabled("email") && len(c.Mail.To) == 0 {
		sl.ReportError(c.Mail.To, "Mail.To", "To", "required_for_email", "")
	}
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	if c.Contact.Enabled("store") && c.Database.DSN == "" {
		return errStoreWithoutDSN
	}
	return nil
}
