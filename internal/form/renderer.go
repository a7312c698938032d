// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   Converts a SurfaceState into plain, accessible HTML.  The markup carries
//   the same hooks the browser script expects: each input sits in a
//   <div class="form-group">, invalid inputs get class "error" and one
//   <div class="error-message"> sibling, valid inputs get class "success".
//   Notifications render as <div class="success-notification"> (or
//   "error-notification") with data attributes the client uses to run the
//   exit transition.
//
// Workflow
//   •  RenderForm writes the wrapper, each field via writeField, the hidden
//      CSRF and render timestamp inputs, and the submit control.
//   •  RenderNotifications writes the toast stack separately so a page can
//      place it outside the form.
//
// Output is deliberately framework-free so themes style via class hooks.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"time"
)

// fieldDef is the static presentation of one input.
type fieldDef struct {
	Name        FieldName
	Label       string
	Type        string // text, email, textarea
	Placeholder string
}

var fieldDefs = []fieldDef{
	{NameField, "Name", "text", "Your name"},
	{EmailField, "Email", "email", "you@example.com"},
	{SubjectField, "Subject", "text", "What is this about?"},
	{MessageField, "Message", "textarea", "Tell us more"},
}

// RenderOptions bundles per-render inputs.
type RenderOptions struct {
	Action     string    // form action URL, default "/contact"
	CSRFToken  string    // embedded as csrf_token
	RenderedAt time.Time // embedded as render_ts, zero means now
	FormError  string    // form-level message (CSRF, timing, rate limit)

	// SendingLabel is shown by the browser script while a submit is in
	// flight.  Empty means DefaultSendingLabel.
	SendingLabel string
}

// RenderForm returns the contact form markup for st.
func RenderForm(st SurfaceState, opts RenderOptions) template.HTML {
	action := opts.Action
	if action == "" {
		action = "/contact"
	}
	at := opts.RenderedAt
	if at.IsZero() {
		at = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(`<form id="contactForm" class="contact-form" method="post" action="` +
		html.EscapeString(action) + `" novalidate>` + "\n")

	if opts.FormError != "" {
		buf.WriteString(`<div class="form-error" role="alert">` + html.EscapeString(opts.FormError) + `</div>` + "\n")
	}

	for _, fd := range fieldDefs {
		writeField(&buf, fd, st.Fields[fd.Name])
	}

	fmt.Fprintf(&buf, `<input type="hidden" name="csrf_token" value="%s">`+"\n", html.EscapeString(opts.CSRFToken))
	fmt.Fprintf(&buf, `<input type="hidden" name="render_ts" value="%d">`+"\n", at.UnixMicro())

	label := st.SubmitLabel
	if label == "" {
		label = DefaultSubmitLabel
	}
	sending := opts.SendingLabel
	if sending == "" {
		sending = DefaultSendingLabel
	}
	buf.WriteString(`<button type="submit" data-sending-label="` + html.EscapeString(sending) + `" class="btn btn-primary`)
	if !st.SubmitEnabled {
		buf.WriteString(` loading" disabled>`)
	} else {
		buf.WriteString(`">`)
	}
	buf.WriteString(html.EscapeString(label) + `</button>` + "\n")

	buf.WriteString(`</form>`)
	return template.HTML(buf.String())
}

// writeField emits one form group.
func writeField(buf *bytes.Buffer, fd fieldDef, fv FieldView) {
	name := html.EscapeString(string(fd.Name))
	id := `fld-` + name

	buf.WriteString(`<div class="form-group">` + "\n")
	buf.WriteString(`<label for="` + id + `">` + html.EscapeString(fd.Label) + `</label>` + "\n")

	class := ""
	switch fv.Validity {
	case Invalid:
		class = ` class="error" aria-invalid="true"`
	case Valid:
		class = ` class="success"`
	}
	ph := ` placeholder="` + html.EscapeString(fd.Placeholder) + `"`

	if fd.Type == "textarea" {
		buf.WriteString(`<textarea id="` + id + `" name="` + name + `"` + class + ph + ` rows="5" required>`)
		buf.WriteString(html.EscapeString(fv.Value))
		buf.WriteString(`</textarea>` + "\n")
	} else {
		buf.WriteString(`<input id="` + id + `" name="` + name + `" type="` + fd.Type + `"` + class + ph +
			` value="` + html.EscapeString(fv.Value) + `" required>` + "\n")
	}

	if fv.Error != "" {
		buf.WriteString(`<div class="error-message" aria-live="polite">` + html.EscapeString(fv.Error) + `</div>` + "\n")
	}
	buf.WriteString(`</div>` + "\n")
}

// RenderNotifications returns the toast stack markup, oldest first.
// display and exit are written as data attributes in milliseconds.
func RenderNotifications(notes []Notification, display, exit time.Duration) template.HTML {
	if len(notes) == 0 {
		return ""
	}
	var buf bytes.Buffer
	buf.WriteString(`<div class="notifications">` + "\n")
	for _, n := range notes {
		fmt.Fprintf(&buf, `<div class="%s-notification" data-id="%d" data-phase="%s" data-display-ms="%d" data-exit-ms="%d" role="status">`+"\n",
			html.EscapeString(string(n.Kind)), n.ID, html.EscapeString(string(n.Phase)),
			display.Milliseconds(), exit.Milliseconds())
		buf.WriteString(`<div class="` + html.EscapeString(string(n.Kind)) + `-content">` + "\n")
		buf.WriteString(`<h3>` + html.EscapeString(n.Title) + `</h3>` + "\n")
		if n.Body != "" {
			buf.WriteString(`<p>` + html.EscapeString(n.Body) + `</p>` + "\n")
		}
		buf.WriteString(`</div>` + "\n" + `</div>` + "\n")
	}
	buf.WriteString(`</div>`)
	return template.HTML(buf.String())
}
