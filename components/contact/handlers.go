// components/contact/handlers.go
//
// HTTP handlers.  Each one maps a browser event onto controller calls:
//
//	GET  /contact                 → render an untouched surface
//	POST /contact                 → Controller.Submit, Task.Wait, render
//	POST /contact/validate/{name} → Controller.Blur
//
// Clients sending `Accept: application/json` get the outcome as JSON with
// the same status codes, so a script can drive the form without reloads.

package contact

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/contact/internal/form"
	"github.com/yanizio/contact/internal/logger"
	"github.com/yanizio/contact/internal/requestinfo"
)

// maxBodyBytes caps a posted form.  The message field dominates.
const maxBodyBytes = 64 << 10

const (
	msgCSRF    = "Your session expired.  Please submit the form again."
	msgLimited = "Too many messages from your address.  Please wait a moment and try again."
	msgReused  = "This form was already submitted.  Please wait for the result before sending again."
)

// pageData feeds templates/contact.html.
type pageData struct {
	Form          template.HTML
	Notifications template.HTML
}

// submitResponse is the JSON outcome of POST /contact.  CSRFToken and
// RenderedAt replace the spent hidden inputs so the script can submit again.
type submitResponse struct {
	OK            bool                      `json:"ok"`
	Error         string                    `json:"error,omitempty"`
	Fields        map[form.FieldName]string `json:"fields,omitempty"`
	Notifications []form.Notification       `json:"notifications,omitempty"`
	CSRFToken     string                    `json:"csrf_token"`
	RenderedAt    int64                     `json:"render_ts"`
	DisplayMS     int64                     `json:"display_ms"`
	ExitMS        int64                     `json:"exit_ms"`
}

/*──────────────────────────── GET /contact ─────────────────────────────────*/

func (c *Component) handleForm(w http.ResponseWriter, r *http.Request) {
	surface := form.NewMemorySurface()
	if r.URL.Query().Get("sent") == "1" {
		p := form.NewPresenter(surface, form.RealScheduler{}, c.opts.Presenter)
		defer p.Dispose()
		p.Show(form.KindSuccess, c.opts.SuccessTitle, c.opts.SuccessBody)
	}
	c.renderPage(w, r, http.StatusOK, surface.State(), "")
}

/*──────────────────────────── POST /contact ────────────────────────────────*/

func (c *Component) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad form data.", http.StatusBadRequest)
		return
	}
	snap := form.SnapshotFromValues(r.PostForm)
	log := requestLogger(r)

	switch err := c.csrf.Consume(r.PostFormValue("csrf_token")); {
	case errors.Is(err, form.ErrTokenReused):
		log.Warnw("contact duplicate submit")
		c.respondFormError(w, r, http.StatusConflict, snap, msgReused)
		return
	case err != nil:
		log.Warnw("contact csrf check failed")
		c.respondFormError(w, r, http.StatusForbidden, snap, msgCSRF)
		return
	}
	if msg := form.CheckTiming(r.PostFormValue("render_ts"), c.now()); msg != "" {
		log.Warnw("contact timing check failed", "reason", msg)
		c.respondFormError(w, r, http.StatusUnprocessableEntity, snap, msg)
		return
	}

	surface := form.NewMemorySurfaceFrom(snap)
	ctrl, err := form.New(surface, c.opts)
	if err != nil {
		log.Errorw("contact controller init failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer ctrl.Dispose()
	ctrl.OnTransition(func(t form.Transition) {
		log.Debugw("contact state", "from", t.From, "to", t.To)
	})

	ctx := logger.WithContext(r.Context(), log)
	task, err := ctrl.Submit(ctx, snap)
	switch {
	case form.IsValidationError(err):
		c.respond(w, r, http.StatusUnprocessableEntity, surface.State(), "")
		return
	case err != nil:
		log.Errorw("contact submit failed to start", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := task.Wait(r.Context()); err != nil {
		if r.Context().Err() != nil {
			log.Infow("contact client went away during delivery")
			return
		}
		c.respond(w, r, http.StatusBadGateway, surface.State(), "")
		return
	}

	if wantsJSON(r) {
		c.respond(w, r, http.StatusOK, surface.State(), "")
		return
	}
	http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
}

// handleLimited is the rate limiter's 429 renderer.
func (c *Component) handleLimited(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	_ = r.ParseForm()
	c.respondFormError(w, r, http.StatusTooManyRequests, form.SnapshotFromValues(r.PostForm), msgLimited)
}

/*──────────────────────── POST /contact/validate/{field} ───────────────────*/

func (c *Component) handleValidate(w http.ResponseWriter, r *http.Request) {
	name := form.FieldName(chi.URLParam(r, "field"))
	if !name.Known() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown field"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad form data"})
		return
	}

	surface := form.NewMemorySurface()
	surface.SetFieldValue(name, r.PostFormValue("value"))
	ctrl, err := form.New(surface, c.opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	defer ctrl.Dispose()

	writeJSON(w, http.StatusOK, ctrl.Blur(name))
}

/*──────────────────────────── rendering ────────────────────────────────────*/

// respondFormError answers with a form-level message and the posted values
// intact, without running the controller.
func (c *Component) respondFormError(w http.ResponseWriter, r *http.Request, status int, snap form.Snapshot, msg string) {
	c.respond(w, r, status, form.NewMemorySurfaceFrom(snap).State(), msg)
}

func (c *Component) respond(w http.ResponseWriter, r *http.Request, status int, st form.SurfaceState, formErr string) {
	if !wantsJSON(r) {
		c.renderPage(w, r, status, st, formErr)
		return
	}
	tok, err := c.csrf.Generate()
	if err != nil {
		requestLogger(r).Errorw("contact csrf token", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	resp := submitResponse{
		OK:            status == http.StatusOK,
		Error:         formErr,
		Notifications: st.Notifications,
		CSRFToken:     tok,
		RenderedAt:    c.now().UnixMicro(),
		DisplayMS:     c.display.Milliseconds(),
		ExitMS:        c.exit.Milliseconds(),
	}
	for name, fv := range st.Fields {
		if fv.Error == "" {
			continue
		}
		if resp.Fields == nil {
			resp.Fields = make(map[form.FieldName]string)
		}
		resp.Fields[name] = fv.Error
	}
	writeJSON(w, status, resp)
}

func (c *Component) renderPage(w http.ResponseWriter, r *http.Request, status int, st form.SurfaceState, formErr string) {
	tok, err := c.csrf.Generate()
	if err != nil {
		requestLogger(r).Errorw("contact csrf token", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	data := pageData{
		Form: form.RenderForm(st, form.RenderOptions{
			Action:       "/contact",
			CSRFToken:    tok,
			RenderedAt:   c.now(),
			FormError:    formErr,
			SendingLabel: c.opts.SendingLabel,
		}),
		Notifications: form.RenderNotifications(st.Notifications, c.display, c.exit),
	}

	var buf bytes.Buffer
	if err := c.page.ExecuteTemplate(&buf, "contact.html", data); err != nil {
		requestLogger(r).Errorw("contact render failed", "err", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("contact json encode", "err", err)
	}
}

// requestLogger tags the global logger with the client address.
func requestLogger(r *http.Request) *zap.SugaredLogger {
	log := logger.FromContext(r.Context())
	if info := requestinfo.FromContext(r.Context()); info != nil {
		log = log.With("client", info.ClientIP(), "bot", info.UA.IsBot)
	}
	return log
}
