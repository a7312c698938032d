// internal/form/surface.go
//
// Forms subsystem: render surface.
//
// Context
//   The controller never touches markup directly.  Everything it wants the
//   user to see goes through Surface: field annotations, the submit control,
//   field values, and notifications.  A browser host would implement Surface
//   over the DOM.  This repository's HTTP adapter uses MemorySurface and then
//   renders its state with RenderForm.
//
// Invariants
//   •  At most one annotation exists per field.  ShowFieldError replaces.
//   •  The surface is the single writer of form state.  Hosts must not mutate
//      it except through the controller.
//
//------------------------------------------------------------------------------

package form

import (
	"sort"
	"sync"
)

// Surface is the rendering side of the contact form.
type Surface interface {
	FieldValue(n FieldName) string
	SetFieldValue(n FieldName, v string)
	ResetFields()

	ShowFieldError(n FieldName, msg string)
	ClearFieldError(n FieldName)
	MarkFieldValid(n FieldName)
	ClearAllErrors()

	SetSubmitControl(label string, enabled bool)
	SubmitControl() (label string, enabled bool)
	FieldValidity(n FieldName) Validity

	AddNotification(n Notification)
	SetNotificationPhase(id uint64, p Phase)
	RemoveNotification(id uint64)
}

// FieldView is the rendered state of one input.
type FieldView struct {
	Value    string
	Validity Validity
	Error    string // annotation text, empty when none
}

// SurfaceState is a point-in-time copy of a MemorySurface.
type SurfaceState struct {
	Fields        map[FieldName]FieldView
	SubmitLabel   string
	SubmitEnabled bool
	Notifications []Notification
}

// Annotations returns the number of rendered error annotations.
func (s SurfaceState) Annotations() int {
	n := 0
	for _, f := range s.Fields {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// MemorySurface is an in-memory Surface.  It is safe for concurrent use.
type MemorySurface struct {
	mu            sync.Mutex
	fields        map[FieldName]*FieldView
	submitLabel   string
	submitEnabled bool
	notes         map[uint64]Notification
}

// DefaultSubmitLabel is the idle label of the submit control.
const DefaultSubmitLabel = "Send message"

// NewMemorySurface returns an empty surface with an enabled submit control.
func NewMemorySurface() *MemorySurface {
	s := &MemorySurface{
		fields:        make(map[FieldName]*FieldView, len(Fields)),
		submitLabel:   DefaultSubmitLabel,
		submitEnabled: true,
		notes:         make(map[uint64]Notification),
	}
	for _, f := range Fields {
		s.fields[f] = &FieldView{}
	}
	return s
}

// NewMemorySurfaceFrom returns a surface prefilled with snap's values.
func NewMemorySurfaceFrom(snap Snapshot) *MemorySurface {
	s := NewMemorySurface()
	for _, f := range Fields {
		s.fields[f].Value = snap.Value(f)
	}
	return s
}

func (s *MemorySurface) field(n FieldName) *FieldView {
	fv, ok := s.fields[n]
	if !ok {
		fv = &FieldView{}
		s.fields[n] = fv
	}
	return fv
}

func (s *MemorySurface) FieldValue(n FieldName) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.field(n).Value
}

func (s *MemorySurface) SetFieldValue(n FieldName, v string) {
	s.mu.Lock()
	s.field(n).Value = v
	s.mu.Unlock()
}

// ResetFields empties every value and returns validity to Untouched, the way
// a form reset does.  Annotations are left alone; ClearAllErrors removes them.
func (s *MemorySurface) ResetFields() {
	s.mu.Lock()
	for _, fv := range s.fields {
		fv.Value = ""
		fv.Validity = Untouched
	}
	s.mu.Unlock()
}

func (s *MemorySurface) ShowFieldError(n FieldName, msg string) {
	s.mu.Lock()
	fv := s.field(n)
	fv.Error = msg
	fv.Validity = Invalid
	s.mu.Unlock()
}

func (s *MemorySurface) ClearFieldError(n FieldName) {
	s.mu.Lock()
	s.field(n).Error = ""
	s.mu.Unlock()
}

func (s *MemorySurface) MarkFieldValid(n FieldName) {
	s.mu.Lock()
	fv := s.field(n)
	fv.Error = ""
	fv.Validity = Valid
	s.mu.Unlock()
}

// ClearAllErrors drops every annotation.  Fields marked Invalid go back to
// Untouched; Valid fields keep their mark.
func (s *MemorySurface) ClearAllErrors() {
	s.mu.Lock()
	for _, fv := range s.fields {
		fv.Error = ""
		if fv.Validity == Invalid {
			fv.Validity = Untouched
		}
	}
	s.mu.Unlock()
}

func (s *MemorySurface) SetSubmitControl(label string, enabled bool) {
	s.mu.Lock()
	s.submitLabel, s.submitEnabled = label, enabled
	s.mu.Unlock()
}

func (s *MemorySurface) SubmitControl() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLabel, s.submitEnabled
}

func (s *MemorySurface) AddNotification(n Notification) {
	s.mu.Lock()
	s.notes[n.ID] = n
	s.mu.Unlock()
}

func (s *MemorySurface) SetNotificationPhase(id uint64, p Phase) {
	s.mu.Lock()
	if n, ok := s.notes[id]; ok {
		n.Phase = p
		s.notes[id] = n
	}
	s.mu.Unlock()
}

func (s *MemorySurface) RemoveNotification(id uint64) {
	s.mu.Lock()
	delete(s.notes, id)
	s.mu.Unlock()
}

// FieldValidity returns the validity mark of field n.
func (s *MemorySurface) FieldValidity(n FieldName) Validity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.field(n).Validity
}

// State returns a deep copy of the surface.  Notifications are ordered by ID,
// which is their show order.
func (s *MemorySurface) State() SurfaceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SurfaceState{
		Fields:        make(map[FieldName]FieldView, len(s.fields)),
		SubmitLabel:   s.submitLabel,
		SubmitEnabled: s.submitEnabled,
		Notifications: make([]Notification, 0, len(s.notes)),
	}
	for k, v := range s.fields {
		st.Fields[k] = *v
	}
	for _, n := range s.notes {
		st.Notifications = append(st.Notifications, n)
	}
	sort.Slice(st.Notifications, func(i, j int) bool {
		return st.Notifications[i].ID < st.Notifications[j].ID
	})
	return st
}

// Snapshot captures the current field values.
func (s *MemorySurface) Snapshot() Snapshot {
	return Snapshot{
		Name:    s.FieldValue(NameField),
		Email:   s.FieldValue(EmailField),
		Subject: s.FieldValue(SubjectField),
		Message: s.FieldValue(MessageField),
	}
}
