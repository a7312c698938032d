// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web runs every
// component's Migrations(), calls Init() with the shared process resources,
// and mounts Routes() at “/”.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/contact/internal/config"
	"github.com/yanizio/contact/internal/message"
)

// Deps exposes process-wide resources to components during Init.  DB and
// Mail are nil when the matching backend is disabled.
type Deps struct {
	Config *config.Config
	DB     *sqlx.DB
	Mail   *message.Queue
}

// Initializer is optional.  If a Component implements it, cmd/web calls
// Init(deps) once before mounting its routes.
type Initializer interface {
	Init(Deps) error
}

// Component contract.
//
// Migrations() may return nil if the component has no schema.  Routes()
// should mount BOTH page and API endpoints, e.g:
//
//	r := chi.NewRouter()
//	r.Get("/contact", getForm)
//	r.Post("/contact/validate/{field}", validateField)
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
	Migrations() []string
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  A second
// registration under the same name replaces the first.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name, so boot order is
// stable across runs.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
