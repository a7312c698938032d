package component

import (
	"testing"

	"github.com/go-chi/chi/v5"
)

type stub struct{ name string }

func (s stub) Name() string         { return s.name }
func (s stub) Routes() chi.Router   { return chi.NewRouter() }
func (s stub) Migrations() []string { return nil }

func TestAllSortedByName(t *testing.T) {
	Register(stub{"zeta"})
	Register(stub{"alpha"})
	Register(stub{"alpha"})

	var names []string
	for _, c := range All() {
		if c.Name() == "zeta" || c.Name() == "alpha" {
			names = append(names, c.Name())
		}
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("All() names = %v", names)
	}
}
