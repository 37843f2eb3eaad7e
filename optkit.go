// Package optkit is the umbrella package of the optimization module: it
// pulls every solver family into the registry and re-exports the lookup
// helpers, so a client needs a single import to reach the full identifier
// set:
//
//	s, err := optkit.Get("lbfgs")
//	if err != nil { ... }
//	state, err := s.Minimize(fn, x0)
//
// The solver families live in their own packages (solver, bundle, gsample,
// penalty, ipm) and register themselves during initialization; importing
// optkit guarantees all of them are present.
package optkit

import (
	"github.com/optkit/optkit/solver"

	// solver families registering themselves into the registry
	_ "github.com/optkit/optkit/bundle"
	_ "github.com/optkit/optkit/gsample"
	_ "github.com/optkit/optkit/ipm"
	_ "github.com/optkit/optkit/penalty"
)

// Get returns a fresh clone of the solver registered under id.
func Get(id string) (solver.Solver, error) { return solver.Get(id) }

// IDs returns every registered solver identifier in registration order.
func IDs() []string { return solver.Registry().IDs() }

// Describe returns the description registered under id, or "".
func Describe(id string) string { return solver.Registry().Description(id) }
