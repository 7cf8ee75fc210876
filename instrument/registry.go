package instrument

import "fmt"

// Registry is an insertion-only symbol -> Instrument map. It is populated
// before replay and never mutated afterward; lookups are safe for
// concurrent readers, but there is no concurrent writer support by design
// (the engine is single-threaded).
type Registry struct {
	byID map[string]Instrument
	all  []Instrument
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Instrument)}
}

// Register adds an instrument. It returns an error if the symbol is already
// registered: the data model requires exactly one Instrument per symbol.
func (r *Registry) Register(inst Instrument) error {
	if _, exists := r.byID[inst.Symbol()]; exists {
		return fmt.Errorf("instrument: duplicate symbol %q", inst.Symbol())
	}
	r.byID[inst.Symbol()] = inst
	r.all = append(r.all, inst)
	return nil
}

// Get looks up an instrument by symbol.
func (r *Registry) Get(symbol string) (Instrument, bool) {
	inst, ok := r.byID[symbol]
	return inst, ok
}

// All returns every registered instrument in registration order. The
// returned slice is owned by the registry and must not be mutated.
func (r *Registry) All() []Instrument {
	return r.all
}
