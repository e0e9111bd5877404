package schema

import "sync/atomic"

// Holder publishes the current Model. Swapping replaces the whole model reference, so a
// reader sees either the old or the new model and never a mix.
type Holder struct {
	current atomic.Pointer[Model]
}

// NewHolder creates a holder publishing m.
func NewHolder(m *Model) *Holder {
	h := &Holder{}
	h.current.Store(m)
	return h
}

// Load returns the current model snapshot.
func (h *Holder) Load() *Model {
	return h.current.Load()
}

// Swap publishes m and returns the previous model.
func (h *Holder) Swap(m *Model) *Model {
	return h.current.Swap(m)
}
