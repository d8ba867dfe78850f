// Package pipeline implements the controller that drives a canvas session
// through its stages: product input, demographics, brand style, the creative
// fan-out and the per-branch previews.
//
// The Controller is the only writer to the graph store. Each transition is a
// single store update, so readers always see either the state before or the
// state after it. Transitions are idempotent: re-delivering the same event is
// either a no-op or re-applies the same state.
//
// The only transition that calls out to an external collaborator is
// OnBrandStyleConfirmed. The call runs without holding the writer lock and
// its result is applied only if no newer confirmation has started in the
// meantime.
package pipeline
