// Package board implements the generic status board engine: a snapshot
// store grouped by status, a pure filter, a pointer-driven drag session and
// the coordinator that applies status transitions optimistically and
// recovers by resynchronising with the backend.
//
// Nothing in this package knows about roles, entities or screens; the
// views package binds it to concrete boards. Store and Coordinator are
// meant to be driven from a single goroutine (the UI event loop); only
// Coordinator.Persist and Coordinator.Fetch may run elsewhere.
package board
