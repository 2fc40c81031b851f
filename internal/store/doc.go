// Package store persists the episode catalog in Pebble and exposes it as a
// live query.
//
// Upsert is an idempotent insert-or-replace keyed by episode id, applied as
// one atomic batch. List reads the current catalog ordered by ordinal with an
// optional category filter. Changed returns a broadcast channel that is
// closed after every committed write, which lets callers re-run List as a
// continuously-updating query.
package store
