// Package flight provides a single-flight memoizing cell for one async
// computation.
//
// A Cell tracks at most one computation at a time. Concurrent callers of Get
// share the in-flight computation instead of launching their own, and a
// successful result is cached for the lifetime of the cell. Failures are
// never cached: the cell is cleared before the failure becomes observable,
// so the next Get starts a fresh computation. An optional fallback producer
// supplies a substitute value when the computation fails without its
// launching context having been cancelled; fallback results are computed per
// caller and never cached either.
package flight
