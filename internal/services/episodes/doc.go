// Package episodesvc merges the local episode catalog with the remotely
// sourced sort order and exposes the result as a live, sorted stream.
//
// The sort order is fetched through a single-flight memoizing cell: concurrent
// watchers share one fetch, a success is cached for the process lifetime, and
// a failure falls back to the empty order (plain ordinal sort) without being
// cached, so the next observation retries. TryUpdateCache refreshes the local
// catalog from the remote source; its write-back re-triggers every live watch
// through the store's change notification.
package episodesvc
