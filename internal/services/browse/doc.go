// Package browsesvc holds per-consumer presentation state for the episode
// browser: the current category selector, a loading indicator spanning each
// refresh, and a one-shot error message consumed exactly once.
//
// A Session's Watch stream follows the selector: changing the category
// cancels the inner subscription and re-subscribes with the new filter, so a
// single downstream consumer always observes the list for the current
// selection.
package browsesvc
