// Package catalog defines the episode domain model and the custom sort
// applied to episode lists.
//
// Episodes are immutable values identified by ID. The remote source may
// supply an ordering hint (a sequence of episode ids); SortByOrder applies
// that hint as the primary sort key, falling back to the episode ordinal for
// episodes the hint does not mention.
package catalog
