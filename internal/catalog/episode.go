package catalog

import "sort"

// CategoryAll is the sentinel selector meaning "no category filter".
const CategoryAll = -1

// Episode is a single catalog record. Identity is ID; equality is structural.
type Episode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Ordinal     int    `json:"ordinal"`
	Category    int    `json:"category"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// MatchesCategory reports whether the episode passes the given selector.
// CategoryAll matches everything.
func (e Episode) MatchesCategory(category int) bool {
	return category == CategoryAll || e.Category == category
}

// SortByOrder sorts episodes by an ordering hint: episodes present in order
// sort first, in hint position; episodes absent from the hint sort after all
// hinted ones, by their own ordinal. Ties on hint position also break by
// ordinal. The sort is stable and deterministic for fixed inputs, and the
// input slice is not modified.
func SortByOrder(eps []Episode, order []string) []Episode {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		if _, ok := pos[id]; !ok {
			pos[id] = i
		}
	}
	// Sentinel greater than any real hint position.
	unhinted := len(order)

	out := append([]Episode(nil), eps...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, ok := pos[out[i].ID]
		if !ok {
			pi = unhinted
		}
		pj, ok := pos[out[j].ID]
		if !ok {
			pj = unhinted
		}
		if pi != pj {
			return pi < pj
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}
