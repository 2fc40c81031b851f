package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testEpisodes() []Episode {
	return []Episode{
		{ID: "e1", Title: "One", Ordinal: 1, Category: 1},
		{ID: "e2", Title: "Two", Ordinal: 2, Category: 2},
		{ID: "e3", Title: "Three", Ordinal: 3, Category: 1},
	}
}

func ids(eps []Episode) []string {
	out := make([]string, len(eps))
	for i, e := range eps {
		out[i] = e.ID
	}
	return out
}

func TestSortByOrderAppliesHint(t *testing.T) {
	sorted := SortByOrder(testEpisodes(), []string{"e3", "e1"})
	require.Equal(t, []string{"e3", "e1", "e2"}, ids(sorted))
}

func TestSortByOrderEmptyHintFallsBackToOrdinal(t *testing.T) {
	sorted := SortByOrder(testEpisodes(), nil)
	require.Equal(t, []string{"e1", "e2", "e3"}, ids(sorted))
}

func TestSortByOrderUnhintedSortLast(t *testing.T) {
	eps := []Episode{
		{ID: "a", Ordinal: 9},
		{ID: "b", Ordinal: 1},
		{ID: "c", Ordinal: 5},
	}
	sorted := SortByOrder(eps, []string{"a"})
	require.Equal(t, []string{"a", "b", "c"}, ids(sorted))
}

func TestSortByOrderDeterministic(t *testing.T) {
	hint := []string{"e2", "e2", "e3"} // duplicate ids keep their first position
	first := SortByOrder(testEpisodes(), hint)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, SortByOrder(testEpisodes(), hint))
	}
	require.Equal(t, []string{"e2", "e3", "e1"}, ids(first))
}

func TestSortByOrderDoesNotMutateInput(t *testing.T) {
	eps := testEpisodes()
	_ = SortByOrder(eps, []string{"e3"})
	require.Equal(t, testEpisodes(), eps)
}

func TestMatchesCategory(t *testing.T) {
	e := Episode{ID: "e1", Category: 2}
	require.True(t, e.MatchesCategory(CategoryAll))
	require.True(t, e.MatchesCategory(2))
	require.False(t, e.MatchesCategory(3))
}
