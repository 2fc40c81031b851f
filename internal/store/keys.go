package store

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - ep/r/{id}   episode record, JSON value
var (
	recordPrefix = []byte("ep/r/")
)

// KeyEpisode builds the record key for an episode id.
func KeyEpisode(id string) []byte {
	k := make([]byte, 0, len(recordPrefix)+len(id))
	k = append(k, recordPrefix...)
	k = append(k, id...)
	return k
}

// KeyEpisodeBounds returns the [lower, upper) iteration bounds covering all
// episode records.
func KeyEpisodeBounds() ([]byte, []byte) {
	lo := append([]byte(nil), recordPrefix...)
	hi := append(append([]byte(nil), recordPrefix...), 0xFF)
	return lo, hi
}
