package repository

import "strconv"

// idToKey renders a content-derived id as the decimal string BM25Index and
// VectorStore address their rows by.
func idToKey(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// keyToID parses a VectorStore/BM25Index key back into its id. A malformed
// key (never produced by this package) is skipped by the caller rather than
// treated as fatal.
func keyToID(key string) (uint32, bool) {
	v, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// idsToKeys converts a batch of ids to their decimal-string keys.
func idsToKeys(ids []uint32) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = idToKey(id)
	}
	return keys
}
