package document_repo

import (
	"slices"
	"strings"
)

// upsertSuffix builds ON CONFLICT (key) DO UPDATE for every column except key and immutable.
func upsertSuffix(cols []string, key string, immutable ...string) string {
	var sets []string
	for _, c := range cols {
		if c == key || slices.Contains(immutable, c) {
			continue
		}
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	return "ON CONFLICT (" + key + ") DO UPDATE SET " + strings.Join(sets, ", ")
}
