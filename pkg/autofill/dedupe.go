package autofill

import (
	"github.com/entrhq/formfill/pkg/fields"
)

// Group is the set of fields sharing one fingerprint. The first field in
// page order represents the group in retrieval.
type Group struct {
	Fingerprint    string
	Representative fields.Descriptor
	UIDs           []string
}

// Deduplicate groups descriptors by fingerprint, in order of first
// occurrence.
func Deduplicate(descs []fields.Descriptor) []Group {
	index := make(map[string]int, len(descs))
	var groups []Group
	for _, d := range descs {
		fp := d.Fingerprint()
		if i, ok := index[fp]; ok {
			groups[i].UIDs = append(groups[i].UIDs, d.UID)
			continue
		}
		index[fp] = len(groups)
		groups = append(groups, Group{Fingerprint: fp, Representative: d, UIDs: []string{d.UID}})
	}
	return groups
}

// Partition splits items into consecutive chunks of at most size.
func Partition[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end:end])
	}
	return out
}
