// Package dedup detects records repeating a key value already seen
// earlier in the same job.
package dedup

import (
	"fmt"
	"strings"

	"github.com/sells-group/migrate-cli/internal/model"
)

// DefaultKey is used when a tracker is built without keys.
const DefaultKey = "email"

// Tracker is a job-scoped index of normalized key values. It is never reset
// between batches and is not safe for concurrent use; records of one job
// must be checked in order.
type Tracker struct {
	keys       []string
	seen       map[string]map[string]int
	duplicates int
}

// NewTracker returns a tracker over keys, in priority order. Blank keys are
// dropped; with no keys left the tracker uses DefaultKey.
func NewTracker(keys ...string) *Tracker {
	var ks []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			ks = append(ks, k)
		}
	}
	if len(ks) == 0 {
		ks = []string{DefaultKey}
	}
	seen := make(map[string]map[string]int, len(ks))
	for _, k := range ks {
		seen[k] = make(map[string]int)
	}
	return &Tracker{keys: ks, seen: seen}
}

// Keys returns the configured key fields.
func (t *Tracker) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Check registers record under the first key holding a non-empty value and
// returns a duplicate issue when that value was seen before. Other keys of
// the record are not examined.
func (t *Tracker) Check(record model.Record, index int) *model.ValidationIssue {
	for _, key := range t.keys {
		v := record[key]
		norm := model.NormalizeValue(v)
		if model.IsEmpty(v) || norm == "" {
			continue
		}
		first, dup := t.seen[key][norm]
		if !dup {
			t.seen[key][norm] = index
			return nil
		}
		t.duplicates++
		return &model.ValidationIssue{
			RecordIndex: index,
			Field:       key,
			Kind:        model.IssueDuplicate,
			Message:     fmt.Sprintf("Duplicate %s %q (first seen at record %d)", key, norm, first),
			Value:       v,
			Suggestion:  "This record appears to be a duplicate",
		}
	}
	return nil
}

// Duplicates returns how many duplicates the tracker has flagged.
func (t *Tracker) Duplicates() int {
	return t.duplicates
}

// Seen returns how many distinct values are indexed for key.
func (t *Tracker) Seen(key string) int {
	return len(t.seen[key])
}
