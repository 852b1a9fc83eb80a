// Package revision computes field-level diffs between entity snapshots and
// persists versioned audit records. It is the audit backbone the prompt
// compiler and cascade-delete logic depend on.
package revision

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/33prime/aios-req-engine-sub007/entity"
)

const (
	// maxValueChars caps how much of a long scalar value a diff records.
	maxValueChars = 200

	// maxListElems caps how many list elements a diff records.
	maxListElems = 10

	// maxNestedKeys is the size above which a nested object is reported
	// by its key list instead of its content.
	maxNestedKeys = 5
)

// DefaultIgnoreFields are skipped by every diff: identity and timestamps
// change on every write and carry no audit value.
var DefaultIgnoreFields = []string{"id", "project_id", "created_at", "updated_at"}

// DefaultLargeFields are only ever reported as "changed"; their content is
// too big to be worth persisting in an audit record.
var DefaultLargeFields = []string{"embedding", "raw_content", "full_text", "document_body"}

// changedMarker replaces the values of large fields in a diff.
const changedMarker = "(changed)"

// ComputeDiff compares two flat key-value snapshots and returns the set of
// changed fields. Comparison is exact; there is no semantic diffing. Fields
// in ignoreFields are skipped entirely; fields in largeFields are reported
// with a changed marker instead of their content.
func ComputeDiff(old, updated map[string]any, ignoreFields, largeFields []string) map[string]entity.FieldChange {
	ignore := toSet(ignoreFields)
	large := toSet(largeFields)

	diff := make(map[string]entity.FieldChange)

	seen := make(map[string]bool, len(old)+len(updated))
	for k := range old {
		seen[k] = true
	}
	for k := range updated {
		seen[k] = true
	}

	for field := range seen {
		if ignore[field] {
			continue
		}
		oldVal, hadOld := old[field]
		newVal, hasNew := updated[field]
		if hadOld && hasNew && reflect.DeepEqual(oldVal, newVal) {
			continue
		}
		if !hadOld && !hasNew {
			continue
		}
		if large[field] {
			diff[field] = entity.FieldChange{Old: changedMarker, New: changedMarker}
			continue
		}
		diff[field] = entity.FieldChange{
			Old: compactValue(oldVal),
			New: compactValue(newVal),
		}
	}

	return diff
}

// compactValue shrinks a field value for audit storage: long strings are
// truncated, lists are capped, and large nested objects collapse to their
// key list. Small scalars pass through unchanged.
func compactValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if len(val) > maxValueChars {
			return val[:maxValueChars] + "..."
		}
		return val
	case []any:
		if len(val) <= maxListElems {
			return val
		}
		capped := make([]any, 0, maxListElems+1)
		capped = append(capped, val[:maxListElems]...)
		capped = append(capped, fmt.Sprintf("... and %d more", len(val)-maxListElems))
		return capped
	case map[string]any:
		if len(val) <= maxNestedKeys {
			return val
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("(object with keys: %s)", strings.Join(keys, ", "))
	default:
		return v
	}
}

// SummarizeDiff derives a short human-readable description of a diff.
func SummarizeDiff(diff map[string]entity.FieldChange) string {
	if len(diff) == 0 {
		return ""
	}
	fields := make([]string, 0, len(diff))
	for f := range diff {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	const maxNamed = 3
	if len(fields) <= maxNamed {
		return "updated " + strings.Join(fields, ", ")
	}
	return fmt.Sprintf("updated %s and %d more field(s)",
		strings.Join(fields[:maxNamed], ", "), len(fields)-maxNamed)
}

func toSet(fields []string) map[string]bool {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
