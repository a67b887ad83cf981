// Package diff classifies the differences between two snapshots of the same
// domain into ordered change records.
package diff

import (
	"math"
	"sort"

	"libwatch/internal/snapshot"
)

// Kind identifies what changed for a single item between two snapshots.
// The declaration order doubles as the presentation priority: new items
// first, removals last.
type Kind int

const (
	KindNew Kind = iota
	KindCountIncreased
	KindValueChanged
	KindCountDecreased
	KindRemoved
)

// String returns a short machine-friendly label for the kind.
func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindCountIncreased:
		return "count_increased"
	case KindValueChanged:
		return "value_changed"
	case KindCountDecreased:
		return "count_decreased"
	case KindRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// DefaultEpsilon is the minimum primary-measure delta treated as a real change.
const DefaultEpsilon = 0.01

// Record is one classified difference for a single item. PreviousValue is
// zero only for KindNew; CurrentValue is zero only for KindRemoved.
type Record struct {
	ID            string
	Kind          Kind
	PreviousValue float64
	CurrentValue  float64
	PreviousCount int
	CurrentCount  int
}

// ValueDelta returns the signed primary-measure change.
func (r Record) ValueDelta() float64 {
	return r.CurrentValue - r.PreviousValue
}

// CountDelta returns the signed secondary-measure change.
func (r Record) CountDelta() int {
	return r.CurrentCount - r.PreviousCount
}

// Diff compares a previous and current snapshot and returns the classified
// changes. Items present only in current are KindNew; only in previous,
// KindRemoved. For items in both, a count change wins over a value change,
// and value changes within epsilon produce no record at all. An epsilon of
// zero or less falls back to DefaultEpsilon.
//
// Output ordering is a contract: records sort by kind priority, then by
// descending absolute value delta, then by ID for determinism.
func Diff(previous, current snapshot.Snapshot, epsilon float64) []Record {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}

	var records []Record

	for id, curr := range current {
		prev, existed := previous[id]
		if !existed {
			records = append(records, Record{
				ID:           id,
				Kind:         KindNew,
				CurrentValue: curr.Value,
				CurrentCount: curr.Count,
			})
			continue
		}

		record := Record{
			ID:            id,
			PreviousValue: prev.Value,
			CurrentValue:  curr.Value,
			PreviousCount: prev.Count,
			CurrentCount:  curr.Count,
		}
		switch {
		case curr.Count > prev.Count:
			record.Kind = KindCountIncreased
		case curr.Count < prev.Count:
			record.Kind = KindCountDecreased
		case math.Abs(curr.Value-prev.Value) > epsilon:
			record.Kind = KindValueChanged
		default:
			continue
		}
		records = append(records, record)
	}

	for id, prev := range previous {
		if _, exists := current[id]; exists {
			continue
		}
		records = append(records, Record{
			ID:            id,
			Kind:          KindRemoved,
			PreviousValue: prev.Value,
			PreviousCount: prev.Count,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Kind != records[j].Kind {
			return records[i].Kind < records[j].Kind
		}
		di := math.Abs(records[i].ValueDelta())
		dj := math.Abs(records[j].ValueDelta())
		if di != dj {
			return di > dj
		}
		return records[i].ID < records[j].ID
	})

	return records
}
