package syncer

import (
	"fmt"
	"sort"
)

// SlotInterval is an inclusive [Start, End] range of slot numbers.
// Intervals are values; refinements derive new intervals rather than
// mutating one in place.
type SlotInterval struct {
	Start uint64
	End   uint64
}

// String returns the interval in "start-end" form.
func (iv SlotInterval) String() string {
	return fmt.Sprintf("%d-%d", iv.Start, iv.End)
}

// Size returns the number of slots covered. A degenerate interval
// (End < Start) has size 0.
func (iv SlotInterval) Size() uint64 {
	if iv.End < iv.Start {
		return 0
	}
	return iv.End - iv.Start + 1
}

// Split splits the interval into chunks of at most maxSize slots.
func (iv SlotInterval) Split(maxSize uint64) []SlotInterval {
	if maxSize == 0 || iv.Size() <= maxSize {
		return []SlotInterval{iv}
	}

	var chunks []SlotInterval
	current := iv.Start

	for current <= iv.End {
		chunkEnd := min(current+maxSize-1, iv.End)
		chunks = append(chunks, SlotInterval{Start: current, End: chunkEnd})
		current = chunkEnd + 1
	}

	return chunks
}

// Overlaps reports whether the two intervals overlap or are adjacent.
func (iv SlotInterval) Overlaps(other SlotInterval) bool {
	return iv.Start <= other.End+1 && other.Start <= iv.End+1
}

// Merge returns the smallest interval covering both inputs.
func (iv SlotInterval) Merge(other SlotInterval) SlotInterval {
	return SlotInterval{
		Start: min(iv.Start, other.Start),
		End:   max(iv.End, other.End),
	}
}

// MergeIntervals merges overlapping and adjacent intervals.
func MergeIntervals(intervals []SlotInterval) []SlotInterval {
	if len(intervals) <= 1 {
		return intervals
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})

	merged := []SlotInterval{intervals[0]}

	for i := 1; i < len(intervals); i++ {
		last := &merged[len(merged)-1]
		current := intervals[i]

		if last.Overlaps(current) {
			*last = last.Merge(current)
		} else {
			merged = append(merged, current)
		}
	}

	return merged
}
