// Package dedup merges overlapping same-kind spans, keeping the
// highest-confidence span in each overlapping cluster. Overlap is true
// index-range intersection: two spans of one kind conflict when their block
// ranges share any position, not merely an endpoint.
package dedup

import (
	"sort"

	"github.com/formscout/formscout/internal/blocks"
	"github.com/formscout/formscout/internal/regions"
)

type interval struct {
	span  regions.Span
	start int
	end   int
}

// Merge deduplicates spans per kind and reports how many were dropped, so
// the orchestrator can surface discarded near-duplicates in diagnostics.
// Spans whose boundary ids are unknown to the index are dropped as well.
func Merge(spans []regions.Span, idx *blocks.Index) ([]regions.Span, int) {
	byKind := make(map[regions.Kind][]interval)
	dropped := 0

	for _, s := range spans {
		start, ok := idx.Position(s.StartBlockID)
		if !ok {
			dropped++
			continue
		}
		end, ok := idx.Position(s.EndBlockID)
		if !ok {
			dropped++
			continue
		}
		byKind[s.Kind] = append(byKind[s.Kind], interval{span: s, start: start, end: end})
	}

	var kept []regions.Span
	for _, group := range byKind {
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].span.Confidence != group[j].span.Confidence {
				return group[i].span.Confidence > group[j].span.Confidence
			}
			return group[i].start < group[j].start
		})

		var winners []interval
		for _, cand := range group {
			if overlapsAny(cand, winners) {
				dropped++
				continue
			}
			winners = append(winners, cand)
			kept = append(kept, cand.span)
		}
	}

	return kept, dropped
}

func overlapsAny(cand interval, kept []interval) bool {
	for _, k := range kept {
		if cand.start <= k.end && k.start <= cand.end {
			return true
		}
	}
	return false
}
