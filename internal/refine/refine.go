// Package refine repairs classified window boundaries so spans start at a
// title block and end before the next region begins. Refinement works purely
// on block positions and the precomputed evidence scores; it never consults
// the oracle.
package refine

import (
	"regexp"
	"strings"

	"github.com/formscout/formscout/internal/blocks"
	"github.com/formscout/formscout/internal/classify"
	"github.com/formscout/formscout/internal/regions"
	"github.com/formscout/formscout/pkg/formatting"
)

const (
	// titleMaxRunes bounds how long a block may be and still qualify as a
	// title candidate during start repair.
	titleMaxRunes = 50

	// chapterScoreFloor is the minimum evidence score a chapter-pattern
	// block must carry to terminate a span.
	chapterScoreFloor = 0.5

	// tailNoiseRunes is the stripped-text length below which a trailing
	// block counts as noise for tail trimming.
	tailNoiseRunes = 10
)

// Settings are the refinement parameters. MinEvidenceScore is the active
// recall threshold of the current mode, reused by the next-anchor rule.
type Settings struct {
	LookbackBlocks        int
	TailTrimBlocks        int
	NextAnchorMinDistance int
	MaxSpanBlocks         int
	MaxSpanChars          int
	MinEvidenceScore      float64
	TitleKeywords         []string
	ChapterPatterns       []*regexp.Regexp
}

// Refine converts a validated classification into a boundary-repaired span.
// Returns nil for degenerate inputs: missing or unknown block ids, or a
// refined end at or before the refined start. Callers drop nil spans rather
// than emitting them.
func Refine(res *classify.Result, idx *blocks.Index, scores []float64, set Settings) *regions.Span {
	if res == nil || !res.IsTarget || res.StartBlockID == "" || res.EndBlockID == "" {
		return nil
	}

	start, ok := idx.Position(res.StartBlockID)
	if !ok {
		return nil
	}
	end, ok := idx.Position(res.EndBlockID)
	if !ok {
		return nil
	}

	start = repairStart(idx, start, set)
	end = repairEnd(idx, scores, start, end, set)
	end = clampLength(idx, start, end, set)
	end = trimTail(idx, start, end, set)

	if end <= start {
		return nil
	}

	return &regions.Span{
		Kind:             res.Kind,
		DisplayTitle:     res.DisplayTitle,
		StartBlockID:     idx.At(start).ID,
		EndBlockID:       idx.At(end).ID,
		Confidence:       res.Confidence,
		EvidenceBlockIDs: res.EvidenceBlockIDs,
		Reason:           res.Reason,
	}
}

// repairStart scans backward from the classified start looking for a short
// title-style block. Among candidates, the most keyword hits wins; ties go to
// the earliest position.
func repairStart(idx *blocks.Index, start int, set Settings) int {
	bestPos := start
	bestHits := 0

	for p := start - 1; p >= start-set.LookbackBlocks && p >= 0; p-- {
		text := strings.TrimSpace(idx.At(p).Text)
		if formatting.RuneLen(text) >= titleMaxRunes {
			continue
		}

		hits := 0
		for _, kw := range set.TitleKeywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}

		if hits > bestHits || (hits == bestHits && p < bestPos) {
			bestHits = hits
			bestPos = p
		}
	}

	return bestPos
}

// repairEnd walks forward from start+1 applying the termination rules in
// order; the first matching block truncates the span to end just before it.
func repairEnd(idx *blocks.Index, scores []float64, start, end int, set Settings) int {
	for p := start + 1; p <= end && p < idx.Len(); p++ {
		// Next-anchor rule: far enough from the start, a block that clears
		// the anchor threshold means the next region has begun.
		if p-start > set.NextAnchorMinDistance && scores[p] >= set.MinEvidenceScore {
			return p - 1
		}

		// Chapter-switch rule.
		if scores[p] >= chapterScoreFloor && matchesChapter(idx.At(p).Text, set.ChapterPatterns) {
			return p - 1
		}
	}
	return end
}

func matchesChapter(text string, patterns []*regexp.Regexp) bool {
	trimmed := strings.TrimSpace(text)
	for _, re := range patterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// clampLength enforces the block and character budgets by truncating from
// the end.
func clampLength(idx *blocks.Index, start, end int, set Settings) int {
	if set.MaxSpanBlocks > 0 && end-start+1 > set.MaxSpanBlocks {
		end = start + set.MaxSpanBlocks - 1
	}

	if set.MaxSpanChars <= 0 {
		return end
	}

	total := 0
	for p := start; p <= end; p++ {
		total += formatting.RuneLen(idx.At(p).Text)
	}
	for total > set.MaxSpanChars && end > start {
		total -= formatting.RuneLen(idx.At(end).Text)
		end--
	}
	return end
}

// trimTail retracts the end past a trailing run of blank or near-blank
// blocks when the run is long enough to be noise rather than form body.
func trimTail(idx *blocks.Index, start, end int, set Settings) int {
	if set.TailTrimBlocks <= 0 {
		return end
	}

	run := 0
	for p := end; p > start; p-- {
		if formatting.RuneLen(strings.TrimSpace(idx.At(p).Text)) >= tailNoiseRunes {
			break
		}
		run++
	}

	if run >= set.TailTrimBlocks {
		return end - run
	}
	return end
}
