// Package recall turns high-scoring blocks into merged candidate windows and
// produces the operator-facing evidence list. Recall is deliberately
// permissive: windows are cheap, and the classifier downstream decides what
// is actually a template region.
package recall

import (
	"fmt"
	"sort"
	"strings"

	"github.com/formscout/formscout/internal/regions"
	"github.com/formscout/formscout/internal/score"
	"github.com/formscout/formscout/pkg/formatting"
)

const (
	// mergeGapTolerance is the fixed number of blocks two windows may be
	// apart and still merge into one candidate region.
	mergeGapTolerance = 5

	// evidenceFloor is the minimum score for a block to appear in the
	// diagnostic evidence list, independent of the anchor threshold.
	evidenceFloor = 0.3

	snippetLimit = 400
)

// Settings are the mode-dependent recall parameters. ENHANCED mode supplies a
// lower threshold, larger radius, and higher window cap than NORMAL.
type Settings struct {
	MinEvidenceScore float64
	WindowRadius     int
	MaxWindows       int
	MaxEvidences     int
}

// Window is a candidate contiguous slice of blocks, identified by inclusive
// positions into the scored slice.
type Window struct {
	Start         int
	End           int
	Score         float64
	HitBlockIDs   map[string]struct{}
	AnchorBlockID string
}

// Recall selects anchor blocks whose score clears the threshold, expands each
// into a radius window, merges near-adjacent windows, and keeps the
// highest-scoring candidates. It also computes the evidence list from the
// full scored slice, independent of windowing. An empty return is a valid
// outcome, not an error.
func Recall(scored []score.Scored, set Settings) ([]Window, []regions.Evidence) {
	windows := buildWindows(scored, set)
	windows = mergeWindows(windows)
	windows = capWindows(windows, set.MaxWindows)
	return windows, Evidences(scored, set.MaxEvidences)
}

func buildWindows(scored []score.Scored, set Settings) []Window {
	var windows []Window
	for i, sb := range scored {
		if sb.Score < set.MinEvidenceScore {
			continue
		}
		windows = append(windows, Window{
			Start:         max(0, i-set.WindowRadius),
			End:           min(len(scored)-1, i+set.WindowRadius),
			Score:         sb.Score,
			HitBlockIDs:   map[string]struct{}{sb.Block.ID: {}},
			AnchorBlockID: sb.Block.ID,
		})
	}
	return windows
}

func mergeWindows(windows []Window) []Window {
	if len(windows) == 0 {
		return nil
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start < windows[j].Start
	})

	merged := []Window{windows[0]}
	for _, w := range windows[1:] {
		running := &merged[len(merged)-1]
		if w.Start > running.End+mergeGapTolerance {
			merged = append(merged, w)
			continue
		}

		running.End = max(running.End, w.End)
		if w.Score > running.Score {
			running.Score = w.Score
			running.AnchorBlockID = w.AnchorBlockID
		}
		for id := range w.HitBlockIDs {
			running.HitBlockIDs[id] = struct{}{}
		}
	}
	return merged
}

func capWindows(windows []Window, maxWindows int) []Window {
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].Score != windows[j].Score {
			return windows[i].Score > windows[j].Score
		}
		return windows[i].Start < windows[j].Start
	})

	if maxWindows > 0 && len(windows) > maxWindows {
		windows = windows[:maxWindows]
	}

	// Document order keeps downstream processing deterministic.
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start < windows[j].Start
	})
	return windows
}

// Evidences projects the top-scoring blocks into diagnostic evidence entries.
func Evidences(scored []score.Scored, limit int) []regions.Evidence {
	var candidates []score.Scored
	for _, sb := range scored {
		if sb.Score >= evidenceFloor {
			candidates = append(candidates, sb)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Block.OrderIndex < candidates[j].Block.OrderIndex
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	evidences := make([]regions.Evidence, len(candidates))
	for i, sb := range candidates {
		evidences[i] = regions.Evidence{
			Type:        sb.Block.Type,
			BlockID:     sb.Block.ID,
			OrderNo:     sb.Block.OrderIndex,
			Score:       sb.Score,
			KeywordsHit: sb.KeywordsHit,
			Snippet:     formatting.Snippet(sb.Block.Text, snippetLimit),
			Reason:      evidenceReason(sb),
		}
	}
	return evidences
}

func evidenceReason(sb score.Scored) string {
	if len(sb.KeywordsHit) == 0 {
		return "structural evidence"
	}
	return fmt.Sprintf("keyword evidence: %s", strings.Join(sb.KeywordsHit, ", "))
}
