// Package score implements the evidence heuristic for document blocks.
// Scoring is a pure function of a block's text and type against injected
// keyword configuration; the Scorer holds no mutable state.
package score

import (
	"strings"

	"github.com/formscout/formscout/internal/blocks"
)

// Signal weights. Scores accumulate without an upper clamp; callers must not
// assume results stay within [0, 1].
const (
	strongHitWeight   = 0.2
	strongHitCap      = 3
	weakHitWeight     = 0.2
	signatureWeight   = 0.15
	separatorWeight   = 0.1
	markerPairWeight  = 0.2
	markerPairMinimum = 2
)

var columnSeparators = []string{"|", "：", ":", "\t"}

// Keywords holds the keyword lists the scorer matches against.
type Keywords struct {
	Strong    []string
	Weak      []string
	Signature []string
	Marker    []string
}

// Scored pairs a block with its evidence score and the keywords that
// contributed to it.
type Scored struct {
	Block       blocks.Block
	Score       float64
	KeywordsHit []string
}

// Scorer evaluates blocks against one keyword configuration.
type Scorer struct {
	kw Keywords
}

// New returns a Scorer over the given keyword configuration.
func New(kw Keywords) *Scorer {
	return &Scorer{kw: kw}
}

// Score computes the evidence score for one block and the distinct keywords
// hit, in configuration order. Deterministic and side-effect free.
func (s *Scorer) Score(b blocks.Block) (float64, []string) {
	var total float64
	var hits []string

	strong := matchKeywords(b.Text, s.kw.Strong)
	total += strongHitWeight * float64(min(len(strong), strongHitCap))
	hits = append(hits, strong...)

	if weak := matchKeywords(b.Text, s.kw.Weak); len(weak) > 0 {
		total += weakHitWeight
		hits = append(hits, weak...)
	}

	if sig := matchKeywords(b.Text, s.kw.Signature); len(sig) > 0 {
		total += signatureWeight
		hits = append(hits, sig...)
	}

	if hasColumnStructure(b) {
		total += separatorWeight
	}

	if marker := matchKeywords(b.Text, s.kw.Marker); len(marker) >= markerPairMinimum {
		total += markerPairWeight
		hits = append(hits, marker...)
	}

	return total, dedupe(hits)
}

// ScoreAll scores every block in order.
func (s *Scorer) ScoreAll(blks []blocks.Block) []Scored {
	scored := make([]Scored, len(blks))
	for i, b := range blks {
		sc, hits := s.Score(b)
		scored[i] = Scored{Block: b, Score: sc, KeywordsHit: hits}
	}
	return scored
}

func matchKeywords(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func hasColumnStructure(b blocks.Block) bool {
	if b.Type == blocks.TypeTableCell {
		return true
	}
	for _, sep := range columnSeparators {
		if strings.Contains(b.Text, sep) {
			return true
		}
	}
	return false
}

func dedupe(hits []string) []string {
	seen := make(map[string]struct{}, len(hits))
	var out []string
	for _, h := range hits {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
