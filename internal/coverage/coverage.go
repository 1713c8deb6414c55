// Package coverage compares found region kinds against the expected taxonomy
// and decides the terminal status of an extraction pass, or signals that an
// escalated retry is warranted. It also diagnoses evidence-without-spans
// outcomes: scanned documents that need OCR versus ambiguous documents that
// need human confirmation.
package coverage

import (
	"fmt"

	"github.com/formscout/formscout/internal/blocks"
	"github.com/formscout/formscout/internal/regions"
)

// textDensityLenScale normalizes average text length when computing density:
// documents averaging 100+ runes per text block count as fully dense.
const textDensityLenScale = 100

// Settings are the coverage thresholds and the expected kind taxonomy.
type Settings struct {
	MinRatio             float64
	ExpectedKinds        []regions.Kind
	ImageAnchorToNeedOCR int
	LowTextDensity       float64
}

// Assessment is the coverage verdict for one extraction pass. TextDensity
// and ImageAnchorCount are computed unconditionally for diagnostics.
type Assessment struct {
	Status           regions.Status
	Ratio            float64
	Missing          []regions.Kind
	Message          string
	TextDensity      float64
	ImageAnchorCount int
}

// Evaluate decides the terminal status for one pass. LOW_COVERAGE signals the
// orchestrator that an ENHANCED retry may help; every other status is final.
func Evaluate(spans []regions.Span, evidences []regions.Evidence, blks []blocks.Block, set Settings) Assessment {
	density := textDensity(blks)
	anchors := imageAnchorCount(evidences)

	if len(spans) == 0 {
		return assessEmpty(evidences, density, anchors, set)
	}

	found := make(map[regions.Kind]struct{}, len(spans))
	for _, s := range spans {
		found[s.Kind] = struct{}{}
	}

	hit := 0
	var missing []regions.Kind
	for _, k := range set.ExpectedKinds {
		if _, ok := found[k]; ok {
			hit++
		} else {
			missing = append(missing, k)
		}
	}

	ratio := 1.0
	if len(set.ExpectedKinds) > 0 {
		ratio = float64(hit) / float64(len(set.ExpectedKinds))
	}

	if ratio >= set.MinRatio {
		return Assessment{
			Status:           regions.StatusSuccess,
			Ratio:            ratio,
			Missing:          missing,
			Message:          fmt.Sprintf("found %d of %d expected kinds", hit, len(set.ExpectedKinds)),
			TextDensity:      density,
			ImageAnchorCount: anchors,
		}
	}

	return Assessment{
		Status:           regions.StatusLowCoverage,
		Ratio:            ratio,
		Missing:          missing,
		Message:          fmt.Sprintf("coverage %.2f below minimum %.2f", ratio, set.MinRatio),
		TextDensity:      density,
		ImageAnchorCount: anchors,
	}
}

func assessEmpty(evidences []regions.Evidence, density float64, anchors int, set Settings) Assessment {
	if len(evidences) == 0 {
		return Assessment{
			Status:           regions.StatusNotFound,
			Missing:          append([]regions.Kind(nil), set.ExpectedKinds...),
			Message:          "no template regions and no supporting evidence",
			TextDensity:      density,
			ImageAnchorCount: anchors,
		}
	}

	if anchors > set.ImageAnchorToNeedOCR || density < set.LowTextDensity {
		return Assessment{
			Status:           regions.StatusNeedOCR,
			Missing:          append([]regions.Kind(nil), set.ExpectedKinds...),
			Message:          fmt.Sprintf("document appears scanned: text density %.2f, image anchors %d", density, anchors),
			TextDensity:      density,
			ImageAnchorCount: anchors,
		}
	}

	return Assessment{
		Status:           regions.StatusNeedConfirm,
		Missing:          append([]regions.Kind(nil), set.ExpectedKinds...),
		Message:          fmt.Sprintf("evidence present but no region classified; %d entries for review", len(evidences)),
		TextDensity:      density,
		ImageAnchorCount: anchors,
	}
}

// textDensity estimates how text-bearing the document is: the fraction of
// blocks with text, scaled by average text length capped at one.
func textDensity(blks []blocks.Block) float64 {
	if len(blks) == 0 {
		return 0
	}

	withText := 0
	totalLen := 0
	for _, b := range blks {
		if b.HasText() {
			withText++
			totalLen += len([]rune(b.Text))
		}
	}
	if withText == 0 {
		return 0
	}

	avgLen := float64(totalLen) / float64(withText)
	return float64(withText) / float64(len(blks)) * min(1, avgLen/textDensityLenScale)
}

func imageAnchorCount(evidences []regions.Evidence) int {
	n := 0
	for _, e := range evidences {
		if e.Type == blocks.TypeImageAnchor {
			n++
		}
	}
	return n
}
