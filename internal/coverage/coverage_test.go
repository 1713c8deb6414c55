package coverage_test

import (
	"math"
	"strings"
	"testing"

	"github.com/formscout/formscout/internal/blocks"
	"github.com/formscout/formscout/internal/coverage"
	"github.com/formscout/formscout/internal/regions"
)

var settings = coverage.Settings{
	MinRatio: 0.75,
	ExpectedKinds: []regions.Kind{
		regions.KindBidLetter,
		regions.KindBidOpeningTable,
		regions.KindPowerOfAttorney,
	},
	ImageAnchorToNeedOCR: 3,
	LowTextDensity:       0.15,
}

func textBlocks(n int) []blocks.Block {
	blks := make([]blocks.Block, n)
	for i := range blks {
		blks[i] = blocks.Block{
			Type: blocks.TypeParagraph,
			Text: strings.Repeat("招标文件说明内容", 15), // well above the density length scale
		}
	}
	return blks
}

func spanOf(kind regions.Kind) regions.Span {
	return regions.Span{Kind: kind, StartBlockID: "s", EndBlockID: "e", Confidence: 0.9}
}

func TestEvaluate(t *testing.T) {
	t.Run("no spans no evidence is NOT_FOUND", func(t *testing.T) {
		a := coverage.Evaluate(nil, nil, textBlocks(10), settings)
		if a.Status != regions.StatusNotFound {
			t.Errorf("status = %s, want NOT_FOUND", a.Status)
		}
		if a.Ratio != 0 {
			t.Errorf("ratio = %v, want 0", a.Ratio)
		}
		if len(a.Missing) != len(settings.ExpectedKinds) {
			t.Errorf("missing = %v, want full expected set", a.Missing)
		}
	})

	t.Run("evidence without spans is NEED_CONFIRM on a text document", func(t *testing.T) {
		evidences := []regions.Evidence{
			{Type: blocks.TypeParagraph, Score: 0.35},
			{Type: blocks.TypeParagraph, Score: 0.4},
			{Type: blocks.TypeParagraph, Score: 0.5},
		}
		a := coverage.Evaluate(nil, evidences, textBlocks(50), settings)
		if a.Status != regions.StatusNeedConfirm {
			t.Errorf("status = %s, want NEED_CONFIRM", a.Status)
		}
	})

	t.Run("image anchors above threshold force NEED_OCR", func(t *testing.T) {
		evidences := []regions.Evidence{
			{Type: blocks.TypeImageAnchor, Score: 0.4},
			{Type: blocks.TypeImageAnchor, Score: 0.4},
			{Type: blocks.TypeImageAnchor, Score: 0.4},
			{Type: blocks.TypeImageAnchor, Score: 0.4},
		}
		a := coverage.Evaluate(nil, evidences, textBlocks(50), settings)
		if a.Status != regions.StatusNeedOCR {
			t.Errorf("status = %s, want NEED_OCR", a.Status)
		}
		if a.ImageAnchorCount != 4 {
			t.Errorf("image anchors = %d, want 4", a.ImageAnchorCount)
		}
	})

	t.Run("sparse text forces NEED_OCR", func(t *testing.T) {
		blks := make([]blocks.Block, 50)
		for i := range blks {
			blks[i] = blocks.Block{Type: blocks.TypeImageAnchor} // no text at all
		}
		evidences := []regions.Evidence{{Type: blocks.TypeParagraph, Score: 0.35}}

		a := coverage.Evaluate(nil, evidences, blks, settings)
		if a.Status != regions.StatusNeedOCR {
			t.Errorf("status = %s, want NEED_OCR", a.Status)
		}
		if a.TextDensity != 0 {
			t.Errorf("density = %v, want 0", a.TextDensity)
		}
	})

	t.Run("full coverage is SUCCESS", func(t *testing.T) {
		spans := []regions.Span{
			spanOf(regions.KindBidLetter),
			spanOf(regions.KindBidOpeningTable),
			spanOf(regions.KindPowerOfAttorney),
		}
		a := coverage.Evaluate(spans, nil, textBlocks(10), settings)
		if a.Status != regions.StatusSuccess {
			t.Errorf("status = %s, want SUCCESS", a.Status)
		}
		if a.Ratio != 1 {
			t.Errorf("ratio = %v, want 1", a.Ratio)
		}
		if len(a.Missing) != 0 {
			t.Errorf("missing = %v, want none", a.Missing)
		}
	})

	t.Run("partial coverage is LOW_COVERAGE", func(t *testing.T) {
		spans := []regions.Span{
			spanOf(regions.KindBidLetter),
			spanOf(regions.KindBidOpeningTable),
		}
		a := coverage.Evaluate(spans, nil, textBlocks(10), settings)
		if a.Status != regions.StatusLowCoverage {
			t.Errorf("status = %s, want LOW_COVERAGE", a.Status)
		}
		if math.Abs(a.Ratio-2.0/3.0) > 1e-9 {
			t.Errorf("ratio = %v, want 2/3", a.Ratio)
		}
		if len(a.Missing) != 1 || a.Missing[0] != regions.KindPowerOfAttorney {
			t.Errorf("missing = %v, want [POWER_OF_ATTORNEY]", a.Missing)
		}
	})

	t.Run("unexpected kinds do not count toward coverage", func(t *testing.T) {
		spans := []regions.Span{
			spanOf(regions.KindBidLetter),
			spanOf(regions.KindOther),
			spanOf(regions.KindQualification),
		}
		a := coverage.Evaluate(spans, nil, textBlocks(10), settings)
		if a.Status != regions.StatusLowCoverage {
			t.Errorf("status = %s, want LOW_COVERAGE", a.Status)
		}
		if math.Abs(a.Ratio-1.0/3.0) > 1e-9 {
			t.Errorf("ratio = %v, want 1/3", a.Ratio)
		}
	})

	t.Run("coverage is monotonic in found kinds", func(t *testing.T) {
		var spans []regions.Span
		prev := -1.0
		for _, k := range settings.ExpectedKinds {
			spans = append(spans, spanOf(k))
			a := coverage.Evaluate(spans, nil, textBlocks(10), settings)
			if a.Ratio <= prev {
				t.Errorf("ratio %v not greater than previous %v", a.Ratio, prev)
			}
			prev = a.Ratio
		}
	})
}
