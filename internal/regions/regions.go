// Package regions defines the output model of the template-region extraction
// engine: the region taxonomy, refined spans, diagnostic evidence, and the
// terminal extraction result with its status enum.
package regions

import (
	"time"

	"github.com/google/uuid"

	"github.com/formscout/formscout/internal/blocks"
)

// Status is the terminal disposition of one extraction run.
type Status string

// Terminal extraction statuses.
const (
	StatusSuccess     Status = "SUCCESS"
	StatusLowCoverage Status = "LOW_COVERAGE"
	StatusNotFound    Status = "NOT_FOUND"
	StatusNeedOCR     Status = "NEED_OCR"
	StatusNeedConfirm Status = "NEED_CONFIRM"
)

// Span is one classified, boundary-refined template region. Start and end
// reference blocks in the input sequence; spans returned by the engine are
// sorted by start-block document order.
type Span struct {
	Kind             Kind     `json:"kind"`
	DisplayTitle     string   `json:"display_title"`
	StartBlockID     string   `json:"start_block_id"`
	EndBlockID       string   `json:"end_block_id"`
	Confidence       float64  `json:"confidence"`
	EvidenceBlockIDs []string `json:"evidence_block_ids"`
	Reason           string   `json:"reason"`
}

// Evidence is a diagnostic projection of one high-scoring block, independent
// of any span. It exists for operator review of ambiguous documents.
type Evidence struct {
	Type        blocks.Type `json:"type"`
	BlockID     string      `json:"block_id"`
	OrderNo     int         `json:"order_no"`
	Score       float64     `json:"score"`
	KeywordsHit []string    `json:"keywords_hit"`
	Snippet     string      `json:"snippet"`
	Reason      string      `json:"reason"`
}

// Diagnostics carries the observability counters assembled by the
// orchestrator. Counters describe the pass that produced the terminal result;
// CacheHits may include hits on entries populated by the earlier pass.
type Diagnostics struct {
	RunID            uuid.UUID     `json:"run_id"`
	Mode             string        `json:"mode"`
	EvidenceCount    int           `json:"evidence_count"`
	WindowCount      int           `json:"window_count"`
	ClassifierEvents int           `json:"classifier_events"`
	OracleCalls      int           `json:"oracle_calls"`
	CacheHits        int           `json:"cache_hits"`
	DedupDropped     int           `json:"dedup_dropped"`
	CoverageRatio    float64       `json:"coverage_ratio"`
	MissingKinds     []Kind        `json:"missing_kinds"`
	TotalBlocks      int           `json:"total_blocks"`
	TextDensity      float64       `json:"text_density"`
	ImageAnchorCount int           `json:"image_anchor_count"`
	Partial          bool          `json:"partial"`
	Elapsed          time.Duration `json:"elapsed"`
}

// ExtractionResult is the immutable terminal value of one extraction call.
type ExtractionResult struct {
	Status      Status      `json:"status"`
	Spans       []Span      `json:"spans"`
	Evidences   []Evidence  `json:"evidences"`
	Diagnostics Diagnostics `json:"diagnostics"`
	Message     string      `json:"message"`
}
