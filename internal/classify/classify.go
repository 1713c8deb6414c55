// Package classify submits candidate windows to the classification oracle,
// validates and normalizes its answers, and caches validated outcomes by
// window content hash. The cache is correctness-preserving: identical window
// content must always classify identically, including across the escalated
// retry pass.
package classify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/formscout/formscout/internal/blocks"
	"github.com/formscout/formscout/internal/oracle"
	"github.com/formscout/formscout/internal/recall"
	"github.com/formscout/formscout/internal/regions"
)

// Result is a validated, normalized oracle verdict for one window.
// Block id references are guaranteed to be members of the window that
// produced the result; Kind is a member of the closed taxonomy; Confidence
// is clamped to [0, 1].
type Result struct {
	IsTarget         bool
	Kind             regions.Kind
	DisplayTitle     string
	StartBlockID     string
	EndBlockID       string
	Confidence       float64
	EvidenceBlockIDs []string
	Reason           string
}

// Outcome reports how one window classification resolved, for the
// orchestrator's diagnostics counters.
type Outcome struct {
	Result    *Result
	FromCache bool
}

// Classifier validates oracle verdicts against their source windows.
type Classifier struct {
	oracle oracle.Client
	cache  *Cache
	logger *slog.Logger
}

// New constructs a Classifier. The cache may be shared across extraction
// passes and calls; it must not be nil.
func New(client oracle.Client, cache *Cache, logger *slog.Logger) *Classifier {
	return &Classifier{oracle: client, cache: cache, logger: logger}
}

// Classify resolves one window to a validated Result. A nil Result with a
// nil error means the oracle's answer was rejected during validation or the
// identical content was previously rejected; the window is skipped, never
// failing the run. An error indicates the oracle could not be consulted.
func (c *Classifier) Classify(ctx context.Context, win recall.Window, idx *blocks.Index) (Outcome, error) {
	blks := idx.Slice(win.Start, win.End)

	hash, err := ContentHash(blks)
	if err != nil {
		return Outcome{}, fmt.Errorf("content hash: %w", err)
	}

	if cached, ok := c.cache.Get(hash); ok {
		return Outcome{Result: cached, FromCache: true}, nil
	}

	verdict, err := c.oracle.Classify(ctx, buildRequest(blks))
	if err != nil {
		// Transient by assumption: not cached, so a later pass may retry.
		return Outcome{}, fmt.Errorf("classify window [%d,%d]: %w", win.Start, win.End, err)
	}

	result := c.validate(ctx, verdict, blks)
	c.cache.Put(hash, result)

	return Outcome{Result: result}, nil
}

// validate normalizes a verdict against the window's own block-id set.
// Any block id reference outside the window invalidates the whole verdict.
func (c *Classifier) validate(ctx context.Context, v oracle.Verdict, blks []blocks.Block) *Result {
	if !v.IsTarget {
		return &Result{
			IsTarget:   false,
			Confidence: clamp01(v.Confidence),
			Reason:     v.Reason,
		}
	}

	member := make(map[string]struct{}, len(blks))
	for _, b := range blks {
		member[b.ID] = struct{}{}
	}

	for _, id := range append([]string{v.StartBlockID, v.EndBlockID}, v.EvidenceBlockIDs...) {
		if _, ok := member[id]; !ok {
			c.logger.WarnContext(
				ctx, "verdict references block outside window, discarding",
				"block_id", id,
				"kind", v.Kind,
			)
			return nil
		}
	}

	return &Result{
		IsTarget:         true,
		Kind:             regions.NormalizeKind(v.Kind),
		DisplayTitle:     v.DisplayTitle,
		StartBlockID:     v.StartBlockID,
		EndBlockID:       v.EndBlockID,
		Confidence:       clamp01(v.Confidence),
		EvidenceBlockIDs: v.EvidenceBlockIDs,
		Reason:           v.Reason,
	}
}

func buildRequest(blks []blocks.Block) oracle.Request {
	req := oracle.Request{
		Blocks: make([]oracle.RequestBlock, len(blks)),
		Kinds:  make([]oracle.KindOption, 0, len(regions.Kinds())),
	}

	for i, b := range blks {
		req.Blocks[i] = oracle.RequestBlock{
			BlockID: b.ID,
			OrderNo: b.OrderIndex,
			Type:    string(b.Type),
			Text:    b.Text,
		}
	}

	for _, k := range regions.Kinds() {
		req.Kinds = append(req.Kinds, oracle.KindOption{
			Name:        string(k),
			Description: regions.Describe(k),
		})
	}

	return req
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
