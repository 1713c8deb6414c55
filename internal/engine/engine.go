// Package engine sequences the extraction pipeline: score, recall, classify,
// refine, deduplicate, and evaluate coverage, with one bounded escalation to
// ENHANCED recall settings when coverage falls short. The engine never
// returns an error and never panics; every outcome is a well-formed
// ExtractionResult.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/formscout/formscout/internal/blocks"
	"github.com/formscout/formscout/internal/classify"
	"github.com/formscout/formscout/internal/config"
	"github.com/formscout/formscout/internal/coverage"
	"github.com/formscout/formscout/internal/dedup"
	"github.com/formscout/formscout/internal/oracle"
	"github.com/formscout/formscout/internal/recall"
	"github.com/formscout/formscout/internal/refine"
	"github.com/formscout/formscout/internal/regions"
	"github.com/formscout/formscout/internal/score"
)

// Mode selects the recall sensitivity of one extraction pass.
type Mode string

// Extraction modes.
const (
	ModeNormal   Mode = "NORMAL"
	ModeEnhanced Mode = "ENHANCED"
)

// Engine is the template-region extraction orchestrator. The classification
// cache lives on the engine, so repeated extractions of identical content
// through one engine never re-consult the oracle.
type Engine struct {
	cfg        *config.EngineConfig
	scorer     *score.Scorer
	classifier *classify.Classifier
	cache      *classify.Cache
	logger     *slog.Logger
}

// New constructs an Engine over a finalized engine configuration and a
// classification oracle.
func New(cfg *config.EngineConfig, client oracle.Client, logger *slog.Logger) *Engine {
	cache := classify.NewCache()
	return &Engine{
		cfg: cfg,
		scorer: score.New(score.Keywords{
			Strong:    cfg.Keywords.Strong,
			Weak:      cfg.Keywords.Weak,
			Signature: cfg.Keywords.Signature,
			Marker:    cfg.Keywords.Marker,
		}),
		classifier: classify.New(client, cache, logger),
		cache:      cache,
		logger:     logger,
	}
}

// Extract locates template regions in blks. LOW_COVERAGE under ModeNormal
// triggers exactly one retry with enhanced recall settings; LOW_COVERAGE
// under ModeEnhanced is terminal. Faults never reach the caller: a fault in a
// classification worker skips that window, and any orchestrator fault is
// converted into a terminal NOT_FOUND result.
func (e *Engine) Extract(ctx context.Context, blks []blocks.Block, mode Mode) (result *regions.ExtractionResult) {
	runID := uuid.New()
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(
				ctx, "extraction fault",
				"run_id", runID,
				"fault", r,
			)
			result = faultResult(runID, mode, fmt.Sprintf("pipeline fault: %v", r), time.Since(started))
		}
	}()

	if len(blks) == 0 {
		return &regions.ExtractionResult{
			Status:  regions.StatusNotFound,
			Message: "no blocks to process",
			Diagnostics: regions.Diagnostics{
				RunID:   runID,
				Mode:    string(mode),
				Elapsed: time.Since(started),
			},
		}
	}

	if mode == ModeNormal {
		if deadline := e.cfg.DeadlineDuration(); deadline > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deadline)
			defer cancel()
		}
	}

	result = e.runPass(ctx, runID, blks, mode, started)

	if result.Status == regions.StatusLowCoverage && mode == ModeNormal {
		e.logger.InfoContext(
			ctx, "coverage below threshold, escalating",
			"run_id", runID,
			"coverage_ratio", result.Diagnostics.CoverageRatio,
			"missing_kinds", result.Diagnostics.MissingKinds,
		)
		result = e.runPass(ctx, runID, blks, ModeEnhanced, started)
	}

	return result
}

func (e *Engine) runPass(ctx context.Context, runID uuid.UUID, blks []blocks.Block, mode Mode, started time.Time) *regions.ExtractionResult {
	recallSet := e.recallSettings(mode)
	idx := blocks.NewIndex(blks)

	scored := e.scorer.ScoreAll(blks)
	scores := make([]float64, len(scored))
	for i, sb := range scored {
		scores[i] = sb.Score
	}

	windows, evidences := recall.Recall(scored, recallSet)
	e.logger.InfoContext(
		ctx, "recall complete",
		"run_id", runID,
		"mode", mode,
		"window_count", len(windows),
		"evidence_count", len(evidences),
	)

	results, counters := e.classifyWindows(ctx, windows, idx)

	refineSet := e.refineSettings(recallSet.MinEvidenceScore)
	var spans []regions.Span
	for _, res := range results {
		if res == nil || !res.IsTarget {
			continue
		}
		if span := refine.Refine(res, idx, scores, refineSet); span != nil {
			spans = append(spans, *span)
		}
	}

	spans, droppedByDedup := dedup.Merge(spans, idx)
	sortSpans(spans, idx)

	assessment := coverage.Evaluate(spans, evidences, blks, coverage.Settings{
		MinRatio:             e.cfg.Coverage.MinRatio,
		ExpectedKinds:        e.cfg.Coverage.ParsedExpectedKinds(),
		ImageAnchorToNeedOCR: e.cfg.Coverage.ImageAnchorToNeedOCR,
		LowTextDensity:       e.cfg.Coverage.LowTextDensity,
	})

	partial := ctx.Err() != nil
	message := assessment.Message
	if partial {
		message += "; soft deadline reached, result is partial"
	}

	e.logger.InfoContext(
		ctx, "extraction pass complete",
		"run_id", runID,
		"mode", mode,
		"status", assessment.Status,
		"span_count", len(spans),
		"coverage_ratio", assessment.Ratio,
		"oracle_calls", counters.oracleCalls,
		"cache_hits", counters.cacheHits,
		"cache_size", e.cache.Len(),
	)

	return &regions.ExtractionResult{
		Status:    assessment.Status,
		Spans:     spans,
		Evidences: evidences,
		Message:   message,
		Diagnostics: regions.Diagnostics{
			RunID:            runID,
			Mode:             string(mode),
			EvidenceCount:    len(evidences),
			WindowCount:      len(windows),
			ClassifierEvents: counters.events,
			OracleCalls:      counters.oracleCalls,
			CacheHits:        counters.cacheHits,
			DedupDropped:     droppedByDedup,
			CoverageRatio:    assessment.Ratio,
			MissingKinds:     assessment.Missing,
			TotalBlocks:      len(blks),
			TextDensity:      assessment.TextDensity,
			ImageAnchorCount: assessment.ImageAnchorCount,
			Partial:          partial,
			Elapsed:          time.Since(started),
		},
	}
}

type passCounters struct {
	events      int
	oracleCalls int
	cacheHits   int
}

// classifyWindows dispatches window classification across a bounded worker
// pool. Each window depends only on its own blocks and the shared cache, so
// windows are classified independently; a failed window is skipped, never
// failing the pass. The barrier on Wait guarantees refinement only sees
// settled results.
func (e *Engine) classifyWindows(ctx context.Context, windows []recall.Window, idx *blocks.Index) ([]*classify.Result, passCounters) {
	results := make([]*classify.Result, len(windows))

	var mu sync.Mutex
	var counters passCounters

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount(len(windows)))

	for i, win := range windows {
		g.Go(func() error {
			// errgroup does not recover worker panics; a faulty oracle
			// adapter must cost one window, not the process.
			defer func() {
				if r := recover(); r != nil {
					e.logger.ErrorContext(
						gctx, "window classification fault",
						"window_start", win.Start,
						"window_end", win.End,
						"fault", r,
					)
				}
			}()

			if gctx.Err() != nil {
				return nil
			}

			outcome, err := e.classifier.Classify(gctx, win, idx)

			mu.Lock()
			counters.events++
			if outcome.FromCache {
				counters.cacheHits++
			} else if err == nil {
				counters.oracleCalls++
			}
			mu.Unlock()

			if err != nil {
				e.logger.WarnContext(
					gctx, "window classification skipped",
					"window_start", win.Start,
					"window_end", win.End,
					"error", err,
				)
				return nil
			}

			results[i] = outcome.Result
			return nil
		})
	}

	// Workers always return nil; Wait is purely a barrier.
	_ = g.Wait()

	return results, counters
}

func (e *Engine) recallSettings(mode Mode) recall.Settings {
	rc := e.cfg.RecallNormal
	if mode == ModeEnhanced {
		rc = e.cfg.RecallEnhanced
	}
	return recall.Settings{
		MinEvidenceScore: rc.MinEvidenceScore,
		WindowRadius:     rc.WindowRadius,
		MaxWindows:       rc.MaxWindows,
		MaxEvidences:     e.cfg.MaxEvidences,
	}
}

func (e *Engine) refineSettings(minEvidenceScore float64) refine.Settings {
	return refine.Settings{
		LookbackBlocks:        e.cfg.Refine.LookbackBlocks,
		TailTrimBlocks:        e.cfg.Refine.TailTrimBlocks,
		NextAnchorMinDistance: e.cfg.Refine.NextAnchorMinDistance,
		MaxSpanBlocks:         e.cfg.Refine.MaxSpanBlocks,
		MaxSpanChars:          e.cfg.Refine.MaxSpanChars,
		MinEvidenceScore:      minEvidenceScore,
		TitleKeywords:         e.cfg.Keywords.Title,
		ChapterPatterns:       e.cfg.Refine.CompiledChapterPatterns(),
	}
}

func (e *Engine) workerCount(windowCount int) int {
	if e.cfg.Classifier.Workers > 0 {
		return e.cfg.Classifier.Workers
	}
	return max(min(runtime.NumCPU(), windowCount), 1)
}

// sortSpans restores document order before spans are handed to callers.
func sortSpans(spans []regions.Span, idx *blocks.Index) {
	sort.SliceStable(spans, func(i, j int) bool {
		pi, _ := idx.Position(spans[i].StartBlockID)
		pj, _ := idx.Position(spans[j].StartBlockID)
		return pi < pj
	})
}

func faultResult(runID uuid.UUID, mode Mode, message string, elapsed time.Duration) *regions.ExtractionResult {
	return &regions.ExtractionResult{
		Status:  regions.StatusNotFound,
		Message: message,
		Diagnostics: regions.Diagnostics{
			RunID:   runID,
			Mode:    string(mode),
			Elapsed: elapsed,
		},
	}
}
