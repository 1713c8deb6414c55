package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/formscout/formscout/internal/regions"
)

// RecallConfig holds one mode's anchor selection parameters.
type RecallConfig struct {
	MinEvidenceScore float64 `toml:"min_evidence_score"`
	WindowRadius     int     `toml:"window_radius"`
	MaxWindows       int     `toml:"max_windows"`
}

// Merge overwrites non-zero fields from overlay.
func (c *RecallConfig) Merge(overlay *RecallConfig) {
	if overlay.MinEvidenceScore != 0 {
		c.MinEvidenceScore = overlay.MinEvidenceScore
	}
	if overlay.WindowRadius != 0 {
		c.WindowRadius = overlay.WindowRadius
	}
	if overlay.MaxWindows != 0 {
		c.MaxWindows = overlay.MaxWindows
	}
}

// KeywordConfig holds the scorer and refiner keyword lists.
type KeywordConfig struct {
	Strong    []string `toml:"strong"`
	Weak      []string `toml:"weak"`
	Signature []string `toml:"signature"`
	Marker    []string `toml:"marker"`
	Title     []string `toml:"title"`
}

// Merge overwrites non-empty lists from overlay.
func (c *KeywordConfig) Merge(overlay *KeywordConfig) {
	if len(overlay.Strong) > 0 {
		c.Strong = overlay.Strong
	}
	if len(overlay.Weak) > 0 {
		c.Weak = overlay.Weak
	}
	if len(overlay.Signature) > 0 {
		c.Signature = overlay.Signature
	}
	if len(overlay.Marker) > 0 {
		c.Marker = overlay.Marker
	}
	if len(overlay.Title) > 0 {
		c.Title = overlay.Title
	}
}

// RefineConfig holds span boundary-repair parameters.
type RefineConfig struct {
	MaxSpanBlocks         int      `toml:"max_span_blocks"`
	MaxSpanChars          int      `toml:"max_span_chars"`
	LookbackBlocks        int      `toml:"lookback_blocks"`
	TailTrimBlocks        int      `toml:"tail_trim_blocks"`
	NextAnchorMinDistance int      `toml:"next_anchor_min_distance"`
	ChapterPatterns       []string `toml:"chapter_patterns"`

	compiled []*regexp.Regexp
}

// Merge overwrites non-zero fields from overlay.
func (c *RefineConfig) Merge(overlay *RefineConfig) {
	if overlay.MaxSpanBlocks != 0 {
		c.MaxSpanBlocks = overlay.MaxSpanBlocks
	}
	if overlay.MaxSpanChars != 0 {
		c.MaxSpanChars = overlay.MaxSpanChars
	}
	if overlay.LookbackBlocks != 0 {
		c.LookbackBlocks = overlay.LookbackBlocks
	}
	if overlay.TailTrimBlocks != 0 {
		c.TailTrimBlocks = overlay.TailTrimBlocks
	}
	if overlay.NextAnchorMinDistance != 0 {
		c.NextAnchorMinDistance = overlay.NextAnchorMinDistance
	}
	if len(overlay.ChapterPatterns) > 0 {
		c.ChapterPatterns = overlay.ChapterPatterns
	}
}

// CompiledChapterPatterns returns the chapter patterns compiled during
// validation. Only valid after Finalize.
func (c *RefineConfig) CompiledChapterPatterns() []*regexp.Regexp {
	return c.compiled
}

// CoverageConfig holds coverage evaluation thresholds and the expected
// region taxonomy.
type CoverageConfig struct {
	MinRatio             float64  `toml:"min_ratio"`
	ExpectedKinds        []string `toml:"expected_kinds"`
	ImageAnchorToNeedOCR int      `toml:"image_anchor_to_need_ocr"`
	LowTextDensity       float64  `toml:"low_text_density"`

	parsedKinds []regions.Kind
}

// Merge overwrites non-zero fields from overlay.
func (c *CoverageConfig) Merge(overlay *CoverageConfig) {
	if overlay.MinRatio != 0 {
		c.MinRatio = overlay.MinRatio
	}
	if len(overlay.ExpectedKinds) > 0 {
		c.ExpectedKinds = overlay.ExpectedKinds
	}
	if overlay.ImageAnchorToNeedOCR != 0 {
		c.ImageAnchorToNeedOCR = overlay.ImageAnchorToNeedOCR
	}
	if overlay.LowTextDensity != 0 {
		c.LowTextDensity = overlay.LowTextDensity
	}
}

// ParsedExpectedKinds returns the expected kinds validated against the
// closed taxonomy. Only valid after Finalize.
func (c *CoverageConfig) ParsedExpectedKinds() []regions.Kind {
	return c.parsedKinds
}

// ClassifierConfig holds window classification dispatch limits.
type ClassifierConfig struct {
	Workers       int `toml:"workers"`
	PerBlockChars int `toml:"per_block_chars"`
	TotalChars    int `toml:"total_chars"`
}

// Merge overwrites non-zero fields from overlay.
func (c *ClassifierConfig) Merge(overlay *ClassifierConfig) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.PerBlockChars != 0 {
		c.PerBlockChars = overlay.PerBlockChars
	}
	if overlay.TotalChars != 0 {
		c.TotalChars = overlay.TotalChars
	}
}

// EngineConfig is the full tuning surface of the extraction pipeline.
type EngineConfig struct {
	RecallNormal   RecallConfig     `toml:"recall_normal"`
	RecallEnhanced RecallConfig     `toml:"recall_enhanced"`
	MaxEvidences   int              `toml:"max_evidences"`
	Keywords       KeywordConfig    `toml:"keywords"`
	Refine         RefineConfig     `toml:"refine"`
	Coverage       CoverageConfig   `toml:"coverage"`
	Classifier     ClassifierConfig `toml:"classifier"`
	Deadline       string           `toml:"deadline"`
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *EngineConfig) Merge(overlay *EngineConfig) {
	c.RecallNormal.Merge(&overlay.RecallNormal)
	c.RecallEnhanced.Merge(&overlay.RecallEnhanced)
	if overlay.MaxEvidences != 0 {
		c.MaxEvidences = overlay.MaxEvidences
	}
	c.Keywords.Merge(&overlay.Keywords)
	c.Refine.Merge(&overlay.Refine)
	c.Coverage.Merge(&overlay.Coverage)
	c.Classifier.Merge(&overlay.Classifier)
	if overlay.Deadline != "" {
		c.Deadline = overlay.Deadline
	}
}

// Finalize applies defaults, environment overrides, and validation.
func (c *EngineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// DeadlineDuration returns Deadline as a time.Duration.
func (c *EngineConfig) DeadlineDuration() time.Duration {
	d, _ := time.ParseDuration(c.Deadline)
	return d
}

func (c *EngineConfig) loadDefaults() {
	if c.RecallNormal == (RecallConfig{}) {
		c.RecallNormal = RecallConfig{MinEvidenceScore: 0.6, WindowRadius: 5, MaxWindows: 8}
	}
	if c.RecallEnhanced == (RecallConfig{}) {
		c.RecallEnhanced = RecallConfig{MinEvidenceScore: 0.35, WindowRadius: 8, MaxWindows: 12}
	}
	if c.MaxEvidences == 0 {
		c.MaxEvidences = 20
	}
	if len(c.Keywords.Strong) == 0 {
		c.Keywords.Strong = []string{
			"投标函", "开标一览表", "授权委托书", "法定代表人身份证明",
			"工程量清单", "投标保证金", "报价表", "资格审查",
		}
	}
	if len(c.Keywords.Weak) == 0 {
		c.Keywords.Weak = []string{"投标", "招标", "填写", "报价", "格式要求"}
	}
	if len(c.Keywords.Signature) == 0 {
		c.Keywords.Signature = []string{"签字", "盖章", "（签章）", "年　月　日", "年 月 日"}
	}
	if len(c.Keywords.Marker) == 0 {
		c.Keywords.Marker = []string{"附表", "格式", "样表", "附件"}
	}
	if len(c.Keywords.Title) == 0 {
		c.Keywords.Title = []string{"格式", "附表", "样表", "附件", "之一", "之二", "之三"}
	}
	if c.Refine.MaxSpanBlocks == 0 {
		c.Refine.MaxSpanBlocks = 120
	}
	if c.Refine.MaxSpanChars == 0 {
		c.Refine.MaxSpanChars = 8000
	}
	if c.Refine.LookbackBlocks == 0 {
		c.Refine.LookbackBlocks = 5
	}
	if c.Refine.TailTrimBlocks == 0 {
		c.Refine.TailTrimBlocks = 3
	}
	if c.Refine.NextAnchorMinDistance == 0 {
		c.Refine.NextAnchorMinDistance = 10
	}
	if len(c.Refine.ChapterPatterns) == 0 {
		c.Refine.ChapterPatterns = []string{
			`^第[一二三四五六七八九十百0-9]+[章节部分篇]`,
		}
	}
	if c.Coverage.MinRatio == 0 {
		c.Coverage.MinRatio = 0.75
	}
	if len(c.Coverage.ExpectedKinds) == 0 {
		c.Coverage.ExpectedKinds = []string{
			string(regions.KindBidLetter),
			string(regions.KindBidOpeningTable),
			string(regions.KindPowerOfAttorney),
		}
	}
	if c.Coverage.ImageAnchorToNeedOCR == 0 {
		c.Coverage.ImageAnchorToNeedOCR = 3
	}
	if c.Coverage.LowTextDensity == 0 {
		c.Coverage.LowTextDensity = 0.15
	}
	if c.Classifier.PerBlockChars == 0 {
		c.Classifier.PerBlockChars = 200
	}
	if c.Classifier.TotalChars == 0 {
		c.Classifier.TotalChars = 12000
	}
	if c.Deadline == "" {
		c.Deadline = "2m"
	}
}

func (c *EngineConfig) loadEnv() {
	if v := getenv(EnvDeadline); v != "" {
		c.Deadline = v
	}
}

func (c *EngineConfig) validate() error {
	if c.RecallNormal.MinEvidenceScore <= 0 {
		return fmt.Errorf("recall_normal.min_evidence_score must be positive")
	}
	if c.RecallEnhanced.MinEvidenceScore <= 0 {
		return fmt.Errorf("recall_enhanced.min_evidence_score must be positive")
	}
	if c.RecallEnhanced.MinEvidenceScore > c.RecallNormal.MinEvidenceScore {
		return fmt.Errorf("recall_enhanced.min_evidence_score must not exceed the normal threshold")
	}
	if c.Coverage.MinRatio < 0 || c.Coverage.MinRatio > 1 {
		return fmt.Errorf("coverage.min_ratio must be within [0, 1]")
	}
	if _, err := time.ParseDuration(c.Deadline); err != nil {
		return fmt.Errorf("invalid deadline: %w", err)
	}

	c.Refine.compiled = c.Refine.compiled[:0]
	for _, pattern := range c.Refine.ChapterPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid chapter pattern %q: %w", pattern, err)
		}
		c.Refine.compiled = append(c.Refine.compiled, re)
	}

	c.Coverage.parsedKinds = c.Coverage.parsedKinds[:0]
	for _, raw := range c.Coverage.ExpectedKinds {
		kind, err := regions.ParseKind(raw)
		if err != nil {
			return fmt.Errorf("invalid expected kind %q: %w", raw, err)
		}
		c.Coverage.parsedKinds = append(c.Coverage.parsedKinds, kind)
	}

	return nil
}
