package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/formscout/formscout/internal/config"
	"github.com/formscout/formscout/internal/regions"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvFormscoutEnv,
		config.EnvDeadline,
		config.EnvVersion,
		config.EnvOracleProvider,
		config.EnvOracleModel,
		config.EnvOracleBaseURL,
		config.EnvOracleAPIKey,
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Version != "0.1.0" {
		t.Errorf("version = %s, want 0.1.0", cfg.Version)
	}
	if cfg.Env() != "local" {
		t.Errorf("env = %s, want local", cfg.Env())
	}

	normal := cfg.Engine.RecallNormal
	if normal.MinEvidenceScore != 0.6 || normal.WindowRadius != 5 || normal.MaxWindows != 8 {
		t.Errorf("recall_normal = %+v, want {0.6 5 8}", normal)
	}
	enhanced := cfg.Engine.RecallEnhanced
	if enhanced.MinEvidenceScore != 0.35 || enhanced.WindowRadius != 8 || enhanced.MaxWindows != 12 {
		t.Errorf("recall_enhanced = %+v, want {0.35 8 12}", enhanced)
	}

	if cfg.Engine.DeadlineDuration() != 2*time.Minute {
		t.Errorf("deadline = %v, want 2m", cfg.Engine.DeadlineDuration())
	}
	if len(cfg.Engine.Keywords.Strong) == 0 || len(cfg.Engine.Keywords.Weak) == 0 {
		t.Error("keyword defaults missing")
	}
	if got := len(cfg.Engine.Refine.CompiledChapterPatterns()); got != 1 {
		t.Errorf("compiled chapter patterns = %d, want 1", got)
	}

	kinds := cfg.Engine.Coverage.ParsedExpectedKinds()
	want := []regions.Kind{regions.KindBidLetter, regions.KindBidOpeningTable, regions.KindPowerOfAttorney}
	if len(kinds) != len(want) {
		t.Fatalf("expected kinds = %v, want %v", kinds, want)
	}
	for i, kind := range want {
		if kinds[i] != kind {
			t.Errorf("expected kinds[%d] = %s, want %s", i, kinds[i], kind)
		}
	}

	if cfg.Oracle.Provider != config.ProviderGemini {
		t.Errorf("provider = %s, want gemini", cfg.Oracle.Provider)
	}
	if cfg.Oracle.TimeoutDuration() != 60*time.Second {
		t.Errorf("oracle timeout = %v, want 60s", cfg.Oracle.TimeoutDuration())
	}
}

func TestLoadBaseFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.toml", `
version = "1.2.3"

[engine]
deadline = "45s"

[engine.recall_normal]
min_evidence_score = 0.7
window_radius = 4
max_windows = 6

[oracle]
provider = "openai"
model = "gpt-4o-mini"
base_url = "http://localhost:8080/v1"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Version != "1.2.3" {
		t.Errorf("version = %s, want 1.2.3", cfg.Version)
	}
	if cfg.Engine.Deadline != "45s" {
		t.Errorf("deadline = %s, want 45s", cfg.Engine.Deadline)
	}
	if cfg.Engine.RecallNormal.MinEvidenceScore != 0.7 {
		t.Errorf("normal threshold = %v, want 0.7", cfg.Engine.RecallNormal.MinEvidenceScore)
	}
	// Unset sections still receive defaults.
	if cfg.Engine.RecallEnhanced.MinEvidenceScore != 0.35 {
		t.Errorf("enhanced threshold = %v, want default 0.35", cfg.Engine.RecallEnhanced.MinEvidenceScore)
	}
	if cfg.Engine.Refine.MaxSpanBlocks != 120 {
		t.Errorf("max span blocks = %d, want default 120", cfg.Engine.Refine.MaxSpanBlocks)
	}
	if cfg.Oracle.Provider != config.ProviderOpenAI {
		t.Errorf("provider = %s, want openai", cfg.Oracle.Provider)
	}
	if cfg.Oracle.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("base url = %s", cfg.Oracle.BaseURL)
	}
}

func TestLoadOverlay(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvFormscoutEnv, "staging")

	writeConfig(t, dir, "config.toml", `
version = "1.0.0"

[engine]
deadline = "90s"

[oracle]
model = "gemini-2.5-flash"
`)
	writeConfig(t, dir, "config.staging.toml", `
[engine]
deadline = "30s"
`)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Engine.Deadline != "30s" {
		t.Errorf("deadline = %s, want overlay value 30s", cfg.Engine.Deadline)
	}
	// Fields absent from the overlay keep their base values.
	if cfg.Version != "1.0.0" {
		t.Errorf("version = %s, want base value 1.0.0", cfg.Version)
	}
	if cfg.Oracle.Model != "gemini-2.5-flash" {
		t.Errorf("model = %s, want base value", cfg.Oracle.Model)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvDeadline, "10s")
	t.Setenv(config.EnvVersion, "9.9.9")
	t.Setenv(config.EnvOracleProvider, "openai")
	t.Setenv(config.EnvOracleModel, "qwen-plus")
	t.Setenv(config.EnvOracleBaseURL, "http://oracle.internal/v1")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Engine.Deadline != "10s" {
		t.Errorf("deadline = %s, want 10s", cfg.Engine.Deadline)
	}
	if cfg.Version != "9.9.9" {
		t.Errorf("version = %s, want 9.9.9", cfg.Version)
	}
	if cfg.Oracle.Provider != config.ProviderOpenAI {
		t.Errorf("provider = %s, want openai", cfg.Oracle.Provider)
	}
	if cfg.Oracle.Model != "qwen-plus" {
		t.Errorf("model = %s, want qwen-plus", cfg.Oracle.Model)
	}
	if cfg.Oracle.BaseURL != "http://oracle.internal/v1" {
		t.Errorf("base url = %s", cfg.Oracle.BaseURL)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "invalid deadline",
			content: `
[engine]
deadline = "soon"
`,
			wantErr: "invalid deadline",
		},
		{
			name: "invalid chapter pattern",
			content: `
[engine.refine]
chapter_patterns = ["^第[一二"]
`,
			wantErr: "invalid chapter pattern",
		},
		{
			name: "unknown expected kind",
			content: `
[engine.coverage]
expected_kinds = ["BID_LETTER", "BLUEPRINT"]
`,
			wantErr: "invalid expected kind",
		},
		{
			name: "enhanced threshold above normal",
			content: `
[engine.recall_enhanced]
min_evidence_score = 0.9
`,
			wantErr: "must not exceed",
		},
		{
			name: "coverage ratio out of range",
			content: `
[engine.coverage]
min_ratio = 1.5
`,
			wantErr: "min_ratio",
		},
		{
			name: "unknown oracle provider",
			content: `
[oracle]
provider = "carrier-pigeon"
`,
			wantErr: "unknown oracle provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			path := writeConfig(t, t.TempDir(), "config.toml", tt.content)

			_, err := config.Load(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestMergeSkipsZeroFields(t *testing.T) {
	base := &config.Config{Version: "1.0.0"}
	base.Engine.Deadline = "90s"
	base.Engine.Keywords.Strong = []string{"投标函"}
	base.Oracle.Model = "gemini-2.5-flash"

	base.Merge(&config.Config{})

	if base.Version != "1.0.0" || base.Engine.Deadline != "90s" || base.Oracle.Model != "gemini-2.5-flash" {
		t.Errorf("zero overlay must not clear base values: %+v", base)
	}

	overlay := &config.Config{}
	overlay.Engine.Deadline = "15s"
	overlay.Engine.Keywords.Strong = []string{"开标一览表"}
	base.Merge(overlay)

	if base.Engine.Deadline != "15s" {
		t.Errorf("deadline = %s, want 15s", base.Engine.Deadline)
	}
	if len(base.Engine.Keywords.Strong) != 1 || base.Engine.Keywords.Strong[0] != "开标一览表" {
		t.Errorf("strong keywords = %v, want overlay list", base.Engine.Keywords.Strong)
	}
	if base.Version != "1.0.0" {
		t.Errorf("version = %s, want untouched 1.0.0", base.Version)
	}
}
