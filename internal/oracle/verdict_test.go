package oracle_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/formscout/formscout/internal/oracle"
)

func TestParseVerdict(t *testing.T) {
	t.Run("negative verdict", func(t *testing.T) {
		v, err := oracle.ParseVerdict(`{"is_target": false, "confidence": 0.8, "reason": "no form"}`)
		if err != nil {
			t.Fatalf("ParseVerdict error: %v", err)
		}
		if v.IsTarget {
			t.Error("IsTarget = true, want false")
		}
		if v.Confidence != 0.8 {
			t.Errorf("Confidence = %v, want 0.8", v.Confidence)
		}
	})

	t.Run("positive verdict", func(t *testing.T) {
		raw := `{
			"is_target": true,
			"kind": "BID_LETTER",
			"display_title": "投标函",
			"start_block_id": "b1",
			"end_block_id": "b9",
			"confidence": 0.92,
			"evidence_block_ids": ["b1", "b4"],
			"reason": "title and form table"
		}`
		v, err := oracle.ParseVerdict(raw)
		if err != nil {
			t.Fatalf("ParseVerdict error: %v", err)
		}
		if !v.IsTarget || v.Kind != "BID_LETTER" || len(v.EvidenceBlockIDs) != 2 {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("fenced verdict", func(t *testing.T) {
		raw := "```json\n{\"is_target\": false, \"confidence\": 0.5}\n```"
		if _, err := oracle.ParseVerdict(raw); err != nil {
			t.Fatalf("ParseVerdict error: %v", err)
		}
	})

	tests := []struct {
		name string
		raw  string
	}{
		{"prose instead of JSON", "I could not find any form here."},
		{"missing is_target", `{"confidence": 0.5}`},
		{"missing confidence", `{"is_target": false}`},
		{"wrong types", `{"is_target": "yes", "confidence": "high"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := oracle.ParseVerdict(tt.raw)
			if !errors.Is(err, oracle.ErrInvalidResponse) {
				t.Errorf("error = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

func TestBudgetApply(t *testing.T) {
	req := oracle.Request{
		Blocks: []oracle.RequestBlock{
			{BlockID: "b1", Text: "一二三四五六七八九十"},
			{BlockID: "b2", Text: "一二三四五六七八九十"},
			{BlockID: "b3", Text: "一二三四五六七八九十"},
		},
	}

	t.Run("per-block cap", func(t *testing.T) {
		got := oracle.Budget{PerBlock: 4}.Apply(req)
		for _, b := range got.Blocks {
			if n := len([]rune(b.Text)); n > 4 {
				t.Errorf("block %s runes = %d, want <= 4", b.BlockID, n)
			}
		}
	})

	t.Run("total cap consumes front to back", func(t *testing.T) {
		got := oracle.Budget{Total: 15}.Apply(req)
		total := 0
		for _, b := range got.Blocks {
			total += len([]rune(b.Text))
		}
		if total > 15 {
			t.Errorf("total runes = %d, want <= 15", total)
		}
		if got.Blocks[0].Text != req.Blocks[0].Text {
			t.Error("first block should keep its full text")
		}
		if got.Blocks[2].Text != "" {
			t.Errorf("third block text = %q, want exhausted budget", got.Blocks[2].Text)
		}
	})

	t.Run("zero budget leaves text alone", func(t *testing.T) {
		got := oracle.Budget{}.Apply(req)
		for i, b := range got.Blocks {
			if b.Text != req.Blocks[i].Text {
				t.Errorf("block %d text changed", i)
			}
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	req := oracle.Request{
		Blocks: []oracle.RequestBlock{
			{BlockID: "b1", OrderNo: 1, Type: "paragraph", Text: "投标函（格式）"},
		},
		Kinds: []oracle.KindOption{
			{Name: "BID_LETTER", Description: "投标函"},
		},
	}

	prompt := oracle.BuildPrompt(req)

	for _, want := range []string{"b1", "paragraph", "投标函（格式）", "BID_LETTER", "is_target"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
