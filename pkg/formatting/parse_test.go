package formatting_test

import (
	"errors"
	"testing"

	"github.com/formscout/formscout/pkg/formatting"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestParse(t *testing.T) {
	t.Run("direct JSON", func(t *testing.T) {
		got, err := formatting.Parse[sample](`{"name":"test","value":42}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "test" || got.Value != 42 {
			t.Errorf("Parse = %+v, want {Name:test Value:42}", got)
		}
	})

	t.Run("markdown fenced JSON", func(t *testing.T) {
		input := "```json\n{\"name\":\"fenced\",\"value\":7}\n```"
		got, err := formatting.Parse[sample](input)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "fenced" || got.Value != 7 {
			t.Errorf("Parse = %+v, want {Name:fenced Value:7}", got)
		}
	})

	t.Run("fenced with surrounding text", func(t *testing.T) {
		input := "Here is the result:\n```json\n{\"name\":\"wrapped\",\"value\":5}\n```\nDone."
		got, err := formatting.Parse[sample](input)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "wrapped" {
			t.Errorf("Name = %q, want wrapped", got.Name)
		}
	})

	t.Run("invalid content returns ErrParseFailed", func(t *testing.T) {
		_, err := formatting.Parse[sample]("not json at all")
		if !errors.Is(err, formatting.ErrParseFailed) {
			t.Errorf("error = %v, want ErrParseFailed", err)
		}
	})
}

func TestExtractJSON(t *testing.T) {
	t.Run("bare object passes through", func(t *testing.T) {
		got := formatting.ExtractJSON(`{"a":1}`)
		if string(got) != `{"a":1}` {
			t.Errorf("ExtractJSON = %s", got)
		}
	})

	t.Run("strips code fence", func(t *testing.T) {
		got := formatting.ExtractJSON("```json\n{\"a\":1}\n```")
		if string(got) != `{"a":1}` {
			t.Errorf("ExtractJSON = %s", got)
		}
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"shorter than limit", "abc", 10, "abc"},
		{"exact limit", "abc", 3, "abc"},
		{"ascii truncated", "abcdef", 3, "abc"},
		{"cjk truncated by runes", "投标函格式文件", 3, "投标函"},
		{"zero limit", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatting.Truncate(tt.input, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	got := formatting.Snippet("  投标函\n\t格式   文件  ", 100)
	if got != "投标函 格式 文件" {
		t.Errorf("Snippet = %q", got)
	}
}
