package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "just some text", "just some text"},
		{"empty", "   ", ""},
		{"quote", "> quoted slur1", "quoted slur1"},
		{"link", "see [slur1 link](http://example.com/x) here", "see slur1 link here"},
		{"link with escaped parens", `[Pica (disorder)](http://en.wikipedia.org/wiki/Pica_\(disorder\))`, "Pica (disorder)"},
		{"strikethrough", "~~struck~~ text", "struck text"},
		{"spoiler", ">!hidden!< ok", "hidden ok"},
		{"inline spoiler", "before >!hidden!< after", "before hidden after"},
		{"escaped numbered list", `50\. Text`, "50. Text"},
		{"emphasis", "*very* **bold**", "very bold"},
		{"heading", "# Title", "Title"},
		{"nfc", "cafe\u0301", "caf\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_MultipleBlocks(t *testing.T) {
	got := Normalize("> first\n\nsecond paragraph")
	assert.Equal(t, "first\nsecond paragraph", got)
}

func TestNormalize_Deterministic(t *testing.T) {
	in := "> a [b](c) ~~d~~ >!e!< 1\\. f"
	assert.Equal(t, Normalize(in), Normalize(in))
}
