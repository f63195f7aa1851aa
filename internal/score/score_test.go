package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreScenarios(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 50)

	tests := []struct {
		name     string
		text     string
		url      string
		verified bool
		want     int
	}{
		{
			name:     "verified official docs secure",
			text:     "Official launch, read the docs for the airdrop now",
			url:      "https://example.com",
			verified: true,
			want:     87,
		},
		{name: "baseline", text: "new airdrop", url: "", want: 50},
		{name: "insecure url", text: "new airdrop", url: "http://example.com", want: 50},
		{name: "dm bait", text: "dm me for access", url: "https://x.io", want: 47},
		{name: "dm with link", text: "dm or use link", url: "https://x.io", want: 55},
		{name: "long text", text: long, url: "", want: 58},
		{
			name:     "clamped high",
			text:     "docs official blog github mirror snapshot quest points",
			url:      "https://x.io",
			verified: true,
			want:     100,
		},
		{name: "empty", text: "", url: "", want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Score(tt.text, tt.url, tt.verified))
		})
	}
}

func TestScoreLengthUsesCollapsedWhitespace(t *testing.T) {
	t.Parallel()

	padded := "a" + strings.Repeat(" ", 300) + "b"
	require.Equal(t, 50, Score(padded, "", false))
}

func TestHardBlock(t *testing.T) {
	t.Parallel()

	require.True(t, HardBlock("Drop your SEED PHRASE here to claim"))
	require.True(t, HardBlock("pay the Activation Fee first"))
	require.True(t, HardBlock("guaranteed profit!!"))
	require.False(t, HardBlock("official docs are live"))
	require.False(t, HardBlock(""))
}

func FuzzScoreBounds(f *testing.F) {
	f.Add("official docs", "https://example.com", true)
	f.Add("", "", false)
	f.Add("dm dm dm", "http://%", false)
	f.Fuzz(func(t *testing.T, text, url string, verified bool) {
		got := Score(text, url, verified)
		if got < 0 || got > 100 {
			t.Errorf("Score(%q, %q, %v) = %d out of range", text, url, verified, got)
		}
	})
}
