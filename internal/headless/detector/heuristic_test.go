package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dropscout/internal/fetcher"
)

func TestHeuristicNeedsRender(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		resp fetcher.Response
		want bool
	}{
		{
			name: "empty body",
			resp: fetcher.Response{StatusCode: 200, Body: []byte("  \n")},
			want: true,
		},
		{
			name: "next app shell",
			resp: fetcher.Response{StatusCode: 200, Body: []byte(`<div id="__next"></div>`)},
			want: true,
		},
		{
			name: "script heavy thin page",
			resp: fetcher.Response{StatusCode: 200, Body: []byte(`<html><SCRIPT>var a=1;</SCRIPT><p>t</p></html>`)},
			want: true,
		},
		{
			name: "unterminated script",
			resp: fetcher.Response{StatusCode: 200, Body: []byte(`<p>hello</p><script src="x.js">`)},
			want: true,
		},
		{
			name: "static page",
			resp: fetcher.Response{
				StatusCode: 200,
				Body:       []byte(`<html><body><a href="https://x.com/zora">X</a>` + strings.Repeat("<p>docs</p>", 50) + `</body></html>`),
			},
			want: false,
		},
		{
			name: "non 2xx",
			resp: fetcher.Response{StatusCode: 404, Body: []byte("not found")},
			want: false,
		},
		{
			name: "already rendered",
			resp: fetcher.Response{StatusCode: 200, UsedHeadless: true},
			want: false,
		},
	}

	h := NewHeuristic(0)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, h.NeedsRender(tc.resp))
		})
	}
}

func TestNewHeuristicDefaults(t *testing.T) {
	t.Parallel()

	require.Equal(t, defaultThinBodyBytes, NewHeuristic(-1).ThinBodyBytes)
	require.Equal(t, 100, NewHeuristic(100).ThinBodyBytes)
}
