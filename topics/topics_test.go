package topics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"trendbot/generation"
	"trendbot/types"
)

func content(title, body string) *types.NormalizedContent {
	return &types.NormalizedContent{
		Locator: "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Title:   title,
		Body:    body,
	}
}

func TestBuildPromptStopsAtBudget(t *testing.T) {
	body := strings.Repeat("word ", 100) // 500 chars
	contents := []*types.NormalizedContent{
		content("One", body), content("Two", body), content("Three", body),
	}

	prompt, included := BuildPrompt(contents, 1200)
	require.Equal(t, 2, included)
	require.Contains(t, prompt, "Title: One")
	require.Contains(t, prompt, "Title: Two")
	require.NotContains(t, prompt, "Title: Three")
}

func TestBuildPromptTruncatesOversizedFirstSource(t *testing.T) {
	contents := []*types.NormalizedContent{content("Huge", strings.Repeat("x", 5000))}

	prompt, included := BuildPrompt(contents, 1000)
	require.Equal(t, 1, included)
	require.LessOrEqual(t, len(prompt)-len(instructions), 1000)
}

func TestParseJSONArray(t *testing.T) {
	reply := `[
		{"title":"Rust in the kernel","description":"Drivers land.","category":"Technology","trendingScore":87,"relevance":"systems"},
		{"title":"Low score","description":"x","category":"misc","trendingScore":12,"relevance":""},
		{"title":"Too hot","description":"y","category":"misc","trendingScore":250,"relevance":""}
	]`

	got, lossy := Parse(reply)
	require.False(t, lossy)
	require.Len(t, got, 2)
	require.Equal(t, "Rust in the kernel", got[0].Title)
	require.Equal(t, "technology", got[0].Category)
	require.Equal(t, 87, got[0].TrendingScore)
	require.Equal(t, 100, got[1].TrendingScore)
}

func TestParseArrayInProseAndFences(t *testing.T) {
	reply := "Here are the topics you asked for:\n```json\n[{\"title\":\"AI chips\",\"trendingScore\":\"64\"}]\n```\nHope this helps [1]."

	got, lossy := Parse(reply)
	require.False(t, lossy)
	require.Len(t, got, 1)
	require.Equal(t, "AI chips", got[0].Title)
	require.Equal(t, 64, got[0].TrendingScore)
}

func TestParseTopicsWrapper(t *testing.T) {
	got, lossy := Parse(`{"topics":[{"title":"Solar records","trendingScore":71.6}]}`)
	require.False(t, lossy)
	require.Len(t, got, 1)
	require.Equal(t, 72, got[0].TrendingScore)
}

func TestParseClampsHugeScores(t *testing.T) {
	got, lossy := Parse(`[{"title":"Huge","trendingScore":1e20},{"title":"Negative","trendingScore":"-1e30"}]`)
	require.False(t, lossy)
	require.Len(t, got, 1)
	require.Equal(t, "Huge", got[0].Title)
	require.Equal(t, 100, got[0].TrendingScore)
}

func TestParseSkipsCitationArrays(t *testing.T) {
	reply := "As reported [1] and [2, 3], these are trending:\n[{\"title\":\"Grid batteries\",\"trendingScore\":77}]"

	got, lossy := Parse(reply)
	require.False(t, lossy)
	require.Len(t, got, 1)
	require.Equal(t, "Grid batteries", got[0].Title)
}

func TestParseEmptyArray(t *testing.T) {
	got, lossy := Parse("[]")
	require.False(t, lossy)
	require.Empty(t, got)
}

func TestParseSkipsMistypedItems(t *testing.T) {
	got, _ := Parse(`[{"title":42,"trendingScore":90},{"title":"No score"},{"title":"Ok","trendingScore":55},"junk"]`)
	require.Len(t, got, 1)
	require.Equal(t, "Ok", got[0].Title)
}

func TestParseLineFallback(t *testing.T) {
	reply := `I could not format JSON, sorry.
1. Quantum networking: Labs link two quantum computers over fiber.
2) **Housing costs** - Rents keep climbing in major cities.
- Not a topic line
* Open source funding: Maintainers push for sustainable sponsorship.`

	got, lossy := Parse(reply)
	require.True(t, lossy)
	require.Len(t, got, 3)
	require.Equal(t, "Quantum networking", got[0].Title)
	require.Equal(t, "Housing costs", got[1].Title)
	for _, topic := range got {
		require.Equal(t, FallbackScore, topic.TrendingScore)
	}
}

func TestParseGarbageNeverPanics(t *testing.T) {
	for _, reply := range []string{"", "[", "{\"topics\":", "]]][[[", "```", "null"} {
		require.NotPanics(t, func() { Parse(reply) })
	}
}

func TestDedupe(t *testing.T) {
	in := []types.ExtractedTopic{
		{Title: "Apple unveils new iPhone model today", TrendingScore: 60},
		{Title: "APPLE UNVEILS NEW IPHONE MODEL TODAY ", TrendingScore: 99},
		{Title: "Apple unveils new iPhone model today again", TrendingScore: 80},
		{Title: "Mars rover finds water", TrendingScore: 50},
	}

	got := Dedupe(in)
	require.Len(t, got, 2)
	require.Equal(t, "Apple unveils new iPhone model today again", got[0].Title)
	require.Equal(t, 80, got[0].TrendingScore)
	require.Equal(t, "Mars rover finds water", got[1].Title)
}

func TestExtract(t *testing.T) {
	var prompt string
	gen := generation.Func(func(_ context.Context, p string) (string, error) {
		prompt = p
		return `[{"title":"Go 1.24 released","description":"New release.","category":"technology","trendingScore":77,"relevance":"devs"}]`, nil
	})

	ex := New(gen, 0, nil)
	got, err := ex.Extract(context.Background(), []*types.NormalizedContent{content("Go release", strings.Repeat("go ", 50))})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Contains(t, prompt, "Title: Go release")
}

func TestExtractGenerationFailures(t *testing.T) {
	contents := []*types.NormalizedContent{content("Any", "body text")}

	failing := New(generation.Func(func(context.Context, string) (string, error) {
		return "", errors.New("upstream 503")
	}), 0, nil)
	_, err := failing.Extract(context.Background(), contents)
	var f *types.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, types.GenerationFailure, f.Kind)

	empty := New(generation.Func(func(context.Context, string) (string, error) {
		return "  \n", nil
	}), 0, nil)
	_, err = empty.Extract(context.Background(), contents)
	require.ErrorAs(t, err, &f)
	require.Equal(t, types.GenerationFailure, f.Kind)
}

func TestExtractNoContentSkipsCall(t *testing.T) {
	called := false
	ex := New(generation.Func(func(context.Context, string) (string, error) {
		called = true
		return "", nil
	}), 0, nil)

	got, err := ex.Extract(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, got)
	require.False(t, called)
}
