// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExactMatch(t *testing.T) {
	ctx := context.Background()
	tests := map[string]struct {
		expected  string
		predicted string
		want      float64
	}{
		"identical":              {"Hello there", "Hello there", 1},
		"case and space folding": {"Hello  There", "hello there", 1},
		"different":              {"Hello there", "Goodbye", 0},
		"both empty":             {"", "", 1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ExactMatch{}.Score(ctx, tt.expected, tt.predicted)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Score(%q, %q) = %v, want %v", tt.expected, tt.predicted, got, tt.want)
			}
		})
	}
}

func TestToolMatches(t *testing.T) {
	ctx := context.Background()
	expected := `{"tool_name": "store-locator", "tool_action": "search"}`

	nameMetric := ToolNameMatch{}
	actionMetric := ToolActionMatch{}

	if got, _ := nameMetric.Score(ctx, expected, `{"tool_name": "store-locator", "tool_action": "list"}`); got != 1 {
		t.Errorf("tool name match = %v, want 1", got)
	}
	if got, _ := actionMetric.Score(ctx, expected, `{"tool_name": "store-locator", "tool_action": "list"}`); got != 0 {
		t.Errorf("tool action match with wrong action = %v, want 0", got)
	}
	if got, _ := actionMetric.Score(ctx, expected, expected); got != 1 {
		t.Errorf("tool action self match = %v, want 1", got)
	}
	if _, err := nameMetric.Score(ctx, expected, "not json"); err == nil {
		t.Error("malformed tool call scored without error")
	}
}

func TestURLMatch(t *testing.T) {
	ctx := context.Background()
	tests := map[string]struct {
		expected  string
		predicted string
		want      float64
	}{
		"single url matches": {
			"See https://example.com/help.",
			"Visit https://example.com/help for details",
			1,
		},
		"half the urls match": {
			"https://a.test and https://b.test",
			"only https://a.test here",
			0.5,
		},
		"no urls on either side": {"plain text", "more text", 1},
		"unexpected url":         {"plain text", "https://a.test", 0},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := URLMatch{}.Score(ctx, tt.expected, tt.predicted)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRougeLScore(t *testing.T) {
	score := RougeLScore("the cat sat on the mat", "the cat on the mat")
	// LCS is "the cat on the mat", 5 tokens: recall 5/6, precision 5/5.
	if got, want := score.Recall, 5.0/6.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("recall = %v, want %v", got, want)
	}
	if got, want := score.Precision, 1.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("precision = %v, want %v", got, want)
	}
	wantF1 := 2 * (5.0 / 6.0) / (5.0/6.0 + 1.0)
	if got := score.F1; math.Abs(got-wantF1) > 1e-9 {
		t.Errorf("f1 = %v, want %v", got, wantF1)
	}

	if got := RougeLScore("", "anything"); got != (RougeScore{}) {
		t.Errorf("empty reference scored %+v, want zero", got)
	}
	if got := RougeLScore("same text", "same text").F1; got != 1 {
		t.Errorf("identical text f1 = %v, want 1", got)
	}
}

func TestLCSLength(t *testing.T) {
	tests := map[string]struct {
		a, b []string
		want int
	}{
		"disjoint":    {[]string{"a", "b"}, []string{"c", "d"}, 0},
		"subsequence": {[]string{"a", "b", "c", "d"}, []string{"b", "d"}, 2},
		"identical":   {[]string{"x", "y"}, []string{"x", "y"}, 2},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := lcsLength(tt.a, tt.b); got != tt.want {
				t.Errorf("lcsLength = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSafeGeometricMean(t *testing.T) {
	if got := SafeGeometricMean([]float64{4, 9}); math.Abs(got-6) > 1e-9 {
		t.Errorf("gmean(4, 9) = %v, want 6", got)
	}
	if got := SafeGeometricMean([]float64{1, 0}); got != 0 {
		t.Errorf("gmean with zero = %v, want 0", got)
	}
	if got := SafeGeometricMean(nil); got != 0 {
		t.Errorf("gmean of nothing = %v, want 0", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got, err := cosineSimilarity([]float64{1, 0}, []float64{1, 0}); err != nil || math.Abs(got-1) > 1e-9 {
		t.Errorf("cosine of identical = %v, %v, want 1", got, err)
	}
	if got, _ := cosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("cosine of orthogonal = %v, want 0", got)
	}
	if _, err := cosineSimilarity([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("mismatched lengths scored without error")
	}
}

func TestMetricFactory(t *testing.T) {
	for _, name := range []string{"exact_match", "tool_name_match", "tool_action_match", "url_match", "rouge_l"} {
		metric, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		if metric.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, metric.Name())
		}
	}
	if _, err := New("nope"); err == nil {
		t.Error("unknown metric built without error")
	}
}

func TestExtractURLs(t *testing.T) {
	got := extractURLs("see https://a.test/x, then http://b.test. Or https://a.test/x again")
	want := []string{"http://b.test", "https://a.test/x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extractURLs mismatch (-want +got):\n%s", diff)
	}
}
