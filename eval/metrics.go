// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

// Metric scores a predicted value against an expected value on [0, 1].
type Metric interface {
	Name() string
	Score(ctx context.Context, expected, predicted string) (float64, error)
}

// New builds a metric by name. Semantic similarity needs an embedder and is
// built with NewSemanticSimilarity instead.
func New(name string) (Metric, error) {
	switch name {
	case "exact_match":
		return ExactMatch{}, nil
	case "tool_name_match":
		return ToolNameMatch{}, nil
	case "tool_action_match":
		return ToolActionMatch{}, nil
	case "url_match":
		return URLMatch{}, nil
	case "rouge_l":
		return RougeL{}, nil
	}
	return nil, fmt.Errorf("unknown metric %q", name)
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ExactMatch scores 1 when the two texts are equal after case folding and
// whitespace normalization.
type ExactMatch struct{}

func (ExactMatch) Name() string { return "exact_match" }

func (ExactMatch) Score(_ context.Context, expected, predicted string) (float64, error) {
	if normalizeText(expected) == normalizeText(predicted) {
		return 1, nil
	}
	return 0, nil
}

// toolCall is the JSON shape of a tool invocation expectation cell.
type toolCall struct {
	ToolName   string `json:"tool_name"`
	ToolAction string `json:"tool_action"`
}

func parseToolCall(s string) (toolCall, error) {
	var call toolCall
	if err := sonic.ConfigFastest.Unmarshal([]byte(s), &call); err != nil {
		return toolCall{}, fmt.Errorf("parse tool call %q: %w", s, err)
	}
	return call, nil
}

// ToolNameMatch scores 1 when both cells name the same tool.
type ToolNameMatch struct{}

func (ToolNameMatch) Name() string { return "tool_name_match" }

func (ToolNameMatch) Score(_ context.Context, expected, predicted string) (float64, error) {
	e, err := parseToolCall(expected)
	if err != nil {
		return 0, err
	}
	p, err := parseToolCall(predicted)
	if err != nil {
		return 0, err
	}
	if e.ToolName != "" && e.ToolName == p.ToolName {
		return 1, nil
	}
	return 0, nil
}

// ToolActionMatch scores 1 when both cells name the same tool and action.
type ToolActionMatch struct{}

func (ToolActionMatch) Name() string { return "tool_action_match" }

func (ToolActionMatch) Score(_ context.Context, expected, predicted string) (float64, error) {
	e, err := parseToolCall(expected)
	if err != nil {
		return 0, err
	}
	p, err := parseToolCall(predicted)
	if err != nil {
		return 0, err
	}
	if e.ToolName != "" && e.ToolName == p.ToolName && e.ToolAction == p.ToolAction {
		return 1, nil
	}
	return 0, nil
}

var urlPattern = regexp.MustCompile(`https?://[^\s)\]>"']+`)

// extractURLs pulls the distinct URLs out of a text, sorted, with trailing
// punctuation stripped.
func extractURLs(s string) []string {
	seen := map[string]struct{}{}
	for _, u := range urlPattern.FindAllString(s, -1) {
		u = strings.TrimRight(u, ".,;:")
		seen[u] = struct{}{}
	}
	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// URLMatch scores the fraction of expected URLs present in the prediction.
// Texts with no expected URLs score 1 when the prediction adds none and 0
// otherwise.
type URLMatch struct{}

func (URLMatch) Name() string { return "url_match" }

func (URLMatch) Score(_ context.Context, expected, predicted string) (float64, error) {
	want := extractURLs(expected)
	got := map[string]struct{}{}
	for _, u := range extractURLs(predicted) {
		got[u] = struct{}{}
	}
	if len(want) == 0 {
		if len(got) == 0 {
			return 1, nil
		}
		return 0, nil
	}
	matched := 0
	for _, u := range want {
		if _, ok := got[u]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(want)), nil
}

// RougeScore breaks a RougeL comparison into its components.
type RougeScore struct {
	Recall    float64
	Precision float64
	F1        float64
}

// RougeL scores longest-common-subsequence overlap between the token
// sequences of the two texts. Score returns the F1 component.
type RougeL struct{}

func (RougeL) Name() string { return "rouge_l" }

func (RougeL) Score(_ context.Context, expected, predicted string) (float64, error) {
	return RougeLScore(expected, predicted).F1, nil
}

// RougeLScore computes LCS recall against the reference tokens, precision
// against the candidate tokens, and their harmonic mean.
func RougeLScore(reference, candidate string) RougeScore {
	ref := strings.Fields(normalizeText(reference))
	cand := strings.Fields(normalizeText(candidate))
	if len(ref) == 0 || len(cand) == 0 {
		return RougeScore{}
	}
	lcs := float64(lcsLength(ref, cand))
	recall := lcs / float64(len(ref))
	precision := lcs / float64(len(cand))
	score := RougeScore{Recall: recall, Precision: precision}
	if recall+precision > 0 {
		score.F1 = 2 * recall * precision / (recall + precision)
	}
	return score
}

func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// SafeGeometricMean returns the geometric mean of values, or 0 when the
// input is empty or contains a non-positive value.
func SafeGeometricMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		if v <= 0 {
			return 0
		}
		sum += math.Log(v)
	}
	return math.Exp(sum / float64(len(values)))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// cosineSimilarity is the normalized dot product of two equal-length
// vectors.
func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("vector lengths %d and %d do not match", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
