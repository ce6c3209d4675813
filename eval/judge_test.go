// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeJudge replies from a canned map keyed by prompt substring.
type fakeJudge struct {
	replies map[string]string
}

func (f *fakeJudge) Generate(_ context.Context, prompt string) (string, error) {
	for key, reply := range f.replies {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return "", fmt.Errorf("no canned reply for prompt %q", prompt)
}

func TestStatementExtractor(t *testing.T) {
	judge := &fakeJudge{replies: map[string]string{
		"Answer: Paris is the capital.": `{"statements": ["Paris is the capital of France."]}`,
		"Answer: fenced":                "```json\n{\"statements\": [\"a\", \"b\"]}\n```",
	}}
	extractor := NewStatementExtractor(judge)
	ctx := context.Background()

	got, err := extractor.Extract(ctx, "What is the capital of France?", "Paris is the capital.")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Paris is the capital of France."}; !cmp.Equal(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}

	got, err = extractor.Extract(ctx, "q", "fenced")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a", "b"}; !cmp.Equal(got, want) {
		t.Errorf("Extract fenced = %v, want %v", got, want)
	}
}

func TestAnswerCorrectness(t *testing.T) {
	judge := &fakeJudge{replies: map[string]string{
		"Answer: The store opens at 9 and closes at 5.": `{"statements": ["The store opens at 9.", "The store closes at 5."]}`,
		"Answer: It opens at 9.":                        `{"statements": ["The store opens at 9."]}`,
		"Statement: The store opens at 9.":              `{"supported": true}`,
		"Statement: The store closes at 5.":             `{"supported": false}`,
	}}
	scorer := NewAnswerCorrectness(judge)

	score, err := scorer.Score(context.Background(),
		"When is the store open?",
		"The store opens at 9 and closes at 5.",
		"It opens at 9.",
	)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := score.Recall, 0.5; got != want {
		t.Errorf("recall = %v, want %v", got, want)
	}
	if got, want := score.Precision, 1.0; got != want {
		t.Errorf("precision = %v, want %v", got, want)
	}
	if got, want := score.Min, 0.5; got != want {
		t.Errorf("min = %v, want %v", got, want)
	}
	if got, want := score.Mean, 0.75; got != want {
		t.Errorf("mean = %v, want %v", got, want)
	}
	if got, want := score.GMean, math.Sqrt(0.5); math.Abs(got-want) > 1e-9 {
		t.Errorf("gmean = %v, want %v", got, want)
	}
}

// fakeCompletionJudge adds canned weighted completions on top of fakeJudge.
type fakeCompletionJudge struct {
	*fakeJudge
	completions map[string][]Completion
}

func (f *fakeCompletionJudge) GenerateCompletions(_ context.Context, prompt string) ([]Completion, error) {
	for key, completions := range f.completions {
		if strings.Contains(prompt, key) {
			return completions, nil
		}
	}
	return nil, fmt.Errorf("no canned completions for prompt %q", prompt)
}

func TestAnswerCorrectnessWeightsCompletions(t *testing.T) {
	judge := &fakeCompletionJudge{
		fakeJudge: &fakeJudge{replies: map[string]string{
			"Answer: The store opens at 9.": `{"statements": ["The store opens at 9."]}`,
			"Answer: It opens at 9.":        `{"statements": ["The store opens at 9."]}`,
		}},
		completions: map[string][]Completion{
			"Statement: The store opens at 9.": {
				{Text: `{"supported": true}`, LogProb: 0},
				{Text: `{"supported": false}`, LogProb: 0},
			},
		},
	}
	scorer := NewAnswerCorrectness(judge)

	score, err := scorer.Score(context.Background(),
		"When does the store open?",
		"The store opens at 9.",
		"It opens at 9.",
	)
	if err != nil {
		t.Fatal(err)
	}
	// Two equally likely verdicts split the grade down the middle.
	if got, want := score.Recall, 0.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("recall = %v, want %v", got, want)
	}
	if got, want := score.Precision, 0.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("precision = %v, want %v", got, want)
	}
	if got, want := score.GMean, 0.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("gmean = %v, want %v", got, want)
	}
}

func TestScoreCompletions(t *testing.T) {
	values := map[string]float64{"yes": 1, "no": 0}

	// Equal weights average the mapped values.
	completions := []Completion{
		{Text: "yes", LogProb: 0},
		{Text: "no", LogProb: 0},
	}
	if got := scoreCompletions(completions, values); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("equal weight score = %v, want 0.5", got)
	}

	// A much likelier completion dominates.
	completions = []Completion{
		{Text: "yes", LogProb: 0},
		{Text: "no", LogProb: -10},
	}
	if got := scoreCompletions(completions, values); got < 0.99 {
		t.Errorf("dominant completion score = %v, want near 1", got)
	}

	if got := scoreCompletions(nil, values); got != 0 {
		t.Errorf("empty completions score = %v, want 0", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"bare json":      {`{"a": 1}`, `{"a": 1}`},
		"json fence":     {"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		"plain fence":    {"```\n{\"a\": 1}\n```", `{"a": 1}`},
		"padded":         {"  {\"a\": 1}  ", `{"a": 1}`},
		"fence no close": {"```json\n{\"a\": 1}", `{"a": 1}`},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := stripCodeFence(tt.in); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultResultsTab(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	if got, want := DefaultResultsTab(now), "eval_results_20260825"; got != want {
		t.Errorf("DefaultResultsTab = %q, want %q", got, want)
	}
}
