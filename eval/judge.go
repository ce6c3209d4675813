// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/bytedance/sonic"
	"google.golang.org/genai"
)

// Default judge models.
const (
	GeminiDefaultModel = "gemini-2.0-flash"
	ClaudeDefaultModel = "claude-3-5-sonnet-latest"
)

// Environment variables consulted for judge API keys when none is passed.
const (
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// Judge is a generative model used to grade agent answers.
type Judge interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CompletionJudge is a judge that can sample several completions for one
// prompt, each with a log probability weight. Graders soften a single
// boolean verdict into a weighted score when the judge supports this.
type CompletionJudge interface {
	Judge
	GenerateCompletions(ctx context.Context, prompt string) ([]Completion, error)
}

// GeminiJudge grades with a Gemini model.
type GeminiJudge struct {
	client *genai.Client
	model  string
}

var _ Judge = (*GeminiJudge)(nil)

// NewGeminiJudge creates a Gemini judge. An empty apiKey falls back to the
// GOOGLE_API_KEY environment variable; an empty model uses
// GeminiDefaultModel.
func NewGeminiJudge(ctx context.Context, apiKey, model string) (*GeminiJudge, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvGoogleAPIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("either apiKey arg or %q environment variable must be set", EnvGoogleAPIKey)
		}
	}
	if model == "" {
		model = GeminiDefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiJudge{client: client, model: model}, nil
}

// Generate sends one prompt and returns the model's text.
func (j *GeminiJudge) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.Models.GenerateContent(ctx, j.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	return resp.Text(), nil
}

// judgeCandidateCount is how many candidates GenerateCompletions samples.
const judgeCandidateCount = 4

var _ CompletionJudge = (*GeminiJudge)(nil)

// GenerateCompletions samples several candidates for one prompt and returns
// each with its average log probability.
func (j *GeminiJudge) GenerateCompletions(ctx context.Context, prompt string) ([]Completion, error) {
	resp, err := j.client.Models.GenerateContent(ctx, j.model, genai.Text(prompt), &genai.GenerateContentConfig{
		CandidateCount:   judgeCandidateCount,
		ResponseLogprobs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	var completions []Completion
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		completions = append(completions, Completion{Text: sb.String(), LogProb: cand.AvgLogprobs})
	}
	return completions, nil
}

// ClaudeJudge grades with a Claude model.
type ClaudeJudge struct {
	client anthropic.Client
	model  string
}

var _ Judge = (*ClaudeJudge)(nil)

// NewClaudeJudge creates a Claude judge. An empty apiKey falls back to the
// ANTHROPIC_API_KEY environment variable; an empty model uses
// ClaudeDefaultModel.
func NewClaudeJudge(apiKey, model string) (*ClaudeJudge, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvAnthropicAPIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("either apiKey arg or %q environment variable must be set", EnvAnthropicAPIKey)
		}
	}
	if model == "" {
		model = ClaudeDefaultModel
	}
	return &ClaudeJudge{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Generate sends one prompt and returns the model's text.
func (j *ClaudeJudge) Generate(ctx context.Context, prompt string) (string, error) {
	message, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(j.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}
	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Completion is one judge output with its log probability weight.
type Completion struct {
	Text    string
	LogProb float64
}

// scoreCompletions softmax-normalizes the completion weights and returns
// the normalized weight mass of completions whose text maps to a positive
// value. values maps a completion text to its numeric contribution.
func scoreCompletions(completions []Completion, values map[string]float64) float64 {
	if len(completions) == 0 {
		return 0
	}
	weights := make([]float64, len(completions))
	maxLP := completions[0].LogProb
	for _, c := range completions[1:] {
		if c.LogProb > maxLP {
			maxLP = c.LogProb
		}
	}
	var total float64
	for i, c := range completions {
		weights[i] = math.Exp(c.LogProb - maxLP)
		total += weights[i]
	}
	var score float64
	for i, c := range completions {
		score += weights[i] / total * values[normalizeText(c.Text)]
	}
	return score
}

// stripCodeFence unwraps a markdown code fence around a judge response.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// StatementExtractor decomposes an answer into self-contained statements
// through a judge model.
type StatementExtractor struct {
	judge Judge
}

// NewStatementExtractor builds an extractor on top of a judge.
func NewStatementExtractor(judge Judge) *StatementExtractor {
	return &StatementExtractor{judge: judge}
}

// Extract asks the judge to break the answer into statements and parses the
// JSON reply.
func (e *StatementExtractor) Extract(ctx context.Context, question, answer string) ([]string, error) {
	reply, err := e.judge.Generate(ctx, fmt.Sprintf(statementExtractionPrompt, question, answer))
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Statements []string `json:"statements"`
	}
	if err := sonic.ConfigFastest.Unmarshal([]byte(stripCodeFence(reply)), &parsed); err != nil {
		return nil, fmt.Errorf("parse statements from %q: %w", reply, err)
	}
	return parsed.Statements, nil
}

// CorrectnessScore aggregates answer correctness: recall of the reference
// statements, precision of the prediction statements, and three combined
// scores over the two.
type CorrectnessScore struct {
	Recall    float64
	Precision float64
	Min       float64
	Mean      float64
	GMean     float64
}

// AnswerCorrectness scores a predicted answer against a reference answer by
// statement entailment: recall counts reference statements supported by the
// prediction, precision counts prediction statements supported by the
// reference. A CompletionJudge grades each statement with the softmax-
// weighted mass of its supporting completions instead of a hard 0 or 1.
type AnswerCorrectness struct {
	judge     Judge
	extractor *StatementExtractor
}

// NewAnswerCorrectness builds the scorer on top of a judge.
func NewAnswerCorrectness(judge Judge) *AnswerCorrectness {
	return &AnswerCorrectness{
		judge:     judge,
		extractor: NewStatementExtractor(judge),
	}
}

// Score grades one prediction.
func (a *AnswerCorrectness) Score(ctx context.Context, question, reference, prediction string) (*CorrectnessScore, error) {
	referenceStatements, err := a.extractor.Extract(ctx, question, reference)
	if err != nil {
		return nil, fmt.Errorf("extract reference statements: %w", err)
	}
	predictionStatements, err := a.extractor.Extract(ctx, question, prediction)
	if err != nil {
		return nil, fmt.Errorf("extract prediction statements: %w", err)
	}

	recall, err := a.supportedFraction(ctx, referenceStatements, prediction)
	if err != nil {
		return nil, err
	}
	precision, err := a.supportedFraction(ctx, predictionStatements, reference)
	if err != nil {
		return nil, err
	}

	components := []float64{recall, precision}
	return &CorrectnessScore{
		Recall:    recall,
		Precision: precision,
		Min:       minValue(components),
		Mean:      mean(components),
		GMean:     SafeGeometricMean(components),
	}, nil
}

// supportedFraction grades each statement against the reference text and
// returns the mean grade. No statements scores 0.
func (a *AnswerCorrectness) supportedFraction(ctx context.Context, statements []string, referenceText string) (float64, error) {
	if len(statements) == 0 {
		return 0, nil
	}
	var total float64
	for _, statement := range statements {
		grade, err := a.gradeStatement(ctx, referenceText, statement)
		if err != nil {
			return 0, err
		}
		total += grade
	}
	return total / float64(len(statements)), nil
}

// gradeStatement scores one statement against the reference text. A plain
// judge yields 0 or 1 from a single verdict; a CompletionJudge yields the
// softmax-weighted mass of its supporting completions.
func (a *AnswerCorrectness) gradeStatement(ctx context.Context, referenceText, statement string) (float64, error) {
	prompt := fmt.Sprintf(statementGradingPrompt, referenceText, statement)
	if judge, ok := a.judge.(CompletionJudge); ok {
		completions, err := judge.GenerateCompletions(ctx, prompt)
		if err != nil {
			return 0, err
		}
		values := make(map[string]float64, len(completions))
		for _, c := range completions {
			supported, err := parseVerdict(c.Text)
			if err != nil {
				return 0, err
			}
			if supported {
				values[normalizeText(c.Text)] = 1
			}
		}
		return scoreCompletions(completions, values), nil
	}
	reply, err := a.judge.Generate(ctx, prompt)
	if err != nil {
		return 0, err
	}
	supported, err := parseVerdict(reply)
	if err != nil {
		return 0, err
	}
	if supported {
		return 1, nil
	}
	return 0, nil
}

// parseVerdict parses a {"supported": bool} judge reply.
func parseVerdict(reply string) (bool, error) {
	var verdict struct {
		Supported bool `json:"supported"`
	}
	if err := sonic.ConfigFastest.Unmarshal([]byte(stripCodeFence(reply)), &verdict); err != nil {
		return false, fmt.Errorf("parse verdict from %q: %w", reply, err)
	}
	return verdict.Supported, nil
}
