// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"

	"github.com/go-dfcx/dfcx-go/cx"
	"github.com/go-dfcx/dfcx-go/cx/sessions"
	"github.com/go-dfcx/dfcx-go/pkg/logging"
	"github.com/go-dfcx/dfcx-go/sheets"
	"github.com/go-dfcx/dfcx-go/tabular"
)

// Output columns the runner adds to the dataset.
const (
	ColAgentResponse = "agent_response"
	ColAgentIntent   = "agent_intent"
	ColAgentPage     = "agent_page"
	ColMatchType     = "match_type"
	ColToolResponse  = "tool_response"
)

// Runner replays an eval dataset against a live agent: one DetectIntent
// call per user utterance row, with the observed responses written back
// into the paired rows.
type Runner struct {
	sessions     *sessions.Service
	agentName    string
	languageCode string
	logger       *slog.Logger
}

// NewRunner creates a runner for one agent. languageCode empty uses the
// agent default.
func NewRunner(ctx context.Context, agentName, languageCode string, opts ...cx.Option) (*Runner, error) {
	location, err := cx.Location(agentName)
	if err != nil {
		return nil, fmt.Errorf("parse agent name: %w", err)
	}
	// The context logger is the default; an explicit WithLogger wins.
	opts = append([]cx.Option{cx.WithLogger(logging.FromContext(ctx))}, opts...)
	svc, err := sessions.NewService(ctx, location, opts...)
	if err != nil {
		return nil, err
	}
	settings := cx.NewSettings(opts...)
	return &Runner{
		sessions:     svc,
		agentName:    agentName,
		languageCode: languageCode,
		logger:       settings.Logger(),
	}, nil
}

// Close releases the underlying session client.
func (r *Runner) Close() error {
	return r.sessions.Close()
}

// Run replays every conversation in the dataset and returns a copy of the
// dataset table with the observed agent responses filled in. A fresh
// session starts at every row with action ID 1. Responses land in the row
// paired with each utterance, or in the utterance row itself when the
// conversation has no agent response rows. Webhook payloads observed during
// a turn are written into the turn's tool invocation rows in order.
func (r *Runner) Run(ctx context.Context, dataset *Dataset) (*tabular.Table, error) {
	out, err := dataset.Table().Clone()
	if err != nil {
		return nil, err
	}
	for _, col := range []string{ColAgentResponse, ColAgentIntent, ColAgentPage, ColMatchType, ColToolResponse} {
		if err := out.AddColumn(col, ""); err != nil {
			return nil, err
		}
	}

	for _, evalID := range dataset.EvalIDs() {
		session := sessions.NewSessionPath(r.agentName)
		for _, pair := range dataset.Pairs(evalID) {
			if dataset.IsTurnStart(pair.QueryRow) {
				session = sessions.NewSessionPath(r.agentName)
			}
			utterance := out.Cell(pair.QueryRow, ColActionInput)
			qr, err := r.sessions.DetectIntent(ctx, session, utterance, r.languageCode, nil)
			if err != nil {
				return nil, fmt.Errorf("eval %s row %d: %w", evalID, pair.QueryRow, err)
			}
			response := sessions.FromQueryResult(qr)

			target := pair.ResponseRow
			if target < 0 {
				target = pair.QueryRow
			}
			if err := out.SetCell(target, ColAgentResponse, response.ResponseText); err != nil {
				return nil, err
			}
			if err := out.SetCell(target, ColAgentIntent, response.IntentDisplayName); err != nil {
				return nil, err
			}
			if err := out.SetCell(target, ColAgentPage, response.CurrentPage); err != nil {
				return nil, err
			}
			if err := out.SetCell(target, ColMatchType, response.MatchType); err != nil {
				return nil, err
			}
			for i, row := range pair.ToolRows {
				if i >= len(response.WebhookPayloads) {
					break
				}
				payload, err := sonic.ConfigFastest.Marshal(response.WebhookPayloads[i])
				if err != nil {
					return nil, fmt.Errorf("encode webhook payload: %w", err)
				}
				if err := out.SetCell(row, ColToolResponse, string(payload)); err != nil {
					return nil, err
				}
			}
		}
		r.logger.InfoContext(ctx, "replayed conversation",
			slog.String("eval_id", evalID),
			slog.String("agent", r.agentName),
		)
	}
	return out, nil
}

// DefaultResultsTab names a results worksheet with the current date, for
// example eval_results_20260825.
func DefaultResultsTab(now time.Time) string {
	return "eval_results_" + now.Format("20060102")
}

// WriteResults writes a results table to a Google Sheets worksheet. An
// empty worksheet name uses DefaultResultsTab for today.
func WriteResults(ctx context.Context, svc *sheets.Service, spreadsheetID, worksheet string, results *tabular.Table) error {
	if worksheet == "" {
		worksheet = DefaultResultsTab(time.Now())
	}
	return svc.WriteTab(ctx, spreadsheetID, worksheet, results)
}
