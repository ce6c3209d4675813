// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package sessions

import (
	"strings"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
)

// AgentResponse is the flattened view of one query result that the
// conversation runner and the evaluation tooling consume.
type AgentResponse struct {
	Query             string
	ResponseText      string
	MatchType         string
	Confidence        float32
	IntentDisplayName string
	CurrentPage       string
	Parameters        map[string]any
	WebhookPayloads   []map[string]any
}

// FromQueryResult extracts an AgentResponse from a query result. Text
// response messages are concatenated in order, one per line.
func FromQueryResult(qr *cxpb.QueryResult) *AgentResponse {
	r := &AgentResponse{
		Query:             qr.GetText(),
		MatchType:         qr.GetMatch().GetMatchType().String(),
		Confidence:        qr.GetIntentDetectionConfidence(),
		IntentDisplayName: qr.GetIntent().GetDisplayName(),
		CurrentPage:       qr.GetCurrentPage().GetDisplayName(),
	}

	var texts []string
	for _, msg := range qr.GetResponseMessages() {
		if text := msg.GetText(); text != nil {
			texts = append(texts, text.GetText()...)
		}
	}
	r.ResponseText = strings.Join(texts, "\n")

	if params := qr.GetParameters(); params != nil {
		r.Parameters = params.AsMap()
	}
	for _, payload := range qr.GetWebhookPayloads() {
		if payload != nil {
			r.WebhookPayloads = append(r.WebhookPayloads, payload.AsMap())
		}
	}
	return r
}
