// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package sessions

import (
	"strings"
	"testing"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestFromQueryResult(t *testing.T) {
	params, err := structpb.NewStruct(map[string]any{"destination": "Tokyo"})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := structpb.NewStruct(map[string]any{"source": "webhook-1"})
	if err != nil {
		t.Fatal(err)
	}

	qr := &cxpb.QueryResult{
		Query:                     &cxpb.QueryResult_Text{Text: "book a flight"},
		IntentDetectionConfidence: 0.92,
		Intent:                    &cxpb.Intent{DisplayName: "book_flight"},
		CurrentPage:               &cxpb.Page{DisplayName: "Collect Destination"},
		Match: &cxpb.Match{
			MatchType: cxpb.Match_INTENT,
		},
		Parameters: params,
		ResponseMessages: []*cxpb.ResponseMessage{
			{
				Message: &cxpb.ResponseMessage_Text_{
					Text: &cxpb.ResponseMessage_Text{Text: []string{"Sure."}},
				},
			},
			{
				Message: &cxpb.ResponseMessage_Text_{
					Text: &cxpb.ResponseMessage_Text{Text: []string{"Where to?"}},
				},
			},
		},
		WebhookPayloads: []*structpb.Struct{payload},
	}

	got := FromQueryResult(qr)

	if got.Query != "book a flight" {
		t.Errorf("Query = %q, want %q", got.Query, "book a flight")
	}
	if want := "Sure.\nWhere to?"; got.ResponseText != want {
		t.Errorf("ResponseText = %q, want %q", got.ResponseText, want)
	}
	if got.MatchType != "INTENT" {
		t.Errorf("MatchType = %q, want INTENT", got.MatchType)
	}
	if got.IntentDisplayName != "book_flight" {
		t.Errorf("IntentDisplayName = %q, want book_flight", got.IntentDisplayName)
	}
	if got.CurrentPage != "Collect Destination" {
		t.Errorf("CurrentPage = %q, want Collect Destination", got.CurrentPage)
	}
	if diff := cmp.Diff(map[string]any{"destination": "Tokyo"}, got.Parameters); diff != "" {
		t.Errorf("Parameters mismatch (-want +got):\n%s", diff)
	}
	if len(got.WebhookPayloads) != 1 || got.WebhookPayloads[0]["source"] != "webhook-1" {
		t.Errorf("WebhookPayloads = %v, want one payload from webhook-1", got.WebhookPayloads)
	}
}

func TestFromQueryResult_Empty(t *testing.T) {
	got := FromQueryResult(&cxpb.QueryResult{})
	if got.ResponseText != "" {
		t.Errorf("ResponseText = %q, want empty", got.ResponseText)
	}
	if got.Parameters != nil {
		t.Errorf("Parameters = %v, want nil", got.Parameters)
	}
}

func TestNewSessionPath(t *testing.T) {
	const agent = "projects/p/locations/global/agents/a"
	path := NewSessionPath(agent)
	if !strings.HasPrefix(path, agent+"/sessions/") {
		t.Fatalf("NewSessionPath() = %q, want %s/sessions/ prefix", path, agent)
	}
	if id := strings.TrimPrefix(path, agent+"/sessions/"); len(id) != 36 {
		t.Errorf("session ID %q is not a UUID", id)
	}
	if NewSessionPath(agent) == path {
		t.Error("NewSessionPath() returned the same ID twice")
	}
}
