// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package routegroups

import (
	"testing"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestShortID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"projects/p/locations/global/agents/a/intents/i1", "i1"},
		{"i1", "i1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.name); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFlattenMessage(t *testing.T) {
	tests := map[string]struct {
		msg      *cxpb.ResponseMessage
		wantKey  string
		wantCell string
	}{
		"single text": {
			msg: &cxpb.ResponseMessage{
				Message: &cxpb.ResponseMessage_Text_{
					Text: &cxpb.ResponseMessage_Text{Text: []string{"hello"}},
				},
			},
			wantKey:  "fulfillment_message",
			wantCell: "hello",
		},
		"multi text": {
			msg: &cxpb.ResponseMessage{
				Message: &cxpb.ResponseMessage_Text_{
					Text: &cxpb.ResponseMessage_Text{Text: []string{"a", "b"}},
				},
			},
			wantKey:  "fulfillment_message",
			wantCell: `["a","b"]`,
		},
		"play audio": {
			msg: &cxpb.ResponseMessage{
				Message: &cxpb.ResponseMessage_PlayAudio_{
					PlayAudio: &cxpb.ResponseMessage_PlayAudio{AudioUri: "gs://b/a.wav"},
				},
			},
			wantKey:  "play_audio",
			wantCell: "gs://b/a.wav",
		},
		"output audio text": {
			msg: &cxpb.ResponseMessage{
				Message: &cxpb.ResponseMessage_OutputAudioText_{
					OutputAudioText: &cxpb.ResponseMessage_OutputAudioText{
						Source: &cxpb.ResponseMessage_OutputAudioText_Text{Text: "spoken"},
					},
				},
			},
			wantKey:  "output_audio_text",
			wantCell: "spoken",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			row := map[string]string{}
			if err := flattenMessage(row, tt.msg); err != nil {
				t.Fatal(err)
			}
			if got := row[tt.wantKey]; got != tt.wantCell {
				t.Errorf("row[%q] = %q, want %q", tt.wantKey, got, tt.wantCell)
			}
		})
	}
}

func TestFlattenMessage_Payload(t *testing.T) {
	payload, err := structpb.NewStruct(map[string]any{"key": "value"})
	if err != nil {
		t.Fatal(err)
	}
	row := map[string]string{}
	err = flattenMessage(row, &cxpb.ResponseMessage{
		Message: &cxpb.ResponseMessage_Payload{Payload: payload},
	})
	if err != nil {
		t.Fatal(err)
	}
	if row["custom_payload"] == "" {
		t.Error("custom_payload not set")
	}
}
