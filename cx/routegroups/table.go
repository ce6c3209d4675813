// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package routegroups

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"github.com/bytedance/sonic"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/go-dfcx/dfcx-go/cx/flows"
	"github.com/go-dfcx/dfcx-go/cx/intents"
	"github.com/go-dfcx/dfcx-go/cx/webhooks"
	"github.com/go-dfcx/dfcx-go/tabular"
)

// TableColumns is the header of the agent-wide route group export.
var TableColumns = []string{
	"flow", "route_group_name", "intent", "webhook", "webhook_tag",
	"fulfillment_message", "custom_payload", "live_agent_handoff",
	"conversation_success", "play_audio", "output_audio_text",
}

// ToTable flattens every transition route group of an agent into one table,
// one row per route, resolving flow, intent and webhook display names and
// flattening fulfillment messages.
//
// Route groups are agent-level resources categorized by flow, so the export
// walks every flow of the agent.
func (s *Service) ToTable(ctx context.Context, agentName string, flowSvc *flows.Service, intentSvc *intents.Service, webhookSvc *webhooks.Service) (*tabular.Table, error) {
	flowMap, err := flowSvc.Map(ctx, agentName, true)
	if err != nil {
		return nil, err
	}
	intentMap, err := intentSvc.Map(ctx, agentName, false)
	if err != nil {
		return nil, err
	}
	webhookMap, err := webhookSvc.Map(ctx, agentName, false)
	if err != nil {
		return nil, err
	}

	intentByID := shortIDMap(intentMap)
	webhookByID := shortIDMap(webhookMap)

	table := tabular.New(TableColumns...)
	for flowDisplayName, flowName := range flowMap {
		groups, err := s.List(ctx, flowName)
		if err != nil {
			return nil, err
		}
		for _, group := range groups {
			for _, route := range group.GetTransitionRoutes() {
				row := map[string]string{
					"flow":             flowDisplayName,
					"route_group_name": group.GetDisplayName(),
					"intent":           intentByID[shortID(route.GetIntent())],
				}
				if fulfillment := route.GetTriggerFulfillment(); fulfillment != nil {
					if fulfillment.GetWebhook() != "" {
						row["webhook"] = webhookByID[shortID(fulfillment.GetWebhook())]
					}
					row["webhook_tag"] = fulfillment.GetTag()
					for _, msg := range fulfillment.GetMessages() {
						if err := flattenMessage(row, msg); err != nil {
							return nil, err
						}
					}
				}
				table.AppendMap(row)
			}
		}
	}
	return table, nil
}

// shortID returns the final path segment of a resource name.
func shortID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// shortIDMap rekeys a name-to-display-name map by the short resource ID so
// lookups work across agents.
func shortIDMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for name, displayName := range m {
		out[shortID(name)] = displayName
	}
	return out
}

// flattenMessage writes one fulfillment message into the row, keyed by the
// message kind.
func flattenMessage(row map[string]string, msg *cxpb.ResponseMessage) error {
	switch {
	case msg.GetText() != nil:
		texts := msg.GetText().GetText()
		if len(texts) == 1 {
			row["fulfillment_message"] = texts[0]
			return nil
		}
		encoded, err := sonic.ConfigFastest.Marshal(texts)
		if err != nil {
			return fmt.Errorf("encode fulfillment texts: %w", err)
		}
		row["fulfillment_message"] = string(encoded)
	case msg.GetPayload() != nil:
		encoded, err := protojson.Marshal(msg.GetPayload())
		if err != nil {
			return fmt.Errorf("encode custom payload: %w", err)
		}
		row["custom_payload"] = string(encoded)
	case msg.GetLiveAgentHandoff() != nil:
		encoded, err := protojson.Marshal(msg.GetLiveAgentHandoff().GetMetadata())
		if err != nil {
			return fmt.Errorf("encode live agent handoff metadata: %w", err)
		}
		row["live_agent_handoff"] = string(encoded)
	case msg.GetConversationSuccess() != nil:
		encoded, err := protojson.Marshal(msg.GetConversationSuccess().GetMetadata())
		if err != nil {
			return fmt.Errorf("encode conversation success metadata: %w", err)
		}
		row["conversation_success"] = string(encoded)
	case msg.GetPlayAudio() != nil:
		row["play_audio"] = msg.GetPlayAudio().GetAudioUri()
	case msg.GetOutputAudioText() != nil:
		if text := msg.GetOutputAudioText().GetText(); text != "" {
			row["output_audio_text"] = text
		} else {
			row["output_audio_text"] = msg.GetOutputAudioText().GetSsml()
		}
	}
	return nil
}
