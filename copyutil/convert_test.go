// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package copyutil

import (
	"testing"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/testing/protocmp"
)

const (
	testAgent      = "projects/p/locations/global/agents/a"
	testFlow       = testAgent + "/flows/f1"
	testDestFlow   = testAgent + "/flows/d1"
	testPageName   = testFlow + "/pages/p1"
	testIntentName = testAgent + "/intents/i1"
)

func sourceTestMaps() nameMaps {
	return nameMaps{
		Webhooks:    map[string]string{testAgent + "/webhooks/w1": "order-webhook"},
		Intents:     map[string]string{testIntentName: "order.pizza"},
		Entities:    map[string]string{testAgent + "/entityTypes/e1": "topping"},
		Pages:       map[string]string{testPageName: "Collect Order"},
		RouteGroups: map[string]string{testFlow + "/transitionRouteGroups/g1": "common routes"},
	}
}

func destTestMaps() nameMaps {
	return nameMaps{
		Webhooks:    map[string]string{"order-webhook": testAgent + "/webhooks/w9"},
		Intents:     map[string]string{"order.pizza": testAgent + "/intents/i9"},
		Entities:    map[string]string{"topping": testAgent + "/entityTypes/e9"},
		Pages:       map[string]string{"Collect Order": testDestFlow + "/pages/p9"},
		RouteGroups: map[string]string{"common routes": testDestFlow + "/transitionRouteGroups/g9"},
		Flow:        testDestFlow,
	}
}

func TestConvertTargetPage(t *testing.T) {
	source := sourceTestMaps()
	dest := destTestMaps()

	tests := map[string]struct {
		target string
		maps   nameMaps
		dir    direction
		want   string
	}{
		"source page to display name": {
			target: testPageName,
			maps:   source,
			dir:    fromSource,
			want:   "Collect Order",
		},
		"source special collapses": {
			target: testFlow + "/pages/END_FLOW",
			maps:   source,
			dir:    fromSource,
			want:   "END_FLOW",
		},
		"destination display name to page": {
			target: "Collect Order",
			maps:   dest,
			dir:    toDestination,
			want:   testDestFlow + "/pages/p9",
		},
		"destination special expands": {
			target: "END_SESSION",
			maps:   dest,
			dir:    toDestination,
			want:   testDestFlow + "/pages/END_SESSION",
		},
		"unknown name passes through": {
			target: "Mystery Page",
			maps:   dest,
			dir:    toDestination,
			want:   "Mystery Page",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := convertTargetPage(tt.target, tt.maps, tt.dir); got != tt.want {
				t.Errorf("convertTargetPage(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func samplePage() *cxpb.Page {
	return &cxpb.Page{
		Name:        testPageName,
		DisplayName: "Collect Order",
		EntryFulfillment: &cxpb.Fulfillment{
			Webhook: testAgent + "/webhooks/w1",
		},
		Form: &cxpb.Form{
			Parameters: []*cxpb.Form_Parameter{
				{DisplayName: "topping", EntityType: testAgent + "/entityTypes/e1"},
				{DisplayName: "date", EntityType: "sys.date"},
			},
		},
		TransitionRoutes: []*cxpb.TransitionRoute{
			{
				Intent: testIntentName,
				Target: &cxpb.TransitionRoute_TargetPage{
					TargetPage: testFlow + "/pages/END_FLOW",
				},
			},
			{
				Condition:          "$session.params.done = true",
				TriggerFulfillment: &cxpb.Fulfillment{Webhook: testAgent + "/webhooks/w1"},
			},
		},
		EventHandlers: []*cxpb.EventHandler{
			{
				Event:              "sys.no-match-default",
				TriggerFulfillment: &cxpb.Fulfillment{Webhook: testAgent + "/webhooks/w1"},
				Target: &cxpb.EventHandler_TargetPage{
					TargetPage: testPageName,
				},
			},
		},
		TransitionRouteGroups: []string{testFlow + "/transitionRouteGroups/g1"},
	}
}

func TestConvertPageRoundTrip(t *testing.T) {
	original := samplePage()

	neutral := convertPage(original, sourceTestMaps(), fromSource)

	if got := samplePage(); !cmp.Equal(original, got, protocmp.Transform()) {
		t.Error("convertPage modified its input")
	}
	if neutral.GetName() != "Collect Order" {
		t.Errorf("neutral page name = %q, want display name", neutral.GetName())
	}
	if got := neutral.GetEntryFulfillment().GetWebhook(); got != "order-webhook" {
		t.Errorf("entry webhook = %q, want %q", got, "order-webhook")
	}
	if got := neutral.GetForm().GetParameters()[0].GetEntityType(); got != "topping" {
		t.Errorf("form entity type = %q, want %q", got, "topping")
	}
	if got := neutral.GetForm().GetParameters()[1].GetEntityType(); got != "sys.date" {
		t.Errorf("system entity type = %q, want untouched", got)
	}
	if got := neutral.GetTransitionRoutes()[0].GetIntent(); got != "order.pizza" {
		t.Errorf("route intent = %q, want %q", got, "order.pizza")
	}
	if got := neutral.GetTransitionRoutes()[0].GetTargetPage(); got != "END_FLOW" {
		t.Errorf("special target = %q, want %q", got, "END_FLOW")
	}
	if got := neutral.GetTransitionRouteGroups()[0]; got != "common routes" {
		t.Errorf("route group = %q, want %q", got, "common routes")
	}
	if got := neutral.GetEventHandlers()[0].GetTargetPage(); got != "Collect Order" {
		t.Errorf("event handler target = %q, want %q", got, "Collect Order")
	}

	restored := convertPage(neutral, destTestMaps(), toDestination)

	if got, want := restored.GetName(), testDestFlow+"/pages/p9"; got != want {
		t.Errorf("restored page name = %q, want %q", got, want)
	}
	if got, want := restored.GetEntryFulfillment().GetWebhook(), testAgent+"/webhooks/w9"; got != want {
		t.Errorf("restored webhook = %q, want %q", got, want)
	}
	if got, want := restored.GetTransitionRoutes()[0].GetIntent(), testAgent+"/intents/i9"; got != want {
		t.Errorf("restored intent = %q, want %q", got, want)
	}
	if got, want := restored.GetTransitionRoutes()[0].GetTargetPage(), testDestFlow+"/pages/END_FLOW"; got != want {
		t.Errorf("restored special target = %q, want %q", got, want)
	}
	if got, want := restored.GetTransitionRoutes()[1].GetTriggerFulfillment().GetWebhook(), testAgent+"/webhooks/w9"; got != want {
		t.Errorf("restored trigger webhook = %q, want %q", got, want)
	}
	if got, want := restored.GetTransitionRouteGroups()[0], testDestFlow+"/transitionRouteGroups/g9"; got != want {
		t.Errorf("restored route group = %q, want %q", got, want)
	}
	if got, want := restored.GetEventHandlers()[0].GetTriggerFulfillment().GetWebhook(), testAgent+"/webhooks/w9"; got != want {
		t.Errorf("restored event handler webhook = %q, want %q", got, want)
	}
}

func TestConvertStartFlowDropsMissingIntents(t *testing.T) {
	flow := &cxpb.Flow{
		Name:        testFlow,
		DisplayName: "Default Start Flow",
		TransitionRoutes: []*cxpb.TransitionRoute{
			{
				Intent: "order.pizza",
				Target: &cxpb.TransitionRoute_TargetPage{TargetPage: "Collect Order"},
			},
			{
				Intent: "order.salad",
				Target: &cxpb.TransitionRoute_TargetPage{TargetPage: "Collect Order"},
			},
			{
				Condition: "true",
			},
		},
		TransitionRouteGroups: []string{"common routes", "unknown group"},
	}

	out, dropped := convertStartFlow(flow, destTestMaps(), toDestination)

	if want := []string{"order.salad"}; !cmp.Equal(dropped, want) {
		t.Errorf("dropped = %v, want %v", dropped, want)
	}
	if got := len(out.GetTransitionRoutes()); got != 2 {
		t.Fatalf("kept %d routes, want 2", got)
	}
	if got, want := out.GetTransitionRoutes()[0].GetIntent(), testAgent+"/intents/i9"; got != want {
		t.Errorf("kept intent = %q, want %q", got, want)
	}
	if got, want := out.GetTransitionRouteGroups(), []string{testDestFlow + "/transitionRouteGroups/g9"}; !cmp.Equal(got, want) {
		t.Errorf("route groups = %v, want %v", got, want)
	}
	if len(flow.GetTransitionRoutes()) != 3 {
		t.Error("convertStartFlow modified its input")
	}
}

func TestConvertStartFlowFromSource(t *testing.T) {
	flow := &cxpb.Flow{
		Name: testFlow,
		TransitionRoutes: []*cxpb.TransitionRoute{
			{
				Intent: testIntentName,
				Target: &cxpb.TransitionRoute_TargetPage{TargetPage: testPageName},
			},
		},
	}

	out, dropped := convertStartFlow(flow, sourceTestMaps(), fromSource)

	if len(dropped) != 0 {
		t.Errorf("dropped = %v, want none", dropped)
	}
	if got := out.GetTransitionRoutes()[0].GetIntent(); got != "order.pizza" {
		t.Errorf("intent = %q, want %q", got, "order.pizza")
	}
	if got := out.GetTransitionRoutes()[0].GetTargetPage(); got != "Collect Order" {
		t.Errorf("target = %q, want %q", got, "Collect Order")
	}
}
