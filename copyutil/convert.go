// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package copyutil

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"google.golang.org/protobuf/proto"

	"github.com/go-dfcx/dfcx-go/cx"
)

// direction selects which way resource references are rewritten.
type direction int

const (
	// fromSource rewrites agent-specific resource IDs to display names.
	fromSource direction = iota
	// toDestination rewrites display names to the destination agent's IDs.
	toDestination
)

// nameMaps carries the ID/display-name lookup tables for one conversion
// pass. For fromSource the maps key resource names to display names; for
// toDestination they key display names to resource names.
type nameMaps struct {
	Webhooks    map[string]string
	Intents     map[string]string
	Entities    map[string]string
	Pages       map[string]string
	RouteGroups map[string]string

	// Flow is the destination flow resource name, used to re-expand
	// special page targets such as END_FLOW. Unused for fromSource.
	Flow string
}

// lookup translates v through m, keeping v untouched when m has no entry.
func lookup(m map[string]string, v string) string {
	if mapped, ok := m[v]; ok {
		return mapped
	}
	return v
}

// convertTargetPage rewrites a transition target. Special page IDs collapse
// to their bare ID on the way out of the source agent and re-expand under
// the destination flow on the way in.
func convertTargetPage(target string, m nameMaps, dir direction) string {
	if target == "" {
		return ""
	}
	switch dir {
	case fromSource:
		if id := shortSegment(target); cx.IsSpecialPage(id) {
			return id
		}
		return lookup(m.Pages, target)
	default:
		if cx.IsSpecialPage(target) {
			return m.Flow + "/pages/" + target
		}
		return lookup(m.Pages, target)
	}
}

// convertRoute rewrites the resource references of one transition route in
// place.
func convertRoute(route *cxpb.TransitionRoute, m nameMaps, dir direction) {
	if route.GetIntent() != "" {
		route.Intent = lookup(m.Intents, route.GetIntent())
	}
	if webhook := route.GetTriggerFulfillment().GetWebhook(); webhook != "" {
		route.TriggerFulfillment.Webhook = lookup(m.Webhooks, webhook)
	}
	if target := route.GetTargetPage(); target != "" {
		route.Target = &cxpb.TransitionRoute_TargetPage{
			TargetPage: convertTargetPage(target, m, dir),
		}
	}
}

// convertEventHandler rewrites the resource references of one event handler
// in place.
func convertEventHandler(handler *cxpb.EventHandler, m nameMaps, dir direction) {
	if webhook := handler.GetTriggerFulfillment().GetWebhook(); webhook != "" {
		handler.TriggerFulfillment.Webhook = lookup(m.Webhooks, webhook)
	}
	if target := handler.GetTargetPage(); target != "" {
		handler.Target = &cxpb.EventHandler_TargetPage{
			TargetPage: convertTargetPage(target, m, dir),
		}
	}
}

// convertPage returns a deep copy of page with every resource reference
// rewritten in the given direction: the page's own name, entry fulfillment
// webhook, form parameter entity types, transition route intents, webhooks
// and targets, and attached route groups.
func convertPage(page *cxpb.Page, m nameMaps, dir direction) *cxpb.Page {
	out := proto.Clone(page).(*cxpb.Page)

	if dir == fromSource {
		out.Name = out.GetDisplayName()
	} else {
		out.Name = lookup(m.Pages, out.GetDisplayName())
	}

	if webhook := out.GetEntryFulfillment().GetWebhook(); webhook != "" {
		out.EntryFulfillment.Webhook = lookup(m.Webhooks, webhook)
	}
	for _, param := range out.GetForm().GetParameters() {
		if isSystemEntityType(param.GetEntityType()) {
			continue
		}
		param.EntityType = lookup(m.Entities, param.GetEntityType())
	}
	for _, route := range out.GetTransitionRoutes() {
		convertRoute(route, m, dir)
	}
	for _, handler := range out.GetEventHandlers() {
		convertEventHandler(handler, m, dir)
	}
	for i, trg := range out.GetTransitionRouteGroups() {
		out.TransitionRouteGroups[i] = lookup(m.RouteGroups, trg)
	}
	return out
}

// convertStartFlow returns a deep copy of flow with its start page routes
// rewritten. On the way into the destination, routes whose intent has no
// destination counterpart are dropped and reported, and unknown route groups
// are filtered out.
func convertStartFlow(flow *cxpb.Flow, m nameMaps, dir direction) (*cxpb.Flow, []string) {
	out := proto.Clone(flow).(*cxpb.Flow)

	var dropped []string
	if dir == toDestination {
		kept := out.GetTransitionRoutes()[:0]
		for _, route := range out.GetTransitionRoutes() {
			if intent := route.GetIntent(); intent != "" {
				if _, ok := m.Intents[intent]; !ok {
					dropped = append(dropped, intent)
					continue
				}
			}
			kept = append(kept, route)
		}
		out.TransitionRoutes = kept

		trgs := out.GetTransitionRouteGroups()[:0]
		for _, trg := range out.GetTransitionRouteGroups() {
			if mapped, ok := m.RouteGroups[trg]; ok {
				trgs = append(trgs, mapped)
			}
		}
		out.TransitionRouteGroups = trgs
	} else {
		for i, trg := range out.GetTransitionRouteGroups() {
			out.TransitionRouteGroups[i] = lookup(m.RouteGroups, trg)
		}
	}

	for _, route := range out.GetTransitionRoutes() {
		convertRoute(route, m, dir)
	}
	for _, handler := range out.GetEventHandlers() {
		convertEventHandler(handler, m, dir)
	}
	return out, dropped
}

// sourceMaps builds ID-to-display-name tables for the source agent and the
// flow owning the copied pages.
func (t *Tool) sourceMaps(ctx context.Context, flowName string) (nameMaps, error) {
	return t.buildMaps(ctx, t.source, t.sourceAgent, flowName, false)
}

// destinationMaps builds display-name-to-ID tables for the destination agent
// and flow.
func (t *Tool) destinationMaps(ctx context.Context, flowName string) (nameMaps, error) {
	m, err := t.buildMaps(ctx, t.dest, t.destAgent, flowName, true)
	if err != nil {
		return nameMaps{}, err
	}
	m.Flow = flowName
	return m, nil
}

func (t *Tool) buildMaps(ctx context.Context, svcs *services, agentName, flowName string, reverse bool) (nameMaps, error) {
	m := nameMaps{}
	var err error
	if m.Webhooks, err = svcs.webhooks.Map(ctx, agentName, reverse); err != nil {
		return nameMaps{}, err
	}
	if m.Intents, err = svcs.intents.Map(ctx, agentName, reverse); err != nil {
		return nameMaps{}, err
	}
	if m.Entities, err = svcs.entities.Map(ctx, agentName, reverse); err != nil {
		return nameMaps{}, err
	}
	if m.Pages, err = svcs.pages.Map(ctx, flowName, reverse); err != nil {
		return nameMaps{}, err
	}
	if m.RouteGroups, err = svcs.routeGroups.Map(ctx, flowName, reverse); err != nil {
		return nameMaps{}, err
	}
	return m, nil
}

// ConvertFromSource rewrites a set of pages from one source flow into
// agent-neutral form: every resource ID becomes its display name and special
// page targets collapse to their bare IDs. The input pages are not modified.
func (t *Tool) ConvertFromSource(ctx context.Context, pageSet []*cxpb.Page) ([]*cxpb.Page, error) {
	if len(pageSet) == 0 {
		return nil, nil
	}
	flowName, err := cx.FlowPath(pageSet[0].GetName())
	if err != nil {
		return nil, fmt.Errorf("derive flow from page %s: %w", pageSet[0].GetName(), err)
	}
	m, err := t.sourceMaps(ctx, flowName)
	if err != nil {
		return nil, err
	}
	out := make([]*cxpb.Page, len(pageSet))
	for i, page := range pageSet {
		out[i] = convertPage(page, m, fromSource)
	}
	return out, nil
}

// ConvertToDestination rewrites agent-neutral pages into the destination
// agent's resource IDs under destinationFlow. Page shells and agent-level
// resources must already exist in the destination; names with no destination
// counterpart are left as display names.
func (t *Tool) ConvertToDestination(ctx context.Context, pageSet []*cxpb.Page, destinationFlow string) ([]*cxpb.Page, error) {
	if len(pageSet) == 0 {
		return nil, nil
	}
	m, err := t.destinationMaps(ctx, destinationFlow)
	if err != nil {
		return nil, err
	}
	out := make([]*cxpb.Page, len(pageSet))
	for i, page := range pageSet {
		out[i] = convertPage(page, m, toDestination)
	}
	return out, nil
}

// ConvertStartPageFromSource rewrites a source flow's start page routes into
// agent-neutral form. The input flow is not modified.
func (t *Tool) ConvertStartPageFromSource(ctx context.Context, flow *cxpb.Flow) (*cxpb.Flow, error) {
	m, err := t.sourceMaps(ctx, flow.GetName())
	if err != nil {
		return nil, err
	}
	out, _ := convertStartFlow(flow, m, fromSource)
	return out, nil
}

// ConvertStartPageToDestination rewrites an agent-neutral flow's start page
// routes into the destination flow's resource IDs. Routes whose intent does
// not exist in the destination agent are dropped and logged.
func (t *Tool) ConvertStartPageToDestination(ctx context.Context, flow *cxpb.Flow, destinationFlow string) (*cxpb.Flow, error) {
	m, err := t.destinationMaps(ctx, destinationFlow)
	if err != nil {
		return nil, err
	}
	out, dropped := convertStartFlow(flow, m, toDestination)
	for _, intent := range dropped {
		t.logger.WarnContext(ctx, "dropped start page route, intent missing in destination",
			slog.String("intent", intent),
			slog.String("flow", destinationFlow),
		)
	}
	destFlow, err := t.dest.flows.Get(ctx, destinationFlow)
	if err != nil {
		return nil, err
	}
	out.Name = destFlow.GetName()
	out.DisplayName = destFlow.GetDisplayName()
	return out, nil
}
