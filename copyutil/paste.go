// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package copyutil

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"google.golang.org/protobuf/proto"

	"github.com/go-dfcx/dfcx-go/cx"
)

// defaultCreateDelay spaces out intent creates to stay under the per-minute
// write quota.
const defaultCreateDelay = time.Second

// PasteOptions tunes CopyPasteResources.
type PasteOptions struct {
	// Skip flags exclude whole resource kinds from the paste.
	SkipWebhooks    bool
	SkipIntents     bool
	SkipEntities    bool
	SkipRouteGroups bool

	// LanguageCode selects the training phrase language for intent
	// creates. Empty uses the agent default.
	LanguageCode string

	// CreateDelay is the pause between intent creates. Zero uses
	// defaultCreateDelay.
	CreateDelay time.Duration
}

func (o *PasteOptions) createDelay() time.Duration {
	if o == nil || o.CreateDelay <= 0 {
		return defaultCreateDelay
	}
	return o.CreateDelay
}

// Created lists the display names of resources written into the destination
// agent by one paste, per kind.
type Created struct {
	Webhooks    []string
	Intents     []string
	Entities    []string
	RouteGroups []string
}

// CreatePageShells creates blank placeholder pages in the destination flow,
// one per input page, keyed by display name. Shells give transition targets
// something to resolve to before the full pages are written. Pages that
// already exist are skipped.
func (t *Tool) CreatePageShells(ctx context.Context, destinationFlow string, pageSet []*cxpb.Page) error {
	for _, page := range pageSet {
		shell := &cxpb.Page{DisplayName: page.GetDisplayName()}
		_, err := t.dest.pages.Create(ctx, destinationFlow, shell)
		if err != nil {
			if cx.IsAlreadyExists(err) {
				t.logger.InfoContext(ctx, "page shell exists, skipping",
					slog.String("display_name", page.GetDisplayName()),
				)
				continue
			}
			return err
		}
	}
	return nil
}

// CopyPasteResources copies the agent-level resources in the inventory from
// the source agent to the destination agent, in dependency order: webhooks,
// entity types, intents, then route groups. Intent parameter entity types
// and route group references are remapped through display names. Resources
// already present in the destination are skipped.
func (t *Tool) CopyPasteResources(ctx context.Context, resources *Resources, opts *PasteOptions) (*Created, error) {
	created := &Created{}

	if opts == nil || !opts.SkipWebhooks {
		if err := t.pasteWebhooks(ctx, resources, created); err != nil {
			return created, err
		}
	}
	if opts == nil || !opts.SkipEntities {
		if err := t.pasteEntityTypes(ctx, resources, created); err != nil {
			return created, err
		}
	}
	if opts == nil || !opts.SkipIntents {
		if err := t.pasteIntents(ctx, resources, created, opts); err != nil {
			return created, err
		}
	}
	if opts == nil || !opts.SkipRouteGroups {
		if err := t.pasteRouteGroups(ctx, resources, created); err != nil {
			return created, err
		}
	}

	t.logger.InfoContext(ctx, "pasted agent resources",
		slog.String("destination", t.destAgent),
		slog.Int("webhooks", len(created.Webhooks)),
		slog.Int("entity_types", len(created.Entities)),
		slog.Int("intents", len(created.Intents)),
		slog.Int("route_groups", len(created.RouteGroups)),
	)
	return created, nil
}

func (t *Tool) pasteWebhooks(ctx context.Context, resources *Resources, created *Created) error {
	webhooks, err := t.source.webhooks.List(ctx, t.sourceAgent)
	if err != nil {
		return err
	}
	for _, webhook := range webhooks {
		if !resources.Webhooks.has(webhook.GetName()) {
			continue
		}
		clone := proto.Clone(webhook).(*cxpb.Webhook)
		if _, err := t.dest.webhooks.Create(ctx, t.destAgent, clone); err != nil {
			if cx.IsAlreadyExists(err) {
				t.logger.InfoContext(ctx, "webhook exists, skipping",
					slog.String("display_name", webhook.GetDisplayName()),
				)
				continue
			}
			return err
		}
		created.Webhooks = append(created.Webhooks, webhook.GetDisplayName())
	}
	return nil
}

func (t *Tool) pasteEntityTypes(ctx context.Context, resources *Resources, created *Created) error {
	entityTypes, err := t.source.entities.List(ctx, t.sourceAgent, "")
	if err != nil {
		return err
	}
	for _, et := range entityTypes {
		if !resources.Entities.has(et.GetName()) {
			continue
		}
		clone := proto.Clone(et).(*cxpb.EntityType)
		if _, err := t.dest.entities.Create(ctx, t.destAgent, clone); err != nil {
			if cx.IsAlreadyExists(err) {
				t.logger.InfoContext(ctx, "entity type exists, skipping",
					slog.String("display_name", et.GetDisplayName()),
				)
				continue
			}
			return err
		}
		created.Entities = append(created.Entities, et.GetDisplayName())
	}
	return nil
}

// pasteIntents copies the inventoried intents, remapping parameter entity
// types through display names. Creates are spaced out and retried on quota
// errors.
func (t *Tool) pasteIntents(ctx context.Context, resources *Resources, created *Created, opts *PasteOptions) error {
	sourceEntities, err := t.source.entities.Map(ctx, t.sourceAgent, false)
	if err != nil {
		return err
	}
	destEntities, err := t.dest.entities.Map(ctx, t.destAgent, true)
	if err != nil {
		return err
	}

	languageCode := ""
	if opts != nil {
		languageCode = opts.LanguageCode
	}
	intents, err := t.source.intents.List(ctx, t.sourceAgent, languageCode)
	if err != nil {
		return err
	}

	first := true
	for _, intent := range intents {
		if !resources.Intents.has(intent.GetName()) {
			continue
		}
		if !first {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.createDelay()):
			}
		}
		first = false

		clone := proto.Clone(intent).(*cxpb.Intent)
		remapIntentEntityTypes(clone, sourceEntities, destEntities)
		err := cx.RetryQuota(ctx, func() error {
			_, err := t.dest.intents.Create(ctx, t.destAgent, clone, languageCode)
			return err
		})
		if err != nil {
			if cx.IsAlreadyExists(err) {
				t.logger.InfoContext(ctx, "intent exists, skipping",
					slog.String("display_name", intent.GetDisplayName()),
				)
				continue
			}
			return err
		}
		created.Intents = append(created.Intents, intent.GetDisplayName())
	}
	return nil
}

// remapIntentEntityTypes rewrites intent parameter entity types from source
// IDs to destination IDs via their display names. System entity types pass
// through untouched.
func remapIntentEntityTypes(intent *cxpb.Intent, sourceEntities, destEntities map[string]string) {
	for _, param := range intent.GetParameters() {
		if isSystemEntityType(param.GetEntityType()) {
			continue
		}
		displayName, ok := sourceEntities[param.GetEntityType()]
		if !ok {
			continue
		}
		if destName, ok := destEntities[displayName]; ok {
			param.EntityType = destName
		}
	}
}

// pasteRouteGroups copies the inventoried route groups from the source
// agent's start flow into the destination agent's start flow, remapping
// intent, webhook and target page references through display names.
func (t *Tool) pasteRouteGroups(ctx context.Context, resources *Resources, created *Created) error {
	if len(resources.RouteGroups) == 0 {
		return nil
	}
	sourceFlow, err := t.source.flows.GetByDisplayName(ctx, t.sourceAgent, DefaultFlow)
	if err != nil {
		return err
	}
	destFlow, err := t.dest.flows.GetByDisplayName(ctx, t.destAgent, DefaultFlow)
	if err != nil {
		return err
	}

	maps, err := t.routeGroupMaps(ctx, sourceFlow.GetName(), destFlow.GetName())
	if err != nil {
		return err
	}

	groups, err := t.source.routeGroups.List(ctx, sourceFlow.GetName())
	if err != nil {
		return err
	}
	for _, group := range groups {
		if !resources.RouteGroups.has(group.GetName()) {
			continue
		}
		clone := proto.Clone(group).(*cxpb.TransitionRouteGroup)
		remapRouteGroup(clone, maps, destFlow.GetName())
		if _, err := t.dest.routeGroups.Create(ctx, destFlow.GetName(), clone); err != nil {
			if cx.IsAlreadyExists(err) {
				t.logger.InfoContext(ctx, "route group exists, skipping",
					slog.String("display_name", group.GetDisplayName()),
				)
				continue
			}
			return err
		}
		created.RouteGroups = append(created.RouteGroups, group.GetDisplayName())
	}
	return nil
}

// routeGroupPair bundles the two-hop lookup tables for cross-agent route
// group remapping: source ID to display name, display name to destination
// ID.
type routeGroupPair struct {
	sourceIntents  map[string]string
	destIntents    map[string]string
	sourceWebhooks map[string]string
	destWebhooks   map[string]string
	sourcePages    map[string]string
	destPages      map[string]string
}

func (t *Tool) routeGroupMaps(ctx context.Context, sourceFlow, destFlow string) (*routeGroupPair, error) {
	p := &routeGroupPair{}
	var err error
	if p.sourceIntents, err = t.source.intents.Map(ctx, t.sourceAgent, false); err != nil {
		return nil, err
	}
	if p.destIntents, err = t.dest.intents.Map(ctx, t.destAgent, true); err != nil {
		return nil, err
	}
	if p.sourceWebhooks, err = t.source.webhooks.Map(ctx, t.sourceAgent, false); err != nil {
		return nil, err
	}
	if p.destWebhooks, err = t.dest.webhooks.Map(ctx, t.destAgent, true); err != nil {
		return nil, err
	}
	if p.sourcePages, err = t.source.pages.Map(ctx, sourceFlow, false); err != nil {
		return nil, err
	}
	if p.destPages, err = t.dest.pages.Map(ctx, destFlow, true); err != nil {
		return nil, err
	}
	return p, nil
}

// twoHop maps a source resource name to its destination counterpart through
// the shared display name. Missing on either hop reports false.
func twoHop(name string, source, dest map[string]string) (string, bool) {
	displayName, ok := source[name]
	if !ok {
		return "", false
	}
	mapped, ok := dest[displayName]
	return mapped, ok
}

func remapRouteGroup(group *cxpb.TransitionRouteGroup, maps *routeGroupPair, destFlow string) {
	for _, route := range group.GetTransitionRoutes() {
		if intent := route.GetIntent(); intent != "" {
			if mapped, ok := twoHop(intent, maps.sourceIntents, maps.destIntents); ok {
				route.Intent = mapped
			}
		}
		if webhook := route.GetTriggerFulfillment().GetWebhook(); webhook != "" {
			if mapped, ok := twoHop(webhook, maps.sourceWebhooks, maps.destWebhooks); ok {
				route.TriggerFulfillment.Webhook = mapped
			}
		}
		target := route.GetTargetPage()
		if target == "" {
			continue
		}
		if id := shortSegment(target); cx.IsSpecialPage(id) {
			route.Target = &cxpb.TransitionRoute_TargetPage{
				TargetPage: destFlow + "/pages/" + id,
			}
			continue
		}
		if mapped, ok := twoHop(target, maps.sourcePages, maps.destPages); ok {
			route.Target = &cxpb.TransitionRoute_TargetPage{TargetPage: mapped}
		} else {
			route.Target = nil
		}
	}
}

// CopyIntent copies one intent, selected by display name, from the source
// agent to the destination agent. With update, an existing destination
// intent with the same display name is overwritten instead of created.
func (t *Tool) CopyIntent(ctx context.Context, displayName string, update bool, languageCode string) (*cxpb.Intent, error) {
	intent, err := t.source.intents.GetByDisplayName(ctx, t.sourceAgent, displayName)
	if err != nil {
		return nil, err
	}
	sourceEntities, err := t.source.entities.Map(ctx, t.sourceAgent, false)
	if err != nil {
		return nil, err
	}
	destEntities, err := t.dest.entities.Map(ctx, t.destAgent, true)
	if err != nil {
		return nil, err
	}

	clone := proto.Clone(intent).(*cxpb.Intent)
	remapIntentEntityTypes(clone, sourceEntities, destEntities)

	if update {
		existing, err := t.dest.intents.GetByDisplayName(ctx, t.destAgent, displayName)
		if err != nil {
			return nil, err
		}
		clone.Name = existing.GetName()
		return t.dest.intents.Update(ctx, clone, languageCode)
	}
	return t.dest.intents.Create(ctx, t.destAgent, clone, languageCode)
}

// CopyEntityType copies one entity type, selected by display name, from the
// source agent to the destination agent. An existing destination entity type
// with the same display name is left untouched.
func (t *Tool) CopyEntityType(ctx context.Context, displayName string) (*cxpb.EntityType, error) {
	et, err := findEntityType(ctx, t.source, t.sourceAgent, displayName)
	if err != nil {
		return nil, err
	}
	clone := proto.Clone(et).(*cxpb.EntityType)
	created, err := t.dest.entities.Create(ctx, t.destAgent, clone)
	if err != nil {
		if cx.IsAlreadyExists(err) {
			t.logger.InfoContext(ctx, "entity type exists, skipping",
				slog.String("display_name", displayName),
			)
			return findEntityType(ctx, t.dest, t.destAgent, displayName)
		}
		return nil, err
	}
	return created, nil
}

func findEntityType(ctx context.Context, svcs *services, agentName, displayName string) (*cxpb.EntityType, error) {
	entityTypes, err := svcs.entities.List(ctx, agentName, "")
	if err != nil {
		return nil, err
	}
	for _, et := range entityTypes {
		if et.GetDisplayName() == displayName {
			return et, nil
		}
	}
	return nil, fmt.Errorf("entity type %q not found in %s", displayName, agentName)
}

// CopyRouteGroups copies route groups between two flows of the destination
// agent, selected by display name. Existing target groups with matching
// display names have their routes overwritten; others are created. Target
// pages are remapped between the flows through display names, special page
// targets keep their ID under the target flow, and targets with no
// counterpart page are cleared.
func (t *Tool) CopyRouteGroups(ctx context.Context, sourceFlowDisplayName, targetFlowDisplayName string, groupDisplayNames []string) ([]string, error) {
	sourceFlow, err := t.dest.flows.GetByDisplayName(ctx, t.destAgent, sourceFlowDisplayName)
	if err != nil {
		return nil, err
	}
	targetFlow, err := t.dest.flows.GetByDisplayName(ctx, t.destAgent, targetFlowDisplayName)
	if err != nil {
		return nil, err
	}

	sourcePages, err := t.dest.pages.Map(ctx, sourceFlow.GetName(), false)
	if err != nil {
		return nil, err
	}
	targetPages, err := t.dest.pages.Map(ctx, targetFlow.GetName(), true)
	if err != nil {
		return nil, err
	}
	existing, err := t.dest.routeGroups.Map(ctx, targetFlow.GetName(), true)
	if err != nil {
		return nil, err
	}

	wanted := stringSet{}
	for _, name := range groupDisplayNames {
		wanted.insert(name)
	}

	groups, err := t.dest.routeGroups.List(ctx, sourceFlow.GetName())
	if err != nil {
		return nil, err
	}

	var copied []string
	for _, group := range groups {
		if !wanted.has(group.GetDisplayName()) {
			continue
		}
		clone := proto.Clone(group).(*cxpb.TransitionRouteGroup)
		remapRouteGroupTargets(clone, sourcePages, targetPages, sourceFlow.GetName(), targetFlow.GetName())

		if existingName, ok := existing[group.GetDisplayName()]; ok {
			clone.Name = existingName
			if _, err := t.dest.routeGroups.Update(ctx, clone, "", "transition_routes"); err != nil {
				return copied, err
			}
		} else {
			if _, err := t.dest.routeGroups.Create(ctx, targetFlow.GetName(), clone); err != nil {
				return copied, err
			}
		}
		copied = append(copied, group.GetDisplayName())
	}
	sort.Strings(copied)

	t.logger.InfoContext(ctx, "copied route groups between flows",
		slog.String("source_flow", sourceFlowDisplayName),
		slog.String("target_flow", targetFlowDisplayName),
		slog.Int("count", len(copied)),
	)
	return copied, nil
}

// remapRouteGroupTargets rewrites transition targets from one flow's pages
// to another's within the same agent.
func remapRouteGroupTargets(group *cxpb.TransitionRouteGroup, sourcePages, targetPages map[string]string, sourceFlow, targetFlow string) {
	for _, route := range group.GetTransitionRoutes() {
		target := route.GetTargetPage()
		if target == "" {
			continue
		}
		if id := shortSegment(target); cx.IsSpecialPage(id) {
			route.Target = &cxpb.TransitionRoute_TargetPage{
				TargetPage: strings.Replace(target, sourceFlow, targetFlow, 1),
			}
			continue
		}
		if mapped, ok := twoHop(target, sourcePages, targetPages); ok {
			route.Target = &cxpb.TransitionRoute_TargetPage{TargetPage: mapped}
		} else {
			route.Target = nil
		}
	}
}
