// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package copyutil copies Dialogflow CX resources between agents by
// remapping resource IDs through display names.
//
// CX resource names embed agent-specific UUIDs, so a page copied verbatim
// into another agent points at resources that do not exist there. The copy
// pipeline is: scan a set of pages for their resource dependencies, convert
// every resource ID in the source objects to its display name, create the
// missing agent-level resources and blank page shells in the destination,
// then convert the display names to the destination agent's IDs and write
// the pages.
package copyutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"

	"github.com/go-dfcx/dfcx-go/cx"
	"github.com/go-dfcx/dfcx-go/cx/entitytypes"
	"github.com/go-dfcx/dfcx-go/cx/flows"
	"github.com/go-dfcx/dfcx-go/cx/intents"
	"github.com/go-dfcx/dfcx-go/cx/pages"
	"github.com/go-dfcx/dfcx-go/cx/routegroups"
	"github.com/go-dfcx/dfcx-go/cx/webhooks"
	"github.com/go-dfcx/dfcx-go/pkg/logging"
)

// DefaultFlow is the display name every agent's start flow carries.
const DefaultFlow = "Default Start Flow"

// services bundles the per-resource services for one region.
type services struct {
	intents     *intents.Service
	entities    *entitytypes.Service
	flows       *flows.Service
	pages       *pages.Service
	webhooks    *webhooks.Service
	routeGroups *routegroups.Service
}

func newServices(ctx context.Context, location string, opts ...cx.Option) (*services, error) {
	s := &services{}
	var err error
	if s.intents, err = intents.NewService(ctx, location, opts...); err != nil {
		return nil, err
	}
	if s.entities, err = entitytypes.NewService(ctx, location, opts...); err != nil {
		s.close()
		return nil, err
	}
	if s.flows, err = flows.NewService(ctx, location, opts...); err != nil {
		s.close()
		return nil, err
	}
	if s.pages, err = pages.NewService(ctx, location, opts...); err != nil {
		s.close()
		return nil, err
	}
	if s.webhooks, err = webhooks.NewService(ctx, location, opts...); err != nil {
		s.close()
		return nil, err
	}
	if s.routeGroups, err = routegroups.NewService(ctx, location, opts...); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *services) close() error {
	var closers []interface{ Close() error }
	if s.intents != nil {
		closers = append(closers, s.intents)
	}
	if s.entities != nil {
		closers = append(closers, s.entities)
	}
	if s.flows != nil {
		closers = append(closers, s.flows)
	}
	if s.pages != nil {
		closers = append(closers, s.pages)
	}
	if s.webhooks != nil {
		closers = append(closers, s.webhooks)
	}
	if s.routeGroups != nil {
		closers = append(closers, s.routeGroups)
	}
	var err error
	for _, c := range closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Tool copies resources from a source agent to a destination agent. The two
// agents may live in different regions; a service set is dialed per region.
type Tool struct {
	sourceAgent string
	destAgent   string

	source *services
	dest   *services

	logger *slog.Logger
}

// NewTool creates a copy tool for one source/destination agent pair.
func NewTool(ctx context.Context, sourceAgent, destinationAgent string, opts ...cx.Option) (*Tool, error) {
	sourceLocation, err := cx.Location(sourceAgent)
	if err != nil {
		return nil, fmt.Errorf("parse source agent: %w", err)
	}
	destLocation, err := cx.Location(destinationAgent)
	if err != nil {
		return nil, fmt.Errorf("parse destination agent: %w", err)
	}

	// The context logger is the default; an explicit WithLogger wins.
	opts = append([]cx.Option{cx.WithLogger(logging.FromContext(ctx))}, opts...)
	settings := cx.NewSettings(opts...)
	source, err := newServices(ctx, sourceLocation, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial source region %s: %w", sourceLocation, err)
	}
	dest := source
	if destLocation != sourceLocation {
		dest, err = newServices(ctx, destLocation, opts...)
		if err != nil {
			source.close()
			return nil, fmt.Errorf("dial destination region %s: %w", destLocation, err)
		}
	}

	return &Tool{
		sourceAgent: sourceAgent,
		destAgent:   destinationAgent,
		source:      source,
		dest:        dest,
		logger:      settings.Logger(),
	}, nil
}

// Close releases all client connections.
func (t *Tool) Close() error {
	err := t.source.close()
	if t.dest != t.source {
		if derr := t.dest.close(); err == nil {
			err = derr
		}
	}
	return err
}

// SourceAgent returns the source agent resource name.
func (t *Tool) SourceAgent() string { return t.sourceAgent }

// DestinationAgent returns the destination agent resource name.
func (t *Tool) DestinationAgent() string { return t.destAgent }

// stringSet is an insertion-unordered set of resource names.
type stringSet map[string]struct{}

func (s stringSet) insert(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s stringSet) list() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

// Resources is the dependency inventory of a set of pages: the agent-level
// resource names the pages reference.
type Resources struct {
	Webhooks    stringSet
	Intents     stringSet
	Entities    stringSet
	RouteGroups stringSet
}

func newResources() *Resources {
	return &Resources{
		Webhooks:    stringSet{},
		Intents:     stringSet{},
		Entities:    stringSet{},
		RouteGroups: stringSet{},
	}
}

// Dependencies scans a set of pages from one source flow and collects every
// agent-level resource they reference: entry fulfillment and condition route
// webhooks, intent route intents, form parameter entity types (system entity
// types excluded), route groups with the intents inside them, intents on the
// flow's start page that target the page set, and entity types referenced by
// the collected intents' parameters.
func (t *Tool) Dependencies(ctx context.Context, pageSet []*cxpb.Page) (*Resources, error) {
	if len(pageSet) == 0 {
		return newResources(), nil
	}
	flowName, err := cx.FlowPath(pageSet[0].GetName())
	if err != nil {
		return nil, fmt.Errorf("derive flow from page %s: %w", pageSet[0].GetName(), err)
	}

	resources := newResources()
	routeGroups, err := t.source.routeGroups.List(ctx, flowName)
	if err != nil {
		return nil, err
	}

	for _, page := range pageSet {
		collectEntryWebhooks(page, resources)
		collectRouteResources(page, resources)
		collectFormEntityTypes(page, resources)
		collectRouteGroups(page, routeGroups, resources)
	}

	if err := t.collectStartPageIntents(ctx, flowName, pageSet, resources); err != nil {
		return nil, err
	}
	if err := t.collectIntentEntityTypes(ctx, resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func collectEntryWebhooks(page *cxpb.Page, resources *Resources) {
	resources.Webhooks.insert(page.GetEntryFulfillment().GetWebhook())
}

// collectRouteResources gathers webhooks from condition routes and intents
// from intent routes.
func collectRouteResources(page *cxpb.Page, resources *Resources) {
	for _, route := range page.GetTransitionRoutes() {
		if route.GetCondition() != "" {
			resources.Webhooks.insert(route.GetTriggerFulfillment().GetWebhook())
		}
		resources.Intents.insert(route.GetIntent())
	}
}

func collectFormEntityTypes(page *cxpb.Page, resources *Resources) {
	for _, param := range page.GetForm().GetParameters() {
		if isSystemEntityType(param.GetEntityType()) {
			continue
		}
		resources.Entities.insert(param.GetEntityType())
	}
}

// collectRouteGroups records the page's route groups and the intents routed
// inside them.
func collectRouteGroups(page *cxpb.Page, flowRouteGroups []*cxpb.TransitionRouteGroup, resources *Resources) {
	for _, trg := range page.GetTransitionRouteGroups() {
		resources.RouteGroups.insert(trg)
		for _, group := range flowRouteGroups {
			if group.GetName() != trg {
				continue
			}
			for _, route := range group.GetTransitionRoutes() {
				resources.Intents.insert(route.GetIntent())
			}
		}
	}
}

// collectStartPageIntents picks up intents on the flow's start page whose
// routes target one of the copied pages. Start pages live on the flow object
// itself.
func (t *Tool) collectStartPageIntents(ctx context.Context, flowName string, pageSet []*cxpb.Page, resources *Resources) error {
	flow, err := t.source.flows.Get(ctx, flowName)
	if err != nil {
		return err
	}
	pageNames := stringSet{}
	for _, page := range pageSet {
		pageNames.insert(page.GetName())
	}
	for _, route := range flow.GetTransitionRoutes() {
		if route.GetIntent() != "" && pageNames.has(route.GetTargetPage()) {
			resources.Intents.insert(route.GetIntent())
		}
	}
	return nil
}

// collectIntentEntityTypes adds entity types referenced by the parameters of
// the collected intents.
func (t *Tool) collectIntentEntityTypes(ctx context.Context, resources *Resources) error {
	if len(resources.Intents) == 0 {
		return nil
	}
	agentIntents, err := t.source.intents.List(ctx, t.sourceAgent, "")
	if err != nil {
		return err
	}
	for _, intent := range agentIntents {
		if !resources.Intents.has(intent.GetName()) {
			continue
		}
		for _, param := range intent.GetParameters() {
			if isSystemEntityType(param.GetEntityType()) {
				continue
			}
			resources.Entities.insert(param.GetEntityType())
		}
	}
	return nil
}

// isSystemEntityType reports whether an entity type resource name refers to
// a platform-owned sys. entity type.
func isSystemEntityType(name string) bool {
	return entitytypes.IsSystem(shortSegment(name))
}

// shortSegment returns the final path segment of a resource name.
func shortSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
