// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package dfcx is a high-level Go client for Google Dialogflow CX: resource
// CRUD for agents, intents, flows, pages, webhooks, route groups, entity
// types, test cases and environments, tabular bulk import/export, Google
// Sheets and Cloud Storage plumbing, agent-to-agent resource copying, and
// evaluation tooling for generative agent responses.
package dfcx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-dfcx/dfcx-go/cx"
	"github.com/go-dfcx/dfcx-go/cx/agents"
	"github.com/go-dfcx/dfcx-go/cx/entitytypes"
	"github.com/go-dfcx/dfcx-go/cx/environments"
	"github.com/go-dfcx/dfcx-go/cx/flows"
	"github.com/go-dfcx/dfcx-go/cx/intents"
	"github.com/go-dfcx/dfcx-go/cx/pages"
	"github.com/go-dfcx/dfcx-go/cx/routegroups"
	"github.com/go-dfcx/dfcx-go/cx/sessions"
	"github.com/go-dfcx/dfcx-go/cx/testcases"
	"github.com/go-dfcx/dfcx-go/cx/webhooks"
	"github.com/go-dfcx/dfcx-go/pkg/logging"
)

// Version is the version of the dfcx-go client.
var Version = "v0.0.0"

// Client bundles one service per CX resource kind, all dialed for the
// region of a single agent.
type Client struct {
	agentName string
	location  string
	logger    *slog.Logger

	agents       *agents.Service
	intents      *intents.Service
	entityTypes  *entitytypes.Service
	flows        *flows.Service
	pages        *pages.Service
	webhooks     *webhooks.Service
	routeGroups  *routegroups.Service
	testCases    *testcases.Service
	environments *environments.Service
	sessions     *sessions.Service
}

// NewClient creates a client scoped to one agent. The region is derived
// from the agent resource name and every service dials that region's
// endpoint.
func NewClient(ctx context.Context, agentName string, opts ...cx.Option) (*Client, error) {
	location, err := cx.Location(agentName)
	if err != nil {
		return nil, fmt.Errorf("parse agent name: %w", err)
	}

	// The context logger is the default; an explicit WithLogger wins.
	opts = append([]cx.Option{cx.WithLogger(logging.FromContext(ctx))}, opts...)
	settings := cx.NewSettings(opts...)
	client := &Client{
		agentName: agentName,
		location:  location,
		logger:    settings.Logger(),
	}

	if client.agents, err = agents.NewService(ctx, location, opts...); err != nil {
		return nil, fmt.Errorf("initialize agents service: %w", err)
	}
	if client.intents, err = intents.NewService(ctx, location, opts...); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialize intents service: %w", err)
	}
	if client.entityTypes, err = entitytypes.NewService(ctx, location, opts...); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialize entity types service: %w", err)
	}
	if client.flows, err = flows.NewService(ctx, location, opts...); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialize flows service: %w", err)
	}
	if client.pages, err = pages.NewService(ctx, location, opts...); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialize pages service: %w", err)
	}
	if client.webhooks, err = webhooks.NewService(ctx, location, opts...); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialize webhooks service: %w", err)
	}
	if client.routeGroups, err = routegroups.NewService(ctx, location, opts...); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialize route groups service: %w", err)
	}
	if client.testCases, err = testcases.NewService(ctx, location, opts...); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialize test cases service: %w", err)
	}
	if client.environments, err = environments.NewService(ctx, location, opts...); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialize environments service: %w", err)
	}
	if client.sessions, err = sessions.NewService(ctx, location, opts...); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialize sessions service: %w", err)
	}

	client.logger.InfoContext(ctx, "dfcx client initialized",
		slog.String("agent", agentName),
		slog.String("location", location),
	)
	return client, nil
}

// Close releases every underlying client connection. Safe to call on a
// partially initialized client.
func (c *Client) Close() error {
	var firstErr error
	closeService := func(name string, close func() error) {
		if err := close(); err != nil {
			c.logger.Error("failed to close service",
				slog.String("service", name),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("close %s service: %w", name, err)
			}
		}
	}
	if c.agents != nil {
		closeService("agents", c.agents.Close)
	}
	if c.intents != nil {
		closeService("intents", c.intents.Close)
	}
	if c.entityTypes != nil {
		closeService("entity types", c.entityTypes.Close)
	}
	if c.flows != nil {
		closeService("flows", c.flows.Close)
	}
	if c.pages != nil {
		closeService("pages", c.pages.Close)
	}
	if c.webhooks != nil {
		closeService("webhooks", c.webhooks.Close)
	}
	if c.routeGroups != nil {
		closeService("route groups", c.routeGroups.Close)
	}
	if c.testCases != nil {
		closeService("test cases", c.testCases.Close)
	}
	if c.environments != nil {
		closeService("environments", c.environments.Close)
	}
	if c.sessions != nil {
		closeService("sessions", c.sessions.Close)
	}
	return firstErr
}

// HealthCheck verifies the client can reach the API and the agent exists.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.agents.Get(ctx, c.agentName); err != nil {
		return fmt.Errorf("health check for %s: %w", c.agentName, err)
	}
	return nil
}

// AgentName returns the agent resource name the client is scoped to.
func (c *Client) AgentName() string { return c.agentName }

// Location returns the agent's region.
func (c *Client) Location() string { return c.location }

// Agents returns the agent service.
func (c *Client) Agents() *agents.Service { return c.agents }

// Intents returns the intent service.
func (c *Client) Intents() *intents.Service { return c.intents }

// EntityTypes returns the entity type service.
func (c *Client) EntityTypes() *entitytypes.Service { return c.entityTypes }

// Flows returns the flow service.
func (c *Client) Flows() *flows.Service { return c.flows }

// Pages returns the page service.
func (c *Client) Pages() *pages.Service { return c.pages }

// Webhooks returns the webhook service.
func (c *Client) Webhooks() *webhooks.Service { return c.webhooks }

// RouteGroups returns the transition route group service.
func (c *Client) RouteGroups() *routegroups.Service { return c.routeGroups }

// TestCases returns the test case service.
func (c *Client) TestCases() *testcases.Service { return c.testCases }

// Environments returns the environment service.
func (c *Client) Environments() *environments.Service { return c.environments }

// Sessions returns the session service.
func (c *Client) Sessions() *sessions.Service { return c.sessions }
