// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package agents manages Dialogflow CX agent resources.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	cxapi "cloud.google.com/go/dialogflow/cx/apiv3"
	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/go-dfcx/dfcx-go/cx"
)

// Defaults applied to newly created agents.
const (
	DefaultLanguageCode = "en"
	DefaultTimeZone     = "America/Chicago"
)

// Service manages CX agents in a single location.
type Service struct {
	client   *cxapi.AgentsClient
	location string
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates an agent service dialing the regional endpoint for
// location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewAgentsClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create agents client: %w", err)
	}
	return &Service{
		client:   client,
		location: location,
		settings: settings,
		logger:   settings.Logger(),
	}, nil
}

// Close releases the underlying client connection.
func (s *Service) Close() error {
	return s.client.Close()
}

// List returns all agents under a location path
// (projects/<project>/locations/<location>).
func (s *Service) List(ctx context.Context, locationPath string) ([]*cxpb.Agent, error) {
	var agents []*cxpb.Agent
	it := s.client.ListAgents(ctx, &cxpb.ListAgentsRequest{
		Parent: locationPath,
	})
	for {
		agent, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list agents in %s: %w", locationPath, err)
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

// ListAll returns all agents in a project across every CX region. Regions are
// scanned concurrently; regions the project cannot reach are skipped with a
// log line rather than failing the whole scan.
func (s *Service) ListAll(ctx context.Context, projectID string) ([]*cxpb.Agent, error) {
	var mu sync.Mutex
	byRegion := make(map[string][]*cxpb.Agent)

	eg, ctx := errgroup.WithContext(ctx)
	for _, region := range cx.Regions {
		eg.Go(func() error {
			dialOpts, err := s.settings.DialOptions(ctx, region)
			if err != nil {
				return fmt.Errorf("resolve dial options for %s: %w", region, err)
			}
			client, err := cxapi.NewAgentsClient(ctx, dialOpts...)
			if err != nil {
				return fmt.Errorf("create agents client for %s: %w", region, err)
			}
			defer client.Close()

			var agents []*cxpb.Agent
			it := client.ListAgents(ctx, &cxpb.ListAgentsRequest{
				Parent: cx.LocationPath(projectID, region),
			})
			for {
				agent, err := it.Next()
				if err != nil {
					if err == iterator.Done {
						break
					}
					s.logger.WarnContext(ctx, "skipping region",
						slog.String("region", region),
						slog.String("error", err.Error()),
					)
					return nil
				}
				agents = append(agents, agent)
			}

			mu.Lock()
			byRegion[region] = agents
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []*cxpb.Agent
	for _, region := range cx.Regions {
		all = append(all, byRegion[region]...)
	}
	return all, nil
}

// Get retrieves an agent by resource name.
func (s *Service) Get(ctx context.Context, name string) (*cxpb.Agent, error) {
	agent, err := s.client.GetAgent(ctx, &cxpb.GetAgentRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", name, err)
	}
	return agent, nil
}

// GetByDisplayName finds an agent in a project by its display name, scanning
// every CX region. Display names are case sensitive; when only a
// case-insensitive match exists, a hint is logged. Multiple matches across
// regions are an error naming the conflicting agents.
func (s *Service) GetByDisplayName(ctx context.Context, projectID, displayName string) (*cxpb.Agent, error) {
	agents, err := s.ListAll(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var matches []*cxpb.Agent
	caseInsensitive := false
	for _, agent := range agents {
		if agent.GetDisplayName() == displayName {
			matches = append(matches, agent)
			continue
		}
		if strings.EqualFold(agent.GetDisplayName(), displayName) {
			caseInsensitive = true
		}
	}

	switch len(matches) {
	case 0:
		if caseInsensitive {
			s.logger.WarnContext(ctx, "no exact match; agent display names are case sensitive",
				slog.String("display_name", displayName),
			)
		}
		return nil, fmt.Errorf("agent %q not found in project %s", displayName, projectID)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, agent := range matches {
			names[i] = agent.GetName()
		}
		return nil, fmt.Errorf("display name %q is ambiguous across regions: %s",
			displayName, strings.Join(names, ", "))
	}
}

// Create creates an agent in the service's location. Unset language code and
// time zone fall back to the package defaults.
func (s *Service) Create(ctx context.Context, projectID string, agent *cxpb.Agent) (*cxpb.Agent, error) {
	if agent.GetDisplayName() == "" {
		return nil, fmt.Errorf("agent display name is required")
	}
	if agent.GetDefaultLanguageCode() == "" {
		agent.DefaultLanguageCode = DefaultLanguageCode
	}
	if agent.GetTimeZone() == "" {
		agent.TimeZone = DefaultTimeZone
	}

	location := s.location
	if location == "" {
		location = cx.DefaultLocation
	}
	created, err := s.client.CreateAgent(ctx, &cxpb.CreateAgentRequest{
		Parent: cx.LocationPath(projectID, location),
		Agent:  agent,
	})
	if err != nil {
		return nil, fmt.Errorf("create agent %q: %w", agent.GetDisplayName(), err)
	}

	s.logger.InfoContext(ctx, "created agent",
		slog.String("name", created.GetName()),
		slog.String("display_name", created.GetDisplayName()),
	)
	return created, nil
}

// Update updates an agent. paths selects the fields to update; with no paths
// the whole resource is written.
func (s *Service) Update(ctx context.Context, agent *cxpb.Agent, paths ...string) (*cxpb.Agent, error) {
	req := &cxpb.UpdateAgentRequest{Agent: agent}
	if len(paths) > 0 {
		req.UpdateMask = &fieldmaskpb.FieldMask{Paths: paths}
	}
	updated, err := s.client.UpdateAgent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update agent %s: %w", agent.GetName(), err)
	}
	return updated, nil
}

// Delete deletes an agent by resource name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.client.DeleteAgent(ctx, &cxpb.DeleteAgentRequest{Name: name}); err != nil {
		return fmt.Errorf("delete agent %s: %w", name, err)
	}
	s.logger.InfoContext(ctx, "deleted agent", slog.String("name", name))
	return nil
}

// Export starts an agent export to a GCS URI and returns the long-running
// operation.
func (s *Service) Export(ctx context.Context, name, gcsURI string) (*cxapi.ExportAgentOperation, error) {
	op, err := s.client.ExportAgent(ctx, &cxpb.ExportAgentRequest{
		Name:     name,
		AgentUri: gcsURI,
	})
	if err != nil {
		return nil, fmt.Errorf("export agent %s: %w", name, err)
	}
	return op, nil
}

// Restore starts an agent restore from a GCS URI and returns the long-running
// operation. Restoring replaces the agent's current resources.
func (s *Service) Restore(ctx context.Context, name, gcsURI string) (*cxapi.RestoreAgentOperation, error) {
	op, err := s.client.RestoreAgent(ctx, &cxpb.RestoreAgentRequest{
		Name: name,
		Agent: &cxpb.RestoreAgentRequest_AgentUri{
			AgentUri: gcsURI,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("restore agent %s: %w", name, err)
	}
	return op, nil
}

// Validate runs agent validation and returns the result.
func (s *Service) Validate(ctx context.Context, name string) (*cxpb.AgentValidationResult, error) {
	result, err := s.client.ValidateAgent(ctx, &cxpb.ValidateAgentRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("validate agent %s: %w", name, err)
	}
	return result, nil
}

// GetValidationResult fetches the most recent validation result without
// re-running validation. name is the agent resource name.
func (s *Service) GetValidationResult(ctx context.Context, name string) (*cxpb.AgentValidationResult, error) {
	result, err := s.client.GetAgentValidationResult(ctx, &cxpb.GetAgentValidationResultRequest{
		Name: name + "/validationResult",
	})
	if err != nil {
		return nil, fmt.Errorf("get validation result for %s: %w", name, err)
	}
	return result, nil
}
