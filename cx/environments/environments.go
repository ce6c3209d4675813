// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package environments manages Dialogflow CX environment resources.
package environments

import (
	"context"
	"fmt"
	"log/slog"

	cxapi "cloud.google.com/go/dialogflow/cx/apiv3"
	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/go-dfcx/dfcx-go/cx"
)

// Service manages CX environments in a single location.
type Service struct {
	client   *cxapi.EnvironmentsClient
	flows    *cxapi.FlowsClient
	versions *cxapi.VersionsClient
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates an environment service dialing the regional endpoint
// for location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewEnvironmentsClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create environments client: %w", err)
	}
	flowsClient, err := cxapi.NewFlowsClient(ctx, dialOpts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create flows client: %w", err)
	}
	versionsClient, err := cxapi.NewVersionsClient(ctx, dialOpts...)
	if err != nil {
		client.Close()
		flowsClient.Close()
		return nil, fmt.Errorf("create versions client: %w", err)
	}
	return &Service{
		client:   client,
		flows:    flowsClient,
		versions: versionsClient,
		settings: settings,
		logger:   settings.Logger(),
	}, nil
}

// Close releases the underlying client connections.
func (s *Service) Close() error {
	err := s.client.Close()
	if ferr := s.flows.Close(); err == nil {
		err = ferr
	}
	if verr := s.versions.Close(); err == nil {
		err = verr
	}
	return err
}

// List returns all environments of an agent.
func (s *Service) List(ctx context.Context, agentName string) ([]*cxpb.Environment, error) {
	var environments []*cxpb.Environment
	it := s.client.ListEnvironments(ctx, &cxpb.ListEnvironmentsRequest{Parent: agentName})
	for {
		env, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list environments in %s: %w", agentName, err)
		}
		environments = append(environments, env)
	}
	return environments, nil
}

// Get retrieves an environment by resource name.
func (s *Service) Get(ctx context.Context, name string) (*cxpb.Environment, error) {
	env, err := s.client.GetEnvironment(ctx, &cxpb.GetEnvironmentRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get environment %s: %w", name, err)
	}
	return env, nil
}

// GetByDisplayName finds an environment of an agent by display name.
func (s *Service) GetByDisplayName(ctx context.Context, agentName, displayName string) (*cxpb.Environment, error) {
	environments, err := s.List(ctx, agentName)
	if err != nil {
		return nil, err
	}
	for _, env := range environments {
		if env.GetDisplayName() == displayName {
			return env, nil
		}
	}
	return nil, fmt.Errorf("environment %q not found in %s", displayName, agentName)
}

// Create creates an environment and waits for it. When env has no version
// configs, the latest version of every flow in the agent is pinned.
func (s *Service) Create(ctx context.Context, agentName string, env *cxpb.Environment) (*cxpb.Environment, error) {
	if len(env.GetVersionConfigs()) == 0 {
		configs, err := s.latestVersionConfigs(ctx, agentName)
		if err != nil {
			return nil, err
		}
		env.VersionConfigs = configs
	}

	op, err := s.client.CreateEnvironment(ctx, &cxpb.CreateEnvironmentRequest{
		Parent:      agentName,
		Environment: env,
	})
	if err != nil {
		return nil, fmt.Errorf("create environment %q: %w", env.GetDisplayName(), err)
	}
	created, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for environment %q: %w", env.GetDisplayName(), err)
	}
	s.logger.InfoContext(ctx, "created environment",
		slog.String("name", created.GetName()),
		slog.String("display_name", created.GetDisplayName()),
	)
	return created, nil
}

// latestVersionConfigs pins the newest version of every versioned flow.
func (s *Service) latestVersionConfigs(ctx context.Context, agentName string) ([]*cxpb.Environment_VersionConfig, error) {
	var configs []*cxpb.Environment_VersionConfig

	flowIt := s.flows.ListFlows(ctx, &cxpb.ListFlowsRequest{Parent: agentName})
	for {
		flow, err := flowIt.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list flows in %s: %w", agentName, err)
		}

		var latest *cxpb.Version
		versionIt := s.versions.ListVersions(ctx, &cxpb.ListVersionsRequest{Parent: flow.GetName()})
		for {
			version, err := versionIt.Next()
			if err != nil {
				if err == iterator.Done {
					break
				}
				return nil, fmt.Errorf("list versions of %s: %w", flow.GetName(), err)
			}
			if latest == nil || version.GetCreateTime().AsTime().After(latest.GetCreateTime().AsTime()) {
				latest = version
			}
		}
		if latest != nil {
			configs = append(configs, &cxpb.Environment_VersionConfig{
				Version: latest.GetName(),
			})
		}
	}
	return configs, nil
}

// Update updates an environment and waits for it. paths selects the fields
// to update; with no paths the whole resource is written.
func (s *Service) Update(ctx context.Context, env *cxpb.Environment, paths ...string) (*cxpb.Environment, error) {
	req := &cxpb.UpdateEnvironmentRequest{Environment: env}
	if len(paths) > 0 {
		req.UpdateMask = &fieldmaskpb.FieldMask{Paths: paths}
	}
	op, err := s.client.UpdateEnvironment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update environment %s: %w", env.GetName(), err)
	}
	updated, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for environment update %s: %w", env.GetName(), err)
	}
	return updated, nil
}

// Delete deletes an environment by resource name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.client.DeleteEnvironment(ctx, &cxpb.DeleteEnvironmentRequest{Name: name}); err != nil {
		return fmt.Errorf("delete environment %s: %w", name, err)
	}
	return nil
}

// Map returns environment resource names keyed to display names. With
// reverse, display names key to resource names instead.
func (s *Service) Map(ctx context.Context, agentName string, reverse bool) (map[string]string, error) {
	environments, err := s.List(ctx, agentName)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(environments))
	for _, env := range environments {
		if reverse {
			m[env.GetDisplayName()] = env.GetName()
		} else {
			m[env.GetName()] = env.GetDisplayName()
		}
	}
	return m, nil
}
