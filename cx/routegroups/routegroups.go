// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package routegroups manages Dialogflow CX transition route group
// resources.
package routegroups

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

// Service manages CX transition route groups in a single location.
type Service struct {
	client   *cxapi.TransitionRouteGroupsClient
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates a route group service dialing the regional endpoint for
// location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewTransitionRouteGroupsClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create transition route groups client: %w", err)
	}
	return &Service{
		client:   client,
		settings: settings,
		logger:   settings.Logger(),
	}, nil
}

// Close releases the underlying client connection.
func (s *Service) Close() error {
	return s.client.Close()
}

// List returns all transition route groups of a flow.
func (s *Service) List(ctx context.Context, flowName string) ([]*cxpb.TransitionRouteGroup, error) {
	var groups []*cxpb.TransitionRouteGroup
	it := s.client.ListTransitionRouteGroups(ctx, &cxpb.ListTransitionRouteGroupsRequest{
		Parent: flowName,
	})
	for {
		group, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list transition route groups in %s: %w", flowName, err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Get retrieves a transition route group by resource name.
func (s *Service) Get(ctx context.Context, name string) (*cxpb.TransitionRouteGroup, error) {
	group, err := s.client.GetTransitionRouteGroup(ctx, &cxpb.GetTransitionRouteGroupRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get transition route group %s: %w", name, err)
	}
	return group, nil
}

// Create creates a transition route group under a flow. A resource name
// carried over from a copied object is cleared so the API assigns a fresh
// ID.
func (s *Service) Create(ctx context.Context, flowName string, group *cxpb.TransitionRouteGroup) (*cxpb.TransitionRouteGroup, error) {
	group.Name = ""
	created, err := s.client.CreateTransitionRouteGroup(ctx, &cxpb.CreateTransitionRouteGroupRequest{
		Parent:               flowName,
		TransitionRouteGroup: group,
	})
	if err != nil {
		return nil, fmt.Errorf("create transition route group %q: %w", group.GetDisplayName(), err)
	}
	s.logger.InfoContext(ctx, "created transition route group",
		slog.String("name", created.GetName()),
		slog.String("display_name", created.GetDisplayName()),
	)
	return created, nil
}

// Update updates a transition route group. paths selects the fields to
// update; with no paths the whole resource is written.
func (s *Service) Update(ctx context.Context, group *cxpb.TransitionRouteGroup, languageCode string, paths ...string) (*cxpb.TransitionRouteGroup, error) {
	req := &cxpb.UpdateTransitionRouteGroupRequest{
		TransitionRouteGroup: group,
		LanguageCode:         languageCode,
	}
	if len(paths) > 0 {
		req.UpdateMask = &fieldmaskpb.FieldMask{Paths: paths}
	}
	updated, err := s.client.UpdateTransitionRouteGroup(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update transition route group %s: %w", group.GetName(), err)
	}
	return updated, nil
}

// Delete deletes a transition route group by resource name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.client.DeleteTransitionRouteGroup(ctx, &cxpb.DeleteTransitionRouteGroupRequest{Name: name}); err != nil {
		return fmt.Errorf("delete transition route group %s: %w", name, err)
	}
	return nil
}

// Map returns route group resource names keyed to display names for one
// flow. With reverse, display names key to resource names instead.
func (s *Service) Map(ctx context.Context, flowName string, reverse bool) (map[string]string, error) {
	groups, err := s.List(ctx, flowName)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(groups))
	for _, group := range groups {
		if reverse {
			m[group.GetDisplayName()] = group.GetName()
		} else {
			m[group.GetName()] = group.GetDisplayName()
		}
	}
	return m, nil
}
