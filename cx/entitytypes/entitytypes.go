// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package entitytypes manages Dialogflow CX entity type resources.
package entitytypes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	cxapi "cloud.google.com/go/dialogflow/cx/apiv3"
	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/go-dfcx/dfcx-go/cx"
)

// SystemPrefix marks system entity types such as sys.date. System entity
// types are owned by the platform and are never copied or remapped.
const SystemPrefix = "sys."

// IsSystem reports whether an entity type ID or display name denotes a
// system entity type.
func IsSystem(id string) bool {
	return strings.HasPrefix(id, SystemPrefix)
}

// Service manages CX entity types in a single location.
type Service struct {
	client   *cxapi.EntityTypesClient
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates an entity type service dialing the regional endpoint
// for location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewEntityTypesClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create entity types client: %w", err)
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

// List returns all entity types of an agent. languageCode optionally selects
// the entity value language.
func (s *Service) List(ctx context.Context, agentName, languageCode string) ([]*cxpb.EntityType, error) {
	var entityTypes []*cxpb.EntityType
	it := s.client.ListEntityTypes(ctx, &cxpb.ListEntityTypesRequest{
		Parent:       agentName,
		LanguageCode: languageCode,
	})
	for {
		et, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list entity types in %s: %w", agentName, err)
		}
		entityTypes = append(entityTypes, et)
	}
	return entityTypes, nil
}

// Get retrieves an entity type by resource name.
func (s *Service) Get(ctx context.Context, name string) (*cxpb.EntityType, error) {
	et, err := s.client.GetEntityType(ctx, &cxpb.GetEntityTypeRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get entity type %s: %w", name, err)
	}
	return et, nil
}

// Create creates an entity type under an agent. A resource name carried over
// from a copied object is cleared so the API assigns a fresh ID.
func (s *Service) Create(ctx context.Context, agentName string, et *cxpb.EntityType) (*cxpb.EntityType, error) {
	et.Name = ""
	created, err := s.client.CreateEntityType(ctx, &cxpb.CreateEntityTypeRequest{
		Parent:     agentName,
		EntityType: et,
	})
	if err != nil {
		return nil, fmt.Errorf("create entity type %q: %w", et.GetDisplayName(), err)
	}
	s.logger.InfoContext(ctx, "created entity type",
		slog.String("name", created.GetName()),
		slog.String("display_name", created.GetDisplayName()),
	)
	return created, nil
}

// Update updates an entity type. paths selects the fields to update; with no
// paths the whole resource is written.
func (s *Service) Update(ctx context.Context, et *cxpb.EntityType, paths ...string) (*cxpb.EntityType, error) {
	req := &cxpb.UpdateEntityTypeRequest{EntityType: et}
	if len(paths) > 0 {
		req.UpdateMask = &fieldmaskpb.FieldMask{Paths: paths}
	}
	updated, err := s.client.UpdateEntityType(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update entity type %s: %w", et.GetName(), err)
	}
	return updated, nil
}

// Delete deletes an entity type. force also removes references from intent
// parameters.
func (s *Service) Delete(ctx context.Context, name string, force bool) error {
	if err := s.client.DeleteEntityType(ctx, &cxpb.DeleteEntityTypeRequest{Name: name, Force: force}); err != nil {
		return fmt.Errorf("delete entity type %s: %w", name, err)
	}
	return nil
}

// Map returns entity type resource names keyed to display names. With
// reverse, display names key to resource names instead.
func (s *Service) Map(ctx context.Context, agentName string, reverse bool) (map[string]string, error) {
	entityTypes, err := s.List(ctx, agentName, "")
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(entityTypes))
	for _, et := range entityTypes {
		if reverse {
			m[et.GetDisplayName()] = et.GetName()
		} else {
			m[et.GetName()] = et.GetDisplayName()
		}
	}
	return m, nil
}
