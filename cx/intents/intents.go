// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package intents manages Dialogflow CX intent resources, including bulk
// tabular import and export of training phrases.
package intents

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

// Service manages CX intents in a single location.
type Service struct {
	client   *cxapi.IntentsClient
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates an intent service dialing the regional endpoint for
// location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewIntentsClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create intents client: %w", err)
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

// List returns all intents of an agent. languageCode optionally selects the
// training phrase language.
func (s *Service) List(ctx context.Context, agentName, languageCode string) ([]*cxpb.Intent, error) {
	var intents []*cxpb.Intent
	it := s.client.ListIntents(ctx, &cxpb.ListIntentsRequest{
		Parent:       agentName,
		LanguageCode: languageCode,
	})
	for {
		intent, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list intents in %s: %w", agentName, err)
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

// Get retrieves an intent by resource name.
func (s *Service) Get(ctx context.Context, name string) (*cxpb.Intent, error) {
	intent, err := s.client.GetIntent(ctx, &cxpb.GetIntentRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get intent %s: %w", name, err)
	}
	return intent, nil
}

// GetByDisplayName finds an intent of an agent by display name.
func (s *Service) GetByDisplayName(ctx context.Context, agentName, displayName string) (*cxpb.Intent, error) {
	intents, err := s.List(ctx, agentName, "")
	if err != nil {
		return nil, err
	}
	for _, intent := range intents {
		if intent.GetDisplayName() == displayName {
			return intent, nil
		}
	}
	return nil, fmt.Errorf("intent %q not found in %s", displayName, agentName)
}

// Create creates an intent under an agent. A resource name carried over from
// a copied object is cleared so the API assigns a fresh ID.
func (s *Service) Create(ctx context.Context, agentName string, intent *cxpb.Intent, languageCode string) (*cxpb.Intent, error) {
	intent.Name = ""
	created, err := s.client.CreateIntent(ctx, &cxpb.CreateIntentRequest{
		Parent:       agentName,
		Intent:       intent,
		LanguageCode: languageCode,
	})
	if err != nil {
		return nil, fmt.Errorf("create intent %q: %w", intent.GetDisplayName(), err)
	}
	s.logger.InfoContext(ctx, "created intent",
		slog.String("name", created.GetName()),
		slog.String("display_name", created.GetDisplayName()),
	)
	return created, nil
}

// Update updates an intent. paths selects the fields to update; with no paths
// the whole resource is written.
func (s *Service) Update(ctx context.Context, intent *cxpb.Intent, languageCode string, paths ...string) (*cxpb.Intent, error) {
	req := &cxpb.UpdateIntentRequest{
		Intent:       intent,
		LanguageCode: languageCode,
	}
	if len(paths) > 0 {
		req.UpdateMask = &fieldmaskpb.FieldMask{Paths: paths}
	}
	updated, err := s.client.UpdateIntent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update intent %s: %w", intent.GetName(), err)
	}
	return updated, nil
}

// Delete deletes an intent by resource name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.client.DeleteIntent(ctx, &cxpb.DeleteIntentRequest{Name: name}); err != nil {
		return fmt.Errorf("delete intent %s: %w", name, err)
	}
	return nil
}

// Map returns intent resource names keyed to display names. With reverse,
// display names key to resource names instead.
func (s *Service) Map(ctx context.Context, agentName string, reverse bool) (map[string]string, error) {
	intents, err := s.List(ctx, agentName, "")
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(intents))
	for _, intent := range intents {
		if reverse {
			m[intent.GetDisplayName()] = intent.GetName()
		} else {
			m[intent.GetName()] = intent.GetDisplayName()
		}
	}
	return m, nil
}
