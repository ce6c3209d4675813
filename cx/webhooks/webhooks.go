// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package webhooks manages Dialogflow CX webhook resources.
package webhooks

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

// Service manages CX webhooks in a single location.
type Service struct {
	client   *cxapi.WebhooksClient
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates a webhook service dialing the regional endpoint for
// location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewWebhooksClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create webhooks client: %w", err)
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

// List returns all webhooks of an agent.
func (s *Service) List(ctx context.Context, agentName string) ([]*cxpb.Webhook, error) {
	var webhooks []*cxpb.Webhook
	it := s.client.ListWebhooks(ctx, &cxpb.ListWebhooksRequest{Parent: agentName})
	for {
		webhook, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list webhooks in %s: %w", agentName, err)
		}
		webhooks = append(webhooks, webhook)
	}
	return webhooks, nil
}

// Get retrieves a webhook by resource name.
func (s *Service) Get(ctx context.Context, name string) (*cxpb.Webhook, error) {
	webhook, err := s.client.GetWebhook(ctx, &cxpb.GetWebhookRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get webhook %s: %w", name, err)
	}
	return webhook, nil
}

// Create creates a webhook under an agent. A resource name carried over from
// a copied object is cleared so the API assigns a fresh ID.
func (s *Service) Create(ctx context.Context, agentName string, webhook *cxpb.Webhook) (*cxpb.Webhook, error) {
	webhook.Name = ""
	created, err := s.client.CreateWebhook(ctx, &cxpb.CreateWebhookRequest{
		Parent:  agentName,
		Webhook: webhook,
	})
	if err != nil {
		return nil, fmt.Errorf("create webhook %q: %w", webhook.GetDisplayName(), err)
	}
	s.logger.InfoContext(ctx, "created webhook",
		slog.String("name", created.GetName()),
		slog.String("display_name", created.GetDisplayName()),
	)
	return created, nil
}

// Update updates a webhook. paths selects the fields to update; with no
// paths the whole resource is written.
func (s *Service) Update(ctx context.Context, webhook *cxpb.Webhook, paths ...string) (*cxpb.Webhook, error) {
	req := &cxpb.UpdateWebhookRequest{Webhook: webhook}
	if len(paths) > 0 {
		req.UpdateMask = &fieldmaskpb.FieldMask{Paths: paths}
	}
	updated, err := s.client.UpdateWebhook(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update webhook %s: %w", webhook.GetName(), err)
	}
	return updated, nil
}

// Delete deletes a webhook by resource name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.client.DeleteWebhook(ctx, &cxpb.DeleteWebhookRequest{Name: name}); err != nil {
		return fmt.Errorf("delete webhook %s: %w", name, err)
	}
	return nil
}

// Map returns webhook resource names keyed to display names. With reverse,
// display names key to resource names instead.
func (s *Service) Map(ctx context.Context, agentName string, reverse bool) (map[string]string, error) {
	webhooks, err := s.List(ctx, agentName)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(webhooks))
	for _, webhook := range webhooks {
		if reverse {
			m[webhook.GetDisplayName()] = webhook.GetName()
		} else {
			m[webhook.GetName()] = webhook.GetDisplayName()
		}
	}
	return m, nil
}
