// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package pages manages Dialogflow CX page resources.
package pages

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

// Service manages CX pages in a single location.
type Service struct {
	client   *cxapi.PagesClient
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates a page service dialing the regional endpoint for
// location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewPagesClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create pages client: %w", err)
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

// List returns all pages of a flow.
func (s *Service) List(ctx context.Context, flowName string) ([]*cxpb.Page, error) {
	var pages []*cxpb.Page
	it := s.client.ListPages(ctx, &cxpb.ListPagesRequest{Parent: flowName})
	for {
		page, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list pages in %s: %w", flowName, err)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// Get retrieves a page by resource name.
func (s *Service) Get(ctx context.Context, name string) (*cxpb.Page, error) {
	page, err := s.client.GetPage(ctx, &cxpb.GetPageRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", name, err)
	}
	return page, nil
}

// Create creates a page under a flow. A resource name carried over from a
// copied object is cleared so the API assigns a fresh ID.
func (s *Service) Create(ctx context.Context, flowName string, page *cxpb.Page) (*cxpb.Page, error) {
	page.Name = ""
	created, err := s.client.CreatePage(ctx, &cxpb.CreatePageRequest{
		Parent: flowName,
		Page:   page,
	})
	if err != nil {
		return nil, fmt.Errorf("create page %q: %w", page.GetDisplayName(), err)
	}
	s.logger.InfoContext(ctx, "created page",
		slog.String("name", created.GetName()),
		slog.String("display_name", created.GetDisplayName()),
	)
	return created, nil
}

// Update updates a page. paths selects the fields to update; with no paths
// the whole resource is written.
func (s *Service) Update(ctx context.Context, page *cxpb.Page, paths ...string) (*cxpb.Page, error) {
	req := &cxpb.UpdatePageRequest{Page: page}
	if len(paths) > 0 {
		req.UpdateMask = &fieldmaskpb.FieldMask{Paths: paths}
	}
	updated, err := s.client.UpdatePage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update page %s: %w", page.GetName(), err)
	}
	return updated, nil
}

// Delete deletes a page by resource name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.client.DeletePage(ctx, &cxpb.DeletePageRequest{Name: name}); err != nil {
		return fmt.Errorf("delete page %s: %w", name, err)
	}
	return nil
}

// Map returns page resource names keyed to display names for one flow. With
// reverse, display names key to resource names instead.
func (s *Service) Map(ctx context.Context, flowName string, reverse bool) (map[string]string, error) {
	pages, err := s.List(ctx, flowName)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(pages))
	for _, page := range pages {
		if reverse {
			m[page.GetDisplayName()] = page.GetName()
		} else {
			m[page.GetName()] = page.GetDisplayName()
		}
	}
	return m, nil
}
