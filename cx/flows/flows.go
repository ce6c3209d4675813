// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package flows manages Dialogflow CX flow resources, including training,
// export and import.
package flows

import (
	"context"
	"fmt"
	"log/slog"

	cxapi "cloud.google.com/go/dialogflow/cx/apiv3"
	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/go-dfcx/dfcx-go/cx"
)

// Service manages CX flows in a single location.
type Service struct {
	client   *cxapi.FlowsClient
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates a flow service dialing the regional endpoint for
// location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewFlowsClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create flows client: %w", err)
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

// List returns all flows of an agent.
func (s *Service) List(ctx context.Context, agentName string) ([]*cxpb.Flow, error) {
	var flows []*cxpb.Flow
	it := s.client.ListFlows(ctx, &cxpb.ListFlowsRequest{Parent: agentName})
	for {
		flow, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list flows in %s: %w", agentName, err)
		}
		flows = append(flows, flow)
	}
	return flows, nil
}

// Get retrieves a flow by resource name.
func (s *Service) Get(ctx context.Context, name string) (*cxpb.Flow, error) {
	flow, err := s.client.GetFlow(ctx, &cxpb.GetFlowRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get flow %s: %w", name, err)
	}
	return flow, nil
}

// GetByDisplayName finds a flow of an agent by display name.
func (s *Service) GetByDisplayName(ctx context.Context, agentName, displayName string) (*cxpb.Flow, error) {
	flows, err := s.List(ctx, agentName)
	if err != nil {
		return nil, err
	}
	for _, flow := range flows {
		if flow.GetDisplayName() == displayName {
			return flow, nil
		}
	}
	return nil, fmt.Errorf("flow %q not found in %s", displayName, agentName)
}

// Create creates a flow under an agent.
func (s *Service) Create(ctx context.Context, agentName string, flow *cxpb.Flow) (*cxpb.Flow, error) {
	flow.Name = ""
	created, err := s.client.CreateFlow(ctx, &cxpb.CreateFlowRequest{
		Parent: agentName,
		Flow:   flow,
	})
	if err != nil {
		return nil, fmt.Errorf("create flow %q: %w", flow.GetDisplayName(), err)
	}
	return created, nil
}

// Map returns flow resource names keyed to display names. With reverse,
// display names key to resource names instead.
func (s *Service) Map(ctx context.Context, agentName string, reverse bool) (map[string]string, error) {
	flows, err := s.List(ctx, agentName)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(flows))
	for _, flow := range flows {
		if reverse {
			m[flow.GetDisplayName()] = flow.GetName()
		} else {
			m[flow.GetName()] = flow.GetDisplayName()
		}
	}
	return m, nil
}

// Train starts NLU model training for a flow and returns the long-running
// operation.
func (s *Service) Train(ctx context.Context, name string) (*cxapi.TrainFlowOperation, error) {
	op, err := s.client.TrainFlow(ctx, &cxpb.TrainFlowRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("train flow %s: %w", name, err)
	}
	s.logger.InfoContext(ctx, "training flow", slog.String("name", name))
	return op, nil
}

// Update updates a flow. paths selects the fields to update; with no paths
// the whole resource is written.
func (s *Service) Update(ctx context.Context, flow *cxpb.Flow, paths ...string) (*cxpb.Flow, error) {
	req := &cxpb.UpdateFlowRequest{Flow: flow}
	if len(paths) > 0 {
		req.UpdateMask = &fieldmaskpb.FieldMask{Paths: paths}
	}
	updated, err := s.client.UpdateFlow(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update flow %s: %w", flow.GetName(), err)
	}
	return updated, nil
}

// UpdateNLUSettings merges the given settings over a flow's current NLU
// settings and writes the result.
func (s *Service) UpdateNLUSettings(ctx context.Context, name string, settings *cxpb.NluSettings) (*cxpb.Flow, error) {
	flow, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if flow.NluSettings == nil {
		flow.NluSettings = &cxpb.NluSettings{}
	}
	proto.Merge(flow.NluSettings, settings)
	return s.Update(ctx, flow, "nlu_settings")
}

// Export starts a flow export to a GCS URI and returns the long-running
// operation. includeReferenced also exports flows the flow transitions to.
func (s *Service) Export(ctx context.Context, name, gcsURI string, includeReferenced bool) (*cxapi.ExportFlowOperation, error) {
	op, err := s.client.ExportFlow(ctx, &cxpb.ExportFlowRequest{
		Name:                   name,
		FlowUri:                gcsURI,
		IncludeReferencedFlows: includeReferenced,
	})
	if err != nil {
		return nil, fmt.Errorf("export flow %s: %w", name, err)
	}
	return op, nil
}

// ImportOption controls display-name conflicts during flow import.
type ImportOption = cxpb.ImportFlowRequest_ImportOption

// Import options. Fallback renames the imported flow on conflict, Keep
// replaces the existing flow.
const (
	ImportFallback = cxpb.ImportFlowRequest_FALLBACK
	ImportKeep     = cxpb.ImportFlowRequest_KEEP
)

// Import starts a flow import from a GCS URI into an agent and returns the
// long-running operation.
func (s *Service) Import(ctx context.Context, agentName, gcsURI string, importOption ImportOption) (*cxapi.ImportFlowOperation, error) {
	op, err := s.client.ImportFlow(ctx, &cxpb.ImportFlowRequest{
		Parent:       agentName,
		Flow:         &cxpb.ImportFlowRequest_FlowUri{FlowUri: gcsURI},
		ImportOption: importOption,
	})
	if err != nil {
		return nil, fmt.Errorf("import flow into %s: %w", agentName, err)
	}
	return op, nil
}

// Delete deletes a flow. force also removes incoming transitions from other
// flows.
func (s *Service) Delete(ctx context.Context, name string, force bool) error {
	if err := s.client.DeleteFlow(ctx, &cxpb.DeleteFlowRequest{Name: name, Force: force}); err != nil {
		return fmt.Errorf("delete flow %s: %w", name, err)
	}
	return nil
}
