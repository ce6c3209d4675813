// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package testcases manages Dialogflow CX test case resources and their
// results.
package testcases

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

// Service manages CX test cases in a single location.
type Service struct {
	client   *cxapi.TestCasesClient
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates a test case service dialing the regional endpoint for
// location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewTestCasesClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create test cases client: %w", err)
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

// List returns all test cases of an agent. full includes conversation turns
// and the latest results.
func (s *Service) List(ctx context.Context, agentName string, full bool) ([]*cxpb.TestCase, error) {
	view := cxpb.ListTestCasesRequest_BASIC
	if full {
		view = cxpb.ListTestCasesRequest_FULL
	}
	var testCases []*cxpb.TestCase
	it := s.client.ListTestCases(ctx, &cxpb.ListTestCasesRequest{
		Parent: agentName,
		View:   view,
	})
	for {
		tc, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list test cases in %s: %w", agentName, err)
		}
		testCases = append(testCases, tc)
	}
	return testCases, nil
}

// Get retrieves a test case by resource name.
func (s *Service) Get(ctx context.Context, name string) (*cxpb.TestCase, error) {
	tc, err := s.client.GetTestCase(ctx, &cxpb.GetTestCaseRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get test case %s: %w", name, err)
	}
	return tc, nil
}

// Create creates a test case under an agent.
func (s *Service) Create(ctx context.Context, agentName string, tc *cxpb.TestCase) (*cxpb.TestCase, error) {
	created, err := s.client.CreateTestCase(ctx, &cxpb.CreateTestCaseRequest{
		Parent:   agentName,
		TestCase: tc,
	})
	if err != nil {
		return nil, fmt.Errorf("create test case %q: %w", tc.GetDisplayName(), err)
	}
	s.logger.InfoContext(ctx, "created test case",
		slog.String("name", created.GetName()),
		slog.String("display_name", created.GetDisplayName()),
	)
	return created, nil
}

// Update updates a test case. paths selects the fields to update; with no
// paths the whole resource is written.
func (s *Service) Update(ctx context.Context, tc *cxpb.TestCase, paths ...string) (*cxpb.TestCase, error) {
	req := &cxpb.UpdateTestCaseRequest{TestCase: tc}
	if len(paths) > 0 {
		req.UpdateMask = &fieldmaskpb.FieldMask{Paths: paths}
	}
	updated, err := s.client.UpdateTestCase(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update test case %s: %w", tc.GetName(), err)
	}
	return updated, nil
}

// Run runs one test case, optionally in an environment, and waits for the
// result.
func (s *Service) Run(ctx context.Context, name, environment string) (*cxpb.TestCaseResult, error) {
	op, err := s.client.RunTestCase(ctx, &cxpb.RunTestCaseRequest{
		Name:        name,
		Environment: environment,
	})
	if err != nil {
		return nil, fmt.Errorf("run test case %s: %w", name, err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for test case %s: %w", name, err)
	}
	return resp.GetResult(), nil
}

// BatchRun runs a set of test cases of one agent, optionally in an
// environment, and waits for the results.
func (s *Service) BatchRun(ctx context.Context, agentName string, testCaseNames []string, environment string) ([]*cxpb.TestCaseResult, error) {
	op, err := s.client.BatchRunTestCases(ctx, &cxpb.BatchRunTestCasesRequest{
		Parent:      agentName,
		TestCases:   testCaseNames,
		Environment: environment,
	})
	if err != nil {
		return nil, fmt.Errorf("batch run test cases in %s: %w", agentName, err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for batch run in %s: %w", agentName, err)
	}
	return resp.GetResults(), nil
}

// ListResults returns the results of a test case. A test case ID of "-"
// lists results across all test cases of the agent.
func (s *Service) ListResults(ctx context.Context, testCaseName, filter string) ([]*cxpb.TestCaseResult, error) {
	var results []*cxpb.TestCaseResult
	it := s.client.ListTestCaseResults(ctx, &cxpb.ListTestCaseResultsRequest{
		Parent: testCaseName,
		Filter: filter,
	})
	for {
		result, err := it.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("list test case results in %s: %w", testCaseName, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// GetResult retrieves a single test case result by resource name.
func (s *Service) GetResult(ctx context.Context, name string) (*cxpb.TestCaseResult, error) {
	result, err := s.client.GetTestCaseResult(ctx, &cxpb.GetTestCaseResultRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("get test case result %s: %w", name, err)
	}
	return result, nil
}

// Export starts a test case export to a GCS URI and waits for the written
// URI.
func (s *Service) Export(ctx context.Context, agentName, gcsURI, filter string) (string, error) {
	op, err := s.client.ExportTestCases(ctx, &cxpb.ExportTestCasesRequest{
		Parent:      agentName,
		Destination: &cxpb.ExportTestCasesRequest_GcsUri{GcsUri: gcsURI},
		Filter:      filter,
	})
	if err != nil {
		return "", fmt.Errorf("export test cases from %s: %w", agentName, err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("wait for test case export from %s: %w", agentName, err)
	}
	return resp.GetGcsUri(), nil
}

// Import imports test cases from a GCS URI and waits for the created test
// case names.
func (s *Service) Import(ctx context.Context, agentName, gcsURI string) ([]string, error) {
	op, err := s.client.ImportTestCases(ctx, &cxpb.ImportTestCasesRequest{
		Parent: agentName,
		Source: &cxpb.ImportTestCasesRequest_GcsUri{GcsUri: gcsURI},
	})
	if err != nil {
		return nil, fmt.Errorf("import test cases into %s: %w", agentName, err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for test case import into %s: %w", agentName, err)
	}
	return resp.GetNames(), nil
}

// BatchDelete deletes a set of test cases of one agent.
func (s *Service) BatchDelete(ctx context.Context, agentName string, testCaseNames []string) error {
	if err := s.client.BatchDeleteTestCases(ctx, &cxpb.BatchDeleteTestCasesRequest{
		Parent: agentName,
		Names:  testCaseNames,
	}); err != nil {
		return fmt.Errorf("batch delete test cases in %s: %w", agentName, err)
	}
	return nil
}

// CoverageType selects what CalculateCoverage measures.
type CoverageType = cxpb.CalculateCoverageRequest_CoverageType

// Coverage types.
const (
	CoverageIntent         = cxpb.CalculateCoverageRequest_INTENT
	CoveragePageTransition = cxpb.CalculateCoverageRequest_PAGE_TRANSITION
	CoverageRouteGroup     = cxpb.CalculateCoverageRequest_TRANSITION_ROUTE_GROUP
)

// CalculateCoverage reports how much of the agent the test cases exercise.
func (s *Service) CalculateCoverage(ctx context.Context, agentName string, coverageType CoverageType) (*cxpb.CalculateCoverageResponse, error) {
	resp, err := s.client.CalculateCoverage(ctx, &cxpb.CalculateCoverageRequest{
		Agent: agentName,
		Type:  coverageType,
	})
	if err != nil {
		return nil, fmt.Errorf("calculate coverage for %s: %w", agentName, err)
	}
	return resp, nil
}
