// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package testcases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"

	"github.com/go-dfcx/dfcx-go/cx"
	"github.com/go-dfcx/dfcx-go/cx/flows"
	"github.com/go-dfcx/dfcx-go/cx/pages"
	"github.com/go-dfcx/dfcx-go/tabular"
)

// ResultColumns is the header of the test case results export.
var ResultColumns = []string{
	"display_name", "id", "short_id", "tags", "creation_time",
	"start_flow", "start_page", "passed", "test_time",
}

// resultString converts the result enum to its wire name, empty for unknown
// values.
func resultString(result cxpb.TestResult) string {
	switch result {
	case cxpb.TestResult_TEST_RESULT_UNSPECIFIED:
		return "TEST_RESULT_UNSPECIFIED"
	case cxpb.TestResult_PASSED:
		return "PASSED"
	case cxpb.TestResult_FAILED:
		return "FAILED"
	}
	return ""
}

// resultBool renders PASSED/FAILED as true/false and anything else as empty.
func resultBool(result cxpb.TestResult) string {
	switch result {
	case cxpb.TestResult_PASSED:
		return "true"
	case cxpb.TestResult_FAILED:
		return "false"
	}
	return ""
}

// startFlow derives the flow a test case starts in from its test config,
// falling back to the agent's Default Start Flow.
func startFlow(tc *cxpb.TestCase) string {
	config := tc.GetTestConfig()
	if config.GetFlow() != "" {
		return config.GetFlow()
	}
	if config.GetPage() != "" {
		parts := strings.Split(config.GetPage(), "/")
		if len(parts) >= 8 {
			return strings.Join(parts[:8], "/")
		}
	}
	agentName := strings.Join(strings.Split(tc.GetName(), "/")[:6], "/")
	return fmt.Sprintf("%s/flows/%s", agentName, cx.DefaultStartFlowID)
}

// startPage derives the page a test case starts on, falling back to the
// flow's start page pseudo-ID.
func startPage(tc *cxpb.TestCase, flowName string) string {
	if page := tc.GetTestConfig().GetPage(); page != "" {
		return page
	}
	return fmt.Sprintf("%s/pages/%s", flowName, cx.StartPage)
}

// ResultsTable lists the agent's test cases with their latest results as a
// table. Test cases without a result are re-run in one batch first; with
// retestAll every test case is re-run.
func (s *Service) ResultsTable(ctx context.Context, agentName string, flowSvc *flows.Service, pageSvc *pages.Service, retestAll bool) (*tabular.Table, error) {
	flowMap, err := flowSvc.Map(ctx, agentName, false)
	if err != nil {
		return nil, err
	}
	pageMaps := make(map[string]map[string]string, len(flowMap))
	for flowName := range flowMap {
		pageMap, err := pageSvc.Map(ctx, flowName, false)
		if err != nil {
			return nil, err
		}
		pageMaps[flowName] = pageMap
	}

	testCases, err := s.List(ctx, agentName, true)
	if err != nil {
		return nil, err
	}

	table := tabular.New(ResultColumns...)
	var retest []string
	for _, tc := range testCases {
		flowName := startFlow(tc)
		pageName := startPage(tc, flowName)
		pageDisplayName := cx.StartPage
		if name, ok := pageMaps[flowName][pageName]; ok {
			pageDisplayName = name
		}

		result := tc.GetLastTestResult()
		table.AppendMap(map[string]string{
			"display_name":  tc.GetDisplayName(),
			"id":            tc.GetName(),
			"short_id":      shortID(tc.GetName()),
			"tags":          strings.Join(tc.GetTags(), ","),
			"creation_time": tc.GetCreationTime().AsTime().Format("2006-01-02T15:04:05Z07:00"),
			"start_flow":    flowMap[flowName],
			"start_page":    pageDisplayName,
			"passed":        resultBool(result.GetTestResult()),
			"test_time":     formatTestTime(result),
		})

		if retestAll || resultString(result.GetTestResult()) == "TEST_RESULT_UNSPECIFIED" {
			retest = append(retest, tc.GetName())
		}
	}

	if len(retest) > 0 {
		s.logger.InfoContext(ctx, "re-running test cases without results",
			slog.Int("count", len(retest)),
		)
		if err := s.retestIntoTable(ctx, agentName, table, retest); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// retestIntoTable batch-runs the named test cases and writes the fresh
// results back into the matching table rows. Batch results may come back in
// any order, so rows are matched by test case name.
func (s *Service) retestIntoTable(ctx context.Context, agentName string, table *tabular.Table, names []string) error {
	results, err := s.BatchRun(ctx, agentName, names, "")
	if err != nil {
		return err
	}

	rowByID := make(map[string]int, table.Len())
	for i := range table.Len() {
		rowByID[table.Cell(i, "id")] = i
	}

	for _, result := range results {
		// Result names are <test case name>/results/<result id>.
		parts := strings.Split(result.GetName(), "/")
		if len(parts) < 2 {
			continue
		}
		tcName := strings.Join(parts[:len(parts)-2], "/")
		i, ok := rowByID[tcName]
		if !ok {
			continue
		}
		table.SetCell(i, "passed", resultBool(result.GetTestResult()))
		table.SetCell(i, "test_time", formatTestTime(result))
	}
	return nil
}

func formatTestTime(result *cxpb.TestCaseResult) string {
	if result.GetTestTime() == nil {
		return ""
	}
	return result.GetTestTime().AsTime().Format("2006-01-02T15:04:05Z07:00")
}

// shortID returns the final path segment of a resource name.
func shortID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
