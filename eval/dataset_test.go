// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-dfcx/dfcx-go/tabular"
)

func datasetTable(t *testing.T, rows [][]string) *tabular.Table {
	t.Helper()
	table := tabular.New(RequiredColumns...)
	for _, row := range rows {
		if err := table.Append(row...); err != nil {
			t.Fatal(err)
		}
	}
	return table
}

func TestFromTableMissingColumns(t *testing.T) {
	table := tabular.New(ColEvalID, ColActionID)
	_, err := FromTable(table)
	var schemaErr *tabular.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("FromTable error = %v, want SchemaError", err)
	}
	want := []string{ColActionType, ColActionInput, ColActionInputParameters, ColToolAction}
	if diff := cmp.Diff(want, schemaErr.Missing); diff != "" {
		t.Errorf("missing columns mismatch (-want +got):\n%s", diff)
	}
}

func TestPairs(t *testing.T) {
	table := datasetTable(t, [][]string{
		{"conv1", "1", ActionUserUtterance, "hi", "", ""},
		{"conv1", "2", ActionAgentResponse, "hello, how can I help?", "", ""},
		{"conv1", "3", ActionUserUtterance, "find a store", "", ""},
		{"conv1", "4", ActionToolInvocation, "store-locator", "{}", "search"},
		{"conv1", "5", ActionAgentResponse, "here are nearby stores", "", ""},
		{"conv2", "1", ActionUserUtterance, "reset my password", "", ""},
	})
	dataset, err := FromTable(table)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := dataset.EvalIDs(), []string{"conv1", "conv2"}; !cmp.Equal(got, want) {
		t.Errorf("EvalIDs = %v, want %v", got, want)
	}

	pairs := dataset.Pairs("conv1")
	want := []Pair{
		{QueryRow: 0, ResponseRow: 1},
		{QueryRow: 2, ResponseRow: 4, ToolRows: []int{3}},
	}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Errorf("Pairs mismatch (-want +got):\n%s", diff)
	}

	pairs = dataset.Pairs("conv2")
	want = []Pair{{QueryRow: 5, ResponseRow: -1}}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Errorf("Pairs for unanswered conversation (-want +got):\n%s", diff)
	}
}

func TestPairsGroupsInvocationRuns(t *testing.T) {
	table := datasetTable(t, [][]string{
		{"conv1", "1", ActionUserUtterance, "order a pizza", "", ""},
		{"conv1", "2", ActionToolInvocation, "menu-lookup", "{}", "list"},
		{"conv1", "3", ActionToolInvocation, "order-placer", "{}", "create"},
		{"conv1", "4", ActionUserUtterance, "route me to billing", "", ""},
		{"conv1", "5", ActionPlaybookInvocation, "billing", "{}", ""},
	})
	dataset, err := FromTable(table)
	if err != nil {
		t.Fatal(err)
	}

	pairs := dataset.Pairs("conv1")
	want := []Pair{
		{QueryRow: 0, ResponseRow: -1, ToolRows: []int{1, 2}},
		{QueryRow: 3, ResponseRow: -1, PlaybookRows: []int{4}},
	}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Errorf("Pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestPairsOrdersByActionID(t *testing.T) {
	table := datasetTable(t, [][]string{
		{"conv1", "3", ActionUserUtterance, "second question", "", ""},
		{"conv1", "1", ActionUserUtterance, "first question", "", ""},
		{"conv1", "2", ActionAgentResponse, "first answer", "", ""},
		{"conv1", "4", ActionAgentResponse, "second answer", "", ""},
	})
	dataset, err := FromTable(table)
	if err != nil {
		t.Fatal(err)
	}

	pairs := dataset.Pairs("conv1")
	want := []Pair{
		{QueryRow: 1, ResponseRow: 2},
		{QueryRow: 0, ResponseRow: 3},
	}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Errorf("Pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestIsTurnStart(t *testing.T) {
	table := datasetTable(t, [][]string{
		{"conv1", "1", ActionUserUtterance, "hi", "", ""},
		{"conv1", "2", ActionAgentResponse, "hello", "", ""},
	})
	dataset, err := FromTable(table)
	if err != nil {
		t.Fatal(err)
	}
	if !dataset.IsTurnStart(0) {
		t.Error("row with action_id 1 not detected as turn start")
	}
	if dataset.IsTurnStart(1) {
		t.Error("row with action_id 2 detected as turn start")
	}
}

func TestValidateRejectsUnknownActionType(t *testing.T) {
	table := datasetTable(t, [][]string{
		{"conv1", "1", "Telepathy", "hi", "", ""},
	})
	dataset, err := FromTable(table)
	if err != nil {
		t.Fatal(err)
	}
	if err := dataset.Validate(); err == nil {
		t.Error("unknown action type passed validation")
	}
}

func TestDatasetIsolatedFromInput(t *testing.T) {
	table := datasetTable(t, [][]string{
		{"conv1", "1", ActionUserUtterance, "hi", "", ""},
	})
	dataset, err := FromTable(table)
	if err != nil {
		t.Fatal(err)
	}
	if err := table.SetCell(0, ColActionInput, "changed"); err != nil {
		t.Fatal(err)
	}
	if got := dataset.Table().Cell(0, ColActionInput); got != "hi" {
		t.Errorf("dataset cell = %q, want isolation from input table", got)
	}
}
