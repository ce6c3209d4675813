// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTable_Append(t *testing.T) {
	tbl := New("display_name", "text")
	if err := tbl.Append("greet", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Append("only-one"); err == nil {
		t.Error("Append with wrong arity = nil, want error")
	}
	if got := tbl.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	if got := tbl.Cell(0, "text"); got != "hello" {
		t.Errorf(`Cell(0, "text") = %q, want "hello"`, got)
	}
}

func TestTable_Require(t *testing.T) {
	tbl := New("display_name", "text")
	if err := tbl.Require("display_name", "text"); err != nil {
		t.Errorf("Require(present) = %v, want nil", err)
	}

	err := tbl.Require("display_name", "training_phrase", "part")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Require(missing) = %v, want *SchemaError", err)
	}
	want := []string{"training_phrase", "part"}
	if diff := cmp.Diff(want, schemaErr.Missing); diff != "" {
		t.Errorf("missing columns mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_SortAndSelect(t *testing.T) {
	tbl := New("intent", "tp")
	for _, row := range [][]string{
		{"b_intent", "z phrase"},
		{"a_intent", "m phrase"},
		{"b_intent", "a phrase"},
	} {
		if err := tbl.Append(row...); err != nil {
			t.Fatal(err)
		}
	}
	if err := tbl.Sort("intent", "tp"); err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"intent", "tp"},
		{"a_intent", "m phrase"},
		{"b_intent", "a phrase"},
		{"b_intent", "z phrase"},
	}
	if diff := cmp.Diff(want, tbl.Records()); diff != "" {
		t.Errorf("sorted records mismatch (-want +got):\n%s", diff)
	}

	sel, err := tbl.Select("tp")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"tp"}, sel.Columns()); diff != "" {
		t.Errorf("selected columns mismatch (-want +got):\n%s", diff)
	}

	if _, err := tbl.Select("nope"); err == nil {
		t.Error("Select(unknown) = nil, want error")
	}
}

func TestTable_Clone(t *testing.T) {
	tbl := New("a", "b")
	if err := tbl.Append("1", "2"); err != nil {
		t.Fatal(err)
	}
	clone, err := tbl.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if err := clone.SetCell(0, "a", "changed"); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Cell(0, "a"); got != "1" {
		t.Errorf("original mutated through clone: %q", got)
	}
}

func TestTable_CSVRoundTrip(t *testing.T) {
	tbl := New("eval_id", "action_type", "action_input")
	if err := tbl.Append("travel_1", "User Utterance", "hi there"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Append("travel_1", "Agent Response", "hello, how can I help?"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tbl.Records(), got.Records()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_AddColumn(t *testing.T) {
	tbl := New("a")
	if err := tbl.Append("1"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddColumn("b", "fill"); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Cell(0, "b"); got != "fill" {
		t.Errorf(`Cell(0, "b") = %q, want "fill"`, got)
	}
	if err := tbl.AddColumn("b", ""); err == nil {
		t.Error("AddColumn(duplicate) = nil, want error")
	}
}

func TestTable_MarshalJSON(t *testing.T) {
	tbl := New("k")
	if err := tbl.Append("v"); err != nil {
		t.Fatal(err)
	}
	data, err := tbl.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); !strings.Contains(got, `"k":"v"`) {
		t.Errorf("MarshalJSON() = %s, want row object with k:v", got)
	}
}
