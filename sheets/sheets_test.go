// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package sheets

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-dfcx/dfcx-go/tabular"
)

func TestToValues(t *testing.T) {
	tbl := tabular.New("a", "b")
	if err := tbl.Append("1", "2"); err != nil {
		t.Fatal(err)
	}
	got := toValues(tbl.Records())
	want := [][]any{
		{"a", "b"},
		{"1", "2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toValues() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewService(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx)
	if err != nil {
		t.Skipf("Skipping test due to credential error: %v", err)
	}
	if service.srv == nil {
		t.Error("sheets service not initialized")
	}
}
