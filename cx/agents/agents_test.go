// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"context"
	"testing"

	"github.com/go-dfcx/dfcx-go/cx"
)

func TestNewService(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx, "us-central1")
	if err != nil {
		t.Skipf("Skipping test due to credential error: %v", err)
	}
	defer service.Close()

	if service.location != "us-central1" {
		t.Errorf("location = %q, want %q", service.location, "us-central1")
	}
}

func TestService_ListAll(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx, cx.DefaultLocation)
	if err != nil {
		t.Skipf("Skipping test due to credential error: %v", err)
	}
	defer service.Close()

	agents, err := service.ListAll(ctx, "test-project")
	if err != nil {
		t.Skipf("Skipping test due to API error: %v", err)
	}
	for _, agent := range agents {
		if agent.GetName() == "" {
			t.Error("listed agent has empty name")
		}
	}
}
