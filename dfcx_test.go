// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package dfcx

import (
	"context"
	"testing"
)

func TestNewClientRejectsMalformedAgentName(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, "not-an-agent-name"); err == nil {
		t.Error("NewClient accepted a malformed agent name")
	}
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, "projects/p/locations/global/agents/a")
	if err != nil {
		t.Skipf("Skipping test due to credential error: %v", err)
	}
	defer client.Close()

	if client.Location() != "global" {
		t.Errorf("Location() = %q, want %q", client.Location(), "global")
	}
	if client.Agents() == nil || client.Sessions() == nil || client.TestCases() == nil {
		t.Error("service accessors returned nil")
	}
}
