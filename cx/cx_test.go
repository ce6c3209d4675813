// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package cx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseName(t *testing.T) {
	tests := map[string]struct {
		name    string
		want    *Name
		wantErr bool
	}{
		"location": {
			name: "projects/my-project/locations/global",
			want: &Name{Project: "my-project", Location: "global"},
		},
		"agent": {
			name: "projects/my-project/locations/us-central1/agents/a1",
			want: &Name{Project: "my-project", Location: "us-central1", Agent: "a1"},
		},
		"page": {
			name: "projects/my-project/locations/global/agents/a1/flows/f1/pages/p1",
			want: &Name{
				Project:  "my-project",
				Location: "global",
				Agent:    "a1",
				Rest: []Segment{
					{Collection: "flows", ID: "f1"},
					{Collection: "pages", ID: "p1"},
				},
			},
		},
		"intent": {
			name: "projects/my-project/locations/global/agents/a1/intents/i1",
			want: &Name{
				Project:  "my-project",
				Location: "global",
				Agent:    "a1",
				Rest:     []Segment{{Collection: "intents", ID: "i1"}},
			},
		},
		"odd segments": {
			name:    "projects/my-project/locations",
			wantErr: true,
		},
		"wrong prefix": {
			name:    "folders/my-project/locations/global",
			wantErr: true,
		},
		"missing agents collection": {
			name:    "projects/my-project/locations/global/flows/f1",
			wantErr: true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseName(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseName(%q) = %v, want error", tt.name, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseName(%q): %v", tt.name, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseName(%q) mismatch (-want +got):\n%s", tt.name, diff)
			}
		})
	}
}

func TestNamePaths(t *testing.T) {
	n, err := ParseName("projects/p/locations/us-east1/agents/a/flows/f/pages/pg")
	if err != nil {
		t.Fatal(err)
	}

	if got, want := n.LocationPath(), "projects/p/locations/us-east1"; got != want {
		t.Errorf("LocationPath() = %q, want %q", got, want)
	}

	agent, err := n.AgentPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := "projects/p/locations/us-east1/agents/a"; agent != want {
		t.Errorf("AgentPath() = %q, want %q", agent, want)
	}

	flow, err := n.FlowPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := "projects/p/locations/us-east1/agents/a/flows/f"; flow != want {
		t.Errorf("FlowPath() = %q, want %q", flow, want)
	}

	if got, want := n.ID(), "pg"; got != want {
		t.Errorf("ID() = %q, want %q", got, want)
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"global", ""},
		{"", ""},
		{"us-central1", "us-central1-dialogflow.googleapis.com:443"},
		{"europe-west2", "europe-west2-dialogflow.googleapis.com:443"},
	}
	for _, tt := range tests {
		if got := Endpoint(tt.location); got != tt.want {
			t.Errorf("Endpoint(%q) = %q, want %q", tt.location, got, tt.want)
		}
	}
}

func TestEndpointForResource(t *testing.T) {
	got, err := EndpointForResource("projects/p/locations/asia-northeast1/agents/a")
	if err != nil {
		t.Fatal(err)
	}
	if want := "asia-northeast1-dialogflow.googleapis.com:443"; got != want {
		t.Errorf("EndpointForResource() = %q, want %q", got, want)
	}

	if _, err := EndpointForResource("not-a-name"); err == nil {
		t.Error("EndpointForResource(malformed) = nil, want error")
	}
}

func TestIsSpecialPage(t *testing.T) {
	for _, id := range SpecialPages {
		if !IsSpecialPage(id) {
			t.Errorf("IsSpecialPage(%q) = false, want true", id)
		}
	}
	if IsSpecialPage("8a9d2f00-0000-0000-0000-000000000000") {
		t.Error("IsSpecialPage(uuid) = true, want false")
	}
}
