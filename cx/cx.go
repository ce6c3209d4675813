// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package cx provides the shared foundation for the Dialogflow CX resource
// services: resource name parsing, regional endpoint resolution, credential
// plumbing, and quota-aware retries.
package cx

import (
	"fmt"
	"strings"
)

// DefaultLocation is the multi-region location used when no region is given.
const DefaultLocation = "global"

// DefaultStartFlowID is the fixed resource ID of every agent's Default Start Flow.
const DefaultStartFlowID = "00000000-0000-0000-0000-000000000000"

// Special page IDs that are valid transition targets but are not backed by
// page resources.
const (
	StartPage    = "START_PAGE"
	EndFlow      = "END_FLOW"
	EndSession   = "END_SESSION"
	CurrentPage  = "CURRENT_PAGE"
	PreviousPage = "PREVIOUS_PAGE"
)

// SpecialPages lists the page IDs that never resolve to page resources.
var SpecialPages = []string{EndFlow, EndSession, CurrentPage, PreviousPage, StartPage}

// IsSpecialPage reports whether id is one of the reserved page IDs.
func IsSpecialPage(id string) bool {
	switch id {
	case StartPage, EndFlow, EndSession, CurrentPage, PreviousPage:
		return true
	}
	return false
}

// Regions is the fixed list of GCP regions that can host CX agents. Agent
// listings that traverse a whole project walk this list.
var Regions = []string{
	"global",
	"us-central1",
	"us-east1",
	"us-west1",
	"asia-northeast1",
	"asia-south1",
	"australia-southeast1",
	"northamerica-northeast1",
	"europe-west1",
	"europe-west2",
}

// Name is a parsed Dialogflow CX resource name.
//
// All CX resource names share the prefix
// projects/<project>/locations/<location>/agents/<agent> followed by
// resource-specific segments such as flows/<flow>/pages/<page>.
type Name struct {
	Project  string
	Location string
	Agent    string

	// Kind/ID pairs following the agent segment, in order. For
	// .../flows/f1/pages/p1 this is [{flows f1} {pages p1}].
	Rest []Segment
}

// Segment is one collection/ID pair of a resource name.
type Segment struct {
	Collection string
	ID         string
}

// ParseName parses a CX resource name. Names must at least reach the
// locations segment; everything after is optional.
func ParseName(name string) (*Name, error) {
	parts := strings.Split(name, "/")
	if len(parts) < 4 || len(parts)%2 != 0 {
		return nil, fmt.Errorf("malformed resource name %q", name)
	}
	if parts[0] != "projects" || parts[2] != "locations" {
		return nil, fmt.Errorf("malformed resource name %q", name)
	}
	n := &Name{
		Project:  parts[1],
		Location: parts[3],
	}
	rest := parts[4:]
	if len(rest) > 0 {
		if rest[0] != "agents" {
			return nil, fmt.Errorf("malformed resource name %q: expected agents segment, got %q", name, rest[0])
		}
		n.Agent = rest[1]
		rest = rest[2:]
	}
	for i := 0; i < len(rest); i += 2 {
		n.Rest = append(n.Rest, Segment{Collection: rest[i], ID: rest[i+1]})
	}
	return n, nil
}

// LocationPath returns projects/<project>/locations/<location>.
func (n *Name) LocationPath() string {
	return fmt.Sprintf("projects/%s/locations/%s", n.Project, n.Location)
}

// AgentPath returns the agent prefix of the name, or an error if the name has
// no agent segment.
func (n *Name) AgentPath() (string, error) {
	if n.Agent == "" {
		return "", fmt.Errorf("resource name has no agent segment")
	}
	return fmt.Sprintf("%s/agents/%s", n.LocationPath(), n.Agent), nil
}

// FlowPath returns the flow prefix of the name, or an error if the name does
// not reach a flows segment.
func (n *Name) FlowPath() (string, error) {
	agent, err := n.AgentPath()
	if err != nil {
		return "", err
	}
	if len(n.Rest) == 0 || n.Rest[0].Collection != "flows" {
		return "", fmt.Errorf("resource name has no flow segment")
	}
	return fmt.Sprintf("%s/flows/%s", agent, n.Rest[0].ID), nil
}

// ID returns the final path segment of the name.
func (n *Name) ID() string {
	if len(n.Rest) > 0 {
		return n.Rest[len(n.Rest)-1].ID
	}
	if n.Agent != "" {
		return n.Agent
	}
	return n.Location
}

// Location extracts the location from any CX resource name.
func Location(name string) (string, error) {
	n, err := ParseName(name)
	if err != nil {
		return "", err
	}
	return n.Location, nil
}

// AgentPath extracts the agent prefix from any agent-scoped resource name.
func AgentPath(name string) (string, error) {
	n, err := ParseName(name)
	if err != nil {
		return "", err
	}
	return n.AgentPath()
}

// FlowPath extracts the flow prefix from any flow-scoped resource name.
func FlowPath(name string) (string, error) {
	n, err := ParseName(name)
	if err != nil {
		return "", err
	}
	return n.FlowPath()
}

// LocationPath builds projects/<project>/locations/<location>.
func LocationPath(projectID, location string) string {
	return fmt.Sprintf("projects/%s/locations/%s", projectID, location)
}

// Endpoint returns the regional API endpoint for a location. The global
// multi-region uses the default endpoint, reported as the empty string.
func Endpoint(location string) string {
	if location == "" || location == DefaultLocation {
		return ""
	}
	return fmt.Sprintf("%s-dialogflow.googleapis.com:443", location)
}

// EndpointForResource returns the regional API endpoint for the location
// embedded in a resource name.
func EndpointForResource(name string) (string, error) {
	location, err := Location(name)
	if err != nil {
		return "", err
	}
	return Endpoint(location), nil
}
