// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package gcs

import "testing"

func TestSplitURI(t *testing.T) {
	tests := map[string]struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		"simple": {
			uri:        "gs://my-bucket/agent.blob",
			wantBucket: "my-bucket",
			wantObject: "agent.blob",
		},
		"nested": {
			uri:        "gs://my-bucket/exports/2026/agent.blob",
			wantBucket: "my-bucket",
			wantObject: "exports/2026/agent.blob",
		},
		"no scheme": {
			uri:     "my-bucket/agent.blob",
			wantErr: true,
		},
		"bucket only": {
			uri:     "gs://my-bucket",
			wantErr: true,
		},
		"empty object": {
			uri:     "gs://my-bucket/",
			wantErr: true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			bucket, object, err := SplitURI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitURI(%q) = %q, %q, want error", tt.uri, bucket, object)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("SplitURI(%q) = %q, %q, want %q, %q",
					tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestURI(t *testing.T) {
	if got, want := URI("b", "path/obj"), "gs://b/path/obj"; got != want {
		t.Errorf("URI() = %q, want %q", got, want)
	}
	if got, want := URI("b", "/path/obj"), "gs://b/path/obj"; got != want {
		t.Errorf("URI() with leading slash = %q, want %q", got, want)
	}
}
