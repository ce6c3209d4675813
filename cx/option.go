// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package cx

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/auth/credentials"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// API scopes requested when detecting application default credentials.
const (
	ScopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"
	ScopeDialogflow    = "https://www.googleapis.com/auth/dialogflow"
)

// Settings carries the cross-service configuration shared by all resource
// services: logging and credential material.
type Settings struct {
	logger      *slog.Logger
	credsFile   string
	tokenSource oauth2.TokenSource
	scopes      []string
	clientOpts  []option.ClientOption
}

// Option configures a [Settings].
type Option func(*Settings)

// WithLogger sets a custom logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Settings) {
		s.logger = logger
	}
}

// WithCredentialsFile authenticates API calls with the given service account
// key file instead of application default credentials.
func WithCredentialsFile(filename string) Option {
	return func(s *Settings) {
		s.credsFile = filename
	}
}

// WithTokenSource authenticates API calls with the given token source instead
// of application default credentials.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(s *Settings) {
		s.tokenSource = ts
	}
}

// WithScopes replaces the scopes requested during default credential
// detection.
func WithScopes(scopes ...string) Option {
	return func(s *Settings) {
		s.scopes = scopes
	}
}

// WithClientOptions appends raw client options passed through to the
// underlying generated clients.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *Settings) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// NewSettings applies opts over the defaults.
func NewSettings(opts ...Option) *Settings {
	s := &Settings{
		logger: slog.Default(),
		scopes: []string{ScopeCloudPlatform, ScopeDialogflow},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Logger returns the configured logger.
func (s *Settings) Logger() *slog.Logger {
	return s.logger
}

// Options re-exports the raw option list so a Settings can be forwarded to
// another service constructor.
func (s *Settings) Options() []Option {
	opts := []Option{WithLogger(s.logger), WithScopes(s.scopes...)}
	if s.credsFile != "" {
		opts = append(opts, WithCredentialsFile(s.credsFile))
	}
	if s.tokenSource != nil {
		opts = append(opts, WithTokenSource(s.tokenSource))
	}
	if len(s.clientOpts) > 0 {
		opts = append(opts, WithClientOptions(s.clientOpts...))
	}
	return opts
}

// DialOptions resolves the client options for dialing the CX API in the given
// location: the regional endpoint plus credentials. Explicit credential
// material wins over application default credentials.
func (s *Settings) DialOptions(ctx context.Context, location string) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if endpoint := Endpoint(location); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	switch {
	case s.credsFile != "":
		opts = append(opts, option.WithCredentialsFile(s.credsFile))
	case s.tokenSource != nil:
		opts = append(opts, option.WithTokenSource(s.tokenSource))
	default:
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes: s.scopes,
		})
		if err != nil {
			return nil, fmt.Errorf("detect default credentials: %w", err)
		}
		opts = append(opts, option.WithAuthCredentials(creds))
	}

	return append(opts, s.clientOpts...), nil
}
