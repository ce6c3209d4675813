// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessions drives Dialogflow CX conversations: session path
// building, intent detection and multi-turn conversation runs.
package sessions

import (
	"context"
	"fmt"
	"log/slog"

	cxapi "cloud.google.com/go/dialogflow/cx/apiv3"
	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/go-dfcx/dfcx-go/cx"
)

// DefaultLanguageCode is used when a call does not name a language.
const DefaultLanguageCode = "en"

// Service drives CX sessions in a single location.
type Service struct {
	client   *cxapi.SessionsClient
	settings *cx.Settings
	logger   *slog.Logger
}

// NewService creates a session service dialing the regional endpoint for
// location.
func NewService(ctx context.Context, location string, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := cxapi.NewSessionsClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sessions client: %w", err)
	}
	return &Service{
		client:   client,
		settings: settings,
		logger:   settings.Logger(),
	}, nil
}

// Close releases the underlying client connection.
func (s *Service) Close() error {
	return s.client.Close()
}

// NewSessionPath builds a fresh session resource name under an agent or
// environment, with a random RFC 4122 UUID as the session ID.
func NewSessionPath(parent string) string {
	return fmt.Sprintf("%s/sessions/%s", parent, uuid.New().String())
}

// DetectIntent sends one user utterance to a session and returns the query
// result. params optionally carries session parameters with the request.
func (s *Service) DetectIntent(ctx context.Context, session, text, languageCode string, params *structpb.Struct) (*cxpb.QueryResult, error) {
	if languageCode == "" {
		languageCode = DefaultLanguageCode
	}
	req := &cxpb.DetectIntentRequest{
		Session: session,
		QueryInput: &cxpb.QueryInput{
			Input: &cxpb.QueryInput_Text{
				Text: &cxpb.TextInput{Text: text},
			},
			LanguageCode: languageCode,
		},
	}
	if params != nil {
		req.QueryParams = &cxpb.QueryParameters{Parameters: params}
	}

	resp, err := s.client.DetectIntent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("detect intent in %s: %w", session, err)
	}
	return resp.GetQueryResult(), nil
}

// PresetParameters seeds session parameters with an empty utterance before a
// conversation starts.
func (s *Service) PresetParameters(ctx context.Context, session string, parameters map[string]any) (*cxpb.QueryResult, error) {
	params, err := structpb.NewStruct(parameters)
	if err != nil {
		return nil, fmt.Errorf("encode session parameters: %w", err)
	}
	return s.DetectIntent(ctx, session, "", "", params)
}

// RunConversation plays an ordered list of user utterances against a fresh
// session of the agent and returns one response per utterance. parameters,
// when non-nil, are preset on the session first.
func (s *Service) RunConversation(ctx context.Context, agentName string, utterances []string, parameters map[string]any) ([]*AgentResponse, error) {
	session := NewSessionPath(agentName)
	if parameters != nil {
		if _, err := s.PresetParameters(ctx, session, parameters); err != nil {
			return nil, err
		}
	}

	responses := make([]*AgentResponse, 0, len(utterances))
	for _, utterance := range utterances {
		qr, err := s.DetectIntent(ctx, session, utterance, "", nil)
		if err != nil {
			return responses, err
		}
		response := FromQueryResult(qr)
		responses = append(responses, response)

		s.logger.InfoContext(ctx, "conversation turn",
			slog.String("session", session),
			slog.String("query", utterance),
			slog.String("intent", response.IntentDisplayName),
			slog.Float64("confidence", float64(response.Confidence)),
			slog.String("current_page", response.CurrentPage),
			slog.String("response", response.ResponseText),
		)
	}
	return responses, nil
}
