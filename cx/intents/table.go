// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package intents

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"

	"github.com/go-dfcx/dfcx-go/cx"
	"github.com/go-dfcx/dfcx-go/tabular"
)

// Mode selects the shape of tabular intent data.
type Mode string

const (
	// ModeBasic is one row per training phrase with the part texts joined.
	ModeBasic Mode = "basic"
	// ModeAdvanced is one row per training phrase part, with phrase and part
	// indices, parameter IDs and repeat counts, plus a separate parameters
	// table.
	ModeAdvanced Mode = "advanced"
)

// Column sets for the two tabular modes.
var (
	BasicColumns          = []string{"intent", "tp"}
	AdvancedPhraseColumns = []string{
		"display_name", "name", "training_phrase", "part",
		"text", "parameter_id", "repeat_count", "id", "phrase",
	}
	ParameterColumns = []string{"display_name", "id", "entity_type"}

	basicSchema          = []string{"display_name", "text"}
	advancedPhraseSchema = []string{"display_name", "training_phrase", "part", "text", "parameter_id"}
)

// ToTable flattens an intent to the basic shape: one row per training phrase,
// part texts joined, sorted by intent then phrase.
func ToTable(intent *cxpb.Intent) *tabular.Table {
	t := tabular.New(BasicColumns...)
	appendBasic(t, intent)
	t.Sort(BasicColumns...)
	return t
}

func appendBasic(t *tabular.Table, intent *cxpb.Intent) {
	phrases := intent.GetTrainingPhrases()
	if len(phrases) == 0 {
		t.Append(intent.GetDisplayName(), "")
		return
	}
	for _, tp := range phrases {
		text := ""
		for _, part := range tp.GetParts() {
			text += part.GetText()
		}
		t.Append(intent.GetDisplayName(), text)
	}
}

// ToTables flattens an intent to the advanced shape: a phrases table with one
// row per training phrase part and a parameters table.
func ToTables(intent *cxpb.Intent) (phrases, params *tabular.Table) {
	phrases = tabular.New(AdvancedPhraseColumns...)
	params = tabular.New(ParameterColumns...)
	appendAdvanced(phrases, params, intent)
	return phrases, params
}

func appendAdvanced(phrases, params *tabular.Table, intent *cxpb.Intent) {
	for tpIdx, tp := range intent.GetTrainingPhrases() {
		full := ""
		for _, part := range tp.GetParts() {
			full += part.GetText()
		}
		for partIdx, part := range tp.GetParts() {
			phrases.Append(
				intent.GetDisplayName(),
				intent.GetName(),
				strconv.Itoa(tpIdx),
				strconv.Itoa(partIdx),
				part.GetText(),
				part.GetParameterId(),
				strconv.Itoa(int(tp.GetRepeatCount())),
				tp.GetId(),
				full,
			)
		}
	}
	for _, param := range intent.GetParameters() {
		params.Append(intent.GetDisplayName(), param.GetId(), param.GetEntityType())
	}
}

// BulkToTable flattens every intent of an agent. In basic mode the parameters
// table is nil.
func (s *Service) BulkToTable(ctx context.Context, agentName string, mode Mode, languageCode string) (phrases, params *tabular.Table, err error) {
	intents, err := s.List(ctx, agentName, languageCode)
	if err != nil {
		return nil, nil, err
	}

	switch mode {
	case ModeBasic:
		t := tabular.New(BasicColumns...)
		for _, intent := range intents {
			appendBasic(t, intent)
		}
		t.Sort(BasicColumns...)
		return t, nil, nil
	case ModeAdvanced:
		phrases = tabular.New(AdvancedPhraseColumns...)
		params = tabular.New(ParameterColumns...)
		for _, intent := range intents {
			appendAdvanced(phrases, params, intent)
		}
		return phrases, params, nil
	default:
		return nil, nil, fmt.Errorf("unknown mode %q: modes are basic, advanced", mode)
	}
}

// BulkOptions configures tabular bulk imports.
type BulkOptions struct {
	Mode         Mode
	LanguageCode string

	// RateLimit is the pause between create/update calls. Defaults to 5s.
	RateLimit time.Duration
}

func (o *BulkOptions) rateLimit() time.Duration {
	if o.RateLimit <= 0 {
		return 5 * time.Second
	}
	return o.RateLimit
}

// BulkCreateFromTable creates one intent per distinct display name in the
// phrases table. params may be nil in basic mode. Returns the created intents
// keyed by display name.
func (s *Service) BulkCreateFromTable(ctx context.Context, agentName string, phrases, params *tabular.Table, opts BulkOptions) (map[string]*cxpb.Intent, error) {
	built, order, err := buildFromTable(phrases, params, opts.Mode)
	if err != nil {
		return nil, err
	}

	created := make(map[string]*cxpb.Intent, len(order))
	for i, displayName := range order {
		if i > 0 {
			select {
			case <-ctx.Done():
				return created, ctx.Err()
			case <-time.After(opts.rateLimit()):
			}
		}

		var intent *cxpb.Intent
		err := cx.RetryQuota(ctx, func() error {
			var createErr error
			intent, createErr = s.Create(ctx, agentName, built[displayName], opts.LanguageCode)
			return createErr
		})
		if err != nil {
			return created, fmt.Errorf("bulk create intent %q: %w", displayName, err)
		}
		created[displayName] = intent
		s.logger.InfoContext(ctx, "bulk create progress",
			slog.String("display_name", displayName),
			slog.Int("done", i+1),
			slog.Int("total", len(order)),
		)
	}
	return created, nil
}

// BulkUpdateFromTable rewrites the training phrases and parameters of every
// intent named in the phrases table that already exists in the agent. Returns
// the updated intents keyed by display name.
func (s *Service) BulkUpdateFromTable(ctx context.Context, agentName string, phrases, params *tabular.Table, opts BulkOptions) (map[string]*cxpb.Intent, error) {
	built, order, err := buildFromTable(phrases, params, opts.Mode)
	if err != nil {
		return nil, err
	}

	existing, err := s.List(ctx, agentName, opts.LanguageCode)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*cxpb.Intent, len(existing))
	for _, intent := range existing {
		byName[intent.GetDisplayName()] = intent
	}

	updated := make(map[string]*cxpb.Intent, len(order))
	for i, displayName := range order {
		current, ok := byName[displayName]
		if !ok {
			s.logger.WarnContext(ctx, "intent not in agent; skipping update",
				slog.String("display_name", displayName),
			)
			continue
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return updated, ctx.Err()
			case <-time.After(opts.rateLimit()):
			}
		}

		current.TrainingPhrases = built[displayName].GetTrainingPhrases()
		if params != nil {
			current.Parameters = built[displayName].GetParameters()
		}
		var intent *cxpb.Intent
		err := cx.RetryQuota(ctx, func() error {
			var updateErr error
			intent, updateErr = s.Update(ctx, current, opts.LanguageCode, "training_phrases", "parameters")
			return updateErr
		})
		if err != nil {
			return updated, fmt.Errorf("bulk update intent %q: %w", displayName, err)
		}
		updated[displayName] = intent
	}
	return updated, nil
}

// buildFromTable assembles intent protos from tabular input, returning them
// keyed by display name together with first-appearance order.
func buildFromTable(phrases, params *tabular.Table, mode Mode) (map[string]*cxpb.Intent, []string, error) {
	switch mode {
	case ModeBasic:
		return buildBasic(phrases)
	case ModeAdvanced:
		return buildAdvanced(phrases, params)
	default:
		return nil, nil, fmt.Errorf("unknown mode %q: modes are basic, advanced", mode)
	}
}

func buildBasic(phrases *tabular.Table) (map[string]*cxpb.Intent, []string, error) {
	if err := phrases.Require(basicSchema...); err != nil {
		return nil, nil, fmt.Errorf("basic mode training phrases: %w", err)
	}

	built := make(map[string]*cxpb.Intent)
	var order []string
	for i := range phrases.Len() {
		displayName := phrases.Cell(i, "display_name")
		intent, ok := built[displayName]
		if !ok {
			intent = &cxpb.Intent{DisplayName: displayName}
			built[displayName] = intent
			order = append(order, displayName)
		}
		intent.TrainingPhrases = append(intent.TrainingPhrases, &cxpb.Intent_TrainingPhrase{
			RepeatCount: 1,
			Parts: []*cxpb.Intent_TrainingPhrase_Part{
				{Text: phrases.Cell(i, "text")},
			},
		})
	}
	return built, order, nil
}

func buildAdvanced(phrases, params *tabular.Table) (map[string]*cxpb.Intent, []string, error) {
	if err := phrases.Require(advancedPhraseSchema...); err != nil {
		return nil, nil, fmt.Errorf("advanced mode training phrases: %w", err)
	}
	if params != nil {
		if err := params.Require(ParameterColumns...); err != nil {
			return nil, nil, fmt.Errorf("advanced mode parameters: %w", err)
		}
	}

	type partKey struct{ phrase, part int }
	parts := make(map[string]map[partKey]*cxpb.Intent_TrainingPhrase_Part)
	var order []string
	for i := range phrases.Len() {
		displayName := phrases.Cell(i, "display_name")
		tpIdx, err := strconv.Atoi(phrases.Cell(i, "training_phrase"))
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: training_phrase is not an index: %w", i, err)
		}
		partIdx, err := strconv.Atoi(phrases.Cell(i, "part"))
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: part is not an index: %w", i, err)
		}
		if _, ok := parts[displayName]; !ok {
			parts[displayName] = make(map[partKey]*cxpb.Intent_TrainingPhrase_Part)
			order = append(order, displayName)
		}
		parts[displayName][partKey{tpIdx, partIdx}] = &cxpb.Intent_TrainingPhrase_Part{
			Text:        phrases.Cell(i, "text"),
			ParameterId: phrases.Cell(i, "parameter_id"),
		}
	}

	built := make(map[string]*cxpb.Intent, len(order))
	for _, displayName := range order {
		keys := make([]partKey, 0, len(parts[displayName]))
		for k := range parts[displayName] {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(a, b int) bool {
			if keys[a].phrase != keys[b].phrase {
				return keys[a].phrase < keys[b].phrase
			}
			return keys[a].part < keys[b].part
		})

		intent := &cxpb.Intent{DisplayName: displayName}
		var current *cxpb.Intent_TrainingPhrase
		currentPhrase := -1
		for _, k := range keys {
			if k.phrase != currentPhrase {
				current = &cxpb.Intent_TrainingPhrase{RepeatCount: 1}
				intent.TrainingPhrases = append(intent.TrainingPhrases, current)
				currentPhrase = k.phrase
			}
			current.Parts = append(current.Parts, parts[displayName][k])
		}
		built[displayName] = intent
	}

	if params != nil {
		for i := range params.Len() {
			displayName := params.Cell(i, "display_name")
			intent, ok := built[displayName]
			if !ok {
				continue
			}
			intent.Parameters = append(intent.Parameters, &cxpb.Intent_Parameter{
				Id:         params.Cell(i, "id"),
				EntityType: params.Cell(i, "entity_type"),
			})
		}
	}
	return built, order, nil
}
