// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package eval scores conversational agent responses against expectation
// datasets: exact and fuzzy text metrics, embedding similarity, and LLM
// judged answer correctness.
package eval

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-dfcx/dfcx-go/tabular"
)

// Dataset column names. A dataset is a flat table of conversation actions:
// each row is one step of one conversation, ordered by action ID.
const (
	ColEvalID                = "eval_id"
	ColActionID              = "action_id"
	ColActionType            = "action_type"
	ColActionInput           = "action_input"
	ColActionInputParameters = "action_input_parameters"
	ColToolAction            = "tool_action"
)

// RequiredColumns lists the columns every eval dataset must carry.
var RequiredColumns = []string{
	ColEvalID,
	ColActionID,
	ColActionType,
	ColActionInput,
	ColActionInputParameters,
	ColToolAction,
}

// Action types.
const (
	ActionUserUtterance      = "User Utterance"
	ActionAgentResponse      = "Agent Response"
	ActionToolInvocation     = "Tool Invocation"
	ActionPlaybookInvocation = "Playbook Invocation"
)

// Dataset is a validated eval table.
type Dataset struct {
	table *tabular.Table
}

// FromTable validates the required dataset columns and wraps the table. The
// input is cloned; later mutation of the original does not affect the
// dataset.
func FromTable(table *tabular.Table) (*Dataset, error) {
	if err := table.Require(RequiredColumns...); err != nil {
		return nil, err
	}
	clone, err := table.Clone()
	if err != nil {
		return nil, err
	}
	return &Dataset{table: clone}, nil
}

// Table returns the underlying table.
func (d *Dataset) Table() *tabular.Table {
	return d.table
}

// EvalIDs returns the distinct conversation IDs in row order.
func (d *Dataset) EvalIDs() []string {
	var ids []string
	seen := map[string]struct{}{}
	for i := 0; i < d.table.Len(); i++ {
		id := d.table.Cell(i, ColEvalID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Pair aligns one user utterance row with the rows that describe the
// expected outcome of that conversation turn. Row indices point into the
// dataset table; ResponseRow is -1 when the utterance has no paired agent
// response. ToolRows and PlaybookRows hold the whole run of invocation rows
// belonging to the turn, in action-ID order.
type Pair struct {
	QueryRow     int
	ResponseRow  int
	ToolRows     []int
	PlaybookRows []int
}

// Pairs splits the rows of one conversation into turns by walking them in
// action-ID order: each user utterance row opens a turn, and every agent
// response, tool invocation and playbook invocation row that follows it
// before the next utterance belongs to that turn. A turn keeps the first
// agent response row after its utterance and all invocation rows of the run.
// Expectation rows before the first utterance are dropped.
func (d *Dataset) Pairs(evalID string) []Pair {
	var pairs []Pair
	for _, i := range d.rows(evalID) {
		switch d.table.Cell(i, ColActionType) {
		case ActionUserUtterance:
			pairs = append(pairs, Pair{QueryRow: i, ResponseRow: -1})
		case ActionAgentResponse:
			if len(pairs) > 0 && pairs[len(pairs)-1].ResponseRow < 0 {
				pairs[len(pairs)-1].ResponseRow = i
			}
		case ActionToolInvocation:
			if len(pairs) > 0 {
				turn := &pairs[len(pairs)-1]
				turn.ToolRows = append(turn.ToolRows, i)
			}
		case ActionPlaybookInvocation:
			if len(pairs) > 0 {
				turn := &pairs[len(pairs)-1]
				turn.PlaybookRows = append(turn.PlaybookRows, i)
			}
		}
	}
	return pairs
}

// rows returns the dataset row indices of one conversation, ordered by
// action ID. Rows with unparsable action IDs keep their table order.
func (d *Dataset) rows(evalID string) []int {
	var rows []int
	for i := 0; i < d.table.Len(); i++ {
		if d.table.Cell(i, ColEvalID) == evalID {
			rows = append(rows, i)
		}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		ai, aerr := strconv.Atoi(d.table.Cell(rows[a], ColActionID))
		bi, berr := strconv.Atoi(d.table.Cell(rows[b], ColActionID))
		if aerr != nil || berr != nil {
			return false
		}
		return ai < bi
	})
	return rows
}

// IsTurnStart reports whether a row begins a new conversation, which resets
// the session.
func (d *Dataset) IsTurnStart(row int) bool {
	return d.table.Cell(row, ColActionID) == "1"
}

// Validate re-checks the dataset invariants: required columns present and
// every action type known.
func (d *Dataset) Validate() error {
	if err := d.table.Require(RequiredColumns...); err != nil {
		return err
	}
	for i := 0; i < d.table.Len(); i++ {
		switch t := d.table.Cell(i, ColActionType); t {
		case ActionUserUtterance, ActionAgentResponse, ActionToolInvocation, ActionPlaybookInvocation:
		default:
			return fmt.Errorf("row %d: unknown action type %q", i, t)
		}
	}
	return nil
}
