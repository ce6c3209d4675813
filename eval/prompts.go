// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package eval

import "github.com/MakeNowJust/heredoc/v2"

// statementExtractionPrompt asks the judge to decompose an answer into
// self-contained factual statements, returned as JSON.
var statementExtractionPrompt = heredoc.Doc(`
	Given a question and an answer, break the answer down into one or more
	fully self-contained statements. Each statement must be understandable
	on its own, without pronouns referring back to the question or to other
	statements.

	Respond with JSON only, in this exact shape:
	{"statements": ["statement 1", "statement 2"]}

	Question: %s
	Answer: %s
`)

// statementGradingPrompt asks the judge whether a statement is supported by
// a reference text. The answer must be a bare verdict.
var statementGradingPrompt = heredoc.Doc(`
	Decide whether the statement below is supported by the reference text.
	A statement is supported when the reference text says the same thing,
	possibly in different words. Respond with JSON only, in this exact
	shape: {"supported": true} or {"supported": false}

	Reference text: %s
	Statement: %s
`)
