// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging carries a [*slog.Logger] through a [context.Context].
//
// Callers install a logger once, early in an operation:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	ctx = logging.NewContext(ctx, logger)
//
// Services retrieve it with [FromContext], which falls back to a JSON
// logger on stdout when none is installed, so logging works without any
// setup. The aggregate client and the copy and eval tools use the context
// logger as their default; an explicit WithLogger option wins.
package logging
