// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package sheets moves tables in and out of Google Sheets worksheets.
// Spreadsheets are addressed by spreadsheet ID, worksheet tabs by title.
package sheets

import (
	"context"
	"fmt"
	"log/slog"

	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/go-dfcx/dfcx-go/cx"
	"github.com/go-dfcx/dfcx-go/tabular"
)

// DriveScope is needed alongside the spreadsheet scope to open sheets shared
// with the caller.
const DriveScope = "https://www.googleapis.com/auth/drive"

// Service reads and writes worksheet tabs.
type Service struct {
	srv    *sheetsapi.Service
	logger *slog.Logger
}

// NewService creates a sheets service.
func NewService(ctx context.Context, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(append([]cx.Option{
		cx.WithScopes(sheetsapi.SpreadsheetsScope, DriveScope),
	}, opts...)...)
	dialOpts, err := settings.DialOptions(ctx, cx.DefaultLocation)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	srv, err := sheetsapi.NewService(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Service{
		srv:    srv,
		logger: settings.Logger(),
	}, nil
}

// ReadTab reads a worksheet into a table. The first row is the header;
// short rows are padded to the header width.
func (s *Service) ReadTab(ctx context.Context, spreadsheetID, worksheet string) (*tabular.Table, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(spreadsheetID, worksheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", worksheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("worksheet %q is empty", worksheet)
	}

	header := make([]string, len(resp.Values[0]))
	for i, cell := range resp.Values[0] {
		header[i] = fmt.Sprint(cell)
	}
	table := tabular.New(header...)
	for _, raw := range resp.Values[1:] {
		row := make([]string, len(header))
		for i := range header {
			if i < len(raw) {
				row[i] = fmt.Sprint(raw[i])
			}
		}
		if err := table.Append(row...); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// WriteTab writes a table to a worksheet starting at A1, header first. The
// tab is created when missing.
func (s *Service) WriteTab(ctx context.Context, spreadsheetID, worksheet string, table *tabular.Table) error {
	if err := s.EnsureTab(ctx, spreadsheetID, worksheet); err != nil {
		return err
	}
	vr := &sheetsapi.ValueRange{Values: toValues(table.Records())}
	_, err := s.srv.Spreadsheets.Values.
		Update(spreadsheetID, worksheet+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write worksheet %q: %w", worksheet, err)
	}
	s.logger.InfoContext(ctx, "wrote worksheet",
		slog.String("spreadsheet_id", spreadsheetID),
		slog.String("worksheet", worksheet),
		slog.Int("rows", table.Len()),
	)
	return nil
}

// AppendRows appends a table's rows, without the header, to the end of a
// worksheet.
func (s *Service) AppendRows(ctx context.Context, spreadsheetID, worksheet string, table *tabular.Table) error {
	records := table.Records()[1:]
	if len(records) == 0 {
		return nil
	}
	vr := &sheetsapi.ValueRange{Values: toValues(records)}
	_, err := s.srv.Spreadsheets.Values.
		Append(spreadsheetID, worksheet, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to worksheet %q: %w", worksheet, err)
	}
	return nil
}

// EnsureTab creates a worksheet tab with the given title when the
// spreadsheet does not already have one.
func (s *Service) EnsureTab(ctx context.Context, spreadsheetID, title string) error {
	spreadsheet, err := s.srv.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return nil
		}
	}

	_, err = s.srv.Spreadsheets.BatchUpdate(spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{Title: title},
				},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add worksheet %q: %w", title, err)
	}
	s.logger.InfoContext(ctx, "created worksheet",
		slog.String("spreadsheet_id", spreadsheetID),
		slog.String("worksheet", title),
	)
	return nil
}

func toValues(records [][]string) [][]any {
	values := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, cell := range rec {
			row[j] = cell
		}
		values[i] = row
	}
	return values
}
