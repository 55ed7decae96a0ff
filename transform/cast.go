//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2026 Invisible Research Project
//
// This file is part of csv2parquet.
//
// csv2parquet is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// csv2parquet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with csv2parquet. If not, see https://www.gnu.org/licenses/.

package transform

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	csv2parquet "github.com/invisible-research/csv2parquet"
	"github.com/invisible-research/csv2parquet/schema"
)

// Package transform casts normalized row batches to their per-column target
// types ahead of the columnar write.
//
// The null sentinel is translated to a native null before casting. A cast
// failure on a non-null value degrades to null for that cell and increments
// a per-column counter; it is never fatal. When one column fails above a
// configured fraction of a batch, a warning is surfaced once per column for
// the whole run.

// defaultDateFormats is the primary date layout followed by fallbacks, tried
// in order.
var defaultDateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"2006",
}

// defaultDatetimeFormats is the primary datetime layout followed by
// fallbacks, tried in order.
var defaultDatetimeFormats = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CastStats aggregates cast outcomes for one run.
type CastStats struct {
	CellsCast    int64
	CellFailures map[string]int64 // per column
}

// TypeCasterOptions configures the caster.
type TypeCasterOptions struct {
	NullSentinel     string
	DateFormats      []string
	DatetimeFormats  []string
	FailureThreshold float64 // per-batch fraction triggering a column warning
	Workers          int     // parallel column casts within one batch
}

// CasterOption allows functional customization of TypeCaster.
type CasterOption func(*TypeCasterOptions)

func WithNullSentinel(token string) CasterOption {
	return func(o *TypeCasterOptions) { o.NullSentinel = token }
}

func WithDateFormats(layouts ...string) CasterOption {
	return func(o *TypeCasterOptions) {
		o.DateFormats = append([]string(nil), layouts...)
	}
}

func WithDatetimeFormats(layouts ...string) CasterOption {
	return func(o *TypeCasterOptions) {
		o.DatetimeFormats = append([]string(nil), layouts...)
	}
}

func WithFailureThreshold(fraction float64) CasterOption {
	return func(o *TypeCasterOptions) { o.FailureThreshold = fraction }
}

func WithWorkers(n int) CasterOption {
	return func(o *TypeCasterOptions) { o.Workers = n }
}

// TypeCaster casts batches onto the Canonical Schema's target types,
// producing columnar typed batches for the writer. Columns within one batch
// may be cast in parallel; each goroutine owns whole columns, so no cell is
// touched concurrently and row order never changes.
type TypeCaster struct {
	schema   *schema.Schema
	names    []string
	opts     TypeCasterOptions
	failures []int64 // per column, cumulative for the run
	warned   []bool  // threshold warning emitted for column
	warnings []string
	cells    int64
}

// NewTypeCaster builds a caster for the given Canonical Schema.
func NewTypeCaster(sch *schema.Schema, options ...CasterOption) *TypeCaster {
	opts := TypeCasterOptions{
		NullSentinel:     `\N`,
		DateFormats:      defaultDateFormats,
		DatetimeFormats:  defaultDatetimeFormats,
		FailureThreshold: 0.5,
		Workers:          1,
	}
	for _, opt := range options {
		opt(&opts)
	}

	return &TypeCaster{
		schema:   sch,
		names:    sch.Names(),
		opts:     opts,
		failures: make([]int64, sch.Len()),
		warned:   make([]bool, sch.Len()),
	}
}

// Cast converts one normalized batch to columnar typed form. The only error
// it returns is context cancellation; data problems degrade to nulls.
func (t *TypeCaster) Cast(ctx context.Context, batch *csv2parquet.Batch) (*csv2parquet.TypedBatch, error) {
	typed := &csv2parquet.TypedBatch{
		Names:   t.names,
		Columns: make([][]interface{}, t.schema.Len()),
		NumRows: len(batch.Rows),
	}
	batchFailures := make([]int64, t.schema.Len())

	if t.opts.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(t.opts.Workers)
		for col := 0; col < t.schema.Len(); col++ {
			col := col
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				typed.Columns[col], batchFailures[col] = t.castColumn(col, batch.Rows)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for col := 0; col < t.schema.Len(); col++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			typed.Columns[col], batchFailures[col] = t.castColumn(col, batch.Rows)
		}
	}

	t.cells += int64(len(batch.Rows) * t.schema.Len())
	t.checkThresholds(batchFailures, len(batch.Rows))

	return typed, nil
}

// castColumn casts one column across all rows of a batch. It owns the
// column's failure counter for the duration of the call and returns this
// batch's failure count alongside the values.
func (t *TypeCaster) castColumn(col int, rows []csv2parquet.Row) ([]interface{}, int64) {
	target := t.schema.Field(col).Type
	values := make([]interface{}, len(rows))
	var failed int64

	for i, row := range rows {
		v, bad := t.castCell(target, row[col])
		values[i] = v
		if bad {
			failed++
		}
	}

	t.failures[col] += failed
	return values, failed
}

// castCell casts a single cell. The second return reports a cast failure on
// a non-null value, which has already been degraded to null.
func (t *TypeCaster) castCell(target schema.Type, raw string) (interface{}, bool) {
	if raw == t.opts.NullSentinel {
		return nil, false
	}

	switch target {
	case schema.TypeString:
		// Empty strings are preserved for string columns; only the
		// sentinel means null here.
		return raw, false
	case schema.TypeInt16:
		if raw == "" {
			return nil, false
		}
		n, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return nil, true
		}
		return int16(n), false
	case schema.TypeInt32:
		if raw == "" {
			return nil, false
		}
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, true
		}
		return int32(n), false
	case schema.TypeInt64:
		if raw == "" {
			return nil, false
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, true
		}
		return n, false
	case schema.TypeDate:
		if raw == "" {
			return nil, false
		}
		return t.parseTime(raw, t.opts.DateFormats)
	case schema.TypeDatetime:
		if raw == "" {
			return nil, false
		}
		return t.parseTime(raw, t.opts.DatetimeFormats)
	default:
		return nil, true
	}
}

// parseTime tries each layout in order.
func (t *TypeCaster) parseTime(raw string, layouts []string) (interface{}, bool) {
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, false
		}
	}
	return nil, true
}

// checkThresholds emits a once-per-column warning when a column's failure
// count within the batch just processed crossed the configured fraction of
// that batch's rows. Counts never carry over between batches here, so a
// steady low failure rate stays below the threshold no matter how long the
// run is.
func (t *TypeCaster) checkThresholds(batchFailures []int64, batchRows int) {
	if batchRows == 0 {
		return
	}
	for col, failed := range batchFailures {
		if t.warned[col] || failed == 0 {
			continue
		}
		if float64(failed) >= t.opts.FailureThreshold*float64(batchRows) {
			t.warned[col] = true
			t.warnings = append(t.warnings,
				fmt.Sprintf("column %q: %d of %d values in one batch failed to cast (>= %.0f%%), degraded to null",
					t.names[col], failed, batchRows, t.opts.FailureThreshold*100))
		}
	}
}

// Stats returns per-column cast failure counts for the run.
func (t *TypeCaster) Stats() CastStats {
	failures := make(map[string]int64, len(t.failures))
	for col, n := range t.failures {
		if n > 0 {
			failures[t.names[col]] = n
		}
	}
	return CastStats{CellsCast: t.cells, CellFailures: failures}
}

// Warnings returns threshold warnings accumulated over the run.
func (t *TypeCaster) Warnings() []string {
	return t.warnings
}
