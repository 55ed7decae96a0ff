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

package csv2parquet

import (
	"context"
)

// Package csv2parquet defines the core types and interfaces for the
// csv2parquet conversion library.
//
// csv2parquet converts sets of heterogeneous delimited-text files into a
// single compressed Parquet artifact with bounded memory: inputs are
// streamed in bounded row batches, normalized onto a canonical unified
// schema, cast to per-column target types, and appended row-group by
// row-group. A post-conversion validator re-reads the artifact and emits a
// conversion report.
//
// This file contains the batch types flowing between pipeline stages and the
// interfaces for batch sources and sinks.

// Row is a normalized row: exactly one value per canonical schema column,
// in canonical column order. Values are raw strings until type casting.
type Row []string

// RowError records a row-level parse failure encountered while reading an
// input file. The row it refers to was not recovered and is routed to the
// skip path by the sanitizer.
type RowError struct {
	Record int64 // 1-based data-row ordinal within the file
	Err    error
}

// RawBatch is a bounded sequence of raw rows read from a single input file,
// before normalization. Rows keep the field layout of the file's own header,
// which may differ from the canonical schema.
type RawBatch struct {
	File    string
	Start   int64 // 1-based data-row ordinal of Rows[0] within the file
	Rows    [][]string
	Records []int64    // per-row ordinal; parse failures leave gaps in the sequence
	Errors  []RowError // parse failures interleaved with Rows, already counted as read
}

// Len returns the number of data rows the batch accounts for, including
// rows that failed to parse.
func (b *RawBatch) Len() int {
	return len(b.Rows) + len(b.Errors)
}

// Batch is a bounded sequence of normalized rows. It is the unit of type
// casting and is discarded after one pipeline iteration, bounding peak
// memory independent of total input size.
type Batch struct {
	File string
	Rows []Row
}

// TypedBatch holds one batch in columnar form after type casting. Each
// column slice has one entry per row; a nil entry is a native null. Value
// dynamic types must match the writer's schema (string, int16, int32,
// int64, or time.Time for date/datetime columns).
type TypedBatch struct {
	Names   []string // column names in canonical order
	Columns [][]interface{}
	NumRows int
}

// BatchSource streams bounded batches of raw rows from one input file.
// Implementations are forward-only cursors; restarting requires reopening
// the source.
type BatchSource interface {
	// ReadBatch returns the next batch or io.EOF when the file is exhausted.
	ReadBatch(ctx context.Context) (*RawBatch, error)
	// Close releases any resources held by the source.
	Close() error
}

// BatchSink consumes typed batches in order and appends each as a row-group
// to the output artifact.
type BatchSink interface {
	// Write appends a typed batch to the sink.
	Write(ctx context.Context, batch *TypedBatch) error
	// Flush forces any buffered rows to be written.
	Flush() error
	// Close flushes, finalizes the artifact, and releases resources.
	Close() error
}
