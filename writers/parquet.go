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

package writers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	csv2parquet "github.com/invisible-research/csv2parquet"
	"github.com/invisible-research/csv2parquet/schema"
)

// Package writers provides the columnar sink of the conversion pipeline and
// the rejects side-file writer.
//
// The Parquet writer owns the output artifact for the duration of one run.
// Each typed batch becomes one row-group. Output is atomic: batches are
// written to a temp file next to the destination and the temp file is
// renamed into place on Close, so a crash mid-write never leaves a partial
// artifact at the destination path.

// ParquetWriterError wraps Parquet write errors with context about the
// operation.
type ParquetWriterError struct {
	Op  string
	Err error
}

func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// WriterSchemaError marks an internal inconsistency between a batch and the
// Canonical Schema. It signals a pipeline bug, not bad input data, and must
// stop the run rather than silently produce a corrupt artifact.
type WriterSchemaError struct {
	Op  string
	Err error
}

func (e *WriterSchemaError) Error() string {
	return fmt.Sprintf("parquet writer schema %s: %v", e.Op, e.Err)
}

func (e *WriterSchemaError) Unwrap() error {
	return e.Err
}

// ParquetWriterStats holds statistics about the writer's progress.
type ParquetWriterStats struct {
	RowsWritten     int64
	RowGroups       int64
	BytesWritten    int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	Codec    csv2parquet.Codec
	Metadata map[string]string
}

// WriterOption represents a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithCompression selects the output compression codec.
func WithCompression(codec csv2parquet.Codec) WriterOption {
	return func(o *ParquetWriterOptions) { o.Codec = codec }
}

// WithMetadata sets user metadata recorded in the Parquet footer.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(o *ParquetWriterOptions) {
		if o.Metadata == nil {
			o.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			o.Metadata[k] = v
		}
	}
}

// ParquetWriter implements csv2parquet.BatchSink for a Parquet artifact
// whose schema is the Canonical Schema in canonical order.
type ParquetWriter struct {
	finalPath   string
	tmpPath     string
	file        *os.File
	writer      *pqarrow.FileWriter
	schema      *schema.Schema
	arrowSchema *arrow.Schema
	builders    []array.Builder
	allocator   memory.Allocator
	stats       ParquetWriterStats
	closed      bool
}

// NewParquetWriter creates a writer for filename bound to the Canonical
// Schema. The artifact is staged at filename+".tmp" until Close.
func NewParquetWriter(filename string, sch *schema.Schema, options ...WriterOption) (*ParquetWriter, error) {
	opts := &ParquetWriterOptions{Codec: csv2parquet.CodecFast}
	for _, option := range options {
		option(opts)
	}

	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &ParquetWriterError{Op: "create_directory", Err: err}
		}
	}

	tmpPath := filename + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, &ParquetWriterError{Op: "open_file", Err: err}
	}

	var codec compress.Compression
	switch opts.Codec {
	case csv2parquet.CodecBalanced:
		codec = compress.Codecs.Zstd
	default:
		codec = compress.Codecs.Snappy
	}

	props := parquet.NewWriterProperties(parquet.WithCompression(codec))
	arrowSchema := sch.Arrow()

	arrowProps := pqarrow.DefaultWriterProps()
	if len(opts.Metadata) > 0 {
		keys := make([]string, 0, len(opts.Metadata))
		vals := make([]string, 0, len(opts.Metadata))
		for k, v := range opts.Metadata {
			keys = append(keys, k)
			vals = append(vals, v)
		}
		md := arrow.NewMetadata(keys, vals)
		arrowSchema = arrow.NewSchema(arrowSchema.Fields(), &md)
	}

	writer, err := pqarrow.NewFileWriter(arrowSchema, f, props, arrowProps)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, &ParquetWriterError{Op: "create_writer", Err: err}
	}

	allocator := memory.NewGoAllocator()
	builders := make([]array.Builder, sch.Len())
	for i, field := range sch.Fields() {
		builders[i] = array.NewBuilder(allocator, field.Type.Arrow())
	}

	return &ParquetWriter{
		finalPath:   filename,
		tmpPath:     tmpPath,
		file:        f,
		writer:      writer,
		schema:      sch,
		arrowSchema: sch.Arrow(),
		builders:    builders,
		allocator:   allocator,
		stats:       ParquetWriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Write implements the csv2parquet.BatchSink interface. Each typed batch is
// appended as one row-group, preserving batch order.
func (p *ParquetWriter) Write(ctx context.Context, batch *csv2parquet.TypedBatch) error {
	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}
	select {
	case <-ctx.Done():
		return &ParquetWriterError{Op: "write", Err: ctx.Err()}
	default:
	}

	if err := p.checkBatchSchema(batch); err != nil {
		return err
	}
	if batch.NumRows == 0 {
		return nil
	}

	start := time.Now()

	for col, values := range batch.Columns {
		field := p.schema.Field(col)
		for _, v := range values {
			if v == nil {
				p.builders[col].AppendNull()
				p.stats.NullValueCounts[field.Name]++
				continue
			}
			if err := p.appendValue(p.builders[col], field, v); err != nil {
				return err
			}
		}
	}

	arrays := make([]arrow.Array, len(p.builders))
	for i, builder := range p.builders {
		arrays[i] = builder.NewArray()
	}
	rec := array.NewRecord(p.arrowSchema, arrays, int64(batch.NumRows))
	defer func() {
		rec.Release()
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	if err := p.writer.Write(rec); err != nil {
		return &ParquetWriterError{Op: "write_row_group", Err: err}
	}

	p.stats.RowsWritten += int64(batch.NumRows)
	p.stats.RowGroups++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()

	return nil
}

// Flush implements the csv2parquet.BatchSink interface. Row-groups are
// written eagerly per batch, so there is nothing buffered between calls.
func (p *ParquetWriter) Flush() error {
	return nil
}

// Close finalizes the artifact: writes the Parquet footer, closes the temp
// file, and renames it to the destination path.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	for _, builder := range p.builders {
		builder.Release()
	}
	p.builders = nil

	// Any failure from here on discards the staged file: nothing partial
	// may remain at or next to the destination.
	if err := p.writer.Close(); err != nil {
		p.file.Close()
		os.Remove(p.tmpPath)
		return &ParquetWriterError{Op: "close_writer", Err: err}
	}
	if err := p.file.Close(); err != nil {
		os.Remove(p.tmpPath)
		return &ParquetWriterError{Op: "close_file", Err: err}
	}

	if info, err := os.Stat(p.tmpPath); err == nil {
		p.stats.BytesWritten = info.Size()
	}

	if err := os.Rename(p.tmpPath, p.finalPath); err != nil {
		os.Remove(p.tmpPath)
		return &ParquetWriterError{Op: "rename", Err: err}
	}
	return nil
}

// Abort discards the temp file without promoting it to the destination.
// Used when the run fails after the writer was opened.
func (p *ParquetWriter) Abort() error {
	if p.closed {
		return nil
	}
	p.closed = true

	for _, builder := range p.builders {
		builder.Release()
	}
	p.builders = nil

	p.writer.Close()
	p.file.Close()
	return os.Remove(p.tmpPath)
}

// Stats returns the current statistics of the Parquet writer.
func (p *ParquetWriter) Stats() ParquetWriterStats {
	return p.stats
}

// checkBatchSchema verifies the batch matches the Canonical Schema in name,
// order, and arity.
func (p *ParquetWriter) checkBatchSchema(batch *csv2parquet.TypedBatch) error {
	if len(batch.Columns) != p.schema.Len() || len(batch.Names) != p.schema.Len() {
		return &WriterSchemaError{Op: "arity", Err: fmt.Errorf("batch has %d columns, canonical schema has %d", len(batch.Columns), p.schema.Len())}
	}
	for i, name := range batch.Names {
		if p.schema.Field(i).Name != name {
			return &WriterSchemaError{Op: "order", Err: fmt.Errorf("batch column %d is %q, canonical schema expects %q", i, name, p.schema.Field(i).Name)}
		}
	}
	for col, values := range batch.Columns {
		if len(values) != batch.NumRows {
			return &WriterSchemaError{Op: "shape", Err: fmt.Errorf("column %q has %d values for %d rows", batch.Names[col], len(values), batch.NumRows)}
		}
	}
	return nil
}

// appendValue appends one non-null value to the column's builder. A dynamic
// type that does not match the declared column type is a WriterSchemaError.
func (p *ParquetWriter) appendValue(builder array.Builder, field schema.Field, value interface{}) error {
	switch b := builder.(type) {
	case *array.StringBuilder:
		v, ok := value.(string)
		if !ok {
			return p.typeMismatch(field, value)
		}
		b.Append(v)
	case *array.Int16Builder:
		v, ok := value.(int16)
		if !ok {
			return p.typeMismatch(field, value)
		}
		b.Append(v)
	case *array.Int32Builder:
		v, ok := value.(int32)
		if !ok {
			return p.typeMismatch(field, value)
		}
		b.Append(v)
	case *array.Int64Builder:
		v, ok := value.(int64)
		if !ok {
			return p.typeMismatch(field, value)
		}
		b.Append(v)
	case *array.Date32Builder:
		v, ok := value.(time.Time)
		if !ok {
			return p.typeMismatch(field, value)
		}
		b.Append(arrow.Date32FromTime(v))
	case *array.TimestampBuilder:
		v, ok := value.(time.Time)
		if !ok {
			return p.typeMismatch(field, value)
		}
		b.Append(arrow.Timestamp(v.UnixMicro()))
	default:
		return &WriterSchemaError{Op: "append", Err: fmt.Errorf("unsupported builder for column %q", field.Name)}
	}
	return nil
}

func (p *ParquetWriter) typeMismatch(field schema.Field, value interface{}) error {
	return &WriterSchemaError{Op: "append", Err: fmt.Errorf("column %q declared %s, got %T", field.Name, field.Type, value)}
}
