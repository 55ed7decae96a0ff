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

package readers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"
)

// ParquetReaderError provides structured error information for parquet
// reader operations.
type ParquetReaderError struct {
	Op  string
	Err error
}

func (e *ParquetReaderError) Error() string {
	return fmt.Sprintf("parquet reader %s: %v", e.Op, e.Err)
}

func (e *ParquetReaderError) Unwrap() error {
	return e.Err
}

// ParquetReaderStats holds statistics about the Parquet reader's progress.
type ParquetReaderStats struct {
	RowsRead     int64
	BatchesRead  int64
	ReadDuration time.Duration
}

// ParquetReaderOptions configures the Parquet reader.
type ParquetReaderOptions struct {
	BatchSize int64
	Columns   []string // optional column projection
}

// ReaderOptionParquet allows functional customization of ParquetReader.
type ReaderOptionParquet func(*ParquetReaderOptions)

func WithParquetBatchSize(size int64) ReaderOptionParquet {
	return func(o *ParquetReaderOptions) { o.BatchSize = size }
}

func WithParquetColumns(columns ...string) ReaderOptionParquet {
	return func(o *ParquetReaderOptions) {
		o.Columns = make([]string, len(columns))
		copy(o.Columns, columns)
	}
}

// ParquetReader streams Arrow record batches from a Parquet artifact. The
// conversion validator uses it to re-count rows and scan the declared
// primary-key column without loading the file into memory.
type ParquetReader struct {
	fileHandle   *os.File
	reader       *file.Reader
	arrowReader  *pqarrow.FileReader
	recordReader pqarrow.RecordReader
	schema       *arrow.Schema
	stats        ParquetReaderStats
	opts         ParquetReaderOptions
}

// NewParquetReader opens a Parquet file and prepares an Arrow record
// reader, optionally projected to a subset of columns.
func NewParquetReader(filename string, options ...ReaderOptionParquet) (*ParquetReader, error) {
	opts := ParquetReaderOptions{BatchSize: 25000}
	for _, opt := range options {
		opt(&opts)
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, &ParquetReaderError{Op: "open_file", Err: err}
	}

	parquetReader, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_reader", Err: err}
	}

	arrowReader, err := pqarrow.NewFileReader(parquetReader, pqarrow.ArrowReadProperties{BatchSize: opts.BatchSize}, memory.NewGoAllocator())
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_arrow_reader", Err: err}
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "get_schema", Err: err}
	}

	var colIndices []int
	for _, name := range opts.Columns {
		idx := -1
		for i, fieldDef := range schema.Fields() {
			if fieldDef.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			f.Close()
			return nil, &ParquetReaderError{Op: "column_projection", Err: fmt.Errorf("column %q not found in schema", name)}
		}
		colIndices = append(colIndices, idx)
	}

	recordReader, err := arrowReader.GetRecordReader(context.Background(), colIndices, nil)
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_record_reader", Err: err}
	}

	return &ParquetReader{
		fileHandle:   f,
		reader:       parquetReader,
		arrowReader:  arrowReader,
		recordReader: recordReader,
		schema:       schema,
		opts:         opts,
	}, nil
}

// NumRows returns the total row count recorded in the file metadata.
func (p *ParquetReader) NumRows() int64 {
	return p.reader.NumRows()
}

// NumRowGroups returns the number of row-groups in the file.
func (p *ParquetReader) NumRowGroups() int {
	return p.reader.NumRowGroups()
}

// Schema returns the Arrow schema of the Parquet file.
func (p *ParquetReader) Schema() *arrow.Schema {
	return p.schema
}

// ReadBatch returns the next Arrow record batch, or io.EOF when the file is
// exhausted. The caller must Release the returned record.
func (p *ParquetReader) ReadBatch(ctx context.Context) (arrow.Record, error) {
	start := time.Now()
	defer func() {
		p.stats.ReadDuration += time.Since(start)
	}()

	select {
	case <-ctx.Done():
		return nil, &ParquetReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	rec, err := p.recordReader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &ParquetReaderError{Op: "read_batch", Err: err}
	}
	if rec == nil || rec.NumRows() == 0 {
		return nil, io.EOF
	}

	rec.Retain()
	p.stats.RowsRead += rec.NumRows()
	p.stats.BatchesRead++
	return rec, nil
}

// Close releases resources and closes the underlying file.
func (p *ParquetReader) Close() error {
	if p.recordReader != nil {
		p.recordReader.Release()
		p.recordReader = nil
	}
	if p.fileHandle != nil {
		err := p.fileHandle.Close()
		p.fileHandle = nil
		return err
	}
	return nil
}

// Stats returns statistics about the Parquet reader's progress.
func (p *ParquetReader) Stats() ParquetReaderStats {
	return p.stats
}

// KeyString renders the value at row i of col as a comparable key string.
// The second return is false when the value is null.
func KeyString(col arrow.Array, i int) (string, bool) {
	if col.IsNull(i) {
		return "", false
	}
	switch arr := col.(type) {
	case *array.String:
		return arr.Value(i), true
	case *array.Int16:
		return strconv.FormatInt(int64(arr.Value(i)), 10), true
	case *array.Int32:
		return strconv.FormatInt(int64(arr.Value(i)), 10), true
	case *array.Int64:
		return strconv.FormatInt(arr.Value(i), 10), true
	case *array.Date32:
		return arr.Value(i).ToTime().Format("2006-01-02"), true
	case *array.Timestamp:
		return arr.Value(i).ToTime(arrow.Microsecond).Format(time.RFC3339Nano), true
	default:
		return fmt.Sprintf("%v", col.GetOneForMarshal(i)), true
	}
}
