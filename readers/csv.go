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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	csv2parquet "github.com/invisible-research/csv2parquet"
)

// Package readers provides streaming batch sources over delimited-text
// input files and a Parquet reader used by post-conversion validation.
//
// The CSV reader is a forward-only cursor: rows are yielded in on-disk
// order in bounded batches, quoted fields may contain the delimiter or
// embedded newlines, a leading byte-order mark is stripped, and
// undecodable byte sequences are replaced rather than aborting the file.

// ReadError wraps an unrecoverable per-file read failure. Other files in
// the same run continue processing.
type ReadError struct {
	File string
	Op   string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s %s: %v", e.File, e.Op, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// CSVReaderStats holds statistics about the CSV reader's progress.
type CSVReaderStats struct {
	RecordsRead   int64
	BatchesRead   int64
	ParseFailures int64
	ReadDuration  time.Duration
	LastReadTime  time.Time
}

// CSVReaderOptions configures the CSV batch reader.
type CSVReaderOptions struct {
	Comma     rune
	Encoding  string
	ChunkSize int
}

// ReaderOptionCSV allows functional customization of CSVReader.
type ReaderOptionCSV func(*CSVReaderOptions)

func WithCSVComma(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comma = r }
}

func WithCSVEncoding(encoding string) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Encoding = encoding }
}

func WithCSVChunkSize(rows int) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.ChunkSize = rows }
}

// CSVReader implements csv2parquet.BatchSource for one delimited-text file.
type CSVReader struct {
	path    string
	file    *os.File
	reader  *csv.Reader
	headers []string
	record  int64 // 1-based ordinal of the next data row
	stats   CSVReaderStats
	opts    CSVReaderOptions
	done    bool
}

// NewCSVReader opens path and reads its header row. The reader yields data
// rows in bounded batches; restarting requires calling NewCSVReader again
// on the unchanged file.
func NewCSVReader(path string, options ...ReaderOptionCSV) (*CSVReader, error) {
	opts := CSVReaderOptions{
		Comma:     ',',
		Encoding:  "utf-8",
		ChunkSize: 25000,
	}
	for _, opt := range options {
		opt(&opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{File: path, Op: "open", Err: err}
	}

	decoded, err := csv2parquet.DecodeReader(f, opts.Encoding)
	if err != nil {
		f.Close()
		return nil, &ReadError{File: path, Op: "decode", Err: err}
	}

	csvReader := csv.NewReader(decoded)
	csvReader.Comma = opts.Comma
	csvReader.FieldsPerRecord = -1 // shape is validated by the sanitizer
	csvReader.ReuseRecord = false

	headers, err := csvReader.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, &ReadError{File: path, Op: "read_headers", Err: fmt.Errorf("file is empty")}
		}
		return nil, &ReadError{File: path, Op: "read_headers", Err: err}
	}

	return &CSVReader{
		path:    path,
		file:    f,
		reader:  csvReader,
		headers: headers,
		record:  1,
		opts:    opts,
	}, nil
}

// Headers returns the file's own header row, which may differ from the
// canonical schema.
func (c *CSVReader) Headers() []string {
	return c.headers
}

// ReadBatch implements the csv2parquet.BatchSource interface. It returns
// the next bounded batch of raw rows, or io.EOF when the file is exhausted.
//
// Row-level parse failures (bare quotes, stray delimiters the csv parser
// rejects) are routed into the batch's error list and counted; an
// unterminated quoted field, which leaves the rest of the file unparseable,
// fails the whole file with a ReadError.
func (c *CSVReader) ReadBatch(ctx context.Context) (*csv2parquet.RawBatch, error) {
	if c.done {
		return nil, io.EOF
	}

	start := time.Now()
	defer func() {
		c.stats.ReadDuration += time.Since(start)
		c.stats.LastReadTime = time.Now()
	}()

	batch := &csv2parquet.RawBatch{
		File:    c.path,
		Start:   c.record,
		Rows:    make([][]string, 0, c.opts.ChunkSize),
		Records: make([]int64, 0, c.opts.ChunkSize),
	}

	for len(batch.Rows) < c.opts.ChunkSize {
		select {
		case <-ctx.Done():
			return nil, &ReadError{File: c.path, Op: "read", Err: ctx.Err()}
		default:
		}

		row, err := c.reader.Read()
		if err == io.EOF {
			c.done = true
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrQuote) {
				// No closing quote before EOF: the cursor cannot realign.
				return nil, &ReadError{File: c.path, Op: "read", Err: err}
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				batch.Errors = append(batch.Errors, csv2parquet.RowError{Record: c.record, Err: err})
				c.record++
				c.stats.ParseFailures++
				c.stats.RecordsRead++
				continue
			}
			return nil, &ReadError{File: c.path, Op: "read", Err: err}
		}

		batch.Rows = append(batch.Rows, row)
		batch.Records = append(batch.Records, c.record)
		c.record++
		c.stats.RecordsRead++
	}

	if batch.Len() == 0 {
		return nil, io.EOF
	}

	c.stats.BatchesRead++
	return batch, nil
}

// Close implements the csv2parquet.BatchSource interface.
func (c *CSVReader) Close() error {
	if c.file != nil {
		err := c.file.Close()
		c.file = nil
		return err
	}
	return nil
}

// Stats returns CSV reader progress stats.
func (c *CSVReader) Stats() CSVReaderStats {
	return c.stats
}
