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
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/invisible-research/csv2parquet/sanitize"
)

// RejectsWriterError wraps rejects side-file write errors with context.
type RejectsWriterError struct {
	Op  string
	Err error
}

func (e *RejectsWriterError) Error() string {
	return fmt.Sprintf("rejects writer %s: %v", e.Op, e.Err)
}

func (e *RejectsWriterError) Unwrap() error {
	return e.Err
}

// rejectsHeader is the fixed column layout of the rejects side-file.
var rejectsHeader = []string{"file", "record", "reason", "excerpt"}

// RejectsWriter writes skip records to a CSV side-file so an operator can
// inspect what the sanitizer rejected without re-running the conversion.
type RejectsWriter struct {
	file    *os.File
	writer  *csv.Writer
	records int64
	closed  bool
}

// NewRejectsWriter creates the side-file at path and writes its header row.
func NewRejectsWriter(path string) (*RejectsWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &RejectsWriterError{Op: "open_file", Err: err}
	}

	w := csv.NewWriter(f)
	if err := w.Write(rejectsHeader); err != nil {
		f.Close()
		return nil, &RejectsWriterError{Op: "write_header", Err: err}
	}

	return &RejectsWriter{file: f, writer: w}, nil
}

// WriteSkip appends one skip record.
func (r *RejectsWriter) WriteSkip(skip sanitize.Skip) error {
	if r.closed {
		return &RejectsWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}

	row := []string{skip.File, strconv.FormatInt(skip.Record, 10), string(skip.Reason), skip.Excerpt}
	if err := r.writer.Write(row); err != nil {
		return &RejectsWriterError{Op: "write", Err: err}
	}
	r.records++
	return nil
}

// Records returns the number of skip records written.
func (r *RejectsWriter) Records() int64 {
	return r.records
}

// Close flushes and closes the side-file.
func (r *RejectsWriter) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.file.Close()
		return &RejectsWriterError{Op: "flush", Err: err}
	}
	return r.file.Close()
}
