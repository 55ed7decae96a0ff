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

package sanitize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	csv2parquet "github.com/invisible-research/csv2parquet"
	"github.com/invisible-research/csv2parquet/schema"
)

// Package sanitize validates raw rows against the Canonical Schema and
// routes malformed rows to a counted skip path instead of aborting the run.
//
// The outcome of sanitizing one row is an explicit result: either a
// normalized row or a Skip with a reason code. Skips are aggregated per
// file; no row content is retained beyond a bounded diagnostic excerpt.

// Reason is a skip reason code.
type Reason string

const (
	// ReasonFieldCount marks a raw row whose field count does not match its
	// file's header, e.g. from an unescaped delimiter.
	ReasonFieldCount Reason = "field-count-mismatch"
	// ReasonParse marks a row the CSV parser rejected.
	ReasonParse Reason = "parse-error"
)

// maxExcerpt bounds the diagnostic excerpt kept for a skipped row.
const maxExcerpt = 120

// Skip records one rejected row: where it came from, why, and a truncated
// excerpt for diagnostics.
type Skip struct {
	File    string `json:"file"`
	Record  int64  `json:"record"`
	Reason  Reason `json:"reason"`
	Excerpt string `json:"excerpt"`
}

// Stats aggregates sanitizer outcomes for one file.
type Stats struct {
	Accepted int64
	Skipped  int64
	ByReason map[Reason]int64
	Samples  []Skip
}

// Options configures the sanitizer.
type Options struct {
	// SampleLimit bounds the number of Skip samples retained.
	SampleLimit int
	// NullToken fills canonical columns absent from the file's header, so
	// the type caster turns them into native nulls for every column type.
	NullToken string
}

// Option allows functional customization of a Sanitizer.
type Option func(*Options)

func WithSampleLimit(n int) Option {
	return func(o *Options) { o.SampleLimit = n }
}

func WithNullToken(token string) Option {
	return func(o *Options) { o.NullToken = token }
}

// Sanitizer normalizes raw rows from one input file onto the Canonical
// Schema. The column projection from the file's header onto canonical
// positions is computed once at construction.
type Sanitizer struct {
	file        string
	arity       int   // canonical column count
	fileColumns int   // the file's own header width
	projection  []int // file position -> canonical position, -1 = dropped
	fill        bool  // some canonical column is absent from the file
	stats       Stats
	warnings    []string
	opts        Options
}

// New builds a Sanitizer for one file given the Canonical Schema and the
// file's own header row.
//
// Canonical columns absent from the file header are filled with the null
// token; that is the normal case when merging heterogeneous-schema files,
// never a skip condition. File columns absent from the Canonical Schema are
// dropped, each with a single warning for the whole file rather than one
// per row.
func New(sch *schema.Schema, file string, fileHeader []string, options ...Option) *Sanitizer {
	opts := Options{SampleLimit: 20, NullToken: `\N`}
	for _, opt := range options {
		opt(&opts)
	}

	s := &Sanitizer{
		file:        file,
		arity:       sch.Len(),
		fileColumns: len(fileHeader),
		projection:  make([]int, len(fileHeader)),
		stats:       Stats{ByReason: make(map[Reason]int64)},
		opts:        opts,
	}

	// A repeated header name maps to the same canonical column, so coverage
	// is counted over distinct canonical positions.
	mapped := make(map[int]struct{}, len(fileHeader))
	for i, name := range fileHeader {
		idx := sch.Index(name)
		s.projection[i] = idx
		if idx < 0 {
			s.warnings = append(s.warnings, fmt.Sprintf("%s: column %q not in canonical schema, dropped", file, name))
		} else {
			mapped[idx] = struct{}{}
		}
	}
	s.fill = len(mapped) < s.arity

	return s
}

// Sanitize normalizes one raw row. It returns either the normalized row or
// a Skip describing why the row was rejected; never both.
func (s *Sanitizer) Sanitize(raw []string, record int64) (csv2parquet.Row, *Skip) {
	if len(raw) != s.fileColumns {
		return nil, s.reject(record, ReasonFieldCount, strings.Join(raw, ","))
	}

	row := make(csv2parquet.Row, s.arity)
	if s.fill {
		for i := range row {
			row[i] = s.opts.NullToken
		}
	}
	for i, val := range raw {
		if p := s.projection[i]; p >= 0 {
			row[p] = val
		}
	}

	s.stats.Accepted++
	return row, nil
}

// SanitizeBatch normalizes a whole raw batch, folding in row-level parse
// errors the reader already routed around. The returned skip list covers
// this batch only; retention in Stats stays bounded regardless.
func (s *Sanitizer) SanitizeBatch(raw *csv2parquet.RawBatch) (*csv2parquet.Batch, []Skip) {
	batch := &csv2parquet.Batch{
		File: raw.File,
		Rows: make([]csv2parquet.Row, 0, len(raw.Rows)),
	}
	var skips []Skip

	for i, r := range raw.Rows {
		record := raw.Start + int64(i)
		if i < len(raw.Records) {
			record = raw.Records[i]
		}
		row, skip := s.Sanitize(r, record)
		if skip == nil {
			batch.Rows = append(batch.Rows, row)
		} else {
			skips = append(skips, *skip)
		}
	}
	for _, re := range raw.Errors {
		skips = append(skips, *s.reject(re.Record, ReasonParse, re.Err.Error()))
	}

	return batch, skips
}

// reject counts a skip and retains a bounded sample.
func (s *Sanitizer) reject(record int64, reason Reason, excerpt string) *Skip {
	if len(excerpt) > maxExcerpt {
		cut := maxExcerpt
		// Back up to a rune boundary so the excerpt stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}
	skip := &Skip{File: s.file, Record: record, Reason: reason, Excerpt: excerpt}

	s.stats.Skipped++
	s.stats.ByReason[reason]++
	if len(s.stats.Samples) < s.opts.SampleLimit {
		s.stats.Samples = append(s.stats.Samples, *skip)
	}

	return skip
}

// Stats returns the aggregated outcomes for this file.
func (s *Sanitizer) Stats() Stats {
	return s.stats
}

// Warnings returns the one-time warnings collected at construction, one per
// dropped extra column.
func (s *Sanitizer) Warnings() []string {
	return s.warnings
}
