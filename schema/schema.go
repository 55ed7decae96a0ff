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

package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v12/arrow"

	csv2parquet "github.com/invisible-research/csv2parquet"
)

// Package schema computes and represents the Canonical Schema of a
// conversion run: the unified, ordered, de-duplicated column list covering
// the union of all input headers, with a declared target type per column.
//
// Unify scans only the header line of each input file; it never reads data
// rows. The schema it returns is immutable for the duration of the run and
// threaded through every subsequent pipeline stage.

// SchemaError wraps structured error information for schema unification.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Field is one canonical column: its exact header name and target type.
// Name matching is exact string match; case or whitespace-insensitive
// merging is deliberately not performed, so distinct raw fields are never
// silently merged.
type Field struct {
	Name string
	Type Type
}

// Schema is the ordered Canonical Schema of one conversion run. It is
// immutable after construction.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New builds a Schema from an ordered field list. Duplicate names are
// rejected.
func New(fields []Field) (*Schema, error) {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, dup := index[f.Name]; dup {
			return nil, &SchemaError{Op: "new", Err: fmt.Errorf("duplicate column %q", f.Name)}
		}
		index[f.Name] = i
	}
	return &Schema{fields: append([]Field(nil), fields...), index: index}, nil
}

// Len returns the number of canonical columns.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the ordered field list.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field returns the field at position i.
func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// Index returns the canonical position of the named column, or -1 when the
// column is not part of the schema.
func (s *Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Names returns the ordered column names.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Arrow returns the Arrow schema for the output artifact: one nullable
// field per canonical column, in canonical order.
func (s *Schema) Arrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.fields))
	for i, f := range s.fields {
		fields[i] = arrow.Field{Name: f.Name, Type: f.Type.Arrow(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// UnifyOptions configures schema unification.
type UnifyOptions struct {
	// Encoding names the input text encoding used when reading headers.
	Encoding string
	// Comma is the field delimiter, ',' when zero.
	Comma rune
	// TypeOverrides maps column name to a target type token. Columns not
	// listed default to string.
	TypeOverrides map[string]string
}

// UnifyOption allows functional customization of Unify.
type UnifyOption func(*UnifyOptions)

func WithEncoding(encoding string) UnifyOption {
	return func(o *UnifyOptions) { o.Encoding = encoding }
}

func WithComma(r rune) UnifyOption {
	return func(o *UnifyOptions) { o.Comma = r }
}

func WithTypeOverrides(overrides map[string]string) UnifyOption {
	return func(o *UnifyOptions) {
		o.TypeOverrides = make(map[string]string, len(overrides))
		for k, v := range overrides {
			o.TypeOverrides[k] = v
		}
	}
}

// Unify scans the header line of every input file and returns the Canonical
// Schema: the union of all headers, de-duplicated, in first-seen order so
// repeated runs on the same input set produce the same column order.
//
// Files whose header cannot be read (empty file, open failure) are skipped
// with a warning; only when no readable header exists across all inputs
// does Unify fail with a SchemaError. The returned warnings list one entry
// per skipped file.
func Unify(paths []string, options ...UnifyOption) (*Schema, []string, error) {
	opts := UnifyOptions{Comma: ','}
	for _, opt := range options {
		opt(&opts)
	}

	if len(paths) == 0 {
		return nil, nil, &SchemaError{Op: "unify", Err: fmt.Errorf("no input files")}
	}

	var (
		fields   []Field
		seen     = make(map[string]struct{})
		warnings []string
		readable int
	)

	for _, path := range paths {
		header, err := readHeader(path, opts.Encoding, opts.Comma)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: header not readable: %v", path, err))
			continue
		}
		readable++
		for _, name := range header {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			fields = append(fields, Field{Name: name, Type: TypeString})
		}
	}

	if readable == 0 {
		return nil, warnings, &SchemaError{Op: "unify", Err: fmt.Errorf("no readable header in %d input file(s)", len(paths))}
	}

	for i := range fields {
		token, ok := opts.TypeOverrides[fields[i].Name]
		if !ok {
			continue
		}
		t, err := ParseType(token)
		if err != nil {
			return nil, warnings, &SchemaError{Op: "unify", Err: fmt.Errorf("override for column %q: %w", fields[i].Name, err)}
		}
		fields[i].Type = t
	}

	s, err := New(fields)
	if err != nil {
		return nil, warnings, err
	}
	return s, warnings, nil
}

// readHeader reads exactly the first CSV record of a file.
func readHeader(path, encoding string, comma rune) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoded, err := csv2parquet.DecodeReader(f, encoding)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(decoded)
	r.Comma = comma
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("file is empty")
		}
		return nil, err
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("empty header row")
	}
	return header, nil
}
