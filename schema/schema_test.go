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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestUnify_UnionFirstSeenOrder verifies the union-of-columns strategy:
// first-seen order across files, exact-match de-duplication.
func TestUnify_UnionFirstSeenOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id,name\n1,Alice\n")
	b := writeFile(t, dir, "b.csv", "id,email\n2,bob@example.com\n")

	sch, warnings, err := Unify([]string{a, b})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"id", "name", "email"}, sch.Names())
	assert.Equal(t, 3, sch.Len())
}

// TestUnify_ExactMatchOnly verifies that case and whitespace variants are
// treated as distinct columns, never silently merged.
func TestUnify_ExactMatchOnly(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id,Name\n1,x\n")
	b := writeFile(t, dir, "b.csv", "id,name\n2,y\n")

	sch, _, err := Unify([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Name", "name"}, sch.Names())
}

// TestUnify_EmptyFileSkippedWithWarning verifies that a zero-byte file is
// skipped with a warning while other files still produce a schema.
func TestUnify_EmptyFileSkippedWithWarning(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.csv", "")
	ok := writeFile(t, dir, "ok.csv", "id,name\n1,x\n")

	sch, warnings, err := Unify([]string{empty, ok})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "empty.csv")
	assert.Equal(t, []string{"id", "name"}, sch.Names())
}

// TestUnify_NoReadableHeaders verifies the fatal SchemaError when no input
// exposes a header.
func TestUnify_NoReadableHeaders(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.csv", "")
	missing := filepath.Join(dir, "does-not-exist.csv")

	_, warnings, err := Unify([]string{empty, missing})
	require.Error(t, err)
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
	assert.Len(t, warnings, 2)
}

// TestUnify_NoInputs verifies that an empty path list is a SchemaError.
func TestUnify_NoInputs(t *testing.T) {
	_, _, err := Unify(nil)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
}

// TestUnify_TypeOverrides verifies declared per-column target types.
func TestUnify_TypeOverrides(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id,publication_year,title,updated\n1,2020,x,2020-01-02\n")

	sch, _, err := Unify([]string{a}, WithTypeOverrides(map[string]string{
		"id":               "int64",
		"publication_year": "int16",
		"updated":          "datetime",
	}))
	require.NoError(t, err)

	assert.Equal(t, TypeInt64, sch.Field(0).Type)
	assert.Equal(t, TypeInt16, sch.Field(1).Type)
	assert.Equal(t, TypeString, sch.Field(2).Type)
	assert.Equal(t, TypeDatetime, sch.Field(3).Type)
}

// TestUnify_UnknownOverrideType verifies that a bad type token fails fast.
func TestUnify_UnknownOverrideType(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id\n1\n")

	_, _, err := Unify([]string{a}, WithTypeOverrides(map[string]string{"id": "float128"}))
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
}

// TestUnify_BOMHeader verifies that a UTF-8 BOM does not leak into the
// first column name.
func TestUnify_BOMHeader(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "\xef\xbb\xbfid,name\n1,x\n")

	sch, _, err := Unify([]string{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, sch.Names())
}

// TestSchema_Index verifies canonical position lookup.
func TestSchema_Index(t *testing.T) {
	sch, err := New([]Field{{Name: "id", Type: TypeInt64}, {Name: "name", Type: TypeString}})
	require.NoError(t, err)

	assert.Equal(t, 0, sch.Index("id"))
	assert.Equal(t, 1, sch.Index("name"))
	assert.Equal(t, -1, sch.Index("missing"))
}

// TestSchema_DuplicateColumn verifies duplicate names are rejected.
func TestSchema_DuplicateColumn(t *testing.T) {
	_, err := New([]Field{{Name: "id"}, {Name: "id"}})
	require.Error(t, err)
}

// TestSchema_Arrow verifies the Arrow schema mapping: every column is
// nullable and carries the declared storage type.
func TestSchema_Arrow(t *testing.T) {
	sch, err := New([]Field{
		{Name: "id", Type: TypeInt64},
		{Name: "year", Type: TypeInt16},
		{Name: "title", Type: TypeString},
		{Name: "published", Type: TypeDate},
	})
	require.NoError(t, err)

	as := sch.Arrow()
	require.Equal(t, 4, len(as.Fields()))
	assert.Equal(t, arrow.PrimitiveTypes.Int64, as.Field(0).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Int16, as.Field(1).Type)
	assert.Equal(t, arrow.BinaryTypes.String, as.Field(2).Type)
	assert.Equal(t, arrow.FixedWidthTypes.Date32, as.Field(3).Type)
	for _, f := range as.Fields() {
		assert.True(t, f.Nullable)
	}
}

// TestParseType_RoundTrip verifies token parsing and rendering.
func TestParseType_RoundTrip(t *testing.T) {
	for _, token := range []string{"string", "int16", "int32", "int64", "date", "datetime"} {
		typ, err := ParseType(token)
		require.NoError(t, err)
		assert.Equal(t, token, typ.String())
	}

	_, err := ParseType("decimal")
	assert.Error(t, err)
}
