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
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csv2parquet "github.com/invisible-research/csv2parquet"
	"github.com/invisible-research/csv2parquet/readers"
	"github.com/invisible-research/csv2parquet/sanitize"
	"github.com/invisible-research/csv2parquet/schema"
)

func sanitizeSkip(file string, record int64, reason, excerpt string) sanitize.Skip {
	return sanitize.Skip{File: file, Record: record, Reason: sanitize.Reason(reason), Excerpt: excerpt}
}

func writerSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.Field{
		{Name: "id", Type: schema.TypeInt64},
		{Name: "year", Type: schema.TypeInt16},
		{Name: "title", Type: schema.TypeString},
		{Name: "published", Type: schema.TypeDate},
	})
	require.NoError(t, err)
	return sch
}

func typedBatch(sch *schema.Schema, columns ...[]interface{}) *csv2parquet.TypedBatch {
	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0])
	}
	return &csv2parquet.TypedBatch{Names: sch.Names(), Columns: columns, NumRows: rows}
}

// TestParquetWriter_RoundTrip verifies that typed batches written as
// row-groups read back with the same values, nulls included.
func TestParquetWriter_RoundTrip(t *testing.T) {
	sch := writerSchema(t)
	out := filepath.Join(t.TempDir(), "out.parquet")

	w, err := NewParquetWriter(out, sch)
	require.NoError(t, err)

	batch := typedBatch(sch,
		[]interface{}{int64(1), int64(2)},
		[]interface{}{int16(2001), nil},
		[]interface{}{"first", ""},
		[]interface{}{time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC), nil},
	)
	require.NoError(t, w.Write(context.Background(), batch))
	require.NoError(t, w.Close())

	r, err := readers.NewParquetReader(out)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(2), r.NumRows())
	assert.Equal(t, 1, r.NumRowGroups())
	assert.Equal(t, []string{"id", "year", "title", "published"}, func() []string {
		names := make([]string, 0, 4)
		for _, f := range r.Schema().Fields() {
			names = append(names, f.Name)
		}
		return names
	}())

	rec, err := r.ReadBatch(context.Background())
	require.NoError(t, err)
	defer rec.Release()

	ids := rec.Column(0).(*array.Int64)
	assert.Equal(t, int64(1), ids.Value(0))
	assert.Equal(t, int64(2), ids.Value(1))

	years := rec.Column(1).(*array.Int16)
	assert.Equal(t, int16(2001), years.Value(0))
	assert.True(t, years.IsNull(1))

	titles := rec.Column(2).(*array.String)
	assert.Equal(t, "first", titles.Value(0))
	// Empty string is a value, not a null.
	assert.False(t, titles.IsNull(1))
	assert.Equal(t, "", titles.Value(1))

	published := rec.Column(3).(*array.Date32)
	assert.Equal(t, "2020-05-06", published.Value(0).ToTime().Format("2006-01-02"))
	assert.True(t, published.IsNull(1))
}

// TestParquetWriter_RowGroupPerBatch verifies each batch becomes exactly one
// row-group.
func TestParquetWriter_RowGroupPerBatch(t *testing.T) {
	sch := writerSchema(t)
	out := filepath.Join(t.TempDir(), "groups.parquet")

	w, err := NewParquetWriter(out, sch)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		batch := typedBatch(sch,
			[]interface{}{int64(i)},
			[]interface{}{int16(2000)},
			[]interface{}{"t"},
			[]interface{}{nil},
		)
		require.NoError(t, w.Write(context.Background(), batch))
	}
	require.NoError(t, w.Close())

	assert.Equal(t, int64(3), w.Stats().RowsWritten)
	assert.Equal(t, int64(3), w.Stats().RowGroups)

	r, err := readers.NewParquetReader(out)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 3, r.NumRowGroups())
	assert.Equal(t, int64(3), r.NumRows())
}

// TestParquetWriter_AtomicRename verifies staging semantics: nothing at the
// destination until Close, no temp file left after.
func TestParquetWriter_AtomicRename(t *testing.T) {
	sch := writerSchema(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "atomic.parquet")

	w, err := NewParquetWriter(out, sch)
	require.NoError(t, err)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(out + ".tmp")
	assert.NoError(t, err)

	require.NoError(t, w.Close())

	_, err = os.Stat(out)
	assert.NoError(t, err)
	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

// TestParquetWriter_CloseFailureDiscardsTemp verifies a Close that cannot
// promote the staged file also removes it: a directory squatting on the
// destination path makes the rename fail.
func TestParquetWriter_CloseFailureDiscardsTemp(t *testing.T) {
	sch := writerSchema(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "blocked.parquet")

	w, err := NewParquetWriter(out, sch)
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(out, 0755))

	err = w.Close()
	require.Error(t, err)
	var writerErr *ParquetWriterError
	require.True(t, errors.As(err, &writerErr))
	assert.Equal(t, "rename", writerErr.Op)
	assert.NoFileExists(t, out+".tmp")
}

// TestParquetWriter_Abort verifies a failed run leaves nothing behind.
func TestParquetWriter_Abort(t *testing.T) {
	sch := writerSchema(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "aborted.parquet")

	w, err := NewParquetWriter(out, sch)
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

// TestParquetWriter_SchemaMismatch verifies that batches disagreeing with
// the canonical schema stop the run with a WriterSchemaError.
func TestParquetWriter_SchemaMismatch(t *testing.T) {
	sch := writerSchema(t)
	out := filepath.Join(t.TempDir(), "bad.parquet")

	w, err := NewParquetWriter(out, sch)
	require.NoError(t, err)
	defer w.Abort()

	var schemaErr *WriterSchemaError

	// Wrong arity.
	err = w.Write(context.Background(), &csv2parquet.TypedBatch{
		Names:   []string{"id"},
		Columns: [][]interface{}{{int64(1)}},
		NumRows: 1,
	})
	require.True(t, errors.As(err, &schemaErr))

	// Wrong column order.
	err = w.Write(context.Background(), &csv2parquet.TypedBatch{
		Names: []string{"year", "id", "title", "published"},
		Columns: [][]interface{}{
			{int16(2000)}, {int64(1)}, {"t"}, {nil},
		},
		NumRows: 1,
	})
	require.True(t, errors.As(err, &schemaErr))

	// Ragged column.
	err = w.Write(context.Background(), &csv2parquet.TypedBatch{
		Names: sch.Names(),
		Columns: [][]interface{}{
			{int64(1)}, {int16(2000)}, {"t", "extra"}, {nil},
		},
		NumRows: 1,
	})
	require.True(t, errors.As(err, &schemaErr))

	// Dynamic type mismatch.
	err = w.Write(context.Background(), typedBatch(sch,
		[]interface{}{"not-an-int"},
		[]interface{}{int16(2000)},
		[]interface{}{"t"},
		[]interface{}{nil},
	))
	require.True(t, errors.As(err, &schemaErr))
}

// TestParquetWriter_NullCounts verifies per-column null accounting.
func TestParquetWriter_NullCounts(t *testing.T) {
	sch := writerSchema(t)
	out := filepath.Join(t.TempDir(), "nulls.parquet")

	w, err := NewParquetWriter(out, sch)
	require.NoError(t, err)

	batch := typedBatch(sch,
		[]interface{}{int64(1), int64(2)},
		[]interface{}{nil, nil},
		[]interface{}{"a", "b"},
		[]interface{}{nil, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	)
	require.NoError(t, w.Write(context.Background(), batch))
	require.NoError(t, w.Close())

	stats := w.Stats()
	assert.Equal(t, int64(2), stats.NullValueCounts["year"])
	assert.Equal(t, int64(1), stats.NullValueCounts["published"])
	assert.Zero(t, stats.NullValueCounts["id"])
	assert.Greater(t, stats.BytesWritten, int64(0))
}

// TestParquetWriter_Compression verifies both supported codecs produce
// readable artifacts.
func TestParquetWriter_Compression(t *testing.T) {
	sch := writerSchema(t)

	for _, codec := range []csv2parquet.Codec{csv2parquet.CodecFast, csv2parquet.CodecBalanced} {
		out := filepath.Join(t.TempDir(), "c.parquet")
		w, err := NewParquetWriter(out, sch, WithCompression(codec))
		require.NoError(t, err)

		batch := typedBatch(sch,
			[]interface{}{int64(1)},
			[]interface{}{int16(1999)},
			[]interface{}{"x"},
			[]interface{}{nil},
		)
		require.NoError(t, w.Write(context.Background(), batch))
		require.NoError(t, w.Close())

		r, err := readers.NewParquetReader(out)
		require.NoError(t, err)
		assert.Equal(t, int64(1), r.NumRows())
		require.NoError(t, r.Close())
	}
}

// TestParquetWriter_WriteAfterClose verifies the closed-writer guard.
func TestParquetWriter_WriteAfterClose(t *testing.T) {
	sch := writerSchema(t)
	out := filepath.Join(t.TempDir(), "closed.parquet")

	w, err := NewParquetWriter(out, sch)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.Write(context.Background(), typedBatch(sch))
	var writerErr *ParquetWriterError
	require.True(t, errors.As(err, &writerErr))
}

// TestRejectsWriter verifies the skip side-file layout end to end.
func TestRejectsWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects.csv")

	w, err := NewRejectsWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteSkip(sanitizeSkip("a.csv", 7, "field-count-mismatch", "1,2,3")))
	require.NoError(t, w.WriteSkip(sanitizeSkip("b.csv", 2, "parse-error", `bare "`)))
	assert.Equal(t, int64(2), w.Records())
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(content), "file,record,reason,excerpt")
	assert.Contains(t, string(content), "a.csv,7,field-count-mismatch")
	assert.Contains(t, string(content), "parse-error")
}
