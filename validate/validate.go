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

package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zeebo/xxh3"

	csv2parquet "github.com/invisible-research/csv2parquet"
	"github.com/invisible-research/csv2parquet/readers"
)

// Package validate runs post-conversion integrity checks over the finished
// artifact and produces the Conversion Report.
//
// The contract is detect-and-report: a failed check (row-count mismatch,
// primary-key violation) marks the report invalid but never deletes the
// artifact, leaving remediation to the operator.

// ValidateError wraps validator I/O failures.
type ValidateError struct {
	Op  string
	Err error
}

func (e *ValidateError) Error() string {
	return fmt.Sprintf("validate %s: %v", e.Op, e.Err)
}

func (e *ValidateError) Unwrap() error {
	return e.Err
}

// Totals carries the counters the pipeline accumulated while converting.
type Totals struct {
	Files       int
	RowsRead    int64
	RowsSkipped int64
	InputBytes  int64
	Elapsed     time.Duration
}

// Checks declares what to verify against the artifact.
type Checks struct {
	// PrimaryKey names the column checked for uniqueness and
	// null-freeness. Empty disables the check.
	PrimaryKey string
	// Columns is the expected canonical column count.
	Columns int
}

// Run re-opens the artifact, re-counts rows and columns, verifies the
// declared primary key, and assembles the Conversion Report. It mutates
// neither input nor output. The returned error covers only I/O failures
// opening or scanning the artifact; check failures are reported through
// the report's Valid flag and warnings.
func Run(ctx context.Context, artifact string, totals Totals, checks Checks, warnings []string) (*csv2parquet.Report, error) {
	report := &csv2parquet.Report{
		FilesProcessed:   totals.Files,
		RowsRead:         totals.RowsRead,
		RowsSkipped:      totals.RowsSkipped,
		InputBytes:       totals.InputBytes,
		ElapsedSeconds:   totals.Elapsed.Seconds(),
		PrimaryKeyUnique: true,
		Valid:            true,
		Warnings:         append([]string(nil), warnings...),
	}
	if totals.Elapsed > 0 {
		report.RowsPerSecond = float64(totals.RowsRead) / totals.Elapsed.Seconds()
	}

	info, err := os.Stat(artifact)
	if err != nil {
		return nil, &ValidateError{Op: "stat", Err: err}
	}
	report.OutputBytes = info.Size()
	if report.OutputBytes > 0 {
		report.CompressionRatio = float64(report.InputBytes) / float64(report.OutputBytes)
	}

	checksum, err := checksumFile(artifact)
	if err != nil {
		return nil, err
	}
	report.OutputChecksum = checksum

	reader, err := readers.NewParquetReader(artifact)
	if err != nil {
		return nil, &ValidateError{Op: "open", Err: err}
	}
	rowsWritten := reader.NumRows()
	columns := len(reader.Schema().Fields())
	reader.Close()

	report.RowsWritten = rowsWritten
	report.Columns = columns

	if rowsWritten+totals.RowsSkipped != totals.RowsRead {
		report.Valid = false
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("row count mismatch: read %d, written %d + skipped %d", totals.RowsRead, rowsWritten, totals.RowsSkipped))
	}
	if checks.Columns > 0 && columns != checks.Columns {
		report.Valid = false
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("column count mismatch: artifact has %d, canonical schema has %d", columns, checks.Columns))
	}

	if checks.PrimaryKey != "" {
		unique, nulls, err := checkPrimaryKey(ctx, artifact, checks.PrimaryKey)
		if err != nil {
			return nil, err
		}
		report.PrimaryKeyUnique = unique
		report.PrimaryKeyNullCount = nulls
		if !unique {
			report.Valid = false
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("primary key %q has duplicate values", checks.PrimaryKey))
		}
		if nulls > 0 {
			report.Valid = false
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("primary key %q has %d null value(s)", checks.PrimaryKey, nulls))
		}
	}

	return report, nil
}

// checkPrimaryKey streams only the key column and verifies uniqueness and
// null-freeness.
func checkPrimaryKey(ctx context.Context, artifact, column string) (unique bool, nulls int64, err error) {
	reader, err := readers.NewParquetReader(artifact, readers.WithParquetColumns(column))
	if err != nil {
		return false, 0, &ValidateError{Op: "open_key_column", Err: err}
	}
	defer reader.Close()

	seen := make(map[string]struct{})
	unique = true

	for {
		rec, err := reader.ReadBatch(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, 0, &ValidateError{Op: "scan_key_column", Err: err}
		}

		col := rec.Column(0)
		for i := 0; i < int(rec.NumRows()); i++ {
			key, ok := readers.KeyString(col, i)
			if !ok {
				nulls++
				continue
			}
			if _, dup := seen[key]; dup {
				unique = false
				continue
			}
			seen[key] = struct{}{}
		}
		rec.Release()
	}

	return unique, nulls, nil
}

// checksumFile computes the xxh3-128 digest of the artifact, recorded in
// the report so repeated runs over unchanged input can be compared cheaply.
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ValidateError{Op: "checksum", Err: err}
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", &ValidateError{Op: "checksum", Err: err}
	}
	sum := h.Sum128()
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo), nil
}
