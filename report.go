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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Report is the terminal artifact of one conversion run: row accounting,
// size and timing figures, and the validation verdict. It is immutable once
// emitted; a completed run always produces a report, even when validation
// checks failed, so an operator can decide whether to accept the artifact.
type Report struct {
	FilesProcessed      int      `json:"files_processed"`
	RowsRead            int64    `json:"rows_read"`
	RowsWritten         int64    `json:"rows_written"`
	RowsSkipped         int64    `json:"rows_skipped"`
	Columns             int      `json:"columns"`
	InputBytes          int64    `json:"input_bytes"`
	OutputBytes         int64    `json:"output_bytes"`
	CompressionRatio    float64  `json:"compression_ratio"`
	ElapsedSeconds      float64  `json:"elapsed_seconds"`
	RowsPerSecond       float64  `json:"rows_per_second"`
	PrimaryKeyUnique    bool     `json:"primary_key_unique"`
	PrimaryKeyNullCount int64    `json:"primary_key_null_count"`
	OutputChecksum      string   `json:"output_checksum,omitempty"`
	Valid               bool     `json:"valid"`
	Warnings            []string `json:"warnings"`
}

// WriteFile writes the report as indented JSON to path, creating parent
// directories as needed.
func (r *Report) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// Summary renders a compact human-readable view of the report for console
// output.
func (r *Report) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "files=%d rows_read=%d rows_written=%d rows_skipped=%d columns=%d\n",
		r.FilesProcessed, r.RowsRead, r.RowsWritten, r.RowsSkipped, r.Columns)
	fmt.Fprintf(&sb, "input=%d bytes output=%d bytes ratio=%.2fx elapsed=%.1fs (%.0f rows/s)\n",
		r.InputBytes, r.OutputBytes, r.CompressionRatio, r.ElapsedSeconds, r.RowsPerSecond)
	if r.PrimaryKeyUnique && r.PrimaryKeyNullCount == 0 {
		fmt.Fprintf(&sb, "primary key: ok\n")
	} else {
		fmt.Fprintf(&sb, "primary key: unique=%v nulls=%d\n", r.PrimaryKeyUnique, r.PrimaryKeyNullCount)
	}
	if r.Valid {
		sb.WriteString("validation: passed\n")
	} else {
		sb.WriteString("validation: FAILED (artifact retained)\n")
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "warning: %s\n", w)
	}

	return sb.String()
}
