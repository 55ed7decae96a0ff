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

package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	csv2parquet "github.com/invisible-research/csv2parquet"
	"github.com/invisible-research/csv2parquet/readers"
	"github.com/invisible-research/csv2parquet/sanitize"
	"github.com/invisible-research/csv2parquet/schema"
	"github.com/invisible-research/csv2parquet/transform"
	"github.com/invisible-research/csv2parquet/validate"
	"github.com/invisible-research/csv2parquet/writers"
)

// Package pipeline wires the conversion stages into one sequential run:
// schema unification, streaming batch reads, sanitization, type casting,
// row-group writes, and post-conversion validation.
//
// The pipeline is a single logical stream of batches. Input files are
// processed in the order supplied and row order within each file is
// preserved end to end, so repeated runs over an unchanged input set yield
// the same canonical schema, the same row counts, and the same row order.
//
// Example usage:
//
//	conv := pipeline.NewConverter(csv2parquet.Config{
//		ChunkSize:     25000,
//		PrimaryKey:    "id",
//		TypeOverrides: map[string]string{"id": "int64", "publication_year": "int16"},
//	})
//	report, err := conv.Run(ctx, inputs, "merged.parquet")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Print(report.Summary())

// ConverterOptions configures run behavior beyond the Config surface.
type ConverterOptions struct {
	// Progress, when set, receives one line per processed file and chunk.
	Progress func(msg string)
}

// ConverterOption allows functional customization of a Converter.
type ConverterOption func(*ConverterOptions)

func WithProgress(fn func(msg string)) ConverterOption {
	return func(o *ConverterOptions) { o.Progress = fn }
}

// Converter runs complete CSV→Parquet conversions. A single Converter may
// be reused; each Run is independent.
type Converter struct {
	cfg  csv2parquet.Config
	opts ConverterOptions
}

// NewConverter builds a Converter around an explicit configuration object.
// Defaults are applied once here; the config is then immutable for every
// run.
func NewConverter(cfg csv2parquet.Config, options ...ConverterOption) *Converter {
	opts := ConverterOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	return &Converter{cfg: cfg.WithDefaults(), opts: opts}
}

// Run converts the supplied input files into a single Parquet artifact at
// output and returns the Conversion Report.
//
// File-level failures are isolated: a file that cannot be opened or that
// fails mid-read is reported in the warnings and the remaining files
// continue. Schema unification failure and writer schema mismatches abort
// the whole run; an aborted run removes the staged temp file and leaves no
// artifact at the output path.
func (c *Converter) Run(ctx context.Context, inputs []string, output string) (*csv2parquet.Report, error) {
	start := time.Now()

	sch, warnings, err := schema.Unify(inputs,
		schema.WithEncoding(c.cfg.Encoding),
		schema.WithTypeOverrides(c.cfg.TypeOverrides),
	)
	if err != nil {
		return nil, err
	}
	if c.cfg.PrimaryKey != "" && sch.Index(c.cfg.PrimaryKey) < 0 {
		return nil, &schema.SchemaError{Op: "unify", Err: fmt.Errorf("primary key column %q not found in any input", c.cfg.PrimaryKey)}
	}

	writer, err := writers.NewParquetWriter(output, sch, writers.WithCompression(c.cfg.Codec))
	if err != nil {
		return nil, err
	}

	caster := transform.NewTypeCaster(sch,
		transform.WithNullSentinel(c.cfg.NullSentinel),
		transform.WithFailureThreshold(c.cfg.CastFailureThreshold),
		transform.WithWorkers(c.cfg.CastWorkers),
	)

	var rejects *writers.RejectsWriter
	if c.cfg.RejectsPath != "" {
		rejects, err = writers.NewRejectsWriter(c.cfg.RejectsPath)
		if err != nil {
			writer.Abort()
			return nil, err
		}
		defer rejects.Close()
	}

	totals := validate.Totals{}

	for _, path := range inputs {
		fileWarnings, err := c.convertFile(ctx, path, sch, caster, writer, rejects, &totals)
		warnings = append(warnings, fileWarnings...)
		if err != nil {
			writer.Abort()
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	totals.Elapsed = time.Since(start)
	warnings = append(warnings, caster.Warnings()...)

	report, err := validate.Run(ctx, output, totals, validate.Checks{
		PrimaryKey: c.cfg.PrimaryKey,
		Columns:    sch.Len(),
	}, warnings)
	if err != nil {
		return nil, err
	}

	if c.cfg.ReportPath != "" {
		if err := report.WriteFile(c.cfg.ReportPath); err != nil {
			return report, err
		}
	}

	return report, nil
}

// convertFile streams one input file through sanitize → cast → write.
// A returned error is fatal for the whole run; recoverable file-level
// failures come back as warnings with a nil error.
func (c *Converter) convertFile(ctx context.Context, path string, sch *schema.Schema, caster *transform.TypeCaster, writer *writers.ParquetWriter, rejects *writers.RejectsWriter, totals *validate.Totals) ([]string, error) {
	var warnings []string

	if info, err := os.Stat(path); err == nil {
		totals.InputBytes += info.Size()
	}

	reader, err := readers.NewCSVReader(path,
		readers.WithCSVEncoding(c.cfg.Encoding),
		readers.WithCSVChunkSize(c.cfg.ChunkSize),
	)
	if err != nil {
		// Isolation between files: this one is lost, the run continues.
		return []string{fmt.Sprintf("%s: file skipped: %v", path, err)}, nil
	}
	defer reader.Close()

	san := sanitize.New(sch, path, reader.Headers(),
		sanitize.WithSampleLimit(c.cfg.SkipSampleLimit),
		sanitize.WithNullToken(c.cfg.NullSentinel))

	c.progress(fmt.Sprintf("processing %s", path))

	for {
		raw, err := reader.ReadBatch(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return warnings, err
			}
			// Mid-file read failure: keep what was already converted,
			// continue with the next file.
			warnings = append(warnings, fmt.Sprintf("%s: aborted mid-file: %v", path, err))
			break
		}

		batch, skips := san.SanitizeBatch(raw)
		if rejects != nil {
			for _, skip := range skips {
				if err := rejects.WriteSkip(skip); err != nil {
					return warnings, err
				}
			}
		}

		typed, err := caster.Cast(ctx, batch)
		if err != nil {
			return warnings, err
		}
		if err := writer.Write(ctx, typed); err != nil {
			return warnings, err
		}

		c.progress(fmt.Sprintf("%s: %d rows read, %d written total", path, reader.Stats().RecordsRead, writer.Stats().RowsWritten))
	}

	stats := san.Stats()
	totals.Files++
	totals.RowsRead += reader.Stats().RecordsRead
	totals.RowsSkipped += stats.Skipped
	warnings = append(warnings, san.Warnings()...)

	return warnings, nil
}

func (c *Converter) progress(msg string) {
	if c.opts.Progress != nil {
		c.opts.Progress(msg)
	}
}
