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

// Command csv2parquet merges a directory of CSV files into a single
// compressed Parquet artifact and prints the conversion report.
//
// Usage:
//
//	csv2parquet -input-dir data/raw/openalex_data \
//	    -output data/processed/openalex_merged.parquet \
//	    -report data/processed/openalex_merged_stats.json \
//	    -primary-key id -types id=int64,publication_year=int16
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	csv2parquet "github.com/invisible-research/csv2parquet"
	"github.com/invisible-research/csv2parquet/pipeline"
	"github.com/invisible-research/csv2parquet/publish"
)

func main() {
	var (
		inputDir   = flag.String("input-dir", "", "root directory containing CSV files (recursively discovered)")
		output     = flag.String("output", "", "destination Parquet file path")
		reportPath = flag.String("report", "", "optional path for the JSON conversion report")
		configPath = flag.String("config", "", "optional JSON config file; flags override it")
		chunkSize  = flag.Int("chunk-size", 0, "rows per batch/row-group")
		codecName  = flag.String("codec", "", "compression codec: fast or balanced")
		encoding   = flag.String("encoding", "", "input text encoding (utf-8, latin-1, windows-1252)")
		sentinel   = flag.String("null-sentinel", "", `null sentinel token (default \N)`)
		primaryKey = flag.String("primary-key", "", "column checked for uniqueness and null-freeness")
		types      = flag.String("types", "", "comma-separated column type overrides, e.g. id=int64,year=int16")
		rejects    = flag.String("rejects", "", "optional CSV side-file of skipped rows")
		workers    = flag.Int("cast-workers", 0, "parallel column casts within a batch")
		s3Bucket   = flag.String("s3-bucket", "", "optional S3 bucket to publish artifact and report to")
		s3Prefix   = flag.String("s3-prefix", "", "key prefix for -s3-bucket")
		quiet      = flag.Bool("quiet", false, "suppress per-chunk progress output")
	)
	flag.Parse()

	if *inputDir == "" || *output == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := csv2parquet.Config{}
	if *configPath != "" {
		loaded, err := csv2parquet.LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}

	if *chunkSize > 0 {
		cfg.ChunkSize = *chunkSize
	}
	if *codecName != "" {
		codec, err := csv2parquet.ParseCodec(*codecName)
		if err != nil {
			log.Fatal(err)
		}
		cfg.Codec = codec
	}
	if *encoding != "" {
		cfg.Encoding = *encoding
	}
	if *sentinel != "" {
		cfg.NullSentinel = *sentinel
	}
	if *primaryKey != "" {
		cfg.PrimaryKey = *primaryKey
	}
	if *rejects != "" {
		cfg.RejectsPath = *rejects
	}
	if *reportPath != "" {
		cfg.ReportPath = *reportPath
	}
	if *workers > 0 {
		cfg.CastWorkers = *workers
	}
	if *types != "" {
		overrides, err := parseTypeOverrides(*types)
		if err != nil {
			log.Fatal(err)
		}
		if cfg.TypeOverrides == nil {
			cfg.TypeOverrides = make(map[string]string)
		}
		for k, v := range overrides {
			cfg.TypeOverrides[k] = v
		}
	}

	inputs, err := discoverCSVFiles(*inputDir)
	if err != nil {
		log.Fatal(err)
	}
	if len(inputs) == 0 {
		log.Fatalf("no CSV files found under %s", *inputDir)
	}
	log.Printf("discovered %d CSV file(s) under %s", len(inputs), *inputDir)

	var options []pipeline.ConverterOption
	if !*quiet {
		options = append(options, pipeline.WithProgress(func(msg string) {
			log.Print(msg)
		}))
	}

	conv := pipeline.NewConverter(cfg, options...)
	report, err := conv.Run(context.Background(), inputs, *output)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Print(report.Summary())

	if *s3Bucket != "" {
		loc := publish.S3Location{Bucket: *s3Bucket, Prefix: *s3Prefix}
		if err := loc.Publish(context.Background(), *output); err != nil {
			log.Fatal(err)
		}
		if cfg.ReportPath != "" {
			if err := loc.Publish(context.Background(), cfg.ReportPath); err != nil {
				log.Fatal(err)
			}
		}
		log.Printf("published to s3://%s/%s", *s3Bucket, *s3Prefix)
	}

	if !report.Valid {
		os.Exit(1)
	}
}

// discoverCSVFiles walks root recursively and returns all .csv paths in
// sorted order, so repeated runs process files deterministically.
func discoverCSVFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// parseTypeOverrides parses "col=type,col=type" into an override map.
func parseTypeOverrides(s string) (map[string]string, error) {
	overrides := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, token, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid type override %q, want column=type", pair)
		}
		overrides[strings.TrimSpace(name)] = strings.TrimSpace(token)
	}
	return overrides, nil
}
