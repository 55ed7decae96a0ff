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
)

// Codec selects the Parquet compression codec for the output artifact.
type Codec int

const (
	// CodecFast is a fast, moderate-ratio codec (Snappy), suitable for
	// mixed text/numeric data. This is the default.
	CodecFast Codec = iota
	// CodecBalanced trades CPU for a better compression ratio (Zstd).
	CodecBalanced
)

// ParseCodec maps a configuration token to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "fast", "snappy":
		return CodecFast, nil
	case "balanced", "zstd":
		return CodecBalanced, nil
	default:
		return CodecFast, fmt.Errorf("unknown compression codec %q", name)
	}
}

// String returns the configuration token for the codec.
func (c Codec) String() string {
	switch c {
	case CodecBalanced:
		return "balanced"
	default:
		return "fast"
	}
}

// Config is the explicit configuration object for one conversion run.
// It is constructed once and passed by reference to every component; no
// component keeps ambient global state.
type Config struct {
	// ChunkSize is the number of rows per batch. Each batch becomes one
	// Parquet row-group.
	ChunkSize int `json:"chunk_size"`
	// Codec selects the output compression codec.
	Codec Codec `json:"-"`
	// CompressionCodec is the textual form of Codec for JSON configs.
	CompressionCodec string `json:"compression_codec,omitempty"`
	// Encoding names the input text encoding (default utf-8, BOM-aware).
	Encoding string `json:"encoding,omitempty"`
	// NullSentinel is the textual token representing a missing value in the
	// source (a MySQL dump convention); translated to a native null at cast
	// time. Default `\N`.
	NullSentinel string `json:"null_sentinel,omitempty"`
	// PrimaryKey optionally names a column checked for uniqueness and
	// null-freeness by the validator.
	PrimaryKey string `json:"primary_key_column,omitempty"`
	// TypeOverrides maps column name to a target type token: string,
	// int16, int32, int64, date, datetime. Columns not listed are string.
	TypeOverrides map[string]string `json:"type_overrides,omitempty"`
	// CastFailureThreshold is the per-batch fraction of failed casts in one
	// column above which a warning is surfaced in the report.
	CastFailureThreshold float64 `json:"cast_failure_threshold,omitempty"`
	// CastWorkers bounds parallel per-column casting within a batch.
	// 1 disables parallelism.
	CastWorkers int `json:"cast_workers,omitempty"`
	// SkipSampleLimit bounds the number of skip-record samples retained.
	SkipSampleLimit int `json:"skip_sample_limit,omitempty"`
	// RejectsPath, when set, writes a CSV side-file of skip records.
	RejectsPath string `json:"rejects_path,omitempty"`
	// ReportPath, when set, writes the conversion report as a JSON side-file.
	ReportPath string `json:"report_path,omitempty"`
}

// WithDefaults returns a copy of the config with zero values replaced by
// defaults. The original is not modified.
func (c Config) WithDefaults() Config {
	result := c

	if result.ChunkSize <= 0 {
		result.ChunkSize = 25000
	}
	if result.Encoding == "" {
		result.Encoding = "utf-8"
	}
	if result.NullSentinel == "" {
		result.NullSentinel = `\N`
	}
	if result.CastFailureThreshold <= 0 || result.CastFailureThreshold > 1 {
		result.CastFailureThreshold = 0.5
	}
	if result.CastWorkers <= 0 {
		result.CastWorkers = 1
	}
	if result.SkipSampleLimit <= 0 {
		result.SkipSampleLimit = 20
	}
	if result.TypeOverrides == nil {
		result.TypeOverrides = make(map[string]string)
	}

	return result
}

// LoadConfig reads a Config from a JSON file and applies defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if cfg.CompressionCodec != "" {
		codec, err := ParseCodec(cfg.CompressionCodec)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg.Codec = codec
	}

	return cfg.WithDefaults(), nil
}
