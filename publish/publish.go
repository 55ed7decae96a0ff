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

package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Package publish ships finished conversion artifacts (the Parquet file and
// its report side-file) to their destination after a successful run. The
// pipeline itself only ever writes to the local filesystem; publication is
// a separate, optional step.

// Location is a destination for finished artifacts.
type Location interface {
	// Publish copies the file at srcPath to the destination.
	Publish(ctx context.Context, srcPath string) error
}

// FileLocation copies artifacts into a local directory.
type FileLocation struct {
	Dir string
}

// Publish copies srcPath into the destination directory, creating it as
// needed.
func (f FileLocation) Publish(ctx context.Context, srcPath string) error {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return fmt.Errorf("publish %s: %w", srcPath, err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("publish %s: %w", srcPath, err)
	}
	defer src.Close()

	dstPath := filepath.Join(f.Dir, filepath.Base(srcPath))
	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("publish %s: %w", srcPath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return fmt.Errorf("publish %s: %w", srcPath, err)
	}
	return dst.Close()
}

// S3Location uploads artifacts to an S3 bucket under a key prefix.
type S3Location struct {
	Bucket   string
	Prefix   string
	Uploader *s3manager.Uploader
}

// Publish uploads srcPath to s3://bucket/prefix/basename. When no uploader
// was injected, one is built from the ambient AWS configuration.
func (s S3Location) Publish(ctx context.Context, srcPath string) error {
	uploader := s.Uploader
	if uploader == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("publish %s: %w", srcPath, err)
		}
		uploader = s3manager.NewUploader(s3.NewFromConfig(cfg))
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("publish %s: %w", srcPath, err)
	}
	defer f.Close()

	key := path.Join(s.Prefix, filepath.Base(srcPath))
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &s.Bucket,
		Key:    &key,
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("publish %s to s3://%s/%s: %w", srcPath, s.Bucket, key, err)
	}
	return nil
}
