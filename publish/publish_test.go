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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFileLocation_Publish verifies the copy-into-directory destination,
// including directory creation.
func TestFileLocation_Publish(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "artifact.parquet")
	require.NoError(t, os.WriteFile(src, []byte("parquet bytes"), 0644))

	dstDir := filepath.Join(t.TempDir(), "drop", "nested")
	loc := FileLocation{Dir: dstDir}
	require.NoError(t, loc.Publish(context.Background(), src))

	data, err := os.ReadFile(filepath.Join(dstDir, "artifact.parquet"))
	require.NoError(t, err)
	assert.Equal(t, "parquet bytes", string(data))
}

// TestFileLocation_PublishMissingSource verifies the error path.
func TestFileLocation_PublishMissingSource(t *testing.T) {
	loc := FileLocation{Dir: t.TempDir()}
	err := loc.Publish(context.Background(), filepath.Join(t.TempDir(), "absent.parquet"))
	require.Error(t, err)
}
