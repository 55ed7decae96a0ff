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

// Command pqinfo prints row counts, row-group layout, and schema of a
// Parquet artifact, for quick inspection of conversion output.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/apache/arrow/go/v12/parquet/file"

	"github.com/invisible-research/csv2parquet/readers"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: pqinfo <file.parquet>\n")
		os.Exit(2)
	}
	path := flag.Arg(0)

	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	defer reader.Close()

	fmt.Printf("%s\n", path)
	fmt.Printf("rows: %d\n", reader.NumRows())
	fmt.Printf("row groups: %d\n", reader.NumRowGroups())
	for i := 0; i < reader.NumRowGroups(); i++ {
		fmt.Printf("  row group %d: %d rows\n", i, reader.RowGroup(i).NumRows())
	}

	pr, err := readers.NewParquetReader(path)
	if err != nil {
		log.Fatal(err)
	}
	defer pr.Close()

	schema := pr.Schema()
	fmt.Printf("columns: %d\n", len(schema.Fields()))
	for _, f := range schema.Fields() {
		fmt.Printf("  %s: %s\n", f.Name, f.Type)
	}
}
