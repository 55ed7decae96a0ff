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
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeReader wraps r with a decoder for the named source encoding.
//
// The returned reader always produces valid UTF-8: undecodable byte
// sequences are replaced with U+FFFD rather than aborting, and any leading
// byte-order mark is stripped. Supported encodings are utf-8 (default),
// latin-1/iso-8859-1, and windows-1252.
func DecodeReader(r io.Reader, encoding string) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	switch name {
	case "", "utf-8", "utf8":
		dec := unicode.UTF8.NewDecoder()
		return transform.NewReader(r, unicode.BOMOverride(dec)), nil
	case "latin-1", "latin1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}
