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

package schema

import (
	"fmt"

	"github.com/apache/arrow/go/v12/arrow"
)

// Type is the target storage type of a canonical column. Narrow integer
// widths are a storage optimization declared per column; they are never
// inferred from data-specific assumptions.
type Type int

const (
	// TypeString is a nullable UTF-8 string, the default for every column.
	TypeString Type = iota
	// TypeInt16 is a 16-bit integer (e.g. a year column).
	TypeInt16
	// TypeInt32 is a 32-bit integer.
	TypeInt32
	// TypeInt64 is a 64-bit integer (e.g. a global id column).
	TypeInt64
	// TypeDate is a calendar date without time-of-day.
	TypeDate
	// TypeDatetime is a timestamp with microsecond precision.
	TypeDatetime
)

// ParseType maps a configuration token to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "", "string", "str", "text":
		return TypeString, nil
	case "int16", "smallint":
		return TypeInt16, nil
	case "int32", "int":
		return TypeInt32, nil
	case "int64", "bigint":
		return TypeInt64, nil
	case "date":
		return TypeDate, nil
	case "datetime", "timestamp":
		return TypeDatetime, nil
	default:
		return TypeString, fmt.Errorf("unknown column type %q", name)
	}
}

// String returns the configuration token for the type.
func (t Type) String() string {
	switch t {
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeDate:
		return "date"
	case TypeDatetime:
		return "datetime"
	default:
		return "string"
	}
}

// Arrow returns the Arrow data type backing this column type in the output
// artifact.
func (t Type) Arrow() arrow.DataType {
	switch t {
	case TypeInt16:
		return arrow.PrimitiveTypes.Int16
	case TypeInt32:
		return arrow.PrimitiveTypes.Int32
	case TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case TypeDate:
		return arrow.FixedWidthTypes.Date32
	case TypeDatetime:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}
