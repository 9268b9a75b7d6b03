// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidLAS is wrapped by every LAS parse failure.
var ErrInvalidLAS = errors.New("invalid LAS file")

// maxLASLine bounds one line of an uploaded file.
const maxLASLine = 1 << 20

// LASFile is the part of a LAS 2.0 file the well store keeps.
//
// Curves[0] is the index (depth) curve. Rows are index-aligned with Curves;
// a nil value is a NULL reading.
type LASFile struct {
	Well   string
	Null   *float64
	Curves []string
	Rows   [][]*float64
}

// DataCurves returns the curve mnemonics after the index curve.
func (f *LASFile) DataCurves() []string {
	if len(f.Curves) < 2 {
		return nil
	}
	return f.Curves[1:]
}

// ParseLAS reads an unwrapped LAS 2.0 file.
//
// # Description
//
// Only ~V (for WRAP), ~W (WELL and NULL), ~C and ~A are interpreted; other
// sections are skipped. Lines starting with '#' are comments.
//
// # Outputs
//
//   - error: Wraps ErrInvalidLAS for wrapped files, missing ~C or ~A, rows
//     with the wrong column count, or non-numeric readings.
//
// # Limitations
//
// Wrapped (WRAP YES) files are rejected.
func ParseLAS(r io.Reader) (*LASFile, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLASLine)

	out := &LASFile{}
	var section byte
	seenCurves, seenData := false, false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "~") {
			if len(line) < 2 {
				return nil, fmt.Errorf("%w: line %d: empty section header", ErrInvalidLAS, lineNo)
			}
			section = upper(line[1])
			switch section {
			case 'C':
				seenCurves = true
			case 'A':
				if len(out.Curves) == 0 {
					return nil, fmt.Errorf("%w: ~A before any ~C curve", ErrInvalidLAS)
				}
				seenData = true
			}
			continue
		}

		switch section {
		case 'V':
			mnem, _, value := headerLine(line)
			if strings.EqualFold(mnem, "WRAP") && strings.EqualFold(value, "YES") {
				return nil, fmt.Errorf("%w: wrapped files are not supported", ErrInvalidLAS)
			}
		case 'W':
			mnem, _, value := headerLine(line)
			switch strings.ToUpper(mnem) {
			case "WELL":
				out.Well = value
			case "NULL":
				if v, err := strconv.ParseFloat(value, 64); err == nil {
					out.Null = &v
				}
			}
		case 'C':
			mnem, _, _ := headerLine(line)
			if mnem == "" {
				return nil, fmt.Errorf("%w: line %d: curve without mnemonic", ErrInvalidLAS, lineNo)
			}
			for _, c := range out.Curves {
				if strings.EqualFold(c, mnem) {
					return nil, fmt.Errorf("%w: duplicate curve %q", ErrInvalidLAS, mnem)
				}
			}
			out.Curves = append(out.Curves, mnem)
		case 'A':
			row, err := out.dataRow(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidLAS, lineNo, err)
			}
			out.Rows = append(out.Rows, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLAS, err)
	}
	if !seenCurves || len(out.Curves) == 0 {
		return nil, fmt.Errorf("%w: no ~C section", ErrInvalidLAS)
	}
	if !seenData {
		return nil, fmt.Errorf("%w: no ~A section", ErrInvalidLAS)
	}
	return out, nil
}

func (f *LASFile) dataRow(line string) ([]*float64, error) {
	fields := strings.Fields(line)
	if len(fields) != len(f.Curves) {
		return nil, fmt.Errorf("expected %d readings, got %d", len(f.Curves), len(fields))
	}
	row := make([]*float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("reading %d (%s): %q is not a number", i+1, f.Curves[i], s)
		}
		if f.Null != nil && v == *f.Null {
			if i == 0 {
				return nil, fmt.Errorf("NULL index value")
			}
			continue
		}
		row[i] = &v
	}
	return row, nil
}

// headerLine splits "MNEM.UNIT  VALUE : DESCRIPTION".
func headerLine(line string) (mnem, unit, value string) {
	dot := strings.Index(line, ".")
	if dot < 0 {
		return strings.TrimSpace(line), "", ""
	}
	mnem = strings.TrimSpace(line[:dot])
	rest := line[dot+1:]
	if colon := strings.LastIndex(rest, ":"); colon >= 0 {
		rest = rest[:colon]
	}
	if sp := strings.IndexAny(rest, " \t"); sp >= 0 {
		unit = rest[:sp]
		value = strings.TrimSpace(rest[sp:])
	} else {
		unit = rest
	}
	return mnem, strings.TrimSpace(unit), value
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
