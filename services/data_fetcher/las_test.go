// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the LAS reader

package main

import (
	"errors"
	"strings"
	"testing"
)

const minimalLAS = `~VERSION INFORMATION
 VERS.   2.0 : CWLS LOG ASCII STANDARD
 WRAP.   NO  : ONE LINE PER DEPTH STEP
~WELL INFORMATION
 STRT.M  100.0    : START DEPTH
 NULL.   -999.25  : NULL VALUE
 WELL.   W-1      : WELL
~CURVE INFORMATION
 DEPT.M           : DEPTH
 GR  .GAPI        : GAMMA RAY
 RHOB.G/C3        : BULK DENSITY
~PARAMETER INFORMATION
 BHT .DEGC  35.5  : BOTTOM HOLE TEMPERATURE
# comment line
~A  DEPTH   GR     RHOB
100.0   45.5    2.31
100.5   -999.25 2.35
`

func TestParseLAS_Minimal(t *testing.T) {
	las, err := ParseLAS(strings.NewReader(minimalLAS))
	if err != nil {
		t.Fatalf("ParseLAS failed: %v", err)
	}
	if las.Well != "W-1" {
		t.Errorf("Expected well W-1, got %q", las.Well)
	}
	if las.Null == nil || *las.Null != -999.25 {
		t.Errorf("Expected NULL -999.25, got %v", las.Null)
	}
	if got := strings.Join(las.Curves, ","); got != "DEPT,GR,RHOB" {
		t.Errorf("Expected curves DEPT,GR,RHOB, got %s", got)
	}
	if got := strings.Join(las.DataCurves(), ","); got != "GR,RHOB" {
		t.Errorf("Expected data curves GR,RHOB, got %s", got)
	}
	if len(las.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(las.Rows))
	}
	if *las.Rows[0][0] != 100.0 || *las.Rows[0][1] != 45.5 || *las.Rows[0][2] != 2.31 {
		t.Errorf("Unexpected first row: %v %v %v", *las.Rows[0][0], *las.Rows[0][1], *las.Rows[0][2])
	}
	if las.Rows[1][1] != nil {
		t.Errorf("Expected NULL GR at 100.5 to be nil, got %v", *las.Rows[1][1])
	}
}

func TestParseLAS_NoNullDeclared(t *testing.T) {
	input := "~C\nDEPT.M :\nGR.GAPI :\n~A\n1 -999.25\n"
	las, err := ParseLAS(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseLAS failed: %v", err)
	}
	if las.Rows[0][1] == nil || *las.Rows[0][1] != -999.25 {
		t.Error("Without a NULL entry every reading must be kept")
	}
}

func TestParseLAS_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrapped", "~V\nWRAP. YES :\n~C\nDEPT.M :\n~A\n1\n"},
		{"no curve section", "~W\nWELL. W-1 :\n~A\n1 2\n"},
		{"no data section", "~C\nDEPT.M :\nGR.GAPI :\n"},
		{"data before curves", "~A\n1 2\n~C\nDEPT.M :\n"},
		{"column count", "~C\nDEPT.M :\nGR.GAPI :\n~A\n1 2 3\n"},
		{"not a number", "~C\nDEPT.M :\nGR.GAPI :\n~A\n1 abc\n"},
		{"duplicate curve", "~C\nGR.GAPI :\ngr.GAPI :\n~A\n1 2\n"},
		{"null index", "~W\nNULL. -999.25 :\n~C\nDEPT.M :\nGR.GAPI :\n~A\n-999.25 2\n"},
		{"bare tilde", "~\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLAS(strings.NewReader(tt.input))
			if !errors.Is(err, ErrInvalidLAS) {
				t.Errorf("Expected ErrInvalidLAS, got %v", err)
			}
		})
	}
}

func TestHeaderLine(t *testing.T) {
	tests := []struct {
		line              string
		mnem, unit, value string
	}{
		{"STRT.M  100.0 : START DEPTH", "STRT", "M", "100.0"},
		{"WELL.   15/9-F-11 : WELL", "WELL", "", "15/9-F-11"},
		{"RHOB.G/C3 : BULK DENSITY", "RHOB", "G/C3", ""},
		{"NODOT", "NODOT", "", ""},
	}

	for _, tt := range tests {
		mnem, unit, value := headerLine(tt.line)
		if mnem != tt.mnem || unit != tt.unit || value != tt.value {
			t.Errorf("headerLine(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tt.line, mnem, unit, value, tt.mnem, tt.unit, tt.value)
		}
	}
}
