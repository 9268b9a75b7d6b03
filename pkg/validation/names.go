// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// Well and curve names end up inside Flux queries and URL paths. Validating
// them against a strict allow-list prevents Flux injection and path tricks.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidName is wrapped by every validation failure.
var ErrInvalidName = errors.New("invalid name")

// wellPattern matches well names such as "15/9-F-11 T2" or "W#4".
// Allows: letters, digits, space, underscore, dot, hyphen, slash, hash.
// Max length: 64 characters. No quotes, backslashes or control characters.
var wellPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.\-/#]{0,63}$`)

// curvePattern matches LAS curve mnemonics such as "GR", "RHOB", "DT_2".
var curvePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,31}$`)

// ValidateWellName validates a well name to prevent Flux injection.
//
// Example:
//
//	if err := validation.ValidateWellName(well); err != nil {
//	    return nil, fmt.Errorf("invalid well: %w", err)
//	}
//	// Safe to use in Flux query
func ValidateWellName(well string) error {
	if well == "" {
		return fmt.Errorf("%w: well name cannot be empty", ErrInvalidName)
	}
	if !wellPattern.MatchString(well) {
		return fmt.Errorf("%w: well %q (1-64 chars: letters, digits, space, _ . - / #)", ErrInvalidName, well)
	}
	return nil
}

// ValidateCurveName validates a curve mnemonic.
func ValidateCurveName(curve string) error {
	if curve == "" {
		return fmt.Errorf("%w: curve name cannot be empty", ErrInvalidName)
	}
	if !curvePattern.MatchString(curve) {
		return fmt.Errorf("%w: curve %q (1-32 chars: letters, digits, _ . -)", ErrInvalidName, curve)
	}
	return nil
}

// ValidateCurveNames validates several mnemonics.
// Returns an error listing all invalid names if any fail validation.
func ValidateCurveNames(curves []string) error {
	var invalid []string
	for _, c := range curves {
		if err := ValidateCurveName(c); err != nil {
			invalid = append(invalid, c)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: curves %q", ErrInvalidName, invalid)
	}
	return nil
}

// SanitizeCurveName trims a mnemonic read from a LAS header and validates it.
// LAS files often pad mnemonics and some exporters append a trailing dot.
//
//	safe, err := validation.SanitizeCurveName(" GR. ")
//	// safe == "GR"
func SanitizeCurveName(curve string) (string, error) {
	normalized := strings.TrimRight(strings.TrimSpace(curve), ".")
	if err := ValidateCurveName(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
