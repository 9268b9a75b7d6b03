// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "strings"

// Selection is the ordered set of curves currently plotted.
//
// Order decides trace order, axis index and axis side. At most MaxSelection
// names are held; adding beyond that is silently ignored.
//
// The zero value is an empty selection ready to use.
type Selection struct {
	names []string
}

// NewSelection builds a selection from names, keeping the first occurrence of
// each selectable name and stopping at MaxSelection.
func NewSelection(names ...string) Selection {
	var s Selection
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add appends name and reports whether the selection changed.
//
// Duplicates, unselectable names and a fourth curve are no-ops.
func (s *Selection) Add(name string) bool {
	if !IsSelectable(name) || s.Contains(name) || len(s.names) >= MaxSelection {
		return false
	}
	s.names = append(s.names, name)
	return true
}

// Remove drops name and reports whether it was present.
func (s *Selection) Remove(name string) bool {
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i:i], s.names[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle removes name if present, otherwise adds it.
// It returns whether name is selected afterwards.
func (s *Selection) Toggle(name string) bool {
	if s.Remove(name) {
		return false
	}
	return s.Add(name)
}

// Contains reports whether name is selected.
func (s Selection) Contains(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns a copy of the selected curve names in order.
func (s Selection) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of selected curves.
func (s Selection) Len() int { return len(s.names) }

// Key is a stable string identity for the selection, order included.
func (s Selection) Key() string {
	return strings.Join(s.names, "\x1f")
}
