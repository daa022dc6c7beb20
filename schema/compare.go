// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package schema

import (
	"fmt"
	"strings"
)

// CompareOptions tunes how tolerant CompareWithOptions / CheckCompatible /
// ExplainDifference are about missing nullable fields, metadata, and field
// order. Nullability differences between present fields are always
// reported. CompareDictionary has no effect: LogicalType carries no
// dictionary encoding to compare.
type CompareOptions struct {
	CompareDictionary      bool
	CompareMetadata        bool
	AllowMissingIfNullable bool
	IgnoreFieldOrder       bool
}

// CompareWithOptions reports whether self matches expected under opts.
func (s *Schema) CompareWithOptions(expected *Schema, opts CompareOptions) bool {
	return s.explain(expected, opts) == ""
}

// CheckCompatible returns nil if self matches expected under opts, else a
// *MismatchError carrying the full ExplainDifference report.
func (s *Schema) CheckCompatible(expected *Schema, opts CompareOptions) error {
	if diff := s.explain(expected, opts); diff != "" {
		return &MismatchError{Explanation: diff}
	}
	return nil
}

// ExplainDifference produces a deterministic, human-readable report listing
// missing, unexpected, reordered, and per-field mismatches with dotted
// paths. Empty string means no difference was found.
func (s *Schema) ExplainDifference(expected *Schema, opts CompareOptions) string {
	return s.explain(expected, opts)
}

func (s *Schema) explain(expected *Schema, opts CompareOptions) string {
	var lines []string

	if !opts.IgnoreFieldOrder && len(s.Fields) == len(expected.Fields) {
		// Fast path: both order-sensitive and (implicitly) same length;
		// zip and compare pairwise, falling through to the name-based
		// path below only to produce a diagnosis if something differs.
		allMatch := true
		for i := range s.Fields {
			if s.Fields[i].Name != expected.Fields[i].Name {
				allMatch = false
				break
			}
			if d := compareFields(s.Fields[i], expected.Fields[i], "", opts); d != "" {
				lines = append(lines, d)
				allMatch = false
			}
		}
		if allMatch {
			return ""
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}

	selfByName := map[string]*Field{}
	for _, f := range s.Fields {
		selfByName[f.Name] = f
	}
	matchedSelf := map[string]bool{}

	positions := map[string]int{}
	for i, f := range s.Fields {
		positions[f.Name] = i
	}
	lastPos := -1
	outOfOrder := false

	for _, ef := range expected.Fields {
		sf, ok := selfByName[ef.Name]
		if !ok {
			if ef.Nullable && opts.AllowMissingIfNullable {
				continue
			}
			lines = append(lines, fmt.Sprintf("missing field: %q", ef.Name))
			continue
		}
		matchedSelf[ef.Name] = true
		if !opts.IgnoreFieldOrder {
			pos := positions[ef.Name]
			if pos < lastPos {
				outOfOrder = true
			}
			lastPos = pos
		}
		if d := compareFields(sf, ef, "", opts); d != "" {
			lines = append(lines, d)
		}
	}
	if outOfOrder {
		lines = append(lines, "fields are reordered relative to expected")
	}
	for _, sf := range s.Fields {
		if !matchedSelf[sf.Name] {
			lines = append(lines, fmt.Sprintf("unexpected field: %q", sf.Name))
		}
	}
	return strings.Join(lines, "\n")
}

func compareFields(self, expected *Field, path string, opts CompareOptions) string {
	full := expected.Name
	if path != "" {
		full = path + "." + expected.Name
	}
	var issues []string
	if self.Name != expected.Name {
		issues = append(issues, fmt.Sprintf("%q: name %q != %q", full, self.Name, expected.Name))
	}
	if self.Type.Kind != expected.Type.Kind || (self.Type.Kind == Primitive && self.Type.Name != expected.Type.Name) {
		issues = append(issues, fmt.Sprintf("%q: type %v != %v", full, self.Type, expected.Type))
	}
	if self.Nullable != expected.Nullable {
		issues = append(issues, fmt.Sprintf("%q: nullable %v != %v", full, self.Nullable, expected.Nullable))
	}
	if opts.CompareMetadata && !metadataEqual(self.Metadata, expected.Metadata) {
		issues = append(issues, fmt.Sprintf("%q: metadata differs", full))
	}
	if len(self.Children) == len(expected.Children) {
		for i := range self.Children {
			if d := compareFields(self.Children[i], expected.Children[i], full, opts); d != "" {
				issues = append(issues, d)
			}
		}
	} else {
		issues = append(issues, fmt.Sprintf("%q: child count %d != %d", full, len(self.Children), len(expected.Children)))
	}
	return strings.Join(issues, "\n")
}

func metadataEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
