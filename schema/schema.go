// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package schema

import (
	"fmt"
	"strings"
)

// RowIDColumn and RowAddrColumn are the reserved virtual column names.
// They never appear inside a stored Schema; Projection tracks them as
// booleans instead (see schema/projection).
const (
	RowIDColumn   = "_rowid"
	RowAddrColumn = "_rowaddr"
)

// Schema is an ordered list of top-level fields plus dataset-wide metadata.
type Schema struct {
	Fields   []*Field
	Metadata map[string]string
}

// New builds a Schema from top-level fields, validating structural
// invariants (duplicate names/ids, reserved '.' in top-level names,
// primary-key placement). It does not assign field IDs; call SetFieldID
// for that.
func New(fields []*Field, metadata map[string]string) (*Schema, error) {
	s := &Schema{Fields: fields, Metadata: metadata}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Clone deep-copies the schema.
func (s *Schema) Clone() *Schema {
	out := &Schema{Fields: make([]*Field, len(s.Fields))}
	for i, f := range s.Fields {
		out.Fields[i] = f.Clone()
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// FieldsPreOrder yields every field, parent before children, siblings left
// to right. This is the canonical order for ID assignment and comparison.
func (s *Schema) FieldsPreOrder() []*Field {
	var out []*Field
	for _, f := range s.Fields {
		f.preOrder(&out)
	}
	return out
}

// FieldIDs returns every field ID in pre-order.
func (s *Schema) FieldIDs() []int32 {
	pre := s.FieldsPreOrder()
	ids := make([]int32, len(pre))
	for i, f := range pre {
		ids[i] = f.ID
	}
	return ids
}

// TopLevelFieldIDs returns the IDs of the top-level fields only.
func (s *Schema) TopLevelFieldIDs() []int32 {
	ids := make([]int32, len(s.Fields))
	for i, f := range s.Fields {
		ids[i] = f.ID
	}
	return ids
}

// MaxFieldID returns the largest assigned field ID in the schema, and false
// if the schema has no assigned (non-negative) IDs at all.
func (s *Schema) MaxFieldID() (int32, bool) {
	max := UnassignedID
	for _, f := range s.Fields {
		if m := f.maxID(); m > max {
			max = m
		}
	}
	if max == UnassignedID {
		return 0, false
	}
	return max, true
}

// Resolve splits a dotted path on '.' and walks the tree, returning the
// ordered list of Fields from root to leaf, or false if any segment is
// missing. Top-level names are guaranteed not to contain '.', so the split
// is unambiguous.
func (s *Schema) Resolve(column string) ([]*Field, bool) {
	segments := strings.Split(column, ".")
	var chain []*Field
	var cur *Field
	for i, seg := range segments {
		var next *Field
		if i == 0 {
			for _, f := range s.Fields {
				if f.Name == seg {
					next = f
					break
				}
			}
		} else {
			next = cur.childByName(seg)
		}
		if next == nil {
			return nil, false
		}
		chain = append(chain, next)
		cur = next
	}
	return chain, true
}

// Field returns only the terminal field of a dotted path.
func (s *Schema) Field(column string) (*Field, bool) {
	chain, ok := s.Resolve(column)
	if !ok {
		return nil, false
	}
	return chain[len(chain)-1], true
}

// FieldID returns the terminal field's ID for a dotted path.
func (s *Schema) FieldID(column string) (int32, error) {
	f, ok := s.Field(column)
	if !ok {
		return 0, newErr(ErrUnresolvedPath, column, "no such field")
	}
	return f.ID, nil
}

// FieldByID searches pre-order for a field with the given ID.
func (s *Schema) FieldByID(id int32) (*Field, bool) {
	for _, f := range s.FieldsPreOrder() {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// FieldAncestryByID returns the chain from the top-level ancestor down to
// the field with the given ID, inclusive.
func (s *Schema) FieldAncestryByID(id int32) ([]*Field, bool) {
	var walk func(path []*Field, f *Field) ([]*Field, bool)
	walk = func(path []*Field, f *Field) ([]*Field, bool) {
		path = append(path, f)
		if f.ID == id {
			return path, true
		}
		for _, c := range f.Children {
			if res, ok := walk(path, c); ok {
				return res, true
			}
		}
		return nil, false
	}
	for _, f := range s.Fields {
		if res, ok := walk(nil, f); ok {
			return res, true
		}
	}
	return nil, false
}

// SetFieldID assigns IDs to every field currently carrying UnassignedID.
// The cursor starts at max(schema's own max id, maxExistingID) + 1 and
// walks pre-order; maxExistingID is supplied by the caller as the
// dataset-wide high-water mark so IDs never collide with previously used
// (and possibly dropped) ones.
func (s *Schema) SetFieldID(maxExistingID *int32) {
	start := int32(-1)
	if m, ok := s.MaxFieldID(); ok {
		start = m
	}
	if maxExistingID != nil && *maxExistingID > start {
		start = *maxExistingID
	}
	cursor := start + 1
	for i, f := range s.Fields {
		s.Fields[i] = f.withFieldIDsAssigned(&cursor)
	}
}

// Validate checks the schema's structural invariants: unique
// non-negative IDs (once assigned), unique sibling names, no '.' in
// top-level names, and primary-key placement rules.
func (s *Schema) Validate() error {
	seenNames := map[string]bool{}
	for _, f := range s.Fields {
		if strings.Contains(f.Name, ".") {
			return newErr(ErrReservedName, f.Name, "top-level field name contains '.'")
		}
		if seenNames[f.Name] {
			return newErr(ErrDuplicateName, f.Name, "duplicate top-level field name")
		}
		seenNames[f.Name] = true
		if err := validateSiblingNames(f); err != nil {
			return err
		}
	}
	seenIDs := map[int32]bool{}
	for _, f := range s.FieldsPreOrder() {
		if f.ID == UnassignedID {
			continue
		}
		if f.ID < 0 {
			return newErr(ErrNegativeID, f.Name, fmt.Sprintf("id %d is negative", f.ID))
		}
		if seenIDs[f.ID] {
			return newErr(ErrDuplicateID, f.Name, fmt.Sprintf("id %d used more than once", f.ID))
		}
		seenIDs[f.ID] = true
	}
	return s.validatePrimaryKeys()
}

func validateSiblingNames(f *Field) error {
	seen := map[string]bool{}
	for _, c := range f.Children {
		if seen[c.Name] {
			return newErr(ErrDuplicateName, f.Name+"."+c.Name, "duplicate sibling field name")
		}
		seen[c.Name] = true
		if err := validateSiblingNames(c); err != nil {
			return err
		}
	}
	return nil
}

// validatePrimaryKeys enforces: a field marked UnenforcedPrimaryKey must be
// a leaf, must have all ancestors (and itself) non-nullable, and must not
// descend through any list-typed ancestor.
func (s *Schema) validatePrimaryKeys() error {
	for _, f := range s.UnenforcedPrimaryKeys() {
		if !f.IsLeaf() {
			return newErr(ErrPrimaryKey, f.Name, "primary key column must be a leaf field")
		}
	}
	var walk func(ancestors []*Field, f *Field) error
	walk = func(ancestors []*Field, f *Field) error {
		if f.UnenforcedPrimaryKey {
			if f.Nullable {
				return newErr(ErrPrimaryKey, f.Name, "primary key column must not be nullable")
			}
			for _, a := range ancestors {
				if a.Nullable {
					return newErr(ErrPrimaryKey, f.Name, "primary key column must not have a nullable ancestor")
				}
				if a.Type.Kind == List {
					return newErr(ErrPrimaryKey, f.Name, "primary key column must not be in a list type")
				}
			}
		}
		next := append(append([]*Field{}, ancestors...), f)
		for _, c := range f.Children {
			if err := walk(next, c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, f := range s.Fields {
		if err := walk(nil, f); err != nil {
			return err
		}
	}
	return nil
}

// UnenforcedPrimaryKeys returns every field marked as a primary key.
func (s *Schema) UnenforcedPrimaryKeys() []*Field {
	var out []*Field
	for _, f := range s.FieldsPreOrder() {
		if f.UnenforcedPrimaryKey {
			out = append(out, f)
		}
	}
	return out
}

// PartitionByStorageClass splits top-level fields into a Default schema and
// an optional Blob schema (nil if there are no blob columns), preserving
// order within each partition.
func (s *Schema) PartitionByStorageClass() (*Schema, *Schema) {
	def := &Schema{Metadata: s.Metadata}
	var blob *Schema
	for _, f := range s.Fields {
		if f.StorageClass == Blob {
			if blob == nil {
				blob = &Schema{Metadata: s.Metadata}
			}
			blob.Fields = append(blob.Fields, f.Clone())
		} else {
			def.Fields = append(def.Fields, f.Clone())
		}
	}
	return def, blob
}
