// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package schema

// isVirtualColumn reports whether name is one of the reserved row-id /
// row-addr virtual columns, which are never materialized as schema fields.
func isVirtualColumn(name string) bool {
	return name == RowIDColumn || name == RowAddrColumn
}

// Project selects the given dotted columns, materializing the sub-tree
// rooted at each path and merging results by top-level name so that
// ["b.f1", "b.f3"] produces one "b" with two children. An unknown column
// is an error, except the virtual columns which are always silently
// accepted (and contribute no field).
func (s *Schema) Project(columns []string) (*Schema, error) {
	return s.project(columns, true)
}

// ProjectOrDrop behaves like Project but silently drops unknown columns
// instead of failing.
func (s *Schema) ProjectOrDrop(columns []string) *Schema {
	out, _ := s.project(columns, false)
	return out
}

func (s *Schema) project(columns []string, strict bool) (*Schema, error) {
	out := &Schema{Metadata: s.Metadata}
	for _, col := range columns {
		if isVirtualColumn(col) {
			continue
		}
		chain, ok := s.Resolve(col)
		if !ok {
			if strict {
				return nil, newErr(ErrUnknownColumn, col, "column not found in schema")
			}
			continue
		}
		mergeProjectedPath(out, chain)
	}
	return out, nil
}

// mergeProjectedPath materializes one resolved root-to-leaf chain into out,
// merging into an existing top-level field of the same name if present.
func mergeProjectedPath(out *Schema, chain []*Field) {
	top := chain[0]
	var existing *Field
	for _, f := range out.Fields {
		if f.Name == top.Name {
			existing = f
			break
		}
	}
	if existing == nil {
		existing = &Field{
			ID: top.ID, Name: top.Name, Type: top.Type, Nullable: top.Nullable,
			StorageClass: top.StorageClass, Metadata: top.Metadata,
			UnenforcedPrimaryKey: top.UnenforcedPrimaryKey,
		}
		out.Fields = append(out.Fields, existing)
	}
	cur := existing
	for _, next := range chain[1:] {
		var child *Field
		for _, c := range cur.Children {
			if c.Name == next.Name {
				child = c
				break
			}
		}
		if child == nil {
			child = &Field{
				ID: next.ID, Name: next.Name, Type: next.Type, Nullable: next.Nullable,
				StorageClass: next.StorageClass, Metadata: next.Metadata,
				UnenforcedPrimaryKey: next.UnenforcedPrimaryKey,
			}
			cur.Children = append(cur.Children, child)
		}
		cur = child
	}
}

// ProjectByIDs retains every field whose id is in ids. When
// includeAllChildren is true, including a parent's id automatically pulls
// every descendant regardless of its own membership. Ancestors of any
// selected descendant are always retained.
func (s *Schema) ProjectByIDs(ids []int32, includeAllChildren bool) *Schema {
	want := make(map[int32]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var filter func(f *Field, forced bool) *Field
	filter = func(f *Field, forced bool) *Field {
		self := forced || want[f.ID]
		forceChildren := forced || (includeAllChildren && want[f.ID])
		var kept []*Field
		for _, c := range f.Children {
			if kc := filter(c, forceChildren); kc != nil {
				kept = append(kept, kc)
			}
		}
		if !self && len(kept) == 0 {
			return nil
		}
		cp := &Field{
			ID: f.ID, Name: f.Name, Type: f.Type, Nullable: f.Nullable,
			StorageClass: f.StorageClass, Metadata: f.Metadata,
			UnenforcedPrimaryKey: f.UnenforcedPrimaryKey, Children: kept,
		}
		return cp
	}
	out := &Schema{Metadata: s.Metadata}
	for _, f := range s.Fields {
		if kf := filter(f, false); kf != nil {
			out.Fields = append(out.Fields, kf)
		}
	}
	return out
}

// TypeMismatchPolicy controls ProjectBySchema's behavior when a field is
// present in both schemas under the same name but with a different type.
type TypeMismatchPolicy int

const (
	// TakeSelf keeps self's field (and its id) when types disagree.
	TakeSelf TypeMismatchPolicy = iota
	// ErrorOnMismatch fails the whole projection.
	ErrorOnMismatch
)

// MissingFieldPolicy controls ProjectBySchema's behavior when target names
// a field self does not have.
type MissingFieldPolicy int

const (
	ErrorOnMissing MissingFieldPolicy = iota
	IgnoreMissing
)

// ProjectBySchema is a name-based projection: for each field in target,
// look up the same name in self and recurse, applying onMismatch on type
// disagreement and onMissing when target names a field self lacks. The
// result preserves self's field IDs.
func (s *Schema) ProjectBySchema(target *Schema, onMismatch TypeMismatchPolicy, onMissing MissingFieldPolicy) (*Schema, error) {
	out := &Schema{Metadata: s.Metadata}
	for _, tf := range target.Fields {
		sf := s.childByName(tf.Name)
		if sf == nil {
			if onMissing == ErrorOnMissing {
				return nil, newErr(ErrUnknownColumn, tf.Name, "field missing from source schema")
			}
			continue
		}
		projected, err := projectFieldBySchema(sf, tf, onMismatch, onMissing)
		if err != nil {
			return nil, err
		}
		if projected != nil {
			out.Fields = append(out.Fields, projected)
		}
	}
	return out, nil
}

func (s *Schema) childByName(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func projectFieldBySchema(self, target *Field, onMismatch TypeMismatchPolicy, onMissing MissingFieldPolicy) (*Field, error) {
	if self.Type.Kind != target.Type.Kind || (self.Type.Kind == Primitive && self.Type.Name != target.Type.Name) {
		if onMismatch == ErrorOnMismatch {
			return nil, newErr(ErrSchemaMismatch, self.Name, "type mismatch during schema projection")
		}
		// TakeSelf: keep self's field entirely (including its own children).
		return self.Clone(), nil
	}
	cp := &Field{
		ID: self.ID, Name: self.Name, Type: self.Type, Nullable: self.Nullable,
		StorageClass: self.StorageClass, Metadata: self.Metadata,
		UnenforcedPrimaryKey: self.UnenforcedPrimaryKey,
	}
	for _, tc := range target.Children {
		sc := self.childByName(tc.Name)
		if sc == nil {
			if onMissing == ErrorOnMissing {
				return nil, newErr(ErrUnknownColumn, self.Name+"."+tc.Name, "field missing from source schema")
			}
			continue
		}
		pc, err := projectFieldBySchema(sc, tc, onMismatch, onMissing)
		if err != nil {
			return nil, err
		}
		if pc != nil {
			cp.Children = append(cp.Children, pc)
		}
	}
	return cp, nil
}

// Intersection keeps only top-level fields present (by name and identical
// primitive type) in both schemas, recursing into matching structs.
// Result order follows self.
func (s *Schema) Intersection(other *Schema) *Schema {
	return s.intersect(other, false)
}

// IntersectionIgnoreTypes is Intersection but matches purely by name,
// ignoring type disagreement. Symmetric up to field order.
func (s *Schema) IntersectionIgnoreTypes(other *Schema) *Schema {
	return s.intersect(other, true)
}

func (s *Schema) intersect(other *Schema, ignoreTypes bool) *Schema {
	out := &Schema{Metadata: s.Metadata}
	for _, f := range s.Fields {
		of := other.childByName(f.Name)
		if of == nil {
			continue
		}
		if !ignoreTypes && !sameShallowType(f, of) {
			continue
		}
		out.Fields = append(out.Fields, intersectField(f, of, ignoreTypes))
	}
	return out
}

func sameShallowType(a, b *Field) bool {
	if a.Type.Kind != b.Type.Kind {
		return false
	}
	return a.Type.Kind != Primitive || a.Type.Name == b.Type.Name
}

func intersectField(self, other *Field, ignoreTypes bool) *Field {
	cp := self.Clone()
	if self.Type.Kind == Struct && other.Type.Kind == Struct {
		var kept []*Field
		for _, c := range self.Children {
			oc := other.childByName(c.Name)
			if oc == nil {
				continue
			}
			if !ignoreTypes && !sameShallowType(c, oc) {
				continue
			}
			kept = append(kept, intersectField(c, oc, ignoreTypes))
		}
		cp.Children = kept
	}
	return cp
}

// Exclude drops every field present (by dotted path) in the given schema.
func (s *Schema) Exclude(other *Schema) *Schema {
	excludePaths := map[string]bool{}
	var collect func(prefix string, f *Field)
	collect = func(prefix string, f *Field) {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		if f.IsLeaf() {
			excludePaths[path] = true
		}
		for _, c := range f.Children {
			collect(path, c)
		}
	}
	for _, f := range other.Fields {
		collect("", f)
	}
	var filter func(prefix string, f *Field) *Field
	filter = func(prefix string, f *Field) *Field {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		if f.IsLeaf() {
			if excludePaths[path] {
				return nil
			}
			return f.Clone()
		}
		cp := &Field{
			ID: f.ID, Name: f.Name, Type: f.Type, Nullable: f.Nullable,
			StorageClass: f.StorageClass, Metadata: f.Metadata,
		}
		for _, c := range f.Children {
			if kc := filter(path, c); kc != nil {
				cp.Children = append(cp.Children, kc)
			}
		}
		if len(cp.Children) == 0 {
			return nil
		}
		return cp
	}
	out := &Schema{Metadata: s.Metadata}
	for _, f := range s.Fields {
		if kf := filter("", f); kf != nil {
			out.Fields = append(out.Fields, kf)
		}
	}
	return out
}
