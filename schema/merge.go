// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package schema

// Merge combines other into self: every field id in other is reset to
// UnassignedID first. For each top-level name present in both where both
// sides are struct-like, children are merged recursively; otherwise self's
// field wins. Top-level fields of other absent from self are appended.
// Metadata is union-merged with other's values winning on key conflict.
// The result carries UnassignedID fields that must go through SetFieldID
// before use.
func (s *Schema) Merge(other *Schema) *Schema {
	resetOther := &Schema{Metadata: other.Metadata, Fields: make([]*Field, len(other.Fields))}
	for i, f := range other.Fields {
		resetOther.Fields[i] = resetIDs(f)
	}

	out := &Schema{Fields: make([]*Field, len(s.Fields))}
	for i, f := range s.Fields {
		out.Fields[i] = f.Clone()
	}

	for _, of := range resetOther.Fields {
		existing := out.childByName(of.Name)
		if existing == nil {
			out.Fields = append(out.Fields, of)
			continue
		}
		if existing.Type.Kind == Struct && of.Type.Kind == Struct {
			mergeStructInPlace(existing, of)
		}
		// else: keep self's field as-is.
	}

	out.Metadata = mergeMetadata(s.Metadata, other.Metadata)
	return out
}

func resetIDs(f *Field) *Field {
	cp := f.Clone()
	cp.ID = UnassignedID
	for i, c := range cp.Children {
		cp.Children[i] = resetIDs(c)
	}
	return cp
}

func mergeStructInPlace(self, other *Field) {
	for _, oc := range other.Children {
		ec := self.childByName(oc.Name)
		if ec == nil {
			self.Children = append(self.Children, oc)
			continue
		}
		if ec.Type.Kind == Struct && oc.Type.Kind == Struct {
			mergeStructInPlace(ec, oc)
		}
	}
}

func mergeMetadata(a, b map[string]string) map[string]string {
	if a == nil && b == nil {
		return nil
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
