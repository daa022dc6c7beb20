// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package schema

import (
	"strconv"

	"github.com/PromaChow/lance/internal/arrowtype"
)

// FromArrow converts an Arrow-shaped schema into a core Schema. Field IDs
// are recovered from the arrowtype.FieldIDKey metadata entry when present,
// else left UnassignedID for the caller to assign with SetFieldID.
// Primary-key placement is validated before returning.
func FromArrow(a *arrowtype.Schema) (*Schema, error) {
	fields := make([]*Field, len(a.Fields))
	for i, af := range a.Fields {
		fields[i] = fieldFromArrow(af)
	}
	s := &Schema{Fields: fields, Metadata: a.Metadata}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func fieldFromArrow(af *arrowtype.Field) *Field {
	id := UnassignedID
	pk := false
	meta := map[string]string{}
	for k, v := range af.Metadata {
		switch k {
		case arrowtype.FieldIDKey:
			if n, err := strconv.Atoi(v); err == nil {
				id = int32(n)
			}
		case arrowtype.UnenforcedPrimaryKeyKey:
			pk = v == "true"
		default:
			meta[k] = v
		}
	}
	if len(meta) == 0 {
		meta = nil
	}
	var kind TypeKind
	switch af.Type.Kind {
	case "struct":
		kind = Struct
	case "list":
		kind = List
	case "map":
		kind = Map
	default:
		kind = Primitive
	}
	f := &Field{
		ID:                   id,
		Name:                 af.Name,
		Type:                 LogicalType{Kind: kind, Name: af.Type.Name},
		Nullable:             af.Nullable,
		Metadata:             meta,
		UnenforcedPrimaryKey: pk,
	}
	for _, c := range af.Type.Children {
		f.Children = append(f.Children, fieldFromArrow(c))
	}
	return f
}

// ToArrow converts a core Schema back into the Arrow-shaped representation,
// materializing field ids and primary-key marking into field metadata.
func (s *Schema) ToArrow() *arrowtype.Schema {
	out := &arrowtype.Schema{Metadata: s.Metadata}
	for _, f := range s.Fields {
		out.Fields = append(out.Fields, fieldToArrow(f))
	}
	return out
}

func fieldToArrow(f *Field) *arrowtype.Field {
	meta := map[string]string{}
	for k, v := range f.Metadata {
		meta[k] = v
	}
	if f.ID != UnassignedID {
		meta[arrowtype.FieldIDKey] = strconv.Itoa(int(f.ID))
	}
	if f.UnenforcedPrimaryKey {
		meta[arrowtype.UnenforcedPrimaryKeyKey] = "true"
	}
	if len(meta) == 0 {
		meta = nil
	}
	af := &arrowtype.Field{
		Name:     f.Name,
		Type:     arrowtype.DataType{Kind: f.Type.Kind.String(), Name: f.Type.Name},
		Nullable: f.Nullable,
		Metadata: meta,
	}
	for _, c := range f.Children {
		af.Type.Children = append(af.Type.Children, fieldToArrow(c))
	}
	return af
}
