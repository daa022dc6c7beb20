// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

// Package arrowtype is a minimal stand-in for an Arrow schema binding,
// carrying only what a lossless round trip through schema.Schema needs:
// name, type, nullability, children, and per-field metadata.
package arrowtype

// DataType mirrors schema.LogicalType's shape closely enough to convert
// between the two without information loss.
type DataType struct {
	Kind     string // "primitive", "struct", "list", "map"
	Name     string // primitive type name, e.g. "int32", "utf8"
	Children []*Field
}

// Field is one column or nested member of an Arrow-shaped schema.
type Field struct {
	Name     string
	Type     DataType
	Nullable bool
	Metadata map[string]string
}

// Schema is the top-level Arrow-shaped field list plus schema metadata.
type Schema struct {
	Fields   []*Field
	Metadata map[string]string
}

// Field metadata keys the core reads/writes on import/export.
const (
	FieldIDKey              = "lance-field:field-id"
	UnenforcedPrimaryKeyKey = "lance-schema:unenforced-primary-key"
)
