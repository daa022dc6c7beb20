// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

// Package index defines the Index record: a named, UUID-identified
// secondary structure covering a set of fields, with a fragment bitmap
// recording which fragments it currently covers.
package index

import (
	"github.com/google/uuid"

	"github.com/PromaChow/lance/bitmap"
)

// SystemIndexPrefix marks an index as system-owned (e.g. the mem-WAL
// tracking index maintained by UpdateMemWalState); system indices are
// always retained across Delete/Merge/Project retention scans.
const SystemIndexPrefix = "__lance_sys_"

// Index is one secondary structure attached to a dataset version.
type Index struct {
	UUID uuid.UUID
	Name string
	// Fields are the field ids this index covers.
	Fields []int32
	// FragmentBitmap enumerates fragment ids this index covers. Nil means
	// "unknown / applies universally".
	FragmentBitmap *bitmap.Bitmap
	DatasetVersion uint64
	// Details is an opaque, index-type-specific payload; the concrete
	// index algorithm lives outside this core.
	Details []byte
	Type    string
}

// IsSystem reports whether this is a system-owned index, always retained.
func (i *Index) IsSystem() bool {
	return len(i.Name) >= len(SystemIndexPrefix) && i.Name[:len(SystemIndexPrefix)] == SystemIndexPrefix
}

// CoversField reports whether id is among this index's covered fields.
func (i *Index) CoversField(id int32) bool {
	for _, f := range i.Fields {
		if f == id {
			return true
		}
	}
	return false
}

// CoversAnyField reports whether any of ids is covered.
func (i *Index) CoversAnyField(ids ...int32) bool {
	for _, id := range ids {
		if i.CoversField(id) {
			return true
		}
	}
	return false
}

// Clone deep-copies an index record.
func (i *Index) Clone() *Index {
	cp := *i
	cp.Fields = append([]int32{}, i.Fields...)
	if i.FragmentBitmap != nil {
		cp.FragmentBitmap = i.FragmentBitmap.Clone()
	}
	cp.Details = append([]byte{}, i.Details...)
	return &cp
}

// New builds an Index with a fresh v4 UUID.
func New(name string, fields []int32, fragmentBitmap *bitmap.Bitmap, datasetVersion uint64, typ string) *Index {
	return &Index{
		UUID:           uuid.New(),
		Name:           name,
		Fields:         fields,
		FragmentBitmap: fragmentBitmap,
		DatasetVersion: datasetVersion,
		Type:           typ,
	}
}
