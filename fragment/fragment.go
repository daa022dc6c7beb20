// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

// Package fragment defines the immutable row-group record (Fragment) and
// its constituent DataFiles. Fragments are produced by Append, Overwrite,
// Update, Rewrite, and DataReplacement and destroyed (dropped from the
// next manifest) by Delete, Update, Rewrite, or Overwrite.
package fragment

import "github.com/PromaChow/lance/rowid"

// UnassignedID marks a fragment newly constructed by a writer before the
// transaction engine allocates it a real id from the fragment-id cursor.
const UnassignedID uint64 = 0

// DataFile is one physical column-group file backing a Fragment.
type DataFile struct {
	Path          string
	Fields        []int32 // field ids this file stores, in column order
	ColumnIndices []int32 // per-field column index within the file
	Major         uint32  // file format major version
	Minor         uint32  // file format minor version
	SizeBytes     uint64
}

// FieldSet returns Fields as a lookup set.
func (d *DataFile) FieldSet() map[int32]bool {
	out := make(map[int32]bool, len(d.Fields))
	for _, id := range d.Fields {
		out[id] = true
	}
	return out
}

// SameSchema reports whether two datafiles declare the same field list (as
// a set) and file-format version; used by DataReplacement's in-place
// match rule.
func (d *DataFile) SameSchema(other *DataFile) bool {
	if d.Major != other.Major || d.Minor != other.Minor {
		return false
	}
	if len(d.Fields) != len(other.Fields) {
		return false
	}
	set := d.FieldSet()
	for _, id := range other.Fields {
		if !set[id] {
			return false
		}
	}
	return true
}

// DeletionFile points at an out-of-line deletion vector for a fragment. Its
// contents (which physical rows are tombstoned) are an external
// collaborator's concern; the core only threads the pointer through.
type DeletionFile struct {
	Path      string
	NumRows   uint64
	FileType  string // e.g. "array", "bitmap" — opaque to the core
}

// RowIdMeta carries a fragment's stable row-id assignment, either inline
// (small fragments) or as a pointer to an external block.
type RowIdMeta struct {
	Inline  *rowid.Sequence
	Pointer string // external storage reference, mutually exclusive with Inline
}

// Fragment is an immutable horizontal slice of the dataset. Mutating a
// fragment (e.g. adding a deletion vector) produces a new Fragment value
// that replaces the old one under the same id; Fragment itself never
// claims to be mutated in place once committed.
type Fragment struct {
	ID            uint64
	Files         []*DataFile
	PhysicalRows  *uint64
	DeletionFile  *DeletionFile
	RowIDMeta     *RowIdMeta
}

// New returns a bare fragment with the given id and no files, the shape
// used by test fixtures.
func New(id uint64) *Fragment {
	return &Fragment{ID: id}
}

// Clone deep-copies a fragment.
func (f *Fragment) Clone() *Fragment {
	cp := *f
	cp.Files = make([]*DataFile, len(f.Files))
	for i, df := range f.Files {
		dfc := *df
		dfc.Fields = append([]int32{}, df.Fields...)
		dfc.ColumnIndices = append([]int32{}, df.ColumnIndices...)
		cp.Files[i] = &dfc
	}
	if f.PhysicalRows != nil {
		rows := *f.PhysicalRows
		cp.PhysicalRows = &rows
	}
	if f.DeletionFile != nil {
		df := *f.DeletionFile
		cp.DeletionFile = &df
	}
	if f.RowIDMeta != nil {
		rm := *f.RowIDMeta
		if f.RowIDMeta.Inline != nil {
			seq := *f.RowIDMeta.Inline
			seq.Ranges = append([]rowid.Range{}, f.RowIDMeta.Inline.Ranges...)
			rm.Inline = &seq
		}
		cp.RowIDMeta = &rm
	}
	return &cp
}

// FieldIDs returns the union of field ids covered by this fragment's
// datafiles.
func (f *Fragment) FieldIDs() []int32 {
	seen := map[int32]bool{}
	var out []int32
	for _, df := range f.Files {
		for _, id := range df.Fields {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// HasField reports whether any datafile in this fragment stores field id.
func (f *Fragment) HasField(id int32) bool {
	for _, df := range f.Files {
		for _, fid := range df.Fields {
			if fid == id {
				return true
			}
		}
	}
	return false
}

// DataFileFor returns the datafile matching (fields, major, minor), or nil.
func (f *Fragment) DataFileFor(candidate *DataFile) *DataFile {
	for _, df := range f.Files {
		if df.SameSchema(candidate) {
			return df
		}
	}
	return nil
}
