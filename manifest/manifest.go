// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

// Package manifest defines the versioned dataset snapshot: schema,
// fragments, indices, config, feature flags, and the row-id/fragment-id
// cursors the transaction engine advances.
package manifest

import (
	"github.com/PromaChow/lance/index"
	"github.com/PromaChow/lance/schema"
)

// FeatureFlag is a bit in the manifest's reader/writer feature-flag
// bitsets.
type FeatureFlag uint64

// FlagMoveStableRowIDs is the only feature flag this core defines; all
// others are reserved.
const FlagMoveStableRowIDs FeatureFlag = 1 << 0

// Manifest is the metadata snapshot for one committed (or candidate)
// dataset version.
type Manifest struct {
	Version      uint64
	Schema       *schema.Schema
	Fragments    FragmentList
	Indices      []*index.Index
	Config       map[string]string
	FeatureFlags uint64
	TimestampNs  int64
	NextRowID    uint64
	// MaxFragmentID is nil only for a manifest with no fragments and no
	// prior reservation.
	MaxFragmentID      *uint64
	DataStorageFormat  string
	Tag                *string
	TransactionFile    *string
	ReaderFeatureFlags uint64
	WriterFeatureFlags uint64
}

// HasFlag reports whether flag is set on the writer feature flags (the
// flags a reader must understand to safely interpret writer-introduced
// behavior, e.g. stable row ids).
func (m *Manifest) HasFlag(flag FeatureFlag) bool {
	return m.WriterFeatureFlags&uint64(flag) != 0
}

// StableRowIDs reports whether this manifest was created (or has since
// been upgraded) with FlagMoveStableRowIDs set.
func (m *Manifest) StableRowIDs() bool { return m.HasFlag(FlagMoveStableRowIDs) }

// Clone deep-copies everything except the fragment list, which uses its
// own copy-on-write Clone.
func (m *Manifest) Clone() *Manifest {
	cp := *m
	if m.Schema != nil {
		cp.Schema = m.Schema.Clone()
	}
	cp.Fragments = m.Fragments.Clone()
	cp.Indices = make([]*index.Index, len(m.Indices))
	for i, idx := range m.Indices {
		cp.Indices[i] = idx.Clone()
	}
	if m.Config != nil {
		cp.Config = make(map[string]string, len(m.Config))
		for k, v := range m.Config {
			cp.Config[k] = v
		}
	}
	if m.MaxFragmentID != nil {
		v := *m.MaxFragmentID
		cp.MaxFragmentID = &v
	}
	if m.Tag != nil {
		v := *m.Tag
		cp.Tag = &v
	}
	if m.TransactionFile != nil {
		v := *m.TransactionFile
		cp.TransactionFile = &v
	}
	return &cp
}

// Validate checks the manifest-level invariants: every fragment id is at
// most MaxFragmentID, and (if stable row ids are enabled) every fragment
// carries row-id metadata and every assigned row id is below NextRowID.
func (m *Manifest) Validate() error {
	frags := m.Fragments.ToSlice()
	if len(frags) > 0 {
		max, _ := m.Fragments.MaxID()
		if m.MaxFragmentID == nil || max > *m.MaxFragmentID {
			return newInternalErr("max_fragment_id is smaller than the largest fragment id present")
		}
	}
	if m.StableRowIDs() {
		for _, f := range frags {
			if f.RowIDMeta == nil {
				return newInternalErr("stable row ids enabled but fragment is missing row_id_meta")
			}
			if f.RowIDMeta.Inline != nil {
				for _, r := range f.RowIDMeta.Inline.Ranges {
					if r.End > m.NextRowID {
						return newInternalErr("fragment row id range exceeds next_row_id")
					}
				}
			}
		}
	}
	return nil
}
