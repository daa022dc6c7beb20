// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package txn

import "go.uber.org/zap"

// Resolver wraps Resolve with optional diagnostic tracing, the way a
// writer's retry loop would log each rebase attempt. The decision logic
// itself lives in the package-level Resolve function; Resolver only adds
// observability around it.
type Resolver struct {
	log *zap.Logger
}

// NewResolver builds a Resolver. A nil logger is treated as zap.NewNop().
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{log: logger}
}

// Resolve reports whether pending may be rebased onto a manifest that
// already includes committed, logging the decision at debug level.
func (r *Resolver) Resolve(committed, pending Operation) bool {
	ok := Resolve(committed, pending)
	r.log.Debug("conflict resolution",
		zap.String("committed", committed.Name()),
		zap.String("pending", pending.Name()),
		zap.Bool("compatible", ok),
	)
	return ok
}

// touchedSets is the small, per-operation summary of what it reads or
// writes that the conflict resolver needs: fragment ids, field ids, and
// config keys.
type touchedSets struct {
	fragments      map[uint64]bool
	fields         map[int32]bool
	configUpsert   map[string]bool
	configDeleted  map[string]bool
	schemaMetadata bool
	fieldMetadata  map[int32]bool
}

// FragmentsTouched returns the fragment ids an operation reads or writes.
func FragmentsTouched(op Operation) map[uint64]bool { return touchedOf(op).fragments }

// FieldsTouched returns the field ids an operation reads or writes.
func FieldsTouched(op Operation) map[int32]bool { return touchedOf(op).fields }

// ConfigKeysUpserted returns the config keys an operation writes.
func ConfigKeysUpserted(op Operation) map[string]bool { return touchedOf(op).configUpsert }

// ConfigKeysDeleted returns the config keys an operation removes.
func ConfigKeysDeleted(op Operation) map[string]bool { return touchedOf(op).configDeleted }

func touchedOf(op Operation) touchedSets {
	t := touchedSets{}
	switch o := op.(type) {
	case Delete:
		t.fragments = idSet(o.DeletedFragmentIDs)
		mergeIDs(t.fragments, fragmentIDs(o.UpdatedFragments))
	case Update:
		t.fragments = idSet(o.RemovedFragmentIDs)
		mergeIDs(t.fragments, fragmentIDs(o.UpdatedFragments))
		t.fields = int32Set(o.FieldsModified)
	case Rewrite:
		t.fragments = map[uint64]bool{}
		for _, g := range o.Groups {
			mergeIDs(t.fragments, fragmentIDs(g.OldFragments))
		}
	case Merge:
		t.fragments = idSet(fragmentIDs(o.Fragments))
		if o.Schema != nil {
			t.fields = int32Set(o.Schema.FieldIDs())
		}
	case DataReplacement:
		t.fragments = map[uint64]bool{}
		t.fields = map[int32]bool{}
		for _, r := range o.Replacements {
			t.fragments[r.FragmentID] = true
			for _, f := range r.NewFile.Fields {
				t.fields[f] = true
			}
		}
	case CreateIndex:
		t.fields = map[int32]bool{}
		for _, idx := range o.NewIndices {
			for _, f := range idx.Fields {
				t.fields[f] = true
			}
		}
	case UpdateConfig:
		t.configUpsert = stringSet(keysOf(o.Upsert))
		t.configDeleted = stringSet(o.DeleteKeys)
		t.schemaMetadata = len(o.SchemaMetadata) > 0
		t.fieldMetadata = map[int32]bool{}
		for fid := range o.FieldMetadata {
			t.fieldMetadata[fid] = true
		}
	case Overwrite:
		t.configUpsert = stringSet(keysOf(o.ConfigUpsert))
	}
	return t
}

func mergeIDs(dst map[uint64]bool, ids []uint64) {
	for _, id := range ids {
		dst[id] = true
	}
}

func int32Set(ids []int32) map[int32]bool {
	m := make(map[int32]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func stringSet(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func keysOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func idsOverlap64(a, b map[uint64]bool) bool {
	for id := range a {
		if b[id] {
			return true
		}
	}
	return false
}

func idsOverlap32(a, b map[int32]bool) bool {
	for id := range a {
		if b[id] {
			return true
		}
	}
	return false
}

func strOverlap(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

// ConfigKeysConflict reports whether two config-mutating operations
// disagree: they upsert the same key, or they both mutate schema metadata,
// or they both mutate the same field's metadata.
func ConfigKeysConflict(a, b Operation) bool {
	ta, tb := touchedOf(a), touchedOf(b)
	if strOverlap(ta.configUpsert, tb.configUpsert) {
		return true
	}
	if ta.schemaMetadata && tb.schemaMetadata {
		return true
	}
	if idsOverlap32(ta.fieldMetadata, tb.fieldMetadata) {
		return true
	}
	return false
}

// kindOfOp classifies operations for the matrix's grouped rows (Delete and
// Update share every rule; Overwrite, CreateIndex, etc. are distinguished
// individually).
type opKind int

const (
	kindOther opKind = iota
	kindAppend
	kindDeleteUpdate
	kindOverwrite
	kindCreateIndex
	kindRewrite
	kindMerge
	kindProject
	kindUpdateConfig
	kindDataReplacement
)

func kindOfOp(op Operation) opKind {
	switch op.(type) {
	case Append:
		return kindAppend
	case Delete, Update:
		return kindDeleteUpdate
	case Overwrite:
		return kindOverwrite
	case CreateIndex:
		return kindCreateIndex
	case Rewrite:
		return kindRewrite
	case Merge:
		return kindMerge
	case Project:
		return kindProject
	case UpdateConfig:
		return kindUpdateConfig
	case DataReplacement:
		return kindDataReplacement
	default:
		return kindOther
	}
}

// Resolve reports whether pending may be rebased onto a manifest that
// already includes committed. Implements the pairwise compatibility
// matrix: the matrix is not symmetric by construction (resolve(C,P) and
// resolve(P,C) may legitimately differ for asymmetric rules like
// Rewrite-vs-CreateIndex), only internally consistent per its own rows.
func Resolve(committed, pending Operation) bool {
	pk, ck := kindOfOp(pending), kindOfOp(committed)

	switch pk {
	case kindAppend:
		switch ck {
		case kindOverwrite, kindMerge, kindProject:
			return false
		default:
			return true
		}

	case kindDeleteUpdate:
		switch ck {
		case kindOverwrite, kindMerge, kindProject:
			return false
		case kindDeleteUpdate, kindRewrite:
			return !idsOverlap64(FragmentsTouched(pending), FragmentsTouched(committed))
		default:
			return true
		}

	case kindOverwrite:
		switch ck {
		case kindUpdateConfig:
			return !ConfigKeysConflict(pending, committed)
		case kindDataReplacement:
			return false
		default:
			return true
		}

	case kindCreateIndex:
		switch ck {
		case kindOverwrite:
			return false
		case kindDataReplacement:
			return !idsOverlap32(FieldsTouched(pending), FieldsTouched(committed))
		default:
			return true
		}

	case kindRewrite:
		switch ck {
		case kindDeleteUpdate, kindRewrite:
			return !idsOverlap64(FragmentsTouched(pending), FragmentsTouched(committed))
		case kindMerge, kindOverwrite, kindCreateIndex:
			return false
		default:
			return true
		}

	case kindMerge:
		switch ck {
		case kindRewrite, kindUpdateConfig, kindDataReplacement:
			return true
		default:
			return false
		}

	case kindProject:
		switch ck {
		case kindCreateIndex, kindMerge, kindOverwrite:
			return false
		default:
			return true
		}

	case kindUpdateConfig:
		switch ck {
		case kindUpdateConfig, kindOverwrite:
			return !ConfigKeysConflict(pending, committed)
		default:
			return true
		}

	case kindDataReplacement:
		switch ck {
		case kindOverwrite:
			return false
		case kindCreateIndex:
			return !idsOverlap32(FieldsTouched(pending), FieldsTouched(committed))
		default:
			return !dataReplacementRegionOverlaps(pending, committed)
		}

	default:
		return true
	}
}

// dataReplacementRegionOverlaps reports whether committed touches any
// fragment a pending DataReplacement touches. Overlap is decided by
// fragment id alone: columns are not compared, so a committed operation on
// the same fragment overlaps whichever columns it changes. Operations
// with no fragment-level notion (Append, UpdateConfig, ReserveFragments,
// UpdateMemWalState, Restore) never overlap a replaced region.
func dataReplacementRegionOverlaps(pending, committed Operation) bool {
	committedFrags := FragmentsTouched(committed)
	if len(committedFrags) == 0 {
		return false
	}
	return idsOverlap64(FragmentsTouched(pending), committedFrags)
}
