// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

// Package txn implements the transaction/manifest engine: the Operation
// tagged union, BuildManifest (validate + resolve + apply an Operation
// against a prior Manifest), rewrite/data-replacement mechanics, and the
// conflict resolver.
package txn

import (
	"github.com/google/uuid"

	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/index"
	"github.com/PromaChow/lance/schema"
)

// Operation is the tagged union of dataset mutations. In a language with
// exhaustiveness checks this would be a closed sum type; Go models it as
// an interface implemented only by the variants below, with
// BuildManifest's type switch ending in a default branch that raises an
// Internal error for any other implementation.
type Operation interface {
	// Name is a stable string tag used for error messages and logging.
	Name() string
	isOperation()
}

// Append adds new fragments; their ids are pending allocation by the
// transaction engine.
type Append struct {
	Fragments []*fragment.Fragment
}

func (Append) Name() string { return "Append" }
func (Append) isOperation() {}

// Delete removes DeletedFragmentIDs entirely and replaces any existing
// fragment whose id matches one in UpdatedFragments (typically because a
// deletion vector was added to it).
type Delete struct {
	UpdatedFragments   []*fragment.Fragment
	DeletedFragmentIDs []uint64
	Predicate          string
}

func (Delete) Name() string { return "Delete" }
func (Delete) isOperation() {}

// Overwrite replaces the entire dataset: fragments, schema, and (if
// ConfigUpsert is set) the config. Indices reset to empty and, under
// stable row ids, NextRowID restarts at 0.
type Overwrite struct {
	Fragments    []*fragment.Fragment
	Schema       *schema.Schema
	ConfigUpsert map[string]string
}

func (Overwrite) Name() string { return "Overwrite" }
func (Overwrite) isOperation() {}

// CreateIndex replaces indices by name (NewIndices) and removes indices by
// uuid (RemovedIndices).
type CreateIndex struct {
	NewIndices     []*index.Index
	RemovedIndices []uuid.UUID
}

func (CreateIndex) Name() string { return "CreateIndex" }
func (CreateIndex) isOperation() {}

// RewriteGroup pairs the fragments a compaction replaced with their
// replacements.
type RewriteGroup struct {
	OldFragments []*fragment.Fragment
	NewFragments []*fragment.Fragment
}

// RewrittenIndex records a stored-UUID swap applied to an index after a
// rewrite without stable row ids. The swap is applied after the index's
// fragment bitmap has been recalculated for the new fragment layout.
type RewrittenIndex struct {
	OldUUID uuid.UUID
	NewUUID uuid.UUID
}

// Rewrite replaces each group's old fragments with its new ones (a
// compaction). RewrittenIndices must be empty when stable row ids are
// enabled (bitmaps are recalculated instead, see rewrite.go).
type Rewrite struct {
	Groups           []RewriteGroup
	RewrittenIndices []RewrittenIndex
	// FragReuseIndex optionally names a fragment-id-reuse tracking record
	// maintained by the caller; opaque to this core.
	FragReuseIndex *uint64
}

func (Rewrite) Name() string { return "Rewrite" }
func (Rewrite) isOperation() {}

// DataReplacementGroup replaces, or adds, a datafile within an existing
// fragment.
type DataReplacementGroup struct {
	FragmentID uint64
	NewFile    *fragment.DataFile
}

// DataReplacement rewrites datafiles in place (same field list and file
// version) or appends a new datafile when the replaced fields are wholly
// disjoint from the fragment's existing columns (the all-null-column to
// real-data upgrade case).
type DataReplacement struct {
	Replacements []DataReplacementGroup
}

func (DataReplacement) Name() string { return "DataReplacement" }
func (DataReplacement) isOperation() {}

// Merge replaces the schema and fragment list wholesale, typically to add
// columns backed by new files.
type Merge struct {
	Fragments []*fragment.Fragment
	Schema    *schema.Schema
}

func (Merge) Name() string { return "Merge" }
func (Merge) isOperation() {}

// Project is a schema-only mutation: datafiles whose fields no longer
// intersect the retained field-id set are dropped.
type Project struct {
	Schema *schema.Schema
}

func (Project) Name() string { return "Project" }
func (Project) isOperation() {}

// Update is vertical (NewFragments carries replacement rows),
// horizontal (FieldsModified lists field ids whose semantics changed), or
// both.
type Update struct {
	RemovedFragmentIDs []uint64
	UpdatedFragments   []*fragment.Fragment
	NewFragments       []*fragment.Fragment
	FieldsModified     []int32
	MemWalToFlush      []string
}

func (Update) Name() string { return "Update" }
func (Update) isOperation() {}

// ReserveFragments bumps MaxFragmentID by NumFragments without changing
// any data, so concurrent rewriters can claim future ids.
type ReserveFragments struct {
	NumFragments uint64
}

func (ReserveFragments) Name() string { return "ReserveFragments" }
func (ReserveFragments) isOperation() {}

// Restore copies the manifest at Version as the new tip. Handled by a
// special path outside BuildManifest; included here only so the conflict
// resolver and Transaction envelope can reference it.
type Restore struct {
	Version uint64
}

func (Restore) Name() string { return "Restore" }
func (Restore) isOperation() {}

// UpdateConfig mutates the manifest's config and metadata. Upsert is
// applied after Delete so overlapping keys resolve to the upsert value.
type UpdateConfig struct {
	Upsert         map[string]string
	DeleteKeys     []string
	SchemaMetadata map[string]string
	FieldMetadata  map[int32]map[string]string
}

func (UpdateConfig) Name() string { return "UpdateConfig" }
func (UpdateConfig) isOperation() {}

// UpdateMemWalState maintains the system index tracking in-memory WAL
// segments (the pre-image of durable data). Segment identifiers are
// opaque strings to this core.
type UpdateMemWalState struct {
	Added   []string
	Updated []string
	Removed []string
}

func (UpdateMemWalState) Name() string { return "UpdateMemWalState" }
func (UpdateMemWalState) isOperation() {}

// BlobOperation restricts the blob sibling dataset's mutation to exactly
// Append or Overwrite: the blob dataset never deletes, indexes, or
// rewrites independently of its primary dataset.
type BlobOperation struct {
	Append    *Append
	Overwrite *Overwrite
}

// Transaction is the wire envelope around an Operation: the version it was
// built against, a UUID identifying the attempt, an optional commit tag,
// and an optional companion mutation to the blob sibling dataset.
type Transaction struct {
	ReadVersion   uint64
	UUID          uuid.UUID
	Tag           string
	Operation     Operation
	BlobOperation *BlobOperation
}

// NewTransaction builds a Transaction with a fresh v4 UUID.
func NewTransaction(readVersion uint64, op Operation) *Transaction {
	return &Transaction{ReadVersion: readVersion, UUID: uuid.New(), Operation: op}
}

// WithBlobOperation attaches a blob-dataset mutation and returns the
// receiver for chaining.
func (t *Transaction) WithBlobOperation(b *BlobOperation) *Transaction {
	t.BlobOperation = b
	return t
}
