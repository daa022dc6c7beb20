// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/index"
	"github.com/PromaChow/lance/manifest"
	"github.com/PromaChow/lance/rowid"
	"github.com/PromaChow/lance/schema"
)

func frags(ids ...uint64) []*fragment.Fragment {
	out := make([]*fragment.Fragment, len(ids))
	for i, id := range ids {
		out[i] = fragment.New(id)
	}
	return out
}

func ids(frags []*fragment.Fragment) []uint64 {
	out := make([]uint64, len(frags))
	for i, f := range frags {
		out[i] = f.ID
	}
	return out
}

// TestRewrite_ContiguousSpliceVsNonContiguousRemoveAppend covers both
// rewrite-splice branches in one compaction: fragments [0..10), group1
// replaces {1,2} with {15,16} (contiguous splice), group2 replaces {5,8}
// with {0} (non-contiguous, remove+append, the arriving id 0 is
// unassigned and gets allocated from the cursor starting at 20).
func TestRewrite_ContiguousSpliceVsNonContiguousRemoveAppend(t *testing.T) {
	initial := frags(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	groups := []RewriteGroup{
		{OldFragments: frags(1, 2), NewFragments: frags(15, 16)},
		{OldFragments: frags(5, 8), NewFragments: []*fragment.Fragment{fragment.New(0)}},
	}
	cursor := uint64(20)
	final, _, err := handleRewriteFragments(initial, groups, &cursor)
	require.NoError(t, err)

	fl := manifest.NewFragmentList(final)
	require.Equal(t, []uint64{0, 3, 4, 6, 7, 9, 15, 16, 20}, ids(fl.ToSlice()))
}

func TestRewrite_MissingFragmentIsCommitConflict(t *testing.T) {
	initial := frags(0, 1, 2)
	groups := []RewriteGroup{{OldFragments: frags(9), NewFragments: frags(99)}}
	cursor := uint64(100)
	_, _, err := handleRewriteFragments(initial, groups, &cursor)
	require.ErrorIs(t, err, ErrCommitConflict)
}

func TestConflict_DeleteVsUpdateOnDisjointFragmentsCompatible(t *testing.T) {
	committed := Delete{DeletedFragmentIDs: []uint64{4, 5}}
	pending := Update{UpdatedFragments: frags(7, 8)}
	require.True(t, Resolve(committed, pending))
}

func TestConflict_RewriteVsDeleteOverlapIncompatible(t *testing.T) {
	committed := Rewrite{Groups: []RewriteGroup{{OldFragments: frags(4, 5), NewFragments: frags(20)}}}
	pending := Delete{DeletedFragmentIDs: []uint64{5, 6}}
	require.False(t, Resolve(committed, pending))
}

func TestConflict_AppendAlwaysCompatibleExceptStructural(t *testing.T) {
	pending := Append{Fragments: frags(0)}
	require.True(t, Resolve(Append{}, pending))
	require.True(t, Resolve(Delete{}, pending))
	require.True(t, Resolve(CreateIndex{}, pending))
	require.False(t, Resolve(Overwrite{}, pending))
	require.False(t, Resolve(Merge{}, pending))
	require.False(t, Resolve(Project{}, pending))
}

func TestConflict_DataReplacementVsCreateIndexOnSameColumn(t *testing.T) {
	pending := DataReplacement{Replacements: []DataReplacementGroup{
		{FragmentID: 1, NewFile: &fragment.DataFile{Fields: []int32{3}}},
	}}
	committed := CreateIndex{NewIndices: []*index.Index{index.New("idx", []int32{3}, nil, 1, "btree")}}
	require.False(t, Resolve(committed, pending))

	committedOther := CreateIndex{NewIndices: []*index.Index{index.New("idx2", []int32{9}, nil, 1, "btree")}}
	require.True(t, Resolve(committedOther, pending))
}

// buildSingleFieldSchema builds a one-field {a: int32} schema used across
// the BuildManifest tests below.
func buildSingleFieldSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]*schema.Field{
		{ID: 0, Name: "a", Type: schema.LogicalType{Kind: schema.Primitive, Name: "int32"}},
	}, nil)
	require.NoError(t, err)
	return s
}

func TestBuildManifest_FirstVersionOverwrite(t *testing.T) {
	s := buildSingleFieldSchema(t)
	f := fragment.New(0)
	rows := uint64(10)
	f.PhysicalRows = &rows
	f.Files = []*fragment.DataFile{{Fields: []int32{0}, Major: 2, Minor: 0}}

	op := Overwrite{Fragments: []*fragment.Fragment{f}, Schema: s}
	require.NoError(t, ValidateOperation(nil, op))

	m, err := BuildManifest(nil, op, BuildParams{TimestampNs: 100, EnableStableRowIDs: true, AutoSetFeatureFlags: true})
	require.NoError(t, err)
	require.Equal(t, uint64(1), m.Version)
	require.Equal(t, uint64(10), m.NextRowID)
	require.True(t, m.StableRowIDs())
	require.Equal(t, "2.0", m.DataStorageFormat)
	require.Equal(t, 1, m.Fragments.Len())

	got, _ := m.Fragments.Get(0)
	require.NotNil(t, got)
	require.NotNil(t, got.RowIDMeta)
	require.Equal(t, uint64(10), got.RowIDMeta.Inline.Len())
}

func TestBuildManifest_AppendAssignsFragmentIDsAndRowIDs(t *testing.T) {
	s := buildSingleFieldSchema(t)
	base := fragment.New(1)
	baseRows := uint64(5)
	base.PhysicalRows = &baseRows
	base.Files = []*fragment.DataFile{{Fields: []int32{0}}}
	baseSeq := rowid.Contiguous(0, 5)
	base.RowIDMeta = &fragment.RowIdMeta{Inline: &baseSeq}
	max := uint64(1)

	prior := &manifest.Manifest{
		Version:            1,
		Schema:             s,
		Fragments:          manifest.NewFragmentList([]*fragment.Fragment{base}),
		MaxFragmentID:      &max,
		NextRowID:          5,
		WriterFeatureFlags: uint64(manifest.FlagMoveStableRowIDs),
	}

	newFrag := fragment.New(fragment.UnassignedID)
	newRows := uint64(3)
	newFrag.PhysicalRows = &newRows
	newFrag.Files = []*fragment.DataFile{{Fields: []int32{0}}}

	op := Append{Fragments: []*fragment.Fragment{newFrag}}
	require.NoError(t, ValidateOperation(prior, op))

	m, err := BuildManifest(prior, op, BuildParams{TimestampNs: 200})
	require.NoError(t, err)
	require.Equal(t, uint64(2), m.Version)
	require.Equal(t, uint64(8), m.NextRowID)
	require.Equal(t, uint64(2), *m.MaxFragmentID)

	added, ok := m.Fragments.Get(2)
	require.True(t, ok)
	require.NotNil(t, added.RowIDMeta)
	require.Equal(t, uint64(5), added.RowIDMeta.Inline.Ranges[0].Start)
}

// TestValidateOperation_ManyFragmentsMissingFieldDetected exercises the
// errgroup-backed schemaFragmentsValid helper across enough fragments that
// the bounded worker pool runs more than one batch, and checks that a
// single bad fragment among many well-formed ones is still reported.
func TestValidateOperation_ManyFragmentsMissingFieldDetected(t *testing.T) {
	s := buildSingleFieldSchema(t)
	var frags []*fragment.Fragment
	for i := uint64(0); i < 50; i++ {
		f := fragment.New(i + 1)
		f.Files = []*fragment.DataFile{{Fields: []int32{0}}}
		frags = append(frags, f)
	}
	bad := fragment.New(999)
	frags = append(frags, bad)

	err := ValidateOperation(&manifest.Manifest{Schema: s}, Append{Fragments: frags})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolver_LogsAndDelegatesToResolve(t *testing.T) {
	r := NewResolver(nil)
	pending := Append{Fragments: frags(0)}
	require.True(t, r.Resolve(Append{}, pending))
	require.False(t, r.Resolve(Overwrite{}, pending))
}
