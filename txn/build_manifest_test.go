// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package txn

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/PromaChow/lance/bitmap"
	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/index"
	"github.com/PromaChow/lance/manifest"
	"github.com/PromaChow/lance/rowid"
	"github.com/PromaChow/lance/schema"
)

// buildTwoFieldSchema builds {a: int32, b: utf8} with ids a=0, b=1.
func buildTwoFieldSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]*schema.Field{
		{ID: 0, Name: "a", Type: schema.LogicalType{Kind: schema.Primitive, Name: "int32"}},
		{ID: 1, Name: "b", Type: schema.LogicalType{Kind: schema.Primitive, Name: "utf8"}, Nullable: true},
	}, nil)
	require.NoError(t, err)
	return s
}

func fragWithFields(id uint64, rows uint64, fields ...int32) *fragment.Fragment {
	f := fragment.New(id)
	f.PhysicalRows = &rows
	f.Files = []*fragment.DataFile{{Path: "data/x.lance", Fields: fields, Major: 2, Minor: 0}}
	return f
}

// withRowIDs attaches an already-assigned row-id range to a fixture
// fragment, the shape committed fragments have once stable row ids are on.
func withRowIDs(f *fragment.Fragment, start, count uint64) *fragment.Fragment {
	seq := rowid.Contiguous(start, count)
	f.PhysicalRows = &count
	f.RowIDMeta = &fragment.RowIdMeta{Inline: &seq}
	return f
}

func priorManifest(t *testing.T, s *schema.Schema, fragments []*fragment.Fragment, indices []*index.Index, stableRowIDs bool) *manifest.Manifest {
	t.Helper()
	fl := manifest.NewFragmentList(fragments)
	m := &manifest.Manifest{
		Version:   1,
		Schema:    s,
		Fragments: fl,
		Indices:   indices,
		NextRowID: 0,
	}
	if maxID, ok := fl.MaxID(); ok {
		m.MaxFragmentID = &maxID
	}
	if stableRowIDs {
		m.WriterFeatureFlags = uint64(manifest.FlagMoveStableRowIDs)
	}
	return m
}

func TestBuildManifest_OverwriteResetsIndicesAndRowIDCursor(t *testing.T) {
	s := buildTwoFieldSchema(t)
	idx := index.New("btree_on_a", []int32{0}, bitmap.FromIDs(1), 1, "btree")
	prior := priorManifest(t, s, frags(1, 2), []*index.Index{idx}, true)
	prior.NextRowID = 100

	op := Overwrite{Fragments: []*fragment.Fragment{fragWithFields(0, 4, 0, 1)}, Schema: s}
	m, err := BuildManifest(prior, op, BuildParams{TimestampNs: 10, AutoSetFeatureFlags: true})
	require.NoError(t, err)
	require.Empty(t, m.Indices)
	require.Equal(t, uint64(4), m.NextRowID)
	require.Equal(t, uint64(2), m.Version)

	got, ok := m.Fragments.Get(0)
	require.True(t, ok)
	require.Equal(t, uint64(0), got.RowIDMeta.Inline.Ranges[0].Start)
}

func TestBuildManifest_DeleteDropsIndexCoveringNoSurvivingFragment(t *testing.T) {
	s := buildTwoFieldSchema(t)
	gone := index.New("only_frag_1", []int32{0}, bitmap.FromIDs(1), 1, "btree")
	kept := index.New("covers_frag_2", []int32{0}, bitmap.FromIDs(2), 1, "btree")
	sys := index.New(index.SystemIndexPrefix+"memwal", nil, bitmap.FromIDs(1), 1, "memwal")
	prior := priorManifest(t, s, frags(1, 2), []*index.Index{gone, kept, sys}, false)

	op := Delete{DeletedFragmentIDs: []uint64{1}}
	m, err := BuildManifest(prior, op, BuildParams{TimestampNs: 10})
	require.NoError(t, err)

	var names []string
	for _, idx := range m.Indices {
		names = append(names, idx.Name)
	}
	require.ElementsMatch(t, []string{"covers_frag_2", index.SystemIndexPrefix + "memwal"}, names)
	require.Equal(t, 1, m.Fragments.Len())
}

func TestBuildManifest_ProjectDropsIndexAndUnreferencedDataFiles(t *testing.T) {
	s := buildTwoFieldSchema(t)
	f := fragment.New(1)
	f.Files = []*fragment.DataFile{
		{Path: "data/a.lance", Fields: []int32{0}},
		{Path: "data/b.lance", Fields: []int32{1}},
	}
	idxOnB := index.New("btree_on_b", []int32{1}, bitmap.FromIDs(1), 1, "btree")
	prior := priorManifest(t, s, []*fragment.Fragment{f}, []*index.Index{idxOnB}, false)

	projected := s.ProjectByIDs([]int32{0}, true)
	m, err := BuildManifest(prior, Project{Schema: projected}, BuildParams{TimestampNs: 10})
	require.NoError(t, err)
	require.Empty(t, m.Indices)

	got, ok := m.Fragments.Get(1)
	require.True(t, ok)
	require.Len(t, got.Files, 1)
	require.Equal(t, "data/a.lance", got.Files[0].Path)
}

func TestBuildManifest_UpdateStripsModifiedFieldBitmaps(t *testing.T) {
	s := buildTwoFieldSchema(t)
	touched := index.New("btree_on_a", []int32{0}, bitmap.FromIDs(1, 2), 1, "btree")
	untouched := index.New("btree_on_b", []int32{1}, bitmap.FromIDs(1, 2), 1, "btree")
	prior := priorManifest(t, s, frags(1, 2), []*index.Index{touched, untouched}, false)

	op := Update{UpdatedFragments: frags(1), FieldsModified: []int32{0}}
	m, err := BuildManifest(prior, op, BuildParams{TimestampNs: 10})
	require.NoError(t, err)

	byName := map[string]*index.Index{}
	for _, idx := range m.Indices {
		byName[idx.Name] = idx
	}
	require.Equal(t, []uint64{2}, byName["btree_on_a"].FragmentBitmap.ToSlice())
	require.Equal(t, []uint64{1, 2}, byName["btree_on_b"].FragmentBitmap.ToSlice())
}

func TestBuildManifest_RewriteRecalculatesBitmapsUnderStableRowIDs(t *testing.T) {
	s := buildTwoFieldSchema(t)
	covering := index.New("covers_1_2", []int32{0}, bitmap.FromIDs(1, 2), 1, "btree")
	elsewhere := index.New("covers_3", []int32{1}, bitmap.FromIDs(3), 1, "btree")
	prior := priorManifest(t, s, []*fragment.Fragment{
		withRowIDs(fragment.New(1), 0, 10),
		withRowIDs(fragment.New(2), 10, 10),
		withRowIDs(fragment.New(3), 20, 10),
	}, []*index.Index{covering, elsewhere}, true)
	prior.NextRowID = 30

	// The compacted fragment carries the row ids of the two it replaces;
	// a rewrite never allocates new ones.
	op := Rewrite{Groups: []RewriteGroup{
		{OldFragments: frags(1, 2), NewFragments: []*fragment.Fragment{withRowIDs(fragment.New(fragment.UnassignedID), 0, 20)}},
	}}
	m, err := BuildManifest(prior, op, BuildParams{TimestampNs: 10})
	require.NoError(t, err)

	byName := map[string]*index.Index{}
	for _, idx := range m.Indices {
		byName[idx.Name] = idx
	}
	// Cursor starts at prior max fragment id + 1 = 4; the all-in bitmap
	// becomes (B \ {1,2}) ∪ {4}, the none-in bitmap is untouched.
	require.Equal(t, []uint64{4}, byName["covers_1_2"].FragmentBitmap.ToSlice())
	require.Equal(t, []uint64{3}, byName["covers_3"].FragmentBitmap.ToSlice())
}

func TestBuildManifest_RewriteMixedBitmapIsFatal(t *testing.T) {
	s := buildTwoFieldSchema(t)
	mixed := index.New("covers_1_3", []int32{0}, bitmap.FromIDs(1, 3), 1, "btree")
	prior := priorManifest(t, s, frags(1, 2, 3), []*index.Index{mixed}, true)

	op := Rewrite{Groups: []RewriteGroup{
		{OldFragments: frags(1, 2), NewFragments: frags(9)},
	}}
	_, err := BuildManifest(prior, op, BuildParams{TimestampNs: 10})
	require.ErrorIs(t, err, ErrInternal)
	require.Contains(t, err.Error(), "split indexed and non-indexed data")
}

func TestBuildManifest_RewriteStableRowIDsRejectsRewrittenIndices(t *testing.T) {
	s := buildTwoFieldSchema(t)
	prior := priorManifest(t, s, frags(1, 2), nil, true)

	op := Rewrite{
		Groups:           []RewriteGroup{{OldFragments: frags(1), NewFragments: frags(9)}},
		RewrittenIndices: []RewrittenIndex{{OldUUID: uuid.New(), NewUUID: uuid.New()}},
	}
	_, err := BuildManifest(prior, op, BuildParams{TimestampNs: 10})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildManifest_RewriteWithoutStableRowIDsSwapsIndexUUIDs(t *testing.T) {
	s := buildTwoFieldSchema(t)
	idx := index.New("covers_1", []int32{0}, bitmap.FromIDs(1), 1, "btree")
	prior := priorManifest(t, s, frags(1, 2), []*index.Index{idx}, false)

	next := uuid.New()
	op := Rewrite{
		Groups:           []RewriteGroup{{OldFragments: frags(1), NewFragments: []*fragment.Fragment{fragment.New(fragment.UnassignedID)}}},
		RewrittenIndices: []RewrittenIndex{{OldUUID: idx.UUID, NewUUID: next}},
	}
	m, err := BuildManifest(prior, op, BuildParams{TimestampNs: 10})
	require.NoError(t, err)
	require.Len(t, m.Indices, 1)
	require.Equal(t, next, m.Indices[0].UUID)
}

func TestBuildManifest_ReserveFragmentsBumpsMaxFragmentIDOnly(t *testing.T) {
	s := buildTwoFieldSchema(t)
	prior := priorManifest(t, s, frags(1, 2, 5), nil, false)

	m, err := BuildManifest(prior, ReserveFragments{NumFragments: 3}, BuildParams{TimestampNs: 10})
	require.NoError(t, err)
	require.Equal(t, uint64(8), *m.MaxFragmentID)
	require.Equal(t, []uint64{1, 2, 5}, ids(m.Fragments.ToSlice()))
}

func TestBuildManifest_UpdateConfigUpsertAppliesAfterDelete(t *testing.T) {
	s := buildTwoFieldSchema(t)
	prior := priorManifest(t, s, frags(1), nil, false)
	prior.Config = map[string]string{"keep": "1", "dropped": "2", "both": "old"}

	op := UpdateConfig{
		Upsert:         map[string]string{"both": "new", "added": "3"},
		DeleteKeys:     []string{"dropped", "both"},
		SchemaMetadata: map[string]string{"note": "v2"},
		FieldMetadata:  map[int32]map[string]string{0: {"unit": "ms"}},
	}
	m, err := BuildManifest(prior, op, BuildParams{TimestampNs: 10})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"keep": "1", "both": "new", "added": "3"}, m.Config)
	require.Equal(t, "v2", m.Schema.Metadata["note"])

	a, ok := m.Schema.FieldByID(0)
	require.True(t, ok)
	require.Equal(t, "ms", a.Metadata["unit"])

	// The prior manifest's schema is shared with concurrent readers and
	// must not observe the metadata mutation.
	require.Empty(t, prior.Schema.Metadata)
	priorA, _ := prior.Schema.FieldByID(0)
	require.Empty(t, priorA.Metadata)
}

func TestBuildManifest_UpdateMemWalStateMaintainsSystemIndex(t *testing.T) {
	s := buildTwoFieldSchema(t)
	prior := priorManifest(t, s, frags(1), nil, false)

	m1, err := BuildManifest(prior, UpdateMemWalState{Added: []string{"wal-2", "wal-1"}}, BuildParams{TimestampNs: 10})
	require.NoError(t, err)
	require.Len(t, m1.Indices, 1)
	require.True(t, m1.Indices[0].IsSystem())
	require.Equal(t, "wal-1\nwal-2\n", string(m1.Indices[0].Details))

	m2, err := BuildManifest(m1, UpdateMemWalState{Removed: []string{"wal-1"}, Added: []string{"wal-3"}}, BuildParams{TimestampNs: 20})
	require.NoError(t, err)
	require.Equal(t, "wal-2\nwal-3\n", string(m2.Indices[0].Details))
}

func TestBuildManifest_StorageFormatRequestMustMatchNewFiles(t *testing.T) {
	s := buildTwoFieldSchema(t)
	prior := priorManifest(t, s, nil, nil, false)

	newFrag := fragWithFields(fragment.UnassignedID, 2, 0, 1)
	newFrag.Files[0].Major = 2
	newFrag.Files[0].Minor = 1

	_, err := BuildManifest(prior, Append{Fragments: []*fragment.Fragment{newFrag}},
		BuildParams{TimestampNs: 10, RequestedStorageFormat: "2.0"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildManifest_StorageFormatDisagreementAcrossFilesFails(t *testing.T) {
	s := buildTwoFieldSchema(t)
	prior := priorManifest(t, s, nil, nil, false)

	f1 := fragWithFields(fragment.UnassignedID, 2, 0, 1)
	f2 := fragWithFields(fragment.UnassignedID, 2, 0, 1)
	f2.Files[0].Minor = 1

	_, err := BuildManifest(prior, Append{Fragments: []*fragment.Fragment{f1, f2}}, BuildParams{TimestampNs: 10})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildManifest_EnableStableRowIDsOnExistingDatasetRejected(t *testing.T) {
	s := buildTwoFieldSchema(t)
	prior := priorManifest(t, s, frags(1), nil, false)

	op := Append{Fragments: []*fragment.Fragment{fragWithFields(fragment.UnassignedID, 2, 0, 1)}}
	_, err := BuildManifest(prior, op, BuildParams{TimestampNs: 10, EnableStableRowIDs: true})
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestBuildManifest_MissingPhysicalRowsIsInternal(t *testing.T) {
	s := buildTwoFieldSchema(t)
	prior := priorManifest(t, s, nil, nil, true)

	bad := fragment.New(fragment.UnassignedID)
	bad.Files = []*fragment.DataFile{{Fields: []int32{0, 1}}}

	_, err := BuildManifest(prior, Append{Fragments: []*fragment.Fragment{bad}}, BuildParams{TimestampNs: 10})
	require.ErrorIs(t, err, ErrInternal)
}

// TestBuildManifest_RowIDContinuityAcrossAppends checks that row ids
// assigned by a sequence of appends form contiguous, monotone ranges and
// that NextRowID always equals the supremum of assigned ranges.
func TestBuildManifest_RowIDContinuityAcrossAppends(t *testing.T) {
	s := buildTwoFieldSchema(t)
	m := priorManifest(t, s, nil, nil, true)

	var assignedEnd uint64
	for i, rows := range []uint64{7, 3, 11} {
		op := Append{Fragments: []*fragment.Fragment{fragWithFields(fragment.UnassignedID, rows, 0, 1)}}
		next, err := BuildManifest(m, op, BuildParams{TimestampNs: int64(i)})
		require.NoError(t, err)

		added, ok := next.Fragments.Get(uint64(i))
		require.True(t, ok)
		r := added.RowIDMeta.Inline.Ranges[0]
		require.Equal(t, assignedEnd, r.Start)
		assignedEnd = r.End
		require.Equal(t, assignedEnd, next.NextRowID)
		m = next
	}
	require.Equal(t, uint64(21), m.NextRowID)
}

func TestBuildManifest_RestoreTakesDedicatedPath(t *testing.T) {
	s := buildTwoFieldSchema(t)
	prior := priorManifest(t, s, frags(1), nil, false)
	_, err := BuildManifest(prior, Restore{Version: 1}, BuildParams{TimestampNs: 10})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDataReplacement_InPlaceSwapOnMatchingFieldsAndVersion(t *testing.T) {
	frag := fragment.New(1)
	frag.Files = []*fragment.DataFile{{Path: "data/old.lance", Fields: []int32{2}, Major: 2, Minor: 0}}

	out, err := handleDataReplacement([]*fragment.Fragment{frag}, []DataReplacementGroup{
		{FragmentID: 1, NewFile: &fragment.DataFile{Path: "data/new.lance", Fields: []int32{2}, Major: 2, Minor: 0}},
	})
	require.NoError(t, err)
	require.Len(t, out[0].Files, 1)
	require.Equal(t, "data/new.lance", out[0].Files[0].Path)

	// The input fragment is not mutated.
	require.Equal(t, "data/old.lance", frag.Files[0].Path)
}

func TestDataReplacement_DisjointFieldsAppendNewDataFile(t *testing.T) {
	frag := fragment.New(1)
	frag.Files = []*fragment.DataFile{{Path: "data/a.lance", Fields: []int32{2}, Major: 2, Minor: 0}}

	out, err := handleDataReplacement([]*fragment.Fragment{frag}, []DataReplacementGroup{
		{FragmentID: 1, NewFile: &fragment.DataFile{Path: "data/b.lance", Fields: []int32{9}, Major: 2, Minor: 0}},
	})
	require.NoError(t, err)
	require.Len(t, out[0].Files, 2)
}

func TestDataReplacement_PartialOverlapRejected(t *testing.T) {
	frag := fragment.New(1)
	frag.Files = []*fragment.DataFile{{Path: "data/a.lance", Fields: []int32{2, 3}, Major: 2, Minor: 0}}

	_, err := handleDataReplacement([]*fragment.Fragment{frag}, []DataReplacementGroup{
		{FragmentID: 1, NewFile: &fragment.DataFile{Path: "data/b.lance", Fields: []int32{3, 9}, Major: 2, Minor: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDataReplacement_NoOpReplacementRejected(t *testing.T) {
	frag := fragment.New(1)
	frag.Files = []*fragment.DataFile{{Path: "data/a.lance", Fields: []int32{2}, Major: 2, Minor: 0}}

	_, err := handleDataReplacement([]*fragment.Fragment{frag}, []DataReplacementGroup{
		{FragmentID: 1, NewFile: &fragment.DataFile{Path: "data/a.lance", Fields: []int32{2}, Major: 2, Minor: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDataReplacement_MixedFieldSetsInBatchRejected(t *testing.T) {
	fragA := fragment.New(1)
	fragA.Files = []*fragment.DataFile{{Path: "data/a.lance", Fields: []int32{2}, Major: 2, Minor: 0}}
	fragB := fragment.New(2)
	fragB.Files = []*fragment.DataFile{{Path: "data/b.lance", Fields: []int32{3}, Major: 2, Minor: 0}}

	// Each group would be fine on its own; the batch is rejected because
	// the two replacements name different field lists.
	_, err := handleDataReplacement([]*fragment.Fragment{fragA, fragB}, []DataReplacementGroup{
		{FragmentID: 1, NewFile: &fragment.DataFile{Path: "data/a2.lance", Fields: []int32{2}, Major: 2, Minor: 0}},
		{FragmentID: 2, NewFile: &fragment.DataFile{Path: "data/b2.lance", Fields: []int32{3}, Major: 2, Minor: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Contains(t, err.Error(), "same fields")
}

func TestDataReplacement_MissingFragmentRejected(t *testing.T) {
	_, err := handleDataReplacement(frags(1), []DataReplacementGroup{
		{FragmentID: 42, NewFile: &fragment.DataFile{Fields: []int32{0}}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}
