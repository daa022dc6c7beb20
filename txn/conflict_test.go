// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/index"
)

func TestConflict_OverwriteVsDataReplacementConflictsBothWays(t *testing.T) {
	ow := Overwrite{}
	dr := DataReplacement{Replacements: []DataReplacementGroup{
		{FragmentID: 1, NewFile: &fragment.DataFile{Fields: []int32{0}}},
	}}
	require.False(t, Resolve(ow, dr))
	require.False(t, Resolve(dr, ow))
}

func TestConflict_UpdateConfigSameUpsertKeyConflictsBothWays(t *testing.T) {
	a := UpdateConfig{Upsert: map[string]string{"retention": "7d"}}
	b := UpdateConfig{Upsert: map[string]string{"retention": "30d"}}
	require.False(t, Resolve(a, b))
	require.False(t, Resolve(b, a))

	disjoint := UpdateConfig{Upsert: map[string]string{"owner": "etl"}}
	require.True(t, Resolve(a, disjoint))
	require.True(t, Resolve(disjoint, a))
}

func TestConflict_UpdateConfigSchemaMetadataBothSidesConflicts(t *testing.T) {
	a := UpdateConfig{SchemaMetadata: map[string]string{"comment": "x"}}
	b := UpdateConfig{SchemaMetadata: map[string]string{"owner": "y"}}
	require.False(t, Resolve(a, b))

	c := UpdateConfig{Upsert: map[string]string{"k": "v"}}
	require.True(t, Resolve(a, c))
}

func TestConflict_UpdateConfigSameFieldMetadataConflicts(t *testing.T) {
	a := UpdateConfig{FieldMetadata: map[int32]map[string]string{3: {"unit": "ms"}}}
	b := UpdateConfig{FieldMetadata: map[int32]map[string]string{3: {"desc": "latency"}}}
	other := UpdateConfig{FieldMetadata: map[int32]map[string]string{4: {"desc": "count"}}}
	require.False(t, Resolve(a, b))
	require.True(t, Resolve(a, other))
}

func TestConflict_UpdateConfigVsOverwriteWithUpsert(t *testing.T) {
	pending := UpdateConfig{Upsert: map[string]string{"retention": "7d"}}
	committed := Overwrite{ConfigUpsert: map[string]string{"retention": "1d"}}
	require.False(t, Resolve(committed, pending))

	committedDisjoint := Overwrite{ConfigUpsert: map[string]string{"owner": "etl"}}
	require.True(t, Resolve(committedDisjoint, pending))
}

func TestConflict_MergeRow(t *testing.T) {
	pending := Merge{Fragments: frags(1)}
	require.True(t, Resolve(Rewrite{}, pending))
	require.True(t, Resolve(UpdateConfig{}, pending))
	require.True(t, Resolve(DataReplacement{}, pending))
	require.False(t, Resolve(Append{}, pending))
	require.False(t, Resolve(Delete{}, pending))
	require.False(t, Resolve(Overwrite{}, pending))
	require.False(t, Resolve(CreateIndex{}, pending))
}

func TestConflict_ProjectRow(t *testing.T) {
	pending := Project{}
	require.True(t, Resolve(Append{}, pending))
	require.True(t, Resolve(Delete{}, pending))
	require.True(t, Resolve(Rewrite{}, pending))
	require.True(t, Resolve(UpdateConfig{}, pending))
	require.True(t, Resolve(Project{}, pending))
	require.False(t, Resolve(CreateIndex{}, pending))
	require.False(t, Resolve(Merge{}, pending))
	require.False(t, Resolve(Overwrite{}, pending))
}

func TestConflict_RewriteVsRewriteDisjointFragmentsCompatible(t *testing.T) {
	a := Rewrite{Groups: []RewriteGroup{{OldFragments: frags(1, 2), NewFragments: frags(10)}}}
	b := Rewrite{Groups: []RewriteGroup{{OldFragments: frags(3, 4), NewFragments: frags(11)}}}
	overlapping := Rewrite{Groups: []RewriteGroup{{OldFragments: frags(2, 3), NewFragments: frags(12)}}}
	require.True(t, Resolve(a, b))
	require.False(t, Resolve(a, overlapping))
}

func TestConflict_RewriteVsCreateIndexConflicts(t *testing.T) {
	pending := Rewrite{Groups: []RewriteGroup{{OldFragments: frags(1), NewFragments: frags(9)}}}
	committed := CreateIndex{NewIndices: []*index.Index{index.New("idx", []int32{0}, nil, 1, "btree")}}
	require.False(t, Resolve(committed, pending))
}

func TestConflict_DataReplacementVsFragmentTouchingOps(t *testing.T) {
	pending := DataReplacement{Replacements: []DataReplacementGroup{
		{FragmentID: 5, NewFile: &fragment.DataFile{Fields: []int32{2}}},
	}}

	// Delete on a different fragment leaves the replaced region alone.
	require.True(t, Resolve(Delete{DeletedFragmentIDs: []uint64{4}}, pending))
	// Delete on the same fragment modifies the region being replaced.
	require.False(t, Resolve(Delete{DeletedFragmentIDs: []uint64{5}}, pending))
	// Append never touches an existing fragment.
	require.True(t, Resolve(Append{Fragments: frags(0)}, pending))
}

func TestConflict_AccessorsExposeTouchedSets(t *testing.T) {
	op := Update{
		RemovedFragmentIDs: []uint64{1},
		UpdatedFragments:   frags(2),
		FieldsModified:     []int32{7},
	}
	require.Equal(t, map[uint64]bool{1: true, 2: true}, FragmentsTouched(op))
	require.Equal(t, map[int32]bool{7: true}, FieldsTouched(op))

	uc := UpdateConfig{Upsert: map[string]string{"a": "1"}, DeleteKeys: []string{"b"}}
	require.Equal(t, map[string]bool{"a": true}, ConfigKeysUpserted(uc))
	require.Equal(t, map[string]bool{"b": true}, ConfigKeysDeleted(uc))
}
