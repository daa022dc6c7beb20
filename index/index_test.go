// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PromaChow/lance/bitmap"
)

func TestIndex_CoversFieldAndIsSystem(t *testing.T) {
	idx := New("btree_on_a", []int32{1, 2}, bitmap.FromIDs(1, 2), 3, "btree")
	require.True(t, idx.CoversField(1))
	require.False(t, idx.CoversField(9))
	require.True(t, idx.CoversAnyField(9, 2))
	require.False(t, idx.IsSystem())

	sys := New(SystemIndexPrefix+"memwal", nil, nil, 0, "memwal")
	require.True(t, sys.IsSystem())
}

func TestIndex_CloneIsIndependent(t *testing.T) {
	idx := New("idx", []int32{1}, bitmap.FromIDs(1, 2), 1, "btree")
	clone := idx.Clone()
	clone.FragmentBitmap.Insert(3)
	clone.Fields[0] = 99

	require.False(t, idx.FragmentBitmap.Contains(3))
	require.Equal(t, int32(1), idx.Fields[0])
	require.Equal(t, idx.UUID, clone.UUID)
}
