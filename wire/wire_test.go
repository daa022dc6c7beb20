// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/index"
	"github.com/PromaChow/lance/manifest"
	"github.com/PromaChow/lance/schema"
	"github.com/PromaChow/lance/txn"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := &schema.Schema{Fields: []*schema.Field{
		{Name: "a", ID: schema.UnassignedID, Type: schema.LogicalType{Kind: schema.Primitive, Name: "int32"}},
		{Name: "b", ID: schema.UnassignedID, Type: schema.LogicalType{Kind: schema.Struct}, Children: []*schema.Field{
			{Name: "f1", ID: schema.UnassignedID, Type: schema.LogicalType{Kind: schema.Primitive, Name: "utf8"}, Nullable: true},
		}},
	}}
	s.SetFieldID(nil)
	require.NoError(t, s.Validate())
	return s
}

func TestWire_SchemaRoundTrip(t *testing.T) {
	s := testSchema(t)
	s.Metadata = map[string]string{"k": "v"}
	got, err := DecodeSchema(EncodeSchema(s))
	require.NoError(t, err)
	require.True(t, got.CompareWithOptions(s, schema.CompareOptions{CompareMetadata: true}))
	require.Equal(t, s.Metadata, got.Metadata)
}

func TestWire_FragmentRoundTrip(t *testing.T) {
	rows := uint64(12)
	f := &fragment.Fragment{
		ID:           5,
		PhysicalRows: &rows,
		Files: []*fragment.DataFile{
			{Path: "data/0.lance", Fields: []int32{0, 1}, ColumnIndices: []int32{0, 1}, Major: 2, Minor: 1, SizeBytes: 1024},
		},
		DeletionFile: &fragment.DeletionFile{Path: "del/0.bin", NumRows: 3, FileType: "bitmap"},
	}
	got, err := decodeFragment(encodeFragment(f))
	require.NoError(t, err)
	require.Equal(t, f.ID, got.ID)
	require.Equal(t, *f.PhysicalRows, *got.PhysicalRows)
	require.Equal(t, f.Files[0].Path, got.Files[0].Path)
	require.Equal(t, f.Files[0].Fields, got.Files[0].Fields)
	require.Equal(t, f.DeletionFile.Path, got.DeletionFile.Path)
}

func TestWire_IndexRoundTrip(t *testing.T) {
	idx := index.New("btree_on_a", []int32{0}, nil, 3, "btree")
	got, err := decodeIndex(encodeIndex(idx))
	require.NoError(t, err)
	require.Equal(t, idx.UUID, got.UUID)
	require.Equal(t, idx.Name, got.Name)
	require.Equal(t, idx.Fields, got.Fields)
	require.Equal(t, idx.DatasetVersion, got.DatasetVersion)
}

func TestWire_ManifestRoundTrip(t *testing.T) {
	s := testSchema(t)
	maxFrag := uint64(7)
	m := &manifest.Manifest{
		Version:            3,
		Schema:             s,
		Fragments:          manifest.NewFragmentList([]*fragment.Fragment{fragment.New(1), fragment.New(7)}),
		Config:             map[string]string{"foo": "bar"},
		TimestampNs:        1234,
		NextRowID:          42,
		MaxFragmentID:      &maxFrag,
		DataStorageFormat:  "2.1",
		WriterFeatureFlags: uint64(manifest.FlagMoveStableRowIDs),
	}
	got, err := DecodeManifest(EncodeManifest(m))
	require.NoError(t, err)
	require.Equal(t, m.Version, got.Version)
	require.Equal(t, m.Config, got.Config)
	require.Equal(t, m.NextRowID, got.NextRowID)
	require.Equal(t, *m.MaxFragmentID, *got.MaxFragmentID)
	require.Equal(t, m.DataStorageFormat, got.DataStorageFormat)
	require.True(t, got.StableRowIDs())
	require.Equal(t, []uint64{1, 7}, idsOf(got.Fragments.ToSlice()))
}

func idsOf(frags []*fragment.Fragment) []uint64 {
	out := make([]uint64, len(frags))
	for i, f := range frags {
		out[i] = f.ID
	}
	return out
}

func TestWire_TransactionRoundTrip(t *testing.T) {
	op := txn.Append{Fragments: []*fragment.Fragment{fragment.New(1)}}
	tx := txn.NewTransaction(4, op)
	tx.Tag = "nightly-compaction"

	encoded, err := EncodeTransaction(tx)
	require.NoError(t, err)
	got, err := DecodeTransaction(encoded)
	require.NoError(t, err)
	require.Equal(t, tx.ReadVersion, got.ReadVersion)
	require.Equal(t, tx.UUID, got.UUID)
	require.Equal(t, tx.Tag, got.Tag)
	gotOp, ok := got.Operation.(txn.Append)
	require.True(t, ok)
	require.Len(t, gotOp.Fragments, 1)
}

func TestWire_TransactionWithBlobOperationRoundTrip(t *testing.T) {
	tx := txn.NewTransaction(1, txn.Append{Fragments: []*fragment.Fragment{fragment.New(1)}})
	tx.WithBlobOperation(&txn.BlobOperation{Append: &txn.Append{Fragments: []*fragment.Fragment{fragment.New(9)}}})

	encoded, err := EncodeTransaction(tx)
	require.NoError(t, err)
	got, err := DecodeTransaction(encoded)
	require.NoError(t, err)
	require.NotNil(t, got.BlobOperation)
	require.NotNil(t, got.BlobOperation.Append)
	require.Equal(t, uint64(9), got.BlobOperation.Append.Fragments[0].ID)
}
