// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

// Package bitmap wraps a roaring bitmap as the fragment-bitmap
// representation an Index uses to track which fragment ids it covers.
package bitmap

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Bitmap is a mutable set of fragment ids. Ids are stored in a 32-bit
// roaring.Bitmap (the only variant in the example corpus's dependency
// tree); fragment ids are expected to stay well under 2^32 in practice; a
// roaring64 bitmap would be a drop-in upgrade if that ever changed.
type Bitmap struct {
	inner *roaring.Bitmap
}

// New returns an empty Bitmap.
func New() *Bitmap {
	return &Bitmap{inner: roaring.NewBitmap()}
}

// FromIDs builds a Bitmap containing exactly the given fragment ids.
func FromIDs(ids ...uint64) *Bitmap {
	b := New()
	for _, id := range ids {
		b.Insert(id)
	}
	return b
}

// Contains reports whether id is a member.
func (b *Bitmap) Contains(id uint64) bool {
	if b == nil || b.inner == nil {
		return false
	}
	return b.inner.Contains(uint32(id))
}

// Insert adds id to the set.
func (b *Bitmap) Insert(id uint64) {
	b.inner.Add(uint32(id))
}

// Remove deletes id from the set, a no-op if absent.
func (b *Bitmap) Remove(id uint64) {
	b.inner.Remove(uint32(id))
}

// Len returns the number of members.
func (b *Bitmap) Len() int {
	if b == nil || b.inner == nil {
		return 0
	}
	return int(b.inner.GetCardinality())
}

// ToSlice returns members in ascending order.
func (b *Bitmap) ToSlice() []uint64 {
	if b == nil || b.inner == nil {
		return nil
	}
	vals := b.inner.ToArray()
	out := make([]uint64, len(vals))
	for i, v := range vals {
		out[i] = uint64(v)
	}
	return out
}

// Clone deep-copies the bitmap.
func (b *Bitmap) Clone() *Bitmap {
	if b == nil || b.inner == nil {
		return New()
	}
	return &Bitmap{inner: b.inner.Clone()}
}

// Equals reports value equality.
func (b *Bitmap) Equals(other *Bitmap) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.inner.Equals(other.inner)
}

// Union returns a new Bitmap containing members of both b and other.
func (b *Bitmap) Union(other *Bitmap) *Bitmap {
	out := b.Clone()
	out.inner.Or(other.inner)
	return out
}

// Subtract returns a new Bitmap containing b's members minus other's.
func (b *Bitmap) Subtract(other *Bitmap) *Bitmap {
	out := b.Clone()
	out.inner.AndNot(other.inner)
	return out
}

// IntersectsAny reports whether any id in ids is a member.
func (b *Bitmap) IntersectsAny(ids ...uint64) bool {
	for _, id := range ids {
		if b.Contains(id) {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every id in ids is a member.
func (b *Bitmap) ContainsAll(ids ...uint64) bool {
	for _, id := range ids {
		if !b.Contains(id) {
			return false
		}
	}
	return true
}

// ContainsNone reports whether no id in ids is a member.
func (b *Bitmap) ContainsNone(ids ...uint64) bool {
	return !b.IntersectsAny(ids...)
}

// MarshalBinary serializes the bitmap using roaring's portable format, for
// inclusion in a protobuf-encoded Index record.
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	if b == nil || b.inner == nil {
		return New().MarshalBinary()
	}
	return b.inner.ToBytes()
}

// UnmarshalBitmap parses bytes produced by MarshalBinary.
func UnmarshalBitmap(data []byte) (*Bitmap, error) {
	rb := roaring.NewBitmap()
	if err := rb.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &Bitmap{inner: rb}, nil
}
