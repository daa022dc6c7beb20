// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package manifest

import (
	"github.com/google/btree"

	"github.com/PromaChow/lance/fragment"
)

// FragmentList is the persistent, ordered-by-id collection of fragments a
// Manifest carries. It is backed by a copy-on-write B-tree so that
// constructing the next manifest's fragment list clones only the slots
// that change: an O(log n) Clone rather than a deep copy of every
// fragment.
type FragmentList struct {
	tree *btree.BTreeG[*fragment.Fragment]
}

func fragmentLess(a, b *fragment.Fragment) bool { return a.ID < b.ID }

// NewFragmentList builds a FragmentList from fragments in any order; the
// tree orders them by id.
func NewFragmentList(frags []*fragment.Fragment) FragmentList {
	tree := btree.NewG(32, fragmentLess)
	for _, f := range frags {
		tree.ReplaceOrInsert(f)
	}
	return FragmentList{tree: tree}
}

// Get looks up a fragment by id.
func (l FragmentList) Get(id uint64) (*fragment.Fragment, bool) {
	if l.tree == nil {
		return nil, false
	}
	return l.tree.Get(&fragment.Fragment{ID: id})
}

// Len returns the fragment count.
func (l FragmentList) Len() int {
	if l.tree == nil {
		return 0
	}
	return l.tree.Len()
}

// ToSlice returns fragments ascending by id, the canonical order manifest
// serialization requires.
func (l FragmentList) ToSlice() []*fragment.Fragment {
	if l.tree == nil {
		return nil
	}
	out := make([]*fragment.Fragment, 0, l.tree.Len())
	l.tree.Ascend(func(f *fragment.Fragment) bool {
		out = append(out, f)
		return true
	})
	return out
}

// Clone returns a shallow, copy-on-write snapshot: mutating the clone
// allocates only the B-tree nodes on the path to the changed fragment, not
// the whole list.
func (l FragmentList) Clone() FragmentList {
	if l.tree == nil {
		return NewFragmentList(nil)
	}
	return FragmentList{tree: l.tree.Clone()}
}

// MaxID returns the largest fragment id present, and false if empty.
func (l FragmentList) MaxID() (uint64, bool) {
	if l.tree == nil || l.tree.Len() == 0 {
		return 0, false
	}
	max, _ := l.tree.Max()
	return max.ID, true
}
