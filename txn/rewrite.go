// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package txn

import (
	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/index"
)

// rewriteOutcome records, for one RewriteGroup, the old fragment ids it
// removed and the (possibly freshly allocated) new fragment ids it
// introduced — the inputs rebuildBitmaps needs to recompute index
// coverage.
type rewriteOutcome struct {
	OldIDs []uint64
	NewIDs []uint64
}

// handleRewriteFragments applies every RewriteGroup to final in order,
// splicing in place when a group's old fragments occupy a contiguous
// sub-range (matched in the order given), else removing them and
// appending the replacements at the end.
func handleRewriteFragments(final []*fragment.Fragment, groups []RewriteGroup, cursor *uint64) ([]*fragment.Fragment, []rewriteOutcome, error) {
	outcomes := make([]rewriteOutcome, 0, len(groups))
	for _, g := range groups {
		oldIDs := fragmentIDs(g.OldFragments)
		positions := make([]int, 0, len(oldIDs))
		for _, id := range oldIDs {
			pos := indexOfFragmentID(final, id)
			if pos < 0 {
				return nil, nil, commitConflict("rewrite group references fragment %d which no longer exists", id)
			}
			positions = append(positions, pos)
		}

		newFrags := make([]*fragment.Fragment, len(g.NewFragments))
		for i, nf := range g.NewFragments {
			cp := nf.Clone()
			if cp.ID == fragment.UnassignedID {
				cp.ID = *cursor
				*cursor++
			}
			newFrags[i] = cp
		}

		if contiguousAscending(positions) {
			start, end := positions[0], positions[len(positions)-1]
			spliced := make([]*fragment.Fragment, 0, len(final)-len(positions)+len(newFrags))
			spliced = append(spliced, final[:start]...)
			spliced = append(spliced, newFrags...)
			spliced = append(spliced, final[end+1:]...)
			final = spliced
		} else {
			remove := make(map[uint64]bool, len(oldIDs))
			for _, id := range oldIDs {
				remove[id] = true
			}
			remaining := make([]*fragment.Fragment, 0, len(final))
			for _, f := range final {
				if !remove[f.ID] {
					remaining = append(remaining, f)
				}
			}
			remaining = append(remaining, newFrags...)
			final = remaining
		}

		outcomes = append(outcomes, rewriteOutcome{OldIDs: oldIDs, NewIDs: fragmentIDs(newFrags)})
	}
	return final, outcomes, nil
}

func indexOfFragmentID(frags []*fragment.Fragment, id uint64) int {
	for i, f := range frags {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func contiguousAscending(positions []int) bool {
	for i := 1; i < len(positions); i++ {
		if positions[i] != positions[i-1]+1 {
			return false
		}
	}
	return true
}

// rebuildBitmaps applies the rewrite bitmap law: for every index whose
// bitmap had all of a group's old fragments, the bitmap becomes
// (B \ old) ∪ new; if it had none, it is unchanged. A
// bitmap containing some but not all of a group's old fragments is a
// fatal invariant violation: the compaction plan split indexed and
// non-indexed data.
func rebuildBitmaps(indices []*index.Index, outcomes []rewriteOutcome) error {
	for _, idx := range indices {
		if idx.FragmentBitmap == nil {
			continue
		}
		for _, oc := range outcomes {
			all, none := true, true
			for _, id := range oc.OldIDs {
				if idx.FragmentBitmap.Contains(id) {
					none = false
				} else {
					all = false
				}
			}
			switch {
			case len(oc.OldIDs) == 0:
				// nothing to do
			case all:
				for _, id := range oc.OldIDs {
					idx.FragmentBitmap.Remove(id)
				}
				for _, id := range oc.NewIDs {
					idx.FragmentBitmap.Insert(id)
				}
			case none:
				// bitmap unaffected by this group
			default:
				return internalErr("compaction plan split indexed and non-indexed data for index %q", idx.Name)
			}
		}
	}
	return nil
}

// applyRewrittenIndices swaps each index's stored UUID per the mapping in
// rewritten (used for Rewrite without stable row ids, after the bitmaps
// have been recalculated; the underlying index file was regenerated against
// the new fragment layout and so gets a new on-disk identity).
func applyRewrittenIndices(indices []*index.Index, rewritten []RewrittenIndex) {
	byOld := make(map[string]RewrittenIndex, len(rewritten))
	for _, r := range rewritten {
		byOld[r.OldUUID.String()] = r
	}
	for _, idx := range indices {
		if r, ok := byOld[idx.UUID.String()]; ok {
			idx.UUID = r.NewUUID
		}
	}
}
