// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package txn

import "github.com/PromaChow/lance/fragment"

// handleDataReplacement applies every DataReplacementGroup to final,
// returning the updated fragment slice:
//
//   - every replacement in the batch must carry the same field list;
//   - the target fragment must exist;
//   - if the fragment already carries a datafile with the exact same field
//     set and format version as the replacement, that datafile is swapped
//     in place;
//   - else, if the replacement's fields are wholly disjoint from every
//     field the fragment currently stores, the replacement is appended as
//     a new datafile (the all-null-column upgrade case);
//   - any other overlap (a replacement that shares some but not all fields
//     with an existing datafile) is rejected: it could silently duplicate
//     or orphan columns;
//   - a replacement identical to the datafile it would replace (same path
//     and same field set) is rejected as a no-op.
func handleDataReplacement(final []*fragment.Fragment, groups []DataReplacementGroup) ([]*fragment.Fragment, error) {
	if len(groups) > 0 {
		first := groups[0].NewFile.FieldSet()
		for _, g := range groups[1:] {
			if !sameFieldSet(first, g.NewFile.FieldSet()) {
				return nil, invalidInput("all new data files in a replacement batch must have the same fields")
			}
		}
	}

	byID := make(map[uint64]int, len(final))
	for i, f := range final {
		byID[f.ID] = i
	}

	out := make([]*fragment.Fragment, len(final))
	copy(out, final)

	for _, g := range groups {
		pos, ok := byID[g.FragmentID]
		if !ok {
			return nil, invalidInput("data replacement references fragment %d which does not exist", g.FragmentID)
		}
		frag := out[pos].Clone()

		match := frag.DataFileFor(g.NewFile)
		if match != nil {
			if match.Path == g.NewFile.Path {
				return nil, invalidInput("data replacement for fragment %d does not change its data (same file %q)", g.FragmentID, g.NewFile.Path)
			}
			for i, df := range frag.Files {
				if df == match {
					frag.Files[i] = g.NewFile
					break
				}
			}
			out[pos] = frag
			continue
		}

		if disjointFromFragment(frag, g.NewFile) {
			frag.Files = append(frag.Files, g.NewFile)
			out[pos] = frag
			continue
		}

		return nil, invalidInput(
			"data replacement for fragment %d partially overlaps existing fields: neither an exact in-place match nor wholly disjoint", g.FragmentID)
	}
	return out, nil
}

func sameFieldSet(a, b map[int32]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

func disjointFromFragment(frag *fragment.Fragment, newFile *fragment.DataFile) bool {
	for _, id := range newFile.Fields {
		if frag.HasField(id) {
			return false
		}
	}
	return true
}
