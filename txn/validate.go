// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package txn

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/manifest"
	"github.com/PromaChow/lance/schema"
)

// ValidateOperation runs the pre-flight checks BuildManifest assumes have
// already passed: that Append/Merge/Overwrite/Update/Project fragments
// each carry a datafile entry for every field the target schema names.
func ValidateOperation(prior *manifest.Manifest, op Operation) error {
	if prior == nil {
		if ow, ok := op.(Overwrite); ok && ow.ConfigUpsert == nil {
			return schemaFragmentsValid(ow.Schema, ow.Fragments)
		}
		return invalidInput("cannot apply operation %s to a non-existent dataset", op.Name())
	}
	switch o := op.(type) {
	case Append:
		return schemaFragmentsValid(prior.Schema, o.Fragments)
	case Project:
		return schemaFragmentsValid(o.Schema, prior.Fragments.ToSlice())
	case Merge:
		return schemaFragmentsValid(o.Schema, o.Fragments)
	case Overwrite:
		if o.ConfigUpsert == nil {
			return schemaFragmentsValid(o.Schema, o.Fragments)
		}
		return nil
	case Update:
		if err := schemaFragmentsValid(prior.Schema, o.UpdatedFragments); err != nil {
			return err
		}
		return schemaFragmentsValid(prior.Schema, o.NewFragments)
	default:
		return nil
	}
}

// schemaFragmentsValid checks that each fragment carries a datafile entry
// for every field in schema (pre-order). A fragment may carry additional
// masked fields the schema no longer names; that is fine.
//
// A commit routinely carries thousands of fragments (a large backfill or
// a full-table compaction); each check only touches its own fragment, so
// they run on a bounded errgroup instead of serially.
func schemaFragmentsValid(s *schema.Schema, fragments []*fragment.Fragment) error {
	if len(fragments) == 0 {
		return nil
	}
	fields := s.FieldsPreOrder()
	g := new(errgroup.Group)
	g.SetLimit(max(runtime.GOMAXPROCS(0), 1))
	for _, frag := range fragments {
		frag := frag
		g.Go(func() error {
			for _, field := range fields {
				if !frag.HasField(field.ID) {
					return invalidInput("fragment %d does not contain field %q (id %d)", frag.ID, field.Name, field.ID)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
