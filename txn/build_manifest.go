// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package txn

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/PromaChow/lance/bitmap"
	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/index"
	"github.com/PromaChow/lance/manifest"
	"github.com/PromaChow/lance/rowid"
	"github.com/PromaChow/lance/schema"
)

// BuildParams carries the inputs BuildManifest needs beyond the prior
// manifest and the operation itself: everything that would otherwise be
// ambient (wall clock, the caller's storage-format/feature-flag policy) is
// threaded in explicitly so the core stays a pure, deterministic function
// of its arguments.
type BuildParams struct {
	// TimestampNs is the new manifest's commit timestamp, supplied by the
	// caller rather than read from the clock.
	TimestampNs int64
	// RequestedStorageFormat, if non-empty, must match every datafile
	// version this transaction introduces ("major.minor"); a mismatch is
	// an InvalidInput error.
	RequestedStorageFormat string
	// EnableStableRowIDs requests turning stable row ids on. It is only
	// valid on a dataset's first version or on an Overwrite; requesting it
	// against an existing non-stable dataset otherwise is NotSupported.
	EnableStableRowIDs bool
	// AutoSetFeatureFlags, when true, derives WriterFeatureFlags from the
	// resulting manifest's content (currently: FlagMoveStableRowIDs iff
	// stable row ids are enabled). When false, WriterFeatureFlagsOverride
	// is used verbatim.
	AutoSetFeatureFlags        bool
	WriterFeatureFlagsOverride *uint64
	// TransactionFile optionally records where the caller persisted the
	// Transaction this manifest was built from.
	TransactionFile *string
	// Tag optionally names this manifest version.
	Tag *string
	// Logger receives diagnostic tracing of BuildManifest's steps. The
	// core itself never depends on logging succeeding or being present;
	// a nil Logger is treated as zap.NewNop(): the core is pure and
	// synchronous, logging is strictly observational.
	Logger *zap.Logger
}

func (p BuildParams) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// BuildManifest applies op to prior (nil for the first version) and
// returns the next Manifest, following the same ten-step construction
// order regardless of operation kind: select the schema, set the fragment
// id cursor, set the row id cursor, construct the fragment list, assign
// row ids, maintain indices, order the fragments, resolve the storage
// format, assemble the manifest (version, timestamp, config, metadata,
// feature flags), and apply the ReserveFragments bump; the result is then
// validated.
// prior may be nil only when op is an Overwrite with a nil ConfigUpsert
// (ValidateOperation enforces this); callers should run ValidateOperation
// before BuildManifest.
func BuildManifest(prior *manifest.Manifest, op Operation, params BuildParams) (*manifest.Manifest, error) {
	log := params.logger()
	priorVersion := uint64(0)
	if prior != nil {
		priorVersion = prior.Version
	}
	log.Debug("build_manifest: start", zap.String("op", op.Name()), zap.Uint64("prior_version", priorVersion))

	if _, ok := op.(Restore); ok {
		return nil, invalidInput("Restore is handled by a dedicated restore path, not BuildManifest")
	}
	if prior == nil {
		if _, ok := op.(Overwrite); !ok {
			return nil, internalErr("no prior manifest but operation is not Overwrite")
		}
	}

	// Step 1: schema selection.
	nextSchema := priorSchemaOrNil(prior)
	switch o := op.(type) {
	case Overwrite:
		nextSchema = o.Schema
	case Merge:
		nextSchema = o.Schema
	case Project:
		nextSchema = o.Schema
	}
	if nextSchema == nil {
		return nil, internalErr("no schema available: operation %s requires a prior manifest", op.Name())
	}

	// Step 2: fragment id cursor.
	var fragCursor uint64
	if _, ok := op.(Overwrite); !ok && prior != nil && prior.MaxFragmentID != nil {
		fragCursor = *prior.MaxFragmentID + 1
	}

	// Step 3: row id cursor / stable row id enablement.
	priorStable := prior != nil && prior.StableRowIDs()
	stableRowIDs := priorStable
	if params.EnableStableRowIDs {
		if prior != nil && !priorStable {
			if _, ok := op.(Overwrite); !ok {
				return nil, notSupported("cannot enable stable row ids on an existing dataset that lacked them")
			}
		}
		stableRowIDs = true
	}
	var nextRowID uint64
	if _, ok := op.(Overwrite); !ok && prior != nil {
		nextRowID = prior.NextRowID
	}

	priorFrags := priorFragmentsOrNil(prior)

	// Step 4: fragment list construction.
	final, rowIDTargets, newFiles, rewriteOutcomes, err := constructFragments(op, priorFrags, &fragCursor)
	if err != nil {
		log.Debug("build_manifest: fragment construction failed", zap.Error(err))
		return nil, err
	}

	// Step 5: row id assignment for Append/Update/Overwrite's new fragments.
	if stableRowIDs {
		for _, f := range rowIDTargets {
			if f.PhysicalRows == nil {
				return nil, internalErr("fragment %d is missing physical_rows during row id assignment", f.ID)
			}
			seq := rowid.Contiguous(nextRowID, *f.PhysicalRows)
			f.RowIDMeta = &fragment.RowIdMeta{Inline: &seq}
			nextRowID += *f.PhysicalRows
		}
	}

	// Step 6: index maintenance.
	nextIndices, err := maintainIndices(prior, op, nextSchema, final, rewriteOutcomes, stableRowIDs)
	if err != nil {
		return nil, err
	}

	// Step 7: ordering.
	fragList := manifest.NewFragmentList(final)

	// Step 8: storage format resolution.
	storageFormat, err := resolveStorageFormat(newFiles, params.RequestedStorageFormat, priorStorageFormat(prior))
	if err != nil {
		return nil, err
	}

	// Step 9: manifest assembly.
	version := uint64(1)
	if prior != nil {
		version = prior.Version + 1
	}
	var maxFragID *uint64
	if m, ok := fragList.MaxID(); ok {
		v := m
		maxFragID = &v
	} else if prior != nil {
		maxFragID = prior.MaxFragmentID
	}

	nextConfig := cloneConfig(priorConfigOrNil(prior))
	if ow, ok := op.(Overwrite); ok && ow.ConfigUpsert != nil {
		for k, v := range ow.ConfigUpsert {
			nextConfig[k] = v
		}
	}
	if uc, ok := op.(UpdateConfig); ok {
		for _, k := range uc.DeleteKeys {
			delete(nextConfig, k)
		}
		for k, v := range uc.Upsert {
			nextConfig[k] = v
		}
		if len(uc.SchemaMetadata) > 0 || len(uc.FieldMetadata) > 0 {
			// The prior manifest's schema is immutably shared with its
			// readers; metadata mutations go to a private copy.
			nextSchema = nextSchema.Clone()
		}
		if uc.SchemaMetadata != nil {
			if nextSchema.Metadata == nil {
				nextSchema.Metadata = map[string]string{}
			}
			for k, v := range uc.SchemaMetadata {
				nextSchema.Metadata[k] = v
			}
		}
		for fid, md := range uc.FieldMetadata {
			if f, ok := nextSchema.FieldByID(fid); ok {
				if f.Metadata == nil {
					f.Metadata = map[string]string{}
				}
				for k, v := range md {
					f.Metadata[k] = v
				}
			}
		}
	}

	writerFlags := priorWriterFlags(prior)
	if params.AutoSetFeatureFlags {
		if stableRowIDs {
			writerFlags |= uint64(manifest.FlagMoveStableRowIDs)
		}
	} else if params.WriterFeatureFlagsOverride != nil {
		writerFlags = *params.WriterFeatureFlagsOverride
	}

	next := &manifest.Manifest{
		Version:            version,
		Schema:             nextSchema,
		Fragments:          fragList,
		Indices:            nextIndices,
		Config:             nextConfig,
		TimestampNs:        params.TimestampNs,
		NextRowID:          nextRowID,
		MaxFragmentID:      maxFragID,
		DataStorageFormat:  storageFormat,
		Tag:                params.Tag,
		TransactionFile:    params.TransactionFile,
		ReaderFeatureFlags: priorReaderFlags(prior),
		WriterFeatureFlags: writerFlags,
	}

	// Step 10: ReserveFragments bumps max_fragment_id only.
	if rf, ok := op.(ReserveFragments); ok {
		base := uint64(0)
		if prior != nil && prior.MaxFragmentID != nil {
			base = *prior.MaxFragmentID
		}
		v := base + rf.NumFragments
		next.MaxFragmentID = &v
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}

	log.Debug("build_manifest: done",
		zap.String("op", op.Name()),
		zap.Uint64("version", next.Version),
		zap.Int("fragments", next.Fragments.Len()),
		zap.Int("indices", len(next.Indices)),
	)
	return next, nil
}

func priorSchemaOrNil(prior *manifest.Manifest) *schema.Schema {
	if prior == nil {
		return nil
	}
	return prior.Schema
}

func priorFragmentsOrNil(prior *manifest.Manifest) []*fragment.Fragment {
	if prior == nil {
		return nil
	}
	return prior.Fragments.ToSlice()
}

func priorConfigOrNil(prior *manifest.Manifest) map[string]string {
	if prior == nil {
		return nil
	}
	return prior.Config
}

func priorStorageFormat(prior *manifest.Manifest) string {
	if prior == nil {
		return ""
	}
	return prior.DataStorageFormat
}

func priorWriterFlags(prior *manifest.Manifest) uint64 {
	if prior == nil {
		return 0
	}
	return prior.WriterFeatureFlags
}

func priorReaderFlags(prior *manifest.Manifest) uint64 {
	if prior == nil {
		return 0
	}
	return prior.ReaderFeatureFlags
}

func cloneConfig(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// constructFragments builds the final fragment slice for op, assigning
// ids from cursor to any fragment arriving unassigned. It also reports
// which fragments need row id assignment and which datafiles were newly
// introduced, for storage-format inference.
func constructFragments(op Operation, prior []*fragment.Fragment, cursor *uint64) (
	final []*fragment.Fragment, rowIDTargets []*fragment.Fragment, newFiles []*fragment.DataFile, outcomes []rewriteOutcome, err error,
) {
	switch o := op.(type) {
	case Append:
		assigned := assignIDs(o.Fragments, cursor)
		final = append(append([]*fragment.Fragment{}, prior...), assigned...)
		rowIDTargets = assigned
		newFiles = filesOf(assigned)

	case Delete:
		updatedByID := byID(o.UpdatedFragments)
		deleted := idSet(o.DeletedFragmentIDs)
		for _, f := range prior {
			if deleted[f.ID] {
				continue
			}
			if u, ok := updatedByID[f.ID]; ok {
				final = append(final, u)
			} else {
				final = append(final, f)
			}
		}

	case Overwrite:
		assigned := assignIDs(o.Fragments, cursor)
		final = assigned
		rowIDTargets = assigned
		newFiles = filesOf(assigned)

	case CreateIndex:
		final = append([]*fragment.Fragment{}, prior...)

	case Rewrite:
		final, outcomes, err = handleRewriteFragments(prior, o.Groups, cursor)
		if err != nil {
			return nil, nil, nil, nil, err
		}

	case DataReplacement:
		final, err = handleDataReplacement(prior, o.Replacements)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		for _, r := range o.Replacements {
			newFiles = append(newFiles, r.NewFile)
		}

	case Merge:
		assigned := assignIDs(o.Fragments, cursor)
		final = assigned

	case Project:
		for _, f := range prior {
			final = append(final, dropUnreferencedFiles(f, o.Schema))
		}

	case Update:
		removed := idSet(o.RemovedFragmentIDs)
		updatedByID := byID(o.UpdatedFragments)
		for _, f := range prior {
			if removed[f.ID] {
				continue
			}
			if u, ok := updatedByID[f.ID]; ok {
				final = append(final, u)
			} else {
				final = append(final, f)
			}
		}
		assigned := assignIDs(o.NewFragments, cursor)
		final = append(final, assigned...)
		rowIDTargets = assigned
		newFiles = filesOf(assigned)

	case ReserveFragments, UpdateConfig, UpdateMemWalState:
		final = append([]*fragment.Fragment{}, prior...)

	default:
		return nil, nil, nil, nil, internalErr("unhandled operation type %T in BuildManifest", op)
	}
	return final, rowIDTargets, newFiles, outcomes, nil
}

func assignIDs(frags []*fragment.Fragment, cursor *uint64) []*fragment.Fragment {
	out := make([]*fragment.Fragment, len(frags))
	for i, f := range frags {
		cp := f.Clone()
		if cp.ID == fragment.UnassignedID {
			cp.ID = *cursor
			*cursor++
		}
		out[i] = cp
	}
	return out
}

func filesOf(frags []*fragment.Fragment) []*fragment.DataFile {
	var out []*fragment.DataFile
	for _, f := range frags {
		out = append(out, f.Files...)
	}
	return out
}

func byID(frags []*fragment.Fragment) map[uint64]*fragment.Fragment {
	m := make(map[uint64]*fragment.Fragment, len(frags))
	for _, f := range frags {
		m[f.ID] = f
	}
	return m
}

func idSet(ids []uint64) map[uint64]bool {
	m := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// dropUnreferencedFiles returns a clone of f with any datafile whose
// fields no longer intersect s's retained field id set removed.
func dropUnreferencedFiles(f *fragment.Fragment, s *schema.Schema) *fragment.Fragment {
	retained := map[int32]bool{}
	for _, id := range s.FieldIDs() {
		retained[id] = true
	}
	cp := f.Clone()
	var files []*fragment.DataFile
	for _, df := range cp.Files {
		keep := false
		for _, id := range df.Fields {
			if retained[id] {
				keep = true
				break
			}
		}
		if keep {
			files = append(files, df)
		}
	}
	cp.Files = files
	return cp
}

// maintainIndices recomputes which indices survive into the next
// manifest and what their fragment bitmaps become.
func maintainIndices(prior *manifest.Manifest, op Operation, nextSchema *schema.Schema, final []*fragment.Fragment, outcomes []rewriteOutcome, stableRowIDs bool) ([]*index.Index, error) {
	var indices []*index.Index
	if prior != nil {
		for _, idx := range prior.Indices {
			indices = append(indices, idx.Clone())
		}
	}

	switch o := op.(type) {
	case Overwrite:
		return nil, nil

	case Delete, Merge, Project:
		finalIDs := idSet(fragmentIDs(final))
		var kept []*index.Index
		for _, idx := range indices {
			if idx.IsSystem() {
				kept = append(kept, idx)
				continue
			}
			if !fieldsStillPresent(idx, nextSchema) {
				continue
			}
			if idx.FragmentBitmap != nil && !bitmapIntersectsSet(idx.FragmentBitmap, finalIDs) {
				continue
			}
			kept = append(kept, idx)
		}
		return kept, nil

	case Update:
		if len(o.FieldsModified) > 0 {
			updated := idSet(fragmentIDs(o.UpdatedFragments))
			for _, idx := range indices {
				if !fieldsIntersect(idx.Fields, o.FieldsModified) {
					continue
				}
				if idx.FragmentBitmap == nil {
					continue
				}
				for id := range updated {
					idx.FragmentBitmap.Remove(id)
				}
			}
		}
		return indices, nil

	case Rewrite:
		if stableRowIDs {
			if len(o.RewrittenIndices) != 0 {
				return nil, invalidInput("rewritten_indices must be empty when stable row ids are enabled")
			}
			if err := rebuildBitmaps(indices, outcomes); err != nil {
				return nil, err
			}
		} else {
			if err := rebuildBitmaps(indices, outcomes); err != nil {
				return nil, err
			}
			applyRewrittenIndices(indices, o.RewrittenIndices)
		}
		return indices, nil

	case CreateIndex:
		removed := make(map[string]bool, len(o.RemovedIndices))
		for _, u := range o.RemovedIndices {
			removed[u.String()] = true
		}
		byName := make(map[string]bool, len(o.NewIndices))
		for _, idx := range o.NewIndices {
			byName[idx.Name] = true
		}
		var kept []*index.Index
		for _, idx := range indices {
			if removed[idx.UUID.String()] || byName[idx.Name] {
				continue
			}
			kept = append(kept, idx)
		}
		kept = append(kept, o.NewIndices...)
		return kept, nil

	case UpdateMemWalState:
		return applyMemWalState(indices, o), nil

	default:
		return indices, nil
	}
}

// memWalIndexName is the system index tracking in-memory WAL segments: its
// Details holds one segment identifier per line, the closest fit this
// core's opaque Details byte payload offers for a small managed set.
const memWalIndexName = index.SystemIndexPrefix + "memwal"

func applyMemWalState(indices []*index.Index, o UpdateMemWalState) []*index.Index {
	var wal *index.Index
	for _, idx := range indices {
		if idx.Name == memWalIndexName {
			wal = idx
			break
		}
	}
	segments := map[string]bool{}
	if wal != nil {
		for _, line := range splitLines(wal.Details) {
			if line != "" {
				segments[line] = true
			}
		}
	}
	for _, id := range o.Removed {
		delete(segments, id)
	}
	for _, id := range o.Added {
		segments[id] = true
	}
	for _, id := range o.Updated {
		segments[id] = true
	}
	if wal == nil {
		wal = index.New(memWalIndexName, nil, nil, 0, "memwal")
		indices = append(indices, wal)
	}
	wal.Details = joinLines(segments)
	return indices
}

func splitLines(data []byte) []string {
	var out []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			out = append(out, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, string(data[start:]))
	}
	return out
}

func joinLines(segments map[string]bool) []byte {
	ids := make([]string, 0, len(segments))
	for id := range segments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []byte
	for _, id := range ids {
		out = append(out, []byte(id)...)
		out = append(out, '\n')
	}
	return out
}

func fragmentIDs(frags []*fragment.Fragment) []uint64 {
	ids := make([]uint64, len(frags))
	for i, f := range frags {
		ids[i] = f.ID
	}
	return ids
}

func fieldsStillPresent(idx *index.Index, s *schema.Schema) bool {
	for _, id := range idx.Fields {
		if _, ok := s.FieldByID(id); !ok {
			return false
		}
	}
	return true
}

func fieldsIntersect(a []int32, b []int32) bool {
	set := make(map[int32]bool, len(b))
	for _, id := range b {
		set[id] = true
	}
	for _, id := range a {
		if set[id] {
			return true
		}
	}
	return false
}

func bitmapIntersectsSet(b *bitmap.Bitmap, set map[uint64]bool) bool {
	for _, id := range b.ToSlice() {
		if set[id] {
			return true
		}
	}
	return false
}

// resolveStorageFormat infers the storage format from newly introduced
// datafiles' (major, minor) versions; if the
// caller requested a specific format, every new datafile must agree with
// it.
func resolveStorageFormat(newFiles []*fragment.DataFile, requested string, prior string) (string, error) {
	var inferred string
	for _, f := range newFiles {
		v := formatString(f.Major, f.Minor)
		if inferred == "" {
			inferred = v
		} else if inferred != v {
			return "", invalidInput("new datafiles disagree on storage format: %q vs %q", inferred, v)
		}
	}
	if requested != "" {
		if inferred != "" && inferred != requested {
			return "", invalidInput("requested storage format %q disagrees with new datafiles' format %q", requested, inferred)
		}
		return requested, nil
	}
	if inferred != "" {
		return inferred, nil
	}
	return prior, nil
}

func formatString(major, minor uint32) string {
	return fmt.Sprintf("%d.%d", major, minor)
}
