// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package wire

import (
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/txn"
)

// OpTag identifies which Operation variant an encoded Transaction carries
// (schema.proto's Transaction.operation_tag). There is no real protobuf
// oneof generated here; the tag plus a length-delimited payload stands in
// for one.
type OpTag uint32

const (
	OpTagAppend OpTag = iota + 1
	OpTagDelete
	OpTagOverwrite
	OpTagCreateIndex
	OpTagRewrite
	OpTagDataReplacement
	OpTagMerge
	OpTagProject
	OpTagUpdate
	OpTagReserveFragments
	OpTagRestore
	OpTagUpdateConfig
	OpTagUpdateMemWalState
)

func encodeFragments(buf []byte, num protowire.Number, frags []*fragment.Fragment) []byte {
	for _, f := range frags {
		buf = appendBytesField(buf, num, encodeFragment(f))
	}
	return buf
}

// EncodeOperation returns the tag and payload bytes for op.
func EncodeOperation(op txn.Operation) (OpTag, []byte, error) {
	switch o := op.(type) {
	case txn.Append:
		var buf []byte
		buf = encodeFragments(buf, 1, o.Fragments)
		return OpTagAppend, buf, nil

	case txn.Delete:
		var buf []byte
		buf = encodeFragments(buf, 1, o.UpdatedFragments)
		for _, id := range o.DeletedFragmentIDs {
			buf = appendVarintField(buf, 2, id)
		}
		buf = appendStringField(buf, 3, o.Predicate)
		return OpTagDelete, buf, nil

	case txn.Overwrite:
		var buf []byte
		buf = encodeFragments(buf, 1, o.Fragments)
		buf = appendBytesField(buf, 2, EncodeSchema(o.Schema))
		if o.ConfigUpsert != nil {
			buf = appendStringMap(buf, 3, o.ConfigUpsert)
			buf = appendBoolField(buf, 4, true)
		}
		return OpTagOverwrite, buf, nil

	case txn.CreateIndex:
		var buf []byte
		for _, idx := range o.NewIndices {
			buf = appendBytesField(buf, 1, encodeIndex(idx))
		}
		for _, u := range o.RemovedIndices {
			buf = appendStringField(buf, 2, u.String())
		}
		return OpTagCreateIndex, buf, nil

	case txn.Rewrite:
		var buf []byte
		for _, g := range o.Groups {
			var group []byte
			group = encodeFragments(group, 1, g.OldFragments)
			group = encodeFragments(group, 2, g.NewFragments)
			buf = appendBytesField(buf, 1, group)
		}
		for _, ri := range o.RewrittenIndices {
			var entry []byte
			entry = appendStringField(entry, 1, ri.OldUUID.String())
			entry = appendStringField(entry, 2, ri.NewUUID.String())
			buf = appendBytesField(buf, 2, entry)
		}
		if o.FragReuseIndex != nil {
			buf = appendVarintField(buf, 3, *o.FragReuseIndex)
			buf = appendBoolField(buf, 4, true)
		}
		return OpTagRewrite, buf, nil

	case txn.DataReplacement:
		var buf []byte
		for _, r := range o.Replacements {
			var entry []byte
			entry = appendVarintField(entry, 1, r.FragmentID)
			entry = appendBytesField(entry, 2, encodeDataFile(r.NewFile))
			buf = appendBytesField(buf, 1, entry)
		}
		return OpTagDataReplacement, buf, nil

	case txn.Merge:
		var buf []byte
		buf = encodeFragments(buf, 1, o.Fragments)
		buf = appendBytesField(buf, 2, EncodeSchema(o.Schema))
		return OpTagMerge, buf, nil

	case txn.Project:
		var buf []byte
		buf = appendBytesField(buf, 1, EncodeSchema(o.Schema))
		return OpTagProject, buf, nil

	case txn.Update:
		var buf []byte
		for _, id := range o.RemovedFragmentIDs {
			buf = appendVarintField(buf, 1, id)
		}
		buf = encodeFragments(buf, 2, o.UpdatedFragments)
		buf = encodeFragments(buf, 3, o.NewFragments)
		for _, id := range o.FieldsModified {
			buf = appendInt32Field(buf, 4, id)
		}
		for _, s := range o.MemWalToFlush {
			buf = appendStringField(buf, 5, s)
		}
		return OpTagUpdate, buf, nil

	case txn.ReserveFragments:
		var buf []byte
		buf = appendVarintField(buf, 1, o.NumFragments)
		return OpTagReserveFragments, buf, nil

	case txn.Restore:
		var buf []byte
		buf = appendVarintField(buf, 1, o.Version)
		return OpTagRestore, buf, nil

	case txn.UpdateConfig:
		var buf []byte
		buf = appendStringMap(buf, 1, o.Upsert)
		for _, k := range o.DeleteKeys {
			buf = appendStringField(buf, 2, k)
		}
		buf = appendStringMap(buf, 3, o.SchemaMetadata)
		for fid, md := range o.FieldMetadata {
			var entry []byte
			entry = appendInt32Field(entry, 1, fid)
			entry = appendStringMap(entry, 2, md)
			buf = appendBytesField(buf, 4, entry)
		}
		return OpTagUpdateConfig, buf, nil

	case txn.UpdateMemWalState:
		var buf []byte
		for _, s := range o.Added {
			buf = appendStringField(buf, 1, s)
		}
		for _, s := range o.Updated {
			buf = appendStringField(buf, 2, s)
		}
		for _, s := range o.Removed {
			buf = appendStringField(buf, 3, s)
		}
		return OpTagUpdateMemWalState, buf, nil

	default:
		return 0, nil, fmt.Errorf("wire: unknown operation type %T", op)
	}
}

// DecodeOperation reverses EncodeOperation.
func DecodeOperation(tag OpTag, b []byte) (txn.Operation, error) {
	switch tag {
	case OpTagAppend:
		var frags []*fragment.Fragment
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			if num == 1 {
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				f, err := decodeFragment(v)
				if err != nil {
					return n, err
				}
				frags = append(frags, f)
				return n, nil
			}
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		})
		return txn.Append{Fragments: frags}, err

	case OpTagDelete:
		var d txn.Delete
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			switch num {
			case 1:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				f, err := decodeFragment(v)
				if err != nil {
					return n, err
				}
				d.UpdatedFragments = append(d.UpdatedFragments, f)
				return n, nil
			case 2:
				v, n := protowire.ConsumeVarint(rest)
				if n < 0 {
					return n, errTruncated
				}
				d.DeletedFragmentIDs = append(d.DeletedFragmentIDs, v)
				return n, nil
			case 3:
				v, n := protowire.ConsumeString(rest)
				if n < 0 {
					return n, errTruncated
				}
				d.Predicate = v
				return n, nil
			default:
				return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
			}
		})
		return d, err

	case OpTagOverwrite:
		var o txn.Overwrite
		var schemaBytes []byte
		upsert := map[string]string{}
		present := false
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			switch num {
			case 1:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				f, err := decodeFragment(v)
				if err != nil {
					return n, err
				}
				o.Fragments = append(o.Fragments, f)
				return n, nil
			case 2:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				schemaBytes = v
				return n, nil
			case 3:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				k, val, err := consumeStringMapEntry(v)
				if err != nil {
					return n, err
				}
				upsert[k] = val
				return n, nil
			case 4:
				v, n := protowire.ConsumeVarint(rest)
				if n < 0 {
					return n, errTruncated
				}
				present = v != 0
				return n, nil
			default:
				return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
			}
		})
		if err != nil {
			return nil, err
		}
		if schemaBytes != nil {
			s, err := DecodeSchema(schemaBytes)
			if err != nil {
				return nil, err
			}
			o.Schema = s
		}
		if present {
			o.ConfigUpsert = upsert
		}
		return o, nil

	case OpTagCreateIndex:
		var o txn.CreateIndex
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			switch num {
			case 1:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				idx, err := decodeIndex(v)
				if err != nil {
					return n, err
				}
				o.NewIndices = append(o.NewIndices, idx)
				return n, nil
			case 2:
				v, n := protowire.ConsumeString(rest)
				if n < 0 {
					return n, errTruncated
				}
				u, err := uuid.Parse(v)
				if err != nil {
					return n, err
				}
				o.RemovedIndices = append(o.RemovedIndices, u)
				return n, nil
			default:
				return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
			}
		})
		return o, err

	case OpTagRewrite:
		var o txn.Rewrite
		var fragReuse uint64
		fragReusePresent := false
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			switch num {
			case 1:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				g, err := decodeRewriteGroup(v)
				if err != nil {
					return n, err
				}
				o.Groups = append(o.Groups, g)
				return n, nil
			case 2:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				ri, err := decodeRewrittenIndex(v)
				if err != nil {
					return n, err
				}
				o.RewrittenIndices = append(o.RewrittenIndices, ri)
				return n, nil
			case 3:
				v, n := protowire.ConsumeVarint(rest)
				if n < 0 {
					return n, errTruncated
				}
				fragReuse = v
				return n, nil
			case 4:
				v, n := protowire.ConsumeVarint(rest)
				if n < 0 {
					return n, errTruncated
				}
				fragReusePresent = v != 0
				return n, nil
			default:
				return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
			}
		})
		if err != nil {
			return nil, err
		}
		if fragReusePresent {
			o.FragReuseIndex = &fragReuse
		}
		return o, nil

	case OpTagDataReplacement:
		var o txn.DataReplacement
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			if num == 1 {
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				g, err := decodeDataReplacementGroup(v)
				if err != nil {
					return n, err
				}
				o.Replacements = append(o.Replacements, g)
				return n, nil
			}
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		})
		return o, err

	case OpTagMerge:
		var o txn.Merge
		var schemaBytes []byte
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			switch num {
			case 1:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				f, err := decodeFragment(v)
				if err != nil {
					return n, err
				}
				o.Fragments = append(o.Fragments, f)
				return n, nil
			case 2:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				schemaBytes = v
				return n, nil
			default:
				return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
			}
		})
		if err != nil {
			return nil, err
		}
		if schemaBytes != nil {
			s, err := DecodeSchema(schemaBytes)
			if err != nil {
				return nil, err
			}
			o.Schema = s
		}
		return o, nil

	case OpTagProject:
		var o txn.Project
		var schemaBytes []byte
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			if num == 1 {
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				schemaBytes = v
				return n, nil
			}
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		})
		if err != nil {
			return nil, err
		}
		if schemaBytes != nil {
			s, err := DecodeSchema(schemaBytes)
			if err != nil {
				return nil, err
			}
			o.Schema = s
		}
		return o, nil

	case OpTagUpdate:
		var o txn.Update
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			switch num {
			case 1:
				v, n := protowire.ConsumeVarint(rest)
				if n < 0 {
					return n, errTruncated
				}
				o.RemovedFragmentIDs = append(o.RemovedFragmentIDs, v)
				return n, nil
			case 2:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				f, err := decodeFragment(v)
				if err != nil {
					return n, err
				}
				o.UpdatedFragments = append(o.UpdatedFragments, f)
				return n, nil
			case 3:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				f, err := decodeFragment(v)
				if err != nil {
					return n, err
				}
				o.NewFragments = append(o.NewFragments, f)
				return n, nil
			case 4:
				v, n := protowire.ConsumeVarint(rest)
				if n < 0 {
					return n, errTruncated
				}
				o.FieldsModified = append(o.FieldsModified, int32(v))
				return n, nil
			case 5:
				v, n := protowire.ConsumeString(rest)
				if n < 0 {
					return n, errTruncated
				}
				o.MemWalToFlush = append(o.MemWalToFlush, v)
				return n, nil
			default:
				return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
			}
		})
		return o, err

	case OpTagReserveFragments:
		var o txn.ReserveFragments
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			if num == 1 {
				v, n := protowire.ConsumeVarint(rest)
				if n < 0 {
					return n, errTruncated
				}
				o.NumFragments = v
				return n, nil
			}
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		})
		return o, err

	case OpTagRestore:
		var o txn.Restore
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			if num == 1 {
				v, n := protowire.ConsumeVarint(rest)
				if n < 0 {
					return n, errTruncated
				}
				o.Version = v
				return n, nil
			}
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		})
		return o, err

	case OpTagUpdateConfig:
		var o txn.UpdateConfig
		o.Upsert = map[string]string{}
		o.SchemaMetadata = map[string]string{}
		o.FieldMetadata = map[int32]map[string]string{}
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			switch num {
			case 1:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				k, val, err := consumeStringMapEntry(v)
				if err != nil {
					return n, err
				}
				o.Upsert[k] = val
				return n, nil
			case 2:
				v, n := protowire.ConsumeString(rest)
				if n < 0 {
					return n, errTruncated
				}
				o.DeleteKeys = append(o.DeleteKeys, v)
				return n, nil
			case 3:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				k, val, err := consumeStringMapEntry(v)
				if err != nil {
					return n, err
				}
				o.SchemaMetadata[k] = val
				return n, nil
			case 4:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				fid, md, err := decodeFieldMetadataEntry(v)
				if err != nil {
					return n, err
				}
				o.FieldMetadata[fid] = md
				return n, nil
			default:
				return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
			}
		})
		return o, err

	case OpTagUpdateMemWalState:
		var o txn.UpdateMemWalState
		err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			switch num {
			case 1:
				v, n := protowire.ConsumeString(rest)
				if n < 0 {
					return n, errTruncated
				}
				o.Added = append(o.Added, v)
				return n, nil
			case 2:
				v, n := protowire.ConsumeString(rest)
				if n < 0 {
					return n, errTruncated
				}
				o.Updated = append(o.Updated, v)
				return n, nil
			case 3:
				v, n := protowire.ConsumeString(rest)
				if n < 0 {
					return n, errTruncated
				}
				o.Removed = append(o.Removed, v)
				return n, nil
			default:
				return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
			}
		})
		return o, err

	default:
		return nil, fmt.Errorf("wire: unknown operation tag %d", tag)
	}
}

func decodeRewriteGroup(b []byte) (txn.RewriteGroup, error) {
	var g txn.RewriteGroup
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			f, err := decodeFragment(v)
			if err != nil {
				return n, err
			}
			g.OldFragments = append(g.OldFragments, f)
			return n, nil
		case 2:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			f, err := decodeFragment(v)
			if err != nil {
				return n, err
			}
			g.NewFragments = append(g.NewFragments, f)
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	return g, err
}

func decodeRewrittenIndex(b []byte) (txn.RewrittenIndex, error) {
	var ri txn.RewrittenIndex
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			u, err := uuid.Parse(v)
			if err != nil {
				return n, err
			}
			ri.OldUUID = u
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			u, err := uuid.Parse(v)
			if err != nil {
				return n, err
			}
			ri.NewUUID = u
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	return ri, err
}

func decodeDataReplacementGroup(b []byte) (txn.DataReplacementGroup, error) {
	var g txn.DataReplacementGroup
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			g.FragmentID = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			df, err := decodeDataFile(v)
			if err != nil {
				return n, err
			}
			g.NewFile = df
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	return g, err
}

func decodeFieldMetadataEntry(b []byte) (int32, map[string]string, error) {
	var fid int32
	md := map[string]string{}
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			fid = int32(v)
			return n, nil
		case 2:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			k, val, err := consumeStringMapEntry(v)
			if err != nil {
				return n, err
			}
			md[k] = val
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	return fid, md, err
}

// EncodeTransaction serializes t as a Transaction message.
func EncodeTransaction(t *txn.Transaction) ([]byte, error) {
	tag, payload, err := EncodeOperation(t.Operation)
	if err != nil {
		return nil, err
	}
	var buf []byte
	buf = appendVarintField(buf, 1, t.ReadVersion)
	buf = appendStringField(buf, 2, t.UUID.String())
	buf = appendStringField(buf, 3, t.Tag)
	buf = appendVarintField(buf, 4, uint64(tag))
	buf = appendBytesField(buf, 5, payload)
	if t.BlobOperation != nil {
		var blob []byte
		if t.BlobOperation.Append != nil {
			_, p, err := EncodeOperation(*t.BlobOperation.Append)
			if err != nil {
				return nil, err
			}
			blob = appendBytesField(blob, 1, p)
		}
		if t.BlobOperation.Overwrite != nil {
			_, p, err := EncodeOperation(*t.BlobOperation.Overwrite)
			if err != nil {
				return nil, err
			}
			blob = appendBytesField(blob, 2, p)
		}
		buf = appendBytesField(buf, 6, blob)
	}
	return buf, nil
}

// DecodeTransaction reverses EncodeTransaction.
func DecodeTransaction(b []byte) (*txn.Transaction, error) {
	t := &txn.Transaction{}
	var uuidStr string
	var opTag OpTag
	var opPayload []byte
	var blobBytes []byte
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			t.ReadVersion = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			uuidStr = v
			return n, nil
		case 3:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			t.Tag = v
			return n, nil
		case 4:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			opTag = OpTag(v)
			return n, nil
		case 5:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			opPayload = v
			return n, nil
		case 6:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			blobBytes = v
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	if err != nil {
		return nil, err
	}
	if uuidStr != "" {
		u, err := uuid.Parse(uuidStr)
		if err != nil {
			return nil, err
		}
		t.UUID = u
	}
	op, err := DecodeOperation(opTag, opPayload)
	if err != nil {
		return nil, err
	}
	t.Operation = op
	if blobBytes != nil {
		blob := &txn.BlobOperation{}
		err := consumeMessage(blobBytes, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
			switch num {
			case 1:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				a, err := DecodeOperation(OpTagAppend, v)
				if err != nil {
					return n, err
				}
				ap := a.(txn.Append)
				blob.Append = &ap
				return n, nil
			case 2:
				v, n := protowire.ConsumeBytes(rest)
				if n < 0 {
					return n, errTruncated
				}
				o, err := DecodeOperation(OpTagOverwrite, v)
				if err != nil {
					return n, err
				}
				ow := o.(txn.Overwrite)
				blob.Overwrite = &ow
				return n, nil
			default:
				return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
			}
		})
		if err != nil {
			return nil, err
		}
		t.BlobOperation = blob
	}
	return t, nil
}
