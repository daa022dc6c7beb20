// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package wire

import (
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/PromaChow/lance/bitmap"
	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/index"
	"github.com/PromaChow/lance/rowid"
)

func encodeDataFile(d *fragment.DataFile) []byte {
	var buf []byte
	buf = appendStringField(buf, 1, d.Path)
	for _, f := range d.Fields {
		buf = appendInt32Field(buf, 2, f)
	}
	for _, c := range d.ColumnIndices {
		buf = appendInt32Field(buf, 3, c)
	}
	buf = appendVarintField(buf, 4, uint64(d.Major))
	buf = appendVarintField(buf, 5, uint64(d.Minor))
	buf = appendVarintField(buf, 6, d.SizeBytes)
	return buf
}

func decodeDataFile(b []byte) (*fragment.DataFile, error) {
	d := &fragment.DataFile{}
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			d.Path = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			d.Fields = append(d.Fields, int32(v))
			return n, nil
		case 3:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			d.ColumnIndices = append(d.ColumnIndices, int32(v))
			return n, nil
		case 4:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			d.Major = uint32(v)
			return n, nil
		case 5:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			d.Minor = uint32(v)
			return n, nil
		case 6:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			d.SizeBytes = v
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	return d, err
}

func encodeDeletionFile(d *fragment.DeletionFile) []byte {
	if d == nil {
		return nil
	}
	var buf []byte
	buf = appendStringField(buf, 1, d.Path)
	buf = appendVarintField(buf, 2, d.NumRows)
	buf = appendStringField(buf, 3, d.FileType)
	return buf
}

func decodeDeletionFile(b []byte) (*fragment.DeletionFile, error) {
	d := &fragment.DeletionFile{}
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			d.Path = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			d.NumRows = v
			return n, nil
		case 3:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			d.FileType = v
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	return d, err
}

func encodeRowIDMeta(r *fragment.RowIdMeta) []byte {
	if r == nil {
		return nil
	}
	var buf []byte
	if r.Inline != nil {
		if inline, err := rowid.Encode(*r.Inline); err == nil {
			buf = appendBytesField(buf, 1, inline)
		}
	}
	buf = appendStringField(buf, 2, r.Pointer)
	return buf
}

func decodeRowIDMeta(b []byte) (*fragment.RowIdMeta, error) {
	r := &fragment.RowIdMeta{}
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			seq, err := rowid.Decode(v)
			if err != nil {
				return n, err
			}
			r.Inline = &seq
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			r.Pointer = v
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	return r, err
}

func encodeFragment(f *fragment.Fragment) []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, f.ID)
	for _, df := range f.Files {
		buf = appendBytesField(buf, 2, encodeDataFile(df))
	}
	if f.PhysicalRows != nil {
		buf = appendVarintField(buf, 3, *f.PhysicalRows)
	}
	if f.DeletionFile != nil {
		buf = appendBytesField(buf, 4, encodeDeletionFile(f.DeletionFile))
	}
	if f.RowIDMeta != nil {
		buf = appendBytesField(buf, 5, encodeRowIDMeta(f.RowIDMeta))
	}
	return buf
}

func decodeFragment(b []byte) (*fragment.Fragment, error) {
	f := &fragment.Fragment{}
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			f.ID = v
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
			f.Files = append(f.Files, df)
			return n, nil
		case 3:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			rows := v
			f.PhysicalRows = &rows
			return n, nil
		case 4:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			df, err := decodeDeletionFile(v)
			if err != nil {
				return n, err
			}
			f.DeletionFile = df
			return n, nil
		case 5:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			rm, err := decodeRowIDMeta(v)
			if err != nil {
				return n, err
			}
			f.RowIDMeta = rm
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	return f, err
}

func encodeIndex(idx *index.Index) []byte {
	var buf []byte
	buf = appendStringField(buf, 1, idx.UUID.String())
	buf = appendStringField(buf, 2, idx.Name)
	for _, f := range idx.Fields {
		buf = appendInt32Field(buf, 3, f)
	}
	if idx.FragmentBitmap != nil {
		if b, err := idx.FragmentBitmap.MarshalBinary(); err == nil {
			buf = appendBytesField(buf, 4, b)
		}
	}
	buf = appendVarintField(buf, 5, idx.DatasetVersion)
	buf = appendBytesField(buf, 6, idx.Details)
	buf = appendStringField(buf, 7, idx.Type)
	return buf
}

func decodeIndex(b []byte) (*index.Index, error) {
	idx := &index.Index{}
	var uuidStr string
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			uuidStr = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			idx.Name = v
			return n, nil
		case 3:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			idx.Fields = append(idx.Fields, int32(v))
			return n, nil
		case 4:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			bm, err := bitmap.UnmarshalBitmap(v)
			if err != nil {
				return n, err
			}
			idx.FragmentBitmap = bm
			return n, nil
		case 5:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			idx.DatasetVersion = v
			return n, nil
		case 6:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			idx.Details = append([]byte{}, v...)
			return n, nil
		case 7:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			idx.Type = v
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
		idx.UUID = u
	}
	return idx, nil
}
