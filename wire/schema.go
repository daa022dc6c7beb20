// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/PromaChow/lance/schema"
)

func encodeField(f *schema.Field) []byte {
	var buf []byte
	buf = appendInt32Field(buf, 1, f.ID)
	buf = appendStringField(buf, 2, f.Name)
	buf = appendVarintField(buf, 3, uint64(f.Type.Kind))
	buf = appendStringField(buf, 4, f.Type.Name)
	buf = appendBoolField(buf, 5, f.Nullable)
	buf = appendVarintField(buf, 6, uint64(f.StorageClass))
	for _, c := range f.Children {
		buf = appendBytesField(buf, 7, encodeField(c))
	}
	buf = appendStringMap(buf, 8, f.Metadata)
	buf = appendBoolField(buf, 9, f.UnenforcedPrimaryKey)
	return buf
}

func decodeField(b []byte) (*schema.Field, error) {
	f := &schema.Field{}
	metadata := map[string]string{}
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			f.ID = int32(v)
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			f.Name = v
			return n, nil
		case 3:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			f.Type.Kind = schema.TypeKind(v)
			return n, nil
		case 4:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			f.Type.Name = v
			return n, nil
		case 5:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			f.Nullable = v != 0
			return n, nil
		case 6:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			f.StorageClass = schema.StorageClass(v)
			return n, nil
		case 7:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			child, err := decodeField(v)
			if err != nil {
				return n, err
			}
			f.Children = append(f.Children, child)
			return n, nil
		case 8:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			k, val, err := consumeStringMapEntry(v)
			if err != nil {
				return n, err
			}
			metadata[k] = val
			return n, nil
		case 9:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			f.UnenforcedPrimaryKey = v != 0
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		f.Metadata = metadata
	}
	return f, nil
}

// EncodeSchema serializes a Schema's field tree and metadata.
func EncodeSchema(s *schema.Schema) []byte {
	if s == nil {
		return nil
	}
	var buf []byte
	for _, f := range s.Fields {
		buf = appendBytesField(buf, 1, encodeField(f))
	}
	buf = appendStringMap(buf, 2, s.Metadata)
	return buf
}

// DecodeSchema reverses EncodeSchema. The result has not been run through
// Validate; callers that need the structural invariants re-checked should
// call schema.New with the decoded fields.
func DecodeSchema(b []byte) (*schema.Schema, error) {
	s := &schema.Schema{}
	metadata := map[string]string{}
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			f, err := decodeField(v)
			if err != nil {
				return n, err
			}
			s.Fields = append(s.Fields, f)
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
			metadata[k] = val
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		s.Metadata = metadata
	}
	return s, nil
}
