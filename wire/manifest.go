// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/PromaChow/lance/fragment"
	"github.com/PromaChow/lance/index"
	"github.com/PromaChow/lance/manifest"
)

// EncodeManifest serializes m as a Manifest message.
func EncodeManifest(m *manifest.Manifest) []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, m.Version)
	buf = appendBytesField(buf, 2, EncodeSchema(m.Schema))
	for _, f := range m.Fragments.ToSlice() {
		buf = appendBytesField(buf, 3, encodeFragment(f))
	}
	for _, idx := range m.Indices {
		buf = appendBytesField(buf, 4, encodeIndex(idx))
	}
	buf = appendStringMap(buf, 5, m.Config)
	buf = appendVarintField(buf, 6, m.FeatureFlags)
	buf = appendVarintField(buf, 7, uint64(m.TimestampNs))
	buf = appendVarintField(buf, 8, m.NextRowID)
	if m.MaxFragmentID != nil {
		buf = appendVarintField(buf, 9, *m.MaxFragmentID)
		buf = appendBoolField(buf, 10, true)
	}
	buf = appendStringField(buf, 11, m.DataStorageFormat)
	if m.Tag != nil {
		buf = appendStringField(buf, 12, *m.Tag)
		buf = appendBoolField(buf, 13, true)
	}
	if m.TransactionFile != nil {
		buf = appendStringField(buf, 14, *m.TransactionFile)
		buf = appendBoolField(buf, 15, true)
	}
	buf = appendVarintField(buf, 16, m.ReaderFeatureFlags)
	buf = appendVarintField(buf, 17, m.WriterFeatureFlags)
	return buf
}

// DecodeManifest reverses EncodeManifest.
func DecodeManifest(b []byte) (*manifest.Manifest, error) {
	m := &manifest.Manifest{}
	var schemaBytes []byte
	var frags []*fragment.Fragment
	var indices []*index.Index
	config := map[string]string{}
	var maxFragID uint64
	maxFragIDPresent := false
	var tag string
	tagPresent := false
	var txnFile string
	txnFilePresent := false

	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			m.Version = v
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
			f, err := decodeFragment(v)
			if err != nil {
				return n, err
			}
			frags = append(frags, f)
			return n, nil
		case 4:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			idx, err := decodeIndex(v)
			if err != nil {
				return n, err
			}
			indices = append(indices, idx)
			return n, nil
		case 5:
			v, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				return n, errTruncated
			}
			k, val, err := consumeStringMapEntry(v)
			if err != nil {
				return n, err
			}
			config[k] = val
			return n, nil
		case 6:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			m.FeatureFlags = v
			return n, nil
		case 7:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			m.TimestampNs = int64(v)
			return n, nil
		case 8:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			m.NextRowID = v
			return n, nil
		case 9:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			maxFragID = v
			return n, nil
		case 10:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			maxFragIDPresent = v != 0
			return n, nil
		case 11:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			m.DataStorageFormat = v
			return n, nil
		case 12:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			tag = v
			return n, nil
		case 13:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			tagPresent = v != 0
			return n, nil
		case 14:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			txnFile = v
			return n, nil
		case 15:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			txnFilePresent = v != 0
			return n, nil
		case 16:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			m.ReaderFeatureFlags = v
			return n, nil
		case 17:
			v, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				return n, errTruncated
			}
			m.WriterFeatureFlags = v
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
		m.Schema = s
	}
	m.Fragments = manifest.NewFragmentList(frags)
	m.Indices = indices
	if len(config) > 0 {
		m.Config = config
	}
	if maxFragIDPresent {
		v := maxFragID
		m.MaxFragmentID = &v
	}
	if tagPresent {
		v := tag
		m.Tag = &v
	}
	if txnFilePresent {
		v := txnFile
		m.TransactionFile = &v
	}
	return m, nil
}
