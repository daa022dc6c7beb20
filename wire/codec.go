// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

// Package wire hand-encodes Transaction and Manifest as protobuf wire
// bytes using google.golang.org/protobuf/encoding/protowire directly,
// rather than through protoc-generated bindings (schema.proto documents
// the field numbers this file must stay in sync with; no .proto compile
// step runs anywhere in this module).
package wire

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

var errTruncated = fmt.Errorf("wire: truncated message")

// fieldVisitor consumes one field's value (not its tag) and returns the
// number of bytes consumed, or a negative protowire error code.
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// consumeMessage walks a length-delimited message body, dispatching each
// field to visit. Unknown field numbers are still type-switched so the
// cursor advances correctly, callers that don't care simply return
// protowire.ConsumeFieldValue's result.
func consumeMessage(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errTruncated
		}
		b = b[n:]
		n, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return errTruncated
		}
		b = b[n:]
	}
	return nil
}

func appendBytesField(buf []byte, num protowire.Number, payload []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	buf = protowire.AppendBytes(buf, payload)
	return buf
}

func appendStringField(buf []byte, num protowire.Number, s string) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	buf = protowire.AppendString(buf, s)
	return buf
}

func appendVarintField(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	buf = protowire.AppendVarint(buf, v)
	return buf
}

func appendInt32Field(buf []byte, num protowire.Number, v int32) []byte {
	return appendVarintField(buf, num, uint64(uint32(v)))
}

func appendBoolField(buf []byte, num protowire.Number, v bool) []byte {
	if !v {
		return buf
	}
	return appendVarintField(buf, num, 1)
}

// appendStringMap encodes a map<string,string> as repeated {key, value}
// two-field submessages under num, protobuf map-field style. Keys are
// sorted so encoding the same map always produces the same bytes.
func appendStringMap(buf []byte, num protowire.Number, m map[string]string) []byte {
	for _, k := range sortedStringKeys(m) {
		var entry []byte
		entry = appendStringField(entry, 1, k)
		entry = appendStringField(entry, 2, m[k])
		buf = appendBytesField(buf, num, entry)
	}
	return buf
}

func consumeStringMapEntry(b []byte) (key, value string, err error) {
	err = consumeMessage(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			key = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(rest)
			if n < 0 {
				return n, errTruncated
			}
			value = v
			return n, nil
		default:
			return int(protowire.ConsumeFieldValue(num, typ, rest)), nil
		}
	})
	return key, value, err
}

func sortedStringKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
