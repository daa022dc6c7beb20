// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

// Package rowid implements stable row ids: identifiers that survive
// compaction and reorders, modeled as a sequence of contiguous ranges and
// serialized as a compact, zstd-compressed, varint-encoded byte block.
package rowid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Range is a half-open row-id interval [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of row ids in the range.
func (r Range) Len() uint64 { return r.End - r.Start }

// Sequence is an ordered list of row-id ranges in logical row order. The
// in-memory contract is just an iterator over row ids in logical row
// order; most fragments have exactly one range, assigned contiguously at
// append time.
type Sequence struct {
	Ranges []Range
}

// Contiguous builds a single-range Sequence covering [start, start+count).
func Contiguous(start, count uint64) Sequence {
	if count == 0 {
		return Sequence{}
	}
	return Sequence{Ranges: []Range{{Start: start, End: start + count}}}
}

// Len returns the total number of row ids across all ranges.
func (s Sequence) Len() uint64 {
	var n uint64
	for _, r := range s.Ranges {
		n += r.Len()
	}
	return n
}

// Iterator walks every row id in logical order.
type Iterator struct {
	ranges []Range
	ri     int
	cur    uint64
}

// Iter returns an Iterator over s.
func (s Sequence) Iter() *Iterator {
	it := &Iterator{ranges: s.Ranges}
	if len(it.ranges) > 0 {
		it.cur = it.ranges[0].Start
	}
	return it
}

// Next returns the next row id, or false when exhausted.
func (it *Iterator) Next() (uint64, bool) {
	for it.ri < len(it.ranges) {
		r := it.ranges[it.ri]
		if it.cur < r.End {
			v := it.cur
			it.cur++
			return v, true
		}
		it.ri++
		if it.ri < len(it.ranges) {
			it.cur = it.ranges[it.ri].Start
		}
	}
	return 0, false
}

// Encode serializes s as varint-encoded (start, length) pairs and
// zstd-compresses the result into a compact byte block suitable for
// storing inline on a Fragment.
func Encode(s Sequence) ([]byte, error) {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(s.Ranges)))
	buf.Write(tmp[:n])
	for _, r := range s.Ranges {
		n = binary.PutUvarint(tmp[:], r.Start)
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], r.Len())
		buf.Write(tmp[:n])
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("rowid: creating zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

// Decode reverses Encode.
func Decode(data []byte) (Sequence, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Sequence{}, fmt.Errorf("rowid: creating zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return Sequence{}, fmt.Errorf("rowid: decompressing: %w", err)
	}
	r := bytes.NewReader(raw)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return Sequence{}, fmt.Errorf("rowid: reading range count: %w", err)
	}
	seq := Sequence{Ranges: make([]Range, 0, count)}
	for i := uint64(0); i < count; i++ {
		start, err := binary.ReadUvarint(r)
		if err != nil {
			return Sequence{}, fmt.Errorf("rowid: reading range start: %w", err)
		}
		length, err := binary.ReadUvarint(r)
		if err != nil {
			if err == io.EOF {
				return Sequence{}, fmt.Errorf("rowid: truncated range length")
			}
			return Sequence{}, fmt.Errorf("rowid: reading range length: %w", err)
		}
		seq.Ranges = append(seq.Ranges, Range{Start: start, End: start + length})
	}
	return seq, nil
}
