// Copyright 2026 The Lance Authors
// Licensed under the Apache License, Version 2.0.

// Package projection implements the column-selection algebra over a base
// schema.Schema: union/intersect/subtract by column name, schema, or
// predicate, plus the two virtual row-id/row-addr columns that never
// appear in the stored schema itself.
package projection

import (
	"github.com/PromaChow/lance/internal/arrowtype"
	"github.com/PromaChow/lance/schema"
)

// OnMissing controls what UnionColumn does when the named column does not
// exist in Base.
type OnMissing int

const (
	ErrorOnMissing OnMissing = iota
	IgnoreOnMissing
)

// Projection selects a subset of a base schema by field ID, plus the two
// virtual columns which are tracked independently since they carry no
// field ID of their own.
type Projection struct {
	Base         *schema.Schema
	FieldIDs     map[int32]bool
	WithRowID    bool
	WithRowAddr  bool
}

// Empty returns a Projection over base selecting no columns.
func Empty(base *schema.Schema) *Projection {
	return &Projection{Base: base, FieldIDs: map[int32]bool{}}
}

// Full returns a Projection selecting every field in base.
func Full(base *schema.Schema) *Projection {
	p := Empty(base)
	for _, id := range base.FieldIDs() {
		p.FieldIDs[id] = true
	}
	return p
}

func (p *Projection) clone() *Projection {
	ids := make(map[int32]bool, len(p.FieldIDs))
	for k, v := range p.FieldIDs {
		ids[k] = v
	}
	return &Projection{Base: p.Base, FieldIDs: ids, WithRowID: p.WithRowID, WithRowAddr: p.WithRowAddr}
}

// WithRowIDColumn returns a copy with the _rowid virtual column added.
func (p *Projection) WithRowIDColumn() *Projection {
	cp := p.clone()
	cp.WithRowID = true
	return cp
}

// WithRowAddrColumn returns a copy with the _rowaddr virtual column added.
func (p *Projection) WithRowAddrColumn() *Projection {
	cp := p.clone()
	cp.WithRowAddr = true
	return cp
}

// ContainsFieldID reports whether id is currently selected.
func (p *Projection) ContainsFieldID(id int32) bool { return p.FieldIDs[id] }

// HasDataFields reports whether any non-virtual column is selected.
func (p *Projection) HasDataFields() bool { return len(p.FieldIDs) > 0 }

// IsEmpty reports whether nothing at all (including virtual columns) is
// selected.
func (p *Projection) IsEmpty() bool {
	return len(p.FieldIDs) == 0 && !p.WithRowID && !p.WithRowAddr
}

// addWithAncestors selects chain's terminal field along with every
// ancestor, so the selection always produces a structurally valid
// sub-schema (a struct path must be fully materialized to reach a leaf).
func (p *Projection) addWithAncestors(chain []*schema.Field) {
	for _, f := range chain {
		p.FieldIDs[f.ID] = true
	}
}

// UnionColumn adds a single dotted column (and its ancestors) to the
// selection.
func (p *Projection) UnionColumn(column string, onMissing OnMissing) (*Projection, error) {
	cp := p.clone()
	if column == schema.RowIDColumn {
		cp.WithRowID = true
		return cp, nil
	}
	if column == schema.RowAddrColumn {
		cp.WithRowAddr = true
		return cp, nil
	}
	chain, ok := cp.Base.Resolve(column)
	if !ok {
		if onMissing == ErrorOnMissing {
			return nil, &schema.Error{Sentinel: schema.ErrUnknownColumn, Path: column, Detail: "column not found in base schema"}
		}
		return cp, nil
	}
	cp.addWithAncestors(chain)
	return cp, nil
}

// UnionColumns adds every named column.
func (p *Projection) UnionColumns(columns []string, onMissing OnMissing) (*Projection, error) {
	cur := p
	for _, c := range columns {
		var err error
		cur, err = cur.UnionColumn(c, onMissing)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// UnionSchema adds every field id present in other (which must be a
// sub-schema of Base, i.e. sharing field ids) to the selection.
func (p *Projection) UnionSchema(other *schema.Schema) *Projection {
	cp := p.clone()
	for _, f := range other.FieldsPreOrder() {
		cp.FieldIDs[f.ID] = true
	}
	return cp
}

// UnionProjection adds every id (and virtual column flag) selected by
// other.
func (p *Projection) UnionProjection(other *Projection) *Projection {
	cp := p.clone()
	for id := range other.FieldIDs {
		cp.FieldIDs[id] = true
	}
	cp.WithRowID = cp.WithRowID || other.WithRowID
	cp.WithRowAddr = cp.WithRowAddr || other.WithRowAddr
	return cp
}

// UnionPredicate adds every field in Base matching predicate, along with
// ancestors.
func (p *Projection) UnionPredicate(predicate func(*schema.Field) bool) *Projection {
	cp := p.clone()
	for _, f := range p.Base.FieldsPreOrder() {
		if predicate(f) {
			if chain, ok := p.Base.FieldAncestryByID(f.ID); ok {
				cp.addWithAncestors(chain)
			}
		}
	}
	return cp
}

// SubtractPredicate removes every field in Base matching predicate.
func (p *Projection) SubtractPredicate(predicate func(*schema.Field) bool) *Projection {
	cp := p.clone()
	for _, f := range p.Base.FieldsPreOrder() {
		if predicate(f) {
			delete(cp.FieldIDs, f.ID)
		}
	}
	return cp
}

// Intersect keeps only ids selected by both p and other.
func (p *Projection) Intersect(other *Projection) *Projection {
	cp := Empty(p.Base)
	for id := range p.FieldIDs {
		if other.FieldIDs[id] {
			cp.FieldIDs[id] = true
		}
	}
	cp.WithRowID = p.WithRowID && other.WithRowID
	cp.WithRowAddr = p.WithRowAddr && other.WithRowAddr
	return cp
}

// SubtractProjection removes every id selected by other.
func (p *Projection) SubtractProjection(other *Projection) *Projection {
	cp := p.clone()
	for id := range other.FieldIDs {
		delete(cp.FieldIDs, id)
	}
	if other.WithRowID {
		cp.WithRowID = false
	}
	if other.WithRowAddr {
		cp.WithRowAddr = false
	}
	return cp
}

// SubtractSchema removes every field id present in other.
func (p *Projection) SubtractSchema(other *schema.Schema) *Projection {
	cp := p.clone()
	for _, f := range other.FieldsPreOrder() {
		delete(cp.FieldIDs, f.ID)
	}
	return cp
}

// ToSchema materializes the selection as a structurally valid sub-schema of
// Base (virtual columns are not represented here; see ToArrowSchema).
func (p *Projection) ToSchema() *schema.Schema {
	return p.Base.ProjectByIDs(p.idList(), false)
}

func (p *Projection) idList() []int32 {
	ids := make([]int32, 0, len(p.FieldIDs))
	for id := range p.FieldIDs {
		ids = append(ids, id)
	}
	return ids
}

// Row id / row addr Arrow types are fixed and well-known: 64-bit integers
// with no nullability, matching the stable identifiers they represent.
var (
	rowIDArrowField = &arrowtype.Field{
		Name: schema.RowIDColumn,
		Type: arrowtype.DataType{Kind: "primitive", Name: "uint64"},
	}
	rowAddrArrowField = &arrowtype.Field{
		Name: schema.RowAddrColumn,
		Type: arrowtype.DataType{Kind: "primitive", Name: "uint64"},
	}
)

// ToArrowSchema materializes the selection as an Arrow-shaped schema,
// attaching the row-id / row-addr columns (stable, known types) as
// trailing columns when selected.
func (p *Projection) ToArrowSchema() *arrowtype.Schema {
	out := p.ToSchema().ToArrow()
	if p.WithRowID {
		out.Fields = append(out.Fields, rowIDArrowField)
	}
	if p.WithRowAddr {
		out.Fields = append(out.Fields, rowAddrArrowField)
	}
	return out
}
