package compare

import (
	"slices"
	"strings"

	"github.com/sqldef/schemadef/ddl"
	"github.com/sqldef/schemadef/schema"
)

// views drops removed views dependents first, then recreates changed views
// and adds new ones in dependency order.
func (c *comparison) views(r *results) {
	base := ddl.SortViews(c.base.Views)
	for i := len(base) - 1; i >= 0; i-- {
		bv := base[i]
		if c.target.FindView(bv.SchemaOwner, bv.Name) == nil {
			sql, err := c.drop.DropView(bv)
			r.add(ObjectView, Delete, bv.SchemaOwner, "", bv.Name, sql, err)
		}
	}
	for _, tv := range ddl.SortViews(c.target.Views) {
		bv := c.base.FindView(tv.SchemaOwner, tv.Name)
		switch {
		case bv == nil:
			sql, err := c.create.AddView(tv)
			r.add(ObjectView, Add, tv.SchemaOwner, "", tv.Name, sql, err)
		case !normalizedEqual(c.engine.normalizer, bv.Sql, tv.Sql):
			r.change(ObjectView, tv.SchemaOwner, "", tv.Name,
				func() (string, error) { return c.drop.DropView(bv) },
				func() (string, error) { return c.create.AddView(tv) })
		}
	}
}

func (c *comparison) procedures(r *results) {
	c.routines(r, ObjectStoredProcedure, c.base.StoredProcedures, c.target.StoredProcedures,
		(*schema.Schema).FindProcedure, c.drop.DropProcedure, c.create.AddProcedure)
}

func (c *comparison) functions(r *results) {
	c.routines(r, ObjectFunction, c.base.Functions, c.target.Functions,
		(*schema.Schema).FindFunction, c.drop.DropFunction, c.create.AddFunction)
}

func (c *comparison) routines(
	r *results,
	objectType SchemaObjectType,
	base, target []*schema.Routine,
	find func(s *schema.Schema, owner, name string) *schema.Routine,
	drop, create func(*schema.Routine) (string, error),
) {
	for _, br := range base {
		if find(c.target, br.SchemaOwner, br.Name) == nil {
			sql, err := drop(br)
			r.add(objectType, Delete, br.SchemaOwner, "", br.Name, sql, err)
		}
	}
	for _, tr := range target {
		br := find(c.base, tr.SchemaOwner, tr.Name)
		switch {
		case br == nil:
			sql, err := create(tr)
			r.add(objectType, Add, tr.SchemaOwner, "", tr.Name, sql, err)
		case !c.routineEqual(br, tr):
			r.change(objectType, tr.SchemaOwner, "", tr.Name,
				func() (string, error) { return drop(br) },
				func() (string, error) { return create(tr) })
		}
	}
}

// routineEqual compares the signature where both sides carry one, then
// the normalized source.
func (c *comparison) routineEqual(a, b *schema.Routine) bool {
	if a.ReturnType != "" && b.ReturnType != "" && !strings.EqualFold(strings.TrimSpace(a.ReturnType), strings.TrimSpace(b.ReturnType)) {
		return false
	}
	if len(a.Arguments) > 0 && len(b.Arguments) > 0 && !slices.EqualFunc(a.Arguments, b.Arguments, argumentEqual) {
		return false
	}
	return normalizedEqual(c.engine.normalizer, a.Sql, b.Sql)
}

func argumentEqual(a, b *schema.Argument) bool {
	return schema.EqualFold(a.Name, b.Name) &&
		strings.EqualFold(a.DbDataType, b.DbDataType) &&
		a.In == b.In && a.Out == b.Out &&
		a.Length == b.Length &&
		a.Precision == b.Precision &&
		a.Scale == b.Scale
}

func (c *comparison) packages(r *results) {
	for _, bp := range c.base.Packages {
		if c.target.FindPackage(bp.SchemaOwner, bp.Name) == nil {
			sql, err := c.drop.DropPackage(bp)
			r.add(ObjectPackage, Delete, bp.SchemaOwner, "", bp.Name, sql, err)
		}
	}
	n := c.engine.normalizer
	for _, tp := range c.target.Packages {
		bp := c.base.FindPackage(tp.SchemaOwner, tp.Name)
		switch {
		case bp == nil:
			sql, err := c.create.AddPackage(tp)
			r.add(ObjectPackage, Add, tp.SchemaOwner, "", tp.Name, sql, err)
		case !normalizedEqual(n, bp.Definition, tp.Definition) || !normalizedEqual(n, bp.Body, tp.Body):
			// CREATE OR REPLACE needs no drop.
			sql, err := c.create.AddPackage(tp)
			r.add(ObjectPackage, Change, tp.SchemaOwner, "", tp.Name, sql, err)
		}
	}
}

func (c *comparison) sequences(r *results) {
	for _, ts := range c.target.Sequences {
		bs := c.base.FindSequence(ts.SchemaOwner, ts.Name)
		switch {
		case bs == nil:
			sql, err := c.create.AddSequence(ts)
			r.add(ObjectSequence, Add, ts.SchemaOwner, "", ts.Name, sql, err)
		case !sequenceEqual(bs, ts):
			r.change(ObjectSequence, ts.SchemaOwner, "", ts.Name,
				func() (string, error) { return c.drop.DropSequence(bs) },
				func() (string, error) { return c.create.AddSequence(ts) })
		}
	}
	for _, bs := range c.base.Sequences {
		if c.target.FindSequence(bs.SchemaOwner, bs.Name) == nil {
			sql, err := c.drop.DropSequence(bs)
			r.add(ObjectSequence, Delete, bs.SchemaOwner, "", bs.Name, sql, err)
		}
	}
}

func sequenceEqual(a, b *schema.Sequence) bool {
	return a.StartValue == b.StartValue &&
		a.IncrementBy == b.IncrementBy &&
		equalPointee(a.MinimumValue, b.MinimumValue) &&
		equalPointee(a.MaximumValue, b.MaximumValue) &&
		a.Cycle == b.Cycle
}

func equalPointee[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
