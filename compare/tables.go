package compare

import (
	"regexp"
	"slices"
	"strings"

	"github.com/sqldef/schemadef/ddl"
	"github.com/sqldef/schemadef/schema"
)

type cascadedForeignKey struct {
	child *schema.Table
	fk    *schema.Constraint
}

func foreignKeyID(t *schema.Table, fk *schema.Constraint) string {
	return t.Key().Fold() + "/" + fk.Key()
}

// tables compares tables in this order: added tables (with their indexes
// and triggers), the changes of each kept table, foreign keys taken down
// by a dropped key and kept by the target, foreign keys of added tables,
// and finally deleted tables after every foreign key pointing at them.
func (c *comparison) tables(r *results) {
	c.cascaded = c.cascadedForeignKeys()
	cascaded := map[string]bool{}
	for _, cfk := range c.cascaded {
		id := foreignKeyID(cfk.child, cfk.fk)
		cascaded[id] = true
		c.dropped[id] = true
	}

	targetTables := ddl.SortTables(c.target)
	var added []*schema.Table
	for _, tt := range targetTables {
		if c.base.FindTable(tt.SchemaOwner, tt.Name) != nil {
			continue
		}
		added = append(added, tt)
		sql, err := c.create.AddTable(tt)
		r.add(ObjectTable, Add, tt.SchemaOwner, tt.Name, tt.Name, sql, err)
		for _, trigger := range tt.Triggers {
			sql, err := c.create.AddTrigger(tt, trigger)
			r.add(ObjectTrigger, Add, tt.SchemaOwner, tt.Name, trigger.Name, sql, err)
		}
	}

	for _, tt := range targetTables {
		if bt := c.base.FindTable(tt.SchemaOwner, tt.Name); bt != nil {
			c.table(r, bt, tt, cascaded)
		}
	}
	c.restoreForeignKeys(r)

	// SQLite declared them inside CREATE TABLE.
	if c.engine.dialect.Capabilities.AddConstraint {
		for _, tt := range added {
			for _, fk := range tt.ForeignKeys {
				sql, err := c.create.AddConstraint(tt, fk)
				r.add(ObjectConstraint, Add, tt.SchemaOwner, tt.Name, constraintName(fk), sql, err)
			}
		}
	}

	c.deletedTables(r)
}

// cascadedForeignKeys finds the foreign keys of the base schema whose
// referenced primary or unique key is dropped, either because the target
// changes or removes it or because one of its columns goes away.
func (c *comparison) cascadedForeignKeys() []cascadedForeignKey {
	var cascaded []cascadedForeignKey
	for _, bt := range c.base.Tables {
		tt := c.target.FindTable(bt.SchemaOwner, bt.Name)
		if tt == nil {
			continue
		}
		for _, key := range keyConstraints(bt) {
			tk := matchConstraint(tt, key)
			if tk != nil && constraintEqual(key, tk) && !droppedWithColumn(tt, key) {
				continue
			}
			for _, child := range c.base.ChildTables(bt) {
				if child == bt {
					continue
				}
				for _, fk := range child.ForeignKeys {
					if c.base.ReferencedTable(fk) == bt && ddl.ReferencesKey(bt, fk, key) {
						cascaded = append(cascaded, cascadedForeignKey{child: child, fk: fk})
					}
				}
			}
		}
	}
	return cascaded
}

func keyConstraints(t *schema.Table) []*schema.Constraint {
	var keys []*schema.Constraint
	if t.PrimaryKey != nil {
		keys = append(keys, t.PrimaryKey)
	}
	return append(keys, t.UniqueKeys...)
}

// table compares one table present in both schemas. Constraint, index and
// trigger drops come first, then column changes, then constraint, index and
// trigger additions.
func (c *comparison) table(r *results, bt, tt *schema.Table, cascaded map[string]bool) {
	owner, name := tt.SchemaOwner, tt.Name

	for _, bc := range dropOrder(bt) {
		if matchConstraint(tt, bc) != nil || droppedWithColumn(tt, bc) {
			continue
		}
		if bc.ConstraintType == schema.ForeignKey {
			id := foreignKeyID(bt, bc)
			if c.dropped[id] {
				continue
			}
			c.dropped[id] = true
		}
		sql, err := c.drop.DropConstraint(bt, bc)
		r.add(ObjectConstraint, Delete, owner, name, constraintName(bc), sql, err)
	}
	for _, bi := range bt.Indexes {
		if ddl.BacksConstraint(bt, bi) || tt.FindIndex(bi.Name) != nil || indexDroppedWithColumn(tt, bi) {
			continue
		}
		sql, err := c.drop.DropIndex(bt, bi)
		r.add(ObjectIndex, Delete, owner, name, bi.Name, sql, err)
	}
	for _, trigger := range bt.Triggers {
		if tt.FindTrigger(trigger.Name) == nil {
			sql, err := c.drop.DropTrigger(bt, trigger)
			r.add(ObjectTrigger, Delete, owner, name, trigger.Name, sql, err)
		}
	}

	c.columns(r, bt, tt)

	for _, tc := range createOrder(tt) {
		bc := matchConstraint(bt, tc)
		switch {
		case bc == nil:
			sql, err := c.create.AddConstraint(tt, tc)
			r.add(ObjectConstraint, Add, owner, name, constraintName(tc), sql, err)
		case tc.ConstraintType == schema.ForeignKey && cascaded[foreignKeyID(bt, bc)]:
			// restored once every referenced key is back
		case droppedWithColumn(tt, bc):
			sql, err := c.create.AddConstraint(tt, tc)
			r.add(ObjectConstraint, Change, owner, name, constraintName(tc), sql, err)
		case !constraintEqual(bc, tc):
			if bc.ConstraintType == schema.ForeignKey {
				c.dropped[foreignKeyID(bt, bc)] = true
			}
			r.change(ObjectConstraint, owner, name, constraintName(tc),
				func() (string, error) { return c.drop.DropConstraint(bt, bc) },
				func() (string, error) { return c.create.AddConstraint(tt, tc) })
		}
	}

	for _, ti := range tt.Indexes {
		if ddl.BacksConstraint(tt, ti) {
			continue
		}
		bi := bt.FindIndex(ti.Name)
		switch {
		case bi == nil:
			sql, err := c.create.AddIndex(tt, ti)
			r.add(ObjectIndex, Add, owner, name, ti.Name, sql, err)
		case indexDroppedWithColumn(tt, bi):
			sql, err := c.create.AddIndex(tt, ti)
			r.add(ObjectIndex, Change, owner, name, ti.Name, sql, err)
		case !indexEqual(bi, ti):
			r.change(ObjectIndex, owner, name, ti.Name,
				func() (string, error) { return c.drop.DropIndex(bt, bi) },
				func() (string, error) { return c.create.AddIndex(tt, ti) })
		}
	}

	for _, trigger := range tt.Triggers {
		before := bt.FindTrigger(trigger.Name)
		switch {
		case before == nil:
			sql, err := c.create.AddTrigger(tt, trigger)
			r.add(ObjectTrigger, Add, owner, name, trigger.Name, sql, err)
		case !c.triggerEqual(before, trigger):
			r.change(ObjectTrigger, owner, name, trigger.Name,
				func() (string, error) { return c.drop.DropTrigger(bt, before) },
				func() (string, error) { return c.create.AddTrigger(tt, trigger) })
		}
	}
}

// columns adds, alters, re-defaults and drops columns, in that order.
func (c *comparison) columns(r *results, bt, tt *schema.Table) {
	owner, name := tt.SchemaOwner, tt.Name
	for _, tc := range tt.Columns {
		bc := bt.FindColumn(tc.Name)
		switch {
		case bc == nil:
			sql, err := c.create.AddColumn(tt, tc)
			r.add(ObjectColumn, Add, owner, name, tc.Name, sql, err)
		case columnChanged(bc, tc):
			sql, err := c.create.AlterColumn(tt, tc, bc)
			r.add(ObjectColumn, Change, owner, name, tc.Name, sql, err)
		}
	}
	for _, tc := range tt.Columns {
		if bc := bt.FindColumn(tc.Name); bc != nil {
			c.columnDefault(r, bt, tt, bc, tc)
		}
	}

	var gone []*schema.Column
	for _, bc := range bt.Columns {
		if tt.FindColumn(bc.Name) == nil {
			gone = append(gone, bc)
		}
	}
	if len(gone) == 0 {
		return
	}
	// Foreign keys a parent key drop already took down stay dropped.
	already := map[string]bool{}
	for _, fk := range bt.ForeignKeys {
		id := foreignKeyID(bt, fk)
		if _, ok := already[id]; ok {
			continue
		}
		for _, bc := range gone {
			if fk.HasColumn(bc.Name) {
				already[id] = c.dropped[id]
				c.dropped[id] = true
				break
			}
		}
	}
	scripts, err := c.drop.DropColumns(bt, gone, func(fk *schema.Constraint) bool {
		return already[foreignKeyID(bt, fk)]
	})
	if err != nil {
		r.add(ObjectColumn, Delete, owner, name, gone[0].Name, "", err)
		return
	}
	for i, bc := range gone {
		r.add(ObjectColumn, Delete, owner, name, bc.Name, scripts[i], nil)
	}
}

// columnDefault drops the old default and adds the new one when the
// expression changes. A default without a named constraint is treated as
// an unnamed Default constraint.
func (c *comparison) columnDefault(r *results, bt, tt *schema.Table, bc, tc *schema.Column) {
	before, after := defaultOf(bt, bc), defaultOf(tt, tc)
	switch {
	case before == nil && after == nil:
		return
	case before != nil && after != nil && expressionEqual(before.Expression, after.Expression):
		return
	}

	var script strings.Builder
	resultType, name := Change, tc.Name
	if before != nil {
		sql, err := c.drop.DropConstraint(bt, before)
		if err != nil {
			r.add(ObjectDefault, Delete, tt.SchemaOwner, tt.Name, name, "", err)
			return
		}
		script.WriteString(sql)
		if before.Name != "" {
			name = before.Name
		}
	} else {
		resultType = Add
	}
	if after != nil {
		sql, err := c.create.AddConstraint(tt, after)
		if err != nil {
			r.add(ObjectDefault, Add, tt.SchemaOwner, tt.Name, name, "", err)
			return
		}
		script.WriteString(sql)
		if after.Name != "" {
			name = after.Name
		}
	} else {
		resultType = Delete
	}
	r.add(ObjectDefault, resultType, tt.SchemaOwner, tt.Name, name, script.String(), nil)
}

func defaultOf(t *schema.Table, column *schema.Column) *schema.Constraint {
	if dc := t.DefaultConstraintFor(column.Name); dc != nil {
		return dc
	}
	if column.DefaultValue == "" {
		return nil
	}
	return &schema.Constraint{
		SchemaOwner:    t.SchemaOwner,
		TableName:      t.Name,
		ConstraintType: schema.Default,
		Columns:        []string{column.Name},
		Expression:     column.DefaultValue,
	}
}

// restoreForeignKeys adds back the cascaded foreign keys the target keeps.
func (c *comparison) restoreForeignKeys(r *results) {
	for _, cfk := range c.cascaded {
		tt := c.target.FindTable(cfk.child.SchemaOwner, cfk.child.Name)
		if tt == nil {
			continue
		}
		fk := matchConstraint(tt, cfk.fk)
		if fk == nil {
			continue
		}
		sql, err := c.create.AddConstraint(tt, fk)
		r.add(ObjectConstraint, Add, tt.SchemaOwner, tt.Name, constraintName(fk), sql, err)
	}
}

// deletedTables drops every foreign key pointing at a deleted table, then
// the deleted tables, children before parents.
func (c *comparison) deletedTables(r *results) {
	sorted := ddl.SortTables(c.base)
	var deleted []*schema.Table
	for i := len(sorted) - 1; i >= 0; i-- {
		if c.target.FindTable(sorted[i].SchemaOwner, sorted[i].Name) == nil {
			deleted = append(deleted, sorted[i])
		}
	}

	for _, bt := range deleted {
		for _, fk := range c.base.ChildForeignKeys(bt) {
			child := c.base.FindTable(fk.SchemaOwner, fk.TableName)
			if child == nil || child == bt {
				continue
			}
			id := foreignKeyID(child, fk)
			if c.dropped[id] {
				continue
			}
			c.dropped[id] = true
			sql, err := c.drop.DropForeignKeyIfExists(child, fk)
			r.add(ObjectConstraint, Delete, child.SchemaOwner, child.Name, constraintName(fk), sql, err)
		}
	}
	for _, bt := range deleted {
		sql, err := c.drop.DropTableStatement(bt)
		r.add(ObjectTable, Delete, bt.SchemaOwner, bt.Name, bt.Name, sql, err)
	}
}

// dropOrder lists the constraints to consider for dropping: foreign keys
// first, the primary key last. Defaults go with their columns.
func dropOrder(t *schema.Table) []*schema.Constraint {
	var order []*schema.Constraint
	order = append(order, t.ForeignKeys...)
	order = append(order, t.CheckConstraints...)
	order = append(order, t.UniqueKeys...)
	if t.PrimaryKey != nil {
		order = append(order, t.PrimaryKey)
	}
	return order
}

// createOrder is the reverse: the primary key first, foreign keys last.
func createOrder(t *schema.Table) []*schema.Constraint {
	order := dropOrder(t)
	slices.Reverse(order)
	return order
}

// matchConstraint finds the counterpart of c in t. Primary keys pair up
// regardless of name; others pair by name, unnamed checks by expression.
func matchConstraint(t *schema.Table, c *schema.Constraint) *schema.Constraint {
	var candidates []*schema.Constraint
	switch c.ConstraintType {
	case schema.PrimaryKey:
		return t.PrimaryKey
	case schema.UniqueKey:
		candidates = t.UniqueKeys
	case schema.Check:
		candidates = t.CheckConstraints
	case schema.ForeignKey:
		candidates = t.ForeignKeys
	case schema.Default:
		candidates = t.DefaultConstraints
	}
	for _, other := range candidates {
		if c.ConstraintType == schema.Check && c.Name == "" {
			if other.Name == "" && expressionEqual(c.Expression, other.Expression) {
				return other
			}
			continue
		}
		if other.Key() == c.Key() {
			return other
		}
	}
	return nil
}

// droppedWithColumn reports a key or default of the base table that
// Migration.DropColumn removes together with a column the target lacks.
func droppedWithColumn(target *schema.Table, c *schema.Constraint) bool {
	if c.ConstraintType == schema.Check {
		return false
	}
	for _, col := range c.Columns {
		if target.FindColumn(col) == nil {
			return true
		}
	}
	return false
}

func indexDroppedWithColumn(target *schema.Table, index *schema.Index) bool {
	for _, col := range index.Columns {
		if target.FindColumn(col.Name) == nil {
			return true
		}
	}
	return false
}

func columnChanged(a, b *schema.Column) bool {
	return !strings.EqualFold(strings.TrimSpace(a.DbDataType), strings.TrimSpace(b.DbDataType)) ||
		a.Length != b.Length ||
		a.Precision != b.Precision ||
		a.Scale != b.Scale ||
		a.Nullable != b.Nullable
}

func constraintEqual(a, b *schema.Constraint) bool {
	if a.ConstraintType != b.ConstraintType || !schema.EqualFold(a.Name, b.Name) || !a.ColumnsEqual(b) {
		return false
	}
	switch a.ConstraintType {
	case schema.Check, schema.Default:
		return expressionEqual(a.Expression, b.Expression)
	case schema.ForeignKey:
		if a.RefersToConstraint != "" && b.RefersToConstraint != "" && !schema.EqualFold(a.RefersToConstraint, b.RefersToConstraint) {
			return false
		}
		return schema.EqualFold(a.RefersToTable, b.RefersToTable) &&
			ddl.ReferentialRule(a.DeleteRule) == ddl.ReferentialRule(b.DeleteRule) &&
			ddl.ReferentialRule(a.UpdateRule) == ddl.ReferentialRule(b.UpdateRule)
	}
	return true
}

func indexEqual(a, b *schema.Index) bool {
	if a.IsUnique != b.IsUnique || !strings.EqualFold(a.IndexType, b.IndexType) {
		return false
	}
	return slices.EqualFunc(a.SortedColumns(), b.SortedColumns(), func(x, y schema.IndexColumn) bool {
		return schema.EqualFold(x.Name, y.Name) && x.Descending == y.Descending
	})
}

func (c *comparison) triggerEqual(a, b *schema.Trigger) bool {
	return strings.EqualFold(a.TriggerType, b.TriggerType) &&
		strings.EqualFold(a.TriggerEvent, b.TriggerEvent) &&
		normalizedEqual(c.engine.normalizer, a.TriggerBody, b.TriggerBody)
}

var parenthesizedLiteral = regexp.MustCompile(`(^|[^\w$#])\((-?[\d.]+|'[^']*')\)`)

// expressionEqual compares check and default expressions the way catalogs
// disagree on them: quoting, spacing, redundant parentheses.
func expressionEqual(a, b string) bool {
	return normalizeExpression(a) == normalizeExpression(b)
}

func normalizeExpression(e string) string {
	e = TextNormalizer{}.Normalize(e)
	for {
		stripped := parenthesizedLiteral.ReplaceAllString(e, "$1$2")
		stripped = stripOuterParens(stripped)
		if stripped == e {
			return e
		}
		e = stripped
	}
}

// stripOuterParens removes one pair of parentheses enclosing the whole
// expression.
func stripOuterParens(e string) string {
	if !strings.HasPrefix(e, "(") || !strings.HasSuffix(e, ")") {
		return e
	}
	depth := 0
	for i, r := range e {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i < len(e)-1 {
				return e
			}
		}
	}
	return strings.TrimSpace(e[1 : len(e)-1])
}
