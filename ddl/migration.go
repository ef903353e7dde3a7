package ddl

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/schema"
)

// Migration renders incremental statements. The schema it is built with is
// the one the objects passed to it belong to: foreign key targets and child
// tables are resolved there.
//
// Operations the dialect cannot perform return a comment instead of a
// statement; missing input returns an error.
type Migration struct {
	w *writer
}

func NewMigration(d *dialect.Dialect, s *schema.Schema, opts Options) *Migration {
	return &Migration{w: newWriter(d, s, opts)}
}

func (m *Migration) caps() dialect.Capabilities {
	return m.w.dialect.Capabilities
}

// AddTable renders CREATE TABLE with its indexes. Foreign keys are left to
// AddConstraint unless the dialect only declares them inline.
func (m *Migration) AddTable(t *schema.Table) (string, error) {
	if t == nil {
		return "", ErrNilArgument
	}
	return m.w.createTable(t)
}

func (m *Migration) AddColumn(t *schema.Table, c *schema.Column) (string, error) {
	if t == nil || c == nil {
		return "", ErrNilArgument
	}
	return m.w.statement(fmt.Sprintf("ALTER TABLE %s ADD %s", m.w.tableName(t), m.w.columnDefinition(t, c))) +
		m.w.identityEmulation(t, c), nil
}

// AlterColumn always starts with a comment summarizing the change. The
// statement follows only when the dialect alters columns in place and the
// column is neither a key column nor a row version; otherwise a TODO
// comment asks for manual handling.
func (m *Migration) AlterColumn(t *schema.Table, c, original *schema.Column) (string, error) {
	if t == nil || c == nil {
		return "", ErrNilArgument
	}
	if original == nil {
		original = c
	}
	w := m.w
	out := w.comment(fmt.Sprintf("%s.%s from %s to %s", t.Name, c.Name, w.describeColumn(t, original), w.describeColumn(t, c)))

	switch {
	case !m.caps().AlterColumn:
		out += w.comment(fmt.Sprintf("TODO: %s cannot alter %s.%s in place; recreate the table", w.dialect.Provider, t.Name, c.Name))
	case isKeyColumn(t, c.Name):
		out += w.comment(fmt.Sprintf("TODO: %s.%s is part of a primary or foreign key; alter it manually", t.Name, c.Name))
	case dialect.IsRowVersion(w.source(), c.DbDataType) || dialect.IsRowVersion(w.source(), original.DbDataType):
		out += w.comment(fmt.Sprintf("TODO: %s.%s is a row version column and cannot be altered", t.Name, c.Name))
	default:
		out += w.syntax.alterColumn(w, t, original, c)
	}
	return out, nil
}

func isKeyColumn(t *schema.Table, column string) bool {
	if t.PrimaryKey != nil && t.PrimaryKey.HasColumn(column) {
		return true
	}
	for _, fk := range t.ForeignKeys {
		if fk.HasColumn(column) {
			return true
		}
	}
	return false
}

// DropColumn drops one column; see DropColumns.
func (m *Migration) DropColumn(t *schema.Table, c *schema.Column) (string, error) {
	scripts, err := m.DropColumns(t, []*schema.Column{c}, nil)
	if err != nil {
		return "", err
	}
	return scripts[0], nil
}

// DropColumns returns one script per column. Each script first drops what
// depends on its column: foreign keys of other tables referencing a key
// that covers it, then the table's own foreign, unique and primary keys,
// default and indexes on it. A dependent shared by several columns is
// dropped once, in the script of the first. Foreign keys of t for which
// skip reports true were dropped elsewhere and are left out.
func (m *Migration) DropColumns(t *schema.Table, columns []*schema.Column, skip func(fk *schema.Constraint) bool) ([]string, error) {
	if t == nil {
		return nil, ErrNilArgument
	}
	for _, c := range columns {
		if c == nil {
			return nil, ErrNilArgument
		}
	}
	w := m.w
	scripts := make([]string, len(columns))
	if !m.caps().DropColumn {
		for i, c := range columns {
			scripts[i] = w.comment(fmt.Sprintf("%s cannot drop column %s from %s; recreate the table", w.dialect.Provider, c.Name, t.Name))
		}
		return scripts, nil
	}

	seen := map[*schema.Constraint]bool{}
	seenIndexes := map[*schema.Index]bool{}
	claim := func(c *schema.Constraint) bool {
		if seen[c] {
			return false
		}
		seen[c] = true
		return true
	}
	for i, c := range columns {
		var out strings.Builder
		var keys []*schema.Constraint
		if t.PrimaryKey != nil && t.PrimaryKey.HasColumn(c.Name) && claim(t.PrimaryKey) {
			keys = append(keys, t.PrimaryKey)
		}
		for _, uk := range t.UniqueKeys {
			if uk.HasColumn(c.Name) && claim(uk) {
				keys = append(keys, uk)
			}
		}
		for _, key := range keys {
			if err := m.writeChildDrops(&out, t, key); err != nil {
				return nil, err
			}
		}

		var dependents []*schema.Constraint
		for _, fk := range t.ForeignKeys {
			if fk.HasColumn(c.Name) && claim(fk) && (skip == nil || !skip(fk)) {
				dependents = append(dependents, fk)
			}
		}
		dependents = append(dependents, keys...)
		for _, dc := range t.DefaultConstraints {
			if dc.HasColumn(c.Name) && dc.Name != "" && m.caps().NamedDefaults && claim(dc) {
				dependents = append(dependents, dc)
			}
		}
		for _, dep := range dependents {
			sql, err := w.syntax.dropConstraint(w, t, dep)
			if err != nil {
				return nil, err
			}
			out.WriteString(sql)
		}
		for _, index := range t.Indexes {
			if index.HasColumn(c.Name) && !BacksConstraint(t, index) && !seenIndexes[index] {
				seenIndexes[index] = true
				out.WriteString(w.syntax.dropIndex(w, t, index))
			}
		}

		out.WriteString(w.statement(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", w.tableName(t), w.name(c.Name))))
		scripts[i] = out.String()
	}
	return scripts, nil
}

// writeChildDrops drops the foreign keys of other tables that reference key.
func (m *Migration) writeChildDrops(out *strings.Builder, t *schema.Table, key *schema.Constraint) error {
	if m.w.schema == nil {
		return nil
	}
	for _, child := range m.w.schema.ChildTables(t) {
		if child == t {
			continue
		}
		for _, fk := range child.ForeignKeys {
			if m.w.schema.ReferencedTable(fk) != t || !ReferencesKey(t, fk, key) {
				continue
			}
			sql, err := m.DropForeignKeyIfExists(child, fk)
			if err != nil {
				return err
			}
			out.WriteString(sql)
		}
	}
	return nil
}

// ReferencesKey reports whether fk points at key of parent: by constraint
// name, or at the primary key when it names none.
func ReferencesKey(parent *schema.Table, fk, key *schema.Constraint) bool {
	if fk.RefersToConstraint != "" {
		return schema.EqualFold(fk.RefersToConstraint, key.Name)
	}
	return key == parent.PrimaryKey
}

// RenameColumn renames originalName to c.Name.
func (m *Migration) RenameColumn(t *schema.Table, c *schema.Column, originalName string) (string, error) {
	if t == nil || c == nil {
		return "", ErrNilArgument
	}
	if !m.caps().RenameColumn {
		return m.w.comment(fmt.Sprintf("%s cannot rename column %s.%s to %s", m.w.dialect.Provider, t.Name, originalName, c.Name)), nil
	}
	return m.w.syntax.renameColumn(m.w, t, c, originalName), nil
}

// RenameTable renames originalName to t.Name.
func (m *Migration) RenameTable(t *schema.Table, originalName string) (string, error) {
	if t == nil {
		return "", ErrNilArgument
	}
	return m.w.syntax.renameTable(m.w, t.SchemaOwner, originalName, t.Name), nil
}

func (m *Migration) AddConstraint(t *schema.Table, c *schema.Constraint) (string, error) {
	if t == nil || c == nil {
		return "", ErrNilArgument
	}
	return m.w.addConstraint(t, c)
}

// DropConstraint drops a constraint. Dropping a primary or unique key first
// drops the foreign keys of other tables that reference it.
func (m *Migration) DropConstraint(t *schema.Table, c *schema.Constraint) (string, error) {
	if t == nil || c == nil {
		return "", ErrNilArgument
	}
	w := m.w
	if c.ConstraintType == schema.Default && len(c.Columns) == 0 {
		return "", fmt.Errorf("default %q on %s: %w", c.Name, t.Name, ErrNoColumns)
	}
	if !m.caps().AddConstraint {
		return w.comment(fmt.Sprintf("%s cannot drop constraint %s from %s; recreate the table", w.dialect.Provider, constraintLabel(c), t.Name)), nil
	}
	if c.ConstraintType == schema.Check {
		if _, ok := w.checkExpression(c); !ok {
			return "", nil
		}
	}

	var out strings.Builder
	if c.ConstraintType == schema.PrimaryKey || c.ConstraintType == schema.UniqueKey {
		if err := m.writeChildDrops(&out, t, c); err != nil {
			return "", err
		}
	}
	sql, err := w.syntax.dropConstraint(w, t, c)
	if err != nil {
		return "", err
	}
	out.WriteString(sql)
	return out.String(), nil
}

func constraintLabel(c *schema.Constraint) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Key()
}

func (m *Migration) AddIndex(t *schema.Table, index *schema.Index) (string, error) {
	if t == nil || index == nil {
		return "", ErrNilArgument
	}
	if len(index.Columns) == 0 {
		return "", fmt.Errorf("index %q on %s: %w", index.Name, t.Name, ErrNoColumns)
	}
	return m.w.syntax.createIndex(m.w, t, index), nil
}

func (m *Migration) DropIndex(t *schema.Table, index *schema.Index) (string, error) {
	if t == nil || index == nil {
		return "", ErrNilArgument
	}
	return m.w.syntax.dropIndex(m.w, t, index), nil
}

func (m *Migration) AddView(v *schema.View) (string, error) {
	if v == nil {
		return "", ErrNilArgument
	}
	w := m.w
	if !m.caps().Views {
		return w.comment(fmt.Sprintf("%s has no views: %s", w.dialect.Provider, v.Name)), nil
	}
	sql := strings.TrimSpace(v.Sql)
	if !hasCreateHeader(sql) {
		sql = fmt.Sprintf("CREATE VIEW %s AS%s%s", w.qualified(v.SchemaOwner, v.Name), w.nl(), sql)
	}
	if w.dialect.Syntax.BatchSeparator == "GO" {
		return w.syntax.block(w, sql), nil
	}
	return w.statement(strings.TrimSuffix(sql, w.terminator())), nil
}

func (m *Migration) DropView(v *schema.View) (string, error) {
	if v == nil {
		return "", ErrNilArgument
	}
	if !m.caps().Views {
		return m.w.comment(fmt.Sprintf("%s has no views: %s", m.w.dialect.Provider, v.Name)), nil
	}
	return m.w.statement("DROP VIEW " + m.w.qualified(v.SchemaOwner, v.Name)), nil
}

func (m *Migration) AddProcedure(r *schema.Routine) (string, error) {
	return m.addRoutine(r, "PROCEDURE")
}

func (m *Migration) DropProcedure(r *schema.Routine) (string, error) {
	return m.dropRoutine(r)
}

func (m *Migration) AddFunction(r *schema.Routine) (string, error) {
	return m.addRoutine(r, "FUNCTION")
}

func (m *Migration) DropFunction(r *schema.Routine) (string, error) {
	return m.dropRoutine(r)
}

func (m *Migration) addRoutine(r *schema.Routine, kind string) (string, error) {
	if r == nil {
		return "", ErrNilArgument
	}
	if !m.caps().Procedures {
		return m.w.comment(fmt.Sprintf("%s has no stored routines: %s", m.w.dialect.Provider, r.Name)), nil
	}
	return m.w.routine(kind, r.SchemaOwner, r.Name, r.Sql), nil
}

func (m *Migration) dropRoutine(r *schema.Routine) (string, error) {
	if r == nil {
		return "", ErrNilArgument
	}
	if !m.caps().Procedures {
		return m.w.comment(fmt.Sprintf("%s has no stored routines: %s", m.w.dialect.Provider, r.Name)), nil
	}
	return m.w.syntax.dropRoutine(m.w, r), nil
}

// AddPackage renders the package specification and, when present, its body.
func (m *Migration) AddPackage(p *schema.Package) (string, error) {
	if p == nil {
		return "", ErrNilArgument
	}
	w := m.w
	if !m.caps().Packages {
		return w.comment(fmt.Sprintf("%s has no packages: %s", w.dialect.Provider, p.Name)), nil
	}
	out := w.routine("PACKAGE", p.SchemaOwner, p.Name, p.Definition)
	if strings.TrimSpace(p.Body) != "" {
		out += w.routine("PACKAGE BODY", p.SchemaOwner, p.Name, p.Body)
	}
	return out, nil
}

func (m *Migration) DropPackage(p *schema.Package) (string, error) {
	if p == nil {
		return "", ErrNilArgument
	}
	if !m.caps().Packages {
		return m.w.comment(fmt.Sprintf("%s has no packages: %s", m.w.dialect.Provider, p.Name)), nil
	}
	return m.w.statement("DROP PACKAGE " + m.w.qualified(p.SchemaOwner, p.Name)), nil
}

func (m *Migration) AddTrigger(t *schema.Table, trigger *schema.Trigger) (string, error) {
	if t == nil || trigger == nil {
		return "", ErrNilArgument
	}
	return m.w.syntax.createTrigger(m.w, t, trigger), nil
}

func (m *Migration) DropTrigger(t *schema.Table, trigger *schema.Trigger) (string, error) {
	if t == nil || trigger == nil {
		return "", ErrNilArgument
	}
	return m.w.syntax.dropTrigger(m.w, t, trigger), nil
}

func (m *Migration) AddSequence(seq *schema.Sequence) (string, error) {
	if seq == nil {
		return "", ErrNilArgument
	}
	return createSequence(m.w, seq), nil
}

func (m *Migration) DropSequence(seq *schema.Sequence) (string, error) {
	if seq == nil {
		return "", ErrNilArgument
	}
	sql := "DROP SEQUENCE " + m.w.qualified(seq.SchemaOwner, seq.Name)
	if !m.caps().Sequences {
		return m.w.comment(fmt.Sprintf("%s has no sequences: %s", m.w.dialect.Provider, sql)), nil
	}
	return m.w.statement(sql), nil
}

// DropTable drops, guarded by existence, every foreign key of a child table
// that points at t, then t itself.
func (m *Migration) DropTable(t *schema.Table) (string, error) {
	if t == nil {
		return "", ErrNilArgument
	}
	var out strings.Builder
	if s := m.w.schema; s != nil {
		for _, fk := range s.ChildForeignKeys(t) {
			child := s.FindTable(fk.SchemaOwner, fk.TableName)
			if child == nil || child == t {
				continue
			}
			sql, err := m.DropForeignKeyIfExists(child, fk)
			if err != nil {
				return "", err
			}
			out.WriteString(sql)
		}
	}
	sql, err := m.DropTableStatement(t)
	if err != nil {
		return "", err
	}
	out.WriteString(sql)
	return out.String(), nil
}

// DropTableStatement is the bare DROP TABLE, without child key handling.
func (m *Migration) DropTableStatement(t *schema.Table) (string, error) {
	if t == nil {
		return "", ErrNilArgument
	}
	return m.w.statement("DROP TABLE " + m.w.tableName(t)), nil
}

func (m *Migration) DropForeignKeyIfExists(t *schema.Table, fk *schema.Constraint) (string, error) {
	if t == nil || fk == nil {
		return "", ErrNilArgument
	}
	if fk.Name == "" && m.caps().AddConstraint {
		return "", fmt.Errorf("drop foreign key on %s: %w", t.Name, ErrUnnamedConstraint)
	}
	return m.w.syntax.dropForeignKeyIfExists(m.w, t, fk), nil
}
