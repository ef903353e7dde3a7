package ddl

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/schema"
)

// Generator renders a whole schema as a CREATE script.
type Generator struct {
	dialect *dialect.Dialect
	opts    Options
}

func NewGenerator(d *dialect.Dialect, opts Options) *Generator {
	return &Generator{dialect: d, opts: opts}
}

// Write renders every table in foreign key dependency order, then every
// foreign key in a second pass so forward references never fail, then a
// commented-out block dropping the tables again.
func (g *Generator) Write(s *schema.Schema) (string, error) {
	if s == nil || g.dialect == nil {
		return "", ErrNilArgument
	}
	w := newWriter(g.dialect, s, g.opts)
	tables := SortTables(s)

	var out strings.Builder
	g.header(w, &out, s)
	if err := g.writeTables(w, &out, tables); err != nil {
		return "", err
	}
	if err := g.writeForeignKeys(w, &out, tables); err != nil {
		return "", err
	}
	g.writeDropBlock(w, &out, tables)
	return out.String(), nil
}

// WriteAll renders sequences, tables, foreign keys, views, functions,
// procedures, packages and triggers, followed by the commented drop block.
func (g *Generator) WriteAll(s *schema.Schema) (string, error) {
	if s == nil || g.dialect == nil {
		return "", ErrNilArgument
	}
	w := newWriter(g.dialect, s, g.opts)
	tables := SortTables(s)

	var out strings.Builder
	g.header(w, &out, s)
	for _, seq := range s.Sequences {
		out.WriteString(createSequence(w, seq))
	}
	if err := g.writeTables(w, &out, tables); err != nil {
		return "", err
	}
	if err := g.writeForeignKeys(w, &out, tables); err != nil {
		return "", err
	}
	procedures, err := g.WriteProcedures(s)
	if err != nil {
		return "", err
	}
	out.WriteString(procedures)
	g.writeDropBlock(w, &out, tables)
	return out.String(), nil
}

// WriteTable renders one CREATE TABLE with its indexes.
func (g *Generator) WriteTable(s *schema.Schema, t *schema.Table) (string, error) {
	if t == nil || g.dialect == nil {
		return "", ErrNilArgument
	}
	return newWriter(g.dialect, s, g.opts).createTable(t)
}

// WriteForeignKeys renders the ALTER TABLE ... ADD statements for the
// foreign keys of one table.
func (g *Generator) WriteForeignKeys(s *schema.Schema, t *schema.Table) (string, error) {
	if t == nil || g.dialect == nil {
		return "", ErrNilArgument
	}
	var out strings.Builder
	if err := g.writeForeignKeys(newWriter(g.dialect, s, g.opts), &out, []*schema.Table{t}); err != nil {
		return "", err
	}
	return out.String(), nil
}

// WriteProcedures renders views (dependency ordered), functions, stored
// procedures, packages and table triggers. Kinds the dialect lacks become
// comments.
func (g *Generator) WriteProcedures(s *schema.Schema) (string, error) {
	if s == nil || g.dialect == nil {
		return "", ErrNilArgument
	}
	m := &Migration{w: newWriter(g.dialect, s, g.opts)}
	var out strings.Builder
	add := func(sql string, err error) error {
		if err != nil {
			return err
		}
		if sql != "" {
			out.WriteString(m.w.nl())
			out.WriteString(sql)
		}
		return nil
	}

	for _, v := range SortViews(s.Views) {
		if err := add(m.AddView(v)); err != nil {
			return "", err
		}
	}
	for _, f := range s.Functions {
		if err := add(m.AddFunction(f)); err != nil {
			return "", err
		}
	}
	for _, p := range s.StoredProcedures {
		if err := add(m.AddProcedure(p)); err != nil {
			return "", err
		}
	}
	for _, p := range s.Packages {
		if err := add(m.AddPackage(p)); err != nil {
			return "", err
		}
	}
	for _, t := range s.Tables {
		for _, trigger := range t.Triggers {
			if err := add(m.AddTrigger(t, trigger)); err != nil {
				return "", err
			}
		}
	}
	return out.String(), nil
}

func (g *Generator) header(w *writer, out *strings.Builder, s *schema.Schema) {
	if !g.opts.CommentHeader {
		return
	}
	source := string(s.Provider)
	if source == "" {
		source = "unknown"
	}
	out.WriteString(w.comment(fmt.Sprintf("%s DDL for %d tables (source: %s)", g.dialect.Provider, len(s.Tables), source)))
	out.WriteString(w.nl())
}

func (g *Generator) writeTables(w *writer, out *strings.Builder, tables []*schema.Table) error {
	for i, t := range tables {
		sql, err := w.createTable(t)
		if err != nil {
			return err
		}
		if i > 0 {
			out.WriteString(w.nl())
		}
		out.WriteString(sql)
	}
	slog.Debug("Wrote tables", "dialect", g.dialect.Provider, "count", len(tables))
	return nil
}

func (g *Generator) writeForeignKeys(w *writer, out *strings.Builder, tables []*schema.Table) error {
	// Inlined in CREATE TABLE when the dialect cannot add them later.
	if !g.dialect.Capabilities.AddConstraint {
		return nil
	}
	first := true
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			sql, err := w.addConstraint(t, fk)
			if err != nil {
				return err
			}
			if first {
				out.WriteString(w.nl())
				first = false
			}
			out.WriteString(sql)
		}
	}
	return nil
}

func (g *Generator) writeDropBlock(w *writer, out *strings.Builder, tables []*schema.Table) {
	if len(tables) == 0 {
		return
	}
	out.WriteString(w.nl())
	out.WriteString(w.comment("drop all tables"))
	reversed := slices.Clone(tables)
	slices.Reverse(reversed)
	for _, t := range reversed {
		out.WriteString(w.comment(strings.TrimSuffix(w.statement("DROP TABLE "+w.tableName(t)), w.nl())))
	}
}

func createSequence(w *writer, seq *schema.Sequence) string {
	sql := "CREATE SEQUENCE " + w.qualified(seq.SchemaOwner, seq.Name)
	if seq.StartValue != 0 {
		sql += fmt.Sprintf(" START WITH %d", seq.StartValue)
	}
	if seq.IncrementBy != 0 {
		sql += fmt.Sprintf(" INCREMENT BY %d", seq.IncrementBy)
	}
	if seq.MinimumValue != nil {
		sql += fmt.Sprintf(" MINVALUE %d", *seq.MinimumValue)
	}
	if seq.MaximumValue != nil {
		sql += fmt.Sprintf(" MAXVALUE %d", *seq.MaximumValue)
	}
	if seq.Cycle {
		sql += " CYCLE"
	}
	if !w.dialect.Capabilities.Sequences {
		return w.comment(fmt.Sprintf("%s has no sequences: %s", w.dialect.Provider, sql))
	}
	return w.statement(sql)
}
