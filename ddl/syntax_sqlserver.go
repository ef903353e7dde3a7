package ddl

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadef/schema"
)

type sqlServer struct{ ansi }

func (sqlServer) identity(w *writer, t *schema.Table, c *schema.Column) string {
	seed, increment := identityValues(c)
	return fmt.Sprintf("IDENTITY(%d,%d)", seed, increment)
}

func (sqlServer) computed(w *writer, c *schema.Column) string {
	expression := strings.TrimSpace(c.ComputedDefinition)
	if !strings.HasPrefix(expression, "(") {
		expression = "(" + expression + ")"
	}
	return w.name(c.Name) + " AS " + expression
}

func (sqlServer) defaultClause(w *writer, t *schema.Table, c *schema.Column) string {
	if dc := t.DefaultConstraintFor(c.Name); dc != nil && dc.Name != "" {
		return fmt.Sprintf("CONSTRAINT %s DEFAULT %s", w.name(dc.Name), c.DefaultValue)
	}
	return "DEFAULT " + c.DefaultValue
}

func (sqlServer) createIndex(w *writer, t *schema.Table, index *schema.Index) string {
	kind := ""
	if index.IsUnique {
		kind = "UNIQUE "
	}
	switch hint := strings.ToUpper(index.IndexType); {
	case strings.Contains(hint, "NONCLUSTERED"):
		kind += "NONCLUSTERED "
	case strings.Contains(hint, "CLUSTERED"):
		kind += "CLUSTERED "
	}
	return w.statement(fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", kind, w.name(index.Name), w.tableName(t), w.indexColumns(index)))
}

func (sqlServer) alterColumn(w *writer, t *schema.Table, from, to *schema.Column) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s %s",
		w.tableName(t), w.name(to.Name), w.columnType(t, to), nullability(to.Nullable, "NULL", "NOT NULL")))
}

func (sqlServer) renameColumn(w *writer, t *schema.Table, c *schema.Column, oldName string) string {
	return w.statement(fmt.Sprintf("EXEC sp_rename %s, %s, 'COLUMN'",
		stringLiteral(w.tableName(t)+"."+w.name(oldName)), stringLiteral(c.Name)))
}

func (sqlServer) renameTable(w *writer, owner, oldName, newName string) string {
	return w.statement(fmt.Sprintf("EXEC sp_rename %s, %s", stringLiteral(w.qualified(owner, oldName)), stringLiteral(newName)))
}

func (sqlServer) dropConstraint(w *writer, t *schema.Table, c *schema.Constraint) (string, error) {
	if c.Name == "" {
		return "", fmt.Errorf("drop %s on %s: %w", c.ConstraintType, t.Name, ErrUnnamedConstraint)
	}
	return w.statement(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", w.tableName(t), w.name(c.Name))), nil
}

func (sqlServer) addDefault(w *writer, t *schema.Table, c *schema.Constraint) string {
	if c.Name == "" {
		return w.statement(fmt.Sprintf("ALTER TABLE %s ADD DEFAULT %s FOR %s", w.tableName(t), c.Expression, w.name(c.Columns[0])))
	}
	return w.statement(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s DEFAULT %s FOR %s",
		w.tableName(t), w.name(c.Name), c.Expression, w.name(c.Columns[0])))
}

func (sqlServer) dropIndex(w *writer, t *schema.Table, index *schema.Index) string {
	return w.statement(fmt.Sprintf("DROP INDEX %s ON %s", w.name(index.Name), w.tableName(t)))
}

func (sqlServer) dropForeignKeyIfExists(w *writer, t *schema.Table, fk *schema.Constraint) string {
	return fmt.Sprintf("IF EXISTS (SELECT 1 FROM sys.foreign_keys WHERE name = N%s AND parent_object_id = OBJECT_ID(N%s))%s    %s",
		stringLiteral(w.dialect.Truncate(fk.Name)), stringLiteral(w.tableName(t)), w.nl(),
		w.statement(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", w.tableName(t), w.name(fk.Name))))
}

func (sqlServer) createTrigger(w *writer, t *schema.Table, trigger *schema.Trigger) string {
	body := strings.TrimSpace(trigger.TriggerBody)
	if !hasCreateHeader(body) {
		body = fmt.Sprintf("CREATE TRIGGER %s ON %s %s %s%sAS%s%s",
			w.qualified(t.SchemaOwner, trigger.Name), w.tableName(t), trigger.TriggerType, trigger.TriggerEvent, w.nl(), w.nl(), body)
	}
	return w.syntax.block(w, body)
}

func (sqlServer) block(w *writer, sql string) string {
	return strings.TrimSpace(sql) + w.nl() + w.dialect.Syntax.BatchSeparator + w.nl()
}

// sqlServerCe has no schemas, routines or named defaults, and no
// IF EXISTS guard.
type sqlServerCe struct{ sqlServer }

func (sqlServerCe) defaultClause(w *writer, t *schema.Table, c *schema.Column) string {
	return "DEFAULT " + c.DefaultValue
}

func (s sqlServerCe) dropConstraint(w *writer, t *schema.Table, c *schema.Constraint) (string, error) {
	return s.ansi.dropConstraint(w, t, c)
}

func (s sqlServerCe) addDefault(w *writer, t *schema.Table, c *schema.Constraint) string {
	return s.ansi.addDefault(w, t, c)
}

func (s sqlServerCe) dropForeignKeyIfExists(w *writer, t *schema.Table, fk *schema.Constraint) string {
	return s.ansi.dropForeignKeyIfExists(w, t, fk)
}

func stringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
