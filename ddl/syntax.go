package ddl

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadef/schema"
)

// syntax spells the statements whose form differs between engines. Each
// dialect embeds ansi and overrides what it spells differently. Methods that
// need another overridable method go through w.syntax.
type syntax interface {
	identity(w *writer, t *schema.Table, c *schema.Column) string
	columnType(w *writer, t *schema.Table, c *schema.Column) string
	computed(w *writer, c *schema.Column) string
	defaultClause(w *writer, t *schema.Table, c *schema.Column) string
	// inlinePrimaryKey reports a primary key already declared inside a
	// column definition.
	inlinePrimaryKey(t *schema.Table) bool
	// identityTrigger fills c from sequence on insert, for dialects
	// without native auto-increment.
	identityTrigger(w *writer, t *schema.Table, c *schema.Column, trigger, sequence string) string
	createIndex(w *writer, t *schema.Table, index *schema.Index) string
	alterColumn(w *writer, t *schema.Table, from, to *schema.Column) string
	renameColumn(w *writer, t *schema.Table, c *schema.Column, oldName string) string
	renameTable(w *writer, owner, oldName, newName string) string
	dropConstraint(w *writer, t *schema.Table, c *schema.Constraint) (string, error)
	addDefault(w *writer, t *schema.Table, c *schema.Constraint) string
	dropIndex(w *writer, t *schema.Table, index *schema.Index) string
	dropForeignKeyIfExists(w *writer, t *schema.Table, fk *schema.Constraint) string
	createTrigger(w *writer, t *schema.Table, trigger *schema.Trigger) string
	dropTrigger(w *writer, t *schema.Table, trigger *schema.Trigger) string
	dropRoutine(w *writer, r *schema.Routine) string
	createPrefix() string
	// block terminates procedural source (procedures, triggers, packages).
	block(w *writer, sql string) string
}

func syntaxFor(provider schema.Provider) syntax {
	switch provider {
	case schema.SqlServer:
		return sqlServer{}
	case schema.SqlServerCe:
		return sqlServerCe{}
	case schema.Oracle:
		return oracle{}
	case schema.MySql:
		return mysql{}
	case schema.SQLite:
		return sqlite{}
	case schema.PostgreSql:
		return postgres{}
	case schema.Db2:
		return db2{}
	default:
		return ansi{}
	}
}

type ansi struct{}

func (ansi) identity(w *writer, t *schema.Table, c *schema.Column) string {
	clause := "GENERATED BY DEFAULT AS IDENTITY"
	if !c.Identity.ByDefault && (w.source() == schema.PostgreSql || w.source() == schema.Db2) {
		clause = "GENERATED ALWAYS AS IDENTITY"
	}
	seed, increment := identityValues(c)
	if seed != 1 || increment != 1 {
		clause += fmt.Sprintf(" (START WITH %d INCREMENT BY %d)", seed, increment)
	}
	return clause
}

func (ansi) columnType(w *writer, t *schema.Table, c *schema.Column) string {
	return w.dialect.ColumnType(w.source(), c)
}

func (ansi) computed(w *writer, c *schema.Column) string {
	return fmt.Sprintf("%s %s GENERATED ALWAYS AS (%s)", w.name(c.Name), w.dialect.ColumnType(w.source(), c), unwrap(c.ComputedDefinition))
}

func (ansi) defaultClause(w *writer, t *schema.Table, c *schema.Column) string {
	return "DEFAULT " + c.DefaultValue
}

func (ansi) inlinePrimaryKey(t *schema.Table) bool {
	return false
}

func (ansi) identityTrigger(w *writer, t *schema.Table, c *schema.Column, trigger, sequence string) string {
	nl := w.nl()
	column := w.name(c.Name)
	return w.statement(fmt.Sprintf("CREATE TRIGGER %s%sBEFORE INSERT ON %s%sREFERENCING NEW AS NEW%sFOR EACH ROW%sWHEN (NEW.%s IS NULL)%sSET NEW.%s = NEXT VALUE FOR %s",
		trigger, nl, w.tableName(t), nl, nl, nl, column, nl, column, sequence))
}

func (ansi) createIndex(w *writer, t *schema.Table, index *schema.Index) string {
	unique := ""
	if index.IsUnique {
		unique = "UNIQUE "
	}
	return w.statement(fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, w.name(index.Name), w.tableName(t), w.indexColumns(index)))
}

func (ansi) alterColumn(w *writer, t *schema.Table, from, to *schema.Column) string {
	prefix := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s ", w.tableName(t), w.name(to.Name))
	var out string
	if w.columnType(t, from) != w.columnType(t, to) || from.Nullable == to.Nullable {
		out += w.statement(prefix + "TYPE " + w.columnType(t, to))
	}
	if from.Nullable != to.Nullable {
		out += w.statement(prefix + nullability(to.Nullable, "DROP NOT NULL", "SET NOT NULL"))
	}
	return out
}

func (ansi) renameColumn(w *writer, t *schema.Table, c *schema.Column, oldName string) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", w.tableName(t), w.name(oldName), w.name(c.Name)))
}

func (ansi) renameTable(w *writer, owner, oldName, newName string) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", w.qualified(owner, oldName), w.name(newName)))
}

func (ansi) dropConstraint(w *writer, t *schema.Table, c *schema.Constraint) (string, error) {
	if c.ConstraintType == schema.Default {
		return w.statement(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", w.tableName(t), w.name(c.Columns[0]))), nil
	}
	if c.Name == "" {
		return "", fmt.Errorf("drop %s on %s: %w", c.ConstraintType, t.Name, ErrUnnamedConstraint)
	}
	return w.statement(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", w.tableName(t), w.name(c.Name))), nil
}

func (ansi) addDefault(w *writer, t *schema.Table, c *schema.Constraint) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", w.tableName(t), w.name(c.Columns[0]), c.Expression))
}

func (ansi) dropIndex(w *writer, t *schema.Table, index *schema.Index) string {
	return w.statement("DROP INDEX " + w.qualified(t.SchemaOwner, index.Name))
}

func (ansi) dropForeignKeyIfExists(w *writer, t *schema.Table, fk *schema.Constraint) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", w.tableName(t), w.name(fk.Name)))
}

func (ansi) createTrigger(w *writer, t *schema.Table, trigger *schema.Trigger) string {
	body := strings.TrimSpace(trigger.TriggerBody)
	if !hasCreateHeader(body) {
		body = fmt.Sprintf("%sTRIGGER %s %s %s ON %s%s%s",
			w.syntax.createPrefix(), w.name(trigger.Name), trigger.TriggerType, trigger.TriggerEvent, w.tableName(t), w.nl(), body)
	}
	return w.syntax.block(w, body)
}

func (ansi) dropTrigger(w *writer, t *schema.Table, trigger *schema.Trigger) string {
	return w.statement("DROP TRIGGER " + w.qualified(t.SchemaOwner, trigger.Name))
}

func (ansi) dropRoutine(w *writer, r *schema.Routine) string {
	return w.statement(fmt.Sprintf("DROP %s %s", routineKind(r), w.qualified(r.SchemaOwner, r.Name)))
}

func (ansi) createPrefix() string {
	return "CREATE "
}

func (ansi) block(w *writer, sql string) string {
	sql = strings.TrimSpace(sql)
	if !strings.HasSuffix(sql, w.terminator()) {
		sql += w.terminator()
	}
	return sql + w.nl()
}

func identityValues(c *schema.Column) (seed, increment int64) {
	seed, increment = c.Identity.Seed, c.Identity.Increment
	if seed == 0 {
		seed = 1
	}
	if increment == 0 {
		increment = 1
	}
	return seed, increment
}

func nullability(nullable bool, null, notNull string) string {
	if nullable {
		return null
	}
	return notNull
}

func routineKind(r *schema.Routine) string {
	if r.Kind == schema.Function {
		return "FUNCTION"
	}
	return "PROCEDURE"
}

// unwrap removes one layer of parentheses around an expression, but only
// when the inner text has none of its own.
func unwrap(expression string) string {
	e := strings.TrimSpace(expression)
	if strings.HasPrefix(e, "(") && strings.HasSuffix(e, ")") {
		inner := e[1 : len(e)-1]
		if !strings.ContainsAny(inner, "()") {
			return strings.TrimSpace(inner)
		}
	}
	return e
}

func hasCreateHeader(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "CREATE")
}
