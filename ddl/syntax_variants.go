package ddl

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadef/schema"
)

// sqlite declares an auto-numbered single-column primary key inline as
// INTEGER PRIMARY KEY AUTOINCREMENT; other identity columns get nothing.
type sqlite struct{ ansi }

func autoIncrementKey(t *schema.Table, c *schema.Column) bool {
	pk := t.PrimaryKey
	return c.IsAutoNumber() && pk != nil && len(pk.Columns) == 1 && schema.EqualFold(pk.Columns[0], c.Name)
}

func (sqlite) identity(w *writer, t *schema.Table, c *schema.Column) string {
	if autoIncrementKey(t, c) {
		return "PRIMARY KEY AUTOINCREMENT"
	}
	return ""
}

func (sqlite) columnType(w *writer, t *schema.Table, c *schema.Column) string {
	if autoIncrementKey(t, c) {
		return "INTEGER"
	}
	return w.dialect.ColumnType(w.source(), c)
}

func (sqlite) inlinePrimaryKey(t *schema.Table) bool {
	for _, c := range t.Columns {
		if autoIncrementKey(t, c) {
			return true
		}
	}
	return false
}

func (sqlite) dropForeignKeyIfExists(w *writer, t *schema.Table, fk *schema.Constraint) string {
	return w.comment(fmt.Sprintf("SQLite cannot drop foreign key %s on %s; recreate the table", constraintLabel(fk), t.Name))
}

type postgres struct{ ansi }

func (postgres) computed(w *writer, c *schema.Column) string {
	return ansi{}.computed(w, c) + " STORED"
}

func (postgres) dropForeignKeyIfExists(w *writer, t *schema.Table, fk *schema.Constraint) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", w.tableName(t), w.name(fk.Name)))
}

func (postgres) dropTrigger(w *writer, t *schema.Table, trigger *schema.Trigger) string {
	return w.statement(fmt.Sprintf("DROP TRIGGER %s ON %s", w.name(trigger.Name), w.tableName(t)))
}

func (postgres) createPrefix() string {
	return "CREATE OR REPLACE "
}

type db2 struct{ ansi }

// alterColumn needs a REORG before the table is usable again.
func (db2) alterColumn(w *writer, t *schema.Table, from, to *schema.Column) string {
	table := w.tableName(t)
	prefix := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s ", table, w.name(to.Name))
	var out strings.Builder
	if w.columnType(t, from) != w.columnType(t, to) || from.Nullable == to.Nullable {
		out.WriteString(w.statement(prefix + "SET DATA TYPE " + w.columnType(t, to)))
	}
	if from.Nullable != to.Nullable {
		out.WriteString(w.statement(prefix + nullability(to.Nullable, "DROP NOT NULL", "SET NOT NULL")))
	}
	out.WriteString(w.statement("CALL SYSPROC.ADMIN_CMD(" + stringLiteral("REORG TABLE "+table) + ")"))
	return out.String()
}

func (db2) renameTable(w *writer, owner, oldName, newName string) string {
	return w.statement(fmt.Sprintf("RENAME TABLE %s TO %s", w.qualified(owner, oldName), w.name(newName)))
}
