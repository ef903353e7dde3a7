package ddl

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadef/schema"
)

type mysql struct{ ansi }

func (mysql) identity(w *writer, t *schema.Table, c *schema.Column) string {
	return "AUTO_INCREMENT"
}

func (mysql) alterColumn(w *writer, t *schema.Table, from, to *schema.Column) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s MODIFY %s", w.tableName(t), w.columnDefinition(t, to)))
}

// renameColumn uses CHANGE, which restates the whole column definition.
func (mysql) renameColumn(w *writer, t *schema.Table, c *schema.Column, oldName string) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s CHANGE %s %s", w.tableName(t), w.name(oldName), w.columnDefinition(t, c)))
}

func (mysql) renameTable(w *writer, owner, oldName, newName string) string {
	return w.statement(fmt.Sprintf("RENAME TABLE %s TO %s", w.qualified(owner, oldName), w.qualified(owner, newName)))
}

func (mysql) dropConstraint(w *writer, t *schema.Table, c *schema.Constraint) (string, error) {
	table := w.tableName(t)
	switch c.ConstraintType {
	case schema.PrimaryKey:
		return w.statement(fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", table)), nil
	case schema.Default:
		return w.statement(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, w.name(c.Columns[0]))), nil
	}
	if c.Name == "" {
		return "", fmt.Errorf("drop %s on %s: %w", c.ConstraintType, t.Name, ErrUnnamedConstraint)
	}
	switch c.ConstraintType {
	case schema.ForeignKey:
		return w.statement(fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", table, w.name(c.Name))), nil
	case schema.UniqueKey:
		return w.statement(fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", table, w.name(c.Name))), nil
	default:
		return w.statement(fmt.Sprintf("ALTER TABLE %s DROP CHECK %s", table, w.name(c.Name))), nil
	}
}

func (mysql) dropIndex(w *writer, t *schema.Table, index *schema.Index) string {
	return w.statement(fmt.Sprintf("DROP INDEX %s ON %s", w.name(index.Name), w.tableName(t)))
}

func (mysql) dropForeignKeyIfExists(w *writer, t *schema.Table, fk *schema.Constraint) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", w.tableName(t), w.name(fk.Name)))
}

func (mysql) createTrigger(w *writer, t *schema.Table, trigger *schema.Trigger) string {
	body := strings.TrimSpace(trigger.TriggerBody)
	if !hasCreateHeader(body) {
		body = fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s FOR EACH ROW%s%s",
			w.name(trigger.Name), trigger.TriggerType, trigger.TriggerEvent, w.tableName(t), w.nl(), body)
	}
	return w.syntax.block(w, body)
}

// block switches the client delimiter so the body's own semicolons do not
// end the statement.
func (mysql) block(w *writer, sql string) string {
	sql = strings.TrimSuffix(strings.TrimSpace(sql), ";")
	nl := w.nl()
	return "DELIMITER $$" + nl + sql + "$$" + nl + "DELIMITER ;" + nl
}
