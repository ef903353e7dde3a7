package ddl

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadef/schema"
)

// oracle fills emulated identity columns from a PL/SQL trigger, and wraps
// procedural code in "/"-terminated blocks.
type oracle struct{ ansi }

func (oracle) identityTrigger(w *writer, t *schema.Table, c *schema.Column, trigger, sequence string) string {
	nl := w.nl()
	column := w.name(c.Name)
	body := fmt.Sprintf("CREATE OR REPLACE TRIGGER %s%sBEFORE INSERT ON %s%sFOR EACH ROW%sWHEN (NEW.%s IS NULL)%sBEGIN%s  SELECT %s.NEXTVAL INTO :NEW.%s FROM DUAL;%sEND;",
		trigger, nl,
		w.tableName(t), nl, nl,
		column, nl, nl,
		sequence, column, nl)
	return w.syntax.block(w, body)
}

func (oracle) alterColumn(w *writer, t *schema.Table, from, to *schema.Column) string {
	sql := fmt.Sprintf("ALTER TABLE %s MODIFY %s %s", w.tableName(t), w.name(to.Name), w.columnType(t, to))
	// ORA-01451/01442: restating the current nullability is an error.
	if from.Nullable != to.Nullable {
		sql += " " + nullability(to.Nullable, "NULL", "NOT NULL")
	}
	return w.statement(sql)
}

func (oracle) dropConstraint(w *writer, t *schema.Table, c *schema.Constraint) (string, error) {
	if c.ConstraintType == schema.Default {
		return w.statement(fmt.Sprintf("ALTER TABLE %s MODIFY %s DEFAULT NULL", w.tableName(t), w.name(c.Columns[0]))), nil
	}
	return ansi{}.dropConstraint(w, t, c)
}

func (oracle) addDefault(w *writer, t *schema.Table, c *schema.Constraint) string {
	return w.statement(fmt.Sprintf("ALTER TABLE %s MODIFY %s DEFAULT %s", w.tableName(t), w.name(c.Columns[0]), c.Expression))
}

// dropForeignKeyIfExists ignores ORA-02443 (constraint does not exist).
func (oracle) dropForeignKeyIfExists(w *writer, t *schema.Table, fk *schema.Constraint) string {
	nl := w.nl()
	drop := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", w.tableName(t), w.name(fk.Name))
	block := strings.Join([]string{
		"BEGIN",
		"  EXECUTE IMMEDIATE " + stringLiteral(drop) + ";",
		"EXCEPTION",
		"  WHEN OTHERS THEN",
		"    IF SQLCODE != -2443 THEN",
		"      RAISE;",
		"    END IF;",
		"END;",
	}, nl)
	return w.syntax.block(w, block)
}

func (oracle) createPrefix() string {
	return "CREATE OR REPLACE "
}

func (oracle) block(w *writer, sql string) string {
	sql = strings.TrimSpace(sql)
	if !strings.HasSuffix(sql, ";") {
		sql += ";"
	}
	return sql + w.nl() + w.dialect.Syntax.BatchSeparator + w.nl()
}
