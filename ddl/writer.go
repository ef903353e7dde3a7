package ddl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/schema"
)

// writer renders single statements for one dialect against one schema. The
// schema resolves foreign key targets and names the source provider of the
// native type names.
type writer struct {
	dialect *dialect.Dialect
	schema  *schema.Schema
	opts    Options
	syntax  syntax
}

func newWriter(d *dialect.Dialect, s *schema.Schema, opts Options) *writer {
	return &writer{dialect: d, schema: s, opts: opts, syntax: syntaxFor(d.Provider)}
}

func (w *writer) source() schema.Provider {
	if w.schema == nil {
		return ""
	}
	return w.schema.Provider
}

func (w *writer) nl() string {
	if w.dialect.Syntax.LineEnding == "" {
		return "\n"
	}
	return w.dialect.Syntax.LineEnding
}

func (w *writer) terminator() string {
	if w.dialect.Syntax.Terminator == "" {
		return ";"
	}
	return w.dialect.Syntax.Terminator
}

func (w *writer) statement(sql string) string {
	return sql + w.terminator() + w.nl()
}

func (w *writer) comment(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		b.WriteString("-- " + line + w.nl())
	}
	return b.String()
}

func (w *writer) name(name string) string {
	return w.dialect.Quote(name, w.opts.EscapeNames)
}

func (w *writer) qualified(owner, name string) string {
	return w.dialect.QualifyName(owner, name, w.opts.IncludeSchema, w.opts.EscapeNames)
}

func (w *writer) tableName(t *schema.Table) string {
	return w.qualified(t.SchemaOwner, t.Name)
}

func (w *writer) columnList(columns []string) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = w.name(c)
	}
	return strings.Join(names, ", ")
}

func (w *writer) indexColumns(index *schema.Index) string {
	var cols []string
	for _, c := range index.SortedColumns() {
		col := w.name(c.Name)
		if c.Descending {
			col += " DESC"
		}
		cols = append(cols, col)
	}
	return strings.Join(cols, ", ")
}

func (w *writer) columnType(t *schema.Table, c *schema.Column) string {
	return w.syntax.columnType(w, t, c)
}

// columnDefinition renders "name type [identity] [default] NULL|NOT NULL".
func (w *writer) columnDefinition(t *schema.Table, c *schema.Column) string {
	if c.IsComputed() {
		return w.syntax.computed(w, c)
	}
	parts := []string{w.name(c.Name), w.columnType(t, c)}
	identity := ""
	if c.IsAutoNumber() && w.dialect.Capabilities.NativeAutoIncrement {
		identity = w.syntax.identity(w, t, c)
	}
	if identity != "" {
		parts = append(parts, identity)
	} else if c.DefaultValue != "" {
		parts = append(parts, w.syntax.defaultClause(w, t, c))
	}
	parts = append(parts, nullability(c.Nullable, "NULL", "NOT NULL"))
	return strings.Join(parts, " ")
}

// describeColumn is the human-readable form used in comments.
func (w *writer) describeColumn(t *schema.Table, c *schema.Column) string {
	return w.columnType(t, c) + " " + nullability(c.Nullable, "NULL", "NOT NULL")
}

var notNullCheck = regexp.MustCompile("(?i)^\\(*\\s*(\"[^\"]+\"|\\[[^\\]]+\\]|`[^`]+`|[\\w$#]+)\\s+IS\\s+NOT\\s+NULL\\s*\\)*$")

// checkExpression returns the expression to write for a check constraint,
// or false when the constraint should be left out: a bare "col IS NOT NULL"
// belongs to the column's nullability, and TranslateCheck may veto others.
func (w *writer) checkExpression(c *schema.Constraint) (string, bool) {
	expression := strings.TrimSpace(c.Expression)
	if expression == "" || notNullCheck.MatchString(expression) {
		return "", false
	}
	expression = unwrap(expression)
	if w.opts.TranslateCheck != nil {
		return w.opts.TranslateCheck(expression)
	}
	return expression, true
}

// constraintDefinition renders the body shared by CREATE TABLE and
// ALTER TABLE ADD. It returns false for a check that is left out.
func (w *writer) constraintDefinition(t *schema.Table, c *schema.Constraint) (string, bool, error) {
	if c.ConstraintType != schema.Check && len(c.Columns) == 0 {
		return "", false, fmt.Errorf("%s %q on %s: %w", c.ConstraintType, c.Name, t.Name, ErrNoColumns)
	}
	prefix := ""
	if c.Name != "" {
		prefix = "CONSTRAINT " + w.name(c.Name) + " "
	}
	switch c.ConstraintType {
	case schema.PrimaryKey:
		return prefix + "PRIMARY KEY (" + w.columnList(c.Columns) + ")", true, nil
	case schema.UniqueKey:
		return prefix + "UNIQUE (" + w.columnList(c.Columns) + ")", true, nil
	case schema.Check:
		expression, ok := w.checkExpression(c)
		if !ok {
			return "", false, nil
		}
		return prefix + "CHECK (" + expression + ")", true, nil
	case schema.ForeignKey:
		return prefix + w.foreignKeyClause(t, c), true, nil
	default:
		return "", false, fmt.Errorf("constraint %q on %s: unsupported inline type %s", c.Name, t.Name, c.ConstraintType)
	}
}

// foreignKeyClause renders FOREIGN KEY ... REFERENCES ... with the
// referenced columns when the target resolves, and the delete/update rules
// unless the key references its own table on a dialect that forbids it.
func (w *writer) foreignKeyClause(t *schema.Table, fk *schema.Constraint) string {
	var parent *schema.Table
	if w.schema != nil {
		parent = w.schema.ReferencedTable(fk)
	}

	refOwner, refName := fk.RefersToSchema, fk.RefersToTable
	if parent != nil {
		refOwner, refName = parent.SchemaOwner, parent.Name
	}
	if refName == "" {
		refName = fk.RefersToConstraint
	}
	clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s", w.columnList(fk.Columns), w.qualified(refOwner, refName))
	if cols := referencedColumns(parent, fk); len(cols) > 0 {
		clause += " (" + w.columnList(cols) + ")"
	}

	selfReferencing := fk.IsSelfReferencing() || (parent != nil && parent == t)
	if selfReferencing && !w.selfReferencingCascade() {
		return clause
	}
	if rule := ReferentialRule(fk.DeleteRule); rule != "" {
		clause += " ON DELETE " + rule
	}
	if rule := ReferentialRule(fk.UpdateRule); rule != "" && w.dialect.Capabilities.UpdateRule {
		clause += " ON UPDATE " + rule
	}
	return clause
}

// referencedColumns returns the key columns of the referenced constraint,
// falling back to the parent's primary key.
func referencedColumns(parent *schema.Table, fk *schema.Constraint) []string {
	if parent == nil {
		return nil
	}
	if fk.RefersToConstraint != "" {
		for _, uk := range parent.UniqueKeys {
			if schema.EqualFold(uk.Name, fk.RefersToConstraint) {
				return uk.Columns
			}
		}
	}
	if parent.PrimaryKey != nil {
		return parent.PrimaryKey.Columns
	}
	return nil
}

func (w *writer) selfReferencingCascade() bool {
	if w.opts.SelfReferencingCascade != nil {
		return *w.opts.SelfReferencingCascade
	}
	return w.dialect.Capabilities.SelfReferencingCascade
}

// ReferentialRule normalizes CASCADE, SET_NULL, "set default" and friends.
// NO ACTION is the default everywhere and is left out.
func ReferentialRule(rule string) string {
	rule = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(rule, "_", " ")))
	if rule == "" || rule == "NO ACTION" {
		return ""
	}
	return rule
}

// BacksConstraint reports an index that exists only to enforce the table's
// primary or unique key.
func BacksConstraint(t *schema.Table, index *schema.Index) bool {
	if strings.EqualFold(index.IndexType, "PRIMARY") {
		return true
	}
	if t.PrimaryKey != nil && schema.EqualFold(t.PrimaryKey.Name, index.Name) {
		return true
	}
	for _, uk := range t.UniqueKeys {
		if schema.EqualFold(uk.Name, index.Name) {
			return true
		}
	}
	return false
}

func (w *writer) createTable(t *schema.Table) (string, error) {
	nl := w.nl()
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, w.columnDefinition(t, c))
	}

	var constraints []*schema.Constraint
	if t.PrimaryKey != nil && !w.syntax.inlinePrimaryKey(t) {
		constraints = append(constraints, t.PrimaryKey)
	}
	constraints = append(constraints, t.UniqueKeys...)
	constraints = append(constraints, t.CheckConstraints...)
	if !w.dialect.Capabilities.AddConstraint {
		constraints = append(constraints, t.ForeignKeys...)
	}
	for _, c := range constraints {
		def, ok, err := w.constraintDefinition(t, c)
		if err != nil {
			return "", err
		}
		if ok {
			lines = append(lines, def)
		}
	}

	var out strings.Builder
	out.WriteString(w.statement("CREATE TABLE " + w.tableName(t) + nl + "(" + nl + "  " + strings.Join(lines, ","+nl+"  ") + nl + ")"))
	for _, index := range t.Indexes {
		if BacksConstraint(t, index) {
			continue
		}
		if len(index.Columns) == 0 {
			return "", fmt.Errorf("index %q on %s: %w", index.Name, t.Name, ErrNoColumns)
		}
		out.WriteString(w.syntax.createIndex(w, t, index))
	}
	for _, c := range t.Columns {
		out.WriteString(w.identityEmulation(t, c))
	}
	return out.String(), nil
}

// identityEmulation renders the sequence and insert trigger that stand in
// for an identity column where the dialect has no native auto-increment.
func (w *writer) identityEmulation(t *schema.Table, c *schema.Column) string {
	if w.dialect.Capabilities.NativeAutoIncrement || !c.IsAutoNumber() || c.IsComputed() {
		return ""
	}
	seed, increment := identityValues(c)
	sequence := w.qualified(t.SchemaOwner, w.dialect.Suffixed(t.Name+"_"+c.Name, "_SEQ"))
	trigger := w.qualified(t.SchemaOwner, w.dialect.Suffixed(t.Name+"_"+c.Name, "_TRG"))
	return w.statement(fmt.Sprintf("CREATE SEQUENCE %s START WITH %d INCREMENT BY %d", sequence, seed, increment)) +
		w.syntax.identityTrigger(w, t, c, trigger, sequence)
}

// addConstraint renders ALTER TABLE ... ADD for one constraint. Defaults go
// through the dialect's default syntax. An excluded check renders nothing.
func (w *writer) addConstraint(t *schema.Table, c *schema.Constraint) (string, error) {
	if c.ConstraintType == schema.Default {
		if len(c.Columns) == 0 {
			return "", fmt.Errorf("default %q on %s: %w", c.Name, t.Name, ErrNoColumns)
		}
		if !w.dialect.Capabilities.AddConstraint {
			return w.comment(fmt.Sprintf("%s cannot change the default of %s.%s; recreate the table", w.dialect.Provider, t.Name, c.Columns[0])), nil
		}
		return w.syntax.addDefault(w, t, c), nil
	}
	def, ok, err := w.constraintDefinition(t, c)
	if err != nil || !ok {
		return "", err
	}
	if !w.dialect.Capabilities.AddConstraint {
		return w.comment(fmt.Sprintf("%s cannot add constraint %s to %s; recreate the table with:\n  %s", w.dialect.Provider, c.Name, t.Name, def)), nil
	}
	return w.statement(fmt.Sprintf("ALTER TABLE %s ADD %s", w.tableName(t), def)), nil
}

// routine renders procedural source. Source without a CREATE header gets
// one; a bare body is wrapped as "CREATE <kind> name AS body".
func (w *writer) routine(kind, owner, name, sql string) string {
	body := strings.TrimSpace(sql)
	switch {
	case hasCreateHeader(body):
	case strings.HasPrefix(strings.ToUpper(body), kind):
		body = w.syntax.createPrefix() + body
	default:
		body = fmt.Sprintf("%s%s %s%sAS%s%s", w.syntax.createPrefix(), kind, w.qualified(owner, name), w.nl(), w.nl(), body)
	}
	return w.syntax.block(w, body)
}
