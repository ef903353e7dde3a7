package schema

import (
	"fmt"
	"slices"
)

type Table struct {
	SchemaOwner        string        `yaml:"schema_owner,omitempty"`
	Name               string        `yaml:"name"`
	Description        string        `yaml:"description,omitempty"`
	Columns            []*Column     `yaml:"columns"`
	PrimaryKey         *Constraint   `yaml:"primary_key,omitempty"`
	ForeignKeys        []*Constraint `yaml:"foreign_keys,omitempty"`
	UniqueKeys         []*Constraint `yaml:"unique_keys,omitempty"`
	CheckConstraints   []*Constraint `yaml:"check_constraints,omitempty"`
	DefaultConstraints []*Constraint `yaml:"default_constraints,omitempty"`
	Indexes            []*Index      `yaml:"indexes,omitempty"`
	Triggers           []*Trigger    `yaml:"triggers,omitempty"`

	// Tables whose foreign keys point at this table. Maintained by
	// Schema.AddForeignKey, Schema.RenameTable and Schema.Link.
	ForeignKeyChildren []Key `yaml:"-"`
}

func NewTable(owner, name string) *Table {
	return &Table{SchemaOwner: owner, Name: name}
}

func (t *Table) Key() Key {
	return Key{Owner: t.SchemaOwner, Name: t.Name}
}

// AddColumn appends a nullable column at the next ordinal.
func (t *Table) AddColumn(name, dbDataType string) *Column {
	column := &Column{
		SchemaOwner: t.SchemaOwner,
		TableName:   t.Name,
		Name:        name,
		Ordinal:     len(t.Columns) + 1,
		DbDataType:  dbDataType,
		Nullable:    true,
	}
	t.Columns = append(t.Columns, column)
	return column
}

func (t *Table) FindColumn(name string) *Column {
	for _, column := range t.Columns {
		if EqualFold(column.Name, name) {
			return column
		}
	}
	return nil
}

func (t *Table) AddPrimaryKey(name string, columns ...string) error {
	c, err := t.newConstraint(PrimaryKey, name, columns)
	if err != nil {
		return err
	}
	t.PrimaryKey = c
	t.refreshFlags()
	return nil
}

func (t *Table) AddUniqueKey(name string, columns ...string) error {
	c, err := t.newConstraint(UniqueKey, name, columns)
	if err != nil {
		return err
	}
	t.UniqueKeys = append(t.UniqueKeys, c)
	t.refreshFlags()
	return nil
}

func (t *Table) AddCheck(name, expression string) error {
	if expression == "" {
		return fmt.Errorf("check constraint %q on %s: empty expression", name, t.Name)
	}
	t.CheckConstraints = append(t.CheckConstraints, &Constraint{
		Name:           name,
		SchemaOwner:    t.SchemaOwner,
		TableName:      t.Name,
		ConstraintType: Check,
		Expression:     expression,
	})
	return nil
}

// AddDefault records a named default constraint and mirrors the expression
// on the column. An existing default for the column is replaced.
func (t *Table) AddDefault(name, column, expression string) error {
	c, err := t.newConstraint(Default, name, []string{column})
	if err != nil {
		return err
	}
	c.Expression = expression
	t.DefaultConstraints = slices.DeleteFunc(t.DefaultConstraints, func(d *Constraint) bool {
		return d.HasColumn(column)
	})
	t.DefaultConstraints = append(t.DefaultConstraints, c)
	t.FindColumn(column).DefaultValue = expression
	return nil
}

// DefaultConstraintFor returns the named default constraint of a column.
func (t *Table) DefaultConstraintFor(column string) *Constraint {
	for _, c := range t.DefaultConstraints {
		if c.HasColumn(column) {
			return c
		}
	}
	return nil
}

func (t *Table) AddIndex(name string, unique bool, columns ...string) (*Index, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("index %q on %s: %w", name, t.Name, ErrNoColumns)
	}
	index := &Index{
		Name:        name,
		SchemaOwner: t.SchemaOwner,
		TableName:   t.Name,
		IsUnique:    unique,
	}
	for i, col := range columns {
		column := t.FindColumn(col)
		if column == nil {
			return nil, fmt.Errorf("index %q on %s: %w: %s", name, t.Name, ErrColumnNotFound, col)
		}
		index.Columns = append(index.Columns, IndexColumn{Name: column.Name, Ordinal: i + 1})
	}
	t.Indexes = append(t.Indexes, index)
	t.refreshFlags()
	return index, nil
}

func (t *Table) AddTrigger(trigger *Trigger) error {
	if trigger == nil {
		return ErrNilArgument
	}
	trigger.SchemaOwner = t.SchemaOwner
	trigger.TableName = t.Name
	t.Triggers = append(t.Triggers, trigger)
	return nil
}

// Constraints returns every constraint of the table: primary key, unique
// keys, checks, defaults and foreign keys, in that order.
func (t *Table) Constraints() []*Constraint {
	var all []*Constraint
	if t.PrimaryKey != nil {
		all = append(all, t.PrimaryKey)
	}
	all = append(all, t.UniqueKeys...)
	all = append(all, t.CheckConstraints...)
	all = append(all, t.DefaultConstraints...)
	all = append(all, t.ForeignKeys...)
	return all
}

func (t *Table) FindConstraint(name string) *Constraint {
	for _, c := range t.Constraints() {
		if EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

func (t *Table) FindIndex(name string) *Index {
	for _, index := range t.Indexes {
		if EqualFold(index.Name, name) {
			return index
		}
	}
	return nil
}

func (t *Table) FindTrigger(name string) *Trigger {
	for _, trigger := range t.Triggers {
		if EqualFold(trigger.Name, name) {
			return trigger
		}
	}
	return nil
}

// RenameColumn renames a column and every constraint and index entry that
// names it.
func (t *Table) RenameColumn(oldName, newName string) error {
	column := t.FindColumn(oldName)
	if column == nil {
		return fmt.Errorf("rename %s.%s: %w", t.Name, oldName, ErrColumnNotFound)
	}
	if other := t.FindColumn(newName); other != nil && other != column {
		return fmt.Errorf("rename %s.%s to %s: %w", t.Name, oldName, newName, ErrDuplicateObject)
	}
	for _, c := range t.Constraints() {
		c.renameColumn(column.Name, newName)
	}
	for _, index := range t.Indexes {
		for i := range index.Columns {
			if EqualFold(index.Columns[i].Name, column.Name) {
				index.Columns[i].Name = newName
			}
		}
	}
	column.Name = newName
	return nil
}

func (t *Table) newConstraint(kind ConstraintType, name string, columns []string) (*Constraint, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s %q on %s: %w", kind, name, t.Name, ErrNoColumns)
	}
	c := &Constraint{
		Name:           name,
		SchemaOwner:    t.SchemaOwner,
		TableName:      t.Name,
		ConstraintType: kind,
	}
	for _, col := range columns {
		column := t.FindColumn(col)
		if column == nil {
			return nil, fmt.Errorf("%s %q on %s: %w: %s", kind, name, t.Name, ErrColumnNotFound, col)
		}
		c.Columns = append(c.Columns, column.Name)
	}
	return c, nil
}

// refreshFlags recomputes the constraint flags mirrored on each column.
func (t *Table) refreshFlags() {
	for _, column := range t.Columns {
		column.IsPrimaryKey = t.PrimaryKey != nil && t.PrimaryKey.HasColumn(column.Name)
		column.IsForeignKey = slices.ContainsFunc(t.ForeignKeys, func(c *Constraint) bool {
			return c.HasColumn(column.Name)
		})
		column.IsUniqueKey = slices.ContainsFunc(t.UniqueKeys, func(c *Constraint) bool {
			return c.HasColumn(column.Name)
		})
		column.IsIndexed = slices.ContainsFunc(t.Indexes, func(i *Index) bool {
			return i.HasColumn(column.Name)
		})
	}
}

func (t *Table) setName(owner, name string) {
	t.SchemaOwner = owner
	t.Name = name
	for _, column := range t.Columns {
		column.SchemaOwner = owner
		column.TableName = name
	}
	for _, c := range t.Constraints() {
		c.SchemaOwner = owner
		c.TableName = name
	}
	for _, index := range t.Indexes {
		index.SchemaOwner = owner
		index.TableName = name
	}
	for _, trigger := range t.Triggers {
		trigger.SchemaOwner = owner
		trigger.TableName = name
	}
}

func (t *Table) addChild(child Key) {
	for _, k := range t.ForeignKeyChildren {
		if k.Matches(child) {
			return
		}
	}
	t.ForeignKeyChildren = append(t.ForeignKeyChildren, child)
}

func (t *Table) removeChild(child Key) {
	t.ForeignKeyChildren = slices.DeleteFunc(t.ForeignKeyChildren, func(k Key) bool {
		return k.Matches(child)
	})
}

// referencesTable reports whether any foreign key of t points at key.
func (t *Table) referencesTable(key Key) bool {
	return slices.ContainsFunc(t.ForeignKeys, func(fk *Constraint) bool {
		return fk.RefersToKey().Matches(key)
	})
}

func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Columns = cloneAll(t.Columns, (*Column).Clone)
	clone.PrimaryKey = t.PrimaryKey.Clone()
	clone.ForeignKeys = cloneAll(t.ForeignKeys, (*Constraint).Clone)
	clone.UniqueKeys = cloneAll(t.UniqueKeys, (*Constraint).Clone)
	clone.CheckConstraints = cloneAll(t.CheckConstraints, (*Constraint).Clone)
	clone.DefaultConstraints = cloneAll(t.DefaultConstraints, (*Constraint).Clone)
	clone.Indexes = cloneAll(t.Indexes, (*Index).Clone)
	clone.Triggers = cloneAll(t.Triggers, (*Trigger).Clone)
	clone.ForeignKeyChildren = slices.Clone(t.ForeignKeyChildren)
	return &clone
}
