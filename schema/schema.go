// Package schema is the canonical in-memory model of a relational catalog.
// Cross references between objects are stored as (owner, name) keys and
// resolved through the lookup methods of Schema.
package schema

import (
	"fmt"
	"slices"
)

type Schema struct {
	Provider         Provider    `yaml:"provider"`
	Owner            string      `yaml:"owner,omitempty"`
	Tables           []*Table    `yaml:"tables,omitempty"`
	Views            []*View     `yaml:"views,omitempty"`
	StoredProcedures []*Routine  `yaml:"stored_procedures,omitempty"`
	Functions        []*Routine  `yaml:"functions,omitempty"`
	Packages         []*Package  `yaml:"packages,omitempty"`
	Sequences        []*Sequence `yaml:"sequences,omitempty"`
	Users            []*User     `yaml:"users,omitempty"`
	DataTypes        []*DataType `yaml:"data_types,omitempty"`
}

func New(provider Provider, owner string) *Schema {
	return &Schema{Provider: provider, Owner: owner}
}

// AddTable adds a table, defaulting its owner to the schema owner.
func (s *Schema) AddTable(t *Table) error {
	if t == nil {
		return ErrNilArgument
	}
	owner := t.SchemaOwner
	if owner == "" {
		owner = s.Owner
	}
	if s.FindTable(owner, t.Name) != nil {
		return fmt.Errorf("table %s: %w", KeyOf(owner, t.Name), ErrDuplicateObject)
	}
	t.setName(owner, t.Name)
	s.Tables = append(s.Tables, t)
	return nil
}

// FindTable resolves a table by key. An empty owner matches any owner.
func (s *Schema) FindTable(owner, name string) *Table {
	key := KeyOf(owner, name)
	for _, t := range s.Tables {
		if t.Key().Matches(key) {
			return t
		}
	}
	return nil
}

func (s *Schema) FindTableByName(name string) *Table {
	return s.FindTable("", name)
}

// FindTableByConstraint returns the table owning the named primary or unique
// key, which is how foreign keys that only carry RefersToConstraint resolve.
func (s *Schema) FindTableByConstraint(name string) *Table {
	if name == "" {
		return nil
	}
	for _, t := range s.Tables {
		if t.PrimaryKey != nil && EqualFold(t.PrimaryKey.Name, name) {
			return t
		}
		for _, uk := range t.UniqueKeys {
			if EqualFold(uk.Name, name) {
				return t
			}
		}
	}
	return nil
}

// ReferencedTable resolves the table a foreign key points at, by table name
// first and by referenced constraint name second. Nil when unresolvable.
func (s *Schema) ReferencedTable(fk *Constraint) *Table {
	if fk == nil {
		return nil
	}
	if fk.RefersToTable != "" {
		if t := s.FindTable(fk.RefersToSchema, fk.RefersToTable); t != nil {
			return t
		}
	}
	return s.FindTableByConstraint(fk.RefersToConstraint)
}

// AddForeignKey adds a foreign key to t and links t into the referenced
// table's ForeignKeyChildren. A reference that does not resolve is kept by
// name only.
func (s *Schema) AddForeignKey(t *Table, name, refersToTable string, columns ...string) (*Constraint, error) {
	if t == nil {
		return nil, ErrNilArgument
	}
	fk, err := t.newConstraint(ForeignKey, name, columns)
	if err != nil {
		return nil, err
	}
	fk.RefersToTable = refersToTable
	if parent := s.FindTableByName(refersToTable); parent != nil {
		fk.RefersToTable = parent.Name
		fk.RefersToSchema = parent.SchemaOwner
		if parent.PrimaryKey != nil {
			fk.RefersToConstraint = parent.PrimaryKey.Name
		}
		parent.addChild(t.Key())
	}
	t.ForeignKeys = append(t.ForeignKeys, fk)
	t.refreshFlags()
	return fk, nil
}

// RemoveConstraint drops a named constraint from t, unlinking foreign key
// children when t no longer references the parent.
func (s *Schema) RemoveConstraint(t *Table, name string) error {
	if t == nil {
		return ErrNilArgument
	}
	c := t.FindConstraint(name)
	if c == nil {
		return fmt.Errorf("constraint %s on %s: %w", name, t.Name, ErrNotFound)
	}
	s.removeConstraint(t, c)
	return nil
}

func (s *Schema) removeConstraint(t *Table, c *Constraint) {
	match := func(other *Constraint) bool { return other == c }
	switch c.ConstraintType {
	case PrimaryKey:
		t.PrimaryKey = nil
	case UniqueKey:
		t.UniqueKeys = slices.DeleteFunc(t.UniqueKeys, match)
	case Check:
		t.CheckConstraints = slices.DeleteFunc(t.CheckConstraints, match)
	case Default:
		t.DefaultConstraints = slices.DeleteFunc(t.DefaultConstraints, match)
		for _, col := range c.Columns {
			if column := t.FindColumn(col); column != nil {
				column.DefaultValue = ""
			}
		}
	case ForeignKey:
		t.ForeignKeys = slices.DeleteFunc(t.ForeignKeys, match)
		if parent := s.ReferencedTable(c); parent != nil && !t.referencesTable(parent.Key()) {
			parent.removeChild(t.Key())
		}
	}
	t.refreshFlags()
}

// RemoveColumn drops a column together with the constraints and index
// entries that depend on it.
func (s *Schema) RemoveColumn(t *Table, name string) error {
	if t == nil {
		return ErrNilArgument
	}
	column := t.FindColumn(name)
	if column == nil {
		return fmt.Errorf("remove %s.%s: %w", t.Name, name, ErrColumnNotFound)
	}
	for _, c := range t.Constraints() {
		if c.HasColumn(column.Name) {
			s.removeConstraint(t, c)
		}
	}
	for _, index := range t.Indexes {
		index.Columns = slices.DeleteFunc(index.Columns, func(ic IndexColumn) bool {
			return EqualFold(ic.Name, column.Name)
		})
	}
	t.Indexes = slices.DeleteFunc(t.Indexes, func(i *Index) bool { return len(i.Columns) == 0 })
	t.Columns = slices.DeleteFunc(t.Columns, func(c *Column) bool { return c == column })
	t.refreshFlags()
	return nil
}

// RemoveTable drops a table and unlinks it from the tables it referenced.
// Foreign keys of other tables that point at it are left untouched.
func (s *Schema) RemoveTable(owner, name string) (*Table, error) {
	t := s.FindTable(owner, name)
	if t == nil {
		return nil, fmt.Errorf("table %s: %w", KeyOf(owner, name), ErrNotFound)
	}
	s.Tables = slices.DeleteFunc(s.Tables, func(other *Table) bool { return other == t })
	for _, other := range s.Tables {
		other.removeChild(t.Key())
	}
	return t, nil
}

// RenameTable renames t and every reference to it: owned columns,
// constraints, indexes and triggers, foreign keys of child tables, and the
// child entries held by the tables t references.
func (s *Schema) RenameTable(t *Table, newName string) error {
	if t == nil {
		return ErrNilArgument
	}
	if other := s.FindTable(t.SchemaOwner, newName); other != nil && other != t {
		return fmt.Errorf("rename %s to %s: %w", t.Name, newName, ErrDuplicateObject)
	}
	oldKey := t.Key()
	children := s.childTables(t)

	t.setName(t.SchemaOwner, newName)
	for _, child := range children {
		for _, fk := range child.ForeignKeys {
			if fk.RefersToKey().Matches(oldKey) {
				fk.RefersToTable = newName
			}
		}
	}
	for _, other := range s.Tables {
		for i, k := range other.ForeignKeyChildren {
			if k.Matches(oldKey) {
				other.ForeignKeyChildren[i].Name = newName
			}
		}
	}
	return nil
}

// childTables resolves the ForeignKeyChildren keys of t.
func (s *Schema) childTables(t *Table) []*Table {
	var children []*Table
	for _, k := range t.ForeignKeyChildren {
		if child := s.FindTable(k.Owner, k.Name); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// ChildTables returns the tables whose foreign keys reference t.
func (s *Schema) ChildTables(t *Table) []*Table {
	if t == nil {
		return nil
	}
	return s.childTables(t)
}

// ChildForeignKeys returns every foreign key of another table (or of t
// itself) that points at t.
func (s *Schema) ChildForeignKeys(t *Table) []*Constraint {
	var fks []*Constraint
	for _, child := range s.ChildTables(t) {
		for _, fk := range child.ForeignKeys {
			if parent := s.ReferencedTable(fk); parent == t {
				fks = append(fks, fk)
			}
		}
	}
	return fks
}

// Link recomputes derived state after the model was deserialized or built
// by hand: owner names on owned objects, column ordinals and flags, and
// ForeignKeyChildren.
func (s *Schema) Link() {
	for _, t := range s.Tables {
		if t.SchemaOwner == "" {
			t.SchemaOwner = s.Owner
		}
		t.setName(t.SchemaOwner, t.Name)
		for i, column := range t.Columns {
			if column.Ordinal == 0 {
				column.Ordinal = i + 1
			}
		}
		for _, c := range t.Constraints() {
			if c.ConstraintType == "" {
				c.ConstraintType = t.constraintTypeOf(c)
			}
		}
		t.ForeignKeyChildren = nil
	}
	for _, t := range s.Tables {
		for _, fk := range t.ForeignKeys {
			if parent := s.ReferencedTable(fk); parent != nil {
				if fk.RefersToTable == "" {
					fk.RefersToTable = parent.Name
				}
				parent.addChild(t.Key())
			}
		}
		for _, c := range t.DefaultConstraints {
			for _, col := range c.Columns {
				if column := t.FindColumn(col); column != nil && column.DefaultValue == "" {
					column.DefaultValue = c.Expression
				}
			}
		}
		t.refreshFlags()
	}
	for _, v := range s.Views {
		if v.SchemaOwner == "" {
			v.SchemaOwner = s.Owner
		}
	}
}

// constraintTypeOf infers a missing type from the list holding c.
func (t *Table) constraintTypeOf(c *Constraint) ConstraintType {
	switch {
	case c == t.PrimaryKey:
		return PrimaryKey
	case slices.Contains(t.ForeignKeys, c):
		return ForeignKey
	case slices.Contains(t.UniqueKeys, c):
		return UniqueKey
	case slices.Contains(t.DefaultConstraints, c):
		return Default
	default:
		return Check
	}
}

func (s *Schema) AddView(v *View) error {
	if v == nil {
		return ErrNilArgument
	}
	if v.SchemaOwner == "" {
		v.SchemaOwner = s.Owner
	}
	if s.FindView(v.SchemaOwner, v.Name) != nil {
		return fmt.Errorf("view %s: %w", v.Key(), ErrDuplicateObject)
	}
	s.Views = append(s.Views, v)
	return nil
}

func (s *Schema) FindView(owner, name string) *View {
	return findByKey(s.Views, KeyOf(owner, name), (*View).Key)
}

func (s *Schema) AddProcedure(r *Routine) error {
	if r == nil {
		return ErrNilArgument
	}
	r.Kind = Procedure
	if r.SchemaOwner == "" {
		r.SchemaOwner = s.Owner
	}
	if s.FindProcedure(r.SchemaOwner, r.Name) != nil {
		return fmt.Errorf("procedure %s: %w", r.Key(), ErrDuplicateObject)
	}
	s.StoredProcedures = append(s.StoredProcedures, r)
	return nil
}

func (s *Schema) FindProcedure(owner, name string) *Routine {
	return findByKey(s.StoredProcedures, KeyOf(owner, name), (*Routine).Key)
}

func (s *Schema) AddFunction(r *Routine) error {
	if r == nil {
		return ErrNilArgument
	}
	r.Kind = Function
	if r.SchemaOwner == "" {
		r.SchemaOwner = s.Owner
	}
	if s.FindFunction(r.SchemaOwner, r.Name) != nil {
		return fmt.Errorf("function %s: %w", r.Key(), ErrDuplicateObject)
	}
	s.Functions = append(s.Functions, r)
	return nil
}

func (s *Schema) FindFunction(owner, name string) *Routine {
	return findByKey(s.Functions, KeyOf(owner, name), (*Routine).Key)
}

func (s *Schema) AddPackage(p *Package) error {
	if p == nil {
		return ErrNilArgument
	}
	if p.SchemaOwner == "" {
		p.SchemaOwner = s.Owner
	}
	if s.FindPackage(p.SchemaOwner, p.Name) != nil {
		return fmt.Errorf("package %s: %w", p.Key(), ErrDuplicateObject)
	}
	s.Packages = append(s.Packages, p)
	return nil
}

func (s *Schema) FindPackage(owner, name string) *Package {
	return findByKey(s.Packages, KeyOf(owner, name), (*Package).Key)
}

func (s *Schema) AddSequence(seq *Sequence) error {
	if seq == nil {
		return ErrNilArgument
	}
	if seq.SchemaOwner == "" {
		seq.SchemaOwner = s.Owner
	}
	if s.FindSequence(seq.SchemaOwner, seq.Name) != nil {
		return fmt.Errorf("sequence %s: %w", seq.Key(), ErrDuplicateObject)
	}
	s.Sequences = append(s.Sequences, seq)
	return nil
}

func (s *Schema) FindSequence(owner, name string) *Sequence {
	return findByKey(s.Sequences, KeyOf(owner, name), (*Sequence).Key)
}

func (s *Schema) FindDataType(name string) *DataType {
	for _, dt := range s.DataTypes {
		if EqualFold(dt.TypeName, name) {
			return dt
		}
	}
	return nil
}

// Clone returns a deep copy sharing nothing with s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Tables = cloneAll(s.Tables, (*Table).Clone)
	clone.Views = cloneAll(s.Views, (*View).Clone)
	clone.StoredProcedures = cloneAll(s.StoredProcedures, (*Routine).Clone)
	clone.Functions = cloneAll(s.Functions, (*Routine).Clone)
	clone.Packages = cloneAll(s.Packages, (*Package).Clone)
	clone.Sequences = cloneAll(s.Sequences, (*Sequence).Clone)
	clone.Users = cloneAll(s.Users, func(u *User) *User {
		user := *u
		return &user
	})
	clone.DataTypes = cloneAll(s.DataTypes, func(d *DataType) *DataType {
		dt := *d
		return &dt
	})
	return &clone
}

func findByKey[T any](items []*T, key Key, keyOf func(*T) Key) *T {
	for _, item := range items {
		if keyOf(item).Matches(key) {
			return item
		}
	}
	return nil
}
