package schema

import (
	"slices"
	"strings"
)

type ConstraintType string

const (
	PrimaryKey ConstraintType = "PrimaryKey"
	ForeignKey ConstraintType = "ForeignKey"
	UniqueKey  ConstraintType = "UniqueKey"
	Check      ConstraintType = "Check"
	Default    ConstraintType = "Default"
)

// Constraint holds column names rather than column references so it keeps
// working across column renames. Column order is significant.
type Constraint struct {
	Name           string         `yaml:"name,omitempty"`
	SchemaOwner    string         `yaml:"schema_owner,omitempty"`
	TableName      string         `yaml:"table_name,omitempty"`
	ConstraintType ConstraintType `yaml:"type"`
	Columns        []string       `yaml:"columns,omitempty"`
	Expression     string         `yaml:"expression,omitempty"`

	RefersToSchema     string `yaml:"refers_to_schema,omitempty"`
	RefersToTable      string `yaml:"refers_to_table,omitempty"`
	RefersToConstraint string `yaml:"refers_to_constraint,omitempty"`
	DeleteRule         string `yaml:"delete_rule,omitempty"`
	UpdateRule         string `yaml:"update_rule,omitempty"`
}

func (c *Constraint) SetDeleteRule(rule string) *Constraint {
	c.DeleteRule = rule
	return c
}

func (c *Constraint) SetUpdateRule(rule string) *Constraint {
	c.UpdateRule = rule
	return c
}

func (c *Constraint) SetRefersToConstraint(name string) *Constraint {
	c.RefersToConstraint = name
	return c
}

// Key identifies the constraint within its table. Unnamed constraints (as
// SQLite reports them) are keyed by type and columns.
func (c *Constraint) Key() string {
	if c.Name != "" {
		return fold(c.Name)
	}
	return string(c.ConstraintType) + "(" + fold(strings.Join(c.Columns, ",")) + ")"
}

func (c *Constraint) TableKey() Key {
	return Key{Owner: c.SchemaOwner, Name: c.TableName}
}

func (c *Constraint) RefersToKey() Key {
	return Key{Owner: c.RefersToSchema, Name: c.RefersToTable}
}

// HasColumn reports whether the constraint covers the named column.
func (c *Constraint) HasColumn(name string) bool {
	return slices.ContainsFunc(c.Columns, func(col string) bool {
		return EqualFold(col, name)
	})
}

// IsSelfReferencing reports whether a foreign key points at its own table.
func (c *Constraint) IsSelfReferencing() bool {
	return c.ConstraintType == ForeignKey && c.TableKey().Matches(c.RefersToKey())
}

// ColumnsEqual compares column lists in order, case-insensitively.
func (c *Constraint) ColumnsEqual(other *Constraint) bool {
	return slices.EqualFunc(c.Columns, other.Columns, EqualFold)
}

func (c *Constraint) Clone() *Constraint {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Columns = slices.Clone(c.Columns)
	return &clone
}

func (c *Constraint) renameColumn(oldName, newName string) {
	for i, col := range c.Columns {
		if EqualFold(col, oldName) {
			c.Columns[i] = newName
		}
	}
}
