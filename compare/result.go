package compare

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadef/schema"
)

type SchemaObjectType string

const (
	ObjectTable           SchemaObjectType = "Table"
	ObjectColumn          SchemaObjectType = "Column"
	ObjectConstraint      SchemaObjectType = "Constraint"
	ObjectDefault         SchemaObjectType = "Default"
	ObjectIndex           SchemaObjectType = "Index"
	ObjectTrigger         SchemaObjectType = "Trigger"
	ObjectView            SchemaObjectType = "View"
	ObjectStoredProcedure SchemaObjectType = "StoredProcedure"
	ObjectFunction        SchemaObjectType = "Function"
	ObjectPackage         SchemaObjectType = "Package"
	ObjectSequence        SchemaObjectType = "Sequence"
)

type ResultType string

const (
	Add    ResultType = "Add"
	Delete ResultType = "Delete"
	Change ResultType = "Change"
)

// CompareResult is one difference between the base and the target schema.
// TableName is set for objects owned by a table; for a table it repeats
// Name. Script is the DDL that applies the difference to the base.
type CompareResult struct {
	SchemaObjectType SchemaObjectType `yaml:"object"`
	ResultType       ResultType       `yaml:"result"`
	SchemaOwner      string           `yaml:"schema_owner,omitempty"`
	Name             string           `yaml:"name"`
	TableName        string           `yaml:"table,omitempty"`
	Script           string           `yaml:"script,omitempty"`
}

func (r CompareResult) String() string {
	name := r.Name
	if r.TableName != "" && r.SchemaObjectType != ObjectTable {
		name = r.TableName + "." + r.Name
	}
	return fmt.Sprintf("%s %s %s", r.ResultType, r.SchemaObjectType, name)
}

// Script concatenates the scripts of results in order.
func Script(results []CompareResult) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Script)
	}
	return b.String()
}

// Find resolves a result to the object it names in s, or nil when s has no
// such object. Results of the base schema resolve deletions; results of the
// target schema resolve additions.
func Find(s *schema.Schema, r CompareResult) any {
	if s == nil {
		return nil
	}
	switch r.SchemaObjectType {
	case ObjectTable:
		return nilIfAbsent(s.FindTable(r.SchemaOwner, r.Name))
	case ObjectView:
		return nilIfAbsent(s.FindView(r.SchemaOwner, r.Name))
	case ObjectStoredProcedure:
		return nilIfAbsent(s.FindProcedure(r.SchemaOwner, r.Name))
	case ObjectFunction:
		return nilIfAbsent(s.FindFunction(r.SchemaOwner, r.Name))
	case ObjectPackage:
		return nilIfAbsent(s.FindPackage(r.SchemaOwner, r.Name))
	case ObjectSequence:
		return nilIfAbsent(s.FindSequence(r.SchemaOwner, r.Name))
	}

	t := s.FindTable(r.SchemaOwner, r.TableName)
	if t == nil {
		return nil
	}
	switch r.SchemaObjectType {
	case ObjectColumn:
		return nilIfAbsent(t.FindColumn(r.Name))
	case ObjectConstraint:
		return nilIfAbsent(findConstraintByKey(t, r.Name))
	case ObjectDefault:
		if c := findConstraintByKey(t, r.Name); c != nil && c.ConstraintType == schema.Default {
			return c
		}
		if c := t.DefaultConstraintFor(r.Name); c != nil {
			return c
		}
		if column := t.FindColumn(r.Name); column != nil && column.DefaultValue != "" {
			return column
		}
	case ObjectIndex:
		return nilIfAbsent(t.FindIndex(r.Name))
	case ObjectTrigger:
		return nilIfAbsent(t.FindTrigger(r.Name))
	}
	return nil
}

// nilIfAbsent keeps a typed nil pointer from becoming a non-nil interface.
func nilIfAbsent[T any](v *T) any {
	if v == nil {
		return nil
	}
	return v
}

// findConstraintByKey accepts either a constraint name or the key of an
// unnamed constraint, as reported in CompareResult.Name.
func findConstraintByKey(t *schema.Table, key string) *schema.Constraint {
	for _, c := range t.Constraints() {
		if c.Name != "" && schema.EqualFold(c.Name, key) {
			return c
		}
		if c.Name == "" && c.Key() == key {
			return c
		}
	}
	return nil
}

// constraintName is the CompareResult.Name of a constraint.
func constraintName(c *schema.Constraint) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Key()
}
