package database

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/schema"
)

// Constraint types as information_schema.table_constraints spells them.
const (
	PrimaryKeyType = "PRIMARY KEY"
	UniqueType     = "UNIQUE"
	ForeignKeyType = "FOREIGN KEY"
	CheckType      = "CHECK"
)

// ConstraintRow is one column of a constraint as catalog queries return it.
// A key spanning several columns comes as several rows in column order.
type ConstraintRow struct {
	Table      string
	Name       string
	Type       string
	Column     string
	RefTable   string
	RefKey     string
	UpdateRule string
	DeleteRule string
	Expression string
}

// AddConstraints groups rows by table and constraint name and adds them to
// the tables of s. Foreign keys go last so that every parent is known.
func AddConstraints(s *schema.Schema, rows []ConstraintRow) error {
	type group struct {
		first   ConstraintRow
		columns []string
	}
	var order []string
	groups := map[string]*group{}
	for _, row := range rows {
		id := row.Table + "\x00" + row.Name
		g, ok := groups[id]
		if !ok {
			g = &group{first: row}
			groups[id] = g
			order = append(order, id)
		}
		if row.Column != "" {
			g.columns = append(g.columns, row.Column)
		}
	}

	for _, pass := range []bool{false, true} {
		for _, id := range order {
			g := groups[id]
			if (g.first.Type == ForeignKeyType) != pass {
				continue
			}
			t := s.FindTableByName(g.first.Table)
			if t == nil {
				continue
			}
			if err := addConstraint(s, t, g.first, g.columns); err != nil {
				return fmt.Errorf("table %s: %w", t.Name, err)
			}
		}
	}
	return nil
}

func addConstraint(s *schema.Schema, t *schema.Table, row ConstraintRow, columns []string) error {
	switch row.Type {
	case PrimaryKeyType:
		return t.AddPrimaryKey(row.Name, columns...)
	case UniqueType:
		return t.AddUniqueKey(row.Name, columns...)
	case CheckType:
		return t.AddCheck(row.Name, row.Expression)
	case ForeignKeyType:
		fk, err := s.AddForeignKey(t, row.Name, row.RefTable, columns...)
		if err != nil {
			return err
		}
		fk.SetUpdateRule(ReferentialRule(row.UpdateRule)).SetDeleteRule(ReferentialRule(row.DeleteRule))
		if row.RefKey != "" {
			fk.SetRefersToConstraint(row.RefKey)
		}
		return nil
	default:
		return fmt.Errorf("constraint %s: unknown type %q", row.Name, row.Type)
	}
}

// ReferentialRule turns a catalog rule such as "SET_NULL" or "NO ACTION"
// into the model's spelling; NO ACTION is the empty default.
func ReferentialRule(rule string) string {
	rule = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(rule, "_", " ")))
	if rule == "NO ACTION" {
		return ""
	}
	return rule
}

// IndexRow is one key column of an index.
type IndexRow struct {
	Table      string
	Name       string
	Unique     bool
	IndexType  string
	Column     string
	Descending bool
}

// AddIndexes groups rows by table and index name. Rows must not include the
// indexes behind primary and unique keys.
func AddIndexes(s *schema.Schema, rows []IndexRow) error {
	type group struct {
		first      IndexRow
		columns    []string
		descending []bool
	}
	var order []string
	groups := map[string]*group{}
	for _, row := range rows {
		id := row.Table + "\x00" + row.Name
		g, ok := groups[id]
		if !ok {
			g = &group{first: row}
			groups[id] = g
			order = append(order, id)
		}
		g.columns = append(g.columns, row.Column)
		g.descending = append(g.descending, row.Descending)
	}

	for _, id := range order {
		g := groups[id]
		t := s.FindTableByName(g.first.Table)
		if t == nil {
			continue
		}
		index, err := t.AddIndex(g.first.Name, g.first.Unique, g.columns...)
		if err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		index.IndexType = g.first.IndexType
		for i := range index.Columns {
			index.Columns[i].Descending = g.descending[i]
		}
	}
	return nil
}

// FinishSchema records the data types the columns use and links the graph.
func FinishSchema(s *schema.Schema) {
	seen := map[string]bool{}
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			dt := dialect.Describe(s.Provider, c.DbDataType)
			if key := strings.ToUpper(dt.TypeName); !seen[key] {
				seen[key] = true
				s.DataTypes = append(s.DataTypes, dt)
			}
		}
	}
	s.Link()
}
