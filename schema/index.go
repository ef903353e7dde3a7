package schema

import (
	"cmp"
	"slices"
)

type Index struct {
	Name        string        `yaml:"name"`
	SchemaOwner string        `yaml:"schema_owner,omitempty"`
	TableName   string        `yaml:"table_name,omitempty"`
	IsUnique    bool          `yaml:"unique,omitempty"`
	IndexType   string        `yaml:"index_type,omitempty"` // free-text hint: CLUSTERED, UNIQUE, PRIMARY, BTREE, ...
	Columns     []IndexColumn `yaml:"columns"`
}

type IndexColumn struct {
	Name       string `yaml:"name"`
	Ordinal    int    `yaml:"ordinal,omitempty"`
	Descending bool   `yaml:"descending,omitempty"`
}

// SortedColumns returns the columns in ordinal order.
func (i *Index) SortedColumns() []IndexColumn {
	cols := slices.Clone(i.Columns)
	slices.SortStableFunc(cols, func(a, b IndexColumn) int {
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})
	return cols
}

// ColumnNames returns the column names in ordinal order.
func (i *Index) ColumnNames() []string {
	var names []string
	for _, col := range i.SortedColumns() {
		names = append(names, col.Name)
	}
	return names
}

func (i *Index) HasColumn(name string) bool {
	return slices.ContainsFunc(i.Columns, func(col IndexColumn) bool {
		return EqualFold(col.Name, name)
	})
}

func (i *Index) Clone() *Index {
	if i == nil {
		return nil
	}
	clone := *i
	clone.Columns = slices.Clone(i.Columns)
	return &clone
}
