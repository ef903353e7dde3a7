package ddl

import (
	"regexp"

	"github.com/sqldef/schemadef/schema"
)

// topologicalSort orders items so that each one follows its dependencies,
// using a depth-first walk with visiting/visited marks. Dependencies that
// are not among items are ignored. It returns nil on a cycle.
func topologicalSort[T any](items []T, dependencies map[string][]string, getID func(T) string) []T {
	var sorted []T
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	itemMap := make(map[string]T)

	for _, item := range items {
		itemMap[getID(item)] = item
	}

	var visit func(string) bool
	visit = func(id string) bool {
		if visiting[id] {
			return false
		}
		if visited[id] {
			return true
		}

		visiting[id] = true
		for _, dep := range dependencies[id] {
			if _, exists := itemMap[dep]; exists {
				if !visit(dep) {
					return false
				}
			}
		}
		visiting[id] = false
		visited[id] = true

		sorted = append(sorted, itemMap[id])
		return true
	}

	for _, item := range items {
		if !visit(getID(item)) {
			return nil
		}
	}
	return sorted
}

// SortTables puts referenced tables before the tables whose foreign keys
// point at them. A cycle keeps the declaration order; the foreign keys are
// written in a second pass anyway.
func SortTables(s *schema.Schema) []*schema.Table {
	if len(s.Tables) < 2 {
		return s.Tables
	}
	dependencies := make(map[string][]string)
	for _, t := range s.Tables {
		var deps []string
		for _, fk := range t.ForeignKeys {
			parent := s.ReferencedTable(fk)
			if parent != nil && parent != t {
				deps = append(deps, parent.Key().Fold())
			}
		}
		dependencies[t.Key().Fold()] = deps
	}

	sorted := topologicalSort(s.Tables, dependencies, func(t *schema.Table) string {
		return t.Key().Fold()
	})
	if sorted == nil {
		return s.Tables
	}
	return sorted
}

// SortViews puts a view after the views its body mentions by name.
func SortViews(views []*schema.View) []*schema.View {
	if len(views) < 2 {
		return views
	}
	dependencies := make(map[string][]string)
	for _, v := range views {
		var deps []string
		for _, other := range views {
			if other != v && mentions(v.Sql, other.Name) {
				deps = append(deps, other.Key().Fold())
			}
		}
		dependencies[v.Key().Fold()] = deps
	}

	sorted := topologicalSort(views, dependencies, func(v *schema.View) string {
		return v.Key().Fold()
	})
	if sorted == nil {
		return views
	}
	return sorted
}

func mentions(sql, name string) bool {
	if name == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)(^|[^\w$#])` + regexp.QuoteMeta(name) + `($|[^\w$#])`)
	if err != nil {
		return false
	}
	return re.MatchString(sql)
}
