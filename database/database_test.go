package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldef/schemadef/schema"
)

type fakeDatabase struct {
	schema *schema.Schema
	err    error
}

func (f fakeDatabase) ExportSchema(ctx context.Context) (*schema.Schema, error) {
	return f.schema, f.err
}

func (f fakeDatabase) Close() error {
	return nil
}

func newSchema(t *testing.T, tables ...string) *schema.Schema {
	t.Helper()
	s := schema.New(schema.PostgreSql, "public")
	for _, name := range tables {
		table := schema.NewTable("", name)
		table.AddColumn("id", "integer").SetNullable(false)
		require.NoError(t, s.AddTable(table))
	}
	return s
}

func tableNames(s *schema.Schema) []string {
	var names []string
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

func TestExportSchemas(t *testing.T) {
	base, target := newSchema(t, "users"), newSchema(t, "users", "posts")
	schemas, err := ExportSchemas(context.Background(), []Database{fakeDatabase{schema: base}, fakeDatabase{schema: target}}, 2)
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Same(t, base, schemas[0])
	assert.Same(t, target, schemas[1])

	failure := errors.New("connection refused")
	_, err = ExportSchemas(context.Background(), []Database{fakeDatabase{schema: base}, fakeDatabase{err: failure}}, 2)
	assert.ErrorIs(t, err, failure)
}

func TestFilterTables(t *testing.T) {
	s := newSchema(t, "users", "posts_1", "posts_2", "logs")

	tests := []struct {
		name     string
		config   GeneratorConfig
		expected []string
	}{
		{name: "no filter", expected: []string{"users", "posts_1", "posts_2", "logs"}},
		{name: "target", config: GeneratorConfig{TargetTables: []string{`posts_\d+`}}, expected: []string{"posts_1", "posts_2"}},
		{name: "qualified target", config: GeneratorConfig{TargetTables: []string{"public.users"}}, expected: []string{"users"}},
		{name: "skip", config: GeneratorConfig{SkipTables: []string{"LOGS"}}, expected: []string{"users", "posts_1", "posts_2"}},
		{name: "target and skip", config: GeneratorConfig{TargetTables: []string{"posts_.*"}, SkipTables: []string{"posts_2"}}, expected: []string{"posts_1"}},
		{name: "whole names only", config: GeneratorConfig{TargetTables: []string{"post"}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			filtered, err := FilterTables(s, test.config)
			require.NoError(t, err)
			assert.Equal(t, test.expected, tableNames(filtered))
		})
	}
	assert.Len(t, s.Tables, 4, "the input is left untouched")

	_, err := FilterTables(s, GeneratorConfig{SkipTables: []string{"("}})
	assert.Error(t, err)
}
