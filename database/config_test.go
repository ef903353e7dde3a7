package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeneratorConfigString(t *testing.T) {
	config, err := ParseGeneratorConfigString(`
target_tables: |
  users
  posts_\d+
skip_checks: |
  IS JSON
include_schema: true
escape_names: false
normalizer: postgres
concurrency: 2
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", `posts_\d+`}, config.TargetTables)
	assert.Empty(t, config.SkipTables)
	assert.Equal(t, []string{"IS JSON"}, config.SkipChecks)
	assert.True(t, config.IncludeSchema)
	require.NotNil(t, config.EscapeNames)
	assert.False(t, *config.EscapeNames)
	assert.Nil(t, config.SelfReferencingCascade)
	assert.Equal(t, "postgres", config.Normalizer)
	assert.Equal(t, 2, config.Concurrency)
}

func TestParseGeneratorConfigStringErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown field", yaml: "target_table: users\n"},
		{name: "unknown normalizer", yaml: "normalizer: sqlglot\n"},
		{name: "negative concurrency", yaml: "concurrency: -1\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseGeneratorConfigString(test.yaml)
			assert.Error(t, err)
		})
	}
}

func TestParseGeneratorConfig(t *testing.T) {
	config, err := ParseGeneratorConfig("")
	require.NoError(t, err)
	assert.Equal(t, GeneratorConfig{}, config)

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("skip_tables: logs\n"), 0o644))
	config, err = ParseGeneratorConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"logs"}, config.SkipTables)

	_, err = ParseGeneratorConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestMergeGeneratorConfigs(t *testing.T) {
	no, yes := false, true
	merged := MergeGeneratorConfigs(
		GeneratorConfig{TargetTables: []string{"users"}, EscapeNames: &no, Normalizer: "text"},
		GeneratorConfig{TargetTables: []string{"posts"}, IncludeSchema: true, SelfReferencingCascade: &yes},
		GeneratorConfig{Concurrency: 4},
	)
	assert.Equal(t, []string{"users", "posts"}, merged.TargetTables)
	assert.True(t, merged.IncludeSchema)
	assert.False(t, *merged.EscapeNames)
	assert.True(t, *merged.SelfReferencingCascade)
	assert.Equal(t, "text", merged.Normalizer)
	assert.Equal(t, 4, merged.Concurrency)
}

func TestGeneratorConfigOptions(t *testing.T) {
	opts, err := GeneratorConfig{}.Options()
	require.NoError(t, err)
	assert.True(t, opts.EscapeNames)
	assert.Nil(t, opts.TranslateCheck)

	no := false
	opts, err = GeneratorConfig{EscapeNames: &no, IncludeSchema: true, SkipChecks: []string{`is\s+json`}}.Options()
	require.NoError(t, err)
	assert.False(t, opts.EscapeNames)
	assert.True(t, opts.IncludeSchema)
	require.NotNil(t, opts.TranslateCheck)

	_, ok := opts.TranslateCheck("doc IS JSON")
	assert.False(t, ok)
	expression, ok := opts.TranslateCheck("price > 0")
	assert.True(t, ok)
	assert.Equal(t, "price > 0", expression)

	_, err = GeneratorConfig{SkipChecks: []string{"("}}.Options()
	assert.Error(t, err)
}
