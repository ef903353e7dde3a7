package schemadef

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldef/schemadef/database"
	"github.com/sqldef/schemadef/database/file"
	"github.com/sqldef/schemadef/dialect"
)

const (
	usersSnapshot = `
provider: postgres
owner: public
tables:
  - name: users
    columns:
      - name: id
        type: integer
    primary_key:
      name: users_pkey
      columns: [id]
  - name: logs
    columns:
      - name: id
        type: integer
`
	usersWithNoteSnapshot = `
provider: postgres
owner: public
tables:
  - name: users
    columns:
      - name: id
        type: integer
      - name: note
        type: text
        nullable: true
    primary_key:
      name: users_pkey
      columns: [id]
  - name: logs
    columns:
      - name: id
        type: integer
      - name: message
        type: text
        nullable: true
`
)

func run(t *testing.T, current, desired string, options Options) string {
	t.Helper()
	var out bytes.Buffer
	var desiredDB database.Database
	if desired != "" {
		desiredDB = file.NewSnapshotDatabase(desired)
	}
	err := Run(context.Background(), &out, dialect.PostgreSql(), file.NewSnapshotDatabase(current), desiredDB, &options)
	require.NoError(t, err)
	return out.String()
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		desired  string
		options  Options
		expected string
	}{
		{
			name:     "nothing modified",
			current:  usersSnapshot,
			desired:  usersSnapshot,
			expected: "-- Nothing is modified --\n",
		},
		{
			name:     "add columns",
			current:  usersSnapshot,
			desired:  usersWithNoteSnapshot,
			expected: "ALTER TABLE \"users\" ADD \"note\" TEXT NULL;\nALTER TABLE \"logs\" ADD \"message\" TEXT NULL;\n",
		},
		{
			name:     "skip tables",
			current:  usersSnapshot,
			desired:  usersWithNoteSnapshot,
			options:  Options{Config: database.GeneratorConfig{SkipTables: []string{"logs"}}},
			expected: "ALTER TABLE \"users\" ADD \"note\" TEXT NULL;\n",
		},
		{
			name:     "results",
			current:  usersSnapshot,
			desired:  usersWithNoteSnapshot,
			options:  Options{Results: true, Config: database.GeneratorConfig{TargetTables: []string{"users"}, IncludeSchema: true}},
			expected: "-- Add Column users.note\nALTER TABLE \"public\".\"users\" ADD \"note\" TEXT NULL;\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, run(t, test.current, test.desired, test.options))
		})
	}
}

func TestRunExport(t *testing.T) {
	sql := run(t, usersSnapshot, "", Options{Export: true})
	assert.Contains(t, sql, "CREATE TABLE \"users\"")
	assert.Contains(t, sql, "CREATE TABLE \"logs\"")

	y := run(t, usersSnapshot, "", Options{Export: true, ExportFormat: "yaml", Config: database.GeneratorConfig{SkipTables: []string{"logs"}}})
	assert.Contains(t, y, "name: users")
	assert.NotContains(t, y, "name: logs")

	empty := run(t, "provider: postgres\n", "", Options{Export: true})
	assert.Equal(t, "-- No table exists --\n", empty)

	err := Run(context.Background(), &bytes.Buffer{}, dialect.PostgreSql(), file.NewSnapshotDatabase(usersSnapshot), nil, &Options{Export: true, ExportFormat: "xml"})
	assert.Error(t, err)
}

func TestRunExportObjects(t *testing.T) {
	views := run(t, `
provider: postgres
owner: public
views:
  - name: active_users
    sql: SELECT 1 AS id
`, "", Options{Export: true})
	assert.NotContains(t, views, "No table exists")
	assert.Contains(t, views, "CREATE VIEW")
	assert.Contains(t, views, "SELECT 1 AS id")

	sequences := run(t, `
provider: postgres
owner: public
sequences:
  - name: order_seq
`, "", Options{Export: true})
	assert.Contains(t, sequences, "CREATE SEQUENCE")
	assert.Contains(t, sequences, "order_seq")
}

func TestRunErrors(t *testing.T) {
	current := file.NewSnapshotDatabase(usersSnapshot)
	err := Run(context.Background(), &bytes.Buffer{}, dialect.PostgreSql(), current, nil, &Options{})
	assert.Error(t, err)

	err = Run(context.Background(), &bytes.Buffer{}, dialect.PostgreSql(), current, file.NewSnapshotDatabase("provider: postgres\nbogus: 1\n"), &Options{})
	assert.Error(t, err)

	err = Run(context.Background(), &bytes.Buffer{}, dialect.PostgreSql(), current, current, &Options{Config: database.GeneratorConfig{SkipChecks: []string{"("}}})
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yml")
	require.NoError(t, os.WriteFile(path, []byte(usersSnapshot), 0o644))
	content, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, usersSnapshot, content)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
