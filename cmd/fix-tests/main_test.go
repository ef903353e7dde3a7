package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `AddColumn:
  dialect: postgres
  up: |
    ALTER TABLE "users" ADD "old" TEXT NULL;
  down: |
    ALTER TABLE "users" DROP COLUMN "old";
Other:
  dialect: postgres
`

func TestUpdateYamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postgres.yml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	require.NoError(t, updateYamlFile(path, "AddColumn", "down", "ALTER TABLE \"users\" DROP COLUMN \"note\";\n"))
	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `AddColumn:
  dialect: postgres
  up: |
    ALTER TABLE "users" ADD "old" TEXT NULL;
  down: |
    ALTER TABLE "users" DROP COLUMN "note";
Other:
  dialect: postgres
`, string(buf))

	assert.Error(t, updateYamlFile(path, "Other", "up", "x"))
}

func TestParseTestResults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "testdata"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "testdata", "postgres.yml"), []byte(fixture), 0o644))

	output := `{"Action":"run","Test":"TestYAMLCases/AddColumn"}
{"Action":"output","Test":"TestYAMLCases/AddColumn","Output":"        \tError Trace:\ttestutil.go:120\n"}
{"Action":"output","Test":"TestYAMLCases/AddColumn","Output":"        \t            \texpected: \"ALTER TABLE \\\"users\\\" ADD \\\"old\\\" TEXT NULL;\"\n"}
{"Action":"output","Test":"TestYAMLCases/AddColumn","Output":"        \t            \tactual  : \"ALTER TABLE \\\"users\\\" ADD \\\"note\\\" TEXT NULL;\"\n"}
{"Action":"output","Test":"TestYAMLCases/AddColumn","Output":"        \tMessages:   \t[Phase 1: Forward Migration] current → desired should produce 'up' script\n"}
{"Action":"output","Test":"TestYAMLCases/AddColumn","Output":"        \tError Trace:\ttestutil.go:135\n"}
{"Action":"output","Test":"TestYAMLCases/AddColumn","Output":"        \t            \texpected: \"DROP\\nX\"\n"}
{"Action":"output","Test":"TestYAMLCases/AddColumn","Output":"        \t            \tactual  : \"DROP\\nY\"\n"}
{"Action":"output","Test":"TestYAMLCases/AddColumn","Output":"        \tMessages:   \t[Phase 3: Reverse Migration] desired → current should produce 'down' script\n"}
{"Action":"fail","Test":"TestYAMLCases/AddColumn"}
{"Action":"pass","Test":"TestYAMLCases/Other"}
`
	failures := parseTestResults([]byte(output), dir)
	require.Len(t, failures, 2)
	assert.Equal(t, "up", failures[0].Field)
	assert.Equal(t, `ALTER TABLE "users" ADD "old" TEXT NULL;`, failures[0].Expected)
	assert.Equal(t, `ALTER TABLE "users" ADD "note" TEXT NULL;`, failures[0].Actual)
	assert.Equal(t, filepath.Join(dir, "testdata", "postgres.yml"), failures[0].YamlFile)
	assert.Equal(t, "down", failures[1].Field)
	assert.Equal(t, "DROP\nX", failures[1].Expected)
	assert.Equal(t, "DROP\nY", failures[1].Actual)
}
