package file

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldef/schemadef/schema"
)

func TestExportSchema(t *testing.T) {
	s := schema.New(schema.PostgreSql, "public")
	users := schema.NewTable("", "users")
	users.AddColumn("id", "integer").SetNullable(false)
	require.NoError(t, users.AddPrimaryKey("users_pkey", "id"))
	require.NoError(t, s.AddTable(users))

	path := filepath.Join(t.TempDir(), "schema.yml")
	require.NoError(t, s.WriteYAML(path))

	db := NewDatabase(path)
	defer db.Close()
	exported, err := db.ExportSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema.PostgreSql, exported.Provider)
	require.NotNil(t, exported.FindTable("public", "users"))
	assert.Equal(t, "users_pkey", exported.FindTable("public", "users").PrimaryKey.Name)
}

func TestExportSchemaErrors(t *testing.T) {
	_, err := NewDatabase(filepath.Join(t.TempDir(), "missing.yml")).ExportSchema(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewDatabase("schema.yml").ExportSchema(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshotDatabase(t *testing.T) {
	db := NewSnapshotDatabase("provider: mysql\ntables:\n  - name: users\n    columns:\n      - name: id\n        type: int\n")
	s, err := db.ExportSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema.MySql, s.Provider)
	assert.NotNil(t, s.FindTableByName("users"))

	_, err = NewSnapshotDatabase("").ExportSchema(context.Background())
	assert.Error(t, err)
}
