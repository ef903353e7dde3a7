package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldef/schemadef/schema"
)

func TestAddConstraints(t *testing.T) {
	s := schema.New(schema.MySql, "shop")
	customers := schema.NewTable("", "customers")
	customers.AddColumn("id", "int").SetNullable(false)
	customers.AddColumn("email", "varchar").SetLength(100)
	require.NoError(t, s.AddTable(customers))
	lines := schema.NewTable("", "order_lines")
	lines.AddColumn("order_id", "int").SetNullable(false)
	lines.AddColumn("line", "int").SetNullable(false)
	lines.AddColumn("customer_id", "int")
	lines.AddColumn("qty", "int")
	require.NoError(t, s.AddTable(lines))

	err := AddConstraints(s, []ConstraintRow{
		// the foreign key comes before its parent key on purpose
		{Table: "order_lines", Name: "fk_lines_customers", Type: ForeignKeyType, Column: "customer_id", RefTable: "customers", RefKey: "PRIMARY", UpdateRule: "NO ACTION", DeleteRule: "SET_NULL"},
		{Table: "customers", Name: "PRIMARY", Type: PrimaryKeyType, Column: "id"},
		{Table: "customers", Name: "uk_email", Type: UniqueType, Column: "email"},
		{Table: "order_lines", Name: "PRIMARY", Type: PrimaryKeyType, Column: "order_id"},
		{Table: "order_lines", Name: "PRIMARY", Type: PrimaryKeyType, Column: "line"},
		{Table: "order_lines", Name: "ck_qty", Type: CheckType, Expression: "qty > 0"},
		{Table: "missing", Name: "PRIMARY", Type: PrimaryKeyType, Column: "id"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"id"}, customers.PrimaryKey.Columns)
	require.Len(t, customers.UniqueKeys, 1)
	assert.Equal(t, "uk_email", customers.UniqueKeys[0].Name)
	assert.Equal(t, []string{"order_id", "line"}, lines.PrimaryKey.Columns)
	require.Len(t, lines.CheckConstraints, 1)
	assert.Equal(t, "qty > 0", lines.CheckConstraints[0].Expression)

	require.Len(t, lines.ForeignKeys, 1)
	fk := lines.ForeignKeys[0]
	assert.Equal(t, "customers", fk.RefersToTable)
	assert.Equal(t, "PRIMARY", fk.RefersToConstraint)
	assert.Equal(t, "SET NULL", fk.DeleteRule)
	assert.Empty(t, fk.UpdateRule)
	assert.Same(t, customers, s.ReferencedTable(fk))

	err = AddConstraints(s, []ConstraintRow{{Table: "customers", Name: "x", Type: "EXCLUDE"}})
	assert.Error(t, err)
}

func TestAddIndexes(t *testing.T) {
	s := schema.New(schema.PostgreSql, "public")
	users := schema.NewTable("", "users")
	users.AddColumn("name", "text")
	users.AddColumn("created_at", "timestamp")
	require.NoError(t, s.AddTable(users))

	require.NoError(t, AddIndexes(s, []IndexRow{
		{Table: "users", Name: "ix_users_name_created", IndexType: "btree", Column: "name"},
		{Table: "users", Name: "ix_users_name_created", IndexType: "btree", Column: "created_at", Descending: true},
		{Table: "users", Name: "ux_users_name", Unique: true, Column: "name"},
	}))
	require.Len(t, users.Indexes, 2)
	assert.Equal(t, "btree", users.Indexes[0].IndexType)
	assert.Equal(t, []schema.IndexColumn{
		{Name: "name", Ordinal: 1},
		{Name: "created_at", Ordinal: 2, Descending: true},
	}, users.Indexes[0].Columns)
	assert.True(t, users.Indexes[1].IsUnique)

	assert.Error(t, AddIndexes(s, []IndexRow{{Table: "users", Name: "ix_bad", Column: "missing"}}))
}

func TestReferentialRule(t *testing.T) {
	for input, expected := range map[string]string{
		"NO ACTION":   "",
		"NO_ACTION":   "",
		"cascade":     "CASCADE",
		"SET_DEFAULT": "SET DEFAULT",
		"RESTRICT":    "RESTRICT",
		"":            "",
	} {
		assert.Equal(t, expected, ReferentialRule(input), input)
	}
}

func TestFinishSchema(t *testing.T) {
	s := schema.New(schema.PostgreSql, "public")
	users := schema.NewTable("", "users")
	users.AddColumn("id", "integer")
	users.AddColumn("parent_id", "INTEGER")
	users.AddColumn("name", "text")
	require.NoError(t, s.AddTable(users))

	FinishSchema(s)
	assert.Len(t, s.DataTypes, 2)
	assert.NotNil(t, s.FindDataType("text"))
}
