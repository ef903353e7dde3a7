package schema

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newShop builds Customers <- Orders <- OrderLines, plus a self-referencing
// Categories table.
func newShop(t *testing.T) *Schema {
	t.Helper()
	s := New(SqlServer, "dbo")

	customers := NewTable("", "Customers")
	customers.AddColumn("Id", "INT").SetNullable(false).SetIdentity(1, 1)
	customers.AddColumn("Name", "NVARCHAR").SetLength(50).SetNullable(false)
	require.NoError(t, customers.AddPrimaryKey("PK_Customers", "Id"))
	require.NoError(t, customers.AddUniqueKey("UK_Customers_Name", "Name"))
	require.NoError(t, s.AddTable(customers))

	orders := NewTable("", "Orders")
	orders.AddColumn("Id", "INT").SetNullable(false)
	orders.AddColumn("CustomerId", "INT").SetNullable(false)
	orders.AddColumn("Total", "DECIMAL").SetPrecision(18, 2)
	orders.AddColumn("Status", "VARCHAR").SetLength(10)
	require.NoError(t, orders.AddPrimaryKey("PK_Orders", "Id"))
	require.NoError(t, orders.AddCheck("CK_Orders_Total", "([Total]>(0))"))
	require.NoError(t, orders.AddDefault("DF_Orders_Status", "Status", "('new')"))
	_, err := orders.AddIndex("IX_Orders_Status", false, "Status")
	require.NoError(t, err)
	require.NoError(t, orders.AddTrigger(&Trigger{Name: "TR_Orders", TriggerType: "AFTER", TriggerEvent: "INSERT", TriggerBody: "SELECT 1"}))
	require.NoError(t, s.AddTable(orders))
	_, err = s.AddForeignKey(orders, "FK_Orders_Customers", "Customers", "CustomerId")
	require.NoError(t, err)

	lines := NewTable("", "OrderLines")
	lines.AddColumn("OrderId", "INT").SetNullable(false)
	lines.AddColumn("LineNo", "INT").SetNullable(false)
	require.NoError(t, lines.AddPrimaryKey("PK_OrderLines", "OrderId", "LineNo"))
	require.NoError(t, s.AddTable(lines))
	fk, err := s.AddForeignKey(lines, "FK_OrderLines_Orders", "Orders", "OrderId")
	require.NoError(t, err)
	fk.SetDeleteRule("CASCADE")

	categories := NewTable("", "Categories")
	categories.AddColumn("Id", "INT").SetNullable(false)
	categories.AddColumn("ParentId", "INT")
	require.NoError(t, categories.AddPrimaryKey("PK_Categories", "Id"))
	require.NoError(t, s.AddTable(categories))
	_, err = s.AddForeignKey(categories, "FK_Categories_Parent", "Categories", "ParentId")
	require.NoError(t, err)

	return s
}

func TestAddTable(t *testing.T) {
	s := newShop(t)

	orders := s.FindTableByName("orders")
	require.NotNil(t, orders)
	assert.Equal(t, "dbo", orders.SchemaOwner)
	for _, column := range orders.Columns {
		assert.Equal(t, "dbo", column.SchemaOwner)
		assert.Equal(t, "Orders", column.TableName)
	}

	err := s.AddTable(NewTable("DBO", "ORDERS"))
	assert.True(t, errors.Is(err, ErrDuplicateObject))
	assert.ErrorIs(t, s.AddTable(nil), ErrNilArgument)

	// A different owner is a different table.
	require.NoError(t, s.AddTable(NewTable("sales", "Orders")))
	assert.NotNil(t, s.FindTable("sales", "orders"))
}

func TestConstraintBuilders(t *testing.T) {
	table := NewTable("dbo", "T")
	table.AddColumn("A", "INT")
	table.AddColumn("B", "INT")

	assert.ErrorIs(t, table.AddPrimaryKey("PK_T"), ErrNoColumns)
	assert.ErrorIs(t, table.AddPrimaryKey("PK_T", "Missing"), ErrColumnNotFound)
	assert.ErrorIs(t, table.AddUniqueKey("UK_T", "A", "Missing"), ErrColumnNotFound)
	_, err := table.AddIndex("IX_T", false)
	assert.ErrorIs(t, err, ErrNoColumns)
	assert.Error(t, table.AddCheck("CK_T", ""))
	assert.Nil(t, table.PrimaryKey)

	require.NoError(t, table.AddPrimaryKey("PK_T", "b", "a"))
	assert.Equal(t, []string{"B", "A"}, table.PrimaryKey.Columns, "column order and spelling come from the table")
	assert.True(t, table.FindColumn("A").IsPrimaryKey)
	assert.True(t, table.FindColumn("B").IsPrimaryKey)

	require.NoError(t, table.AddUniqueKey("UK_T_A", "A"))
	assert.True(t, table.FindColumn("A").IsUniqueKey)
	assert.False(t, table.FindColumn("B").IsUniqueKey)

	_, err = table.AddIndex("IX_T_B", false, "B")
	require.NoError(t, err)
	assert.True(t, table.FindColumn("B").IsIndexed)

	require.NoError(t, table.AddDefault("DF_T_A", "A", "0"))
	require.NoError(t, table.AddDefault("DF_T_A2", "A", "1"))
	assert.Len(t, table.DefaultConstraints, 1)
	assert.Equal(t, "1", table.FindColumn("A").DefaultValue)
	assert.Equal(t, "DF_T_A2", table.DefaultConstraintFor("a").Name)

	assert.Len(t, table.Constraints(), 3)
	assert.Equal(t, UniqueKey, table.FindConstraint("uk_t_a").ConstraintType)
}

func TestAddForeignKey(t *testing.T) {
	s := newShop(t)
	customers := s.FindTableByName("Customers")
	orders := s.FindTableByName("Orders")
	categories := s.FindTableByName("Categories")

	assert.Equal(t, []Key{orders.Key()}, customers.ForeignKeyChildren)
	assert.True(t, orders.FindColumn("CustomerId").IsForeignKey)
	fk := orders.FindConstraint("FK_Orders_Customers")
	assert.Equal(t, "PK_Customers", fk.RefersToConstraint)
	assert.Equal(t, "dbo", fk.RefersToSchema)

	selfRef := categories.FindConstraint("FK_Categories_Parent")
	assert.True(t, selfRef.IsSelfReferencing())
	assert.False(t, fk.IsSelfReferencing())
	assert.Equal(t, []Key{categories.Key()}, categories.ForeignKeyChildren)

	t.Run("unresolvable reference keeps the name", func(t *testing.T) {
		fk, err := s.AddForeignKey(orders, "FK_Orders_Missing", "Missing", "CustomerId")
		require.NoError(t, err)
		assert.Equal(t, "Missing", fk.RefersToTable)
		assert.Empty(t, fk.RefersToConstraint)
		assert.Nil(t, s.ReferencedTable(fk))
	})

	t.Run("resolve by referenced constraint", func(t *testing.T) {
		fk := &Constraint{ConstraintType: ForeignKey, RefersToConstraint: "uk_customers_name"}
		assert.Same(t, customers, s.ReferencedTable(fk))
	})
}

func TestRenameTable(t *testing.T) {
	s := newShop(t)
	orders := s.FindTableByName("Orders")

	require.NoError(t, s.RenameTable(orders, "PurchaseOrders"))

	assert.Nil(t, s.FindTableByName("Orders"))
	assert.Same(t, orders, s.FindTableByName("PurchaseOrders"))
	for _, column := range orders.Columns {
		assert.Equal(t, "PurchaseOrders", column.TableName)
	}
	for _, c := range orders.Constraints() {
		assert.Equal(t, "PurchaseOrders", c.TableName, c.Name)
	}
	for _, index := range orders.Indexes {
		assert.Equal(t, "PurchaseOrders", index.TableName)
	}
	for _, trigger := range orders.Triggers {
		assert.Equal(t, "PurchaseOrders", trigger.TableName)
	}

	lines := s.FindTableByName("OrderLines")
	assert.Equal(t, "PurchaseOrders", lines.FindConstraint("FK_OrderLines_Orders").RefersToTable)

	customers := s.FindTableByName("Customers")
	assert.Equal(t, []Key{{Owner: "dbo", Name: "PurchaseOrders"}}, customers.ForeignKeyChildren)

	assert.ErrorIs(t, s.RenameTable(orders, "customers"), ErrDuplicateObject)
	assert.ErrorIs(t, s.RenameTable(nil, "x"), ErrNilArgument)
}

func TestRenameSelfReferencingTable(t *testing.T) {
	s := newShop(t)
	categories := s.FindTableByName("Categories")

	require.NoError(t, s.RenameTable(categories, "Groups"))

	fk := categories.FindConstraint("FK_Categories_Parent")
	assert.Equal(t, "Groups", fk.RefersToTable)
	assert.True(t, fk.IsSelfReferencing())
	assert.Equal(t, []Key{{Owner: "dbo", Name: "Groups"}}, categories.ForeignKeyChildren)
}

func TestRenameColumn(t *testing.T) {
	s := newShop(t)
	orders := s.FindTableByName("Orders")

	require.NoError(t, orders.RenameColumn("status", "State"))
	assert.Nil(t, orders.FindColumn("Status"))
	assert.Equal(t, []string{"State"}, orders.FindIndex("IX_Orders_Status").ColumnNames())
	assert.Equal(t, []string{"State"}, orders.DefaultConstraintFor("State").Columns)

	assert.ErrorIs(t, orders.RenameColumn("Nope", "X"), ErrColumnNotFound)
	assert.ErrorIs(t, orders.RenameColumn("Total", "Id"), ErrDuplicateObject)
}

func TestRemoveConstraint(t *testing.T) {
	s := newShop(t)
	customers := s.FindTableByName("Customers")
	orders := s.FindTableByName("Orders")

	require.NoError(t, s.RemoveConstraint(orders, "FK_Orders_Customers"))
	assert.Empty(t, orders.ForeignKeys)
	assert.False(t, orders.FindColumn("CustomerId").IsForeignKey)
	assert.Empty(t, customers.ForeignKeyChildren)

	require.NoError(t, s.RemoveConstraint(orders, "DF_Orders_Status"))
	assert.Empty(t, orders.FindColumn("Status").DefaultValue)

	require.NoError(t, s.RemoveConstraint(customers, "PK_Customers"))
	assert.Nil(t, customers.PrimaryKey)
	assert.False(t, customers.FindColumn("Id").IsPrimaryKey)

	assert.ErrorIs(t, s.RemoveConstraint(orders, "nope"), ErrNotFound)
}

func TestRemoveColumn(t *testing.T) {
	s := newShop(t)
	orders := s.FindTableByName("Orders")

	require.NoError(t, s.RemoveColumn(orders, "CustomerId"))
	assert.Nil(t, orders.FindColumn("CustomerId"))
	assert.Nil(t, orders.FindConstraint("FK_Orders_Customers"))
	assert.Empty(t, s.FindTableByName("Customers").ForeignKeyChildren)

	require.NoError(t, s.RemoveColumn(orders, "Status"))
	assert.Nil(t, orders.FindIndex("IX_Orders_Status"))
	assert.Empty(t, orders.DefaultConstraints)

	assert.ErrorIs(t, s.RemoveColumn(orders, "Status"), ErrColumnNotFound)
}

func TestRemoveTable(t *testing.T) {
	s := newShop(t)

	removed, err := s.RemoveTable("", "OrderLines")
	require.NoError(t, err)
	assert.Equal(t, "OrderLines", removed.Name)
	assert.Empty(t, s.FindTableByName("Orders").ForeignKeyChildren)

	_, err = s.RemoveTable("", "OrderLines")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChildForeignKeys(t *testing.T) {
	s := newShop(t)
	orders := s.FindTableByName("Orders")

	fks := s.ChildForeignKeys(orders)
	require.Len(t, fks, 1)
	assert.Equal(t, "FK_OrderLines_Orders", fks[0].Name)
	assert.Empty(t, s.ChildForeignKeys(s.FindTableByName("OrderLines")))
}

func TestClone(t *testing.T) {
	s := newShop(t)
	clone := s.Clone()

	orders := clone.FindTableByName("Orders")
	require.NoError(t, clone.RenameTable(orders, "Renamed"))
	orders.FindColumn("Status").SetLength(99)

	assert.NotNil(t, s.FindTableByName("Orders"))
	assert.Equal(t, 10, s.FindTableByName("Orders").FindColumn("Status").Length)
	assert.Equal(t, "Orders", s.FindTableByName("OrderLines").FindConstraint("FK_OrderLines_Orders").RefersToTable)
}

func TestRoutinesAndViews(t *testing.T) {
	s := New(Oracle, "HR")

	require.NoError(t, s.AddView(&View{Name: "V_EMP", Sql: "SELECT 1 FROM DUAL"}))
	assert.ErrorIs(t, s.AddView(&View{Name: "v_emp"}), ErrDuplicateObject)
	require.NoError(t, s.AddProcedure(&Routine{Name: "P_RAISE", Sql: "BEGIN NULL; END;"}))
	require.NoError(t, s.AddFunction(&Routine{Name: "F_TAX", ReturnType: "NUMBER"}))
	assert.ErrorIs(t, s.AddFunction(&Routine{Name: "f_tax"}), ErrDuplicateObject)
	require.NoError(t, s.AddPackage(&Package{Name: "PKG_PAY", Definition: "PACKAGE PKG_PAY AS END;"}))
	require.NoError(t, s.AddSequence(&Sequence{Name: "SEQ_EMP", StartValue: 1, IncrementBy: 1}))
	s.DataTypes = append(s.DataTypes, &DataType{TypeName: "BLOB", Category: CategoryBinary, IsLob: true})

	assert.Equal(t, "HR", s.FindView("", "V_EMP").SchemaOwner)
	assert.Equal(t, Procedure, s.FindProcedure("hr", "p_raise").Kind)
	assert.Equal(t, Function, s.FindFunction("", "F_TAX").Kind)
	assert.NotNil(t, s.FindPackage("", "pkg_pay"))
	assert.NotNil(t, s.FindSequence("", "seq_emp"))
	assert.True(t, s.FindDataType("blob").IsBlob())
	assert.Nil(t, s.FindProcedure("OTHER", "P_RAISE"))
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"Y", true},
		{"yes", true},
		{"YES", true},
		{"T", true},
		{"true", true},
		{"1", true},
		{" -1 ", true},
		{"N", false},
		{"no", false},
		{"NO", false},
		{"F", false},
		{"false", false},
		{"0", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseBool(tt.input))
		})
	}
}

func TestParseProvider(t *testing.T) {
	for input, expected := range map[string]Provider{
		"SqlServer":   SqlServer,
		"mssql":       SqlServer,
		"postgres":    PostgreSql,
		"PostgreSQL":  PostgreSql,
		"sqlite3":     SQLite,
		"SQL_SERVER":  SqlServer,
		"sql-ce":      SqlServerCe,
		"Oracle":      Oracle,
		"db2":         Db2,
		"mariadb":     MySql,
		"sqlserverce": SqlServerCe,
	} {
		p, err := ParseProvider(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, p, input)
	}

	_, err := ParseProvider("access")
	assert.Error(t, err)
}

func TestKeyMatches(t *testing.T) {
	assert.True(t, KeyOf("dbo", "Orders").Matches(KeyOf("DBO", "orders")))
	assert.True(t, KeyOf("", "Orders").Matches(KeyOf("sales", "ORDERS")))
	assert.False(t, KeyOf("dbo", "Orders").Matches(KeyOf("sales", "Orders")))
	assert.Equal(t, KeyOf("DBO", "Ärzte").Fold(), KeyOf("dbo", "äRZTE").Fold())
	assert.Equal(t, "dbo.Orders", KeyOf("dbo", "Orders").String())
}

const snapshot = `
provider: postgres
owner: public
tables:
  - name: parents
    columns:
      - name: id
        type: integer
        nullable: false
        identity:
          seed: 1
          increment: 1
    primary_key:
      name: parents_pkey
      columns: [id]
  - name: children
    columns:
      - name: id
        type: integer
        nullable: false
      - name: parent_id
        type: integer
        nullable: true
      - name: note
        type: varchar
        length: 20
        nullable: true
    primary_key:
      name: children_pkey
      columns: [id]
    foreign_keys:
      - name: children_parent_fk
        columns: [parent_id]
        refers_to_table: parents
        delete_rule: CASCADE
    default_constraints:
      - name: children_note_default
        columns: [note]
        expression: "'n/a'"
`

func TestParseYAML(t *testing.T) {
	s, err := ParseYAMLString(snapshot)
	require.NoError(t, err)

	assert.Equal(t, PostgreSql, s.Provider)
	parents := s.FindTable("public", "parents")
	children := s.FindTable("public", "children")
	require.NotNil(t, parents)
	require.NotNil(t, children)

	assert.Equal(t, PrimaryKey, parents.PrimaryKey.ConstraintType)
	assert.Equal(t, ForeignKey, children.ForeignKeys[0].ConstraintType)
	assert.Equal(t, Default, children.DefaultConstraints[0].ConstraintType)
	assert.Equal(t, "'n/a'", children.FindColumn("note").DefaultValue)
	assert.Equal(t, []Key{{Owner: "public", Name: "children"}}, parents.ForeignKeyChildren)
	assert.True(t, children.FindColumn("parent_id").IsForeignKey)
	assert.Equal(t, 3, children.FindColumn("note").Ordinal)
	assert.Equal(t, "children", children.FindColumn("note").TableName)

	_, err = ParseYAMLString("provider: postgres\nunknown_field: 1\n")
	assert.Error(t, err)
	_, err = ParseYAMLString("provider: access\n")
	assert.Error(t, err)
}

func TestWriteYAML(t *testing.T) {
	s := newShop(t)
	path := filepath.Join(t.TempDir(), "shop.yml")
	require.NoError(t, s.WriteYAML(path))

	loaded, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, len(s.Tables), len(loaded.Tables))
	assert.Equal(t, s.FindTableByName("Customers").ForeignKeyChildren, loaded.FindTableByName("Customers").ForeignKeyChildren)
	assert.True(t, loaded.FindTableByName("Orders").FindColumn("CustomerId").IsForeignKey)
	assert.Equal(t, int64(1), loaded.FindTableByName("Customers").FindColumn("Id").Identity.Seed)
}
