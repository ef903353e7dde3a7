package dialect

import (
	"strings"
	"testing"

	"github.com/sqldef/schemadef/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, len(schema.Providers), len(r.Providers()))

	for _, p := range schema.Providers {
		d, ok := r.Lookup(p)
		require.True(t, ok, p)
		assert.Equal(t, p, d.Provider)
		assert.NotNil(t, d.Types)
		assert.Equal(t, ";", d.Syntax.Terminator)
	}

	d, ok := r.Lookup("Access")
	assert.False(t, ok)
	assert.Nil(t, d)

	d, ok = r.LookupName("postgres")
	require.True(t, ok)
	assert.Equal(t, schema.PostgreSql, d.Provider)
	_, ok = r.LookupName("nope")
	assert.False(t, ok)

	fake := &Dialect{Provider: "Fake", Escaper: doubleQuoteEscaper(10)}
	r.Register(fake)
	d, ok = r.Lookup("Fake")
	require.True(t, ok)
	assert.Same(t, fake, d)
}

func TestEscape(t *testing.T) {
	tests := []struct {
		name     string
		dialect  *Dialect
		input    string
		expected string
	}{
		{"SqlServer", SqlServer(), "Order Details", "[Order Details]"},
		{"SqlServer closing bracket", SqlServer(), "a]b", "[a]]b]"},
		{"SqlServerCe", SqlServerCe(), "Orders", "[Orders]"},
		{"MySql", MySql(), "order", "`order`"},
		{"MySql backtick", MySql(), "a`b", "`a``b`"},
		{"PostgreSql", PostgreSql(), "Users", `"Users"`},
		{"PostgreSql quote", PostgreSql(), `a"b`, `"a""b"`},
		{"Oracle", Oracle(), "EMP", `"EMP"`},
		{"SQLite", SQLite(), "t", `"t"`},
		{"Db2", Db2(), "T1", `"T1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.Escape(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 40)

	assert.Equal(t, strings.Repeat("x", 30), Oracle().Truncate(long))
	assert.Equal(t, long, SqlServer().Truncate(long))
	assert.Equal(t, long, SQLite().Truncate(long))
	assert.Len(t, PostgreSql().Truncate(strings.Repeat("y", 100)), 63)
	assert.Len(t, MySql().Truncate(strings.Repeat("y", 100)), 64)

	// never splits a multi-byte character
	name := strings.Repeat("x", 29) + "éé"
	assert.Equal(t, strings.Repeat("x", 29), Oracle().Truncate(name))

	assert.Equal(t, `"`+strings.Repeat("x", 30)+`"`, Oracle().Quote(long, true))
	assert.Equal(t, strings.Repeat("x", 30), Oracle().Quote(long, false))

	assert.Equal(t, "Orders_SEQ", Oracle().Suffixed("Orders", "_SEQ"))
	assert.Equal(t, strings.Repeat("x", 26)+"_SEQ", Oracle().Suffixed(long, "_SEQ"))
	assert.Equal(t, strings.Repeat("x", 25)+"_SEQ", Oracle().Suffixed(strings.Repeat("x", 25)+"é", "_SEQ"))
	assert.Equal(t, long+"_SEQ", SqlServer().Suffixed(long, "_SEQ"))
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "[dbo].[Orders]", SqlServer().Qualify("dbo", "Orders", true))
	assert.Equal(t, "[Orders]", SqlServer().Qualify("dbo", "Orders", false))
	assert.Equal(t, "[Orders]", SqlServer().Qualify("", "Orders", true))
	assert.Equal(t, "[Orders]", SqlServerCe().Qualify("dbo", "Orders", true))
	assert.Equal(t, `"main"."t"`, PostgreSql().Qualify("main", "t", true))
	assert.Equal(t, "dbo.Orders", SqlServer().QualifyName("dbo", "Orders", true, false))
}

func TestCanonicalType(t *testing.T) {
	tests := []struct {
		source   schema.Provider
		native   string
		expected DbType
	}{
		{schema.SqlServer, "nvarchar", String},
		{schema.SqlServer, "NVARCHAR(MAX)", LongString},
		{schema.SqlServer, "varbinary(max)", Blob},
		{schema.SqlServer, "timestamp", RowVersion},
		{schema.SqlServer, "rowversion", RowVersion},
		{schema.SqlServerCe, "timestamp", RowVersion},
		{schema.PostgreSql, "timestamp", DateTime},
		{schema.PostgreSql, "character varying(20)", AnsiString},
		{schema.PostgreSql, "timestamp with time zone", DateTimeOffset},
		{schema.PostgreSql, "integer[]", Int32},
		{schema.Oracle, "VARCHAR2(10 BYTE)", AnsiString},
		{schema.Oracle, "DATE", DateTime},
		{schema.Oracle, "NUMBER(10,2)", Decimal},
		{schema.MySql, "tinyint(1)", Boolean},
		{schema.MySql, "int unsigned", Int32},
		{schema.MySql, "float", Single},
		{schema.MySql, "longblob", Blob},
		{schema.Db2, "VARCHAR(10) FOR BIT DATA", AnsiString},
		{schema.SQLite, "INTEGER", Int32},
		{schema.SQLite, "geometry", Object},
	}

	for _, tt := range tests {
		t.Run(string(tt.source)+" "+tt.native, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalType(tt.source, tt.native))
		})
	}

	assert.True(t, IsRowVersion(schema.SqlServer, "TIMESTAMP"))
	assert.False(t, IsRowVersion(schema.MySql, "TIMESTAMP"))
	assert.True(t, IsBlob(schema.PostgreSql, "bytea"))
	assert.False(t, IsBlob(schema.PostgreSql, "text"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		dialect  *Dialect
		native   string
		expected TypeClass
	}{
		{SqlServer(), "varchar", ClassVariableString},
		{SqlServer(), "nchar", ClassFixedString},
		{SqlServer(), "ntext", ClassLongString},
		{SqlServer(), "nvarchar(max)", ClassLongString},
		{SqlServer(), "binary", ClassBinary},
		{SqlServer(), "image", ClassBlob},
		{SqlServer(), "datetime2", ClassDateTime},
		{SqlServer(), "timestamp", ClassRowVersion},
		{Oracle(), "CLOB", ClassLongString},
		{Oracle(), "NUMBER", ClassNumeric},
		{PostgreSql(), "double precision", ClassFloat},
		{PostgreSql(), "boolean", ClassBoolean},
		{MySql(), "bigint", ClassInteger},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect.Provider)+" "+tt.native, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.Types.Classify(tt.native))
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name      string
		dialect   *Dialect
		source    schema.Provider
		native    string
		length    int
		precision int
		scale     int
		expected  string
	}{
		{"native varchar", SqlServer(), schema.SqlServer, "varchar", 20, 0, 0, "VARCHAR(20)"},
		{"native max", SqlServer(), schema.SqlServer, "nvarchar", schema.LengthMax, 0, 0, "NVARCHAR(MAX)"},
		{"over limit", SqlServer(), schema.SqlServer, "nvarchar", 5000, 0, 0, "NVARCHAR(MAX)"},
		{"native decimal", SqlServer(), schema.SqlServer, "decimal", 0, 18, 2, "DECIMAL(18,2)"},
		{"native decimal no scale", SqlServer(), schema.SqlServer, "numeric", 0, 10, 0, "NUMERIC(10)"},
		{"money keeps no clause", SqlServer(), schema.SqlServer, "money", 0, 19, 4, "MONEY"},
		{"int ignores length", SqlServer(), schema.SqlServer, "int", 4, 10, 0, "INT"},
		{"already sized", SqlServer(), schema.SqlServer, "varchar(30)", 10, 0, 0, "VARCHAR(30)"},
		{"empty source is native", PostgreSql(), "", "varchar", 10, 0, 0, "VARCHAR(10)"},
		{"sql server to oracle", Oracle(), schema.SqlServer, "nvarchar", 50, 0, 0, "NVARCHAR2(50)"},
		{"sql server max to oracle", Oracle(), schema.SqlServer, "nvarchar", schema.LengthMax, 0, 0, "CLOB"},
		{"sql server int to oracle", Oracle(), schema.SqlServer, "int", 0, 10, 0, "NUMBER(10)"},
		{"sql server binary max to postgres", PostgreSql(), schema.SqlServer, "varbinary", schema.LengthMax, 0, 0, "BYTEA"},
		{"sql server bit to postgres", PostgreSql(), schema.SqlServer, "bit", 0, 0, 0, "BOOLEAN"},
		{"oracle number to sql server", SqlServer(), schema.Oracle, "NUMBER", 0, 12, 3, "DECIMAL(12,3)"},
		{"oracle varchar2 to mysql", MySql(), schema.Oracle, "VARCHAR2", 100, 0, 0, "VARCHAR(100)"},
		{"mysql text to sql server", SqlServer(), schema.MySql, "text", 0, 0, 0, "NVARCHAR(MAX)"},
		{"postgres uuid to mysql", MySql(), schema.PostgreSql, "uuid", 0, 0, 0, "CHAR(36)"},
		{"unknown type", PostgreSql(), schema.SqlServer, "geography", 0, 0, 0, "BYTEA"},
		{"sql server int to sqlite", SQLite(), schema.SqlServer, "int", 0, 0, 0, "INTEGER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.Types.Render(tt.source, tt.native, tt.length, tt.precision, tt.scale))
		})
	}
}

func TestColumnType(t *testing.T) {
	table := schema.NewTable("dbo", "Orders")
	column := table.AddColumn("Name", "VARCHAR").SetLength(10)
	version := table.AddColumn("Version", "timestamp")

	d := SqlServer()
	assert.Equal(t, "VARCHAR(10)", d.ColumnType(schema.SqlServer, column))
	assert.True(t, d.IsRowVersion(schema.SqlServer, version))
	assert.Equal(t, "TIMESTAMP", d.ColumnType(schema.SqlServer, version))
	assert.Equal(t, "BYTEA", PostgreSql().ColumnType(schema.SqlServer, version))
}

func TestDescribe(t *testing.T) {
	dt := Describe(schema.SqlServer, "varbinary(max)")
	assert.Equal(t, "varbinary", dt.TypeName)
	assert.True(t, dt.IsBlob())

	dt = Describe(schema.SqlServer, "timestamp")
	assert.True(t, dt.IsRowVersion)
	assert.False(t, dt.IsBlob())

	assert.True(t, Describe(schema.PostgreSql, "bigint").IsInt())
	assert.True(t, Describe(schema.PostgreSql, "numeric(10,2)").IsNumeric())
	assert.True(t, Describe(schema.PostgreSql, "text").IsString())
	assert.True(t, Describe(schema.Oracle, "DATE").IsDateTime())
	assert.Equal(t, schema.CategoryOther, Describe(schema.PostgreSql, "uuid").Category)
}

func TestCapabilities(t *testing.T) {
	assert.False(t, SqlServer().Capabilities.SelfReferencingCascade)
	assert.False(t, SqlServerCe().Capabilities.SelfReferencingCascade)
	assert.True(t, PostgreSql().Capabilities.SelfReferencingCascade)
	assert.False(t, Oracle().Capabilities.UpdateRule)
	assert.False(t, Oracle().Capabilities.NativeAutoIncrement)
	assert.False(t, SQLite().Capabilities.AddConstraint)
	assert.False(t, SQLite().Capabilities.AlterColumn)
	assert.False(t, SQLite().Capabilities.DropColumn)
	assert.True(t, Oracle().Capabilities.Packages)
	assert.Equal(t, "GO", SqlServer().Syntax.BatchSeparator)
	assert.Equal(t, "/", Oracle().Syntax.BatchSeparator)
	assert.Empty(t, PostgreSql().Syntax.BatchSeparator)
}
