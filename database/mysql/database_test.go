//go:build !windows

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldef/schemadef/compare"
	"github.com/sqldef/schemadef/database"
	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/schema"
	"github.com/sqldef/schemadef/testutil"
)

func TestMysqlBuildDSN(t *testing.T) {
	tests := []struct {
		name    string
		config  database.Config
		net     string
		addr    string
		tls     string
		cleartx bool
	}{
		{
			name:   "tcp",
			config: database.Config{DbName: "app", User: "root", Host: "127.0.0.1", Port: 3306},
			net:    "tcp",
			addr:   "127.0.0.1:3306",
		},
		{
			name:   "socket",
			config: database.Config{DbName: "app", User: "root", Socket: "/tmp/mysql.sock", Port: 3306},
			net:    "unix",
			addr:   "/tmp/mysql.sock",
		},
		{
			name:    "cleartext over tls",
			config:  database.Config{DbName: "app", User: "root", Password: "p@ss", Host: "db", Port: 3307, SslMode: "true", MySQLEnableCleartextPlugin: true},
			net:     "tcp",
			addr:    "db:3307",
			tls:     "true",
			cleartx: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := driver.ParseDSN(mysqlBuildDSN(tt.config))
			require.NoError(t, err)
			assert.Equal(t, tt.config.User, c.User)
			assert.Equal(t, tt.config.Password, c.Passwd)
			assert.Equal(t, tt.config.DbName, c.DBName)
			assert.Equal(t, tt.net, c.Net)
			assert.Equal(t, tt.addr, c.Addr)
			assert.Equal(t, tt.tls, c.TLSConfig)
			assert.Equal(t, tt.cleartx, c.AllowCleartextPasswords)
		})
	}
}

func TestRegisterTLSConfig(t *testing.T) {
	err := registerTLSConfig(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))
	assert.EqualError(t, registerTLSConfig(path), "failed to append PEM")
}

func TestUnixSocketConnection(t *testing.T) {
	sock := testutil.ListenUnixSocket(t, "mysql.sock")

	db, err := NewDatabase(database.Config{
		DbName:   "testdb",
		User:     "testuser",
		Password: "testpass",
		Socket:   sock.Path,
	})
	require.NoError(t, err)
	defer db.Close()

	err = db.(*MysqlDatabase).DB().Ping()
	require.Error(t, err)
	// "connection refused" means the socket was not used.
	assert.NotContains(t, err.Error(), "connection refused")
}

func TestColumnTypeName(t *testing.T) {
	assert.Equal(t, "varchar", columnTypeName("varchar", "varchar(20)"))
	assert.Equal(t, "enum('a','b')", columnTypeName("enum", "enum('a','b')"))
	assert.Equal(t, "set('x')", columnTypeName("set", "set('x')"))
}

func TestDefaultExpression(t *testing.T) {
	tests := []struct {
		dataType, value, extra string
		want                   string
	}{
		{"varchar", "new", "", "'new'"},
		{"varchar", "it's", "", "'it''s'"},
		{"int", "0", "", "0"},
		{"decimal", "1.50", "", "1.50"},
		{"datetime", "CURRENT_TIMESTAMP", "", "CURRENT_TIMESTAMP"},
		{"datetime", "now()", "DEFAULT_GENERATED", "now()"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, defaultExpression(tt.dataType, tt.value, tt.extra), tt.value)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`p`", quoteIdentifier("p"))
	assert.Equal(t, "`a``b`", quoteIdentifier("a`b"))
}

const storeDDL = `
CREATE TABLE customers (
  id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  email VARCHAR(100) NOT NULL,
  CONSTRAINT uk_customers_email UNIQUE (email)
) COMMENT 'people who order';
CREATE TABLE orders (
  id BIGINT NOT NULL,
  customer_id INT,
  status VARCHAR(10) DEFAULT 'new',
  total DECIMAL(10,2),
  PRIMARY KEY (id),
  CONSTRAINT fk_orders_customer FOREIGN KEY (customer_id) REFERENCES customers (id) ON DELETE CASCADE,
  INDEX ix_orders_status (status DESC, total)
);
CREATE TRIGGER trg_orders BEFORE UPDATE ON orders FOR EACH ROW SET NEW.status = lower(NEW.status);
CREATE VIEW open_orders AS SELECT id FROM orders WHERE status = 'new';
`

// setupTestDatabase recreates a scratch database on the server named by
// MYSQL_HOST. The test is skipped when MYSQL_HOST is not set.
func setupTestDatabase(t *testing.T) *MysqlDatabase {
	t.Helper()

	host := os.Getenv("MYSQL_HOST")
	if host == "" {
		t.Skip("MYSQL_HOST is not set")
	}
	user := "root"
	if u := os.Getenv("MYSQL_USER"); u != "" {
		user = u
	}
	password := os.Getenv("MYSQL_PASSWORD")
	dbName := "schemadef_database_test"

	admin, err := sql.Open("mysql", mysqlBuildDSN(database.Config{User: user, Password: password, Host: host, Port: 3306}))
	require.NoError(t, err)
	_, err = admin.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName))
	require.NoError(t, err)
	_, err = admin.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName))
	require.NoError(t, err)
	admin.Close()

	c := driver.NewConfig()
	c.User, c.Passwd, c.Net, c.Addr, c.DBName = user, password, "tcp", host+":3306", dbName
	c.MultiStatements = true
	setup, err := sql.Open("mysql", c.FormatDSN())
	require.NoError(t, err)
	_, err = setup.Exec(storeDDL)
	require.NoError(t, err)
	setup.Close()

	db, err := NewDatabase(database.Config{DbName: dbName, User: user, Password: password, Host: host, Port: 3306})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.(*MysqlDatabase)
}

func TestExportSchema(t *testing.T) {
	db := setupTestDatabase(t)

	s, err := db.ExportSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema.MySql, s.Provider)
	require.Len(t, s.Tables, 2)

	customers := s.FindTableByName("customers")
	require.NotNil(t, customers)
	assert.Equal(t, "schemadef_database_test", customers.SchemaOwner)
	assert.Equal(t, "people who order", customers.Description)
	assert.True(t, customers.FindColumn("id").IsAutoNumber())
	assert.Equal(t, 100, customers.FindColumn("email").Length)
	assert.False(t, customers.FindColumn("email").Nullable)
	require.Len(t, customers.UniqueKeys, 1)
	assert.Empty(t, customers.Indexes)

	orders := s.FindTableByName("orders")
	require.NotNil(t, orders)
	assert.Equal(t, "'new'", orders.FindColumn("status").DefaultValue)
	assert.True(t, orders.FindColumn("status").Nullable)
	require.Len(t, orders.ForeignKeys, 1)
	fk := orders.ForeignKeys[0]
	assert.Equal(t, "CASCADE", fk.DeleteRule)
	assert.Same(t, customers, s.ReferencedTable(fk))

	index := orders.FindIndex("ix_orders_status")
	require.NotNil(t, index)
	assert.Equal(t, []string{"status", "total"}, index.ColumnNames())

	trigger := orders.FindTrigger("trg_orders")
	require.NotNil(t, trigger)
	assert.Equal(t, "BEFORE", trigger.TriggerType)
	assert.Equal(t, "UPDATE", trigger.TriggerEvent)

	assert.NotNil(t, s.FindView("schemadef_database_test", "open_orders"))

	results, err := compare.New(dialect.MySql()).Compare(s, s.Clone())
	require.NoError(t, err)
	assert.Empty(t, results)
}
