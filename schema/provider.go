package schema

import (
	"fmt"
	"strings"
)

// Provider tags the database engine a schema was read from or is rendered for.
type Provider string

const (
	SqlServer   Provider = "SqlServer"
	SqlServerCe Provider = "SqlServerCe"
	Oracle      Provider = "Oracle"
	MySql       Provider = "MySql"
	SQLite      Provider = "SQLite"
	PostgreSql  Provider = "PostgreSql"
	Db2         Provider = "Db2"
)

// Providers lists every known provider in a stable order.
var Providers = []Provider{SqlServer, SqlServerCe, Oracle, MySql, SQLite, PostgreSql, Db2}

var providerAliases = map[string]Provider{
	"sqlserver":   SqlServer,
	"mssql":       SqlServer,
	"tsql":        SqlServer,
	"sqlserverce": SqlServerCe,
	"sqlce":       SqlServerCe,
	"oracle":      Oracle,
	"mysql":       MySql,
	"mariadb":     MySql,
	"sqlite":      SQLite,
	"sqlite3":     SQLite,
	"postgresql":  PostgreSql,
	"postgres":    PostgreSql,
	"psql":        PostgreSql,
	"pg":          PostgreSql,
	"db2":         Db2,
}

// ParseProvider resolves a provider name case-insensitively, accepting the
// common short names used by drivers and command line tools.
func ParseProvider(name string) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	if p, ok := providerAliases[key]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q", name)
}

func (p Provider) String() string {
	return string(p)
}
