// Package mysql exports a schema snapshot from a MySQL server through
// information_schema. Nothing is ever written.
package mysql

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	driver "github.com/go-sql-driver/mysql"

	"github.com/sqldef/schemadef/database"
	"github.com/sqldef/schemadef/schema"
)

// ER_UNKNOWN_TABLE, returned for CHECK_CONSTRAINTS before MySQL 8.0.16.
const errUnknownTable = 1109

type MysqlDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	if config.SslMode == "custom" {
		err := registerTLSConfig(config.SslCa)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("mysql", mysqlBuildDSN(config))
	if err != nil {
		return nil, err
	}

	return &MysqlDatabase{
		db:     db,
		config: config,
	}, nil
}

// owner is the database name unless the config names another owner.
func (d *MysqlDatabase) owner() string {
	if d.config.Owner != "" {
		return d.config.Owner
	}
	return d.config.DbName
}

func (d *MysqlDatabase) ExportSchema(ctx context.Context) (*schema.Schema, error) {
	logServerInfo(ctx, d.db)
	s := schema.New(schema.MySql, d.owner())

	if err := d.tables(ctx, s); err != nil {
		return nil, err
	}
	if err := d.columns(ctx, s); err != nil {
		return nil, err
	}
	constraints, err := d.constraints(ctx)
	if err != nil {
		return nil, err
	}
	if err := database.AddConstraints(s, constraints); err != nil {
		return nil, err
	}
	indexes, err := d.indexes(ctx)
	if err != nil {
		return nil, err
	}
	if err := database.AddIndexes(s, indexes); err != nil {
		return nil, err
	}
	if err := d.triggers(ctx, s); err != nil {
		return nil, err
	}
	if !d.config.SkipView {
		if err := d.views(ctx, s); err != nil {
			return nil, err
		}
	}
	if err := d.routines(ctx, s); err != nil {
		return nil, err
	}

	database.FinishSchema(s)
	return s, nil
}

// logServerInfo helps debugging case sensitivity: lower_case_table_names is
// 0 on Linux and 1 or 2 on macOS and Windows. Names are compared case
// insensitively either way.
func logServerInfo(ctx context.Context, db *sql.DB) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		slog.Debug("Failed to get MySQL version", "error", err)
	} else {
		slog.Debug("MySQL server version", "version", version)
	}

	var varName, lowerCaseTableNames string
	if err := db.QueryRowContext(ctx, "SHOW VARIABLES LIKE 'lower_case_table_names'").Scan(&varName, &lowerCaseTableNames); err != nil {
		slog.Debug("Failed to get lower_case_table_names", "error", err)
		return
	}
	slog.Debug("MySQL lower_case_table_names", "value", lowerCaseTableNames)
}

func (d *MysqlDatabase) tables(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT TABLE_NAME, TABLE_COMMENT
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, comment string
		if err := rows.Scan(&name, &comment); err != nil {
			return err
		}
		t := schema.NewTable(d.owner(), name)
		t.Description = comment
		if err := s.AddTable(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *MysqlDatabase) columns(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT
	TABLE_NAME,
	COLUMN_NAME,
	ORDINAL_POSITION,
	DATA_TYPE,
	COLUMN_TYPE,
	CHARACTER_MAXIMUM_LENGTH,
	NUMERIC_PRECISION,
	NUMERIC_SCALE,
	IS_NULLABLE,
	COLUMN_DEFAULT,
	EXTRA,
	GENERATION_EXPRESSION,
	COLUMN_COMMENT
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE()
ORDER BY TABLE_NAME, ORDINAL_POSITION`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, columnName, dataType, columnType, isNullable, extra, generation, comment string
			ordinal                                                                           int
			length, precision, scale                                                          sql.NullInt64
			columnDefault                                                                     sql.NullString
		)
		if err := rows.Scan(&tableName, &columnName, &ordinal, &dataType, &columnType, &length, &precision, &scale,
			&isNullable, &columnDefault, &extra, &generation, &comment); err != nil {
			return err
		}
		t := s.FindTableByName(tableName)
		if t == nil {
			// a view
			continue
		}

		c := t.AddColumn(columnName, columnTypeName(dataType, columnType))
		c.Ordinal = ordinal
		c.SetNullable(schema.ParseBool(isNullable)).SetDescription(comment)
		switch strings.ToLower(dataType) {
		case "char", "varchar", "binary", "varbinary":
			if length.Valid {
				c.SetLength(int(length.Int64))
			}
		case "decimal", "numeric":
			c.SetPrecision(int(precision.Int64), int(scale.Int64))
		}
		if generation != "" {
			c.ComputedDefinition = generation
			continue
		}
		if strings.Contains(strings.ToLower(extra), "auto_increment") {
			c.SetIdentity(1, 1)
			continue
		}
		if columnDefault.Valid {
			c.SetDefault(defaultExpression(dataType, columnDefault.String, extra))
		}
	}
	return rows.Err()
}

// columnTypeName keeps the member list of ENUM and SET columns.
func columnTypeName(dataType, columnType string) string {
	switch strings.ToLower(dataType) {
	case "enum", "set":
		return columnType
	default:
		return dataType
	}
}

// defaultExpression turns information_schema's COLUMN_DEFAULT into SQL.
// Literals come back unquoted; expressions are flagged DEFAULT_GENERATED
// since MySQL 8.0.13.
func defaultExpression(dataType, value, extra string) string {
	if strings.Contains(strings.ToUpper(extra), "DEFAULT_GENERATED") {
		return value
	}
	if strings.HasPrefix(strings.ToUpper(value), "CURRENT_TIMESTAMP") {
		return value
	}
	switch strings.ToLower(dataType) {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint", "decimal", "numeric", "float", "double", "bit":
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (d *MysqlDatabase) constraints(ctx context.Context) ([]database.ConstraintRow, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT
	tc.TABLE_NAME,
	tc.CONSTRAINT_NAME,
	tc.CONSTRAINT_TYPE,
	k.COLUMN_NAME,
	k.REFERENCED_TABLE_NAME,
	rc.UNIQUE_CONSTRAINT_NAME,
	rc.UPDATE_RULE,
	rc.DELETE_RULE
FROM information_schema.TABLE_CONSTRAINTS tc
JOIN information_schema.KEY_COLUMN_USAGE k
	ON k.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA AND k.TABLE_NAME = tc.TABLE_NAME AND k.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
LEFT JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
	ON rc.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA AND rc.TABLE_NAME = tc.TABLE_NAME AND rc.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
WHERE tc.TABLE_SCHEMA = DATABASE() AND tc.CONSTRAINT_TYPE IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
ORDER BY tc.TABLE_NAME, tc.CONSTRAINT_NAME, k.ORDINAL_POSITION`)
	if err != nil {
		return nil, err
	}

	var constraints []database.ConstraintRow
	for rows.Next() {
		var row database.ConstraintRow
		var refTable, refKey, updateRule, deleteRule sql.NullString
		if err := rows.Scan(&row.Table, &row.Name, &row.Type, &row.Column, &refTable, &refKey, &updateRule, &deleteRule); err != nil {
			rows.Close()
			return nil, err
		}
		row.RefTable = refTable.String
		// every MySQL primary key is named PRIMARY; the referenced table
		// identifies it instead
		if refKey.String != "PRIMARY" {
			row.RefKey = refKey.String
		}
		row.UpdateRule = updateRule.String
		row.DeleteRule = deleteRule.String
		constraints = append(constraints, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	checks, err := d.checks(ctx)
	if err != nil {
		return nil, err
	}
	return append(constraints, checks...), nil
}

func (d *MysqlDatabase) checks(ctx context.Context) ([]database.ConstraintRow, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT tc.TABLE_NAME, tc.CONSTRAINT_NAME, cc.CHECK_CLAUSE
FROM information_schema.TABLE_CONSTRAINTS tc
JOIN information_schema.CHECK_CONSTRAINTS cc
	ON cc.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA AND cc.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
WHERE tc.TABLE_SCHEMA = DATABASE() AND tc.CONSTRAINT_TYPE = 'CHECK'
ORDER BY tc.TABLE_NAME, tc.CONSTRAINT_NAME`)
	var mysqlErr *driver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errUnknownTable {
		slog.Debug("Check constraints are not supported by the server", "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []database.ConstraintRow
	for rows.Next() {
		row := database.ConstraintRow{Type: database.CheckType}
		if err := rows.Scan(&row.Table, &row.Name, &row.Expression); err != nil {
			return nil, err
		}
		checks = append(checks, row)
	}
	return checks, rows.Err()
}

// indexes leaves out the ones backing primary and unique keys, and
// functional key parts.
func (d *MysqlDatabase) indexes(ctx context.Context) ([]database.IndexRow, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT s.TABLE_NAME, s.INDEX_NAME, s.NON_UNIQUE = 0, s.INDEX_TYPE, s.COLUMN_NAME, coalesce(s.COLLATION, 'A') = 'D'
FROM information_schema.STATISTICS s
WHERE s.TABLE_SCHEMA = DATABASE()
AND s.INDEX_NAME <> 'PRIMARY'
AND s.COLUMN_NAME IS NOT NULL
AND NOT EXISTS (
	SELECT 1 FROM information_schema.TABLE_CONSTRAINTS tc
	WHERE tc.TABLE_SCHEMA = s.TABLE_SCHEMA AND tc.TABLE_NAME = s.TABLE_NAME
	AND tc.CONSTRAINT_NAME = s.INDEX_NAME AND tc.CONSTRAINT_TYPE = 'UNIQUE'
)
ORDER BY s.TABLE_NAME, s.INDEX_NAME, s.SEQ_IN_INDEX`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []database.IndexRow
	for rows.Next() {
		var row database.IndexRow
		if err := rows.Scan(&row.Table, &row.Name, &row.Unique, &row.IndexType, &row.Column, &row.Descending); err != nil {
			return nil, err
		}
		indexes = append(indexes, row)
	}
	return indexes, rows.Err()
}

func (d *MysqlDatabase) triggers(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT TRIGGER_NAME, EVENT_OBJECT_TABLE, ACTION_TIMING, EVENT_MANIPULATION, ACTION_STATEMENT
FROM information_schema.TRIGGERS
WHERE TRIGGER_SCHEMA = DATABASE()
ORDER BY EVENT_OBJECT_TABLE, ACTION_ORDER`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, tableName, timing, event, statement string
		if err := rows.Scan(&name, &tableName, &timing, &event, &statement); err != nil {
			return err
		}
		t := s.FindTableByName(tableName)
		if t == nil {
			continue
		}
		trigger := &schema.Trigger{
			Name:         name,
			TriggerType:  timing,
			TriggerEvent: event,
			TriggerBody:  "FOR EACH ROW " + statement,
		}
		if err := t.AddTrigger(trigger); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *MysqlDatabase) views(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT TABLE_NAME, VIEW_DEFINITION
FROM information_schema.VIEWS
WHERE TABLE_SCHEMA = DATABASE()
ORDER BY TABLE_NAME`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		v := &schema.View{SchemaOwner: d.owner()}
		if err := rows.Scan(&v.Name, &v.Sql); err != nil {
			return err
		}
		if err := s.AddView(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// routines reads the full CREATE statement of each routine since
// ROUTINE_DEFINITION only holds the body.
func (d *MysqlDatabase) routines(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT ROUTINE_NAME, ROUTINE_TYPE, coalesce(DTD_IDENTIFIER, '')
FROM information_schema.ROUTINES
WHERE ROUTINE_SCHEMA = DATABASE()
ORDER BY ROUTINE_NAME`)
	if err != nil {
		return err
	}
	var routines []*schema.Routine
	for rows.Next() {
		r := &schema.Routine{SchemaOwner: d.owner(), Language: "SQL"}
		var kind string
		if err := rows.Scan(&r.Name, &kind, &r.ReturnType); err != nil {
			rows.Close()
			return err
		}
		r.Kind = schema.RoutineKind(strings.ToUpper(kind))
		routines = append(routines, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range routines {
		var name, sqlMode, charset, collation, dbCollation string
		var definition sql.NullString
		query := fmt.Sprintf("SHOW CREATE %s %s", r.Kind, quoteIdentifier(r.Name))
		if err := d.db.QueryRowContext(ctx, query).Scan(&name, &sqlMode, &definition, &charset, &collation, &dbCollation); err != nil {
			return fmt.Errorf("%s %s: %w", strings.ToLower(string(r.Kind)), r.Name, err)
		}
		if !definition.Valid {
			// the definition is NULL without the privileges to read it
			slog.Warn("Skipped routine without a readable definition", "routine", r.Name)
			continue
		}
		r.Sql = definition.String
		if r.Kind == schema.Procedure {
			err = s.AddProcedure(r)
		} else {
			err = s.AddFunction(r)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MysqlDatabase) DB() *sql.DB {
	return d.db
}

func (d *MysqlDatabase) Close() error {
	return d.db.Close()
}

func mysqlBuildDSN(config database.Config) string {
	c := driver.NewConfig()
	c.User = config.User
	c.Passwd = config.Password
	c.DBName = config.DbName
	c.AllowCleartextPasswords = config.MySQLEnableCleartextPlugin
	c.TLSConfig = config.SslMode
	if config.Socket == "" {
		c.Net = "tcp"
		c.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	} else {
		c.Net = "unix"
		c.Addr = config.Socket
	}
	return c.FormatDSN()
}

func registerTLSConfig(pemPath string) error {
	rootCertPool := x509.NewCertPool()
	pem, err := os.ReadFile(pemPath)
	if err != nil {
		return err
	}

	if ok := rootCertPool.AppendCertsFromPEM(pem); !ok {
		return fmt.Errorf("failed to append PEM")
	}

	return driver.RegisterTLSConfig("custom", &tls.Config{
		RootCAs: rootCertPool,
	})
}
