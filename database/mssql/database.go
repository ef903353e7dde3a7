// Package mssql exports a schema snapshot from SQL Server through the sys
// catalog views. Nothing is ever written.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/sqldef/schemadef/database"
	"github.com/sqldef/schemadef/schema"
)

type MssqlDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("sqlserver", mssqlBuildDSN(config))
	if err != nil {
		return nil, err
	}

	return &MssqlDatabase{
		db:     db,
		config: config,
	}, nil
}

func (d *MssqlDatabase) owner() string {
	if d.config.Owner == "" {
		return "dbo"
	}
	return d.config.Owner
}

func (d *MssqlDatabase) ExportSchema(ctx context.Context) (*schema.Schema, error) {
	s := schema.New(schema.SqlServer, d.owner())

	if err := d.tables(ctx, s); err != nil {
		return nil, err
	}
	if err := d.columns(ctx, s); err != nil {
		return nil, err
	}

	var constraints []database.ConstraintRow
	for _, read := range []func(context.Context) ([]database.ConstraintRow, error){d.keys, d.foreignKeys, d.checks} {
		rows, err := read(ctx)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, rows...)
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

func (d *MssqlDatabase) query(ctx context.Context, query string) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, sql.Named("owner", d.owner()))
}

func (d *MssqlDatabase) tables(ctx context.Context, s *schema.Schema) error {
	rows, err := d.query(ctx, `SELECT
	t.name,
	description = coalesce(CAST(ep.value AS nvarchar(max)), '')
FROM sys.tables t
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
LEFT JOIN sys.extended_properties ep ON ep.major_id = t.object_id AND ep.minor_id = 0 AND ep.class = 1 AND ep.name = 'MS_Description'
WHERE s.name = @owner AND t.is_ms_shipped = 0
ORDER BY t.name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, description string
		if err := rows.Scan(&name, &description); err != nil {
			return err
		}
		t := schema.NewTable(d.owner(), name)
		t.Description = description
		if err := s.AddTable(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *MssqlDatabase) columns(ctx context.Context, s *schema.Schema) error {
	rows, err := d.query(ctx, `SELECT
	t.name,
	c.name,
	c.column_id,
	[type_name] = tp.name,
	c.max_length,
	c.precision,
	c.scale,
	c.is_nullable,
	c.is_identity,
	CAST(ic.seed_value AS bigint),
	CAST(ic.increment_value AS bigint),
	default_name = OBJECT_NAME(c.default_object_id),
	default_definition = OBJECT_DEFINITION(c.default_object_id),
	computed_definition = cc.definition,
	description = coalesce(CAST(ep.value AS nvarchar(max)), '')
FROM sys.columns c WITH(NOLOCK)
JOIN sys.tables t WITH(NOLOCK) ON t.object_id = c.object_id
JOIN sys.schemas s WITH(NOLOCK) ON s.schema_id = t.schema_id
JOIN sys.types tp WITH(NOLOCK) ON c.user_type_id = tp.user_type_id
LEFT JOIN sys.identity_columns ic WITH(NOLOCK) ON c.[object_id] = ic.[object_id] AND ic.[column_id] = c.[column_id]
LEFT JOIN sys.computed_columns cc WITH(NOLOCK) ON c.[object_id] = cc.[object_id] AND cc.[column_id] = c.[column_id]
LEFT JOIN sys.extended_properties ep ON ep.major_id = c.object_id AND ep.minor_id = c.column_id AND ep.class = 1 AND ep.name = 'MS_Description'
WHERE s.name = @owner
ORDER BY t.name, c.column_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, columnName, dataType, description string
			ordinal, maxLength, precision, scale        int
			isNullable, isIdentity                       bool
			seed, increment                              sql.NullInt64
			defaultName, defaultDefinition, computed     sql.NullString
		)
		if err := rows.Scan(&tableName, &columnName, &ordinal, &dataType, &maxLength, &precision, &scale,
			&isNullable, &isIdentity, &seed, &increment, &defaultName, &defaultDefinition, &computed, &description); err != nil {
			return err
		}
		t := s.FindTableByName(tableName)
		if t == nil {
			continue
		}

		c := t.AddColumn(columnName, dataType)
		c.Ordinal = ordinal
		c.SetNullable(isNullable).SetDescription(description)
		setSize(c, maxLength, precision, scale)
		if computed.Valid {
			c.ComputedDefinition = computed.String
			continue
		}
		if isIdentity {
			c.SetIdentity(seed.Int64, increment.Int64)
		}
		if defaultDefinition.Valid {
			if err := t.AddDefault(defaultName.String, columnName, defaultDefinition.String); err != nil {
				return fmt.Errorf("table %s: %w", tableName, err)
			}
		}
	}
	return rows.Err()
}

// setSize reads sys.columns sizes: max_length is in bytes, so national
// character types hold half as many characters, and -1 means MAX.
func setSize(c *schema.Column, maxLength, precision, scale int) {
	switch strings.ToLower(c.DbDataType) {
	case "char", "varchar", "binary", "varbinary":
		if maxLength == -1 {
			c.SetLength(schema.LengthMax)
			return
		}
		c.SetLength(maxLength)
	case "nvarchar", "nchar":
		if maxLength == -1 {
			c.SetLength(schema.LengthMax)
			return
		}
		c.SetLength(maxLength / 2)
	case "decimal", "numeric":
		c.SetPrecision(precision, scale)
	}
}

func (d *MssqlDatabase) keys(ctx context.Context) ([]database.ConstraintRow, error) {
	rows, err := d.query(ctx, `SELECT
	t.name,
	kc.name,
	kc.type,
	COL_NAME(ic.object_id, ic.column_id)
FROM sys.key_constraints kc
INNER JOIN sys.tables t ON t.object_id = kc.parent_object_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
INNER JOIN sys.index_columns ic ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
WHERE s.name = @owner AND ic.is_included_column = 0
ORDER BY t.name, kc.name, ic.key_ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []database.ConstraintRow
	for rows.Next() {
		var row database.ConstraintRow
		var kind string
		if err := rows.Scan(&row.Table, &row.Name, &kind, &row.Column); err != nil {
			return nil, err
		}
		row.Type = database.UniqueType
		if strings.TrimSpace(kind) == "PK" {
			row.Type = database.PrimaryKeyType
		}
		keys = append(keys, row)
	}
	return keys, rows.Err()
}

func (d *MssqlDatabase) foreignKeys(ctx context.Context) ([]database.ConstraintRow, error) {
	rows, err := d.query(ctx, `SELECT
	t.name,
	f.name,
	COL_NAME(f.parent_object_id, fc.parent_column_id),
	OBJECT_NAME(f.referenced_object_id),
	coalesce(ki.name, ''),
	f.update_referential_action_desc,
	f.delete_referential_action_desc
FROM sys.foreign_keys f
INNER JOIN sys.foreign_key_columns fc ON f.OBJECT_ID = fc.constraint_object_id
INNER JOIN sys.tables t ON t.object_id = f.parent_object_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
LEFT JOIN sys.indexes ki ON ki.object_id = f.referenced_object_id AND ki.index_id = f.key_index_id
WHERE s.name = @owner
ORDER BY t.name, f.name, fc.constraint_column_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []database.ConstraintRow
	for rows.Next() {
		row := database.ConstraintRow{Type: database.ForeignKeyType}
		if err := rows.Scan(&row.Table, &row.Name, &row.Column, &row.RefTable, &row.RefKey, &row.UpdateRule, &row.DeleteRule); err != nil {
			return nil, err
		}
		keys = append(keys, row)
	}
	return keys, rows.Err()
}

func (d *MssqlDatabase) checks(ctx context.Context) ([]database.ConstraintRow, error) {
	rows, err := d.query(ctx, `SELECT t.name, cc.name, cc.definition
FROM sys.check_constraints cc
INNER JOIN sys.tables t ON t.object_id = cc.parent_object_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE s.name = @owner
ORDER BY t.name, cc.name`)
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

func (d *MssqlDatabase) indexes(ctx context.Context) ([]database.IndexRow, error) {
	rows, err := d.query(ctx, `SELECT
	t.name,
	ind.name,
	ind.is_unique,
	ind.type_desc,
	COL_NAME(ic.object_id, ic.column_id),
	ic.is_descending_key
FROM sys.indexes ind
INNER JOIN sys.index_columns ic ON ind.object_id = ic.object_id AND ind.index_id = ic.index_id
INNER JOIN sys.tables t ON t.object_id = ind.object_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE s.name = @owner
AND ind.is_primary_key = 0 AND ind.is_unique_constraint = 0 AND ind.type > 0
AND ic.is_included_column = 0
ORDER BY t.name, ind.name, ic.key_ordinal`)
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

func (d *MssqlDatabase) triggers(ctx context.Context, s *schema.Schema) error {
	rows, err := d.query(ctx, `SELECT
	t.name,
	tr.name,
	m.definition
FROM sys.triggers tr
INNER JOIN sys.sql_modules m ON m.object_id = tr.object_id
INNER JOIN sys.tables t ON t.object_id = tr.parent_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE s.name = @owner
ORDER BY t.name, tr.name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, name, definition string
		if err := rows.Scan(&tableName, &name, &definition); err != nil {
			return err
		}
		t := s.FindTableByName(tableName)
		if t == nil {
			continue
		}
		if err := t.AddTrigger(&schema.Trigger{Name: name, TriggerBody: trimDefinition(definition)}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *MssqlDatabase) views(ctx context.Context, s *schema.Schema) error {
	rows, err := d.query(ctx, `SELECT
	v.name,
	m.definition
FROM sys.views v
INNER JOIN sys.schemas s ON s.schema_id = v.schema_id
INNER JOIN sys.sql_modules m ON m.object_id = v.object_id
WHERE s.name = @owner
ORDER BY v.name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		v := &schema.View{SchemaOwner: d.owner()}
		var definition string
		if err := rows.Scan(&v.Name, &definition); err != nil {
			return err
		}
		v.Sql = trimDefinition(definition)
		if err := s.AddView(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *MssqlDatabase) routines(ctx context.Context, s *schema.Schema) error {
	rows, err := d.query(ctx, `SELECT
	o.name,
	o.type,
	m.definition
FROM sys.objects o
INNER JOIN sys.schemas s ON s.schema_id = o.schema_id
INNER JOIN sys.sql_modules m ON m.object_id = o.object_id
WHERE s.name = @owner AND o.type IN ('P', 'FN', 'IF', 'TF') AND o.is_ms_shipped = 0
ORDER BY o.name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		r := &schema.Routine{SchemaOwner: d.owner(), Language: "SQL"}
		var kind, definition string
		if err := rows.Scan(&r.Name, &kind, &definition); err != nil {
			return err
		}
		r.Sql = trimDefinition(definition)
		if strings.TrimSpace(kind) == "P" {
			r.Kind = schema.Procedure
			err = s.AddProcedure(r)
		} else {
			r.Kind = schema.Function
			err = s.AddFunction(r)
		}
		if err != nil {
			return err
		}
	}
	return rows.Err()
}

// trimDefinition drops the surrounding whitespace and the trailing
// semicolon sys.sql_modules keeps from the original batch.
func trimDefinition(definition string) string {
	return strings.TrimSuffix(strings.TrimSpace(definition), ";")
}

func (d *MssqlDatabase) DB() *sql.DB {
	return d.db
}

func (d *MssqlDatabase) Close() error {
	return d.db.Close()
}

func mssqlBuildDSN(config database.Config) string {
	query := url.Values{}
	query.Add("database", config.DbName)
	if config.SslMode != "" {
		query.Add("encrypt", config.SslMode)
	}
	if config.SslCa != "" {
		query.Add("certificate", config.SslCa)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(config.User, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
