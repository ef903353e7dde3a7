// Package postgres exports a schema snapshot from a PostgreSQL server by
// reading pg_catalog and information_schema. Nothing is ever written.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/sqldef/schemadef/database"
	"github.com/sqldef/schemadef/schema"
)

type PostgresDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("postgres", postgresBuildDSN(config))
	if err != nil {
		return nil, err
	}

	return &PostgresDatabase{
		db:     db,
		config: config,
	}, nil
}

func (d *PostgresDatabase) owner() string {
	if d.config.Owner == "" {
		return "public"
	}
	return d.config.Owner
}

func (d *PostgresDatabase) ExportSchema(ctx context.Context) (*schema.Schema, error) {
	s := schema.New(schema.PostgreSql, d.owner())

	tables, err := d.tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if err := s.AddTable(t); err != nil {
			return nil, err
		}
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
	if err := d.sequences(ctx, s); err != nil {
		return nil, err
	}

	database.FinishSchema(s)
	return s, nil
}

// Objects created by extensions are left out; their pg_depend entry has
// deptype 'e'. classid is checked as well since OIDs are only unique per
// catalog.
const notFromExtension = `NOT EXISTS (
	SELECT 1 FROM pg_depend dep
	WHERE dep.objid = %s AND dep.classid = '%s'::regclass AND dep.deptype = 'e'
)`

func (d *PostgresDatabase) tables(ctx context.Context) ([]*schema.Table, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT c.relname, coalesce(obj_description(c.oid, 'pg_class'), '')
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relkind IN ('r', 'p') AND NOT c.relispartition
AND `+fmt.Sprintf(notFromExtension, "c.oid", "pg_class")+`
ORDER BY c.relname`, d.owner())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []*schema.Table
	for rows.Next() {
		var name, description string
		if err := rows.Scan(&name, &description); err != nil {
			return nil, err
		}
		t := schema.NewTable(d.owner(), name)
		t.Description = description
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (d *PostgresDatabase) columns(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT
	c.table_name,
	c.column_name,
	c.ordinal_position,
	c.data_type,
	c.udt_name,
	c.character_maximum_length,
	c.numeric_precision,
	c.numeric_scale,
	c.is_nullable,
	c.column_default,
	c.is_identity,
	c.identity_start,
	c.identity_increment,
	c.identity_generation,
	c.generation_expression,
	coalesce(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position), '')
FROM information_schema.columns c
WHERE c.table_schema = $1
ORDER BY c.table_name, c.ordinal_position`, d.owner())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, columnName, dataType, udtName, isNullable, isIdentity, description string
			ordinal                                                                      int
			length, precision, scale                                                     sql.NullInt64
			columnDefault, identityStart, identityIncrement, identityGeneration          sql.NullString
			generation                                                                   sql.NullString
		)
		if err := rows.Scan(&tableName, &columnName, &ordinal, &dataType, &udtName, &length, &precision, &scale,
			&isNullable, &columnDefault, &isIdentity, &identityStart, &identityIncrement, &identityGeneration,
			&generation, &description); err != nil {
			return err
		}
		t := s.FindTableByName(tableName)
		if t == nil {
			// a view or a table from an extension
			continue
		}

		c := t.AddColumn(columnName, columnType(dataType, udtName))
		c.Ordinal = ordinal
		c.SetNullable(schema.ParseBool(isNullable)).SetDescription(description)
		if length.Valid {
			c.SetLength(int(length.Int64))
		}
		if dataType == "numeric" && precision.Valid {
			c.SetPrecision(int(precision.Int64), int(scale.Int64))
		}
		if generation.Valid && generation.String != "" {
			c.ComputedDefinition = generation.String
			continue
		}

		switch {
		case schema.ParseBool(isIdentity):
			c.SetIdentity(parseInt(identityStart.String, 1), parseInt(identityIncrement.String, 1))
			c.Identity.ByDefault = identityGeneration.String == "BY DEFAULT"
		case columnDefault.Valid && isSerialDefault(columnDefault.String):
			c.SetIdentity(1, 1)
			c.Identity.ByDefault = true
		case columnDefault.Valid:
			c.SetDefault(columnDefault.String)
		}
	}
	return rows.Err()
}

// columnType names arrays and user-defined types by their udt_name; other
// types keep the SQL standard spelling of data_type.
func columnType(dataType, udtName string) string {
	switch dataType {
	case "ARRAY":
		return strings.TrimPrefix(udtName, "_") + "[]"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

func isSerialDefault(expression string) bool {
	return strings.HasPrefix(expression, "nextval(") && strings.HasSuffix(expression, "::regclass)")
}

func parseInt(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (d *PostgresDatabase) constraints(ctx context.Context) ([]database.ConstraintRow, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT
	cl.relname,
	con.conname,
	con.contype,
	a.attname,
	ref.relname,
	refcon.conname,
	con.confupdtype,
	con.confdeltype,
	pg_get_constraintdef(con.oid)
FROM pg_constraint con
JOIN pg_class cl ON cl.oid = con.conrelid
JOIN pg_namespace n ON n.oid = cl.relnamespace
LEFT JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord) ON true
LEFT JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
LEFT JOIN pg_class ref ON ref.oid = con.confrelid
LEFT JOIN pg_constraint refcon ON refcon.conindid = con.conindid AND refcon.conrelid = con.confrelid AND refcon.contype IN ('p', 'u')
WHERE n.nspname = $1 AND con.contype IN ('p', 'u', 'f', 'c')
ORDER BY cl.relname, con.conname, k.ord`, d.owner())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var constraints []database.ConstraintRow
	for rows.Next() {
		var tableName, name, contype, updateType, deleteType, definition string
		var column, refTable, refKey sql.NullString
		if err := rows.Scan(&tableName, &name, &contype, &column, &refTable, &refKey, &updateType, &deleteType, &definition); err != nil {
			return nil, err
		}
		row := database.ConstraintRow{
			Table:  tableName,
			Name:   name,
			Column: column.String,
		}
		switch contype {
		case "p":
			row.Type = database.PrimaryKeyType
		case "u":
			row.Type = database.UniqueType
		case "f":
			row.Type = database.ForeignKeyType
			row.RefTable = refTable.String
			row.RefKey = refKey.String
			row.UpdateRule = referentialAction(updateType)
			row.DeleteRule = referentialAction(deleteType)
		case "c":
			row.Type = database.CheckType
			row.Expression = checkExpression(definition)
		}
		constraints = append(constraints, row)
	}
	return constraints, rows.Err()
}

// referentialAction spells out pg_constraint's one-letter action codes.
func referentialAction(code string) string {
	switch code {
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

// checkExpression strips "CHECK " and NOT VALID from pg_get_constraintdef.
func checkExpression(definition string) string {
	expression := strings.TrimSpace(strings.TrimPrefix(definition, "CHECK "))
	expression = strings.TrimSpace(strings.TrimSuffix(expression, " NOT VALID"))
	return strings.TrimSpace(strings.TrimSuffix(expression, " NO INHERIT"))
}

func (d *PostgresDatabase) indexes(ctx context.Context) ([]database.IndexRow, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT
	t.relname,
	i.relname,
	ix.indisunique,
	am.amname,
	a.attname,
	(ix.indoption[k.ord::int - 1] & 1) = 1
FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_am am ON am.oid = i.relam
JOIN pg_namespace n ON n.oid = t.relnamespace
CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = $1
AND ix.indexprs IS NULL
AND k.ord <= ix.indnkeyatts
AND NOT EXISTS (SELECT 1 FROM pg_constraint c WHERE c.conindid = ix.indexrelid AND c.contype IN ('p', 'u', 'x'))
ORDER BY t.relname, i.relname, k.ord`, d.owner())
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

func (d *PostgresDatabase) triggers(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT c.relname, t.tgname, pg_get_triggerdef(t.oid)
FROM pg_trigger t
JOIN pg_class c ON c.oid = t.tgrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND NOT t.tgisinternal
ORDER BY c.relname, t.tgname`, d.owner())
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
		if err := t.AddTrigger(&schema.Trigger{Name: name, TriggerBody: definition}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *PostgresDatabase) views(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT viewname, definition FROM pg_views WHERE schemaname = $1 ORDER BY viewname`, d.owner())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		v := &schema.View{SchemaOwner: d.owner()}
		if err := rows.Scan(&v.Name, &v.Sql); err != nil {
			return err
		}
		v.Sql = strings.TrimSuffix(strings.TrimSpace(v.Sql), ";")
		if err := s.AddView(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *PostgresDatabase) routines(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT p.proname, p.prokind, l.lanname, coalesce(pg_get_function_result(p.oid), ''), pg_get_functiondef(p.oid)
FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
JOIN pg_language l ON l.oid = p.prolang
WHERE n.nspname = $1 AND p.prokind IN ('f', 'p')
AND `+fmt.Sprintf(notFromExtension, "p.oid", "pg_proc")+`
ORDER BY p.proname`, d.owner())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		r := &schema.Routine{SchemaOwner: d.owner()}
		var kind string
		if err := rows.Scan(&r.Name, &kind, &r.Language, &r.ReturnType, &r.Sql); err != nil {
			return err
		}
		if kind == "p" {
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

// sequences skips the ones owned by serial and identity columns.
func (d *PostgresDatabase) sequences(ctx context.Context, s *schema.Schema) error {
	rows, err := d.db.QueryContext(ctx, `SELECT c.relname, q.seqstart, q.seqincrement, q.seqmin, q.seqmax, q.seqcycle
FROM pg_sequence q
JOIN pg_class c ON c.oid = q.seqrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1
AND NOT EXISTS (SELECT 1 FROM pg_depend dep WHERE dep.objid = c.oid AND dep.classid = 'pg_class'::regclass AND dep.deptype IN ('a', 'i'))
ORDER BY c.relname`, d.owner())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		seq := &schema.Sequence{SchemaOwner: d.owner()}
		var minValue, maxValue int64
		if err := rows.Scan(&seq.Name, &seq.StartValue, &seq.IncrementBy, &minValue, &maxValue, &seq.Cycle); err != nil {
			return err
		}
		seq.MinimumValue, seq.MaximumValue = sequenceBounds(seq.IncrementBy, minValue, maxValue)
		if err := s.AddSequence(seq); err != nil {
			return err
		}
	}
	return rows.Err()
}

// sequenceBounds keeps only the bounds that differ from PostgreSQL's
// defaults for the direction of the sequence.
func sequenceBounds(increment, minValue, maxValue int64) (*int64, *int64) {
	defaultMin, defaultMax := int64(1), int64(math.MaxInt64)
	if increment < 0 {
		defaultMin, defaultMax = math.MinInt64, -1
	}
	var lower, upper *int64
	if minValue != defaultMin {
		lower = &minValue
	}
	if maxValue != defaultMax {
		upper = &maxValue
	}
	return lower, upper
}

func (d *PostgresDatabase) DB() *sql.DB {
	return d.db
}

func (d *PostgresDatabase) Close() error {
	return d.db.Close()
}

func postgresBuildDSN(config database.Config) string {
	user := config.User
	password := config.Password
	database := config.DbName
	host := ""
	var options []string

	if config.Socket == "" {
		host = fmt.Sprintf("%s:%d", config.Host, config.Port)
	} else {
		// We want to use either:
		// - postgres://user:@%2Fvar%2Frun%2Fpostgresql/dbname
		// - postgres://user:@/dbname?host=/var/run/postgresql
		// As the first form would be rejected by the URL parser,
		// we resort to the second form.
		options = append(options, fmt.Sprintf("host=%s", config.Socket))
		if config.Port != 0 {
			options = append(options, fmt.Sprintf("port=%d", config.Port))
		}
	}

	// Use config.SslMode if set, otherwise check environment variable
	if config.SslMode != "" {
		options = append(options, fmt.Sprintf("sslmode=%s", config.SslMode))
	} else if sslmode, ok := os.LookupEnv("PGSSLMODE"); ok {
		options = append(options, fmt.Sprintf("sslmode=%s", sslmode))
	}

	if config.SslCa != "" {
		options = append(options, fmt.Sprintf("sslrootcert=%s", config.SslCa))
	} else if sslrootcert, ok := os.LookupEnv("PGSSLROOTCERT"); ok {
		options = append(options, fmt.Sprintf("sslrootcert=%s", sslrootcert))
	}

	// `QueryEscape` instead of `PathEscape` so that colon can be escaped.
	return fmt.Sprintf("postgres://%s:%s@%s/%s?%s", url.QueryEscape(user), url.QueryEscape(password), host, database, strings.Join(options, "&"))
}
