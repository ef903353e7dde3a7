// Package sqlite3 exports a schema snapshot from a SQLite database file
// through the pragma table functions. The database is only read.
package sqlite3

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/sqldef/schemadef/database"
	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/schema"
)

type Sqlite3Database struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("sqlite", config.DbName)
	if err != nil {
		return nil, err
	}

	return &Sqlite3Database{
		db:     db,
		config: config,
	}, nil
}

func (d *Sqlite3Database) ExportSchema(ctx context.Context) (*schema.Schema, error) {
	s := schema.New(schema.SQLite, d.config.Owner)

	tables, err := d.tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		t, err := d.table(ctx, table.name, table.sql)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table.name, err)
		}
		if err := s.AddTable(t); err != nil {
			return nil, err
		}
	}
	for _, t := range s.Tables {
		if err := d.foreignKeys(ctx, s, t); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
	}

	if !d.config.SkipView {
		views, err := d.views(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range views {
			if err := s.AddView(v); err != nil {
				return nil, err
			}
		}
	}

	database.FinishSchema(s)
	return s, nil
}

type namedSQL struct {
	name string
	sql  string
}

func (d *Sqlite3Database) tables(ctx context.Context) ([]namedSQL, error) {
	rows, err := d.db.QueryContext(ctx,
		`select tbl_name, sql from sqlite_master where type = 'table' and tbl_name not like 'sqlite_%' order by rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []namedSQL
	for rows.Next() {
		var table namedSQL
		if err := rows.Scan(&table.name, &table.sql); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

var (
	typeSize      = regexp.MustCompile(`^\s*([^(]+?)\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)\s*$`)
	autoincrement = regexp.MustCompile(`(?i)\bautoincrement\b`)
)

func (d *Sqlite3Database) table(ctx context.Context, name, ddl string) (*schema.Table, error) {
	t := schema.NewTable(d.config.Owner, name)

	rows, err := d.db.QueryContext(ctx,
		`select cid, name, type, "notnull", dflt_value, pk from pragma_table_info(?) order by cid`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	pkOrder := map[string]int{}
	for rows.Next() {
		var (
			cid, notNull, pkIndex int
			columnName, dataType  string
			defaultValue          sql.NullString
		)
		if err := rows.Scan(&cid, &columnName, &dataType, &notNull, &defaultValue, &pkIndex); err != nil {
			return nil, err
		}
		c := t.AddColumn(columnName, dataType)
		c.Ordinal = cid + 1
		setTypeSize(c, dataType)
		c.SetNullable(notNull == 0 && pkIndex == 0)
		if defaultValue.Valid {
			c.SetDefault(defaultValue.String)
		}
		if pkIndex > 0 {
			pk = append(pk, columnName)
			pkOrder[columnName] = pkIndex
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(pk) > 0 {
		slices.SortFunc(pk, func(a, b string) int { return cmp.Compare(pkOrder[a], pkOrder[b]) })
		if err := t.AddPrimaryKey("", pk...); err != nil {
			return nil, err
		}
		if len(pk) == 1 && autoincrement.MatchString(ddl) {
			t.FindColumn(pk[0]).SetIdentity(1, 1)
		}
	}

	if err := d.indexes(ctx, t); err != nil {
		return nil, err
	}
	if err := d.triggers(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// setTypeSize moves a "(n)" or "(p,s)" suffix from the declared type into
// the column's length or precision.
func setTypeSize(c *schema.Column, declared string) {
	m := typeSize.FindStringSubmatch(declared)
	if m == nil {
		return
	}
	c.DbDataType = m[1]
	first, _ := strconv.Atoi(m[2])
	if m[3] != "" || dialect.ClassOf(dialect.CanonicalType(schema.SQLite, m[1])) == dialect.ClassNumeric {
		scale, _ := strconv.Atoi(m[3])
		c.SetPrecision(first, scale)
		return
	}
	c.SetLength(first)
}

// indexes reads the indexes of t. Indexes behind a UNIQUE constraint become
// unique keys; the one behind the primary key is skipped.
func (d *Sqlite3Database) indexes(ctx context.Context, t *schema.Table) error {
	rows, err := d.db.QueryContext(ctx, `select name, "unique", origin from pragma_index_list(?) order by name`, t.Name)
	if err != nil {
		return err
	}
	type indexInfo struct {
		name   string
		unique bool
		origin string
	}
	var infos []indexInfo
	for rows.Next() {
		var info indexInfo
		var unique int
		if err := rows.Scan(&info.name, &unique, &info.origin); err != nil {
			rows.Close()
			return err
		}
		info.unique = unique != 0
		infos = append(infos, info)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, info := range infos {
		if info.origin == "pk" {
			continue
		}
		columns, descending, err := d.indexColumns(ctx, info.name)
		if err != nil {
			return err
		}
		if len(columns) == 0 {
			// expression index
			continue
		}
		if info.origin == "u" {
			if err := t.AddUniqueKey("", columns...); err != nil {
				return err
			}
			continue
		}
		index, err := t.AddIndex(info.name, info.unique, columns...)
		if err != nil {
			return err
		}
		for i := range index.Columns {
			index.Columns[i].Descending = descending[i]
		}
	}
	return nil
}

func (d *Sqlite3Database) indexColumns(ctx context.Context, index string) ([]string, []bool, error) {
	rows, err := d.db.QueryContext(ctx, `select name, "desc" from pragma_index_xinfo(?) where key = 1 order by seqno`, index)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []string
	var descending []bool
	for rows.Next() {
		var name sql.NullString
		var desc int
		if err := rows.Scan(&name, &desc); err != nil {
			return nil, nil, err
		}
		if !name.Valid {
			return nil, nil, nil
		}
		columns = append(columns, name.String)
		descending = append(descending, desc != 0)
	}
	return columns, descending, rows.Err()
}

// foreignKeys runs once every table is known so that references resolve.
// SQLite does not keep constraint names, so the keys are unnamed.
func (d *Sqlite3Database) foreignKeys(ctx context.Context, s *schema.Schema, t *schema.Table) error {
	rows, err := d.db.QueryContext(ctx,
		`select id, "table", "from", on_update, on_delete from pragma_foreign_key_list(?) order by id, seq`, t.Name)
	if err != nil {
		return err
	}
	type reference struct {
		table, onUpdate, onDelete string
		columns                   []string
	}
	var order []int
	refs := map[int]*reference{}
	for rows.Next() {
		var id int
		var table, from, onUpdate, onDelete string
		if err := rows.Scan(&id, &table, &from, &onUpdate, &onDelete); err != nil {
			rows.Close()
			return err
		}
		ref, ok := refs[id]
		if !ok {
			ref = &reference{table: table, onUpdate: onUpdate, onDelete: onDelete}
			refs[id] = ref
			order = append(order, id)
		}
		ref.columns = append(ref.columns, from)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range order {
		ref := refs[id]
		fk, err := s.AddForeignKey(t, "", ref.table, ref.columns...)
		if err != nil {
			return err
		}
		fk.SetDeleteRule(database.ReferentialRule(ref.onDelete)).SetUpdateRule(database.ReferentialRule(ref.onUpdate))
	}
	return nil
}

func (d *Sqlite3Database) triggers(ctx context.Context, t *schema.Table) error {
	rows, err := d.db.QueryContext(ctx, `select name, sql from sqlite_master where type = 'trigger' and tbl_name = ? order by name`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, body string
		if err := rows.Scan(&name, &body); err != nil {
			return err
		}
		if err := t.AddTrigger(&schema.Trigger{Name: name, TriggerBody: body}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *Sqlite3Database) views(ctx context.Context) ([]*schema.View, error) {
	rows, err := d.db.QueryContext(ctx, `select name, sql from sqlite_master where type = 'view' order by rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []*schema.View
	for rows.Next() {
		v := &schema.View{SchemaOwner: d.config.Owner}
		if err := rows.Scan(&v.Name, &v.Sql); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (d *Sqlite3Database) DB() *sql.DB {
	return d.db
}

func (d *Sqlite3Database) Close() error {
	return d.db.Close()
}
