// Package compare diffs two schema snapshots into an ordered list of
// CompareResult records and the migration script that applies them.
package compare

import (
	"log/slog"

	"github.com/sqldef/schemadef/ddl"
	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/schema"
)

// Engine compares schemas for one target dialect. It holds no state between
// calls, so one Engine may serve concurrent comparisons.
type Engine struct {
	dialect    *dialect.Dialect
	opts       ddl.Options
	normalizer Normalizer
}

type Option func(*Engine)

// WithOptions sets the DDL rendering options of the scripts.
func WithOptions(opts ddl.Options) Option {
	return func(e *Engine) {
		e.opts = opts
	}
}

// WithNormalizer sets how view and routine bodies are compared.
func WithNormalizer(n Normalizer) Option {
	return func(e *Engine) {
		e.normalizer = n
	}
}

// New returns an engine rendering scripts for d. PostgreSQL bodies are
// compared through the PostgreSQL parser, others textually.
func New(d *dialect.Dialect, options ...Option) *Engine {
	e := &Engine{dialect: d, opts: ddl.DefaultOptions(), normalizer: TextNormalizer{}}
	if d != nil && d.Provider == schema.PostgreSql {
		e.normalizer = PostgresNormalizer{}
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Compare returns the differences that turn base into target: tables with
// their columns, constraints, indexes and triggers first, then views, stored
// procedures, functions, packages and sequences. Neither schema is modified.
func (e *Engine) Compare(base, target *schema.Schema) ([]CompareResult, error) {
	if base == nil || target == nil || e.dialect == nil {
		return nil, ddl.ErrNilArgument
	}
	c := &comparison{
		engine:  e,
		base:    base,
		target:  target,
		drop:    ddl.NewMigration(e.dialect, base, e.opts),
		create:  ddl.NewMigration(e.dialect, target, e.opts),
		dropped: map[string]bool{},
	}

	var all []CompareResult
	for _, category := range []struct {
		name    string
		compare func(*results)
	}{
		{"tables", c.tables},
		{"views", c.views},
		{"stored procedures", c.procedures},
		{"functions", c.functions},
		{"packages", c.packages},
		{"sequences", c.sequences},
	} {
		r := &results{}
		category.compare(r)
		if r.err != nil {
			return nil, r.err
		}
		slog.Debug("Compared schemas", "category", category.name, "results", len(r.list))
		all = append(all, r.list...)
	}
	return all, nil
}

// Diff compares and returns the concatenated script with the results.
func (e *Engine) Diff(base, target *schema.Schema) (string, []CompareResult, error) {
	results, err := e.Compare(base, target)
	if err != nil {
		return "", nil, err
	}
	return Script(results), results, nil
}

// comparison is the state of one Compare call. Drops render against the
// base schema, creations against the target.
type comparison struct {
	engine *Engine
	base   *schema.Schema
	target *schema.Schema
	drop   *ddl.Migration
	create *ddl.Migration

	// dropped holds the foreign keys already dropped by an earlier
	// statement, keyed by foreignKeyID.
	dropped map[string]bool
	// cascaded lists the foreign keys a dropped primary or unique key takes
	// with it; restoreForeignKeys adds back the ones the target keeps.
	cascaded []cascadedForeignKey
}

// results accumulates CompareResults and stops at the first error.
type results struct {
	list []CompareResult
	err  error
}

func (r *results) add(objectType SchemaObjectType, resultType ResultType, owner, table, name, script string, err error) {
	if r.err != nil {
		return
	}
	if err != nil {
		r.err = err
		return
	}
	r.list = append(r.list, CompareResult{
		SchemaObjectType: objectType,
		ResultType:       resultType,
		SchemaOwner:      owner,
		Name:             name,
		TableName:        table,
		Script:           script,
	})
}

// change renders a drop followed by a create as one Change result.
func (r *results) change(objectType SchemaObjectType, owner, table, name string, drop, create func() (string, error)) {
	if r.err != nil {
		return
	}
	dropSQL, err := drop()
	if err != nil {
		r.err = err
		return
	}
	createSQL, err := create()
	r.add(objectType, Change, owner, table, name, dropSQL+createSQL, err)
}
