// Package dialect describes how each supported database engine spells DDL:
// identifier escaping, type names and the statements it can execute.
package dialect

import (
	"slices"

	"github.com/sqldef/schemadef/schema"
)

// Capabilities answers what a dialect can do in place. Anything a dialect
// cannot do is emitted as a comment by the DDL generators.
type Capabilities struct {
	AlterColumn            bool
	DropColumn             bool
	RenameColumn           bool
	SchemaQualified        bool
	NativeAutoIncrement    bool
	SelfReferencingCascade bool
	UpdateRule             bool
	AddConstraint          bool
	Views                  bool
	Procedures             bool
	Packages               bool
	Sequences              bool
	NamedDefaults          bool
}

type Syntax struct {
	LineEnding string
	Terminator string
	// BatchSeparator ends a block that must be sent on its own, such as a
	// T-SQL procedure (GO) or a PL/SQL block (/). Empty when not needed.
	BatchSeparator string
}

type Dialect struct {
	Provider schema.Provider
	Escaper
	Types        TypeMapper
	Capabilities Capabilities
	Syntax       Syntax
}

// Registry maps providers to dialects. It is built once and passed to the
// generators explicitly.
type Registry map[schema.Provider]*Dialect

func NewRegistry() Registry {
	r := Registry{}
	for _, d := range []*Dialect{
		SqlServer(),
		SqlServerCe(),
		Oracle(),
		MySql(),
		SQLite(),
		PostgreSql(),
		Db2(),
	} {
		r.Register(d)
	}
	return r
}

// Lookup returns (nil, false) for a provider with no registered dialect.
func (r Registry) Lookup(provider schema.Provider) (*Dialect, bool) {
	d, ok := r[provider]
	return d, ok && d != nil
}

// LookupName resolves a provider name or alias, see schema.ParseProvider.
func (r Registry) LookupName(name string) (*Dialect, bool) {
	provider, err := schema.ParseProvider(name)
	if err != nil {
		return nil, false
	}
	return r.Lookup(provider)
}

func (r Registry) Register(d *Dialect) {
	r[d.Provider] = d
}

func (r Registry) Providers() []schema.Provider {
	var providers []schema.Provider
	for p := range r {
		providers = append(providers, p)
	}
	slices.Sort(providers)
	return providers
}

// ColumnType renders the type clause of a column read from source.
func (d *Dialect) ColumnType(source schema.Provider, c *schema.Column) string {
	return d.Types.Render(source, c.DbDataType, c.Length, c.Precision, c.Scale)
}

// IsRowVersion reports whether a column holds a driver-maintained row
// version that must never be written.
func (d *Dialect) IsRowVersion(source schema.Provider, c *schema.Column) bool {
	return CanonicalType(source, c.DbDataType) == RowVersion
}
