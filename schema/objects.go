package schema

type View struct {
	SchemaOwner string     `yaml:"schema_owner,omitempty"`
	Name        string     `yaml:"name"`
	Sql         string     `yaml:"sql"`
	Columns     []*Column  `yaml:"columns,omitempty"`
	Triggers    []*Trigger `yaml:"triggers,omitempty"`
}

func (v *View) Key() Key {
	return Key{Owner: v.SchemaOwner, Name: v.Name}
}

func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	clone := *v
	clone.Columns = cloneAll(v.Columns, (*Column).Clone)
	clone.Triggers = cloneAll(v.Triggers, (*Trigger).Clone)
	return &clone
}

type Trigger struct {
	SchemaOwner  string `yaml:"schema_owner,omitempty"`
	Name         string `yaml:"name"`
	TableName    string `yaml:"table_name,omitempty"`
	TriggerType  string `yaml:"trigger_type,omitempty"`  // BEFORE, AFTER, INSTEAD OF
	TriggerEvent string `yaml:"trigger_event,omitempty"` // INSERT, UPDATE, DELETE
	TriggerBody  string `yaml:"body"`
}

func (t *Trigger) Clone() *Trigger {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

type Sequence struct {
	SchemaOwner  string `yaml:"schema_owner,omitempty"`
	Name         string `yaml:"name"`
	StartValue   int64  `yaml:"start,omitempty"`
	IncrementBy  int64  `yaml:"increment,omitempty"`
	MinimumValue *int64 `yaml:"min,omitempty"`
	MaximumValue *int64 `yaml:"max,omitempty"`
	Cycle        bool   `yaml:"cycle,omitempty"`
}

func (s *Sequence) Key() Key {
	return Key{Owner: s.SchemaOwner, Name: s.Name}
}

func (s *Sequence) Clone() *Sequence {
	if s == nil {
		return nil
	}
	clone := *s
	if s.MinimumValue != nil {
		v := *s.MinimumValue
		clone.MinimumValue = &v
	}
	if s.MaximumValue != nil {
		v := *s.MaximumValue
		clone.MaximumValue = &v
	}
	return &clone
}

type RoutineKind string

const (
	Procedure RoutineKind = "PROCEDURE"
	Function  RoutineKind = "FUNCTION"
)

// Routine is a stored procedure or function. Sql holds the full source as
// the catalog reports it, with or without the CREATE header.
type Routine struct {
	SchemaOwner string      `yaml:"schema_owner,omitempty"`
	Name        string      `yaml:"name"`
	Kind        RoutineKind `yaml:"kind,omitempty"`
	PackageName string      `yaml:"package,omitempty"`
	ReturnType  string      `yaml:"return_type,omitempty"`
	Language    string      `yaml:"language,omitempty"`
	Arguments   []*Argument `yaml:"arguments,omitempty"`
	Sql         string      `yaml:"sql"`
}

type Argument struct {
	Name       string `yaml:"name"`
	Ordinal    int    `yaml:"ordinal,omitempty"`
	DbDataType string `yaml:"type"`
	In         bool   `yaml:"in,omitempty"`
	Out        bool   `yaml:"out,omitempty"`
	Length     int    `yaml:"length,omitempty"`
	Precision  int    `yaml:"precision,omitempty"`
	Scale      int    `yaml:"scale,omitempty"`
}

func (r *Routine) Key() Key {
	return Key{Owner: r.SchemaOwner, Name: r.Name}
}

func (r *Routine) Clone() *Routine {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Arguments = cloneAll(r.Arguments, func(a *Argument) *Argument {
		arg := *a
		return &arg
	})
	return &clone
}

// Package is an Oracle-style package: a specification and a body.
type Package struct {
	SchemaOwner      string     `yaml:"schema_owner,omitempty"`
	Name             string     `yaml:"name"`
	Definition       string     `yaml:"definition"`
	Body             string     `yaml:"body,omitempty"`
	StoredProcedures []*Routine `yaml:"stored_procedures,omitempty"`
	Functions        []*Routine `yaml:"functions,omitempty"`
}

func (p *Package) Key() Key {
	return Key{Owner: p.SchemaOwner, Name: p.Name}
}

func (p *Package) Clone() *Package {
	if p == nil {
		return nil
	}
	clone := *p
	clone.StoredProcedures = cloneAll(p.StoredProcedures, (*Routine).Clone)
	clone.Functions = cloneAll(p.Functions, (*Routine).Clone)
	return &clone
}

type User struct {
	Name string `yaml:"name"`
}

type TypeCategory string

const (
	CategoryString   TypeCategory = "string"
	CategoryInt      TypeCategory = "int"
	CategoryFloat    TypeCategory = "float"
	CategoryNumeric  TypeCategory = "numeric"
	CategoryBinary   TypeCategory = "binary"
	CategoryDateTime TypeCategory = "datetime"
	CategoryOther    TypeCategory = "other"
)

// DataType describes a provider (or user-defined) type name and how it
// behaves when rendered.
type DataType struct {
	TypeName     string       `yaml:"name"`
	Category     TypeCategory `yaml:"category"`
	IsLob        bool         `yaml:"lob,omitempty"`
	IsRowVersion bool         `yaml:"rowversion,omitempty"`
	CreateFormat string       `yaml:"create_format,omitempty"`
}

func (d *DataType) IsString() bool   { return d.Category == CategoryString }
func (d *DataType) IsInt() bool      { return d.Category == CategoryInt }
func (d *DataType) IsFloat() bool    { return d.Category == CategoryFloat }
func (d *DataType) IsNumeric() bool  { return d.Category == CategoryNumeric }
func (d *DataType) IsDateTime() bool { return d.Category == CategoryDateTime }

// IsBlob reports a binary large object.
func (d *DataType) IsBlob() bool {
	return d.Category == CategoryBinary && d.IsLob
}

func cloneAll[T any](in []*T, clone func(*T) *T) []*T {
	if in == nil {
		return nil
	}
	out := make([]*T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}
