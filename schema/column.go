package schema

// LengthMax marks a variable-length column declared with MAX (or an
// equivalent unbounded length).
const LengthMax = -1

// Column belongs to exactly one table, named by SchemaOwner and TableName.
type Column struct {
	SchemaOwner        string    `yaml:"schema_owner,omitempty"`
	TableName          string    `yaml:"table_name,omitempty"`
	Name               string    `yaml:"name"`
	Ordinal            int       `yaml:"ordinal,omitempty"`
	DbDataType         string    `yaml:"type"`
	Nullable           bool      `yaml:"nullable"`
	Length             int       `yaml:"length,omitempty"`
	Precision          int       `yaml:"precision,omitempty"`
	Scale              int       `yaml:"scale,omitempty"`
	DefaultValue       string    `yaml:"default,omitempty"`
	Identity           *Identity `yaml:"identity,omitempty"`
	ComputedDefinition string    `yaml:"computed,omitempty"`
	Description        string    `yaml:"description,omitempty"`

	// Mirrored from the table's constraints and indexes; recomputed by the
	// builder operations and Schema.Link.
	IsPrimaryKey bool `yaml:"-"`
	IsForeignKey bool `yaml:"-"`
	IsUniqueKey  bool `yaml:"-"`
	IsIndexed    bool `yaml:"-"`
}

type Identity struct {
	Seed      int64 `yaml:"seed"`
	Increment int64 `yaml:"increment"`
	ByDefault bool  `yaml:"by_default,omitempty"`
}

func (c *Column) SetLength(length int) *Column {
	c.Length = length
	return c
}

func (c *Column) SetPrecision(precision, scale int) *Column {
	c.Precision = precision
	c.Scale = scale
	return c
}

func (c *Column) SetNullable(nullable bool) *Column {
	c.Nullable = nullable
	return c
}

// SetDefault sets the default expression without creating a named default
// constraint; use Table.AddDefault for dialects that name them.
func (c *Column) SetDefault(value string) *Column {
	c.DefaultValue = value
	return c
}

func (c *Column) SetIdentity(seed, increment int64) *Column {
	c.Identity = &Identity{Seed: seed, Increment: increment}
	return c
}

func (c *Column) SetDescription(description string) *Column {
	c.Description = description
	return c
}

func (c *Column) IsAutoNumber() bool {
	return c.Identity != nil
}

func (c *Column) IsComputed() bool {
	return c.ComputedDefinition != ""
}

func (c *Column) TableKey() Key {
	return Key{Owner: c.SchemaOwner, Name: c.TableName}
}

func (c *Column) Clone() *Column {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Identity != nil {
		identity := *c.Identity
		clone.Identity = &identity
	}
	return &clone
}
