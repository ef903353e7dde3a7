package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqldef/schemadef/schema"
)

// DbType is the provider-independent type a native type name maps to.
type DbType int

const (
	Object DbType = iota
	AnsiString
	String
	AnsiStringFixedLength
	StringFixedLength
	LongString
	Binary
	Blob
	Boolean
	Byte
	Int16
	Int32
	Int64
	Decimal
	Currency
	Single
	Double
	Date
	DateTime
	DateTimeOffset
	Time
	Guid
	Xml
	RowVersion
)

var dbTypeNames = [...]string{
	Object:                "Object",
	AnsiString:            "AnsiString",
	String:                "String",
	AnsiStringFixedLength: "AnsiStringFixedLength",
	StringFixedLength:     "StringFixedLength",
	LongString:            "LongString",
	Binary:                "Binary",
	Blob:                  "Blob",
	Boolean:               "Boolean",
	Byte:                  "Byte",
	Int16:                 "Int16",
	Int32:                 "Int32",
	Int64:                 "Int64",
	Decimal:               "Decimal",
	Currency:              "Currency",
	Single:                "Single",
	Double:                "Double",
	Date:                  "Date",
	DateTime:              "DateTime",
	DateTimeOffset:        "DateTimeOffset",
	Time:                  "Time",
	Guid:                  "Guid",
	Xml:                   "Xml",
	RowVersion:            "RowVersion",
}

func (t DbType) String() string {
	if int(t) < len(dbTypeNames) {
		return dbTypeNames[t]
	}
	return fmt.Sprintf("DbType(%d)", int(t))
}

type TypeClass int

const (
	ClassOther TypeClass = iota
	ClassVariableString
	ClassFixedString
	ClassLongString
	ClassBinary
	ClassBlob
	ClassDateTime
	ClassRowVersion
	ClassInteger
	ClassFloat
	ClassNumeric
	ClassBoolean
)

func (c TypeClass) IsString() bool {
	return c == ClassVariableString || c == ClassFixedString || c == ClassLongString
}

// IsSized reports whether the class takes a length clause.
func (c TypeClass) IsSized() bool {
	return c == ClassVariableString || c == ClassFixedString || c == ClassBinary
}

func ClassOf(t DbType) TypeClass {
	switch t {
	case AnsiString, String:
		return ClassVariableString
	case AnsiStringFixedLength, StringFixedLength:
		return ClassFixedString
	case LongString, Xml:
		return ClassLongString
	case Binary:
		return ClassBinary
	case Blob, Object:
		return ClassBlob
	case Date, DateTime, DateTimeOffset, Time:
		return ClassDateTime
	case RowVersion:
		return ClassRowVersion
	case Byte, Int16, Int32, Int64:
		return ClassInteger
	case Single, Double:
		return ClassFloat
	case Decimal, Currency:
		return ClassNumeric
	case Boolean:
		return ClassBoolean
	default:
		return ClassOther
	}
}

var (
	nativeTypes = map[string]DbType{
		"varchar":                     AnsiString,
		"character varying":           AnsiString,
		"nvarchar":                    String,
		"national character varying":  String,
		"char":                        AnsiStringFixedLength,
		"character":                   AnsiStringFixedLength,
		"nchar":                       StringFixedLength,
		"national character":          StringFixedLength,
		"text":                        LongString,
		"ntext":                       LongString,
		"clob":                        LongString,
		"nclob":                       LongString,
		"dbclob":                      LongString,
		"long":                        LongString,
		"tinytext":                    LongString,
		"mediumtext":                  LongString,
		"longtext":                    LongString,
		"binary":                      Binary,
		"varbinary":                   Binary,
		"raw":                         Binary,
		"image":                       Blob,
		"blob":                        Blob,
		"bytea":                       Blob,
		"tinyblob":                    Blob,
		"mediumblob":                  Blob,
		"longblob":                    Blob,
		"long raw":                    Blob,
		"bfile":                       Blob,
		"bit":                         Boolean,
		"bool":                        Boolean,
		"boolean":                     Boolean,
		"tinyint":                     Byte,
		"smallint":                    Int16,
		"int2":                        Int16,
		"smallserial":                 Int16,
		"mediumint":                   Int32,
		"int":                         Int32,
		"integer":                     Int32,
		"int4":                        Int32,
		"serial":                      Int32,
		"bigint":                      Int64,
		"int8":                        Int64,
		"bigserial":                   Int64,
		"decimal":                     Decimal,
		"numeric":                     Decimal,
		"number":                      Decimal,
		"decfloat":                    Decimal,
		"money":                       Currency,
		"smallmoney":                  Currency,
		"real":                        Single,
		"float4":                      Single,
		"binary_float":                Single,
		"float":                       Double,
		"float8":                      Double,
		"double":                      Double,
		"double precision":            Double,
		"binary_double":               Double,
		"date":                        Date,
		"datetime":                    DateTime,
		"datetime2":                   DateTime,
		"smalldatetime":               DateTime,
		"timestamp":                   DateTime,
		"timestamp without time zone": DateTime,
		"datetimeoffset":              DateTimeOffset,
		"timestamptz":                 DateTimeOffset,
		"timestamp with time zone":    DateTimeOffset,
		"time":                        Time,
		"time without time zone":      Time,
		"interval":                    Time,
		"uniqueidentifier":            Guid,
		"uuid":                        Guid,
		"xml":                         Xml,
		"xmltype":                     Xml,
		"json":                        LongString,
		"jsonb":                       LongString,
		"rowversion":                  RowVersion,
		"graphic":                     StringFixedLength,
		"vargraphic":                  String,
		"varchar2":                    AnsiString,
		"nvarchar2":                   String,
		"sql_variant":                 Object,
	}

	// Names whose meaning depends on the engine that reported them.
	providerTypes = map[schema.Provider]map[string]DbType{
		schema.SqlServer: {
			"timestamp": RowVersion,
		},
		schema.SqlServerCe: {
			"timestamp": RowVersion,
		},
		schema.Oracle: {
			"date":                           DateTime,
			"timestamp with local time zone": DateTimeOffset,
		},
		schema.MySql: {
			"float": Single,
		},
	}

	sizeClause = regexp.MustCompile(`\s*\(([^)]*)\)`)
	spaces     = regexp.MustCompile(`\s+`)
)

// baseTypeName lowercases a native type and strips size clauses, array
// suffixes and trailing modifiers such as UNSIGNED or FOR BIT DATA.
func baseTypeName(native string) string {
	name := strings.ToLower(strings.TrimSpace(native))
	name = sizeClause.ReplaceAllString(name, "")
	name = strings.TrimSuffix(name, "[]")
	for _, modifier := range []string{" unsigned", " zerofill", " for bit data", " identity"} {
		name = strings.ReplaceAll(name, modifier, "")
	}
	return spaces.ReplaceAllString(strings.TrimSpace(name), " ")
}

// CanonicalType maps a native type name, as reported by source, to its
// DbType. Unknown names map to Object.
func CanonicalType(source schema.Provider, native string) DbType {
	name := baseTypeName(native)
	t, ok := providerTypes[source][name]
	if !ok {
		t, ok = nativeTypes[name]
	}
	if !ok {
		// "int identity", "double unsigned" and friends
		if first, _, found := strings.Cut(name, " "); found {
			t, ok = nativeTypes[first]
		}
	}
	if !ok {
		return Object
	}
	if strings.Contains(strings.ToLower(native), "(max)") {
		switch ClassOf(t) {
		case ClassVariableString:
			return LongString
		case ClassBinary:
			return Blob
		}
	}
	if t == Byte && source == schema.MySql && strings.Contains(strings.ReplaceAll(native, " ", ""), "(1)") {
		return Boolean
	}
	return t
}

func IsRowVersion(source schema.Provider, native string) bool {
	return CanonicalType(source, native) == RowVersion
}

func IsBlob(source schema.Provider, native string) bool {
	return ClassOf(CanonicalType(source, native)) == ClassBlob
}

// Describe builds the schema.DataType entry for a native type.
func Describe(source schema.Provider, native string) *schema.DataType {
	t := CanonicalType(source, native)
	dt := &schema.DataType{TypeName: baseTypeName(native)}
	switch ClassOf(t) {
	case ClassVariableString, ClassFixedString:
		dt.Category = schema.CategoryString
	case ClassLongString:
		dt.Category = schema.CategoryString
		dt.IsLob = true
	case ClassBinary:
		dt.Category = schema.CategoryBinary
	case ClassBlob:
		dt.Category = schema.CategoryBinary
		dt.IsLob = true
	case ClassRowVersion:
		dt.Category = schema.CategoryBinary
		dt.IsRowVersion = true
	case ClassInteger, ClassBoolean:
		dt.Category = schema.CategoryInt
	case ClassFloat:
		dt.Category = schema.CategoryFloat
	case ClassNumeric:
		dt.Category = schema.CategoryNumeric
	case ClassDateTime:
		dt.Category = schema.CategoryDateTime
	default:
		dt.Category = schema.CategoryOther
	}
	return dt
}

type TypeMapper interface {
	// Native returns the dialect's type name for t, without size clause
	// unless the name itself fixes one (e.g. NVARCHAR(MAX)).
	Native(t DbType) string
	// Render returns the full type clause for a column read from source.
	// Types native to this dialect keep their name; others are translated
	// through their DbType.
	Render(source schema.Provider, native string, length, precision, scale int) string
	Classify(native string) TypeClass
}

type typeMapper struct {
	provider schema.Provider
	names    map[DbType]string
	// maxKeyword is the length spelling for unbounded variable types
	// (MAX on SQL Server). Empty means the long type is used instead.
	maxKeyword string
	// limits caps variable lengths; longer columns become unbounded.
	limits map[DbType]int
}

func (m *typeMapper) Native(t DbType) string {
	if name, ok := m.names[t]; ok {
		return name
	}
	return m.names[Object]
}

func (m *typeMapper) Classify(native string) TypeClass {
	return ClassOf(CanonicalType(m.provider, native))
}

func (m *typeMapper) Render(source schema.Provider, native string, length, precision, scale int) string {
	if source == "" {
		source = m.provider
	}
	t := CanonicalType(source, native)

	var name string
	if source == m.provider {
		name = strings.ToUpper(strings.TrimSpace(native))
		if strings.Contains(name, "(") {
			return name
		}
	} else {
		name = m.Native(t)
		if strings.Contains(name, "(") {
			return name
		}
	}

	class := ClassOf(t)
	switch {
	case class.IsSized():
		if length == schema.LengthMax || (m.limits[t] > 0 && length > m.limits[t]) {
			if m.maxKeyword != "" && class != ClassFixedString {
				return name + "(" + m.maxKeyword + ")"
			}
			if class == ClassBinary {
				return m.Native(Blob)
			}
			return m.Native(LongString)
		}
		if length > 0 {
			return fmt.Sprintf("%s(%d)", name, length)
		}
	case t == Decimal && precision > 0:
		if scale > 0 {
			return fmt.Sprintf("%s(%d,%d)", name, precision, scale)
		}
		return fmt.Sprintf("%s(%d)", name, precision)
	}
	return name
}
