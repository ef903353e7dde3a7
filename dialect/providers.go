package dialect

import "github.com/sqldef/schemadef/schema"

var unixSyntax = Syntax{LineEnding: "\n", Terminator: ";"}

func SqlServer() *Dialect {
	return &Dialect{
		Provider: schema.SqlServer,
		Escaper:  bracketEscaper(128),
		Types: &typeMapper{
			provider: schema.SqlServer,
			names: map[DbType]string{
				Object:                "SQL_VARIANT",
				AnsiString:            "VARCHAR",
				String:                "NVARCHAR",
				AnsiStringFixedLength: "CHAR",
				StringFixedLength:     "NCHAR",
				LongString:            "NVARCHAR(MAX)",
				Binary:                "VARBINARY",
				Blob:                  "VARBINARY(MAX)",
				Boolean:               "BIT",
				Byte:                  "TINYINT",
				Int16:                 "SMALLINT",
				Int32:                 "INT",
				Int64:                 "BIGINT",
				Decimal:               "DECIMAL",
				Currency:              "MONEY",
				Single:                "REAL",
				Double:                "FLOAT",
				Date:                  "DATE",
				DateTime:              "DATETIME",
				DateTimeOffset:        "DATETIMEOFFSET",
				Time:                  "TIME",
				Guid:                  "UNIQUEIDENTIFIER",
				Xml:                   "XML",
				RowVersion:            "ROWVERSION",
			},
			maxKeyword: "MAX",
			limits: map[DbType]int{
				AnsiString:            8000,
				AnsiStringFixedLength: 8000,
				String:                4000,
				StringFixedLength:     4000,
				Binary:                8000,
			},
		},
		Capabilities: Capabilities{
			AlterColumn:         true,
			DropColumn:          true,
			RenameColumn:        true,
			SchemaQualified:     true,
			NativeAutoIncrement: true,
			UpdateRule:          true,
			AddConstraint:       true,
			Views:               true,
			Procedures:          true,
			Sequences:           true,
			NamedDefaults:       true,
		},
		Syntax: Syntax{LineEnding: "\n", Terminator: ";", BatchSeparator: "GO"},
	}
}

// SqlServerCe is the embedded edition: no schemas, views or routines, and
// only Unicode string types.
func SqlServerCe() *Dialect {
	return &Dialect{
		Provider: schema.SqlServerCe,
		Escaper:  bracketEscaper(128),
		Types: &typeMapper{
			provider: schema.SqlServerCe,
			names: map[DbType]string{
				Object:                "NTEXT",
				AnsiString:            "NVARCHAR",
				String:                "NVARCHAR",
				AnsiStringFixedLength: "NCHAR",
				StringFixedLength:     "NCHAR",
				LongString:            "NTEXT",
				Binary:                "VARBINARY",
				Blob:                  "IMAGE",
				Boolean:               "BIT",
				Byte:                  "TINYINT",
				Int16:                 "SMALLINT",
				Int32:                 "INT",
				Int64:                 "BIGINT",
				Decimal:               "NUMERIC",
				Currency:              "MONEY",
				Single:                "REAL",
				Double:                "FLOAT",
				Date:                  "DATETIME",
				DateTime:              "DATETIME",
				DateTimeOffset:        "DATETIME",
				Time:                  "DATETIME",
				Guid:                  "UNIQUEIDENTIFIER",
				Xml:                   "NTEXT",
				RowVersion:            "ROWVERSION",
			},
			limits: map[DbType]int{
				AnsiString:            4000,
				String:                4000,
				AnsiStringFixedLength: 4000,
				StringFixedLength:     4000,
				Binary:                8000,
			},
		},
		Capabilities: Capabilities{
			AlterColumn:         true,
			DropColumn:          true,
			NativeAutoIncrement: true,
			UpdateRule:          true,
			AddConstraint:       true,
		},
		Syntax: Syntax{LineEnding: "\n", Terminator: ";", BatchSeparator: "GO"},
	}
}

func Oracle() *Dialect {
	return &Dialect{
		Provider: schema.Oracle,
		Escaper:  doubleQuoteEscaper(30),
		Types: &typeMapper{
			provider: schema.Oracle,
			names: map[DbType]string{
				Object:                "BLOB",
				AnsiString:            "VARCHAR2",
				String:                "NVARCHAR2",
				AnsiStringFixedLength: "CHAR",
				StringFixedLength:     "NCHAR",
				LongString:            "CLOB",
				Binary:                "RAW",
				Blob:                  "BLOB",
				Boolean:               "NUMBER(1)",
				Byte:                  "NUMBER(3)",
				Int16:                 "NUMBER(5)",
				Int32:                 "NUMBER(10)",
				Int64:                 "NUMBER(19)",
				Decimal:               "NUMBER",
				Currency:              "NUMBER(19,4)",
				Single:                "BINARY_FLOAT",
				Double:                "BINARY_DOUBLE",
				Date:                  "DATE",
				DateTime:              "TIMESTAMP",
				DateTimeOffset:        "TIMESTAMP WITH TIME ZONE",
				Time:                  "INTERVAL DAY TO SECOND",
				Guid:                  "RAW(16)",
				Xml:                   "XMLTYPE",
				RowVersion:            "RAW(8)",
			},
			limits: map[DbType]int{
				AnsiString: 4000,
				String:     2000,
				Binary:     2000,
			},
		},
		Capabilities: Capabilities{
			AlterColumn:            true,
			DropColumn:             true,
			RenameColumn:           true,
			SchemaQualified:        true,
			SelfReferencingCascade: true,
			AddConstraint:          true,
			Views:                  true,
			Procedures:             true,
			Packages:               true,
			Sequences:              true,
		},
		Syntax: Syntax{LineEnding: "\n", Terminator: ";", BatchSeparator: "/"},
	}
}

func MySql() *Dialect {
	return &Dialect{
		Provider: schema.MySql,
		Escaper:  backtickEscaper(64),
		Types: &typeMapper{
			provider: schema.MySql,
			names: map[DbType]string{
				Object:                "LONGBLOB",
				AnsiString:            "VARCHAR",
				String:                "VARCHAR",
				AnsiStringFixedLength: "CHAR",
				StringFixedLength:     "CHAR",
				LongString:            "LONGTEXT",
				Binary:                "VARBINARY",
				Blob:                  "LONGBLOB",
				Boolean:               "TINYINT(1)",
				Byte:                  "TINYINT",
				Int16:                 "SMALLINT",
				Int32:                 "INT",
				Int64:                 "BIGINT",
				Decimal:               "DECIMAL",
				Currency:              "DECIMAL(19,4)",
				Single:                "FLOAT",
				Double:                "DOUBLE",
				Date:                  "DATE",
				DateTime:              "DATETIME",
				DateTimeOffset:        "DATETIME",
				Time:                  "TIME",
				Guid:                  "CHAR(36)",
				Xml:                   "LONGTEXT",
				RowVersion:            "TIMESTAMP",
			},
			limits: map[DbType]int{
				AnsiString: 21844,
				String:     21844,
				Binary:     65535,
			},
		},
		Capabilities: Capabilities{
			AlterColumn:            true,
			DropColumn:             true,
			RenameColumn:           true,
			SchemaQualified:        true,
			NativeAutoIncrement:    true,
			SelfReferencingCascade: true,
			UpdateRule:             true,
			AddConstraint:          true,
			Views:                  true,
			Procedures:             true,
		},
		Syntax: unixSyntax,
	}
}

// SQLite cannot add constraints to an existing table, so foreign keys are
// written inline and most ALTER forms are unavailable.
func SQLite() *Dialect {
	return &Dialect{
		Provider: schema.SQLite,
		Escaper:  doubleQuoteEscaper(0),
		Types: &typeMapper{
			provider: schema.SQLite,
			names: map[DbType]string{
				Object:                "BLOB",
				AnsiString:            "VARCHAR",
				String:                "VARCHAR",
				AnsiStringFixedLength: "CHAR",
				StringFixedLength:     "CHAR",
				LongString:            "TEXT",
				Binary:                "BLOB",
				Blob:                  "BLOB",
				Boolean:               "BOOLEAN",
				Byte:                  "INTEGER",
				Int16:                 "INTEGER",
				Int32:                 "INTEGER",
				Int64:                 "INTEGER",
				Decimal:               "NUMERIC",
				Currency:              "NUMERIC",
				Single:                "REAL",
				Double:                "REAL",
				Date:                  "DATE",
				DateTime:              "DATETIME",
				DateTimeOffset:        "DATETIME",
				Time:                  "TIME",
				Guid:                  "TEXT",
				Xml:                   "TEXT",
				RowVersion:            "BLOB",
			},
		},
		Capabilities: Capabilities{
			RenameColumn:           true,
			NativeAutoIncrement:    true,
			SelfReferencingCascade: true,
			UpdateRule:             true,
			Views:                  true,
		},
		Syntax: unixSyntax,
	}
}

func PostgreSql() *Dialect {
	return &Dialect{
		Provider: schema.PostgreSql,
		Escaper:  postgresEscaper{},
		Types: &typeMapper{
			provider: schema.PostgreSql,
			names: map[DbType]string{
				Object:                "BYTEA",
				AnsiString:            "VARCHAR",
				String:                "VARCHAR",
				AnsiStringFixedLength: "CHAR",
				StringFixedLength:     "CHAR",
				LongString:            "TEXT",
				Binary:                "BYTEA",
				Blob:                  "BYTEA",
				Boolean:               "BOOLEAN",
				Byte:                  "SMALLINT",
				Int16:                 "SMALLINT",
				Int32:                 "INTEGER",
				Int64:                 "BIGINT",
				Decimal:               "NUMERIC",
				Currency:              "NUMERIC(19,4)",
				Single:                "REAL",
				Double:                "DOUBLE PRECISION",
				Date:                  "DATE",
				DateTime:              "TIMESTAMP",
				DateTimeOffset:        "TIMESTAMPTZ",
				Time:                  "TIME",
				Guid:                  "UUID",
				Xml:                   "XML",
				RowVersion:            "BYTEA",
			},
		},
		Capabilities: Capabilities{
			AlterColumn:            true,
			DropColumn:             true,
			RenameColumn:           true,
			SchemaQualified:        true,
			NativeAutoIncrement:    true,
			SelfReferencingCascade: true,
			UpdateRule:             true,
			AddConstraint:          true,
			Views:                  true,
			Procedures:             true,
			Sequences:              true,
		},
		Syntax: unixSyntax,
	}
}

func Db2() *Dialect {
	return &Dialect{
		Provider: schema.Db2,
		Escaper:  doubleQuoteEscaper(128),
		Types: &typeMapper{
			provider: schema.Db2,
			names: map[DbType]string{
				Object:                "BLOB",
				AnsiString:            "VARCHAR",
				String:                "VARGRAPHIC",
				AnsiStringFixedLength: "CHAR",
				StringFixedLength:     "GRAPHIC",
				LongString:            "CLOB",
				Binary:                "VARBINARY",
				Blob:                  "BLOB",
				Boolean:               "SMALLINT",
				Byte:                  "SMALLINT",
				Int16:                 "SMALLINT",
				Int32:                 "INTEGER",
				Int64:                 "BIGINT",
				Decimal:               "DECIMAL",
				Currency:              "DECIMAL(19,4)",
				Single:                "REAL",
				Double:                "DOUBLE",
				Date:                  "DATE",
				DateTime:              "TIMESTAMP",
				DateTimeOffset:        "TIMESTAMP",
				Time:                  "TIME",
				Guid:                  "CHAR(16) FOR BIT DATA",
				Xml:                   "XML",
				RowVersion:            "TIMESTAMP",
			},
			limits: map[DbType]int{
				AnsiString: 32672,
				String:     16336,
				Binary:     32672,
			},
		},
		Capabilities: Capabilities{
			AlterColumn:            true,
			DropColumn:             true,
			RenameColumn:           true,
			SchemaQualified:        true,
			NativeAutoIncrement:    true,
			SelfReferencingCascade: true,
			UpdateRule:             true,
			AddConstraint:          true,
			Views:                  true,
			Procedures:             true,
			Sequences:              true,
		},
		Syntax: unixSyntax,
	}
}
