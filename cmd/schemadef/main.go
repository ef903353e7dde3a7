package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/sqldef/schemadef"
	"github.com/sqldef/schemadef/database"
	"github.com/sqldef/schemadef/database/file"
	"github.com/sqldef/schemadef/database/mssql"
	"github.com/sqldef/schemadef/database/mysql"
	"github.com/sqldef/schemadef/database/postgres"
	"github.com/sqldef/schemadef/database/sqlite3"
	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/util"
)

var version string

type cliOptions struct {
	Dialect       string   `short:"d" long:"dialect" description:"Dialect of the generated DDL (sqlserver, postgres, mysql, oracle, sqlite, db2, sqlserverce)" value-name:"dialect" required:"true"`
	File          string   `long:"file" description:"Read the desired schema snapshot from the file, rather than stdin" value-name:"yaml_file" default:"-"`
	Export        bool     `long:"export" description:"Just dump the current schema to stdout"`
	ExportFormat  string   `long:"export-format" description:"Format of --export" choice:"sql" choice:"yaml" default:"sql"`
	Results       bool     `long:"results" description:"Prefix each change with a comment naming it"`
	IncludeSchema bool     `long:"include-schema" description:"Qualify names with their schema owner"`
	SkipView      bool     `long:"skip-view" description:"Leave views out of the current schema"`
	Owner         string   `long:"owner" description:"Schema to read from a database server, or the owner assigned to SQLite objects" value-name:"owner"`
	Source        string   `long:"source" description:"Where the current schema is read from" choice:"auto" choice:"sqlite" choice:"postgres" choice:"mysql" choice:"mssql" default:"auto"`
	User          string   `short:"U" long:"user" description:"User name to connect with" value-name:"user_name"`
	Password      string   `short:"W" long:"password" description:"Password, overridden by $PGPASSWORD or $MYSQL_PWD" value-name:"password"`
	Prompt        bool     `long:"password-prompt" description:"Force the password prompt"`
	Host          string   `short:"h" long:"host" description:"Host of the database server" value-name:"host_name" default:"127.0.0.1"`
	Port          int      `short:"p" long:"port" description:"Port of the database server (default: 5432, 3306 or 1433)" value-name:"port"`
	Socket        string   `short:"S" long:"socket" description:"Unix socket to connect through" value-name:"socket"`
	SslMode       string   `long:"ssl-mode" description:"SSL mode passed to the driver" value-name:"ssl_mode"`
	SslCa         string   `long:"ssl-ca" description:"File that contains list of trusted SSL Certificate Authorities" value-name:"ssl_ca"`
	Cleartext     bool     `long:"enable-cleartext-plugin" description:"Enable the MySQL clear text authentication plugin"`
	Config        []string `long:"config" description:"YAML file to specify: target_tables, skip_tables, skip_checks, include_schema, escape_names, self_referencing_cascade, normalizer, concurrency (can be specified multiple times)" value-name:"path"`
	ConfigInline  []string `long:"config-inline" description:"YAML object to specify the same settings as --config (can be specified multiple times)" value-name:"yaml"`
	Debug         bool     `long:"debug" description:"Dump the parsed options and config to stderr"`
	Help          bool     `long:"help" description:"Show this help"`
	Version       bool     `long:"version" description:"Show this version"`
}

// Return parsed options and the current schema source
func parseOptions(args []string) (*dialect.Dialect, string, cliOptions, *schemadef.Options) {
	var opts cliOptions

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "--dialect=dialect [options] current_schema.yml|sqlite.db|db_name"
	args, err := parser.ParseArgs(args)

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}
	if err != nil {
		log.Fatal(err)
	}

	d, ok := dialect.NewRegistry().LookupName(opts.Dialect)
	if !ok {
		log.Fatalf("Unknown dialect: %s", opts.Dialect)
	}

	if len(args) == 0 {
		fmt.Print("No current schema is specified!\n\n")
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	} else if len(args) > 1 {
		fmt.Printf("Multiple current schemas are given: %v\n\n", args)
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	configs := []database.GeneratorConfig{{IncludeSchema: opts.IncludeSchema}}
	for _, path := range opts.Config {
		config, err := database.ParseGeneratorConfig(path)
		if err != nil {
			log.Fatal(err)
		}
		configs = append(configs, config)
	}
	for _, inline := range opts.ConfigInline {
		config, err := database.ParseGeneratorConfigString(inline)
		if err != nil {
			log.Fatalf("Invalid --config-inline: %s", err)
		}
		configs = append(configs, config)
	}

	options := schemadef.Options{
		Export:       opts.Export,
		ExportFormat: opts.ExportFormat,
		Results:      opts.Results,
		Config:       database.MergeGeneratorConfigs(configs...),
	}
	return d, args[0], opts, &options
}

// openCurrent treats YAML files as snapshots and anything else as a SQLite
// database file, unless --source names a database server.
func openCurrent(source string, opts cliOptions) (database.Database, error) {
	kind := opts.Source
	if kind == "" || kind == "auto" {
		if strings.HasSuffix(source, ".yml") || strings.HasSuffix(source, ".yaml") {
			return file.NewDatabase(source), nil
		}
		kind = "sqlite"
	}

	config := database.Config{
		DbName:                     source,
		User:                       opts.User,
		Password:                   opts.Password,
		Host:                       opts.Host,
		Port:                       opts.Port,
		Socket:                     opts.Socket,
		SslMode:                    opts.SslMode,
		SslCa:                      opts.SslCa,
		MySQLEnableCleartextPlugin: opts.Cleartext,
		Owner:                      opts.Owner,
		SkipView:                   opts.SkipView,
	}
	switch kind {
	case "sqlite":
		if config.Owner == "" {
			config.Owner = "main"
		}
		return sqlite3.NewDatabase(config)
	case "postgres":
		setServerDefaults(&config, "postgres", 5432, "PGPASSWORD")
		return postgres.NewDatabase(config)
	case "mysql":
		setServerDefaults(&config, "root", 3306, "MYSQL_PWD")
		return mysql.NewDatabase(config)
	case "mssql":
		setServerDefaults(&config, "sa", 1433, "")
		return mssql.NewDatabase(config)
	default:
		return nil, fmt.Errorf("unknown source: %s", kind)
	}
}

func setServerDefaults(config *database.Config, user string, port int, passwordEnv string) {
	if config.User == "" {
		config.User = user
	}
	if config.Port == 0 {
		config.Port = port
	}
	if passwordEnv != "" {
		if password, ok := os.LookupEnv(passwordEnv); ok {
			config.Password = password
		}
	}
}

func main() {
	util.InitSlog()
	d, source, opts, options := parseOptions(os.Args[1:])
	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		opts.Password = string(pass)
	}
	if opts.Debug {
		pp.Fprintln(os.Stderr, opts)
		pp.Fprintln(os.Stderr, options.Config)
	}

	current, err := openCurrent(source, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer current.Close()

	var desired database.Database
	if !options.Export {
		snapshot, err := schemadef.ReadFile(opts.File)
		if err != nil {
			log.Fatalf("Failed to read '%s': %s", opts.File, err)
		}
		desired = file.NewSnapshotDatabase(snapshot)
	}

	slog.Debug("Generating DDL", "dialect", d.Provider, "current", source, "desired", opts.File)
	if err := schemadef.Run(context.Background(), os.Stdout, d, current, desired, options); err != nil {
		log.Fatal(err)
	}
}
