package schemadef

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/sqldef/schemadef/compare"
	"github.com/sqldef/schemadef/database"
	"github.com/sqldef/schemadef/ddl"
	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/schema"
	"github.com/sqldef/schemadef/util"
)

type Options struct {
	Export bool
	// ExportFormat is "sql" (default) or "yaml".
	ExportFormat string
	// Results prefixes every script with a comment naming its result.
	Results bool
	Config  database.GeneratorConfig
}

// Main function shared by all commands. Export writes the current schema;
// otherwise the script turning current into desired is written.
func Run(ctx context.Context, out io.Writer, d *dialect.Dialect, current, desired database.Database, options *Options) error {
	opts, err := options.Config.Options()
	if err != nil {
		return err
	}

	if options.Export {
		s, err := exportSchema(ctx, current, options.Config)
		if err != nil {
			return err
		}
		return export(out, d, s, opts, options.ExportFormat)
	}

	if desired == nil {
		return fmt.Errorf("no desired schema is given")
	}
	schemas, err := database.ExportSchemas(ctx, []database.Database{current, desired}, options.Config.Concurrency)
	if err != nil {
		return err
	}
	for i, s := range schemas {
		if schemas[i], err = database.FilterTables(s, options.Config); err != nil {
			return err
		}
	}

	engineOptions := []compare.Option{compare.WithOptions(opts)}
	if n := normalizer(options.Config.Normalizer); n != nil {
		engineOptions = append(engineOptions, compare.WithNormalizer(n))
	}
	results, err := compare.New(d, engineOptions...).Compare(schemas[0], schemas[1])
	if err != nil {
		return err
	}
	logSummary(results)

	if len(results) == 0 {
		_, err := fmt.Fprintln(out, "-- Nothing is modified --")
		return err
	}
	for _, r := range results {
		if options.Results {
			if _, err := fmt.Fprintf(out, "-- %s\n", r); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(out, r.Script); err != nil {
			return err
		}
	}
	return nil
}

func exportSchema(ctx context.Context, db database.Database, config database.GeneratorConfig) (*schema.Schema, error) {
	s, err := db.ExportSchema(ctx)
	if err != nil {
		return nil, err
	}
	return database.FilterTables(s, config)
}

func export(out io.Writer, d *dialect.Dialect, s *schema.Schema, opts ddl.Options, format string) error {
	switch format {
	case "", "sql":
		if isEmpty(s) {
			_, err := fmt.Fprintln(out, "-- No table exists --")
			return err
		}
		sql, err := ddl.NewGenerator(d, opts).WriteAll(s)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, sql)
		return err
	case "yaml":
		y, err := s.ToYAML()
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, y)
		return err
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func isEmpty(s *schema.Schema) bool {
	return len(s.Tables) == 0 && len(s.Views) == 0 && len(s.StoredProcedures) == 0 &&
		len(s.Functions) == 0 && len(s.Packages) == 0 && len(s.Sequences) == 0
}

func normalizer(name string) compare.Normalizer {
	switch name {
	case "text":
		return compare.TextNormalizer{}
	case "postgres":
		return compare.PostgresNormalizer{}
	default:
		return nil
	}
}

func logSummary(results []compare.CompareResult) {
	counts := map[string]int{}
	for _, r := range results {
		counts[string(r.ResultType)]++
	}
	for resultType, count := range util.CanonicalMapIter(counts) {
		slog.Info("Compared schemas", "result", resultType, "count", count)
	}
	slog.Debug("Changes", "results", util.TransformSlice(results, compare.CompareResult.String))
}

// ReadFile reads a snapshot from a path, or from stdin when the path is "-".
func ReadFile(filepath string) (string, error) {
	var err error
	var buf []byte

	if filepath == "-" {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return "", fmt.Errorf("stdin is not piped")
		}
		buf, err = io.ReadAll(os.Stdin)
	} else {
		buf, err = os.ReadFile(filepath)
	}

	if err != nil {
		return "", err
	}
	return string(buf), nil
}
