// Package database provides the sources schema snapshots are exported from.
// It never deals with DDL construction.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/sqldef/schemadef/schema"
)

type Config struct {
	DbName   string
	User     string
	Password string
	Host     string
	Port     int
	Socket   string
	SslMode  string
	SslCa    string
	// MySQLEnableCleartextPlugin allows the mysql_clear_password plugin.
	MySQLEnableCleartextPlugin bool
	// Owner is the schema owner assigned to the exported objects.
	Owner string
	// SkipView leaves views out of the snapshot.
	SkipView bool
}

// Abstraction layer for the snapshot sources
type Database interface {
	ExportSchema(ctx context.Context) (*schema.Schema, error)
	Close() error
}

// ExportSchemas exports every source with at most concurrency exports in
// flight. The snapshots are returned in the order of dbs.
func ExportSchemas(ctx context.Context, dbs []Database, concurrency int) ([]*schema.Schema, error) {
	return ConcurrentMapFuncWithError(dbs, concurrency, func(db Database) (*schema.Schema, error) {
		s, err := db.ExportSchema(ctx)
		if err != nil {
			return nil, err
		}
		slog.Debug("Exported schema", "provider", s.Provider, "tables", len(s.Tables), "views", len(s.Views))
		return s, nil
	})
}

// FilterTables returns a copy of s restricted by the target_tables and
// skip_tables patterns of config. Foreign keys pointing at removed tables
// are kept; they render as unresolved references.
func FilterTables(s *schema.Schema, config GeneratorConfig) (*schema.Schema, error) {
	if len(config.TargetTables) == 0 && len(config.SkipTables) == 0 {
		return s, nil
	}
	targets, err := compilePatterns(config.TargetTables)
	if err != nil {
		return nil, err
	}
	skips, err := compilePatterns(config.SkipTables)
	if err != nil {
		return nil, err
	}

	filtered := s.Clone()
	for _, t := range s.Tables {
		name := t.Key().String()
		keep := (len(targets) == 0 || matchAny(targets, t.Name) || matchAny(targets, name)) &&
			!matchAny(skips, t.Name) && !matchAny(skips, name)
		if keep {
			continue
		}
		if _, err := filtered.RemoveTable(t.SchemaOwner, t.Name); err != nil {
			return nil, err
		}
		slog.Debug("Skipped table", "table", name)
	}
	return filtered, nil
}

// compilePatterns anchors each pattern so that it matches a whole name.
func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("invalid table pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
