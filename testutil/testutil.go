// Package testutil runs the YAML migration cases shared by the compare tests.
package testutil

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"

	"github.com/sqldef/schemadef/compare"
	"github.com/sqldef/schemadef/ddl"
	"github.com/sqldef/schemadef/dialect"
	"github.com/sqldef/schemadef/schema"
	"github.com/sqldef/schemadef/util"
)

type TestCase struct {
	Dialect string  // target dialect name, e.g. "postgres" or "mssql"
	Current string  // YAML snapshot; default: empty schema
	Desired string  // YAML snapshot; default: empty schema
	Up      *string // expected script for current → desired
	Down    *string // expected script for desired → current
	Error   *string // default: nil
	Config  struct { // Optional rendering settings for the test
		IncludeSchema bool  `yaml:"include_schema"`
		EscapeNames   *bool `yaml:"escape_names"`
	} `yaml:"config"`
}

func init() {
	util.InitSlog()

	// Keep test output clean unless LOG_LEVEL asks for more.
	if os.Getenv("LOG_LEVEL") == "" {
		opts := &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}
		handler := slog.NewTextHandler(os.Stderr, opts)
		slog.SetDefault(slog.New(handler))
	}
}

func ReadTests(pattern string) (map[string]TestCase, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	ret := map[string]TestCase{}
	// Track which file each test case came from for better error messages
	testFileMap := map[string]string{}

	for _, file := range files {
		var tests map[string]*TestCase

		buf, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		dec := yaml.NewDecoder(bytes.NewReader(buf), yaml.DisallowUnknownField())
		err = dec.Decode(&tests)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		for name, test := range tests {
			if test.Dialect == "" {
				return nil, fmt.Errorf("%s: test case '%s': 'dialect' is required", file, name)
			}
			// Validate up/down dependency: both must be present or both must be absent
			if (test.Up != nil && test.Down == nil) || (test.Up == nil && test.Down != nil) {
				return nil, fmt.Errorf(`%s: test case '%s': if 'up' is specified, 'down' must also be specified (and vice versa).
For idempotency-only tests, omit both 'up' and 'down'.`, file, name)
			}
			if existingFile, ok := testFileMap[name]; ok {
				return nil, fmt.Errorf("duplicate test case name '%s': defined in both '%s' and '%s'", name, existingFile, file)
			}
			testFileMap[name] = file
			ret[name] = *test
		}
	}

	return ret, nil
}

func RunTest(t *testing.T, test TestCase) {
	t.Helper()

	d, ok := dialect.NewRegistry().LookupName(test.Dialect)
	if !ok {
		t.Fatalf("unknown dialect %q", test.Dialect)
	}
	current := parseSchema(t, test.Current, d.Provider)
	desired := parseSchema(t, test.Desired, d.Provider)

	opts := ddl.DefaultOptions()
	opts.IncludeSchema = test.Config.IncludeSchema
	if test.Config.EscapeNames != nil {
		opts.EscapeNames = *test.Config.EscapeNames
	}
	engine := compare.New(d, compare.WithOptions(opts))

	// PHASE 1: current → desired should produce Up
	up, _, err := engine.Diff(current, desired)
	if test.Error != nil {
		if err == nil {
			t.Errorf("[Phase 1: Forward Migration] expected error: %s, but got no error", *test.Error)
		} else if err.Error() != *test.Error {
			t.Errorf("[Phase 1: Forward Migration] expected error: %s, but got: %s", *test.Error, err.Error())
		}
		return
	}
	if err != nil {
		t.Fatalf("[Phase 1: Forward Migration] Failed to compare schemas: %v", err)
	}
	if test.Up != nil {
		assert.Equal(t, strings.TrimSpace(*test.Up), strings.TrimSpace(up), "[Phase 1: Forward Migration] current → desired should produce 'up' script")
	}

	// PHASE 2: desired → desired should produce nothing
	assertIdempotent(t, engine, "Phase 2: Idempotency Check", desired)

	// PHASE 3: desired → current should produce Down
	down, _, err := engine.Diff(desired, current)
	if err != nil {
		t.Fatalf("[Phase 3: Reverse Migration] Failed to compare schemas: %v", err)
	}
	if test.Down != nil {
		assert.Equal(t, strings.TrimSpace(*test.Down), strings.TrimSpace(down), "[Phase 3: Reverse Migration] desired → current should produce 'down' script")
	}

	// PHASE 4: current → current should produce nothing
	assertIdempotent(t, engine, "Phase 4: Idempotency Check", current)
}

func assertIdempotent(t *testing.T, engine *compare.Engine, phase string, s *schema.Schema) {
	t.Helper()
	results, err := engine.Compare(s, s.Clone())
	if err != nil {
		t.Fatalf("[%s] Failed to compare schemas: %v", phase, err)
	}
	if len(results) > 0 {
		t.Errorf("[%s] a schema compared with itself should produce no results, but got:\n```\n%s```", phase, compare.Script(results))
	}
}

func parseSchema(t *testing.T, src string, provider schema.Provider) *schema.Schema {
	t.Helper()
	if strings.TrimSpace(src) == "" {
		return schema.New(provider, "")
	}
	s, err := schema.ParseYAMLString(src)
	if err != nil {
		t.Fatal(err)
	}
	if s.Provider == "" {
		s.Provider = provider
	}
	return s
}
