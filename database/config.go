package database

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/sqldef/schemadef/ddl"
)

type GeneratorConfig struct {
	TargetTables []string
	SkipTables   []string
	// SkipChecks holds patterns of check expressions left out of the output.
	SkipChecks             []string
	IncludeSchema          bool
	EscapeNames            *bool
	SelfReferencingCascade *bool
	// Normalizer is "text" or "postgres"; empty picks the dialect default.
	Normalizer  string
	Concurrency int
}

type generatorConfigFile struct {
	TargetTables           string `yaml:"target_tables"`
	SkipTables             string `yaml:"skip_tables"`
	SkipChecks             string `yaml:"skip_checks"`
	IncludeSchema          bool   `yaml:"include_schema"`
	EscapeNames            *bool  `yaml:"escape_names"`
	SelfReferencingCascade *bool  `yaml:"self_referencing_cascade"`
	Normalizer             string `yaml:"normalizer"`
	Concurrency            int    `yaml:"concurrency"`
}

func ParseGeneratorConfig(configFile string) (GeneratorConfig, error) {
	if configFile == "" {
		return GeneratorConfig{}, nil
	}
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return GeneratorConfig{}, err
	}
	config, err := ParseGeneratorConfigString(string(buf))
	if err != nil {
		return GeneratorConfig{}, fmt.Errorf("%s: %w", configFile, err)
	}
	return config, nil
}

func ParseGeneratorConfigString(yamlString string) (GeneratorConfig, error) {
	var config generatorConfigFile
	if err := yaml.UnmarshalStrict([]byte(yamlString), &config); err != nil {
		return GeneratorConfig{}, err
	}
	switch config.Normalizer {
	case "", "text", "postgres":
	default:
		return GeneratorConfig{}, fmt.Errorf("unknown normalizer %q", config.Normalizer)
	}
	if config.Concurrency < 0 {
		return GeneratorConfig{}, fmt.Errorf("concurrency must not be negative: %d", config.Concurrency)
	}
	return GeneratorConfig{
		TargetTables:           splitLines(config.TargetTables),
		SkipTables:             splitLines(config.SkipTables),
		SkipChecks:             splitLines(config.SkipChecks),
		IncludeSchema:          config.IncludeSchema,
		EscapeNames:            config.EscapeNames,
		SelfReferencingCascade: config.SelfReferencingCascade,
		Normalizer:             config.Normalizer,
		Concurrency:            config.Concurrency,
	}, nil
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(strings.Trim(s, "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// MergeGeneratorConfigs merges configs in order; a later config overrides
// the scalar settings it sets and extends the lists.
func MergeGeneratorConfigs(configs ...GeneratorConfig) GeneratorConfig {
	var merged GeneratorConfig
	for _, config := range configs {
		merged.TargetTables = append(merged.TargetTables, config.TargetTables...)
		merged.SkipTables = append(merged.SkipTables, config.SkipTables...)
		merged.SkipChecks = append(merged.SkipChecks, config.SkipChecks...)
		if config.IncludeSchema {
			merged.IncludeSchema = true
		}
		if config.EscapeNames != nil {
			merged.EscapeNames = config.EscapeNames
		}
		if config.SelfReferencingCascade != nil {
			merged.SelfReferencingCascade = config.SelfReferencingCascade
		}
		if config.Normalizer != "" {
			merged.Normalizer = config.Normalizer
		}
		if config.Concurrency != 0 {
			merged.Concurrency = config.Concurrency
		}
	}
	return merged
}

// Options converts the config into DDL rendering options.
func (c GeneratorConfig) Options() (ddl.Options, error) {
	opts := ddl.DefaultOptions()
	opts.IncludeSchema = c.IncludeSchema
	if c.EscapeNames != nil {
		opts.EscapeNames = *c.EscapeNames
	}
	opts.SelfReferencingCascade = c.SelfReferencingCascade
	if len(c.SkipChecks) > 0 {
		skips, err := compileChecks(c.SkipChecks)
		if err != nil {
			return ddl.Options{}, err
		}
		opts.TranslateCheck = func(expression string) (string, bool) {
			return expression, !matchAny(skips, expression)
		}
	}
	return opts, nil
}

// compileChecks matches anywhere in the expression, unlike table patterns.
func compileChecks(patterns []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid check pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
