// fix-tests rewrites the expected 'up' and 'down' scripts of failing YAML
// compare cases with what the engine actually produced.
//
//	go run ./cmd/fix-tests [package] [results.json]
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/sqldef/schemadef/util"
)

const testPrefix = "TestYAMLCases/"

type TestEvent struct {
	Action string `json:"Action"`
	Test   string `json:"Test"`
	Output string `json:"Output"`
}

type TestFailure struct {
	TestName string
	YamlFile string
	Field    string // "up" or "down"
	Expected string
	Actual   string
}

var (
	phaseFields = map[string]string{
		"[Phase 1: Forward Migration]": "up",
		"[Phase 3: Reverse Migration]": "down",
	}
	expectedRegex = regexp.MustCompile(`expected: "((?:[^"\\]|\\.)*)"`)
	actualRegex   = regexp.MustCompile(`actual  : "((?:[^"\\]|\\.)*)"`)
)

func main() {
	util.InitSlog()
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(args []string) error {
	pkg := "./compare"
	if len(args) > 0 && !strings.HasSuffix(args[0], ".json") {
		pkg, args = args[0], args[1:]
	}

	var testOutput []byte
	var err error
	if len(args) > 0 {
		testOutput, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read test results file: %w", err)
		}
	} else {
		testOutput, err = runTests(pkg)
		if err != nil {
			return err
		}
	}

	failures := parseTestResults(testOutput, pkg)
	fmt.Printf("Found %d failing expectations\n", len(failures))

	fixed := 0
	for _, failure := range failures {
		if err := updateYamlFile(failure.YamlFile, failure.TestName, failure.Field, failure.Actual); err != nil {
			log.Printf("Failed to fix test %s: %v", failure.TestName, err)
			continue
		}
		fmt.Printf("Fixed %s of %s in %s\n", failure.Field, failure.TestName, filepath.Base(failure.YamlFile))
		fixed++
	}

	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Total failures: %d\n", len(failures))
	fmt.Printf("Fixed: %d\n", fixed)
	fmt.Printf("Failed to fix: %d\n", len(failures)-fixed)
	return nil
}

func runTests(pkg string) ([]byte, error) {
	cmd := exec.Command("go", "test", pkg, "-run", "TestYAMLCases", "-json")
	output, err := cmd.CombinedOutput()
	// Test failures are expected, only fatal if we can't run tests at all
	if err != nil && len(output) == 0 {
		return nil, fmt.Errorf("failed to run tests: %w", err)
	}
	return output, nil
}

func parseTestResults(output []byte, pkg string) []TestFailure {
	var failures []TestFailure
	testOutputs := map[string]*strings.Builder{}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var event TestEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil || !strings.HasPrefix(event.Test, testPrefix) {
			continue
		}
		switch event.Action {
		case "run":
			testOutputs[event.Test] = &strings.Builder{}
		case "output":
			if buf, ok := testOutputs[event.Test]; ok {
				buf.WriteString(event.Output)
			}
		case "fail":
			buf, ok := testOutputs[event.Test]
			if !ok {
				continue
			}
			delete(testOutputs, event.Test)
			failures = append(failures, parseTestFailure(strings.TrimPrefix(event.Test, testPrefix), buf.String(), pkg)...)
		}
	}
	return failures
}

// parseTestFailure reads each failed assertion of a case. testify prints
// the message naming the phase after the diff, so both are looked up within
// one assertion block.
func parseTestFailure(testName, output, pkg string) []TestFailure {
	yamlFile := findYamlFile(testName, pkg)
	if yamlFile == "" {
		log.Printf("Could not find YAML file for test: %s", testName)
		return nil
	}

	var failures []TestFailure
	for _, block := range strings.Split(output, "Error Trace:") {
		for phase, field := range util.CanonicalMapIter(phaseFields) {
			if !strings.Contains(block, phase) {
				continue
			}
			expected := expectedRegex.FindStringSubmatch(block)
			actual := actualRegex.FindStringSubmatch(block)
			if expected == nil || actual == nil {
				continue
			}
			failures = append(failures, TestFailure{
				TestName: testName,
				YamlFile: yamlFile,
				Field:    field,
				Expected: unescapeString(expected[1]),
				Actual:   unescapeString(actual[1]),
			})
		}
	}
	return failures
}

func unescapeString(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\"`, `"`)
	return s
}

func findYamlFile(testName, pkg string) string {
	matches, err := filepath.Glob(filepath.Join(pkg, "testdata", "*.yml"))
	if err != nil {
		return ""
	}
	for _, yamlFile := range matches {
		data, err := os.ReadFile(yamlFile)
		if err != nil {
			continue
		}
		var tests map[string]any
		if err := yaml.Unmarshal(data, &tests); err != nil {
			continue
		}
		if _, exists := tests[testName]; exists {
			return yamlFile
		}
	}
	return ""
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

// updateYamlFile replaces the literal block of field inside testName,
// leaving the rest of the file as written.
func updateYamlFile(filename, testName, field, newValue string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	var result []string
	inTest, replaced := false, false
	testIndent := 0

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == testName+":" {
			inTest = true
			testIndent = indentOf(line)
			result = append(result, line)
			continue
		}
		if inTest && trimmed != "" && indentOf(line) <= testIndent {
			inTest = false
		}
		if !inTest || replaced || !strings.HasPrefix(trimmed, field+": |") {
			result = append(result, line)
			continue
		}

		fieldIndent := indentOf(line)
		result = append(result, line)
		for _, valueLine := range strings.Split(strings.TrimRight(newValue, "\n"), "\n") {
			result = append(result, strings.Repeat(" ", fieldIndent+2)+valueLine)
		}
		// skip the old block
		for i+1 < len(lines) {
			next := lines[i+1]
			if strings.TrimSpace(next) != "" && indentOf(next) <= fieldIndent {
				break
			}
			i++
		}
		replaced = true
	}

	if !replaced {
		return fmt.Errorf("no '%s: |' block in test %s", field, testName)
	}
	return os.WriteFile(filename, []byte(strings.Join(result, "\n")), 0o644)
}
