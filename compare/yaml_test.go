package compare_test

import (
	"testing"

	"github.com/sqldef/schemadef/testutil"
)

func TestYAMLCases(t *testing.T) {
	tests, err := testutil.ReadTests("testdata/*.yml")
	if err != nil {
		t.Fatal(err)
	}
	if len(tests) == 0 {
		t.Fatal("no test cases found under testdata")
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.RunTest(t, test)
		})
	}
}
