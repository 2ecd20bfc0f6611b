// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

// TemplateYAML is the schema template of a test project.
const TemplateYAML = `tables:
  items:
    displayField: description
    fields:
      description: {type: Text}
      price: {type: Float}
      quantity: {type: Counter}
      done: {type: Boolean}
      status: {type: Single select}
      tags: {type: Multi select}
`

// ItemsJSON holds the rows of the items table.
const ItemsJSON = `[
  {"id": 1, "description": "Bolt", "price": "1.50", "quantity": 10, "done": true, "status": ["open"], "tags": ["b", "a"]},
  {"id": 2, "description": "Nut", "price": "0.25", "quantity": 40, "done": false, "status": ["closed"], "tags": []},
  {"id": 3, "description": "Washer", "price": "", "quantity": null, "done": false, "status": ["open"], "tags": ["a", "b"]}
]
`

// SetupTestProject creates a temporary project with a template, a data file
// and a config file pointing the state database into the project.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"template.yaml": TemplateYAML,
		"items.json":    ItemsJSON,
		"gridcell.yaml": "schema_path: template.yaml\nstate_path: .gridcell/state.db\noutput: json\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return dir
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
