package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// LintIssue is one schema violation found in a config file.
type LintIssue struct {
	Field       string
	Description string
}

// Lint validates a YAML config file against the embedded JSON schema and
// returns the violations. An empty slice means the file is clean. This is a
// stricter check than LoadConfig: unknown keys are rejected, so typos that
// viper would silently ignore surface here.
func Lint(path string) ([]LintIssue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var doc any

	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if doc == nil {
		return nil, nil
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("validate schema: %w", err)
	}

	issues := make([]LintIssue, 0, len(result.Errors()))

	for _, verr := range result.Errors() {
		issues = append(issues, LintIssue{
			Field:       verr.Field(),
			Description: verr.Description(),
		})
	}

	return issues, nil
}
