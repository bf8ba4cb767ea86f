package reportschema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed report.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// ValidationError lists every schema violation found in a report.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("report schema validation failed: %s", strings.Join(e.Details, "; "))
}

func load() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Validate checks a raw JSON report against the embedded schema.
func Validate(data []byte) error {
	s, err := load()
	if err != nil {
		return fmt.Errorf("failed to load report schema: %w", err)
	}

	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate report: %w", err)
	}
	if res.Valid() {
		return nil
	}

	details := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		details = append(details, e.String())
	}
	return &ValidationError{Details: details}
}

// ValidateValue validates an in-memory report, e.g. one built by the mock scorer.
func ValidateValue(v interface{}) error {
	s, err := load()
	if err != nil {
		return fmt.Errorf("failed to load report schema: %w", err)
	}

	res, err := s.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return fmt.Errorf("failed to validate report: %w", err)
	}
	if res.Valid() {
		return nil
	}

	details := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		details = append(details, e.String())
	}
	return &ValidationError{Details: details}
}
