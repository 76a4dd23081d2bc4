package trace

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExportTrace writes rec to path as YAML.
func ExportTrace(rec *TraceRecord, path string) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}

// LoadTrace reads a YAML trace written by ExportTrace.
// Unknown fields are rejected so typos surface as errors.
func LoadTrace(path string) (*TraceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	var rec TraceRecord
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&rec); err != nil {
		return nil, fmt.Errorf("parsing trace: %w", err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("parsing trace: missing id")
	}
	return &rec, nil
}
