package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadDocument reads a JSON or YAML document from path, or from stdin when path is "-".
// YAML is re-encoded through JSON so numbers and maps have the same types either way.
func loadDocument(path string, stdin io.Reader) (any, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(path, data)
	default:
		var document any
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("failed to parse %s as JSON: %w", path, err)
		}

		return document, nil
	}
}

func decodeYAML(path string, data []byte) (any, error) {
	var document any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse %s as YAML: %w", path, err)
	}

	encoded, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("document %s cannot be represented as JSON: %w", path, err)
	}

	var normalized any
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, err
	}

	return normalized, nil
}

// loadSchema loads a document that must be a JSON object.
func loadSchema(path string, stdin io.Reader) (map[string]any, error) {
	document, err := loadDocument(path, stdin)
	if err != nil {
		return nil, err
	}

	schema, ok := document.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema %s must be an object, got %T", path, document)
	}

	return schema, nil
}
