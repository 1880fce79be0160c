// Package file provides file-based persistence for workflow configuration, metadata
// standards and vocabularies.
//
// Every entity kind lives in its own JSON document under the root directory. Documents
// hold entities in insertion order, which keeps listings stable across restarts.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/curator/pkg/persistence"
)

const (
	statesDocument      = "workflow_states.json"
	transitionsDocument = "workflow_transitions.json"
	metricsDocument     = "workflow_metrics.json"
	rulesDocument       = "workflow_rules.json"
	standardsDocument   = "metadata_standards.json"
	attrMapsDocument    = "metadata_json_attr_maps.json"
	vocabulariesDir     = "vocabularies"
)

var _ persistence.Persistence = (*Persistence)(nil)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) StateRepository() persistence.StateRepository {
	return &StateRepository{fp: fp}
}

func (fp *Persistence) TransitionRepository() persistence.TransitionRepository {
	return &TransitionRepository{fp: fp}
}

func (fp *Persistence) MetricRepository() persistence.MetricRepository {
	return &MetricRepository{fp: fp}
}

func (fp *Persistence) RuleRepository() persistence.RuleRepository {
	return &RuleRepository{fp: fp}
}

func (fp *Persistence) StandardRepository() persistence.StandardRepository {
	return &StandardRepository{fp: fp}
}

func (fp *Persistence) VocabularyRepository() persistence.VocabularyRepository {
	return &VocabularyRepository{fp: fp}
}

// readDocument loads a document into out. A missing document leaves out untouched.
func (fp *Persistence) readDocument(name string, out any) error {
	filePath := filepath.Clean(filepath.Join(fp.root, name))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}

	return nil
}

// writeDocument replaces a document atomically.
func (fp *Persistence) writeDocument(name string, value any) error {
	filePath := filepath.Clean(filepath.Join(fp.root, name))

	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp := filePath + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	return nil
}
