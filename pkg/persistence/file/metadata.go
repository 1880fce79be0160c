package file

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/google/uuid"
)

// MetricRepository handles workflow metric file operations.
type MetricRepository struct {
	fp *Persistence
}

func (r *MetricRepository) load() ([]*models.WorkflowMetric, error) {
	metrics := []*models.WorkflowMetric{}

	return metrics, r.fp.readDocument(metricsDocument, &metrics)
}

func (r *MetricRepository) GetMetric(_ context.Context, idOrName string) (*models.WorkflowMetric, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	metrics, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, metric := range metrics {
		if metric.ID == idOrName || metric.Name == idOrName {
			return metric, nil
		}
	}

	return nil, persistence.NewEntityError("GetMetric", "metric", idOrName, persistence.ErrMetricNotFound)
}

func (r *MetricRepository) ListMetrics(_ context.Context) ([]*models.WorkflowMetric, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	return r.load()
}

func (r *MetricRepository) CreateMetric(_ context.Context, metric *models.WorkflowMetric) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	metrics, err := r.load()
	if err != nil {
		return err
	}

	for _, existing := range metrics {
		if existing.Name == metric.Name {
			return persistence.NewEntityError("CreateMetric", "metric", metric.Name, persistence.ErrMetricAlreadyExists)
		}
	}

	if metric.ID == "" {
		metric.ID = uuid.NewString()
	}

	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = time.Now().UTC()
	}

	return r.fp.writeDocument(metricsDocument, append(metrics, metric))
}

// RuleRepository handles workflow rule file operations.
type RuleRepository struct {
	fp *Persistence
}

func (r *RuleRepository) load() ([]*models.WorkflowRule, error) {
	rules := []*models.WorkflowRule{}

	return rules, r.fp.readDocument(rulesDocument, &rules)
}

func (r *RuleRepository) GetRule(_ context.Context, id string) (*models.WorkflowRule, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	rules, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}

	return nil, persistence.NewEntityError("GetRule", "rule", id, persistence.ErrRuleNotFound)
}

// ListRules returns the rules of a state, or every rule when stateID is empty.
func (r *RuleRepository) ListRules(_ context.Context, stateID string) ([]*models.WorkflowRule, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	rules, err := r.load()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowRule, 0, len(rules))

	for _, rule := range rules {
		if stateID == "" || rule.StateID == stateID {
			filtered = append(filtered, rule)
		}
	}

	return filtered, nil
}

func (r *RuleRepository) CreateRule(_ context.Context, rule *models.WorkflowRule) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	rules, err := r.load()
	if err != nil {
		return err
	}

	for _, existing := range rules {
		if existing.StateID == rule.StateID && existing.MetricID == rule.MetricID {
			return persistence.NewEntityError("CreateRule", "rule", rule.StateID+"/"+rule.MetricID,
				persistence.ErrRuleAlreadyExists)
		}
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	return r.fp.writeDocument(rulesDocument, append(rules, rule))
}

func (r *RuleRepository) DeleteRule(_ context.Context, id string) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	rules, err := r.load()
	if err != nil {
		return err
	}

	for i, rule := range rules {
		if rule.ID == id {
			return r.fp.writeDocument(rulesDocument, append(rules[:i], rules[i+1:]...))
		}
	}

	return persistence.NewEntityError("DeleteRule", "rule", id, persistence.ErrRuleNotFound)
}

// StandardRepository handles metadata standard file operations.
type StandardRepository struct {
	fp *Persistence
}

func (r *StandardRepository) load() ([]*models.MetadataStandard, error) {
	standards := []*models.MetadataStandard{}

	return standards, r.fp.readDocument(standardsDocument, &standards)
}

func (r *StandardRepository) GetStandard(_ context.Context, name, version string) (*models.MetadataStandard, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	standards, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, standard := range standards {
		if standard.Name == name && standard.Version == version {
			return standard, nil
		}
	}

	return nil, persistence.NewEntityError("GetStandard", "standard", name+"@"+version, persistence.ErrStandardNotFound)
}

func (r *StandardRepository) GetStandardByID(_ context.Context, id string) (*models.MetadataStandard, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	standards, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, standard := range standards {
		if standard.ID == id {
			return standard, nil
		}
	}

	return nil, persistence.NewEntityError("GetStandardByID", "standard", id, persistence.ErrStandardNotFound)
}

func (r *StandardRepository) ListStandards(_ context.Context) ([]*models.MetadataStandard, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	return r.load()
}

func (r *StandardRepository) CreateStandard(_ context.Context, standard *models.MetadataStandard) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	standards, err := r.load()
	if err != nil {
		return err
	}

	for _, existing := range standards {
		if existing.Name == standard.Name && existing.Version == standard.Version {
			return persistence.NewEntityError("CreateStandard", "standard", standard.Name+"@"+standard.Version,
				persistence.ErrStandardAlreadyExists)
		}
	}

	if standard.ID == "" {
		standard.ID = uuid.NewString()
	}

	if standard.CreatedAt.IsZero() {
		standard.CreatedAt = time.Now().UTC()
	}

	return r.fp.writeDocument(standardsDocument, append(standards, standard))
}

func (r *StandardRepository) loadAttrMaps() ([]*models.MetadataJSONAttrMap, error) {
	attrMaps := []*models.MetadataJSONAttrMap{}

	return attrMaps, r.fp.readDocument(attrMapsDocument, &attrMaps)
}

func (r *StandardRepository) ListAttrMaps(_ context.Context, standardID string) ([]*models.MetadataJSONAttrMap, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	attrMaps, err := r.loadAttrMaps()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.MetadataJSONAttrMap, 0, len(attrMaps))

	for _, attrMap := range attrMaps {
		if attrMap.StandardID == standardID {
			filtered = append(filtered, attrMap)
		}
	}

	return filtered, nil
}

func (r *StandardRepository) SaveAttrMap(_ context.Context, attrMap *models.MetadataJSONAttrMap) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	attrMaps, err := r.loadAttrMaps()
	if err != nil {
		return err
	}

	for i, existing := range attrMaps {
		if existing.StandardID == attrMap.StandardID && existing.RecordAttr == attrMap.RecordAttr {
			attrMap.ID = existing.ID
			attrMaps[i] = attrMap

			return r.fp.writeDocument(attrMapsDocument, attrMaps)
		}
	}

	if attrMap.ID == "" {
		attrMap.ID = uuid.NewString()
	}

	return r.fp.writeDocument(attrMapsDocument, append(attrMaps, attrMap))
}

// VocabularyRepository stores one document per vocabulary.
type VocabularyRepository struct {
	fp *Persistence
}

func vocabularyDocument(name string) (string, bool) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", false
	}

	return path.Join(vocabulariesDir, name+".json"), true
}

func (r *VocabularyRepository) GetVocabulary(_ context.Context, name string) (*models.Vocabulary, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	document, ok := vocabularyDocument(name)
	if !ok {
		return nil, persistence.NewEntityError("GetVocabulary", "vocabulary", name, persistence.ErrVocabularyNotFound)
	}

	var vocabulary *models.Vocabulary
	if err := r.fp.readDocument(document, &vocabulary); err != nil {
		return nil, err
	}

	if vocabulary == nil {
		return nil, persistence.NewEntityError("GetVocabulary", "vocabulary", name, persistence.ErrVocabularyNotFound)
	}

	return vocabulary, nil
}

func (r *VocabularyRepository) SaveVocabulary(_ context.Context, vocabulary *models.Vocabulary) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	document, ok := vocabularyDocument(vocabulary.Name)
	if !ok {
		return fmt.Errorf("invalid vocabulary name %q", vocabulary.Name)
	}

	return r.fp.writeDocument(document, vocabulary)
}
