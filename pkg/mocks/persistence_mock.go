package mocks

import (
	"context"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
// Repository accessors return the repositories configured with On.
type MockPersistence struct {
	mock.Mock
}

var _ persistence.Persistence = (*MockPersistence)(nil)

func (m *MockPersistence) StateRepository() persistence.StateRepository {
	return m.Called().Get(0).(persistence.StateRepository)
}

func (m *MockPersistence) TransitionRepository() persistence.TransitionRepository {
	return m.Called().Get(0).(persistence.TransitionRepository)
}

func (m *MockPersistence) MetricRepository() persistence.MetricRepository {
	return m.Called().Get(0).(persistence.MetricRepository)
}

func (m *MockPersistence) RuleRepository() persistence.RuleRepository {
	return m.Called().Get(0).(persistence.RuleRepository)
}

func (m *MockPersistence) StandardRepository() persistence.StandardRepository {
	return m.Called().Get(0).(persistence.StandardRepository)
}

func (m *MockPersistence) VocabularyRepository() persistence.VocabularyRepository {
	return m.Called().Get(0).(persistence.VocabularyRepository)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockStateRepository is a mock implementation of persistence.StateRepository interface.
type MockStateRepository struct {
	mock.Mock
}

var _ persistence.StateRepository = (*MockStateRepository)(nil)

func (m *MockStateRepository) GetState(ctx context.Context, idOrName string) (*models.WorkflowState, error) {
	args := m.Called(ctx, idOrName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowState), args.Error(1)
}

func (m *MockStateRepository) ListStates(ctx context.Context, filter persistence.StateFilter) ([]*models.WorkflowState, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowState), args.Error(1)
}

func (m *MockStateRepository) CreateState(ctx context.Context, state *models.WorkflowState) error {
	args := m.Called(ctx, state)

	return args.Error(0)
}

func (m *MockStateRepository) UpdateState(ctx context.Context, state *models.WorkflowState) error {
	args := m.Called(ctx, state)

	return args.Error(0)
}

func (m *MockStateRepository) DeleteState(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockTransitionRepository is a mock implementation of persistence.TransitionRepository interface.
type MockTransitionRepository struct {
	mock.Mock
}

var _ persistence.TransitionRepository = (*MockTransitionRepository)(nil)

func (m *MockTransitionRepository) GetTransition(ctx context.Context, id string) (*models.WorkflowTransition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowTransition), args.Error(1)
}

func (m *MockTransitionRepository) ListTransitions(
	ctx context.Context,
	filter persistence.TransitionFilter,
) ([]*models.WorkflowTransition, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowTransition), args.Error(1)
}

func (m *MockTransitionRepository) CreateTransition(ctx context.Context, transition *models.WorkflowTransition) error {
	args := m.Called(ctx, transition)

	return args.Error(0)
}

func (m *MockTransitionRepository) DeleteTransition(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockStandardRepository is a mock implementation of persistence.StandardRepository interface.
type MockStandardRepository struct {
	mock.Mock
}

var _ persistence.StandardRepository = (*MockStandardRepository)(nil)

func (m *MockStandardRepository) GetStandard(ctx context.Context, name, version string) (*models.MetadataStandard, error) {
	args := m.Called(ctx, name, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.MetadataStandard), args.Error(1)
}

func (m *MockStandardRepository) GetStandardByID(ctx context.Context, id string) (*models.MetadataStandard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.MetadataStandard), args.Error(1)
}

func (m *MockStandardRepository) ListStandards(ctx context.Context) ([]*models.MetadataStandard, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.MetadataStandard), args.Error(1)
}

func (m *MockStandardRepository) CreateStandard(ctx context.Context, standard *models.MetadataStandard) error {
	args := m.Called(ctx, standard)

	return args.Error(0)
}

func (m *MockStandardRepository) ListAttrMaps(ctx context.Context, standardID string) ([]*models.MetadataJSONAttrMap, error) {
	args := m.Called(ctx, standardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.MetadataJSONAttrMap), args.Error(1)
}

func (m *MockStandardRepository) SaveAttrMap(ctx context.Context, attrMap *models.MetadataJSONAttrMap) error {
	args := m.Called(ctx, attrMap)

	return args.Error(0)
}

// MockVocabularyRepository is a mock implementation of persistence.VocabularyRepository interface.
type MockVocabularyRepository struct {
	mock.Mock
}

var _ persistence.VocabularyRepository = (*MockVocabularyRepository)(nil)

func (m *MockVocabularyRepository) GetVocabulary(ctx context.Context, name string) (*models.Vocabulary, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Vocabulary), args.Error(1)
}

func (m *MockVocabularyRepository) SaveVocabulary(ctx context.Context, vocabulary *models.Vocabulary) error {
	args := m.Called(ctx, vocabulary)

	return args.Error(0)
}
