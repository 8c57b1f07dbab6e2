package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// MockTemplateStore is a mock implementation of TemplateStore
type MockTemplateStore struct {
	mock.Mock
}

func (m *MockTemplateStore) GetTemplate(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowTemplate), args.Error(1)
}

func (m *MockTemplateStore) GetStatusTemplate(ctx context.Context, id uuid.UUID) (*model.StatusTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StatusTemplate), args.Error(1)
}

func (m *MockTemplateStore) ListTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.WorkflowTemplate], error) {
	args := m.Called(ctx, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PageResult[model.WorkflowTemplate]), args.Error(1)
}

func (m *MockTemplateStore) ListStatusTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.StatusTemplate], error) {
	args := m.Called(ctx, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PageResult[model.StatusTemplate]), args.Error(1)
}

func (m *MockTemplateStore) CreateTemplate(ctx context.Context, template *model.WorkflowTemplate) error {
	return m.Called(ctx, template).Error(0)
}

func (m *MockTemplateStore) CreateStatusTemplate(ctx context.Context, template *model.StatusTemplate) error {
	return m.Called(ctx, template).Error(0)
}

func (m *MockTemplateStore) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTemplateStore) DeleteStatusTemplate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockWorkflowStore is a mock implementation of WorkflowStore
type MockWorkflowStore struct {
	mock.Mock
}

func (m *MockWorkflowStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Hand out a copy so the engine cannot mutate the fixture between calls.
	w := args.Get(0).(*model.Workflow).Clone()
	return &w, args.Error(1)
}

func (m *MockWorkflowStore) ListWorkflows(ctx context.Context, filter model.WorkflowFilter, page, size *int) (*model.PageResult[model.Workflow], error) {
	args := m.Called(ctx, filter, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PageResult[model.Workflow]), args.Error(1)
}

func (m *MockWorkflowStore) FindWorkflows(ctx context.Context, filter model.WorkflowFilter, limit int) ([]model.Workflow, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Workflow), args.Error(1)
}

func (m *MockWorkflowStore) CreateWorkflow(ctx context.Context, workflow *model.Workflow) error {
	args := m.Called(ctx, workflow)
	if args.Error(0) == nil {
		workflow.Version = 1
	}
	return args.Error(0)
}

func (m *MockWorkflowStore) UpdateWorkflow(ctx context.Context, workflow *model.Workflow, expectedVersion int64) error {
	args := m.Called(ctx, workflow, expectedVersion)
	if args.Error(0) == nil {
		workflow.Version = expectedVersion + 1
	}
	return args.Error(0)
}

// MockPublisher is a mock implementation of EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTransition(ctx context.Context, event model.TransitionEvent) error {
	return m.Called(ctx, event).Error(0)
}

// MockRecorder is a mock implementation of TransitionRecorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) ObserveTransition(action, outcome string, duration time.Duration) {
	m.Called(action, outcome, duration)
}

func (m *MockRecorder) EventPublishFailed(action string) {
	m.Called(action)
}
