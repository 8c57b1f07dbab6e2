package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/OpenNSW/flowtrack/internal/workflow/derived"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

const tracerName = "github.com/OpenNSW/flowtrack/internal/workflow/service"

// EngineOption configures a WorkflowEngine.
type EngineOption func(*WorkflowEngine)

// WithPublisher sets where transition events are delivered after commit.
func WithPublisher(p EventPublisher) EngineOption {
	return func(e *WorkflowEngine) { e.publisher = p }
}

// WithRecorder sets the metrics sink for transitions.
func WithRecorder(r TransitionRecorder) EngineOption {
	return func(e *WorkflowEngine) { e.recorder = r }
}

// WithClock overrides the time source used for timestamps and derived state.
func WithClock(now func() time.Time) EngineOption {
	return func(e *WorkflowEngine) { e.now = now }
}

// WithNearDeadlineThreshold sets how far ahead of a deadline a workflow counts as near its deadline.
// Zero disables the window. A negative value keeps derived.DefaultNearDeadlineThreshold.
func WithNearDeadlineThreshold(d time.Duration) EngineOption {
	return func(e *WorkflowEngine) {
		if d >= 0 {
			e.nearDeadline = d
		}
	}
}

// WorkflowEngine is the entry point for every workflow operation.
// Each transition is one read-modify-write guarded by the workflow version; the engine never retries.
type WorkflowEngine struct {
	templates    TemplateStore
	workflows    WorkflowStore
	machine      *WorkflowStateMachine
	publisher    EventPublisher
	recorder     TransitionRecorder
	validate     *validator.Validate
	tracer       trace.Tracer
	now          func() time.Time
	nearDeadline time.Duration
}

// NewWorkflowEngine creates a new WorkflowEngine over the given stores.
func NewWorkflowEngine(templates TemplateStore, workflows WorkflowStore, opts ...EngineOption) *WorkflowEngine {
	e := &WorkflowEngine{
		templates:    templates,
		workflows:    workflows,
		machine:      NewWorkflowStateMachine(),
		publisher:    noopPublisher{},
		recorder:     noopRecorder{},
		validate:     newValidator(),
		tracer:       otel.Tracer(tracerName),
		now:          func() time.Time { return time.Now().UTC() },
		nearDeadline: derived.DefaultNearDeadlineThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NearDeadlineThreshold returns the threshold used for derived state.
func (e *WorkflowEngine) NearDeadlineThreshold() time.Duration {
	return e.nearDeadline
}

// Now returns the engine's current time.
func (e *WorkflowEngine) Now() time.Time {
	return e.now()
}

// CreateWorkflow instantiates a workflow from a template on behalf of callerID.
func (e *WorkflowEngine) CreateWorkflow(ctx context.Context, req *model.CreateWorkflowDTO, callerID string) (view *WorkflowView, err error) {
	ctx, span := e.startSpan(ctx, ActionCreate, uuid.Nil)
	start := time.Now()
	defer func() { e.finish(span, ActionCreate, start, err) }()

	if req == nil {
		return nil, &model.ValidationError{Message: "create request cannot be nil"}
	}
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	template, err := e.templates.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	var statusTemplate *model.StatusTemplate
	if req.StatusTemplateID != nil {
		statusTemplate, err = e.templates.GetStatusTemplate(ctx, *req.StatusTemplateID)
		if err != nil {
			return nil, err
		}
	}

	workflow, err := e.machine.Create(template, statusTemplate, req, callerID, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.workflows.CreateWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "workflow created",
		"workflowId", workflow.ID, "templateId", workflow.TemplateID, "creatorId", callerID, "totalSteps", workflow.TotalSteps)
	e.publish(ctx, ActionCreate, "", workflow, callerID)

	result := NewWorkflowView(workflow, e.now(), e.nearDeadline)
	return &result, nil
}

// GetWorkflow returns a workflow with its derived state.
func (e *WorkflowEngine) GetWorkflow(ctx context.Context, id uuid.UUID) (*WorkflowView, error) {
	workflow, err := e.workflows.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewWorkflowView(workflow, e.now(), e.nearDeadline)
	return &view, nil
}

// ListWorkflows returns one page of workflows matching filter, each with its derived state.
func (e *WorkflowEngine) ListWorkflows(ctx context.Context, filter model.WorkflowFilter, page, size *int) (*model.PageResult[WorkflowView], error) {
	result, err := e.workflows.ListWorkflows(ctx, filter, page, size)
	if err != nil {
		return nil, err
	}

	now := e.now()
	views := make([]WorkflowView, 0, len(result.Items))
	for i := range result.Items {
		views = append(views, NewWorkflowView(&result.Items[i], now, e.nearDeadline))
	}
	return &model.PageResult[WorkflowView]{
		TotalCount: result.TotalCount,
		Items:      views,
		Page:       result.Page,
		Size:       result.Size,
	}, nil
}

// AdvanceStep moves a workflow to its next step.
func (e *WorkflowEngine) AdvanceStep(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*WorkflowView, error) {
	return e.transition(ctx, id, req.Version, ActionAdvanceStep, callerID,
		func(_ context.Context, w *model.Workflow) (*model.Workflow, error) { return e.machine.AdvanceStep(w) })
}

// CompleteFinalStep completes a workflow that is on its last step.
func (e *WorkflowEngine) CompleteFinalStep(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*WorkflowView, error) {
	return e.transition(ctx, id, req.Version, ActionCompleteFinalStep, callerID,
		func(_ context.Context, w *model.Workflow) (*model.Workflow, error) { return e.machine.CompleteFinalStep(w) })
}

// Pause pauses an in_progress workflow.
func (e *WorkflowEngine) Pause(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*WorkflowView, error) {
	return e.transition(ctx, id, req.Version, ActionPause, callerID,
		func(_ context.Context, w *model.Workflow) (*model.Workflow, error) { return e.machine.Pause(w) })
}

// Resume resumes a paused workflow.
func (e *WorkflowEngine) Resume(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*WorkflowView, error) {
	return e.transition(ctx, id, req.Version, ActionResume, callerID,
		func(_ context.Context, w *model.Workflow) (*model.Workflow, error) { return e.machine.Resume(w) })
}

// Cancel cancels a workflow.
func (e *WorkflowEngine) Cancel(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*WorkflowView, error) {
	return e.transition(ctx, id, req.Version, ActionCancel, callerID,
		func(_ context.Context, w *model.Workflow) (*model.Workflow, error) { return e.machine.Cancel(w) })
}

// Archive archives a workflow.
func (e *WorkflowEngine) Archive(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*WorkflowView, error) {
	return e.transition(ctx, id, req.Version, ActionArchive, callerID,
		func(_ context.Context, w *model.Workflow) (*model.Workflow, error) { return e.machine.Archive(w) })
}

// UseDefaultStatus moves a workflow from its custom status back to in_progress.
func (e *WorkflowEngine) UseDefaultStatus(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*WorkflowView, error) {
	return e.transition(ctx, id, req.Version, ActionUseDefaultStatus, callerID,
		func(_ context.Context, w *model.Workflow) (*model.Workflow, error) { return e.machine.UseDefaultStatus(w) })
}

// Reassign hands a workflow to another user.
func (e *WorkflowEngine) Reassign(ctx context.Context, id uuid.UUID, req *model.ReassignDTO, callerID string) (*WorkflowView, error) {
	if req == nil {
		return nil, &model.ValidationError{Message: "reassign request cannot be nil"}
	}
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}
	return e.transition(ctx, id, req.Version, ActionReassign, callerID,
		func(_ context.Context, w *model.Workflow) (*model.Workflow, error) { return e.machine.Reassign(w, req.UserID) })
}

// UpdateDetails edits the descriptive fields of a workflow.
func (e *WorkflowEngine) UpdateDetails(ctx context.Context, id uuid.UUID, req *model.UpdateWorkflowDetailsDTO, callerID string) (*WorkflowView, error) {
	if req == nil {
		return nil, &model.ValidationError{Message: "update request cannot be nil"}
	}
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}
	return e.transition(ctx, id, req.Version, ActionUpdateDetails, callerID,
		func(_ context.Context, w *model.Workflow) (*model.Workflow, error) { return e.machine.UpdateDetails(w, req) })
}

// SetCustomStatus moves a workflow to a custom status item. The status template is the one the workflow is
// bound to, or req.StatusTemplateID for a workflow that has never used a custom status.
func (e *WorkflowEngine) SetCustomStatus(ctx context.Context, id uuid.UUID, req *model.SetCustomStatusDTO, callerID string) (*WorkflowView, error) {
	if req == nil {
		return nil, &model.ValidationError{Message: "status request cannot be nil"}
	}
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}
	return e.transition(ctx, id, req.Version, ActionSetCustomStatus, callerID,
		func(ctx context.Context, w *model.Workflow) (*model.Workflow, error) {
			if err := e.machine.CanTransition(w, ActionSetCustomStatus); err != nil {
				return nil, err
			}

			templateID := w.StatusTemplateID
			if req.StatusTemplateID != nil {
				if templateID != nil && *templateID != *req.StatusTemplateID {
					return nil, &model.ValidationError{
						Field:   "statusTemplateId",
						Message: fmt.Sprintf("workflow is bound to status template %s", *templateID),
					}
				}
				templateID = req.StatusTemplateID
			}
			if templateID == nil {
				return nil, &model.ValidationError{Field: "statusTemplateId", Message: "required for a workflow without a status template"}
			}

			statusTemplate, err := e.templates.GetStatusTemplate(ctx, *templateID)
			if err != nil {
				return nil, err
			}
			return e.machine.SetCustomStatus(w, statusTemplate, req.StatusItemID)
		})
}

// transition runs one versioned read-modify-write. When expectedVersion is set it must match the stored
// version; the write itself is conditional on the version that was read.
func (e *WorkflowEngine) transition(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion *int64,
	action Action,
	callerID string,
	apply func(ctx context.Context, w *model.Workflow) (*model.Workflow, error),
) (view *WorkflowView, err error) {
	ctx, span := e.startSpan(ctx, action, id)
	start := time.Now()
	defer func() { e.finish(span, action, start, err) }()

	if callerID == "" {
		return nil, &model.ValidationError{Field: "callerId", Message: "caller identity is required"}
	}

	current, err := e.workflows.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		return nil, model.NewVersionConflict(resourceWorkflow, id.String(), *expectedVersion, current.Version)
	}

	next, err := apply(ctx, current)
	if err != nil {
		slog.DebugContext(ctx, "workflow transition rejected", "workflowId", id, "action", action, "error", err)
		return nil, err
	}
	next.UpdatedAt = e.now()

	if err := e.workflows.UpdateWorkflow(ctx, next, current.Version); err != nil {
		return nil, err
	}

	from := current.Status().Key()
	slog.InfoContext(ctx, "workflow transitioned",
		"workflowId", id, "action", action, "from", from, "to", next.Status().Key(), "actorId", callerID, "version", next.Version)
	e.publish(ctx, action, from, next, callerID)

	result := NewWorkflowView(next, e.now(), e.nearDeadline)
	return &result, nil
}

// publish emits the transition event. The transition is already committed, so failures are only logged and counted.
func (e *WorkflowEngine) publish(ctx context.Context, action Action, from string, w *model.Workflow, actorID string) {
	event := model.TransitionEvent{
		Type:       model.EventTypeTransition,
		WorkflowID: w.ID,
		Action:     string(action),
		FromStatus: from,
		ToStatus:   w.Status().Key(),
		ActorID:    actorID,
		Version:    w.Version,
		OccurredAt: e.now(),
	}
	if err := e.publisher.PublishTransition(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish workflow event", "workflowId", w.ID, "action", action, "error", err)
		e.recorder.EventPublishFailed(string(action))
	}
}

func (e *WorkflowEngine) startSpan(ctx context.Context, action Action, id uuid.UUID) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("workflow.action", string(action))}
	if id != uuid.Nil {
		attrs = append(attrs, attribute.String("workflow.id", id.String()))
	}
	return e.tracer.Start(ctx, "workflow."+string(action), trace.WithAttributes(attrs...))
}

func (e *WorkflowEngine) finish(span trace.Span, action Action, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	e.recorder.ObserveTransition(string(action), errorKind(err), time.Since(start))
}

func (e *WorkflowEngine) validateRequest(req any) error {
	err := e.validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		message := "failed on the '" + fe.Tag() + "' rule"
		if fe.Param() != "" {
			message += " (" + fe.Param() + ")"
		}
		return &model.ValidationError{Field: fieldPath(fe.Namespace()), Message: message}
	}
	return &model.ValidationError{Message: err.Error()}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldPath drops the struct name from a validator namespace such as "CreateWorkflowDTO.title".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
