package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/OpenNSW/flowtrack/internal/auth"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
	"github.com/OpenNSW/flowtrack/internal/workflow/service"
)

// WorkflowService is the part of the engine the workflow endpoints use.
type WorkflowService interface {
	CreateWorkflow(ctx context.Context, req *model.CreateWorkflowDTO, callerID string) (*service.WorkflowView, error)
	GetWorkflow(ctx context.Context, id uuid.UUID) (*service.WorkflowView, error)
	ListWorkflows(ctx context.Context, filter model.WorkflowFilter, page, size *int) (*model.PageResult[service.WorkflowView], error)
	AdvanceStep(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*service.WorkflowView, error)
	CompleteFinalStep(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*service.WorkflowView, error)
	Pause(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*service.WorkflowView, error)
	Resume(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*service.WorkflowView, error)
	Cancel(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*service.WorkflowView, error)
	Archive(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*service.WorkflowView, error)
	UseDefaultStatus(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*service.WorkflowView, error)
	Reassign(ctx context.Context, id uuid.UUID, req *model.ReassignDTO, callerID string) (*service.WorkflowView, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, req *model.UpdateWorkflowDetailsDTO, callerID string) (*service.WorkflowView, error)
	SetCustomStatus(ctx context.Context, id uuid.UUID, req *model.SetCustomStatusDTO, callerID string) (*service.WorkflowView, error)
}

type simpleTransition func(ctx context.Context, id uuid.UUID, req model.TransitionDTO, callerID string) (*service.WorkflowView, error)

type WorkflowRouter struct {
	ws WorkflowService
}

func NewWorkflowRouter(ws WorkflowService) *WorkflowRouter {
	return &WorkflowRouter{ws: ws}
}

// RegisterRoutes mounts the workflow endpoints on rg. Mutations require a caller identity.
func (wr *WorkflowRouter) RegisterRoutes(rg *gin.RouterGroup) {
	workflows := rg.Group("/workflows")
	workflows.GET("", wr.HandleListWorkflows)
	workflows.GET("/:workflowId", wr.HandleGetWorkflow)

	mutations := workflows.Group("", auth.RequireCaller())
	mutations.POST("", wr.HandleCreateWorkflow)
	mutations.PATCH("/:workflowId", wr.HandleUpdateDetails)
	mutations.POST("/:workflowId/advance", wr.handleTransition(wr.ws.AdvanceStep))
	mutations.POST("/:workflowId/complete", wr.handleTransition(wr.ws.CompleteFinalStep))
	mutations.POST("/:workflowId/pause", wr.handleTransition(wr.ws.Pause))
	mutations.POST("/:workflowId/resume", wr.handleTransition(wr.ws.Resume))
	mutations.POST("/:workflowId/cancel", wr.handleTransition(wr.ws.Cancel))
	mutations.POST("/:workflowId/archive", wr.handleTransition(wr.ws.Archive))
	mutations.POST("/:workflowId/default-status", wr.handleTransition(wr.ws.UseDefaultStatus))
	mutations.POST("/:workflowId/reassign", wr.HandleReassign)
	mutations.POST("/:workflowId/custom-status", wr.HandleSetCustomStatus)
}

// HandleCreateWorkflow handles POST /workflows
func (wr *WorkflowRouter) HandleCreateWorkflow(c *gin.Context) {
	var req model.CreateWorkflowDTO
	if !bindJSON(c, &req, false) {
		return
	}

	view, err := wr.ws.CreateWorkflow(c.Request.Context(), &req, auth.CallerID(c.Request.Context()))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// HandleGetWorkflow handles GET /workflows/:workflowId
func (wr *WorkflowRouter) HandleGetWorkflow(c *gin.Context) {
	id, ok := parseIDParam(c, "workflowId")
	if !ok {
		return
	}

	view, err := wr.ws.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleListWorkflows handles GET /workflows
// Optional Query Filters: assigneeId, creatorId, templateId, statusTemplateId, teamId, priority,
// visibility, status, includeTerminal, page, size
func (wr *WorkflowRouter) HandleListWorkflows(c *gin.Context) {
	filter, ok := parseWorkflowFilter(c)
	if !ok {
		return
	}
	page, size, ok := parsePage(c)
	if !ok {
		return
	}

	result, err := wr.ws.ListWorkflows(c.Request.Context(), filter, page, size)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleUpdateDetails handles PATCH /workflows/:workflowId
func (wr *WorkflowRouter) HandleUpdateDetails(c *gin.Context) {
	id, ok := parseIDParam(c, "workflowId")
	if !ok {
		return
	}
	var req model.UpdateWorkflowDetailsDTO
	if !bindJSON(c, &req, false) {
		return
	}

	view, err := wr.ws.UpdateDetails(c.Request.Context(), id, &req, auth.CallerID(c.Request.Context()))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleReassign handles POST /workflows/:workflowId/reassign
func (wr *WorkflowRouter) HandleReassign(c *gin.Context) {
	id, ok := parseIDParam(c, "workflowId")
	if !ok {
		return
	}
	var req model.ReassignDTO
	if !bindJSON(c, &req, false) {
		return
	}

	view, err := wr.ws.Reassign(c.Request.Context(), id, &req, auth.CallerID(c.Request.Context()))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleSetCustomStatus handles POST /workflows/:workflowId/custom-status
func (wr *WorkflowRouter) HandleSetCustomStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "workflowId")
	if !ok {
		return
	}
	var req model.SetCustomStatusDTO
	if !bindJSON(c, &req, false) {
		return
	}

	view, err := wr.ws.SetCustomStatus(c.Request.Context(), id, &req, auth.CallerID(c.Request.Context()))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleTransition serves the transitions whose only input is the optional expected version.
func (wr *WorkflowRouter) handleTransition(apply simpleTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "workflowId")
		if !ok {
			return
		}
		var req model.TransitionDTO
		if !bindJSON(c, &req, true) {
			return
		}

		view, err := apply(c.Request.Context(), id, req, auth.CallerID(c.Request.Context()))
		if err != nil {
			handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
