package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/OpenNSW/flowtrack/internal/auth"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// TemplateService is the part of the engine the template endpoints use.
type TemplateService interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error)
	GetStatusTemplate(ctx context.Context, id uuid.UUID) (*model.StatusTemplate, error)
	ListTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.WorkflowTemplate], error)
	ListStatusTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.StatusTemplate], error)
	CreateTemplate(ctx context.Context, req *model.CreateTemplateDTO, callerID string) (*model.WorkflowTemplate, error)
	CreateStatusTemplate(ctx context.Context, req *model.CreateStatusTemplateDTO, callerID string) (*model.StatusTemplate, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	DeleteStatusTemplate(ctx context.Context, id uuid.UUID) error
}

type TemplateRouter struct {
	ts TemplateService
}

func NewTemplateRouter(ts TemplateService) *TemplateRouter {
	return &TemplateRouter{ts: ts}
}

// RegisterRoutes mounts the template and status template endpoints on rg.
func (tr *TemplateRouter) RegisterRoutes(rg *gin.RouterGroup) {
	templates := rg.Group("/templates")
	templates.GET("", tr.HandleListTemplates)
	templates.GET("/:templateId", tr.HandleGetTemplate)
	templates.POST("", auth.RequireCaller(), tr.HandleCreateTemplate)
	templates.DELETE("/:templateId", auth.RequireCaller(), tr.HandleDeleteTemplate)

	statusTemplates := rg.Group("/status-templates")
	statusTemplates.GET("", tr.HandleListStatusTemplates)
	statusTemplates.GET("/:statusTemplateId", tr.HandleGetStatusTemplate)
	statusTemplates.POST("", auth.RequireCaller(), tr.HandleCreateStatusTemplate)
	statusTemplates.DELETE("/:statusTemplateId", auth.RequireCaller(), tr.HandleDeleteStatusTemplate)
}

// HandleListTemplates handles GET /templates?page={page}&size={size}
func (tr *TemplateRouter) HandleListTemplates(c *gin.Context) {
	page, size, ok := parsePage(c)
	if !ok {
		return
	}
	result, err := tr.ts.ListTemplates(c.Request.Context(), page, size)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetTemplate handles GET /templates/:templateId
func (tr *TemplateRouter) HandleGetTemplate(c *gin.Context) {
	id, ok := parseIDParam(c, "templateId")
	if !ok {
		return
	}
	template, err := tr.ts.GetTemplate(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// HandleCreateTemplate handles POST /templates
func (tr *TemplateRouter) HandleCreateTemplate(c *gin.Context) {
	var req model.CreateTemplateDTO
	if !bindJSON(c, &req, false) {
		return
	}
	template, err := tr.ts.CreateTemplate(c.Request.Context(), &req, auth.CallerID(c.Request.Context()))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

// HandleDeleteTemplate handles DELETE /templates/:templateId
func (tr *TemplateRouter) HandleDeleteTemplate(c *gin.Context) {
	id, ok := parseIDParam(c, "templateId")
	if !ok {
		return
	}
	if err := tr.ts.DeleteTemplate(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleListStatusTemplates handles GET /status-templates?page={page}&size={size}
func (tr *TemplateRouter) HandleListStatusTemplates(c *gin.Context) {
	page, size, ok := parsePage(c)
	if !ok {
		return
	}
	result, err := tr.ts.ListStatusTemplates(c.Request.Context(), page, size)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetStatusTemplate handles GET /status-templates/:statusTemplateId
func (tr *TemplateRouter) HandleGetStatusTemplate(c *gin.Context) {
	id, ok := parseIDParam(c, "statusTemplateId")
	if !ok {
		return
	}
	template, err := tr.ts.GetStatusTemplate(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// HandleCreateStatusTemplate handles POST /status-templates
func (tr *TemplateRouter) HandleCreateStatusTemplate(c *gin.Context) {
	var req model.CreateStatusTemplateDTO
	if !bindJSON(c, &req, false) {
		return
	}
	template, err := tr.ts.CreateStatusTemplate(c.Request.Context(), &req, auth.CallerID(c.Request.Context()))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

// HandleDeleteStatusTemplate handles DELETE /status-templates/:statusTemplateId
func (tr *TemplateRouter) HandleDeleteStatusTemplate(c *gin.Context) {
	id, ok := parseIDParam(c, "statusTemplateId")
	if !ok {
		return
	}
	if err := tr.ts.DeleteStatusTemplate(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
