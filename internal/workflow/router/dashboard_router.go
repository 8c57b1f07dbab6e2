package router

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OpenNSW/flowtrack/internal/auth"
	"github.com/OpenNSW/flowtrack/internal/dashboard"
	"github.com/OpenNSW/flowtrack/internal/export"
)

type DashboardRouter struct {
	ds *dashboard.Service
}

func NewDashboardRouter(ds *dashboard.Service) *DashboardRouter {
	return &DashboardRouter{ds: ds}
}

// RegisterRoutes mounts the dashboard endpoints on rg. All of them accept the workflow list filters.
func (dr *DashboardRouter) RegisterRoutes(rg *gin.RouterGroup) {
	d := rg.Group("/dashboard")
	d.GET("/groups", dr.HandleGroups)
	d.GET("/workload", dr.HandleWorkload)
	d.GET("/stats", dr.HandleStats)
	d.POST("/snapshots", auth.RequireCaller(), dr.HandleExportSnapshot)
	d.GET("/snapshots/:key", dr.HandleDownloadSnapshot)
}

// HandleGroups handles GET /dashboard/groups
func (dr *DashboardRouter) HandleGroups(c *gin.Context) {
	filter, ok := parseWorkflowFilter(c)
	if !ok {
		return
	}
	result, err := dr.ds.Groups(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleWorkload handles GET /dashboard/workload?candidates={userA,userB}
func (dr *DashboardRouter) HandleWorkload(c *gin.Context) {
	filter, ok := parseWorkflowFilter(c)
	if !ok {
		return
	}
	result, err := dr.ds.Workload(c.Request.Context(), filter, parseCandidates(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleStats handles GET /dashboard/stats
func (dr *DashboardRouter) HandleStats(c *gin.Context) {
	filter, ok := parseWorkflowFilter(c)
	if !ok {
		return
	}
	result, err := dr.ds.Stats(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleExportSnapshot handles POST /dashboard/snapshots
func (dr *DashboardRouter) HandleExportSnapshot(c *gin.Context) {
	filter, ok := parseWorkflowFilter(c)
	if !ok {
		return
	}
	metadata, _, err := dr.ds.ExportSnapshot(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	slog.InfoContext(c.Request.Context(), "dashboard snapshot requested",
		"key", metadata.Key, "caller", auth.CallerID(c.Request.Context()))
	c.JSON(http.StatusCreated, metadata)
}

// HandleDownloadSnapshot handles GET /dashboard/snapshots/:key
func (dr *DashboardRouter) HandleDownloadSnapshot(c *gin.Context) {
	key := c.Param("key")
	if !export.ValidKey(key) {
		badRequest(c, "invalid snapshot key")
		return
	}

	body, contentType, err := dr.ds.OpenSnapshot(c.Request.Context(), key)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `attachment; filename="`+key+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to stream snapshot", "key", key, "error", err)
	}
}
