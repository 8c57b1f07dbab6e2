package router

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid %s: %v", name, err))
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid '%s' query parameter, must be an integer", name))
		return nil, false
	}
	return &v, true
}

// parsePage reads the page and size query parameters.
func parsePage(c *gin.Context) (page, size *int, ok bool) {
	if page, ok = parseOptionalInt(c, "page"); !ok {
		return nil, nil, false
	}
	if size, ok = parseOptionalInt(c, "size"); !ok {
		return nil, nil, false
	}
	return page, size, true
}

func optionalString(c *gin.Context, name string) *string {
	if v := c.Query(name); v != "" {
		return &v
	}
	return nil
}

func optionalUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid '%s' query parameter: %v", name, err))
		return nil, false
	}
	return &id, true
}

// parseWorkflowFilter reads the workflow list filter from the query string.
func parseWorkflowFilter(c *gin.Context) (model.WorkflowFilter, bool) {
	filter := model.WorkflowFilter{
		AssigneeID: optionalString(c, "assigneeId"),
		CreatorID:  optionalString(c, "creatorId"),
		TeamID:     optionalString(c, "teamId"),
		StatusKey:  optionalString(c, "status"),
	}

	var ok bool
	if filter.TemplateID, ok = optionalUUID(c, "templateId"); !ok {
		return filter, false
	}
	if filter.StatusTemplateID, ok = optionalUUID(c, "statusTemplateId"); !ok {
		return filter, false
	}

	if raw := c.Query("priority"); raw != "" {
		p := model.Priority(raw)
		if !p.Valid() {
			badRequest(c, "invalid 'priority' query parameter, must be one of low, medium, high, urgent")
			return filter, false
		}
		filter.Priority = &p
	}
	if raw := c.Query("visibility"); raw != "" {
		v := model.Visibility(raw)
		if !v.Valid() {
			badRequest(c, "invalid 'visibility' query parameter, must be one of public, restricted, team")
			return filter, false
		}
		filter.Visibility = &v
	}
	if raw := c.Query("includeTerminal"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid 'includeTerminal' query parameter, must be a boolean")
			return filter, false
		}
		filter.IncludeTerminal = include
	}
	return filter, true
}

// parseCandidates reads the comma separated candidates query parameter.
func parseCandidates(c *gin.Context) []string {
	var out []string
	for _, part := range strings.Split(c.Query("candidates"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
