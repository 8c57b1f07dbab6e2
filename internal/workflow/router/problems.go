package router

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// retryAfterSeconds is advertised on 503 responses.
const retryAfterSeconds = 5

func writeProblem(c *gin.Context, status int, problemType, detail string) {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(problemType).
		WithDetail(detail)

	c.Header("Content-Type", problems.ProblemMediaType)
	c.AbortWithStatusJSON(status, problem)
}

func badRequest(c *gin.Context, detail string) {
	writeProblem(c, http.StatusBadRequest, "validation_error", detail)
}

// handleServiceError maps engine error kinds onto problem responses.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case model.IsNotFound(err):
		writeProblem(c, http.StatusNotFound, "not_found", err.Error())

	case model.IsValidation(err):
		writeProblem(c, http.StatusBadRequest, "validation_error", err.Error())

	case model.IsInvalidTransition(err):
		writeProblem(c, http.StatusUnprocessableEntity, "invalid_transition", err.Error())

	case model.IsStepOutOfRange(err):
		writeProblem(c, http.StatusUnprocessableEntity, "step_out_of_range", err.Error())

	case model.IsConflict(err):
		writeProblem(c, http.StatusConflict, "conflict", err.Error())

	case model.IsUnavailable(err):
		slog.WarnContext(c.Request.Context(), "backing service unavailable", "path", c.Request.URL.Path, "error", err)
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeProblem(c, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable, retry later")

	default:
		slog.ErrorContext(c.Request.Context(), "unexpected error", "path", c.Request.URL.Path, "error", err)
		writeProblem(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
