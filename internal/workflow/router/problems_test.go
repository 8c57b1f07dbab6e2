package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"not found", &model.NotFoundError{Resource: "workflow", ID: "w1"}, http.StatusNotFound, "not_found"},
		{"validation", &model.ValidationError{Field: "title", Message: "required"}, http.StatusBadRequest, "validation_error"},
		{"invalid transition", &model.InvalidTransitionError{From: "completed", Action: "pause"}, http.StatusUnprocessableEntity, "invalid_transition"},
		{"step out of range", &model.StepOutOfRangeError{CurrentStep: 3, TotalSteps: 3}, http.StatusUnprocessableEntity, "step_out_of_range"},
		{"conflict", model.NewVersionConflict("workflow", "w1", 1, 2), http.StatusConflict, "conflict"},
		{"unavailable", &model.UnavailableError{Op: "get workflow", Err: errors.New("timeout")}, http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/workflows/w1", nil)

			handleServiceError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			p := problemOf(t, w)
			assert.Equal(t, tt.kind, p.Type)
			assert.Equal(t, "/api/v1/workflows/w1", p.Instance)
			if tt.status == http.StatusServiceUnavailable {
				assert.Equal(t, "5", w.Header().Get("Retry-After"))
				assert.NotContains(t, p.Detail, "timeout")
			}
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, p.Detail, "boom")
			}
		})
	}
}
