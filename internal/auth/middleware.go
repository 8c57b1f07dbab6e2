package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
)

const (
	// UserIDHeader carries the authenticated user id set by the gateway.
	UserIDHeader = "X-User-ID"
	// RolesHeader carries a comma separated list of roles.
	RolesHeader = "X-User-Roles"
)

// Middleware extracts the caller identity from the gateway headers and injects it into the request context.
//
// Requests without a user id proceed anonymously. Read endpoints accept them;
// mutating endpoints are wrapped with RequireCaller.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			c.Next()
			return
		}

		caller := &Caller{
			UserID: userID,
			Roles:  parseRoles(c.GetHeader(RolesHeader)),
		}
		c.Request = c.Request.WithContext(WithCaller(c.Request.Context(), caller))

		slog.Debug("caller identified", "user_id", userID, "roles", caller.Roles)
		c.Next()
	}
}

// RequireCaller rejects requests that carry no caller identity with 401 Unauthorized.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetCaller(c.Request.Context()) == nil {
			slog.Warn("caller identity required but not provided",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			problem := problems.NewStatusProblem(http.StatusUnauthorized).
				WithInstance(c.Request.URL.Path).
				WithType("unauthorized").
				WithDetail("missing " + UserIDHeader + " header")
			c.Header("Content-Type", problems.ProblemMediaType)
			c.AbortWithStatusJSON(http.StatusUnauthorized, problem)
			return
		}
		c.Next()
	}
}
