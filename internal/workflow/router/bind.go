package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes the request body into dest. Unknown fields are rejected.
// With optional set, an empty body leaves dest untouched.
func bindJSON(c *gin.Context, dest any, optional bool) bool {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
