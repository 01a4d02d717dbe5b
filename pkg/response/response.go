package response

import (
	"log"
	"net/http"

	"anoa.com/pointboard/pkg/apperror"
	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is advertised on retryable failures (CAS conflicts, lock timeouts).
const retryAfterSeconds = "1"

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code >= http.StatusInternalServerError {
		log.Printf("[Internal Error] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	if apperror.IsRetryable(err) {
		c.Header("Retry-After", retryAfterSeconds)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
