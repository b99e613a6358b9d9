package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the only shape returned on failure.
type ErrorBody struct {
	Error string `json:"error"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error aborts the chain and writes {"error": message}.
func Error(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Error: message})
}
