// Package response writes the JSON bodies every endpoint returns: a "message" string
// plus named payload fields.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func JSON(c *gin.Context, status int, message string, fields gin.H) {
	body := gin.H{"message": message}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func Message(c *gin.Context, status int, message string) {
	JSON(c, status, message, nil)
}

func Success(c *gin.Context, fields gin.H) {
	JSON(c, http.StatusOK, "success", fields)
}

func ParamError(c *gin.Context, message string) {
	Message(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Message(c, http.StatusNotFound, message)
}

// ServerError reports a failure with its cause in the "error" field.
func ServerError(c *gin.Context, message string, err error) {
	fields := gin.H{}
	if err != nil {
		fields["error"] = err.Error()
	}
	JSON(c, http.StatusInternalServerError, message, fields)
}

// Abort writes the body and stops the handler chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
