package api

import "github.com/gin-gonic/gin"

// errorResponse is the JSON body returned for every API error
type errorResponse struct {
	Error string `json:"error"`
}

// abortError writes an error response and stops the handler chain
func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}
