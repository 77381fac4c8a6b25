package http

import "github.com/gin-gonic/gin"

// ErrorResponse writes the uniform error body.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// OKResponse writes a success body with ok:true merged in.
func OKResponse(c *gin.Context, code int, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["ok"] = true
	c.JSON(code, data)
}
