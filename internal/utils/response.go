package utils

import "github.com/gin-gonic/gin"

// Success writes {"status":"success","msg":msg} plus any extra fields.
func Success(c *gin.Context, msg string, extra gin.H) {
	body := gin.H{
		"status": "success",
		"msg":    msg,
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(200, body)
}

func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"status": "error",
		"msg":    msg,
	})
}
