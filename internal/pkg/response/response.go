// Package response renders the API's JSON envelope. Every handler reply goes
// through here so clients can branch on success/error without sniffing status
// codes.
package response

import "github.com/gin-gonic/gin"

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, envelope{Success: true, Data: data})
}

func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, envelope{Error: &errorBody{Code: code, Message: message}})
}

// ErrorWithDetails carries a machine-readable payload alongside the error,
// e.g. remaining login attempts or a lockout deadline.
func ErrorWithDetails(c *gin.Context, statusCode int, code, message string, details any) {
	c.JSON(statusCode, envelope{Error: &errorBody{Code: code, Message: message, Details: details}})
}
