package handler

import (
	"github.com/gin-gonic/gin"
)

// SystemHandler serves liveness endpoints.
type SystemHandler struct {
	BaseHandler
}

// NewSystemHandler creates the system handler.
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// RegisterRoutes registers the liveness routes.
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/test/", h.Test)
	rg.GET("/test", h.Test)
}

// Test confirms the service is up.
func (h *SystemHandler) Test(c *gin.Context) {
	h.Success(c, "Test endpoint is working", nil)
}
