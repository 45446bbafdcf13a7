package handler

import (
	"log"

	"shopsystem/pkg/response"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetDashboard(c *gin.Context) {
	dashboard, err := h.adminService.Dashboard(c.Request.Context())
	if err != nil {
		log.Printf("[Handler] dashboard failed: err=%v", err)
		response.ServerError(c, "Something went wrong.", nil)
		return
	}
	response.Success(c, gin.H{"dashboard": dashboard})
}
