package handlers

import (
	"upam/internal/services"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	graphAuditService *services.GraphAuditService
}

func NewAuditHandler(graphAuditService *services.GraphAuditService) *AuditHandler {
	return &AuditHandler{graphAuditService: graphAuditService}
}

// CycleScan 立即执行一次关系图巡检，返回发现的环
func (h *AuditHandler) CycleScan(c *gin.Context) {
	report, err := h.graphAuditService.Scan()
	if err != nil {
		response.ServerError(c, "关系图巡检失败: "+err.Error())
		return
	}
	response.Success(c, report)
}
