package handlers

import (
	"upam/internal/services"
	"upam/pkg/pagination"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(applicationService *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

// Create 创建应用
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,max=32"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	application, err := h.applicationService.Create(req.Name)
	if err != nil {
		handleServiceError(c, err, "创建应用失败")
		return
	}
	response.Success(c, application)
}

// Get 按名称查询应用
func (h *ApplicationHandler) Get(c *gin.Context) {
	application, err := h.applicationService.GetByName(c.Param("app"))
	if err != nil {
		handleServiceError(c, err, "查询应用失败")
		return
	}
	response.Success(c, application)
}

// List 分页列出应用
func (h *ApplicationHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	applications, pageInfo, err := h.applicationService.List(params)
	if err != nil {
		response.ServerError(c, "查询应用失败")
		return
	}
	response.SuccessWithPage(c, applications, pageInfo)
}

// Delete 按名称删除应用
func (h *ApplicationHandler) Delete(c *gin.Context) {
	application, err := h.applicationService.GetByName(c.Param("app"))
	if err != nil {
		handleServiceError(c, err, "查询应用失败")
		return
	}

	if err := h.applicationService.Delete(application.ID); err != nil {
		handleServiceError(c, err, "删除应用失败")
		return
	}
	response.SuccessWithMessage(c, "应用已删除", nil)
}
