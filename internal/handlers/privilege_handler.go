package handlers

import (
	"upam/internal/models"
	"upam/internal/services"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
)

type PrivilegeHandler struct {
	privilegeService   *services.PrivilegeService
	applicationService *services.ApplicationService
}

func NewPrivilegeHandler(privilegeService *services.PrivilegeService, applicationService *services.ApplicationService) *PrivilegeHandler {
	return &PrivilegeHandler{
		privilegeService:   privilegeService,
		applicationService: applicationService,
	}
}

func (h *PrivilegeHandler) application(c *gin.Context) (uint, bool) {
	application, err := h.applicationService.GetByName(c.Param("app"))
	if err != nil {
		handleServiceError(c, err, "查询应用失败")
		return 0, false
	}
	return application.ID, true
}

type privilegeRequest struct {
	Assignee   services.Assignee  `json:"assignee" binding:"required"`
	Privileges []models.Privilege `json:"privileges"`
}

func (r *privilegeRequest) validate(c *gin.Context) bool {
	for _, p := range r.Privileges {
		if !p.Valid() {
			response.BadRequest(c, "未知的特权: "+string(p))
			return false
		}
	}
	return true
}

// Assign 授予特权，返回实际新增的行数
func (h *PrivilegeHandler) Assign(c *gin.Context) {
	appID, ok := h.application(c)
	if !ok {
		return
	}

	var req privilegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !req.validate(c) {
		return
	}

	count, err := h.privilegeService.AssignPrivilege(appID, req.Assignee, req.Privileges)
	if err != nil {
		response.ServerError(c, "授予特权失败")
		return
	}
	response.Success(c, gin.H{"assigned": count})
}

// Modify 把主体的特权集调和为给定集合
func (h *PrivilegeHandler) Modify(c *gin.Context) {
	appID, ok := h.application(c)
	if !ok {
		return
	}

	var req privilegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !req.validate(c) {
		return
	}

	if err := h.privilegeService.ModifyPrivilege(appID, req.Assignee, req.Privileges); err != nil {
		response.ServerError(c, "调整特权失败")
		return
	}
	response.SuccessWithMessage(c, "特权已调整", nil)
}

// List 应用下三类主体的全部授予记录
func (h *PrivilegeHandler) List(c *gin.Context) {
	appID, ok := h.application(c)
	if !ok {
		return
	}

	assignments, err := h.privilegeService.ListPrivilegeAssignments(appID)
	if err != nil {
		response.ServerError(c, "查询特权授予失败")
		return
	}
	response.Success(c, assignments)
}
