package handlers

import (
	"strconv"

	"upam/internal/services"
	"upam/pkg/pagination"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService        *services.RoleService
	applicationService *services.ApplicationService
}

func NewRoleHandler(roleService *services.RoleService, applicationService *services.ApplicationService) *RoleHandler {
	return &RoleHandler{
		roleService:        roleService,
		applicationService: applicationService,
	}
}

// application 解析路径里的应用名
func (h *RoleHandler) application(c *gin.Context) (uint, bool) {
	application, err := h.applicationService.GetByName(c.Param("app"))
	if err != nil {
		handleServiceError(c, err, "查询应用失败")
		return 0, false
	}
	return application.ID, true
}

// Create 在应用下创建角色
func (h *RoleHandler) Create(c *gin.Context) {
	appID, ok := h.application(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required,max=32"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	role, err := h.roleService.Create(req.Name, appID)
	if err != nil {
		handleServiceError(c, err, "创建角色失败")
		return
	}
	response.Success(c, role)
}

// List 游标分页列出应用下的角色
func (h *RoleHandler) List(c *gin.Context) {
	appID, ok := h.application(c)
	if !ok {
		return
	}

	cursor := pagination.ParseCursorParams(c)
	roles, err := h.roleService.ListRoles(appID, cursor)
	if err != nil {
		response.ServerError(c, "查询角色失败")
		return
	}
	response.Success(c, roles)
}

// Delete 删除角色
func (h *RoleHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "角色id必须是数字")
		return
	}

	if err := h.roleService.Delete(uint(id)); err != nil {
		handleServiceError(c, err, "删除角色失败")
		return
	}
	response.SuccessWithMessage(c, "角色已删除", nil)
}

// Inherit 让一批角色继承目标角色
func (h *RoleHandler) Inherit(c *gin.Context) {
	appID, ok := h.application(c)
	if !ok {
		return
	}

	var req struct {
		Roles     []string `json:"roles" binding:"required,min=1"`
		InheritTo string   `json:"inherit_to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.roleService.InheritTo(req.Roles, req.InheritTo, appID); err != nil {
		handleServiceError(c, err, "设置角色继承失败")
		return
	}
	response.SuccessWithMessage(c, "角色继承已设置", nil)
}

// Inherited 角色的继承闭包
func (h *RoleHandler) Inherited(c *gin.Context) {
	appID, ok := h.application(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "角色id必须是数字")
		return
	}

	roles, err := h.roleService.ListRoleInherited(appID, uint(id))
	if err != nil {
		response.ServerError(c, "查询角色继承失败")
		return
	}
	response.Success(c, gin.H{"roles": roles})
}

type assignRoleRequest struct {
	UserIDs  []uint `json:"user_ids"`
	GroupIDs []uint `json:"group_ids"`
}

// Assign 把角色授予用户或组
func (h *RoleHandler) Assign(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "角色id必须是数字")
		return
	}

	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var total int64
	if len(req.UserIDs) > 0 {
		count, err := h.roleService.AssignUser(uint(id), req.UserIDs)
		if err != nil {
			response.ServerError(c, "授予角色失败")
			return
		}
		total += count
	}
	if len(req.GroupIDs) > 0 {
		count, err := h.roleService.AssignGroup(uint(id), req.GroupIDs)
		if err != nil {
			response.ServerError(c, "授予角色失败")
			return
		}
		total += count
	}
	response.Success(c, gin.H{"assigned": total})
}

// Revoke 回收用户或组的角色
func (h *RoleHandler) Revoke(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "角色id必须是数字")
		return
	}

	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var total int64
	if len(req.UserIDs) > 0 {
		count, err := h.roleService.RevokeUser(uint(id), req.UserIDs)
		if err != nil {
			response.ServerError(c, "回收角色失败")
			return
		}
		total += count
	}
	if len(req.GroupIDs) > 0 {
		count, err := h.roleService.RevokeGroup(uint(id), req.GroupIDs)
		if err != nil {
			response.ServerError(c, "回收角色失败")
			return
		}
		total += count
	}
	response.Success(c, gin.H{"revoked": total})
}

// RolesOfUser 用户在应用下的角色闭包
func (h *RoleHandler) RolesOfUser(c *gin.Context) {
	appID, ok := h.application(c)
	if !ok {
		return
	}
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "用户id必须是数字")
		return
	}

	roles, err := h.roleService.ListRolesOfUser(appID, uint(userID))
	if err != nil {
		response.ServerError(c, "查询用户角色失败")
		return
	}
	response.Success(c, gin.H{"roles": roles})
}
