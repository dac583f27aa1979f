package handlers

import (
	"strconv"

	"upam/internal/middleware"
	"upam/internal/services"
	"upam/pkg/pagination"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
)

// ResourceHandler 资源接口
// 挂在授权流水线之后，应用和授权结果从上下文取
type ResourceHandler struct {
	resourceService *services.ResourceService
}

func NewResourceHandler(resourceService *services.ResourceService) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService}
}

type CreateResourceRequest struct {
	ID  uint              `json:"id" binding:"required"` // 资源id由接入应用提供
	ACL services.ACLInput `json:"acl"`
}

// Create 创建资源并写入初始ACL
func (h *ResourceHandler) Create(c *gin.Context) {
	application := middleware.GetApplication(c)
	if application == nil {
		response.ServerError(c, "应用授权信息缺失")
		return
	}

	var req CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resource, err := h.resourceService.CreateResource(req.ID, application.ID, req.ACL)
	if err != nil {
		handleServiceError(c, err, "创建资源失败")
		return
	}
	response.Success(c, resource)
}

// Get 资源连同ACL，资源级授权结果一并返回
func (h *ResourceHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "资源id必须是数字")
		return
	}

	resource, err := h.resourceService.FindResourceACL(uint(id))
	if err != nil {
		handleServiceError(c, err, "查询资源失败")
		return
	}

	response.Success(c, gin.H{
		"resource": resource,
		"subject":  middleware.GetSubject(c),
		"state":    middleware.GetPrivilegeState(c),
	})
}

// List 应用下当前身份可见的资源
func (h *ResourceHandler) List(c *gin.Context) {
	application := middleware.GetApplication(c)
	identity := middleware.GetIdentity(c)
	if application == nil || identity == nil {
		response.ServerError(c, "应用授权信息缺失")
		return
	}

	cursor := pagination.ParseCursorParams(c)
	desc := c.Query("order") == "desc"

	// all=true时不按身份过滤，留给管理端用
	if c.Query("all") == "true" && c.GetBool("is_admin") {
		identity = nil
	}

	resources, err := h.resourceService.FindAllResources(application.ID, identity, cursor, desc)
	if err != nil {
		response.ServerError(c, "查询资源失败")
		return
	}
	response.Success(c, resources)
}

// UpdateACL 全量覆盖资源的ACL
func (h *ResourceHandler) UpdateACL(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "资源id必须是数字")
		return
	}

	var req services.ACLInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.resourceService.UpdateResourceACL(uint(id), req); err != nil {
		handleServiceError(c, err, "更新资源ACL失败")
		return
	}
	response.SuccessWithMessage(c, "资源ACL已更新", nil)
}

// Delete 删除资源，只有author身份才会真正删除
func (h *ResourceHandler) Delete(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		response.ServerError(c, "应用授权信息缺失")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "资源id必须是数字")
		return
	}

	deleted, err := h.resourceService.RemoveResource(uint(id), identity)
	if err != nil {
		response.ServerError(c, "删除资源失败")
		return
	}
	if !deleted {
		response.Forbidden(c, "资源不存在或无删除权限")
		return
	}
	response.SuccessWithMessage(c, "资源已删除", nil)
}
