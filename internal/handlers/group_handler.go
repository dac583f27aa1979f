package handlers

import (
	"strconv"

	"upam/internal/services"
	"upam/pkg/pagination"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groupService *services.GroupService
}

func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

type CreateGroupRequest struct {
	Name   string `json:"name" binding:"required"` // 组全名，如 dev/beijing/acme
	UnitID *uint  `json:"unit_id"`                 // 指定叶子挂接的确切上级
}

// Create 按全名创建组，缺失的祖先自动补齐
func (h *GroupHandler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	group, err := h.groupService.Create(req.Name, req.UnitID)
	if err != nil {
		handleServiceError(c, err, "创建组失败")
		return
	}
	response.Success(c, group)
}

// CreateMany 批量创建组，返回新建的行数
func (h *GroupHandler) CreateMany(c *gin.Context) {
	var req struct {
		Names []string `json:"names" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	count, err := h.groupService.CreateMany(req.Names)
	if err != nil {
		handleServiceError(c, err, "批量创建组失败")
		return
	}
	response.Success(c, gin.H{"created": count})
}

// ListRoot 游标分页列出根组
func (h *GroupHandler) ListRoot(c *gin.Context) {
	cursor := pagination.ParseCursorParams(c)
	groups, err := h.groupService.ListRoot(cursor)
	if err != nil {
		response.ServerError(c, "查询根组失败")
		return
	}
	response.Success(c, groups)
}

// Get 按id点查组，query里带self_unit/self_member时附带边信息
func (h *GroupHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "组id必须是数字")
		return
	}

	opt := services.LookupOption{
		SelfUnit:   c.Query("self_unit") == "true",
		SelfMember: c.Query("self_member") == "true",
	}
	record, err := h.groupService.GetGroup(uint(id), opt)
	if err != nil {
		handleServiceError(c, err, "查询组失败")
		return
	}
	response.Success(c, record)
}

// FullName 组的全名，歧义数据时可能有多条路径
func (h *GroupHandler) FullName(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "组id必须是数字")
		return
	}

	paths, err := h.groupService.GetGroupFullName(uint(id))
	if err != nil {
		handleServiceError(c, err, "解析组全名失败")
		return
	}
	response.Success(c, paths)
}

// Remove 按全名删除组，recursive=true时级联删除整棵子树
func (h *GroupHandler) Remove(c *gin.Context) {
	var req struct {
		Names     []string `json:"names" binding:"required,min=1"`
		Recursive bool     `json:"recursive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	count, err := h.groupService.RemoveMany(req.Names, req.Recursive)
	if err != nil {
		handleServiceError(c, err, "删除组失败")
		return
	}
	response.Success(c, gin.H{"removed": count})
}

// AppendUsers 把用户批量加入组
func (h *GroupHandler) AppendUsers(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "组id必须是数字")
		return
	}

	var req struct {
		UserIDs []uint `json:"user_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	count, err := h.groupService.AppendUser(req.UserIDs, uint(groupID))
	if err != nil {
		handleServiceError(c, err, "加入组失败")
		return
	}
	response.Success(c, gin.H{"appended": count})
}

// MoveUsers 把用户从一个组移到另一个组
func (h *GroupHandler) MoveUsers(c *gin.Context) {
	var req struct {
		UserIDs []uint `json:"user_ids" binding:"required,min=1"`
		From    uint   `json:"from" binding:"required"`
		To      uint   `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.groupService.MoveUser(req.UserIDs, req.From, req.To); err != nil {
		handleServiceError(c, err, "移动用户失败")
		return
	}
	response.SuccessWithMessage(c, "用户已移动", nil)
}

// GroupsOfUser 用户的组闭包
func (h *GroupHandler) GroupsOfUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "用户id必须是数字")
		return
	}

	groups, err := h.groupService.ListGroupsOfUser(uint(userID))
	if err != nil {
		response.ServerError(c, "查询用户的组失败")
		return
	}
	response.Success(c, gin.H{"groups": groups})
}
