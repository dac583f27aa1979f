package handlers

import (
	"strconv"

	"upam/internal/services"
	"upam/pkg/pagination"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type CreateUserRequest struct {
	Username string   `json:"username" binding:"required,max=32"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=8"`
	Groups   []string `json:"groups"` // 组全名，不存在则创建
}

// Create 创建用户
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userService.Create(req.Username, req.Email, req.Password, req.Groups)
	if err != nil {
		handleServiceError(c, err, "创建用户失败")
		return
	}
	response.Success(c, userInfo(user))
}

// Get 按id查询用户
func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "用户id必须是数字")
		return
	}

	user, err := h.userService.GetByID(uint(id))
	if err != nil {
		handleServiceError(c, err, "查询用户失败")
		return
	}
	response.Success(c, userInfo(user))
}

// List 分页列出用户
func (h *UserHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	users, pageInfo, err := h.userService.List(params)
	if err != nil {
		response.ServerError(c, "查询用户失败")
		return
	}

	infos := make([]UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, userInfo(&users[i]))
	}
	response.SuccessWithPage(c, infos, pageInfo)
}

// SetStatus 启停用户
func (h *UserHandler) SetStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "用户id必须是数字")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=active inactive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.userService.SetStatus(uint(id), req.Status); err != nil {
		handleServiceError(c, err, "更新用户状态失败")
		return
	}
	response.SuccessWithMessage(c, "用户状态已更新", nil)
}
