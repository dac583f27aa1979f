package middleware

import (
	"strconv"

	"upam/internal/models"
	"upam/internal/services"
	apperrors "upam/pkg/errors"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
)

// 授权流水线在上下文里传递的键
const (
	ContextKeyIdentity       = "identity"
	ContextKeyApplication    = "application"
	ContextKeyPrivilegeState = "privilege_state"
	ContextKeySubject        = "subject"
)

// AuthorizeMiddleware 按应用和资源授权的中间件
// 必须按 Identify -> AuthorizeApplication -> AuthorizeResource 的顺序挂载，
// 跳过前序环节直接进入资源授权属于服务端编排错误
type AuthorizeMiddleware struct {
	authorizeService *services.AuthorizeService
}

func NewAuthorizeMiddleware(authorizeService *services.AuthorizeService) *AuthorizeMiddleware {
	return &AuthorizeMiddleware{authorizeService: authorizeService}
}

// Identify 把登录用户解析成带组闭包的请求身份
func (m *AuthorizeMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		identity, err := m.authorizeService.Identify(userID)
		if err != nil {
			response.ServerError(c, "解析请求身份失败")
			c.Abort()
			return
		}
		c.Set(ContextKeyIdentity, identity)
		c.Next()
	}
}

// AuthorizeApplication 按路径参数里的应用名和请求方法授权
func (m *AuthorizeMiddleware) AuthorizeApplication(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)
		if identity == nil {
			response.ServerError(c, apperrors.ErrStateMissing.Error())
			c.Abort()
			return
		}

		application, state, err := m.authorizeService.AuthorizeApplication(identity, c.Param(param), c.Request.Method)
		if err != nil {
			if forbidden, ok := err.(*services.ForbiddenError); ok {
				response.Forbidden(c, forbidden.Error())
			} else if apperrors.Is(err, apperrors.ErrNotFound) {
				response.NotFound(c, err.Error())
			} else {
				response.ServerError(c, "应用授权失败")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyApplication, application)
		c.Set(ContextKeyPrivilegeState, state)
		c.Set(ContextKeySubject, &models.Subject{ApplicationID: application.ID})
		c.Next()
	}
}

// AuthorizeResource 按路径参数里的资源id细化授权
func (m *AuthorizeMiddleware) AuthorizeResource(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)
		state := GetPrivilegeState(c)
		if identity == nil || state == nil {
			// 前序授权环节没有跑过
			response.ServerError(c, apperrors.ErrStateMissing.Error())
			c.Abort()
			return
		}

		resourceID, err := strconv.ParseUint(c.Param(param), 10, 32)
		if err != nil {
			response.BadRequest(c, "资源id必须是数字")
			c.Abort()
			return
		}

		grant, err := m.authorizeService.AuthorizeResource(uint(resourceID), state.ApplicationID, identity)
		if err != nil {
			response.ServerError(c, "资源授权失败")
			c.Abort()
			return
		}
		state.Resource = grant
		if subject := GetSubject(c); subject != nil {
			id := uint(resourceID)
			subject.ResourceID = &id
		}
		c.Next()
	}
}

// GetIdentity 从上下文取请求身份
func GetIdentity(c *gin.Context) *models.Identity {
	if value, exists := c.Get(ContextKeyIdentity); exists {
		if identity, ok := value.(*models.Identity); ok {
			return identity
		}
	}
	return nil
}

// GetApplication 从上下文取已授权的应用
func GetApplication(c *gin.Context) *models.Application {
	if value, exists := c.Get(ContextKeyApplication); exists {
		if application, ok := value.(*models.Application); ok {
			return application
		}
	}
	return nil
}

// GetSubject 从上下文取请求访问的客体
func GetSubject(c *gin.Context) *models.Subject {
	if value, exists := c.Get(ContextKeySubject); exists {
		if subject, ok := value.(*models.Subject); ok {
			return subject
		}
	}
	return nil
}

// GetPrivilegeState 从上下文取授权结果
func GetPrivilegeState(c *gin.Context) *models.PrivilegeState {
	if value, exists := c.Get(ContextKeyPrivilegeState); exists {
		if state, ok := value.(*models.PrivilegeState); ok {
			return state
		}
	}
	return nil
}
