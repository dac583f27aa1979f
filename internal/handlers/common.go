package handlers

import (
	"fmt"
	"strings"

	apperrors "upam/pkg/errors"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindError 把参数绑定错误翻译成可读的提示
func bindError(c *gin.Context, err error) {
	if validationErr, ok := err.(validator.ValidationErrors); ok {
		messages := make([]string, 0, len(validationErr))
		for _, fieldErr := range validationErr {
			messages = append(messages, fmt.Sprintf("字段%s不满足%s约束", fieldErr.Field(), fieldErr.Tag()))
		}
		response.BadRequest(c, strings.Join(messages, "；"))
		return
	}
	response.BadRequest(c, "请求参数错误: "+err.Error())
}

// handleServiceError 把服务层的哨兵错误翻译成统一响应
func handleServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidName):
		response.Conflict(c, err.Error())
	case apperrors.Is(err, apperrors.ErrConflict):
		response.Conflict(c, err.Error())
	case apperrors.Is(err, apperrors.ErrHasMembers):
		response.Conflict(c, err.Error())
	case apperrors.Is(err, apperrors.ErrParentNotFound):
		response.NotFound(c, err.Error())
	case apperrors.Is(err, apperrors.ErrNotFound):
		response.NotFound(c, err.Error())
	default:
		response.ServerError(c, fallback)
	}
}
