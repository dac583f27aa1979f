package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "upam/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code, body.Message
}

func TestBindErrorPlainError(t *testing.T) {
	// 非validator错误（JSON语法错误等）走兜底分支，必须正常返回
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	bindError(c, errors.New("invalid character 'x' looking for beginning of value"))

	code, message := decodeResponse(t, w)
	assert.Equal(t, apperrors.CodeInvalidParam, code)
	assert.Contains(t, message, "请求参数错误")
	assert.Contains(t, message, "invalid character")
}

func TestBindErrorThroughHandler(t *testing.T) {
	router := gin.New()
	router.POST("/echo", func(c *gin.Context) {
		var req struct {
			Name string `json:"name" binding:"required,max=32"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	// 畸形JSON请求体
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	code, _ := decodeResponse(t, w)
	assert.Equal(t, apperrors.CodeInvalidParam, code)

	// 空请求体
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	code, _ = decodeResponse(t, w)
	assert.Equal(t, apperrors.CodeInvalidParam, code)

	// validator错误走字段提示格式
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	code, message := decodeResponse(t, w)
	assert.Equal(t, apperrors.CodeInvalidParam, code)
	assert.Contains(t, message, "Name")
	assert.Contains(t, message, "required")
}

func TestHandleServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperrors.ErrInvalidName, apperrors.CodeConflict},
		{apperrors.ErrConflict, apperrors.CodeConflict},
		{apperrors.ErrHasMembers, apperrors.CodeConflict},
		{fmt.Errorf("上级组不存在: %w", apperrors.ErrParentNotFound), apperrors.CodeNotFound},
		{apperrors.ErrNotFound, apperrors.CodeNotFound},
		{errors.New("connection refused"), apperrors.CodeServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		handleServiceError(c, tc.err, "操作失败")

		code, _ := decodeResponse(t, w)
		assert.Equal(t, tc.code, code, "err=%v", tc.err)
	}
}
