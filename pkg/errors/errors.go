package errors

import "errors"

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 422
	CodeServerError  = 500
)

// ========== 业务哨兵错误 ==========

// 各Service统一返回以下哨兵错误，由handler层翻译为HTTP错误码
var (
	ErrInvalidName    = errors.New("名称为空或超过最大长度")
	ErrNotFound       = errors.New("记录不存在")
	ErrConflict       = errors.New("名称已存在")
	ErrHasMembers     = errors.New("组下存在成员，禁止非递归删除")
	ErrParentNotFound = errors.New("指定的上级组不存在")
	ErrAmbiguousGroup = errors.New("组解析出多个叶子记录，数据完整性被破坏")
	ErrStateMissing   = errors.New("身份状态未初始化，authorize未先执行")
)

// Is 透传标准库errors.Is，调用方不必同时导入两个errors包
func Is(err, target error) bool {
	return errors.Is(err, target)
}

