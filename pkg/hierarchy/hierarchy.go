// Package hierarchy 解析斜杠分隔的组全名。
// 全名从右往左读，如 dev/beijing/root 表示 root 下的 beijing 下的 dev。
package hierarchy

import (
	"strings"
	"unicode/utf8"

	"upam/pkg/errors"
)

// MaxNameLength 单段名称的最大长度
const MaxNameLength = 32

// VerifyName 校验单段名称：非空且不超过最大长度
func VerifyName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.ErrInvalidName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return errors.ErrInvalidName
	}
	return nil
}

// ByName 把全名展开为从根到自身的层级链
// 例如 dev/beijing/root => [root, beijing/root, dev/beijing/root]
// 任何一段校验失败则返回ErrInvalidName
func ByName(fullname string) ([]string, error) {
	names := strings.Split(fullname, "/")
	chain := make([]string, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if err := VerifyName(name); err != nil {
			return nil, err
		}
		if len(chain) == 0 {
			chain = append(chain, name)
		} else {
			chain = append(chain, name+"/"+chain[len(chain)-1])
		}
	}
	return chain, nil
}

// SplitHead 拆出全名的首段和剩余部分
// dev/beijing/root => (dev, beijing/root)；根名剩余部分为空串
func SplitHead(fullname string) (name, rest string) {
	if i := strings.Index(fullname, "/"); i >= 0 {
		return fullname[:i], fullname[i+1:]
	}
	return fullname, ""
}

// Depth 全名的层级深度，根为1
func Depth(fullname string) int {
	return strings.Count(fullname, "/") + 1
}
