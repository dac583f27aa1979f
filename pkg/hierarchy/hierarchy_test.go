package hierarchy

import (
	"strings"
	"testing"

	"upam/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	chain, err := ByName("dev/beijing/root")
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "beijing/root", "dev/beijing/root"}, chain)

	chain, err = ByName("root")
	require.NoError(t, err)
	assert.Equal(t, []string{"root"}, chain)
}

// 链上每个元素都是下一个元素的后缀扩展，末尾是输入全名
func TestByNameRoundTrip(t *testing.T) {
	for _, fullname := range []string{"a/b/c", "dev/beijing/root", "x"} {
		chain, err := ByName(fullname)
		require.NoError(t, err)
		assert.Equal(t, fullname, chain[len(chain)-1])
		for i := 1; i < len(chain); i++ {
			assert.True(t, strings.HasSuffix(chain[i], "/"+chain[i-1]))
		}
	}
}

func TestByNameInvalid(t *testing.T) {
	for _, fullname := range []string{"", "a//b", " /b", strings.Repeat("x", 33), "a/" + strings.Repeat("y", 33)} {
		_, err := ByName(fullname)
		assert.ErrorIs(t, err, errors.ErrInvalidName, "fullname=%q", fullname)
	}

	// 32字符恰好合法
	_, err := ByName(strings.Repeat("x", 32))
	assert.NoError(t, err)
}

func TestSplitHead(t *testing.T) {
	name, rest := SplitHead("dev/beijing/root")
	assert.Equal(t, "dev", name)
	assert.Equal(t, "beijing/root", rest)

	name, rest = SplitHead("root")
	assert.Equal(t, "root", name)
	assert.Equal(t, "", rest)
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 1, Depth("root"))
	assert.Equal(t, 3, Depth("dev/beijing/root"))
}
