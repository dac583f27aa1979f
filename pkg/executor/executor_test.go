package executor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchExecutorOrder(t *testing.T) {
	e := New[int](50)
	for i := 0; i < 50; i++ {
		e.Add(func() (int, error) {
			time.Sleep(10 * time.Millisecond)
			return 1, nil
		})
	}
	for i := 0; i < 50; i++ {
		e.Add(func() (int, error) {
			time.Sleep(10 * time.Millisecond)
			return 2, nil
		})
	}
	for i := 0; i < 30; i++ {
		e.Add(func() (int, error) { return 1000, nil })
	}

	results := e.Finish()
	require.Len(t, results, 130)
	for i, r := range results {
		require.NoError(t, r.Err)
		switch {
		case i < 50:
			assert.Equal(t, 1, r.Value)
		case i < 100:
			assert.Equal(t, 2, r.Value)
		default:
			assert.Equal(t, 1000, r.Value)
		}
	}
}

// 整批结清后才接纳下一批：第二批开始时第一批必须全部结束
func TestBatchExecutorDebounce(t *testing.T) {
	const quota = 4
	e := New[int](quota)

	var firstDone int32
	for i := 0; i < quota; i++ {
		e.Add(func() (int, error) {
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&firstDone, 1)
			return 0, nil
		})
	}
	var observed int32
	for i := 0; i < quota; i++ {
		e.Add(func() (int, error) {
			atomic.StoreInt32(&observed, atomic.LoadInt32(&firstDone))
			return 0, nil
		})
	}

	e.Finish()
	assert.Equal(t, int32(quota), observed)
}

func TestBatchExecutorAddAfterFinish(t *testing.T) {
	e := New[int](2)
	e.Add(func() (int, error) { return 1, nil })
	e.Finish()

	assert.Panics(t, func() {
		e.Add(func() (int, error) { return 2, nil })
	})
}
