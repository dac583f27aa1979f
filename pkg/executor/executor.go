// Package executor 提供限额批次执行器。
// 每批最多接纳quota个任务并发执行，整批完全结束后才接纳下一批，
// 用于压住对数据库连接池的并发占用。
package executor

import "sync"

// Task 待执行任务
type Task[T any] func() (T, error)

// Result 任务结果，与提交顺序一一对应
type Result[T any] struct {
	Value T
	Err   error
}

// BatchExecutor 限额批次执行器
type BatchExecutor[T any] struct {
	quota int

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Task[T]
	results  []Result[T]
	next     int // 下一个任务的结果下标
	finished bool
	done     chan struct{}
}

// DefaultQuota 默认批次限额
const DefaultQuota = 50

// New 创建执行器并启动调度循环
func New[T any](quota int) *BatchExecutor[T] {
	if quota <= 0 {
		quota = DefaultQuota
	}
	e := &BatchExecutor[T]{
		quota: quota,
		done:  make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	go e.run()
	return e
}

// Add 提交一个任务，提交后立即返回
// Finish之后再提交属于编程错误，直接panic
func (e *BatchExecutor[T]) Add(task Task[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		panic("executor: add after finish")
	}
	e.queue = append(e.queue, task)
	e.results = append(e.results, Result[T]{})
	e.cond.Signal()
}

// Finish 排空剩余任务并关闭执行器，按提交顺序返回全部结果
func (e *BatchExecutor[T]) Finish() []Result[T] {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		<-e.done
		return e.results
	}
	e.finished = true
	e.cond.Signal()
	e.mu.Unlock()

	<-e.done
	return e.results
}

// run 调度循环：取一批任务并发执行，整批结束后再取下一批
func (e *BatchExecutor[T]) run() {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.finished {
			e.cond.Wait()
		}
		if len(e.queue) == 0 && e.finished {
			e.mu.Unlock()
			close(e.done)
			return
		}

		n := len(e.queue)
		if n > e.quota {
			n = e.quota
		}
		batch := e.queue[:n]
		base := e.next
		e.queue = e.queue[n:]
		e.next += n
		e.mu.Unlock()

		var wg sync.WaitGroup
		for i, task := range batch {
			wg.Add(1)
			go func(index int, task Task[T]) {
				defer wg.Done()
				value, err := task()
				e.mu.Lock()
				e.results[index] = Result[T]{Value: value, Err: err}
				e.mu.Unlock()
			}(base+i, task)
		}
		// 整批结清后才接纳下一批
		wg.Wait()
	}
}
