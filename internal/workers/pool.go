// Package workers provides the bounded goroutine pool that fans symbol
// evaluations out across the universe each polling tick.
package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of work to be processed.
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc is a function that can be used as a Task.
type TaskFunc func(ctx context.Context) error

// Execute implements Task.
func (f TaskFunc) Execute(ctx context.Context) error { return f(ctx) }

// ErrQueueFull is returned when a task cannot be enqueued.
var ErrQueueFull = errors.New("workers: task queue full")

// PoolConfig configures the worker pool.
type PoolConfig struct {
	Name        string        // pool name for logging
	NumWorkers  int           // number of worker goroutines
	QueueSize   int           // task queue capacity
	TaskTimeout time.Duration // per-task deadline propagated via context
}

// DefaultPoolConfig returns sensible defaults for evaluation fan-out.
func DefaultPoolConfig(name string) *PoolConfig {
	return &PoolConfig{
		Name:        name,
		NumWorkers:  runtime.NumCPU(),
		QueueSize:   256,
		TaskTimeout: 30 * time.Second,
	}
}

// Stats contains pool counters.
type Stats struct {
	TasksSubmitted int64 `json:"tasksSubmitted"`
	TasksCompleted int64 `json:"tasksCompleted"`
	TasksFailed    int64 `json:"tasksFailed"`
	PanicRecovered int64 `json:"panicRecovered"`
}

// Pool manages a fixed set of worker goroutines draining a bounded queue.
type Pool struct {
	logger *zap.Logger
	config *PoolConfig

	taskQueue chan Task
	wg        sync.WaitGroup

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	tasksSubmitted atomic.Int64
	tasksCompleted atomic.Int64
	tasksFailed    atomic.Int64
	panicRecovered atomic.Int64
}

// NewPool creates a worker pool.
func NewPool(logger *zap.Logger, config *PoolConfig) *Pool {
	if config == nil {
		config = DefaultPoolConfig("default")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		logger:    logger.Named("workers").With(zap.String("pool", config.Name)),
		config:    config,
		taskQueue: make(chan Task, config.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the workers. Idempotent.
func (p *Pool) Start() {
	if p.running.Swap(true) {
		return
	}
	p.logger.Info("starting worker pool",
		zap.Int("workers", p.config.NumWorkers),
		zap.Int("queueSize", p.config.QueueSize),
	)
	for i := 0; i < p.config.NumWorkers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("workerId", id))

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.execute(logger, task)
		}
	}
}

// execute runs one task with a deadline and panic recovery.
func (p *Pool) execute(logger *zap.Logger, task Task) {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.TaskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.panicRecovered.Add(1)
			p.tasksFailed.Add(1)
			logger.Error("worker recovered from panic", zap.Any("panic", r))
		}
	}()

	if err := task.Execute(ctx); err != nil {
		p.tasksFailed.Add(1)
		logger.Warn("task failed", zap.Error(err))
		return
	}
	p.tasksCompleted.Add(1)
}

// Submit enqueues a task without blocking; a full queue returns ErrQueueFull
// so a slow tick never backs up into the scheduler.
func (p *Pool) Submit(task Task) error {
	if !p.running.Load() {
		return fmt.Errorf("workers: pool %s not running", p.config.Name)
	}
	select {
	case p.taskQueue <- task:
		p.tasksSubmitted.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

// GetStats returns current pool counters.
func (p *Pool) GetStats() Stats {
	return Stats{
		TasksSubmitted: p.tasksSubmitted.Load(),
		TasksCompleted: p.tasksCompleted.Load(),
		TasksFailed:    p.tasksFailed.Load(),
		PanicRecovered: p.panicRecovered.Load(),
	}
}

// Stop drains in-flight work and shuts the pool down.
func (p *Pool) Stop() {
	if !p.running.Swap(false) {
		return
	}
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped", zap.Int64("completed", p.tasksCompleted.Load()))
}
