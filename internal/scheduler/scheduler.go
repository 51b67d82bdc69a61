// Package scheduler 提供定时任务调度
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
)

// DefaultTaskTimeout 单次任务执行超时
const DefaultTaskTimeout = 5 * time.Minute

// Scheduler 基于 cron 表达式的任务调度器
type Scheduler struct {
	cron    *cron.Cron
	tasks   map[string]*Task
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// Task 定时任务
type Task struct {
	Name    string
	Spec    string
	Handler func(ctx context.Context) error
	entryID cron.EntryID
}

// NewScheduler 创建调度器，timezone 为空时使用 UTC
func NewScheduler(timezone string) (*Scheduler, error) {
	loc := time.UTC
	if timezone != "" {
		var err error
		if loc, err = time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("invalid scheduler timezone %q: %w", timezone, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		tasks:   make(map[string]*Task),
		ctx:     ctx,
		cancel:  cancel,
		timeout: DefaultTaskTimeout,
	}, nil
}

// AddTask 添加任务，spec 为标准五段 cron 表达式
func (s *Scheduler) AddTask(name, spec string, handler func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %q already registered", name)
	}

	task := &Task{Name: name, Spec: spec, Handler: handler}
	id, err := s.cron.AddFunc(spec, func() { s.executeTask(task) })
	if err != nil {
		return fmt.Errorf("invalid spec for task %q: %w", name, err)
	}
	task.entryID = id
	s.tasks[name] = task
	return nil
}

// Start 启动调度器
func (s *Scheduler) Start() {
	logger.Info("scheduler starting", logger.Int("tasks", len(s.tasks)))
	s.cron.Start()
}

// Stop 停止调度器并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	logger.Info("scheduler stopping")
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		logger.Info("scheduler stopped")
	case <-ctx.Done():
		logger.Warn("scheduler stop timed out")
	}
}

// RunNow 立即执行一次指定任务
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %q not found", name)
	}
	return s.executeTask(task)
}

// Next 任务下次执行时间
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(task.entryID).Next, true
}

func (s *Scheduler) executeTask(task *Task) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := task.Handler(ctx)
	if err != nil {
		logger.Error("scheduled task failed", logger.String("task", task.Name), logger.Err(err))
		return err
	}
	logger.Info("scheduled task completed",
		logger.String("task", task.Name),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}
