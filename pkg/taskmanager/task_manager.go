package taskmanager

import (
	"context"
	"runtime"
	"sync"

	"github.com/stackforge/orderhub-backend/internal/logger"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"go.uber.org/zap"
)

// TaskManager runs order dispatch and blocking local-process work off the
// request path on a bounded worker pool. When the queue is full the
// submitting goroutine runs the task itself (caller-runs backpressure)
// instead of queuing without bound or dropping work.
type TaskManager struct {
	tasks      chan boundTask
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

type boundTask struct {
	task    entities.Task
	traceID string
}

// NewTaskManager sizes the pool from available parallelism when numWorkers
// is non-positive.
func NewTaskManager(numWorkers int, bufferSize int) *TaskManager {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		tasks:      make(chan boundTask, bufferSize),
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (tm *TaskManager) Start() {
	for i := 0; i < tm.numWorkers; i++ {
		tm.wg.Add(1)
		go func(workerID int) {
			defer tm.wg.Done()
			for {
				select {
				case <-tm.ctx.Done():
					logger.Debugf("worker %d exiting", workerID)
					return
				case bound := <-tm.tasks:
					tm.run(bound)
				}
			}
		}(i)
	}
}

// AddTask schedules task on the pool. The trace id is captured from ctx at
// submission so logs on the worker side correlate with the originating
// request. If the queue is full the task runs on the caller's goroutine.
func (tm *TaskManager) AddTask(ctx context.Context, task entities.Task) {
	bound := boundTask{task: task, traceID: entities.TraceIDFrom(ctx)}
	select {
	case tm.tasks <- bound:
	default:
		logger.Warn("task queue full, running task on caller",
			zap.String("traceId", bound.traceID))
		tm.run(bound)
	}
}

func (tm *TaskManager) run(bound boundTask) {
	ctx := entities.WithTraceID(tm.ctx, bound.traceID)
	bound.task(ctx)
}

func (tm *TaskManager) Stop() {
	tm.cancel()
	tm.wg.Wait()
	logger.Info("all workers stopped")
}
