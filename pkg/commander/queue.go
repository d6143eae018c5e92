// Package commander owns the per-device task queues: strict FIFO, one
// worker per device, no intra-device parallelism.
package commander

import (
	"errors"
	"sync"
	"time"

	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/task"
	"github.com/liscain-net/liscain/pkg/util"
)

// errQueueStopped tells the Commander to replace the queue; a stopped
// worker may exit at any moment and must not take on new tasks.
var errQueueStopped = errors.New("command queue stopped")

// idleWake bounds how long the worker sleeps between polls; the stop
// flag is noticed at least this often even if a wake signal is lost.
const idleWake = time.Second

// CommandQueue executes one device's tasks in enqueue order. The lock
// guards only the task list; Run and Post execute outside it so an
// hour-long driver session never blocks enqueues or observation.
type CommandQueue struct {
	dev *device.Device

	mu      sync.Mutex
	tasks   []task.Task
	stopped bool

	wake chan struct{}
	done chan struct{}
}

// NewCommandQueue creates the queue and starts its worker.
func NewCommandQueue(dev *device.Device) *CommandQueue {
	q := &CommandQueue{
		dev:  dev,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.worker()
	return q
}

// EnqueueTask validates and appends a task. Unique tasks are rejected
// with a conflict error when a task of the same variant is already
// pending. Validation failures never leave the device in a changed
// state; the task simply is not queued.
func (q *CommandQueue) EnqueueTask(t task.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return errQueueStopped
	}
	if t.Unique() {
		for _, queued := range q.tasks {
			if queued.Name() == t.Name() {
				return util.NewConflictError(t.Name())
			}
		}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	q.tasks = append(q.tasks, t)
	q.signal()
	return nil
}

// QueueList returns the names of pending tasks, head first.
func (q *CommandQueue) QueueList() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, len(q.tasks))
	for i, t := range q.tasks {
		names[i] = t.Name()
	}
	return names
}

// Len returns the number of pending tasks.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Stop asks the worker to exit once the queue drains. Idempotent and
// non-blocking; a running task completes first.
func (q *CommandQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.signal()
}

// Done is closed when the worker has exited.
func (q *CommandQueue) Done() <-chan struct{} {
	return q.done
}

// Exited reports whether the worker has exited.
func (q *CommandQueue) Exited() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func (q *CommandQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// worker peeks at the head task under the lock, executes Run and Post
// outside it, then removes the head. The head stays visible in
// QueueList while it runs, so a second unique task of the same variant
// still conflicts until the first one finished.
func (q *CommandQueue) worker() {
	defer close(q.done)
	for {
		q.mu.Lock()
		var head task.Task
		if len(q.tasks) > 0 {
			head = q.tasks[0]
		} else if q.stopped {
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()

		if head == nil {
			select {
			case <-q.wake:
			case <-time.After(idleWake):
			}
			continue
		}

		log := util.WithDevice(q.dev.Identifier)
		log.Infof("running %s", head.Name())
		head.Run()
		head.Post()
		log.Debugf("finished %s", head.Name())

		q.mu.Lock()
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
	}
}
