package commander

import (
	"sync"
	"time"

	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/task"
	"github.com/liscain-net/liscain/pkg/util"
)

// reapInterval is how often the supervisor sweeps idle queues.
const reapInterval = 60 * time.Second

// Commander maps devices to their command queues. Queues are created
// lazily on first enqueue and reaped by a supervisor once drained, so
// a fleet of thousands of configured switches does not pin a goroutine
// each. Lock order is Commander then queue, never the reverse.
type Commander struct {
	mu     sync.Mutex
	queues map[int64]*CommandQueue

	stop chan struct{}
	once sync.Once
}

// New creates a Commander and starts its queue supervisor.
func New() *Commander {
	c := &Commander{
		queues: make(map[int64]*CommandQueue),
		stop:   make(chan struct{}),
	}
	go c.supervise(reapInterval)
	return c
}

// Enqueue appends a task to the device's queue, creating the queue if
// needed. Enqueue errors (conflict, validation) leave the device and
// its queue untouched.
func (c *Commander) Enqueue(dev *device.Device, t task.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.queues[dev.ID]
	if !ok || q.Exited() {
		q = NewCommandQueue(dev)
		c.queues[dev.ID] = q
	}
	err := q.EnqueueTask(t)
	if err == errQueueStopped {
		// The supervisor stopped this queue between sweeps; hand the
		// task to a fresh one.
		q = NewCommandQueue(dev)
		c.queues[dev.ID] = q
		err = q.EnqueueTask(t)
	}
	return err
}

// QueueList returns the names of the device's pending tasks, head
// first. A device without a queue has none pending.
func (c *Commander) QueueList(dev *device.Device) []string {
	c.mu.Lock()
	q, ok := c.queues[dev.ID]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return q.QueueList()
}

// QueueLength returns the number of pending tasks for the device.
func (c *Commander) QueueLength(dev *device.Device) int {
	c.mu.Lock()
	q, ok := c.queues[dev.ID]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return q.Len()
}

// Stop shuts down the supervisor and signals every queue to drain.
// Running tasks are not interrupted.
func (c *Commander) Stop() {
	c.once.Do(func() { close(c.stop) })
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range c.queues {
		q.Stop()
	}
}

// supervise reaps queues that have drained and whose worker exited.
// Drained queues are told to stop first; Stop is idempotent, so a
// queue that picked up work between sweeps just keeps running.
func (c *Commander) supervise(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.reap()
		}
	}
}

func (c *Commander) reap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, q := range c.queues {
		if q.Len() == 0 {
			q.Stop()
		}
		if q.Exited() {
			delete(c.queues, id)
			util.WithDevice(q.dev.Identifier).Debugf("reaped idle command queue")
		}
	}
}
