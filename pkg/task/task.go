// Package task implements the units of work executed on a device's
// command queue: validated, runnable objects bound to one device, with
// post-run hooks keyed by the device's terminal state.
package task

import (
	"github.com/liscain-net/liscain/pkg/device"
)

// Task is one unit of work for a single device.
//
// Validate runs on the enqueuer's goroutine under the queue lock and
// must not touch the device. Run and Post execute on the queue worker;
// Run leaves the device in a well-defined lifecycle state and Post
// fires the hook registered for that state, if any.
type Task interface {
	// Name identifies the task variant; queues use it for the
	// unique-task conflict check and the RPC exposes it as queue items.
	Name() string

	// Unique tasks are rejected at enqueue when a task of the same
	// variant is already waiting on the device's queue.
	Unique() bool

	Validate() error
	Run()
	Post()
}

// HookFunc receives the device after Run. Hooks may enqueue follow-up
// tasks; they must not block on locks held by the worker (none are).
type HookFunc func(*device.Device)

// base carries the device binding and the state-keyed hook map shared
// by all task variants.
type base struct {
	dev   *device.Device
	store *device.Store
	hooks map[device.State]HookFunc
}

func newBase(dev *device.Device, store *device.Store) base {
	return base{dev: dev, store: store, hooks: make(map[device.State]HookFunc)}
}

// Hook registers fn to run after any Run that leaves the device in
// state. One callback per state; later registrations replace earlier
// ones.
func (b *base) Hook(state device.State, fn HookFunc) {
	b.hooks[state] = fn
}

// Post invokes the hook registered for the device's post-run state.
func (b *base) Post() {
	if fn, ok := b.hooks[b.dev.State]; ok {
		fn(b.dev)
	}
}
