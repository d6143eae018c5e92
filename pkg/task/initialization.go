package task

import (
	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/util"
)

// InitializationTask drives a device through INIT: authenticate with
// the bootstrap credentials, harvest identity attributes, end in READY
// or INIT_FAILED.
type InitializationTask struct {
	base
	drv driver.Driver
}

// NewInitialization creates the task.
func NewInitialization(dev *device.Device, store *device.Store, drv driver.Driver) *InitializationTask {
	return &InitializationTask{base: newBase(dev, store), drv: drv}
}

// Name implements Task.
func (t *InitializationTask) Name() string {
	return "DeviceInitializationTask"
}

// Unique implements Task.
func (t *InitializationTask) Unique() bool {
	return true
}

// Validate checks the device may (re)enter initialization.
func (t *InitializationTask) Validate() error {
	if !t.dev.State.CanInit() {
		return util.NewStateError("initialization", t.dev.State.String())
	}
	return nil
}

// Run implements Task.
func (t *InitializationTask) Run() {
	log := util.WithDevice(t.dev.Identifier)
	if err := t.store.ChangeState(t.dev, device.StateInit); err != nil {
		log.Errorf("persisting INIT: %v", err)
		return
	}
	if !t.drv.InitialSetup(t.dev) {
		if err := t.store.ChangeState(t.dev, device.StateInitFailed); err != nil {
			log.Errorf("persisting INIT_FAILED: %v", err)
		}
		return
	}
	if err := t.store.ChangeState(t.dev, device.StateReady); err != nil {
		log.Errorf("persisting READY: %v", err)
	}
}
