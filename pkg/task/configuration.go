package task

import (
	"fmt"

	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/util"
)

// ConfigurationTask adopts a device: rename it to its target identity,
// push the target configuration as startup config and reload. Ends in
// CONFIGURED or CONFIGURE_FAILED.
type ConfigurationTask struct {
	base
	drv           driver.Driver
	identity      string
	configuration string
}

// NewConfiguration creates the task. identity and configuration are
// required arguments.
func NewConfiguration(dev *device.Device, store *device.Store, drv driver.Driver, identity, configuration string) *ConfigurationTask {
	return &ConfigurationTask{
		base:          newBase(dev, store),
		drv:           drv,
		identity:      identity,
		configuration: configuration,
	}
}

// Name implements Task.
func (t *ConfigurationTask) Name() string {
	return "DeviceConfigurationTask"
}

// Unique implements Task.
func (t *ConfigurationTask) Unique() bool {
	return true
}

// Validate checks the device may enter configuration and that both
// arguments are present.
func (t *ConfigurationTask) Validate() error {
	if t.identity == "" {
		return fmt.Errorf("%w: identity", util.ErrMissingField)
	}
	if t.configuration == "" {
		return fmt.Errorf("%w: configuration", util.ErrMissingField)
	}
	if !t.dev.State.CanConfigure() {
		return util.NewStateError("configuration", t.dev.State.String())
	}
	return nil
}

// Run implements Task.
func (t *ConfigurationTask) Run() {
	log := util.WithDevice(t.dev.Identifier)
	if err := t.store.ChangeState(t.dev, device.StateConfiguring); err != nil {
		log.Errorf("persisting CONFIGURING: %v", err)
		return
	}
	if !t.drv.ChangeIdentity(t.dev, t.identity) {
		if err := t.store.ChangeState(t.dev, device.StateConfigureFailed); err != nil {
			log.Errorf("persisting CONFIGURE_FAILED: %v", err)
		}
		return
	}
	if !t.drv.Configure(t.dev, t.configuration) {
		if err := t.store.ChangeState(t.dev, device.StateConfigureFailed); err != nil {
			log.Errorf("persisting CONFIGURE_FAILED: %v", err)
		}
		return
	}
	if err := t.store.ChangeState(t.dev, device.StateConfigured); err != nil {
		log.Errorf("persisting CONFIGURED: %v", err)
	}
}
