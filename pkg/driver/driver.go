// Package driver defines the vendor adapter contract and the registry
// that dispatches on a device's persisted device_class.
package driver

import (
	"fmt"
	"sync"

	"github.com/liscain-net/liscain/pkg/device"
)

// UnknownNeighbors is the sentinel NeighborInfo returns when the
// management session could not be established.
const UnknownNeighbors = "unknown"

// Driver speaks one vendor's management protocol. All methods are
// synchronous and blocking; they run on a command queue worker, never
// on the RPC or file-server path. Transport failures surface as false
// returns, not errors — the calling task translates them into the
// matching _FAILED lifecycle state.
type Driver interface {
	// EmitBaseConfig renders the bootstrap configuration for dev. It is
	// a pure function of the device identifier and static configuration.
	EmitBaseConfig(dev *device.Device) (string, error)

	// InitialSetup opens a session with the bootstrap credentials,
	// discovers MAC address, model and firmware version, generates SSH
	// key material on the switch and persists the harvested attributes.
	InitialSetup(dev *device.Device) bool

	// Configure uploads configuration as the device's startup config
	// and triggers a reload.
	Configure(dev *device.Device, configuration string) bool

	// ChangeIdentity renames the device in-band and persists the new
	// identifier. On transport failure the persisted identifier is
	// left at the old value.
	ChangeIdentity(dev *device.Device, identity string) bool

	// NeighborInfo returns a textual dump of discovered neighbors, or
	// UnknownNeighbors on transport failure.
	NeighborInfo(dev *device.Device, verbose bool) string
}

// Registry maps device_class discriminators to Driver implementations.
// Rows loaded from the store are plain data; the registry supplies the
// vendor behavior at access time.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

// Register binds a device_class to a driver.
func (r *Registry) Register(class string, d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[class] = d
}

// For returns the driver for dev's device_class.
func (r *Registry) For(dev *device.Device) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[dev.DeviceClass]
	if !ok {
		return nil, fmt.Errorf("no driver registered for device class %q", dev.DeviceClass)
	}
	return d, nil
}
