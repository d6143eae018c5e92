// Package testutil provides fixtures shared by the controller's package
// tests: an in-memory device store and a scriptable fake driver.
package testutil

import (
	"sync"
	"testing"

	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
)

// NewStore opens a private in-memory device store.
func NewStore(t *testing.T) *device.Store {
	t.Helper()
	s, err := device.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	return s
}

// NewDevice creates and persists a device in the given state.
func NewDevice(t *testing.T, s *device.Store, identifier string, state device.State) *device.Device {
	t.Helper()
	dev := &device.Device{
		Identifier:  identifier,
		Address:     "10.0.0.2",
		State:       state,
		DeviceClass: "FakeDriver",
		DeviceType:  device.Unknown,
		MACAddress:  device.Unknown,
		Version:     device.Unknown,
	}
	if err := s.Create(dev); err != nil {
		t.Fatalf("creating device: %v", err)
	}
	return dev
}

// FakeDriver is a scriptable driver.Driver. Results default to success;
// OnInitialSetup lets tests populate discovered attributes the way a
// real session would.
type FakeDriver struct {
	mu    sync.Mutex
	calls []string

	InitialSetupOK   bool
	ConfigureOK      bool
	ChangeIdentityOK bool
	Neighbors        string
	BaseConfig       string

	OnInitialSetup func(*device.Device)
}

// NewFakeDriver returns a driver whose operations all succeed.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		InitialSetupOK:   true,
		ConfigureOK:      true,
		ChangeIdentityOK: true,
		Neighbors:        driver.UnknownNeighbors,
		BaseConfig:       "hostname {identifier}\n",
	}
}

func (f *FakeDriver) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

// Calls returns the operations invoked so far, in order.
func (f *FakeDriver) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// EmitBaseConfig implements driver.Driver.
func (f *FakeDriver) EmitBaseConfig(dev *device.Device) (string, error) {
	f.record("emit_base_config")
	return f.BaseConfig, nil
}

// InitialSetup implements driver.Driver.
func (f *FakeDriver) InitialSetup(dev *device.Device) bool {
	f.record("initial_setup")
	if f.OnInitialSetup != nil {
		f.OnInitialSetup(dev)
	}
	return f.InitialSetupOK
}

// Configure implements driver.Driver.
func (f *FakeDriver) Configure(dev *device.Device, configuration string) bool {
	f.record("configure")
	return f.ConfigureOK
}

// ChangeIdentity implements driver.Driver.
func (f *FakeDriver) ChangeIdentity(dev *device.Device, identity string) bool {
	f.record("change_identity")
	if f.ChangeIdentityOK {
		dev.Identifier = identity
	}
	return f.ChangeIdentityOK
}

// NeighborInfo implements driver.Driver.
func (f *FakeDriver) NeighborInfo(dev *device.Device, verbose bool) string {
	f.record("neighbor_info")
	return f.Neighbors
}

var _ driver.Driver = (*FakeDriver)(nil)
