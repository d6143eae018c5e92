// Package device holds the persistent device model, its lifecycle state
// machine and the relational store backing both.
package device

// State is a device's position in the provisioning lifecycle. States are
// persisted as strings so the rows stay readable in the database.
type State string

const (
	StateNew             State = "NEW"
	StateInit            State = "INIT"
	StateInitFailed      State = "INIT_FAILED"
	StateReady           State = "READY"
	StateConfiguring     State = "CONFIGURING"
	StateConfigureFailed State = "CONFIGURE_FAILED"
	StateConfigured      State = "CONFIGURED"
)

func (s State) String() string {
	return string(s)
}

// CanInit reports whether an initialization task may start from s.
func (s State) CanInit() bool {
	switch s {
	case StateNew, StateInit, StateInitFailed, StateReady, StateConfigureFailed:
		return true
	}
	return false
}

// CanConfigure reports whether a configuration task may start from s.
func (s State) CanConfigure() bool {
	switch s {
	case StateReady, StateConfigureFailed:
		return true
	}
	return false
}

// transitions is the allowed state graph. Tasks walk it through
// Store.ChangeState; nothing else moves a device.
var transitions = map[State][]State{
	StateNew:             {StateInit},
	StateInit:            {StateInitFailed, StateReady, StateInit},
	StateInitFailed:      {StateInit},
	StateReady:           {StateConfiguring, StateInit},
	StateConfiguring:     {StateConfigureFailed, StateConfigured},
	StateConfigureFailed: {StateConfiguring, StateInit},
	StateConfigured:      {},
}

// ValidTransition reports whether from -> to is in the allowed set.
func ValidTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
