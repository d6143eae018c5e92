package device

// Unknown is the sentinel for attributes not yet discovered on the switch.
const Unknown = "UNKNOWN"

// Device is one managed switch. identifier starts as the deterministic
// peer alias (util.PeerAlias) and becomes the operator-chosen name once
// the device is adopted. mac_address, device_type and version stay at
// the UNKNOWN sentinel until initial setup harvests them.
type Device struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	Identifier  string `gorm:"not null" json:"identifier"`
	Address     string `gorm:"not null" json:"address"`
	State       State  `gorm:"not null" json:"state"`
	DeviceType  string `gorm:"not null;default:UNKNOWN" json:"device_type"`
	DeviceClass string `gorm:"not null" json:"device_class"`
	MACAddress  string `gorm:"column:mac_address;not null;default:UNKNOWN" json:"mac_address"`
	Version     string `gorm:"not null;default:UNKNOWN" json:"version"`
}

// TableName keeps the historical table name.
func (Device) TableName() string {
	return "devices"
}

// Option82Association maps an upstream switch port (as reported in DHCP
// Option-82 relay info) to the downstream switch plugged into it. The
// operator binds a name to the port; relay reports bind the MAC of
// whatever is currently attached.
type Option82Association struct {
	ID                  int64   `gorm:"primaryKey" json:"id"`
	UpstreamSwitchMAC   string  `gorm:"column:upstream_switch_mac;not null;uniqueIndex:idx_upstream_port,priority:1" json:"upstream_switch_mac"`
	UpstreamPortInfo    string  `gorm:"not null;uniqueIndex:idx_upstream_port,priority:2" json:"upstream_port_info"`
	DownstreamSwitchMAC *string `gorm:"column:downstream_switch_mac" json:"downstream_switch_mac"`
	DownstreamSwitchName *string `gorm:"column:downstream_switch_name" json:"downstream_switch_name"`
}

// TableName keeps the historical table name.
func (Option82Association) TableName() string {
	return "option82_infos"
}
