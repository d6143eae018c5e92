package adopter

import (
	"strings"

	"github.com/liscain-net/liscain/pkg/commander"
	"github.com/liscain-net/liscain/pkg/config"
	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/util"
)

// Opt82Adopter matches a device's harvested MAC address against the
// DHCP option-82 association table to learn its target identity.
type Opt82Adopter struct {
	base
}

// NewOpt82 creates the adopter.
func NewOpt82(cfg *config.Config, store *device.Store, drivers *driver.Registry, cmd *commander.Commander) *Opt82Adopter {
	return &Opt82Adopter{base{cfg: cfg, store: store, drivers: drivers, cmd: cmd}}
}

// Autoadopt implements Adopter.
func (a *Opt82Adopter) Autoadopt(dev *device.Device) {
	log := util.WithDevice(dev.Identifier)
	if dev.MACAddress == device.Unknown {
		log.Infof("opt82: no mac address harvested, skipping")
		return
	}
	assoc, err := a.store.AssociationByDownstreamMAC(strings.ToLower(dev.MACAddress))
	if err != nil {
		log.Infof("opt82: no association for %s", dev.MACAddress)
		return
	}
	if assoc.DownstreamSwitchName == nil || *assoc.DownstreamSwitchName == "" {
		log.Infof("opt82: association for %s carries no switch name", dev.MACAddress)
		return
	}
	a.adopt(dev, *assoc.DownstreamSwitchName)
}

var _ Adopter = (*Opt82Adopter)(nil)
