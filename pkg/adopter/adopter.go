// Package adopter resolves a READY device's target identity and hands
// it off to configuration. Adoption is best-effort: any failure is
// logged and the device simply stays READY for the next attempt or for
// manual adoption.
package adopter

import (
	"os"
	"path/filepath"

	"github.com/liscain-net/liscain/pkg/commander"
	"github.com/liscain-net/liscain/pkg/config"
	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/task"
	"github.com/liscain-net/liscain/pkg/util"
)

// Adopter attempts to configure a freshly initialized device without
// operator involvement.
type Adopter interface {
	Autoadopt(dev *device.Device)
}

type base struct {
	cfg     *config.Config
	store   *device.Store
	drivers *driver.Registry
	cmd     *commander.Commander
}

// adopt runs the shared tail of both adoption strategies: check the
// firmware whitelist, load the prestaged configuration for identity and
// enqueue the configuration task.
func (b *base) adopt(dev *device.Device, identity string) {
	log := util.WithDevice(dev.Identifier)
	if !util.VersionAllowed(dev.Version, b.cfg.AutoconfVersionWhitelist) {
		log.Infof("%s (%s @ %s) does not meet autoconf criteria (version)", identity, dev.Version, dev.Address)
		return
	}
	path := filepath.Join(b.cfg.AutoconfPath, identity+".cfg")
	log.Infof("trying autoadopt for %s", identity)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("failed to open %s for switch autoconfiguration: %v", path, err)
		return
	}
	drv, err := b.drivers.For(dev)
	if err != nil {
		log.Errorf("autoadopt: %v", err)
		return
	}
	if err := b.cmd.Enqueue(dev, task.NewConfiguration(dev, b.store, drv, identity, string(data))); err != nil {
		log.Errorf("autoadopt: %v", err)
	}
}
