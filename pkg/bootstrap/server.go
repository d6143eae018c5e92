// Package bootstrap serves configuration to factory-default switches:
// the dynamic bootstrap config over TFTP, and staged adoption blobs
// over TFTP or HTTP. A bootstrap fetch is also the discovery signal
// that enrolls the device and queues its initialization.
package bootstrap

import (
	"net"
	"strings"

	"github.com/liscain-net/liscain/pkg/adopter"
	"github.com/liscain-net/liscain/pkg/commander"
	"github.com/liscain-net/liscain/pkg/config"
	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/driver/ciscoios"
	"github.com/liscain-net/liscain/pkg/ephemeral"
	"github.com/liscain-net/liscain/pkg/task"
	"github.com/liscain-net/liscain/pkg/util"
)

// bootstrapNames are the filenames a factory-default Cisco switch
// requests over TFTP when it boots without a startup config.
var bootstrapNames = map[string]bool{
	"network-confg": true,
	"switch-confg":  true,
}

// Server answers bootstrap file requests. The adopter is optional; when
// set and autoconf is enabled it is hooked onto READY of every queued
// initialization.
type Server struct {
	cfg     *config.Config
	store   *device.Store
	drivers *driver.Registry
	cmd     *commander.Commander
	blobs   ephemeral.Store
	adopt   adopter.Adopter
}

// NewServer creates the bootstrap server.
func NewServer(cfg *config.Config, store *device.Store, drivers *driver.Registry, cmd *commander.Commander, blobs ephemeral.Store, adopt adopter.Adopter) *Server {
	return &Server{cfg: cfg, store: store, drivers: drivers, cmd: cmd, blobs: blobs, adopt: adopt}
}

// Serve resolves a file request from peerAddr to its content. Unknown
// names resolve to the empty string; a bootstrap fetch never errors
// back to the switch because the switch cannot do anything about it.
func (s *Server) Serve(filename, peerAddr string) (string, error) {
	if token, ok := strings.CutPrefix(filename, "adopt/"); ok && !strings.Contains(token, "/") {
		if data, ok := s.blobs.Get(token); ok {
			return data, nil
		}
		return "", nil
	}
	if bootstrapNames[filename] {
		return s.serveBootstrap(peerAddr)
	}
	util.WithDevice(util.PeerAlias(peerAddr)).Debugf("requested %s, ignoring", filename)
	return "", nil
}

// serveBootstrap enrolls (or re-fetches) the device behind peerAddr,
// queues its initialization and renders its bootstrap config. Enqueue
// failures are logged, not returned: a device re-requesting the file
// while its init task is queued is normal.
func (s *Server) serveBootstrap(peerAddr string) (string, error) {
	alias := util.PeerAlias(peerAddr)
	log := util.WithDevice(alias)

	dev, err := s.store.FindByIdentifierNotInState(alias, device.StateConfigured)
	if err != nil {
		dev = &device.Device{
			Identifier:  alias,
			Address:     peerHost(peerAddr),
			State:       device.StateNew,
			DeviceClass: ciscoios.Class,
			DeviceType:  device.Unknown,
			MACAddress:  device.Unknown,
			Version:     device.Unknown,
		}
		if err := s.store.Create(dev); err != nil {
			return "", err
		}
		log.Infof("enrolled new device from %s", peerAddr)
	}

	drv, err := s.drivers.For(dev)
	if err != nil {
		return "", err
	}

	tk := task.NewInitialization(dev, s.store, drv)
	if s.cfg.AutoconfEnabled && s.adopt != nil {
		tk.Hook(device.StateReady, s.adopt.Autoadopt)
	}
	if err := s.cmd.Enqueue(dev, tk); err != nil {
		log.Infof("initialization not queued: %v", err)
	}

	return drv.EmitBaseConfig(dev)
}

func peerHost(peerAddr string) string {
	if host, _, err := net.SplitHostPort(peerAddr); err == nil {
		return host
	}
	return peerAddr
}
