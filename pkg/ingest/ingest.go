// Package ingest receives DHCP option-82 observations pushed by relay
// hooks and feeds them into the association table.
package ingest

import (
	"encoding/json"
	"net"
	"strings"

	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/util"
)

// maxDatagram bounds a single observation message.
const maxDatagram = 4096

// Observation is one relay sighting: the downstream switch's MAC seen
// on an upstream switch port.
type Observation struct {
	UpstreamSwitchMAC   string `json:"upstream_switch_mac"`
	UpstreamPortInfo    string `json:"upstream_port_info"`
	DownstreamSwitchMAC string `json:"downstream_switch_mac"`
}

// Listener consumes observation datagrams.
type Listener struct {
	store *device.Store
}

// NewListener creates the listener.
func NewListener(store *device.Store) *Listener {
	return &Listener{store: store}
}

// Run binds addr and consumes datagrams until the socket fails. Each
// datagram is one JSON observation; malformed or incomplete messages
// are logged and dropped, the loop never stops for them.
func (l *Listener) Run(addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	util.Infof("option82 ingest listening on %s", addr)

	buf := make([]byte, maxDatagram)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return err
		}
		l.handleMessage(buf[:n], peer.String())
	}
}

func (l *Listener) handleMessage(raw []byte, peer string) {
	var obs Observation
	if err := json.Unmarshal(raw, &obs); err != nil {
		util.Errorf("option82: malformed message from %s: %v", peer, err)
		return
	}
	obs.UpstreamSwitchMAC = strings.ToLower(obs.UpstreamSwitchMAC)
	obs.UpstreamPortInfo = strings.ToLower(obs.UpstreamPortInfo)
	obs.DownstreamSwitchMAC = strings.ToLower(obs.DownstreamSwitchMAC)
	if obs.UpstreamSwitchMAC == "" || obs.UpstreamPortInfo == "" || obs.DownstreamSwitchMAC == "" {
		util.Errorf(
			"option82: incomplete data from %s, ignoring (usm=%q, usp=%q, dsm=%q)",
			peer, obs.UpstreamSwitchMAC, obs.UpstreamPortInfo, obs.DownstreamSwitchMAC,
		)
		return
	}
	if err := l.store.UpdateInfo(obs.UpstreamSwitchMAC, obs.UpstreamPortInfo, obs.DownstreamSwitchMAC); err != nil {
		util.Errorf("option82: updating association: %v", err)
	}
}
