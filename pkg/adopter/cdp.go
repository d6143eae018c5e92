package adopter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/liscain-net/liscain/pkg/commander"
	"github.com/liscain-net/liscain/pkg/config"
	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/util"
)

var (
	reCDPRemoteDevice = regexp.MustCompile(`(?m)^Device ID: (.+?)\r?$`)
	reCDPInterfaces   = regexp.MustCompile(`(?m)^Interface: (.+?),(?:.+)?Port ID \(outgoing port\): (.+?)\r?$`)
)

// CDPAdopter asks the device for its CDP neighbors, then asks the
// inventory which of the upstream ports carries a "liscain:<name>"
// alias. Exactly one distinct name across all neighbors resolves the
// device's identity; zero or several abort the attempt.
type CDPAdopter struct {
	base
	client *retryablehttp.Client
}

// NewCDP creates the adopter with a retrying inventory client.
func NewCDP(cfg *config.Config, store *device.Store, drivers *driver.Registry, cmd *commander.Commander) *CDPAdopter {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &CDPAdopter{
		base:   base{cfg: cfg, store: store, drivers: drivers, cmd: cmd},
		client: client,
	}
}

// jaspyInterface mirrors the inventory's /interface document.
type jaspyInterface struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Alias       string `json:"alias"`
}

// jaspyLookup resolves the liscain alias configured on the upstream
// port remoteInterface of remoteDevice, or "" when none is set.
func (a *CDPAdopter) jaspyLookup(dev *device.Device, remoteDevice, remoteInterface string) (string, error) {
	util.WithDevice(dev.Identifier).Infof("cdp: reverse lookup %s: %s", remoteDevice, remoteInterface)
	u := fmt.Sprintf("%s/interface?%s", a.cfg.JaspyAPI, url.Values{"device_fqdn": {remoteDevice}}.Encode())
	resp, err := a.client.Get(u)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("inventory returned status %d", resp.StatusCode)
	}
	var interfaces []jaspyInterface
	if err := json.NewDecoder(resp.Body).Decode(&interfaces); err != nil {
		return "", fmt.Errorf("decoding inventory response: %w", err)
	}
	for _, iface := range interfaces {
		if remoteInterface != iface.Name && remoteInterface != iface.Description {
			continue
		}
		for _, part := range strings.Fields(iface.Alias) {
			if rest, ok := strings.CutPrefix(part, "liscain:"); ok {
				return rest, nil
			}
		}
	}
	return "", nil
}

// Autoadopt implements Adopter.
func (a *CDPAdopter) Autoadopt(dev *device.Device) {
	log := util.WithDevice(dev.Identifier)
	drv, err := a.drivers.For(dev)
	if err != nil {
		log.Errorf("cdp: %v", err)
		return
	}
	cdpInfo := drv.NeighborInfo(dev, true)
	if cdpInfo == driver.UnknownNeighbors {
		log.Errorf("cdp: unable to read CDP neighbors")
		return
	}

	results := make(map[string]struct{})
	for _, block := range strings.Split(cdpInfo, "------") {
		if !strings.Contains(block, "Device ID") {
			continue
		}
		block = strings.Trim(block, "-")
		remote := reCDPRemoteDevice.FindStringSubmatch(block)
		ifaces := reCDPInterfaces.FindStringSubmatch(block)
		if remote == nil || ifaces == nil {
			continue
		}
		whoami, err := a.jaspyLookup(dev, remote[1], ifaces[2])
		if err != nil {
			log.Errorf("cdp: inventory lookup for %s failed: %v", remote[1], err)
			continue
		}
		if whoami != "" {
			results[whoami] = struct{}{}
		}
	}

	switch len(results) {
	case 1:
	case 0:
		log.Errorf("cdp: unable to find reverse switch CDP neighbors")
		return
	default:
		log.Errorf("cdp: more than 1 result for reverse switch CDP neighbors (%v)", keys(results))
		return
	}
	var identity string
	for identity = range results {
	}
	log.Infof("cdp: reverse switch CDP neighbors resolved to %s", identity)
	a.adopt(dev, identity)
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

var _ Adopter = (*CDPAdopter)(nil)
