package ciscoios

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liscain-net/liscain/pkg/config"
	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/ephemeral"
	"github.com/liscain-net/liscain/pkg/util"
)

// Class is the device_class discriminator this driver registers under.
const Class = "CiscoIOS"

const (
	retryMax       = 10
	bootGrace      = 10 * time.Second
	dialTimeout    = 10 * time.Second
	neighborDial   = 3 * time.Second
	execTimeout    = 10 * time.Second
	keygenTimeout  = 120 * time.Second
	startupTimeout = 60 * time.Second

	// Configurations beyond this are parked in the ephemeral store and
	// pulled by the switch over the bootstrap file channel instead of
	// being streamed line by line through tclsh.
	maxInlineConfig = 32 * 1024
)

var (
	reUsername = regexp.MustCompile(`[Uu]sername: `)
	rePassword = regexp.MustCompile(`[Pp]assword: `)
	reTclsh    = regexp.MustCompile(`\+>`)
	reCopyDest = regexp.MustCompile(`\r\n`)
	reConfirm  = regexp.MustCompile(`confirm`)
	reYesNo    = regexp.MustCompile(`yes/no`)
)

// Driver speaks to Cisco IOS switches. Each call opens, uses and
// releases its own session; no state is shared across calls.
type Driver struct {
	cfg   *config.Config
	store *device.Store
	blobs ephemeral.Store
}

// New creates the IOS driver.
func New(cfg *config.Config, store *device.Store, blobs ephemeral.Store) *Driver {
	return &Driver{cfg: cfg, store: store, blobs: blobs}
}

var _ driver.Driver = (*Driver)(nil)

// prompt matches the IOS exec prompt for an identifier, including the
// (config)/(tcl) mode suffix.
func prompt(identifier string) *regexp.Regexp {
	return regexp.MustCompile(`\r\n` + regexp.QuoteMeta(identifier) + `(\([a-zA-Z0-9-.,]+\))?#`)
}

// open establishes a management session. Initial setup forces telnet —
// the emitted base configuration only guarantees that much — while
// later operations honor the configured transport.
func (d *Driver) open(dev *device.Device, timeout time.Duration, forceTelnet bool) (*expectSession, bool, error) {
	if !forceTelnet && d.cfg.Transport == "ssh" {
		conn, err := dialSSH(net.JoinHostPort(dev.Address, "22"), d.cfg.InitUsername, d.cfg.InitPassword, timeout)
		if err != nil {
			return nil, false, err
		}
		return newExpectSession(conn), false, nil
	}
	conn, err := dialTelnet(net.JoinHostPort(dev.Address, "23"), timeout)
	if err != nil {
		return nil, false, err
	}
	return newExpectSession(conn), true, nil
}

// login authenticates on the telnet prompt using the bootstrap
// credentials.
func (d *Driver) login(ses *expectSession, identifier string, timeout time.Duration) error {
	if _, _, err := ses.expect(timeout, reUsername); err != nil {
		return err
	}
	if err := ses.send(d.cfg.InitUsername, "\n"); err != nil {
		return err
	}
	if _, _, err := ses.expect(timeout, rePassword); err != nil {
		return err
	}
	if err := ses.send(d.cfg.InitPassword, "\n"); err != nil {
		return err
	}
	_, _, err := ses.expect(timeout, prompt(identifier))
	return err
}

// exec runs one command and waits for the exec prompt to return.
func (d *Driver) exec(ses *expectSession, identifier, cmd string, timeout time.Duration) (string, error) {
	if err := ses.send(cmd, "\n"); err != nil {
		return "", err
	}
	_, out, err := ses.expect(timeout, prompt(identifier))
	return out, err
}

// EmitBaseConfig renders baseconfig/cisco.cfg for dev.
func (d *Driver) EmitBaseConfig(dev *device.Device) (string, error) {
	raw, err := os.ReadFile(filepath.Join(d.cfg.BaseConfigPath, "cisco.cfg"))
	if err != nil {
		return "", fmt.Errorf("reading base config template: %w", err)
	}
	return strings.NewReplacer(
		"{liscain_hostname}", dev.Identifier,
		"{liscain_adopt_dn}", d.cfg.AdoptDN,
		"{liscain_init_username}", d.cfg.InitUsername,
		"{liscain_init_password}", d.cfg.InitPassword,
	).Replace(string(raw)), nil
}

// InitialSetup logs in with the bootstrap credentials, harvests MAC,
// model and firmware version, and generates SSH key material. Up to 10
// attempts: a timeout retries immediately, a premature EOF (switch
// still booting) sleeps 10s first.
func (d *Driver) InitialSetup(dev *device.Device) bool {
	log := util.WithDevice(dev.Identifier)
	for retry := 1; retry <= retryMax; retry++ {
		err := d.initialSetupSession(dev, log)
		if err == nil {
			log.Info("successfully initialized switch")
			return true
		}
		if isTimeout(err) {
			log.Infof("timeout, retry %d/%d", retry, retryMax)
			continue
		}
		if isEOF(err) {
			log.Infof("switch not ready, wait %s (retry %d/%d)", bootGrace, retry, retryMax)
			time.Sleep(bootGrace)
			continue
		}
		log.Errorf("initial setup: %v", err)
		time.Sleep(bootGrace)
	}
	log.Error("failed initial setup")
	return false
}

func (d *Driver) initialSetupSession(dev *device.Device, log *logrus.Entry) error {
	ses, _, err := d.open(dev, dialTimeout, true)
	if err != nil {
		return err
	}
	defer ses.close()

	if err := d.login(ses, dev.Identifier, dialTimeout); err != nil {
		return err
	}
	log.Debug("logged in")
	if _, err := d.exec(ses, dev.Identifier, "terminal length 0", execTimeout); err != nil {
		return err
	}

	out, err := d.exec(ses, dev.Identifier, "show interface vlan1", execTimeout)
	if err != nil {
		return err
	}
	if m := reSVIMAC.FindStringSubmatch(out); m != nil {
		if mac := util.NormalizeMAC(m[1]); mac != "" {
			dev.MACAddress = mac
			log.Infof("mac address detected as %s", mac)
		}
	}

	out, err = d.exec(ses, dev.Identifier, "show inventory", execTimeout)
	if err != nil {
		return err
	}
	if m := rePID.FindStringSubmatch(out); m != nil {
		dev.DeviceType = m[1]
		log.Infof("type detected as %s", dev.DeviceType)
	}

	out, err = d.exec(ses, dev.Identifier, "show version", execTimeout)
	if err != nil {
		return err
	}
	if m := reVersion.FindStringSubmatch(out); m != nil {
		dev.Version = m[1]
		log.Infof("version detected as %s", dev.Version)
	}

	if err := d.store.Save(dev); err != nil {
		return err
	}

	log.Info("generating ssh keys...")
	for _, cmd := range []string{
		"configure terminal",
		"ip ssh rsa keypair-name ssh",
	} {
		if _, err := d.exec(ses, dev.Identifier, cmd, execTimeout); err != nil {
			return err
		}
	}
	if _, err := d.exec(ses, dev.Identifier,
		"crypto key generate rsa general-keys label ssh mod 2048", keygenTimeout); err != nil {
		return err
	}
	for _, cmd := range []string{
		"sdm prefer dual-ipv4-and-ipv6 default",
		"sdm prefer dual-ipv4-and-ipv6 vlan",
		"end",
	} {
		if _, err := d.exec(ses, dev.Identifier, cmd, execTimeout); err != nil {
			return err
		}
	}
	ses.send("exit", "\n")
	log.Debug("logged out")
	return nil
}

// Configure uploads configuration as the startup config and reloads
// the switch. A device_type hint mismatch aborts before any byte is
// pushed.
func (d *Driver) Configure(dev *device.Device, configuration string) bool {
	log := util.WithDevice(dev.Identifier)

	hints := parseConfigHints(configuration)
	if wantType, ok := hints["device_type"]; ok {
		if !strings.Contains(strings.ToLower(dev.DeviceType), strings.ToLower(wantType)) {
			log.Errorf("[configure] wrong device type, expected %s within %s", wantType, dev.DeviceType)
			return false
		}
	}

	err := d.configureSession(dev, configuration, log)
	switch {
	case err == nil:
		log.Debug("[configure] completed")
		return true
	case isEOF(err):
		// The reload dropped the session; the upload was already
		// committed to startup-config.
		log.Debug("[configure] completed (session closed by reload)")
		return true
	default:
		log.Errorf("[configure] %v", err)
		return false
	}
}

func (d *Driver) configureSession(dev *device.Device, configuration string, log *logrus.Entry) error {
	ses, needLogin, err := d.open(dev, dialTimeout, false)
	if err != nil {
		return err
	}
	defer ses.close()

	if needLogin {
		if err := d.login(ses, dev.Identifier, dialTimeout); err != nil {
			return err
		}
	} else if _, _, err := ses.expect(dialTimeout, prompt(dev.Identifier)); err != nil {
		return err
	}
	log.Debug("[configure] logged in, begin configure")
	if _, err := d.exec(ses, dev.Identifier, "terminal length 0", execTimeout); err != nil {
		return err
	}

	if d.blobs != nil && len(configuration) > maxInlineConfig {
		if err := d.uploadViaBootstrap(ses, dev, configuration, log); err != nil {
			return err
		}
	} else if err := d.uploadViaTclsh(ses, dev, configuration); err != nil {
		return err
	}

	if _, err := d.exec(ses, dev.Identifier, "write", execTimeout); err != nil {
		return err
	}
	if err := ses.send("copy flash:liscain.config.in startup-config", "\n"); err != nil {
		return err
	}
	if _, _, err := ses.expect(execTimeout, reCopyDest); err != nil {
		return err
	}
	if _, err := d.exec(ses, dev.Identifier, "startup-config", startupTimeout); err != nil {
		return err
	}

	return d.reload(ses, dev)
}

// uploadViaTclsh streams the configuration line by line into a flash
// file through the tclsh heredoc trick.
func (d *Driver) uploadViaTclsh(ses *expectSession, dev *device.Device, configuration string) error {
	if _, err := d.exec(ses, dev.Identifier, "tclsh", execTimeout); err != nil {
		return err
	}
	if err := ses.send(`puts [open "flash:liscain.config.in" w+] {`, "\r"); err != nil {
		return err
	}
	if _, _, err := ses.expect(execTimeout, reTclsh); err != nil {
		return err
	}
	for _, line := range strings.Split(configuration, "\n") {
		if err := ses.send(strings.TrimSpace(line), "\r"); err != nil {
			return err
		}
		if _, _, err := ses.expect(execTimeout, reTclsh); err != nil {
			return err
		}
	}
	if _, err := d.exec(ses, dev.Identifier, "}", execTimeout); err != nil {
		return err
	}
	_, err := d.exec(ses, dev.Identifier, "exit", execTimeout)
	return err
}

// uploadViaBootstrap parks the configuration in the ephemeral store and
// lets the switch pull it over the bootstrap file channel.
func (d *Driver) uploadViaBootstrap(ses *expectSession, dev *device.Device, configuration string, log *logrus.Entry) error {
	token, err := d.blobs.Put(configuration)
	if err != nil {
		return err
	}
	log.Infof("[configure] configuration too large for one session, serving as adopt/%s", token)
	cmd := fmt.Sprintf("copy tftp://%s/adopt/%s flash:liscain.config.in", d.cfg.AdoptDN, token)
	if err := ses.send(cmd, "\n"); err != nil {
		return err
	}
	if _, _, err := ses.expect(execTimeout, reCopyDest); err != nil {
		return err
	}
	// Accept the destination filename prompt; the transfer itself may
	// take a while.
	_, err = d.exec(ses, dev.Identifier, "", startupTimeout)
	return err
}

// reload triggers the reboot into the new startup config, answering
// the save-dialog and confirm prompts.
func (d *Driver) reload(ses *expectSession, dev *device.Device) error {
	if err := ses.send("reload", "\n"); err != nil {
		return err
	}
	idx, _, err := ses.expect(execTimeout, reYesNo, reConfirm)
	if err != nil {
		return err
	}
	if idx == 0 {
		time.Sleep(time.Second)
		if err := ses.send("no", "\n"); err != nil {
			return err
		}
		if _, _, err := ses.expect(execTimeout, reConfirm); err != nil {
			return err
		}
	}
	time.Sleep(time.Second)
	if err := ses.send("", "\n"); err != nil {
		return err
	}
	// The switch goes down now; a timeout here is the expected outcome.
	if _, _, err := ses.expect(execTimeout, prompt(dev.Identifier)); err != nil && !isTimeout(err) {
		return err
	}
	return nil
}

// ChangeIdentity renames the switch in-band and persists the new
// identifier. Nothing is persisted unless the in-band rename succeeded.
func (d *Driver) ChangeIdentity(dev *device.Device, identity string) bool {
	log := util.WithDevice(dev.Identifier)

	err := func() error {
		ses, needLogin, err := d.open(dev, dialTimeout, false)
		if err != nil {
			return err
		}
		defer ses.close()

		if needLogin {
			if err := d.login(ses, dev.Identifier, dialTimeout); err != nil {
				return err
			}
		} else if _, _, err := ses.expect(dialTimeout, prompt(dev.Identifier)); err != nil {
			return err
		}
		log.Debug("[change_identity] logged in")
		if _, err := d.exec(ses, dev.Identifier, "terminal length 0", execTimeout); err != nil {
			return err
		}
		if _, err := d.exec(ses, dev.Identifier, "configure terminal", execTimeout); err != nil {
			return err
		}
		// The prompt carries the new hostname from here on.
		if err := ses.send("hostname "+identity, "\n"); err != nil {
			return err
		}
		if _, _, err := ses.expect(execTimeout, prompt(identity)); err != nil {
			return err
		}
		if _, err := d.exec(ses, identity, "end", execTimeout); err != nil {
			return err
		}
		ses.send("exit", "\n")
		log.Debug("[change_identity] logged out")
		return nil
	}()
	if err != nil {
		log.Errorf("[change_identity] %v", err)
		return false
	}

	old := dev.Identifier
	dev.Identifier = identity
	if err := d.store.Save(dev); err != nil {
		dev.Identifier = old
		log.Errorf("[change_identity] persisting identity: %v", err)
		return false
	}
	util.WithDevice(identity).Infof("changed identity -> %s", identity)
	return true
}

// NeighborInfo returns the switch's CDP neighbor dump, or "unknown" on
// transport failure. verbose selects the detail listing the adopters
// parse.
func (d *Driver) NeighborInfo(dev *device.Device, verbose bool) string {
	log := util.WithDevice(dev.Identifier)

	ses, needLogin, err := d.open(dev, neighborDial, false)
	if err != nil {
		log.Infof("timeout getting neighbor info: %v", err)
		return driver.UnknownNeighbors
	}
	defer ses.close()

	out, err := func() (string, error) {
		if needLogin {
			if err := d.login(ses, dev.Identifier, neighborDial); err != nil {
				return "", err
			}
		} else if _, _, err := ses.expect(neighborDial, prompt(dev.Identifier)); err != nil {
			return "", err
		}
		if _, err := d.exec(ses, dev.Identifier, "terminal length 0", execTimeout); err != nil {
			return "", err
		}
		cmd := "show cdp neigh"
		if verbose {
			cmd = "show cdp neighbors detail"
		}
		return d.exec(ses, dev.Identifier, cmd, execTimeout)
	}()
	if err != nil {
		if isEOF(err) {
			log.Info("switch not ready while getting neighbor info")
		} else {
			log.Infof("timeout getting neighbor info")
		}
		return driver.UnknownNeighbors
	}

	if verbose {
		return out
	}
	nbr := []string{"cdp"}
	started := false
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "Device ID") {
			started = true
		}
		if started {
			nbr = append(nbr, line)
		}
	}
	return strings.Join(nbr, "\n")
}
