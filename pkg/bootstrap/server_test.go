package bootstrap

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liscain-net/liscain/internal/testutil"
	"github.com/liscain-net/liscain/pkg/adopter"
	"github.com/liscain-net/liscain/pkg/commander"
	"github.com/liscain-net/liscain/pkg/config"
	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/driver/ciscoios"
	"github.com/liscain-net/liscain/pkg/ephemeral"
)

type capturingAdopter struct {
	adopted chan *device.Device
}

func (c *capturingAdopter) Autoadopt(dev *device.Device) {
	c.adopted <- dev
}

var _ adopter.Adopter = (*capturingAdopter)(nil)

type fixture struct {
	cfg   *config.Config
	store *device.Store
	drv   *testutil.FakeDriver
	cmd   *commander.Commander
	blobs *ephemeral.MemoryStore
	srv   *Server
	adopt *capturingAdopter
}

func newFixture(t *testing.T, autoconf bool) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	drv := testutil.NewFakeDriver()
	drivers := driver.NewRegistry()
	drivers.Register(ciscoios.Class, drv)
	cmd := commander.New()
	t.Cleanup(cmd.Stop)
	blobs := ephemeral.NewMemoryStore(time.Minute)
	t.Cleanup(blobs.Close)
	ad := &capturingAdopter{adopted: make(chan *device.Device, 1)}
	cfg := &config.Config{AutoconfEnabled: autoconf}
	return &fixture{
		cfg:   cfg,
		store: store,
		drv:   drv,
		cmd:   cmd,
		blobs: blobs,
		srv:   NewServer(cfg, store, drivers, cmd, blobs, ad),
		adopt: ad,
	}
}

func waitForState(t *testing.T, store *device.Store, id int64, want device.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		dev, err := store.GetByID(id)
		if err == nil && dev.State == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	dev, _ := store.GetByID(id)
	t.Fatalf("device state = %s, want %s", dev.State, want)
}

func TestServeBootstrapEnrollsDevice(t *testing.T) {
	f := newFixture(t, false)

	content, err := f.srv.Serve("network-confg", "10.0.0.2:1024")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if content != f.drv.BaseConfig {
		t.Errorf("content = %q, want base config", content)
	}

	devices, err := f.store.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 1 {
		t.Fatalf("device count = %d, want 1", len(devices))
	}
	dev := devices[0]
	if dev.Identifier != "lc-02" {
		t.Errorf("identifier = %q, want lc-02", dev.Identifier)
	}
	if dev.Address != "10.0.0.2" {
		t.Errorf("address = %q, want 10.0.0.2", dev.Address)
	}
	if dev.DeviceClass != ciscoios.Class {
		t.Errorf("device class = %q, want %q", dev.DeviceClass, ciscoios.Class)
	}

	// The fetch queued an initialization; the fake driver succeeds.
	waitForState(t, f.store, dev.ID, device.StateReady)
}

func TestServeBootstrapReusesPendingDevice(t *testing.T) {
	f := newFixture(t, false)

	if _, err := f.srv.Serve("network-confg", "10.0.0.2:1024"); err != nil {
		t.Fatal(err)
	}
	// A rebooting switch refetches the file; the duplicate init enqueue
	// conflicts and is swallowed.
	if _, err := f.srv.Serve("switch-confg", "10.0.0.2:2048"); err != nil {
		t.Fatal(err)
	}

	devices, err := f.store.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 1 {
		t.Errorf("device count = %d, want 1", len(devices))
	}
}

func TestServeBootstrapConfiguredDeviceGetsFreshRow(t *testing.T) {
	f := newFixture(t, false)
	old := testutil.NewDevice(t, f.store, "lc-02", device.StateConfigured)

	if _, err := f.srv.Serve("network-confg", "10.0.0.2:1024"); err != nil {
		t.Fatal(err)
	}

	devices, err := f.store.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Fatalf("device count = %d, want 2 (configured row kept)", len(devices))
	}
	kept, err := f.store.GetByID(old.ID)
	if err != nil || kept.State != device.StateConfigured {
		t.Errorf("configured device must be untouched, got %v (%v)", kept, err)
	}
}

func TestServeBootstrapHooksAdopterOnReady(t *testing.T) {
	f := newFixture(t, true)

	if _, err := f.srv.Serve("network-confg", "10.0.0.2:1024"); err != nil {
		t.Fatal(err)
	}

	select {
	case dev := <-f.adopt.adopted:
		if dev.Identifier != "lc-02" {
			t.Errorf("adopted %q, want lc-02", dev.Identifier)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("adopter was not invoked on READY")
	}
}

func TestFirstContactOpt82Adoption(t *testing.T) {
	store := testutil.NewStore(t)
	drv := testutil.NewFakeDriver()
	drv.OnInitialSetup = func(dev *device.Device) {
		dev.MACAddress = "04:fe:7f:07:90:40"
		dev.DeviceType = "WS-C2960X-24PS-L"
		dev.Version = "15.2(4)E5"
	}
	drivers := driver.NewRegistry()
	drivers.Register(ciscoios.Class, drv)
	cmd := commander.New()
	t.Cleanup(cmd.Stop)
	blobs := ephemeral.NewMemoryStore(time.Minute)
	t.Cleanup(blobs.Close)

	cfg := &config.Config{
		AutoconfEnabled:          true,
		AutoconfMode:             "opt82",
		AutoconfPath:             t.TempDir(),
		AutoconfVersionWhitelist: "15.2",
	}
	if err := os.WriteFile(filepath.Join(cfg.AutoconfPath, "spine-42.cfg"), []byte("hostname spine-42\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The operator bound the port; a relay report then bound the MAC.
	if _, err := store.SetAssociation("aa:bb:cc:dd:ee:ff", "gi1/0/1", "spine-42"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateInfo("aa:bb:cc:dd:ee:ff", "gi1/0/1", "04:fe:7f:07:90:40"); err != nil {
		t.Fatal(err)
	}

	adopt := adopter.NewOpt82(cfg, store, drivers, cmd)
	srv := NewServer(cfg, store, drivers, cmd, blobs, adopt)

	if _, err := srv.Serve("network-confg", "10.0.0.2:1024"); err != nil {
		t.Fatal(err)
	}

	// Init runs, the READY hook resolves spine-42, configuration runs.
	devices, err := store.ListAll()
	if err != nil || len(devices) != 1 {
		t.Fatalf("devices = %v (%v)", devices, err)
	}
	waitForState(t, store, devices[0].ID, device.StateConfigured)
	configured, _ := store.GetByID(devices[0].ID)
	if configured.Identifier != "spine-42" {
		t.Errorf("identifier = %q, want spine-42", configured.Identifier)
	}
}

func TestServeAdoptToken(t *testing.T) {
	f := newFixture(t, false)
	token, err := f.blobs.Put("hostname spine-42\n")
	if err != nil {
		t.Fatal(err)
	}

	content, err := f.srv.Serve("adopt/"+token, "10.0.0.2:1024")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if content != "hostname spine-42\n" {
		t.Errorf("content = %q", content)
	}

	if content, _ := f.srv.Serve("adopt/no-such-token", "10.0.0.2:1024"); content != "" {
		t.Errorf("unknown token served %q, want empty", content)
	}
}

func TestServeUnknownNameIsEmpty(t *testing.T) {
	f := newFixture(t, false)
	content, err := f.srv.Serve("vlan.dat", "10.0.0.2:1024")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if content != "" {
		t.Errorf("content = %q, want empty", content)
	}
	if devices, _ := f.store.ListAll(); len(devices) != 0 {
		t.Error("unknown name must not enroll a device")
	}
}

func TestHTTPHandlerServesBlobs(t *testing.T) {
	f := newFixture(t, false)
	token, err := f.blobs.Put("hostname spine-42\n")
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(f.srv.HTTPHandler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/adopt/" + token)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "hostname spine-42\n" {
		t.Errorf("body = %q", body)
	}

	for _, path := range []string{"/adopt/no-such-token", "/etc/passwd", "/"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}
