package device

import (
	"errors"
	"testing"

	"github.com/liscain-net/liscain/pkg/util"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func newDevice(t *testing.T, s *Store, identifier, address string) *Device {
	t.Helper()
	dev := &Device{
		Identifier:  identifier,
		Address:     address,
		State:       StateNew,
		DeviceClass: "CiscoIOS",
		DeviceType:  Unknown,
		MACAddress:  Unknown,
		Version:     Unknown,
	}
	if err := s.Create(dev); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return dev
}

func TestDeviceCRUD(t *testing.T) {
	s := openStore(t)
	dev := newDevice(t, s, "lc-02", "10.0.0.2")
	if dev.ID == 0 {
		t.Fatal("Create should backfill the id")
	}

	got, err := s.GetByID(dev.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Identifier != "lc-02" || got.State != StateNew {
		t.Errorf("got %+v", got)
	}

	if _, err := s.GetByID(999); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("GetByID(999) = %v, want ErrNotFound", err)
	}

	devs, err := s.ListAll()
	if err != nil || len(devs) != 1 {
		t.Fatalf("ListAll = %v, %v", devs, err)
	}

	if err := s.Delete(dev.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(dev.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestFindByIdentifierNotInState(t *testing.T) {
	s := openStore(t)
	dev := newDevice(t, s, "lc-02", "10.0.0.2")

	found, err := s.FindByIdentifierNotInState("lc-02", StateConfigured)
	if err != nil {
		t.Fatalf("FindByIdentifierNotInState: %v", err)
	}
	if found.ID != dev.ID {
		t.Errorf("found id %d, want %d", found.ID, dev.ID)
	}

	// A configured device is invisible to the bootstrap lookup; its
	// alias can be reused by a fresh switch.
	if err := s.ChangeState(dev, StateConfigured); err != nil {
		t.Fatalf("ChangeState: %v", err)
	}
	if _, err := s.FindByIdentifierNotInState("lc-02", StateConfigured); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("configured device should not be found, got %v", err)
	}
}

func TestChangeStatePersists(t *testing.T) {
	s := openStore(t)
	dev := newDevice(t, s, "lc-03", "10.0.0.3")

	if err := s.ChangeState(dev, StateInit); err != nil {
		t.Fatalf("ChangeState: %v", err)
	}
	got, err := s.GetByID(dev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateInit {
		t.Errorf("persisted state = %s, want INIT", got.State)
	}
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateNew, StateInit},
		{StateInit, StateInitFailed},
		{StateInit, StateReady},
		{StateInitFailed, StateInit},
		{StateReady, StateConfiguring},
		{StateConfiguring, StateConfigureFailed},
		{StateConfiguring, StateConfigured},
		{StateConfigureFailed, StateConfiguring},
		{StateConfigureFailed, StateInit},
	}
	for _, tr := range allowed {
		if !ValidTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to State }{
		{StateConfigured, StateConfiguring},
		{StateConfigured, StateInit},
		{StateNew, StateReady},
		{StateNew, StateConfiguring},
		{StateReady, StateConfigured},
	}
	for _, tr := range denied {
		if ValidTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s should be denied", tr.from, tr.to)
		}
	}
}

func TestCanInitCanConfigure(t *testing.T) {
	initOK := map[State]bool{
		StateNew: true, StateInit: true, StateInitFailed: true,
		StateReady: true, StateConfigureFailed: true,
		StateConfiguring: false, StateConfigured: false,
	}
	for st, want := range initOK {
		if st.CanInit() != want {
			t.Errorf("%s.CanInit() = %v, want %v", st, st.CanInit(), want)
		}
	}

	confOK := map[State]bool{
		StateReady: true, StateConfigureFailed: true,
		StateNew: false, StateInit: false, StateInitFailed: false,
		StateConfiguring: false, StateConfigured: false,
	}
	for st, want := range confOK {
		if st.CanConfigure() != want {
			t.Errorf("%s.CanConfigure() = %v, want %v", st, st.CanConfigure(), want)
		}
	}
}

func TestSetAssociationUpsert(t *testing.T) {
	s := openStore(t)

	a1, err := s.SetAssociation("AA:BB:CC:00:11:22", "Gi1/0/1", "spine-42")
	if err != nil {
		t.Fatalf("SetAssociation: %v", err)
	}
	if a1.UpstreamSwitchMAC != "aa:bb:cc:00:11:22" || a1.UpstreamPortInfo != "gi1/0/1" {
		t.Errorf("keys not lowercased: %+v", a1)
	}

	// Same port again keeps one row per (upstream mac, port).
	a2, err := s.SetAssociation("aa:bb:cc:00:11:22", "gi1/0/1", "spine-43")
	if err != nil {
		t.Fatalf("SetAssociation update: %v", err)
	}
	if a2.ID != a1.ID {
		t.Errorf("expected upsert on same port, got new row %d vs %d", a2.ID, a1.ID)
	}
	if *a2.DownstreamSwitchName != "spine-43" {
		t.Errorf("name = %q", *a2.DownstreamSwitchName)
	}

	assocs, err := s.ListAssociations()
	if err != nil || len(assocs) != 1 {
		t.Fatalf("ListAssociations = %d rows, err %v", len(assocs), err)
	}
}

func TestUpdateInfo(t *testing.T) {
	s := openStore(t)
	if _, err := s.SetAssociation("aa:bb:cc:00:11:22", "gi1/0/1", "spine-42"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetAssociation("aa:bb:cc:00:11:22", "gi1/0/2", "spine-43"); err != nil {
		t.Fatal(err)
	}

	t.Run("binds mac", func(t *testing.T) {
		if err := s.UpdateInfo("aa:bb:cc:00:11:22", "gi1/0/1", "04:FE:7F:07:90:40"); err != nil {
			t.Fatalf("UpdateInfo: %v", err)
		}
		assoc, err := s.AssociationByDownstreamMAC("04:fe:7f:07:90:40")
		if err != nil {
			t.Fatalf("AssociationByDownstreamMAC: %v", err)
		}
		if assoc.UpstreamPortInfo != "gi1/0/1" {
			t.Errorf("bound to wrong port: %s", assoc.UpstreamPortInfo)
		}
	})

	t.Run("idempotent re-ingest", func(t *testing.T) {
		if err := s.UpdateInfo("aa:bb:cc:00:11:22", "gi1/0/1", "04:fe:7f:07:90:40"); err != nil {
			t.Fatalf("UpdateInfo repeat: %v", err)
		}
		assocs, _ := s.ListAssociations()
		count := 0
		for _, a := range assocs {
			if a.DownstreamSwitchMAC != nil && *a.DownstreamSwitchMAC == "04:fe:7f:07:90:40" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("mac bound to %d rows, want 1", count)
		}
	})

	t.Run("mac moves to new port", func(t *testing.T) {
		// The switch was re-cabled: same MAC now behind gi1/0/2.
		if err := s.UpdateInfo("aa:bb:cc:00:11:22", "gi1/0/2", "04:fe:7f:07:90:40"); err != nil {
			t.Fatalf("UpdateInfo move: %v", err)
		}
		assoc, err := s.AssociationByDownstreamMAC("04:fe:7f:07:90:40")
		if err != nil {
			t.Fatal(err)
		}
		if assoc.UpstreamPortInfo != "gi1/0/2" {
			t.Errorf("mac should have moved to gi1/0/2, is on %s", assoc.UpstreamPortInfo)
		}

		assocs, _ := s.ListAssociations()
		for _, a := range assocs {
			if a.UpstreamPortInfo == "gi1/0/1" && a.DownstreamSwitchMAC != nil {
				t.Error("old row should have been cleared")
			}
		}
	})

	t.Run("unknown port dropped", func(t *testing.T) {
		if err := s.UpdateInfo("ff:ff:ff:ff:ff:ff", "gi9/9/9", "04:fe:7f:07:90:40"); err != nil {
			t.Errorf("unknown port should be a logged no-op, got %v", err)
		}
	})
}

func TestDeleteAssociation(t *testing.T) {
	s := openStore(t)
	a, err := s.SetAssociation("aa:bb:cc:00:11:22", "gi1/0/1", "spine-42")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAssociation(a.ID); err != nil {
		t.Fatalf("DeleteAssociation: %v", err)
	}
	if err := s.DeleteAssociation(a.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}
