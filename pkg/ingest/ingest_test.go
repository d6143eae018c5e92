package ingest

import (
	"testing"

	"github.com/liscain-net/liscain/internal/testutil"
)

func TestHandleMessageBindsMAC(t *testing.T) {
	store := testutil.NewStore(t)
	if _, err := store.SetAssociation("AA:BB:CC:DD:EE:FF", "GigabitEthernet1/0/7", "spine-42"); err != nil {
		t.Fatal(err)
	}
	l := NewListener(store)

	l.handleMessage([]byte(`{
		"upstream_switch_mac": "AA:BB:CC:DD:EE:FF",
		"upstream_port_info": "GigabitEthernet1/0/7",
		"downstream_switch_mac": "04:FE:7F:07:90:40"
	}`), "10.0.0.9:5000")

	assoc, err := store.AssociationByDownstreamMAC("04:fe:7f:07:90:40")
	if err != nil {
		t.Fatalf("association not bound: %v", err)
	}
	if assoc.DownstreamSwitchName == nil || *assoc.DownstreamSwitchName != "spine-42" {
		t.Errorf("association name = %v, want spine-42", assoc.DownstreamSwitchName)
	}
}

func TestHandleMessageIncompleteDropped(t *testing.T) {
	store := testutil.NewStore(t)
	if _, err := store.SetAssociation("aa:bb:cc:dd:ee:ff", "gi1/0/7", "spine-42"); err != nil {
		t.Fatal(err)
	}
	l := NewListener(store)

	incomplete := [][]byte{
		[]byte(`{"upstream_port_info": "gi1/0/7", "downstream_switch_mac": "04:fe:7f:07:90:40"}`),
		[]byte(`{"upstream_switch_mac": "aa:bb:cc:dd:ee:ff", "downstream_switch_mac": "04:fe:7f:07:90:40"}`),
		[]byte(`{"upstream_switch_mac": "aa:bb:cc:dd:ee:ff", "upstream_port_info": "gi1/0/7"}`),
		[]byte(`not json`),
	}
	for _, msg := range incomplete {
		l.handleMessage(msg, "10.0.0.9:5000")
	}

	if _, err := store.AssociationByDownstreamMAC("04:fe:7f:07:90:40"); err == nil {
		t.Error("incomplete messages must not bind an association")
	}
}

func TestHandleMessageUnknownPortIsNoOp(t *testing.T) {
	store := testutil.NewStore(t)
	l := NewListener(store)

	// No association row for this port exists; the sighting is logged
	// and dropped without creating one.
	l.handleMessage([]byte(`{
		"upstream_switch_mac": "aa:bb:cc:dd:ee:ff",
		"upstream_port_info": "gi1/0/7",
		"downstream_switch_mac": "04:fe:7f:07:90:40"
	}`), "10.0.0.9:5000")

	assocs, err := store.ListAssociations()
	if err != nil {
		t.Fatal(err)
	}
	if len(assocs) != 0 {
		t.Errorf("association count = %d, want 0", len(assocs))
	}
}
