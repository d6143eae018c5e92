package util

import "testing"

func TestPeerAlias(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"10.0.0.1", "lc-01"},
		{"10.0.0.255", "lc-ff"},
		{"10.0.0.2", "lc-02"},
		{"192.168.1.16", "lc-10"},
		{"10.0.0.2:49152", "lc-02"}, // host:port form from UDP peers
		{"not-an-ip", "lc-00"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := PeerAlias(tt.addr); got != tt.want {
				t.Errorf("PeerAlias(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"04fe.7f07.9040", "04:fe:7f:07:90:40"},
		{"04FE.7F07.9040", "04:fe:7f:07:90:40"},
		{"04:fe:7f:07:90:40", "04:fe:7f:07:90:40"},
		{"04fe7f079040", "04:fe:7f:07:90:40"},
		{"04fe.7f07", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeMAC(tt.in); got != tt.want {
			t.Errorf("NormalizeMAC(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVersionAllowed(t *testing.T) {
	t.Run("empty whitelist accepts all", func(t *testing.T) {
		if !VersionAllowed("15.2(4)E5", "") {
			t.Error("empty whitelist should accept any version")
		}
	})

	t.Run("matching prefix", func(t *testing.T) {
		if !VersionAllowed("15.2(4)E5", "15.2") {
			t.Error("15.2 should match 15.2(4)E5")
		}
	})

	t.Run("no matching prefix", func(t *testing.T) {
		if VersionAllowed("15.2(4)E5", "12.,16.") {
			t.Error("12.,16. should not match 15.2(4)E5")
		}
	})

	t.Run("spaces around entries", func(t *testing.T) {
		if !VersionAllowed("16.9.4", "12. , 16.") {
			t.Error("whitelist entries should be trimmed")
		}
	})
}
