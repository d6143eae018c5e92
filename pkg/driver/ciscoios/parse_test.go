package ciscoios

import "testing"

func TestParseConfigHints(t *testing.T) {
	t.Run("device type hint", func(t *testing.T) {
		hints := parseConfigHints("! liscain::device_type C9200\nhostname spine-42\n")
		if hints["device_type"] != "C9200" {
			t.Errorf("hints = %v", hints)
		}
	})

	t.Run("no hints", func(t *testing.T) {
		hints := parseConfigHints("hostname spine-42\n! plain comment\n")
		if len(hints) != 0 {
			t.Errorf("hints = %v", hints)
		}
	})

	t.Run("malformed hint ignored", func(t *testing.T) {
		hints := parseConfigHints("! liscain::device_type\n")
		if len(hints) != 0 {
			t.Errorf("hints = %v", hints)
		}
	})

	t.Run("indented hint", func(t *testing.T) {
		hints := parseConfigHints("  ! liscain::device_type WS-C2960X\n")
		if hints["device_type"] != "WS-C2960X" {
			t.Errorf("hints = %v", hints)
		}
	})
}

func TestHarvestRegexes(t *testing.T) {
	t.Run("svi mac", func(t *testing.T) {
		out := "Vlan1 is up, line protocol is up\n  Hardware is EtherSVI, address is 04fe.7f07.9040 (bia 04fe.7f07.9040)\n"
		m := reSVIMAC.FindStringSubmatch(out)
		if m == nil || m[1] != "04fe.7f07.9040" {
			t.Fatalf("match = %v", m)
		}
	})

	t.Run("pid", func(t *testing.T) {
		out := `NAME: "1", DESCR: "WS-C2960X-24PS-L"` + "\nPID: WS-C2960X-24PS-L , VID: V05  , SN: FOC0000X000\n"
		m := rePID.FindStringSubmatch(out)
		if m == nil || m[1] != "WS-C2960X-24PS-L" {
			t.Fatalf("match = %v", m)
		}
	})

	t.Run("version", func(t *testing.T) {
		out := "Cisco IOS Software, C2960X Software (C2960X-UNIVERSALK9-M), Version 15.2(4)E5, RELEASE SOFTWARE (fc2)\n"
		m := reVersion.FindStringSubmatch(out)
		if m == nil || m[1] != "15.2(4)E5" {
			t.Fatalf("match = %v", m)
		}
	})
}

func TestPromptRegex(t *testing.T) {
	p := prompt("lc-02")
	for _, line := range []string{
		"\r\nlc-02#",
		"\r\nlc-02(config)#",
		"\r\nlc-02(config-if)#",
		"\r\nlc-02(tcl)#",
	} {
		if !p.MatchString(line) {
			t.Errorf("prompt should match %q", line)
		}
	}
	if p.MatchString("\r\nlc-03#") {
		t.Error("prompt should not match another identifier")
	}
	if p.MatchString("lc-02>") {
		t.Error("prompt should not match user-exec mode")
	}
}
