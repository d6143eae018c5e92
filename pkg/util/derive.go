package util

import (
	"fmt"
	"net"
	"strings"
)

// PeerAlias derives the deterministic bootstrap identifier for a peer
// address. Switches first contact the controller anonymously, so the
// low-order byte of the peer IPv4 address is the only stable handle we
// have until the real identity is adopted: 10.0.0.1 -> "lc-01",
// 10.0.0.255 -> "lc-ff".
func PeerAlias(addr string) string {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return "lc-00"
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return fmt.Sprintf("lc-%02x", ip[len(ip)-1])
}

// NormalizeMAC converts a Cisco dotted MAC ("04fe.7f07.9040") into the
// canonical colon-separated lower-case form ("04:fe:7f:07:90:40").
// Already-canonical input passes through lowercased. Returns "" if the
// input does not contain 12 hex digits.
func NormalizeMAC(mac string) string {
	hexOnly := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'f':
			return r
		case r >= 'A' && r <= 'F':
			return r + ('a' - 'A')
		}
		return -1
	}, mac)
	if len(hexOnly) != 12 {
		return ""
	}
	parts := make([]string, 6)
	for i := 0; i < 6; i++ {
		parts[i] = hexOnly[i*2 : i*2+2]
	}
	return strings.Join(parts, ":")
}

// VersionAllowed checks a firmware version against a comma-separated
// list of allowed prefixes. An empty whitelist accepts everything.
func VersionAllowed(version, whitelist string) bool {
	if whitelist == "" {
		return true
	}
	for _, prefix := range strings.Split(whitelist, ",") {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" && strings.HasPrefix(version, prefix) {
			return true
		}
	}
	return false
}
