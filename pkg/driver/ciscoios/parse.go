package ciscoios

import (
	"regexp"
	"strings"
)

var (
	// Hardware is EtherSVI, address is 04fe.7f07.9040 (bia ...)
	reSVIMAC = regexp.MustCompile(`EtherSVI, address is ([0-9a-f.]+)`)

	// PID: WS-C2960X-24PS-L , VID: V05 , SN: ...
	rePID = regexp.MustCompile(`PID: ([^\s]+)`)

	// Cisco IOS Software, ... Version 15.2(4)E5, RELEASE SOFTWARE ...
	reVersion = regexp.MustCompile(`Cisco IOS.+Version ([^\s]+), `)
)

// parseConfigHints extracts controller directives from a configuration
// blob. Hints are comment lines of the form:
//
//	! liscain::device_type C9200
//
// They are consumed before any byte is pushed to the switch.
func parseConfigHints(configuration string) map[string]string {
	hints := make(map[string]string)
	for _, line := range strings.Split(configuration, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "! liscain::") {
			continue
		}
		rest := line[strings.LastIndex(line, "::")+2:]
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			continue
		}
		hints[fields[0]] = fields[1]
	}
	return hints
}
