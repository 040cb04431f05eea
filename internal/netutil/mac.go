// Package netutil collects small shared helpers used by both the
// pipeline and the controller: MAC-address normalization/
// validation (spec.md §4.4 set_spoof_mode) and interface-name
// validation (spec.md §4.4 set_interface).
package netutil

import "regexp"

var macPattern = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)

// NormalizeMAC upper-cases letters and replaces '-' separators with ':'.
// It inserts no separators and does not validate; call ValidMAC on the
// result.
func NormalizeMAC(mac string) string {
	out := make([]byte, 0, len(mac))
	for i := 0; i < len(mac); i++ {
		c := mac[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c == '-':
			out = append(out, ':')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// ValidMAC reports whether mac matches the uppercase colon-delimited
// form required by spec.md §4.4: ^([0-9A-F]{2}:){5}[0-9A-F]{2}$.
func ValidMAC(mac string) bool {
	return macPattern.MatchString(mac)
}

var interfaceNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,50}$`)

// ValidInterfaceName reports whether name is a legal interface name per
// spec.md §4.4: non-empty and matching [A-Za-z0-9._-]{1,50}.
func ValidInterfaceName(name string) bool {
	return name != "" && interfaceNamePattern.MatchString(name)
}
