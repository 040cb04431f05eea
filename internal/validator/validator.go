// Package validator reproduces the input-gating regexes described in
// spec.md §9 verbatim, for use at the boundary with the (out-of-scope)
// DNS lookup collaborator. Reproduced here rather than re-derived so the
// core and that external tool never disagree on what counts as a valid
// hostname or address.
package validator

import "regexp"

var (
	hostnamePattern = regexp.MustCompile(
		`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*$`)
	ipv4Pattern = regexp.MustCompile(
		`^(25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])(\.(25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])){3}$`)
	ipv6Pattern = regexp.MustCompile(
		`^([0-9A-Fa-f]{1,4}:){7}[0-9A-Fa-f]{1,4}$`)
)

// IsHostname reports whether s is a syntactically valid DNS hostname.
func IsHostname(s string) bool {
	return hostnamePattern.MatchString(s)
}

// IsIPv4 reports whether s is a dotted-decimal IPv4 address.
func IsIPv4(s string) bool {
	return ipv4Pattern.MatchString(s)
}

// IsIPv6 reports whether s is an eight-group colon-form IPv6 address.
func IsIPv6(s string) bool {
	return ipv6Pattern.MatchString(s)
}
