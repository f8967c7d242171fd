// Package scanner sweeps one or more /24 subnets for reachable servers
// by attempting a short-timeout TCP connect to every host address
// (spec.md §4.9).
package scanner

import (
	"fmt"
	"strconv"
	"strings"
)

// Subnet is the first three octets of an IPv4 /24 range.
type Subnet struct {
	A, B, C byte
}

func (s Subnet) String() string {
	return fmt.Sprintf("%d.%d.%d.0/24", s.A, s.B, s.C)
}

// Base returns the dotted prefix ("a.b.c.") every host address in the
// subnet is built from.
func (s Subnet) Base() string {
	return fmt.Sprintf("%d.%d.%d.", s.A, s.B, s.C)
}

// Addr returns the full dotted-quad address for host octet last.
func (s Subnet) Addr(last byte) string {
	return fmt.Sprintf("%d.%d.%d.%d", s.A, s.B, s.C, last)
}

// ParseSubnet accepts "A.B.C", "A.B.C.D", or "A.B.C.D/nn" (the CIDR
// suffix and fourth octet are accepted but ignored — only the /24
// boundary is ever scanned) and returns the subnet's first three
// octets.
func ParseSubnet(s string) (Subnet, bool) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) < 3 {
		return Subnet{}, false
	}
	a, okA := parseOctet(parts[0])
	b, okB := parseOctet(parts[1])
	c, okC := parseOctet(parts[2])
	if !okA || !okB || !okC {
		return Subnet{}, false
	}
	return Subnet{A: a, B: b, C: c}, true
}

func parseOctet(s string) (byte, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return 0, false
	}
	return byte(n), true
}

// ParseSubnets splits input on comma, space, or semicolon and parses
// each token with ParseSubnet, silently dropping tokens that don't
// parse — the original this is ported from behaves the same way, since
// a typo in one subnet shouldn't abort scanning the rest.
func ParseSubnets(input string) []Subnet {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var subnets []Subnet
	for _, f := range fields {
		if subnet, ok := ParseSubnet(strings.TrimSpace(f)); ok {
			subnets = append(subnets, subnet)
		}
	}
	return subnets
}
