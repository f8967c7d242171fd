package main

import "net"

// interfaceAddrs returns the dotted-quad IPv4 addresses of every
// non-loopback interface on this host, used to guess which /24 "scan"
// should default to when the caller doesn't pass --subnets.
func interfaceAddrs() ([]string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		out = append(out, ip4.String())
	}
	return out, nil
}
