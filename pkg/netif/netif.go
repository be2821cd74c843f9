// Package netif enumerates local network interfaces and classifies their
// addresses for SSDP multicast eligibility.
package netif

import (
	"fmt"
	"net"
)

// ScopeClass categorizes an interface address for advertising/responding
// eligibility.
type ScopeClass int

const (
	// ScopeUnknown is the zero value and is never eligible.
	ScopeUnknown ScopeClass = iota
	// ScopeV4Private is a private (RFC 1918) non-loopback IPv4 address.
	ScopeV4Private
	// ScopeV4Other is any other IPv4 address (public, CGNAT, etc).
	ScopeV4Other
	// ScopeV6LinkLocal is an fe80::/64 IPv6 address (see IsLinkLocalV6).
	ScopeV6LinkLocal
	// ScopeV6SiteOrGlobal is any non-loopback, non-link-local IPv6 address.
	ScopeV6SiteOrGlobal
	// ScopeLoopback is a loopback address of either family.
	ScopeLoopback
)

// Eligible reports whether addresses of this scope class may be used for
// advertising and responding.
func (c ScopeClass) Eligible() bool {
	switch c {
	case ScopeV4Private, ScopeV6LinkLocal, ScopeV6SiteOrGlobal:
		return true
	default:
		return false
	}
}

// Addr is a single classified address on an interface.
type Addr struct {
	IP    net.IP
	Net   *net.IPNet
	Scope ScopeClass
}

// NIC describes a network interface and its addresses.
type NIC struct {
	Index int
	Name  string
	Addrs []Addr
}

// List enumerates the OS's network interfaces and classifies every address
// on them. It reads the OS NIC table fresh on every call; nothing is
// cached. Interfaces whose address list can't be read are skipped rather
// than failing the whole call.
func List() ([]NIC, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing network interfaces: %w", err)
	}

	nics := make([]NIC, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		nic := NIC{Index: iface.Index, Name: iface.Name}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			nic.Addrs = append(nic.Addrs, Addr{
				IP:    ipNet.IP,
				Net:   ipNet,
				Scope: Classify(ipNet.IP),
			})
		}
		nics = append(nics, nic)
	}

	return nics, nil
}

// Classify assigns a ScopeClass to a single IP address.
func Classify(ip net.IP) ScopeClass {
	if ip.IsLoopback() {
		return ScopeLoopback
	}

	if v4 := ip.To4(); v4 != nil {
		if v4.IsPrivate() {
			return ScopeV4Private
		}
		return ScopeV4Other
	}

	if IsLinkLocalV6(ip) {
		return ScopeV6LinkLocal
	}
	return ScopeV6SiteOrGlobal
}

// IsLinkLocalV6 reports whether ip is an IPv6 link-local address by the
// classification rule this engine uses: first 16-bit segment 0xfe80 and
// segments 2-4 zero, i.e. fe80::/64. This is narrower than fe80::/10 and
// the net.IP.IsLinkLocalUnicast check (fe81::1 is not link-local here).
func IsLinkLocalV6(ip net.IP) bool {
	ip16 := ip.To16()
	if ip16 == nil || ip.To4() != nil {
		return false
	}
	return ip16[0] == 0xfe && ip16[1] == 0x80 &&
		ip16[2] == 0 && ip16[3] == 0 &&
		ip16[4] == 0 && ip16[5] == 0 &&
		ip16[6] == 0 && ip16[7] == 0
}

// EligibleV4 returns the NIC's private, non-loopback IPv4 addresses.
func (n NIC) EligibleV4() []net.IP {
	var out []net.IP
	for _, a := range n.Addrs {
		if a.Scope == ScopeV4Private {
			out = append(out, a.IP)
		}
	}
	return out
}

// HasEligibleLinkLocalV6 reports whether the NIC carries a non-loopback
// link-local IPv6 address.
func (n NIC) HasEligibleLinkLocalV6() bool {
	for _, a := range n.Addrs {
		if a.Scope == ScopeV6LinkLocal {
			return true
		}
	}
	return false
}

// HasEligibleSiteOrGlobalV6 reports whether the NIC carries a non-loopback
// site-local or global IPv6 address.
func (n NIC) HasEligibleSiteOrGlobalV6() bool {
	for _, a := range n.Addrs {
		if a.Scope == ScopeV6SiteOrGlobal {
			return true
		}
	}
	return false
}
