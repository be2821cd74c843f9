// Package mcast owns the IPv4 and IPv6 SSDP multicast UDP endpoints: bind
// with address/port reuse, multicast group membership per eligible
// interface, and per-packet outgoing-interface selection.
package mcast

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"ssdpd/pkg/netif"
)

// Port is the well-known SSDP UDP port.
const Port = 1900

// Multicast group addresses, per spec.
const (
	GroupV4          = "239.255.255.250"
	GroupV6LinkLocal = "ff02::c"
	GroupV6SiteLocal = "ff05::c"
)

// Sockets owns at most one IPv4 and one IPv6 SSDP endpoint. Either may be
// nil if binding that family failed; callers tolerate the absence of one.
type Sockets struct {
	V4 *ipv4.PacketConn
	V6 *ipv6.PacketConn
}

// Bind creates and configures both family sockets, joining multicast
// groups on every eligible interface found via netif.List. It returns an
// error only when both families fail to bind; a single-family failure is
// logged and tolerated.
func Bind(ctx context.Context, log *zap.SugaredLogger) (*Sockets, error) {
	nics, err := netif.List()
	if err != nil {
		log.Warnw("enumerating interfaces before bind", "error", err)
	}

	s := &Sockets{}

	v4, errV4 := bindV4(ctx, nics)
	if errV4 != nil {
		log.Warnw("failed to bind IPv4 SSDP socket", "error", errV4)
	} else {
		s.V4 = v4
	}

	v6, errV6 := bindV6(ctx, nics)
	if errV6 != nil {
		log.Warnw("failed to bind IPv6 SSDP socket", "error", errV6)
	} else {
		s.V6 = v6
	}

	if s.V4 == nil && s.V6 == nil {
		return nil, fmt.Errorf("ssdp: could not bind either IPv4 (%v) or IPv6 (%v) socket", errV4, errV6)
	}
	return s, nil
}

func bindV4(ctx context.Context, nics []netif.NIC) (*ipv4.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseAddrAndPort}
	pc, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf("0.0.0.0:%d", Port))
	if err != nil {
		return nil, fmt.Errorf("binding 0.0.0.0:%d: %w", Port, err)
	}
	conn := pc.(*net.UDPConn)
	_ = conn.SetReadBuffer(65536)

	p := ipv4.NewPacketConn(conn)
	group := &net.UDPAddr{IP: net.ParseIP(GroupV4)}

	// Joining on the unspecified interface lets the kernel pick a default;
	// eligible interfaces are joined explicitly below regardless.
	_ = p.JoinGroup(nil, group)

	for _, nic := range nics {
		if len(nic.EligibleV4()) == 0 {
			continue
		}
		ifi, err := net.InterfaceByIndex(nic.Index)
		if err != nil {
			continue
		}
		_ = p.JoinGroup(ifi, group)
	}

	return p, nil
}

func bindV6(ctx context.Context, nics []netif.NIC) (*ipv6.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseAddrAndPort}
	pc, err := lc.ListenPacket(ctx, "udp6", fmt.Sprintf("[::]:%d", Port))
	if err != nil {
		return nil, fmt.Errorf("binding [::]:%d: %w", Port, err)
	}
	conn := pc.(*net.UDPConn)
	_ = conn.SetReadBuffer(65536)

	p := ipv6.NewPacketConn(conn)

	for _, nic := range nics {
		ifi, err := net.InterfaceByIndex(nic.Index)
		if err != nil {
			continue
		}
		if nic.HasEligibleLinkLocalV6() {
			_ = p.JoinGroup(ifi, &net.UDPAddr{IP: net.ParseIP(GroupV6LinkLocal)})
		}
		if nic.HasEligibleSiteOrGlobalV6() {
			_ = p.JoinGroup(ifi, &net.UDPAddr{IP: net.ParseIP(GroupV6SiteLocal)})
		}
	}

	return p, nil
}

// Target is a single (outgoing interface, destination) pair an
// advertisement or probe is sent to.
type Target struct {
	LocalIP net.IP
	IfIndex int
	Dest    *net.UDPAddr
}

// GroupFor returns the multicast group address for an interface address of
// the given scope: the IPv4 group for ScopeV4Private, the IPv6 link-local
// group for ScopeV6LinkLocal, and the IPv6 site-local group for every other
// scope class (ineligible ones included).
func GroupFor(scope netif.ScopeClass) string {
	switch scope {
	case netif.ScopeV4Private:
		return GroupV4
	case netif.ScopeV6LinkLocal:
		return GroupV6LinkLocal
	default:
		return GroupV6SiteLocal
	}
}

// HostHeader renders dest without any IPv6 zone id, e.g.
// "239.255.255.250:1900" or "[ff02::c]:1900", for use in the SSDP Host:
// header.
func HostHeader(dest *net.UDPAddr) string {
	d := *dest
	d.Zone = ""
	return d.String()
}

// SendV4 transmits payload out the interface identified by ifIndex and
// localIP, pinning the outgoing interface with a per-packet ControlMessage
// (IfIndex and Src), the golang.org/x/net counterpart of setting
// IP_MULTICAST_IF with setsockopt immediately before each send.
func (s *Sockets) SendV4(payload []byte, ifIndex int, localIP net.IP, dest *net.UDPAddr) error {
	if s.V4 == nil {
		return fmt.Errorf("ssdp: no IPv4 socket bound")
	}
	cm := &ipv4.ControlMessage{IfIndex: ifIndex, Src: localIP.To4()}
	_, err := s.V4.WriteTo(payload, cm, dest)
	return err
}

// SendV6 transmits payload out the interface identified by ifIndex. For
// IPv6 the outgoing interface is selected by the zone id embedded in the
// destination address rather than a per-send control message.
func (s *Sockets) SendV6(payload []byte, ifIndex int, dest *net.UDPAddr) error {
	if s.V6 == nil {
		return fmt.Errorf("ssdp: no IPv6 socket bound")
	}
	d := *dest
	d.Zone = strconv.Itoa(ifIndex)
	_, err := s.V6.WriteTo(payload, nil, &d)
	return err
}

// SendTo picks the correct family socket for ip and sends payload out
// ifIndex to dest.
func (s *Sockets) SendTo(payload []byte, ip net.IP, ifIndex int, dest *net.UDPAddr) error {
	if ip.To4() != nil {
		return s.SendV4(payload, ifIndex, ip, dest)
	}
	return s.SendV6(payload, ifIndex, dest)
}

// Close closes both sockets. It is safe to call when either is nil.
func (s *Sockets) Close() error {
	var err error
	if s.V4 != nil {
		if e := s.V4.Close(); e != nil {
			err = e
		}
	}
	if s.V6 != nil {
		if e := s.V6.Close(); e != nil {
			err = e
		}
	}
	return err
}
