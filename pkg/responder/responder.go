// Package responder answers inbound M-SEARCH probes with a unicast 200 OK
// carrying the device description URL rewritten for the interface the
// probe was seen on.
package responder

import (
	"context"
	"net"
	"net/url"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"ssdpd/pkg/netif"
	"ssdpd/pkg/ssdp"
)

// bufSize is the fixed receive buffer per spec: 16 KiB.
const bufSize = 16 * 1024

// Config carries the identity advertised back in a search response.
type Config struct {
	USN            string
	DescriptionURL string
	ServerString   string
}

// Sender is the subset of *mcast.Sockets a responder needs to reply; it
// exists so tests can substitute a fake unicast sender.
type Sender interface {
	SendTo(payload []byte, ip net.IP, ifIndex int, dest *net.UDPAddr) error
}

// Responder answers M-SEARCH probes received on one address family.
type Responder struct {
	cfg    Config
	sender Sender
	log    *zap.SugaredLogger
}

// New builds a Responder that replies through sender.
func New(cfg Config, sender Sender, log *zap.SugaredLogger) *Responder {
	return &Responder{cfg: cfg, sender: sender, log: log}
}

// RunV4 reads datagrams from pc until ctx is canceled or a recv error
// terminates the task.
func (r *Responder) RunV4(ctx context.Context, pc *ipv4.PacketConn) error {
	_ = pc.SetControlMessage(ipv4.FlagInterface, true)
	buf := make([]byte, bufSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, cm, src, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		udpSrc, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}
		ifIndex := 0
		if cm != nil {
			ifIndex = cm.IfIndex
		}
		r.handle(buf[:n], udpSrc, ifIndex)
	}
}

// RunV6 reads datagrams from pc until ctx is canceled or a recv error
// terminates the task.
func (r *Responder) RunV6(ctx context.Context, pc *ipv6.PacketConn) error {
	_ = pc.SetControlMessage(ipv6.FlagInterface, true)
	buf := make([]byte, bufSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, cm, src, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		udpSrc, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}
		ifIndex := 0
		if cm != nil {
			ifIndex = cm.IfIndex
		}
		r.handle(buf[:n], udpSrc, ifIndex)
	}
}

// handle parses one inbound datagram and, for a matching M-SEARCH, sends a
// unicast reply. Parse errors and send errors are logged at debug and
// never terminate the caller.
func (r *Responder) handle(buf []byte, src *net.UDPAddr, ifIndex int) {
	msg, err := ssdp.Parse(buf)
	if err != nil {
		r.log.Debugw("parsing inbound datagram", "error", err, "src", src.String())
		return
	}
	if msg.Type != ssdp.TypeMSearch || !msg.MSearch.MatchesMediaServer() {
		return
	}
	if !utf8.ValidString(msg.MSearch.ST) {
		r.log.Debugw("dropping M-SEARCH with invalid UTF-8 ST", "src", src.String())
		return
	}

	localIP, err := LocalIPFor(ifIndex, src.IP)
	if err != nil {
		r.log.Debugw("resolving local IP for requester", "error", err, "src", src.String())
		return
	}

	location, err := rewriteHost(r.cfg.DescriptionURL, localIP)
	if err != nil {
		r.log.Debugw("rewriting description URL host", "error", err)
		return
	}

	payload := ssdp.FormatSearchResponse(ssdp.SearchResponseParams{
		Location: location,
		Server:   r.cfg.ServerString,
		ST:       msg.MSearch.ST,
		USN:      r.cfg.USN,
	})

	if err := r.sender.SendTo(payload, localIP, ifIndex, src); err != nil {
		r.log.Debugw("sending search response", "error", err, "dest", src.String())
	}
}

// LocalIPFor returns the local address that would be used as the source of
// a unicast packet to peer. It first looks for an eligible address on
// ifIndex whose subnet contains peer; if none matches (e.g. the NIC table
// couldn't be read, or peer is reached by routing rather than an
// on-link subnet) it falls back to dialing peer and reading the kernel's
// chosen local address.
func LocalIPFor(ifIndex int, peer net.IP) (net.IP, error) {
	nics, err := netif.List()
	if err == nil {
		for _, nic := range nics {
			if nic.Index != ifIndex {
				continue
			}
			for _, a := range nic.Addrs {
				if !a.Scope.Eligible() {
					continue
				}
				if a.Net != nil && a.Net.Contains(peer) {
					return a.IP, nil
				}
			}
		}
	}

	return dialLocalIP(peer)
}

func dialLocalIP(peer net.IP) (net.IP, error) {
	network := "udp4"
	addr := net.JoinHostPort(peer.String(), "1900")
	if peer.To4() == nil {
		network = "udp6"
	}

	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	local := conn.LocalAddr().(*net.UDPAddr)
	return local.IP, nil
}

func rewriteHost(descriptionURL string, ip net.IP) (string, error) {
	u, err := url.Parse(descriptionURL)
	if err != nil {
		return "", err
	}
	host := ip.String()
	if v4 := ip.To4(); v4 != nil {
		host = v4.String()
	}
	u.Host = net.JoinHostPort(host, u.Port())
	return u.String(), nil
}
