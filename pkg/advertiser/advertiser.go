// Package advertiser periodically emits ssdp:alive NOTIFY advertisements
// for the MediaServer and RootDevice identities on every eligible
// interface, and a terminal ssdp:byebye burst on shutdown.
package advertiser

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ssdpd/pkg/mcast"
	"ssdpd/pkg/netif"
	"ssdpd/pkg/ssdp"
)

// Config is the advertiser's static identity: the service it announces and
// how it announces it.
type Config struct {
	USN            string
	DescriptionURL string
	ServerString   string
}

// Advertiser owns no state beyond its config and the sockets it sends on;
// each pass re-enumerates interfaces fresh.
type Advertiser struct {
	cfg     Config
	sockets *mcast.Sockets
	log     *zap.SugaredLogger
}

// New builds an Advertiser bound to sockets.
func New(cfg Config, sockets *mcast.Sockets, log *zap.SugaredLogger) *Advertiser {
	return &Advertiser{cfg: cfg, sockets: sockets, log: log}
}

// Run ticks every interval and fires an alive pass, until ctx is canceled.
func (a *Advertiser) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.Pass(ssdp.NTSAlive)
		}
	}
}

// Byebye performs exactly one departure pass. Callers are responsible for
// ensuring it runs at most once per shutdown.
func (a *Advertiser) Byebye() {
	a.Pass(ssdp.NTSByebye)
}

// Pass enumerates eligible interface addresses, renders a NOTIFY for every
// (target, kind) pair, and sends each exactly once per
// (payload, interface_index, destination) within the pass.
func (a *Advertiser) Pass(nts string) {
	nics, err := netif.List()
	if err != nil {
		a.log.Warnw("enumerating interfaces for advertise pass", "error", err)
		return
	}

	targets := BuildTargets(nics)
	sent := make(map[string]struct{}, len(targets)*len(ssdp.Kinds))

	for _, t := range targets {
		location, err := rewriteHost(a.cfg.DescriptionURL, t.LocalIP)
		if err != nil {
			a.log.Debugw("rewriting description URL host for advertise target",
				"error", err, "local_ip", t.LocalIP.String())
			continue
		}

		for _, kind := range ssdp.Kinds {
			payload := ssdp.FormatNotify(ssdp.NotifyParams{
				Host:     mcast.HostHeader(t.Dest),
				Location: location,
				Kind:     kind,
				NTS:      nts,
				Server:   a.cfg.ServerString,
				USN:      a.cfg.USN,
			})

			key := dedupKey(payload, t.IfIndex, t.Dest)
			if _, dup := sent[key]; dup {
				continue
			}
			sent[key] = struct{}{}

			if err := a.sockets.SendTo(payload, t.LocalIP, t.IfIndex, t.Dest); err != nil {
				a.log.Debugw("sending advertisement", "error", err,
					"if_index", t.IfIndex, "dest", t.Dest.String())
			}
		}
	}
}

func dedupKey(payload []byte, ifIndex int, dest *net.UDPAddr) string {
	return string(payload) + "|" + strconv.Itoa(ifIndex) + "|" + dest.String()
}

// BuildTargets derives one mcast.Target per eligible interface address:
// IPv4-private addresses target the v4 multicast group, link-local IPv6
// addresses target ff02::c, and site-or-global IPv6 addresses target
// ff05::c.
func BuildTargets(nics []netif.NIC) []mcast.Target {
	var targets []mcast.Target

	v4Group := &net.UDPAddr{IP: net.ParseIP(mcast.GroupV4), Port: mcast.Port}
	v6LinkGroup := &net.UDPAddr{IP: net.ParseIP(mcast.GroupV6LinkLocal), Port: mcast.Port}
	v6SiteGroup := &net.UDPAddr{IP: net.ParseIP(mcast.GroupV6SiteLocal), Port: mcast.Port}

	for _, nic := range nics {
		for _, ip := range nic.EligibleV4() {
			targets = append(targets, mcast.Target{LocalIP: ip, IfIndex: nic.Index, Dest: v4Group})
		}
		for _, a := range nic.Addrs {
			switch a.Scope {
			case netif.ScopeV6LinkLocal:
				targets = append(targets, mcast.Target{LocalIP: a.IP, IfIndex: nic.Index, Dest: v6LinkGroup})
			case netif.ScopeV6SiteOrGlobal:
				targets = append(targets, mcast.Target{LocalIP: a.IP, IfIndex: nic.Index, Dest: v6SiteGroup})
			}
		}
	}

	return targets
}

// rewriteHost returns descriptionURL with its host (but not its port)
// replaced by ip, per the invariant that Location: always carries the
// address reachable from the interface a message goes out on.
func rewriteHost(descriptionURL string, ip net.IP) (string, error) {
	u, err := url.Parse(descriptionURL)
	if err != nil {
		return "", fmt.Errorf("parsing description URL %q: %w", descriptionURL, err)
	}
	u.Host = net.JoinHostPort(hostLiteral(ip), u.Port())
	return u.String(), nil
}

func hostLiteral(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}
