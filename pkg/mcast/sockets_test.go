package mcast

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"ssdpd/pkg/netif"
)

func TestHostHeaderStripsIPv6Zone(t *testing.T) {
	dest := &net.UDPAddr{IP: net.ParseIP("ff02::c"), Port: Port, Zone: "3"}
	assert.Equal(t, "[ff02::c]:1900", HostHeader(dest))
}

func TestHostHeaderV4Unaffected(t *testing.T) {
	dest := &net.UDPAddr{IP: net.ParseIP(GroupV4), Port: Port}
	assert.Equal(t, "239.255.255.250:1900", HostHeader(dest))
}

func TestGroupFor(t *testing.T) {
	assert.Equal(t, GroupV4, GroupFor(netif.ScopeV4Private))
	assert.Equal(t, GroupV6LinkLocal, GroupFor(netif.ScopeV6LinkLocal))
	assert.Equal(t, GroupV6SiteLocal, GroupFor(netif.ScopeV6SiteOrGlobal))
}

func TestSendWithoutBindingFails(t *testing.T) {
	s := &Sockets{}
	dest := &net.UDPAddr{IP: net.ParseIP(GroupV4), Port: Port}
	assert.Error(t, s.SendV4([]byte("x"), 1, net.ParseIP("192.168.1.10"), dest))
	assert.Error(t, s.SendV6([]byte("x"), 1, dest))
	assert.NoError(t, s.Close())
}
