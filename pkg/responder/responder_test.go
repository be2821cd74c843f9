package responder

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	calls []fakeSend
	err   error
}

type fakeSend struct {
	payload []byte
	ip      net.IP
	ifIndex int
	dest    *net.UDPAddr
}

func (f *fakeSender) SendTo(payload []byte, ip net.IP, ifIndex int, dest *net.UDPAddr) error {
	f.calls = append(f.calls, fakeSend{payload: append([]byte(nil), payload...), ip: ip, ifIndex: ifIndex, dest: dest})
	return f.err
}

func newTestResponder(sender Sender) *Responder {
	cfg := Config{
		USN:            "uuid:abc",
		DescriptionURL: "http://0.0.0.0:8200/dev.xml",
		ServerString:   "Linux/6 UPnP/1.1 X/1",
	}
	return New(cfg, sender, zap.NewNop().Sugar())
}

func TestHandleRepliesToMatchingMSearch(t *testing.T) {
	sender := &fakeSender{}
	r := newTestResponder(sender)

	raw := []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"ST: urn:schemas-upnp-org:device:MediaServer:1\r\n" +
		"\r\n")
	src := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 38421}

	r.handle(raw, src, 0)

	require.Len(t, sender.calls, 1)
	got := string(sender.calls[0].payload)
	assert.Contains(t, got, "St: urn:schemas-upnp-org:device:MediaServer:1")
	assert.Contains(t, got, "Usn: uuid:abc::urn:schemas-upnp-org:device:MediaServer:1")
	assert.Equal(t, src, sender.calls[0].dest)
}

func TestHandleIgnoresNonMatchingST(t *testing.T) {
	sender := &fakeSender{}
	r := newTestResponder(sender)

	raw := []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"ST: urn:schemas-upnp-org:device:Printer:1\r\n" +
		"\r\n")
	src := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 38421}

	r.handle(raw, src, 0)
	assert.Empty(t, sender.calls)
}

func TestHandleIgnoresMalformedDatagram(t *testing.T) {
	sender := &fakeSender{}
	r := newTestResponder(sender)

	r.handle([]byte("not an http request at all\x00\x01"), &net.UDPAddr{IP: net.ParseIP("127.0.0.1")}, 0)
	assert.Empty(t, sender.calls)
}

func TestLocalIPForFallsBackToLoopbackDial(t *testing.T) {
	ip, err := LocalIPFor(0, net.ParseIP("127.0.0.1"))
	require.NoError(t, err)
	assert.True(t, ip.IsLoopback())
}

func TestRewriteHostPreservesPort(t *testing.T) {
	got, err := rewriteHost("http://0.0.0.0:8200/dev.xml", net.ParseIP("192.168.1.10"))
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.10:8200/dev.xml", got)
}
