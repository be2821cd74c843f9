package ssdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMSearch_MediaServerMatch(t *testing.T) {
	raw := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 2\r\n" +
		"ST: urn:schemas-upnp-org:device:MediaServer:1\r\n" +
		"\r\n"

	msg, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, TypeMSearch, msg.Type)
	assert.Equal(t, "239.255.255.250:1900", msg.MSearch.Host)
	assert.Equal(t, `"ssdp:discover"`, msg.MSearch.Man)
	assert.Equal(t, "urn:schemas-upnp-org:device:MediaServer:1", msg.MSearch.ST)
	assert.True(t, msg.MSearch.MatchesMediaServer())
}

func TestParseMSearch_NonMatchingST(t *testing.T) {
	raw := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"ST: urn:schemas-upnp-org:device:Printer:1\r\n" +
		"\r\n"

	msg, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, TypeMSearch, msg.Type)
	assert.False(t, msg.MSearch.MatchesMediaServer())
}

func TestParseMSearch_MalformedMan(t *testing.T) {
	raw := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: ssdp:discover\r\n" +
		"ST: urn:schemas-upnp-org:device:MediaServer:1\r\n" +
		"\r\n"

	msg, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.False(t, msg.MSearch.MatchesMediaServer())
}

func TestParseMSearch_MissingST(t *testing.T) {
	raw := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"\r\n"

	_, err := Parse([]byte(raw))
	assert.ErrorIs(t, err, ErrMissingHeaders)
}

func TestParseMSearch_HeaderCaseInsensitive(t *testing.T) {
	raw := "M-SEARCH * HTTP/1.1\r\n" +
		"host: 239.255.255.250:1900\r\n" +
		"man: \"ssdp:discover\"\r\n" +
		"st: upnp:rootdevice\r\n" +
		"\r\n"

	msg, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "upnp:rootdevice", msg.MSearch.ST)
	assert.True(t, msg.MSearch.MatchesMediaServer())
}

func TestParse_OtherRequestIgnored(t *testing.T) {
	raw := "NOTIFY * HTTP/1.1\r\nHOST: 239.255.255.250:1900\r\n\r\n"
	msg, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, TypeOtherRequest, msg.Type)
}

func TestParse_ResponseIgnored(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nST: upnp:rootdevice\r\n\r\n"
	msg, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, TypeResponse, msg.Type)
}

func TestFormatSearchResponse_S1Scenario(t *testing.T) {
	got := FormatSearchResponse(SearchResponseParams{
		Location: "http://192.168.1.10:8200/dev.xml",
		Server:   "Linux/6 UPnP/1.1 X/1",
		ST:       "urn:schemas-upnp-org:device:MediaServer:1",
		USN:      "uuid:abc",
	})

	want := "HTTP/1.1 200 OK\r\n" +
		"Cache-Control: max-age=75\r\n" +
		"Ext: \r\n" +
		"Location: http://192.168.1.10:8200/dev.xml\r\n" +
		"Server: Linux/6 UPnP/1.1 X/1\r\n" +
		"St: urn:schemas-upnp-org:device:MediaServer:1\r\n" +
		"Usn: uuid:abc::urn:schemas-upnp-org:device:MediaServer:1\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"

	assert.Equal(t, want, string(got))
}

func TestFormatNotify(t *testing.T) {
	got := FormatNotify(NotifyParams{
		Host:     "239.255.255.250:1900",
		Location: "http://192.168.1.10:8200/dev.xml",
		Kind:     KindMediaServer,
		NTS:      NTSAlive,
		Server:   "Linux/6 UPnP/1.1 X/1",
		USN:      "uuid:abc",
	})

	want := "NOTIFY * HTTP/1.1\r\n" +
		"Host: 239.255.255.250:1900\r\n" +
		"Cache-Control: max-age=75\r\n" +
		"Location: http://192.168.1.10:8200/dev.xml\r\n" +
		"NT: urn:schemas-upnp-org:device:MediaServer:1\r\n" +
		"NTS: ssdp:alive\r\n" +
		"Server: Linux/6 UPnP/1.1 X/1\r\n" +
		"USN: uuid:abc::urn:schemas-upnp-org:device:MediaServer:1\r\n" +
		"\r\n"

	assert.Equal(t, want, string(got))
}

func TestRoundTripMSearch(t *testing.T) {
	formatted := FormatMSearch(MSearchParams{
		Host: "239.255.255.250:1900",
		ST:   string(KindMediaServer),
	})

	msg, err := Parse(formatted)
	require.NoError(t, err)
	require.Equal(t, TypeMSearch, msg.Type)
	assert.Equal(t, "239.255.255.250:1900", msg.MSearch.Host)
	assert.Equal(t, `"ssdp:discover"`, msg.MSearch.Man)
	assert.Equal(t, string(KindMediaServer), msg.MSearch.ST)
}
