// Package ssdp implements the SSDP wire codec: parsing inbound M-SEARCH
// datagrams and formatting outbound NOTIFY and M-SEARCH-response text.
package ssdp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/textproto"
	"strings"
)

// ErrMissingHeaders is returned when an M-SEARCH request is missing one of
// Host, Man, or St.
var ErrMissingHeaders = errors.New("ssdp: M-SEARCH missing required headers")

// ErrMalformed is returned when the datagram's first line can't be read, or
// its header block fails to parse before any header is recovered.
var ErrMalformed = errors.New("ssdp: malformed datagram")

// Parse interprets buf as either an HTTP response, a generic HTTP request,
// or an M-SEARCH request. Anything not starting with "HTTP/" is treated as
// a request: its first line is not validated, and its first space-separated
// token is taken as the method. SSDP is a permissive transport: a datagram
// whose first line or headers can't be read fails with ErrMalformed rather
// than panicking, and is expected to be dropped by the caller.
func Parse(buf []byte) (Message, error) {
	if bytes.HasPrefix(buf, []byte("HTTP/")) {
		return Message{Type: TypeResponse}, nil
	}

	r := bufio.NewReader(bytes.NewReader(buf))
	tp := textproto.NewReader(r)

	requestLine, err := tp.ReadLine()
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	method := requestLine
	if idx := strings.IndexByte(requestLine, ' '); idx >= 0 {
		method = requestLine[:idx]
	}

	headers, err := tp.ReadMIMEHeader()
	if err != nil && len(headers) == 0 {
		// A missing trailing blank line still leaves a usable header map
		// for a UDP datagram; only a hard parse failure with nothing
		// recovered is fatal.
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !strings.EqualFold(method, "M-SEARCH") {
		return Message{Type: TypeOtherRequest}, nil
	}

	host := headers.Get("Host")
	man := headers.Get("Man")
	st := headers.Get("St")
	if host == "" || man == "" || st == "" {
		return Message{}, ErrMissingHeaders
	}

	return Message{
		Type: TypeMSearch,
		MSearch: MSearchRequest{
			Host: host,
			Man:  man,
			ST:   st,
		},
	}, nil
}

// NotifyParams holds everything needed to render one NOTIFY datagram.
type NotifyParams struct {
	// Host is the destination address without any IPv6 zone id, e.g.
	// "239.255.255.250:1900" or "[ff02::c]:1900".
	Host string
	// Location is the device description URL with its host rewritten to
	// the address reachable from the interface this NOTIFY goes out on.
	Location string
	Kind     Kind
	NTS      string
	Server   string
	USN      string
}

// FormatNotify renders a NOTIFY * HTTP/1.1 advertisement.
func FormatNotify(p NotifyParams) []byte {
	var b strings.Builder
	b.WriteString("NOTIFY * HTTP/1.1\r\n")
	fmt.Fprintf(&b, "Host: %s\r\n", p.Host)
	b.WriteString("Cache-Control: max-age=75\r\n")
	fmt.Fprintf(&b, "Location: %s\r\n", p.Location)
	fmt.Fprintf(&b, "NT: %s\r\n", p.Kind)
	fmt.Fprintf(&b, "NTS: %s\r\n", p.NTS)
	fmt.Fprintf(&b, "Server: %s\r\n", p.Server)
	fmt.Fprintf(&b, "USN: %s::%s\r\n", p.USN, p.Kind)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// SearchResponseParams holds everything needed to render one M-SEARCH
// 200 OK response.
type SearchResponseParams struct {
	// Location is the device description URL with its host rewritten to
	// the local IP reachable from the requester.
	Location string
	Server   string
	// ST echoes the probe's ST header verbatim.
	ST  string
	USN string
}

// FormatSearchResponse renders the unicast 200 OK reply to an M-SEARCH.
func FormatSearchResponse(p SearchResponseParams) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("Cache-Control: max-age=75\r\n")
	b.WriteString("Ext: \r\n")
	fmt.Fprintf(&b, "Location: %s\r\n", p.Location)
	fmt.Fprintf(&b, "Server: %s\r\n", p.Server)
	fmt.Fprintf(&b, "St: %s\r\n", p.ST)
	fmt.Fprintf(&b, "Usn: %s::%s\r\n", p.USN, p.ST)
	b.WriteString("Content-Length: 0\r\n")
	b.WriteString("\r\n")
	return []byte(b.String())
}

// MSearchParams holds everything needed to render an outbound M-SEARCH
// probe.
type MSearchParams struct {
	Host string
	ST   string
}

// FormatMSearch renders an M-SEARCH * HTTP/1.1 probe. This engine only
// sends one of these, once, at startup, to exercise the multicast send
// path end to end; it never waits for or correlates a reply.
func FormatMSearch(p MSearchParams) []byte {
	var b strings.Builder
	b.WriteString("M-SEARCH * HTTP/1.1\r\n")
	fmt.Fprintf(&b, "HOST: %s\r\n", p.Host)
	fmt.Fprintf(&b, "ST: %s\r\n", p.ST)
	b.WriteString("MAN: \"ssdp:discover\"\r\n")
	b.WriteString("MX: 2\r\n")
	b.WriteString("\r\n")
	return []byte(b.String())
}
