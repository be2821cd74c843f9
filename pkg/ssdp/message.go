package ssdp

// Kind is one of the two UPnP device kinds this engine advertises and
// answers M-SEARCH probes for.
type Kind string

const (
	// KindRootDevice is the generic UPnP root device search target.
	KindRootDevice Kind = "upnp:rootdevice"
	// KindMediaServer is the MediaServer:1 device type search target.
	KindMediaServer Kind = "urn:schemas-upnp-org:device:MediaServer:1"
)

// Kinds lists every device kind this engine advertises in a NOTIFY pass.
var Kinds = []Kind{KindRootDevice, KindMediaServer}

// NTS values.
const (
	NTSAlive  = "ssdp:alive"
	NTSByebye = "ssdp:byebye"
)

// manHeaderDiscover is the exact, quoted MAN header value a conforming
// M-SEARCH discover request carries.
const manHeaderDiscover = `"ssdp:discover"`

// MessageType tags the variant carried by a Message.
type MessageType int

const (
	// TypeMSearch is an M-SEARCH request with Host/Man/St all present.
	TypeMSearch MessageType = iota
	// TypeOtherRequest is any non-M-SEARCH HTTP request (ignored).
	TypeOtherRequest
	// TypeResponse is an HTTP response, i.e. another device's SSDP reply
	// (ignored — this engine never originates M-SEARCH probes it expects
	// an answer to, aside from the best-effort startup probe).
	TypeResponse
)

// MSearchRequest carries the three headers this engine cares about from an
// inbound M-SEARCH.
type MSearchRequest struct {
	Host string
	Man  string
	ST   string
}

// MatchesMediaServer reports whether this M-SEARCH targets the MediaServer
// or RootDevice identity this engine advertises.
func (r MSearchRequest) MatchesMediaServer() bool {
	if r.Man != manHeaderDiscover {
		return false
	}
	switch Kind(r.ST) {
	case KindRootDevice, KindMediaServer:
		return true
	default:
		return false
	}
}

// Message is the parsed, tagged result of Parse. Only MSearch is populated
// when Type == TypeMSearch; the other variants carry no payload because
// this engine never acts on them.
type Message struct {
	Type    MessageType
	MSearch MSearchRequest
}
