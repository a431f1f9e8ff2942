package network

import (
	"fmt"
	"strings"
)

// Transport selects how bytes travel between two nodes.
type Transport int

const (
	FramedTCP Transport = iota
	UDP
	WS
)

var transportNames = map[Transport]string{
	FramedTCP: "framed-tcp",
	UDP:       "udp",
	WS:        "ws",
}

func (t Transport) String() string {
	if name, ok := transportNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Transport(%d)", int(t))
}

// IsConnectionOriented reports whether the transport produces Accepted and
// Disconnected events.
func (t Transport) IsConnectionOriented() bool {
	return t != UDP
}

// ParseTransport accepts the names printed by String, case-insensitively.
func ParseTransport(s string) (Transport, error) {
	for t, name := range transportNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transport %q (want framed-tcp, udp or ws)", s)
}

// Set makes *Transport usable as a command line flag value.
func (t *Transport) Set(s string) error {
	parsed, err := ParseTransport(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Transport) Type() string {
	return "transport"
}
