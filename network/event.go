package network

import (
	"fmt"
	"net"
)

// ResourceID identifies a listener or a connection owned by a Handler.
type ResourceID uint64

// Endpoint identifies a remote peer. It is comparable and can be used as a
// map key. Connection-oriented peers get a Resource of their own; UDP peers
// share the Resource of the socket that received from them and are told
// apart by Addr.
type Endpoint struct {
	Resource ResourceID
	Addr     string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s#%d", e.Addr, e.Resource)
}

type NetEventKind int

const (
	// Connected is the outcome of a Handler.Connect call.
	Connected NetEventKind = iota
	// Accepted is produced when a connection-oriented listener accepts a peer.
	Accepted
	Message
	// Disconnected is produced when a connection-oriented peer goes away.
	Disconnected
)

func (k NetEventKind) String() string {
	switch k {
	case Connected:
		return "Connected"
	case Accepted:
		return "Accepted"
	case Message:
		return "Message"
	case Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

type NetEvent struct {
	Kind     NetEventKind
	Endpoint Endpoint

	// Listener is the resource that accepted the peer (Accepted only).
	Listener ResourceID

	// Established and LocalAddr describe the outcome of Connect
	// (Connected only).
	Established bool
	LocalAddr   net.Addr

	// Data is one received message (Message only).
	Data []byte
}

// Event is either a network event or a signal the node sent to itself.
// Network is nil for signals.
type Event[S any] struct {
	Network *NetEvent
	Signal  S
}
