package network

import (
	"errors"
	"log"
	"net"
)

// udpListener answers every remote address through the same socket.
type udpListener struct {
	pc net.PacketConn
}

func (l *udpListener) send(addr string, data []byte) error {
	if len(data) > MaxDatagramSize {
		return ErrDatagramTooLarge
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	_, err = l.pc.WriteTo(data, raddr)
	return err
}

func (l *udpListener) close() error {
	return l.pc.Close()
}

type udpConn struct {
	conn net.Conn
}

func (c *udpConn) send(_ string, data []byte) error {
	if len(data) > MaxDatagramSize {
		return ErrDatagramTooLarge
	}
	_, err := c.conn.Write(data)
	return err
}

func (c *udpConn) close() error {
	return c.conn.Close()
}

// readUDP delivers datagrams as Message events. A connected socket passes
// the remote address it was dialed with as peer; a listening socket reports
// the sender of every datagram.
func (h *Handler[S]) readUDP(id ResourceID, pc net.PacketConn, peer string) {
	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !h.IsRunning() {
				return
			}
			// Connected UDP sockets report ICMP errors here; the socket
			// itself is still usable.
			log.Printf("Error reading udp: %v", err)
			continue
		}

		addr := peer
		if addr == "" {
			addr = from.String()
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		h.pushNet(NetEvent{Kind: Message, Endpoint: Endpoint{Resource: id, Addr: addr}, Data: data})
	}
}
