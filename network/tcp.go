package network

import (
	"bufio"
	"errors"
	"io"
	"log"
	"net"
	"time"
)

type tcpListener struct {
	ln net.Listener
}

func (l *tcpListener) send(string, []byte) error {
	return errors.New("network: cannot send to a listener")
}

func (l *tcpListener) close() error {
	return l.ln.Close()
}

type tcpConn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	out  *outbox
}

func newTCPConn(conn net.Conn) *tcpConn {
	c := &tcpConn{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
	c.out = startOutbox(conn.RemoteAddr().String(), c.write, conn.Close)
	return c
}

func (c *tcpConn) send(_ string, data []byte) error {
	if len(data) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	return c.out.push(data)
}

// write runs on the outbox goroutine only.
func (c *tcpConn) write(data []byte, more bool) error {
	c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if err := WriteFrame(c.w, data); err != nil {
		return err
	}
	if more {
		return nil
	}
	return c.w.Flush()
}

func (c *tcpConn) close() error {
	return c.out.close()
}

func (h *Handler[S]) acceptTCP(listener ResourceID, ln net.Listener) {
	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			log.Printf("Error accepting: %v; retrying in %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		endpoint := Endpoint{Resource: h.newID(), Addr: conn.RemoteAddr().String()}
		c := newTCPConn(conn)
		if !h.register(endpoint.Resource, c) {
			c.close()
			return
		}
		h.pushNet(NetEvent{Kind: Accepted, Endpoint: endpoint, Listener: listener})
		go h.readTCP(endpoint, c)
	}
}

func (h *Handler[S]) readTCP(endpoint Endpoint, c *tcpConn) {
	for {
		data, err := ReadFrame(c.r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("Error reading from %s: %v", endpoint.Addr, err)
			}
			h.closed(endpoint)
			return
		}
		h.pushNet(NetEvent{Kind: Message, Endpoint: endpoint, Data: data})
	}
}
