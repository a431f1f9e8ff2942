package client

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/fakuventuri/game-server-client/message"
	"github.com/fakuventuri/game-server-client/network"
)

const (
	DefaultAddr     = "127.0.0.1:8282"
	DefaultInterval = time.Second
)

var (
	ErrConnectFailed     = errors.New("can not connect to server")
	ErrProtocolViolation = errors.New("protocol violation")
)

type Config struct {
	Transport network.Transport
	Addr      string

	// Interval between two pings. The next ping is scheduled once the
	// previous one was sent, so processing time adds to it.
	Interval time.Duration

	// OnReply, when set, is called from the event loop with every reply.
	OnReply func(message.ServerMessage)
}

type signal int

// greet is the self-event that sends a ping.
const greet signal = iota

type Client struct {
	config   Config
	handler  *network.Handler[signal]
	listener *network.Listener[signal]
	server   network.Endpoint

	err error
}

func New(config Config) *Client {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}

	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	handler, listener := network.Split[signal]()
	return &Client{
		config:   config,
		handler:  handler,
		listener: listener,
	}
}

// Run connects and pings the server until Stop is called or the server
// disconnects. It returns ErrConnectFailed when the connection could not be
// established and ErrProtocolViolation when a reply does not decode.
func (c *Client) Run() error {
	c.server = c.handler.Connect(c.config.Transport, c.config.Addr)

	c.listener.ForEach(func(ev network.Event[signal]) {
		if err := c.handle(ev); err != nil {
			c.err = err
			c.handler.Stop()
		}
	})

	return c.err
}

// Stop ends Run without sending further pings.
func (c *Client) Stop() {
	c.handler.Stop()
}

func (c *Client) handle(ev network.Event[signal]) error {
	if ev.Network == nil {
		switch ev.Signal {
		case greet:
			if err := c.handler.Send(c.server, message.EncodeClient(message.Ping)); err != nil {
				log.Printf("Error sending ping: %v", err)
			}
			c.handler.Signals().SendWithTimer(greet, c.config.Interval)
		}
		return nil
	}

	switch nev := ev.Network; nev.Kind {
	case network.Connected:
		if !nev.Established {
			log.Printf("Can not connect to server at %s by %s", c.config.Addr, c.config.Transport)
			return fmt.Errorf("%w at %s by %s", ErrConnectFailed, c.config.Addr, c.config.Transport)
		}
		log.Printf("Connected to server at %s by %s", nev.Endpoint.Addr, c.config.Transport)
		if _, port, err := net.SplitHostPort(nev.LocalAddr.String()); err == nil {
			log.Printf("Client identified by local port: %s", port)
		}
		c.handler.Signals().Send(greet)

	case network.Accepted:
		// Only generated by listeners.

	case network.Message:
		reply, err := message.DecodeServer(nev.Data)
		if err != nil {
			return fmt.Errorf("%w: reply from %s: %w", ErrProtocolViolation, nev.Endpoint.Addr, err)
		}
		if reply.Unknown {
			log.Println("Pong from server")
		} else {
			log.Printf("Pong from server: %d times", reply.Count)
		}
		if c.config.OnReply != nil {
			c.config.OnReply(reply)
		}

	case network.Disconnected:
		log.Println("Server is disconnected")
		c.handler.Stop()
	}
	return nil
}
