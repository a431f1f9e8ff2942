package network

import (
	"errors"
	"log"
	"net"
	"sync"
	"time"
)

const (
	// SendQueueSize is how many messages a connection may have waiting to
	// be written. A peer that lets it fill up is disconnected.
	SendQueueSize = 256

	// WriteTimeout bounds a single write to a connection.
	WriteTimeout = 5 * time.Second
)

var ErrSendQueueFull = errors.New("network: send queue full")

// outbox decouples Send from the socket: messages are queued and written by
// a goroutine of their own, so a peer that does not read never blocks the
// event loop. Any write failure closes the connection, which makes its
// reader produce the Disconnected event.
type outbox struct {
	addr      string
	queue     chan []byte
	done      chan struct{}
	once      sync.Once
	closeConn func() error
}

// startOutbox runs write for every queued message. more reports whether
// further messages are already waiting, so buffered writers can delay
// flushing.
func startOutbox(addr string, write func(data []byte, more bool) error, closeConn func() error) *outbox {
	o := &outbox{
		addr:      addr,
		queue:     make(chan []byte, SendQueueSize),
		done:      make(chan struct{}),
		closeConn: closeConn,
	}
	go o.run(write)
	return o
}

func (o *outbox) push(data []byte) error {
	select {
	case <-o.done:
		return net.ErrClosed
	default:
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	select {
	case o.queue <- buf:
		return nil
	default:
		log.Printf("Send queue to %s is full, disconnecting", o.addr)
		o.close()
		return ErrSendQueueFull
	}
}

func (o *outbox) run(write func(data []byte, more bool) error) {
	for {
		select {
		case data := <-o.queue:
			if err := write(data, len(o.queue) > 0); err != nil {
				if !errors.Is(err, net.ErrClosed) {
					log.Printf("Error writing to %s: %v", o.addr, err)
				}
				o.close()
				return
			}
		case <-o.done:
			return
		}
	}
}

func (o *outbox) close() error {
	var err error
	o.once.Do(func() {
		close(o.done)
		err = o.closeConn()
	})
	return err
}
