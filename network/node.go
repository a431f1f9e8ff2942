package network

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// DialTimeout bounds how long Connect waits before reporting a failed
// Connected event.
const DialTimeout = 5 * time.Second

var (
	ErrResourceNotFound = errors.New("network: resource not found")
	ErrStopped          = errors.New("network: node stopped")
)

// resource is a listener or connection registered in a Handler.
type resource interface {
	// send delivers data to addr. Connections ignore addr.
	send(addr string, data []byte) error
	close() error
}

// queue is an unbounded FIFO so that the event loop can post signals to
// itself without blocking.
type queue[S any] struct {
	mu    sync.Mutex
	items []Event[S]
	ready chan struct{}
}

func (q *queue[S]) push(ev Event[S]) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue[S]) pop(done <-chan struct{}) (Event[S], bool) {
	for {
		select {
		case <-done:
			return Event[S]{}, false
		default:
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = Event[S]{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-done:
			return Event[S]{}, false
		}
	}
}

// Handler opens resources, sends data and stops the node. It can be used
// from any goroutine, including from inside the ForEach callback.
type Handler[S any] struct {
	queue *queue[S]
	done  chan struct{}
	once  sync.Once

	nextID    atomic.Uint64
	mu        sync.Mutex
	resources map[ResourceID]resource
}

// Listener delivers the events of a node.
type Listener[S any] struct {
	handler *Handler[S]
}

// Split creates a node and returns its two halves.
func Split[S any]() (*Handler[S], *Listener[S]) {
	h := &Handler[S]{
		queue:     &queue[S]{ready: make(chan struct{}, 1)},
		done:      make(chan struct{}),
		resources: map[ResourceID]resource{},
	}
	return h, &Listener[S]{handler: h}
}

// ForEach calls fn for every event, one at a time, until Stop is called.
// An event being handled when Stop is called is completed first.
func (l *Listener[S]) ForEach(fn func(Event[S])) {
	for {
		ev, ok := l.handler.queue.pop(l.handler.done)
		if !ok {
			return
		}
		fn(ev)
	}
}

// Stop ends ForEach and closes every resource. It is safe to call more than
// once and from any goroutine.
func (h *Handler[S]) Stop() {
	h.once.Do(func() {
		close(h.done)

		h.mu.Lock()
		resources := h.resources
		h.resources = map[ResourceID]resource{}
		h.mu.Unlock()

		for _, r := range resources {
			r.close()
		}
	})
}

func (h *Handler[S]) IsRunning() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Listen binds addr and starts producing events for it. The returned address
// is the one actually bound, which differs from addr when port 0 is used.
func (h *Handler[S]) Listen(t Transport, addr string) (ResourceID, net.Addr, error) {
	if !h.IsRunning() {
		return 0, nil, ErrStopped
	}

	id := h.newID()
	switch t {
	case FramedTCP:
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return 0, nil, err
		}
		if !h.register(id, &tcpListener{ln: ln}) {
			ln.Close()
			return 0, nil, ErrStopped
		}
		go h.acceptTCP(id, ln)
		return id, ln.Addr(), nil

	case UDP:
		pc, err := net.ListenPacket("udp", addr)
		if err != nil {
			return 0, nil, err
		}
		if !h.register(id, &udpListener{pc: pc}) {
			pc.Close()
			return 0, nil, ErrStopped
		}
		go h.readUDP(id, pc, "")
		return id, pc.LocalAddr(), nil

	case WS:
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return 0, nil, err
		}
		wl := newWSListener(ln, h.acceptWS(id))
		if !h.register(id, wl) {
			ln.Close()
			return 0, nil, ErrStopped
		}
		go wl.serve()
		return id, ln.Addr(), nil

	default:
		return 0, nil, fmt.Errorf("listen: unsupported transport %s", t)
	}
}

// Connect starts connecting to addr and returns the Endpoint the connection
// will use. The outcome arrives later as a Connected event.
func (h *Handler[S]) Connect(t Transport, addr string) Endpoint {
	endpoint := Endpoint{Resource: h.newID(), Addr: addr}
	go h.connect(t, endpoint)
	return endpoint
}

func (h *Handler[S]) connect(t Transport, endpoint Endpoint) {
	var (
		r     resource
		local net.Addr
		read  func()
		err   error
	)

	switch t {
	case FramedTCP:
		var conn net.Conn
		conn, err = net.DialTimeout("tcp", endpoint.Addr, DialTimeout)
		if err == nil {
			c := newTCPConn(conn)
			r, local = c, conn.LocalAddr()
			read = func() { h.readTCP(endpoint, c) }
		}

	case UDP:
		var conn net.Conn
		conn, err = net.DialTimeout("udp", endpoint.Addr, DialTimeout)
		if err == nil {
			pc := conn.(*net.UDPConn)
			r, local = &udpConn{conn: conn}, conn.LocalAddr()
			read = func() { h.readUDP(endpoint.Resource, pc, endpoint.Addr) }
		}

	case WS:
		var c *wsConn
		c, err = dialWS(endpoint.Addr)
		if err == nil {
			r, local = c, c.conn.LocalAddr()
			read = func() { h.readWS(endpoint, c) }
		}

	default:
		err = fmt.Errorf("connect: unsupported transport %s", t)
	}

	if err != nil {
		log.Printf("connect to %s by %s: %v", endpoint.Addr, t, err)
		h.pushNet(NetEvent{Kind: Connected, Endpoint: endpoint})
		return
	}

	if !h.register(endpoint.Resource, r) {
		r.close()
		return
	}
	h.pushNet(NetEvent{Kind: Connected, Endpoint: endpoint, Established: true, LocalAddr: local})
	go read()
}

// Send delivers data to endpoint as a single message. It never waits for
// the peer: connection-oriented sends are queued, and a peer whose queue is
// full is disconnected and ErrSendQueueFull returned.
func (h *Handler[S]) Send(endpoint Endpoint, data []byte) error {
	h.mu.Lock()
	r, ok := h.resources[endpoint.Resource]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("send to %s: %w", endpoint, ErrResourceNotFound)
	}
	return r.send(endpoint.Addr, data)
}

// Remove closes a listener or connection without producing a Disconnected
// event for it. It reports whether the resource existed.
func (h *Handler[S]) Remove(id ResourceID) bool {
	if r, ok := h.unregister(id); ok {
		r.close()
		return true
	}
	return false
}

// Signals returns the half of the handler that posts self-events.
func (h *Handler[S]) Signals() Signals[S] {
	return Signals[S]{handler: h}
}

// Signals posts events that the node sends to itself.
type Signals[S any] struct {
	handler *Handler[S]
}

func (s Signals[S]) Send(signal S) {
	s.handler.queue.push(Event[S]{Signal: signal})
}

// SendWithTimer posts signal after d has elapsed.
func (s Signals[S]) SendWithTimer(signal S, d time.Duration) {
	time.AfterFunc(d, func() {
		if s.handler.IsRunning() {
			s.Send(signal)
		}
	})
}

func (h *Handler[S]) newID() ResourceID {
	return ResourceID(h.nextID.Add(1))
}

// register returns false when the node is already stopped.
func (h *Handler[S]) register(id ResourceID, r resource) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.IsRunning() {
		return false
	}
	h.resources[id] = r
	return true
}

func (h *Handler[S]) unregister(id ResourceID) (resource, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.resources[id]
	if ok {
		delete(h.resources, id)
	}
	return r, ok
}

func (h *Handler[S]) pushNet(ev NetEvent) {
	if !h.IsRunning() {
		return
	}
	h.queue.push(Event[S]{Network: &ev})
}

// closed is called by a connection reader when its connection ends. Only
// connections still registered produce a Disconnected event, so Remove and
// Stop stay silent.
func (h *Handler[S]) closed(endpoint Endpoint) {
	r, ok := h.unregister(endpoint.Resource)
	if !ok {
		return
	}
	r.close()
	h.pushNet(NetEvent{Kind: Disconnected, Endpoint: endpoint})
}
