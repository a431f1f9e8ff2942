package network

import (
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// WSPath is the route websocket peers connect to.
const WSPath = "/"

type wsListener struct {
	ln  net.Listener
	srv *http.Server
}

func newWSListener(ln net.Listener, accept func(*websocket.Conn)) *wsListener {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	r := chi.NewRouter()
	r.Get(WSPath, func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Printf("websocket upgrade from %s: %v", req.RemoteAddr, err)
			return
		}
		accept(conn)
	})

	return &wsListener{
		ln: ln,
		srv: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (l *wsListener) serve() {
	if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("websocket listener: %v", err)
	}
}

func (l *wsListener) send(string, []byte) error {
	return errors.New("network: cannot send to a listener")
}

// close stops accepting. Upgraded connections are registered on their own
// and are not affected.
func (l *wsListener) close() error {
	return l.srv.Close()
}

type wsConn struct {
	conn *websocket.Conn
	out  *outbox
}

func newWSConn(conn *websocket.Conn) *wsConn {
	c := &wsConn{conn: conn}
	c.out = startOutbox(conn.RemoteAddr().String(), c.write, conn.Close)
	return c
}

func dialWS(addr string) (*wsConn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: WSPath}
	dialer := websocket.Dialer{HandshakeTimeout: DialTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return newWSConn(conn), nil
}

func (c *wsConn) send(_ string, data []byte) error {
	return c.out.push(data)
}

// write runs on the outbox goroutine only, which keeps gorilla's single
// writer rule.
func (c *wsConn) write(data []byte, _ bool) error {
	c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) close() error {
	return c.out.close()
}

// acceptWS returns the upgrade callback for listener. It runs on the HTTP
// handler goroutine and reads until the connection ends.
func (h *Handler[S]) acceptWS(listener ResourceID) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		endpoint := Endpoint{Resource: h.newID(), Addr: conn.RemoteAddr().String()}
		c := newWSConn(conn)
		if !h.register(endpoint.Resource, c) {
			c.close()
			return
		}
		h.pushNet(NetEvent{Kind: Accepted, Endpoint: endpoint, Listener: listener})
		h.readWS(endpoint, c)
	}
}

func (h *Handler[S]) readWS(endpoint Endpoint, c *wsConn) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				log.Printf("Error reading from %s: %v", endpoint.Addr, err)
			}
			h.closed(endpoint)
			return
		}
		h.pushNet(NetEvent{Kind: Message, Endpoint: endpoint, Data: data})
	}
}
