package client

import (
	"bytes"
	"log"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fakuventuri/game-server-client/message"
	"github.com/fakuventuri/game-server-client/network"
	"github.com/fakuventuri/game-server-client/server"
)

func startServer(t *testing.T, tr network.Transport) (*server.Server, string) {
	t.Helper()

	s := server.New(server.Config{Transport: tr, Addr: "127.0.0.1:0"})
	addr, err := s.Listen()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()
	t.Cleanup(func() {
		s.Stop()
		<-done
	})
	return s, addr.String()
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLog(t *testing.T) *logBuffer {
	b := &logBuffer{}
	log.SetOutput(b)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return b
}

// requireInOrder checks that every pattern matches text after the match of
// the previous one.
func requireInOrder(t *testing.T, text string, patterns ...string) {
	t.Helper()
	offset := 0
	for _, p := range patterns {
		loc := regexp.MustCompile(p).FindStringIndex(text[offset:])
		require.NotNil(t, loc, "%q not found in order in log:\n%s", p, text)
		offset += loc[1]
	}
}

type run struct {
	client  *Client
	replies chan message.ServerMessage
	result  chan error
}

func startClient(t *testing.T, tr network.Transport, addr string) *run {
	t.Helper()

	r := &run{
		replies: make(chan message.ServerMessage, 64),
		result:  make(chan error, 1),
	}
	r.client = New(Config{
		Transport: tr,
		Addr:      addr,
		Interval:  20 * time.Millisecond,
		OnReply: func(reply message.ServerMessage) {
			select {
			case r.replies <- reply:
			default:
			}
		},
	})
	go func() { r.result <- r.client.Run() }()
	t.Cleanup(r.client.Stop)
	return r
}

func (r *run) nextReply(t *testing.T) message.ServerMessage {
	t.Helper()
	select {
	case reply := <-r.replies:
		return reply
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a reply")
	}
	return message.ServerMessage{}
}

func (r *run) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.result:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
	}
	return nil
}

func TestDefaults(t *testing.T) {
	c := New(Config{})
	defer c.Stop()
	require.Equal(t, DefaultAddr, c.config.Addr)
	require.Equal(t, DefaultInterval, c.config.Interval)
	require.Equal(t, network.FramedTCP, c.config.Transport)
}

func TestPingPong(t *testing.T) {
	for _, tr := range []network.Transport{network.FramedTCP, network.WS} {
		t.Run(tr.String(), func(t *testing.T) {
			logs := captureLog(t)
			_, addr := startServer(t, tr)
			r := startClient(t, tr, addr)

			for i := uint64(1); i <= 3; i++ {
				require.Equal(t, message.Pong(i), r.nextReply(t))
			}

			r.client.Stop()
			require.NoError(t, r.wait(t))

			text := logs.String()
			m := regexp.MustCompile(`Client identified by local port: (\d+)`).FindStringSubmatch(text)
			require.NotNil(t, m, "local port not logged:\n%s", text)
			peer := regexp.QuoteMeta("127.0.0.1:" + m[1])

			requireInOrder(t, text,
				"Ping from "+peer+", 1 times",
				"Ping from "+peer+", 2 times",
				"Ping from "+peer+", 3 times",
			)
			requireInOrder(t, text,
				"Pong from server: 1 times",
				"Pong from server: 2 times",
				"Pong from server: 3 times",
			)
		})
	}
}

func TestIndependentClients(t *testing.T) {
	_, addr := startServer(t, network.FramedTCP)

	first := startClient(t, network.FramedTCP, addr)
	require.Equal(t, message.Pong(1), first.nextReply(t))
	require.Equal(t, message.Pong(2), first.nextReply(t))

	second := startClient(t, network.FramedTCP, addr)
	require.Equal(t, message.Pong(1), second.nextReply(t))
}

func TestUnknownPongOverUDP(t *testing.T) {
	_, addr := startServer(t, network.UDP)
	r := startClient(t, network.UDP, addr)

	require.Equal(t, message.UnknownPong(), r.nextReply(t))
	require.Equal(t, message.UnknownPong(), r.nextReply(t))
}

func TestServerDisconnectStopsClient(t *testing.T) {
	s, addr := startServer(t, network.FramedTCP)
	r := startClient(t, network.FramedTCP, addr)
	r.nextReply(t)

	s.Stop()
	require.NoError(t, r.wait(t))
}

func TestConnectFailure(t *testing.T) {
	s, addr := startServer(t, network.FramedTCP)
	s.Stop()

	r := startClient(t, network.FramedTCP, addr)
	require.ErrorIs(t, r.wait(t), ErrConnectFailed)
}

func TestMalformedReply(t *testing.T) {
	handler, listener := network.Split[struct{}]()
	_, addr, err := handler.Listen(network.FramedTCP, "127.0.0.1:0")
	require.NoError(t, err)
	go listener.ForEach(func(ev network.Event[struct{}]) {
		if ev.Network != nil && ev.Network.Kind == network.Message {
			handler.Send(ev.Network.Endpoint, []byte{9, 9})
		}
	})
	t.Cleanup(handler.Stop)

	r := startClient(t, network.FramedTCP, addr.String())
	require.ErrorIs(t, r.wait(t), ErrProtocolViolation)
}
