package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fakuventuri/game-server-client/message"
	"github.com/fakuventuri/game-server-client/network"
)

const (
	DefaultAddr = "0.0.0.0:8282"

	tracerName = "github.com/fakuventuri/game-server-client/server"
)

// ErrProtocolViolation stops the server when a peer sends bytes that do not
// decode as a ClientMessage.
var ErrProtocolViolation = errors.New("protocol violation")

type Config struct {
	Transport network.Transport
	Addr      string

	// MetricsAddr serves /metrics when not empty.
	MetricsAddr string
}

// ConnectionState is kept for every accepted connection.
type ConnectionState struct {
	Count uint64
}

type sender interface {
	Send(network.Endpoint, []byte) error
}

type Server struct {
	config   Config
	handler  *network.Handler[struct{}]
	listener *network.Listener[struct{}]
	sender   sender

	clients map[network.Endpoint]*ConnectionState

	registry    *prometheus.Registry
	metrics     *metrics
	metricsSrv  *http.Server
	metricsAddr net.Addr
	tracer      trace.Tracer

	err error
}

func New(config Config) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}

	handler, listener := network.Split[struct{}]()
	reg := prometheus.NewRegistry()

	return &Server{
		config:   config,
		handler:  handler,
		listener: listener,
		sender:   handler,
		clients:  map[network.Endpoint]*ConnectionState{},
		registry: reg,
		metrics:  newMetrics(reg),
		tracer:   otel.Tracer(tracerName),
	}
}

// Listen binds the configured address, and the metrics address if set. It
// returns the address actually bound.
func (s *Server) Listen() (net.Addr, error) {
	_, addr, err := s.handler.Listen(s.config.Transport, s.config.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen at %s by %s: %w", s.config.Addr, s.config.Transport, err)
	}
	log.Printf("Server running at %s by %s", addr, s.config.Transport)

	if s.config.MetricsAddr != "" {
		ln, err := net.Listen("tcp", s.config.MetricsAddr)
		if err != nil {
			s.handler.Stop()
			return nil, fmt.Errorf("listen for metrics at %s: %w", s.config.MetricsAddr, err)
		}
		s.metricsAddr = ln.Addr()
		s.metricsSrv = &http.Server{
			Handler:           newMetricsRouter(s.registry),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := s.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server: %v", err)
			}
		}()
		log.Printf("Serving metrics at %s/metrics", ln.Addr())
	}

	return addr, nil
}

// MetricsAddr is the bound metrics address, nil when metrics are disabled.
func (s *Server) MetricsAddr() net.Addr {
	return s.metricsAddr
}

// Run handles events until Stop is called or a peer violates the protocol,
// in which case the returned error wraps ErrProtocolViolation.
func (s *Server) Run() error {
	defer func() {
		if s.metricsSrv != nil {
			s.metricsSrv.Close()
		}
	}()

	s.listener.ForEach(func(ev network.Event[struct{}]) {
		if ev.Network == nil {
			return
		}
		if err := s.handle(context.Background(), ev.Network); err != nil {
			s.err = err
			s.handler.Stop()
		}
	})

	return s.err
}

func (s *Server) Stop() {
	s.handler.Stop()
}

func (s *Server) handle(ctx context.Context, ev *network.NetEvent) error {
	switch ev.Kind {
	case network.Connected:
		// Only generated by Connect, which the server never calls.

	case network.Accepted:
		s.clients[ev.Endpoint] = &ConnectionState{}
		s.metrics.clients.Set(float64(len(s.clients)))
		log.Printf("Client (%s) connected (total clients: %d)", ev.Endpoint.Addr, len(s.clients))

	case network.Message:
		return s.handleMessage(ctx, ev.Endpoint, ev.Data)

	case network.Disconnected:
		if _, ok := s.clients[ev.Endpoint]; !ok {
			log.Printf("Client (%s) disconnected without being accepted, ignoring", ev.Endpoint.Addr)
			return nil
		}
		delete(s.clients, ev.Endpoint)
		s.metrics.clients.Set(float64(len(s.clients)))
		log.Printf("Client (%s) disconnected (total clients: %d)", ev.Endpoint.Addr, len(s.clients))
	}
	return nil
}

func (s *Server) handleMessage(ctx context.Context, endpoint network.Endpoint, data []byte) error {
	_, span := s.tracer.Start(ctx, "pingpong.message",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("pingpong.peer", endpoint.Addr),
			attribute.Int64("pingpong.resource", int64(endpoint.Resource)),
		),
	)
	defer span.End()

	msg, err := message.DecodeClient(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return fmt.Errorf("%w: message from %s: %w", ErrProtocolViolation, endpoint.Addr, err)
	}

	switch msg {
	case message.Ping:
		var reply message.ServerMessage
		if client, ok := s.clients[endpoint]; ok {
			client.Count++
			log.Printf("Ping from %s, %d times", endpoint.Addr, client.Count)
			reply = message.Pong(client.Count)
			s.metrics.pings.WithLabelValues(replyPong).Inc()
		} else {
			// Connectionless transports have no accept record.
			log.Printf("Ping from %s", endpoint.Addr)
			reply = message.UnknownPong()
			s.metrics.pings.WithLabelValues(replyUnknownPong).Inc()
		}
		span.SetAttributes(attribute.String("pingpong.reply", reply.String()))

		if err := s.sender.Send(endpoint, message.EncodeServer(reply)); err != nil {
			// The peer is gone; its Disconnected event follows.
			log.Printf("Error replying to %s: %v", endpoint.Addr, err)
		}
	}
	return nil
}
