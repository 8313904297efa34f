package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openblock-labs/hwbridge/internal/audit"
	"github.com/openblock-labs/hwbridge/internal/catalog"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/logging"
	"github.com/openblock-labs/hwbridge/internal/pipeline"
	"github.com/openblock-labs/hwbridge/internal/protocol"
	"github.com/openblock-labs/hwbridge/internal/session"
	"github.com/openblock-labs/hwbridge/internal/telemetry"
)

// EventPublisher mirrors device lifecycle events to an external broker.
type EventPublisher interface {
	PublishEvent(deviceID, event string, clientID uint64) error
}

// Server hosts the WebSocket protocol endpoint and the REST API.
type Server struct {
	cfg       *config.Config
	logger    *logging.Logger
	version   string
	startedAt time.Time

	catalog   *catalog.Catalog
	registry  *session.Registry
	pipeline  *pipeline.Pipeline
	telemetry *telemetry.Generator
	auditor   *audit.Repository
	events    EventPublisher

	handlers map[string]handlerFunc
	upgrader websocket.Upgrader
	httpSrv  *http.Server
	runCtx   context.Context
}

// ServerOption configures optional server collaborators.
type ServerOption func(*Server)

// WithAudit records session events to the audit trail.
func WithAudit(repo *audit.Repository) ServerOption {
	return func(s *Server) { s.auditor = repo }
}

// WithEventPublisher mirrors lifecycle events to a broker.
func WithEventPublisher(p EventPublisher) ServerOption {
	return func(s *Server) { s.events = p }
}

// NewServer assembles the API server from its collaborators.
func NewServer(
	cfg *config.Config,
	logger *logging.Logger,
	version string,
	cat *catalog.Catalog,
	registry *session.Registry,
	pipe *pipeline.Pipeline,
	gen *telemetry.Generator,
	opts ...ServerOption,
) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger.With("component", "api"),
		version:   version,
		startedAt: time.Now(),
		catalog:   cat,
		registry:  registry,
		pipeline:  pipe,
		telemetry: gen,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are local GUIs; the endpoint is not origin-scoped.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handlers = s.buildHandlers()
	return s
}

// Start runs the HTTP server until ctx is cancelled, then drains
// connections and shuts down.
func (s *Server) Start(ctx context.Context) error {
	s.runCtx = ctx

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
		// Read/write timeouts stay off: they would sever long-lived
		// WebSocket connections. Liveness comes from ping/pong deadlines.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "ws_path", s.cfg.WebSocket.Path)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.registry.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// handleWS upgrades a request and runs the connection until the peer
// disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	client := newWSClient(
		ws,
		s.cfg.WebSocket.SendBufferSize,
		int64(s.cfg.WebSocket.MaxMessageSize),
		time.Duration(s.cfg.WebSocket.PingInterval)*time.Second,
		time.Duration(s.cfg.WebSocket.PongTimeout)*time.Second,
		s.logger,
	)
	conn := s.registry.Register(s.runCtx, client)

	s.logger.Info("client connected", "client_id", conn.ID(), "remote", r.RemoteAddr)
	s.recordEvent(conn.ID(), "", audit.EventClientConnected, r.RemoteAddr)

	conn.Send(protocol.Welcome{
		Type:          protocol.TypeWelcome,
		Message:       "Conectado al servidor de hardware",
		ServerVersion: s.version,
		ClientID:      conn.ID(),
	})

	go client.writePump()
	client.readPump(func(data []byte) {
		s.dispatch(conn, data)
	})

	s.registry.Unregister(conn.ID())
	s.logger.Info("client disconnected", "client_id", conn.ID())
	s.recordEvent(conn.ID(), "", audit.EventClientDisconnected, "")
}

// recordEvent appends to the audit trail when one is configured.
func (s *Server) recordEvent(clientID uint64, deviceID, kind, detail string) {
	if s.auditor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.auditor.Record(ctx, clientID, deviceID, kind, detail); err != nil {
		s.logger.Warn("audit record failed", "kind", kind, "error", err)
	}
}

// publishEvent mirrors a lifecycle event when a broker is configured.
func (s *Server) publishEvent(deviceID, event string, clientID uint64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(deviceID, event, clientID); err != nil {
		s.logger.Warn("event publish failed", "device_id", deviceID, "event", event, "error", err)
	}
}
