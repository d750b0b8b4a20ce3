package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/panelkit/paneld/pkg/log"
)

// ServerConfig configures the control-plane socket server.
type ServerConfig struct {
	// SocketPath is the unix socket path to listen on.
	SocketPath string

	// MaxMessageSize is the maximum message size (default: 1 MiB).
	MaxMessageSize uint32

	// Logger for protocol capture (optional).
	Logger log.Logger

	// OnConnect is called when a new session is established.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called when a session ends.
	OnDisconnect func(conn *ServerConn)

	// OnMessage is called for each received frame.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called when a connection-level error occurs.
	OnError func(conn *ServerConn, err error)
}

// Server accepts client sessions on a unix domain socket.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server. Listening starts with Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.SocketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}, nil
}

// Start binds the socket and begins accepting sessions.
// A stale socket file from a previous run is removed first.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := os.Remove(s.config.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.config.SocketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.SocketPath, err)
	}
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and all active sessions.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()

	_ = os.Remove(s.config.SocketPath)
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active sessions.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Broadcast sends data to every active session. Send failures on
// individual sessions are reported through OnError and do not stop
// the broadcast.
func (s *Server) Broadcast(data []byte) {
	s.connsMu.RLock()
	conns := make([]*ServerConn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.connsMu.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(data); err != nil {
			if s.config.OnError != nil {
				s.config.OnError(conn, err)
			}
		}
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() && s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	sessionID := uuid.New().String()

	framer := NewFramerWithMaxSize(conn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, sessionID)
	}

	sconn := &ServerConn{
		conn:      conn,
		framer:    framer,
		server:    s,
		closeCh:   make(chan struct{}),
		sessionID: sessionID,
	}

	if s.config.Logger != nil {
		s.config.Logger.Log(log.NewStateEvent(
			log.StateEntitySession, sessionID, "", "", "CONNECTED"))
	}

	s.connsMu.Lock()
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	sconn.readLoop()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()

	if s.config.Logger != nil {
		s.config.Logger.Log(log.NewStateEvent(
			log.StateEntitySession, sessionID, "", "CONNECTED", "DISCONNECTED"))
	}

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

// ServerConn is one client session on the server side.
type ServerConn struct {
	conn      net.Conn
	framer    *Framer
	server    *Server
	closeCh   chan struct{}
	closeOnce sync.Once
	sessionID string
}

// SessionID returns the unique session identifier.
func (c *ServerConn) SessionID() string {
	return c.sessionID
}

// Send sends a frame to the client. Safe for concurrent use.
func (c *ServerConn) Send(data []byte) error {
	return c.framer.WriteFrame(data)
}

// Close closes the session.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		case <-c.server.ctx.Done():
			return
		default:
		}

		data, err := c.framer.ReadFrame()
		if err != nil {
			if c.isReportable(err) {
				c.server.config.OnError(c, err)
			}
			return
		}

		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}

// isReportable filters out errors from ordinary shutdowns: a client
// hanging up or the server closing the session is not an error.
func (c *ServerConn) isReportable(err error) bool {
	if c.server.config.OnError == nil || !c.server.running.Load() {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return false
	}
	select {
	case <-c.closeCh:
		return false
	default:
		return true
	}
}
