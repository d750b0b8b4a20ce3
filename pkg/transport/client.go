package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// Conn is a client-side connection to the daemon socket.
type Conn struct {
	conn      net.Conn
	framer    *Framer
	closeOnce sync.Once
}

// Dial connects to the daemon's unix socket.
func Dial(ctx context.Context, socketPath string) (*Conn, error) {
	return DialWithMaxSize(ctx, socketPath, DefaultMaxMessageSize)
}

// DialWithMaxSize connects with a custom max message size.
func DialWithMaxSize(ctx context.Context, socketPath string, maxSize uint32) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", socketPath, err)
	}
	return &Conn{
		conn:   conn,
		framer: NewFramerWithMaxSize(conn, maxSize),
	}, nil
}

// Send writes one frame. Safe for concurrent use.
func (c *Conn) Send(data []byte) error {
	return c.framer.WriteFrame(data)
}

// Receive reads one frame, blocking until a frame arrives or the
// connection fails.
func (c *Conn) Receive() ([]byte, error) {
	return c.framer.ReadFrame()
}

// Close closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}
