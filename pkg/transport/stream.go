package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	sdktransport "github.com/Jigsaw-Code/outline-sdk/transport"
	"github.com/Jigsaw-Code/outline-sdk/x/configurl"
)

// dialTimeout caps how long a background dial may run. The driver applies
// its own, shorter connect deadline on top of this.
const dialTimeout = 10 * time.Second

// StreamClient adapts a blocking stream dialer to the non-blocking Client
// surface: Connect dials in the background, reads are drained into an
// internal buffer under an immediate deadline so no call ever blocks.
type StreamClient struct {
	dialer sdktransport.StreamDialer
	logger *slog.Logger

	mu         sync.Mutex
	conn       sdktransport.StreamConn
	dialing    bool
	dialGen    int
	cancelDial context.CancelFunc
	eof        bool
	buf        []byte
	pending    []byte
}

// NewStreamClient builds a StreamClient from an outline-sdk transport config
// string. An empty config yields a direct TCP dialer; anything else (socks5,
// shadowsocks, split, ...) is handed to the config parser.
func NewStreamClient(transportConfig string, logger *slog.Logger) (*StreamClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialer, err := configurl.NewDefaultConfigToDialer().NewStreamDialer(transportConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create dialer: %w", err)
	}
	return &StreamClient{dialer: dialer, logger: logger}, nil
}

func (c *StreamClient) Connect(host string, port int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dialing || c.conn != nil {
		return false
	}
	c.dialing = true
	c.eof = false
	c.buf = c.buf[:0]
	c.dialGen++
	gen := c.dialGen

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	c.cancelDial = cancel

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	go func() {
		defer cancel()
		conn, err := c.dialer.DialStream(ctx, addr)

		c.mu.Lock()
		defer c.mu.Unlock()
		// Stop (or a newer Connect) invalidated this attempt while the dial
		// was in flight. Its result must not be installed.
		if gen != c.dialGen {
			if conn != nil {
				conn.Close()
			}
			return
		}
		c.dialing = false
		c.cancelDial = nil
		if err != nil {
			c.logger.Debug("dial failed", "address", addr, "error", err)
			c.eof = true
			return
		}
		c.conn = conn
		if len(c.pending) > 0 {
			if _, err := conn.Write(c.pending); err != nil {
				c.logger.Debug("flush of queued write failed", "error", err)
				c.eof = true
			}
			c.pending = nil
		}
	}()
	return true
}

func (c *StreamClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.eof
}

func (c *StreamClient) Available() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fillLocked()
	return len(c.buf)
}

func (c *StreamClient) ReadByte() (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 {
		c.fillLocked()
	}
	if len(c.buf) == 0 {
		return 0, false
	}
	b := c.buf[0]
	c.buf = c.buf[1:]
	return b, true
}

// Print writes s to the stream. Writes issued while the background dial is
// still in flight are queued and flushed as soon as the dial completes.
func (c *StreamClient) Print(s string) error {
	c.mu.Lock()
	if c.dialing {
		c.pending = append(c.pending, s...)
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("transport: not connected")
	}
	if _, err := conn.Write([]byte(s)); err != nil {
		return fmt.Errorf("transport write: %w", err)
	}
	return nil
}

// Stop closes the stream and abandons any dial still in flight: the dial's
// context is canceled and its generation invalidated, so a late dial result
// is closed and discarded rather than installed on a stopped client.
func (c *StreamClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.dialGen++
	c.dialing = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.eof = false
	c.buf = c.buf[:0]
	c.pending = nil
}

// fillLocked drains whatever the socket has ready right now. The immediate
// read deadline turns the blocking Read into a poll.
func (c *StreamClient) fillLocked() {
	if c.conn == nil || c.eof {
		return
	}
	var tmp [4096]byte
	for {
		c.conn.SetReadDeadline(time.Now())
		n, err := c.conn.Read(tmp[:])
		if n > 0 {
			c.buf = append(c.buf, tmp[:n]...)
		}
		if err != nil {
			if !errors.Is(err, os.ErrDeadlineExceeded) {
				if !errors.Is(err, io.EOF) {
					c.logger.Debug("stream read failed", "error", err)
				}
				c.eof = true
			}
			return
		}
	}
}
