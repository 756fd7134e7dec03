package modbus

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fieldline/modbus/mbap"
)

// ClientConfig holds optional settings shared by the stream and datagram
// clients. The zero value is ready to use.
type ClientConfig struct {
	// Dialer is used to establish connections. If nil, a default
	// net.Dialer is used.
	Dialer *net.Dialer

	// Logger receives debug-level lifecycle and dispatch events.
	// If nil, logging is disabled.
	Logger *zerolog.Logger

	// Allocator issues transaction identifiers. If nil, the process-wide
	// shared allocator is used.
	Allocator *TIDAllocator
}

func (c ClientConfig) dialer() *net.Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &net.Dialer{}
}

func (c ClientConfig) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}

func (c ClientConfig) allocator() *TIDAllocator {
	if c.Allocator != nil {
		return c.Allocator
	}
	return defaultAllocator
}

// Client is a Modbus TCP client owning a single connection.
//
// Execute may be called concurrently from any number of goroutines; each
// call returns a Transaction that resolves when the matching response
// arrives or the connection is lost. A Client can reconnect after a
// disconnect; pending transactions never survive the connection that
// created them.
type Client struct {
	querier

	addr   string
	dialer *net.Dialer
	log    zerolog.Logger
	alloc  *TIDAllocator
	stats  *clientStatsCollector

	// mu guards the connection state, the pending registry and writes to
	// the transport. Holding it across the connected check, the write and
	// the registry insert is what keeps Execute atomic with respect to
	// dispatch and disconnect.
	mu        sync.Mutex
	conn      net.Conn
	connected bool
	pending   map[uint16]*Transaction
}

var _ Querier = (*Client)(nil)

// NewClient creates a disconnected client for the given server address.
// Call Connect before executing requests.
func NewClient(addr string, config ClientConfig) *Client {
	c := &Client{
		addr:    addr,
		dialer:  config.dialer(),
		log:     config.logger().With().Str("server", addr).Logger(),
		alloc:   config.allocator(),
		stats:   newClientStatsCollector(),
		pending: make(map[uint16]*Transaction),
	}
	c.querier = querier{rt: c}
	return c
}

// Addr returns the server address the client connects to.
func (c *Client) Addr() string {
	return c.addr
}

// Connected reports whether the client currently has an established
// connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Stats returns a snapshot of client counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// Connect establishes the transport connection and starts the reader.
// It fails if the client is already connected.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		conn.Close()
		return errors.New("modbus: client is already connected")
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.stats.recordConnect()
	c.log.Debug().Msg("connected to modbus server")

	go c.readLoop(conn)
	return nil
}

// Close tears down the connection, failing every pending transaction with
// ErrClientClosed wrapped in ConnectionLostError. Closing a disconnected
// client is a no-op. The client may be reconnected afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.teardown(conn, ErrClientClosed)
	return nil
}

// Execute assigns a transaction identifier to req, serializes it onto the
// wire and returns the completion handle for the eventual response.
//
// All failure modes are delivered through the handle: a disconnected
// client yields a handle already failed with ErrNotConnected and writes
// nothing; a transport write failure yields a handle already failed with
// *WriteError and tears down the connection. If the returned transaction
// is still pending, the bytes were handed to the transport.
func (c *Client) Execute(req *mbap.Request) *Transaction {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		c.stats.recordNotConnected()
		return failedTransaction(0, ErrNotConnected)
	}

	tid := c.alloc.Next()
	req.TransactionID = tid

	frame, err := mbap.EncodeFrame(req)
	if err != nil {
		c.mu.Unlock()
		return failedTransaction(tid, err)
	}

	if _, err := c.conn.Write(frame); err != nil {
		conn := c.conn
		c.mu.Unlock()
		c.stats.recordWriteError()
		c.teardown(conn, err)
		return failedTransaction(tid, &WriteError{Err: err})
	}

	tx := newTransaction(tid)
	c.pending[tid] = tx
	c.mu.Unlock()

	c.stats.recordExecute()
	return tx
}

// roundTrip implements the typed operation layer.
func (c *Client) roundTrip(ctx context.Context, req *mbap.Request) (*mbap.Response, error) {
	return c.Execute(req).Await(ctx)
}

// readLoop drives the framer with bytes from conn until the transport
// reports an error. Each connection gets its own framer and loop, so
// inbound data and lifecycle events are processed sequentially.
func (c *Client) readLoop(conn net.Conn) {
	framer := &mbap.Framer{}
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if ferr := framer.Feed(buf[:n], c.handleResponse); ferr != nil {
				c.log.Debug().Err(ferr).Msg("corrupt frame stream")
				c.teardown(conn, ferr)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			c.teardown(conn, err)
			return
		}
	}
}

// handleResponse is the dispatch path: it pops the matching pending
// transaction and resolves it. A response with no matching transaction is
// expected traffic (late, duplicate or spurious) and is discarded.
func (c *Client) handleResponse(resp *mbap.Response) {
	if resp == nil {
		return
	}

	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	tx, ok := c.pending[resp.TransactionID]
	if ok {
		delete(c.pending, resp.TransactionID)
	}
	c.mu.Unlock()

	if !ok {
		c.stats.recordUnsolicited()
		c.log.Debug().
			Uint16("tid", resp.TransactionID).
			Str("function", resp.Function.String()).
			Msg("unsolicited response discarded")
		return
	}

	tx.resolve(resp)
	c.stats.recordReply()
}

// teardown transitions to disconnected and fails every pending transaction
// with a ConnectionLostError carrying reason. It is idempotent per
// connection: a stale reader racing a newer connection does nothing.
func (c *Client) teardown(conn net.Conn, reason error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false
	orphans := make([]*Transaction, 0, len(c.pending))
	for _, tx := range c.pending {
		orphans = append(orphans, tx)
	}
	clear(c.pending)
	c.mu.Unlock()

	conn.Close()

	lost := &ConnectionLostError{Reason: reason}
	for _, tx := range orphans {
		tx.fail(lost)
	}

	c.stats.recordDisconnect(len(orphans))
	c.log.Debug().
		Err(reason).
		Int("pending_failed", len(orphans)).
		Msg("disconnected from modbus server")
}
