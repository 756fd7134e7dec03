package modbus

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/fieldline/modbus/mbap"
)

// UDPClient is a Modbus UDP client. Datagram transports have no connection
// lifecycle, so unlike Client there is no connected gate on Execute and no
// disconnect-driven bulk failure: a request whose reply datagram is lost
// stays pending until the caller's Await context expires.
//
// Correlation is by transaction identifier alone; the reply's source
// address is recorded for diagnostic logging only.
type UDPClient struct {
	querier

	addr  *net.UDPAddr
	conn  *net.UDPConn
	log   zerolog.Logger
	alloc *TIDAllocator
	stats *clientStatsCollector

	// pending needs no drain path, so an atomic map suffices:
	// LoadAndDelete is the single-point-of-truth pop.
	pending *xsync.MapOf[uint16, *Transaction]

	closed atomic.Bool
}

var _ Querier = (*UDPClient)(nil)

// NewUDPClient creates a client for the given server address and starts
// its reader. The local socket is bound immediately; there is no separate
// connect step.
func NewUDPClient(addr string, config ClientConfig) (*UDPClient, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}

	c := &UDPClient{
		addr:    raddr,
		conn:    conn,
		log:     config.logger().With().Str("server", addr).Logger(),
		alloc:   config.allocator(),
		stats:   newClientStatsCollector(),
		pending: xsync.NewMapOf[uint16, *Transaction](),
	}
	c.querier = querier{rt: c}

	go c.readLoop()
	return c, nil
}

// Addr returns the resolved server address.
func (c *UDPClient) Addr() *net.UDPAddr {
	return c.addr
}

// LocalAddr returns the local socket address.
func (c *UDPClient) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Stats returns a snapshot of client counters.
func (c *UDPClient) Stats() ClientStats {
	return c.stats.snapshot()
}

// Close releases the socket. Pending transactions are not failed; callers
// observe abandonment through their Await contexts.
func (c *UDPClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

// Execute assigns a transaction identifier to req, sends it as a single
// datagram and returns the completion handle. The handle is registered
// before the datagram leaves, so a reply cannot arrive ahead of its entry;
// a send failure deregisters it and yields an already-failed handle.
func (c *UDPClient) Execute(req *mbap.Request) *Transaction {
	tid := c.alloc.Next()
	req.TransactionID = tid

	frame, err := mbap.EncodeFrame(req)
	if err != nil {
		return failedTransaction(tid, err)
	}

	tx := newTransaction(tid)
	c.pending.Store(tid, tx)

	if _, err := c.conn.WriteToUDP(frame, c.addr); err != nil {
		c.pending.Delete(tid)
		c.stats.recordWriteError()
		return failedTransaction(tid, &WriteError{Err: err})
	}

	c.stats.recordExecute()
	return tx
}

// roundTrip implements the typed operation layer.
func (c *UDPClient) roundTrip(ctx context.Context, req *mbap.Request) (*mbap.Response, error) {
	return c.Execute(req).Await(ctx)
}

// readLoop dispatches inbound datagrams until the socket is closed.
func (c *UDPClient) readLoop() {
	buf := make([]byte, mbap.MaxFrameSize)

	for {
		n, src, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if !c.closed.Load() {
				c.log.Debug().Err(err).Msg("udp read failed")
			}
			return
		}
		c.handleDatagram(buf[:n], src)
	}
}

// handleDatagram decodes every frame in one datagram and dispatches each.
// The source address does not participate in correlation.
func (c *UDPClient) handleDatagram(data []byte, src *net.UDPAddr) {
	c.log.Debug().Stringer("from", src).Int("bytes", len(data)).Msg("datagram received")

	for len(data) > 0 {
		resp, consumed, err := mbap.ParseFrame(data)
		if err != nil {
			c.log.Debug().Err(err).Stringer("from", src).Msg("malformed datagram discarded")
			return
		}
		if resp == nil {
			// Truncated trailing frame, nothing more to dispatch.
			return
		}
		data = data[consumed:]
		c.handleResponse(resp)
	}
}

func (c *UDPClient) handleResponse(resp *mbap.Response) {
	if resp == nil {
		return
	}

	tx, ok := c.pending.LoadAndDelete(resp.TransactionID)
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
