package modbus

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldline/modbus/mbap"
)

// serverHandler builds the reply for one parsed request, or nil to stay
// silent. The transaction ID is stamped by the server.
type serverHandler func(req *mbap.Response) *mbap.Request

// fakeServer is a minimal in-process Modbus TCP server. Inbound requests
// are parsed with the same framing code and offered on the requests
// channel; the optional handler auto-replies.
type fakeServer struct {
	t       testing.TB
	ln      net.Listener
	handler serverHandler

	requests chan *mbap.Response

	mu   sync.Mutex
	conn net.Conn
}

func newFakeServer(t testing.TB, handler serverHandler) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{
		t:        t,
		ln:       ln,
		handler:  handler,
		requests: make(chan *mbap.Response, 64),
	}
	go s.serve()
	t.Cleanup(func() {
		ln.Close()
		s.closeConn()
	})
	return s
}

func (s *fakeServer) addr() string {
	return s.ln.Addr().String()
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		go s.handleConn(conn)
	}
}

func (s *fakeServer) handleConn(conn net.Conn) {
	framer := &mbap.Framer{}
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			ferr := framer.Feed(buf[:n], func(req *mbap.Response) {
				select {
				case s.requests <- req:
				default:
				}
				if s.handler != nil {
					if reply := s.handler(req); reply != nil {
						s.sendOn(conn, reply, req.TransactionID)
					}
				}
			})
			if ferr != nil {
				conn.Close()
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// send writes a reply frame with the given transaction ID on the current
// connection. Write failures are ignored: the peer may legitimately have
// gone away already, and tests observe delivery through the client.
func (s *fakeServer) send(reply *mbap.Request, tid uint16) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	s.sendOn(conn, reply, tid)
}

// sendOn writes a reply frame with the given transaction ID on conn, the
// connection the request arrived on.
func (s *fakeServer) sendOn(conn net.Conn, reply *mbap.Request, tid uint16) {
	reply.TransactionID = tid
	frame, err := mbap.EncodeFrame(reply)
	if err != nil {
		s.t.Errorf("encode reply: %v", err)
		return
	}
	_, _ = conn.Write(frame)
}

// sendRaw writes arbitrary bytes on the current connection.
func (s *fakeServer) sendRaw(data []byte) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	_, _ = conn.Write(data)
}

// closeConn drops the current client connection.
func (s *fakeServer) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// echoHandler is an auto-responder covering the operations the tests use:
// register reads return a fixed ramp, writes acknowledge by echoing, and
// diagnostics echo their payload.
func echoHandler(req *mbap.Response) *mbap.Request {
	switch req.Function {
	case mbap.FuncReadHoldingRegisters, mbap.FuncReadInputRegisters:
		quantity := int(req.Data[2])<<8 | int(req.Data[3])
		data := make([]byte, 1+2*quantity)
		data[0] = byte(2 * quantity)
		for i := 0; i < quantity; i++ {
			data[1+2*i] = 0
			data[2+2*i] = byte(i + 1)
		}
		return mbap.NewRequest(req.UnitID, req.Function, data)

	case mbap.FuncReadCoils, mbap.FuncReadDiscreteInputs:
		quantity := int(req.Data[2])<<8 | int(req.Data[3])
		byteCount := (quantity + 7) / 8
		data := make([]byte, 1+byteCount)
		data[0] = byte(byteCount)
		for i := 0; i < quantity; i += 2 {
			// Every even-indexed bit set.
			data[1+i/8] |= 1 << (i % 8)
		}
		return mbap.NewRequest(req.UnitID, req.Function, data)

	case mbap.FuncWriteSingleCoil, mbap.FuncWriteSingleRegister, mbap.FuncDiagnostics:
		return mbap.NewRequest(req.UnitID, req.Function, req.Data)

	case mbap.FuncWriteMultipleCoils, mbap.FuncWriteMultipleRegisters:
		return mbap.NewRequest(req.UnitID, req.Function, req.Data[:4])
	}
	return exceptionReply(req, mbap.ExceptionIllegalFunction)
}

// silentHandler records requests and never replies.
func silentHandler(*mbap.Response) *mbap.Request {
	return nil
}

func exceptionReply(req *mbap.Response, code mbap.ExceptionCode) *mbap.Request {
	return mbap.NewRequest(req.UnitID, req.Function|0x80, []byte{byte(code)})
}

// connectedClient returns a client connected to the server, closed on test
// cleanup. Each test client gets its own allocator so transaction IDs are
// predictable.
func connectedClient(t testing.TB, s *fakeServer) *Client {
	t.Helper()

	client := NewClient(s.addr(), ClientConfig{Allocator: NewTIDAllocator()})
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { client.Close() })
	return client
}
