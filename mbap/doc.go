// Package mbap implements the Modbus TCP wire format (MBAP framing plus the
// application PDU) used by the client packages above it.
//
// This package serves as a foundation for building higher-level Modbus
// clients with different properties (pipelining, connection pooling,
// datagram transports). It focuses on correctness for serialization and
// incremental frame reassembly, without imposing architectural decisions
// on clients.
//
// # Core Types
//
// Request and Response are pure data containers without embedded I/O:
//
//   - Request: one outgoing PDU with its MBAP addressing fields
//   - Response: one decoded inbound frame
//   - Framer: incremental decoder turning a raw byte stream into Responses
//
// # Serialization
//
// EncodeFrame serializes a request to wire format:
//
//	req := mbap.NewReadHoldingRegistersRequest(1, 100, 4)
//	frame, err := mbap.EncodeFrame(req)
//	conn.Write(frame)
//
// # Frame Reassembly
//
// Framer consumes arbitrary byte chunks and invokes the callback once per
// complete frame, in arrival order:
//
//	f := &mbap.Framer{}
//	err := f.Feed(chunk, func(resp *mbap.Response) {
//	    // dispatch by resp.TransactionID
//	})
//
// A Feed error means the stream is corrupt and the connection must be
// closed; use Reset before reusing a Framer on a new connection.
//
// # Error Handling
//
// Protocol-level failures reported by the server (exception responses,
// function code 0x80+) are carried on Response.Err as *ExceptionError, not
// as Go errors: the frame itself was well-formed and the connection remains
// usable. FrameError indicates a malformed stream and requires closing the
// connection. ShouldCloseConnection reports the distinction:
//
//	if err := f.Feed(data, onFrame); err != nil {
//	    if mbap.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	}
//
// # Thread Safety
//
// Request, Response and Framer are not safe for concurrent use. EncodeFrame
// and ParseFrame are safe as long as each goroutine uses its own values.
package mbap
