package mbap

import (
	"encoding/binary"
	"fmt"
)

// Framer reassembles complete frames from an arbitrarily chunked byte
// stream. The zero value is ready to use. Not safe for concurrent use; a
// connection owns exactly one Framer.
type Framer struct {
	buf []byte
}

// Feed appends data to the internal buffer and invokes onFrame once per
// complete frame now available, in arrival order. Zero callbacks occur when
// the buffered bytes do not yet form a full frame.
//
// A non-nil error means the stream is corrupt; the connection must be
// closed and the Framer Reset before reuse.
func (f *Framer) Feed(data []byte, onFrame func(*Response)) error {
	f.buf = append(f.buf, data...)

	for {
		resp, consumed, err := ParseFrame(f.buf)
		if err != nil {
			return err
		}
		if resp == nil {
			// Incomplete frame, wait for more bytes.
			return nil
		}
		f.buf = f.buf[consumed:]
		onFrame(resp)
	}
}

// Buffered returns the number of bytes held back awaiting frame completion.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset discards any partially buffered frame. Call when (re)establishing a
// connection.
func (f *Framer) Reset() {
	f.buf = nil
}

// ParseFrame decodes the first complete frame in b. It returns the decoded
// response and the number of bytes consumed, or (nil, 0, nil) when b does
// not yet hold a complete frame.
func ParseFrame(b []byte) (*Response, int, error) {
	if len(b) < HeaderSize {
		return nil, 0, nil
	}

	if pid := binary.BigEndian.Uint16(b[2:4]); pid != ProtocolID {
		return nil, 0, &FrameError{Message: fmt.Sprintf("unexpected protocol id %d", pid)}
	}

	length := int(binary.BigEndian.Uint16(b[4:6]))
	if length < 2 {
		return nil, 0, &FrameError{Message: "length field below minimum of 2"}
	}
	if length > 1+MaxPDUSize {
		return nil, 0, &FrameError{Message: "length field exceeds maximum PDU size"}
	}

	total := HeaderSize - 1 + length
	if len(b) < total {
		return nil, 0, nil
	}

	resp := &Response{
		TransactionID: binary.BigEndian.Uint16(b[0:2]),
		UnitID:        b[6],
		Function:      FunctionCode(b[7]),
	}

	data := b[8:total]
	if resp.Function&exceptionBit != 0 {
		resp.Function &^= exceptionBit
		if len(data) < 1 {
			return nil, 0, &FrameError{Message: "exception response missing exception code"}
		}
		resp.Err = &ExceptionError{
			Function:  resp.Function,
			Exception: ExceptionCode(data[0]),
		}
	} else if len(data) > 0 {
		// Copy out of the caller's buffer: the response outlives the
		// framer's internal storage.
		resp.Data = append([]byte(nil), data...)
	}

	return resp, total, nil
}
