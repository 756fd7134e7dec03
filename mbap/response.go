package mbap

import "encoding/binary"

// Response represents one decoded inbound frame.
//
// Exception responses from the server are reported via Err (not as Go
// errors from the decoder): the frame itself was well-formed. Callers
// should check IsException before interpreting Data.
type Response struct {
	// TransactionID is the correlation identifier echoed by the server.
	TransactionID uint16

	// UnitID is the responding device.
	UnitID byte

	// Function is the original function code, with the exception bit
	// stripped for exception responses.
	Function FunctionCode

	// Data is the PDU payload following the function code. Empty for
	// exception responses.
	Data []byte

	// Err is non-nil for exception responses (*ExceptionError).
	Err *ExceptionError
}

// IsException reports whether the server rejected the operation.
func (r *Response) IsException() bool {
	return r.Err != nil
}

// Bits unpacks a read-coils or read-discrete-inputs response into quantity
// booleans. The response layout is a byte count followed by packed bits,
// LSB first.
func (r *Response) Bits(quantity int) ([]bool, error) {
	if len(r.Data) < 1 {
		return nil, &FrameError{Message: "bit response missing byte count"}
	}
	byteCount := int(r.Data[0])
	if len(r.Data)-1 != byteCount || byteCount < (quantity+7)/8 {
		return nil, &FrameError{Message: "bit response byte count mismatch"}
	}
	bits := make([]bool, quantity)
	for i := range bits {
		bits[i] = r.Data[1+i/8]&(1<<(i%8)) != 0
	}
	return bits, nil
}

// Registers unpacks a register-read response into 16-bit values.
func (r *Response) Registers() ([]uint16, error) {
	if len(r.Data) < 1 {
		return nil, &FrameError{Message: "register response missing byte count"}
	}
	byteCount := int(r.Data[0])
	if len(r.Data)-1 != byteCount || byteCount%2 != 0 {
		return nil, &FrameError{Message: "register response byte count mismatch"}
	}
	values := make([]uint16, byteCount/2)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(r.Data[1+2*i:])
	}
	return values, nil
}

// EchoPayload returns the echoed payload from a diagnostics
// return-query-data response.
func (r *Response) EchoPayload() ([]byte, error) {
	if len(r.Data) < 2 {
		return nil, &FrameError{Message: "diagnostics response too short"}
	}
	if binary.BigEndian.Uint16(r.Data[0:2]) != DiagSubReturnQueryData {
		return nil, &FrameError{Message: "unexpected diagnostics sub-function"}
	}
	return r.Data[2:], nil
}
