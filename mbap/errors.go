package mbap

import (
	"errors"
	"fmt"
)

// Error types for wire protocol operations. They help clients determine
// connection handling strategy (close vs. reuse) after a failure.

// FrameError indicates a malformed or inconsistent frame in the byte
// stream. Once the stream is corrupt there is no way to find the next
// frame boundary, so the connection must be closed.
type FrameError struct {
	Message string
}

func (e *FrameError) Error() string {
	return "mbap: bad frame: " + e.Message
}

// ShouldCloseConnection returns true - the stream position is lost.
func (e *FrameError) ShouldCloseConnection() bool {
	return true
}

// ExceptionError is a Modbus exception response: the server understood the
// frame but rejected the operation. The connection protocol state is still
// valid and can be reused.
type ExceptionError struct {
	Function  FunctionCode
	Exception ExceptionCode
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception on %s: %s (0x%02X)", e.Function, e.Exception, byte(e.Exception))
}

// ShouldCloseConnection returns false - exception responses don't corrupt
// protocol state.
func (e *ExceptionError) ShouldCloseConnection() bool {
	return false
}

// EncodeError is returned when a request cannot be serialized, typically an
// oversized PDU. The connection is untouched.
type EncodeError struct {
	Message string
}

func (e *EncodeError) Error() string {
	return "mbap: " + e.Message
}

func (e *EncodeError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is implemented by errors that know whether the
// connection they came from is still usable.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err requires closing the
// connection. Unknown error types are treated conservatively as fatal.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}
