package modbus

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is the failure delivered by Execute on a stream
	// client with no active connection. The request is never sent.
	ErrNotConnected = errors.New("modbus: client is not connected")

	// ErrClientClosed is the disconnect reason used by Close.
	ErrClientClosed = errors.New("modbus: client closed")

	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("modbus: pool closed")
)

// ConnectionLostError is delivered to every pending transaction when the
// transport disconnects while replies are outstanding.
type ConnectionLostError struct {
	Reason error
}

func (e *ConnectionLostError) Error() string {
	if e.Reason == nil {
		return "modbus: connection lost during request"
	}
	return fmt.Sprintf("modbus: connection lost during request: %v", e.Reason)
}

func (e *ConnectionLostError) Unwrap() error {
	return e.Reason
}

// WriteError wraps a transport write failure. It is surfaced synchronously
// through the transaction returned by Execute; the request may have been
// partially written, so the connection is considered broken.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("modbus: write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
