package mbap

// FunctionCode identifies the operation carried by a PDU.
type FunctionCode byte

// ExceptionCode is the failure reason carried by an exception response.
type ExceptionCode byte

// MBAP header layout: transaction ID (2), protocol ID (2), length (2),
// unit ID (1). Length counts the unit ID plus the PDU.
const (
	// HeaderSize is the size of the MBAP header in bytes.
	HeaderSize = 7

	// ProtocolID is the protocol identifier for Modbus; always zero.
	ProtocolID = 0

	// MaxPDUSize is the maximum PDU size (function code + data).
	MaxPDUSize = 253

	// MaxFrameSize is the largest possible frame on the wire.
	MaxFrameSize = HeaderSize + MaxPDUSize

	// MinTransactionID and MaxTransactionID bound the 16-bit transaction
	// identifier field.
	MinTransactionID = 0
	MaxTransactionID = 0xFFFF
)

// Public function codes.
const (
	FuncReadCoils              FunctionCode = 0x01
	FuncReadDiscreteInputs     FunctionCode = 0x02
	FuncReadHoldingRegisters   FunctionCode = 0x03
	FuncReadInputRegisters     FunctionCode = 0x04
	FuncWriteSingleCoil        FunctionCode = 0x05
	FuncWriteSingleRegister    FunctionCode = 0x06
	FuncDiagnostics            FunctionCode = 0x08
	FuncWriteMultipleCoils     FunctionCode = 0x0F
	FuncWriteMultipleRegisters FunctionCode = 0x10
)

// exceptionBit is set on the function code of an exception response.
const exceptionBit = 0x80

// DiagSubReturnQueryData is the diagnostics sub-function that echoes the
// request data back unchanged. Used as a connection health check.
const DiagSubReturnQueryData = 0x0000

// Exception codes returned by servers.
const (
	ExceptionIllegalFunction    ExceptionCode = 0x01
	ExceptionIllegalDataAddress ExceptionCode = 0x02
	ExceptionIllegalDataValue   ExceptionCode = 0x03
	ExceptionServerFailure      ExceptionCode = 0x04
	ExceptionAcknowledge        ExceptionCode = 0x05
	ExceptionServerBusy         ExceptionCode = 0x06
	ExceptionMemoryParityError  ExceptionCode = 0x08
	ExceptionGatewayPath        ExceptionCode = 0x0A
	ExceptionGatewayTarget      ExceptionCode = 0x0B
)

// Quantity limits from the Modbus application protocol spec.
const (
	MaxReadCoils      = 2000
	MaxReadRegisters  = 125
	MaxWriteCoils     = 1968
	MaxWriteRegisters = 123
)

// String returns a short human-readable name for the function code.
func (fc FunctionCode) String() string {
	switch fc {
	case FuncReadCoils:
		return "read-coils"
	case FuncReadDiscreteInputs:
		return "read-discrete-inputs"
	case FuncReadHoldingRegisters:
		return "read-holding-registers"
	case FuncReadInputRegisters:
		return "read-input-registers"
	case FuncWriteSingleCoil:
		return "write-single-coil"
	case FuncWriteSingleRegister:
		return "write-single-register"
	case FuncDiagnostics:
		return "diagnostics"
	case FuncWriteMultipleCoils:
		return "write-multiple-coils"
	case FuncWriteMultipleRegisters:
		return "write-multiple-registers"
	}
	return "unknown"
}

// String returns the standard name of the exception code.
func (ec ExceptionCode) String() string {
	switch ec {
	case ExceptionIllegalFunction:
		return "illegal function"
	case ExceptionIllegalDataAddress:
		return "illegal data address"
	case ExceptionIllegalDataValue:
		return "illegal data value"
	case ExceptionServerFailure:
		return "server device failure"
	case ExceptionAcknowledge:
		return "acknowledge"
	case ExceptionServerBusy:
		return "server device busy"
	case ExceptionMemoryParityError:
		return "memory parity error"
	case ExceptionGatewayPath:
		return "gateway path unavailable"
	case ExceptionGatewayTarget:
		return "gateway target failed to respond"
	}
	return "unknown exception"
}
