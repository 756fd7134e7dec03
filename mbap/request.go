package mbap

import "encoding/binary"

// Request represents one outgoing Modbus PDU with its MBAP addressing
// fields. This is a low-level container for request data without
// serialization logic. Fields map directly to protocol elements.
//
// TransactionID is assigned by the transaction layer immediately before
// encoding; builders leave it zero.
type Request struct {
	// TransactionID correlates the request with its eventual response.
	TransactionID uint16

	// UnitID addresses a device behind a gateway. 0xFF is conventional
	// for plain TCP-attached servers; 0 is broadcast on serial networks.
	UnitID byte

	// Function is the operation to perform.
	Function FunctionCode

	// Data is the PDU payload following the function code.
	// len(Data) must not exceed MaxPDUSize-1.
	Data []byte
}

// NewRequest creates a request with the given payload. Most callers should
// prefer the typed builders below.
func NewRequest(unitID byte, fn FunctionCode, data []byte) *Request {
	return &Request{UnitID: unitID, Function: fn, Data: data}
}

// --- Typed builders for the public function codes ---

// NewReadCoilsRequest reads quantity coils starting at addr.
func NewReadCoilsRequest(unitID byte, addr, quantity uint16) *Request {
	return NewRequest(unitID, FuncReadCoils, addrQuantity(addr, quantity))
}

// NewReadDiscreteInputsRequest reads quantity discrete inputs starting at addr.
func NewReadDiscreteInputsRequest(unitID byte, addr, quantity uint16) *Request {
	return NewRequest(unitID, FuncReadDiscreteInputs, addrQuantity(addr, quantity))
}

// NewReadHoldingRegistersRequest reads quantity holding registers starting at addr.
func NewReadHoldingRegistersRequest(unitID byte, addr, quantity uint16) *Request {
	return NewRequest(unitID, FuncReadHoldingRegisters, addrQuantity(addr, quantity))
}

// NewReadInputRegistersRequest reads quantity input registers starting at addr.
func NewReadInputRegistersRequest(unitID byte, addr, quantity uint16) *Request {
	return NewRequest(unitID, FuncReadInputRegisters, addrQuantity(addr, quantity))
}

// NewWriteSingleCoilRequest writes one coil. The wire encoding for the
// value is 0xFF00 for on and 0x0000 for off.
func NewWriteSingleCoilRequest(unitID byte, addr uint16, on bool) *Request {
	value := uint16(0x0000)
	if on {
		value = 0xFF00
	}
	return NewRequest(unitID, FuncWriteSingleCoil, addrQuantity(addr, value))
}

// NewWriteSingleRegisterRequest writes one holding register.
func NewWriteSingleRegisterRequest(unitID byte, addr, value uint16) *Request {
	return NewRequest(unitID, FuncWriteSingleRegister, addrQuantity(addr, value))
}

// NewWriteMultipleCoilsRequest writes the given coil values starting at
// addr. Values are packed eight per byte, LSB first.
func NewWriteMultipleCoilsRequest(unitID byte, addr uint16, values []bool) *Request {
	byteCount := (len(values) + 7) / 8
	data := make([]byte, 5+byteCount)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], uint16(len(values)))
	data[4] = byte(byteCount)
	for i, v := range values {
		if v {
			data[5+i/8] |= 1 << (i % 8)
		}
	}
	return NewRequest(unitID, FuncWriteMultipleCoils, data)
}

// NewWriteMultipleRegistersRequest writes the given register values
// starting at addr.
func NewWriteMultipleRegistersRequest(unitID byte, addr uint16, values []uint16) *Request {
	data := make([]byte, 5+2*len(values))
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], uint16(len(values)))
	data[4] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(data[5+2*i:], v)
	}
	return NewRequest(unitID, FuncWriteMultipleRegisters, data)
}

// NewEchoRequest builds a diagnostics return-query-data request carrying
// payload. A healthy server echoes the payload back unchanged.
func NewEchoRequest(unitID byte, payload []byte) *Request {
	data := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(data[0:2], DiagSubReturnQueryData)
	copy(data[2:], payload)
	return NewRequest(unitID, FuncDiagnostics, data)
}

func addrQuantity(addr, quantity uint16) []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], quantity)
	return data
}
