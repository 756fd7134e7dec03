package mbap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame_Layout(t *testing.T) {
	req := NewWriteSingleRegisterRequest(0x11, 0x0102, 0x0304)
	req.TransactionID = 0xABCD

	wire, err := EncodeFrame(req)
	require.NoError(t, err)

	assert.Equal(t, []byte{
		0xAB, 0xCD, // transaction ID
		0x00, 0x00, // protocol ID
		0x00, 0x06, // length: unit + fc + 4 data bytes
		0x11,       // unit ID
		0x06,       // function
		0x01, 0x02, // address
		0x03, 0x04, // value
	}, wire)
}

func TestEncodeFrame_OversizedPDU(t *testing.T) {
	req := NewRequest(1, FuncWriteMultipleRegisters, make([]byte, MaxPDUSize))

	_, err := EncodeFrame(req)
	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.False(t, ShouldCloseConnection(err))
}

func TestNewWriteSingleCoilRequest_Encoding(t *testing.T) {
	on := NewWriteSingleCoilRequest(1, 3, true)
	assert.Equal(t, []byte{0x00, 0x03, 0xFF, 0x00}, on.Data)

	off := NewWriteSingleCoilRequest(1, 3, false)
	assert.Equal(t, []byte{0x00, 0x03, 0x00, 0x00}, off.Data)
}

func TestNewWriteMultipleCoilsRequest_BitPacking(t *testing.T) {
	// Nine coils need two data bytes; bit i goes to byte i/8, LSB first.
	values := []bool{true, false, false, true, false, false, false, true, true}
	req := NewWriteMultipleCoilsRequest(2, 0x0010, values)

	require.Equal(t, FuncWriteMultipleCoils, req.Function)
	assert.Equal(t, []byte{
		0x00, 0x10, // address
		0x00, 0x09, // quantity
		0x02,       // byte count
		0x89, 0x01, // 0b10001001, 0b00000001
	}, req.Data)
}

func TestNewWriteMultipleRegistersRequest_Encoding(t *testing.T) {
	req := NewWriteMultipleRegistersRequest(1, 0x0020, []uint16{0x1122, 0x3344})

	assert.Equal(t, []byte{
		0x00, 0x20,
		0x00, 0x02,
		0x04,
		0x11, 0x22,
		0x33, 0x44,
	}, req.Data)
}

func TestNewEchoRequest(t *testing.T) {
	req := NewEchoRequest(1, []byte{0xCA, 0xFE})

	require.Equal(t, FuncDiagnostics, req.Function)
	assert.Equal(t, []byte{0x00, 0x00, 0xCA, 0xFE}, req.Data)
}
