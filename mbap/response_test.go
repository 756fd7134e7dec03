package mbap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Bits(t *testing.T) {
	resp := &Response{
		Function: FuncReadCoils,
		Data:     []byte{0x02, 0x05, 0x01}, // count, 0b00000101, 0b00000001
	}

	bits, err := resp.Bits(9)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, false, false, false, false, false, true}, bits)
}

func TestResponse_BitsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"count mismatch", []byte{0x02, 0x01}},
		{"count too small for quantity", []byte{0x01, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Function: FuncReadCoils, Data: tt.data}
			_, err := resp.Bits(9)
			var frameErr *FrameError
			require.ErrorAs(t, err, &frameErr)
		})
	}
}

func TestResponse_Registers(t *testing.T) {
	resp := &Response{
		Function: FuncReadHoldingRegisters,
		Data:     []byte{0x04, 0x12, 0x34, 0xAB, 0xCD},
	}

	values, err := resp.Registers()
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x1234, 0xABCD}, values)
}

func TestResponse_RegistersMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"odd byte count", []byte{0x03, 0x01, 0x02, 0x03}},
		{"count mismatch", []byte{0x04, 0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Function: FuncReadHoldingRegisters, Data: tt.data}
			_, err := resp.Registers()
			var frameErr *FrameError
			require.ErrorAs(t, err, &frameErr)
		})
	}
}

func TestResponse_EchoPayload(t *testing.T) {
	resp := &Response{
		Function: FuncDiagnostics,
		Data:     []byte{0x00, 0x00, 0xCA, 0xFE},
	}

	payload, err := resp.EchoPayload()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCA, 0xFE}, payload)
}

func TestResponse_EchoPayloadWrongSubFunction(t *testing.T) {
	resp := &Response{
		Function: FuncDiagnostics,
		Data:     []byte{0x00, 0x01, 0xCA, 0xFE},
	}

	_, err := resp.EchoPayload()
	require.Error(t, err)
}
