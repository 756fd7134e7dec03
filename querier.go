package modbus

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fieldline/modbus/mbap"
)

// Querier is the typed operation surface implemented by Client, UDPClient
// and Pool.
type Querier interface {
	ReadCoils(ctx context.Context, unitID byte, addr, quantity uint16) ([]bool, error)
	ReadDiscreteInputs(ctx context.Context, unitID byte, addr, quantity uint16) ([]bool, error)
	ReadHoldingRegisters(ctx context.Context, unitID byte, addr, quantity uint16) ([]uint16, error)
	ReadInputRegisters(ctx context.Context, unitID byte, addr, quantity uint16) ([]uint16, error)
	WriteSingleCoil(ctx context.Context, unitID byte, addr uint16, on bool) error
	WriteSingleRegister(ctx context.Context, unitID byte, addr, value uint16) error
	WriteMultipleCoils(ctx context.Context, unitID byte, addr uint16, values []bool) error
	WriteMultipleRegisters(ctx context.Context, unitID byte, addr uint16, values []uint16) error
	Ping(ctx context.Context, unitID byte) error
}

// roundTripper executes one request/response cycle. Client and UDPClient
// implement it over a single transaction; Pool adds connection acquisition
// and circuit breaking around it.
type roundTripper interface {
	roundTrip(ctx context.Context, req *mbap.Request) (*mbap.Response, error)
}

// querier implements Querier over a roundTripper. It is embedded in the
// client types so its methods are promoted onto them.
type querier struct {
	rt roundTripper
}

func (q querier) call(ctx context.Context, req *mbap.Request) (*mbap.Response, error) {
	resp, err := q.rt.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.IsException() {
		return nil, resp.Err
	}
	return resp, nil
}

func (q querier) readBits(ctx context.Context, req *mbap.Request, quantity uint16) ([]bool, error) {
	resp, err := q.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Bits(int(quantity))
}

func (q querier) readRegisters(ctx context.Context, req *mbap.Request) ([]uint16, error) {
	resp, err := q.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Registers()
}

// ReadCoils reads quantity coil states starting at addr.
func (q querier) ReadCoils(ctx context.Context, unitID byte, addr, quantity uint16) ([]bool, error) {
	if quantity < 1 || quantity > mbap.MaxReadCoils {
		return nil, fmt.Errorf("modbus: coil quantity %d out of range [1, %d]", quantity, mbap.MaxReadCoils)
	}
	return q.readBits(ctx, mbap.NewReadCoilsRequest(unitID, addr, quantity), quantity)
}

// ReadDiscreteInputs reads quantity discrete input states starting at addr.
func (q querier) ReadDiscreteInputs(ctx context.Context, unitID byte, addr, quantity uint16) ([]bool, error) {
	if quantity < 1 || quantity > mbap.MaxReadCoils {
		return nil, fmt.Errorf("modbus: input quantity %d out of range [1, %d]", quantity, mbap.MaxReadCoils)
	}
	return q.readBits(ctx, mbap.NewReadDiscreteInputsRequest(unitID, addr, quantity), quantity)
}

// ReadHoldingRegisters reads quantity holding registers starting at addr.
func (q querier) ReadHoldingRegisters(ctx context.Context, unitID byte, addr, quantity uint16) ([]uint16, error) {
	if quantity < 1 || quantity > mbap.MaxReadRegisters {
		return nil, fmt.Errorf("modbus: register quantity %d out of range [1, %d]", quantity, mbap.MaxReadRegisters)
	}
	return q.readRegisters(ctx, mbap.NewReadHoldingRegistersRequest(unitID, addr, quantity))
}

// ReadInputRegisters reads quantity input registers starting at addr.
func (q querier) ReadInputRegisters(ctx context.Context, unitID byte, addr, quantity uint16) ([]uint16, error) {
	if quantity < 1 || quantity > mbap.MaxReadRegisters {
		return nil, fmt.Errorf("modbus: register quantity %d out of range [1, %d]", quantity, mbap.MaxReadRegisters)
	}
	return q.readRegisters(ctx, mbap.NewReadInputRegistersRequest(unitID, addr, quantity))
}

// WriteSingleCoil sets one coil on or off.
func (q querier) WriteSingleCoil(ctx context.Context, unitID byte, addr uint16, on bool) error {
	_, err := q.call(ctx, mbap.NewWriteSingleCoilRequest(unitID, addr, on))
	return err
}

// WriteSingleRegister writes one holding register.
func (q querier) WriteSingleRegister(ctx context.Context, unitID byte, addr, value uint16) error {
	_, err := q.call(ctx, mbap.NewWriteSingleRegisterRequest(unitID, addr, value))
	return err
}

// WriteMultipleCoils writes consecutive coil states starting at addr.
func (q querier) WriteMultipleCoils(ctx context.Context, unitID byte, addr uint16, values []bool) error {
	if len(values) < 1 || len(values) > mbap.MaxWriteCoils {
		return fmt.Errorf("modbus: coil count %d out of range [1, %d]", len(values), mbap.MaxWriteCoils)
	}
	_, err := q.call(ctx, mbap.NewWriteMultipleCoilsRequest(unitID, addr, values))
	return err
}

// WriteMultipleRegisters writes consecutive holding registers starting at addr.
func (q querier) WriteMultipleRegisters(ctx context.Context, unitID byte, addr uint16, values []uint16) error {
	if len(values) < 1 || len(values) > mbap.MaxWriteRegisters {
		return fmt.Errorf("modbus: register count %d out of range [1, %d]", len(values), mbap.MaxWriteRegisters)
	}
	_, err := q.call(ctx, mbap.NewWriteMultipleRegistersRequest(unitID, addr, values))
	return err
}

// pingPayload is an arbitrary pattern for the diagnostics echo.
var pingPayload = []byte{0xA5, 0x37}

// Ping sends a diagnostics return-query-data request and verifies the
// server echoes the payload unchanged.
func (q querier) Ping(ctx context.Context, unitID byte) error {
	resp, err := q.call(ctx, mbap.NewEchoRequest(unitID, pingPayload))
	if err != nil {
		return err
	}
	echo, err := resp.EchoPayload()
	if err != nil {
		return err
	}
	if !bytes.Equal(echo, pingPayload) {
		return fmt.Errorf("modbus: ping echo mismatch")
	}
	return nil
}
