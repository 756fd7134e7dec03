package mbap

import "encoding/binary"

// EncodeFrame serializes a request to wire format.
//
// Frame layout:
//
//	tid(2) pid(2) length(2) uid(1) function(1) data(n)
//
// where length counts the unit ID, function code and data.
func EncodeFrame(req *Request) ([]byte, error) {
	pduSize := 1 + len(req.Data)
	if pduSize > MaxPDUSize {
		return nil, &EncodeError{Message: "PDU exceeds 253 bytes"}
	}

	frame := make([]byte, HeaderSize+pduSize)
	binary.BigEndian.PutUint16(frame[0:2], req.TransactionID)
	binary.BigEndian.PutUint16(frame[2:4], ProtocolID)
	binary.BigEndian.PutUint16(frame[4:6], uint16(1+pduSize))
	frame[6] = req.UnitID
	frame[7] = byte(req.Function)
	copy(frame[8:], req.Data)
	return frame, nil
}
