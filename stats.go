package modbus

import "sync/atomic"

// ClientStats is a snapshot of per-client counters. Counters are cumulative
// over the client's lifetime, across reconnects.
//
// For Prometheus integration, expose all fields as counters.
type ClientStats struct {
	Executes     uint64 // requests handed to the transport
	Replies      uint64 // responses matched to a pending transaction
	Unsolicited  uint64 // responses with no matching transaction, discarded
	NotConnected uint64 // Execute calls rejected on a disconnected client
	WriteErrors  uint64 // Execute calls that failed writing to the transport
	LostInFlight uint64 // pending transactions failed by a disconnect
	Connects     uint64 // successful connection establishments
	Disconnects  uint64 // connection teardowns (transport loss or Close)
}

// clientStatsCollector updates counters without locking. Not exported -
// clients update their own stats.
type clientStatsCollector struct {
	executes     atomic.Uint64
	replies      atomic.Uint64
	unsolicited  atomic.Uint64
	notConnected atomic.Uint64
	writeErrors  atomic.Uint64
	lostInFlight atomic.Uint64
	connects     atomic.Uint64
	disconnects  atomic.Uint64
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{}
}

func (c *clientStatsCollector) recordExecute()      { c.executes.Add(1) }
func (c *clientStatsCollector) recordReply()        { c.replies.Add(1) }
func (c *clientStatsCollector) recordUnsolicited()  { c.unsolicited.Add(1) }
func (c *clientStatsCollector) recordNotConnected() { c.notConnected.Add(1) }
func (c *clientStatsCollector) recordWriteError()   { c.writeErrors.Add(1) }
func (c *clientStatsCollector) recordConnect()      { c.connects.Add(1) }

func (c *clientStatsCollector) recordDisconnect(lost int) {
	c.disconnects.Add(1)
	c.lostInFlight.Add(uint64(lost))
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Executes:     c.executes.Load(),
		Replies:      c.replies.Load(),
		Unsolicited:  c.unsolicited.Load(),
		NotConnected: c.notConnected.Load(),
		WriteErrors:  c.writeErrors.Load(),
		LostInFlight: c.lostInFlight.Load(),
		Connects:     c.connects.Load(),
		Disconnects:  c.disconnects.Load(),
	}
}
