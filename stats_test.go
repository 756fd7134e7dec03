package modbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientStatsCollector_Snapshot(t *testing.T) {
	c := newClientStatsCollector()

	c.recordConnect()
	c.recordExecute()
	c.recordExecute()
	c.recordReply()
	c.recordUnsolicited()
	c.recordNotConnected()
	c.recordWriteError()
	c.recordDisconnect(3)

	s := c.snapshot()
	assert.Equal(t, uint64(1), s.Connects)
	assert.Equal(t, uint64(2), s.Executes)
	assert.Equal(t, uint64(1), s.Replies)
	assert.Equal(t, uint64(1), s.Unsolicited)
	assert.Equal(t, uint64(1), s.NotConnected)
	assert.Equal(t, uint64(1), s.WriteErrors)
	assert.Equal(t, uint64(1), s.Disconnects)
	assert.Equal(t, uint64(3), s.LostInFlight)
}

func TestClientStatsCollector_Concurrent(t *testing.T) {
	c := newClientStatsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.recordExecute()
				c.recordReply()
			}
		}()
	}
	wg.Wait()

	s := c.snapshot()
	assert.Equal(t, uint64(8000), s.Executes)
	assert.Equal(t, uint64(8000), s.Replies)
}
