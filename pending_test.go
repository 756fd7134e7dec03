package modbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/modbus/mbap"
)

func TestTransaction_Resolve(t *testing.T) {
	tx := newTransaction(42)

	select {
	case <-tx.Done():
		t.Fatal("new transaction must be pending")
	default:
	}

	resp := &mbap.Response{TransactionID: 42, Function: mbap.FuncReadCoils}
	tx.resolve(resp)

	got, err := tx.Await(context.Background())
	require.NoError(t, err)
	assert.Same(t, resp, got)
	assert.Equal(t, uint16(42), tx.ID())
}

func TestTransaction_Fail(t *testing.T) {
	tx := newTransaction(7)
	tx.fail(&ConnectionLostError{})

	_, err := tx.Await(context.Background())
	var lost *ConnectionLostError
	require.ErrorAs(t, err, &lost)
}

func TestTransaction_FailedConstructor(t *testing.T) {
	tx := failedTransaction(0, ErrNotConnected)

	// Already terminal: Await returns without blocking.
	_, err := tx.Await(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	select {
	case <-tx.Done():
	default:
		t.Fatal("failed transaction must be done")
	}
}

func TestTransaction_AwaitContextCancelled(t *testing.T) {
	tx := newTransaction(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := tx.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The handle itself is still pending and can resolve later.
	resp := &mbap.Response{TransactionID: 1}
	tx.resolve(resp)

	got, err := tx.Await(context.Background())
	require.NoError(t, err)
	assert.Same(t, resp, got)
}

func TestTransaction_ManyWaiters(t *testing.T) {
	tx := newTransaction(9)
	resp := &mbap.Response{TransactionID: 9}

	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := tx.Await(context.Background())
			results <- err
		}()
	}

	tx.resolve(resp)

	for i := 0; i < 5; i++ {
		require.NoError(t, <-results)
	}
}
