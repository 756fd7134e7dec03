package modbus

import (
	"context"
	"errors"

	"github.com/fieldline/modbus/mbap"
)

// Transaction is the single-shot completion handle for one in-flight
// request. It is created pending by Execute and resolved exactly once:
// either with the matching decoded response, or with an error when the
// request could not be sent or the connection was lost first.
//
// Resolution happens only inside the owning client, atomically with removal
// from the pending registry, so a transaction can never be resolved twice.
type Transaction struct {
	id    uint16
	ready chan struct{}
	resp  *mbap.Response
	err   error
}

func newTransaction(id uint16) *Transaction {
	return &Transaction{id: id, ready: make(chan struct{})}
}

// failedTransaction builds an already-terminal handle, used for failures
// surfaced synchronously by Execute (not connected, write error).
func failedTransaction(id uint16, err error) *Transaction {
	t := &Transaction{id: id, ready: make(chan struct{}), err: err}
	close(t.ready)
	return t
}

// ID returns the transaction identifier assigned to the request.
func (t *Transaction) ID() uint16 {
	return t.id
}

// Done returns a channel that is closed when the transaction is resolved.
// After Done is closed, Await returns immediately.
func (t *Transaction) Done() <-chan struct{} {
	return t.ready
}

// Await blocks until the transaction is resolved or ctx is cancelled.
//
// Cancelling ctx abandons the wait only; the request stays registered on
// the client and a late reply will still resolve this handle. There is no
// per-request cancellation at this layer.
func (t *Transaction) Await(ctx context.Context) (*mbap.Response, error) {
	select {
	case <-t.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if t.err != nil {
		return nil, t.err
	}
	if t.resp == nil {
		return nil, errors.New("modbus: transaction resolved without response")
	}
	return t.resp, nil
}

// resolve delivers the decoded response. Must be called at most once, after
// the transaction has been removed from the registry.
func (t *Transaction) resolve(resp *mbap.Response) {
	t.resp = resp
	close(t.ready)
}

// fail delivers a terminal error. Same single-call contract as resolve.
func (t *Transaction) fail(err error) {
	t.err = err
	close(t.ready)
}
