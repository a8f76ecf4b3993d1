package light

import (
	"context"
	"sync"
	"time"

	"github.com/ledstack/ledwifi/pkg/protocol"
)

// pendingTable correlates outbound requests with inbound responses. Each
// response category has at most one outstanding slot; issuing a new
// request of the same category replaces the old slot, whose late response
// (if any) is then treated as a generic update instead of resolving a
// stale waiter.
type pendingTable struct {
	mu    sync.Mutex
	slots map[protocol.MessageClass]chan []byte
}

func newPendingTable() *pendingTable {
	return &pendingTable{slots: make(map[protocol.MessageClass]chan []byte)}
}

// issue creates a fresh one-shot slot for the category, mooting any prior
// unresolved one.
func (p *pendingTable) issue(class protocol.MessageClass) chan []byte {
	ch := make(chan []byte, 1)
	p.mu.Lock()
	p.slots[class] = ch
	p.mu.Unlock()
	return ch
}

// resolve delivers a response to the category's slot, if one is
// outstanding, and clears it. Responses with no waiter are fine; they
// still feed the state model upstream.
func (p *pendingTable) resolve(class protocol.MessageClass, msg []byte) {
	p.mu.Lock()
	ch, ok := p.slots[class]
	if ok {
		delete(p.slots, class)
	}
	p.mu.Unlock()
	if ok {
		select {
		case ch <- msg:
		default:
		}
	}
}

// abandon clears a slot whose waiter gave up. The in-flight device
// operation is not cancelled; a late response becomes a generic update.
func (p *pendingTable) abandon(class protocol.MessageClass, ch chan []byte) {
	p.mu.Lock()
	if p.slots[class] == ch {
		delete(p.slots, class)
	}
	p.mu.Unlock()
}

// await blocks until the slot resolves, the timeout expires, or ctx is
// cancelled. Expiry abandons the slot.
func (p *pendingTable) await(ctx context.Context, class protocol.MessageClass, ch chan []byte, timeout time.Duration) ([]byte, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case msg := <-ch:
		return msg, nil
	case <-t.C:
		p.abandon(class, ch)
		return nil, ErrTimeout
	case <-ctx.Done():
		p.abandon(class, ch)
		return nil, ctx.Err()
	}
}
