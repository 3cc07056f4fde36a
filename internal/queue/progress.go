package queue

import "sync"

// progressHub fans out one job's progress updates to any number of
// subscribers without ever blocking the publisher (teacher precedent:
// internal/queue/progress.go's throttled ProgressReporter, and
// internal/server/events_stream.go's per-subscriber non-blocking channel
// send). The latest snapshot is retained so a subscriber attaching after
// the first update still receives current state immediately.
type progressHub struct {
	mu          sync.Mutex
	latest      Progress
	hasLatest   bool
	terminal    bool
	subscribers map[int]chan Progress
	nextID      int
}

func newProgressHub() *progressHub {
	return &progressHub{subscribers: make(map[int]chan Progress)}
}

// publish records the snapshot and delivers it to every subscriber. Delivery
// is non-blocking: when a subscriber's buffer is full, publish drops the
// oldest buffered value to make room, so a slow subscriber misses
// intermediate updates but the latest value is always the last one queued
// on its channel.
func (h *progressHub) publish(p Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = p
	h.hasLatest = true
	if p.Done {
		h.terminal = true
	}

	for _, ch := range h.subscribers {
		select {
		case ch <- p:
		default:
			// Drop the stale pending value and retry with the latest, so a
			// slow subscriber coalesces to the newest update instead of
			// blocking the publisher.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- p:
			default:
			}
		}
	}

	if p.Done {
		for id, ch := range h.subscribers {
			close(ch)
			delete(h.subscribers, id)
		}
	}
}

// subscribe attaches a new subscriber, immediately delivering the latest
// known snapshot (or, if the job already reached terminal state, a single
// done message) before returning. The returned cancel func must be called
// to release the subscription.
func (h *progressHub) subscribe() (<-chan Progress, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Progress, 4)

	if h.terminal {
		ch <- h.latest
		close(ch)
		return ch, func() {}
	}

	if h.hasLatest {
		ch <- h.latest
	}

	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if existing, ok := h.subscribers[id]; ok {
			close(existing)
			delete(h.subscribers, id)
		}
	}
	return ch, cancel
}
