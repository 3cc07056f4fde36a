package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressHub_SubscriberReceivesLatestOnAttach(t *testing.T) {
	h := newProgressHub()
	h.publish(Progress{Percent: 40})

	ch, cancel := h.subscribe()
	defer cancel()

	select {
	case p := <-ch:
		assert.Equal(t, 40.0, p.Percent)
	default:
		t.Fatal("expected an immediate snapshot on subscribe")
	}
}

func TestProgressHub_LateSubscriberAfterTerminalGetsDoneImmediately(t *testing.T) {
	h := newProgressHub()
	h.publish(Progress{Percent: 100, Done: true})

	ch, cancel := h.subscribe()
	defer cancel()

	p, ok := <-ch
	require.True(t, ok)
	assert.True(t, p.Done)

	_, ok = <-ch
	assert.False(t, ok, "channel should be closed after delivering the terminal snapshot")
}

func TestProgressHub_PublishAfterDoneClosesAllSubscribers(t *testing.T) {
	h := newProgressHub()
	ch, _ := h.subscribe()

	h.publish(Progress{Percent: 10})
	<-ch

	h.publish(Progress{Percent: 100, Done: true})
	p, ok := <-ch
	require.True(t, ok)
	assert.True(t, p.Done)

	_, ok = <-ch
	assert.False(t, ok)
}

func TestProgressHub_SlowSubscriberCoalescesToLatestValue(t *testing.T) {
	h := newProgressHub()
	ch, cancel := h.subscribe()
	defer cancel()

	for i := 1; i <= 10; i++ {
		h.publish(Progress{Percent: float64(i)})
	}

	var last Progress
	for {
		select {
		case p := <-ch:
			last = p
			continue
		default:
		}
		break
	}
	assert.Equal(t, 10.0, last.Percent)
}

func TestProgressHub_CancelRemovesSubscriberWithoutPanic(t *testing.T) {
	h := newProgressHub()
	_, cancel := h.subscribe()
	cancel()
	assert.NotPanics(t, func() { h.publish(Progress{Percent: 1}) })
}
