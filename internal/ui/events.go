package ui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Event kinds pushed to /api/{backend}/events.
const (
	eventState  = "state"
	eventPhase  = "phase"
	eventRecord = "record"
)

type event struct {
	Kind    string
	Backend string
	Data    any
}

// broker fans events out to SSE subscribers. Slow subscribers drop events
// rather than stall a benchmark.
type broker struct {
	mu   sync.Mutex
	subs map[chan event]string
}

func newBroker() *broker {
	return &broker{subs: make(map[chan event]string)}
}

func (b *broker) subscribe(backend string) (<-chan event, func()) {
	ch := make(chan event, 64)
	b.mu.Lock()
	b.subs[ch] = backend
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
}

func (b *broker) publish(ev event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, backend := range b.subs {
		if backend != ev.Backend {
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broker) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// writeEvent writes one event in SSE wire format and flushes it.
func writeEvent(w http.ResponseWriter, f http.Flusher, ev event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return err
	}
	f.Flush()
	return nil
}
