package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/conclave-ai/conclave/internal/events"
)

// BusAdapter bridges bus events to bubbletea messages. Completions and
// failures arrive on the priority channel so the monitor never misses a
// terminal state; the regular subscription carries the remaining types,
// which keeps the two channels disjoint.
type BusAdapter struct {
	bus        *events.Bus
	eventCh    <-chan events.Event
	priorityCh <-chan events.Event
	msgCh      chan tea.Msg
	closeCh    chan struct{}
	mu         sync.Mutex
	closed     bool
}

// NewBusAdapter subscribes to the bus and starts the pump goroutine.
func NewBusAdapter(bus *events.Bus) *BusAdapter {
	a := &BusAdapter{
		bus: bus,
		eventCh: bus.Subscribe(
			events.TypeRequestStarted,
			events.TypeExpertResponded,
			events.TypeExpertFailed,
			events.TypeConsensusReached,
		),
		priorityCh: bus.SubscribePriority(),
		msgCh:      make(chan tea.Msg, 100),
		closeCh:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Messages returns the channel the model reads from.
func (a *BusAdapter) Messages() <-chan tea.Msg {
	return a.msgCh
}

// Dropped reports how many events the bus discarded across subscribers.
func (a *BusAdapter) Dropped() int64 {
	return a.bus.DroppedCount()
}

// Close stops the pump. Safe to call more than once.
func (a *BusAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	close(a.closeCh)
	a.bus.Unsubscribe(a.eventCh)
	a.bus.Unsubscribe(a.priorityCh)
}

func (a *BusAdapter) run() {
	defer close(a.msgCh)
	for {
		select {
		case <-a.closeCh:
			return

		case event, ok := <-a.priorityCh:
			if !ok {
				return
			}
			a.forward(event)

		case event, ok := <-a.eventCh:
			if !ok {
				return
			}
			a.forward(event)
		}
	}
}

func (a *BusAdapter) forward(event events.Event) {
	msg := eventToMsg(event)
	if msg == nil {
		return
	}
	select {
	case a.msgCh <- msg:
	default:
		// Model is behind; the bus drop counter surfaces the loss.
	}
}

func eventToMsg(event events.Event) tea.Msg {
	switch e := event.(type) {
	case events.RequestStartedEvent:
		return RequestStartedMsg{
			ID:        e.RequestID(),
			SessionID: e.SessionID(),
			Mode:      e.Mode,
			Experts:   e.Experts,
			Time:      e.Timestamp(),
		}

	case events.ExpertRespondedEvent:
		return ExpertUpdateMsg{
			RequestID:  e.RequestID(),
			ExpertID:   e.ExpertID,
			Confidence: e.Confidence,
			LatencyMs:  e.LatencyMs,
		}

	case events.ExpertFailedEvent:
		return ExpertUpdateMsg{
			RequestID: e.RequestID(),
			ExpertID:  e.ExpertID,
			Failed:    true,
			Reason:    e.Reason,
		}

	case events.ConsensusReachedEvent:
		return ConsensusMsg{
			RequestID:     e.RequestID(),
			Method:        e.Method,
			Confidence:    e.Confidence,
			ThresholdMet:  e.ThresholdMet,
			Disagreements: len(e.Disagreements),
		}

	case events.RequestCompletedEvent:
		return RequestFinishedMsg{
			ID:           e.RequestID(),
			Mode:         e.Mode,
			Method:       e.Method,
			Confidence:   e.Confidence,
			ThresholdMet: e.ThresholdMet,
			Contributing: e.Contributing,
			Omitted:      e.Omitted,
			LatencyMs:    e.LatencyMs,
		}

	case events.RequestFailedEvent:
		return RequestFinishedMsg{
			ID:     e.RequestID(),
			Failed: true,
			Error:  e.Message,
		}

	default:
		return nil
	}
}
