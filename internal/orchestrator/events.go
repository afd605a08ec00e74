package orchestrator

import (
	"log/slog"
	"sync/atomic"

	"github.com/petasbytes/lucius/internal/chat"
)

// EventKind classifies presentation notifications.
type EventKind int

const (
	// EventFragment: one streamed fragment was appended to the pending
	// assistant turn. TurnIndex is the index the turn will occupy once
	// committed.
	EventFragment EventKind = iota
	// EventTurnCommitted: a turn was appended to the conversation.
	EventTurnCommitted
	// EventWarning: a recoverable anomaly the user should see, such as a
	// malformed directive left in the visible text.
	EventWarning
	// EventTurnEnded: the orchestrator returned to idle; no more events
	// will arrive for this submission.
	EventTurnEnded
)

// Event is one ordered notification to the presentation layer. Events are
// emitted synchronously from the orchestrator's goroutine; sinks must not
// block.
type Event struct {
	Kind      EventKind
	TurnIndex int
	Fragment  string
	Turn      chat.Turn
	Message   string
}

// BufferedSink returns a sink that never blocks the orchestrator and the
// channel it feeds. When the consumer falls behind and the buffer fills,
// events are dropped and counted rather than stalling the turn loop;
// consumers that need a complete transcript resynchronize from History
// once the turn ends.
func BufferedSink(size int, logger *slog.Logger) (func(Event), <-chan Event) {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	ch := make(chan Event, size)
	var dropped atomic.Uint64
	sink := func(ev Event) {
		select {
		case ch <- ev:
		default:
			logger.Warn("presentation event dropped", "kind", ev.Kind, "total_dropped", dropped.Add(1))
		}
	}
	return sink, ch
}
