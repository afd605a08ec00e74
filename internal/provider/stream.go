package provider

import (
	"context"
	"io"
	"sync"
)

// eventStream adapts a producer function to the Stream interface. The
// producer runs on its own goroutine and sends events through a buffered
// channel; Close cancels the producer's context, so a blocked send unwinds
// promptly and the goroutine never leaks.
type eventStream struct {
	events chan Event
	errc   chan error
	cancel context.CancelFunc

	mu       sync.Mutex
	finalErr error
	finished bool
}

// newEventStream starts run on a goroutine and returns the consuming side.
// run should send events with emit and return nil on normal completion,
// ctx.Err() when cancelled, or the transport error otherwise.
func newEventStream(ctx context.Context, run func(ctx context.Context, events chan<- Event) error) Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &eventStream{
		events: make(chan Event, 16),
		errc:   make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		err := run(ctx, s.events)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		s.errc <- err
		close(s.events)
	}()
	return s
}

// emit sends one event unless ctx is done. Producers must use it for every
// send so Close can always unblock them.
func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Recv returns the next event, or the terminal error once the producer has
// finished and buffered events have drained. A nil producer error surfaces
// as io.EOF.
func (s *eventStream) Recv() (Event, error) {
	ev, ok := <-s.events
	if ok {
		return ev, nil
	}
	return Event{}, s.terminalErr()
}

func (s *eventStream) terminalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.finalErr = <-s.errc
		s.finished = true
	}
	if s.finalErr == nil {
		return io.EOF
	}
	return s.finalErr
}

// Close cancels the producer. Safe to call more than once and after the
// stream has already reached EOF.
func (s *eventStream) Close() error {
	s.cancel()
	return nil
}
