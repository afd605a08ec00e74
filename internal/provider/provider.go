// Package provider abstracts the language-model backend behind a streaming
// interface. A Provider turns an immutable conversation snapshot into an
// ordered stream of text fragments; consumers pull fragments until io.EOF,
// an error, or cancellation.
package provider

import (
	"context"
	"fmt"
)

// Role identifies a message role on the wire.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one role+text pair in a request snapshot.
type Message struct {
	Role Role
	Text string
}

// Request represents a single streamed model turn. Messages is a snapshot;
// the provider must not observe later mutations.
type Request struct {
	Model    string
	System   string
	Messages []Message
}

// EventType describes streaming events.
type EventType string

const (
	// EventTextDelta carries one incremental text fragment.
	EventTextDelta EventType = "text_delta"
	// EventDone marks the normal end of the stream.
	EventDone EventType = "done"
)

// Event is a single streaming event.
type Event struct {
	Type EventType
	Text string
}

// Stream yields events until io.EOF. Recv returns the terminal error after
// the event channel drains: io.EOF on normal completion, context.Canceled
// when the request was cancelled, or a transport error. Close releases the
// underlying transport and is safe to call at any time, including after EOF.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Provider issues one streamed chat turn to a backend.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// ModelInfo describes one model advertised by a backend.
type ModelInfo struct {
	Name string `json:"name"`
}

// ModelLister is implemented by backends that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Pinger is implemented by backends with a cheap reachability check.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// TransportError wraps a backend transport failure so callers can tell it
// apart from cancellation without string matching.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
