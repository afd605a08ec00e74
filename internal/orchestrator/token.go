package orchestrator

import "sync"

// Token is a one-shot cancellation flag for a single in-flight turn. Raise
// is idempotent and safe from any goroutine; the orchestrator observes it
// between fragments and before issuing a tool call.
type Token struct {
	once sync.Once
	c    chan struct{}
}

func newToken() *Token {
	return &Token{c: make(chan struct{})}
}

// Raise marks the turn as cancelled.
func (t *Token) Raise() {
	t.once.Do(func() { close(t.c) })
}

// Raised reports whether the token has been raised.
func (t *Token) Raised() bool {
	select {
	case <-t.c:
		return true
	default:
		return false
	}
}

// C returns a channel closed when the token is raised.
func (t *Token) C() <-chan struct{} {
	return t.c
}
