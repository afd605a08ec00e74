// Package chat holds the conversation data model: immutable turns in an
// append-only sequence. The orchestrator is the sole writer; everything else
// works from snapshots.
package chat

// Role identifies who produced a turn.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
)

// Turn is one committed entry in conversation history. Text is the full
// UTF-8 content. Note carries an optional annotation (e.g. "interrupted by
// user") that the presentation layer may render alongside the text; it is
// never sent back to the model.
type Turn struct {
	Role Role
	Text string
	Note string
}

// Conversation is an append-only sequence of committed turns. It is not
// safe for concurrent mutation; ownership rules keep all writes on the
// orchestrator's goroutine.
type Conversation struct {
	turns []Turn
}

// Append commits a turn and returns its index.
func (c *Conversation) Append(t Turn) int {
	c.turns = append(c.turns, t)
	return len(c.turns) - 1
}

// Len returns the number of committed turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Snapshot returns a copy of the committed history. Later appends do not
// affect a snapshot, so it is safe to hand to a streaming request.
func (c *Conversation) Snapshot() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Clear drops all history. Only the presentation layer's explicit
// clear-history action should reach this, and only between turns.
func (c *Conversation) Clear() {
	c.turns = nil
}
