// Package orchestrator runs the tool-use loop: it streams a model turn,
// watches the accumulating text for tool directives, dispatches them to the
// tool host, appends results as synthetic turns, and resumes streaming until
// the model finishes or a bound is hit.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/petasbytes/lucius/internal/chat"
	"github.com/petasbytes/lucius/internal/directive"
	"github.com/petasbytes/lucius/internal/provider"
	"github.com/petasbytes/lucius/internal/telemetry"
	"github.com/petasbytes/lucius/internal/toolhost"
	"github.com/petasbytes/lucius/internal/windowing"
)

const (
	defaultMaxRounds   = 8
	defaultToolTimeout = 30 * time.Second
)

// ErrBusy is returned by Submit while a previous submission is still active.
var ErrBusy = errors.New("orchestrator: a turn is already in progress")

// State is the orchestrator's position in the turn lifecycle.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateToolDispatch
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateToolDispatch:
		return "tool_dispatch"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ToolCaller dispatches one invocation and blocks until its outcome.
// *toolhost.Host implements it.
type ToolCaller interface {
	Call(ctx context.Context, inv directive.Invocation, timeout time.Duration) (toolhost.Result, error)
}

// Config carries the per-conversation settings the orchestrator consumes
// but does not own.
type Config struct {
	Model        string
	System       string
	MaxRounds    int           // tool rounds per user turn; default 8
	ToolTimeout  time.Duration // per tool call; default 30s
	WindowBudget int           // estimated-rune budget per request; default windowing.DefaultBudget
}

// Orchestrator owns the conversation sequence and the round counter for the
// active turn. Submit runs synchronously on the caller's goroutine; Cancel
// may be called from any goroutine.
type Orchestrator struct {
	provider provider.Provider
	tools    ToolCaller
	cfg      Config
	sink     func(Event)
	logger   *slog.Logger

	conv chat.Conversation

	mu    sync.Mutex
	state State
	token *Token
}

// New builds an orchestrator. sink receives presentation events in order
// from Submit's goroutine and may be nil.
func New(p provider.Provider, tools ToolCaller, cfg Config, sink func(Event), logger *slog.Logger) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = defaultToolTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		provider: p,
		tools:    tools,
		cfg:      cfg,
		sink:     sink,
		logger:   logger,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Cancel raises the active turn's cancellation token. A no-op when idle.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.token != nil {
		o.token.Raise()
		o.state = StateCancelled
	}
}

// History returns a snapshot of the committed conversation.
func (o *Orchestrator) History() []chat.Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conv.Snapshot()
}

// ClearHistory drops all committed turns. Refused while a turn is active.
func (o *Orchestrator) ClearHistory() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrBusy
	}
	o.conv.Clear()
	return nil
}

// Submit runs one full user turn: append the user text, then stream and
// dispatch tool rounds until the model completes, a bound is hit, or the
// turn is cancelled. It returns an error only for backend transport
// failures; every tool-level failure is recovered into a tool_result turn.
func (o *Orchestrator) Submit(ctx context.Context, text string) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	tok := newToken()
	o.state = StateStreaming
	o.token = tok
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.state = StateIdle
		o.token = nil
		o.mu.Unlock()
		o.notify(Event{Kind: EventTurnEnded})
	}()

	o.commit(chat.Turn{Role: chat.RoleUser, Text: text})
	ctx = telemetry.WithTurnID(ctx, fmt.Sprintf("t%d-%d", o.conv.Len()-1, time.Now().UnixMilli()))
	emit(ctx, "turn_submit", telemetry.CountText(text).Fields())

	var (
		rounds     int
		pending    string
		scanOffset int
	)

	for {
		if tok.Raised() {
			o.commitInterrupted(pending, "interrupted by user")
			return nil
		}

		// Dispatch a directive already sitting in the buffer, whether it
		// arrived mid-stream or was carried over from the previous round.
		if res, found := o.scanBuffer(pending, &scanOffset); found {
			o.setState(StateToolDispatch)

			if prose := pending[:res.Span.Start]; strings.TrimSpace(prose) != "" {
				o.commit(chat.Turn{Role: chat.RoleAssistant, Text: prose})
			}
			// The normalized directive is the forwarding record: it is what
			// the model sees on the next round in place of raw stream text.
			record, err := directive.Encode(res.Invocation)
			if err != nil {
				record = pending[res.Span.Start:res.Span.End]
			}
			o.commit(chat.Turn{Role: chat.RoleAssistant, Text: record})

			if rounds >= o.cfg.MaxRounds {
				o.logger.Warn("round limit reached", "max", o.cfg.MaxRounds, "tool", res.Invocation.Tool)
				o.commit(chat.Turn{
					Role: chat.RoleToolResult,
					Text: fmt.Sprintf("round limit reached (%d); tool call not executed", o.cfg.MaxRounds),
				})
				return nil
			}
			if tok.Raised() {
				// Cancelled before the call was issued; nothing to await.
				return nil
			}

			start := time.Now()
			result, err := o.tools.Call(ctx, res.Invocation, o.cfg.ToolTimeout)
			rounds++
			emit(ctx, "tool_round", map[string]any{
				"round":       rounds,
				"tool":        res.Invocation.Tool,
				"duration_ms": time.Since(start).Milliseconds(),
				"ok":          err == nil && result.OK,
			})
			o.commit(chat.Turn{
				Role: chat.RoleToolResult,
				Text: renderOutcome(res.Invocation.Tool, result, err),
			})

			pending = pending[res.Span.End:]
			scanOffset = 0
			continue
		}

		o.setState(StateStreaming)
		done, err := o.streamRound(ctx, tok, &pending, &scanOffset)
		if done || err != nil {
			return err
		}
	}
}

// streamRound consumes one model stream into the pending buffer. It returns
// done=true when the turn is over (normal end, cancellation, or transport
// failure); done=false means a complete directive is buffered and the
// caller should dispatch it.
func (o *Orchestrator) streamRound(ctx context.Context, tok *Token, pending *string, scanOffset *int) (bool, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-tok.C():
			cancel()
		case <-streamCtx.Done():
		}
	}()

	stream, err := o.provider.Stream(streamCtx, o.request())
	if err != nil {
		if tok.Raised() {
			o.commitInterrupted(*pending, "interrupted by user")
			return true, nil
		}
		o.commitInterrupted(*pending, "interrupted: backend unreachable")
		return true, err
	}
	defer stream.Close()

	for {
		if tok.Raised() {
			o.commitInterrupted(*pending, "interrupted by user")
			return true, nil
		}
		ev, err := stream.Recv()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if *pending != "" {
				o.commit(chat.Turn{Role: chat.RoleAssistant, Text: *pending})
			}
			return true, nil
		case tok.Raised() || errors.Is(err, context.Canceled):
			o.commitInterrupted(*pending, "interrupted by user")
			return true, nil
		default:
			o.logger.Error("stream failed", "provider", o.provider.Name(), "err", err)
			o.commitInterrupted(*pending, "interrupted: backend error")
			return true, err
		}

		if ev.Type != provider.EventTextDelta || ev.Text == "" {
			continue
		}
		*pending += ev.Text
		o.notify(Event{Kind: EventFragment, TurnIndex: o.conv.Len(), Fragment: ev.Text})

		if _, found := o.scanBuffer(*pending, scanOffset); found {
			// Park the stream; the dispatcher takes over from the buffer.
			return false, nil
		}
	}
}

// scanBuffer looks for the leftmost complete directive at or after
// *scanOffset. Malformed spans are warned about once, left in the visible
// text, and skipped so a later valid directive is still honored. On Found
// the returned span is absolute within pending.
func (o *Orchestrator) scanBuffer(pending string, scanOffset *int) (directive.Result, bool) {
	for {
		res := directive.Find(pending[*scanOffset:])
		switch res.Kind {
		case directive.Found:
			res.Span.Start += *scanOffset
			res.Span.End += *scanOffset
			return res, true
		case directive.Malformed:
			o.logger.Warn("malformed tool directive", "reason", res.Reason)
			o.notify(Event{Kind: EventWarning, Message: "malformed tool directive: " + res.Reason})
			*scanOffset += res.Span.End
		default:
			return res, false
		}
	}
}

// commitInterrupted commits whatever partial text accumulated, annotated so
// the presentation layer can mark it. Nothing is committed for an empty
// buffer.
func (o *Orchestrator) commitInterrupted(pending, note string) {
	if pending == "" {
		return
	}
	o.commit(chat.Turn{Role: chat.RoleAssistant, Text: pending, Note: note})
}

func (o *Orchestrator) commit(t chat.Turn) {
	o.mu.Lock()
	idx := o.conv.Append(t)
	o.mu.Unlock()
	telemetry.Emit("turn_commit", map[string]any{
		"index": idx,
		"role":  string(t.Role),
		"text":  telemetry.CountText(t.Text).Fields(),
	})
	o.notify(Event{Kind: EventTurnCommitted, TurnIndex: idx, Turn: t})
}

// emit tags telemetry with the turn ID carried in ctx, when present.
func emit(ctx context.Context, name string, fields map[string]any) {
	if id, ok := telemetry.TurnIDFromContext(ctx); ok {
		fields["turn_id"] = id
	}
	telemetry.Emit(name, fields)
}

func (o *Orchestrator) notify(ev Event) {
	if o.sink != nil {
		o.sink(ev)
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	if o.state != StateCancelled {
		o.state = s
	}
	o.mu.Unlock()
}

// request builds an immutable snapshot request over the committed history,
// windowed to the configured budget.
func (o *Orchestrator) request() provider.Request {
	o.mu.Lock()
	turns := o.conv.Snapshot()
	o.mu.Unlock()
	turns = windowing.Prepare(turns, o.cfg.WindowBudget)

	msgs := make([]provider.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, provider.Message{Role: roleFor(t.Role), Text: t.Text})
	}
	return provider.Request{Model: o.cfg.Model, System: o.cfg.System, Messages: msgs}
}

func roleFor(r chat.Role) provider.Role {
	switch r {
	case chat.RoleAssistant:
		return provider.RoleAssistant
	case chat.RoleToolResult:
		return provider.RoleTool
	default:
		return provider.RoleUser
	}
}

// renderOutcome turns any tool call outcome into the deterministic text the
// model sees. Failures are rendered, never raised, so the model can reason
// about what happened.
func renderOutcome(tool string, res toolhost.Result, err error) string {
	if err == nil {
		if res.OK {
			return string(res.Payload)
		}
		return fmt.Sprintf("tool %q failed: %s", tool, res.ErrMsg)
	}
	var te *toolhost.TimeoutError
	var pe *toolhost.ProcessExitedError
	switch {
	case errors.As(err, &te):
		return fmt.Sprintf("tool %q timed out after %s", tool, te.After)
	case errors.As(err, &pe):
		return fmt.Sprintf("tool host exited with code %d before %q completed", pe.Code, tool)
	case errors.Is(err, toolhost.ErrUnavailable):
		return fmt.Sprintf("tool host unavailable: %v", err)
	default:
		return fmt.Sprintf("tool %q failed: %v", tool, err)
	}
}
