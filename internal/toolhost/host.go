package toolhost

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/petasbytes/lucius/internal/directive"
	"github.com/petasbytes/lucius/internal/telemetry"
)

const (
	defaultSpawnAttempts = 3
	defaultCallTimeout   = 30 * time.Second

	// lineChanDepth bounds how many unread subprocess lines can pile up
	// between calls before the reader applies backpressure.
	lineChanDepth = 64
)

// Config describes how to launch and talk to the subprocess.
type Config struct {
	Command       string
	Args          []string
	SpawnAttempts int           // bounded respawn attempts per call; default 3
	CallTimeout   time.Duration // default per-call timeout; default 30s
}

func (c Config) spawnAttempts() int {
	if c.SpawnAttempts > 0 {
		return c.SpawnAttempts
	}
	return defaultSpawnAttempts
}

// Host owns one subprocess and serializes all callers onto a single
// in-flight request at a time, served strictly in submission order by a
// dedicated worker goroutine. Blocking pipe I/O stays on the worker and
// reader goroutines; callers only wait on channels.
type Host struct {
	cfg    Config
	logger *slog.Logger

	requests chan *callRequest
	closing  chan struct{}
	done     chan struct{}

	// Worker-owned state; never touched from other goroutines.
	proc   *process
	nextID uint64
}

type callRequest struct {
	inv     directive.Invocation
	timeout time.Duration
	reply   chan callReply
}

type callReply struct {
	result Result
	err    error
}

// New creates a Host and starts its worker. The subprocess itself is
// spawned lazily on the first call.
func New(cfg Config, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		cfg:      cfg,
		logger:   logger,
		requests: make(chan *callRequest),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.serve()
	return h
}

// Call runs one invocation and returns the tool's result. Concurrent
// callers queue in submission order. If timeout is zero the configured
// default applies. Once a call has been handed to the worker it runs to
// completion or its timeout even if ctx is cancelled: the subprocess is a
// shared long-lived resource and is never killed mid-call.
func (h *Host) Call(ctx context.Context, inv directive.Invocation, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = h.cfg.CallTimeout
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	req := &callRequest{inv: inv, timeout: timeout, reply: make(chan callReply, 1)}

	select {
	case h.requests <- req:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-h.closing:
		return Result{}, ErrUnavailable
	}

	// Issued: wait for the worker unconditionally. The worker always
	// replies, bounded by the call timeout.
	rep := <-req.reply
	return rep.result, rep.err
}

// Close shuts the worker down and terminates the subprocess. Pending
// queued calls fail with ErrUnavailable.
func (h *Host) Close() error {
	close(h.closing)
	<-h.done
	return nil
}

func (h *Host) serve() {
	defer close(h.done)
	for {
		select {
		case req := <-h.requests:
			result, err := h.dispatch(req)
			req.reply <- callReply{result: result, err: err}
		case <-h.closing:
			h.stopProcess()
			return
		}
	}
}

// dispatch performs one full request/response exchange.
func (h *Host) dispatch(req *callRequest) (Result, error) {
	if err := h.ensureProcess(); err != nil {
		return Result{}, err
	}

	h.nextID++
	id := h.nextID

	wire := clientRequest{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Method:  req.inv.Tool,
		Params:  req.inv.Params,
	}
	line, err := json.Marshal(wire)
	if err != nil {
		return Result{}, fmt.Errorf("toolhost: encode request: %w", err)
	}

	start := time.Now()
	if _, err := h.proc.stdin.Write(append(line, '\n')); err != nil {
		code := h.reapProcess()
		return Result{}, &ProcessExitedError{Code: code}
	}

	timer := time.NewTimer(req.timeout)
	defer timer.Stop()

	for {
		select {
		case raw, ok := <-h.proc.lines:
			if !ok {
				code := h.reapProcess()
				return Result{}, &ProcessExitedError{Code: code}
			}
			var resp clientResponse
			if err := json.Unmarshal([]byte(raw), &resp); err != nil {
				h.logger.Debug("toolhost: discarding unparseable line", "line", raw)
				continue
			}
			if resp.ID != id {
				// Either tool chatter on stdout or a late response
				// for a timed-out request; both are discardable.
				h.logger.Debug("toolhost: discarding line with stale id", "id", resp.ID, "want", id)
				continue
			}
			telemetry.Emit("toolhost_call", map[string]any{
				"tool":        req.inv.Tool,
				"duration_ms": time.Since(start).Milliseconds(),
				"ok":          resp.Error == nil,
			})
			if resp.Error != nil {
				return Result{OK: false, ErrMsg: resp.Error.Message}, nil
			}
			return Result{OK: true, Payload: resp.Result}, nil
		case <-timer.C:
			telemetry.Emit("toolhost_call", map[string]any{
				"tool":        req.inv.Tool,
				"duration_ms": time.Since(start).Milliseconds(),
				"timeout":     true,
			})
			// The id is retired simply by never being matched again:
			// the next call uses a fresh id, so a late line for this
			// one fails the id check and is discarded.
			return Result{}, &TimeoutError{Tool: req.inv.Tool, After: req.timeout}
		}
	}
}

// ensureProcess spawns the subprocess if it is not running, with a bounded
// number of attempts before giving up.
func (h *Host) ensureProcess() error {
	if h.proc != nil && !h.proc.exited() {
		return nil
	}
	if h.proc != nil {
		h.reapProcess()
	}

	var lastErr error
	for attempt := 1; attempt <= h.cfg.spawnAttempts(); attempt++ {
		p, err := spawn(h.cfg, h.logger)
		if err != nil {
			lastErr = err
			h.logger.Warn("toolhost: spawn failed", "attempt", attempt, "err", err)
			continue
		}
		h.proc = p
		telemetry.Emit("toolhost_spawn", map[string]any{
			"command": h.cfg.Command,
			"attempt": attempt,
		})
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// reapProcess collects the exit status of a dead subprocess and clears it
// so the next call respawns.
func (h *Host) reapProcess() int {
	if h.proc == nil {
		return -1
	}
	code := h.proc.wait()
	h.proc = nil
	h.logger.Warn("toolhost: subprocess exited", "code", code)
	return code
}

// stopProcess closes stdin so a well-behaved server exits on EOF, then
// kills it if it lingers.
func (h *Host) stopProcess() {
	if h.proc == nil {
		return
	}
	h.proc.stdin.Close()
	select {
	case <-h.proc.waitDone:
	case <-time.After(2 * time.Second):
		h.proc.cmd.Process.Kill()
	}
	h.proc.wait()
	h.proc = nil
}

// process wraps one running subprocess with its reader goroutine.
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string

	waitDone chan struct{}
	exitCode int
}

func spawn(cfg Config, logger *slog.Logger) (*process, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{
		cmd:      cmd,
		stdin:    stdin,
		lines:    make(chan string, lineChanDepth),
		waitDone: make(chan struct{}),
	}

	// Forward subprocess stderr into the log; stdout carries the protocol.
	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			logger.Debug("toolhost stderr", "line", sc.Text())
		}
	}()

	go func() {
		sc := bufio.NewScanner(stdout)
		buf := make([]byte, 0, 64*1024)
		sc.Buffer(buf, 1024*1024)
		for sc.Scan() {
			p.lines <- sc.Text()
		}
		close(p.lines)
		p.exitCode = exitCodeOf(cmd.Wait())
		close(p.waitDone)
	}()

	return p, nil
}

// exited reports whether the reader has observed EOF and the process has
// been waited on.
func (p *process) exited() bool {
	select {
	case <-p.waitDone:
		return true
	default:
		return false
	}
}

// wait blocks until the process has been reaped and returns its exit code.
func (p *process) wait() int {
	<-p.waitDone
	return p.exitCode
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}
