package toolhost

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const defaultExecTimeout = 60 * time.Second

// Server is the subprocess side of the protocol: it reads one request per
// line, dispatches to a registered tool, and writes exactly one response
// line per request, flushed before reading further input.
type Server struct {
	in          io.Reader
	out         io.Writer
	tools       map[string]ToolDefinition
	order       []ToolDefinition
	execTimeout time.Duration
	logger      *slog.Logger
}

// NewServer wires a server over the given streams. defs are served both by
// name and through list_tools.
func NewServer(in io.Reader, out io.Writer, defs []ToolDefinition, execTimeout time.Duration, logger *slog.Logger) *Server {
	if execTimeout <= 0 {
		execTimeout = defaultExecTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	tools := make(map[string]ToolDefinition, len(defs))
	for _, d := range defs {
		tools[d.Name] = d
	}
	return &Server{
		in:          in,
		out:         out,
		tools:       tools,
		order:       defs,
		execTimeout: execTimeout,
		logger:      logger,
	}
}

// Run serves until input reaches EOF or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req wireRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.respondError(json.RawMessage("null"), codeParseError, fmt.Sprintf("Parse error: %v", err))
			continue
		}
		s.handle(ctx, req)
	}
	return scanner.Err()
}

func (s *Server) handle(ctx context.Context, req wireRequest) {
	if req.Method == ListToolsMethod {
		payload, err := json.Marshal(s.order)
		if err != nil {
			s.respondError(req.ID, codeInternalError, err.Error())
			return
		}
		s.respondResult(req.ID, payload)
		return
	}

	def, ok := s.tools[req.Method]
	if !ok {
		s.respondError(req.ID, codeMethodNotFound, "Method not found")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.execTimeout)
	defer cancel()

	start := time.Now()
	value, err := def.Func(callCtx, req.Params)
	s.logger.Debug("tool executed", "tool", req.Method, "duration", time.Since(start), "err", err)

	if err != nil {
		var ipe *InvalidParamsError
		if errors.As(err, &ipe) {
			s.respondError(req.ID, codeInvalidParams, ipe.Msg)
			return
		}
		s.respondError(req.ID, codeInternalError, err.Error())
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.respondError(req.ID, codeInternalError, err.Error())
		return
	}
	s.respondResult(req.ID, payload)
}

func (s *Server) respondResult(id, result json.RawMessage) {
	s.write(wireResponse{JSONRPC: jsonrpcVersion, ID: id, Result: result})
}

func (s *Server) respondError(id json.RawMessage, code int, msg string) {
	s.write(wireResponse{JSONRPC: jsonrpcVersion, ID: id, Error: &rpcError{Code: code, Message: msg}})
}

// write emits one response line. json.Encoder appends the newline; writes
// to the underlying stream are unbuffered so the client never waits on a
// stuck flush.
func (s *Server) write(resp wireResponse) {
	if err := json.NewEncoder(s.out).Encode(resp); err != nil {
		s.logger.Error("toolhost: write response", "err", err)
	}
}
