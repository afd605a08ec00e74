// Package toolhost runs tool invocations through a long-lived subprocess
// speaking line-delimited JSON-RPC 2.0 over its standard input/output. The
// Host type is the client side used by the orchestrator; Server and the
// built-in tool definitions are the subprocess side, run by `lucius
// toolhost`.
package toolhost

import "encoding/json"

const jsonrpcVersion = "2.0"

// JSON-RPC error codes, matching the conventional assignments.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// ListToolsMethod is the reserved method returning the tool registry.
const ListToolsMethod = "list_tools"

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// clientRequest is what the Host writes: ids are generated locally as
// monotonically increasing integers.
type clientRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// clientResponse is what the Host reads back. A line whose ID does not
// match the outstanding request is discarded.
type clientResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// wireRequest is the server-side view: the id is opaque and echoed back
// verbatim, whatever JSON value the client chose.
type wireRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Result is the outcome of one tool invocation as seen by the caller.
// OK distinguishes a tool-level failure (which still produced a response)
// from a successful result; protocol-level failures surface as Go errors
// from Host.Call instead.
type Result struct {
	OK      bool
	Payload json.RawMessage // result value when OK
	ErrMsg  string          // error description when !OK
}
