// Package directive detects tool-invocation directives embedded in streamed
// model output. The grammar is a bracketed marker pair surrounding one JSON
// object:
//
//	[TOOL_CALL] {"tool":"exec","params":{"command":"uptime"}} [END_TOOL_CALL]
//
// Text outside the markers is ordinary prose. Find is a pure function over a
// growing buffer: it must be cheap and safe to call after every fragment.
package directive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	OpenMarker  = "[TOOL_CALL]"
	CloseMarker = "[END_TOOL_CALL]"
)

// Invocation is a parsed tool call.
type Invocation struct {
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params"`
}

// Span is the byte range of the whole directive within the scanned text,
// markers included. Callers strip [Start:End) from displayed or re-sent
// prose.
type Span struct {
	Start int
	End   int
}

// Kind classifies a scan outcome.
type Kind int

const (
	// NotFound: no complete marker pair in the buffer. Also returned while
	// a directive is only partially streamed (open marker seen, close
	// marker not yet).
	NotFound Kind = iota
	// Found: a complete, well-formed directive.
	Found
	// Malformed: a complete marker pair whose interior is not a valid
	// invocation. Reserved for closed pairs only.
	Malformed
)

// Result is the outcome of one Find call.
type Result struct {
	Kind       Kind
	Invocation Invocation
	Span       Span
	Reason     string // set when Kind == Malformed
}

// Find scans text for the leftmost complete directive. It never returns
// Malformed for a buffer that has merely started to look like a directive:
// until the close marker is present the answer is NotFound, so it is safe
// to call repeatedly while fragments accumulate.
func Find(text string) Result {
	open := strings.Index(text, OpenMarker)
	if open < 0 {
		return Result{Kind: NotFound}
	}
	rest := text[open+len(OpenMarker):]
	closeRel := strings.Index(rest, CloseMarker)
	if closeRel < 0 {
		return Result{Kind: NotFound}
	}

	span := Span{
		Start: open,
		End:   open + len(OpenMarker) + closeRel + len(CloseMarker),
	}
	interior := strings.TrimSpace(rest[:closeRel])

	inv, reason := parseInterior(interior)
	if reason != "" {
		return Result{Kind: Malformed, Span: span, Reason: reason}
	}
	return Result{Kind: Found, Invocation: inv, Span: span}
}

// parseInterior validates the JSON payload between the markers. The tool
// name must be a non-empty string and params must be a JSON object.
func parseInterior(interior string) (Invocation, string) {
	var inv Invocation
	dec := json.NewDecoder(strings.NewReader(interior))
	if err := dec.Decode(&inv); err != nil {
		return Invocation{}, fmt.Sprintf("invalid JSON payload: %v", err)
	}
	if dec.More() {
		return Invocation{}, "trailing data after JSON payload"
	}
	if inv.Tool == "" {
		return Invocation{}, `missing or empty "tool" field`
	}
	if len(inv.Params) == 0 {
		return Invocation{}, `missing "params" object`
	}
	trimmed := bytes.TrimSpace(inv.Params)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Invocation{}, `"params" must be a JSON object`
	}
	return inv, ""
}

// Encode renders an invocation back into the directive grammar. Encoding
// then parsing yields an equal invocation; the encoded form also serves as
// the forwarding record appended to the conversation.
func Encode(inv Invocation) (string, error) {
	if inv.Tool == "" {
		return "", fmt.Errorf("directive: empty tool name")
	}
	if len(inv.Params) == 0 {
		inv.Params = json.RawMessage("{}")
	}
	payload, err := json.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("directive: encode: %w", err)
	}
	return OpenMarker + " " + string(payload) + " " + CloseMarker, nil
}
