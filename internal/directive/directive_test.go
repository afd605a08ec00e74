package directive_test

import (
	"strings"
	"testing"

	"github.com/petasbytes/lucius/internal/directive"
)

func TestFind_ValidWithSurroundingProse(t *testing.T) {
	input := `Some prefix [TOOL_CALL]{"tool":"exec","params":{"command":"uptime"}}[END_TOOL_CALL] suffix`
	res := directive.Find(input)
	if res.Kind != directive.Found {
		t.Fatalf("kind: got %v want Found (reason %q)", res.Kind, res.Reason)
	}
	if res.Invocation.Tool != "exec" {
		t.Fatalf("tool: got %q want exec", res.Invocation.Tool)
	}
	if !strings.Contains(string(res.Invocation.Params), `"uptime"`) {
		t.Fatalf("params missing command: %s", res.Invocation.Params)
	}
	if got := input[res.Span.Start:res.Span.End]; !strings.HasPrefix(got, directive.OpenMarker) || !strings.HasSuffix(got, directive.CloseMarker) {
		t.Fatalf("span does not cover full directive: %q", got)
	}
	// Prose on either side survives span stripping.
	stripped := input[:res.Span.Start] + input[res.Span.End:]
	if stripped != "Some prefix  suffix" {
		t.Fatalf("stripped prose: %q", stripped)
	}
}

func TestFind_ToleratesInteriorWhitespace(t *testing.T) {
	input := "[TOOL_CALL]\n  {\"tool\":\"exec\",\"params\":{}}\n  [END_TOOL_CALL]"
	res := directive.Find(input)
	if res.Kind != directive.Found {
		t.Fatalf("kind: got %v want Found (reason %q)", res.Kind, res.Reason)
	}
}

func TestFind_IncompleteDirectiveIsNotFound(t *testing.T) {
	// A growing buffer that has not yet received the close marker must
	// report NotFound every time, never Malformed.
	partials := []string{
		"Let me check ",
		"Let me check [TOOL",
		"Let me check [TOOL_CALL]",
		`Let me check [TOOL_CALL]{"tool":"exe`,
		`Let me check [TOOL_CALL]{"tool":"exec","params":{"command":"uptime"}}`,
		`Let me check [TOOL_CALL]{"tool":"exec","params":{"command":"uptime"}}[END_TOOL`,
	}
	for _, p := range partials {
		for i := 0; i < 3; i++ { // idempotent on an unchanging buffer
			if res := directive.Find(p); res.Kind != directive.NotFound {
				t.Fatalf("buffer %q: got %v want NotFound", p, res.Kind)
			}
		}
	}
}

func TestFind_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"not JSON", "[TOOL_CALL]{not_json}[END_TOOL_CALL]"},
		{"missing tool", `[TOOL_CALL]{"too":"bad"}[END_TOOL_CALL]`},
		{"empty tool", `[TOOL_CALL]{"tool":"","params":{}}[END_TOOL_CALL]`},
		{"missing params", `[TOOL_CALL]{"tool":"exec"}[END_TOOL_CALL]`},
		{"params not object", `[TOOL_CALL]{"tool":"exec","params":[1,2]}[END_TOOL_CALL]`},
		{"trailing data", `[TOOL_CALL]{"tool":"exec","params":{}} {"x":1}[END_TOOL_CALL]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := directive.Find(tc.input)
			if res.Kind != directive.Malformed {
				t.Fatalf("got %v want Malformed", res.Kind)
			}
			if res.Reason == "" {
				t.Fatal("expected a reason")
			}
			if res.Span.End <= res.Span.Start {
				t.Fatalf("malformed result must still carry the span: %+v", res.Span)
			}
		})
	}
}

func TestFind_LeftmostDirectiveWins(t *testing.T) {
	input := `[TOOL_CALL]{"tool":"first","params":{}}[END_TOOL_CALL] and [TOOL_CALL]{"tool":"second","params":{}}[END_TOOL_CALL]`
	res := directive.Find(input)
	if res.Kind != directive.Found || res.Invocation.Tool != "first" {
		t.Fatalf("got %v tool %q, want Found first", res.Kind, res.Invocation.Tool)
	}
	// The second directive must still be discoverable after the span.
	rest := input[res.Span.End:]
	res2 := directive.Find(rest)
	if res2.Kind != directive.Found || res2.Invocation.Tool != "second" {
		t.Fatalf("rescan after span: got %v tool %q", res2.Kind, res2.Invocation.Tool)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	in := directive.Invocation{Tool: "remote_exec", Params: []byte(`{"host":"db1","command":"uptime"}`)}
	text, err := directive.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	res := directive.Find("prose before " + text + " prose after")
	if res.Kind != directive.Found {
		t.Fatalf("kind: got %v (reason %q)", res.Kind, res.Reason)
	}
	if res.Invocation.Tool != in.Tool {
		t.Fatalf("tool: got %q want %q", res.Invocation.Tool, in.Tool)
	}
	if string(res.Invocation.Params) != string(in.Params) {
		t.Fatalf("params: got %s want %s", res.Invocation.Params, in.Params)
	}
}

func TestEncode_EmptyToolRejected(t *testing.T) {
	if _, err := directive.Encode(directive.Invocation{}); err == nil {
		t.Fatal("expected error for empty tool name")
	}
}
