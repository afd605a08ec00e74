package toolhost

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// serve runs a server over the given input and returns its output split
// into decoded response lines.
func serve(t *testing.T, defs []ToolDefinition, input string) []wireResponse {
	t.Helper()
	var out bytes.Buffer
	srv := NewServer(strings.NewReader(input), &out, defs, 5*time.Second, nil)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var resps []wireResponse
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var resp wireResponse
		if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
			t.Fatalf("response line %q: %v", sc.Text(), err)
		}
		if resp.JSONRPC != jsonrpcVersion {
			t.Fatalf("jsonrpc version: %q", resp.JSONRPC)
		}
		resps = append(resps, resp)
	}
	return resps
}

func one(t *testing.T, resps []wireResponse) wireResponse {
	t.Helper()
	if len(resps) != 1 {
		t.Fatalf("want exactly one response, got %d", len(resps))
	}
	return resps[0]
}

func TestServer_ExecResultShape(t *testing.T) {
	resps := serve(t, Registry(),
		`{"jsonrpc":"2.0","id":1,"method":"exec","params":{"command":"echo hi; echo oops >&2; exit 4"}}`+"\n")
	resp := one(t, resps)

	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	var res execResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Stdout != "hi\n" {
		t.Errorf("stdout: %q", res.Stdout)
	}
	if res.Stderr != "oops\n" {
		t.Errorf("stderr: %q", res.Stderr)
	}
	if res.Status == nil || *res.Status != 4 {
		t.Errorf("status: %v", res.Status)
	}
}

func TestServer_ZeroExitStatus(t *testing.T) {
	resps := serve(t, Registry(),
		`{"jsonrpc":"2.0","id":1,"method":"exec","params":{"command":"true"}}`+"\n")
	resp := one(t, resps)

	var res execResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Status == nil || *res.Status != 0 {
		t.Errorf("status: %v", res.Status)
	}
}

func TestServer_MethodNotFound(t *testing.T) {
	resps := serve(t, Registry(),
		`{"jsonrpc":"2.0","id":7,"method":"no_such_tool","params":{}}`+"\n")
	resp := one(t, resps)

	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("error: %+v", resp.Error)
	}
	if string(resp.ID) != "7" {
		t.Errorf("id echo: %s", resp.ID)
	}
}

func TestServer_InvalidParams(t *testing.T) {
	cases := []struct {
		name   string
		params string
	}{
		{"missing command", `{}`},
		{"wrong type", `{"command":42}`},
		{"not an object", `"ls"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resps := serve(t, Registry(),
				`{"jsonrpc":"2.0","id":1,"method":"exec","params":`+tc.params+`}`+"\n")
			resp := one(t, resps)
			if resp.Error == nil || resp.Error.Code != codeInvalidParams {
				t.Fatalf("error: %+v", resp.Error)
			}
		})
	}
}

func TestServer_ParseError(t *testing.T) {
	resps := serve(t, Registry(), "this is not json\n")
	resp := one(t, resps)

	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("error: %+v", resp.Error)
	}
	if string(resp.ID) != "null" {
		t.Errorf("id on parse error: %s", resp.ID)
	}
}

func TestServer_ListTools(t *testing.T) {
	resps := serve(t, Registry(),
		`{"jsonrpc":"2.0","id":1,"method":"list_tools"}`+"\n")
	resp := one(t, resps)

	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	var defs []struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	}
	if err := json.Unmarshal(resp.Result, &defs); err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "exec" || defs[1].Name != "remote_exec" {
		t.Fatalf("tools: %+v", defs)
	}
	for _, d := range defs {
		if d.Description == "" {
			t.Errorf("%s: empty description", d.Name)
		}
		if d.Parameters["type"] != "object" {
			t.Errorf("%s: schema type %v", d.Name, d.Parameters["type"])
		}
	}
}

func TestServer_OneResponsePerRequestLine(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"exec","params":{"command":"echo a"}}` + "\n" +
		"\n" + // blank lines are skipped, not answered
		`{"jsonrpc":"2.0","id":2,"method":"exec","params":{"command":"echo b"}}` + "\n"
	resps := serve(t, Registry(), input)

	if len(resps) != 2 {
		t.Fatalf("want 2 responses, got %d", len(resps))
	}
	if string(resps[0].ID) != "1" || string(resps[1].ID) != "2" {
		t.Fatalf("ids: %s, %s", resps[0].ID, resps[1].ID)
	}
}

func TestServer_ToolFailureIsInternalError(t *testing.T) {
	defs := []ToolDefinition{{
		Name:        "boom",
		InputSchema: map[string]any{"type": "object"},
		Func: func(ctx context.Context, params json.RawMessage) (any, error) {
			return nil, context.DeadlineExceeded
		},
	}}
	resps := serve(t, defs, `{"jsonrpc":"2.0","id":1,"method":"boom","params":{}}`+"\n")
	resp := one(t, resps)

	if resp.Error == nil || resp.Error.Code != codeInternalError {
		t.Fatalf("error: %+v", resp.Error)
	}
}
