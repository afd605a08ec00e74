package toolhost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
)

// ToolFunc executes one tool call. ctx carries the execution deadline;
// returning an error produces the failure shape on the wire, never a
// dropped response.
type ToolFunc func(ctx context.Context, params json.RawMessage) (any, error)

// ToolDefinition describes one tool served by the subprocess. The JSON
// shape is what list_tools returns to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"parameters"`
	Func        ToolFunc       `json:"-"`
}

// Registry returns all built-in tool definitions served by the host
// subprocess.
func Registry() []ToolDefinition {
	return []ToolDefinition{ExecDefinition, RemoteExecDefinition}
}

type ExecInput struct {
	Command string `json:"command" jsonschema_description:"The shell command to execute."`
}

type RemoteExecInput struct {
	Host    string `json:"host" jsonschema_description:"The remote host to connect to, e.g. 'user@hostname'."`
	Command string `json:"command" jsonschema_description:"The command to execute on the remote host."`
}

// execResult is the shared result shape of both exec tools. Status is nil
// when the command was terminated without an exit code.
type execResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Status *int   `json:"status"`
}

var ExecDefinition = ToolDefinition{
	Name:        "exec",
	Description: "Execute a shell command on the local machine.",
	InputSchema: GenerateSchema[ExecInput](),
	Func:        Exec,
}

var RemoteExecDefinition = ToolDefinition{
	Name:        "remote_exec",
	Description: "Execute a non-interactive shell command on a remote host via SSH.",
	InputSchema: GenerateSchema[RemoteExecInput](),
	Func:        RemoteExec,
}

// Exec runs a command to completion under the local shell. A non-zero exit
// is not an error: the status travels in the result so the model can see
// it. Only a failure to run the shell at all (or hitting the deadline)
// reports the failure shape.
func Exec(ctx context.Context, params json.RawMessage) (any, error) {
	var in ExecInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, &InvalidParamsError{Msg: "invalid params: " + err.Error()}
	}
	if in.Command == "" {
		return nil, &InvalidParamsError{Msg: "missing or invalid 'command' parameter"}
	}
	return runCommand(ctx, exec.CommandContext(ctx, "sh", "-c", in.Command))
}

// RemoteExec runs a command on a remote host over ssh. BatchMode keeps the
// session non-interactive; authentication failures become stderr output
// and a non-zero status rather than a hung prompt.
func RemoteExec(ctx context.Context, params json.RawMessage) (any, error) {
	var in RemoteExecInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, &InvalidParamsError{Msg: "invalid params: " + err.Error()}
	}
	if in.Host == "" {
		return nil, &InvalidParamsError{Msg: "missing 'host' parameter"}
	}
	if in.Command == "" {
		return nil, &InvalidParamsError{Msg: "missing 'command' parameter"}
	}
	return runCommand(ctx, exec.CommandContext(ctx, "ssh", "-o", "BatchMode=yes", in.Host, in.Command))
}

func runCommand(ctx context.Context, cmd *exec.Cmd) (any, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, errors.New("command timed out")
	}
	res := execResult{Stdout: stdout.String(), Stderr: stderr.String()}
	switch e := err.(type) {
	case nil:
		code := 0
		res.Status = &code
	case *exec.ExitError:
		code := e.ExitCode()
		if code >= 0 {
			res.Status = &code
		}
	default:
		return nil, errors.New("failed to execute command: " + err.Error())
	}
	return res, nil
}
