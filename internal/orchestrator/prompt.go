package orchestrator

import (
	"fmt"
	"strings"

	"github.com/petasbytes/lucius/internal/directive"
	"github.com/petasbytes/lucius/internal/toolhost"
)

// BuildSystemPrompt assembles the system prompt: the directive grammar the
// model must use to invoke tools, the available tool catalog, and optional
// project context discovered on disk.
func BuildSystemPrompt(tools []toolhost.ToolDefinition, projectContext string) string {
	var b strings.Builder
	b.WriteString("You are Lucius, a terminal assistant that can run tools on the user's behalf.\n\n")
	b.WriteString("To invoke a tool, emit a directive anywhere in your reply:\n\n")
	b.WriteString(directive.OpenMarker)
	b.WriteString(` {"tool":"<name>","params":{<arguments>}} `)
	b.WriteString(directive.CloseMarker)
	b.WriteString("\n\n")
	b.WriteString("Emit at most one directive per reply, then stop and wait: the tool's ")
	b.WriteString("output arrives as the next message and you continue from there. ")
	b.WriteString("Text outside the markers is shown to the user as normal prose.\n")

	if len(tools) > 0 {
		b.WriteString("\nAvailable tools:\n")
		for _, t := range tools {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		}
	}
	if projectContext != "" {
		b.WriteString("\nProject context:\n\n")
		b.WriteString(strings.TrimSpace(projectContext))
		b.WriteString("\n")
	}
	return b.String()
}
