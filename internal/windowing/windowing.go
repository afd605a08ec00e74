// Package windowing trims conversation history to a size budget before it
// is sent to the model. Turns are grouped into atomic units first so a tool
// invocation record is never separated from its result: the model must
// either see both or neither.
package windowing

import (
	"github.com/petasbytes/lucius/internal/chat"
	"github.com/petasbytes/lucius/internal/directive"
)

// DefaultBudget is the estimated-rune budget applied when none is
// configured. Generous enough for long sessions on local models.
const DefaultBudget = 120_000

// perTurnOverhead pads each turn's estimate for role framing and message
// envelope, mirroring how backends count more than the raw text.
const perTurnOverhead = 8

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group describes a contiguous span of turns [Start, End) sent atomically.
type Group struct {
	Kind  GroupKind
	Start int
	End   int
}

// GroupTurns groups history into atomic units. A pair is an assistant turn
// whose text is a complete tool directive (the forwarding record)
// immediately followed by a tool_result turn; everything else is a
// singleton.
func GroupTurns(turns []chat.Turn) []Group {
	groups := make([]Group, 0, len(turns))
	for i := 0; i < len(turns); {
		if isForwardingRecord(turns[i]) && i+1 < len(turns) && turns[i+1].Role == chat.RoleToolResult {
			groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
			i += 2
			continue
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

func isForwardingRecord(t chat.Turn) bool {
	if t.Role != chat.RoleAssistant {
		return false
	}
	res := directive.Find(t.Text)
	return res.Kind == directive.Found && res.Span.Start == 0 && res.Span.End == len(t.Text)
}

// EstimateTurn approximates a turn's transmission cost in runes.
func EstimateTurn(t chat.Turn) int {
	return len([]rune(t.Text)) + perTurnOverhead
}

func estimateGroup(turns []chat.Turn, g Group) int {
	total := 0
	for i := g.Start; i < g.End; i++ {
		total += EstimateTurn(turns[i])
	}
	return total
}

// Prepare returns the most recent suffix of turns that fits budget without
// splitting a group. The newest group is always included even when it alone
// exceeds the budget, so a request is never empty. budget <= 0 applies
// DefaultBudget.
func Prepare(turns []chat.Turn, budget int) []chat.Turn {
	if len(turns) == 0 {
		return turns
	}
	if budget <= 0 {
		budget = DefaultBudget
	}
	groups := GroupTurns(turns)

	cut := len(groups) - 1
	used := estimateGroup(turns, groups[cut])
	for cut > 0 {
		cost := estimateGroup(turns, groups[cut-1])
		if used+cost > budget {
			break
		}
		used += cost
		cut--
	}
	return turns[groups[cut].Start:]
}
