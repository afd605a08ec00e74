package windowing_test

import (
	"strings"
	"testing"

	"github.com/petasbytes/lucius/internal/chat"
	"github.com/petasbytes/lucius/internal/windowing"
)

const record = `[TOOL_CALL] {"tool":"exec","params":{"command":"uptime"}} [END_TOOL_CALL]`

func turns(ts ...chat.Turn) []chat.Turn { return ts }

func TestGroupTurns_PairsRecordWithResult(t *testing.T) {
	hist := turns(
		chat.Turn{Role: chat.RoleUser, Text: "uptime?"},
		chat.Turn{Role: chat.RoleAssistant, Text: record},
		chat.Turn{Role: chat.RoleToolResult, Text: "up 3 days"},
		chat.Turn{Role: chat.RoleAssistant, Text: "Three days."},
	)
	groups := windowing.GroupTurns(hist)
	want := []windowing.Group{
		{Kind: windowing.GroupSingleton, Start: 0, End: 1},
		{Kind: windowing.GroupPair, Start: 1, End: 3},
		{Kind: windowing.GroupSingleton, Start: 3, End: 4},
	}
	if len(groups) != len(want) {
		t.Fatalf("groups: %+v", groups)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Errorf("group %d: got %+v want %+v", i, groups[i], want[i])
		}
	}
}

func TestGroupTurns_ProseWithEmbeddedDirectiveIsSingleton(t *testing.T) {
	// Only a turn that is exactly a directive is a forwarding record;
	// prose that happens to quote one stays a singleton.
	hist := turns(
		chat.Turn{Role: chat.RoleAssistant, Text: "I would write " + record + " here."},
		chat.Turn{Role: chat.RoleToolResult, Text: "up"},
	)
	groups := windowing.GroupTurns(hist)
	if len(groups) != 2 || groups[0].Kind != windowing.GroupSingleton {
		t.Fatalf("groups: %+v", groups)
	}
}

func TestGroupTurns_RecordWithoutResultIsSingleton(t *testing.T) {
	hist := turns(
		chat.Turn{Role: chat.RoleAssistant, Text: record},
		chat.Turn{Role: chat.RoleAssistant, Text: "hm"},
	)
	groups := windowing.GroupTurns(hist)
	if len(groups) != 2 || groups[0].Kind != windowing.GroupSingleton {
		t.Fatalf("groups: %+v", groups)
	}
}

func TestPrepare_TrimsOldestFirstWithoutSplittingPairs(t *testing.T) {
	old := chat.Turn{Role: chat.RoleUser, Text: strings.Repeat("x", 100)}
	hist := turns(
		old,
		chat.Turn{Role: chat.RoleAssistant, Text: record},
		chat.Turn{Role: chat.RoleToolResult, Text: strings.Repeat("y", 100)},
		chat.Turn{Role: chat.RoleUser, Text: "and now?"},
	)

	// Budget covers the pair and the trailing user turn but not the old one.
	budget := 0
	for _, t := range hist[1:] {
		budget += windowing.EstimateTurn(t)
	}
	got := windowing.Prepare(hist, budget)
	if len(got) != 3 || got[0].Text != record {
		t.Fatalf("window: %+v", got)
	}

	// One rune less and the pair must go as a unit, not half of it.
	got = windowing.Prepare(hist, budget-windowing.EstimateTurn(hist[3]))
	for _, turn := range got {
		if turn.Role == chat.RoleToolResult {
			found := false
			for _, other := range got {
				if other.Text == record {
					found = true
				}
			}
			if !found {
				t.Fatalf("tool_result without its record: %+v", got)
			}
		}
	}
}

func TestPrepare_NewestGroupAlwaysIncluded(t *testing.T) {
	hist := turns(chat.Turn{Role: chat.RoleUser, Text: strings.Repeat("z", 500)})
	got := windowing.Prepare(hist, 10)
	if len(got) != 1 {
		t.Fatalf("window: %+v", got)
	}
}

func TestPrepare_WithinBudgetIsIdentity(t *testing.T) {
	hist := turns(
		chat.Turn{Role: chat.RoleUser, Text: "a"},
		chat.Turn{Role: chat.RoleAssistant, Text: "b"},
	)
	got := windowing.Prepare(hist, 0)
	if len(got) != 2 {
		t.Fatalf("window: %+v", got)
	}
}
