package chain

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/types"
)

var actorID = uuid.MustParse("55555555-5555-4555-8555-555555555555")

type savedIDs struct{ ids []uuid.UUID }

func (s *savedIDs) Save(id uuid.UUID) { s.ids = append(s.ids, id) }

type chainHook struct{ ids []string }

func (h *chainHook) OnChainCompletion(_ *types.ActorRecord, chainID string, _ *types.Outcome) {
	h.ids = append(h.ids, chainID)
}

func basics(ordered bool) types.Chain {
	return types.Chain{
		ID:            "basics",
		Name:          "Brewing Basics",
		RequiresOrder: ordered,
		Steps: []types.ChainStep{
			{RuleID: "a", Description: "Brew A"},
			{RuleID: "b", Description: "Brew B", Reward: &types.Reward{Kind: types.RewardExperience, Experience: 10}},
			{RuleID: "c", Description: "Brew C"},
		},
		CompletionReward: &types.Reward{Kind: types.RewardCommands, Commands: []string{"give {player} diamond"}},
	}
}

func newTracker(s Settings, chains ...types.Chain) (*Tracker, *savedIDs, *chainHook) {
	saved, hook := &savedIDs{}, &chainHook{}
	t := New(saved, hook)
	t.Load(s, chains)
	return t, saved, hook
}

func TestOrdered_RejectsOutOfOrder(t *testing.T) {
	tr, _, _ := newTracker(Settings{Enabled: true, Notify: true, OutOfOrder: PolicyIgnore}, basics(true))
	rec := state.NewRecord(actorID, time.Time{})

	var out types.Outcome
	res := tr.OnRuleCompleted(rec, "b", &out)
	if len(res.Rejected) != 1 || res.Rejected[0].Expected != "a" {
		t.Errorf("Rejected = %+v, want expected a", res.Rejected)
	}
	if len(state.ChainSteps(rec, "basics")) != 0 {
		t.Error("out-of-order step was recorded")
	}
	if len(out.Notifications) != 0 {
		t.Errorf("ignore policy produced notifications: %+v", out.Notifications)
	}
}

func TestOrdered_NotifyPolicy(t *testing.T) {
	tr, _, _ := newTracker(Settings{Enabled: true, OutOfOrder: PolicyNotify}, basics(true))
	rec := state.NewRecord(actorID, time.Time{})

	var out types.Outcome
	tr.OnRuleCompleted(rec, "c", &out)
	if len(out.Notifications) != 1 || out.Notifications[0].Kind != types.NoticeStepRejected {
		t.Fatalf("notifications = %+v", out.Notifications)
	}
	if got := out.Notifications[0].Lines[0]; got != "Next step: Brew A" {
		t.Errorf("line = %q", got)
	}
}

func TestOrdered_FullRun(t *testing.T) {
	tr, saved, hook := newTracker(Settings{Enabled: true, Notify: true}, basics(true))
	rec := state.NewRecord(actorID, time.Time{})

	var out types.Outcome
	for _, id := range []string{"a", "b", "c"} {
		tr.OnRuleCompleted(rec, id, &out)
	}
	if !tr.HasCompleted(rec, "basics") {
		t.Fatal("chain not completed")
	}
	if got := tr.CompletedSteps(rec, "basics"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("CompletedSteps() = %v", got)
	}
	var sources []string
	for _, r := range out.Rewards {
		sources = append(sources, r.Source)
	}
	if want := []string{"chain:basics/step:b", "chain:basics"}; !reflect.DeepEqual(sources, want) {
		t.Errorf("reward sources = %v, want %v", sources, want)
	}
	kinds := []types.NotificationKind{}
	for _, n := range out.Notifications {
		kinds = append(kinds, n.Kind)
	}
	want := []types.NotificationKind{types.NoticeChainProgress, types.NoticeChainProgress, types.NoticeChainComplete}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("notification kinds = %v, want %v", kinds, want)
	}
	if out.Notifications[0].Title != "Brewing Basics (1/3)" {
		t.Errorf("progress title = %q", out.Notifications[0].Title)
	}
	if len(saved.ids) != 1 || len(hook.ids) != 1 || hook.ids[0] != "basics" {
		t.Errorf("persisted %v, hook %v", saved.ids, hook.ids)
	}

	out = types.Outcome{}
	res := tr.OnRuleCompleted(rec, "a", &out)
	if len(res.Advanced) != 0 || len(out.Rewards) != 0 || len(hook.ids) != 1 {
		t.Error("completed chain should ignore further completions")
	}
}

func TestOrdered_SkipAheadThenCatchUp(t *testing.T) {
	tr, _, hook := newTracker(Settings{Enabled: true, OutOfOrder: PolicyIgnore}, basics(true))
	rec := state.NewRecord(actorID, time.Time{})

	steps := []struct {
		rule     string
		want     []string
		progress float64
	}{
		{"a", []string{"a"}, 1.0 / 3.0},
		{"c", []string{"a"}, 1.0 / 3.0},
		{"b", []string{"a", "b"}, 2.0 / 3.0},
		{"c", []string{"a", "b", "c"}, 1},
	}
	completions := 0
	for i, st := range steps {
		var out types.Outcome
		tr.OnRuleCompleted(rec, st.rule, &out)
		if got := tr.CompletedSteps(rec, "basics"); !reflect.DeepEqual(got, st.want) {
			t.Errorf("step %d (%s): CompletedSteps() = %v, want %v", i, st.rule, got, st.want)
		}
		if got := tr.Progress(rec, "basics"); got != st.progress {
			t.Errorf("step %d (%s): Progress() = %v, want %v", i, st.rule, got, st.progress)
		}
		for _, r := range out.Rewards {
			if r.Source == "chain:basics" {
				completions++
			}
		}
	}
	if completions != 1 {
		t.Errorf("completion reward granted %d times, want 1", completions)
	}

	var out types.Outcome
	tr.OnRuleCompleted(rec, "c", &out)
	if len(out.Rewards) != 0 || len(hook.ids) != 1 {
		t.Errorf("repeat after completion: rewards %v, hook %v", out.Rewards, hook.ids)
	}
}

func TestUnordered_AnyOrder(t *testing.T) {
	tr, _, hook := newTracker(Settings{Enabled: true}, basics(false))
	rec := state.NewRecord(actorID, time.Time{})

	for _, id := range []string{"c", "a", "c", "b"} {
		tr.OnRuleCompleted(rec, id, nil)
	}
	if got := state.ChainSteps(rec, "basics"); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Errorf("steps = %v, want [c a b]", got)
	}
	if len(hook.ids) != 1 {
		t.Errorf("completion hook fired %d times, want 1", len(hook.ids))
	}
}

func TestDisabled(t *testing.T) {
	tr, _, _ := newTracker(Settings{Enabled: false}, basics(false))
	rec := state.NewRecord(actorID, time.Time{})
	tr.OnRuleCompleted(rec, "a", nil)
	if len(state.ChainSteps(rec, "basics")) != 0 {
		t.Error("disabled tracker recorded a step")
	}
}

func TestProgress(t *testing.T) {
	tr, _, _ := newTracker(Settings{Enabled: true}, basics(false), types.Chain{ID: "empty"})
	rec := state.NewRecord(actorID, time.Time{})
	tr.OnRuleCompleted(rec, "a", nil)

	tests := []struct {
		id   string
		want float64
	}{
		{"basics", 1.0 / 3.0},
		{"empty", 1},
		{"missing", 0},
	}
	for _, tt := range tests {
		if got := tr.Progress(rec, tt.id); got != tt.want {
			t.Errorf("Progress(%s) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if next, ok := NextStep(rec, basics(false)); !ok || next.RuleID != "b" {
		t.Errorf("NextStep() = %+v, %v", next, ok)
	}
}

func TestAvailableAndLookup(t *testing.T) {
	other := types.Chain{ID: "other", Steps: []types.ChainStep{{RuleID: "z"}, {RuleID: "a"}}}
	tr, _, _ := newTracker(Settings{Enabled: true}, basics(true), other, basics(false))
	rec := state.NewRecord(actorID, time.Time{})

	if len(tr.All()) != 2 {
		t.Errorf("All() = %d chains, want 2 (duplicate ignored)", len(tr.All()))
	}
	if len(tr.Available(rec)) != 0 {
		t.Error("Available() with nothing discovered should be empty")
	}
	state.Discover(rec, "z")
	if got := tr.Available(rec); len(got) != 1 || got[0].ID != "other" {
		t.Errorf("Available() = %+v", got)
	}
	if got := tr.ChainsFor("a"); len(got) != 2 {
		t.Errorf("ChainsFor(a) = %d chains, want 2", len(got))
	}
	if c, ok := tr.Get("basics"); !ok || !c.RequiresOrder {
		t.Errorf("Get(basics) = %+v, %v; want first definition", c, ok)
	}
}

func TestParsePolicy(t *testing.T) {
	if ParsePolicy("notify") != PolicyNotify || ParsePolicy("weird") != PolicyIgnore {
		t.Error("ParsePolicy() mapping wrong")
	}
}
