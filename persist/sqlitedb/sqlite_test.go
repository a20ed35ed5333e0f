package sqlitedb

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/engine/store"
	"github.com/nathoo/brewcore/types"
)

var (
	alice = uuid.MustParse("aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa")
	bob   = uuid.MustParse("bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb")
)

func openTemp(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "brewcore.db")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return db, path
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open("", nil); err == nil {
		t.Error("Open(\"\") error = nil, want error")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	db, path := openTemp(t)

	if _, err := db.LoadRecord(alice); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("LoadRecord(missing) error = %v, want ErrNotFound", err)
	}

	r := state.NewRecord(alice, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	state.Discover(r, "speed")
	state.UnlockAchievement(r, "first_brew")
	if err := db.SaveRecord(r); err != nil {
		t.Fatalf("SaveRecord() error: %v", err)
	}
	state.Discover(r, "night")
	if err := db.SaveRecord(r); err != nil {
		t.Fatalf("SaveRecord() second write error: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	db2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db2.Close()
	got, err := db2.LoadRecord(alice)
	if err != nil {
		t.Fatalf("LoadRecord() error: %v", err)
	}
	want := []string{"night", "speed"}
	ids := state.DiscoveredIDs(got)
	if len(ids) != 2 || ids[0] != want[0] || ids[1] != want[1] {
		t.Errorf("DiscoveredIDs() = %v, want %v", ids, want)
	}
	if !state.HasAchievement(got, "first_brew") {
		t.Error("achievement first_brew not restored")
	}

	all, err := db2.RecordIDs()
	if err != nil || len(all) != 1 || all[0] != alice {
		t.Errorf("RecordIDs() = %v, %v, want [%s]", all, err, alice)
	}
}

func TestEffectsReplace(t *testing.T) {
	db, _ := openTemp(t)
	defer db.Close()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := map[uuid.UUID][]types.PendingEffect{
		alice: {
			{ID: "a2", Actor: alice, RuleID: "night", Started: start.Add(time.Second), Duration: time.Minute},
			{ID: "a1", Actor: alice, RuleID: "speed", Started: start, Duration: 30 * time.Second, OnExpire: []string{"say done"}},
		},
		bob: {{ID: "b1", Actor: bob, RuleID: "night", Started: start, Duration: time.Minute}},
	}
	if err := db.SaveEffects(first); err != nil {
		t.Fatalf("SaveEffects() error: %v", err)
	}
	got, err := db.LoadEffects()
	if err != nil {
		t.Fatalf("LoadEffects() error: %v", err)
	}
	if len(got[alice]) != 2 || got[alice][0].ID != "a1" || len(got[bob]) != 1 {
		t.Fatalf("LoadEffects() = %+v", got)
	}
	if got[alice][0].OnExpire[0] != "say done" {
		t.Errorf("OnExpire = %v, want [say done]", got[alice][0].OnExpire)
	}

	if err := db.SaveEffects(map[uuid.UUID][]types.PendingEffect{}); err != nil {
		t.Fatalf("SaveEffects(empty) error: %v", err)
	}
	got, _ = db.LoadEffects()
	if len(got) != 0 {
		t.Errorf("LoadEffects() after clear = %+v, want empty", got)
	}
}

func TestStoreIntegration(t *testing.T) {
	db, _ := openTemp(t)
	defer db.Close()

	s := store.New(db)
	state.IncStat(s.Get(bob), state.StatTotalBrewed)
	s.Unload(bob)
	s.Close()

	s2 := store.New(db)
	defer s2.Close()
	if got := state.GetStat(s2.Get(bob), state.StatTotalBrewed); got != 1 {
		t.Errorf("GetStat(total_brewed) = %d, want 1", got)
	}
}
