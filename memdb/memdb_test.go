package memdb

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bcspragu/Switchboard"
)

func TestDB(t *testing.T) {
	db := New()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first := &switchboard.Result{
		GameID: "aaaa",
		Winner: switchboard.RedTeam,
		Moves:  []switchboard.Move{{Team: switchboard.RedTeam, Word: "APPLE", Correct: true}},
		FinalBoard: &switchboard.BoardView{
			Words:      []string{"APPLE"},
			Revealed:   map[string]bool{"APPLE": true},
			Identities: map[string]switchboard.Identity{"APPLE": switchboard.RedTarget},
		},
	}
	second := &switchboard.Result{GameID: "bbbb", Winner: switchboard.BlueTeam}

	for _, r := range []*switchboard.Result{first, second} {
		if err := db.SaveResult(r); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}

	// Changes to the caller's copy don't leak into the store.
	first.Moves[0].Word = "CHANGED"
	first.FinalBoard.Revealed["APPLE"] = false

	got, err := db.Result("aaaa")
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if got.Result.Moves[0].Word != "APPLE" || !got.Result.FinalBoard.Revealed["APPLE"] {
		t.Errorf("stored result was modified: %+v", got.Result)
	}

	all, err := db.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	var ids []string
	for _, rec := range all {
		ids = append(ids, rec.Result.GameID)
	}
	if diff := cmp.Diff([]string{"bbbb", "aaaa"}, ids); diff != "" {
		t.Errorf("unexpected order (-want +got)\n%s", diff)
	}

	if _, err := db.Result("cccc"); !errors.Is(err, switchboard.ErrGameNotFound) {
		t.Errorf("Result(missing) = %v, want ErrGameNotFound", err)
	}
}
