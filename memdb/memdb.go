// Package memdb stores game results in memory.
package memdb

import (
	"sort"
	"sync"
	"time"

	"github.com/bcspragu/Switchboard"
)

type DB struct {
	now func() time.Time

	mu      sync.Mutex
	results map[string]*switchboard.GameRecord
}

func New() *DB {
	return &DB{
		now:     time.Now,
		results: make(map[string]*switchboard.GameRecord),
	}
}

func (db *DB) SaveResult(r *switchboard.Result) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.results[r.GameID] = &switchboard.GameRecord{
		Result:    cloneResult(r),
		CreatedAt: db.now(),
	}
	return nil
}

func (db *DB) Result(gameID string) (*switchboard.GameRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.results[gameID]
	if !ok {
		return nil, switchboard.ErrGameNotFound
	}
	return cloneRecord(rec), nil
}

func (db *DB) Results() ([]*switchboard.GameRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]*switchboard.GameRecord, 0, len(db.results))
	for _, rec := range db.results {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Result.GameID < out[j].Result.GameID
	})
	return out, nil
}

func cloneRecord(rec *switchboard.GameRecord) *switchboard.GameRecord {
	return &switchboard.GameRecord{Result: cloneResult(rec.Result), CreatedAt: rec.CreatedAt}
}

func cloneResult(r *switchboard.Result) *switchboard.Result {
	rc := *r
	rc.Moves = append([]switchboard.Move(nil), r.Moves...)
	if r.FinalBoard != nil {
		rc.FinalBoard = cloneView(r.FinalBoard)
	}
	return &rc
}

func cloneView(v *switchboard.BoardView) *switchboard.BoardView {
	out := &switchboard.BoardView{
		Words:      append([]string(nil), v.Words...),
		Revealed:   make(map[string]bool, len(v.Revealed)),
		Identities: make(map[string]switchboard.Identity, len(v.Identities)),
	}
	for k, b := range v.Revealed {
		out.Revealed[k] = b
	}
	for k, id := range v.Identities {
		out.Identities[k] = id
	}
	return out
}
