package switchboard

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrGameNotFound = errors.New("switchboard: game not found")

// GameRecord is a stored result, plus when it was stored.
type GameRecord struct {
	Result    *Result   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// DB stores the results of finished games.
type DB interface {
	SaveResult(*Result) error
	Result(gameID string) (*GameRecord, error)
	// Results returns every stored game, most recent first.
	Results() ([]*GameRecord, error)
}

// NewGameID returns a short random ID used to correlate a game's logs.
func NewGameID() string {
	return uuid.New().String()[:8]
}
