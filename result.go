package switchboard

import (
	"time"

	"github.com/montanaflynn/stats"
)

// Move is a single guess, as recorded in a game's move log.
type Move struct {
	Team     Team     `json:"team"`
	Word     string   `json:"word"`
	Identity Identity `json:"identity"`
	Correct  bool     `json:"correct"`
}

// Result is what a finished game produces.
type Result struct {
	GameID       string `json:"game_id"`
	StartingTeam Team   `json:"starting_team"`
	// Winner is NoTeam only when the game was cut off by its turn limit.
	Winner     Team          `json:"winner"`
	Turns      int           `json:"turns"`
	Duration   time.Duration `json:"duration"`
	Moves      []Move        `json:"moves"`
	FinalBoard *BoardView    `json:"final_board"`
	Red        string        `json:"red"`
	Blue       string        `json:"blue"`
}

// TeamStats is a team's guessing record.
type TeamStats struct {
	Total     int     `json:"total_moves"`
	Correct   int     `json:"correct_moves"`
	Incorrect int     `json:"incorrect_moves"`
	Accuracy  float64 `json:"accuracy"`
}

func (s *TeamStats) add(correct bool) {
	s.Total++
	if correct {
		s.Correct++
	} else {
		s.Incorrect++
	}
	s.Accuracy = float64(s.Correct) / float64(s.Total)
}

// Stats computes the team's guessing record for the game.
func (r *Result) Stats(t Team) TeamStats {
	var s TeamStats
	for _, mv := range r.Moves {
		if mv.Team == t {
			s.add(mv.Correct)
		}
	}
	return s
}

// Summary aggregates the results of a batch of games.
type Summary struct {
	Games         int           `json:"games"`
	RedWins       int           `json:"red_wins"`
	BlueWins      int           `json:"blue_wins"`
	NoWinner      int           `json:"no_winner"`
	AverageTurns  float64       `json:"average_turns"`
	MedianTurns   float64       `json:"median_turns"`
	TotalDuration time.Duration `json:"total_duration"`
	Red           TeamStats     `json:"red"`
	Blue          TeamStats     `json:"blue"`
}

// Summarize aggregates a batch of results. Nil results, from games that
// failed to set up, are skipped.
func Summarize(results []*Result) *Summary {
	s := &Summary{}
	var turns stats.Float64Data
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Games++
		turns = append(turns, float64(r.Turns))
		s.TotalDuration += r.Duration
		switch r.Winner {
		case RedTeam:
			s.RedWins++
		case BlueTeam:
			s.BlueWins++
		default:
			s.NoWinner++
		}
		for _, mv := range r.Moves {
			switch mv.Team {
			case RedTeam:
				s.Red.add(mv.Correct)
			case BlueTeam:
				s.Blue.add(mv.Correct)
			}
		}
	}
	if s.Games > 0 {
		s.AverageTurns, _ = turns.Mean()
		s.MedianTurns, _ = turns.Median()
	}
	return s
}
