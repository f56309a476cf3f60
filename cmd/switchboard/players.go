package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/adjudicate"
	"github.com/bcspragu/Switchboard/ai"
	"github.com/bcspragu/Switchboard/boardgen"
	"github.com/bcspragu/Switchboard/config"
	"github.com/bcspragu/Switchboard/consensus"
	"github.com/bcspragu/Switchboard/game"
	"github.com/bcspragu/Switchboard/history"
	hio "github.com/bcspragu/Switchboard/io"
	"github.com/bcspragu/Switchboard/llm"
	"github.com/bcspragu/Switchboard/prompt"
	"github.com/bcspragu/Switchboard/w2v"
)

const w2vName = "w2v"

type humanRole int

const (
	noHuman humanRole = iota
	humanReferee
	humanRedCoach
	humanRedPlayer
	humanBlueCoach
	humanBluePlayer
)

func parseRole(s string) (humanRole, error) {
	switch s {
	case "":
		return noHuman, nil
	case "referee":
		return humanReferee, nil
	case "red-coach":
		return humanRedCoach, nil
	case "red-player":
		return humanRedPlayer, nil
	case "blue-coach":
		return humanBlueCoach, nil
	case "blue-player":
		return humanBluePlayer, nil
	}
	return noHuman, fmt.Errorf("invalid interactive role %q, must be one of referee, red-coach, red-player, blue-coach or blue-player", s)
}

// builder makes a fresh set of collaborators for each game.
type builder struct {
	cfg     *config.Config
	role    humanRole
	client  llm.Client
	prompts *prompt.Renderer
	fouls   *ai.FoulLog
	w2vPath string
	// voters replaces a team's player with a majority vote of these models.
	voters map[switchboard.Team][]string
	log    *zap.SugaredLogger

	consoleOnce sync.Once
	console     *hio.Console

	w2vOnce  sync.Once
	w2vModel w2v.Model
	w2vErr   error
}

func (b *builder) human() *hio.Console {
	b.consoleOnce.Do(func() {
		b.console = hio.NewConsole(os.Stdin, os.Stdout)
	})
	return b.console
}

func (b *builder) word2vec() (w2v.Model, error) {
	b.w2vOnce.Do(func() {
		b.w2vModel, b.w2vErr = w2v.Load(b.w2vPath, b.log)
	})
	return b.w2vModel, b.w2vErr
}

func (b *builder) coach(team switchboard.Team, model string) (switchboard.Coach, error) {
	if (team == switchboard.RedTeam && b.role == humanRedCoach) || (team == switchboard.BlueTeam && b.role == humanBlueCoach) {
		return hio.NewCoach(b.human()), nil
	}
	if model == w2vName {
		m, err := b.word2vec()
		if err != nil {
			return nil, err
		}
		return w2v.NewCoach(m, b.log), nil
	}
	return ai.NewCoach(model, b.client, b.prompts, b.log), nil
}

func (b *builder) player(team switchboard.Team, model string) (switchboard.Player, error) {
	if (team == switchboard.RedTeam && b.role == humanRedPlayer) || (team == switchboard.BlueTeam && b.role == humanBluePlayer) {
		return hio.NewPlayer(b.human()), nil
	}
	if voters := b.voters[team]; len(voters) > 0 {
		ps := make([]switchboard.Player, len(voters))
		for i, v := range voters {
			p, err := b.modelPlayer(v)
			if err != nil {
				return nil, err
			}
			ps[i] = p
		}
		return consensus.New(b.log, ps...), nil
	}
	return b.modelPlayer(model)
}

func (b *builder) modelPlayer(model string) (switchboard.Player, error) {
	if model == w2vName {
		m, err := b.word2vec()
		if err != nil {
			return nil, err
		}
		return w2v.NewPlayer(m, b.log), nil
	}
	return ai.NewPlayer(model, b.client, b.prompts, b.log), nil
}

// panel returns the game's adjudicators. A human referee gets no review.
func (b *builder) panel(events switchboard.EventSink) *adjudicate.Panel {
	if b.cfg.NoReferee {
		return nil
	}
	if b.role == humanReferee {
		return adjudicate.New(hio.NewAdjudicator(b.human()), nil, events, b.log)
	}
	primary := ai.NewAdjudicator(b.cfg.Referee, b.client, b.prompts, b.fouls, b.log)
	var review switchboard.Adjudicator
	if hasReview(b.cfg) {
		review = ai.NewAdjudicator(b.cfg.ReviewModel, b.client, b.prompts, b.fouls, b.log)
	}
	return adjudicate.New(primary, review, events, b.log)
}

func (b *builder) config(events switchboard.EventSink) (*game.Config, error) {
	cfg := &game.Config{
		Panel:  b.panel(events),
		Events: events,
		Log:    b.log,
	}
	var err error
	if cfg.RedCoach, err = b.coach(switchboard.RedTeam, b.cfg.RedModel); err != nil {
		return nil, err
	}
	if cfg.BlueCoach, err = b.coach(switchboard.BlueTeam, b.cfg.BlueModel); err != nil {
		return nil, err
	}
	if cfg.RedPlayer, err = b.player(switchboard.RedTeam, b.cfg.RedModel); err != nil {
		return nil, err
	}
	if cfg.BluePlayer, err = b.player(switchboard.BlueTeam, b.cfg.BlueModel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// previewPrompt renders one role's prompt against a freshly dealt board, with
// a sample clue for the player and referee prompts.
func previewPrompt(w io.Writer, prompts *prompt.Renderer, id string, pool []string, r *rand.Rand) error {
	board, err := boardgen.New(pool, switchboard.RedTeam, r)
	if err != nil {
		return err
	}
	clue := &switchboard.Clue{Word: "EXAMPLE", Count: switchboard.Fixed(2)}

	var pc prompt.Context
	switch id {
	case prompt.RedCoach, prompt.BlueCoach:
		team := switchboard.RedTeam
		if id == prompt.BlueCoach {
			team = switchboard.BlueTeam
		}
		pc = ai.CoachContext(&switchboard.ClueRequest{Team: team, View: board.View(true), History: history.Empty})
	case prompt.RedPlayer, prompt.BluePlayer:
		team := switchboard.RedTeam
		if id == prompt.BluePlayer {
			team = switchboard.BlueTeam
		}
		pc = ai.PlayerContext(&switchboard.GuessRequest{Team: team, Clue: clue, View: board.View(false), History: history.Empty})
	case prompt.Referee:
		pc = ai.RefereeContext(&switchboard.AdjudicationRequest{Team: switchboard.RedTeam, Clue: clue, View: board.View(true)})
	default:
		return fmt.Errorf("unknown prompt %q", id)
	}

	out, err := prompts.Render(id, pc)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "=== %s (%s) ===\n%s\n", id, prompts.Source(id), out)
	return nil
}
