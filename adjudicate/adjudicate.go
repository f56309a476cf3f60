// Package adjudicate decides whether clues follow the rules. A Panel asks a
// primary adjudicator and, only when that adjudicator rejects a clue, a second
// one whose approval overturns the rejection.
package adjudicate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
)

// ErrorReason prefixes the reason recorded when an adjudicator call fails
// and the clue is let through.
const ErrorReason = "adjudicator error"

// Verdict is the panel's final decision on a clue.
type Verdict struct {
	Valid  bool
	Reason string
	// Reviewed is true when the primary rejected and the review adjudicator
	// was consulted.
	Reviewed bool
	// Overturned is true when the review adjudicator approved a rejected clue.
	Overturned bool
	Rulings    []*switchboard.Ruling
}

// Panel is the clue adjudication setup for one game.
type Panel struct {
	// Primary judges every clue. A nil Primary approves everything.
	Primary switchboard.Adjudicator
	// Review re-judges clues the primary rejected. A nil Review means
	// rejections stand.
	Review switchboard.Adjudicator

	events switchboard.EventSink
	log    *zap.SugaredLogger
}

func New(primary, review switchboard.Adjudicator, events switchboard.EventSink, log *zap.SugaredLogger) *Panel {
	if events == nil {
		events = switchboard.NopSink{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Panel{
		Primary: primary,
		Review:  review,
		events:  events,
		log:     log,
	}
}

// Name describes the panel for logs, e.g. "gpt4 (review: gemini-2.5)".
func (p *Panel) Name() string {
	if p == nil || p.Primary == nil {
		return ""
	}
	if p.Review == nil {
		return p.Primary.Name()
	}
	return fmt.Sprintf("%s (review: %s)", p.Primary.Name(), p.Review.Name())
}

// Validate runs the clue past the panel. It never returns an error: a failed
// adjudicator call lets the clue through.
func (p *Panel) Validate(ctx context.Context, req *switchboard.AdjudicationRequest) *Verdict {
	if p == nil || p.Primary == nil {
		return &Verdict{Valid: true}
	}

	first, err := p.ask(ctx, p.Primary, req, false)
	if err != nil {
		return &Verdict{
			Valid:  true,
			Reason: fmt.Sprintf("%s (%s): %v", ErrorReason, p.Primary.Name(), err),
		}
	}
	v := &Verdict{Valid: first.Valid, Reason: first.Reason, Rulings: []*switchboard.Ruling{first}}
	if first.Valid || p.Review == nil {
		return v
	}

	v.Reviewed = true
	second, err := p.ask(ctx, p.Review, req, true)
	if err != nil {
		v.Valid = true
		v.Overturned = true
		v.Reason = fmt.Sprintf("%s on review (%s): %v. First (%s): %s", ErrorReason, p.Review.Name(), err, p.Primary.Name(), first.Reason)
		return v
	}
	v.Rulings = append(v.Rulings, second)

	if second.Valid {
		v.Valid = true
		v.Overturned = true
		v.Reason = fmt.Sprintf("Overturned on review. First (%s): %s. Review (%s): %s", p.Primary.Name(), first.Reason, p.Review.Name(), second.Reason)
		return v
	}

	v.Reason = fmt.Sprintf("Upheld on review. First (%s): %s. Review (%s): %s", p.Primary.Name(), first.Reason, p.Review.Name(), second.Reason)
	return v
}

func (p *Panel) ask(ctx context.Context, adj switchboard.Adjudicator, req *switchboard.AdjudicationRequest, review bool) (*switchboard.Ruling, error) {
	r, err := adj.Adjudicate(ctx, req)
	if err != nil {
		p.log.Warnw("adjudicator call failed, allowing clue", "game_id", req.GameID, "adjudicator", adj.Name(), "review", review, "error", err)
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("adjudicator %q returned no ruling", adj.Name())
	}

	p.events.Emit(&switchboard.RulingEvent{
		GameID:      req.GameID,
		Turn:        req.Turn,
		Team:        req.Team,
		Adjudicator: adj.Name(),
		Review:      review,
		Clue:        req.Clue,
		Valid:       r.Valid,
		Reason:      r.Reason,
		Meta:        r.Meta,
	})

	if r.Meta != nil {
		role, team := "referee", "referee_"+req.Team.String()
		if review {
			role, team = "review_referee", "review_referee_"+req.Team.String()
		}
		p.events.Emit(&switchboard.CallEvent{
			GameID: req.GameID,
			Turn:   req.Turn,
			Team:   team,
			Role:   role,
			Meta:   r.Meta,
			Result: map[string]any{
				"evaluated_clue":  req.Clue.Word,
				"evaluated_count": req.Clue.Count.String(),
				"valid":           r.Valid,
				"reasoning":       r.Reason,
			},
			GameContinues: true,
		})
	}

	p.log.Debugw("clue adjudicated", "game_id", req.GameID, "adjudicator", adj.Name(), "review", review, "clue", req.Clue.Word, "valid", r.Valid)
	return r, nil
}
