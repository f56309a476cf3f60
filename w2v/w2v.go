// Package w2v implements a coach and a player that pick words by their
// word2vec similarity, no language model involved.
package w2v

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"code.sajari.com/word2vec"
	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
)

// Name is what the word2vec collaborators call themselves.
const Name = "word2vec"

// ErrNoClue is returned when no word in the model's vocabulary makes a legal
// clue.
var ErrNoClue = errors.New("no legal clue found")

// Model is the part of a word2vec model the collaborators use. It's
// satisfied by *word2vec.Model.
type Model interface {
	Cos(a, b word2vec.Expr) (float32, error)
	CosN(e word2vec.Expr, n int) ([]word2vec.Match, error)
}

// Load reads a binary word2vec model from disk.
func Load(file string, log *zap.SugaredLogger) (*word2vec.Model, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log.Infow("opening w2v model", "file", file)
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file %q: %w", file, err)
	}
	defer f.Close()

	model, err := word2vec.FromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model file %q: %w", file, err)
	}
	log.Infow("read w2v model", "words", model.Size(), "dim", model.Dim())
	return model, nil
}

// expr turns a board word into a model expression. Multi-word entries like
// "LOCH NESS" are the sum of their parts.
func expr(w string) word2vec.Expr {
	e := word2vec.Expr{}
	for _, part := range strings.FieldsFunc(strings.ToLower(w), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}) {
		e.Add(1, part)
	}
	return e
}

// similarity returns how close the two words are. Words missing from the
// vocabulary are as far apart as possible.
func similarity(m Model, a, b string) float32 {
	s, err := m.Cos(expr(a), expr(b))
	if err != nil {
		return -1
	}
	return s
}

type scored struct {
	Word  string
	Score float32
}

func rank(m Model, clue string, words []string) []scored {
	out := make([]scored, len(words))
	for i, w := range words {
		out[i] = scored{Word: w, Score: similarity(m, clue, w)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Player guesses the available words most similar to the clue.
type Player struct {
	model Model
	log   *zap.SugaredLogger
}

func NewPlayer(m Model, log *zap.SugaredLogger) *Player {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Player{model: m, log: log}
}

func (p *Player) Name() string { return Name }

func (p *Player) Guess(_ context.Context, req *switchboard.GuessRequest) (switchboard.Guesses, error) {
	available := req.View.Available()
	if len(available) == 0 {
		return switchboard.NewGuessList(nil, nil), nil
	}

	ranked := rank(p.model, req.Clue.Word, available)
	n := guessCount(req.Clue.Count, ranked)

	words := make([]string, n)
	for i := range words {
		words[i] = ranked[i].Word
	}
	p.log.Debugw("ranked guesses", "clue", req.Clue.Word, "guesses", words)
	return switchboard.NewGuessList(words, nil), nil
}

// guessCount is how many of the ranked words to guess. Fixed counts take
// exactly that many, with a zero count still taking one. Unlimited counts
// take every word that's closer to the clue than not.
func guessCount(c switchboard.Count, ranked []scored) int {
	n, ok := c.N()
	if !ok {
		n = 0
		for _, s := range ranked {
			if s.Score <= 0 {
				break
			}
			n++
		}
	}
	if n < 1 {
		n = 1
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return n
}

// Coach looks for a word close to as many of its team's targets as possible,
// while staying further from every other word on the board.
type Coach struct {
	model Model
	log   *zap.SugaredLogger

	// Candidates is how many neighbors of each target are considered.
	Candidates int
	// Threshold is the least similarity a target needs to count towards a
	// clue.
	Threshold float32
}

func NewCoach(m Model, log *zap.SugaredLogger) *Coach {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Coach{model: m, log: log, Candidates: 50, Threshold: 0.2}
}

func (c *Coach) Name() string { return Name }

func (c *Coach) GiveClue(_ context.Context, req *switchboard.ClueRequest) (*switchboard.Clue, error) {
	v := req.View
	var targets, others []string
	for _, w := range v.Available() {
		if v.Identities[w] == req.Team.Target() {
			targets = append(targets, w)
		} else {
			others = append(others, w)
		}
	}
	if len(targets) == 0 {
		return nil, ErrNoClue
	}

	seen := make(map[string]bool)
	var best *candidate
	for _, t := range targets {
		matches, err := c.model.CosN(expr(t), c.Candidates)
		if err != nil {
			c.log.Debugw("no neighbors for target", "target", t, "error", err)
			continue
		}
		for _, m := range matches {
			w := strings.ToLower(m.Word)
			if seen[w] || !legal(w, v.Words) {
				continue
			}
			seen[w] = true
			cand := c.score(w, targets, others)
			if cand.better(best) {
				best = cand
			}
		}
	}
	if best == nil {
		return nil, ErrNoClue
	}

	c.log.Debugw("picked clue", "clue", best.word, "targets", best.covers, "margin", best.margin)
	n := len(best.covers)
	if n < 1 {
		n = 1
	}
	return &switchboard.Clue{Word: best.word, Count: switchboard.Fixed(uint(n))}, nil
}

type candidate struct {
	word   string
	covers []string
	margin float32
}

func (c *candidate) better(o *candidate) bool {
	if o == nil {
		return true
	}
	if len(c.covers) != len(o.covers) {
		return len(c.covers) > len(o.covers)
	}
	return c.margin > o.margin
}

// score finds the targets the word is closer to than any non-target, and how
// far ahead of the closest non-target the weakest of those is.
func (c *Coach) score(w string, targets, others []string) *candidate {
	var danger float32 = -1
	for _, o := range others {
		if s := similarity(c.model, w, o); s > danger {
			danger = s
		}
	}

	cand := &candidate{word: w, margin: -2}
	var weakest float32 = 2
	for _, r := range rank(c.model, w, targets) {
		if r.Score < c.Threshold || r.Score <= danger {
			break
		}
		cand.covers = append(cand.covers, r.Word)
		weakest = r.Score
	}
	if len(cand.covers) > 0 {
		cand.margin = weakest - danger
	}
	return cand
}

// Neighbors returns the n words closest to the sum of words that would be
// legal clues on board. A nil board checks legality against words alone.
func Neighbors(m Model, words []string, n int, board []string) ([]word2vec.Match, error) {
	if board == nil {
		board = words
	}
	e := word2vec.Expr{}
	for _, w := range words {
		for part, weight := range expr(w) {
			e.Add(weight, part)
		}
	}

	for k := n; ; k *= 2 {
		matches, err := m.CosN(e, k)
		if err != nil {
			return nil, err
		}
		var valid []word2vec.Match
		for _, match := range matches {
			if legal(strings.ToLower(match.Word), board) {
				valid = append(valid, match)
			}
		}
		// Fewer matches than asked for means the vocabulary is exhausted.
		if len(valid) >= n || len(matches) < k {
			if len(valid) > n {
				valid = valid[:n]
			}
			return valid, nil
		}
	}
}

// legal reports whether w can be given as a clue on a board with the given
// words. A clue is a single alphabetic word that doesn't contain, and isn't
// contained in, any board word.
func legal(w string, board []string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	for _, b := range board {
		b = strings.ToLower(b)
		for _, part := range strings.Fields(b) {
			if strings.Contains(part, w) || strings.Contains(w, part) {
				return false
			}
		}
		if strings.Contains(strings.ReplaceAll(b, " ", ""), w) {
			return false
		}
	}
	return true
}
