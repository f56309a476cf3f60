// Package web serves stored results, starts games for an operator and
// streams running games to websocket spectators.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/boardgen"
	"github.com/bcspragu/Switchboard/game"
	"github.com/bcspragu/Switchboard/hub"
	"github.com/bcspragu/Switchboard/wordpool"
)

const (
	cookieName = "Authorization"
	operatorID = "operator"
)

// GameRequest is what the operator sends to start a game.
type GameRequest struct {
	Red  string `json:"red"`
	Blue string `json:"blue"`
}

// Starter sets up a game for a request. The game must send its events to the
// given sink.
type Starter func(req *GameRequest, events switchboard.EventSink) (*game.Game, error)

type Srv struct {
	sc  *securecookie.SecureCookie
	h   *hub.Hub
	mux *mux.Router
	db  switchboard.DB
	log *zap.SugaredLogger

	// ctx is what running games are played under.
	ctx context.Context

	operatorToken string
	start         Starter
	words         []string

	upgrader websocket.Upgrader

	mu      sync.Mutex
	r       *rand.Rand
	running map[string]*Status
	wg      sync.WaitGroup
}

type Option func(*Srv)

// WithOperator enables starting games over HTTP, for whoever logs in with the
// token.
func WithOperator(token string, start Starter) Option {
	return func(s *Srv) {
		s.operatorToken = token
		s.start = start
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Srv) {
		s.log = log
	}
}

// WithContext sets the context games started by the server run under.
func WithContext(ctx context.Context) Option {
	return func(s *Srv) {
		s.ctx = ctx
	}
}

// WithWords sets the word pool for board previews.
func WithWords(words []string) Option {
	return func(s *Srv) {
		s.words = words
	}
}

// New returns an initialized server.
func New(db switchboard.DB, r *rand.Rand, sc *securecookie.SecureCookie, opts ...Option) *Srv {
	s := &Srv{
		sc:      sc,
		db:      db,
		r:       r,
		ctx:     context.Background(),
		words:   wordpool.Default(),
		running: make(map[string]*Status),
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.h = hub.New(s.log)
	s.mux = s.initMux()

	return s
}

func (s *Srv) initMux() *mux.Router {
	m := mux.NewRouter()
	// Operator login.
	m.HandleFunc("/api/login", s.handle(s.serveLogin)).Methods("POST")
	// Stored results.
	m.HandleFunc("/api/results", s.handle(s.serveResults)).Methods("GET")
	m.HandleFunc("/api/results/{id}", s.handle(s.serveResult)).Methods("GET")
	m.HandleFunc("/api/summary", s.handle(s.serveSummary)).Methods("GET")
	// New game.
	m.HandleFunc("/api/game", s.handle(s.requireOperator(s.serveCreateGame))).Methods("POST")
	// Running games.
	m.HandleFunc("/api/games", s.handle(s.serveRunningGames)).Methods("GET")
	m.HandleFunc("/api/game/{id}", s.handle(s.serveGame)).Methods("GET")
	// A freshly generated board, for previews.
	m.HandleFunc("/api/board", s.handle(s.serveBoard)).Methods("GET")

	// WebSocket handler for games.
	m.HandleFunc("/api/game/{id}/ws", s.handle(s.serveData)).Methods("GET")

	return m
}

func (s *Srv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Wait blocks until every game the server started has finished.
func (s *Srv) Wait() {
	s.wg.Wait()
}

type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string {
	return e.msg
}

func httpErrorf(code int, format string, args ...any) error {
	return &httpError{code: code, msg: fmt.Sprintf(format, args...)}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (s *Srv) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		var herr *httpError
		if errors.As(err, &herr) {
			http.Error(w, herr.msg, herr.code)
			return
		}
		s.log.Errorw("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Srv) serveLogin(w http.ResponseWriter, r *http.Request) error {
	if s.operatorToken == "" {
		return httpErrorf(http.StatusNotFound, "Starting games is disabled")
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httpErrorf(http.StatusBadRequest, "Malformed request: %v", err)
	}
	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(s.operatorToken)) != 1 {
		return httpErrorf(http.StatusUnauthorized, "Bad token")
	}

	encoded, err := s.sc.Encode("auth", operatorID)
	if err != nil {
		return fmt.Errorf("failed to encode cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		HttpOnly: true,
	})

	return jsonResp(w, struct {
		Success bool `json:"success"`
	}{true})
}

func (s *Srv) isOperator(r *http.Request) bool {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return false
	}

	var id string
	if err := s.sc.Decode("auth", c.Value, &id); err != nil {
		// If we can't parse it, assume it's an old auth cookie and treat them as
		// not logged in.
		return false
	}
	return id == operatorID
}

func (s *Srv) requireOperator(h handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if s.start == nil {
			return httpErrorf(http.StatusNotFound, "Starting games is disabled")
		}
		if !s.isOperator(r) {
			return httpErrorf(http.StatusUnauthorized, "Not logged in")
		}
		return h(w, r)
	}
}

func (s *Srv) serveResults(w http.ResponseWriter, r *http.Request) error {
	recs, err := s.db.Results()
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	if recs == nil {
		recs = []*switchboard.GameRecord{}
	}
	return jsonResp(w, recs)
}

func (s *Srv) serveResult(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["id"]
	rec, err := s.db.Result(id)
	if errors.Is(err, switchboard.ErrGameNotFound) {
		return httpErrorf(http.StatusNotFound, "No game %q", id)
	}
	if err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}
	return jsonResp(w, rec)
}

func (s *Srv) serveSummary(w http.ResponseWriter, r *http.Request) error {
	recs, err := s.db.Results()
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	results := make([]*switchboard.Result, len(recs))
	for i, rec := range recs {
		results[i] = rec.Result
	}
	return jsonResp(w, switchboard.Summarize(results))
}

func (s *Srv) serveCreateGame(w http.ResponseWriter, r *http.Request) error {
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httpErrorf(http.StatusBadRequest, "Malformed request: %v", err)
	}
	req.Red = strings.TrimSpace(req.Red)
	req.Blue = strings.TrimSpace(req.Blue)
	if req.Red == "" || req.Blue == "" {
		return httpErrorf(http.StatusBadRequest, "Both red and blue models are required")
	}

	st := &Status{}
	g, err := s.start(&req, switchboard.MultiSink{st, s.h})
	if err != nil {
		return httpErrorf(http.StatusBadRequest, "Failed to set up game: %v", err)
	}
	st.ID = g.ID()

	s.mu.Lock()
	s.running[g.ID()] = st
	s.mu.Unlock()

	s.wg.Add(1)
	go s.play(g)

	return jsonResp(w, struct {
		ID string `json:"id"`
	}{g.ID()})
}

func (s *Srv) play(g *game.Game) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.running, g.ID())
		s.mu.Unlock()
	}()

	res, err := g.Play(s.ctx)
	if err != nil {
		s.log.Errorw("game failed", "game_id", g.ID(), "error", err)
		return
	}
	if err := s.db.SaveResult(res); err != nil {
		s.log.Errorw("failed to save result", "game_id", g.ID(), "error", err)
	}
}

func (s *Srv) serveRunningGames(w http.ResponseWriter, r *http.Request) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	return jsonResp(w, ids)
}

// serveGame returns a running game's status, or the stored result of a
// finished one.
func (s *Srv) serveGame(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	st, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		return jsonResp(w, st.Snapshot())
	}

	return s.serveResult(w, r)
}

func (s *Srv) serveData(w http.ResponseWriter, r *http.Request) error {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		s.log.Warnw("failed to upgrade websocket", "error", err)
		return nil
	}
	s.h.Register(ws, mux.Vars(r)["id"])
	return nil
}

func (s *Srv) serveBoard(w http.ResponseWriter, r *http.Request) error {
	team := switchboard.RedTeam
	if t := r.URL.Query().Get("starter"); t != "" {
		var err error
		if team, err = switchboard.ParseTeam(t); err != nil || team == switchboard.NoTeam {
			return httpErrorf(http.StatusBadRequest, "Bad starting team %q", t)
		}
	}

	s.mu.Lock()
	b, err := boardgen.New(s.words, team, s.r)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to generate board: %w", err)
	}

	return jsonResp(w, toJSBoard(b.View(true)))
}

type jsBoard struct {
	Rows         [][]string                      `json:"rows"`
	Identities   map[string]switchboard.Identity `json:"identities"`
	StartingTeam switchboard.Team                `json:"starting_team"`
}

func toJSBoard(v *switchboard.BoardView) *jsBoard {
	out := &jsBoard{Identities: v.Identities}
	for i := 0; i+switchboard.Columns <= len(v.Words); i += switchboard.Columns {
		out.Rows = append(out.Rows, v.Words[i:i+switchboard.Columns])
	}
	if v.Remaining(switchboard.RedTeam) > v.Remaining(switchboard.BlueTeam) {
		out.StartingTeam = switchboard.RedTeam
	} else {
		out.StartingTeam = switchboard.BlueTeam
	}
	return out
}

// LoadKeys reads the cookie keys from dir, generating and saving them if they
// don't exist yet.
func LoadKeys(dir string) (*securecookie.SecureCookie, error) {
	hashKey, err := loadOrGenKey(filepath.Join(dir, "hashKey"))
	if err != nil {
		return nil, err
	}

	blockKey, err := loadOrGenKey(filepath.Join(dir, "blockKey"))
	if err != nil {
		return nil, err
	}

	return securecookie.New(hashKey, blockKey), nil
}

func loadOrGenKey(name string) ([]byte, error) {
	f, err := os.ReadFile(name)
	if err == nil {
		return f, nil
	}

	dat := securecookie.GenerateRandomKey(32)
	if dat == nil {
		return nil, errors.New("failed to generate key")
	}

	if err := os.WriteFile(name, dat, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return dat, nil
}

func jsonResp(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}
