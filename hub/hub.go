// Package hub streams game events to websocket spectators.
package hub

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
)

// Message is what spectators receive for each event.
type Message struct {
	Action string            `json:"action"`
	GameID string            `json:"game_id"`
	Event  switchboard.Event `json:"event"`
}

// Hub maintains the set of active connections and broadcasts messages to the
// connections.
type Hub struct {
	// Registered connections.
	connections map[string][]*connection

	// Messages sent so far in each running game, replayed to late joiners.
	backlog map[string][][]byte

	// Messages to send to everyone in a game.
	broadcast chan *broadcastMsg

	// Register requests from the connections.
	register chan *connection

	// Unregister requests from connections.
	unregister chan *connection

	log *zap.SugaredLogger
}

// New creates a new Hub and starts it in a background Go routine.
func New(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &Hub{
		broadcast:   make(chan *broadcastMsg),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		connections: make(map[string][]*connection),
		backlog:     make(map[string][][]byte),
		log:         log,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.connections[c.gameID] = append(h.connections[c.gameID], c)
			for _, msg := range h.backlog[c.gameID] {
				if !h.send(c, msg) {
					break
				}
			}
		case c := <-h.unregister:
			h.deleteConn(c)
		case m := <-h.broadcast:
			if m.final {
				delete(h.backlog, m.gameID)
			} else {
				h.backlog[m.gameID] = append(h.backlog[m.gameID], m.msg)
			}
			// Iterate over a copy, send can remove connections.
			conns := append([]*connection(nil), h.connections[m.gameID]...)
			for _, c := range conns {
				h.send(c, m.msg)
			}
		}
	}
}

// send queues a message for a connection, dropping the connection if it's
// too far behind.
func (h *Hub) send(c *connection, msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		h.log.Warnw("dropping slow spectator", "game_id", c.gameID, "conn", c.id)
		h.deleteConn(c)
		return false
	}
}

func (h *Hub) deleteConn(c *connection) {
	rconns := h.connections[c.gameID]
	for i, rconn := range rconns {
		if rconn.id == c.id {
			close(c.send)
			// Remove the connection.
			copy(rconns[i:], rconns[i+1:])
			rconns[len(rconns)-1] = nil
			rconns = rconns[:len(rconns)-1]
			if len(rconns) == 0 {
				delete(h.connections, c.gameID)
			} else {
				h.connections[c.gameID] = rconns
			}
			return
		}
	}
}

type broadcastMsg struct {
	gameID string
	msg    []byte
	// final is set for the last message of a game.
	final bool
}

// ToGame sends an event to everyone watching its game.
func (h *Hub) ToGame(ev switchboard.Event) error {
	msg, err := json.Marshal(&Message{Action: ev.Action(), GameID: ev.Game(), Event: ev})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	_, final := ev.(*switchboard.GameEndEvent)
	h.broadcast <- &broadcastMsg{
		gameID: ev.Game(),
		msg:    msg,
		final:  final,
	}

	return nil
}

// Emit implements switchboard.EventSink.
func (h *Hub) Emit(ev switchboard.Event) {
	if err := h.ToGame(ev); err != nil {
		h.log.Errorw("failed to broadcast event", "action", ev.Action(), "game_id", ev.Game(), "error", err)
	}
}

// Register associates a connection with the hub and a given game.
func (h *Hub) Register(ws *websocket.Conn, gameID string) {
	conn := &connection{
		id:     gameID + "-" + uuid.NewString(),
		h:      h,
		gameID: gameID,
		send:   make(chan []byte, 256),
		ws:     ws,
	}
	h.register <- conn
	go conn.writePump()
	go conn.readPump()
}
