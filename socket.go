package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/raylou15/context-clues/internal/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 4096
	sendQueue  = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient adapts one websocket connection to the room Conn interface. Writes
// go through a buffered channel so room broadcasts never block on the network.
type wsClient struct {
	conn *websocket.Conn
	send chan any

	closeOnce sync.Once
	done      chan struct{}

	mu   sync.Mutex
	room *game.Room
}

func (c *wsClient) Enqueue(v any) bool {
	select {
	case c.send <- v:
		return true
	default:
		return false
	}
}

func (c *wsClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *wsClient) setRoom(room *game.Room) {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
}

func (c *wsClient) currentRoom() *game.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			deadline := time.Now().Add(writeWait)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump(manager *game.Manager) {
	defer func() {
		if room := c.currentRoom(); room != nil {
			room.RemoveConn(c)
		}
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := game.ParseClientMessage(raw)
		if err != nil {
			c.Enqueue(game.NewErrorEvent(err.Error()))
			continue
		}

		switch msg.T {
		case "join":
			roomID := game.RoomIDFromJoin(msg)
			if roomID == "" || msg.User == nil {
				c.Enqueue(game.NewErrorEvent("join requires a user and a room identifier"))
				continue
			}
			room := manager.GetOrCreate(roomID)
			if prev := c.currentRoom(); prev != nil && prev != room {
				prev.RemoveConn(c)
			}
			c.setRoom(room)
			room.Join(c, *msg.User)
		case "guess":
			room := c.currentRoom()
			if room == nil {
				c.Enqueue(game.NewErrorEvent("join a room before guessing"))
				continue
			}
			room.HandleGuess(context.Background(), c, msg.Word)
		case "hint_request":
			room := c.currentRoom()
			if room == nil {
				c.Enqueue(game.NewErrorEvent("join a room before requesting a hint"))
				continue
			}
			room.HandleHint(c)
		case "stats":
			room := c.currentRoom()
			if room == nil {
				c.Enqueue(game.NewErrorEvent("join a room before requesting stats"))
				continue
			}
			room.HandleStats(context.Background(), c)
		}
	}
}

func serveWS(cfg *Config, manager *game.Manager, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Str("client", realIP(r)).Msg("websocket upgrade failed")
			return
		}

		client := &wsClient{
			conn: conn,
			send: make(chan any, sendQueue),
			done: make(chan struct{}),
		}

		go client.writePump()
		client.readPump(manager)
	}
}
