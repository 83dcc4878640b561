package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/shaktris/shaktris/internal/events"
)

const (
	// writeWait bounds a single socket write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered stale and dropped.
	pongWait   = 30 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
)

// client is one websocket connection. A connection may carry a player,
// a spectator, or both.
type client struct {
	srv    *Server
	conn   *websocket.Conn
	logger *log.Logger

	// connID identifies the connection itself, independent of any
	// player identity established by join_game.
	connID string

	send chan []byte
	done chan struct{}
	once sync.Once

	mu          sync.Mutex
	playerID    string
	gameSub     *events.Subscriber
	spectateSub *events.Subscriber
}

func newClient(srv *Server, conn *websocket.Conn, connID string) *client {
	return &client{
		srv:    srv,
		conn:   conn,
		logger: srv.logger.With("conn", connID),
		connID: connID,
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

func (c *client) player() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *client) setPlayer(id string) {
	c.mu.Lock()
	c.playerID = id
	c.mu.Unlock()
}

// attachGame switches the connection onto a game's event stream,
// replacing any previous one.
func (c *client) attachGame(gameID string) {
	c.mu.Lock()
	old := c.gameSub
	if old != nil && old.GameID == gameID {
		c.mu.Unlock()
		return
	}
	sub := c.srv.coord.Bus().Subscribe(gameID, c.connID)
	c.gameSub = sub
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	go c.forward(sub)
}

// attachSpectate subscribes the connection to a second game as a
// spectator.
func (c *client) attachSpectate(gameID string) {
	c.mu.Lock()
	old := c.spectateSub
	sub := c.srv.coord.Bus().Subscribe(gameID, c.connID+":spectate")
	c.spectateSub = sub
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	go c.forward(sub)
}

func (c *client) detachSpectate() {
	c.mu.Lock()
	old := c.spectateSub
	c.spectateSub = nil
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// forward pumps one subscription into the socket. If the bus drops the
// subscriber as a slow consumer the connection is closed; the client is
// too far behind to ever see a consistent stream again.
func (c *client) forward(sub *events.Subscriber) {
	for ev := range sub.Events() {
		data, err := json.Marshal(eventFrame{
			Type:    "event",
			GameID:  ev.GameID,
			Seq:     ev.Seq,
			Event:   ev.Type,
			Payload: ev.Payload,
		})
		if err != nil {
			c.logger.Error("marshal event", "event", ev.Type, "err", err)
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		}
	}
	if sub.Err() != nil {
		c.logger.Warn("dropping slow consumer", "game", sub.GameID)
		c.conn.Close()
	}
}

// reply queues a response frame for the write pump.
func (c *client) reply(resp response) {
	resp.Type = "response"
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("marshal response", "err", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *client) readPump() {
	defer c.teardown()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("read failed", "err", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(response{OK: false, Error: &wireError{Code: codeProtocol, Message: "malformed message"}})
			continue
		}
		c.srv.dispatch(c, &msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

// teardown runs once when the read pump exits. It marks the player
// disconnected, releases spectator slots and shuts both pumps down.
func (c *client) teardown() {
	c.once.Do(func() {
		if pid := c.player(); pid != "" {
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			c.srv.coord.Disconnect(ctx, pid)
			cancel()
		}
		c.srv.coord.StopSpectating(c.connID)

		c.mu.Lock()
		gameSub, spectateSub := c.gameSub, c.spectateSub
		c.gameSub, c.spectateSub = nil, nil
		c.mu.Unlock()
		if gameSub != nil {
			gameSub.Close()
		}
		if spectateSub != nil {
			spectateSub.Close()
		}

		close(c.done)
		c.conn.Close()
	})
}
