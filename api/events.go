package api

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/obsidianwallet/obsidian-wallet-connect/store"
)

const (
	msgSnapshot = "snapshot"

	clientSendBuffer = 16
)

type eventMessage struct {
	Type    string         `json:"type"`
	Payload store.Snapshot `json:"payload"`
}

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newEventClient(conn *websocket.Conn) *eventClient {
	c := &eventClient{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}
	go c.writePump()
	return c
}

func (c *eventClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// EventFeed pushes a store snapshot to every websocket client whenever the
// store changes.
type EventFeed struct {
	feed   StateFeed
	logger zerolog.Logger

	lock        sync.RWMutex
	clients     map[*eventClient]struct{}
	unsubscribe func()
}

func NewEventFeed(feed StateFeed, logger zerolog.Logger) *EventFeed {
	e := &EventFeed{
		feed:    feed,
		logger:  logger,
		clients: make(map[*eventClient]struct{}),
	}
	e.unsubscribe = feed.Subscribe(e.broadcast)
	return e
}

// AddClient registers conn and sends it the current snapshot.
func (e *EventFeed) AddClient(conn *websocket.Conn) *eventClient {
	c := newEventClient(conn)
	e.lock.Lock()
	defer e.lock.Unlock()
	e.clients[c] = struct{}{}

	data, err := encodeSnapshot(e.feed.Snapshot())
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to encode snapshot")
		return c
	}
	c.send <- data
	return c
}

func (e *EventFeed) RemoveClient(c *eventClient) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if _, ok := e.clients[c]; ok {
		delete(e.clients, c)
		close(c.send)
	}
}

func (e *EventFeed) ClientCount() int {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return len(e.clients)
}

// Close drops every client and stops listening to the store.
func (e *EventFeed) Close() {
	e.unsubscribe()
	e.lock.Lock()
	defer e.lock.Unlock()
	for c := range e.clients {
		delete(e.clients, c)
		close(c.send)
	}
}

func (e *EventFeed) broadcast(snap store.Snapshot) {
	data, err := encodeSnapshot(snap)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to encode snapshot")
		return
	}

	var slow []*eventClient
	e.lock.RLock()
	for c := range e.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	e.lock.RUnlock()

	for _, c := range slow {
		e.logger.Warn().Msg("event client too slow, disconnecting")
		e.RemoveClient(c)
	}
}

func encodeSnapshot(snap store.Snapshot) ([]byte, error) {
	return json.Marshal(eventMessage{Type: msgSnapshot, Payload: snap})
}
