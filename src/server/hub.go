package server

import (
	"context"
	"encoding/json"
	"net/http"

	"oi-signal-engine/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type subscription struct {
	client      *Client
	underlyings []string
}

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// RunHub owns the client set until ctx is cancelled. Call it once.
func (s *APIServer) RunHub(ctx context.Context) {
	defer close(s.hubDone)

	for {
		select {
		case <-ctx.Done():
			for client := range s.clients {
				s.drop(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Add(1)
			s.send(client, filterSnapshot(s.latestSnapshot(), nil, models.SnapshotInitial))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.drop(client)
			}

		case sub := <-s.subscribe:
			if _, ok := s.clients[sub.client]; !ok {
				continue
			}
			sub.client.underlyings = sub.underlyings
			s.send(sub.client, filterSnapshot(s.latestSnapshot(), sub.underlyings, models.SnapshotInitial))

		case snap := <-s.broadcast:
			s.stateMutex.Lock()
			s.latest = &snap
			s.stateMutex.Unlock()

			for client := range s.clients {
				s.send(client, filterSnapshot(snap, client.underlyings, models.SnapshotUpdate))
			}
		}
	}
}

// send never blocks the hub. A client whose buffer is full is disconnected.
func (s *APIServer) send(client *Client, snap models.MSignalSnapshot) {
	select {
	case client.send <- snap:
	default:
		s.Logger.Warning("WebSocket client too slow, disconnecting")
		s.drop(client)
	}
}

func (s *APIServer) drop(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.connections.Add(-1)
}

func (s *APIServer) latestSnapshot() models.MSignalSnapshot {
	s.stateMutex.RLock()
	latest := s.latest
	s.stateMutex.RUnlock()
	if latest != nil {
		return *latest
	}
	return s.signals.LatestSnapshot()
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a cycle snapshot for every client. When the queue is full
// the snapshot is dropped; the next cycle supersedes it anyway.
func (s *APIServer) Broadcast(snapshot models.MSignalSnapshot) {
	select {
	case s.broadcast <- snapshot:
	default:
		s.Logger.Warning("Broadcast queue full, dropping snapshot %s", snapshot.CycleID)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		send: make(chan models.MSignalSnapshot, 64),
	}

	select {
	case s.register <- client:
	case <-s.hubDone:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command. Anything that is not JSON
// closes the connection.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}
	if cmd.Command != "subscribe" {
		return
	}

	select {
	case s.subscribe <- subscription{client: client, underlyings: cmd.Underlyings}:
	case <-s.hubDone:
	}
}
