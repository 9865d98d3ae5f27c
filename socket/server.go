package socket

import (
	"log"

	socketio "github.com/googollee/go-socket.io"
)

// NewSocketServer initializes and returns a new Socket.IO server
func NewSocketServer() *socketio.Server {
	server := socketio.NewServer(nil)

	// Handle connection events
	server.OnConnect("/", func(c socketio.Conn) error {
		log.Println("✅ Socket connected:", c.ID())
		return nil
	})

	// Clients join the room of each channel/conversation they display
	server.OnEvent("/", "join", func(c socketio.Conn, roomID string) {
		if roomID == "" {
			log.Println("❌ Invalid roomId in join request")
			return
		}
		log.Printf("👥 Connection %s joined room %s\n", c.ID(), roomID)
		c.Join(roomID)
	})

	server.OnEvent("/", "leave", func(c socketio.Conn, roomID string) {
		if roomID == "" {
			return
		}
		c.Leave(roomID)
	})

	server.OnError("/", func(c socketio.Conn, err error) {
		log.Println("⚠️ Socket error:", err)
	})

	// Handle disconnection
	server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		log.Println("❌ Socket disconnected:", reason)
	})

	return server
}

// RoomBroadcaster adapts the Socket.IO server to the fanout Broadcaster
// contract. The per-room connection registry lives inside the server; fanout
// only ever publishes through it.
type RoomBroadcaster struct {
	Server *socketio.Server
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID, event string, payload interface{}) {
	b.Server.BroadcastToRoom("/", roomID, event, payload)
}
