package services

import (
	"log"

	"ripple_server/models"
)

// Event kinds pushed to rooms. Counter events are distinct from content
// events because clients subscribe to them independently.
const (
	EventNewMessage        = "newMessage"
	EventMessageDeleted    = "messageDeleted"
	EventReactionUpdated   = "reactionUpdated"
	EventNewReply          = "newReply"
	EventReplyCountUpdated = "replyCountUpdated"
)

// Broadcaster pushes one event to every connection currently joined to a
// room. The per-room connection registry is owned by the transport layer;
// this service only calls through it.
type Broadcaster interface {
	BroadcastToRoom(roomID, event string, payload interface{})
}

// RoomService resolves the delivery room of a message and emits exactly one
// event per logical mutation.
type RoomService struct {
	Broadcaster Broadcaster
}

// ResolveRoom returns the room id of a message. A message carries exactly
// one of the channel/conversation references; when neither is set (an
// orphaned record) ok is false and the caller must suppress the broadcast.
func (s *RoomService) ResolveRoom(message *models.Message) (string, bool) {
	return models.RoomKeyFor(message.ChannelID, message.ConversationID)
}

// Publish emits a single event to a room.
func (s *RoomService) Publish(roomID, event string, payload interface{}) {
	if s.Broadcaster == nil {
		return
	}
	s.Broadcaster.BroadcastToRoom(roomID, event, payload)
}

// PublishToMessageRoom resolves the message's room and publishes one event.
// An orphaned message yields no room; the event is dropped without error.
func (s *RoomService) PublishToMessageRoom(message *models.Message, event string, payload interface{}) {
	roomID, ok := s.ResolveRoom(message)
	if !ok {
		log.Printf("⚠️ Suppressing %s broadcast: message %s has no room", event, message.MessageID)
		return
	}
	s.Publish(roomID, event, payload)
}
