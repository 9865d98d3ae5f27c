package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a chat message stored in the Messages table.
// Partition key: roomId, Sort key: messageId.
type Message struct {
	RoomID          string                     `dynamodbav:"roomId" json:"roomId"`       // ✅ Partition Key ("channel#<id>" or "conversation#<id>")
	MessageID       string                     `dynamodbav:"messageId" json:"messageId"` // ✅ Sort Key, "<sentAt>#<uuid>" so ids order by creation instant
	ChannelID       *string                    `dynamodbav:"channelId,omitempty" json:"channelId,omitempty"`
	ConversationID  *string                    `dynamodbav:"conversationId,omitempty" json:"conversationId,omitempty"`
	SenderID        string                     `dynamodbav:"senderId" json:"senderId"`
	Content         string                     `dynamodbav:"content,omitempty" json:"content,omitempty"`
	Attachments     []string                   `dynamodbav:"attachments,omitempty" json:"attachments,omitempty"`
	Reactions       map[string]map[string]bool `dynamodbav:"reactions" json:"reactions"` // ✅ emoji -> reacting user flags, mutated via nested document paths
	ParentMessageID *string                    `dynamodbav:"parentMessageId,omitempty" json:"parentMessageId,omitempty"`
	ReplyCount      int                        `dynamodbav:"replyCount" json:"replyCount"`
	LastReplyAt     string                     `dynamodbav:"lastReplyAt,omitempty" json:"lastReplyAt,omitempty"`
	SentAt          string                     `dynamodbav:"sentAt" json:"sentAt"`
	Deleted         bool                       `dynamodbav:"deleted" json:"deleted"`
}

// MessagesTable is the DynamoDB table name for messages
const MessagesTable = "Messages"

// ParentMessageIndex is the GSI (parentMessageId, messageId) used for thread-reply queries
const ParentMessageIndex = "ParentMessageIndex"

// Room id prefixes
const (
	ChannelRoomPrefix      = "channel#"
	ConversationRoomPrefix = "conversation#"
)

// MessageIDTimeLayout is fixed-width (nanoseconds are zero-padded, unlike
// RFC3339Nano) so ids compare lexicographically in creation order.
const MessageIDTimeLayout = "2006-01-02T15:04:05.000000000Z"

// NewMessageID builds a message id that sorts by creation instant, with a
// uuid suffix as the tie-break when two messages share a timestamp.
func NewMessageID(sentAt time.Time) string {
	return sentAt.UTC().Format(MessageIDTimeLayout) + "#" + uuid.New().String()
}

// RoomKeyFor derives the room id from the channel/conversation references.
// Exactly one reference must be set; ok is false when neither is.
func RoomKeyFor(channelID, conversationID *string) (string, bool) {
	if channelID != nil && *channelID != "" {
		return ChannelRoomPrefix + *channelID, true
	}
	if conversationID != nil && *conversationID != "" {
		return ConversationRoomPrefix + *conversationID, true
	}
	return "", false
}

// IsReply reports whether the message is a thread reply.
func (m *Message) IsReply() bool {
	return m.ParentMessageID != nil && *m.ParentMessageID != ""
}

// HasReaction reports whether userID already reacted with emoji.
func (m *Message) HasReaction(emoji, userID string) bool {
	return m.Reactions[emoji][userID]
}
