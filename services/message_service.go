package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ripple_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MaxContentLength caps message and reply bodies.
const MaxContentLength = 4000

// MessageService stores messages and handles the tombstone flow.
type MessageService struct {
	Dynamo      *DynamoService
	Rooms       *RoomService
	Auth        AuthorizationChecker
	Attachments AttachmentMarker
	Threads     *ThreadService
}

// SendMessageInput carries a new message request. Exactly one of ChannelID
// and ConversationID must be set.
type SendMessageInput struct {
	ChannelID      *string
	ConversationID *string
	SenderID       string
	Content        string
	Attachments    []string
}

func messageKey(roomID, messageID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"roomId":    &types.AttributeValueMemberS{Value: roomID},
		"messageId": &types.AttributeValueMemberS{Value: messageID},
	}
}

func (s *MessageService) loadMessage(ctx context.Context, roomID, messageID string) (*models.Message, error) {
	item, err := s.Dynamo.GetItem(ctx, models.MessagesTable, messageKey(roomID, messageID))
	if err != nil {
		return nil, err
	}
	var message models.Message
	if err := attributevalue.UnmarshalMap(item, &message); err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", messageID, err)
	}
	return &message, nil
}

// sanitizeContent reduces caller-supplied content to the allow-listed shape.
func sanitizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("content is required: %w", ErrInvalidRequest)
	}
	if len(content) > MaxContentLength {
		return "", fmt.Errorf("content exceeds %d characters: %w", MaxContentLength, ErrInvalidRequest)
	}
	return content, nil
}

// SendMessage stores a new message and pushes one newMessage event to its room.
func (s *MessageService) SendMessage(ctx context.Context, input SendMessageInput) (*models.Message, error) {
	roomID, ok := models.RoomKeyFor(input.ChannelID, input.ConversationID)
	if !ok {
		return nil, fmt.Errorf("exactly one of channelId/conversationId is required: %w", ErrInvalidRequest)
	}
	if input.ChannelID != nil && *input.ChannelID != "" && input.ConversationID != nil && *input.ConversationID != "" {
		return nil, fmt.Errorf("channelId and conversationId are mutually exclusive: %w", ErrInvalidRequest)
	}
	if err := authorize(ctx, s.Auth, input.SenderID, ActionSendMessage, roomID); err != nil {
		return nil, err
	}

	content, err := sanitizeContent(input.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	message := models.Message{
		RoomID:         roomID,
		MessageID:      models.NewMessageID(now),
		ChannelID:      input.ChannelID,
		ConversationID: input.ConversationID,
		SenderID:       input.SenderID,
		Content:        content,
		Attachments:    input.Attachments,
		Reactions:      map[string]map[string]bool{},
		SentAt:         now.Format(time.RFC3339Nano),
	}

	if err := s.Dynamo.PutItem(ctx, models.MessagesTable, message); err != nil {
		log.Printf("❌ Failed to store message: %v", err)
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	s.Rooms.PublishToMessageRoom(&message, EventNewMessage, message)
	return &message, nil
}

// DeleteMessage tombstones a message. Attachment cleanup and the parent
// reply-count decrement are best-effort: their failures are logged, never
// surfaced, and never undo the tombstone.
func (s *MessageService) DeleteMessage(ctx context.Context, roomID, messageID, requestedBy string) (*models.Message, error) {
	if err := authorize(ctx, s.Auth, requestedBy, ActionDeleteMessage, messageID); err != nil {
		return nil, err
	}

	message, err := s.loadMessage(ctx, roomID, messageID)
	if err != nil {
		return nil, err
	}
	if message.Deleted {
		return message, nil
	}

	attrs, modified, err := s.Dynamo.ConditionalUpdateItem(
		ctx,
		models.MessagesTable,
		"SET deleted = :true",
		"attribute_exists(messageId)",
		messageKey(roomID, messageID),
		map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if !modified {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}

	var deleted models.Message
	if err := attributevalue.UnmarshalMap(attrs, &deleted); err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", messageID, err)
	}

	for _, fileID := range deleted.Attachments {
		if s.Attachments == nil {
			break
		}
		if err := s.Attachments.MarkForDeletion(ctx, fileID); err != nil {
			log.Printf("⚠️ Failed to mark attachment %s for deletion: %v", fileID, err)
		}
	}

	if deleted.IsReply() && s.Threads != nil {
		if err := s.Threads.DecrementReplyCount(ctx, roomID, *deleted.ParentMessageID); err != nil {
			log.Printf("⚠️ Failed to decrement reply count for %s: %v", *deleted.ParentMessageID, err)
		}
	}

	s.Rooms.PublishToMessageRoom(&deleted, EventMessageDeleted, map[string]string{
		"roomId":    deleted.RoomID,
		"messageId": deleted.MessageID,
	})
	return &deleted, nil
}
