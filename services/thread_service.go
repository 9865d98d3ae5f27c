package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"ripple_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"
)

// ThreadService creates reply messages and maintains the parent's
// denormalized aggregates and the per-user thread subscriptions.
type ThreadService struct {
	Dynamo        *DynamoService
	Rooms         *RoomService
	Auth          AuthorizationChecker
	Notifications Notifier
	Pagination    *PaginationService
}

// CreateReplyInput carries a new reply request.
type CreateReplyInput struct {
	ParentRoomID    string
	ParentMessageID string
	AuthorID        string
	Content         string
	Attachments     []string
}

// ReplyEventPayload is broadcast as the content event for a new reply.
type ReplyEventPayload struct {
	RoomID          string      `json:"roomId"`
	ParentMessageID string      `json:"parentMessageId"`
	Message         interface{} `json:"message"`
}

// ReplyCountEventPayload is the counter event; it is separate from the
// content event because clients consume the two independently.
type ReplyCountEventPayload struct {
	RoomID          string `json:"roomId"`
	ParentMessageID string `json:"parentMessageId"`
	ReplyCount      int    `json:"replyCount"`
	LastReplyAt     string `json:"lastReplyAt"`
}

func subscriptionKey(parentMessageID, userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"parentMessageId": &types.AttributeValueMemberS{Value: parentMessageID},
		"userId":          &types.AttributeValueMemberS{Value: userID},
	}
}

// CreateReply inserts a reply linked to its parent, bumps the parent's
// replyCount/lastReplyAt, and upserts the author's subscription. All three
// writes share one transaction, so a crash between steps leaves no partial
// state.
func (s *ThreadService) CreateReply(ctx context.Context, input CreateReplyInput) (*models.Message, error) {
	if err := authorize(ctx, s.Auth, input.AuthorID, ActionCreateReply, input.ParentMessageID); err != nil {
		return nil, err
	}

	parentKey := messageKey(input.ParentRoomID, input.ParentMessageID)
	parentItem, err := s.Dynamo.GetItem(ctx, models.MessagesTable, parentKey)
	if err != nil {
		return nil, err
	}
	var parent models.Message
	if err := attributevalue.UnmarshalMap(parentItem, &parent); err != nil {
		return nil, fmt.Errorf("failed to parse parent message: %w", err)
	}
	if parent.Deleted {
		return nil, fmt.Errorf("parent message %s: %w", input.ParentMessageID, ErrNotFound)
	}
	if parent.IsReply() {
		return nil, fmt.Errorf("nested thread: %w", ErrInvalidRequest)
	}

	content, err := sanitizeContent(input.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sentAt := now.Format(time.RFC3339Nano)
	reply := models.Message{
		RoomID:          parent.RoomID,
		MessageID:       models.NewMessageID(now),
		ChannelID:       parent.ChannelID,
		ConversationID:  parent.ConversationID,
		SenderID:        input.AuthorID,
		Content:         content,
		Attachments:     input.Attachments,
		Reactions:       map[string]map[string]bool{},
		ParentMessageID: &parent.MessageID,
		SentAt:          sentAt,
	}

	replyItem, err := attributevalue.MarshalMap(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reply: %w", err)
	}
	subscriptionItem, err := attributevalue.MarshalMap(models.ThreadSubscription{
		ParentMessageID: parent.MessageID,
		UserID:          input.AuthorID,
		CreatedAt:       sentAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal subscription: %w", err)
	}

	err = s.Dynamo.TransactWriteItems(ctx, []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(models.MessagesTable),
				Item:                replyItem,
				ConditionExpression: aws.String("attribute_not_exists(messageId)"),
			},
		},
		{
			Update: &types.Update{
				TableName:           aws.String(models.MessagesTable),
				Key:                 parentKey,
				UpdateExpression:    aws.String("SET lastReplyAt = :ts ADD replyCount :one"),
				ConditionExpression: aws.String("attribute_exists(messageId)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":ts":  &types.AttributeValueMemberS{Value: sentAt},
					":one": &types.AttributeValueMemberN{Value: "1"},
				},
			},
		},
		{
			Put: &types.Put{
				TableName: aws.String(models.ThreadSubscriptionsTable),
				Item:      subscriptionItem,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	// The counter event must reflect stored state after the commit, not the
	// pre-transaction read: under concurrent replies the read is stale.
	replyCount := parent.ReplyCount + 1
	lastReplyAt := sentAt
	if item, err := s.Dynamo.GetItem(ctx, models.MessagesTable, parentKey); err != nil {
		log.Printf("⚠️ Failed to re-read parent %s after reply, announcing local count: %v", parent.MessageID, err)
	} else {
		var fresh models.Message
		if err := attributevalue.UnmarshalMap(item, &fresh); err != nil {
			log.Printf("⚠️ Failed to parse parent %s after reply: %v", parent.MessageID, err)
		} else {
			replyCount = fresh.ReplyCount
			lastReplyAt = fresh.LastReplyAt
		}
	}

	s.Rooms.PublishToMessageRoom(&reply, EventNewReply, ReplyEventPayload{
		RoomID:          reply.RoomID,
		ParentMessageID: parent.MessageID,
		Message:         reply,
	})
	s.Rooms.PublishToMessageRoom(&reply, EventReplyCountUpdated, ReplyCountEventPayload{
		RoomID:          reply.RoomID,
		ParentMessageID: parent.MessageID,
		ReplyCount:      replyCount,
		LastReplyAt:     lastReplyAt,
	})
	s.notifySubscribers(ctx, &parent, &reply)
	return &reply, nil
}

// notifySubscribers alerts everyone subscribed to the thread except the
// reply author. Dispatch is best-effort; failures are logged and swallowed.
func (s *ThreadService) notifySubscribers(ctx context.Context, parent, reply *models.Message) {
	if s.Notifications == nil {
		return
	}
	subscribers, err := s.GetSubscribers(ctx, parent.MessageID, reply.SenderID)
	if err != nil {
		log.Printf("⚠️ Failed to load subscribers for %s: %v", parent.MessageID, err)
		return
	}
	if len(subscribers) == 0 {
		return
	}
	s.Notifications.Notify("replyCreated", map[string]interface{}{
		"parentMessageId": parent.MessageID,
		"messageId":       reply.MessageID,
		"authorId":        reply.SenderID,
		"userIds":         subscribers,
	})
}

// DecrementReplyCount is the best-effort counterpart invoked when a reply is
// removed. The condition floors the counter at zero, so repeated or stray
// decrements can never drive it negative.
func (s *ThreadService) DecrementReplyCount(ctx context.Context, roomID, parentMessageID string) error {
	_, _, err := s.Dynamo.ConditionalUpdateItem(
		ctx,
		models.MessagesTable,
		"ADD replyCount :minusOne",
		"attribute_exists(messageId) AND replyCount > :zero",
		messageKey(roomID, parentMessageID),
		map[string]types.AttributeValue{
			":minusOne": &types.AttributeValueMemberN{Value: "-1"},
			":zero":     &types.AttributeValueMemberN{Value: "0"},
		},
		nil,
	)
	return err
}

// Subscribe upserts a (userId, parentMessageId) subscription; repeating it
// is a no-op.
func (s *ThreadService) Subscribe(ctx context.Context, parentMessageID, userID string) error {
	if parentMessageID == "" || userID == "" {
		return fmt.Errorf("parentMessageId and userId are required: %w", ErrInvalidRequest)
	}
	return s.Dynamo.PutItem(ctx, models.ThreadSubscriptionsTable, models.ThreadSubscription{
		ParentMessageID: parentMessageID,
		UserID:          userID,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Unsubscribe removes a subscription; absent pairs are a no-op.
func (s *ThreadService) Unsubscribe(ctx context.Context, parentMessageID, userID string) error {
	return s.Dynamo.DeleteItem(ctx, models.ThreadSubscriptionsTable, subscriptionKey(parentMessageID, userID))
}

// GetSubscribers returns the distinct subscribed user ids minus
// excludeUserID. The scan drains every page; subscribers past the first
// page must not lose notifications.
func (s *ThreadService) GetSubscribers(ctx context.Context, parentMessageID, excludeUserID string) ([]string, error) {
	items, err := s.Dynamo.QueryAllItems(
		ctx,
		models.ThreadSubscriptionsTable,
		"",
		"parentMessageId = :parentMessageId",
		map[string]types.AttributeValue{
			":parentMessageId": &types.AttributeValueMemberS{Value: parentMessageID},
		},
		nil,
	)
	if err != nil {
		return nil, err
	}

	var subscriptions []models.ThreadSubscription
	if err := attributevalue.UnmarshalListOfMaps(items, &subscriptions); err != nil {
		return nil, fmt.Errorf("failed to parse subscriptions: %w", err)
	}

	userIDs := lo.Uniq(lo.Map(subscriptions, func(sub models.ThreadSubscription, _ int) string {
		return sub.UserID
	}))
	return lo.Filter(userIDs, func(id string, _ int) bool {
		return id != excludeUserID
	}), nil
}

// GetReplies pages a thread oldest-first, the only forward scan in the
// system, because thread context reads top to bottom.
func (s *ThreadService) GetReplies(ctx context.Context, roomID, parentMessageID string, limit int, cursor *string) (*MessagePage, error) {
	return s.Pagination.PageThreadReplies(ctx, roomID, parentMessageID, limit, cursor)
}
