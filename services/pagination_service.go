package services

import (
	"context"
	"fmt"

	"ripple_server/models"
	"ripple_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Page limits applied to all message listings.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// MessagePage is one page of a cursor scan. NextCursor is present iff the
// page came back exactly full: a full page signals more may exist, a short
// page signals exhaustion.
type MessagePage struct {
	Messages   []models.Message `json:"messages"`
	NextCursor *string          `json:"nextCursor,omitempty"`
}

// PaginationService produces stable, gap-free, duplicate-free pages of
// messages. The cursor is the id of the last returned item; because message
// ids order by creation instant with a unique tie-break, resuming past the
// cursor can neither re-return nor skip an item that existed at scan start
// (absent deletions). Newer messages land at the head of the ordering, which
// a backward scan only ever moves away from.
type PaginationService struct {
	Dynamo *DynamoService
}

func clampLimit(limit int) int32 {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return int32(limit)
}

// PageRoomMessages pages a channel or conversation newest-first.
func (s *PaginationService) PageRoomMessages(ctx context.Context, roomID string, limit int, cursor *string) (*MessagePage, error) {
	pageLimit := clampLimit(limit)

	var startKey map[string]types.AttributeValue
	if cursor != nil && *cursor != "" {
		startKey = messageKey(roomID, *cursor)
	}

	items, err := s.Dynamo.QueryPage(
		ctx,
		models.MessagesTable,
		"",
		"roomId = :roomId",
		map[string]types.AttributeValue{
			":roomId": &types.AttributeValueMemberS{Value: roomID},
		},
		nil,
		pageLimit,
		false,
		startKey,
	)
	if err != nil {
		return nil, err
	}
	return buildPage(items, pageLimit)
}

// PageThreadReplies pages a thread's replies oldest-first via the parent
// index. Replies always carry their parent's room, so the resume key can be
// rebuilt from the cursor alone.
func (s *PaginationService) PageThreadReplies(ctx context.Context, roomID, parentMessageID string, limit int, cursor *string) (*MessagePage, error) {
	pageLimit := clampLimit(limit)

	var startKey map[string]types.AttributeValue
	if cursor != nil && *cursor != "" {
		startKey = map[string]types.AttributeValue{
			"parentMessageId": &types.AttributeValueMemberS{Value: parentMessageID},
			"messageId":       &types.AttributeValueMemberS{Value: *cursor},
			"roomId":          &types.AttributeValueMemberS{Value: roomID},
		}
	}

	items, err := s.Dynamo.QueryPage(
		ctx,
		models.MessagesTable,
		models.ParentMessageIndex,
		"parentMessageId = :parentMessageId",
		map[string]types.AttributeValue{
			":parentMessageId": &types.AttributeValueMemberS{Value: parentMessageID},
		},
		nil,
		pageLimit,
		true,
		startKey,
	)
	if err != nil {
		return nil, err
	}
	return buildPage(items, pageLimit)
}

func buildPage(items []map[string]types.AttributeValue, limit int32) (*MessagePage, error) {
	var messages []models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}

	page := &MessagePage{Messages: messages}
	if len(items) == int(limit) && len(items) > 0 {
		last := utils.ExtractString(items[len(items)-1], "messageId")
		if last != "" {
			page.NextCursor = &last
		}
	}
	return page, nil
}
