package services

import (
	"context"
	"fmt"
	"log"

	"ripple_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ReactionService mutates the per-message reaction state. Reactions are
// stored as nested bool maps (emoji -> userId -> true), so every mutating
// step is a single conditional SET or REMOVE on one document path; the ADD
// and DELETE update actions are invalid on nested paths and are never
// issued here. Concurrent reactors on the same message never lose updates.
// The only plain read in the add path short-circuits an already-satisfied
// request; it never feeds a write.
type ReactionService struct {
	Dynamo *DynamoService
	Rooms  *RoomService
	Auth   AuthorizationChecker
}

// ReactionEventPayload is the event descriptor broadcast after a reaction
// mutation lands.
type ReactionEventPayload struct {
	RoomID    string                     `json:"roomId"`
	MessageID string                     `json:"messageId"`
	UserID    string                     `json:"userId"`
	Emoji     string                     `json:"emoji"`
	Added     bool                       `json:"added"`
	Reactions map[string]map[string]bool `json:"reactions"`
}

// removeAttempts bounds the remove retry loop; a retry only happens when a
// concurrent mutation changed the entry between the read and the guard.
const removeAttempts = 3

func reactionNames(emoji, userID string) map[string]string {
	return map[string]string{
		"#reactions": "reactions",
		"#emoji":     emoji,
		"#user":      userID,
	}
}

// AddReaction records userID's emoji reaction on a message. Idempotent: a
// repeat call changes nothing and still succeeds.
//
// Protocol:
//  1. the message must exist
//  2. conditional set of the user's flag in the existing emoji entry
//     ("entry exists AND user absent"); the condition guarantees the nested
//     path is valid before the SET runs
//  3. on condition failure the cause is ambiguous, so a read-only probe
//     decides: user already present means the request is already satisfied
//  4. otherwise a guarded insert creates the entry ("entry absent"); the
//     loser of a concurrent insert race re-attempts step 2 once, which is
//     sufficient because the winner guarantees the entry now exists
func (s *ReactionService) AddReaction(ctx context.Context, roomID, messageID, emoji, userID string) (*models.Message, error) {
	if err := authorize(ctx, s.Auth, userID, ActionAddReaction, messageID); err != nil {
		return nil, err
	}
	if emoji == "" || userID == "" {
		return nil, fmt.Errorf("emoji and userId are required: %w", ErrInvalidRequest)
	}

	key := messageKey(roomID, messageID)
	if _, err := s.Dynamo.GetItem(ctx, models.MessagesTable, key); err != nil {
		return nil, err
	}

	appendExpression := "SET #reactions.#emoji.#user = :true"
	appendCondition := "attribute_exists(#reactions.#emoji) AND attribute_not_exists(#reactions.#emoji.#user)"
	appendValues := map[string]types.AttributeValue{
		":true": &types.AttributeValueMemberBOOL{Value: true},
	}
	appendNames := reactionNames(emoji, userID)

	attrs, modified, err := s.Dynamo.ConditionalUpdateItem(ctx, models.MessagesTable, appendExpression, appendCondition, key, appendValues, appendNames)
	if err != nil {
		return nil, err
	}
	if modified {
		return s.publishReactionChange(attrs, emoji, userID, true)
	}

	// Ambiguous: either no entry for this emoji yet, or the user is already
	// in it. Probe without writing.
	message, err := s.getMessage(ctx, key)
	if err != nil {
		return nil, err
	}
	if message.HasReaction(emoji, userID) {
		return message, nil
	}

	insertExpression := "SET #reactions.#emoji = :entry"
	insertCondition := "attribute_not_exists(#reactions.#emoji)"
	insertValues := map[string]types.AttributeValue{
		":entry": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			userID: &types.AttributeValueMemberBOOL{Value: true},
		}},
	}
	insertNames := map[string]string{
		"#reactions": "reactions",
		"#emoji":     emoji,
	}

	attrs, modified, err = s.Dynamo.ConditionalUpdateItem(ctx, models.MessagesTable, insertExpression, insertCondition, key, insertValues, insertNames)
	if err != nil {
		return nil, err
	}
	if modified {
		return s.publishReactionChange(attrs, emoji, userID, true)
	}

	// Lost the insert race: a concurrent reactor created the entry first.
	// One re-attempt of the append converges.
	attrs, modified, err = s.Dynamo.ConditionalUpdateItem(ctx, models.MessagesTable, appendExpression, appendCondition, key, appendValues, appendNames)
	if err != nil {
		return nil, err
	}
	if modified {
		return s.publishReactionChange(attrs, emoji, userID, true)
	}
	return s.getMessage(ctx, key)
}

// RemoveReaction removes userID's emoji reaction. A no-op when the reaction
// is absent; never errors for a redundant call. An entry losing its last
// member is removed whole, so an empty entry never persists.
//
// Each attempt reads the entry and issues the matching guarded update: the
// sole member removes the whole entry (size = 1), a member among others
// removes only its own flag (size > 1). A failed guard means a concurrent
// mutation changed the entry size; the loop re-reads and tries again.
func (s *ReactionService) RemoveReaction(ctx context.Context, roomID, messageID, emoji, userID string) (*models.Message, error) {
	if err := authorize(ctx, s.Auth, userID, ActionRemoveReaction, messageID); err != nil {
		return nil, err
	}
	if emoji == "" || userID == "" {
		return nil, fmt.Errorf("emoji and userId are required: %w", ErrInvalidRequest)
	}

	key := messageKey(roomID, messageID)
	names := reactionNames(emoji, userID)
	values := map[string]types.AttributeValue{
		":one": &types.AttributeValueMemberN{Value: "1"},
	}

	for attempt := 0; attempt < removeAttempts; attempt++ {
		message, err := s.getMessage(ctx, key)
		if err != nil {
			return nil, err
		}
		if !message.HasReaction(emoji, userID) {
			return message, nil
		}

		attrs, modified, err := s.Dynamo.ConditionalUpdateItem(
			ctx,
			models.MessagesTable,
			"REMOVE #reactions.#emoji",
			"attribute_exists(#reactions.#emoji.#user) AND size(#reactions.#emoji) = :one",
			key,
			values,
			names,
		)
		if err != nil {
			return nil, err
		}
		if modified {
			return s.publishReactionChange(attrs, emoji, userID, false)
		}

		attrs, modified, err = s.Dynamo.ConditionalUpdateItem(
			ctx,
			models.MessagesTable,
			"REMOVE #reactions.#emoji.#user",
			"attribute_exists(#reactions.#emoji.#user) AND size(#reactions.#emoji) > :one",
			key,
			values,
			names,
		)
		if err != nil {
			return nil, err
		}
		if modified {
			return s.publishReactionChange(attrs, emoji, userID, false)
		}
	}
	return nil, fmt.Errorf("reaction %s by %s on message %s kept changing concurrently", emoji, userID, messageID)
}

func (s *ReactionService) getMessage(ctx context.Context, key map[string]types.AttributeValue) (*models.Message, error) {
	item, err := s.Dynamo.GetItem(ctx, models.MessagesTable, key)
	if err != nil {
		return nil, err
	}
	var message models.Message
	if err := attributevalue.UnmarshalMap(item, &message); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &message, nil
}

func (s *ReactionService) publishReactionChange(attrs map[string]types.AttributeValue, emoji, userID string, added bool) (*models.Message, error) {
	var message models.Message
	if err := attributevalue.UnmarshalMap(attrs, &message); err != nil {
		return nil, fmt.Errorf("failed to parse updated message: %w", err)
	}
	if message.Reactions == nil {
		message.Reactions = map[string]map[string]bool{}
	}
	log.Printf("💖 Reaction %s by %s on %s (added=%v)", emoji, userID, message.MessageID, added)
	s.Rooms.PublishToMessageRoom(&message, EventReactionUpdated, ReactionEventPayload{
		RoomID:    message.RoomID,
		MessageID: message.MessageID,
		UserID:    userID,
		Emoji:     emoji,
		Added:     added,
		Reactions: message.Reactions,
	})
	return &message, nil
}
