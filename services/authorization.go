package services

import (
	"context"
	"fmt"
)

// Actions checked against the authorization collaborator.
const (
	ActionAddReaction    = "reaction:add"
	ActionRemoveReaction = "reaction:remove"
	ActionCreateReply    = "thread:reply"
	ActionSendMessage    = "message:send"
	ActionDeleteMessage  = "message:delete"
)

// AuthorizationChecker is the external authorization collaborator. It is
// consulted before any store access on mutating entry points.
type AuthorizationChecker interface {
	CanPerform(ctx context.Context, userID, action, resourceRef string) (bool, error)
}

// AllowAllAuthorizer grants every action; the real checker lives outside
// this service and is injected in main.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) CanPerform(ctx context.Context, userID, action, resourceRef string) (bool, error) {
	return true, nil
}

func authorize(ctx context.Context, auth AuthorizationChecker, userID, action, resourceRef string) error {
	if auth == nil {
		return nil
	}
	allowed, err := auth.CanPerform(ctx, userID, action, resourceRef)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%s by %s on %s: %w", action, userID, resourceRef, ErrForbidden)
	}
	return nil
}
