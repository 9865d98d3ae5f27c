package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"ripple_server/services"

	"github.com/go-playground/validator/v10"
)

// ReactionController struct
type ReactionController struct {
	ReactionService *services.ReactionService
	validate        *validator.Validate
}

// NewReactionController initializes the reaction controller
func NewReactionController(service *services.ReactionService) *ReactionController {
	return &ReactionController{ReactionService: service, validate: validator.New()}
}

type reactionRequest struct {
	RoomID    string `json:"roomId" validate:"required"`
	MessageID string `json:"messageId" validate:"required"`
	Emoji     string `json:"emoji" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
}

// HandleAddReaction - Adds a user's emoji reaction to a message
func (c *ReactionController) HandleAddReaction(w http.ResponseWriter, r *http.Request) {
	var request reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := c.validate.Struct(request); err != nil {
		http.Error(w, `{"error": "Missing required fields: roomId, messageId, emoji, userId"}`, http.StatusBadRequest)
		return
	}

	log.Printf("💖 Adding reaction %s by %s to message %s", request.Emoji, request.UserID, request.MessageID)

	// Mutations run detached from the request context: an abandoned request
	// must still land.
	message, err := c.ReactionService.AddReaction(context.TODO(), request.RoomID, request.MessageID, request.Emoji, request.UserID)
	if err != nil {
		log.Printf("❌ Failed to add reaction: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, message)
}

// HandleRemoveReaction - Removes a user's emoji reaction from a message
func (c *ReactionController) HandleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	var request reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := c.validate.Struct(request); err != nil {
		http.Error(w, `{"error": "Missing required fields: roomId, messageId, emoji, userId"}`, http.StatusBadRequest)
		return
	}

	log.Printf("💔 Removing reaction %s by %s from message %s", request.Emoji, request.UserID, request.MessageID)

	message, err := c.ReactionService.RemoveReaction(context.TODO(), request.RoomID, request.MessageID, request.Emoji, request.UserID)
	if err != nil {
		log.Printf("❌ Failed to remove reaction: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, message)
}
