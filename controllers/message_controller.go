package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"ripple_server/services"

	"github.com/go-playground/validator/v10"
)

// MessageController struct
type MessageController struct {
	MessageService    *services.MessageService
	PaginationService *services.PaginationService
	validate          *validator.Validate
}

// NewMessageController initializes the message controller
func NewMessageController(messageService *services.MessageService, paginationService *services.PaginationService) *MessageController {
	return &MessageController{
		MessageService:    messageService,
		PaginationService: paginationService,
		validate:          validator.New(),
	}
}

// HandleSendMessage - Stores a new message in a channel or conversation
func (c *MessageController) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ChannelID      *string  `json:"channelId"`
		ConversationID *string  `json:"conversationId"`
		SenderID       string   `json:"senderId" validate:"required"`
		Content        string   `json:"content" validate:"required"`
		Attachments    []string `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := c.validate.Struct(request); err != nil {
		http.Error(w, `{"error": "Missing required fields: senderId, content"}`, http.StatusBadRequest)
		return
	}

	message, err := c.MessageService.SendMessage(context.TODO(), services.SendMessageInput{
		ChannelID:      request.ChannelID,
		ConversationID: request.ConversationID,
		SenderID:       request.SenderID,
		Content:        request.Content,
		Attachments:    request.Attachments,
	})
	if err != nil {
		log.Printf("❌ Failed to send message: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, message)
}

// HandleGetMessages - Pages a room's messages newest-first
func (c *MessageController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		http.Error(w, `{"error": "roomId is required"}`, http.StatusBadRequest)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = services.DefaultPageLimit
	}
	var cursor *string
	if cur := r.URL.Query().Get("cursor"); cur != "" {
		cursor = &cur
	}

	page, err := c.PaginationService.PageRoomMessages(r.Context(), roomID, limit, cursor)
	if err != nil {
		log.Printf("❌ Failed to fetch messages: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// HandleDeleteMessage - Tombstones a message
func (c *MessageController) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	var request struct {
		RoomID      string `json:"roomId" validate:"required"`
		MessageID   string `json:"messageId" validate:"required"`
		RequestedBy string `json:"requestedBy" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := c.validate.Struct(request); err != nil {
		http.Error(w, `{"error": "Missing required fields: roomId, messageId, requestedBy"}`, http.StatusBadRequest)
		return
	}

	message, err := c.MessageService.DeleteMessage(context.TODO(), request.RoomID, request.MessageID, request.RequestedBy)
	if err != nil {
		log.Printf("❌ Failed to delete message: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, message)
}
