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

// ThreadController struct
type ThreadController struct {
	ThreadService *services.ThreadService
	validate      *validator.Validate
}

// NewThreadController initializes the thread controller
func NewThreadController(service *services.ThreadService) *ThreadController {
	return &ThreadController{ThreadService: service, validate: validator.New()}
}

// HandleCreateReply - Creates a reply under a parent message
func (c *ThreadController) HandleCreateReply(w http.ResponseWriter, r *http.Request) {
	var request struct {
		RoomID          string   `json:"roomId" validate:"required"`
		ParentMessageID string   `json:"parentMessageId" validate:"required"`
		AuthorID        string   `json:"authorId" validate:"required"`
		Content         string   `json:"content" validate:"required"`
		Attachments     []string `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := c.validate.Struct(request); err != nil {
		http.Error(w, `{"error": "Missing required fields: roomId, parentMessageId, authorId, content"}`, http.StatusBadRequest)
		return
	}

	log.Printf("💬 Creating reply to %s by %s", request.ParentMessageID, request.AuthorID)

	reply, err := c.ThreadService.CreateReply(context.TODO(), services.CreateReplyInput{
		ParentRoomID:    request.RoomID,
		ParentMessageID: request.ParentMessageID,
		AuthorID:        request.AuthorID,
		Content:         request.Content,
		Attachments:     request.Attachments,
	})
	if err != nil {
		log.Printf("❌ Failed to create reply: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, reply)
}

// HandleGetReplies - Pages a thread's replies oldest-first
func (c *ThreadController) HandleGetReplies(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	parentMessageID := r.URL.Query().Get("parentMessageId")
	if roomID == "" || parentMessageID == "" {
		http.Error(w, `{"error": "roomId and parentMessageId are required"}`, http.StatusBadRequest)
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

	page, err := c.ThreadService.GetReplies(r.Context(), roomID, parentMessageID, limit, cursor)
	if err != nil {
		log.Printf("❌ Failed to fetch replies: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// HandleSubscribe - Subscribes a user to a thread
func (c *ThreadController) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ParentMessageID string `json:"parentMessageId" validate:"required"`
		UserID          string `json:"userId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := c.validate.Struct(request); err != nil {
		http.Error(w, `{"error": "Missing required fields: parentMessageId, userId"}`, http.StatusBadRequest)
		return
	}

	if err := c.ThreadService.Subscribe(context.TODO(), request.ParentMessageID, request.UserID); err != nil {
		log.Printf("❌ Failed to subscribe: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleUnsubscribe - Unsubscribes a user from a thread
func (c *ThreadController) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ParentMessageID string `json:"parentMessageId" validate:"required"`
		UserID          string `json:"userId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := c.validate.Struct(request); err != nil {
		http.Error(w, `{"error": "Missing required fields: parentMessageId, userId"}`, http.StatusBadRequest)
		return
	}

	if err := c.ThreadService.Unsubscribe(context.TODO(), request.ParentMessageID, request.UserID); err != nil {
		log.Printf("❌ Failed to unsubscribe: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleGetSubscribers - Lists a thread's subscribers, optionally excluding one user
func (c *ThreadController) HandleGetSubscribers(w http.ResponseWriter, r *http.Request) {
	parentMessageID := r.URL.Query().Get("parentMessageId")
	if parentMessageID == "" {
		http.Error(w, `{"error": "parentMessageId is required"}`, http.StatusBadRequest)
		return
	}
	excludeUserID := r.URL.Query().Get("excludeUserId")

	subscribers, err := c.ThreadService.GetSubscribers(r.Context(), parentMessageID, excludeUserID)
	if err != nil {
		log.Printf("❌ Failed to fetch subscribers: %v", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"userIds": subscribers})
}
