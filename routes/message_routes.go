package routes

import (
	"ripple_server/controllers"
	"ripple_server/services"

	"github.com/gorilla/mux"
)

// RegisterMessageRoutes sets up routes for message operations under /api/messages
func RegisterMessageRoutes(r *mux.Router, messageService *services.MessageService, paginationService *services.PaginationService) {
	controller := controllers.NewMessageController(messageService, paginationService)

	messageRouter := r.PathPrefix("/api/messages").Subrouter()

	messageRouter.HandleFunc("", controller.HandleSendMessage).Methods("POST")
	messageRouter.HandleFunc("", controller.HandleGetMessages).Methods("GET")
	messageRouter.HandleFunc("/delete", controller.HandleDeleteMessage).Methods("POST")
}
