package routes

import (
	"ripple_server/controllers"
	"ripple_server/services"

	"github.com/gorilla/mux"
)

// RegisterThreadRoutes sets up routes for thread operations under /api/threads
func RegisterThreadRoutes(r *mux.Router, threadService *services.ThreadService) {
	controller := controllers.NewThreadController(threadService)

	threadRouter := r.PathPrefix("/api/threads").Subrouter()

	threadRouter.HandleFunc("/reply", controller.HandleCreateReply).Methods("POST")
	threadRouter.HandleFunc("/replies", controller.HandleGetReplies).Methods("GET")
	threadRouter.HandleFunc("/subscribe", controller.HandleSubscribe).Methods("POST")
	threadRouter.HandleFunc("/unsubscribe", controller.HandleUnsubscribe).Methods("POST")
	threadRouter.HandleFunc("/subscribers", controller.HandleGetSubscribers).Methods("GET")
}
