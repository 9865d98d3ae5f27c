package routes

import (
	"ripple_server/controllers"
	"ripple_server/services"

	"github.com/gorilla/mux"
)

// RegisterReactionRoutes sets up routes for reaction operations under /api/reactions
func RegisterReactionRoutes(r *mux.Router, reactionService *services.ReactionService) {
	controller := controllers.NewReactionController(reactionService)

	reactionRouter := r.PathPrefix("/api/reactions").Subrouter()

	reactionRouter.HandleFunc("/add", controller.HandleAddReaction).Methods("POST")
	reactionRouter.HandleFunc("/remove", controller.HandleRemoveReaction).Methods("POST")
}
