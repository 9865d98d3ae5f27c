package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"ripple_server/config"
	"ripple_server/routes"
	"ripple_server/services"
	"ripple_server/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient(cfg.AWSRegion)
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	// Socket.IO server owns the per-room connection registry; fanout only
	// publishes through it
	socketServer := socket.NewSocketServer()
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.Fatalf("Socket server error: %v", err)
		}
	}()
	defer socketServer.Close()

	roomService := &services.RoomService{Broadcaster: &socket.RoomBroadcaster{Server: socketServer}}
	authorizer := services.AllowAllAuthorizer{}
	notifications := &services.NotificationService{}
	attachmentService := &services.AttachmentService{
		Client: services.InitializeS3Client(cfg.AWSRegion),
		Bucket: cfg.AttachmentsBucket,
	}

	// Initialize Services
	paginationService := &services.PaginationService{Dynamo: dynamoService}
	reactionService := &services.ReactionService{Dynamo: dynamoService, Rooms: roomService, Auth: authorizer}
	threadService := &services.ThreadService{
		Dynamo:        dynamoService,
		Rooms:         roomService,
		Auth:          authorizer,
		Notifications: notifications,
		Pagination:    paginationService,
	}
	messageService := &services.MessageService{
		Dynamo:      dynamoService,
		Rooms:       roomService,
		Auth:        authorizer,
		Attachments: attachmentService,
		Threads:     threadService,
	}

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to Ripple")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	// Register routes
	routes.RegisterMessageRoutes(r, messageService, paginationService)
	routes.RegisterReactionRoutes(r, reactionService)
	routes.RegisterThreadRoutes(r, threadService)

	// Socket.IO endpoint
	r.PathPrefix("/socket.io/").Handler(socketServer)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, corsHandler))
}
