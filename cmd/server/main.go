package main

import (
	"log"
	"net/http"
	"os"

	"github.com/adaptive-assessment/backend/internal/assessment"
	"github.com/adaptive-assessment/backend/internal/auth"
	"github.com/adaptive-assessment/backend/internal/database"
	"github.com/adaptive-assessment/backend/internal/items"
	"github.com/adaptive-assessment/backend/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize handlers
	authHandler := auth.NewHandler(db)

	itemStore := items.NewStore(db)
	itemService := items.NewService(itemStore)
	itemHandler := items.NewHandler(itemService)

	assessmentStore := assessment.NewStore(db)
	assessmentService := assessment.NewService(assessmentStore, itemService)
	assessmentHandler := assessment.NewHandler(assessmentService)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/items", itemHandler.CreateItem).Methods("POST")
	protected.HandleFunc("/items", itemHandler.ListItems).Methods("GET")
	protected.HandleFunc("/items/recalibrate", itemHandler.Recalibrate).Methods("POST")
	protected.HandleFunc("/items/{id}", itemHandler.GetItem).Methods("GET")

	protected.HandleFunc("/assessments", assessmentHandler.StartAssessment).Methods("POST")
	protected.HandleFunc("/assessments", assessmentHandler.ListAssessments).Methods("GET")
	protected.HandleFunc("/assessments/{id}", assessmentHandler.GetAssessment).Methods("GET")
	protected.HandleFunc("/assessments/{id}/answer", assessmentHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/assessments/{id}/abandon", assessmentHandler.AbandonAssessment).Methods("POST")
	protected.HandleFunc("/assessments/{id}/results", assessmentHandler.GetResults).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
