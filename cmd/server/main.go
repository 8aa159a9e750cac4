package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/streetrush/backend/internal/auth"
	"github.com/streetrush/backend/internal/cache"
	"github.com/streetrush/backend/internal/database"
	"github.com/streetrush/backend/internal/messaging"
	"github.com/streetrush/backend/internal/middleware"
	"github.com/streetrush/backend/internal/questions"
	"github.com/streetrush/backend/internal/rating"
	"github.com/streetrush/backend/internal/run"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Optional infrastructure. The engine runs without either; the
	// leaderboard just skips its cache and run.completed events are dropped.
	var redisClient *cache.Client
	if os.Getenv("REDIS_ENABLED") == "true" {
		redisClient, err = cache.Connect()
		if err != nil {
			log.Printf("Redis unavailable, leaderboard cache disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var publisher run.EventPublisher
	if os.Getenv("RABBITMQ_ENABLED") == "true" {
		pub, err := messaging.Connect()
		if err != nil {
			log.Printf("RabbitMQ unavailable, run events disabled: %v", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	// Stores and services
	questionStore := questions.NewStore(db)
	sampler := questions.NewSampler(questionStore)
	ratingStore := rating.NewStore(db)
	runStore := run.NewStore(db)

	runService := run.NewService(runStore, questionStore, sampler, ratingStore, publisher, run.DefaultEconomyConfig())

	// Handlers
	authHandler := auth.NewHandler(db)
	questionHandler := questions.NewHandler(questionStore)
	ratingHandler := rating.NewHandler(ratingStore, redisClient)
	runHandler := run.NewHandler(runService)

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

	protected.HandleFunc("/runs", runHandler.StartRun).Methods("POST")
	protected.HandleFunc("/runs", runHandler.ListRuns).Methods("GET")
	protected.HandleFunc("/runs/{id}", runHandler.GetRun).Methods("GET")
	protected.HandleFunc("/runs/{id}/next-question", runHandler.NextQuestion).Methods("POST")
	protected.HandleFunc("/runs/{id}/submit", runHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/runs/{id}/finalize", runHandler.Finalize).Methods("POST")

	protected.HandleFunc("/questions/{id:[0-9]+}", questionHandler.GetQuestion).Methods("GET")
	protected.HandleFunc("/admin/questions/import", questionHandler.ImportQuestions).Methods("POST")

	protected.HandleFunc("/rating", ratingHandler.GetRating).Methods("GET")
	protected.HandleFunc("/leaderboard", ratingHandler.GetLeaderboard).Methods("GET")

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
