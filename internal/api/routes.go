package api

import (
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// SetupRoutes configures all routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(handler.log))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Page
	r.HandleFunc("/", handler.Index).Methods("GET")
	r.HandleFunc("/field", handler.UpdateField).Methods("POST")
	r.HandleFunc("/predict", handler.Predict).Methods("POST")
	r.HandleFunc("/chart.png", handler.Chart).Methods("GET")

	// JSON API
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	api.HandleFunc("/predictions", handler.CreatePrediction).Methods("POST", "OPTIONS")
	api.HandleFunc("/predictions", handler.ListPredictions).Methods("GET", "OPTIONS")
	api.HandleFunc("/predictions/{id:[0-9]+}", handler.GetPrediction).Methods("GET", "OPTIONS")
	api.HandleFunc("/session", handler.GetSession).Methods("GET", "OPTIONS")
	api.HandleFunc("/session/input", handler.UpdateSessionInput).Methods("PATCH", "OPTIONS")
	api.HandleFunc("/session/submit", handler.SubmitSession).Methods("POST", "OPTIONS")

	return r
}
