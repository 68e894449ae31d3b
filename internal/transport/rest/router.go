package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/skyminlab/running-game/internal/auth"
	"github.com/skyminlab/running-game/internal/phase"
	"github.com/skyminlab/running-game/internal/service"
	"github.com/skyminlab/running-game/internal/transport/rest/handler"
	"github.com/skyminlab/running-game/internal/transport/rest/middleware"
	"github.com/skyminlab/running-game/internal/transport/ws"
)

// Container holds all dependencies for the router.
type Container struct {
	AuthService    *auth.Service
	SessionService *service.SessionService
	PhaseCtrl      *phase.Controller
	WSHub          *ws.Hub
	WSHandler      *ws.Handler
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.SessionService)
	sessionHandler := handler.NewSessionHandler(c.SessionService, c.PhaseCtrl)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{code}/join", sessionHandler.Join).Methods("POST", "OPTIONS")

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/sessions/{code}/coordinator", c.WSHandler.CoordinatorWS).Methods("GET")
	v1.HandleFunc("/ws/sessions/{code}/participant", c.WSHandler.ParticipantWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Coordinator routes
	coordRoutes := v1.NewRoute().Subrouter()
	coordRoutes.Use(authMW.RequireCoordinator)

	coordRoutes.HandleFunc("/sessions/{code}", sessionHandler.Delete).Methods("DELETE", "OPTIONS")
	coordRoutes.HandleFunc("/sessions/{code}/game/start", sessionHandler.StartGame).Methods("POST", "OPTIONS")
	coordRoutes.HandleFunc("/sessions/{code}/game/reset", sessionHandler.ResetGame).Methods("POST", "OPTIONS")
	coordRoutes.HandleFunc("/sessions/{code}/students/reset", sessionHandler.ResetStudents).Methods("POST", "OPTIONS")
	coordRoutes.HandleFunc("/sessions/{code}/broadcast", sessionHandler.Broadcast).Methods("POST", "OPTIONS")

	// Participant routes
	participantRoutes := v1.NewRoute().Subrouter()
	participantRoutes.Use(authMW.RequireParticipant)

	participantRoutes.HandleFunc("/sessions/{code}/leave", sessionHandler.Leave).Methods("POST", "OPTIONS")
	participantRoutes.HandleFunc("/sessions/{code}/results", sessionHandler.SubmitResult).Methods("POST", "OPTIONS")

	// Routes both roles read
	sharedRoutes := v1.NewRoute().Subrouter()
	sharedRoutes.Use(authMW.RequireAny)

	sharedRoutes.HandleFunc("/sessions/{code}", sessionHandler.Get).Methods("GET", "OPTIONS")
	sharedRoutes.HandleFunc("/sessions/{code}/rankings", sessionHandler.Rankings).Methods("GET", "OPTIONS")

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)
}
