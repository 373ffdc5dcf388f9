package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/clientportal/internal/auth"
	"github.com/garnizeh/clientportal/internal/config"
	"github.com/garnizeh/clientportal/internal/notify"
	"github.com/garnizeh/clientportal/internal/portal"
	"github.com/garnizeh/clientportal/internal/validate"
	"github.com/garnizeh/clientportal/pkg/repository"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Users     repository.UserRepo
	Portal    *portal.Service
	Issuer    *auth.Issuer
	Mailer    notify.Mailer
	Validator *validate.Validator
}

// SetupRoutes builds the HTTP handler. CORS wraps the router so preflight
// requests are answered before route matching.
func SetupRoutes(cfg *config.Config, version, buildTime string, d Deps) http.Handler {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(d.Users, d.Portal, d.Issuer, d.Mailer, d.Validator, TokenDurations{
		Access:     cfg.TokenDuration,
		RememberMe: cfg.RememberMeDuration,
		Reset:      cfg.ResetTokenDuration,
	})
	h := NewPortalHandler(d.Portal, d.Validator, cfg.MaxUploadBytes)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/api/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/reset-password", authHandler.RequestReset).Methods("POST")
	r.HandleFunc("/api/auth/reset-password/confirm", authHandler.ConfirmReset).Methods("POST")

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(AuthMiddleware(d.Issuer))

	protected.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST")
	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")

	protected.HandleFunc("/user/profile", withActor(h.UserProfile)).Methods("GET")
	protected.HandleFunc("/company/profile", withActor(h.CompanyProfile)).Methods("GET")
	protected.HandleFunc("/company/profile", withActor(h.UpdateCompanyProfile)).Methods("PATCH", "PUT")
	protected.HandleFunc("/dashboard/stats", withActor(h.DashboardStats)).Methods("GET")

	protected.HandleFunc("/job-orders", withActor(h.JobOrders)).Methods("GET")
	protected.HandleFunc("/job-orders/{id}", withActor(h.JobOrder)).Methods("GET")
	protected.HandleFunc("/job-orders/{id}/candidates", withActor(h.JobOrderCandidates)).Methods("GET")
	protected.HandleFunc("/job-orders/{jobId}/candidates/{id}/approve", withActor(h.Approve)).Methods("POST")
	protected.HandleFunc("/job-orders/{jobId}/candidates/{id}/reject", withActor(h.Reject)).Methods("POST")

	protected.HandleFunc("/candidates/{id}", withActor(h.Candidate)).Methods("GET")
	protected.HandleFunc("/candidates/{id}/actions", withActor(h.CandidateAction)).Methods("POST")
	protected.HandleFunc("/candidates/{id}/scorecard", withActor(h.Scorecard)).Methods("GET")
	protected.HandleFunc("/candidates/{id}/scorecard", withActor(h.SaveScorecard)).Methods("POST")
	protected.HandleFunc("/candidates/{id}/pipeline", withActor(h.CandidatePipeline)).Methods("GET")
	protected.HandleFunc("/post-selection/pipeline", withActor(h.PostSelectionPipeline)).Methods("GET")

	protected.HandleFunc("/documents", withActor(h.Documents)).Methods("GET")
	protected.HandleFunc("/documents/upload", withActor(h.UploadDocuments)).Methods("POST")
	protected.HandleFunc("/provisions", withActor(h.Provisions)).Methods("GET")
	protected.HandleFunc("/provisions/upload", withActor(h.UploadProvisions)).Methods("POST")
	protected.HandleFunc("/provisions/questions", withActor(h.SubmitQuestionnaire)).Methods("POST")

	protected.HandleFunc("/support/tickets", withActor(h.SubmitTicket)).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})

	return CORSMiddleware(cfg.AllowedOrigins())(r)
}
