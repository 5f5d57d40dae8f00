package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

// NewHandler builds the HTTP surface. authHandler, stream and limiter are
// optional.
func NewHandler(ballotHandler *BallotHandler, userHandler *UserHandler, authHandler *AuthHandler, authService ports.AuthService, stream http.Handler, limiter *RateLimiter, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	requireIdentity := RequireIdentity(authService)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.With(requireIdentity).Get("/me", userHandler.GetMe)

		r.Route("/ballot", func(r chi.Router) {
			r.Get("/", ballotHandler.State)
			r.Get("/winner", ballotHandler.Winner)
			r.Get("/events", ballotHandler.Events)
			r.Get("/sessions/{session}/proposals", ballotHandler.SessionProposals)

			r.Group(func(r chi.Router) {
				r.Use(requireIdentity)

				r.Route("/voters", func(r chi.Router) {
					r.Post("/", ballotHandler.RegisterVoter)
					r.Get("/", ballotHandler.ListVoters)
					r.Get("/{identity}", ballotHandler.GetVoter)
				})

				r.Route("/proposals", func(r chi.Router) {
					r.Post("/", ballotHandler.RegisterProposal)
					r.Get("/", ballotHandler.ListProposals)
					r.Get("/{id}", ballotHandler.GetProposal)
				})

				r.Post("/votes", ballotHandler.CastVote)

				r.Post("/phase/next", ballotHandler.NextPhase)
				r.Post("/phase/{transition}", ballotHandler.AdvancePhase)
				r.Post("/tally", ballotHandler.Tally)
				r.Post("/reset", ballotHandler.Reset)
			})
		})
	})

	if authHandler != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/google/callback", authHandler.GoogleCallback)
			r.Post("/logout", authHandler.Logout)
		})
	}

	if stream != nil {
		r.Handle("/ws/events", stream)
	}

	return r
}
