package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-recovery-api/internal/application/recovery"
	"github.com/go-recovery-api/internal/config"
	"github.com/go-recovery-api/internal/transport/http/handler"
	appmiddleware "github.com/go-recovery-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to the public recovery endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10, cfg.TrustProxyHeaders)

	opts := recovery.Options{
		CodeLength:  cfg.CodeLength,
		TTL:         cfg.PasscodeTTL,
		MaxAttempts: cfg.MaxAttempts,
	}
	issuer := recovery.NewIssuer(recovery.IssuerDeps{
		Store:      deps.PasscodeRepo,
		Identities: deps.AccountRepo,
		Limiter:    deps.IssueLimiter,
		Notifier:   deps.Notifier,
		Options:    opts,
	})
	verifier := recovery.NewVerifier(recovery.VerifierDeps{
		Store:       deps.PasscodeRepo,
		MaxAttempts: cfg.MaxAttempts,
	})
	coordinator := recovery.NewCoordinator(recovery.CoordinatorDeps{
		Store:      deps.PasscodeRepo,
		Identities: deps.AccountRepo,
	})

	healthH := handler.NewHealthHandler()
	recoveryH := handler.NewRecoveryHandler(issuer, verifier, coordinator)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/recovery/{action}", recoveryH.Action)
	})

	return r
}
