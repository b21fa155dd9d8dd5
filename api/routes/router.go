package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/contactbook-backend/api/controllers"
	contactcontrollers "github.com/angelmondragon/contactbook-backend/api/controllers/contacts"
	"github.com/angelmondragon/contactbook-backend/api/middleware"
	"github.com/angelmondragon/contactbook-backend/internal/auth"
	"github.com/angelmondragon/contactbook-backend/internal/contacts"
	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/metrics"
	"github.com/angelmondragon/contactbook-backend/pkg/redis"
)

// NewRouter assembles the HTTP surface. redisClient may be nil, in which case
// auth rate limiting is disabled and readiness skips redis. metricsHandler
// may be nil to leave /metrics unmounted.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	authService auth.Service,
	contactService contacts.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var limiter middleware.RateLimitStore
	readiness := map[string]controllers.Pinger{"database": dbP}
	if redisClient != nil {
		limiter = redisClient
		readiness["redis"] = redisClient
	}

	limits := cfg.AuthRateLimit
	loginPolicy := middleware.NewAuthRateLimitPolicy("login", limits.LoginWindow, limits.LoginIPLimit, limits.LoginEmailLimit).ResetOnSuccess()
	registerPolicy := middleware.NewAuthRateLimitPolicy("register", limits.RegisterWindow, limits.RegisterIPLimit, limits.RegisterEmailLimit)
	forgotPolicy := middleware.NewAuthRateLimitPolicy("forgot", limits.ForgotWindow, limits.ForgotIPLimit, limits.ForgotEmailLimit)
	resetPolicy := middleware.NewAuthRateLimitPolicy("reset", limits.ForgotWindow, limits.ForgotIPLimit, limits.ForgotEmailLimit).ResetOnSuccess()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg)).Post("/register", controllers.AuthRegister(authService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Get("/verify-email", controllers.AuthVerifyEmail(authService, logg))
		r.With(middleware.AuthRateLimit(forgotPolicy, limiter, logg)).Post("/forgot-password", controllers.AuthForgotPassword(authService, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, limiter, logg)).Post("/reset-password", controllers.AuthResetPassword(authService, logg))
	})

	r.Route("/api/v1/contacts", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/", contactcontrollers.Create(contactService, logg))
		r.Get("/", contactcontrollers.List(contactService, logg))
		r.Post("/batch", contactcontrollers.Batch(contactService, logg))
		r.Post("/import", contactcontrollers.Import(contactService, cfg.Import.MaxUploadBytes(), logg))
		r.Get("/export", contactcontrollers.Export(contactService, logg))
		r.Patch("/{contactId}", contactcontrollers.Update(contactService, logg))
		r.Delete("/{contactId}", contactcontrollers.Delete(contactService, logg))
	})

	return r
}
