package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"toptours-server/internal/http/handlers"
	"toptours-server/internal/middleware"
)

// RouterOptions carries the cross-cutting configuration the route tree needs.
type RouterOptions struct {
	JWTSecret       string
	AllowedOrigins  []string
	DefaultLocale   string
	RateLimitPerMin int
	CountryLookup   middleware.CountryLookup
	Logger          func(stdhttp.Handler) stdhttp.Handler
}

func NewRouter(app *handlers.App, opts RouterOptions) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
	)
	if opts.Logger != nil {
		r.Use(opts.Logger)
	}
	r.Use(
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	// Public leaderboard surface
	r.Route("/v1/promotions", func(r chi.Router) {
		r.Get("/leaderboard", app.Leaderboard)
		r.Get("/trending", app.Trending)
		r.Get("/items/{id}/score", app.ItemScore)

		// Authenticated promotion actions
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret))
			r.Post("/spend", app.PromotionsSpend)
			r.Get("/account", app.PromotionsAccount)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))
		r.Get("/v1/me", app.Me)
	})

	// Stripe calls this directly; signature verification replaces auth.
	r.Post("/v1/billing/webhook", app.BillingWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret), middleware.RequireRole("admin"))
		r.Get("/v1/stats/summary", app.StatsSummary)
		r.Get("/v1/stats/daily", app.StatsDaily)
		r.Get("/v1/admin/ledger/export", app.LedgerExport)
	})

	return r
}
