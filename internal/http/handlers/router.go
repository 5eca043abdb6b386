package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/diagnosis/bistro-api/internal/http/middleware"
	"github.com/diagnosis/bistro-api/internal/repo/postgres"
	"github.com/diagnosis/bistro-api/pkg/metrics"
	mw "github.com/diagnosis/bistro-api/pkg/middleware"
)

// Deps is everything the router needs. Nil Gatherer disables /metrics.
type Deps struct {
	Tokens         TokenIssuer
	Guards         *middleware.Guards
	Users          postgres.UsersRepo
	Menu           postgres.MenuRepo
	Reviews        postgres.ReviewsRepo
	Carts          postgres.CartsRepo
	Payments       PaymentWorkflow
	Idempotency    mw.IdempotencyStore
	IdempotencyTTL time.Duration
	RateLimiter    *middleware.RateLimiter
	DB             mw.Pinger
	Metrics        metrics.Recorder
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bistro-api"))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.CORS(d.AllowedOrigins))
	r.Use(mw.Health(d.DB))
	r.Use(mw.Metrics(d.Metrics))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Bistro Boss is serving"))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	g := d.Guards
	payments := NewPaymentsHandler(d.Payments)

	r.With(d.RateLimiter.Middleware).Post("/jwt", NewJWTHandler(d.Tokens).issue)
	r.With(d.RateLimiter.Middleware).Post("/create-payment-intent", payments.createIntent)

	r.Mount("/users", NewUsersHandler(d.Users).Routes(g))
	r.Mount("/menu", NewMenuHandler(d.Menu).Routes(g))
	r.Mount("/carts", NewCartsHandler(d.Carts).Routes(g))
	r.Get("/reviews", NewReviewsHandler(d.Reviews).list)

	r.Route("/payments", func(r chi.Router) {
		r.With(mw.IdempotencyMiddleware(d.Idempotency, d.IdempotencyTTL)).Post("/", payments.reconcile)
		r.With(g.SelfOnly("email")).Get("/{email}", payments.listByEmail)
	})

	return r
}
