package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pradeep-opticals/opticals-api/internal/appointments"
	"github.com/pradeep-opticals/opticals-api/internal/auth"
	"github.com/pradeep-opticals/opticals-api/internal/observability"
	"github.com/pradeep-opticals/opticals-api/internal/orders"
	"github.com/pradeep-opticals/opticals-api/internal/products"
	"github.com/pradeep-opticals/opticals-api/internal/quotations"
	"github.com/pradeep-opticals/opticals-api/internal/uploads"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	AuthHandler         *auth.Handler
	AuthMiddleware      *auth.Middleware
	QuotationsHandler   *quotations.Handler
	ProductsHandler     *products.Handler
	OrdersHandler       *orders.Handler
	AppointmentsHandler *appointments.Handler
	UploadsHandler      *uploads.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with the store's defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		params.AuthHandler.MountUserRoutes(r, params.AuthMiddleware)
		quotations.MountRoutes(r, params.QuotationsHandler, params.AuthMiddleware)
		params.ProductsHandler.MountRoutes(r, params.AuthMiddleware)
		params.OrdersHandler.MountRoutes(r, params.AuthMiddleware)
		params.AppointmentsHandler.MountRoutes(r, params.AuthMiddleware)
	})

	params.UploadsHandler.MountRoutes(r, params.AuthMiddleware)

	return r
}
