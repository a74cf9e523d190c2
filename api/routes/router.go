package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okabe-lab/assetdesk-backend/api/controllers"
	"github.com/okabe-lab/assetdesk-backend/api/middleware"
	authsvc "github.com/okabe-lab/assetdesk-backend/internal/auth"
	dashsvc "github.com/okabe-lab/assetdesk-backend/internal/dashboard"
	importsvc "github.com/okabe-lab/assetdesk-backend/internal/imports"
	itemsvc "github.com/okabe-lab/assetdesk-backend/internal/items"
	loansvc "github.com/okabe-lab/assetdesk-backend/internal/loans"
	locationsvc "github.com/okabe-lab/assetdesk-backend/internal/locations"
	"github.com/okabe-lab/assetdesk-backend/pkg/auth/session"
	"github.com/okabe-lab/assetdesk-backend/pkg/config"
	"github.com/okabe-lab/assetdesk-backend/pkg/logger"
	pkgredis "github.com/okabe-lab/assetdesk-backend/pkg/redis"
)

// Services groups the domain services the router exposes.
type Services struct {
	Auth      authsvc.Service
	Register  authsvc.RegisterService
	Items     itemsvc.Service
	Scan      itemsvc.ScanService
	Imports   importsvc.Service
	Loans     loansvc.Service
	Locations locationsvc.Service
	Dashboard dashsvc.Service
}

// Dependencies groups the infrastructure the router and middleware need.
type Dependencies struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *pkgredis.Client
	SessionChecker session.AccessSessionChecker
	Pingers        map[string]controllers.Pinger
	Metrics        prometheus.Gatherer
}

// NewRouter wires every endpoint with its middleware chain.
func NewRouter(deps Dependencies, svcs Services) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.Login(svcs.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.Register(svcs.Register, logg))
		r.Post("/refresh", controllers.Refresh(svcs.Auth, logg))
		r.Post("/logout", controllers.Logout(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/dashboard", controllers.Dashboard(svcs.Dashboard, logg))
		r.Post("/scan", controllers.ItemScan(svcs.Scan, logg))

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ItemsList(svcs.Items, logg))
			r.Post("/", controllers.ItemCreate(svcs.Items, logg))
			r.Post("/import", controllers.ItemsImport(svcs.Imports, logg))
			r.Get("/{id}", controllers.ItemGet(svcs.Items, logg))
			r.Put("/{id}", controllers.ItemUpdate(svcs.Items, logg))
			r.Delete("/{id}", controllers.ItemDelete(svcs.Items, logg))
			r.Get("/{id}/qrcode", controllers.ItemQRCode(svcs.Items, logg))
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", controllers.LoansList(svcs.Loans, logg))
			r.Post("/", controllers.LoanSubmit(svcs.Loans, logg))
			r.Get("/{id}", controllers.LoanGet(svcs.Loans, logg))
			r.Put("/{id}", controllers.LoanModify(svcs.Loans, logg))
			r.Delete("/{id}", controllers.LoanDelete(svcs.Loans, logg))
			r.Post("/{id}/approve", controllers.LoanApprove(svcs.Loans, logg))
			r.Post("/{id}/reject", controllers.LoanReject(svcs.Loans, logg))
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", controllers.LocationsList(svcs.Locations, logg))
			r.Post("/", controllers.LocationCreate(svcs.Locations, logg))
			r.Get("/{id}", controllers.LocationGet(svcs.Locations, logg))
			r.Put("/{id}", controllers.LocationUpdate(svcs.Locations, logg))
			r.Delete("/{id}", controllers.LocationDelete(svcs.Locations, logg))
			r.Post("/{id}/toggle-ac", controllers.LocationToggleAC(svcs.Locations, logg))
			r.Post("/{id}/toggle-dehumidifier", controllers.LocationToggleDehumidifier(svcs.Locations, logg))
		})
	})

	return r
}
