package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/queue"
)

// URLService defines the interface for business logic operations on short URLs.
type URLService interface {
	ShortenURL(ctx context.Context, longURL, customSlug string, expiresInDays *int) (*models.URL, error)
	ResolveSlug(ctx context.Context, slug string) (string, error)
	RecordClick(ctx context.Context, ev queue.ClickEvent)
	GetURLInfo(ctx context.Context, slug string) (*models.URLInfo, error)
	ListURLs(ctx context.Context, page, limit int) ([]*models.URLInfo, int64, error)
	DeleteURL(ctx context.Context, slug string) error
	GetClickStats(ctx context.Context, slug string) (*models.ClickStats, error)
	CacheStats(ctx context.Context) (hits, misses int64, err error)
}

// Pinger reports whether the primary store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// AuthService defines the interface for account and token operations.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ParseToken(token string) (int64, error)
}

// RouterOptions contains the knobs the router needs beyond its services.
type RouterOptions struct {
	BaseURL           string
	RequestsPerMinute int
	DB                Pinger
}

// getValidate returns a validator that reports JSON field names in errors.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes the HTTP routes: the public redirect at the root,
// the JSON API under /api/v1, and the Prometheus scrape endpoint.
func NewRouter(logger *httplog.Logger, urlSvc URLService, authSvc AuthService, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	validate := getValidate()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/{slug}", handleRedirect(urlSvc))

	r.Route("/api/v1", func(r chi.Router) {
		if opts.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(opts.RequestsPerMinute, time.Minute))
		}

		r.Get("/ping", handlePing)
		r.Get("/health", handleHealth(urlSvc, opts.DB))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc, validate))
			r.Post("/login", handleLogin(authSvc, validate))

			r.Group(func(r chi.Router) {
				r.Use(authenticate(authSvc))
				r.Get("/me", handleMe(authSvc))
			})
		})

		r.Route("/urls", func(r chi.Router) {
			r.Post("/", handleShortenURL(urlSvc, validate, opts.BaseURL))
			r.Get("/", handleListURLs(urlSvc, opts.BaseURL))

			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", handleGetURLInfo(urlSvc, opts.BaseURL))
				r.Get("/stats", handleGetClickStats(urlSvc))
				r.Get("/qr", handleGetQRCode(urlSvc, opts.BaseURL))

				r.Group(func(r chi.Router) {
					r.Use(authenticate(authSvc))
					r.Delete("/", handleDeleteURL(urlSvc))
				})
			})
		})
	})

	return r
}
