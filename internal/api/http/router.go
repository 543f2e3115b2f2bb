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
	"github.com/go-playground/validator/v10"

	"github.com/ilyakochetov/shortener/internal/models"
)

type URLService interface {
	CreateShortURL(ctx context.Context, originalURL string, expiresAt *time.Time) (*models.URL, error)
	ResolveShortCode(ctx context.Context, shortCode string, meta models.ClickMeta) (string, error)
	GetURLStats(ctx context.Context, shortCode string) (*models.URLStats, error)
}

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

func NewRouter(logger *httplog.Logger, urlSvc URLService, baseURL string, shortCodeLength int) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	validate := getValidate()

	r.Get("/ping", handlePing)

	r.Route("/api/urls", func(r chi.Router) {
		r.Post("/", handleCreateShortURL(urlSvc, validate, baseURL))
		r.Get("/{shortCode}/stats", handleGetURLStats(urlSvc, baseURL))
	})

	r.Get("/{shortCode}", handleRedirect(urlSvc, shortCodeLength))

	return r
}
