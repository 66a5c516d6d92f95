package http

import (
	"log/slog"

	"github.com/cmlabs-hris/employee-directory/internal/handler/http/middleware"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	LogLevel       slog.Level
}

func NewRouter(cfg RouterConfig, jwtService jwt.Service, authHandler AuthHandler, employeeHandler EmployeeHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
				r.Get("/session", authHandler.Session)

				r.Group(func(r chi.Router) {
					r.Use(middleware.AuthRequired(jwtService))
					r.Post("/logout", authHandler.Logout)
					r.Post("/sse-token", authHandler.SSEToken)
				})
			})
		})

		r.Route("/employees", func(r chi.Router) {
			// Authenticated by the SSE token in the query string
			r.Get("/events", employeeHandler.Events)

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
				r.Use(middleware.AuthRequired(jwtService))

				r.Get("/", employeeHandler.ListEmployees)
				r.Post("/", employeeHandler.CreateEmployee)
				r.Post("/validate", employeeHandler.ValidateField)
				r.Get("/export", employeeHandler.ExportEmployees)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", employeeHandler.GetEmployee)
					r.Put("/", employeeHandler.UpdateEmployee)
					r.Delete("/", employeeHandler.DeleteEmployee)
				})
			})
		})
	})
	return r
}
