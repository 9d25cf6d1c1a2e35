package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the task API.
//
// Routes:
//
//	POST   /auth/register        → authHandler.Register
//	POST   /auth/login           → authHandler.Login
//	POST   /auth/verify          → authHandler.Verify   (bearer token)
//	GET    /tasks                → taskHandler.List     (bearer token)
//	POST   /tasks                → taskHandler.Create   (bearer token)
//	GET    /tasks/{id}           → taskHandler.Get      (bearer token)
//	PUT    /tasks/{id}           → taskHandler.Update   (bearer token)
//	DELETE /tasks/{id}           → taskHandler.Delete   (bearer token)
//	PATCH  /tasks/{id}/complete  → taskHandler.Toggle   (bearer token)
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json") : rejects non-JSON bodies
//  2. WithRequestLogging(logger)         : logs incoming requests
//  3. Recoverer                          : turns panics into 500s
func NewRouter(
	authHandler *AuthHandler,
	taskHandler *TaskHandler,
	verifier middleware.TokenVerifier,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	auth := middleware.BearerAuth(verifier)

	r.Route("/auth", func(r chi.Router) {
		// Public endpoints
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.With(auth).Post("/verify", authHandler.Verify)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(auth)

		r.Get("/", taskHandler.List)
		r.Post("/", taskHandler.Create)
		r.Get("/{id}", taskHandler.Get)
		r.Put("/{id}", taskHandler.Update)
		r.Delete("/{id}", taskHandler.Delete)
		r.Patch("/{id}/complete", taskHandler.Toggle)
	})

	return r
}
