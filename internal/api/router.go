package api

import (
	"net/http"
	"time"
	"trailwise/internal/api/handler"
	"trailwise/internal/api/middleware"
	"trailwise/internal/app/service"
	"trailwise/internal/common/security"
	"trailwise/internal/domain/model"
	"trailwise/internal/domain/repository"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	issuer *security.TokenIssuer,
	userRepo repository.UserRepository,
	authService *service.AuthService,
	tourService *service.TourService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Parses and verifies a bearer token from "Authorization: Bearer <t>" and
	// stashes the result in the request context. Protected groups layer the
	// session guard on top; public routes just ignore it.
	r.Use(jwtauth.Verifier(issuer.JWTAuth()))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	sessionGuard := middleware.Authenticator(userRepo)

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Signup/login/reset bypass the guard and drive the auth core directly.
		authHandler := handler.NewAuthHandler(authService)
		userHandler := handler.NewUserHandler(authService)
		v1.Route("/users", func(users chi.Router) {
			authHandler.RegisterRoutes(users)

			users.Group(func(protected chi.Router) {
				protected.Use(sessionGuard)
				userHandler.RegisterRoutes(protected)
			})
		})

		// Tour reads are public; writes need a lead guide or admin.
		tourHandler := handler.NewTourHandler(tourService)
		v1.Route("/tours", func(tours chi.Router) {
			tourHandler.RegisterPublicRoutes(tours)

			tours.Group(func(protected chi.Router) {
				protected.Use(sessionGuard)
				protected.Use(middleware.RestrictTo(model.RoleAdmin, model.RoleLeadGuide))
				tourHandler.RegisterProtectedRoutes(protected)
			})
		})
	})

	return r
}
