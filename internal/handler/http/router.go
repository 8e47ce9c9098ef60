package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Orders   *OrderHandler
	Admin    *AdminHandler
	Payments *PaymentHandler
}

// NewRouter mounts every route. Everything except /health needs a
// principal; admin routes additionally need an admin role.
func NewRouter(auth Authenticator, h Handlers) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	router.Group(func(r chi.Router) {
		r.Use(Authenticate(auth))
		h.Orders.RegisterRoutes(r)
		h.Payments.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin, RoleSuperAdmin))
			h.Admin.RegisterRoutes(r)
		})
	})

	return router
}
