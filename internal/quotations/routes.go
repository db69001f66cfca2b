package quotations

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/pradeep-opticals/opticals-api/internal/auth"
	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

// MountRoutes wires the quotation endpoints. All routes require an
// authenticated identity; transitions are role-gated and rate limited.
func MountRoutes(r chi.Router, h *Handler, mw *auth.Middleware) {
	r.Route("/quotations", func(r chi.Router) {
		r.Use(mw.Authenticate)

		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Get("/{id}/events", h.Events)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(30, time.Minute))
			r.With(mw.RequireRole(rbac.RoleCustomer)).Post("/", h.Create)
			r.With(mw.RequireRole(rbac.RoleCustomer)).Post("/{id}/confirm", h.Confirm)
			r.Post("/{id}/reject", h.Reject)
			r.With(mw.RequireRole(rbac.RoleStaff)).Post("/{id}/approve", h.Approve)
			r.With(mw.RequireRole(rbac.RoleStaff)).Post("/{id}/reply", h.Reply)
			r.With(mw.RequireRole(rbac.RoleStaff)).Post("/{id}/convert", h.Convert)
		})
	})
}
