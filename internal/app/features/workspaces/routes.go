// internal/app/features/workspaces/routes.go
package workspaces

import (
	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all workspace routes. Every route needs a signed-in
// caller; membership and role checks happen in the services.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeList)

	// Token acceptance is not scoped to a path id; the token names the workspace.
	r.Post("/accept-invite-token", h.HandleAcceptToken)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.ServeDetail)
		r.Get("/projects", h.ServeProjects)
		r.Get("/stats", h.ServeStats)
		r.Get("/archived-items", h.ServeArchived)

		r.Post("/invite-member", h.HandleInvite)
		r.Post("/accept-general-invite", h.HandleAcceptGeneral)

		r.Post("/update", h.HandleUpdate)
		r.Post("/transfer", h.HandleTransfer)
		r.Delete("/delete", h.HandleDelete)
	})

	return r
}
