// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the /users endpoints for the signed-in caller.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/profile", h.ServeProfile)
	r.Put("/profile", h.HandleUpdateProfile)
	r.Put("/change-password", h.HandleChangePassword)
	return r
}
