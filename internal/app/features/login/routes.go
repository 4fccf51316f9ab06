package login

import (
	"net/http"

	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the /auth endpoints. Registration and reset requests share
// the per-IP limiter; login applies its own per-IP and per-email limits.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(lr chi.Router) {
		lr.Use(ratelimit.Middleware(limiter, func(w http.ResponseWriter, r *http.Request) {
			httpjson.Message(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		}))
		lr.Post("/register", h.HandleRegister)
		lr.Post("/reset-password-request", h.HandleResetRequest)
	})

	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
	r.Post("/verify-email", h.HandleVerifyEmail)
	r.Post("/reset-password", h.HandleResetPassword)

	return r
}
