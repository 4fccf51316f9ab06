package errors_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/flowbase/internal/app/features/errors"
	"github.com/dalemusser/flowbase/internal/testutil"
	"github.com/go-chi/chi/v5"
)

func TestFallbacks(t *testing.T) {
	r := chi.NewRouter()
	r.NotFound(uierrors.NotFound)
	r.MethodNotAllowed(uierrors.MethodNotAllowed)
	r.Get("/known", func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		method, path string
		status       int
		message      string
	}{
		{"GET", "/missing", http.StatusNotFound, "Page Not Found"},
		{"POST", "/known", http.StatusMethodNotAllowed, "Method Not Allowed"},
	}
	for _, tt := range tests {
		rec := testutil.NewRecorder()
		r.ServeHTTP(rec, testutil.NewRequest(tt.method, tt.path))
		rec.AssertStatus(t, tt.status)
		if got := rec.Message(t); got != tt.message {
			t.Errorf("%s %s: message = %q", tt.method, tt.path, got)
		}
	}
}
