// Package errors serves the JSON fallbacks for unmatched routes.
package errors

import (
	"net/http"

	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
)

// NotFound answers routes nothing else matched.
func NotFound(w http.ResponseWriter, r *http.Request) {
	httpjson.Message(w, http.StatusNotFound, "Page Not Found")
}

// MethodNotAllowed answers a known path hit with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpjson.Message(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}
