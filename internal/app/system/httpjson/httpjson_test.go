package httpjson_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestOK_MergesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.OK(rec, "done", httpjson.M{"count": 2})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decode(t, rec)
	if body["message"] != "done" || body["count"] != float64(2) {
		t.Errorf("body = %v", body)
	}
}

func TestError_Mapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", apperr.NotFound("Workspace not found"), 404, "Workspace not found"},
		{"forbidden", apperr.Forbidden("nope"), 403, "nope"},
		{"conflict", apperr.Conflict("dup"), 409, "dup"},
		{"expired", apperr.Expired("gone"), 410, "gone"},
		{"email", apperr.EmailDeliveryFailed("Failed to send email", errors.New("smtp")), 502, "Failed to send email"},
		{"plain error", errors.New("secret detail"), 500, apperr.InternalMessage},
		{"internal", apperr.Internal(errors.New("db down")), 500, apperr.InternalMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/x", nil)
			httpjson.Error(rec, req, zap.NewNop(), tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decode(t, rec)["message"]; got != tt.message {
				t.Errorf("message = %v, want %q", got, tt.message)
			}
		})
	}
}
