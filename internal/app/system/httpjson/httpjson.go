// Package httpjson writes the API's JSON response envelopes.
//
// Success bodies are {"message": ..., <payload fields>}; failures are
// {"message": ...} with the status derived from the apperr kind.
package httpjson

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"go.uber.org/zap"
)

// M is a shorthand for ad-hoc response objects.
type M map[string]any

// Write writes payload as JSON with the given status.
func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 with message merged into fields.
func OK(w http.ResponseWriter, message string, fields M) {
	Status(w, http.StatusOK, message, fields)
}

// Created writes a 201 with message merged into fields.
func Created(w http.ResponseWriter, message string, fields M) {
	Status(w, http.StatusCreated, message, fields)
}

// Status writes {message, ...fields} with an explicit status.
func Status(w http.ResponseWriter, status int, message string, fields M) {
	body := make(M, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["message"] = message
	Write(w, status, body)
}

// Message writes a bare {message} body.
func Message(w http.ResponseWriter, status int, message string) {
	Write(w, status, M{"message": message})
}

// Error maps err to a status and writes {message}. Internal causes are
// logged and replaced with a generic message.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindEmailDeliveryFailed {
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("kind", kind.String()),
				zap.Error(err))
		}
	}
	Message(w, kind.Status(), apperr.PublicMessage(err))
}
