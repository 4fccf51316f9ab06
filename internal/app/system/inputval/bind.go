package inputval

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// Bind decodes the JSON body into dst and validates it. An empty body
// decodes as {}. Failures are apperr.BadRequest values.
func Bind(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.BadRequest("Request body must be valid JSON.")
	}
	if res := Validate(dst); res.HasErrors() {
		return apperr.BadRequest(res.First())
	}
	return nil
}

// PathID parses the chi URL parameter key as an ObjectID. A malformed id
// is a BadRequest naming label.
func PathID(r *http.Request, key, label string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest("Invalid " + label + " id")
	}
	return id, nil
}
