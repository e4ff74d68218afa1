package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/pkg/httpext"
)

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

// maxRequestBody bounds JSON request bodies
const maxRequestBody = 1 << 20

// decodeRequest reads a JSON body into req and validates it. On failure it
// has already written a 400 and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	_, ok := decodeRawRequest(w, r, req)
	return ok
}

// decodeRawRequest is decodeRequest for bodies that are forwarded as sent;
// req only gates which bodies are accepted.
func decodeRawRequest(w http.ResponseWriter, r *http.Request, req interface{}) (json.RawMessage, bool) {
	var body json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Client sent malformed JSON request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return nil, false
	}
	if err := json.Unmarshal(body, req); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Client sent malformed JSON request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return nil, false
	}

	if err := validate.Struct(req); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Request validation failed")
		httpext.JsonError(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return nil, false
	}
	return body, true
}
