package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"drivertrack/internal/log"
	"drivertrack/internal/services"
	"drivertrack/internal/tracker"
)

// maxBodyBytes caps PATCH bodies.
const maxBodyBytes = 64 << 10

var errBadParam = errors.New("invalid path parameter")

// errorBody is the JSON shape of every error response. Record is set when a
// write was computed but not persisted.
type errorBody struct {
	Error  string `json:"error"`
	Record any    `json:"record,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode response", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// pathInt reads an integer chi URL parameter.
func pathInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, raw)
	}
	return v, nil
}

// yearMonth reads and checks the {year} and {month} parameters.
func yearMonth(r *http.Request) (year, month int, err error) {
	if year, err = pathInt(r, "year"); err != nil {
		return 0, 0, err
	}
	if month, err = pathInt(r, "month"); err != nil {
		return 0, 0, err
	}
	return year, month, services.ValidateMonth(year, month)
}

// decodePatch reads a JSON patch body. An empty body is an empty patch.
func decodePatch(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeResult answers a write: 200 with the record, 503 with the record when
// the back end rejected it, 400 for address errors.
func writeResult(w http.ResponseWriter, r *http.Request, rec any, err error) {
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, rec)
	case errors.Is(err, tracker.ErrPersist):
		writeJSON(w, r, http.StatusServiceUnavailable, errorBody{Error: "record computed but not persisted", Record: rec})
	case services.IsValidation(err):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// writeResultLabel is the metrics label of a write outcome.
func writeResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, tracker.ErrPersist):
		return "not_persisted"
	case services.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}
