package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseID extracts and validates the {id} path parameter.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
func ParseID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "id", "invalid_id", "Invalid ID format", logger)
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode, errorMessage, logger)
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID reads an optional UUID query parameter. Absent yields uuid.Nil.
func queryUUID(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", "Invalid "+name+" format", logger)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter. Absent yields 0.
func queryInt(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", name+" must be an integer", logger)
		return 0, false
	}
	return n, true
}

// queryBool reads an optional boolean query parameter. Absent yields nil.
func queryBool(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", name+" must be true or false", logger)
		return nil, false
	}
	return &b, true
}

// onlyActive reads the onlyActive flag, defaulting to def.
func onlyActive(w http.ResponseWriter, r *http.Request, def bool, logger *zap.Logger) (bool, bool) {
	b, ok := queryBool(w, r, "onlyActive", logger)
	if !ok {
		return false, false
	}
	if b == nil {
		return def, true
	}
	return *b, true
}
