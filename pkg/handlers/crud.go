package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Shared request plumbing for the plain create/get/list/update/delete routes.
// Each helper decodes and validates the request, calls the service and writes
// the envelope; errors go through writeServiceError.

// ListResponse wraps every list endpoint's payload.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

func handleCreate[In, Out any](w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string,
	create func(context.Context, *In) (Out, error),
) {
	var in In
	if !decodeBody(w, r, &in, logger) {
		return
	}
	out, err := create(r.Context(), &in)
	if err != nil {
		writeServiceError(w, err, op, logger)
		return
	}
	writeData(w, http.StatusCreated, out, logger)
}

func handleGet[Out any](w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string,
	get func(context.Context, uuid.UUID) (Out, error),
) {
	id, ok := ParseID(w, r, logger)
	if !ok {
		return
	}
	out, err := get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, op, logger, zap.String("id", id.String()))
		return
	}
	writeData(w, http.StatusOK, out, logger)
}

func handleList[T any](w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string,
	list func(context.Context) ([]T, error),
) {
	items, err := list(r.Context())
	if err != nil {
		writeServiceError(w, err, op, logger)
		return
	}
	writeData(w, http.StatusOK, newListResponse(items), logger)
}

// handleListByID lists the children of the {id} path parameter.
func handleListByID[T any](w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string,
	list func(context.Context, uuid.UUID) ([]T, error),
) {
	id, ok := ParseID(w, r, logger)
	if !ok {
		return
	}
	items, err := list(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, op, logger, zap.String("id", id.String()))
		return
	}
	writeData(w, http.StatusOK, newListResponse(items), logger)
}

func handleUpdate[P, Out any](w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string,
	update func(context.Context, uuid.UUID, *P) (Out, error),
) {
	id, ok := ParseID(w, r, logger)
	if !ok {
		return
	}
	var patch P
	if !decodeBody(w, r, &patch, logger) {
		return
	}
	out, err := update(r.Context(), id, &patch)
	if err != nil {
		writeServiceError(w, err, op, logger, zap.String("id", id.String()))
		return
	}
	writeData(w, http.StatusOK, out, logger)
}

func handleDelete(w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string,
	del func(context.Context, uuid.UUID) error,
) {
	id, ok := ParseID(w, r, logger)
	if !ok {
		return
	}
	if err := del(r.Context(), id); err != nil {
		writeServiceError(w, err, op, logger, zap.String("id", id.String()))
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"}, logger)
}
