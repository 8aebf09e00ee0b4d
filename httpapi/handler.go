// Package httpapi maps HTTP verbs and paths onto the stitch operations and
// maps their error kinds back to status codes. It parses and validates raw
// request bodies into the typed inputs the core expects; all integrity and
// aggregation logic lives below it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/calunara/stitch/graph"
	"github.com/calunara/stitch/model"
	"github.com/calunara/stitch/seed"
	"github.com/calunara/stitch/store"
)

// Engine is the subset of the integrity engine the handler dispatches to.
type Engine interface {
	DeleteAccount(ctx context.Context, id int64) (bool, error)
	DeleteAllAccounts(ctx context.Context) error
	UpdatePost(ctx context.Context, post *model.Post) error
	UpdateAccount(ctx context.Context, id int64, fields map[string]any) (*model.Account, error)
	CreateAccount(ctx context.Context, acct *model.Account) error
}

// Assembler produces the nested account graph.
type Assembler interface {
	AccountGraph(ctx context.Context, rawID string) (*model.AccountGraph, error)
}

// Loader runs the seed import.
type Loader interface {
	Load(ctx context.Context) (*seed.Summary, error)
}

// Handler dispatches one core operation per inbound request.
type Handler struct {
	engine    Engine
	assembler Assembler
	loader    Loader
	logger    *slog.Logger
}

// New builds the HTTP handler with the access-log middleware applied.
func New(engine Engine, assembler Assembler, loader Loader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		engine:    engine,
		assembler: assembler,
		loader:    loader,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /load", h.load)
	mux.HandleFunc("DELETE /accounts", h.deleteAllAccounts)
	mux.HandleFunc("PUT /accounts", h.createAccount)
	mux.HandleFunc("POST /posts", h.updatePost)
	mux.HandleFunc("GET /accounts/{id}", h.accountGraph)
	mux.HandleFunc("DELETE /accounts/{id}", h.deleteAccount)
	mux.HandleFunc("POST /accounts/{id}", h.updateAccount)

	return withAccessLog(logger, mux)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	summary, err := h.loader.Load(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) deleteAllAccounts(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteAllAccounts(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var acct model.Account
	if err := json.NewDecoder(r.Body).Decode(&acct); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid JSON body", store.ErrInvalidInput))
		return
	}
	if err := h.engine.CreateAccount(r.Context(), &acct); err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Link", fmt.Sprintf("</accounts/%d>; rel=\"self\"", acct.ID))
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("account %d created", acct.ID),
	})
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	var post model.Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid JSON body", store.ErrInvalidInput))
		return
	}
	if err := h.engine.UpdatePost(r.Context(), &post); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "post updated"})
}

func (h *Handler) accountGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.assembler.AccountGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := graph.ParseID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	removed, err := h.engine.DeleteAccount(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": removed})
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := graph.ParseID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: read body: %v", store.ErrInvalidInput, err))
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid JSON body", store.ErrInvalidInput))
		return
	}

	// The id in the path and the body must agree. The body id is kept as a
	// json.Number so int64 ids past float64's integer range compare exactly.
	var ident struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(body, &ident); err != nil || ident.ID.String() != strconv.FormatInt(id, 10) {
		h.writeError(w, fmt.Errorf("%w: id in URL and body must match", store.ErrInvalidInput))
		return
	}
	delete(fields, "id")

	merged, err := h.engine.UpdateAccount(r.Context(), id, fields)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Link", fmt.Sprintf("</accounts/%d>; rel=\"self\"", id))
	h.writeJSON(w, http.StatusOK, merged)
}

// writeError translates the domain error taxonomy to status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, store.ErrInvalidID),
		errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrUpdateRejected):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrPostNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrUpstreamFetch):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
		h.logger.Error("internal error", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("write response", "error", err)
	}
}
