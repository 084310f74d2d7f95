// Package handler exposes the tracker's HTTP API. Handlers translate
// between JSON payloads and the domain services; all business rules live in
// the domain packages.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/muachung/tracker/internal/domain/order"
	"github.com/muachung/tracker/internal/domain/post"
	"github.com/muachung/tracker/internal/domain/status"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in post responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the tracker API, delegating business logic to the injected
// repositories and the order service.
type Handler struct {
	cfg      Config
	posts    post.Repository
	orders   order.Repository
	facts    order.FactSource
	orderSvc *order.Service
	statuses status.Repository
	now      func() time.Time
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	posts post.Repository,
	orders order.Repository,
	facts order.FactSource,
	orderSvc *order.Service,
	statuses status.Repository,
) *Handler {
	return &Handler{
		cfg:      cfg,
		posts:    posts,
		orders:   orders,
		facts:    facts,
		orderSvc: orderSvc,
		statuses: statuses,
		now:      time.Now,
	}
}

// Routes registers all API routes on the given mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/groups/{groupID}/posts", h.listPosts)
	mux.HandleFunc("POST /api/groups/{groupID}/posts", h.createPost)
	mux.HandleFunc("GET /api/groups/{groupID}/posts/{postID}", h.getPost)
	mux.HandleFunc("PATCH /api/groups/{groupID}/posts/{postID}", h.patchPost)
	mux.HandleFunc("GET /api/groups/{groupID}/posts/{postID}/orders", h.listOrders)
	mux.HandleFunc("POST /api/groups/{groupID}/posts/{postID}/orders", h.createOrder)
	mux.HandleFunc("PATCH /api/groups/{groupID}/orders/{orderID}/status", h.updateOrderStatus)
	mux.HandleFunc("GET /api/statuses", h.listStatuses)
	mux.HandleFunc("GET /api/dashboard/groups/{groupID}", h.dashboard)
}

// errorResponse is the JSON error body shared by all endpoints.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Warn("Encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	respondJSON(w, r, code, errorResponse{Code: code, Message: msg})
}

// respondInternal logs the error and hides its detail from the client.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	respondError(w, r, http.StatusInternalServerError, "internal error")
}

// decodeBody parses a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
