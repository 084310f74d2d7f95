package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/muachung/tracker/internal/domain/catalog"
	"github.com/muachung/tracker/internal/domain/order"
	"github.com/muachung/tracker/internal/domain/post"
	"github.com/muachung/tracker/internal/pricing"
)

// orderIn is the payload for creating an order from a comment. A supplied
// matched_item or price_calc overrides the matcher / pricing engine.
type orderIn struct {
	CommentID          string `json:"comment_id"`
	CommentURL         string `json:"comment_url"`
	CommentText        string `json:"comment_text"`
	CommentCreatedTime string `json:"comment_created_time"`

	URL      string  `json:"url"`
	Qty      float64 `json:"qty"`
	Type     string  `json:"type"`
	Currency string  `json:"currency"`

	MatchedItem *catalog.Item        `json:"matched_item"`
	PriceCalc   *pricing.Calculation `json:"price_calc"`

	Customer *order.Customer `json:"user"`

	StatusCode string `json:"status_code"`
	Note       string `json:"note"`
}

type orderOut struct {
	OrderID            string `json:"order_id"`
	CommentID          string `json:"comment_id,omitempty"`
	CommentURL         string `json:"comment_url,omitempty"`
	CommentText        string `json:"comment_text,omitempty"`
	CommentCreatedTime string `json:"comment_created_time,omitempty"`

	URL      string  `json:"url"`
	Qty      float64 `json:"qty"`
	Type     string  `json:"type,omitempty"`
	Currency string  `json:"currency"`

	MatchedItem *catalog.Item        `json:"matched_item,omitempty"`
	PriceCalc   *pricing.Calculation `json:"price_calc,omitempty"`

	StatusCode    string               `json:"status_code"`
	StatusHistory []order.StatusChange `json:"status_history"`
	ParsedAt      string               `json:"parsed_at"`
	Customer      *order.Customer      `json:"user,omitempty"`
	Note          string               `json:"note,omitempty"`
}

type orderStatusPatch struct {
	NewStatusCode string `json:"new_status_code"`
	Note          string `json:"note"`
	Actor         string `json:"actor"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var body orderIn
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Qty < 0 {
		respondError(w, r, http.StatusBadRequest, "qty must not be negative")
		return
	}

	o, err := h.orderSvc.Create(r.Context(), order.CreateRequest{
		GroupID:            r.PathValue("groupID"),
		PostID:             r.PathValue("postID"),
		CommentID:          body.CommentID,
		CommentURL:         body.CommentURL,
		CommentText:        body.CommentText,
		CommentCreatedTime: body.CommentCreatedTime,
		CustomerURL:        body.URL,
		Customer:           body.Customer,
		Qty:                decimal.NewFromFloat(body.Qty),
		TypeLabel:          body.Type,
		Currency:           body.Currency,
		Note:               body.Note,
		MatchedItem:        body.MatchedItem,
		PriceCalc:          body.PriceCalc,
		StatusCode:         body.StatusCode,
	})
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, orderToOut(*o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	postID := r.PathValue("postID")

	// 404 for unknown posts, empty list for known posts without orders.
	if _, err := h.posts.GetByID(r.Context(), groupID, postID); err != nil {
		if errors.Is(err, post.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "post not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	orders, err := h.orders.ListByPost(r.Context(), groupID, postID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]orderOut, len(orders))
	for i, o := range orders {
		out[i] = orderToOut(o)
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body orderStatusPatch
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.NewStatusCode == "" {
		respondError(w, r, http.StatusBadRequest, "new_status_code is required")
		return
	}

	o, err := h.orderSvc.UpdateStatus(r.Context(), r.PathValue("orderID"),
		body.NewStatusCode, body.Note, body.Actor)
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, orderToOut(*o))
}

// mapOrderError converts order domain errors to HTTP responses.
func (h *Handler) mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var usErr *order.UnknownStatusError
	switch {
	case errors.As(err, &usErr):
		respondError(w, r, http.StatusBadRequest, usErr.Error())
	case errors.Is(err, post.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "post not found")
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrDuplicateComment):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrNoCatalogItems):
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		respondInternal(w, r, err)
	}
}

func orderToOut(o order.Order) orderOut {
	history := o.StatusHistory
	if history == nil {
		history = []order.StatusChange{}
	}
	return orderOut{
		OrderID:            o.ID,
		CommentID:          o.CommentID,
		CommentURL:         o.CommentURL,
		CommentText:        o.CommentText,
		CommentCreatedTime: o.CommentCreatedTime,
		URL:                o.CustomerURL,
		Qty:                o.Qty.InexactFloat64(),
		Type:               o.TypeLabel,
		Currency:           o.Currency,
		MatchedItem:        o.MatchedItem,
		PriceCalc:          o.PriceCalc,
		StatusCode:         o.StatusCode,
		StatusHistory:      history,
		ParsedAt:           o.ParsedAt.UTC().Format(time.RFC3339),
		Customer:           o.Customer,
		Note:               o.Note,
	}
}
