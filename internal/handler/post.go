package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/muachung/tracker/internal/domain/catalog"
	"github.com/muachung/tracker/internal/domain/post"
)

// postOut mirrors the stored post for API responses. Money and quantities
// are emitted as plain JSON numbers.
type postOut struct {
	ID                 string         `json:"id"`
	Description        string         `json:"description"`
	Items              []catalog.Item `json:"items"`
	Tags               []string       `json:"tags"`
	ImportPrice        float64        `json:"import_price"`
	OrdersLastUpdateAt *string        `json:"orders_last_update_at,omitempty"`
	LocalImages        []string       `json:"local_images"`
	CreatedTime        string         `json:"created_time"`
	UpdatedTime        string         `json:"updated_time"`
}

type postPage struct {
	Data       []postOut `json:"data"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

type postCreateIn struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Items       []catalog.Item `json:"items"`
	Tags        []string       `json:"tags"`
	ImportPrice float64        `json:"import_price"`
	LocalImages []string       `json:"local_images"`
}

type postPatchIn struct {
	Description *string         `json:"description"`
	Items       *[]catalog.Item `json:"items"`
	Tags        *[]string       `json:"tags"`
	ImportPrice *float64        `json:"import_price"`
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	result, err := h.posts.ListByGroup(r.Context(), groupID, page, pageSize)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]postOut, len(result.Posts))
	for i, p := range result.Posts {
		out[i] = h.postToOut(p)
	}

	totalPages := result.Total / result.PageSize
	if result.Total%result.PageSize != 0 {
		totalPages++
	}

	respondJSON(w, r, http.StatusOK, postPage{
		Data:       out,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: totalPages,
	})
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.posts.GetByID(r.Context(), r.PathValue("groupID"), r.PathValue("postID"))
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "post not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.postToOut(*p))
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var body postCreateIn
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ID == "" {
		respondError(w, r, http.StatusBadRequest, "id is required")
		return
	}

	now := h.now().UTC()
	p := post.Post{
		ID:          body.ID,
		GroupID:     r.PathValue("groupID"),
		Description: body.Description,
		Items:       body.Items,
		Tags:        body.Tags,
		ImportPrice: decimal.NewFromFloat(body.ImportPrice),
		LocalImages: body.LocalImages,
		CreatedTime: now,
		UpdatedTime: now,
	}
	if err := h.posts.Create(r.Context(), &p); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, h.postToOut(p))
}

func (h *Handler) patchPost(w http.ResponseWriter, r *http.Request) {
	var body postPatchIn
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := post.Patch{
		Description: body.Description,
		Items:       body.Items,
		Tags:        body.Tags,
	}
	if body.ImportPrice != nil {
		d := decimal.NewFromFloat(*body.ImportPrice)
		patch.ImportPrice = &d
	}

	p, err := h.posts.Update(r.Context(), r.PathValue("groupID"), r.PathValue("postID"), patch)
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "post not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.postToOut(*p))
}

func (h *Handler) postToOut(p post.Post) postOut {
	images := make([]string, len(p.LocalImages))
	for i, img := range p.LocalImages {
		images[i] = h.cfg.ImageBaseURL + img
	}

	out := postOut{
		ID:          p.ID,
		Description: p.Description,
		Items:       p.Items,
		Tags:        p.Tags,
		ImportPrice: p.ImportPrice.InexactFloat64(),
		LocalImages: images,
		CreatedTime: p.CreatedTime.UTC().Format(time.RFC3339),
		UpdatedTime: p.UpdatedTime.UTC().Format(time.RFC3339),
	}
	if p.OrdersLastUpdateAt != nil {
		s := p.OrdersLastUpdateAt.UTC().Format(time.RFC3339)
		out.OrdersLastUpdateAt = &s
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
