package handler

import "net/http"

type statusOut struct {
	StatusCode  string `json:"status_code"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	ViewOrder   int    `json:"view_order"`
}

func (h *Handler) listStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statuses.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]statusOut, len(statuses))
	for i, st := range statuses {
		out[i] = statusOut{
			StatusCode:  st.Code,
			DisplayName: st.DisplayName,
			Description: st.Description,
			IsActive:    st.IsActive,
			ViewOrder:   st.ViewOrder,
		}
	}
	respondJSON(w, r, http.StatusOK, out)
}
