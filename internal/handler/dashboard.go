package handler

import (
	"net/http"
	"strconv"

	"github.com/muachung/tracker/internal/stats"
)

// dashboard builds the revenue and order-status report for one group.
// The reference period defaults to the current year and month; a "year"
// query parameter reports on an earlier year (its reference month is then
// December, so currentMonth figures cover the year's last month).
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	year := now.Year()
	month := now.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid year")
			return
		}
		if y != year {
			year = y
			month = 12
		}
	}

	facts, err := h.facts.YearFacts(r.Context(), r.PathValue("groupID"), year)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, stats.Summarize(facts, year, month))
}
