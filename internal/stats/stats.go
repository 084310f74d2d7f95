// Package stats reduces a year's order records into the dashboard's revenue
// and status summary.
package stats

import "time"

// Known order status codes. The closed set mirrors the statuses reference
// table; anything else still counts toward order totals but is not broken
// out per status.
const (
	StatusNew        = "NEW"
	StatusOrdered    = "ORDERED"
	StatusReceived   = "RECEIVED"
	StatusDelivering = "DELIVERING"
	StatusDone       = "DONE"
	StatusCancelled  = "CANCELLED"
)

// KnownStatuses lists every status code tracked in Summary.StatusCounts.
var KnownStatuses = []string{
	StatusNew, StatusOrdered, StatusReceived,
	StatusDelivering, StatusDone, StatusCancelled,
}

// OrderFact is one flattened order record. The caller resolves the linked
// import cost before summarization; this package never looks anything up.
type OrderFact struct {
	// ParsedAt is the order timestamp as stored (RFC 3339, with or without
	// offset). Facts whose timestamp cannot be parsed are skipped entirely.
	ParsedAt   string
	StatusCode string
	OrderTotal int64
	ImportCost int64
}

// MonthRevenue is one bucket of the monthly revenue series.
type MonthRevenue struct {
	Month   int   `json:"month"`
	Revenue int64 `json:"revenue"`
}

// Summary is the dashboard report for one reference year. The JSON field
// names are consumed by the dashboard frontend as-is.
type Summary struct {
	TotalRevenue         int64          `json:"totalRevenue"`
	CurrentMonthRevenue  int64          `json:"currentMonthRevenue"`
	TotalOrders          int            `json:"totalOrders"`
	CurrentMonthOrders   int            `json:"currentMonthOrders"`
	MonthlyRevenueSeries []MonthRevenue `json:"monthlyRevenueSeries"`
	PendingOrders        int            `json:"pendingOrders"`
	StatusCounts         map[string]int `json:"statusCounts"`
}

// Summarize reduces orders into a Summary for the given reference year and
// month in a single pass.
//
// Per order: an unparseable timestamp or a different year skips the order
// entirely. CANCELLED orders never contribute revenue. Other orders
// contribute total minus import cost, and only when the total strictly
// exceeds the import cost — break-even and negative-margin orders add
// nothing rather than zero or negative amounts. Status codes outside the
// known set count toward order totals but not StatusCounts. Pending orders
// are everything not DONE and not CANCELLED.
func Summarize(orders []OrderFact, referenceYear int, referenceMonth time.Month) Summary {
	s := Summary{
		MonthlyRevenueSeries: make([]MonthRevenue, 12),
		StatusCounts:         make(map[string]int, len(KnownStatuses)),
	}
	for i := range s.MonthlyRevenueSeries {
		s.MonthlyRevenueSeries[i].Month = i + 1
	}
	for _, code := range KnownStatuses {
		s.StatusCounts[code] = 0
	}

	for _, o := range orders {
		ts, ok := parseTimestamp(o.ParsedAt)
		if !ok || ts.Year() != referenceYear {
			continue
		}

		s.TotalOrders++
		month := ts.Month()
		if month == referenceMonth {
			s.CurrentMonthOrders++
		}

		status := o.StatusCode
		if status == "" {
			status = StatusNew
		}

		if status != StatusCancelled && o.OrderTotal > o.ImportCost {
			revenue := o.OrderTotal - o.ImportCost
			s.TotalRevenue += revenue
			s.MonthlyRevenueSeries[month-1].Revenue += revenue
			if month == referenceMonth {
				s.CurrentMonthRevenue += revenue
			}
		}

		if _, known := s.StatusCounts[status]; known {
			s.StatusCounts[status]++
		}
	}

	s.PendingOrders = s.TotalOrders - s.StatusCounts[StatusDone] - s.StatusCounts[StatusCancelled]
	return s
}

// parseTimestamp accepts RFC 3339 timestamps and the offset-less variant
// produced by older scraper exports. Naive timestamps are taken as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
