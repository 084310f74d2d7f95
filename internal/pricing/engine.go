package pricing

import (
	"math"
	"sort"
)

// ComputeMinCost returns the cheapest way to buy at least qty units using
// any non-negative integer combination of the given packs.
//
// It runs an unbounded coin-change dynamic program over quantity units: when
// some combination of pack sizes sums to qty exactly, the result is the
// global minimum cost with Method "dp". When no combination reaches qty, it
// falls back to repeating the pack with the lowest unit price until qty is
// covered (Method "greedy-ceil"); that result may overshoot and is not
// guaranteed optimal against mixes of other packs.
//
// Packs with non-positive quantity or negative price are discarded before
// the optimization. Empty input, no valid packs, or qty <= 0 yield a
// zero-total Calculation with Method "fallback-none". The function never
// fails.
//
// The exact DP allocates O(qty) state, so quantities above MaxExactQty skip
// it and go straight to the greedy cover, which is O(packs) regardless of
// qty. Group-buy orders are a few units to a few thousand; anything past the
// threshold is a typo or abuse, and a possibly-overshooting answer beats
// exhausting memory on it.
func ComputeMinCost(packs []Pack, qty int64) Calculation {
	none := Calculation{Total: 0, Method: MethodNone, Packs: []UsedPack{}}
	if len(packs) == 0 || qty <= 0 {
		return none
	}

	valid := make([]Pack, 0, len(packs))
	for _, p := range packs {
		if p.Qty > 0 && p.Price >= 0 {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return none
	}

	if qty <= MaxExactQty {
		if calc, ok := solveExact(valid, qty); ok {
			return calc
		}
	}
	return solveCeil(valid, qty)
}

// MaxExactQty is the largest requested quantity solved with the exact DP.
const MaxExactQty = 1_000_000

const unreachable = math.MaxInt64 / 2

// solveExact runs the DP over 0..qty. cost[q] is the minimum price covering
// exactly q units; choice[q] records the pack index achieving it so the
// combination can be reconstructed.
func solveExact(packs []Pack, qty int64) (Calculation, bool) {
	n := int(qty)
	cost := make([]int64, n+1)
	choice := make([]int, n+1)
	for q := 1; q <= n; q++ {
		cost[q] = unreachable
		choice[q] = -1
	}

	for q := 1; q <= n; q++ {
		for i, p := range packs {
			if p.Qty > int64(q) {
				continue
			}
			if c := cost[q-int(p.Qty)] + p.Price; c < cost[q] {
				cost[q] = c
				choice[q] = i
			}
		}
	}

	if cost[n] >= unreachable {
		return Calculation{}, false
	}

	counts := make(map[int]int64)
	for q := n; q > 0 && choice[q] != -1; {
		i := choice[q]
		counts[i]++
		q -= int(packs[i].Qty)
	}

	used := make([]UsedPack, 0, len(counts))
	var total int64
	for i, count := range counts {
		p := packs[i]
		subtotal := count * p.Price
		total += subtotal
		used = append(used, UsedPack{
			Qty:      p.Qty,
			Count:    count,
			Price:    p.Price,
			Subtotal: subtotal,
		})
	}
	sort.Slice(used, func(a, b int) bool { return used[a].Qty < used[b].Qty })

	return Calculation{Total: total, Method: MethodDP, Packs: used}, true
}

// solveCeil covers qty with copies of the single pack having the lowest
// price per unit. Ratios are compared by cross-multiplication so ties keep
// the first pack in input order.
func solveCeil(packs []Pack, qty int64) Calculation {
	best := packs[0]
	for _, p := range packs[1:] {
		if p.Price*best.Qty < best.Price*p.Qty {
			best = p
		}
	}

	count := (qty + best.Qty - 1) / best.Qty
	subtotal := count * best.Price

	return Calculation{
		Total:  subtotal,
		Method: MethodGreedyCeil,
		Packs: []UsedPack{{
			Qty:      best.Qty,
			Count:    count,
			Price:    best.Price,
			Subtotal: subtotal,
		}},
	}
}
