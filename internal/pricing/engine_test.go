package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMinCost(t *testing.T) {
	tests := []struct {
		name       string
		packs      []Pack
		qty        int64
		wantTotal  int64
		wantMethod Method
		wantPacks  []UsedPack
	}{
		{
			name:       "single ten pack beats two five packs",
			packs:      []Pack{{Qty: 5, Price: 100}, {Qty: 10, Price: 180}},
			qty:        10,
			wantTotal:  180,
			wantMethod: MethodDP,
			wantPacks:  []UsedPack{{Qty: 10, Count: 1, Price: 180, Subtotal: 180}},
		},
		{
			name:       "mix of pack sizes",
			packs:      []Pack{{Qty: 2, Price: 30}, {Qty: 5, Price: 60}},
			qty:        9,
			wantTotal:  120,
			wantMethod: MethodDP,
			wantPacks: []UsedPack{
				{Qty: 2, Count: 2, Price: 30, Subtotal: 60},
				{Qty: 5, Count: 1, Price: 60, Subtotal: 60},
			},
		},
		{
			name:       "exact quantity unreachable falls back to ceil",
			packs:      []Pack{{Qty: 3, Price: 50}},
			qty:        4,
			wantTotal:  100,
			wantMethod: MethodGreedyCeil,
			wantPacks:  []UsedPack{{Qty: 3, Count: 2, Price: 50, Subtotal: 100}},
		},
		{
			name:       "ceil picks best unit price",
			packs:      []Pack{{Qty: 4, Price: 100}, {Qty: 6, Price: 120}},
			qty:        5,
			wantTotal:  120,
			wantMethod: MethodGreedyCeil,
			wantPacks:  []UsedPack{{Qty: 6, Count: 1, Price: 120, Subtotal: 120}},
		},
		{
			name:       "unit ratio tie keeps first pack",
			packs:      []Pack{{Qty: 4, Price: 80}, {Qty: 6, Price: 120}},
			qty:        5,
			wantTotal:  160,
			wantMethod: MethodGreedyCeil,
			wantPacks:  []UsedPack{{Qty: 4, Count: 2, Price: 80, Subtotal: 160}},
		},
		{
			name:       "empty packs",
			packs:      nil,
			qty:        5,
			wantTotal:  0,
			wantMethod: MethodNone,
			wantPacks:  []UsedPack{},
		},
		{
			name:       "zero quantity",
			packs:      []Pack{{Qty: 5, Price: 100}},
			qty:        0,
			wantTotal:  0,
			wantMethod: MethodNone,
			wantPacks:  []UsedPack{},
		},
		{
			name:       "negative quantity",
			packs:      []Pack{{Qty: 5, Price: 100}},
			qty:        -3,
			wantTotal:  0,
			wantMethod: MethodNone,
			wantPacks:  []UsedPack{},
		},
		{
			name:       "malformed packs filtered before optimization",
			packs:      []Pack{{Qty: 0, Price: 10}, {Qty: 3, Price: -1}, {Qty: 2, Price: 40}},
			qty:        4,
			wantTotal:  80,
			wantMethod: MethodDP,
			wantPacks:  []UsedPack{{Qty: 2, Count: 2, Price: 40, Subtotal: 80}},
		},
		{
			name:       "all packs malformed",
			packs:      []Pack{{Qty: 0, Price: 10}, {Qty: -5, Price: 3}},
			qty:        4,
			wantTotal:  0,
			wantMethod: MethodNone,
			wantPacks:  []UsedPack{},
		},
		{
			name:       "free pack is usable",
			packs:      []Pack{{Qty: 1, Price: 0}},
			qty:        3,
			wantTotal:  0,
			wantMethod: MethodDP,
			wantPacks:  []UsedPack{{Qty: 1, Count: 3, Price: 0, Subtotal: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeMinCost(tt.packs, tt.qty)

			assert.Equal(t, tt.wantMethod, got.Method)
			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Equal(t, tt.wantPacks, got.Packs)
		})
	}
}

func TestComputeMinCost_Invariants(t *testing.T) {
	packs := []Pack{{Qty: 2, Price: 35}, {Qty: 3, Price: 45}, {Qty: 7, Price: 90}}

	for qty := int64(1); qty <= 40; qty++ {
		got := ComputeMinCost(packs, qty)
		require.NotEqual(t, MethodNone, got.Method, "qty=%d", qty)

		assert.True(t, got.Covers(qty), "qty=%d must be covered", qty)

		var sum int64
		for _, p := range got.Packs {
			assert.Equal(t, p.Count*p.Price, p.Subtotal, "qty=%d", qty)
			sum += p.Subtotal
		}
		assert.Equal(t, got.Total, sum, "qty=%d subtotals must sum to total", qty)

		if got.Method == MethodDP {
			assert.Equal(t, bruteForceMin(packs, qty), got.Total, "qty=%d", qty)
		}
	}
}

func TestComputeMinCost_Idempotent(t *testing.T) {
	packs := []Pack{{Qty: 5, Price: 100}, {Qty: 10, Price: 180}, {Qty: 3, Price: 70}}

	first := ComputeMinCost(packs, 23)
	second := ComputeMinCost(packs, 23)
	assert.Equal(t, first, second)
}

func TestComputeMinCost_PacksSortedByQty(t *testing.T) {
	packs := []Pack{{Qty: 10, Price: 170}, {Qty: 1, Price: 25}, {Qty: 5, Price: 95}}

	got := ComputeMinCost(packs, 16)
	require.Equal(t, MethodDP, got.Method)
	for i := 1; i < len(got.Packs); i++ {
		assert.Less(t, got.Packs[i-1].Qty, got.Packs[i].Qty)
	}
}

func TestComputeMinCost_HugeQtySkipsExactSolve(t *testing.T) {
	packs := []Pack{{Qty: 1, Price: 2}, {Qty: 3, Price: 5}}
	qty := int64(1) << 42

	// Quantities past MaxExactQty must not allocate DP state; the greedy
	// cover still answers, using the cheapest per-unit pack.
	got := ComputeMinCost(packs, qty)

	require.Equal(t, MethodGreedyCeil, got.Method)
	require.Len(t, got.Packs, 1)

	count := (qty + 2) / 3
	assert.Equal(t, int64(3), got.Packs[0].Qty)
	assert.Equal(t, count, got.Packs[0].Count)
	assert.Equal(t, count*5, got.Total)
}

func TestComputeMinCost_ThresholdBoundaryStaysExact(t *testing.T) {
	packs := []Pack{{Qty: 1, Price: 7}}

	got := ComputeMinCost(packs, MaxExactQty)

	assert.Equal(t, MethodDP, got.Method)
	assert.Equal(t, int64(MaxExactQty)*7, got.Total)
}

// bruteForceMin exhaustively searches pack count combinations reaching qty
// exactly. Only usable for small quantities.
func bruteForceMin(packs []Pack, qty int64) int64 {
	best := int64(unreachable)
	var walk func(remaining, spent int64, i int)
	walk = func(remaining, spent int64, i int) {
		if remaining == 0 {
			if spent < best {
				best = spent
			}
			return
		}
		if i == len(packs) || spent >= best {
			return
		}
		for n := int64(0); n*packs[i].Qty <= remaining; n++ {
			walk(remaining-n*packs[i].Qty, spent+n*packs[i].Price, i+1)
		}
	}
	walk(qty, 0, 0)
	return best
}
