//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

// newTestPost creates a post with two item variants and returns its ID.
func newTestPost(t *testing.T) string {
	t.Helper()

	id := fmt.Sprintf("post-%d", time.Now().UnixNano())
	resp := doPost(t, "/api/groups/test-group/posts", postRequest{
		ID:          id,
		Description: "Áo thun cotton, size lớn và nhỏ",
		ImportPrice: 30,
		Items: []catalogItem{
			{
				Type: "size lớn",
				Prices: []pricePack{
					{Qty: 5, BundlePrice: 100},
					{Qty: 10, BundlePrice: 180},
				},
			},
			{
				Type:   "size nhỏ",
				Prices: []pricePack{{Qty: 1, BundlePrice: 25}},
			},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d", resp.StatusCode)
	}
	return id
}

func TestPost_CreateAndGet(t *testing.T) {
	id := newTestPost(t)

	resp := doGet(t, "/api/groups/test-group/posts/"+id)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[postResponse](t, resp)
	if p.ID != id {
		t.Errorf("id: got %q, want %q", p.ID, id)
	}
	if len(p.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(p.Items))
	}
	if p.ImportPrice != 30 {
		t.Errorf("import_price: got %v, want 30", p.ImportPrice)
	}
}

func TestPost_NotFound(t *testing.T) {
	resp := doGet(t, "/api/groups/test-group/posts/no-such-post")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPost_PatchImportPrice(t *testing.T) {
	id := newTestPost(t)

	resp := doPatch(t, "/api/groups/test-group/posts/"+id, map[string]any{
		"import_price": 42,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[postResponse](t, resp)
	if p.ImportPrice != 42 {
		t.Errorf("import_price: got %v, want 42", p.ImportPrice)
	}
}

func TestOrder_CreateWithBundlePricing(t *testing.T) {
	id := newTestPost(t)

	resp := doPost(t, "/api/groups/test-group/posts/"+id+"/orders", orderRequest{
		CommentID:   "c-pricing",
		CommentText: "cho mình 10 cái size lớn",
		URL:         "https://facebook.com/users/1001",
		Qty:         10,
		Type:        "lớn",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if o.OrderID == "" {
		t.Error("order_id is empty")
	}
	if o.StatusCode != "NEW" {
		t.Errorf("status_code: got %q, want NEW", o.StatusCode)
	}
	if o.MatchedItem == nil || o.MatchedItem.Type != "size lớn" {
		t.Errorf("matched_item: got %+v, want type \"size lớn\"", o.MatchedItem)
	}
	if o.PriceCalc == nil {
		t.Fatal("price_calc missing")
	}
	// One 10-pack at 180 beats two 5-packs at 200.
	if o.PriceCalc.Total != 180 {
		t.Errorf("total: got %v, want 180", o.PriceCalc.Total)
	}
	if o.PriceCalc.Method != "dp" {
		t.Errorf("method: got %q, want dp", o.PriceCalc.Method)
	}
	if len(o.StatusHistory) != 1 || o.StatusHistory[0].StatusCode != "NEW" {
		t.Errorf("status_history: got %+v, want one NEW entry", o.StatusHistory)
	}
}

func TestOrder_DuplicateComment(t *testing.T) {
	id := newTestPost(t)

	first := doPost(t, "/api/groups/test-group/posts/"+id+"/orders", orderRequest{
		CommentID: "c-dup",
		Qty:       1,
		Type:      "nhỏ",
	})
	first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", first.StatusCode)
	}

	second := doPost(t, "/api/groups/test-group/posts/"+id+"/orders", orderRequest{
		CommentID: "c-dup",
		Qty:       2,
		Type:      "nhỏ",
	})
	defer second.Body.Close()

	if second.StatusCode != http.StatusConflict {
		t.Fatalf("second create: expected 409, got %d", second.StatusCode)
	}
}

func TestOrder_UnknownStatus(t *testing.T) {
	id := newTestPost(t)

	resp := doPost(t, "/api/groups/test-group/posts/"+id+"/orders", orderRequest{
		Qty:        1,
		StatusCode: "SHIPPED",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message == "" {
		t.Error("error message is empty")
	}
}

func TestOrder_ListAndStatusUpdate(t *testing.T) {
	id := newTestPost(t)

	created := doPost(t, "/api/groups/test-group/posts/"+id+"/orders", orderRequest{
		CommentID: "c-lifecycle",
		URL:       "https://facebook.com/users/2002",
		Qty:       3,
		Type:      "nhỏ",
	})
	o := decodeJSON[orderResponse](t, created)
	created.Body.Close()

	listResp := doGet(t, "/api/groups/test-group/posts/"+id+"/orders")
	orders := decodeJSON[[]orderResponse](t, listResp)
	listResp.Body.Close()

	if len(orders) != 1 || orders[0].OrderID != o.OrderID {
		t.Fatalf("list: got %+v, want the created order", orders)
	}

	patchResp := doPatch(t, "/api/groups/test-group/orders/"+o.OrderID+"/status", map[string]any{
		"new_status_code": "DONE",
		"note":            "đã giao",
		"actor":           "admin",
	})
	defer patchResp.Body.Close()

	if patchResp.StatusCode != http.StatusOK {
		t.Fatalf("patch status: expected 200, got %d", patchResp.StatusCode)
	}

	updated := decodeJSON[orderResponse](t, patchResp)
	if updated.StatusCode != "DONE" {
		t.Errorf("status_code: got %q, want DONE", updated.StatusCode)
	}
	if len(updated.StatusHistory) != 2 {
		t.Errorf("status_history: got %d entries, want 2", len(updated.StatusHistory))
	}
}

func TestOrder_ListUnknownPost(t *testing.T) {
	resp := doGet(t, "/api/groups/test-group/posts/no-such-post/orders")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStatuses_List(t *testing.T) {
	resp := doGet(t, "/api/statuses")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	statuses := decodeJSON[[]statusResponse](t, resp)
	if len(statuses) != 6 {
		t.Fatalf("got %d statuses, want 6", len(statuses))
	}
	if statuses[0].StatusCode != "NEW" {
		t.Errorf("first status: got %q, want NEW (view order)", statuses[0].StatusCode)
	}
}
