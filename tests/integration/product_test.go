//go:build integration

package integration

import (
	"net/http"
	"strconv"
	"testing"
)

func TestListProducts_Seeded(t *testing.T) {
	resp := doGet(t, "/api/products/", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	byName := make(map[string]productResponse, len(products))
	for _, p := range products {
		byName[p.Name] = p
	}

	tee, ok := byName["Classic White Tee"]
	if !ok {
		t.Fatal("seeded product Classic White Tee missing from listing")
	}
	if tee.Price != 499.00 {
		t.Errorf("price: got %v, want 499.00", tee.Price)
	}
	if tee.Category != "apparel" {
		t.Errorf("category: got %q, want apparel", tee.Category)
	}
}

func TestProductManagement_AdminOnly(t *testing.T) {
	customer := signToken(t, 110, "customer")
	body := productRequest{Name: "Denied Product", Price: 10, Category: "test", Stock: 1}

	noAuth := doPost(t, "/api/products/", "", body)
	noAuth.Body.Close()
	if noAuth.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", noAuth.StatusCode)
	}

	forbidden := doPost(t, "/api/products/", customer, body)
	forbidden.Body.Close()
	if forbidden.StatusCode != http.StatusForbidden {
		t.Errorf("customer token: expected 403, got %d", forbidden.StatusCode)
	}
}

func TestArchiveProduct_HiddenFromListing(t *testing.T) {
	admin := signToken(t, 1, "admin")
	p := createProduct(t, admin, productRequest{
		Name:     "Seasonal Candle",
		Price:    320.00,
		Category: "homeware",
		Stock:    15,
	})
	idPath := "/api/products/" + strconv.FormatInt(p.ID, 10)

	resp := doPost(t, idPath+"/archive", admin, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d", resp.StatusCode)
	}

	listing := doGet(t, "/api/products/", "")
	products := decodeJSON[[]productResponse](t, listing)
	listing.Body.Close()
	for _, got := range products {
		if got.ID == p.ID {
			t.Error("archived product still in public listing")
		}
	}

	// Archived products stay reachable by ID and appear in the admin view.
	if got := getProduct(t, p.ID); !got.IsArchived {
		t.Error("product not flagged as archived")
	}

	archived := doGet(t, "/api/products/archived", admin)
	defer archived.Body.Close()
	if archived.StatusCode != http.StatusOK {
		t.Fatalf("archived listing: expected 200, got %d", archived.StatusCode)
	}
	found := false
	for _, got := range decodeJSON[[]productResponse](t, archived) {
		if got.ID == p.ID {
			found = true
		}
	}
	if !found {
		t.Error("archived product missing from admin archived listing")
	}

	restore := doPost(t, idPath+"/restore", admin, nil)
	restore.Body.Close()
	if restore.StatusCode != http.StatusOK {
		t.Fatalf("restore: expected 200, got %d", restore.StatusCode)
	}
	if got := getProduct(t, p.ID); got.IsArchived {
		t.Error("product still archived after restore")
	}
}

func TestOrderSurvivesProductArchival(t *testing.T) {
	admin := signToken(t, 1, "admin")
	token := signToken(t, 111, "customer")
	p := createProduct(t, admin, productRequest{
		Name:     "Discontinued Poster",
		Price:    450.00,
		Category: "art",
		Stock:    8,
	})

	resp := doPost(t, "/api/orders/", token, placeOrderRequest{
		Items:         []lineItem{{Name: p.Name, Price: 450.00, Qty: 2}},
		ShippingInfo:  shippingInfo{FullName: "Ana Reyes"},
		Total:         900.00,
		PaymentMethod: "card",
	})
	placed := decodeJSON[placedResponse](t, resp)
	resp.Body.Close()

	archive := doPost(t, "/api/products/"+strconv.FormatInt(p.ID, 10)+"/archive", admin, nil)
	archive.Body.Close()

	// The order keeps its name and price snapshot.
	get := doGet(t, "/api/orders/"+strconv.FormatInt(placed.ID, 10), token)
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", get.StatusCode)
	}
	o := decodeJSON[orderResponse](t, get)
	if len(o.Items) != 1 || o.Items[0].Name != p.Name || o.Items[0].Price != 450.00 {
		t.Errorf("order snapshot changed after archival: %+v", o.Items)
	}
}
