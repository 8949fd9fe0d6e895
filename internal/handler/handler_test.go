package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/payments"
)

const testSecret = "test-secret"

type memCatalog struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*product.Product
}

func newMemCatalog() *memCatalog {
	return &memCatalog{products: make(map[int64]*product.Product)}
}

func (c *memCatalog) add(name string, price string, stock int) *product.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	p := &product.Product{
		ID:        c.nextID,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  "test",
		Stock:     stock,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	c.products[p.ID] = p
	return p
}

func (c *memCatalog) List(ctx context.Context) ([]product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []product.Product
	for _, p := range c.products {
		if !p.IsArchived {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (c *memCatalog) ListArchived(ctx context.Context) ([]product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []product.Product
	for _, p := range c.products {
		if p.IsArchived {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (c *memCatalog) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *memCatalog) GetByName(ctx context.Context, name string) (*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var found *product.Product
	for _, p := range c.products {
		if p.Name == name && (found == nil || p.ID < found.ID) {
			found = p
		}
	}
	if found == nil {
		return nil, product.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (c *memCatalog) Create(ctx context.Context, p *product.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	p.ID = c.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	c.products[p.ID] = &cp
	return nil
}

func (c *memCatalog) Update(ctx context.Context, p *product.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.products[p.ID]
	if !ok {
		return product.ErrNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.Category = p.Category
	cur.Stock = p.Stock
	cur.UpdatedAt = time.Now()
	return nil
}

func (c *memCatalog) UpdateStock(ctx context.Context, id int64, stock int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return product.ErrNotFound
	}
	p.Stock = stock
	return nil
}

func (c *memCatalog) Archive(ctx context.Context, id int64) error {
	return c.setArchived(id, true)
}

func (c *memCatalog) Restore(ctx context.Context, id int64) error {
	return c.setArchived(id, false)
}

func (c *memCatalog) setArchived(id int64, archived bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return product.ErrNotFound
	}
	p.IsArchived = archived
	return nil
}

// memStore keeps orders in memory and moves stock in the shared catalog the
// way the transactional store does against the database.
type memStore struct {
	mu      sync.Mutex
	catalog *memCatalog
	nextID  int64
	orders  map[int64]*order.Order
}

func newMemStore(catalog *memCatalog) *memStore {
	return &memStore{catalog: catalog, orders: make(map[int64]*order.Order)}
}

func (s *memStore) Place(ctx context.Context, o *order.Order, reservations []order.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()

	for _, res := range reservations {
		p, ok := s.catalog.products[res.ProductID]
		if !ok {
			return product.ErrNotFound
		}
		if p.Stock < res.Qty {
			return &order.InsufficientStockError{
				Name:      p.Name,
				Requested: res.Qty,
				Available: p.Stock,
			}
		}
	}
	for _, res := range reservations {
		s.catalog.products[res.ProductID].Stock -= res.Qty
	}

	s.nextID++
	o.ID = s.nextID
	o.OrderNumber = o.OrderNumber + "-" + strconv.FormatInt(reservations[0].ProductID, 10)
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *memStore) GetForUser(ctx context.Context, id, userID int64, admin bool) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || (!admin && o.UserID != userID) {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) ListForUser(ctx context.Context, userID int64) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	return nil
}

func (s *memStore) Cancel(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()

	stored, ok := s.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if stored.Status == order.StatusCancelled {
		return order.ErrAlreadyCancelled
	}
	stored.Status = order.StatusCancelled

	for _, item := range o.Items {
		for _, p := range s.catalog.products {
			if p.Name == item.Name {
				p.Stock += item.Qty
				break
			}
		}
	}
	return nil
}

type testEnv struct {
	router  chi.Router
	catalog *memCatalog
	store   *memStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	catalog := newMemCatalog()
	store := newMemStore(catalog)
	validator := order.NewValidator(catalog)
	svc := order.NewService(catalog, validator, store, order.NopEvents{})
	h := New(catalog, validator, svc, payments.New("", ""), auth.NewTokenParser([]byte(testSecret)))
	return &testEnv{router: h.Routes(), catalog: catalog, store: store}
}

func signToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestValidateOrder_Valid(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.add("Widget", "100.00", 10)

	rec := env.do(t, http.MethodPost, "/orders/validate", "", map[string]any{
		"items": []map[string]any{{"name": "Widget", "price": 100.00, "qty": 2}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeResponse[map[string]any](t, rec)
	assert.Equal(t, true, body["valid"])
}

func TestValidateOrder_ReportsEveryProblem(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.add("Widget", "100.00", 5)

	rec := env.do(t, http.MethodPost, "/orders/validate", "", map[string]any{
		"items": []map[string]any{
			{"name": "Widget", "price": 90.00, "qty": 6},
			{"name": "Gone", "price": 10.00, "qty": 1},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeResponse[struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}](t, rec)
	assert.False(t, body.Valid)
	assert.Contains(t, body.Errors, `Insufficient stock for "Widget". Requested: 6, Available: 5`)
	assert.Contains(t, body.Errors, `Price mismatch for "Widget". Current price: ₱100.00`)
	assert.Contains(t, body.Errors, `Product "Gone" not found`)
}

func TestPlaceOrder_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/orders/", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/orders/", "not-a-jwt", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrder_Created(t *testing.T) {
	env := newTestEnv(t)
	p := env.catalog.add("Widget", "100.00", 10)
	token := signToken(t, 7, "customer")

	rec := env.do(t, http.MethodPost, "/orders/", token, map[string]any{
		"items":         []map[string]any{{"name": "Widget", "price": 100.00, "qty": 3}},
		"shippingInfo":  map[string]any{"fullName": "Jamie Cruz", "city": "Manila"},
		"total":         300.00,
		"paymentMethod": "card",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeResponse[placedResponse](t, rec)
	assert.Regexp(t, `^\d{8}-\d{4}-1$`, body.OrderID)
	assert.Equal(t, "Pending Payment", body.Status)
	assert.InDelta(t, 300.00, body.Total, 0.001)

	got, err := env.catalog.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
}

func TestPlaceOrder_TotalMismatchIsConflict(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.add("Widget", "100.00", 10)
	token := signToken(t, 7, "customer")

	rec := env.do(t, http.MethodPost, "/orders/", token, map[string]any{
		"items":         []map[string]any{{"name": "Widget", "price": 100.00, "qty": 3}},
		"shippingInfo":  map[string]any{"fullName": "Jamie Cruz"},
		"total":         310.00,
		"paymentMethod": "card",
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeResponse[errorResponse](t, rec)
	assert.Equal(t, "Total amount mismatch. Expected: ₱300.00, Received: ₱310.00", body.Message)
}

func TestPlaceOrder_ValidationFailureIs400WithErrors(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.add("Widget", "100.00", 0)
	token := signToken(t, 7, "customer")

	rec := env.do(t, http.MethodPost, "/orders/", token, map[string]any{
		"items":         []map[string]any{{"name": "Widget", "price": 100.00, "qty": 1}},
		"shippingInfo":  map[string]any{"fullName": "Jamie Cruz"},
		"total":         100.00,
		"paymentMethod": "card",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeResponse[errorResponse](t, rec)
	assert.Equal(t, "Order validation failed", body.Message)
	assert.Contains(t, body.Errors, `Product "Widget" is out of stock`)
}

func TestGetOrder_ForeignOrderLooksMissing(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.add("Widget", "100.00", 10)
	owner := signToken(t, 7, "customer")
	stranger := signToken(t, 8, "customer")
	admin := signToken(t, 9, auth.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/orders/", owner, map[string]any{
		"items":         []map[string]any{{"name": "Widget", "price": 100.00, "qty": 1}},
		"shippingInfo":  map[string]any{"fullName": "Jamie Cruz"},
		"total":         100.00,
		"paymentMethod": "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	placed := decodeResponse[placedResponse](t, rec)
	path := "/orders/" + strconv.FormatInt(placed.ID, 10)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, stranger, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, admin, nil).Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.add("Widget", "100.00", 10)
	token := signToken(t, 7, "customer")

	rec := env.do(t, http.MethodPost, "/orders/", token, map[string]any{
		"items":         []map[string]any{{"name": "Widget", "price": 100.00, "qty": 1}},
		"shippingInfo":  map[string]any{"fullName": "Jamie Cruz"},
		"total":         100.00,
		"paymentMethod": "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	placed := decodeResponse[placedResponse](t, rec)
	path := "/orders/" + strconv.FormatInt(placed.ID, 10) + "/status"

	rec = env.do(t, http.MethodPatch, path, token, map[string]any{"status": "Paid"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Paid", decodeResponse[orderResponse](t, rec).Status)

	rec = env.do(t, http.MethodPatch, path, token, map[string]any{"status": "Shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelOrder_SecondCancelConflicts(t *testing.T) {
	env := newTestEnv(t)
	p := env.catalog.add("Widget", "100.00", 10)
	token := signToken(t, 7, "customer")

	rec := env.do(t, http.MethodPost, "/orders/", token, map[string]any{
		"items":         []map[string]any{{"name": "Widget", "price": 100.00, "qty": 4}},
		"shippingInfo":  map[string]any{"fullName": "Jamie Cruz"},
		"total":         400.00,
		"paymentMethod": "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	placed := decodeResponse[placedResponse](t, rec)
	path := "/orders/" + strconv.FormatInt(placed.ID, 10) + "/cancel"

	rec = env.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cancelled", decodeResponse[orderResponse](t, rec).Status)

	got, err := env.catalog.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	rec = env.do(t, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	got, err = env.catalog.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock, "stock must not be restored twice")
}

func TestProductAdmin_RequiresAdminRole(t *testing.T) {
	env := newTestEnv(t)
	customer := signToken(t, 7, "customer")
	admin := signToken(t, 9, auth.RoleAdmin)

	body := map[string]any{"name": "Gadget", "price": 49.50, "category": "test", "stock": 3}

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/products/", "", body).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/products/", customer, body).Code)

	rec := env.do(t, http.MethodPost, "/products/", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeResponse[productResponse](t, rec)
	assert.Equal(t, "Gadget", created.Name)
	assert.NotZero(t, created.ID)
}

func TestArchivedProductLeavesPublicListing(t *testing.T) {
	env := newTestEnv(t)
	p := env.catalog.add("Widget", "100.00", 10)
	admin := signToken(t, 9, auth.RoleAdmin)

	path := "/products/" + strconv.FormatInt(p.ID, 10)
	rec := env.do(t, http.MethodPost, path+"/archive", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	listing := decodeResponse[[]productResponse](t, env.do(t, http.MethodGet, "/products/", "", nil))
	assert.Empty(t, listing)

	// Still reachable by ID while archived.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, "", nil).Code)

	rec = env.do(t, http.MethodPost, path+"/restore", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing = decodeResponse[[]productResponse](t, env.do(t, http.MethodGet, "/products/", "", nil))
	assert.Len(t, listing, 1)
}

func TestCreatePaymentLink_Unconfigured(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, 7, "customer")

	rec := env.do(t, http.MethodPost, "/payments/link", token, map[string]any{
		"amount": 350.00, "description": "Order 20240101-0001-1",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodPost, "/payments/link", token, map[string]any{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
