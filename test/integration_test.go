//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/freshbasket/checkout/internal/addresses"
	"github.com/freshbasket/checkout/internal/cart"
	"github.com/freshbasket/checkout/internal/catalog"
	"github.com/freshbasket/checkout/internal/checkout"
	"github.com/freshbasket/checkout/internal/domain"
	"github.com/freshbasket/checkout/internal/orders"
)

var testPolicy = checkout.Policy{
	FreeDeliveryThreshold: 50000,
	DeliveryFee:           4000,
	TaxRateBps:            500,
}

type fixture struct {
	db          *sql.DB
	catalogRepo *catalog.Repository
	cartRepo    *cart.Repository
	orderRepo   *orders.Repository
	checkout    *checkout.Handler
	orders      *orders.Handler
	cart        *cart.Handler
}

func newFixture(t *testing.T, connStr string) *fixture {
	t.Helper()

	db, err := OpenDB(connStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cartRepo := cart.NewRepository(db)
	engine := checkout.NewEngine(checkout.NewSQLStore(db), testPolicy, nil, logger)

	return &fixture{
		db:          db,
		catalogRepo: catalog.NewRepository(db),
		cartRepo:    cartRepo,
		orderRepo:   orders.NewRepository(db),
		checkout:    checkout.NewHandler(engine, cartRepo, nil, logger),
		orders:      orders.NewHandler(orders.NewRepository(db), nil, nil, logger),
		cart:        cart.NewHandler(cartRepo, logger),
	}
}

func seedProduct(t *testing.T, db *sql.DB, name string, price int64, stock int) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO products (id, name, brand, category, price, mrp, stock, image, unit, active)
		VALUES ($1, $2, 'FreshBasket', 'staples', $3, $3, $4, '', '1 kg', TRUE)
	`, id, name, price, stock)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", name, err)
	}
	return id
}

func seedVariant(t *testing.T, db *sql.DB, productID, label string, price int64, stock int) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO product_variants (id, product_id, label, price, mrp, stock, active)
		VALUES ($1, $2, $3, $4, $4, $5, TRUE)
	`, id, productID, label, price, stock)
	if err != nil {
		t.Fatalf("failed to seed variant %s: %v", label, err)
	}
	return id
}

func seedAddress(t *testing.T, db *sql.DB, userID string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO addresses (id, user_id, label, line1, line2, city, pincode, phone)
		VALUES ($1, $2, 'Home', '12 MG Road', '', 'Bengaluru', '560001', '9800000000')
	`, id, userID)
	if err != nil {
		t.Fatalf("failed to seed address: %v", err)
	}
	return id
}

func seedCoupon(t *testing.T, db *sql.DB, code string, value, minOrder int64, usageLimit *int) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO coupons (id, code, discount_type, discount_value, min_order_value,
		                     max_discount, valid_from, valid_to, usage_limit, used_count, active)
		VALUES ($1, $2, 'FIXED', $3, $4, NULL, NOW() - INTERVAL '1 hour', NOW() + INTERVAL '1 hour', $5, 0, TRUE)
	`, uuid.New().String(), code, value, minOrder, usageLimit)
	if err != nil {
		t.Fatalf("failed to seed coupon %s: %v", code, err)
	}
}

func placeOrder(t *testing.T, h *checkout.Handler, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)
	return rec
}

func TestCheckoutFromCart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	f := newFixture(t, pg.ConnStr)

	userID := "user-cart-1"
	riceID := seedProduct(t, f.db, "Basmati Rice", 2800, 5)
	dalID := seedProduct(t, f.db, "Toor Dal", 15000, 10)
	addressID := seedAddress(t, f.db, userID)
	seedCoupon(t, f.db, "SAVE20", 2000, 10000, nil)

	if _, err := f.cartRepo.AddLine(ctx, userID, riceID, "", 2); err != nil {
		t.Fatalf("failed to add rice to cart: %v", err)
	}
	if _, err := f.cartRepo.AddLine(ctx, userID, dalID, "", 1); err != nil {
		t.Fatalf("failed to add dal to cart: %v", err)
	}

	body := fmt.Sprintf(`{"address_id": %q, "coupon_code": "save20", "delivery_slot": "today 6-8pm"}`, addressID)
	rec := placeOrder(t, f.checkout, userID, body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var order domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	// subtotal 2*2800 + 15000 = 20600; fixed 2000 off; fee below threshold;
	// taxes 5% of 18600.
	if order.Subtotal != 20600 {
		t.Errorf("expected subtotal 20600, got %d", order.Subtotal)
	}
	if order.Discount != 2000 {
		t.Errorf("expected discount 2000, got %d", order.Discount)
	}
	if order.DeliveryFee != 4000 {
		t.Errorf("expected delivery fee 4000, got %d", order.DeliveryFee)
	}
	if order.Taxes != 930 {
		t.Errorf("expected taxes 930, got %d", order.Taxes)
	}
	if order.Total != 23530 {
		t.Errorf("expected total 23530, got %d", order.Total)
	}
	if order.Status != domain.OrderStatusReceived {
		t.Errorf("expected status %s, got %s", domain.OrderStatusReceived, order.Status)
	}
	if order.CouponCode != "SAVE20" {
		t.Errorf("expected coupon code SAVE20, got %q", order.CouponCode)
	}

	stock, err := f.catalogRepo.AvailableStock(ctx, riceID, "")
	if err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	if stock != 3 {
		t.Errorf("expected rice stock 3 after checkout, got %d", stock)
	}

	lines, err := f.cartRepo.List(ctx, userID)
	if err != nil {
		t.Fatalf("failed to list cart: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected cart cleared after checkout, got %d lines", len(lines))
	}

	var usedCount int
	if err := f.db.QueryRow(`SELECT used_count FROM coupons WHERE code = 'SAVE20'`).Scan(&usedCount); err != nil {
		t.Fatalf("failed to read coupon usage: %v", err)
	}
	if usedCount != 1 {
		t.Errorf("expected coupon used_count 1, got %d", usedCount)
	}

	stored, err := f.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if stored == nil {
		t.Fatal("order not found in database")
	}
	if len(stored.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(stored.Items))
	}
}

func TestConcurrentCheckoutOversell(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	f := newFixture(t, pg.ConnStr)

	productID := seedProduct(t, f.db, "Organic Honey", 24000, 5)
	addr1 := seedAddress(t, f.db, "user-a")
	addr2 := seedAddress(t, f.db, "user-b")

	type result struct {
		code int
		body string
	}
	results := make([]result, 2)

	var wg sync.WaitGroup
	for i, u := range []struct{ user, addr string }{
		{"user-a", addr1},
		{"user-b", addr2},
	} {
		wg.Add(1)
		go func(i int, user, addr string) {
			defer wg.Done()
			body := fmt.Sprintf(`{"address_id": %q, "items": [{"product_id": %q, "quantity": 3}]}`, addr, productID)
			rec := placeOrder(t, f.checkout, user, body)
			results[i] = result{code: rec.Code, body: rec.Body.String()}
		}(i, u.user, u.addr)
	}
	wg.Wait()

	var won, lost int
	var loserBody string
	for _, r := range results {
		switch r.code {
		case http.StatusCreated:
			won++
		case http.StatusConflict:
			lost++
			loserBody = r.body
		default:
			t.Fatalf("unexpected status %d: %s", r.code, r.body)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("expected exactly one winner and one conflict, got %d/%d: %+v", won, lost, results)
	}

	var conflict struct {
		Item      string `json:"item"`
		Available int    `json:"available"`
	}
	if err := json.Unmarshal([]byte(loserBody), &conflict); err != nil {
		t.Fatalf("failed to decode conflict body: %v", err)
	}
	if conflict.Available != 2 {
		t.Errorf("expected loser to see 2 available, got %d", conflict.Available)
	}

	stock, err := f.catalogRepo.AvailableStock(ctx, productID, "")
	if err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	if stock != 2 {
		t.Errorf("expected stock 2 after one successful order, got %d", stock)
	}
}

func TestCancellationRestoresStock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	f := newFixture(t, pg.ConnStr)

	userID := "user-cancel-1"
	productID := seedProduct(t, f.db, "Cold Pressed Oil", 32000, 8)
	variantID := seedVariant(t, f.db, productID, "5 l can", 140000, 3)
	addressID := seedAddress(t, f.db, userID)

	body := fmt.Sprintf(`{"address_id": %q, "items": [
		{"product_id": %q, "quantity": 2},
		{"product_id": %q, "variant_id": %q, "quantity": 1}
	]}`, addressID, productID, productID, variantID)
	rec := placeOrder(t, f.checkout, userID, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout failed: %d %s", rec.Code, rec.Body.String())
	}

	var order domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	cancelReq := httptest.NewRequest(http.MethodPost, "/orders/"+order.ID+"/cancel", nil)
	cancelReq.SetPathValue("id", order.ID)
	cancelReq.Header.Set("X-User-ID", userID)
	cancelRec := httptest.NewRecorder()
	f.orders.HandleCancel(cancelRec, cancelReq)

	if cancelRec.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d %s", cancelRec.Code, cancelRec.Body.String())
	}

	var canceled domain.Order
	if err := json.NewDecoder(cancelRec.Body).Decode(&canceled); err != nil {
		t.Fatalf("failed to decode canceled order: %v", err)
	}
	if canceled.Status != domain.OrderStatusCanceled {
		t.Errorf("expected status %s, got %s", domain.OrderStatusCanceled, canceled.Status)
	}

	productStock, err := f.catalogRepo.AvailableStock(ctx, productID, "")
	if err != nil {
		t.Fatalf("failed to read product stock: %v", err)
	}
	if productStock != 8 {
		t.Errorf("expected product stock restored to 8, got %d", productStock)
	}
	variantStock, err := f.catalogRepo.AvailableStock(ctx, productID, variantID)
	if err != nil {
		t.Fatalf("failed to read variant stock: %v", err)
	}
	if variantStock != 3 {
		t.Errorf("expected variant stock restored to 3, got %d", variantStock)
	}

	// A second cancel must not restore stock again.
	cancelRec = httptest.NewRecorder()
	cancelReq = httptest.NewRequest(http.MethodPost, "/orders/"+order.ID+"/cancel", nil)
	cancelReq.SetPathValue("id", order.ID)
	cancelReq.Header.Set("X-User-ID", userID)
	f.orders.HandleCancel(cancelRec, cancelReq)

	if cancelRec.Code != http.StatusConflict {
		t.Fatalf("expected second cancel to return %d, got %d", http.StatusConflict, cancelRec.Code)
	}
	productStock, _ = f.catalogRepo.AvailableStock(ctx, productID, "")
	if productStock != 8 {
		t.Errorf("expected product stock still 8 after repeated cancel, got %d", productStock)
	}
}

func TestCouponUsageLimit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	f := newFixture(t, pg.ConnStr)

	userID := "user-coupon-1"
	productID := seedProduct(t, f.db, "Filter Coffee", 18000, 20)
	addressID := seedAddress(t, f.db, userID)

	limit := 1
	seedCoupon(t, f.db, "ONCE", 1500, 0, &limit)

	body := fmt.Sprintf(`{"address_id": %q, "coupon_code": "ONCE", "items": [{"product_id": %q, "quantity": 1}]}`, addressID, productID)

	rec := placeOrder(t, f.checkout, userID, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first checkout failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = placeOrder(t, f.checkout, userID, body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected second use to return %d, got %d: %s", http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	}

	stock, err := f.catalogRepo.AvailableStock(ctx, productID, "")
	if err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	if stock != 19 {
		t.Errorf("expected rejected order to leave stock at 19, got %d", stock)
	}
}

func TestOrderSnapshotSurvivesPriceChange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	f := newFixture(t, pg.ConnStr)

	userID := "user-snapshot-1"
	productID := seedProduct(t, f.db, "Ghee", 55000, 6)
	addressID := seedAddress(t, f.db, userID)

	body := fmt.Sprintf(`{"address_id": %q, "items": [{"product_id": %q, "quantity": 1}]}`, addressID, productID)
	rec := placeOrder(t, f.checkout, userID, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout failed: %d %s", rec.Code, rec.Body.String())
	}

	var order domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	if _, err := f.db.Exec(`UPDATE products SET price = 99000, name = 'Ghee (new batch)' WHERE id = $1`, productID); err != nil {
		t.Fatalf("failed to update product: %v", err)
	}

	stored, err := f.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if len(stored.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(stored.Items))
	}
	if stored.Items[0].Price != 55000 {
		t.Errorf("expected snapshot price 55000, got %d", stored.Items[0].Price)
	}
	if stored.Items[0].Name != "Ghee" {
		t.Errorf("expected snapshot name 'Ghee', got %q", stored.Items[0].Name)
	}
	if stored.Total != order.Total {
		t.Errorf("expected total frozen at %d, got %d", order.Total, stored.Total)
	}
}

func TestAddressOwnership(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	f := newFixture(t, pg.ConnStr)

	productID := seedProduct(t, f.db, "Jaggery", 9000, 10)
	otherAddress := seedAddress(t, f.db, "someone-else")

	body := fmt.Sprintf(`{"address_id": %q, "items": [{"product_id": %q, "quantity": 1}]}`, otherAddress, productID)
	rec := placeOrder(t, f.checkout, "user-intruder", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d for another user's address, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}

	stock, err := f.catalogRepo.AvailableStock(ctx, productID, "")
	if err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	if stock != 10 {
		t.Errorf("expected stock untouched at 10, got %d", stock)
	}

	repo := addresses.NewRepository(f.db)
	got, err := repo.GetForUser(ctx, otherAddress, "user-intruder")
	if err != nil {
		t.Fatalf("failed to look up address: %v", err)
	}
	if got != nil {
		t.Error("expected address lookup scoped to owner to return nothing")
	}
}

func TestCartLineMergeAndLimits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	f := newFixture(t, pg.ConnStr)

	userID := "user-cart-merge"
	productID := seedProduct(t, f.db, "Brown Eggs", 8000, 4)

	addLine := func(qty int) *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"product_id": %q, "quantity": %d}`, productID, qty)
		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", userID)
		rec := httptest.NewRecorder()
		f.cart.HandleAddLine(rec, req)
		return rec
	}

	if rec := addLine(2); rec.Code != http.StatusOK {
		t.Fatalf("first add failed: %d %s", rec.Code, rec.Body.String())
	}

	// Same product again merges into one line.
	rec := addLine(1)
	if rec.Code != http.StatusOK {
		t.Fatalf("second add failed: %d %s", rec.Code, rec.Body.String())
	}
	var line domain.CartLine
	if err := json.NewDecoder(rec.Body).Decode(&line); err != nil {
		t.Fatalf("failed to decode line: %v", err)
	}
	if line.Quantity != 3 {
		t.Errorf("expected merged quantity 3, got %d", line.Quantity)
	}

	lines, err := f.cartRepo.List(ctx, userID)
	if err != nil {
		t.Fatalf("failed to list cart: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 merged line, got %d", len(lines))
	}

	// Merging past available stock is rejected and leaves the line alone.
	if rec := addLine(2); rec.Code != http.StatusConflict {
		t.Fatalf("expected %d when merged quantity exceeds stock, got %d: %s", http.StatusConflict, rec.Code, rec.Body.String())
	}
	lines, _ = f.cartRepo.List(ctx, userID)
	if lines[0].Quantity != 3 {
		t.Errorf("expected quantity still 3 after rejected merge, got %d", lines[0].Quantity)
	}

	// Updating to zero removes the line.
	updateReq := httptest.NewRequest(http.MethodPatch, "/cart/items/"+line.ID, strings.NewReader(`{"quantity": 0}`))
	updateReq.SetPathValue("id", line.ID)
	updateReq.Header.Set("Content-Type", "application/json")
	updateReq.Header.Set("X-User-ID", userID)
	updateRec := httptest.NewRecorder()
	f.cart.HandleUpdateLine(updateRec, updateReq)

	if updateRec.Code != http.StatusNoContent {
		t.Fatalf("expected %d for zero-quantity update, got %d: %s", http.StatusNoContent, updateRec.Code, updateRec.Body.String())
	}
	lines, _ = f.cartRepo.List(ctx, userID)
	if len(lines) != 0 {
		t.Errorf("expected empty cart after zero-quantity update, got %d lines", len(lines))
	}
}

func TestKafkaConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	if len(brokers) == 0 {
		t.Fatal("expected at least one broker")
	}

	t.Logf("kafka brokers: %v", brokers)
}
