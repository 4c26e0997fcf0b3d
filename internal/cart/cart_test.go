package cart

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mmeshcher/freshveggies-system/internal/model"
)

type stubStorage struct {
	data    map[string][]byte
	saveErr error
	loadErr error
}

func newStubStorage() *stubStorage {
	return &stubStorage{data: make(map[string][]byte)}
}

func (s *stubStorage) Load(_ context.Context, key string) ([]byte, bool, error) {
	if s.loadErr != nil {
		return nil, false, s.loadErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *stubStorage) Save(_ context.Context, key string, value []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = value
	return nil
}

func (s *stubStorage) Remove(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func testProduct() model.Product {
	return model.Product{
		ID:         "P1",
		Name:       "Fresh Tomatoes",
		PricePerKg: 40,
		MinOrder:   1,
		MaxOrder:   50,
		Step:       5,
		InStock:    true,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAdd_NewItemTotal(t *testing.T) {
	c := New(newStubStorage(), "cart")

	if err := c.Add(context.Background(), testProduct(), 5); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if total := c.Total(); !almostEqual(total, 200) {
		t.Fatalf("Total = %v, want 200", total)
	}
	if count := c.ItemCount(); count != 5 {
		t.Fatalf("ItemCount = %d, want 5", count)
	}
}

func TestAdd_ExistingItemCapsAtMaxOrder(t *testing.T) {
	c := New(newStubStorage(), "cart")
	p := testProduct()

	if err := c.Add(context.Background(), p, 45); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := c.Add(context.Background(), p, 20); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	item, ok := c.Item("P1")
	if !ok {
		t.Fatalf("item P1 not in cart")
	}
	if item.Quantity != 50 {
		t.Fatalf("Quantity = %d, want 50 (45+20 capped at maxOrder)", item.Quantity)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (no duplicate entries)", c.Len())
	}
}

func TestAdd_NewItemClampedToBounds(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		want     int
	}{
		{name: "below minOrder", quantity: 0, want: 1},
		{name: "above maxOrder", quantity: 100, want: 50},
		{name: "within bounds", quantity: 10, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(newStubStorage(), "cart")

			if err := c.Add(context.Background(), testProduct(), tt.quantity); err != nil {
				t.Fatalf("Add error: %v", err)
			}

			item, _ := c.Item("P1")
			if item.Quantity != tt.want {
				t.Fatalf("Quantity = %d, want %d", item.Quantity, tt.want)
			}
		})
	}
}

func TestAdd_OutOfStock(t *testing.T) {
	c := New(newStubStorage(), "cart")
	p := testProduct()
	p.InStock = false

	err := c.Add(context.Background(), p, 5)
	if !errors.Is(err, model.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("out of stock product must not be added")
	}
}

func TestUpdateQuantity_Scenario(t *testing.T) {
	c := New(newStubStorage(), "cart")
	ctx := context.Background()

	if err := c.Add(ctx, testProduct(), 5); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if total := c.Total(); !almostEqual(total, 200) {
		t.Fatalf("Total = %v, want 200", total)
	}

	if err := c.UpdateQuantity(ctx, "P1", 3); err != nil {
		t.Fatalf("UpdateQuantity error: %v", err)
	}
	if total := c.Total(); !almostEqual(total, 120) {
		t.Fatalf("Total = %v, want 120", total)
	}

	if err := c.UpdateQuantity(ctx, "P1", 0); err != nil {
		t.Fatalf("UpdateQuantity(0) error: %v", err)
	}
	if total := c.Total(); !almostEqual(total, 0) {
		t.Fatalf("Total = %v, want 0 after removal", total)
	}
	if c.Contains("P1") {
		t.Fatalf("item must be removed when quantity <= 0")
	}
}

func TestUpdateQuantity_ClampsToBounds(t *testing.T) {
	c := New(newStubStorage(), "cart")
	ctx := context.Background()

	if err := c.Add(ctx, testProduct(), 5); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if err := c.UpdateQuantity(ctx, "P1", 500); err != nil {
		t.Fatalf("UpdateQuantity error: %v", err)
	}

	item, _ := c.Item("P1")
	if item.Quantity != 50 {
		t.Fatalf("Quantity = %d, want 50", item.Quantity)
	}
}

func TestUpdateQuantity_NotFound(t *testing.T) {
	c := New(newStubStorage(), "cart")

	err := c.UpdateQuantity(context.Background(), "missing", 3)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemove_Idempotent(t *testing.T) {
	c := New(newStubStorage(), "cart")
	ctx := context.Background()

	if err := c.Add(ctx, testProduct(), 5); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if err := c.Remove(ctx, "P1"); err != nil {
		t.Fatalf("first Remove error: %v", err)
	}
	if err := c.Remove(ctx, "P1"); err != nil {
		t.Fatalf("second Remove must be a no-op, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestRemove_DoesNotAffectOtherItems(t *testing.T) {
	c := New(newStubStorage(), "cart")
	ctx := context.Background()

	p2 := testProduct()
	p2.ID = "P2"
	p2.PricePerKg = 30

	if err := c.Add(ctx, testProduct(), 5); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := c.Add(ctx, p2, 2); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	before := c.Total()
	if err := c.Remove(ctx, "P1"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	if total := c.Total(); !almostEqual(before-total, 200) {
		t.Fatalf("removal changed total by %v, want exactly 200", before-total)
	}
}

func TestClear_RemovesStorageKey(t *testing.T) {
	storage := newStubStorage()
	c := New(storage, "cart")
	ctx := context.Background()

	if err := c.Add(ctx, testProduct(), 5); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if _, ok := storage.data["cart"]; !ok {
		t.Fatalf("cart key must exist after add")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}

	if _, ok := storage.data["cart"]; ok {
		t.Fatalf("Clear must delete the storage key, not save an empty list")
	}
	if c.Len() != 0 || c.ItemCount() != 0 {
		t.Fatalf("cart must be empty after Clear")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	storage := newStubStorage()
	ctx := context.Background()

	c := New(storage, "cart")
	p2 := testProduct()
	p2.ID = "P2"

	if err := c.Add(ctx, testProduct(), 5); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := c.Add(ctx, p2, 3); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	restored := New(storage, "cart")
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	origItems := c.Items()
	gotItems := restored.Items()
	if len(gotItems) != len(origItems) {
		t.Fatalf("restored %d items, want %d", len(gotItems), len(origItems))
	}
	for i := range origItems {
		if gotItems[i].Product.ID != origItems[i].Product.ID || gotItems[i].Quantity != origItems[i].Quantity {
			t.Fatalf("item %d = %+v, want %+v", i, gotItems[i], origItems[i])
		}
	}
}

func TestLoad_AbsentKeyMeansEmptyCart(t *testing.T) {
	c := New(newStubStorage(), "cart")

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestAdd_StorageFailureKeepsInMemoryState(t *testing.T) {
	storage := newStubStorage()
	storage.saveErr = errors.New("disk full")
	c := New(storage, "cart")

	err := c.Add(context.Background(), testProduct(), 5)
	if err == nil {
		t.Fatalf("expected storage error")
	}

	if !c.Contains("P1") {
		t.Fatalf("in-memory state must survive a storage failure")
	}
}

func TestEmptyCart(t *testing.T) {
	c := New(newStubStorage(), "cart")

	if total := c.Total(); total != 0 {
		t.Fatalf("Total = %v, want 0", total)
	}
	if count := c.ItemCount(); count != 0 {
		t.Fatalf("ItemCount = %d, want 0", count)
	}
	if c.Contains("P1") {
		t.Fatalf("empty cart must not contain items")
	}
}

func TestCalculateTax(t *testing.T) {
	if tax := CalculateTax(1000, DefaultTaxRate); !almostEqual(tax, 50) {
		t.Fatalf("CalculateTax(1000) = %v, want 50", tax)
	}

	// Линейность: tax(a) + tax(b) == tax(a+b)
	a, b := 123.45, 678.9
	if !almostEqual(CalculateTax(a, DefaultTaxRate)+CalculateTax(b, DefaultTaxRate), CalculateTax(a+b, DefaultTaxRate)) {
		t.Fatalf("tax must be linear")
	}
}

func TestStepHelpers(t *testing.T) {
	p := testProduct() // minOrder 1, maxOrder 50, step 5

	if got := StepDecrease(3, p); got != 1 {
		t.Fatalf("StepDecrease(3) = %d, want 1", got)
	}
	if got := StepDecrease(20, p); got != 15 {
		t.Fatalf("StepDecrease(20) = %d, want 15", got)
	}
	if got := StepIncrease(48, p); got != 50 {
		t.Fatalf("StepIncrease(48) = %d, want 50", got)
	}
	if got := StepIncrease(20, p); got != 25 {
		t.Fatalf("StepIncrease(20) = %d, want 25", got)
	}
}

func TestQuickAddOptions(t *testing.T) {
	tests := []struct {
		name string
		step int
		max  int
		want []int
	}{
		{name: "step 1", step: 1, max: 50, want: []int{2, 5, 10}},
		{name: "step 5", step: 5, max: 50, want: []int{10, 25, 50}},
		{name: "step 5 small max", step: 5, max: 20, want: []int{10}},
		{name: "unusual step", step: 4, max: 100, want: []int{8, 20, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProduct()
			p.Step = tt.step
			p.MaxOrder = tt.max

			got := QuickAddOptions(p)
			if len(got) != len(tt.want) {
				t.Fatalf("options = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("options = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New(newStubStorage(), "cart")

	if err := c.Add(context.Background(), testProduct(), 5); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	items := c.Items()
	items[0].Quantity = 999

	item, _ := c.Item("P1")
	if item.Quantity != 5 {
		t.Fatalf("mutating the returned slice must not affect the cart")
	}
}
