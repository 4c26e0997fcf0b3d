// Package cart реализует корзину покупателя: позиции, ограничение количества
// и расчёт стоимости.
package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mmeshcher/freshveggies-system/internal/model"
)

// DefaultTaxRate — ставка налога по умолчанию (5%).
const DefaultTaxRate = 0.05

// Storage описывает контракт key-value хранилища, используемого корзиной.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Cart хранит позиции одной пользовательской сессии. Позиции уникальны по
// идентификатору товара и сохраняют порядок добавления. После каждой мутации
// состояние синхронизируется с хранилищем.
type Cart struct {
	items      []model.CartItem
	storage    Storage
	storageKey string
}

// New создаёт пустую корзину, привязанную к ключу хранилища.
func New(storage Storage, storageKey string) *Cart {
	return &Cart{
		storage:    storage,
		storageKey: storageKey,
	}
}

// Load восстанавливает корзину из хранилища. Отсутствие ключа означает
// пустую корзину и не является ошибкой.
func (c *Cart) Load(ctx context.Context) error {
	data, ok, err := c.storage.Load(ctx, c.storageKey)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		c.items = nil
		return nil
	}

	var items []model.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("unmarshal cart: %w", err)
	}

	c.items = items
	return nil
}

func (c *Cart) persist(ctx context.Context) error {
	data, err := json.Marshal(c.items)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := c.storage.Save(ctx, c.storageKey, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// clampQuantity ограничивает количество диапазоном [minOrder, maxOrder].
func clampQuantity(quantity int, p model.Product) int {
	if quantity < p.MinOrder {
		return p.MinOrder
	}
	if quantity > p.MaxOrder {
		return p.MaxOrder
	}
	return quantity
}

// Add добавляет товар в корзину. Для существующей позиции количество
// увеличивается и ограничивается сверху maxOrder, для новой — количество
// ограничивается диапазоном [minOrder, maxOrder]. Товар не в наличии
// добавить нельзя. Ошибка хранилища не откатывает изменение в памяти:
// вызывающая сторона решает, логировать её или нет.
func (c *Cart) Add(ctx context.Context, product model.Product, quantity int) error {
	if !product.InStock {
		return fmt.Errorf("%w: %s", model.ErrOutOfStock, product.ID)
	}

	found := false
	for i := range c.items {
		if c.items[i].Product.ID == product.ID {
			c.items[i].Quantity = clampQuantity(c.items[i].Quantity+quantity, c.items[i].Product)
			found = true
			break
		}
	}

	if !found {
		c.items = append(c.items, model.CartItem{
			Product:  product,
			Quantity: clampQuantity(quantity, product),
		})
	}

	return c.persist(ctx)
}

// UpdateQuantity заменяет количество позиции. Нулевое или отрицательное
// количество удаляет позицию, остальные значения ограничиваются диапазоном
// [minOrder, maxOrder]. Для отсутствующей позиции возвращает ErrNotFound.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(ctx, productID)
	}

	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items[i].Quantity = clampQuantity(quantity, c.items[i].Product)
			return c.persist(ctx)
		}
	}

	return fmt.Errorf("%w: cart item %s", model.ErrNotFound, productID)
}

// Remove удаляет позицию по идентификатору товара. Удаление отсутствующей
// позиции не является ошибкой.
func (c *Cart) Remove(ctx context.Context, productID string) error {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return c.persist(ctx)
		}
	}
	return nil
}

// Clear очищает корзину и удаляет её ключ из хранилища целиком, а не
// сохраняет пустой список.
func (c *Cart) Clear(ctx context.Context) error {
	c.items = nil
	if err := c.storage.Remove(ctx, c.storageKey); err != nil {
		return fmt.Errorf("remove cart: %w", err)
	}
	return nil
}

// Total возвращает сумму произведений цены на количество по всем позициям.
// Округление выполняется только при отображении.
func (c *Cart) Total() float64 {
	total := 0.0
	for _, item := range c.items {
		total += item.Product.PricePerKg * float64(item.Quantity)
	}
	return total
}

// ItemCount возвращает суммарное количество килограммов по всем позициям.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// Item возвращает позицию корзины по идентификатору товара.
func (c *Cart) Item(productID string) (model.CartItem, bool) {
	for _, item := range c.items {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return model.CartItem{}, false
}

// Contains сообщает, есть ли товар в корзине.
func (c *Cart) Contains(productID string) bool {
	_, ok := c.Item(productID)
	return ok
}

// Items возвращает копию списка позиций в порядке добавления.
func (c *Cart) Items() []model.CartItem {
	items := make([]model.CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// Len возвращает число позиций в корзине.
func (c *Cart) Len() int {
	return len(c.items)
}

// CalculateTax возвращает налог с указанной суммы по плоской ставке.
func CalculateTax(subtotal, rate float64) float64 {
	return subtotal * rate
}

// StepDecrease возвращает количество, уменьшенное на шаг товара, но не ниже
// минимального заказа.
func StepDecrease(current int, p model.Product) int {
	next := current - p.Step
	if next < p.MinOrder {
		return p.MinOrder
	}
	return next
}

// StepIncrease возвращает количество, увеличенное на шаг товара, но не выше
// максимального заказа.
func StepIncrease(current int, p model.Product) int {
	next := current + p.Step
	if next > p.MaxOrder {
		return p.MaxOrder
	}
	return next
}

// QuickAddOptions возвращает варианты быстрого выбора количества для товара.
// Кандидаты зависят от шага и отфильтрованы по максимальному заказу.
func QuickAddOptions(p model.Product) []int {
	var candidates []int
	switch p.Step {
	case 1:
		candidates = []int{2, 5, 10}
	case 2:
		candidates = []int{4, 8, 16}
	case 3:
		candidates = []int{6, 12, 24}
	case 5:
		candidates = []int{10, 25, 50}
	default:
		candidates = []int{p.Step * 2, p.Step * 5, p.Step * 10}
	}

	options := make([]int, 0, len(candidates))
	for _, v := range candidates {
		if v <= p.MaxOrder {
			options = append(options, v)
		}
	}
	return options
}
