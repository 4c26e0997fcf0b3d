// Package service реализует бизнес-логику магазина фрешведжис.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/freshveggies-system/internal/cart"
	"github.com/mmeshcher/freshveggies-system/internal/catalog"
	"github.com/mmeshcher/freshveggies-system/internal/delivery"
	"github.com/mmeshcher/freshveggies-system/internal/model"
	"github.com/mmeshcher/freshveggies-system/internal/repository"
)

// Repository описывает контракт key-value хранилища, используемый сервисом.
type Repository interface {
	Close() error
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// CartState описывает текущее состояние корзины вместе с рассчитанными суммами.
type CartState struct {
	Items     []model.CartItem
	Subtotal  float64
	Taxes     float64
	Total     float64
	ItemCount int
}

// UserUpdate описывает частичное обновление профиля пользователя.
type UserUpdate struct {
	Name    *string
	Mobile  *string
	Address *model.Address
}

// Service содержит бизнес-логику магазина фрешведжис. Корзины пользователей
// восстанавливаются из хранилища лениво и живут в памяти до выхода.
type Service struct {
	repo           Repository
	catalog        *catalog.Catalog
	deliveryClient *delivery.Client
	logger         *zap.Logger
	taxRate        float64
	paymentDelay   time.Duration

	mu    sync.Mutex
	carts map[string]*cart.Cart
}

// NewService создаёт новый сервис с указанным хранилищем, каталогом и клиентом системы доставки.
func NewService(repo Repository, cat *catalog.Catalog, deliveryClient *delivery.Client, logger *zap.Logger) *Service {
	return &Service{
		repo:           repo,
		catalog:        cat,
		deliveryClient: deliveryClient,
		logger:         logger,
		taxRate:        cart.DefaultTaxRate,
		carts:          make(map[string]*cart.Cart),
	}
}

// SetTaxRate задаёт плоскую ставку налога, применяемую при оформлении заказа.
func (s *Service) SetTaxRate(rate float64) {
	if rate > 0 {
		s.taxRate = rate
	}
}

// SetPaymentDelay задаёт длительность имитации обработки платежа при оформлении заказа.
func (s *Service) SetPaymentDelay(d time.Duration) {
	s.paymentDelay = d
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func userKey(userID string) string   { return repository.KeyUserPrefix + userID }
func loginKey(email string) string   { return repository.KeyLoginPrefix + email }
func cartKey(userID string) string   { return repository.KeyCartPrefix + userID }
func ordersKey(userID string) string { return repository.KeyOrdersPrefix + userID }

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// RegisterUser регистрирует нового покупателя и возвращает его профиль.
func (s *Service) RegisterUser(ctx context.Context, name, email, mobile, password string) (*model.User, error) {
	if _, ok, err := s.repo.Load(ctx, loginKey(email)); err != nil {
		return nil, fmt.Errorf("check login: %w", err)
	} else if ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUserExists, email)
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Mobile:       mobile,
		PasswordHash: hashPassword(email, password),
		CreatedAt:    time.Now(),
	}

	if err := s.saveUser(ctx, u); err != nil {
		return nil, err
	}

	idData, err := json.Marshal(u.ID)
	if err != nil {
		return nil, fmt.Errorf("marshal user id: %w", err)
	}
	if err := s.repo.Save(ctx, loginKey(email), idData); err != nil {
		return nil, fmt.Errorf("save login index: %w", err)
	}

	return u, nil
}

func (s *Service) saveUser(ctx context.Context, u *model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.repo.Save(ctx, userKey(u.ID), data); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// AuthenticateUser проверяет email и пароль пользователя и возвращает его профиль.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	idData, ok, err := s.repo.Load(ctx, loginKey(email))
	if err != nil {
		return nil, fmt.Errorf("load login index: %w", err)
	}
	if !ok {
		return nil, model.ErrInvalidCredentials
	}

	var userID string
	if err := json.Unmarshal(idData, &userID); err != nil {
		return nil, fmt.Errorf("unmarshal user id: %w", err)
	}

	u, err := s.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(email, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, model.ErrInvalidCredentials
	}

	return u, nil
}

// GetUser возвращает профиль пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	data, ok, err := s.repo.Load(ctx, userKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
	}

	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// UpdateUser применяет частичное обновление профиля и возвращает результат.
func (s *Service) UpdateUser(ctx context.Context, userID string, upd UserUpdate) (*model.User, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Mobile != nil {
		u.Mobile = *upd.Mobile
	}
	if upd.Address != nil {
		u.Address = upd.Address
	}

	if err := s.saveUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Logout завершает сессию пользователя: корзина очищается вместе с её ключом
// в хранилище, профиль и история заказов сохраняются.
func (s *Service) Logout(ctx context.Context, userID string) error {
	c, err := s.userCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := c.Clear(ctx); err != nil {
		s.logger.Warn("logout cart clear failed", zap.Error(err), zap.String("userID", userID))
	}

	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()

	return nil
}

// Products возвращает товары каталога, подходящие под запрос и категорию.
func (s *Service) Products(query, category string) []model.Product {
	return s.catalog.Filter(query, category)
}

// Categories возвращает список категорий каталога.
func (s *Service) Categories() []string {
	return s.catalog.Categories()
}

// userCart возвращает корзину пользователя, при первом обращении
// восстанавливая её из хранилища.
func (s *Service) userCart(ctx context.Context, userID string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.carts[userID]; ok {
		return c, nil
	}

	c := cart.New(s.repo, cartKey(userID))
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	s.carts[userID] = c
	return c, nil
}

// GetCart возвращает позиции корзины и рассчитанные суммы.
func (s *Service) GetCart(ctx context.Context, userID string) (*CartState, error) {
	c, err := s.userCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	subtotal := c.Total()
	taxes := cart.CalculateTax(subtotal, s.taxRate)

	return &CartState{
		Items:     c.Items(),
		Subtotal:  subtotal,
		Taxes:     taxes,
		Total:     subtotal + taxes,
		ItemCount: c.ItemCount(),
	}, nil
}

// logStorageFailure подавляет ошибку синхронизации с хранилищем: состояние в
// памяти уже изменено, операция считается выполненной.
func (s *Service) logStorageFailure(op, userID string, err error) {
	s.logger.Warn("cart storage sync failed, continuing with in-memory state",
		zap.String("op", op), zap.String("userID", userID), zap.Error(err))
}

// AddToCart добавляет товар каталога в корзину пользователя.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) error {
	p, ok := s.catalog.ByID(productID)
	if !ok {
		return fmt.Errorf("%w: product %s", model.ErrNotFound, productID)
	}

	c, err := s.userCart(ctx, userID)
	if err != nil {
		return err
	}

	if err := c.Add(ctx, p, quantity); err != nil {
		if errors.Is(err, model.ErrOutOfStock) {
			return err
		}
		s.logStorageFailure("add", userID, err)
	}
	return nil
}

// UpdateQuantity заменяет количество позиции корзины.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	c, err := s.userCart(ctx, userID)
	if err != nil {
		return err
	}

	if err := c.UpdateQuantity(ctx, productID, quantity); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		s.logStorageFailure("update", userID, err)
	}
	return nil
}

// RemoveFromCart удаляет позицию корзины. Операция идемпотентна.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID string) error {
	c, err := s.userCart(ctx, userID)
	if err != nil {
		return err
	}

	if err := c.Remove(ctx, productID); err != nil {
		s.logStorageFailure("remove", userID, err)
	}
	return nil
}

// ClearCart очищает корзину пользователя.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	c, err := s.userCart(ctx, userID)
	if err != nil {
		return err
	}

	if err := c.Clear(ctx); err != nil {
		s.logStorageFailure("clear", userID, err)
	}
	return nil
}

const orderIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateOrderID() string {
	suffix := make([]byte, 5)
	if _, err := rand.Read(suffix); err == nil {
		for i := range suffix {
			suffix[i] = orderIDCharset[int(suffix[i])%len(orderIDCharset)]
		}
	} else {
		copy(suffix, "00000")
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

// PlaceOrder оформляет заказ по текущей корзине: снимок позиций, расчёт сумм,
// сохранение заказа и только затем очистка корзины. Ошибка до сохранения
// заказа оставляет корзину нетронутой, ошибка очистки после сохранения не
// теряет уже записанный заказ.
func (s *Service) PlaceOrder(ctx context.Context, userID string, address model.Address) (*model.Order, error) {
	c, err := s.userCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if c.Len() == 0 {
		return nil, model.ErrEmptyCart
	}

	// Имитация обработки платежа, реального платёжного шлюза нет.
	if s.paymentDelay > 0 {
		timer := time.NewTimer(s.paymentDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	subtotal := c.Total()
	taxes := cart.CalculateTax(subtotal, s.taxRate)

	order := model.Order{
		ID:              generateOrderID(),
		UserID:          userID,
		Items:           c.Items(),
		Subtotal:        subtotal,
		Taxes:           taxes,
		TotalAmount:     subtotal + taxes,
		DeliveryAddress: address,
		Status:          model.OrderStatusInProgress,
		OrderDate:       time.Now(),
	}

	if err := s.prependOrder(ctx, userID, order); err != nil {
		return nil, err
	}

	if err := s.registerPendingDelivery(ctx, order.ID, userID); err != nil {
		s.logger.Warn("register pending delivery failed", zap.Error(err), zap.String("order", order.ID))
	}

	if err := c.Clear(ctx); err != nil {
		s.logger.Warn("cart clear after order failed", zap.Error(err), zap.String("order", order.ID))
	}

	return &order, nil
}

func (s *Service) prependOrder(ctx context.Context, userID string, order model.Order) error {
	orders, err := s.loadOrders(ctx, userID)
	if err != nil {
		return err
	}

	orders = append([]model.Order{order}, orders...)

	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}
	if err := s.repo.Save(ctx, ordersKey(userID), data); err != nil {
		return fmt.Errorf("save orders: %w", err)
	}
	return nil
}

func (s *Service) loadOrders(ctx context.Context, userID string) ([]model.Order, error) {
	data, ok, err := s.repo.Load(ctx, ordersKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var orders []model.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("unmarshal orders: %w", err)
	}
	return orders, nil
}

// GetOrdersByUser возвращает историю заказов пользователя, новые в начале.
func (s *Service) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.loadOrders(ctx, userID)
}

// GetOrder возвращает заказ пользователя по идентификатору.
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	orders, err := s.loadOrders(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", model.ErrNotFound, orderID)
}

type pendingDelivery struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
}

func (s *Service) loadPendingDeliveries(ctx context.Context) ([]pendingDelivery, error) {
	data, ok, err := s.repo.Load(ctx, repository.KeyPendingDeliveries)
	if err != nil {
		return nil, fmt.Errorf("load pending deliveries: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var pending []pendingDelivery
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending deliveries: %w", err)
	}
	return pending, nil
}

func (s *Service) savePendingDeliveries(ctx context.Context, pending []pendingDelivery) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending deliveries: %w", err)
	}
	if err := s.repo.Save(ctx, repository.KeyPendingDeliveries, data); err != nil {
		return fmt.Errorf("save pending deliveries: %w", err)
	}
	return nil
}

func (s *Service) registerPendingDelivery(ctx context.Context, orderID, userID string) error {
	pending, err := s.loadPendingDeliveries(ctx)
	if err != nil {
		return err
	}
	pending = append(pending, pendingDelivery{OrderID: orderID, UserID: userID})
	return s.savePendingDeliveries(ctx, pending)
}

func (s *Service) markOrderDelivered(ctx context.Context, userID, orderID string) error {
	orders, err := s.loadOrders(ctx, userID)
	if err != nil {
		return err
	}

	for i := range orders {
		if orders[i].ID == orderID {
			orders[i].Status = model.OrderStatusDelivered

			data, err := json.Marshal(orders)
			if err != nil {
				return fmt.Errorf("marshal orders: %w", err)
			}
			if err := s.repo.Save(ctx, ordersKey(userID), data); err != nil {
				return fmt.Errorf("save orders: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: order %s", model.ErrNotFound, orderID)
}

// StartDeliveryUpdates запускает фоновый процесс обновления статусов доставки заказов.
func (s *Service) StartDeliveryUpdates(ctx context.Context) {
	if s.deliveryClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processDeliveryBatch(ctx)
			}
		}
	}()
}

func (s *Service) processDeliveryBatch(ctx context.Context) {
	pending, err := s.loadPendingDeliveries(ctx)
	if err != nil || len(pending) == 0 {
		return
	}

	remaining := pending[:0]
	changed := false

	for _, p := range pending {
		resp, statusCode, retryAfter, err := s.deliveryClient.GetDeliveryStatus(ctx, p.OrderID)
		if err != nil {
			remaining = append(remaining, p)
			continue
		}

		if statusCode == 429 {
			remaining = append(remaining, p)
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if resp == nil || resp.Status != delivery.StatusDelivered {
			remaining = append(remaining, p)
			continue
		}

		if err := s.markOrderDelivered(ctx, p.UserID, p.OrderID); err != nil {
			s.logger.Warn("mark order delivered failed", zap.Error(err), zap.String("order", p.OrderID))
			remaining = append(remaining, p)
			continue
		}
		changed = true
	}

	if changed {
		if err := s.savePendingDeliveries(ctx, remaining); err != nil {
			s.logger.Warn("save pending deliveries failed", zap.Error(err))
		}
	}
}
