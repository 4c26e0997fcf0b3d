// Package handler содержит HTTP-обработчики API магазина фрешведжис.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/freshveggies-system/internal/middleware"
	"github.com/mmeshcher/freshveggies-system/internal/model"
	"github.com/mmeshcher/freshveggies-system/internal/service"
	"github.com/mmeshcher/freshveggies-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, name, email, mobile, password string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateUser(ctx context.Context, userID string, upd service.UserUpdate) (*model.User, error)
	Logout(ctx context.Context, userID string) error
	Products(query, category string) []model.Product
	Categories() []string
	GetCart(ctx context.Context, userID string) (*service.CartState, error)
	AddToCart(ctx context.Context, userID, productID string, quantity int) error
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error
	PlaceOrder(ctx context.Context, userID string, address model.Address) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error)
}

// Handler реализует HTTP-обработчики API магазина фрешведжис.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// formatPrice форматирует сумму для отображения: символ валюты и два знака
// после запятой. Используется только на границе API.
func formatPrice(price float64) string {
	return fmt.Sprintf("₹%.2f", price)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFieldErrors(w http.ResponseWriter, errs validation.FieldErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Mobile    string         `json:"mobile"`
	Address   *model.Address `json:"address,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Address:   u.Address,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// Register обрабатывает регистрацию нового покупателя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	errs := make(validation.FieldErrors)
	if req.Name == "" {
		errs["name"] = "Name is required"
	}
	if !validation.IsValidEmail(req.Email) {
		errs["email"] = "Please enter a valid email address"
	}
	if !validation.IsValidMobile(req.Mobile) {
		errs["mobile"] = "Please enter a valid 10-digit mobile number"
	}
	if !validation.IsValidPassword(req.Password) {
		errs["password"] = "Password must be at least 6 characters"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req.Name, req.Email, req.Mobile, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, u.ID)
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию покупателя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, u.ID)
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// Logout завершает сессию текущего покупателя и сбрасывает cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		h.logger.Error("logout error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// GetProfile возвращает профиль текущего покупателя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("get profile error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(u))
}

type updateProfileRequest struct {
	Name    *string        `json:"name,omitempty"`
	Mobile  *string        `json:"mobile,omitempty"`
	Address *model.Address `json:"address,omitempty"`
}

// UpdateProfile применяет частичное обновление профиля текущего покупателя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	errs := make(validation.FieldErrors)
	if req.Name != nil && *req.Name == "" {
		errs["name"] = "Name is required"
	}
	if req.Mobile != nil && !validation.IsValidMobile(*req.Mobile) {
		errs["mobile"] = "Please enter a valid 10-digit mobile number"
	}
	if req.Address != nil {
		for field, msg := range validation.ValidateAddress(*req.Address) {
			errs[field] = msg
		}
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	u, err := h.service.UpdateUser(r.Context(), userID, service.UserUpdate{
		Name:    req.Name,
		Mobile:  req.Mobile,
		Address: req.Address,
	})
	if err != nil {
		h.logger.Error("update profile error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// GetProducts возвращает товары каталога с учётом поискового запроса и категории.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")

	products := h.service.Products(query, category)
	if products == nil {
		products = []model.Product{}
	}

	writeJSON(w, http.StatusOK, products)
}

// GetCategories возвращает список категорий каталога.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Categories())
}

type cartResponse struct {
	Items          []model.CartItem `json:"items"`
	Subtotal       float64          `json:"subtotal"`
	Taxes          float64          `json:"taxes"`
	TotalAmount    float64          `json:"totalAmount"`
	ItemCount      int              `json:"itemCount"`
	FormattedTotal string           `json:"formattedTotal"`
}

// GetCart возвращает корзину текущего покупателя с рассчитанными суммами.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	state, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.logger.Error("get cart error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cartResponse{
		Items:          state.Items,
		Subtotal:       state.Subtotal,
		Taxes:          state.Taxes,
		TotalAmount:    state.Total,
		ItemCount:      state.ItemCount,
		FormattedTotal: formatPrice(state.Total),
	})
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddToCart добавляет товар в корзину текущего покупателя.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.ProductID == "" || req.Quantity <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.AddToCart(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, model.ErrOutOfStock):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("add to cart error", zap.Error(err), zap.String("userID", userID), zap.String("product", req.ProductID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem заменяет количество позиции корзины. Нулевое или
// отрицательное количество удаляет позицию.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID := chi.URLParam(r, "productID")

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.UpdateQuantity(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("update cart item error", zap.Error(err), zap.String("userID", userID), zap.String("product", productID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RemoveCartItem удаляет позицию корзины. Операция идемпотентна: удаление
// отсутствующей позиции тоже успешно.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID := chi.URLParam(r, "productID")

	if err := h.service.RemoveFromCart(r.Context(), userID, productID); err != nil {
		h.logger.Error("remove cart item error", zap.Error(err), zap.String("userID", userID), zap.String("product", productID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ClearCart очищает корзину текущего покупателя.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.ClearCart(r.Context(), userID); err != nil {
		h.logger.Error("clear cart error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type orderResponse struct {
	ID              string           `json:"id"`
	Items           []model.CartItem `json:"items"`
	Subtotal        float64          `json:"subtotal"`
	Taxes           float64          `json:"taxes"`
	TotalAmount     float64          `json:"totalAmount"`
	FormattedTotal  string           `json:"formattedTotal"`
	DeliveryAddress model.Address    `json:"deliveryAddress"`
	Status          string           `json:"status"`
	OrderDate       string           `json:"orderDate"`
}

func newOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		Items:           o.Items,
		Subtotal:        o.Subtotal,
		Taxes:           o.Taxes,
		TotalAmount:     o.TotalAmount,
		FormattedTotal:  formatPrice(o.TotalAmount),
		DeliveryAddress: o.DeliveryAddress,
		Status:          string(o.Status),
		OrderDate:       o.OrderDate.Format(time.RFC3339),
	}
}

// PlaceOrder оформляет заказ по текущей корзине покупателя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var address model.Address
	if err := json.NewDecoder(r.Body).Decode(&address); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if errs := validation.ValidateAddress(address); errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), userID, address)
	if err != nil {
		if errors.Is(err, model.ErrEmptyCart) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("place order error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// GetOrders возвращает историю заказов текущего покупателя, новые в начале.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.String("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ текущего покупателя по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.String("userID", userID), zap.String("order", orderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}
