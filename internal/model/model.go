// Package model содержит доменные сущности магазина фрешведжис.
package model

import (
	"errors"
	"time"
)

// Product описывает товар каталога. Значение копируется в корзину при
// добавлении, поэтому последующие изменения каталога не влияют на уже
// добавленные позиции.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	PricePerKg  float64 `json:"pricePerKg"`
	MinOrder    int     `json:"minOrder"`
	MaxOrder    int     `json:"maxOrder"`
	Step        int     `json:"step"`
	InStock     bool    `json:"inStock"`
}

// CartItem описывает одну позицию корзины: товар и количество в килограммах.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Address содержит адрес доставки заказа.
type Address struct {
	FullName string `json:"fullName"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
	Street   string `json:"street"`
	City     string `json:"city"`
	Pincode  string `json:"pincode"`
}

// User представляет зарегистрированного покупателя.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	Address      *Address  `json:"address,omitempty"`
	PasswordHash []byte    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusInProgress OrderStatus = "In Progress"
	OrderStatusDelivered  OrderStatus = "Delivered"
)

// Order описывает оформленный заказ. Снимок позиций и суммы фиксируются в
// момент оформления и далее не пересчитываются.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	Items           []CartItem  `json:"items"`
	Subtotal        float64     `json:"subtotal"`
	Taxes           float64     `json:"taxes"`
	TotalAmount     float64     `json:"totalAmount"`
	DeliveryAddress Address     `json:"deliveryAddress"`
	Status          OrderStatus `json:"status"`
	OrderDate       time.Time   `json:"orderDate"`
}

// ErrNotFound возвращается при обращении к отсутствующей позиции корзины или заказу.
var (
	ErrNotFound = errors.New("not found")
	// ErrOutOfStock возвращается при попытке добавить отсутствующий на складе товар.
	ErrOutOfStock = errors.New("product is out of stock")
	// ErrEmptyCart возвращается при попытке оформить заказ с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUserExists возвращается при регистрации с уже занятым email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials возвращается при неверном email или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
