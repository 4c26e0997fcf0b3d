// Package catalog содержит статический каталог товаров магазина.
package catalog

import (
	"strings"

	"github.com/mmeshcher/freshveggies-system/internal/model"
)

// CategoryAll — значение фильтра категории, пропускающее все товары.
const CategoryAll = "All"

// Catalog предоставляет доступ к упорядоченному списку товаров и категорий.
type Catalog struct {
	products   []model.Product
	categories []string
}

// New создаёт каталог со стандартным набором товаров.
func New() *Catalog {
	return &Catalog{
		products:   defaultProducts(),
		categories: []string{CategoryAll, "Vegetables", "Leafy Vegetables", "Fruits", "Herbs"},
	}
}

// Products возвращает копию полного списка товаров в порядке каталога.
func (c *Catalog) Products() []model.Product {
	products := make([]model.Product, len(c.products))
	copy(products, c.products)
	return products
}

// Categories возвращает список категорий, включая категорию All.
func (c *Catalog) Categories() []string {
	categories := make([]string, len(c.categories))
	copy(categories, c.categories)
	return categories
}

// ByID возвращает товар по идентификатору.
func (c *Catalog) ByID(id string) (model.Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// Filter возвращает товары, подходящие под поисковый запрос и категорию.
// Запрос сравнивается с названием и описанием без учёта регистра, категория
// All пропускает все товары.
func (c *Catalog) Filter(query, category string) []model.Product {
	query = strings.ToLower(strings.TrimSpace(query))

	var result []model.Product
	for _, p := range c.products {
		matchesQuery := query == "" ||
			strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query)
		matchesCategory := category == "" || category == CategoryAll || p.Category == category

		if matchesQuery && matchesCategory {
			result = append(result, p)
		}
	}
	return result
}

func defaultProducts() []model.Product {
	return []model.Product{
		{
			ID:          "tomatoes",
			Name:        "Fresh Tomatoes",
			Description: "Fresh red tomatoes, perfect for cooking and salads",
			Image:       "/images/tomatoes.jpg",
			Category:    "Vegetables",
			PricePerKg:  45.00,
			MinOrder:    1,
			MaxOrder:    50,
			Step:        5,
			InStock:     true,
		},
		{
			ID:          "carrots",
			Name:        "Organic Carrots",
			Description: "Organic carrots, sweet and crunchy",
			Image:       "/images/carrots.jpg",
			Category:    "Vegetables",
			PricePerKg:  35.00,
			MinOrder:    2,
			MaxOrder:    40,
			Step:        2,
			InStock:     true,
		},
		{
			ID:          "spinach",
			Name:        "Fresh Spinach",
			Description: "Fresh green spinach leaves, rich in iron",
			Image:       "/images/spinach.jpg",
			Category:    "Leafy Vegetables",
			PricePerKg:  25.00,
			MinOrder:    1,
			MaxOrder:    20,
			Step:        1,
			InStock:     true,
		},
		{
			ID:          "onions",
			Name:        "Red Onions",
			Description: "Fresh red onions for cooking",
			Image:       "/images/onions.jpg",
			Category:    "Vegetables",
			PricePerKg:  30.00,
			MinOrder:    5,
			MaxOrder:    100,
			Step:        5,
			InStock:     true,
		},
		{
			ID:          "apples",
			Name:        "Fresh Apples",
			Description: "Crisp and sweet apples",
			Image:       "/images/apples.jpg",
			Category:    "Fruits",
			PricePerKg:  80.00,
			MinOrder:    1,
			MaxOrder:    30,
			Step:        2,
			InStock:     true,
		},
		{
			ID:          "capsicum",
			Name:        "Green Capsicum",
			Description: "Fresh green bell peppers",
			Image:       "/images/capsicum.jpg",
			Category:    "Vegetables",
			PricePerKg:  60.00,
			MinOrder:    1,
			MaxOrder:    25,
			Step:        1,
			InStock:     true,
		},
		{
			ID:          "coriander",
			Name:        "Fresh Coriander",
			Description: "Fresh coriander leaves for garnishing",
			Image:       "/images/coriander.jpg",
			Category:    "Herbs",
			PricePerKg:  120.00,
			MinOrder:    1,
			MaxOrder:    10,
			Step:        1,
			InStock:     true,
		},
		{
			ID:          "potatoes",
			Name:        "Farm Potatoes",
			Description: "Versatile potatoes for every kitchen",
			Image:       "/images/potatoes.jpg",
			Category:    "Vegetables",
			PricePerKg:  22.00,
			MinOrder:    5,
			MaxOrder:    100,
			Step:        5,
			InStock:     true,
		},
		{
			ID:          "cabbage",
			Name:        "Green Cabbage",
			Description: "Fresh green cabbage heads",
			Image:       "/images/cabbage.jpg",
			Category:    "Leafy Vegetables",
			PricePerKg:  28.00,
			MinOrder:    2,
			MaxOrder:    40,
			Step:        2,
			InStock:     true,
		},
		{
			ID:          "bananas",
			Name:        "Ripe Bananas",
			Description: "Sweet ripe bananas, sold by the kilogram",
			Image:       "/images/bananas.jpg",
			Category:    "Fruits",
			PricePerKg:  50.00,
			MinOrder:    3,
			MaxOrder:    60,
			Step:        3,
			InStock:     false,
		},
	}
}
