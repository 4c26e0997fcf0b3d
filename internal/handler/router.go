package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/freshveggies-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина фрешведжис.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/api/products", h.GetProducts)
	r.Get("/api/categories", h.GetCategories)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/logout", h.Logout)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)

			r.Get("/cart", h.GetCart)
			r.Post("/cart", h.AddToCart)
			r.Patch("/cart/{productID}", h.UpdateCartItem)
			r.Delete("/cart/{productID}", h.RemoveCartItem)
			r.Delete("/cart", h.ClearCart)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders", h.GetOrders)
			r.Get("/orders/{orderID}", h.GetOrder)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
