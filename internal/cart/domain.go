package cart

import "github.com/karma-pos/karma/internal/products"

// Item is a carrito row joined with its product.
type Item struct {
	ID         int64            `json:"id"`
	ProductoID int64            `json:"producto_id"`
	Cantidad   int64            `json:"cantidad"`
	Producto   products.Product `json:"productos"`
}

// Totals breaks down the cart price. Discounts come from the product's
// descuento percentage, applied per line.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	Descuentos float64 `json:"descuentos"`
	Total      float64 `json:"total"`
	Items      int     `json:"items"`
}

// AddItemInput is the payload for adding a product to the cart.
type AddItemInput struct {
	ProductoID *int64 `json:"producto_id"`
	Cantidad   *int64 `json:"cantidad"`
}
