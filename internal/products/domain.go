package products

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Product is a catalog row.
type Product struct {
	ID        int64     `json:"id"`
	Nombre    string    `json:"nombre"`
	Precio    float64   `json:"precio"`
	Stock     int64     `json:"stock"`
	Descuento float64   `json:"descuento"`
	Categoria string    `json:"categoria,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Label carries the printable label data for one product.
type Label struct {
	ProductoID int64   `json:"producto_id"`
	Nombre     string  `json:"nombre"`
	Precio     float64 `json:"precio"`
	QRCode     string  `json:"qr_code"`
}

// labelSalt is fixed: printed labels must keep resolving to the same code
// across deployments.
const labelSalt = "karma_product_qr_salt"

// labelCodeLength truncates the hash so the printed QR stays compact.
const labelCodeLength = 16

// LabelCode derives the stable scan code for a product id.
func LabelCode(productID int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d_%s", productID, labelSalt)))
	return hex.EncodeToString(sum[:])[:labelCodeLength]
}
