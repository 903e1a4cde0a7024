package domain

// Product is a sellable catalog entry. Prices are integer minor units (paise).
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	MRP      int64  `json:"mrp"`
	Stock    int    `json:"stock"`
	Image    string `json:"image"`
	Unit     string `json:"unit"`
	Active   bool   `json:"active"`
}

// ProductVariant overrides its parent product's price/stock when a line
// references it. A variant is its own stock pool.
type ProductVariant struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Label     string `json:"label"`
	Price     int64  `json:"price"`
	MRP       int64  `json:"mrp"`
	Stock     int    `json:"stock"`
	Active    bool   `json:"active"`
}
