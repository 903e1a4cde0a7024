package domain

// CartLine is a pure intent record: no price or name is stored, both are
// re-resolved against the catalog on every read.
type CartLine struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// ResolvedCartLine is a cart line with the current catalog state attached.
// Stale or deactivated products are surfaced via Unavailable instead of
// being dropped, so callers can warn the user before checkout.
type ResolvedCartLine struct {
	CartLine
	Name        string `json:"name"`
	Image       string `json:"image"`
	Unit        string `json:"unit"`
	Price       int64  `json:"price"`
	MRP         int64  `json:"mrp"`
	Stock       int    `json:"stock"`
	Active      bool   `json:"active"`
	Unavailable bool   `json:"unavailable"`
}
