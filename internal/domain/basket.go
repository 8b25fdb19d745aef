package domain

// BasketItem is one product line in a user's basket. Quantity is always
// positive and (UserID, ProductID) is unique.
type BasketItem struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// BasketEntry is a basket line joined with its product details.
type BasketEntry struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url"`
}

// Basket is a user's basket with product details and its version token.
type Basket struct {
	Items   []BasketEntry `json:"items"`
	Version int64         `json:"version"`
}
