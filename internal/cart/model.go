package cart

// Item is one selected product. PriceSnapshot is the price at selection time
// in minor currency units; it is display-only, the server re-prices at order
// time.
type Item struct {
	ProductID     int64 `json:"productId"`
	SellerID      int64 `json:"sellerId"`
	PriceSnapshot int64 `json:"priceSnapshot"`
	Quantity      int   `json:"quantity"`
}

// Subtotal in minor units.
func (i Item) Subtotal() int64 {
	return i.PriceSnapshot * int64(i.Quantity)
}
