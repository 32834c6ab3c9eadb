package order

import "errors"

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrMixedSellers  = errors.New("cart holds items from multiple sellers")
	ErrOrderNotFound = errors.New("order not found")
)
