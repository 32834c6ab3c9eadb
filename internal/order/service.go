package order

import (
	"context"
	"fmt"
	"net/http"

	"pasarku-client/internal/api"
	"pasarku-client/internal/cart"
	"pasarku-client/internal/logger"

	"go.uber.org/zap"
)

// Caller is the slice of the request gateway this service needs.
type Caller interface {
	CallJSON(ctx context.Context, method, path string, body, out any, requiresAuth bool) error
}

// Service submits the cart as an order and fetches order state.
type Service interface {
	Submit(ctx context.Context) (*Order, error)
	Get(ctx context.Context, orderID int64) (*Order, error)
}

type service struct {
	gateway Caller
	cart    *cart.Aggregate
}

func NewService(gateway Caller, cartAgg *cart.Aggregate) Service {
	return &service{gateway: gateway, cart: cartAgg}
}

// Submit validates the cart locally, creates the order, and clears the cart
// only once the server has accepted it. On any failure the cart is left
// exactly as it was so the user can retry.
func (s *service) Submit(ctx context.Context) (*Order, error) {
	items := s.cart.Items()

	// 1. Local validation, no network call on failure.
	if len(items) == 0 {
		return nil, api.ValidationError(ErrEmptyCart.Error())
	}
	sellerID := items[0].SellerID
	for _, it := range items {
		if it.SellerID != sellerID {
			// The aggregate should make this impossible.
			return nil, api.ValidationError(ErrMixedSellers.Error())
		}
	}

	// 2. Build the payload, prices omitted.
	req := createRequest{SellerID: sellerID}
	for _, it := range items {
		req.Items = append(req.Items, Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	// 3. Create the order.
	var created Order
	if err := s.gateway.CallJSON(ctx, http.MethodPost, "/orders", req, &created, true); err != nil {
		logger.FromCtx(ctx).Warn("order submission failed", zap.Error(err))
		return nil, err
	}

	// 4. The order exists server-side; the selection must not linger.
	s.cart.Clear()

	logger.FromCtx(ctx).Info("order created",
		zap.Int64("order_id", created.ID),
		zap.Int64("seller_id", created.SellerID),
	)
	return &created, nil
}

func (s *service) Get(ctx context.Context, orderID int64) (*Order, error) {
	var out Order
	path := fmt.Sprintf("/orders/%d", orderID)
	if err := s.gateway.CallJSON(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}
