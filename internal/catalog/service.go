package catalog

import (
	"context"
	"fmt"
	"net/http"
)

// Caller is the slice of the request gateway this service needs.
type Caller interface {
	CallJSON(ctx context.Context, method, path string, body, out any, requiresAuth bool) error
}

// Service reads the public catalog. None of these calls require auth.
type Service interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListStores(ctx context.Context) ([]Store, error)
	StoreProducts(ctx context.Context, storeID int64) ([]Product, error)
}

type service struct {
	gateway Caller
}

func NewService(gateway Caller) Service {
	return &service{gateway: gateway}
}

func (s *service) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := s.gateway.CallJSON(ctx, http.MethodGet, "/products", nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ListStores(ctx context.Context) ([]Store, error) {
	var out []Store
	if err := s.gateway.CallJSON(ctx, http.MethodGet, "/stores", nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) StoreProducts(ctx context.Context, storeID int64) ([]Product, error) {
	var out []Product
	path := fmt.Sprintf("/stores/%d/products", storeID)
	if err := s.gateway.CallJSON(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}
