package location

import (
	"context"
	"fmt"
	"net/http"
)

// Caller is the slice of the request gateway this service needs.
type Caller interface {
	CallJSON(ctx context.Context, method, path string, body, out any, requiresAuth bool) error
}

// Service manages the user's saved delivery locations.
type Service interface {
	List(ctx context.Context) ([]Location, error)
	Create(ctx context.Context, loc Location) (*Location, error)
	Delete(ctx context.Context, locationID int64) error
}

type service struct {
	gateway Caller
}

func NewService(gateway Caller) Service {
	return &service{gateway: gateway}
}

func (s *service) List(ctx context.Context) ([]Location, error) {
	var out []Location
	if err := s.gateway.CallJSON(ctx, http.MethodGet, "/locations", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, loc Location) (*Location, error) {
	var created Location
	if err := s.gateway.CallJSON(ctx, http.MethodPost, "/locations", loc, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

// Delete expects a no-content response.
func (s *service) Delete(ctx context.Context, locationID int64) error {
	path := fmt.Sprintf("/locations/%d", locationID)
	return s.gateway.CallJSON(ctx, http.MethodDelete, path, nil, nil, true)
}
