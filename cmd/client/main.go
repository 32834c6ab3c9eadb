package main

import (
	"context"
	"fmt"
	"os"

	"pasarku-client/internal/api"
	"pasarku-client/internal/auth"
	"pasarku-client/internal/cart"
	"pasarku-client/internal/catalog"
	"pasarku-client/internal/config"
	"pasarku-client/internal/logger"
	"pasarku-client/internal/order"
	"pasarku-client/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	var store storage.Store
	boltStore, err := storage.OpenBolt(cfg.StatePath)
	if err != nil {
		logger.L().Warn("state file unavailable, running in-memory", zap.Error(err))
		store = storage.NewMemoryStore()
	} else {
		defer boltStore.Close()
		store = boltStore
	}

	tokens := auth.NewTokenStore(store)
	session := auth.NewSession(cfg, tokens)
	gateway := api.NewGateway(cfg, session)

	catalogSvc := catalog.NewService(gateway)
	cartAgg := cart.NewAggregate(store)
	orderSvc := order.NewService(gateway, cartAgg)

	ctx := context.Background()

	stores, err := catalogSvc.ListStores(ctx)
	if err != nil {
		logger.L().Fatal("failed to list stores", zap.Error(err))
	}
	for _, s := range stores {
		fmt.Printf("store %d: %s (%s)\n", s.ID, s.Name, s.Address)
	}

	proof := os.Getenv("IDENTITY_PROOF")
	if proof == "" {
		logger.L().Info("no IDENTITY_PROOF set, skipping authenticated demo")
		return
	}

	user, err := session.Login(ctx, proof)
	if err != nil {
		logger.L().Fatal("login failed", zap.Error(err))
	}
	fmt.Printf("logged in as %s\n", user.Name)

	if len(stores) > 0 {
		products, err := catalogSvc.StoreProducts(ctx, stores[0].ID)
		if err != nil {
			logger.L().Fatal("failed to list products", zap.Error(err))
		}
		if len(products) > 0 {
			p := products[0]
			if err := cartAgg.Add(cart.Item{
				ProductID:     p.ID,
				SellerID:      p.StoreID,
				PriceSnapshot: p.Price,
			}, 1); err != nil {
				logger.L().Fatal("failed to add to cart", zap.Error(err))
			}
			fmt.Printf("cart total: %d\n", cartAgg.Total())

			created, err := orderSvc.Submit(ctx)
			if err != nil {
				logger.L().Fatal("order submission failed", zap.Error(err))
			}
			fmt.Printf("order %d created, status %s\n", created.ID, created.Status)
		}
	}
}
