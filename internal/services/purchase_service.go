package services

import (
	"context"

	"github.com/tbourn/creator-payments/internal/repo"
)

// PurchaseStore reads a buyer's granted purchases.
type PurchaseStore interface {
	ListPurchases(ctx context.Context, buyerID string) (*repo.Purchases, error)
}

// PurchaseService exposes what a buyer owns.
type PurchaseService struct {
	Store PurchaseStore
}

// List returns the buyer's packs, tickets, and confirmed calls.
func (s *PurchaseService) List(ctx context.Context, buyerID string) (*repo.Purchases, error) {
	if buyerID == "" {
		return nil, ErrUnauthenticated
	}
	p, err := s.Store.ListPurchases(ctx, buyerID)
	if err != nil {
		return nil, internal(err)
	}
	return p, nil
}
