package payment

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	ListAvailable(ctx context.Context, userID uuid.UUID) ([]Transaction, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ListAvailable returns the user's accepted transactions that no order has claimed yet.
func (s *service) ListAvailable(ctx context.Context, userID uuid.UUID) ([]Transaction, error) {
	transactions, err := s.repo.ListAvailable(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch available transactions")
		return nil, fmt.Errorf("service: failed to fetch available transactions: %w", err)
	}

	return transactions, nil
}
