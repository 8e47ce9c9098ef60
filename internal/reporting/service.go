package reporting

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

type Service interface {
	ListOrders(ctx context.Context, filter Filter) (order.Page[OrderRow], error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListOrders(ctx context.Context, filter Filter) (order.Page[OrderRow], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return order.Page[OrderRow]{}, order.ErrInvalidStatus
	}

	rows, total, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch admin order listing")
		return order.Page[OrderRow]{}, fmt.Errorf("service: failed to fetch orders: %w: %w", order.ErrPersistence, err)
	}

	page := order.NewPage(rows, total, filter.Skip, filter.Limit)
	log.Info().Int("count", len(rows)).Int("page", page.Page).Int("limit", page.Limit).Msg("service: admin fetched orders")
	return page, nil
}
