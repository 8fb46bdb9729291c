package accounts

import (
	"context"
	"fmt"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// Service exposes chart-of-accounts operations.
type Service struct {
	repo Repository
}

// NewService constructs the accounts service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, account Account) (Account, error) {
	if account.Name == "" {
		return Account{}, fmt.Errorf("%w: account name required", httpx.ErrValidation)
	}
	switch account.Type {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
	default:
		return Account{}, fmt.Errorf("%w: unknown account type %q", httpx.ErrValidation, account.Type)
	}
	account.IsActive = true
	return s.repo.Create(ctx, account)
}

func (s *Service) SetOpeningBalance(ctx context.Context, id int64, balance float64) error {
	return s.repo.SetOpeningBalance(ctx, id, balance)
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}
