package customers

import (
	"context"
	"errors"
	"strings"
)

// Service exposes customer operations.
type Service struct {
	repo Repository
}

// NewService constructs the customers service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, search string) ([]Customer, error) {
	return s.repo.List(ctx, search)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in UpsertInput) (Customer, error) {
	if err := in.Validate(); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, Customer{
		Name:           strings.TrimSpace(in.Name),
		Email:          in.Email,
		Phone:          in.Phone,
		BillingAddress: in.BillingAddress,
	})
}

func (s *Service) Update(ctx context.Context, id int64, in UpsertInput) (Customer, error) {
	if err := in.Validate(); err != nil {
		return Customer{}, err
	}
	return s.repo.Update(ctx, Customer{
		ID:             id,
		Name:           strings.TrimSpace(in.Name),
		Email:          in.Email,
		Phone:          in.Phone,
		BillingAddress: in.BillingAddress,
	})
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Resolve finds a customer by case-insensitive name, creating a placeholder
// when none exists. Document posting never blocks on missing master data.
func (s *Service) Resolve(ctx context.Context, name string) (Customer, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = "Unknown Customer"
	}
	customer, err := s.repo.FindByName(ctx, trimmed)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Customer{}, err
	}
	return s.repo.Create(ctx, Customer{Name: trimmed, IsPlaceholder: true})
}
