package customers

import (
	"context"
	"strings"
	"testing"
)

type stubRepo struct {
	byName  map[string]Customer
	created []Customer
}

func (s *stubRepo) List(ctx context.Context, search string) ([]Customer, error) { return nil, nil }

func (s *stubRepo) Get(ctx context.Context, id int64) (Customer, error) {
	return Customer{}, ErrNotFound
}

func (s *stubRepo) FindByName(ctx context.Context, name string) (Customer, error) {
	if c, ok := s.byName[strings.ToLower(name)]; ok {
		return c, nil
	}
	return Customer{}, ErrNotFound
}

func (s *stubRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	c.ID = int64(len(s.created) + 100)
	s.created = append(s.created, c)
	return c, nil
}

func (s *stubRepo) Update(ctx context.Context, c Customer) (Customer, error) { return c, nil }

func (s *stubRepo) Delete(ctx context.Context, id int64) error { return nil }

func TestResolveFindsExistingCustomer(t *testing.T) {
	repo := &stubRepo{byName: map[string]Customer{
		"globex ltd": {ID: 9, Name: "Globex Ltd"},
	}}
	svc := NewService(repo)

	c, err := svc.Resolve(context.Background(), "  Globex Ltd ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != 9 {
		t.Fatalf("expected existing customer 9, got %d", c.ID)
	}
	if len(repo.created) != 0 {
		t.Fatalf("no placeholder should be created, got %d", len(repo.created))
	}
}

func TestResolveCreatesPlaceholder(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	c, err := svc.Resolve(context.Background(), "New Client GmbH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsPlaceholder {
		t.Fatal("expected a placeholder customer")
	}
	if c.Name != "New Client GmbH" {
		t.Fatalf("unexpected name %q", c.Name)
	}
}

func TestResolveDefaultsUnknownCustomer(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	c, err := svc.Resolve(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "Unknown Customer" {
		t.Fatalf("expected fallback name, got %q", c.Name)
	}
	if !c.IsPlaceholder {
		t.Fatal("expected a placeholder customer")
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(&stubRepo{})

	if _, err := svc.Create(context.Background(), UpsertInput{}); err == nil {
		t.Fatal("expected validation error")
	}
}
