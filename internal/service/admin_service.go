package service

import (
	"context"
	"fmt"

	"shopsystem/internal/model"
	"shopsystem/internal/repository"

	"gorm.io/gorm"
)

const latestProductsLimit = 4

type AdminService struct {
	productRepo *repository.ProductRepository
	userRepo    *repository.UserRepository
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{
		productRepo: repository.NewProductRepository(db),
		userRepo:    repository.NewUserRepository(db),
	}
}

type Dashboard struct {
	TotalProducts  int64            `json:"totalProducts"`
	TotalBuyers    int64            `json:"totalBuyers"`
	LatestProducts []*model.Product `json:"latestProducts"`
}

func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	totalProducts, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	totalBuyers, err := s.userRepo.CountByRole(ctx, model.RoleBuyer)
	if err != nil {
		return nil, fmt.Errorf("count buyers: %w", err)
	}

	latest, err := s.productRepo.Latest(ctx, latestProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("latest products: %w", err)
	}

	return &Dashboard{
		TotalProducts:  totalProducts,
		TotalBuyers:    totalBuyers,
		LatestProducts: latest,
	}, nil
}
