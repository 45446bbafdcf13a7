package service

import (
	"context"

	"shopsystem/internal/model"
	"shopsystem/internal/repository"

	"gorm.io/gorm"
)

type ProductService struct {
	productRepo  *repository.ProductRepository
	categoryRepo *repository.CategoryRepository
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{
		productRepo:  repository.NewProductRepository(db),
		categoryRepo: repository.NewCategoryRepository(db),
	}
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name         string
	Brand        string
	Price        float64
	Quantity     int
	Category     string
	FreeShipping bool
	Description  string
	Image        *string
}

func (in *ProductInput) apply(p *model.Product) {
	p.Name = in.Name
	p.Brand = in.Brand
	p.Price = in.Price
	p.Quantity = in.Quantity
	p.Category = in.Category
	p.FreeShipping = in.FreeShipping
	p.Description = in.Description
	p.Image = in.Image
}

func (s *ProductService) Add(ctx context.Context, adminID string, in *ProductInput) (*model.Product, error) {
	product := &model.Product{AdminID: adminID}
	in.apply(product)
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// ownedProduct loads the product and checks that adminID created it.
func (s *ProductService) ownedProduct(ctx context.Context, adminID, id string) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.AdminID != adminID {
		return nil, ErrNotProductOwner
	}
	return product, nil
}

func (s *ProductService) Edit(ctx context.Context, adminID, id string, in *ProductInput) error {
	product, err := s.ownedProduct(ctx, adminID, id)
	if err != nil {
		return err
	}
	in.apply(product)
	return s.productRepo.Update(ctx, product)
}

func (s *ProductService) Delete(ctx context.Context, adminID, id string) error {
	if _, err := s.ownedProduct(ctx, adminID, id); err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, id)
}

func (s *ProductService) Detail(ctx context.Context, id string) (*model.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

func (s *ProductService) List(ctx context.Context) ([]*model.Product, error) {
	return s.productRepo.List(ctx)
}

func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	return s.productRepo.DistinctCategories(ctx)
}

// SameCategory lists the products sharing the category of product id, itself included.
func (s *ProductService) SameCategory(ctx context.Context, id string) ([]*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.productRepo.ListByCategory(ctx, product.Category)
}

func (s *ProductService) AddCategory(ctx context.Context, title string) (*model.Category, error) {
	category := &model.Category{Title: title}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *ProductService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *ProductService) DeleteCategory(ctx context.Context, id string) error {
	return s.categoryRepo.Delete(ctx, id)
}
