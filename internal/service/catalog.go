package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

// ProductIndex is satisfied by search.Index.
type ProductIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Index  ProductIndex
}

func (s *CatalogService) List(ctx context.Context, f repo.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, f, offset, limit)
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func validateProduct(req transport.ProductRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return fmt.Errorf("%w: name required", ErrValidation)
	case strings.TrimSpace(req.Description) == "":
		return fmt.Errorf("%w: description required", ErrValidation)
	case strings.TrimSpace(req.ImageURL) == "":
		return fmt.Errorf("%w: imageUrl required", ErrValidation)
	case req.Price == nil:
		return fmt.Errorf("%w: price required", ErrValidation)
	case req.Price.IsNegative():
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	case req.Stock == nil:
		return fmt.Errorf("%w: stock required", ErrValidation)
	case *req.Stock < 0:
		return fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}
	return nil
}

func applyProduct(p *models.Product, req transport.ProductRequest) {
	p.Name = strings.TrimSpace(req.Name)
	p.Description = strings.TrimSpace(req.Description)
	p.Price = *req.Price
	p.Stock = *req.Stock
	p.ImageURL = strings.TrimSpace(req.ImageURL)
	p.Featured = req.Featured
}

func (s *CatalogService) Create(ctx context.Context, req transport.ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	var p models.Product
	applyProduct(&p, req)
	if err := s.Repo.CreateProduct(ctx, &p); err != nil {
		return nil, err
	}

	s.reindex(ctx, &p)
	publish(ctx, s.Events, TopicProducts, productKey(p.ID), map[string]any{
		"type":      "product_created",
		"productID": p.ID,
		"name":      p.Name,
	})
	return &p, nil
}

func (s *CatalogService) Update(ctx context.Context, id uint, req transport.ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	p := models.Product{ID: id}
	applyProduct(&p, req)
	if err := s.Repo.UpdateProduct(ctx, &p); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.reindex(ctx, &p)
	publish(ctx, s.Events, TopicProducts, productKey(p.ID), map[string]any{
		"type":      "product_updated",
		"productID": p.ID,
		"name":      p.Name,
	})
	return &p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_delete_error", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, TopicProducts, productKey(id), map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return nil
}

// Search prefers the search index and falls back to a SQL match when the
// index is absent or failing.
func (s *CatalogService) Search(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, fmt.Errorf("%w: q required", ErrValidation)
	}
	if s.Index != nil {
		total, prods, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			return total, prods, nil
		}
		logging.FromContext(ctx).Warn("search_index_error", "query", q, "error", err)
	}
	return s.Repo.SearchProducts(ctx, q, offset, limit)
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	reindexProduct(ctx, s.Index, p)
}

// reindexProduct refreshes the search document after a committed write.
// Index failures are logged; the database stays the source of truth.
func reindexProduct(ctx context.Context, idx ProductIndex, p *models.Product) {
	if idx == nil {
		return
	}
	if err := idx.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "product_id", p.ID, "error", err)
	}
}

func productKey(id uint) string { return strconv.FormatUint(uint64(id), 10) }
