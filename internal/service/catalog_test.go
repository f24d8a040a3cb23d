package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[uint]string
	docs    map[uint]models.Product
	deleted []uint
	err     error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{indexed: map[uint]string{}, docs: map[uint]models.Product{}}
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.indexed[p.ID] = p.Name
	f.docs[p.ID] = *p
	return nil
}

func (f *fakeIndex) DeleteProduct(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeIndex) Search(_ context.Context, q string, _, _ int) (int64, []models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, nil, f.err
	}
	if len(f.docs) == 0 {
		return 1, []models.Product{{ID: 42, Name: "from index " + q}}, nil
	}
	out := make([]models.Product, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	return int64(len(out)), out, nil
}

func productReq(name string, price string, stock int) transport.ProductRequest {
	p := decimal.RequireFromString(price)
	return transport.ProductRequest{
		Name:        name,
		Description: name + " description",
		Price:       &p,
		Stock:       &stock,
		ImageURL:    "/img/" + name + ".png",
	}
}

func TestCatalog_CreateUpdateDelete(t *testing.T) {
	gdb := newTestDB(t)
	pub := &fakePublisher{}
	idx := newFakeIndex()
	svc := &CatalogService{Repo: repo.New(gdb), Events: pub, Index: idx}
	ctx := context.Background()

	p, err := svc.Create(ctx, productReq("Lamp", "19.90", 4))
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Lamp", idx.indexed[p.ID])

	req := productReq("Desk Lamp", "24.50", 0)
	req.Featured = true
	up, err := svc.Update(ctx, p.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", up.Name)
	assert.Equal(t, 0, up.Stock)
	assert.True(t, up.Featured)
	assert.True(t, up.Price.Equal(decimal.RequireFromString("24.50")))

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", got.Name)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, []uint{p.ID}, idx.deleted)

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrNotFound)
	_, err = svc.Update(ctx, p.ID, productReq("Ghost", "1", 1))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"product_created", "product_updated", "product_deleted"}, pub.types())
}

func TestCatalog_Validation(t *testing.T) {
	svc := &CatalogService{}
	neg := decimal.NewFromInt(-1)
	negStock := -1

	cases := map[string]func(*transport.ProductRequest){
		"name":           func(r *transport.ProductRequest) { r.Name = "  " },
		"description":    func(r *transport.ProductRequest) { r.Description = "" },
		"image":          func(r *transport.ProductRequest) { r.ImageURL = "" },
		"missing price":  func(r *transport.ProductRequest) { r.Price = nil },
		"negative price": func(r *transport.ProductRequest) { r.Price = &neg },
		"missing stock":  func(r *transport.ProductRequest) { r.Stock = nil },
		"negative stock": func(r *transport.ProductRequest) { r.Stock = &negStock },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := productReq("Lamp", "1", 1)
			mutate(&req)
			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, ErrValidation)
			_, err = svc.Update(context.Background(), 1, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCatalog_ListFeatured(t *testing.T) {
	gdb := newTestDB(t)
	svc := &CatalogService{Repo: repo.New(gdb)}
	ctx := context.Background()

	for i, name := range []string{"A", "B", "C"} {
		req := productReq(name, "1", 1)
		req.Featured = i != 1
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	total, all, err := svc.List(ctx, repo.ProductFilter{}, 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	yes := true
	total, featured, err := svc.List(ctx, repo.ProductFilter{Featured: &yes}, 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, p := range featured {
		assert.True(t, p.Featured)
	}
}

func TestCatalog_SearchFallsBackToSQL(t *testing.T) {
	gdb := newTestDB(t)
	seedProduct(t, gdb, "Red Chair", 1, "10")
	seedProduct(t, gdb, "Blue Table", 1, "10")
	ctx := context.Background()

	idx := newFakeIndex()
	svc := &CatalogService{Repo: repo.New(gdb), Index: idx}

	total, prods, err := svc.Search(ctx, "chair", 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, uint(42), prods[0].ID, "served by the index")

	idx.err = errors.New("cluster down")
	total, prods, err = svc.Search(ctx, "chair", 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Red Chair", prods[0].Name)

	svc.Index = nil
	total, _, err = svc.Search(ctx, "TABLE", 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, _, err = svc.Search(ctx, "  ", 0, 20)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCatalog_IndexFailureDoesNotFailWrite(t *testing.T) {
	gdb := newTestDB(t)
	idx := newFakeIndex()
	idx.err = errors.New("cluster down")
	svc := &CatalogService{Repo: repo.New(gdb), Index: idx}

	p, err := svc.Create(context.Background(), productReq("Lamp", "1", 1))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), p.ID))
}
