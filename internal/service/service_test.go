package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

func init() {
	auth.HashCost = bcrypt.MinCost
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(context.Background(), db.Options{Driver: "sqlite", URL: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func seedProduct(t *testing.T, gdb *gorm.DB, name string, stock int, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Description: name,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		ImageURL:    "/img/" + name,
	}
	require.NoError(t, repo.New(gdb).CreateProduct(context.Background(), p))
	return p
}

func seedUser(t *testing.T, gdb *gorm.DB, email, role string) *models.User {
	t.Helper()
	h, err := auth.HashPassword("Secret123")
	require.NoError(t, err)
	u := &models.User{Name: "Test", Surname: "User", Email: email, PasswordHash: h, Role: role}
	require.NoError(t, repo.New(gdb).CreateUser(context.Background(), u))
	return u
}

func stockOf(t *testing.T, gdb *gorm.DB, id uint) int {
	t.Helper()
	p, err := repo.New(gdb).GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func countRows(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _ := event.(map[string]any)
	f.events = append(f.events, recordedEvent{Topic: topic, Key: key, Event: m})
	return f.err
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Event["type"].(string))
	}
	return out
}

type fakeIdem struct {
	mu          sync.Mutex
	locks       map[string]bool
	values      map[string]string
	rememberErr error
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{locks: map[string]bool{}, values: map[string]string{}}
}

func (f *fakeIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := scope + ":" + key
	if f.locks[k] {
		return false, nil
	}
	f.locks[k] = true
	return true, nil
}

func (f *fakeIdem) Remember(_ context.Context, scope, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rememberErr != nil {
		return f.rememberErr
	}
	f.values[scope+":"+key] = value
	return nil
}

func (f *fakeIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[scope+":"+key]
	return v, ok, nil
}

func (f *fakeIdem) held(scope, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks[scope+":"+key]
}

func (f *fakeIdem) Release(_ context.Context, scope, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, scope+":"+key)
	return nil
}
