package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrStockConflict is returned when a guarded stock decrement matched no row.
var ErrStockConflict = errors.New("stock changed concurrently")

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// InTx runs fn inside one database transaction. The repo handed to fn is
// bound to that transaction; any error rolls everything back.
func (r *GormRepo) InTx(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}
