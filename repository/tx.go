package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// TxManager runs a function inside one database transaction. The function
// either commits as a whole or leaves no trace.
type TxManager interface {
	Do(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormTxManager implements TxManager on a gorm connection. A non-zero timeout
// bounds the whole transaction so a stalled connection cannot hang a request.
type GormTxManager struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormTxManager creates a new GormTxManager.
func NewGormTxManager(db *gorm.DB, timeout time.Duration) TxManager {
	return &GormTxManager{db: db, timeout: timeout}
}

func (m *GormTxManager) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.db.WithContext(ctx).Transaction(fn)
}
