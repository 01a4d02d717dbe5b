package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs fn as one atomic unit of work over the ledger and the
// counter. A nil return from WithinTransaction means the work is committed.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ledger LedgerRepository, counter CounterRepository) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ledger LedgerRepository, counter CounterRepository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewLedgerRepository(tx), NewCounterRepository(tx))
	})
}
