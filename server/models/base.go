package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        uint      `json:"id,omitempty" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Store gives access to the phonebook tables. A Store either wraps the
// connection pool or a single transaction, see Begin.
type Store struct {
	db   *gorm.DB
	inTx bool
}

type storeContextKey struct{}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithContext returns a store whose queries are bound to ctx.
func (s *Store) WithContext(ctx context.Context) *Store {
	return &Store{db: s.db.WithContext(ctx), inTx: s.inTx}
}

// Begin opens a transaction. The returned store must be finished with
// Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Store, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &Store{db: tx, inTx: true}, nil
}

func (s *Store) Commit() error {
	return s.db.Commit().Error
}

func (s *Store) Rollback() error {
	return s.db.Rollback().Error
}

// Transaction runs fn in a transaction. A store that is already
// transactional runs fn directly; the outer transaction decides.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// ContextWithStore attaches a (usually request scoped, transactional)
// store to ctx.
func ContextWithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, store)
}

func StoreFromContext(ctx context.Context) (*Store, bool) {
	store, ok := ctx.Value(storeContextKey{}).(*Store)
	return store, ok && store != nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
