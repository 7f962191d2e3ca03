package repositories

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Store groups the repositories that share one *gorm.DB, which is either the
// pool or an open transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Comments() *CommentRepository {
	return &CommentRepository{db: s.db}
}

func (s *Store) Reactions() *ReactionRepository {
	return &ReactionRepository{db: s.db}
}

func (s *Store) Aggregates() *AggregateRepository {
	return &AggregateRepository{db: s.db}
}

// WithContext binds ctx to the queries of the returned store.
func (s *Store) WithContext(ctx context.Context) *Store {
	return &Store{db: s.db.WithContext(ctx)}
}

// Begin runs fn inside a read-write transaction bound to ctx.
func (s *Store) Begin(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Snapshot runs fn inside a read-only transaction. On Postgres it is
// REPEATABLE READ so a page and its counts come from one snapshot; SQLite
// transactions are serialized already.
func (s *Store) Snapshot(ctx context.Context, fn func(tx *Store) error) error {
	var opts *sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	}, opts)
}
