package repository

import (
	"context"
	"errors"

	"payout-backend/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// LedgerRepository defines the interface for LedgerEntry data access.
// Entries are append-only.
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error

	// KnownHashes returns every recorded tx hash for a network. The indexer
	// loads this once per scan for membership checks.
	KnownHashes(ctx context.Context, network string) (map[string]struct{}, error)

	List(ctx context.Context, limit, offset int) ([]*models.LedgerEntry, error)
	Count(ctx context.Context) (int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new LedgerRepository instance
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) KnownHashes(ctx context.Context, network string) (map[string]struct{}, error) {
	var hashes []string
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("network = ?", network).
		Pluck("tx_hash", &hashes).Error
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		known[h] = struct{}{}
	}
	return known, nil
}

func (r *ledgerRepository) List(ctx context.Context, limit, offset int) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(limit).
		Order("block_number DESC, created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Count(&count).Error
	return count, err
}

// IsDuplicateEntry reports whether err is a unique-constraint violation on
// insert. The indexer treats these as expected idempotency collisions.
func IsDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	return false
}
