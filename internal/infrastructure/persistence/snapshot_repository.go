package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/ggc/backend/internal/domain/warehouse"
	"github.com/ggc/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrSnapshotNotFound is returned when no snapshot matches
var ErrSnapshotNotFound = shared.NewDomainError(shared.CodeNotFound, "snapshot not found")

// DefaultListLimit bounds List when no positive limit is given
const DefaultListLimit = 20

// insertBatchSize keeps multi-row inserts under SQLite's bound-variable limit
const insertBatchSize = 200

// SnapshotRepository persists and restores warehouse snapshots
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a snapshot repository over db
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save writes the whole warehouse in one transaction
func (r *SnapshotRepository) Save(ctx context.Context, source, digest string, w *warehouse.Warehouse) (*models.SnapshotModel, error) {
	stats := w.Stats()
	snapshot := &models.SnapshotModel{
		ID:                uuid.New(),
		Digest:            digest,
		Source:            source,
		Partners:          stats.Partners,
		SimpleProducts:    stats.SimpleProducts,
		AggregateProducts: stats.AggregateProducts,
		Batches:           stats.Batches,
		CreatedAt:         time.Now().UTC(),
	}
	rows := models.RowsFromWarehouse(snapshot.ID, w)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snapshot).Error; err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		if len(rows.Partners) > 0 {
			if err := tx.CreateInBatches(rows.Partners, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert partners: %w", err)
			}
		}
		if len(rows.Products) > 0 {
			if err := tx.CreateInBatches(rows.Products, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert products: %w", err)
			}
		}
		if len(rows.Components) > 0 {
			if err := tx.CreateInBatches(rows.Components, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert components: %w", err)
			}
		}
		if len(rows.Batches) > 0 {
			if err := tx.CreateInBatches(rows.Batches, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert batches: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return snapshot, nil
}

// FindByID returns the snapshot header
func (r *SnapshotRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.SnapshotModel, error) {
	var snapshot models.SnapshotModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&snapshot).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &snapshot, nil
}

// FindByDigest returns the newest snapshot of the given content digest
func (r *SnapshotRepository) FindByDigest(ctx context.Context, digest string) (*models.SnapshotModel, error) {
	var snapshot models.SnapshotModel
	err := r.db.WithContext(ctx).
		Where("digest = ?", digest).
		Order("created_at DESC").
		First(&snapshot).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &snapshot, nil
}

// Latest returns the most recent snapshot
func (r *SnapshotRepository) Latest(ctx context.Context) (*models.SnapshotModel, error) {
	var snapshot models.SnapshotModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").First(&snapshot).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &snapshot, nil
}

// List returns up to limit snapshots, newest first
func (r *SnapshotRepository) List(ctx context.Context, limit int) ([]models.SnapshotModel, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var snapshots []models.SnapshotModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}

// Restore rebuilds the warehouse persisted under id
func (r *SnapshotRepository) Restore(ctx context.Context, id uuid.UUID) (*warehouse.Warehouse, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	var rows models.SnapshotRows
	if err := db.Where("snapshot_id = ?", id).Order("position").Find(&rows.Partners).Error; err != nil {
		return nil, fmt.Errorf("failed to load partners: %w", err)
	}
	if err := db.Where("snapshot_id = ?", id).Order("position").Find(&rows.Products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if err := db.Where("snapshot_id = ?", id).Order("product_id, position").Find(&rows.Components).Error; err != nil {
		return nil, fmt.Errorf("failed to load components: %w", err)
	}
	if err := db.Where("snapshot_id = ?", id).Order("position").Find(&rows.Batches).Error; err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}

	w, err := rows.ToWarehouse()
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return w, nil
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSnapshotNotFound
	}
	return fmt.Errorf("failed to query snapshot: %w", err)
}
