package persistence

import (
	"context"
	"errors"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPendingEntryRepository implements PendingEntryRepository using GORM
type GormPendingEntryRepository struct {
	db *gorm.DB
}

// NewGormPendingEntryRepository creates a new GormPendingEntryRepository
func NewGormPendingEntryRepository(db *gorm.DB) *GormPendingEntryRepository {
	return &GormPendingEntryRepository{db: db}
}

// FindByID finds a pending entry by its ID
func (r *GormPendingEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.PendingEntry, error) {
	var model models.PendingEntryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("pending entry", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStatus lists entries in a status, oldest approval first
func (r *GormPendingEntryRepository) FindByStatus(ctx context.Context, status settlement.PendingEntryStatus) ([]settlement.PendingEntry, error) {
	var entryModels []models.PendingEntryModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]settlement.PendingEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries, nil
}

// FindByRelated finds the entry created for a document
func (r *GormPendingEntryRepository) FindByRelated(ctx context.Context, entryType settlement.PendingEntryType, relatedID uuid.UUID) (*settlement.PendingEntry, error) {
	var model models.PendingEntryModel
	if err := r.db.WithContext(ctx).
		Where("type = ? AND related_id = ?", entryType, relatedID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CreateIfAbsent inserts an entry unless one exists for (type, related id)
func (r *GormPendingEntryRepository) CreateIfAbsent(ctx context.Context, entry *settlement.PendingEntry) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.PendingEntryModelFromDomain(entry))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SaveWithLock updates an entry guarded by its previous version
func (r *GormPendingEntryRepository) SaveWithLock(ctx context.Context, entry *settlement.PendingEntry) error {
	model := models.PendingEntryModelFromDomain(entry)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ settlement.PendingEntryRepository = (*GormPendingEntryRepository)(nil)
